package gitfetch

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"os/exec"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	log "github.com/sirupsen/logrus"

	"github.com/wavemaker-labs/wmx/internal/wmx"
)

// Fetcher clones component revisions into isolated scratch directories.
// The zero value is not usable; construct with New.
type Fetcher struct {
	scratchRoot string
	depth       int
	timeout     time.Duration
}

// New returns a Fetcher writing scratch directories under scratchRoot
// (the system temp dir when empty), cloning with the given depth and
// per-clone timeout.
func New(scratchRoot string, depth int, timeout time.Duration) *Fetcher {
	if depth <= 0 {
		depth = 1
	}
	if timeout <= 0 {
		timeout = 5 * time.Minute
	}
	return &Fetcher{scratchRoot: scratchRoot, depth: depth, timeout: timeout}
}

// Fetch clones the referenced revision and returns a read-only snapshot of
// the component source plus a cleanup function that removes the scratch
// directory. The cleanup function must be called exactly once; on error it
// has already run.
func (f *Fetcher) Fetch(ctx context.Context, ref *wmx.ComponentRef) (*wmx.Snapshot, func(), error) {
	// Local environment failures are not part of the fetch taxonomy; they
	// surface unwrapped and are never retried.
	tmpDir, err := os.MkdirTemp(f.scratchRoot, "wmx-"+ref.ID+"-")
	if err != nil {
		return nil, nil, fmt.Errorf("creating scratch directory: %w", err)
	}
	cleanup := func() { _ = os.RemoveAll(tmpDir) }

	if err := f.CloneAt(ctx, ref.SourceRepo, ref.Revision, tmpDir); err != nil {
		cleanup()
		return nil, nil, err
	}

	srcDir := tmpDir
	if ref.Subdir != "" {
		srcDir = filepath.Join(tmpDir, filepath.FromSlash(ref.Subdir))
		info, err := os.Stat(srcDir)
		if err != nil || !info.IsDir() {
			cleanup()
			return nil, nil, &wmx.FetchError{
				Kind: wmx.KindNotFound, Repo: ref.SourceRepo, Revision: ref.Revision,
				Err: fmt.Errorf("component path %s not found in repository", ref.Subdir),
			}
		}
	}

	manifest, err := snapshotManifest(srcDir)
	if err != nil {
		cleanup()
		return nil, nil, fmt.Errorf("reading snapshot: %w", err)
	}

	log.WithFields(log.Fields{
		"component": ref.ID,
		"revision":  ref.Revision,
		"files":     len(manifest),
	}).Debug("fetched snapshot")

	return &wmx.Snapshot{Root: srcDir, Manifest: manifest}, cleanup, nil
}

// CloneAt clones the given revision of repoURI into destDir. destDir must
// be empty or nonexistent; on failure it is removed before returning.
func (f *Fetcher) CloneAt(ctx context.Context, repoURI, revision, destDir string) error {
	if err := ensureGit(); err != nil {
		return err
	}

	ctx, cancel := context.WithTimeout(ctx, f.timeout)
	defer cancel()

	// Fast path: revision is a branch or tag, fetchable shallowly.
	out, err := f.runGit(ctx, "", "clone",
		"--depth", strconv.Itoa(f.depth),
		"--branch", revision,
		"--single-branch",
		repoURI, destDir)
	if err == nil {
		return nil
	}

	kind := classifyGitError(out, ctx.Err())
	if kind != wmx.KindRevisionNotFound {
		_ = os.RemoveAll(destDir)
		return &wmx.FetchError{
			Kind: kind, Repo: repoURI, Revision: revision,
			Err: fmt.Errorf("git clone: %s", firstLine(out)),
		}
	}

	// Fallback: revision may be a commit sha, which --branch cannot fetch.
	// Full clone, then checkout the exact revision.
	_ = os.RemoveAll(destDir)
	out, err = f.runGit(ctx, "", "clone", repoURI, destDir)
	if err != nil {
		_ = os.RemoveAll(destDir)
		return &wmx.FetchError{
			Kind: classifyGitError(out, ctx.Err()), Repo: repoURI, Revision: revision,
			Err: fmt.Errorf("git clone: %s", firstLine(out)),
		}
	}

	if out, err = f.runGit(ctx, destDir, "checkout", "--detach", revision); err != nil {
		_ = os.RemoveAll(destDir)
		return &wmx.FetchError{
			Kind: wmx.KindRevisionNotFound, Repo: repoURI, Revision: revision,
			Err: fmt.Errorf("git checkout: %s", firstLine(out)),
		}
	}
	return nil
}

// runGit executes a git command, returning combined output for error
// classification.
func (f *Fetcher) runGit(ctx context.Context, dir string, args ...string) (string, error) {
	cmd := exec.CommandContext(ctx, "git", args...)
	if dir != "" {
		cmd.Dir = dir
	}
	// Never let clones prompt for credentials.
	cmd.Env = append(os.Environ(), "GIT_TERMINAL_PROMPT=0")
	out, err := cmd.CombinedOutput()
	if err != nil {
		log.WithField("args", args).Debugf("git failed: %s", firstLine(string(out)))
	}
	return string(out), err
}

// snapshotManifest walks the snapshot tree and returns the relative paths
// of all regular files in walk order, skipping .git.
func snapshotManifest(root string) ([]string, error) {
	var manifest []string
	err := filepath.WalkDir(root, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if d.IsDir() {
			if d.Name() == ".git" {
				return filepath.SkipDir
			}
			return nil
		}
		if !d.Type().IsRegular() {
			return nil
		}
		rel, err := filepath.Rel(root, path)
		if err != nil {
			return err
		}
		manifest = append(manifest, filepath.ToSlash(rel))
		return nil
	})
	if err != nil {
		return nil, err
	}
	return manifest, nil
}

// classifyGitError maps git output to a FetchError kind.
func classifyGitError(output string, ctxErr error) wmx.ErrorKind {
	if ctxErr != nil {
		return wmx.KindNetworkError
	}

	lower := strings.ToLower(output)
	switch {
	case strings.Contains(lower, "authentication failed"),
		strings.Contains(lower, "could not read username"),
		strings.Contains(lower, "could not read password"),
		strings.Contains(lower, "permission denied"):
		return wmx.KindAuthRequired
	case strings.Contains(lower, "remote branch"),
		strings.Contains(lower, "couldn't find remote ref"),
		strings.Contains(lower, "not found in upstream"),
		strings.Contains(lower, "pathspec"):
		return wmx.KindRevisionNotFound
	case strings.Contains(lower, "repository not found"),
		strings.Contains(lower, "does not exist"),
		strings.Contains(lower, "does not appear to be a git repository"):
		return wmx.KindNotFound
	default:
		return wmx.KindNetworkError
	}
}

// ensureGit checks that git is available on PATH.
func ensureGit() error {
	if _, err := exec.LookPath("git"); err != nil {
		return errors.New("git is required but not found in PATH")
	}
	return nil
}

func firstLine(s string) string {
	s = strings.TrimSpace(s)
	if i := strings.IndexByte(s, '\n'); i >= 0 {
		return s[:i]
	}
	return s
}
