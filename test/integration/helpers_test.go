//go:build integration

package integration_test

import (
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"os"
	"os/exec"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/wavemaker-labs/wmx/internal/gitfetch"
	"github.com/wavemaker-labs/wmx/internal/marketplace"
	"github.com/wavemaker-labs/wmx/internal/pipeline"
	"github.com/wavemaker-labs/wmx/internal/wmx"
)

// testEnv holds the pieces of one end-to-end install scenario: a local git
// repository standing in for the component source, an httptest server
// standing in for the marketplace, and a scratch project directory.
type testEnv struct {
	RepoDir    string
	ProjectDir string
	Server     *httptest.Server
	Installer  *pipeline.Installer
}

func (e *testEnv) target() wmx.ProjectTarget {
	return wmx.ProjectTarget{Root: e.ProjectDir, ComponentsDir: "src/main/webapp/components"}
}

// setupTestEnv builds a component repo with the given published versions
// (each tagged v<version>) and a marketplace serving its metadata.
func setupTestEnv(t *testing.T, componentID string, versions ...string) *testEnv {
	t.Helper()
	requireGit(t)

	repoDir := setupComponentRepo(t, componentID, versions)
	server := setupMarketplace(t, componentID, repoDir, versions)

	client := marketplace.New(server.URL, "", 10*time.Second)
	fetcher := gitfetch.New(t.TempDir(), 1, time.Minute)

	return &testEnv{
		RepoDir:    repoDir,
		ProjectDir: t.TempDir(),
		Server:     server,
		Installer:  pipeline.NewInstaller(client, fetcher),
	}
}

func requireGit(t *testing.T) {
	t.Helper()
	if _, err := exec.LookPath("git"); err != nil {
		t.Skip("git not available on PATH")
	}
}

// setupComponentRepo creates a git repository that publishes each version as
// one commit tagged v<version>, oldest first. Every version carries a
// wmconfig.json and an index.ts naming the version.
func setupComponentRepo(t *testing.T, componentID string, versions []string) string {
	t.Helper()
	dir := t.TempDir()

	runGit(t, dir, "init")
	runGit(t, dir, "checkout", "-b", "main")

	for _, version := range versions {
		writeFile(t, filepath.Join(dir, "wmconfig.json"), descriptorJSON(componentID, version))
		writeFile(t, filepath.Join(dir, "index.ts"), "// implementation of "+version)
		writeFile(t, filepath.Join(dir, "README.md"), "# "+componentID)
		// Each version also ships one version-specific file so upgrades
		// demonstrably replace the old tree.
		writeFile(t, filepath.Join(dir, "impl-"+version+".ts"), "export {}")

		runGit(t, dir, "add", "-A")
		runGit(t, dir, "commit", "-m", "release "+version)
		runGit(t, dir, "tag", "v"+version)

		if err := os.Remove(filepath.Join(dir, "impl-"+version+".ts")); err != nil {
			t.Fatal(err)
		}
	}

	return dir
}

// setupMarketplace serves GET /components/<id> with metadata pointing at the
// local repository. The newest version is the last element of versions.
func setupMarketplace(t *testing.T, componentID, repoDir string, versions []string) *httptest.Server {
	t.Helper()

	newest := versions[len(versions)-1]
	published := make([]map[string]any, 0, len(versions))
	for i := len(versions) - 1; i >= 0; i-- {
		published = append(published, map[string]any{"version": versions[i]})
	}

	component := map[string]any{
		"id":           componentID,
		"name":         componentID,
		"display_name": strings.ReplaceAll(componentID, "-", " "),
		"description":  "integration test component",
		"category":     "Test",
		"git_url":      repoDir,
		"git_branch":   "main",
		"version":      newest,
		"versions":     published,
	}

	mux := http.NewServeMux()
	mux.HandleFunc("/components/"+componentID, func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		if err := json.NewEncoder(w).Encode(component); err != nil {
			t.Errorf("encoding component: %v", err)
		}
	})

	server := httptest.NewServer(mux)
	t.Cleanup(server.Close)
	return server
}

func descriptorJSON(componentID, version string) string {
	return fmt.Sprintf(`{
	"name": %q,
	"displayName": %q,
	"version": %q,
	"description": "integration test component",
	"category": "Test"
}`, componentID, componentID, version)
}

func runGit(t *testing.T, dir string, args ...string) {
	t.Helper()
	cmd := exec.Command("git", args...)
	cmd.Dir = dir
	cmd.Env = append(os.Environ(),
		"GIT_AUTHOR_NAME=test", "GIT_AUTHOR_EMAIL=test@example.com",
		"GIT_COMMITTER_NAME=test", "GIT_COMMITTER_EMAIL=test@example.com",
	)
	if out, err := cmd.CombinedOutput(); err != nil {
		t.Fatalf("git %v: %v\n%s", args, err, out)
	}
}

func writeFile(t *testing.T, path, content string) {
	t.Helper()
	if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
		t.Fatal(err)
	}
	if err := os.WriteFile(path, []byte(content), 0644); err != nil {
		t.Fatal(err)
	}
}

func assertFileExists(t *testing.T, path string) {
	t.Helper()
	if _, err := os.Stat(path); err != nil {
		t.Errorf("expected file to exist: %s (error: %v)", path, err)
	}
}

func assertFileNotExists(t *testing.T, path string) {
	t.Helper()
	if _, err := os.Stat(path); err == nil {
		t.Errorf("expected file NOT to exist: %s", path)
	}
}
