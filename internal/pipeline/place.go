package pipeline

import (
	"fmt"
	"os"
	"path/filepath"
	"time"

	log "github.com/sirupsen/logrus"

	"github.com/wavemaker-labs/wmx/internal/wmx"
)

// Placer executes install plans against the project tree. All destination
// writes are staged in a temporary directory inside componentsDir and made
// visible with a single rename, so a failure partway through never leaves
// a half-installed component.
type Placer struct {
	// copy is overridable so tests can inject mid-placement failures.
	copy func(src, dst string) error

	now func() time.Time
}

// NewPlacer returns a Placer with default file copying.
func NewPlacer() *Placer {
	return &Placer{copy: copyFile, now: time.Now}
}

// Placement is a completed but not yet committed placement. The previous
// installation (if any) is parked in a backup directory until the caller
// either commits or rolls back; exactly one of the two must be called.
type Placement struct {
	Record wmx.InstallRecord

	destDir   string
	backupDir string
}

// Place executes the plan. On any failure the staged writes are discarded
// and the previously installed files are left untouched.
func (p *Placer) Place(plan *Plan) (*Placement, error) {
	componentsPath := plan.Target.ComponentsPath()
	if err := os.MkdirAll(componentsPath, 0755); err != nil {
		return nil, &wmx.PlaceError{Kind: wmx.KindIOFailure, Path: componentsPath, Err: err}
	}

	destDir := filepath.Join(componentsPath, plan.Ref.ID)
	if plan.Mode == ModeFresh {
		if _, err := os.Stat(destDir); err == nil {
			return nil, &wmx.PlaceError{
				Kind: wmx.KindAlreadyExists,
				Path: destDir,
				Err:  fmt.Errorf("component directory already exists; use force to overwrite"),
			}
		}
	}

	// Stage every write inside componentsDir so the final rename stays on
	// one filesystem.
	stagingDir, err := os.MkdirTemp(componentsPath, ".wmx-staging-")
	if err != nil {
		return nil, &wmx.PlaceError{Kind: wmx.KindIOFailure, Path: componentsPath, Err: err}
	}
	defer os.RemoveAll(stagingDir)

	stagedComponent := filepath.Join(stagingDir, plan.Ref.ID)
	var files []string
	for _, f := range plan.Files {
		stagePath := filepath.Join(stagingDir, filepath.FromSlash(f.Dest))
		if err := os.MkdirAll(filepath.Dir(stagePath), 0755); err != nil {
			return nil, &wmx.PlaceError{Kind: wmx.KindIOFailure, Path: f.Dest, Err: err}
		}
		if err := p.copy(f.Source, stagePath); err != nil {
			return nil, &wmx.PlaceError{Kind: wmx.KindIOFailure, Path: f.Dest, Err: err}
		}
		files = append(files, f.Dest)
	}

	// Park the existing installation, swap the staged one in, and keep the
	// backup until Commit or Rollback decides its fate.
	var backupDir string
	if _, err := os.Stat(destDir); err == nil {
		backupDir, err = os.MkdirTemp(componentsPath, ".wmx-backup-")
		if err != nil {
			return nil, &wmx.PlaceError{Kind: wmx.KindIOFailure, Path: componentsPath, Err: err}
		}
		// Rename over the reserved name needs it absent.
		_ = os.Remove(backupDir)
		if err := os.Rename(destDir, backupDir); err != nil {
			return nil, &wmx.PlaceError{Kind: wmx.KindIOFailure, Path: destDir, Err: err}
		}
	}

	if err := os.Rename(stagedComponent, destDir); err != nil {
		if backupDir != "" {
			if restoreErr := os.Rename(backupDir, destDir); restoreErr != nil {
				log.WithError(restoreErr).Error("failed to restore previous installation")
			}
		}
		return nil, &wmx.PlaceError{Kind: wmx.KindIOFailure, Path: destDir, Err: err}
	}

	log.WithFields(log.Fields{
		"component": plan.Ref.ID,
		"version":   plan.Ref.Version,
		"mode":      plan.Mode,
		"files":     len(files),
	}).Info("placed component")

	return &Placement{
		Record: wmx.InstallRecord{
			ComponentID: plan.Ref.ID,
			Version:     plan.Ref.Version,
			Revision:    plan.Ref.Revision,
			InstalledAt: p.now().UTC(),
			Files:       files,
		},
		destDir:   destDir,
		backupDir: backupDir,
	}, nil
}

// Commit discards the parked previous installation, making the placement
// permanent.
func (pl *Placement) Commit() {
	if pl.backupDir != "" {
		_ = os.RemoveAll(pl.backupDir)
		pl.backupDir = ""
	}
}

// Rollback removes the placed files and restores the previous installation
// if one was parked.
func (pl *Placement) Rollback() error {
	if err := os.RemoveAll(pl.destDir); err != nil {
		return &wmx.PlaceError{Kind: wmx.KindIOFailure, Path: pl.destDir, Err: err}
	}
	if pl.backupDir != "" {
		if err := os.Rename(pl.backupDir, pl.destDir); err != nil {
			return &wmx.PlaceError{Kind: wmx.KindIOFailure, Path: pl.backupDir, Err: err}
		}
		pl.backupDir = ""
	}
	return nil
}

// copyFile copies a single file, preserving permissions.
func copyFile(src, dst string) error {
	data, err := os.ReadFile(src)
	if err != nil {
		return err
	}

	srcInfo, err := os.Stat(src)
	if err != nil {
		return err
	}

	return os.WriteFile(dst, data, srcInfo.Mode())
}
