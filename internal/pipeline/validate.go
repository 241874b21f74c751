package pipeline

import (
	"fmt"
	"path/filepath"
	"strings"

	"github.com/Masterminds/semver/v3"

	"github.com/wavemaker-labs/wmx/internal/wmx"
)

// InstallMode says how a plan will treat the destination directory.
type InstallMode string

const (
	// ModeFresh installs into a directory that must not yet exist.
	ModeFresh InstallMode = "fresh"
	// ModeUpgrade replaces an older installed version with a newer one.
	ModeUpgrade InstallMode = "upgrade"
	// ModeOverwrite replaces whatever is installed, authorized by force.
	ModeOverwrite InstallMode = "overwrite"
)

// PlannedFile pairs a snapshot source file with its destination path
// relative to the components directory.
type PlannedFile struct {
	Source string
	Dest   string
}

// Plan is the validated, concrete set of writes for one install.
type Plan struct {
	Ref        wmx.ComponentRef
	Target     wmx.ProjectTarget
	Mode       InstallMode
	Descriptor *wmx.Descriptor
	Files      []PlannedFile
	Warnings   []string
}

// Validate inspects a fetched snapshot against the target project and
// returns the install plan, or a ValidationError when the snapshot is not
// installable. existing is the current InstallRecord for the component id,
// nil when none is recorded.
func Validate(snap *wmx.Snapshot, target wmx.ProjectTarget, ref *wmx.ComponentRef, existing *wmx.InstallRecord, force bool) (*Plan, error) {
	// The id names the destination directory, so a hostile catalog value
	// like "../evil" would escape componentsDir through every Dest below.
	if !wmx.SafeComponentID(ref.ID) {
		return nil, &wmx.ValidationError{
			Kind:   wmx.KindUnsafePath,
			Detail: fmt.Sprintf("component id %q is not a safe directory name", ref.ID),
		}
	}

	if len(snap.Manifest) == 0 {
		return nil, &wmx.ValidationError{
			Kind:   wmx.KindMalformedComponent,
			Detail: "snapshot contains no files",
		}
	}

	for _, rel := range snap.Manifest {
		if !safeRelPath(rel) {
			return nil, &wmx.ValidationError{
				Kind:   wmx.KindUnsafePath,
				Detail: fmt.Sprintf("manifest path %q escapes the component directory", rel),
			}
		}
	}

	if !containsPath(snap.Manifest, wmx.DescriptorName) {
		return nil, &wmx.ValidationError{
			Kind:   wmx.KindMalformedComponent,
			Detail: fmt.Sprintf("snapshot has no %s descriptor", wmx.DescriptorName),
		}
	}

	desc, err := wmx.ParseDescriptorFile(snap.Root)
	if err != nil {
		return nil, &wmx.ValidationError{
			Kind:   wmx.KindMalformedComponent,
			Detail: err.Error(),
		}
	}

	mode := ModeFresh
	if existing != nil {
		mode, err = upgradeMode(ref, existing, force)
		if err != nil {
			return nil, err
		}
	} else if force {
		// No record, but force authorizes replacing a directory that may
		// have been left behind outside the pipeline's knowledge.
		mode = ModeOverwrite
	}

	var warnings []string
	if desc.Version != ref.Version {
		warnings = append(warnings,
			fmt.Sprintf("descriptor declares version %s but catalog resolved %s", desc.Version, ref.Version))
	}
	for name := range wmx.RecommendedFiles {
		if !containsPath(snap.Manifest, name) {
			warnings = append(warnings, fmt.Sprintf("recommended file %s is missing", name))
		}
	}

	files := make([]PlannedFile, 0, len(snap.Manifest))
	for _, rel := range snap.Manifest {
		files = append(files, PlannedFile{
			Source: filepath.Join(snap.Root, filepath.FromSlash(rel)),
			Dest:   ref.ID + "/" + rel,
		})
	}

	return &Plan{
		Ref:        *ref,
		Target:     target,
		Mode:       mode,
		Descriptor: desc,
		Files:      files,
		Warnings:   warnings,
	}, nil
}

// upgradeMode compares the requested version against the installed one.
// Installing an older or equal version is a VersionConflict unless forced.
func upgradeMode(ref *wmx.ComponentRef, existing *wmx.InstallRecord, force bool) (InstallMode, error) {
	if force {
		return ModeOverwrite, nil
	}

	requested, err := semver.NewVersion(ref.Version)
	if err != nil {
		return "", &wmx.ValidationError{
			Kind:   wmx.KindMalformedComponent,
			Detail: fmt.Sprintf("requested version %q is not semantic: %v", ref.Version, err),
		}
	}
	installed, err := semver.NewVersion(existing.Version)
	if err != nil {
		return "", &wmx.ValidationError{
			Kind: wmx.KindVersionConflict,
			Detail: fmt.Sprintf("installed version %q is not comparable; use force to overwrite",
				existing.Version),
		}
	}

	if !requested.GreaterThan(installed) {
		return "", &wmx.ValidationError{
			Kind: wmx.KindVersionConflict,
			Detail: fmt.Sprintf("version %s is already installed (requested %s); use force to overwrite",
				existing.Version, ref.Version),
		}
	}
	return ModeUpgrade, nil
}

// safeRelPath reports whether rel is a relative slash path that stays
// inside its root: no absolute paths, no parent-directory segments, no
// empty segments. Rejecting these prevents a snapshot from writing outside
// the components directory.
func safeRelPath(rel string) bool {
	if rel == "" || strings.HasPrefix(rel, "/") || strings.Contains(rel, "\\") {
		return false
	}
	native := filepath.FromSlash(rel)
	if filepath.IsAbs(native) || !filepath.IsLocal(native) {
		return false
	}
	for _, seg := range strings.Split(rel, "/") {
		if seg == "" || seg == "." || seg == ".." {
			return false
		}
	}
	return true
}

func containsPath(manifest []string, name string) bool {
	for _, rel := range manifest {
		if rel == name {
			return true
		}
	}
	return false
}
