package wmx

import (
	"path/filepath"
	"strings"
	"time"
)

// ComponentRef identifies exactly one installable artifact: a component at
// a specific version, pinned to a revision in its source repository.
// Immutable once resolved.
type ComponentRef struct {
	ID         string
	Version    string
	SourceRepo string
	Revision   string
	// Subdir is the path within the repository holding the component,
	// empty when the component lives at the repository root.
	Subdir string
}

// SafeComponentID reports whether id can serve as the component's
// directory name under componentsDir: exactly one relative path segment,
// no separators, no parent references. The id arrives from loosely-typed
// catalog JSON, so it must be checked before any path is built from it.
func SafeComponentID(id string) bool {
	if id == "" || id == "." || id == ".." {
		return false
	}
	if strings.ContainsAny(id, `/\`) {
		return false
	}
	return filepath.IsLocal(id)
}

// Snapshot is an isolated local copy of a component's source at a specific
// revision, prior to placement. Root is a scratch directory owned by the
// install request that produced it; Manifest lists the component files as
// relative paths in walk order.
type Snapshot struct {
	Root     string
	Manifest []string
}

// InstallRecord is the durable record proving a component is installed and
// listing the files it owns. The metadata store keeps one record per
// component id.
type InstallRecord struct {
	ComponentID string    `yaml:"component_id"`
	Version     string    `yaml:"version"`
	Revision    string    `yaml:"revision"`
	InstalledAt time.Time `yaml:"installed_at"`
	// Files are slash paths relative to the project's components
	// directory (the store file's own location), each starting with the
	// component id segment.
	Files []string `yaml:"files"`
}

// ProjectTarget is the destination project tree. Supplied by the caller,
// never owned by the pipeline.
type ProjectTarget struct {
	Root          string
	ComponentsDir string
}

// ComponentsPath returns the absolute path of the components directory.
func (t ProjectTarget) ComponentsPath() string {
	return filepath.Join(t.Root, t.ComponentsDir)
}

// Component is the full marketplace metadata for a WMX component.
type Component struct {
	ID          string   `json:"id"`
	Name        string   `json:"name"`
	DisplayName string   `json:"display_name"`
	Description string   `json:"description"`
	Category    string   `json:"category"`
	Tags        []string `json:"tags,omitempty"`

	// Repository information.
	GitURL    string `json:"git_url"`
	GitBranch string `json:"git_branch"`
	// GitPath is the path within the repo if the component is in a subfolder.
	GitPath string `json:"git_path,omitempty"`

	Version  string             `json:"version"`
	Versions []ComponentVersion `json:"versions,omitempty"`
	Author   Author             `json:"author"`
	License  string             `json:"license,omitempty"`

	Downloads    int      `json:"downloads,omitempty"`
	Rating       float64  `json:"rating,omitempty"`
	ReviewsCount int      `json:"reviews_count,omitempty"`
	Dependencies []string `json:"dependencies,omitempty"`

	WavemakerVersion string    `json:"wavemaker_version,omitempty"`
	CreatedAt        time.Time `json:"created_at,omitempty"`
	UpdatedAt        time.Time `json:"updated_at,omitempty"`
}

// ComponentVersion is one published version of a component.
type ComponentVersion struct {
	Version     string    `json:"version"`
	ReleaseDate time.Time `json:"release_date,omitempty"`
	Changelog   string    `json:"changelog,omitempty"`
	// Revision is the tag or commit this version was published from.
	// When absent, the conventional "v<version>" tag is assumed.
	Revision      string   `json:"revision,omitempty"`
	Compatibility []string `json:"compatibility,omitempty"`
}

// Author is the component author information.
type Author struct {
	Name         string `json:"name"`
	Email        string `json:"email,omitempty"`
	Organization string `json:"organization,omitempty"`
}
