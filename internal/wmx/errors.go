package wmx

import (
	"errors"
	"fmt"
)

// Stage names the pipeline step an install request was in when it failed.
type Stage string

const (
	StageResolving  Stage = "resolving"
	StageFetching   Stage = "fetching"
	StageValidating Stage = "validating"
	StagePlacing    Stage = "placing"
	StageRecording  Stage = "recording"
)

// ErrorKind classifies a pipeline failure.
type ErrorKind string

const (
	// Fetch failures.
	KindNotFound         ErrorKind = "not_found"
	KindAuthRequired     ErrorKind = "auth_required"
	KindNetworkError     ErrorKind = "network_error"
	KindRevisionNotFound ErrorKind = "revision_not_found"

	// Validation failures.
	KindUnsafePath         ErrorKind = "unsafe_path"
	KindVersionConflict    ErrorKind = "version_conflict"
	KindMalformedComponent ErrorKind = "malformed_component"

	// Placement failures.
	KindAlreadyExists ErrorKind = "already_exists"
	KindIOFailure     ErrorKind = "io_failure"

	// Store failures.
	KindCorruptState ErrorKind = "corrupt_state"
	KindWriteFailure ErrorKind = "write_failure"
)

// FetchError reports a failure retrieving a component revision.
type FetchError struct {
	Kind     ErrorKind
	Repo     string
	Revision string
	Err      error
}

func (e *FetchError) Error() string {
	return fmt.Sprintf("fetch %s@%s: %s: %v", e.Repo, e.Revision, e.Kind, e.Err)
}

func (e *FetchError) Unwrap() error { return e.Err }

// ValidationError reports an uninstallable snapshot or a version conflict.
type ValidationError struct {
	Kind   ErrorKind
	Detail string
}

func (e *ValidationError) Error() string {
	return fmt.Sprintf("validate: %s: %s", e.Kind, e.Detail)
}

// PlaceError reports a failure writing component files into the project.
type PlaceError struct {
	Kind ErrorKind
	Path string
	Err  error
}

func (e *PlaceError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("place %s: %s: %v", e.Path, e.Kind, e.Err)
	}
	return fmt.Sprintf("place %s: %s", e.Path, e.Kind)
}

func (e *PlaceError) Unwrap() error { return e.Err }

// StoreError reports a metadata store failure.
type StoreError struct {
	Kind ErrorKind
	Err  error
}

func (e *StoreError) Error() string {
	return fmt.Sprintf("store: %s: %v", e.Kind, e.Err)
}

func (e *StoreError) Unwrap() error { return e.Err }

// PipelineError is the error surfaced by the installer: the underlying
// failure plus the stage it occurred in. Failures during Resolving,
// Fetching, or Validating mean nothing was written; failures during
// Placing or Recording mean a rollback was performed.
type PipelineError struct {
	Stage Stage
	Err   error
}

func (e *PipelineError) Error() string {
	return fmt.Sprintf("install failed while %s: %v", e.Stage, e.Err)
}

func (e *PipelineError) Unwrap() error { return e.Err }

// Kind returns the classification of the underlying failure.
func (e *PipelineError) Kind() ErrorKind { return KindOf(e.Err) }

// RolledBack reports whether the failure happened after placement began,
// i.e. previously written state was restored.
func (e *PipelineError) RolledBack() bool {
	return e.Stage == StagePlacing || e.Stage == StageRecording
}

// KindOf extracts the ErrorKind from any taxonomy error in err's chain.
// Returns the empty kind for unclassified errors.
func KindOf(err error) ErrorKind {
	var fe *FetchError
	if errors.As(err, &fe) {
		return fe.Kind
	}
	var ve *ValidationError
	if errors.As(err, &ve) {
		return ve.Kind
	}
	var pe *PlaceError
	if errors.As(err, &pe) {
		return pe.Kind
	}
	var se *StoreError
	if errors.As(err, &se) {
		return se.Kind
	}
	return ""
}
