package pipeline

import (
	"context"
	"errors"
	"sync"
	"time"

	"github.com/cenkalti/backoff/v4"
	log "github.com/sirupsen/logrus"

	"github.com/wavemaker-labs/wmx/internal/store"
	"github.com/wavemaker-labs/wmx/internal/wmx"
)

// Catalog resolves component ids to immutable component references.
type Catalog interface {
	ResolveComponent(ctx context.Context, id, version string) (*wmx.ComponentRef, error)
}

// Fetcher produces isolated snapshots of component sources. The returned
// cleanup function releases the snapshot's scratch directory.
type Fetcher interface {
	Fetch(ctx context.Context, ref *wmx.ComponentRef) (*wmx.Snapshot, func(), error)
}

// InstallRequest is one install invocation.
type InstallRequest struct {
	ComponentID string
	// Version is optional; empty resolves to the newest published version.
	Version string
	Target  wmx.ProjectTarget
	// Force authorizes overwriting an equal or newer installed version.
	Force bool
}

// Installer sequences Fetcher, Validator, Placer, and Metadata Store as one
// transaction-like unit per install request. Safe for concurrent use;
// requests for the same component id in the same project are serialized
// end-to-end.
type Installer struct {
	catalog Catalog
	fetcher Fetcher
	placer  *Placer

	// Bounded retry for transient fetch failures.
	maxFetchRetries uint64
	fetchRetryBase  time.Duration

	mu     sync.Mutex
	stores map[string]*store.Store
	locks  map[string]*sync.Mutex
}

// NewInstaller returns an Installer using the given collaborators.
func NewInstaller(catalog Catalog, fetcher Fetcher) *Installer {
	return &Installer{
		catalog:         catalog,
		fetcher:         fetcher,
		placer:          NewPlacer(),
		maxFetchRetries: 3,
		fetchRetryBase:  500 * time.Millisecond,
		stores:          make(map[string]*store.Store),
		locks:           make(map[string]*sync.Mutex),
	}
}

// Install runs the pipeline for one request:
//
//	Resolving -> Fetching -> Validating -> Placing -> Recording -> Done
//
// A failure in any stage surfaces as a PipelineError carrying that stage.
// Failures during Placing or Recording roll the project tree back to its
// pre-install state; earlier failures never touch it. Cancellation is
// honored at stage boundaries only.
func (ins *Installer) Install(ctx context.Context, req InstallRequest) (*wmx.InstallRecord, error) {
	logger := log.WithFields(log.Fields{
		"component": req.ComponentID,
		"version":   req.Version,
	})

	// Resolving.
	ref, err := ins.catalog.ResolveComponent(ctx, req.ComponentID, req.Version)
	if err != nil {
		return nil, &wmx.PipelineError{Stage: wmx.StageResolving, Err: err}
	}
	if err := ctx.Err(); err != nil {
		return nil, &wmx.PipelineError{Stage: wmx.StageResolving, Err: err}
	}

	// Fetching, with bounded backoff on transient network failures.
	snap, cleanup, err := ins.fetchWithRetry(ctx, ref, logger)
	if err != nil {
		return nil, &wmx.PipelineError{Stage: wmx.StageFetching, Err: err}
	}
	defer cleanup()
	if err := ctx.Err(); err != nil {
		return nil, &wmx.PipelineError{Stage: wmx.StageFetching, Err: err}
	}

	// The per-component lock covers Validating through Recording so the
	// version-conflict check stays correct under concurrent installs of
	// the same component.
	unlock := ins.lockComponent(req.Target, ref.ID)
	defer unlock()

	st, err := ins.storeFor(req.Target)
	if err != nil {
		return nil, &wmx.PipelineError{Stage: wmx.StageValidating, Err: err}
	}

	// Validating.
	var existing *wmx.InstallRecord
	if rec, ok := st.Get(ref.ID); ok {
		existing = &rec
	}
	plan, err := Validate(snap, req.Target, ref, existing, req.Force)
	if err != nil {
		return nil, &wmx.PipelineError{Stage: wmx.StageValidating, Err: err}
	}
	for _, w := range plan.Warnings {
		logger.Warn(w)
	}
	if err := ctx.Err(); err != nil {
		return nil, &wmx.PipelineError{Stage: wmx.StageValidating, Err: err}
	}

	// Placing.
	placement, err := ins.placer.Place(plan)
	if err != nil {
		return nil, &wmx.PipelineError{Stage: wmx.StagePlacing, Err: err}
	}

	// Recording. A store failure rolls the placement back so record and
	// tree never disagree.
	if err := st.Upsert(placement.Record); err != nil {
		if rbErr := placement.Rollback(); rbErr != nil {
			logger.WithError(rbErr).Error("rollback after record failure also failed")
		}
		return nil, &wmx.PipelineError{Stage: wmx.StageRecording, Err: err}
	}
	placement.Commit()

	logger.WithField("revision", ref.Revision).Info("component installed")
	rec := placement.Record
	return &rec, nil
}

// ListInstalled returns the install records for a project in stable
// insertion order.
func (ins *Installer) ListInstalled(target wmx.ProjectTarget) ([]wmx.InstallRecord, error) {
	st, err := ins.storeFor(target)
	if err != nil {
		return nil, err
	}
	return st.List(), nil
}

// fetchWithRetry retries only transient network failures, up to
// maxFetchRetries times with exponential backoff. All other fetch errors
// are terminal.
func (ins *Installer) fetchWithRetry(ctx context.Context, ref *wmx.ComponentRef, logger *log.Entry) (*wmx.Snapshot, func(), error) {
	var (
		snap    *wmx.Snapshot
		cleanup func()
	)

	op := func() error {
		s, c, err := ins.fetcher.Fetch(ctx, ref)
		if err != nil {
			var fe *wmx.FetchError
			if errors.As(err, &fe) && fe.Kind == wmx.KindNetworkError {
				logger.WithError(err).Warn("transient fetch failure, retrying")
				return err
			}
			return backoff.Permanent(err)
		}
		snap, cleanup = s, c
		return nil
	}

	bo := backoff.NewExponentialBackOff()
	bo.InitialInterval = ins.fetchRetryBase
	policy := backoff.WithContext(backoff.WithMaxRetries(bo, ins.maxFetchRetries), ctx)

	if err := backoff.Retry(op, policy); err != nil {
		return nil, nil, err
	}
	return snap, cleanup, nil
}

// storeFor returns the metadata store for a project, opening it on first
// use. One Store instance per store file keeps the read-modify-write cycle
// serialized across concurrent installs.
func (ins *Installer) storeFor(target wmx.ProjectTarget) (*store.Store, error) {
	path := store.PathFor(target)

	ins.mu.Lock()
	defer ins.mu.Unlock()
	if st, ok := ins.stores[path]; ok {
		return st, nil
	}
	st, err := store.Open(path)
	if err != nil {
		return nil, err
	}
	ins.stores[path] = st
	return st, nil
}

// lockComponent serializes installs of the same component id into the same
// project. Returns the unlock function.
func (ins *Installer) lockComponent(target wmx.ProjectTarget, componentID string) func() {
	key := store.PathFor(target) + "\x00" + componentID

	ins.mu.Lock()
	l, ok := ins.locks[key]
	if !ok {
		l = &sync.Mutex{}
		ins.locks[key] = l
	}
	ins.mu.Unlock()

	l.Lock()
	return l.Unlock
}
