// Package jobdesc keeps job descriptions consistent between the local store and
// the remote matching service.
//
// Every mutation writes the local store first and then calls the matching
// service. A failed remote call is reported to the caller but the local change
// stays; the divergence is recorded in the sync ledger so a reconciler can
// replay it later.
package jobdesc

import (
	"context"
	"errors"
	"fmt"

	"github.com/garnizeh/companies/internal/apperr"
	"github.com/garnizeh/companies/internal/models"
	"github.com/garnizeh/companies/pkg/logging"
	"github.com/garnizeh/companies/pkg/repository"
)

// Remote is the matching service as seen by the Synchronizer.
type Remote interface {
	Push(ctx context.Context, id string, jd *models.JobDescription) error
	Remove(ctx context.Context, id string) error
}

// Result is the outcome of a mutation. ID is set once the local store assigned
// or located the record.
type Result struct {
	ID    string           `json:"id,omitempty"`
	State models.SyncState `json:"sync_state"`
}

type Synchronizer struct {
	companies repository.CompanyRepo
	store     repository.JobDescriptionRepo
	ledger    repository.SyncLedgerRepo
	remote    Remote
	logger    *logging.Logger
}

// New wires a Synchronizer. ledger may be nil, in which case divergences are
// only logged.
func New(companies repository.CompanyRepo, store repository.JobDescriptionRepo, ledger repository.SyncLedgerRepo, remote Remote, logger *logging.Logger) *Synchronizer {
	if logger == nil {
		logger = logging.NewNop()
	}
	return &Synchronizer{companies: companies, store: store, ledger: ledger, remote: remote, logger: logger}
}

// Create stores jd for ownerEmail and pushes it to the matching service.
func (s *Synchronizer) Create(ctx context.Context, ownerEmail string, jd *models.JobDescription) (Result, error) {
	failed := Result{State: models.SyncFailed}

	if err := validate(jd); err != nil {
		return failed, err
	}
	if err := s.requireOwner(ctx, ownerEmail); err != nil {
		return failed, err
	}

	id, err := s.store.InsertJobDescription(ctx, ownerEmail, jd)
	if err != nil {
		return failed, apperr.New(apperr.Internal, "store job description", err)
	}

	if err := s.remote.Push(detach(ctx), id, jd); err != nil {
		return s.diverged(ctx, id, models.SyncOpPush, err)
	}

	return Result{ID: id, State: models.SyncApplied}, nil
}

// Update replaces the posting id owned by ownerEmail and re-pushes the full
// record. An update that changes nothing still pushes, which also repairs an
// earlier failed push.
func (s *Synchronizer) Update(ctx context.Context, id, ownerEmail string, jd *models.JobDescription) (Result, error) {
	failed := Result{ID: id, State: models.SyncFailed}

	if err := validate(jd); err != nil {
		return failed, err
	}
	if err := s.requireOwner(ctx, ownerEmail); err != nil {
		return failed, err
	}

	err := s.store.ReplaceJobDescription(ctx, id, ownerEmail, jd)
	switch {
	case err == nil, errors.Is(err, repository.ErrUnchanged):
	case errors.Is(err, repository.ErrNotFound):
		return failed, apperr.New(apperr.NotFound, "job description not found", err)
	default:
		return failed, apperr.New(apperr.Internal, "replace job description", err)
	}

	if err := s.remote.Push(detach(ctx), id, jd); err != nil {
		return s.diverged(ctx, id, models.SyncOpPush, err)
	}

	s.settled(ctx, id)
	return Result{ID: id, State: models.SyncApplied}, nil
}

// Delete removes the posting id owned by ownerEmail locally, then remotely. The
// remote call is skipped when nothing was deleted.
func (s *Synchronizer) Delete(ctx context.Context, id, ownerEmail string) (Result, error) {
	failed := Result{ID: id, State: models.SyncFailed}

	if err := s.requireOwner(ctx, ownerEmail); err != nil {
		return failed, err
	}

	n, err := s.store.DeleteJobDescription(ctx, id, ownerEmail)
	if err != nil {
		return failed, apperr.New(apperr.Internal, "delete job description", err)
	}
	if n == 0 {
		return failed, apperr.New(apperr.NotFound, "job description not found", nil)
	}

	if err := s.remote.Remove(detach(ctx), id); err != nil {
		return s.diverged(ctx, id, models.SyncOpRemove, err)
	}

	s.settled(ctx, id)
	return Result{ID: id, State: models.SyncApplied}, nil
}

// Get returns a posting by id. Any registered company may read it; a caller
// whose company no longer exists gets NotFound.
func (s *Synchronizer) Get(ctx context.Context, callerEmail, id string) (*models.JobDescription, error) {
	if err := s.requireOwner(ctx, callerEmail); err != nil {
		return nil, err
	}

	jd, err := s.store.GetJobDescription(ctx, id)
	if err != nil {
		return nil, notFoundOr(err, "job description not found", "read job description")
	}
	return jd, nil
}

// List pages through the postings of ownerEmail, most recent first.
func (s *Synchronizer) List(ctx context.Context, ownerEmail string, offset, amount int) ([]models.JobDescription, error) {
	out, err := s.store.ListJobDescriptionsByOwner(ctx, ownerEmail, offset, amount)
	if err != nil {
		return nil, apperr.New(apperr.Internal, "list job descriptions", err)
	}
	return out, nil
}

// ReadForMatch returns the posting joined with its owner's address. It is meant
// for the matching service and does not check ownership.
func (s *Synchronizer) ReadForMatch(ctx context.Context, id string) (*models.MatchRecord, error) {
	m, err := s.store.GetJobDescriptionToMatch(ctx, id)
	if err != nil {
		return nil, notFoundOr(err, "job description or owner not found", "read job description to match")
	}
	return m, nil
}

// ReadForNotify returns the title and the owner's email for id.
func (s *Synchronizer) ReadForNotify(ctx context.Context, id string) (*models.NotifyRecord, error) {
	jd, err := s.store.GetJobDescription(ctx, id)
	if err != nil {
		return nil, notFoundOr(err, "job description not found", "read job description to notify")
	}
	return &models.NotifyRecord{Title: jd.Title, Email: jd.OwnerEmail}, nil
}

// Replay re-sends a remote operation that previously failed. A push re-reads
// the current record; if it is gone there is nothing to push and the ledger is
// left to whatever the delete recorded. Success clears the ledger entry.
func (s *Synchronizer) Replay(ctx context.Context, id string, op models.SyncOp) error {
	switch op {
	case models.SyncOpPush:
		jd, err := s.store.GetJobDescription(ctx, id)
		if errors.Is(err, repository.ErrNotFound) {
			s.logger.Info("replay: job description gone, nothing to push", "id", id)
			return nil
		}
		if err != nil {
			return apperr.New(apperr.Internal, "read job description", err)
		}
		if err := s.remote.Push(ctx, id, jd); err != nil {
			return apperr.New(apperr.RemoteSyncFailure, "push job description", err)
		}
	case models.SyncOpRemove:
		if err := s.remote.Remove(ctx, id); err != nil {
			return apperr.New(apperr.RemoteSyncFailure, "remove job description", err)
		}
	default:
		return apperr.New(apperr.Validation, fmt.Sprintf("unknown sync op %q", op), nil)
	}

	s.settled(ctx, id)
	return nil
}

// detach keeps the remote step alive when the caller goes away once the local
// write is done. The client's own timeout still bounds it.
func detach(ctx context.Context) context.Context {
	return context.WithoutCancel(ctx)
}

func (s *Synchronizer) requireOwner(ctx context.Context, email string) error {
	c, err := s.companies.GetCompany(ctx, email)
	if err != nil {
		return apperr.New(apperr.Internal, "read company", err)
	}
	if c == nil {
		return apperr.New(apperr.NotFound, "company not found", nil)
	}
	return nil
}

// diverged reports a local change the matching service did not take and notes
// it in the ledger.
func (s *Synchronizer) diverged(ctx context.Context, id string, op models.SyncOp, cause error) (Result, error) {
	s.logger.Warn("matching sync failed, local change kept", "id", id, "op", string(op), "err", cause)

	if s.ledger != nil {
		if err := s.ledger.RecordPending(detach(ctx), id, op, cause.Error()); err != nil {
			s.logger.Error("record pending sync", "id", id, "op", string(op), "err", err)
		}
	}

	return Result{ID: id, State: models.SyncLocalOnly}, apperr.New(apperr.RemoteSyncFailure, fmt.Sprintf("matching %s failed", op), cause)
}

func (s *Synchronizer) settled(ctx context.Context, id string) {
	if s.ledger == nil {
		return
	}
	if err := s.ledger.ClearPending(detach(ctx), id); err != nil {
		s.logger.Error("clear pending sync", "id", id, "err", err)
	}
}

func validate(jd *models.JobDescription) error {
	if jd == nil {
		return apperr.New(apperr.Validation, "job description is required", nil)
	}
	if err := jd.Validate(); err != nil {
		return apperr.New(apperr.Validation, err.Error(), nil)
	}
	return nil
}

func notFoundOr(err error, notFound, internal string) error {
	if errors.Is(err, repository.ErrNotFound) {
		return apperr.New(apperr.NotFound, notFound, err)
	}
	return apperr.New(apperr.Internal, internal, err)
}
