package repository

import (
	"context"
	"errors"

	"github.com/garnizeh/companies/internal/models"
)

// Repository interfaces for domain entities. These are the public contracts
// consumers should depend on; concrete implementations live under internal/.

var (
	ErrNotFound      = errors.New("not found")
	ErrAlreadyExists = errors.New("already exists")
	// ErrUnchanged is returned by a replace whose new content equals the stored one.
	ErrUnchanged = errors.New("unchanged")
)

type CompanyRepo interface {
	CreateCompany(ctx context.Context, c *models.Company) error
	GetCompany(ctx context.Context, email string) (*models.Company, error)
	UpdateCompany(ctx context.Context, email string, u models.CompanyUpdate) error
	SearchCompanies(ctx context.Context, name string, offset, amount int) ([]models.Company, error)
}

type JobDescriptionRepo interface {
	InsertJobDescription(ctx context.Context, ownerEmail string, jd *models.JobDescription) (string, error)
	GetJobDescription(ctx context.Context, id string) (*models.JobDescription, error)
	GetJobDescriptionToMatch(ctx context.Context, id string) (*models.MatchRecord, error)
	ListJobDescriptionsByOwner(ctx context.Context, ownerEmail string, offset, amount int) ([]models.JobDescription, error)
	ReplaceJobDescription(ctx context.Context, id, ownerEmail string, jd *models.JobDescription) error
	DeleteJobDescription(ctx context.Context, id, ownerEmail string) (int64, error)
}

// SyncLedgerRepo tracks job descriptions whose remote copy trails the local store.
type SyncLedgerRepo interface {
	RecordPending(ctx context.Context, id string, op models.SyncOp, lastErr string) error
	ClearPending(ctx context.Context, id string) error
	ListUnqueued(ctx context.Context, limit int) ([]models.PendingSync, error)
	MarkQueued(ctx context.Context, id string) error
	// ReleaseQueued makes an entry eligible for the next sweep again.
	ReleaseQueued(ctx context.Context, id string) error
	CountPending(ctx context.Context) (int, error)
}

// JobQueue persists background jobs for the worker pool.
type JobQueue interface {
	Enqueue(ctx context.Context, j *models.BackgroundJob) (int64, error)
	FetchNext(ctx context.Context) (*models.BackgroundJob, error)
	UpdateJob(ctx context.Context, j *models.BackgroundJob) error
	MoveToDeadLetter(ctx context.Context, j *models.BackgroundJob) error
	// RequeueRunning puts jobs left running by a previous process back in the
	// queue and reports how many there were.
	RequeueRunning(ctx context.Context) (int64, error)
}
