package sqlite

import (
	"time"

	"github.com/garnizeh/companies/internal/db"
	"github.com/garnizeh/companies/pkg/logging"
	"github.com/garnizeh/companies/pkg/repository"
)

// SQLiteRepo implements repository interfaces using the internal DB wrapper.
type SQLiteRepo struct {
	conn   *db.DB
	logger *logging.Logger
}

// Ensure SQLiteRepo implements the public interfaces.
var _ repository.CompanyRepo = (*SQLiteRepo)(nil)
var _ repository.JobDescriptionRepo = (*SQLiteRepo)(nil)
var _ repository.SyncLedgerRepo = (*SQLiteRepo)(nil)
var _ repository.JobQueue = (*SQLiteRepo)(nil)

func New(conn *db.DB, logger *logging.Logger) *SQLiteRepo {
	if logger == nil {
		logger = logging.NewNop()
	}
	return &SQLiteRepo{conn: conn, logger: logger}
}

func now() int64 {
	return time.Now().UTC().UnixMilli()
}
