package sqlite

import (
	"context"

	"github.com/garnizeh/companies/internal/models"
)

// RecordPending notes that the matching service still owes op for id. A newer
// entry for the same id replaces the older one and is picked up again by the
// next sweep.
func (r *SQLiteRepo) RecordPending(ctx context.Context, id string, op models.SyncOp, lastErr string) error {
	_, err := r.conn.Exec(ctx, `INSERT INTO sync_ledger (jd_id, op, last_error, queued, updated) VALUES (?, ?, ?, 0, ?) ON CONFLICT(jd_id) DO UPDATE SET op = excluded.op, last_error = excluded.last_error, queued = 0, updated = excluded.updated`,
		id, string(op), lastErr, now())
	return err
}

func (r *SQLiteRepo) ClearPending(ctx context.Context, id string) error {
	_, err := r.conn.Exec(ctx, `DELETE FROM sync_ledger WHERE jd_id = ?`, id)
	return err
}

func (r *SQLiteRepo) ListUnqueued(ctx context.Context, limit int) ([]models.PendingSync, error) {
	if limit <= 0 {
		limit = 100
	}

	rows, err := r.conn.QueryRows(ctx, `SELECT jd_id, op, COALESCE(last_error, ''), queued, updated FROM sync_ledger WHERE queued = 0 ORDER BY updated LIMIT ?`, limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []models.PendingSync
	for rows.Next() {
		var (
			p  models.PendingSync
			op string
		)
		if err := rows.Scan(&p.JobDescriptionID, &op, &p.LastError, &p.Queued, &p.Updated); err != nil {
			return nil, err
		}
		p.Op = models.SyncOp(op)
		out = append(out, p)
	}

	return out, rows.Err()
}

func (r *SQLiteRepo) MarkQueued(ctx context.Context, id string) error {
	_, err := r.conn.Exec(ctx, `UPDATE sync_ledger SET queued = 1, updated = ? WHERE jd_id = ?`, now(), id)
	return err
}

func (r *SQLiteRepo) ReleaseQueued(ctx context.Context, id string) error {
	_, err := r.conn.Exec(ctx, `UPDATE sync_ledger SET queued = 0, updated = ? WHERE jd_id = ?`, now(), id)
	return err
}

// CountPending reports how many job descriptions currently trail the matching service.
func (r *SQLiteRepo) CountPending(ctx context.Context) (int, error) {
	var n int
	err := r.conn.QueryRow(ctx, `SELECT COUNT(*) FROM sync_ledger`).Scan(&n)
	return n, err
}
