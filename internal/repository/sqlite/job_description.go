package sqlite

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/google/uuid"

	"github.com/garnizeh/companies/internal/models"
	"github.com/garnizeh/companies/pkg/repository"
)

const jdColumns = `jd.id, jd.owner_email, jd.title, jd.description, jd.responsibilities, jd.requirements, jd.work_model, jd.age_min, jd.age_max, jd.years_of_experience, jd.created`

// InsertJobDescription stores jd under a freshly generated id and returns it.
// jd.ID, jd.OwnerEmail and jd.Created are set on success.
func (r *SQLiteRepo) InsertJobDescription(ctx context.Context, ownerEmail string, jd *models.JobDescription) (string, error) {
	if jd == nil {
		return "", fmt.Errorf("job description is nil")
	}

	resp, req, err := encodeLists(jd)
	if err != nil {
		return "", err
	}

	id := uuid.NewString()
	ts := now()
	_, err = r.conn.Exec(ctx, `INSERT INTO job_descriptions (id, owner_email, title, description, responsibilities, requirements, work_model, age_min, age_max, years_of_experience, created, updated) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		id, ownerEmail, jd.Title, jd.Description, resp, req, jd.WorkModel, jd.AgeRange.Min, jd.AgeRange.Max, jd.YearsOfExperience, ts, ts)
	if err != nil {
		return "", fmt.Errorf("insert job description: %w", err)
	}

	jd.ID = id
	jd.OwnerEmail = ownerEmail
	jd.Created = ts
	return id, nil
}

func (r *SQLiteRepo) GetJobDescription(ctx context.Context, id string) (*models.JobDescription, error) {
	row := r.conn.QueryRow(ctx, `SELECT `+jdColumns+` FROM job_descriptions jd WHERE jd.id = ?`, id)
	jd, err := scanJobDescription(row)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, fmt.Errorf("job description %s: %w", id, repository.ErrNotFound)
		}
		return nil, err
	}

	return jd, nil
}

// GetJobDescriptionToMatch joins the owner's address into the record. A missing
// job description or a missing owner both yield ErrNotFound.
func (r *SQLiteRepo) GetJobDescriptionToMatch(ctx context.Context, id string) (*models.MatchRecord, error) {
	row := r.conn.QueryRow(ctx, `SELECT `+jdColumns+`, c.address FROM job_descriptions jd JOIN companies c ON c.email = jd.owner_email WHERE jd.id = ?`, id)

	var (
		m    models.MatchRecord
		resp string
		req  string
		jd   = &m.JobDescription
	)
	err := row.Scan(&jd.ID, &jd.OwnerEmail, &jd.Title, &jd.Description, &resp, &req, &jd.WorkModel, &jd.AgeRange.Min, &jd.AgeRange.Max, &jd.YearsOfExperience, &jd.Created, &m.Address)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, fmt.Errorf("job description %s: %w", id, repository.ErrNotFound)
		}
		return nil, err
	}
	if err := decodeLists(jd, resp, req); err != nil {
		return nil, err
	}

	return &m, nil
}

// ListJobDescriptionsByOwner pages through an owner's postings, most recent first.
func (r *SQLiteRepo) ListJobDescriptionsByOwner(ctx context.Context, ownerEmail string, offset, amount int) ([]models.JobDescription, error) {
	out := []models.JobDescription{}
	if amount <= 0 {
		return out, nil
	}
	if offset < 0 {
		offset = 0
	}

	rows, err := r.conn.QueryRows(ctx, `SELECT `+jdColumns+` FROM job_descriptions jd WHERE jd.owner_email = ? ORDER BY jd.seq DESC LIMIT ? OFFSET ?`, ownerEmail, amount, offset)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	for rows.Next() {
		jd, err := scanJobDescription(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, *jd)
	}

	return out, rows.Err()
}

// ReplaceJobDescription overwrites every content field of the posting owned by
// ownerEmail. It returns ErrNotFound when no such posting exists for that owner
// and ErrUnchanged when the stored content already equals jd.
func (r *SQLiteRepo) ReplaceJobDescription(ctx context.Context, id, ownerEmail string, jd *models.JobDescription) error {
	if jd == nil {
		return fmt.Errorf("job description is nil")
	}

	resp, req, err := encodeLists(jd)
	if err != nil {
		return err
	}

	tx, err := r.conn.BeginTx(ctx)
	if err != nil {
		return err
	}
	defer tx.Rollback()

	row := tx.QueryRowContext(ctx, `SELECT `+jdColumns+` FROM job_descriptions jd WHERE jd.id = ? AND jd.owner_email = ?`, id, ownerEmail)
	current, err := scanJobDescription(row)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return fmt.Errorf("job description %s: %w", id, repository.ErrNotFound)
		}
		return err
	}
	if current.Equal(jd) {
		return fmt.Errorf("job description %s: %w", id, repository.ErrUnchanged)
	}

	_, err = tx.ExecContext(ctx, `UPDATE job_descriptions SET title = ?, description = ?, responsibilities = ?, requirements = ?, work_model = ?, age_min = ?, age_max = ?, years_of_experience = ?, updated = ? WHERE id = ?`,
		jd.Title, jd.Description, resp, req, jd.WorkModel, jd.AgeRange.Min, jd.AgeRange.Max, jd.YearsOfExperience, now(), id)
	if err != nil {
		return fmt.Errorf("update job description: %w", err)
	}

	return tx.Commit()
}

// DeleteJobDescription removes the posting owned by ownerEmail and returns the
// number of rows deleted.
func (r *SQLiteRepo) DeleteJobDescription(ctx context.Context, id, ownerEmail string) (int64, error) {
	res, err := r.conn.Exec(ctx, `DELETE FROM job_descriptions WHERE id = ? AND owner_email = ?`, id, ownerEmail)
	if err != nil {
		return 0, err
	}

	return res.RowsAffected()
}

func scanJobDescription(s scanner) (*models.JobDescription, error) {
	var (
		jd   models.JobDescription
		resp string
		req  string
	)
	if err := s.Scan(&jd.ID, &jd.OwnerEmail, &jd.Title, &jd.Description, &resp, &req, &jd.WorkModel, &jd.AgeRange.Min, &jd.AgeRange.Max, &jd.YearsOfExperience, &jd.Created); err != nil {
		return nil, err
	}
	if err := decodeLists(&jd, resp, req); err != nil {
		return nil, err
	}
	return &jd, nil
}

func encodeLists(jd *models.JobDescription) (string, string, error) {
	resp, err := json.Marshal(nonNil(jd.Responsibilities))
	if err != nil {
		return "", "", fmt.Errorf("encode responsibilities: %w", err)
	}
	req, err := json.Marshal(nonNil(jd.Requirements))
	if err != nil {
		return "", "", fmt.Errorf("encode requirements: %w", err)
	}
	return string(resp), string(req), nil
}

func decodeLists(jd *models.JobDescription, resp, req string) error {
	if err := json.Unmarshal([]byte(resp), &jd.Responsibilities); err != nil {
		return fmt.Errorf("decode responsibilities: %w", err)
	}
	if err := json.Unmarshal([]byte(req), &jd.Requirements); err != nil {
		return fmt.Errorf("decode requirements: %w", err)
	}
	return nil
}

func nonNil(s []string) []string {
	if s == nil {
		return []string{}
	}
	return s
}
