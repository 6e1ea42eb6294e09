package sqlite

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"

	"github.com/garnizeh/companies/internal/models"
	"github.com/garnizeh/companies/pkg/repository"
)

const companyColumns = `id, email, password_hash, name, description, phone, address, updated`

func (r *SQLiteRepo) CreateCompany(ctx context.Context, c *models.Company) error {
	if c == nil {
		return fmt.Errorf("company is nil")
	}

	_, err := r.conn.Exec(ctx, `INSERT INTO companies (email, password_hash, name, description, phone, address, updated) VALUES (?, ?, ?, ?, ?, ?, ?)`,
		c.Email, c.PasswordHash, c.Name, c.Description, c.Phone, c.Address, now())
	if err != nil {
		if isUniqueViolation(err) {
			return fmt.Errorf("company %s: %w", c.Email, repository.ErrAlreadyExists)
		}
		return err
	}

	return nil
}

// GetCompany returns nil, nil when no company has the email.
func (r *SQLiteRepo) GetCompany(ctx context.Context, email string) (*models.Company, error) {
	row := r.conn.QueryRow(ctx, `SELECT `+companyColumns+` FROM companies WHERE email = ?`, email)
	c, err := scanCompany(row)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, nil
		}

		return nil, err
	}

	return c, nil
}

func (r *SQLiteRepo) UpdateCompany(ctx context.Context, email string, u models.CompanyUpdate) error {
	if err := u.Validate(); err != nil {
		return err
	}

	var (
		sets []string
		args []any
	)
	add := func(col string, v *string) {
		if v != nil {
			sets = append(sets, col+" = ?")
			args = append(args, *v)
		}
	}
	add("name", u.Name)
	add("description", u.Description)
	add("phone", u.Phone)
	add("address", u.Address)
	sets = append(sets, "updated = ?")
	args = append(args, now(), email)

	res, err := r.conn.Exec(ctx, `UPDATE companies SET `+strings.Join(sets, ", ")+` WHERE email = ?`, args...)
	if err != nil {
		return err
	}
	n, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if n == 0 {
		return fmt.Errorf("company %s: %w", email, repository.ErrNotFound)
	}

	return nil
}

// SearchCompanies returns companies whose name starts with name (case-insensitive)
// in store order, then, while the page is not full, companies whose name contains
// it. offset and amount apply to each of the two scans on its own; the second scan
// skips companies already returned by the first.
func (r *SQLiteRepo) SearchCompanies(ctx context.Context, name string, offset, amount int) ([]models.Company, error) {
	out := []models.Company{}
	if amount <= 0 {
		return out, nil
	}
	if offset < 0 {
		offset = 0
	}
	q := strings.ToLower(name)

	prefix, err := r.listCompanies(ctx, `SELECT `+companyColumns+` FROM companies WHERE instr(lower(name), ?) = 1 ORDER BY id LIMIT ? OFFSET ?`, q, amount, offset)
	if err != nil {
		return nil, fmt.Errorf("prefix search: %w", err)
	}
	out = append(out, prefix...)
	if len(out) >= amount {
		return out, nil
	}

	contains, err := r.listCompanies(ctx, `SELECT `+companyColumns+` FROM companies WHERE instr(lower(name), ?) > 0 ORDER BY id LIMIT ? OFFSET ?`, q, amount, offset)
	if err != nil {
		return nil, fmt.Errorf("substring search: %w", err)
	}

	seen := make(map[string]struct{}, len(out))
	for _, c := range out {
		seen[c.Email] = struct{}{}
	}
	for _, c := range contains {
		if len(out) >= amount {
			break
		}
		if _, dup := seen[c.Email]; dup {
			continue
		}
		seen[c.Email] = struct{}{}
		out = append(out, c)
	}

	return out, nil
}

func (r *SQLiteRepo) listCompanies(ctx context.Context, query string, args ...any) ([]models.Company, error) {
	rows, err := r.conn.QueryRows(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []models.Company
	for rows.Next() {
		c, err := scanCompany(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, *c)
	}

	return out, rows.Err()
}

type scanner interface {
	Scan(dest ...any) error
}

func scanCompany(s scanner) (*models.Company, error) {
	var c models.Company
	if err := s.Scan(&c.ID, &c.Email, &c.PasswordHash, &c.Name, &c.Description, &c.Phone, &c.Address, &c.Updated); err != nil {
		return nil, err
	}
	return &c, nil
}

func isUniqueViolation(err error) bool {
	return err != nil && strings.Contains(err.Error(), "UNIQUE constraint failed")
}
