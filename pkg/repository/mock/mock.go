package mock

import (
	"context"
	"fmt"
	"strings"
	"sync"

	"github.com/garnizeh/companies/internal/models"
	"github.com/garnizeh/companies/pkg/repository"
)

// Test helpers and mocks
type Mocks struct {
	Companies       *CompanyRepo
	JobDescriptions *JobDescriptionRepo
	Ledger          *SyncLedger
	Remote          *Remote
}

func NewMocks() *Mocks {
	return &Mocks{
		Companies:       &CompanyRepo{},
		JobDescriptions: &JobDescriptionRepo{},
		Ledger:          &SyncLedger{},
		Remote:          &Remote{},
	}
}

var (
	_ repository.CompanyRepo        = (*CompanyRepo)(nil)
	_ repository.JobDescriptionRepo = (*JobDescriptionRepo)(nil)
	_ repository.SyncLedgerRepo     = (*SyncLedger)(nil)
)

// CompanyRepo keeps companies in insertion order.
type CompanyRepo struct {
	mu        sync.Mutex
	Stored    []models.Company
	CreateErr error
	GetErr    error
}

func (m *CompanyRepo) CreateCompany(ctx context.Context, c *models.Company) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	if m.CreateErr != nil {
		return m.CreateErr
	}
	for _, s := range m.Stored {
		if s.Email == c.Email {
			return fmt.Errorf("company %s: %w", c.Email, repository.ErrAlreadyExists)
		}
	}
	stored := *c
	stored.ID = int64(len(m.Stored) + 1)
	m.Stored = append(m.Stored, stored)
	return nil
}

func (m *CompanyRepo) GetCompany(ctx context.Context, email string) (*models.Company, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	if m.GetErr != nil {
		return nil, m.GetErr
	}
	for _, s := range m.Stored {
		if s.Email == email {
			c := s
			return &c, nil
		}
	}
	return nil, nil
}

func (m *CompanyRepo) UpdateCompany(ctx context.Context, email string, u models.CompanyUpdate) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	if err := u.Validate(); err != nil {
		return err
	}
	for i, s := range m.Stored {
		if s.Email == email {
			m.Stored[i] = u.Apply(s)
			return nil
		}
	}
	return fmt.Errorf("company %s: %w", email, repository.ErrNotFound)
}

func (m *CompanyRepo) SearchCompanies(ctx context.Context, name string, offset, amount int) ([]models.Company, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	out := []models.Company{}
	q := strings.ToLower(name)
	var prefix, contains []models.Company
	for _, s := range m.Stored {
		n := strings.ToLower(s.Name)
		if strings.HasPrefix(n, q) {
			prefix = append(prefix, s)
		}
		if strings.Contains(n, q) {
			contains = append(contains, s)
		}
	}
	seen := map[string]bool{}
	for _, tier := range [][]models.Company{page(prefix, offset, amount), page(contains, offset, amount)} {
		for _, c := range tier {
			if len(out) >= amount {
				return out, nil
			}
			if seen[c.Email] {
				continue
			}
			seen[c.Email] = true
			out = append(out, c)
		}
	}
	return out, nil
}

func page[T any](s []T, offset, amount int) []T {
	if offset >= len(s) || amount <= 0 {
		return nil
	}
	end := offset + amount
	if end > len(s) {
		end = len(s)
	}
	return s[offset:end]
}

// JobDescriptionRepo keeps postings in insertion order and hands out sequential ids.
type JobDescriptionRepo struct {
	mu         sync.Mutex
	Stored     []models.JobDescription
	next       int
	InsertErr  error
	ReplaceErr error
	DeleteErr  error
}

func (m *JobDescriptionRepo) InsertJobDescription(ctx context.Context, ownerEmail string, jd *models.JobDescription) (string, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	if m.InsertErr != nil {
		return "", m.InsertErr
	}
	m.next++
	jd.ID = fmt.Sprintf("jd-%d", m.next)
	jd.OwnerEmail = ownerEmail
	m.Stored = append(m.Stored, *jd)
	return jd.ID, nil
}

func (m *JobDescriptionRepo) GetJobDescription(ctx context.Context, id string) (*models.JobDescription, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	if i := m.index(id); i >= 0 {
		jd := m.Stored[i]
		return &jd, nil
	}
	return nil, fmt.Errorf("job description %s: %w", id, repository.ErrNotFound)
}

// GetJobDescriptionToMatch leaves Address empty; the mock has no company join.
func (m *JobDescriptionRepo) GetJobDescriptionToMatch(ctx context.Context, id string) (*models.MatchRecord, error) {
	jd, err := m.GetJobDescription(ctx, id)
	if err != nil {
		return nil, err
	}
	return &models.MatchRecord{JobDescription: *jd}, nil
}

func (m *JobDescriptionRepo) ListJobDescriptionsByOwner(ctx context.Context, ownerEmail string, offset, amount int) ([]models.JobDescription, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	var owned []models.JobDescription
	for i := len(m.Stored) - 1; i >= 0; i-- {
		if m.Stored[i].OwnerEmail == ownerEmail {
			owned = append(owned, m.Stored[i])
		}
	}
	out := []models.JobDescription{}
	return append(out, page(owned, offset, amount)...), nil
}

func (m *JobDescriptionRepo) ReplaceJobDescription(ctx context.Context, id, ownerEmail string, jd *models.JobDescription) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	if m.ReplaceErr != nil {
		return m.ReplaceErr
	}
	i := m.index(id)
	if i < 0 || m.Stored[i].OwnerEmail != ownerEmail {
		return fmt.Errorf("job description %s: %w", id, repository.ErrNotFound)
	}
	if m.Stored[i].Equal(jd) {
		return fmt.Errorf("job description %s: %w", id, repository.ErrUnchanged)
	}
	repl := *jd
	repl.ID = id
	repl.OwnerEmail = ownerEmail
	repl.Created = m.Stored[i].Created
	m.Stored[i] = repl
	return nil
}

func (m *JobDescriptionRepo) DeleteJobDescription(ctx context.Context, id, ownerEmail string) (int64, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	if m.DeleteErr != nil {
		return 0, m.DeleteErr
	}
	i := m.index(id)
	if i < 0 || m.Stored[i].OwnerEmail != ownerEmail {
		return 0, nil
	}
	m.Stored = append(m.Stored[:i], m.Stored[i+1:]...)
	return 1, nil
}

func (m *JobDescriptionRepo) index(id string) int {
	for i := range m.Stored {
		if m.Stored[i].ID == id {
			return i
		}
	}
	return -1
}

// SyncLedger is an in-memory sync ledger.
type SyncLedger struct {
	mu        sync.Mutex
	Entries   map[string]models.PendingSync
	RecordErr error
}

func (m *SyncLedger) RecordPending(ctx context.Context, id string, op models.SyncOp, lastErr string) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	if m.RecordErr != nil {
		return m.RecordErr
	}
	if m.Entries == nil {
		m.Entries = map[string]models.PendingSync{}
	}
	m.Entries[id] = models.PendingSync{JobDescriptionID: id, Op: op, LastError: lastErr}
	return nil
}

func (m *SyncLedger) ClearPending(ctx context.Context, id string) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	delete(m.Entries, id)
	return nil
}

func (m *SyncLedger) ListUnqueued(ctx context.Context, limit int) ([]models.PendingSync, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	var out []models.PendingSync
	for _, p := range m.Entries {
		if !p.Queued && (limit <= 0 || len(out) < limit) {
			out = append(out, p)
		}
	}
	return out, nil
}

func (m *SyncLedger) MarkQueued(ctx context.Context, id string) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	if p, ok := m.Entries[id]; ok {
		p.Queued = true
		m.Entries[id] = p
	}
	return nil
}

func (m *SyncLedger) ReleaseQueued(ctx context.Context, id string) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	if p, ok := m.Entries[id]; ok {
		p.Queued = false
		m.Entries[id] = p
	}
	return nil
}

func (m *SyncLedger) CountPending(ctx context.Context) (int, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	return len(m.Entries), nil
}

// Get returns the ledger entry for id, if any.
func (m *SyncLedger) Get(id string) (models.PendingSync, bool) {
	m.mu.Lock()
	defer m.mu.Unlock()

	p, ok := m.Entries[id]
	return p, ok
}

// Remote stands in for the matching service client. Index holds what the
// service would currently store.
type Remote struct {
	mu        sync.Mutex
	Index     map[string]models.JobDescription
	Pushes    int
	Removes   int
	PushErr   error
	RemoveErr error
}

func (m *Remote) Push(ctx context.Context, id string, jd *models.JobDescription) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	m.Pushes++
	if m.PushErr != nil {
		return m.PushErr
	}
	if m.Index == nil {
		m.Index = map[string]models.JobDescription{}
	}
	m.Index[id] = *jd
	return nil
}

func (m *Remote) Remove(ctx context.Context, id string) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	m.Removes++
	if m.RemoveErr != nil {
		return m.RemoveErr
	}
	delete(m.Index, id)
	return nil
}

// Has reports whether the remote index holds id.
func (m *Remote) Has(id string) (models.JobDescription, bool) {
	m.mu.Lock()
	defer m.mu.Unlock()

	jd, ok := m.Index[id]
	return jd, ok
}

// Counts returns how many pushes and removes were attempted.
func (m *Remote) Counts() (pushes, removes int) {
	m.mu.Lock()
	defer m.mu.Unlock()

	return m.Pushes, m.Removes
}

// Fail makes subsequent pushes and removes return err. Pass nil to recover.
func (m *Remote) Fail(err error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	m.PushErr = err
	m.RemoveErr = err
}
