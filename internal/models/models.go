package models

import (
	"encoding/json"
	"fmt"
	"strings"
	"time"
)

type Company struct {
	ID           int64  `json:"-" db:"id"`
	Email        string `json:"email" db:"email"`
	PasswordHash string `json:"-" db:"password_hash"`
	Name         string `json:"name" db:"name"`
	Description  string `json:"description" db:"description"`
	Phone        string `json:"phone" db:"phone"`
	Address      string `json:"address" db:"address"`
	Updated      int64  `json:"updated" db:"updated"`
}

// AgeRange is an inclusive bound, Min <= Max.
type AgeRange struct {
	Min int `json:"min"`
	Max int `json:"max"`
}

type JobDescription struct {
	ID                string   `json:"id" db:"id"`
	OwnerEmail        string   `json:"-" db:"owner_email"`
	Title             string   `json:"title" db:"title"`
	Description       string   `json:"description" db:"description"`
	Responsibilities  []string `json:"responsibilities" db:"responsibilities"`
	Requirements      []string `json:"requirements" db:"requirements"`
	WorkModel         string   `json:"work_model" db:"work_model"`
	AgeRange          AgeRange `json:"age_range" db:"age_range"`
	YearsOfExperience int      `json:"years_of_experience" db:"years_of_experience"`
	Created           int64    `json:"created,omitempty" db:"created"`
}

// Validate checks the invariants a job description must hold before it is stored.
func (jd *JobDescription) Validate() error {
	if strings.TrimSpace(jd.Title) == "" {
		return fmt.Errorf("title is required")
	}
	if jd.AgeRange.Min < 0 || jd.AgeRange.Min > jd.AgeRange.Max {
		return fmt.Errorf("age_range must satisfy 0 <= min <= max")
	}
	if jd.YearsOfExperience < 0 {
		return fmt.Errorf("years_of_experience must be non-negative")
	}
	return nil
}

// Equal reports whether both records carry the same posting content. ID, owner
// and creation time are ignored.
func (jd *JobDescription) Equal(o *JobDescription) bool {
	if jd == nil || o == nil {
		return jd == o
	}
	return jd.Title == o.Title &&
		jd.Description == o.Description &&
		equalStrings(jd.Responsibilities, o.Responsibilities) &&
		equalStrings(jd.Requirements, o.Requirements) &&
		jd.WorkModel == o.WorkModel &&
		jd.AgeRange == o.AgeRange &&
		jd.YearsOfExperience == o.YearsOfExperience
}

func equalStrings(a, b []string) bool {
	if len(a) != len(b) {
		return false
	}
	for i := range a {
		if a[i] != b[i] {
			return false
		}
	}
	return true
}

// MatchRecord is the view served to the matching service: the posting plus the
// owner's address.
type MatchRecord struct {
	JobDescription
	Address string `json:"address"`
}

// NotifyRecord is the minimal projection used to notify the owner about a posting.
type NotifyRecord struct {
	Title string `json:"title"`
	Email string `json:"email"`
}

// ProfileField names a company field that can be patched on its own.
type ProfileField string

const (
	FieldDescription ProfileField = "description"
	FieldPhone       ProfileField = "phone"
	FieldAddress     ProfileField = "address"
)

// ParseProfileField maps a path segment to a patchable field.
func ParseProfileField(s string) (ProfileField, bool) {
	switch f := ProfileField(strings.ToLower(strings.TrimSpace(s))); f {
	case FieldDescription, FieldPhone, FieldAddress:
		return f, true
	default:
		return "", false
	}
}

// CompanyUpdate is a set of company fields to overwrite. Nil fields are left as is.
// Build it with ProfileUpdate or FieldUpdate.
type CompanyUpdate struct {
	Name        *string
	Description *string
	Phone       *string
	Address     *string
}

// ProfileUpdate replaces every profile field at once.
func ProfileUpdate(name, description, phone, address string) CompanyUpdate {
	return CompanyUpdate{Name: &name, Description: &description, Phone: &phone, Address: &address}
}

// FieldUpdate overwrites a single patchable field.
func FieldUpdate(field ProfileField, value string) CompanyUpdate {
	var u CompanyUpdate
	switch field {
	case FieldDescription:
		u.Description = &value
	case FieldPhone:
		u.Phone = &value
	case FieldAddress:
		u.Address = &value
	}
	return u
}

func (u CompanyUpdate) Empty() bool {
	return u.Name == nil && u.Description == nil && u.Phone == nil && u.Address == nil
}

func (u CompanyUpdate) Validate() error {
	if u.Empty() {
		return fmt.Errorf("no fields to update")
	}
	if u.Name != nil && strings.TrimSpace(*u.Name) == "" {
		return fmt.Errorf("name must not be empty")
	}
	return nil
}

// Apply returns a copy of c with the update applied.
func (u CompanyUpdate) Apply(c Company) Company {
	if u.Name != nil {
		c.Name = *u.Name
	}
	if u.Description != nil {
		c.Description = *u.Description
	}
	if u.Phone != nil {
		c.Phone = *u.Phone
	}
	if u.Address != nil {
		c.Address = *u.Address
	}
	return c
}

// SyncState reports how far a mutation got across the local store and the
// matching service.
type SyncState string

const (
	// SyncApplied means both the local store and the matching service were updated.
	SyncApplied SyncState = "applied"
	// SyncLocalOnly means the local store was updated but the matching service was not.
	SyncLocalOnly SyncState = "local_only"
	// SyncFailed means nothing was applied.
	SyncFailed SyncState = "failed"
)

// SyncOp is the remote operation still owed to the matching service.
type SyncOp string

const (
	SyncOpPush   SyncOp = "push"
	SyncOpRemove SyncOp = "remove"
)

// PendingSync is a ledger entry for a job description whose remote copy trails
// the local store.
type PendingSync struct {
	JobDescriptionID string `json:"job_description_id" db:"jd_id"`
	Op               SyncOp `json:"op" db:"op"`
	LastError        string `json:"last_error,omitempty" db:"last_error"`
	Queued           bool   `json:"queued" db:"queued"`
	Updated          int64  `json:"updated" db:"updated"`
}

type BackgroundJob struct {
	ID          int64           `json:"id"`
	Type        string          `json:"type"`
	Payload     json.RawMessage `json:"payload"`
	Status      string          `json:"status"`
	Attempts    int             `json:"attempts"`
	MaxAttempts int             `json:"max_attempts"`
	Priority    int             `json:"priority"`
	ScheduledAt time.Time       `json:"scheduled_at"`
	NextTryAt   *time.Time      `json:"next_try_at,omitempty"`
	LastError   string          `json:"last_error,omitempty"`
	Created     time.Time       `json:"created"`
	Updated     time.Time       `json:"updated"`
}
