package sqlite_test

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"testing"
	"time"

	dbfs "github.com/garnizeh/companies/db"
	dbpkg "github.com/garnizeh/companies/internal/db"
	"github.com/garnizeh/companies/internal/models"
	sqlite "github.com/garnizeh/companies/internal/repository/sqlite"
	"github.com/garnizeh/companies/pkg/repository"
)

func setupRepo(t *testing.T) *sqlite.SQLiteRepo {
	t.Helper()
	ctx := context.Background()

	d, err := dbpkg.New(ctx, ":memory:", nil)
	if err != nil {
		t.Fatalf("failed to open db: %v", err)
	}
	t.Cleanup(func() { d.Close() })

	if err := dbpkg.Migrate(ctx, d, dbfs.Migrations, nil); err != nil {
		t.Fatalf("failed to migrate: %v", err)
	}

	return sqlite.New(d, nil)
}

func mustCreateCompany(t *testing.T, repo *sqlite.SQLiteRepo, email, name string) {
	t.Helper()
	c := &models.Company{Email: email, PasswordHash: "hash", Name: name, Address: name + " street"}
	if err := repo.CreateCompany(context.Background(), c); err != nil {
		t.Fatalf("CreateCompany(%s): %v", email, err)
	}
}

func sampleJD(title string) *models.JobDescription {
	return &models.JobDescription{
		Title:             title,
		Description:       "build things",
		Responsibilities:  []string{"code", "review"},
		Requirements:      []string{"go"},
		WorkModel:         "remote",
		AgeRange:          models.AgeRange{Min: 18, Max: 60},
		YearsOfExperience: 3,
	}
}

func TestCompanyCRUD(t *testing.T) {
	repo := setupRepo(t)
	ctx := context.Background()

	if err := repo.CreateCompany(ctx, nil); err == nil {
		t.Fatalf("expected error when creating nil company")
	}

	got, err := repo.GetCompany(ctx, "nobody@example.com")
	if err != nil || got != nil {
		t.Fatalf("expected nil, nil for missing company, got %#v, %v", got, err)
	}

	mustCreateCompany(t, repo, "acme@example.com", "Acme")

	got, err = repo.GetCompany(ctx, "acme@example.com")
	if err != nil {
		t.Fatalf("GetCompany: %v", err)
	}
	if got == nil || got.Name != "Acme" || got.PasswordHash != "hash" || got.Updated == 0 {
		t.Fatalf("unexpected company: %#v", got)
	}

	if err := repo.UpdateCompany(ctx, "acme@example.com", models.ProfileUpdate("Acme Corp", "anvils", "555", "Desert Rd")); err != nil {
		t.Fatalf("UpdateCompany: %v", err)
	}
	got, _ = repo.GetCompany(ctx, "acme@example.com")
	if got.Name != "Acme Corp" || got.Description != "anvils" || got.Phone != "555" || got.Address != "Desert Rd" {
		t.Fatalf("profile update not applied: %#v", got)
	}

	if err := repo.UpdateCompany(ctx, "acme@example.com", models.FieldUpdate(models.FieldPhone, "777")); err != nil {
		t.Fatalf("UpdateCompany field: %v", err)
	}
	got, _ = repo.GetCompany(ctx, "acme@example.com")
	if got.Phone != "777" || got.Address != "Desert Rd" || got.Name != "Acme Corp" {
		t.Fatalf("field update touched other fields: %#v", got)
	}

	err = repo.UpdateCompany(ctx, "ghost@example.com", models.FieldUpdate(models.FieldPhone, "1"))
	if !errors.Is(err, repository.ErrNotFound) {
		t.Fatalf("expected ErrNotFound for missing company, got %v", err)
	}
	if err := repo.UpdateCompany(ctx, "acme@example.com", models.CompanyUpdate{}); err == nil {
		t.Fatalf("expected error for empty update")
	}
}

func TestCreateCompany_DuplicateDoesNotMutate(t *testing.T) {
	repo := setupRepo(t)
	ctx := context.Background()

	mustCreateCompany(t, repo, "dup@example.com", "First")

	err := repo.CreateCompany(ctx, &models.Company{Email: "dup@example.com", PasswordHash: "other", Name: "Second"})
	if !errors.Is(err, repository.ErrAlreadyExists) {
		t.Fatalf("expected ErrAlreadyExists, got %v", err)
	}

	got, _ := repo.GetCompany(ctx, "dup@example.com")
	if got.Name != "First" || got.PasswordHash != "hash" {
		t.Fatalf("existing company was modified: %#v", got)
	}
}

func TestSearchCompanies(t *testing.T) {
	repo := setupRepo(t)
	ctx := context.Background()

	mustCreateCompany(t, repo, "1@example.com", "Best Acme")
	mustCreateCompany(t, repo, "2@example.com", "Acme Ltd")
	mustCreateCompany(t, repo, "3@example.com", "Globex")
	mustCreateCompany(t, repo, "4@example.com", "ACME Tools")

	cases := []struct {
		name   string
		query  string
		offset int
		amount int
		want   []string
	}{
		{name: "PrefixBeforeSubstring", query: "acme", amount: 10, want: []string{"2@example.com", "4@example.com", "1@example.com"}},
		{name: "PageFilledByPrefix", query: "acme", amount: 2, want: []string{"2@example.com", "4@example.com"}},
		{name: "ZeroAmount", query: "acme", amount: 0, want: []string{}},
		{name: "NoMatch", query: "initech", amount: 5, want: []string{}},
		{name: "CaseInsensitive", query: "GLOB", amount: 5, want: []string{"3@example.com"}},
	}
	for _, c := range cases {
		t.Run(c.name, func(t *testing.T) {
			got, err := repo.SearchCompanies(ctx, c.query, c.offset, c.amount)
			if err != nil {
				t.Fatalf("SearchCompanies: %v", err)
			}
			if len(got) != len(c.want) {
				t.Fatalf("want %v got %d results: %#v", c.want, len(got), got)
			}
			for i := range got {
				if got[i].Email != c.want[i] {
					t.Fatalf("position %d: want %s got %s", i, c.want[i], got[i].Email)
				}
			}
		})
	}
}

func TestJobDescriptionCRUD(t *testing.T) {
	repo := setupRepo(t)
	ctx := context.Background()
	mustCreateCompany(t, repo, "owner@example.com", "Owner")

	jd := sampleJD("Backend Engineer")
	id, err := repo.InsertJobDescription(ctx, "owner@example.com", jd)
	if err != nil {
		t.Fatalf("InsertJobDescription: %v", err)
	}
	if id == "" || jd.ID != id || jd.OwnerEmail != "owner@example.com" {
		t.Fatalf("insert did not populate ids: %q %#v", id, jd)
	}

	got, err := repo.GetJobDescription(ctx, id)
	if err != nil {
		t.Fatalf("GetJobDescription: %v", err)
	}
	if !got.Equal(jd) || got.OwnerEmail != "owner@example.com" {
		t.Fatalf("stored record differs: %#v", got)
	}

	if _, err := repo.GetJobDescription(ctx, "missing"); !errors.Is(err, repository.ErrNotFound) {
		t.Fatalf("expected ErrNotFound, got %v", err)
	}

	m, err := repo.GetJobDescriptionToMatch(ctx, id)
	if err != nil {
		t.Fatalf("GetJobDescriptionToMatch: %v", err)
	}
	if m.Address != "Owner street" || m.Title != "Backend Engineer" {
		t.Fatalf("unexpected match record: %#v", m)
	}

	repl := sampleJD("Senior Backend Engineer")
	repl.Requirements = nil
	if err := repo.ReplaceJobDescription(ctx, id, "owner@example.com", repl); err != nil {
		t.Fatalf("ReplaceJobDescription: %v", err)
	}
	got, _ = repo.GetJobDescription(ctx, id)
	if got.Title != "Senior Backend Engineer" || len(got.Requirements) != 0 || got.Requirements == nil {
		t.Fatalf("replace not applied: %#v", got)
	}

	err = repo.ReplaceJobDescription(ctx, id, "owner@example.com", repl)
	if !errors.Is(err, repository.ErrUnchanged) {
		t.Fatalf("expected ErrUnchanged, got %v", err)
	}

	err = repo.ReplaceJobDescription(ctx, id, "intruder@example.com", sampleJD("Hijacked"))
	if !errors.Is(err, repository.ErrNotFound) {
		t.Fatalf("expected ErrNotFound for another owner, got %v", err)
	}

	n, err := repo.DeleteJobDescription(ctx, id, "intruder@example.com")
	if err != nil || n != 0 {
		t.Fatalf("delete by another owner: n=%d err=%v", n, err)
	}
	n, err = repo.DeleteJobDescription(ctx, id, "owner@example.com")
	if err != nil || n != 1 {
		t.Fatalf("delete by owner: n=%d err=%v", n, err)
	}
	if _, err := repo.GetJobDescription(ctx, id); !errors.Is(err, repository.ErrNotFound) {
		t.Fatalf("expected deleted record to be gone, got %v", err)
	}
}

func TestGetJobDescriptionToMatch_OwnerMissing(t *testing.T) {
	repo := setupRepo(t)
	ctx := context.Background()

	id, err := repo.InsertJobDescription(ctx, "orphan@example.com", sampleJD("Orphan"))
	if err != nil {
		t.Fatalf("InsertJobDescription: %v", err)
	}
	if _, err := repo.GetJobDescriptionToMatch(ctx, id); !errors.Is(err, repository.ErrNotFound) {
		t.Fatalf("expected ErrNotFound without owner, got %v", err)
	}
}

func TestListJobDescriptionsByOwner_Pagination(t *testing.T) {
	repo := setupRepo(t)
	ctx := context.Background()

	var ids []string
	for i := 0; i < 7; i++ {
		id, err := repo.InsertJobDescription(ctx, "owner@example.com", sampleJD(fmt.Sprintf("Role %d", i)))
		if err != nil {
			t.Fatalf("insert %d: %v", i, err)
		}
		ids = append(ids, id)
	}
	if _, err := repo.InsertJobDescription(ctx, "other@example.com", sampleJD("Other")); err != nil {
		t.Fatalf("insert other: %v", err)
	}

	var all []string
	for offset := 0; offset < 10; offset += 3 {
		page, err := repo.ListJobDescriptionsByOwner(ctx, "owner@example.com", offset, 3)
		if err != nil {
			t.Fatalf("list offset %d: %v", offset, err)
		}
		for _, jd := range page {
			all = append(all, jd.ID)
		}
	}

	if len(all) != len(ids) {
		t.Fatalf("expected %d records across pages, got %d", len(ids), len(all))
	}
	for i := range all {
		// newest first
		if want := ids[len(ids)-1-i]; all[i] != want {
			t.Fatalf("position %d: want %s got %s", i, want, all[i])
		}
	}

	empty, err := repo.ListJobDescriptionsByOwner(ctx, "nobody@example.com", 0, 5)
	if err != nil || len(empty) != 0 {
		t.Fatalf("expected empty list, got %v %v", empty, err)
	}
}

func TestSyncLedger(t *testing.T) {
	repo := setupRepo(t)
	ctx := context.Background()

	if err := repo.RecordPending(ctx, "jd-1", models.SyncOpPush, "timeout"); err != nil {
		t.Fatalf("RecordPending: %v", err)
	}
	if err := repo.RecordPending(ctx, "jd-2", models.SyncOpRemove, "503"); err != nil {
		t.Fatalf("RecordPending: %v", err)
	}

	pending, err := repo.ListUnqueued(ctx, 10)
	if err != nil {
		t.Fatalf("ListUnqueued: %v", err)
	}
	if len(pending) != 2 {
		t.Fatalf("expected 2 pending entries, got %#v", pending)
	}
	if n, err := repo.CountPending(ctx); err != nil || n != 2 {
		t.Fatalf("CountPending: %d %v", n, err)
	}

	if err := repo.MarkQueued(ctx, "jd-1"); err != nil {
		t.Fatalf("MarkQueued: %v", err)
	}
	pending, _ = repo.ListUnqueued(ctx, 10)
	if len(pending) != 1 || pending[0].JobDescriptionID != "jd-2" || pending[0].Op != models.SyncOpRemove {
		t.Fatalf("unexpected pending after MarkQueued: %#v", pending)
	}

	if err := repo.ReleaseQueued(ctx, "jd-1"); err != nil {
		t.Fatalf("ReleaseQueued: %v", err)
	}
	pending, _ = repo.ListUnqueued(ctx, 10)
	if len(pending) != 2 {
		t.Fatalf("released entry must be listed again, got %#v", pending)
	}
	if err := repo.MarkQueued(ctx, "jd-1"); err != nil {
		t.Fatalf("MarkQueued: %v", err)
	}

	// a newer failure re-arms a queued entry
	if err := repo.RecordPending(ctx, "jd-1", models.SyncOpRemove, "again"); err != nil {
		t.Fatalf("RecordPending: %v", err)
	}
	pending, _ = repo.ListUnqueued(ctx, 10)
	if len(pending) != 2 {
		t.Fatalf("expected re-armed entry, got %#v", pending)
	}

	if err := repo.ClearPending(ctx, "jd-1"); err != nil {
		t.Fatalf("ClearPending: %v", err)
	}
	if err := repo.ClearPending(ctx, "jd-2"); err != nil {
		t.Fatalf("ClearPending: %v", err)
	}
	pending, _ = repo.ListUnqueued(ctx, 10)
	if len(pending) != 0 {
		t.Fatalf("expected empty ledger, got %#v", pending)
	}
	if n, _ := repo.CountPending(ctx); n != 0 {
		t.Fatalf("expected zero pending, got %d", n)
	}
}

func TestJobQueue(t *testing.T) {
	repo := setupRepo(t)
	ctx := context.Background()

	job, err := repo.FetchNext(ctx)
	if err != nil || job != nil {
		t.Fatalf("expected empty queue, got %#v %v", job, err)
	}

	payload, _ := json.Marshal(map[string]string{"id": "jd-1"})
	low := &models.BackgroundJob{Type: "matching.push", Payload: payload, Priority: 100}
	high := &models.BackgroundJob{Type: "matching.remove", Payload: payload, Priority: 1}
	later := &models.BackgroundJob{Type: "matching.push", Payload: payload, ScheduledAt: time.Now().Add(time.Hour)}
	for _, j := range []*models.BackgroundJob{low, high, later} {
		if _, err := repo.Enqueue(ctx, j); err != nil {
			t.Fatalf("Enqueue: %v", err)
		}
	}

	first, err := repo.FetchNext(ctx)
	if err != nil {
		t.Fatalf("FetchNext: %v", err)
	}
	if first == nil || first.Type != "matching.remove" || first.Status != "running" {
		t.Fatalf("expected high priority job claimed, got %#v", first)
	}
	if string(first.Payload) != string(payload) || first.MaxAttempts != 5 {
		t.Fatalf("unexpected job contents: %#v", first)
	}

	second, _ := repo.FetchNext(ctx)
	if second == nil || second.Type != "matching.push" || second.ID == first.ID {
		t.Fatalf("expected the low priority job next, got %#v", second)
	}
	if third, _ := repo.FetchNext(ctx); third != nil {
		t.Fatalf("future job must not be claimed, got %#v", third)
	}

	// retry in the past becomes runnable again
	past := time.Now().Add(-time.Second)
	second.Status = "retry"
	second.Attempts = 1
	second.NextTryAt = &past
	second.LastError = "503"
	if err := repo.UpdateJob(ctx, second); err != nil {
		t.Fatalf("UpdateJob: %v", err)
	}
	again, _ := repo.FetchNext(ctx)
	if again == nil || again.ID != second.ID || again.Attempts != 1 || again.LastError != "503" {
		t.Fatalf("expected retried job, got %#v", again)
	}

	if err := repo.MoveToDeadLetter(ctx, again); err != nil {
		t.Fatalf("MoveToDeadLetter: %v", err)
	}
	if j, _ := repo.GetJob(ctx, again.ID); j != nil {
		t.Fatalf("dead-lettered job still in queue: %#v", j)
	}
	n, err := repo.CountDeadLetters(ctx, "matching.push")
	if err != nil || n != 1 {
		t.Fatalf("expected one dead letter, got %d %v", n, err)
	}
}

func TestJobQueue_RequeueRunning(t *testing.T) {
	repo := setupRepo(t)
	ctx := context.Background()

	id, err := repo.Enqueue(ctx, &models.BackgroundJob{Type: "matching.push", Payload: []byte(`{"id":"jd-1"}`)})
	if err != nil {
		t.Fatalf("Enqueue: %v", err)
	}
	claimed, _ := repo.FetchNext(ctx)
	if claimed == nil || claimed.ID != id {
		t.Fatalf("expected job claimed, got %#v", claimed)
	}
	if j, _ := repo.FetchNext(ctx); j != nil {
		t.Fatalf("running job must not be claimed twice, got %#v", j)
	}

	n, err := repo.RequeueRunning(ctx)
	if err != nil || n != 1 {
		t.Fatalf("RequeueRunning: n=%d err=%v", n, err)
	}
	again, _ := repo.FetchNext(ctx)
	if again == nil || again.ID != id {
		t.Fatalf("requeued job should be claimable, got %#v", again)
	}
}
