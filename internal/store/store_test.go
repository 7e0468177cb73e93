package store

import (
	"path/filepath"
	"testing"
	"time"

	"github.com/allaspectsdev/traduko/internal/telemetry"
)

func testStore(t *testing.T) *Store {
	t.Helper()
	s, err := Open(filepath.Join(t.TempDir(), "history.db"))
	if err != nil {
		t.Fatalf("open store: %v", err)
	}
	t.Cleanup(func() { s.Close() })
	return s
}

func TestOpenRunsMigrations(t *testing.T) {
	s := testStore(t)

	v, err := s.currentVersion()
	if err != nil {
		t.Fatal(err)
	}
	if v != len(migrations) {
		t.Errorf("schema version = %d, want %d", v, len(migrations))
	}
	if err := s.Ping(); err != nil {
		t.Errorf("ping after open: %v", err)
	}
}

func TestOpenIsIdempotent(t *testing.T) {
	path := filepath.Join(t.TempDir(), "history.db")

	s, err := Open(path)
	if err != nil {
		t.Fatal(err)
	}
	s.Close()

	// Re-opening an already migrated database must not fail.
	s2, err := Open(path)
	if err != nil {
		t.Fatalf("reopen: %v", err)
	}
	defer s2.Close()
}

func TestInsertAndListEvents(t *testing.T) {
	s := testStore(t)

	base := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)
	events := []telemetry.Event{
		{Kind: telemetry.AttemptStarted, Instance: "paid-1", Job: "j1", TS: base},
		{Kind: telemetry.AttemptFailed, Instance: "paid-1", Job: "j1", TS: base.Add(time.Second),
			Details: map[string]any{"error_kind": "rate-limited", "error": "429"}},
		{Kind: telemetry.AttemptStarted, Instance: "oauth-1", Job: "j1", TS: base.Add(2 * time.Second)},
	}
	for _, ev := range events {
		if err := s.InsertEvent(ev); err != nil {
			t.Fatalf("insert: %v", err)
		}
	}

	all, err := s.ListEvents("", 10, 0)
	if err != nil {
		t.Fatal(err)
	}
	if len(all) != 3 {
		t.Fatalf("got %d events, want 3", len(all))
	}
	// Newest first.
	if all[0].Kind != string(telemetry.AttemptStarted) || all[0].Instance != "oauth-1" {
		t.Errorf("first event = %s/%s, want newest", all[0].Kind, all[0].Instance)
	}
	if all[1].Details["error_kind"] != "rate-limited" {
		t.Errorf("details not round-tripped: %v", all[1].Details)
	}

	failed, err := s.ListEvents(string(telemetry.AttemptFailed), 10, 0)
	if err != nil {
		t.Fatal(err)
	}
	if len(failed) != 1 || failed[0].Instance != "paid-1" {
		t.Errorf("kind filter returned %d events", len(failed))
	}
}

func TestListEventsPaging(t *testing.T) {
	s := testStore(t)

	for i := 0; i < 5; i++ {
		s.InsertEvent(telemetry.Event{Kind: telemetry.AttemptStarted, Job: "j", TS: time.Now()})
	}

	page, err := s.ListEvents("", 2, 2)
	if err != nil {
		t.Fatal(err)
	}
	if len(page) != 2 {
		t.Errorf("page size = %d, want 2", len(page))
	}
}

func TestCountEventsByKind(t *testing.T) {
	s := testStore(t)

	s.InsertEvent(telemetry.Event{Kind: telemetry.AttemptStarted, TS: time.Now()})
	s.InsertEvent(telemetry.Event{Kind: telemetry.AttemptStarted, TS: time.Now()})
	s.InsertEvent(telemetry.Event{Kind: telemetry.JobSucceeded, TS: time.Now()})

	counts, err := s.CountEventsByKind()
	if err != nil {
		t.Fatal(err)
	}
	if counts["attempt_started"] != 2 || counts["job_succeeded"] != 1 {
		t.Errorf("counts = %v", counts)
	}
}

func TestInsertJobIdempotent(t *testing.T) {
	s := testStore(t)

	j := &Job{
		ID:         "job-1",
		FinishedAt: "2026-03-01T12:00:00Z",
		Outcome:    "succeeded",
		Instance:   "paid-1",
		Provider:   "deepseek",
		SourceLang: "en",
		TargetLang: "sr",
		Attempts:   2,
		TokensIn:   100,
		TokensOut:  80,
		CostUSD:    0.0002,
		LatencyMs:  1500,
	}
	if err := s.InsertJob(j); err != nil {
		t.Fatal(err)
	}

	j.Attempts = 3
	if err := s.InsertJob(j); err != nil {
		t.Fatalf("upsert: %v", err)
	}

	jobs, err := s.ListJobs(10, 0)
	if err != nil {
		t.Fatal(err)
	}
	if len(jobs) != 1 {
		t.Fatalf("got %d jobs, want 1 after upsert", len(jobs))
	}
	if jobs[0].Attempts != 3 || jobs[0].Provider != "deepseek" {
		t.Errorf("job = %+v", jobs[0])
	}
}

func TestJobStats(t *testing.T) {
	s := testStore(t)

	s.InsertJob(&Job{ID: "a", FinishedAt: "2026-03-01T12:00:00Z", Outcome: "succeeded", Attempts: 1, TokensIn: 50, TokensOut: 40, CostUSD: 0.001})
	s.InsertJob(&Job{ID: "b", FinishedAt: "2026-03-01T12:01:00Z", Outcome: "succeeded", Attempts: 2, TokensIn: 30, TokensOut: 20, CostUSD: 0.002})
	s.InsertJob(&Job{ID: "c", FinishedAt: "2026-03-01T12:02:00Z", Outcome: "exhausted", Attempts: 3, ErrorMessage: "all providers down"})

	st, err := s.Stats()
	if err != nil {
		t.Fatal(err)
	}
	if st.TotalJobs != 3 || st.Succeeded != 2 || st.Exhausted != 1 {
		t.Errorf("counts = %+v", st)
	}
	if st.TotalAttempts != 6 {
		t.Errorf("attempts = %d, want 6", st.TotalAttempts)
	}
	if st.TotalTokensIn != 80 || st.TotalTokensOut != 60 {
		t.Errorf("tokens = %d/%d", st.TotalTokensIn, st.TotalTokensOut)
	}
	if st.TotalCostUSD < 0.0029 || st.TotalCostUSD > 0.0031 {
		t.Errorf("cost = %f", st.TotalCostUSD)
	}
}

func TestPrune(t *testing.T) {
	s := testStore(t)

	old := time.Now().UTC().AddDate(0, 0, -60)
	s.InsertEvent(telemetry.Event{Kind: telemetry.AttemptStarted, TS: old})
	s.InsertEvent(telemetry.Event{Kind: telemetry.AttemptStarted, TS: time.Now()})
	s.InsertJob(&Job{ID: "old", FinishedAt: old.Format(time.RFC3339), Outcome: "succeeded"})
	s.InsertJob(&Job{ID: "new", FinishedAt: time.Now().UTC().Format(time.RFC3339), Outcome: "succeeded"})

	deleted, err := s.Prune(30)
	if err != nil {
		t.Fatal(err)
	}
	if deleted != 2 {
		t.Errorf("deleted = %d, want 2", deleted)
	}

	events, _ := s.ListEvents("", 10, 0)
	if len(events) != 1 {
		t.Errorf("events remaining = %d, want 1", len(events))
	}
	jobs, _ := s.ListJobs(10, 0)
	if len(jobs) != 1 || jobs[0].ID != "new" {
		t.Errorf("jobs remaining = %v", jobs)
	}
}
