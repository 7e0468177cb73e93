package store

import (
	"fmt"
)

// Job is a persisted job outcome record.
type Job struct {
	ID           string  `json:"id"`
	FinishedAt   string  `json:"finished_at"`
	Outcome      string  `json:"outcome"`
	Instance     string  `json:"instance,omitempty"`
	Provider     string  `json:"provider,omitempty"`
	SourceLang   string  `json:"source_lang,omitempty"`
	TargetLang   string  `json:"target_lang,omitempty"`
	Attempts     int     `json:"attempts"`
	TokensIn     int64   `json:"tokens_in"`
	TokensOut    int64   `json:"tokens_out"`
	CostUSD      float64 `json:"cost_usd"`
	LatencyMs    int64   `json:"latency_ms"`
	ErrorMessage string  `json:"error_message,omitempty"`
}

// JobStats holds aggregate statistics over the job history.
type JobStats struct {
	TotalJobs      int64   `json:"total_jobs"`
	Succeeded      int64   `json:"succeeded"`
	Exhausted      int64   `json:"exhausted"`
	TotalAttempts  int64   `json:"total_attempts"`
	TotalTokensIn  int64   `json:"total_tokens_in"`
	TotalTokensOut int64   `json:"total_tokens_out"`
	TotalCostUSD   float64 `json:"total_cost_usd"`
}

// InsertJob stores a job outcome. Duplicate IDs overwrite so retried
// upserts from a flushing sink stay idempotent.
func (s *Store) InsertJob(j *Job) error {
	_, err := s.writer.Exec(`
		INSERT OR REPLACE INTO jobs (
			id, finished_at, outcome, instance, provider,
			source_lang, target_lang, attempts,
			tokens_in, tokens_out, cost_usd, latency_ms, error_message
		) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		j.ID, j.FinishedAt, j.Outcome, j.Instance, j.Provider,
		j.SourceLang, j.TargetLang, j.Attempts,
		j.TokensIn, j.TokensOut, j.CostUSD, j.LatencyMs, j.ErrorMessage,
	)
	if err != nil {
		return fmt.Errorf("store: insert job: %w", err)
	}
	return nil
}

// ListJobs returns a page of job records ordered newest first.
func (s *Store) ListJobs(limit, offset int) ([]*Job, error) {
	if limit <= 0 {
		limit = 50
	}

	rows, err := s.reader.Query(`
		SELECT id, finished_at, outcome, instance, provider,
		       source_lang, target_lang, attempts,
		       tokens_in, tokens_out, cost_usd, latency_ms, error_message
		FROM jobs
		ORDER BY finished_at DESC
		LIMIT ? OFFSET ?`, limit, offset,
	)
	if err != nil {
		return nil, fmt.Errorf("store: list jobs: %w", err)
	}
	defer rows.Close()

	var results []*Job
	for rows.Next() {
		j := &Job{}
		if err := rows.Scan(
			&j.ID, &j.FinishedAt, &j.Outcome, &j.Instance, &j.Provider,
			&j.SourceLang, &j.TargetLang, &j.Attempts,
			&j.TokensIn, &j.TokensOut, &j.CostUSD, &j.LatencyMs, &j.ErrorMessage,
		); err != nil {
			return nil, fmt.Errorf("store: scan job: %w", err)
		}
		results = append(results, j)
	}
	return results, rows.Err()
}

// Stats aggregates the job history.
func (s *Store) Stats() (*JobStats, error) {
	st := &JobStats{}
	err := s.reader.QueryRow(`
		SELECT COUNT(*),
		       COALESCE(SUM(CASE WHEN outcome = 'succeeded' THEN 1 ELSE 0 END), 0),
		       COALESCE(SUM(CASE WHEN outcome = 'exhausted' THEN 1 ELSE 0 END), 0),
		       COALESCE(SUM(attempts), 0),
		       COALESCE(SUM(tokens_in), 0),
		       COALESCE(SUM(tokens_out), 0),
		       COALESCE(SUM(cost_usd), 0.0)
		FROM jobs`,
	).Scan(
		&st.TotalJobs, &st.Succeeded, &st.Exhausted,
		&st.TotalAttempts, &st.TotalTokensIn, &st.TotalTokensOut, &st.TotalCostUSD,
	)
	if err != nil {
		return nil, fmt.Errorf("store: job stats: %w", err)
	}
	return st, nil
}
