package models

import "time"

// StageStats counts per-item outcomes within one pipeline stage.
// Dropped covers unresolved-parent and malformed records; Skipped covers
// symbols whose selected range was zero; Failed covers per-item store or
// fetch failures that did not halt siblings.
type StageStats struct {
	Fetched  int `json:"fetched"`
	Upserted int `json:"upserted"`
	Emitted  int `json:"emitted"`
	Dropped  int `json:"dropped"`
	Skipped  int `json:"skipped"`
	Failed   int `json:"failed"`
}

// SyncReport summarizes one pipeline run.
type SyncReport struct {
	ID         string     `json:"uid"`
	StartedAt  time.Time  `json:"started_at"`
	FinishedAt time.Time  `json:"finished_at"`
	Exchanges  StageStats `json:"exchanges"`
	Symbols    StageStats `json:"symbols"`
	Prices     StageStats `json:"prices"`
	Error      string     `json:"error,omitempty"`
}

// Duration returns the elapsed run time.
func (r *SyncReport) Duration() time.Duration {
	return r.FinishedAt.Sub(r.StartedAt)
}
