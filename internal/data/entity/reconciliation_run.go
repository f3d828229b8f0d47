package entity

import (
	"encoding/json"
)

type TriggerSource string

const (
	TriggerSchedule TriggerSource = "schedule"
	TriggerManual   TriggerSource = "manual"
	TriggerWebhook  TriggerSource = "webhook"
)

// RunCounts holds per-outcome counters for one reconciliation run.
type RunCounts struct {
	Checked   int `json:"checked"`
	Confirmed int `json:"confirmed"`
	Expired   int `json:"expired"`
	Cancelled int `json:"cancelled"`
	Deferred  int `json:"deferred"`
	Skipped   int `json:"skipped"`
	Errors    int `json:"errors"`
}

// ReconciliationRun is the append-only audit record, one row per run.
// Rows are never updated after insertion.
type ReconciliationRun struct {
	BaseSimple
	TriggerSource TriggerSource   `db:"trigger_source"`
	Counts        RunCounts       `db:"-"`
	DurationMs    int64           `db:"duration_ms"`
	Detail        json.RawMessage `db:"detail"`
}
