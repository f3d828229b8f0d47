package response

import (
	"time"

	"travel-booking/internal/data/entity"
)

type ReconciliationRunResponse struct {
	RunID         string               `json:"run_id"`
	TriggerSource entity.TriggerSource `json:"trigger_source"`
	Checked       int                  `json:"checked"`
	Confirmed     int                  `json:"confirmed"`
	Expired       int                  `json:"expired"`
	Cancelled     int                  `json:"cancelled"`
	Deferred      int                  `json:"deferred"`
	Skipped       int                  `json:"skipped"`
	Errors        int                  `json:"errors"`
	DurationMs    int64                `json:"duration_ms"`
	StartedAt     time.Time            `json:"started_at"`
}

func RunToResponse(run *entity.ReconciliationRun) ReconciliationRunResponse {
	return ReconciliationRunResponse{
		RunID:         run.ID.String(),
		TriggerSource: run.TriggerSource,
		Checked:       run.Counts.Checked,
		Confirmed:     run.Counts.Confirmed,
		Expired:       run.Counts.Expired,
		Cancelled:     run.Counts.Cancelled,
		Deferred:      run.Counts.Deferred,
		Skipped:       run.Counts.Skipped,
		Errors:        run.Counts.Errors,
		DurationMs:    run.DurationMs,
		StartedAt:     run.CreatedAt,
	}
}
