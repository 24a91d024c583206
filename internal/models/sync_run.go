package models

import (
	"time"

	"github.com/google/uuid"
)

// Per-network sync states.
const (
	SyncStateNotConfigured = "not_configured"
	SyncStateRunning       = "running"
	SyncStateSucceeded     = "succeeded"
	SyncStateFailed        = "failed"
)

// Sync run triggers.
const (
	SyncTriggerSchedule = "schedule"
	SyncTriggerManual   = "manual"
	SyncTriggerCLI      = "cli"
)

type ProviderResult struct {
	Network    NetworkName `json:"network"`
	State      string      `json:"state"`
	Imported   int         `json:"imported"`
	Updated    int         `json:"updated"`
	Skipped    int         `json:"skipped"`
	Error      string      `json:"error,omitempty"`
	StartedAt  time.Time   `json:"started_at"`
	FinishedAt time.Time   `json:"finished_at"`
}

// SyncRun is the record of one orchestrator invocation.
type SyncRun struct {
	ID         uuid.UUID        `json:"id"`
	Trigger    string           `json:"trigger"`
	StartedAt  time.Time        `json:"started_at"`
	FinishedAt time.Time        `json:"finished_at"`
	Imported   int              `json:"imported"`
	Updated    int              `json:"updated"`
	Results    []ProviderResult `json:"results"`
}

// Failed returns the results whose state is failed.
func (r *SyncRun) Failed() []ProviderResult {
	var out []ProviderResult
	for _, res := range r.Results {
		if res.State == SyncStateFailed {
			out = append(out, res)
		}
	}
	return out
}
