package engine

import (
	"encoding/json"
	"os"
	"path/filepath"
	"time"
)

// Batch-level and supplemental error codes. The per-intent taxonomy lives in
// the section package next to the locator that raises it.
const (
	// ErrApplyFailed marks a failed atomic commit. It is batch-fatal and not
	// attributable to a single intent.
	ErrApplyFailed = "APPLY_FAILED"
	// ErrInvalidContent marks a payload that violates the with-title /
	// content-only contract.
	ErrInvalidContent = "INVALID_CONTENT"
	// ErrOverlappingRanges marks intents whose relative ranges collide with
	// an earlier intent on the same section.
	ErrOverlappingRanges = "OVERLAPPING_RANGES"
	// ErrStagingConflict marks an internal disagreement between resolution
	// and the staged buffer; it should not happen and is never retryable.
	ErrStagingConflict = "STAGING_CONFLICT"
)

// WarningAutoAdjusted tags intents whose coordinates the executor shifted.
const WarningAutoAdjusted = "AUTO_ADJUSTED"

// Warning is a non-fatal observation attached to the report.
type Warning struct {
	Kind    string `json:"kind"`
	SID     string `json:"sid,omitempty"`
	Message string `json:"message"`
}

// ExecutionReport is the structured outcome of one batch, JSON-serializable
// for the orchestrating caller.
type ExecutionReport struct {
	Success           bool            `json:"success"`
	TotalIntents      int             `json:"total_intents"`
	SuccessfulIntents int             `json:"successful_intents"`
	AppliedIntents    []AppliedIntent `json:"applied_intents"`
	FailedIntents     []FailedIntent  `json:"failed_intents"`
	Warnings          []Warning       `json:"warnings,omitempty"`
	ErrorCode         string          `json:"error_code,omitempty"`
	Error             string          `json:"error,omitempty"`
	StartedAt         string          `json:"started_at"`
	DurationMS        int64           `json:"duration_ms"`
}

// buildReport aggregates executor outcomes. Success means at least one
// intent landed; partial failure is still a (partial) success.
func buildReport(total int, applied []AppliedIntent, failed []FailedIntent, started time.Time) *ExecutionReport {
	r := &ExecutionReport{
		Success:           len(applied) > 0,
		TotalIntents:      total,
		SuccessfulIntents: len(applied),
		AppliedIntents:    applied,
		FailedIntents:     failed,
		StartedAt:         started.UTC().Format(time.RFC3339),
		DurationMS:        time.Since(started).Milliseconds(),
	}
	if r.AppliedIntents == nil {
		r.AppliedIntents = []AppliedIntent{}
	}
	if r.FailedIntents == nil {
		r.FailedIntents = []FailedIntent{}
	}
	for _, a := range applied {
		if a.AdjustedIntent != nil {
			r.Warnings = append(r.Warnings, Warning{
				Kind:    WarningAutoAdjusted,
				SID:     a.Intent.Target.SID,
				Message: a.AdjustmentReason,
			})
		}
	}
	return r
}

// Save writes the report as indented JSON.
func (r *ExecutionReport) Save(path string) error {
	if r == nil {
		return nil
	}
	if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
		return err
	}
	data, err := json.MarshalIndent(r, "", "  ")
	if err != nil {
		return err
	}
	data = append(data, '\n')
	return os.WriteFile(path, data, 0644)
}
