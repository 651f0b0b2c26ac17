package session

import (
	"context"
	"time"
)

// Outcome status values.
const (
	StatusSucceeded = "succeeded"
	StatusFailed    = "failed"
)

// Outcome describes one finished edit submission, success or failure.
// SourceBytes and ResultBytes are approximate raw image sizes derived from
// the base64 payload lengths.
type Outcome struct {
	SessionID   string        `json:"session_id"`
	Provider    string        `json:"provider"`
	Model       string        `json:"model,omitempty"`
	Instruction string        `json:"instruction"`
	Status      string        `json:"status"`
	ErrorCode   string        `json:"error_code,omitempty"`
	SourceBytes int           `json:"source_bytes,omitempty"`
	ResultBytes int           `json:"result_bytes,omitempty"`
	Duration    time.Duration `json:"duration"`
	CreatedAt   time.Time     `json:"created_at"`
}

// Recorder receives edit outcomes for the audit trail. Recording happens
// after the session state is settled; a recorder error never fails the edit.
type Recorder interface {
	RecordEdit(ctx context.Context, outcome Outcome) error
}
