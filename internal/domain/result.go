package domain

import "time"

// ResultStatus enumerates per-design outcome states.
type ResultStatus string

const (
	ResultStatusPending  ResultStatus = "pending"
	ResultStatusComplete ResultStatus = "complete"
	ResultStatusFail     ResultStatus = "fail"
)

// FailureKind is the closed classification of generation/publish faults.
// The orchestrator records it for diagnostics; retry decisions stay uniform
// (every non-fatal failure is retried in a later round).
type FailureKind string

const (
	FailureRateLimited  FailureKind = "rate_limited"
	FailureInvalidInput FailureKind = "invalid_input"
	FailureProvider     FailureKind = "provider_error"
	FailureTimeout      FailureKind = "timeout"
	FailureStorage      FailureKind = "storage_error"
)

// DesignResult is the persisted outcome of attempting one design against one
// photo. Exactly one row exists per (PhotoID, DesignID) pair; retries update
// the row in place.
type DesignResult struct {
	ID          string
	PhotoID     string
	DesignID    int
	Status      ResultStatus
	ResultKey   string
	ResultURL   string
	FailureKind FailureKind
	CreatedAt   time.Time
	UpdatedAt   time.Time
}

// FailingResult is the admin view of a result stuck in fail status.
type FailingResult struct {
	PhotoID     string
	CustomerID  string
	DesignID    int
	FailureKind FailureKind
	UpdatedAt   time.Time
}

// GenerationError is one append-only diagnostic row for a failed attempt.
type GenerationError struct {
	ID        string
	PhotoID   string
	DesignID  int
	ErrorText string
	CreatedAt time.Time
}
