package models

import (
	"time"

	"github.com/google/uuid"
)

// AuditPhase distinguishes the two records emitted per request
type AuditPhase string

const (
	PhaseRequest  AuditPhase = "request"
	PhaseResponse AuditPhase = "response"
)

// AuditOutcome tags authentication events with their result
type AuditOutcome string

const (
	OutcomeSuccess AuditOutcome = "success"
	OutcomeFailure AuditOutcome = "failure"
)

// AuditRecord is one append-only entry in the audit trail.
// Rotation and retention are owned by the sink.
type AuditRecord struct {
	ID            uuid.UUID  `json:"id" db:"id"`
	CorrelationID string     `json:"correlation_id" db:"correlation_id"`
	Phase         AuditPhase `json:"phase" db:"phase"`
	Method        string     `json:"method" db:"method"`
	Path          string     `json:"path" db:"path"`
	ClientID      string     `json:"client_id" db:"client_id"`
	UserAgent     string     `json:"user_agent,omitempty" db:"user_agent"`
	Username      string     `json:"username,omitempty" db:"username"`
	Action        string     `json:"action,omitempty" db:"action"`
	Outcome       string     `json:"outcome,omitempty" db:"outcome"`
	Status        int        `json:"status,omitempty" db:"status"`
	ElapsedMs     int64      `json:"elapsed_ms,omitempty" db:"elapsed_ms"`
	CreatedAt     time.Time  `json:"created_at" db:"created_at"`
}

// TableName returns the table name for the AuditRecord model
func (AuditRecord) TableName() string {
	return "audit_records"
}

// NewAuditRecord creates a record stamped with the current time
func NewAuditRecord(correlationID string, phase AuditPhase) *AuditRecord {
	return &AuditRecord{
		ID:            uuid.New(),
		CorrelationID: correlationID,
		Phase:         phase,
		CreatedAt:     time.Now(),
	}
}
