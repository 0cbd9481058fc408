package audit

import (
	"context"
	"time"
)

// Event is emitted from domain logic to capture key actions. Keep it
// transport-agnostic so stores and sinks can fan out.
type Event struct {
	ID           string    `json:"id"`
	Timestamp    time.Time `json:"timestamp"`
	Action       Action    `json:"action"`
	Reference    string    `json:"reference,omitempty"`
	DocumentType string    `json:"documentType,omitempty"`
	Registry     string    `json:"registry,omitempty"`
	Verdict      string    `json:"verdict,omitempty"`
	Reason       string    `json:"reason,omitempty"`
	Actor        string    `json:"actor,omitempty"`
	RequestID    string    `json:"requestId,omitempty"`
}

// Action classifies audit events emitted by the issuance and verification
// pipeline.
type Action string

const (
	ActionDocumentIssued        Action = "document_issued"
	ActionDocumentRevoked       Action = "document_revoked"
	ActionVerificationCompleted Action = "verification_completed"
	ActionCircuitOpened         Action = "circuit_opened"
	ActionCircuitClosed         Action = "circuit_closed"
)

// Store persists audit events. Implementations must be append-only; audit
// history is never rewritten.
type Store interface {
	Append(ctx context.Context, event Event) error
}
