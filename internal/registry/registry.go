// Package registry defines the uniform client contract for external
// verification registries (population, biometric, criminal-record,
// travel-document) and the normalized error taxonomy their failures map to.
package registry

import (
	"context"
	"time"
)

// Operation names the action requested of a registry.
type Operation string

const (
	// OpVerifyDocument asks a registry to corroborate an issued document.
	OpVerifyDocument Operation = "verify_document"
)

// CheckRequest is the payload sent to a registry for document verification.
type CheckRequest struct {
	ReferenceNumber string            `json:"referenceNumber"`
	DocumentType    string            `json:"documentType"`
	ContentHash     string            `json:"contentHash"`
	HolderFields    map[string]string `json:"holderFields,omitempty"`
}

// Result is the generic answer from any registry.
type Result struct {
	Verified  bool      `json:"verified"`
	Source    string    `json:"source"`
	CheckedAt time.Time `json:"checkedAt"`
}

//go:generate mockgen -destination=mocks/mock_client.go -package=mocks veridoc/internal/registry Client

// Client is the universal interface all registry integrations implement.
// Call timeouts are imposed by the caller through ctx; implementations must
// respect cancellation.
type Client interface {
	// Name identifies the endpoint this client talks to, for logs and errors.
	Name() string

	// Call performs one registry operation.
	Call(ctx context.Context, op Operation, req CheckRequest) (Result, error)
}
