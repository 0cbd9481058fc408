// Package observer fans lifecycle notifications out to logging, metrics and
// the audit pipeline without coupling domain logic to any of them.
package observer

import (
	"context"
	"log/slog"

	"github.com/google/uuid"

	"veridoc/internal/document/models"
	"veridoc/internal/platform/metrics"
	"veridoc/pkg/platform/audit"
	"veridoc/pkg/requestcontext"
)

// Observer receives notifications for the document lifecycle and registry
// health. Implementations must not block the calling request path.
type Observer interface {
	DocumentIssued(ctx context.Context, md *models.DocumentMetadata)
	DocumentRevoked(ctx context.Context, md *models.DocumentMetadata, reason string)
	VerificationCompleted(ctx context.Context, reference, verdict string)
	CircuitStateChanged(registry, from, to string)
}

// Multi broadcasts each notification to every wrapped observer in order.
type Multi []Observer

func (m Multi) DocumentIssued(ctx context.Context, md *models.DocumentMetadata) {
	for _, o := range m {
		o.DocumentIssued(ctx, md)
	}
}

func (m Multi) DocumentRevoked(ctx context.Context, md *models.DocumentMetadata, reason string) {
	for _, o := range m {
		o.DocumentRevoked(ctx, md, reason)
	}
}

func (m Multi) VerificationCompleted(ctx context.Context, reference, verdict string) {
	for _, o := range m {
		o.VerificationCompleted(ctx, reference, verdict)
	}
}

func (m Multi) CircuitStateChanged(registry, from, to string) {
	for _, o := range m {
		o.CircuitStateChanged(registry, from, to)
	}
}

// Logging writes structured log lines for each lifecycle event.
type Logging struct {
	logger *slog.Logger
}

func NewLogging(logger *slog.Logger) *Logging {
	return &Logging{logger: logger}
}

func (l *Logging) DocumentIssued(ctx context.Context, md *models.DocumentMetadata) {
	l.logger.InfoContext(ctx, "document issued",
		"reference", md.ReferenceNumber,
		"document_type", string(md.DocumentType),
		"request_id", requestcontext.RequestID(ctx))
}

func (l *Logging) DocumentRevoked(ctx context.Context, md *models.DocumentMetadata, reason string) {
	l.logger.InfoContext(ctx, "document revoked",
		"reference", md.ReferenceNumber,
		"document_type", string(md.DocumentType),
		"reason", reason,
		"request_id", requestcontext.RequestID(ctx))
}

func (l *Logging) VerificationCompleted(ctx context.Context, reference, verdict string) {
	l.logger.InfoContext(ctx, "verification completed",
		"reference", reference,
		"verdict", verdict,
		"request_id", requestcontext.RequestID(ctx))
}

func (l *Logging) CircuitStateChanged(registry, from, to string) {
	l.logger.Warn("circuit state changed",
		"registry", registry,
		"from", from,
		"to", to)
}

// Instrumented increments Prometheus counters for each lifecycle event.
type Instrumented struct {
	metrics *metrics.Metrics
}

func NewInstrumented(m *metrics.Metrics) *Instrumented {
	return &Instrumented{metrics: m}
}

func (i *Instrumented) DocumentIssued(_ context.Context, md *models.DocumentMetadata) {
	i.metrics.DocumentsIssued.WithLabelValues(string(md.DocumentType)).Inc()
}

func (i *Instrumented) DocumentRevoked(_ context.Context, md *models.DocumentMetadata, _ string) {
	i.metrics.DocumentsRevoked.WithLabelValues(string(md.DocumentType)).Inc()
}

func (i *Instrumented) VerificationCompleted(_ context.Context, _, verdict string) {
	i.metrics.Verdicts.WithLabelValues(verdict).Inc()
}

func (i *Instrumented) CircuitStateChanged(registry, _, to string) {
	i.metrics.CircuitTransitions.WithLabelValues(registry, to).Inc()
}

// Auditing forwards lifecycle events to the audit worker. Emission is
// non-blocking: if the inbox is full the event is dropped and logged rather
// than stalling the request.
type Auditing struct {
	inbox  chan<- audit.Event
	logger *slog.Logger
}

func NewAuditing(inbox chan<- audit.Event, logger *slog.Logger) *Auditing {
	return &Auditing{inbox: inbox, logger: logger}
}

func (a *Auditing) emit(ctx context.Context, event audit.Event) {
	event.ID = uuid.NewString()
	event.Timestamp = requestcontext.Now(ctx).UTC()
	event.Actor = requestcontext.Subject(ctx)
	event.RequestID = requestcontext.RequestID(ctx)

	select {
	case a.inbox <- event:
	default:
		a.logger.Warn("audit inbox full, dropping event",
			"action", string(event.Action),
			"reference", event.Reference)
	}
}

func (a *Auditing) DocumentIssued(ctx context.Context, md *models.DocumentMetadata) {
	a.emit(ctx, audit.Event{
		Action:       audit.ActionDocumentIssued,
		Reference:    md.ReferenceNumber,
		DocumentType: string(md.DocumentType),
	})
}

func (a *Auditing) DocumentRevoked(ctx context.Context, md *models.DocumentMetadata, reason string) {
	a.emit(ctx, audit.Event{
		Action:       audit.ActionDocumentRevoked,
		Reference:    md.ReferenceNumber,
		DocumentType: string(md.DocumentType),
		Reason:       reason,
	})
}

func (a *Auditing) VerificationCompleted(ctx context.Context, reference, verdict string) {
	a.emit(ctx, audit.Event{
		Action:    audit.ActionVerificationCompleted,
		Reference: reference,
		Verdict:   verdict,
	})
}

func (a *Auditing) CircuitStateChanged(registry, from, to string) {
	action := audit.ActionCircuitOpened
	if to == "closed" {
		action = audit.ActionCircuitClosed
	}
	a.emit(context.Background(), audit.Event{
		Action:   action,
		Registry: registry,
		Reason:   from + "->" + to,
	})
}

// Nop discards all notifications. Handy default for tests.
type Nop struct{}

func (Nop) DocumentIssued(context.Context, *models.DocumentMetadata)          {}
func (Nop) DocumentRevoked(context.Context, *models.DocumentMetadata, string) {}
func (Nop) VerificationCompleted(context.Context, string, string)             {}
func (Nop) CircuitStateChanged(string, string, string)                        {}
