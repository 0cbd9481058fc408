package worker

import (
	"context"
	"testing"
	"time"

	audit "veridoc/pkg/platform/audit"
	"veridoc/pkg/platform/audit/store/memory"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestWorker_PersistsEvents(t *testing.T) {
	store := memory.NewInMemoryStore()
	inbox := make(chan audit.Event, 10)
	w := NewWorker(store, inbox)

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- w.Run(ctx) }()

	for range 3 {
		inbox <- audit.Event{
			ID:        uuid.NewString(),
			Timestamp: time.Now().UTC(),
			Action:    audit.ActionDocumentIssued,
			Reference: "BC-abc123-00000001",
		}
	}

	require.Eventually(t, func() bool {
		events, err := store.ListByReference(context.Background(), "BC-abc123-00000001")
		return err == nil && len(events) == 3
	}, time.Second, 10*time.Millisecond)

	cancel()
	assert.ErrorIs(t, <-done, context.Canceled)
}

func TestWorker_StopsOnContextCancel(t *testing.T) {
	store := memory.NewInMemoryStore()
	inbox := make(chan audit.Event)
	w := NewWorker(store, inbox)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	err := w.Run(ctx)
	assert.ErrorIs(t, err, context.Canceled)
}
