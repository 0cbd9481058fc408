package failover

import (
	"context"
	"log/slog"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"veridoc/internal/registry"
	"veridoc/pkg/platform/sentinel"
)

// scriptedClient returns canned outcomes in order, recording each call.
type scriptedClient struct {
	name string

	mu       sync.Mutex
	outcomes []error
	calls    int
	delay    time.Duration
}

func (c *scriptedClient) Name() string { return c.name }

func (c *scriptedClient) Call(ctx context.Context, _ registry.Operation, _ registry.CheckRequest) (registry.Result, error) {
	c.mu.Lock()
	idx := c.calls
	c.calls++
	c.mu.Unlock()

	if c.delay > 0 {
		select {
		case <-time.After(c.delay):
		case <-ctx.Done():
			return registry.Result{}, registry.NewError(registry.ErrorTimeout, c.name, "cancelled", ctx.Err())
		}
	}

	var err error
	if idx < len(c.outcomes) {
		err = c.outcomes[idx]
	}
	if err != nil {
		return registry.Result{}, err
	}
	return registry.Result{Verified: true, Source: c.name, CheckedAt: time.Now()}, nil
}

func (c *scriptedClient) callCount() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.calls
}

func discardLogger() *slog.Logger {
	return slog.New(slog.DiscardHandler)
}

func noSleep(_ context.Context, _ time.Duration) error { return nil }

func fastPolicy() Policy {
	return Policy{MaxRetries: 3, RetryDelay: time.Millisecond, PerAttemptTimeout: time.Second}
}

func TestExecute_SuccessOnPrimary(t *testing.T) {
	primary := &scriptedClient{name: "pop-primary"}
	backup := &scriptedClient{name: "pop-backup"}

	o := New(discardLogger(), WithSleep(noSleep))
	o.Register("population", []registry.Client{primary, backup})

	result, err := o.Execute(context.Background(), "population", registry.OpVerifyDocument, registry.CheckRequest{}, fastPolicy())
	require.NoError(t, err)
	assert.True(t, result.Verified)
	assert.Equal(t, 1, primary.callCount())
	assert.Equal(t, 0, backup.callCount(), "backup untouched on primary success")
}

func TestExecute_FailsOverToNextEndpoint(t *testing.T) {
	outage := registry.NewError(registry.ErrorOutage, "pop-primary", "down", nil)
	primary := &scriptedClient{name: "pop-primary", outcomes: []error{outage}}
	backup := &scriptedClient{name: "pop-backup"}

	o := New(discardLogger(), WithSleep(noSleep))
	o.Register("population", []registry.Client{primary, backup})

	result, err := o.Execute(context.Background(), "population", registry.OpVerifyDocument, registry.CheckRequest{}, fastPolicy())
	require.NoError(t, err)
	assert.Equal(t, "pop-backup", result.Source)
	assert.Equal(t, 1, primary.callCount())
	assert.Equal(t, 1, backup.callCount())
}

func TestExecute_WrapsAroundEndpointList(t *testing.T) {
	outage := registry.NewError(registry.ErrorOutage, "x", "down", nil)
	primary := &scriptedClient{name: "pop-primary", outcomes: []error{outage, nil}}
	backup := &scriptedClient{name: "pop-backup", outcomes: []error{outage}}

	o := New(discardLogger(), WithSleep(noSleep))
	o.Register("population", []registry.Client{primary, backup})

	// Attempt 1: primary fails. Attempt 2: backup fails. Attempt 3: wraps
	// back to primary, which now succeeds.
	result, err := o.Execute(context.Background(), "population", registry.OpVerifyDocument, registry.CheckRequest{}, fastPolicy())
	require.NoError(t, err)
	assert.True(t, result.Verified)
	assert.Equal(t, 2, primary.callCount())
	assert.Equal(t, 1, backup.callCount())
}

func TestExecute_ExhaustedAfterMaxRetries(t *testing.T) {
	outage := registry.NewError(registry.ErrorOutage, "x", "down", nil)
	primary := &scriptedClient{name: "pop-primary", outcomes: []error{outage, outage, outage}}

	o := New(discardLogger(), WithSleep(noSleep))
	o.Register("population", []registry.Client{primary})

	_, err := o.Execute(context.Background(), "population", registry.OpVerifyDocument, registry.CheckRequest{}, fastPolicy())
	require.Error(t, err)
	assert.ErrorIs(t, err, sentinel.ErrRegistryExhausted)
	assert.Equal(t, 3, primary.callCount())
}

func TestExecute_LinearBackoff(t *testing.T) {
	outage := registry.NewError(registry.ErrorOutage, "x", "down", nil)
	primary := &scriptedClient{name: "pop-primary", outcomes: []error{outage, outage, outage}}

	var delays []time.Duration
	o := New(discardLogger(), WithSleep(func(_ context.Context, d time.Duration) error {
		delays = append(delays, d)
		return nil
	}))
	o.Register("population", []registry.Client{primary})

	policy := Policy{MaxRetries: 3, RetryDelay: 100 * time.Millisecond, PerAttemptTimeout: time.Second}
	_, err := o.Execute(context.Background(), "population", registry.OpVerifyDocument, registry.CheckRequest{}, policy)
	require.Error(t, err)

	// No sleep after the final attempt.
	assert.Equal(t, []time.Duration{100 * time.Millisecond, 200 * time.Millisecond}, delays)
}

func TestExecute_PerAttemptTimeout(t *testing.T) {
	slow := &scriptedClient{name: "pop-primary", delay: 200 * time.Millisecond}
	backup := &scriptedClient{name: "pop-backup"}

	o := New(discardLogger(), WithSleep(noSleep))
	o.Register("population", []registry.Client{slow, backup})

	policy := Policy{MaxRetries: 2, RetryDelay: time.Millisecond, PerAttemptTimeout: 20 * time.Millisecond}
	result, err := o.Execute(context.Background(), "population", registry.OpVerifyDocument, registry.CheckRequest{}, policy)
	require.NoError(t, err, "slow primary times out, backup answers")
	assert.Equal(t, "pop-backup", result.Source)
}

func TestExecute_FailureCounterResetOnSuccess(t *testing.T) {
	outage := registry.NewError(registry.ErrorOutage, "x", "down", nil)
	primary := &scriptedClient{name: "pop-primary", outcomes: []error{outage, nil}}

	o := New(discardLogger(), WithSleep(noSleep))
	o.Register("population", []registry.Client{primary})

	_, err := o.Execute(context.Background(), "population", registry.OpVerifyDocument, registry.CheckRequest{}, fastPolicy())
	require.NoError(t, err)

	snapshot := o.HealthSnapshot()
	require.Len(t, snapshot, 1)
	assert.Equal(t, 0, snapshot[0].ConsecutiveFailures, "success resets the counter")
}

func TestExecute_NoEndpointsConfigured(t *testing.T) {
	o := New(discardLogger(), WithSleep(noSleep))

	_, err := o.Execute(context.Background(), "population", registry.OpVerifyDocument, registry.CheckRequest{}, fastPolicy())
	assert.ErrorIs(t, err, sentinel.ErrRegistryExhausted)
}
