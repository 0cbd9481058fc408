// Package failover executes registry calls against an ordered endpoint list
// with bounded retries, linear backoff, and per-attempt timeouts.
//
// Backoff is linear (retryDelay * attemptNumber), matching the documented
// default for this system. The breaker layer above treats one exhausted
// Execute as a single failure; retries here are invisible to it.
package failover

import (
	"context"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"

	"veridoc/internal/platform/metrics"
	"veridoc/internal/registry"
	"veridoc/pkg/platform/sentinel"
)

var tracer = otel.Tracer("veridoc/registry/failover")

// Policy bounds one Execute call.
type Policy struct {
	// MaxRetries is the total number of attempts (not additional retries).
	MaxRetries int
	// RetryDelay is the base backoff; attempt n waits RetryDelay * n before
	// the next attempt.
	RetryDelay time.Duration
	// PerAttemptTimeout is a hard cancellation boundary for each attempt.
	// An attempt exceeding it counts as one failure; its late result is
	// discarded.
	PerAttemptTimeout time.Duration
}

func (p Policy) withDefaults() Policy {
	if p.MaxRetries <= 0 {
		p.MaxRetries = 3
	}
	if p.RetryDelay <= 0 {
		p.RetryDelay = 200 * time.Millisecond
	}
	if p.PerAttemptTimeout <= 0 {
		p.PerAttemptTimeout = 3 * time.Second
	}
	return p
}

// Health is a snapshot of one registry's failure accounting.
type Health struct {
	Registry            string `json:"registry"`
	Endpoints           int    `json:"endpoints"`
	ConsecutiveFailures int    `json:"consecutiveFailures"`
}

// Orchestrator routes calls for each named registry across its ordered
// endpoint clients. The first client is primary; on failure the next attempt
// rotates to the following endpoint, wrapping around when exhausted.
type Orchestrator struct {
	logger  *slog.Logger
	metrics *metrics.Metrics
	sleep   func(context.Context, time.Duration) error

	mu       sync.Mutex
	clients  map[string][]registry.Client
	failures map[string]int
}

// Option customizes an Orchestrator.
type Option func(*Orchestrator)

// WithMetrics attaches registry call metrics.
func WithMetrics(m *metrics.Metrics) Option {
	return func(o *Orchestrator) { o.metrics = m }
}

// WithSleep overrides the backoff sleeper, for tests.
func WithSleep(sleep func(context.Context, time.Duration) error) Option {
	return func(o *Orchestrator) { o.sleep = sleep }
}

// New constructs an Orchestrator.
func New(logger *slog.Logger, opts ...Option) *Orchestrator {
	o := &Orchestrator{
		logger:   logger,
		sleep:    sleepCtx,
		clients:  make(map[string][]registry.Client),
		failures: make(map[string]int),
	}
	for _, opt := range opts {
		opt(o)
	}
	return o
}

// Register installs the ordered client list for a registry name. Index 0 is
// the primary endpoint.
func (o *Orchestrator) Register(registryName string, ordered []registry.Client) {
	o.mu.Lock()
	defer o.mu.Unlock()
	o.clients[registryName] = ordered
}

// Registries returns the names with at least one registered endpoint.
func (o *Orchestrator) Registries() []string {
	o.mu.Lock()
	defer o.mu.Unlock()
	names := make([]string, 0, len(o.clients))
	for name, ordered := range o.clients {
		if len(ordered) > 0 {
			names = append(names, name)
		}
	}
	return names
}

// Execute runs one registry operation under the policy. Each failed attempt
// increments the registry's shared failure counter and rotates to the next
// endpoint after a linear backoff; any success resets the counter to zero.
// When every attempt fails the call ends with sentinel.ErrRegistryExhausted.
func (o *Orchestrator) Execute(
	ctx context.Context,
	registryName string,
	op registry.Operation,
	req registry.CheckRequest,
	policy Policy,
) (registry.Result, error) {
	policy = policy.withDefaults()

	ordered := o.endpointsFor(registryName)
	if len(ordered) == 0 {
		return registry.Result{}, fmt.Errorf("%w: no endpoints configured for registry %q",
			sentinel.ErrRegistryExhausted, registryName)
	}

	ctx, span := tracer.Start(ctx, "registry.execute",
		trace.WithAttributes(
			attribute.String("registry.name", registryName),
			attribute.String("registry.operation", string(op)),
		))
	defer span.End()

	var lastErr error
	for attempt := 1; attempt <= policy.MaxRetries; attempt++ {
		client := ordered[(attempt-1)%len(ordered)]

		result, err := o.attempt(ctx, client, op, req, policy.PerAttemptTimeout, registryName)
		if err == nil {
			o.resetFailures(registryName)
			span.SetAttributes(attribute.Int("registry.attempts", attempt))
			return result, nil
		}
		lastErr = err
		failures := o.recordFailure(registryName)

		o.logger.Warn("registry attempt failed",
			"registry", registryName,
			"endpoint", client.Name(),
			"attempt", attempt,
			"consecutive_failures", failures,
			"error", err,
		)

		if attempt == policy.MaxRetries {
			break
		}
		// Linear backoff before rotating to the next endpoint.
		if err := o.sleep(ctx, policy.RetryDelay*time.Duration(attempt)); err != nil {
			return registry.Result{}, err
		}
	}

	return registry.Result{}, fmt.Errorf("%w: registry %q after %d attempts: %w",
		sentinel.ErrRegistryExhausted, registryName, policy.MaxRetries, lastErr)
}

// attempt runs one time-bounded call. The timeout is a hard cancellation
// boundary: a late result is discarded with its goroutine.
func (o *Orchestrator) attempt(
	ctx context.Context,
	client registry.Client,
	op registry.Operation,
	req registry.CheckRequest,
	timeout time.Duration,
	registryName string,
) (registry.Result, error) {
	attemptCtx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()

	start := time.Now()

	type outcome struct {
		result registry.Result
		err    error
	}
	done := make(chan outcome, 1)
	go func() {
		result, err := client.Call(attemptCtx, op, req)
		done <- outcome{result: result, err: err}
	}()

	select {
	case out := <-done:
		o.observe(registryName, out.err, time.Since(start))
		return out.result, out.err
	case <-attemptCtx.Done():
		o.observe(registryName, attemptCtx.Err(), time.Since(start))
		return registry.Result{}, registry.NewError(registry.ErrorTimeout, registryName,
			"attempt timed out", attemptCtx.Err())
	}
}

func (o *Orchestrator) observe(registryName string, err error, elapsed time.Duration) {
	if o.metrics == nil {
		return
	}
	outcome := "success"
	if err != nil {
		outcome = string(registry.GetCategory(err))
	}
	o.metrics.ObserveRegistryCall(registryName, outcome, elapsed)
}

func (o *Orchestrator) endpointsFor(registryName string) []registry.Client {
	o.mu.Lock()
	defer o.mu.Unlock()
	return o.clients[registryName]
}

func (o *Orchestrator) recordFailure(registryName string) int {
	o.mu.Lock()
	defer o.mu.Unlock()
	o.failures[registryName]++
	return o.failures[registryName]
}

func (o *Orchestrator) resetFailures(registryName string) {
	o.mu.Lock()
	defer o.mu.Unlock()
	o.failures[registryName] = 0
}

// HealthSnapshot reports failure accounting for every registered registry.
func (o *Orchestrator) HealthSnapshot() []Health {
	o.mu.Lock()
	defer o.mu.Unlock()
	out := make([]Health, 0, len(o.clients))
	for name, ordered := range o.clients {
		out = append(out, Health{
			Registry:            name,
			Endpoints:           len(ordered),
			ConsecutiveFailures: o.failures[name],
		})
	}
	return out
}

func sleepCtx(ctx context.Context, d time.Duration) error {
	timer := time.NewTimer(d)
	defer timer.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-timer.C:
		return nil
	}
}
