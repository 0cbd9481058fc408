// Package verify implements the verification coordinator: it resolves a
// verification payload or raw reference to a stored record, re-checks its
// integrity, and cross-checks it against the registries required for the
// document type.
package verify

import (
	"context"
	"errors"
	"log/slog"
	"strings"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"
	"golang.org/x/sync/errgroup"

	"veridoc/internal/document/builder"
	"veridoc/internal/document/code"
	"veridoc/internal/document/models"
	"veridoc/internal/document/store"
	"veridoc/internal/observer"
	"veridoc/internal/platform/config"
	"veridoc/internal/registry"
	"veridoc/internal/registry/cache"
	"veridoc/internal/registry/circuit"
	"veridoc/internal/registry/failover"
	dErrors "veridoc/pkg/domain-errors"
	"veridoc/pkg/platform/sentinel"
	"veridoc/pkg/requestcontext"
)

var tracer = otel.Tracer("veridoc/verify")

// DefaultRequiredRegistries maps each document type to the registries that
// must corroborate it. Travel documents carry the widest set of checks.
func DefaultRequiredRegistries() map[models.DocumentType][]string {
	return map[models.DocumentType][]string{
		models.TypeBirthCertificate:    {config.RegistryPopulation},
		models.TypeDeathCertificate:    {config.RegistryPopulation},
		models.TypeMarriageCertificate: {config.RegistryPopulation},
		models.TypeIdentityCard:        {config.RegistryPopulation, config.RegistryBiometric},
		models.TypeWorkPermit:          {config.RegistryPopulation, config.RegistryCriminal},
		models.TypePassport: {
			config.RegistryPopulation,
			config.RegistryBiometric,
			config.RegistryCriminal,
			config.RegistryTravel,
		},
	}
}

// Config collects the coordinator's collaborators. Store, Decoder and
// Orchestrator are required; everything else has a working zero default.
type Config struct {
	Store        store.Store
	Decoder      *code.Encoder
	Orchestrator *failover.Orchestrator
	Breakers     map[string]*circuit.Breaker
	Cache        *cache.OutcomeCache
	Policy       failover.Policy
	Required     map[models.DocumentType][]string
	Observer     observer.Observer
	Logger       *slog.Logger
}

// Coordinator drives a single verification through lookup, integrity
// re-check and concurrent registry fan-out.
type Coordinator struct {
	store        store.Store
	decoder      *code.Encoder
	orchestrator *failover.Orchestrator
	breakers     map[string]*circuit.Breaker
	cache        *cache.OutcomeCache
	policy       failover.Policy
	required     map[models.DocumentType][]string
	observer     observer.Observer
	logger       *slog.Logger
}

func New(cfg Config) *Coordinator {
	if cfg.Required == nil {
		cfg.Required = DefaultRequiredRegistries()
	}
	if cfg.Observer == nil {
		cfg.Observer = observer.Nop{}
	}
	if cfg.Logger == nil {
		cfg.Logger = slog.New(slog.DiscardHandler)
	}
	if cfg.Cache == nil {
		cfg.Cache = cache.New(nil, 0)
	}
	return &Coordinator{
		store:        cfg.Store,
		decoder:      cfg.Decoder,
		orchestrator: cfg.Orchestrator,
		breakers:     cfg.Breakers,
		cache:        cfg.Cache,
		policy:       cfg.Policy,
		required:     cfg.Required,
		observer:     cfg.Observer,
		logger:       cfg.Logger,
	}
}

// Verify accepts either an encoded verification payload or a raw reference
// number. It returns an error only for unusable input; every other path,
// including total registry outage, produces a verdict.
func (c *Coordinator) Verify(ctx context.Context, input string) (Result, error) {
	ctx, span := tracer.Start(ctx, "verify.document")
	defer span.End()

	reference, payloadHash, err := c.resolveInput(input)
	if err != nil {
		return Result{}, err
	}
	span.SetAttributes(attribute.String("document.reference", reference))

	checkedAt := requestcontext.Now(ctx).UTC()

	md, err := c.store.GetByReference(ctx, reference)
	if err != nil {
		if errors.Is(err, sentinel.ErrNotFound) {
			return c.conclude(ctx, span, Result{
				Verdict:         VerdictNotFound,
				ReferenceNumber: reference,
				CheckedAt:       checkedAt,
			}), nil
		}
		return Result{}, dErrors.Wrap(err, dErrors.CodeInternal, "look up document record")
	}

	if md.Revoked() {
		return c.conclude(ctx, span, Result{
			Verdict:         VerdictRevoked,
			ReferenceNumber: reference,
			CheckedAt:       checkedAt,
		}), nil
	}

	recomputed := builder.Recompute(md)
	if recomputed != md.ContentHash || (payloadHash != "" && payloadHash != recomputed) {
		return c.conclude(ctx, span, Result{
			Verdict:         VerdictTampered,
			ReferenceNumber: reference,
			CheckedAt:       checkedAt,
		}), nil
	}

	if md.Expired(checkedAt) {
		return c.conclude(ctx, span, Result{
			Verdict:         VerdictExpired,
			ReferenceNumber: reference,
			CheckedAt:       checkedAt,
		}), nil
	}

	outcomes := c.checkRegistries(ctx, md)

	return c.conclude(ctx, span, Result{
		Verdict:         aggregate(outcomes),
		ReferenceNumber: reference,
		Outcomes:        outcomes,
		CheckedAt:       checkedAt,
	}), nil
}

// resolveInput extracts the reference number, plus the payload's embedded
// content hash when the input is an encoded payload.
func (c *Coordinator) resolveInput(input string) (reference, payloadHash string, err error) {
	input = strings.TrimSpace(input)
	if input == "" {
		return "", "", dErrors.New(dErrors.CodeInvalidInput, "verification input is empty")
	}
	if !code.LooksLikePayload(input) {
		return input, "", nil
	}
	decoded, err := c.decoder.Decode(input)
	if err != nil {
		return "", "", dErrors.Wrap(err, dErrors.CodeInvalidInput, "decode verification payload")
	}
	return decoded.ReferenceNumber, decoded.ContentHash, nil
}

// checkRegistries fans out to every registry required for the document type
// and gathers per-registry outcomes. Registry failures degrade the outcome
// to unknown; they never fail the group. A document never verifies against
// zero registries: types without a configured set check the population
// registry.
func (c *Coordinator) checkRegistries(ctx context.Context, md models.DocumentMetadata) []RegistryOutcome {
	required := c.required[md.DocumentType]
	if len(required) == 0 {
		required = []string{config.RegistryPopulation}
	}
	outcomes := make([]RegistryOutcome, len(required))

	g, ctx := errgroup.WithContext(ctx)
	for i, registryName := range required {
		g.Go(func() error {
			outcomes[i] = c.checkOne(ctx, registryName, md)
			return nil
		})
	}
	_ = g.Wait()

	return outcomes
}

func (c *Coordinator) checkOne(ctx context.Context, registryName string, md models.DocumentMetadata) RegistryOutcome {
	if verified, err := c.cache.Get(ctx, md.ReferenceNumber, registryName); err == nil {
		return RegistryOutcome{
			Registry: registryName,
			Outcome:  outcomeFor(verified),
			Cached:   true,
		}
	}

	breaker := c.breakers[registryName]
	if breaker != nil && !breaker.Allow() {
		return RegistryOutcome{
			Registry: registryName,
			Outcome:  OutcomeUnknown,
			Detail:   sentinel.ErrCircuitOpen.Error(),
		}
	}

	result, err := c.orchestrator.Execute(ctx, registryName, registry.OpVerifyDocument, checkRequest(md), c.policy)
	if err != nil {
		if breaker != nil {
			breaker.RecordFailure()
		}
		c.logger.Warn("registry check degraded",
			"registry", registryName,
			"reference", md.ReferenceNumber,
			"error", err,
		)
		return RegistryOutcome{
			Registry: registryName,
			Outcome:  OutcomeUnknown,
			Detail:   err.Error(),
		}
	}
	if breaker != nil {
		breaker.RecordSuccess()
	}

	if err := c.cache.Put(ctx, md.ReferenceNumber, registryName, result.Verified); err != nil {
		c.logger.Warn("outcome cache write failed", "registry", registryName, "error", err)
	}

	return RegistryOutcome{
		Registry: registryName,
		Outcome:  outcomeFor(result.Verified),
		Source:   result.Source,
	}
}

func (c *Coordinator) conclude(ctx context.Context, span trace.Span, result Result) Result {
	span.SetAttributes(attribute.String("verify.verdict", string(result.Verdict)))
	c.observer.VerificationCompleted(ctx, result.ReferenceNumber, string(result.Verdict))
	return result
}

func checkRequest(md models.DocumentMetadata) registry.CheckRequest {
	fields := make(map[string]string, len(md.HolderFields))
	for _, f := range md.HolderFields {
		fields[f.Name] = f.Value
	}
	return registry.CheckRequest{
		ReferenceNumber: md.ReferenceNumber,
		DocumentType:    string(md.DocumentType),
		ContentHash:     md.ContentHash,
		HolderFields:    fields,
	}
}

func outcomeFor(verified bool) Outcome {
	if verified {
		return OutcomeConfirmed
	}
	return OutcomeDenied
}
