// Package document wires issuance together: metadata building, artifact
// assembly and persistence, plus the one-way revocation transition.
package document

import (
	"context"
	"errors"
	"log/slog"
	"time"

	"veridoc/internal/document/artifact"
	"veridoc/internal/document/builder"
	"veridoc/internal/document/models"
	"veridoc/internal/document/store"
	"veridoc/internal/observer"
	"veridoc/internal/registry/cache"
	dErrors "veridoc/pkg/domain-errors"
	"veridoc/pkg/platform/sentinel"
)

// IssuedDocument is the result of a successful issuance: the persisted
// metadata plus the rendered artifact bytes.
type IssuedDocument struct {
	Metadata models.DocumentMetadata
	Artifact []byte
}

// Service drives the issuance and revocation flows.
type Service struct {
	builder    *builder.Builder
	assembler  *artifact.Assembler
	store      store.Store
	cache      *cache.OutcomeCache
	registries []string
	observer   observer.Observer
	logger     *slog.Logger
}

// ServiceConfig collects the service's collaborators. Builder, Assembler and
// Store are required.
type ServiceConfig struct {
	Builder   *builder.Builder
	Assembler *artifact.Assembler
	Store     store.Store

	// Cache and Registries drive outcome-cache invalidation on revocation.
	Cache      *cache.OutcomeCache
	Registries []string

	Observer observer.Observer
	Logger   *slog.Logger
}

func NewService(cfg ServiceConfig) *Service {
	if cfg.Observer == nil {
		cfg.Observer = observer.Nop{}
	}
	if cfg.Logger == nil {
		cfg.Logger = slog.New(slog.DiscardHandler)
	}
	if cfg.Cache == nil {
		cfg.Cache = cache.New(nil, 0)
	}
	return &Service{
		builder:    cfg.Builder,
		assembler:  cfg.Assembler,
		store:      cfg.Store,
		cache:      cfg.Cache,
		registries: cfg.Registries,
		observer:   cfg.Observer,
		logger:     cfg.Logger,
	}
}

// Issue builds, assembles and persists a new document. On the rare reference
// collision it regenerates once before surfacing the conflict.
func (s *Service) Issue(
	ctx context.Context,
	docType models.DocumentType,
	holderFields models.HolderFields,
	validity time.Duration,
) (IssuedDocument, error) {
	md, err := s.builder.Build(ctx, docType, holderFields, validity)
	if err != nil {
		return IssuedDocument{}, err
	}

	artifactBytes, err := s.assembler.Assemble(ctx, md)
	if err != nil {
		return IssuedDocument{}, dErrors.Wrap(err, dErrors.CodeInternal, "assemble document artifact")
	}

	if err := s.store.Save(ctx, md); err != nil {
		if !errors.Is(err, sentinel.ErrDuplicateReference) {
			return IssuedDocument{}, dErrors.Wrap(err, dErrors.CodeInternal, "persist document record")
		}

		s.logger.Warn("reference collision, regenerating once", "reference", md.ReferenceNumber)
		md, err = s.builder.Build(ctx, docType, holderFields, validity)
		if err != nil {
			return IssuedDocument{}, err
		}
		artifactBytes, err = s.assembler.Assemble(ctx, md)
		if err != nil {
			return IssuedDocument{}, dErrors.Wrap(err, dErrors.CodeInternal, "assemble document artifact")
		}
		if err := s.store.Save(ctx, md); err != nil {
			if errors.Is(err, sentinel.ErrDuplicateReference) {
				return IssuedDocument{}, dErrors.Wrap(err, dErrors.CodeConflict, "reference collision persisted across retry")
			}
			return IssuedDocument{}, dErrors.Wrap(err, dErrors.CodeInternal, "persist document record")
		}
	}

	s.observer.DocumentIssued(ctx, &md)

	return IssuedDocument{Metadata: md, Artifact: artifactBytes}, nil
}

// Get returns the stored metadata for a reference.
func (s *Service) Get(ctx context.Context, reference string) (models.DocumentMetadata, error) {
	md, err := s.store.GetByReference(ctx, reference)
	if err != nil {
		if errors.Is(err, sentinel.ErrNotFound) {
			return models.DocumentMetadata{}, dErrors.Wrap(err, dErrors.CodeNotFound, "document not found")
		}
		return models.DocumentMetadata{}, dErrors.Wrap(err, dErrors.CodeInternal, "look up document record")
	}
	return md, nil
}

// Revoke marks a document revoked and drops any cached registry outcomes so
// a stale confirmation cannot outlive the record state. The transition is
// one-way; revoking twice is a conflict.
func (s *Service) Revoke(ctx context.Context, reference, reason string) (models.DocumentMetadata, error) {
	if err := s.store.Revoke(ctx, reference, reason); err != nil {
		switch {
		case errors.Is(err, sentinel.ErrNotFound):
			return models.DocumentMetadata{}, dErrors.Wrap(err, dErrors.CodeNotFound, "document not found")
		case errors.Is(err, sentinel.ErrAlreadyRevoked):
			return models.DocumentMetadata{}, dErrors.Wrap(err, dErrors.CodeConflict, "document already revoked")
		default:
			return models.DocumentMetadata{}, dErrors.Wrap(err, dErrors.CodeInternal, "revoke document record")
		}
	}

	if err := s.cache.Invalidate(ctx, reference, s.registries); err != nil {
		s.logger.Warn("outcome cache invalidation failed", "reference", reference, "error", err)
	}

	md, err := s.store.GetByReference(ctx, reference)
	if err != nil {
		return models.DocumentMetadata{}, dErrors.Wrap(err, dErrors.CodeInternal, "reload revoked record")
	}

	s.observer.DocumentRevoked(ctx, &md, reason)
	return md, nil
}
