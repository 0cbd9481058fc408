// Package builder assembles DocumentMetadata from validated issue requests.
//
// The canonical serialization used for content hashing is fixed here and
// nowhere else: verification recomputes the hash through this package, so any
// divergence between issuance and verification is impossible by construction.
package builder

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"sort"
	"strings"
	"time"

	"veridoc/internal/document/code"
	"veridoc/internal/document/models"
	"veridoc/internal/document/refgen"
	dErrors "veridoc/pkg/domain-errors"
	"veridoc/pkg/requestcontext"
)

// Builder produces unpersisted, fully populated DocumentMetadata.
type Builder struct {
	refs    *refgen.Generator
	encoder *code.Encoder
}

// New constructs a Builder.
func New(refs *refgen.Generator, encoder *code.Encoder) *Builder {
	return &Builder{refs: refs, encoder: encoder}
}

// Build validates the request, generates a reference number, computes the
// content hash and verification payload, and returns an active metadata
// record. Nothing is persisted; the caller owns storage.
//
// The request-scoped clock (requestcontext.Now) supplies issuedAt so the
// whole issuance request observes one timestamp.
func (b *Builder) Build(
	ctx context.Context,
	docType models.DocumentType,
	holderFields models.HolderFields,
	validity time.Duration,
) (models.DocumentMetadata, error) {
	if !docType.IsSupported() {
		return models.DocumentMetadata{}, dErrors.Newf(dErrors.CodeInvalidInput, "unsupported document type %q", docType)
	}
	if len(holderFields) == 0 {
		return models.DocumentMetadata{}, dErrors.New(dErrors.CodeInvalidInput, "holder fields must not be empty")
	}
	for _, f := range holderFields {
		if strings.TrimSpace(f.Name) == "" {
			return models.DocumentMetadata{}, dErrors.New(dErrors.CodeInvalidInput, "holder field name must not be empty")
		}
	}
	if validity <= 0 {
		return models.DocumentMetadata{}, dErrors.New(dErrors.CodeInvalidInput, "validity duration must be positive")
	}

	reference, err := b.refs.Generate(docType)
	if err != nil {
		return models.DocumentMetadata{}, err
	}

	issuedAt := requestcontext.Now(ctx).UTC()
	contentHash := ContentHash(docType, holderFields, reference, issuedAt)

	payload, err := b.encoder.Encode(reference, contentHash)
	if err != nil {
		return models.DocumentMetadata{}, dErrors.Wrap(err, dErrors.CodeInternal, "encode verification payload")
	}

	return models.DocumentMetadata{
		ID:                  recordID(contentHash),
		ReferenceNumber:     reference,
		DocumentType:        docType,
		HolderFields:        holderFields.Clone(),
		IssuedAt:            issuedAt,
		ValidUntil:          issuedAt.Add(validity),
		ContentHash:         contentHash,
		VerificationPayload: payload,
		Status:              models.StatusActive,
	}, nil
}

// ContentHash computes the SHA-256 digest over the canonical serialization of
// (documentType, holderFields, referenceNumber, issuedAt).
//
// Canonical form, one component per line:
//
//	documentType
//	holder fields sorted by name, as name=value joined by "&"
//	referenceNumber
//	issuedAt in RFC 3339 UTC
//
// Holder fields are sorted so hash identity does not depend on the display
// order the artifact uses.
func ContentHash(
	docType models.DocumentType,
	holderFields models.HolderFields,
	referenceNumber string,
	issuedAt time.Time,
) string {
	pairs := make([]string, 0, len(holderFields))
	for _, f := range holderFields {
		pairs = append(pairs, f.Name+"="+f.Value)
	}
	sort.Strings(pairs)

	var canonical strings.Builder
	canonical.WriteString(string(docType))
	canonical.WriteByte('\n')
	canonical.WriteString(strings.Join(pairs, "&"))
	canonical.WriteByte('\n')
	canonical.WriteString(referenceNumber)
	canonical.WriteByte('\n')
	canonical.WriteString(issuedAt.UTC().Format(time.RFC3339))

	sum := sha256.Sum256([]byte(canonical.String()))
	return hex.EncodeToString(sum[:])
}

// Recompute returns the content hash the stored record should carry. A
// mismatch with the stored value is tamper evidence.
func Recompute(m models.DocumentMetadata) string {
	return ContentHash(m.DocumentType, m.HolderFields, m.ReferenceNumber, m.IssuedAt)
}

// recordID derives the stable internal identifier from the content hash.
// The first 32 hex chars are plenty for uniqueness and keep IDs readable.
func recordID(contentHash string) string {
	return "doc_" + contentHash[:32]
}
