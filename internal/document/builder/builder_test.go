package builder

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"veridoc/internal/document/code"
	"veridoc/internal/document/models"
	"veridoc/internal/document/refgen"
	dErrors "veridoc/pkg/domain-errors"
	"veridoc/pkg/requestcontext"
)

var issuedAt = time.Date(2026, 4, 1, 9, 0, 0, 0, time.UTC)

func newTestBuilder(t *testing.T) *Builder {
	t.Helper()
	encoder, err := code.NewEncoder("https://verify.example.gov")
	require.NoError(t, err)
	refs := refgen.New(refgen.WithClock(func() time.Time { return issuedAt }))
	return New(refs, encoder)
}

func testFields() models.HolderFields {
	return models.HolderFields{
		{Name: "childFullName", Value: "Jane Doe"},
		{Name: "dateOfBirth", Value: "2020-01-01"},
	}
}

func TestBuild_PopulatesRecord(t *testing.T) {
	b := newTestBuilder(t)
	ctx := requestcontext.WithTime(context.Background(), issuedAt)

	md, err := b.Build(ctx, models.TypeBirthCertificate, testFields(), 10*365*24*time.Hour)
	require.NoError(t, err)

	assert.NotEmpty(t, md.ReferenceNumber)
	assert.Equal(t, models.TypeBirthCertificate, md.DocumentType)
	assert.Equal(t, models.StatusActive, md.Status)
	assert.Equal(t, issuedAt, md.IssuedAt)
	assert.True(t, md.ValidUntil.After(md.IssuedAt), "validUntil must be after issuedAt")
	assert.Len(t, md.ContentHash, 64, "sha-256 hex digest")
	assert.Equal(t, "doc_"+md.ContentHash[:32], md.ID)
	assert.NotEmpty(t, md.VerificationPayload)
}

func TestBuild_PayloadMatchesRecord(t *testing.T) {
	b := newTestBuilder(t)
	ctx := requestcontext.WithTime(context.Background(), issuedAt)

	md, err := b.Build(ctx, models.TypePassport, testFields(), 24*time.Hour)
	require.NoError(t, err)

	encoder, err := code.NewEncoder("https://verify.example.gov")
	require.NoError(t, err)
	decoded, err := encoder.Decode(md.VerificationPayload)
	require.NoError(t, err)
	assert.Equal(t, md.ReferenceNumber, decoded.ReferenceNumber)
	assert.Equal(t, md.ContentHash, decoded.ContentHash)
}

func TestBuild_ValidationFailures(t *testing.T) {
	b := newTestBuilder(t)
	ctx := context.Background()

	t.Run("unsupported type", func(t *testing.T) {
		_, err := b.Build(ctx, models.DocumentType("parking_pass"), testFields(), time.Hour)
		require.Error(t, err)
		assert.True(t, dErrors.HasCode(err, dErrors.CodeInvalidInput))
	})

	t.Run("empty holder fields", func(t *testing.T) {
		_, err := b.Build(ctx, models.TypePassport, nil, time.Hour)
		require.Error(t, err)
		assert.True(t, dErrors.HasCode(err, dErrors.CodeInvalidInput))
	})

	t.Run("blank field name", func(t *testing.T) {
		fields := models.HolderFields{{Name: "  ", Value: "x"}}
		_, err := b.Build(ctx, models.TypePassport, fields, time.Hour)
		require.Error(t, err)
		assert.True(t, dErrors.HasCode(err, dErrors.CodeInvalidInput))
	})

	t.Run("non-positive validity", func(t *testing.T) {
		_, err := b.Build(ctx, models.TypePassport, testFields(), 0)
		require.Error(t, err)
		assert.True(t, dErrors.HasCode(err, dErrors.CodeInvalidInput))
	})
}

func TestContentHash_Idempotent(t *testing.T) {
	first := ContentHash(models.TypeBirthCertificate, testFields(), "BC-ref-suffix99", issuedAt)
	second := ContentHash(models.TypeBirthCertificate, testFields(), "BC-ref-suffix99", issuedAt)
	assert.Equal(t, first, second)
}

func TestContentHash_OrderIndependent(t *testing.T) {
	reversed := models.HolderFields{
		{Name: "dateOfBirth", Value: "2020-01-01"},
		{Name: "childFullName", Value: "Jane Doe"},
	}
	assert.Equal(t,
		ContentHash(models.TypeBirthCertificate, testFields(), "BC-ref-suffix99", issuedAt),
		ContentHash(models.TypeBirthCertificate, reversed, "BC-ref-suffix99", issuedAt),
		"hash must not depend on holder field display order")
}

func TestContentHash_TamperSensitive(t *testing.T) {
	base := ContentHash(models.TypeBirthCertificate, testFields(), "BC-ref-suffix99", issuedAt)

	tampered := testFields()
	tampered[1].Value = "2020-01-02"
	assert.NotEqual(t, base, ContentHash(models.TypeBirthCertificate, tampered, "BC-ref-suffix99", issuedAt))

	assert.NotEqual(t, base, ContentHash(models.TypeDeathCertificate, testFields(), "BC-ref-suffix99", issuedAt))
	assert.NotEqual(t, base, ContentHash(models.TypeBirthCertificate, testFields(), "BC-ref-suffix00", issuedAt))
	assert.NotEqual(t, base, ContentHash(models.TypeBirthCertificate, testFields(), "BC-ref-suffix99", issuedAt.Add(time.Second)))
}

func TestRecompute_MatchesStoredHash(t *testing.T) {
	b := newTestBuilder(t)
	ctx := requestcontext.WithTime(context.Background(), issuedAt)

	md, err := b.Build(ctx, models.TypeWorkPermit, testFields(), time.Hour)
	require.NoError(t, err)
	assert.Equal(t, md.ContentHash, Recompute(md))
}
