//go:build integration

package store_test

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/suite"

	"veridoc/internal/document/models"
	"veridoc/internal/document/store"
	"veridoc/pkg/platform/sentinel"
	"veridoc/pkg/testutil/containers"
)

type PostgresStoreSuite struct {
	suite.Suite
	postgres *containers.PostgresContainer
	store    *store.Postgres
}

func TestPostgresStoreSuite(t *testing.T) {
	if testing.Short() {
		t.Skip("skipping integration test in short mode")
	}
	suite.Run(t, new(PostgresStoreSuite))
}

func (s *PostgresStoreSuite) SetupSuite() {
	s.postgres = containers.NewPostgresContainer(s.T())
	_, err := s.postgres.DB.Exec(store.Schema)
	s.Require().NoError(err)
	s.store = store.NewPostgres(s.postgres.DB)
}

func (s *PostgresStoreSuite) SetupTest() {
	err := s.postgres.TruncateTables(context.Background(), "document_records")
	s.Require().NoError(err)
}

func newPostgresRecord(reference string) models.DocumentMetadata {
	issued := time.Date(2026, 4, 1, 9, 0, 0, 0, time.UTC)
	return models.DocumentMetadata{
		ID:              "doc_" + reference,
		ReferenceNumber: reference,
		DocumentType:    models.TypePassport,
		HolderFields: models.HolderFields{
			{Name: "fullName", Value: "Jane Doe"},
			{Name: "nationality", Value: "ZA"},
		},
		IssuedAt:            issued,
		ValidUntil:          issued.AddDate(10, 0, 0),
		ContentHash:         "hash-" + reference,
		VerificationPayload: "VD1.payload",
		Status:              models.StatusActive,
	}
}

func (s *PostgresStoreSuite) TestSaveAndGetRoundTrip() {
	ctx := context.Background()
	record := newPostgresRecord("PP-1-aaaaaaaa")
	s.Require().NoError(s.store.Save(ctx, record))

	found, err := s.store.GetByReference(ctx, record.ReferenceNumber)
	s.Require().NoError(err)
	s.Equal(record.ContentHash, found.ContentHash)
	s.Equal(record.HolderFields, found.HolderFields, "holder field order survives storage")
	s.Equal(models.StatusActive, found.Status)
}

func (s *PostgresStoreSuite) TestUniqueReferenceEnforced() {
	ctx := context.Background()
	record := newPostgresRecord("PP-1-aaaaaaaa")
	s.Require().NoError(s.store.Save(ctx, record))

	err := s.store.Save(ctx, record)
	s.Require().ErrorIs(err, sentinel.ErrDuplicateReference)
}

func (s *PostgresStoreSuite) TestRevokeTransitions() {
	ctx := context.Background()
	record := newPostgresRecord("PP-1-aaaaaaaa")
	s.Require().NoError(s.store.Save(ctx, record))

	s.Require().NoError(s.store.Revoke(ctx, record.ReferenceNumber, "lost document"))

	found, err := s.store.GetByReference(ctx, record.ReferenceNumber)
	s.Require().NoError(err)
	s.Equal(models.StatusRevoked, found.Status)
	s.Equal("lost document", found.StatusReason)
	s.False(found.StatusChangedAt.IsZero())

	err = s.store.Revoke(ctx, record.ReferenceNumber, "again")
	s.Require().ErrorIs(err, sentinel.ErrAlreadyRevoked)
}

func (s *PostgresStoreSuite) TestRevokeUnknownReference() {
	err := s.store.Revoke(context.Background(), "PP-0-missing0", "reason")
	s.Require().ErrorIs(err, sentinel.ErrNotFound)
}

func (s *PostgresStoreSuite) TestConcurrentRevokeSingleWinner() {
	ctx := context.Background()
	record := newPostgresRecord("PP-1-aaaaaaaa")
	s.Require().NoError(s.store.Save(ctx, record))

	const attempts = 8
	var (
		wg        sync.WaitGroup
		mu        sync.Mutex
		successes int
	)
	for range attempts {
		wg.Add(1)
		go func() {
			defer wg.Done()
			if err := s.store.Revoke(ctx, record.ReferenceNumber, "race"); err == nil {
				mu.Lock()
				successes++
				mu.Unlock()
			}
		}()
	}
	wg.Wait()

	s.Equal(1, successes, "conditional UPDATE admits exactly one winner")
}
