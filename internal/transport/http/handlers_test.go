package httptransport

import (
	"bytes"
	"context"
	"encoding/json"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"veridoc/internal/document"
	"veridoc/internal/document/artifact"
	"veridoc/internal/document/builder"
	"veridoc/internal/document/code"
	"veridoc/internal/document/refgen"
	"veridoc/internal/document/store"
	"veridoc/internal/jwttoken"
	"veridoc/internal/platform/config"
	"veridoc/internal/registry"
	"veridoc/internal/registry/circuit"
	"veridoc/internal/registry/failover"
	"veridoc/internal/verify"
)

type stubImaging struct{}

func (stubImaging) RenderScannableImage(_ context.Context, payload string) ([]byte, error) {
	return []byte("img:" + payload), nil
}

type stubVerifier struct {
	result verify.Result
	err    error
	input  string
}

func (s *stubVerifier) Verify(_ context.Context, input string) (verify.Result, error) {
	s.input = input
	return s.result, s.err
}

type testServer struct {
	router   http.Handler
	store    *store.InMemory
	verifier *stubVerifier
	token    string
}

type stubRegistryClient struct{ name string }

func (s stubRegistryClient) Name() string { return s.name }

func (s stubRegistryClient) Call(context.Context, registry.Operation, registry.CheckRequest) (registry.Result, error) {
	return registry.Result{}, nil
}

func newTestServer(t *testing.T, opts ...func(*RouterConfig)) *testServer {
	t.Helper()

	logger := slog.New(slog.DiscardHandler)
	memStore := store.NewInMemory()

	encoder, err := code.NewEncoder("https://verify.example.gov")
	require.NoError(t, err)

	svc := document.NewService(document.ServiceConfig{
		Builder:   builder.New(refgen.New(), encoder),
		Assembler: artifact.New(stubImaging{}),
		Store:     memStore,
	})

	verifier := &stubVerifier{result: verify.Result{Verdict: verify.VerdictValid}}

	jwtService := jwttoken.NewService("test-signing-key", "veridoc", "issuing-offices")
	token, err := jwtService.GenerateAccessToken("clerk-042", "central-office", time.Hour)
	require.NoError(t, err)

	cfg := RouterConfig{
		Logger:    logger,
		Documents: NewDocumentsHandler(svc, logger),
		Verify:    NewVerifyHandler(verifier, logger),
		Validator: jwtService,
		Store:     memStore,
	}
	for _, opt := range opts {
		opt(&cfg)
	}

	return &testServer{router: NewRouter(cfg), store: memStore, verifier: verifier, token: token}
}

func (ts *testServer) do(t *testing.T, method, path string, body any, authed bool) *httptest.ResponseRecorder {
	t.Helper()

	var buf bytes.Buffer
	if body != nil {
		require.NoError(t, json.NewEncoder(&buf).Encode(body))
	}
	req := httptest.NewRequest(method, path, &buf)
	if authed {
		req.Header.Set("Authorization", "Bearer "+ts.token)
	}
	rec := httptest.NewRecorder()
	ts.router.ServeHTTP(rec, req)
	return rec
}

func issueBody() map[string]any {
	return map[string]any{
		"documentType": "birth_certificate",
		"holderFields": []map[string]string{
			{"name": "childFullName", "value": "Jane Doe"},
			{"name": "dateOfBirth", "value": "2020-01-01"},
		},
	}
}

func TestHandleIssue_CreatesDocument(t *testing.T) {
	ts := newTestServer(t)

	rec := ts.do(t, http.MethodPost, "/documents", issueBody(), true)
	require.Equal(t, http.StatusCreated, rec.Code)

	var resp issueResponse
	require.NoError(t, json.NewDecoder(rec.Body).Decode(&resp))
	assert.NotEmpty(t, resp.Document.ReferenceNumber)
	assert.Equal(t, "active", resp.Document.Status)
	assert.NotEmpty(t, resp.Artifact)
	assert.Contains(t, string(resp.Artifact), resp.Document.ReferenceNumber)
}

func TestHandleIssue_RequiresAuth(t *testing.T) {
	ts := newTestServer(t)

	rec := ts.do(t, http.MethodPost, "/documents", issueBody(), false)
	assert.Equal(t, http.StatusUnauthorized, rec.Code)
}

func TestHandleIssue_RejectsUnsupportedType(t *testing.T) {
	ts := newTestServer(t)

	body := issueBody()
	body["documentType"] = "library_card"
	rec := ts.do(t, http.MethodPost, "/documents", body, true)
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestHandleIssue_RejectsNegativeValidity(t *testing.T) {
	ts := newTestServer(t)

	body := issueBody()
	body["validityDays"] = -1
	rec := ts.do(t, http.MethodPost, "/documents", body, true)
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestHandleGet_ReturnsDocument(t *testing.T) {
	ts := newTestServer(t)

	rec := ts.do(t, http.MethodPost, "/documents", issueBody(), true)
	require.Equal(t, http.StatusCreated, rec.Code)
	var created issueResponse
	require.NoError(t, json.NewDecoder(rec.Body).Decode(&created))

	rec = ts.do(t, http.MethodGet, "/documents/"+created.Document.ReferenceNumber, nil, true)
	require.Equal(t, http.StatusOK, rec.Code)

	var got documentResponse
	require.NoError(t, json.NewDecoder(rec.Body).Decode(&got))
	assert.Equal(t, created.Document.ContentHash, got.ContentHash)
}

func TestHandleGet_UnknownReference(t *testing.T) {
	ts := newTestServer(t)

	rec := ts.do(t, http.MethodGet, "/documents/BC-nope-00000000", nil, true)
	assert.Equal(t, http.StatusNotFound, rec.Code)
}

func TestHandleRevoke_IsTerminal(t *testing.T) {
	ts := newTestServer(t)

	rec := ts.do(t, http.MethodPost, "/documents", issueBody(), true)
	require.Equal(t, http.StatusCreated, rec.Code)
	var created issueResponse
	require.NoError(t, json.NewDecoder(rec.Body).Decode(&created))

	revokePath := "/documents/" + created.Document.ReferenceNumber + "/revoke"

	rec = ts.do(t, http.MethodPost, revokePath, map[string]string{"reason": "issued in error"}, true)
	require.Equal(t, http.StatusOK, rec.Code)
	var revoked documentResponse
	require.NoError(t, json.NewDecoder(rec.Body).Decode(&revoked))
	assert.Equal(t, "revoked", revoked.Status)
	assert.Equal(t, "issued in error", revoked.StatusReason)

	rec = ts.do(t, http.MethodPost, revokePath, map[string]string{"reason": "again"}, true)
	assert.Equal(t, http.StatusConflict, rec.Code)
}

func TestHandleRevoke_RequiresReason(t *testing.T) {
	ts := newTestServer(t)

	rec := ts.do(t, http.MethodPost, "/documents/BC-x-y/revoke", map[string]string{}, true)
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestHandleVerify_ByReference(t *testing.T) {
	ts := newTestServer(t)

	rec := ts.do(t, http.MethodPost, "/verify", map[string]string{"referenceNumber": "BC-x-y"}, false)
	require.Equal(t, http.StatusOK, rec.Code)

	var result verify.Result
	require.NoError(t, json.NewDecoder(rec.Body).Decode(&result))
	assert.Equal(t, verify.VerdictValid, result.Verdict)
	assert.Equal(t, "BC-x-y", ts.verifier.input)
}

func TestHandleVerify_PayloadTakesPrecedence(t *testing.T) {
	ts := newTestServer(t)

	rec := ts.do(t, http.MethodPost, "/verify", map[string]string{
		"payload":         "VD1.something",
		"referenceNumber": "BC-x-y",
	}, false)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "VD1.something", ts.verifier.input)
}

func TestHandleVerify_RequiresInput(t *testing.T) {
	ts := newTestServer(t)

	rec := ts.do(t, http.MethodPost, "/verify", map[string]string{}, false)
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestHandleHealth(t *testing.T) {
	ts := newTestServer(t)

	rec := ts.do(t, http.MethodGet, "/healthz", nil, false)
	require.Equal(t, http.StatusOK, rec.Code)

	var resp healthResponse
	require.NoError(t, json.NewDecoder(rec.Body).Decode(&resp))
	assert.Equal(t, "ok", resp.Status)
	assert.Equal(t, "ok", resp.Checks["store"])
}

func TestHandleHealth_ReportsOpenCircuitRetryTime(t *testing.T) {
	logger := slog.New(slog.DiscardHandler)

	orchestrator := failover.New(logger)
	orchestrator.Register(config.RegistryPopulation, []registry.Client{stubRegistryClient{name: "population-primary"}})

	breaker := circuit.New(config.RegistryPopulation,
		circuit.WithFailureThreshold(1),
		circuit.WithResetTimeout(time.Minute),
	)
	breaker.RecordFailure()

	ts := newTestServer(t, func(cfg *RouterConfig) {
		cfg.Failover = orchestrator
		cfg.Breakers = map[string]*circuit.Breaker{config.RegistryPopulation: breaker}
	})

	rec := ts.do(t, http.MethodGet, "/healthz", nil, false)
	require.Equal(t, http.StatusOK, rec.Code)

	var resp healthResponse
	require.NoError(t, json.NewDecoder(rec.Body).Decode(&resp))
	require.Len(t, resp.Registries, 1)
	assert.Equal(t, string(circuit.StateOpen), resp.Registries[0].Circuit)
	require.NotNil(t, resp.Registries[0].RetryAt)
	assert.True(t, resp.Registries[0].RetryAt.After(time.Now()))
}
