package test

import (
	"log/slog"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"veridoc/internal/document"
	"veridoc/internal/document/artifact"
	"veridoc/internal/document/builder"
	"veridoc/internal/document/code"
	"veridoc/internal/document/refgen"
	"veridoc/internal/document/store"
	"veridoc/internal/jwttoken"
	"veridoc/internal/observer"
	"veridoc/internal/registry/circuit"
	"veridoc/internal/registry/failover"
	httptransport "veridoc/internal/transport/http"
	"veridoc/internal/verify"
	"veridoc/pkg/testutil"
)

// newScaffoldRouter wires the router exactly like main does, minus external
// backends: in-memory store, no registries registered, no redis, no kafka.
func newScaffoldRouter(t *testing.T) http.Handler {
	t.Helper()

	logger := slog.New(slog.DiscardHandler)
	memStore := store.NewInMemory()

	encoder, err := code.NewEncoder("https://verify.example.gov")
	if err != nil {
		t.Fatalf("encoder: %v", err)
	}

	svc := document.NewService(document.ServiceConfig{
		Builder:   builder.New(refgen.New(), encoder),
		Assembler: artifact.New(artifact.NewTextImaging()),
		Store:     memStore,
		Observer:  observer.Nop{},
	})

	coordinator := verify.New(verify.Config{
		Store:        memStore,
		Decoder:      encoder,
		Orchestrator: failover.New(logger),
		Breakers:     map[string]*circuit.Breaker{},
	})

	return httptransport.NewRouter(httptransport.RouterConfig{
		Logger:    logger,
		Documents: httptransport.NewDocumentsHandler(svc, logger),
		Verify:    httptransport.NewVerifyHandler(coordinator, logger),
		Validator: jwttoken.NewService("scaffold-key", "veridoc", "issuing-offices"),
		Store:     memStore,
	})
}

func TestRouterScaffold(t *testing.T) {
	testutil.Given(t, "the HTTP router", func(t *testing.T) {
		router := newScaffoldRouter(t)

		testutil.When(t, "calling POST /documents without a token", func(t *testing.T) {
			req := httptest.NewRequest(http.MethodPost, "/documents", nil)
			rec := httptest.NewRecorder()

			router.ServeHTTP(rec, req)

			testutil.Then(t, "it should reject the request", func(t *testing.T) {
				if rec.Code != http.StatusUnauthorized {
					t.Fatalf("expected status %d, got %d", http.StatusUnauthorized, rec.Code)
				}
			})
		})

		testutil.When(t, "verifying an unknown reference anonymously", func(t *testing.T) {
			body := strings.NewReader(`{"referenceNumber":"BC-nope-00000000"}`)
			req := httptest.NewRequest(http.MethodPost, "/verify", body)
			rec := httptest.NewRecorder()

			router.ServeHTTP(rec, req)

			testutil.Then(t, "it should answer with a not_found verdict", func(t *testing.T) {
				if rec.Code != http.StatusOK {
					t.Fatalf("expected status %d, got %d", http.StatusOK, rec.Code)
				}
				if !strings.Contains(rec.Body.String(), `"not_found"`) {
					t.Fatalf("expected not_found verdict, got %s", rec.Body.String())
				}
			})
		})

		testutil.When(t, "probing /healthz", func(t *testing.T) {
			req := httptest.NewRequest(http.MethodGet, "/healthz", nil)
			rec := httptest.NewRecorder()

			router.ServeHTTP(rec, req)

			testutil.Then(t, "it should report ok", func(t *testing.T) {
				if rec.Code != http.StatusOK {
					t.Fatalf("expected status %d, got %d", http.StatusOK, rec.Code)
				}
			})
		})
	})
}
