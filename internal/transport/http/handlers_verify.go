package httptransport

import (
	"context"
	"encoding/json"
	"log/slog"
	"net/http"
	"strings"

	"github.com/go-chi/chi/v5"

	"veridoc/internal/transport/http/shared"
	"veridoc/internal/verify"
	dErrors "veridoc/pkg/domain-errors"
	"veridoc/pkg/requestcontext"
)

// Verifier is the coordinator surface the verification endpoint needs.
type Verifier interface {
	Verify(ctx context.Context, input string) (verify.Result, error)
}

type verifyRequest struct {
	Payload         string `json:"payload,omitempty"`
	ReferenceNumber string `json:"referenceNumber,omitempty"`
}

// VerifyHandler serves the public verification endpoint. Anyone holding a
// document or its code may check it; no authentication required.
type VerifyHandler struct {
	verifier Verifier
	logger   *slog.Logger
}

func NewVerifyHandler(verifier Verifier, logger *slog.Logger) *VerifyHandler {
	return &VerifyHandler{verifier: verifier, logger: logger}
}

func (h *VerifyHandler) Register(r chi.Router) {
	r.Post("/verify", h.handleVerify)
}

func (h *VerifyHandler) handleVerify(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	var req verifyRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		shared.WriteError(w, dErrors.New(dErrors.CodeInvalidInput, "invalid request body"))
		return
	}

	input := strings.TrimSpace(req.Payload)
	if input == "" {
		input = strings.TrimSpace(req.ReferenceNumber)
	}
	if input == "" {
		shared.WriteError(w, dErrors.New(dErrors.CodeInvalidInput, "payload or referenceNumber is required"))
		return
	}

	result, err := h.verifier.Verify(ctx, input)
	if err != nil {
		if !dErrors.HasCode(err, dErrors.CodeInvalidInput) {
			h.logger.ErrorContext(ctx, "verification failed",
				"error", err,
				"request_id", requestcontext.RequestID(ctx),
			)
		}
		shared.WriteError(w, err)
		return
	}

	shared.WriteJSON(w, http.StatusOK, result)
}
