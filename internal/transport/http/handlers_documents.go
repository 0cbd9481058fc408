package httptransport

import (
	"context"
	"encoding/json"
	"log/slog"
	"net/http"
	"strings"
	"time"

	"github.com/go-chi/chi/v5"

	"veridoc/internal/document"
	"veridoc/internal/document/models"
	"veridoc/internal/transport/http/shared"
	dErrors "veridoc/pkg/domain-errors"
	"veridoc/pkg/requestcontext"
)

// IssuanceService is the slice of the document service the handlers need.
type IssuanceService interface {
	Issue(ctx context.Context, docType models.DocumentType, holderFields models.HolderFields, validity time.Duration) (document.IssuedDocument, error)
	Get(ctx context.Context, reference string) (models.DocumentMetadata, error)
	Revoke(ctx context.Context, reference, reason string) (models.DocumentMetadata, error)
}

// defaultValidity supplies the per-type validity window when the request
// leaves validityDays unset. Civil certificates effectively do not expire.
var defaultValidity = map[models.DocumentType]time.Duration{
	models.TypeBirthCertificate:    100 * 365 * 24 * time.Hour,
	models.TypeDeathCertificate:    100 * 365 * 24 * time.Hour,
	models.TypeMarriageCertificate: 100 * 365 * 24 * time.Hour,
	models.TypePassport:            10 * 365 * 24 * time.Hour,
	models.TypeIdentityCard:        5 * 365 * 24 * time.Hour,
	models.TypeWorkPermit:          2 * 365 * 24 * time.Hour,
}

type issueRequest struct {
	DocumentType string              `json:"documentType"`
	HolderFields models.HolderFields `json:"holderFields"`
	ValidityDays int                 `json:"validityDays,omitempty"`
}

type revokeRequest struct {
	Reason string `json:"reason"`
}

type documentResponse struct {
	ReferenceNumber     string              `json:"referenceNumber"`
	DocumentType        string              `json:"documentType"`
	HolderFields        models.HolderFields `json:"holderFields"`
	IssuedAt            time.Time           `json:"issuedAt"`
	ValidUntil          time.Time           `json:"validUntil"`
	ContentHash         string              `json:"contentHash"`
	VerificationPayload string              `json:"verificationPayload"`
	Status              string              `json:"status"`
	StatusChangedAt     *time.Time          `json:"statusChangedAt,omitempty"`
	StatusReason        string              `json:"statusReason,omitempty"`
}

type issueResponse struct {
	Document documentResponse `json:"document"`
	Artifact []byte           `json:"artifact"`
}

func toDocumentResponse(md models.DocumentMetadata) documentResponse {
	resp := documentResponse{
		ReferenceNumber:     md.ReferenceNumber,
		DocumentType:        string(md.DocumentType),
		HolderFields:        md.HolderFields,
		IssuedAt:            md.IssuedAt,
		ValidUntil:          md.ValidUntil,
		ContentHash:         md.ContentHash,
		VerificationPayload: md.VerificationPayload,
		Status:              string(md.Status),
		StatusReason:        md.StatusReason,
	}
	if !md.StatusChangedAt.IsZero() {
		changed := md.StatusChangedAt
		resp.StatusChangedAt = &changed
	}
	return resp
}

// DocumentsHandler serves the issuing-office endpoints.
type DocumentsHandler struct {
	service IssuanceService
	logger  *slog.Logger
}

func NewDocumentsHandler(service IssuanceService, logger *slog.Logger) *DocumentsHandler {
	return &DocumentsHandler{service: service, logger: logger}
}

func (h *DocumentsHandler) Register(r chi.Router) {
	r.Post("/documents", h.handleIssue)
	r.Get("/documents/{reference}", h.handleGet)
	r.Post("/documents/{reference}/revoke", h.handleRevoke)
}

func (h *DocumentsHandler) handleIssue(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	var req issueRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		shared.WriteError(w, dErrors.New(dErrors.CodeInvalidInput, "invalid request body"))
		return
	}

	docType := models.DocumentType(req.DocumentType)
	validity, err := resolveValidity(docType, req.ValidityDays)
	if err != nil {
		shared.WriteError(w, err)
		return
	}

	issued, err := h.service.Issue(ctx, docType, req.HolderFields, validity)
	if err != nil {
		if !dErrors.HasCode(err, dErrors.CodeInvalidInput) {
			h.logger.ErrorContext(ctx, "issuance failed",
				"document_type", req.DocumentType,
				"error", err,
				"request_id", requestcontext.RequestID(ctx),
			)
		}
		shared.WriteError(w, err)
		return
	}

	shared.WriteJSON(w, http.StatusCreated, issueResponse{
		Document: toDocumentResponse(issued.Metadata),
		Artifact: issued.Artifact,
	})
}

func (h *DocumentsHandler) handleGet(w http.ResponseWriter, r *http.Request) {
	reference := chi.URLParam(r, "reference")

	md, err := h.service.Get(r.Context(), reference)
	if err != nil {
		shared.WriteError(w, err)
		return
	}

	shared.WriteJSON(w, http.StatusOK, toDocumentResponse(md))
}

func (h *DocumentsHandler) handleRevoke(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	reference := chi.URLParam(r, "reference")

	var req revokeRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		shared.WriteError(w, dErrors.New(dErrors.CodeInvalidInput, "invalid request body"))
		return
	}
	if strings.TrimSpace(req.Reason) == "" {
		shared.WriteError(w, dErrors.New(dErrors.CodeInvalidInput, "revocation reason is required"))
		return
	}

	md, err := h.service.Revoke(ctx, reference, req.Reason)
	if err != nil {
		shared.WriteError(w, err)
		return
	}

	shared.WriteJSON(w, http.StatusOK, toDocumentResponse(md))
}

func resolveValidity(docType models.DocumentType, validityDays int) (time.Duration, error) {
	if validityDays < 0 {
		return 0, dErrors.New(dErrors.CodeInvalidInput, "validityDays must not be negative")
	}
	if validityDays > 0 {
		return time.Duration(validityDays) * 24 * time.Hour, nil
	}
	validity, ok := defaultValidity[docType]
	if !ok {
		return 0, dErrors.Newf(dErrors.CodeInvalidInput, "unsupported document type %q", docType)
	}
	return validity, nil
}
