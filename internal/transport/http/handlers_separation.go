package httptransport

import (
	"context"
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"

	"custos/internal/separation"
	id "custos/pkg/domain"
	dErrors "custos/pkg/domain-errors"
	"custos/pkg/platform/httputil"
	"custos/pkg/requestcontext"
)

// SeparationService defines the identity/pattern operations the transport
// exposes.
type SeparationService interface {
	RegisterIdentity(ctx context.Context, params separation.RegisterIdentityParams) (*separation.IdentityRecord, error)
	GetIdentity(ctx context.Context, identityID id.IdentityID) (*separation.IdentityRecord, error)
	RecordPattern(ctx context.Context, opaqueRef, kind string, attributes map[string]string) (*separation.PatternRecord, error)
	ListPatterns(ctx context.Context, opaqueRef string) ([]*separation.PatternRecord, error)
	PurgeIdentity(ctx context.Context, identityID id.IdentityID) (separation.PurgeResult, error)
}

// SeparationHandler wires identity and pattern endpoints to the separation
// service.
type SeparationHandler struct {
	service SeparationService
	logger  *slog.Logger
}

func NewSeparationHandler(service SeparationService, logger *slog.Logger) *SeparationHandler {
	return &SeparationHandler{service: service, logger: logger}
}

// Register mounts separation endpoints on the router.
func (h *SeparationHandler) Register(r chi.Router) {
	r.Post("/identities", h.HandleRegister)
	r.Get("/identities/{identityID}", h.HandleGet)
	r.Delete("/identities/{identityID}", h.HandlePurge)
	r.Post("/patterns", h.HandleRecordPattern)
	r.Get("/patterns/{opaqueRef}", h.HandleListPatterns)
}

type registerIdentityRequest struct {
	TenantID    string `json:"tenant_id"`
	DisplayName string `json:"display_name"`
	Email       string `json:"email,omitempty"`
}

func (r *registerIdentityRequest) Validate() error {
	if _, err := id.ParseTenantID(r.TenantID); err != nil {
		return dErrors.New(dErrors.CodeInvalidInput, "tenant_id is malformed")
	}
	return nil
}

// HandleRegister handles POST /identities.
func (h *SeparationHandler) HandleRegister(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	requestID := requestcontext.RequestID(ctx)

	req, ok := httputil.DecodeAndPrepare[registerIdentityRequest](w, r, h.logger, ctx, requestID)
	if !ok {
		return
	}
	tenantID, _ := id.ParseTenantID(req.TenantID)

	record, err := h.service.RegisterIdentity(ctx, separation.RegisterIdentityParams{
		TenantID:    tenantID,
		DisplayName: req.DisplayName,
		Email:       req.Email,
	})
	if err != nil {
		httputil.WriteError(w, err)
		return
	}
	httputil.WriteJSON(w, http.StatusCreated, record)
}

// HandleGet handles GET /identities/{identityID}.
func (h *SeparationHandler) HandleGet(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	identityID, err := id.ParseIdentityID(chi.URLParam(r, "identityID"))
	if err != nil {
		httputil.WriteError(w, dErrors.New(dErrors.CodeInvalidInput, "identity id is malformed"))
		return
	}
	record, err := h.service.GetIdentity(ctx, identityID)
	if err != nil {
		httputil.WriteError(w, err)
		return
	}
	httputil.WriteJSON(w, http.StatusOK, record)
}

// HandlePurge handles DELETE /identities/{identityID}. A partial failure
// still returns the per-step result alongside the error status, so the
// caller can see exactly what was and was not removed.
func (h *SeparationHandler) HandlePurge(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	requestID := requestcontext.RequestID(ctx)

	identityID, err := id.ParseIdentityID(chi.URLParam(r, "identityID"))
	if err != nil {
		httputil.WriteError(w, dErrors.New(dErrors.CodeInvalidInput, "identity id is malformed"))
		return
	}

	result, err := h.service.PurgeIdentity(ctx, identityID)
	if err != nil {
		h.logger.ErrorContext(ctx, "identity purge incomplete",
			"request_id", requestID,
			"identity_id", identityID,
			"error", err,
		)
		if dErrors.HasCode(err, dErrors.CodeNotFound) {
			httputil.WriteError(w, err)
			return
		}
		httputil.WriteJSON(w, http.StatusInternalServerError, result)
		return
	}

	h.logger.InfoContext(ctx, "identity purged",
		"request_id", requestID,
		"identity_id", identityID,
		"patterns_purged", result.PatternsPurged,
	)
	httputil.WriteJSON(w, http.StatusOK, result)
}

type recordPatternRequest struct {
	OpaqueRef  string            `json:"opaque_ref"`
	Kind       string            `json:"kind"`
	Attributes map[string]string `json:"attributes,omitempty"`
}

// HandleRecordPattern handles POST /patterns.
func (h *SeparationHandler) HandleRecordPattern(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	requestID := requestcontext.RequestID(ctx)

	req, ok := httputil.DecodeAndPrepare[recordPatternRequest](w, r, h.logger, ctx, requestID)
	if !ok {
		return
	}

	record, err := h.service.RecordPattern(ctx, req.OpaqueRef, req.Kind, req.Attributes)
	if err != nil {
		httputil.WriteError(w, err)
		return
	}
	httputil.WriteJSON(w, http.StatusCreated, record)
}

// HandleListPatterns handles GET /patterns/{opaqueRef}.
func (h *SeparationHandler) HandleListPatterns(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	records, err := h.service.ListPatterns(ctx, chi.URLParam(r, "opaqueRef"))
	if err != nil {
		httputil.WriteError(w, err)
		return
	}
	httputil.WriteJSON(w, http.StatusOK, map[string]any{"patterns": records})
}
