package httptransport

import (
	"context"
	"log/slog"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"

	"custos/internal/consent"
	id "custos/pkg/domain"
	dErrors "custos/pkg/domain-errors"
	"custos/pkg/platform/httputil"
	"custos/pkg/requestcontext"
)

// ConsentService defines the consent operations the transport exposes.
type ConsentService interface {
	Grant(ctx context.Context, subject id.SubjectID, scope id.ConsentScope, opts consent.GrantOptions) (*consent.Record, error)
	Modify(ctx context.Context, subject id.SubjectID, scope id.ConsentScope, opts consent.GrantOptions) (*consent.Record, error)
	Revoke(ctx context.Context, subject id.SubjectID, scope id.ConsentScope) error
	RevokeAll(ctx context.Context, subject id.SubjectID) (int, error)
	CheckStatus(ctx context.Context, subject id.SubjectID, scope id.ConsentScope) consent.StatusResult
	ProcessExpired(ctx context.Context) (int, error)
}

// ConsentHandler wires consent endpoints to the consent service.
type ConsentHandler struct {
	service ConsentService
	logger  *slog.Logger
}

func NewConsentHandler(service ConsentService, logger *slog.Logger) *ConsentHandler {
	return &ConsentHandler{service: service, logger: logger}
}

// Register mounts consent endpoints on the router.
func (h *ConsentHandler) Register(r chi.Router) {
	r.Post("/consent/grants", h.HandleGrant)
	r.Patch("/consent/grants/{scope}", h.HandleModify)
	r.Get("/consent/grants/{scope}", h.HandleStatus)
	r.Delete("/consent/grants/{scope}", h.HandleRevoke)
	r.Delete("/consent/grants", h.HandleRevokeAll)
	r.Post("/consent/sweep", h.HandleSweep)
}

type grantRequest struct {
	Scope      string `json:"scope"`
	TTLSeconds int64  `json:"ttl_seconds,omitempty"`
	Condition  string `json:"condition,omitempty"`
}

func (r *grantRequest) Validate() error {
	if _, err := id.ParseConsentScope(r.Scope); err != nil {
		return err
	}
	if r.TTLSeconds < 0 {
		return dErrors.New(dErrors.CodeInvalidInput, "ttl_seconds cannot be negative")
	}
	return nil
}

// HandleGrant handles POST /consent/grants.
func (h *ConsentHandler) HandleGrant(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	requestID := requestcontext.RequestID(ctx)

	subject, ok := h.subject(w, ctx)
	if !ok {
		return
	}
	req, ok := httputil.DecodeAndPrepare[grantRequest](w, r, h.logger, ctx, requestID)
	if !ok {
		return
	}

	scope, _ := id.ParseConsentScope(req.Scope)
	record, err := h.service.Grant(ctx, subject, scope, consent.GrantOptions{
		TTL:       time.Duration(req.TTLSeconds) * time.Second,
		Condition: req.Condition,
	})
	if err != nil {
		h.logger.ErrorContext(ctx, "consent grant failed",
			"request_id", requestID,
			"scope", req.Scope,
			"error", err,
		)
		httputil.WriteError(w, err)
		return
	}

	h.logger.InfoContext(ctx, "consent granted",
		"request_id", requestID,
		"scope", req.Scope,
		"consent_id", record.ID,
	)
	httputil.WriteJSON(w, http.StatusCreated, record)
}

type modifyRequest struct {
	TTLSeconds int64  `json:"ttl_seconds,omitempty"`
	Condition  string `json:"condition,omitempty"`
}

func (r *modifyRequest) Validate() error {
	if r.TTLSeconds < 0 {
		return dErrors.New(dErrors.CodeInvalidInput, "ttl_seconds cannot be negative")
	}
	return nil
}

// HandleModify handles PATCH /consent/grants/{scope}. Modification requires
// an active grant; the prior record is superseded, never rewritten.
func (h *ConsentHandler) HandleModify(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	requestID := requestcontext.RequestID(ctx)

	subject, ok := h.subject(w, ctx)
	if !ok {
		return
	}
	scope, err := id.ParseConsentScope(chi.URLParam(r, "scope"))
	if err != nil {
		httputil.WriteError(w, err)
		return
	}
	req, ok := httputil.DecodeAndPrepare[modifyRequest](w, r, h.logger, ctx, requestID)
	if !ok {
		return
	}

	record, err := h.service.Modify(ctx, subject, scope, consent.GrantOptions{
		TTL:       time.Duration(req.TTLSeconds) * time.Second,
		Condition: req.Condition,
	})
	if err != nil {
		h.logger.ErrorContext(ctx, "consent modify failed",
			"request_id", requestID,
			"scope", scope,
			"error", err,
		)
		httputil.WriteError(w, err)
		return
	}

	h.logger.InfoContext(ctx, "consent modified",
		"request_id", requestID,
		"scope", scope,
		"consent_id", record.ID,
	)
	httputil.WriteJSON(w, http.StatusOK, record)
}

// HandleStatus handles GET /consent/grants/{scope}.
func (h *ConsentHandler) HandleStatus(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	subject, ok := h.subject(w, ctx)
	if !ok {
		return
	}
	scope, err := id.ParseConsentScope(chi.URLParam(r, "scope"))
	if err != nil {
		httputil.WriteError(w, err)
		return
	}

	httputil.WriteJSON(w, http.StatusOK, h.service.CheckStatus(ctx, subject, scope))
}

// HandleRevoke handles DELETE /consent/grants/{scope}.
func (h *ConsentHandler) HandleRevoke(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	requestID := requestcontext.RequestID(ctx)

	subject, ok := h.subject(w, ctx)
	if !ok {
		return
	}
	scope, err := id.ParseConsentScope(chi.URLParam(r, "scope"))
	if err != nil {
		httputil.WriteError(w, err)
		return
	}

	if err := h.service.Revoke(ctx, subject, scope); err != nil {
		httputil.WriteError(w, err)
		return
	}
	h.logger.InfoContext(ctx, "consent revoked",
		"request_id", requestID,
		"scope", scope,
	)
	w.WriteHeader(http.StatusNoContent)
}

// HandleRevokeAll handles DELETE /consent/grants.
func (h *ConsentHandler) HandleRevokeAll(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	subject, ok := h.subject(w, ctx)
	if !ok {
		return
	}
	count, err := h.service.RevokeAll(ctx, subject)
	if err != nil {
		httputil.WriteError(w, err)
		return
	}
	httputil.WriteJSON(w, http.StatusOK, map[string]int{"revoked": count})
}

// HandleSweep handles POST /consent/sweep, the periodic external trigger
// for expiry processing.
func (h *ConsentHandler) HandleSweep(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	count, err := h.service.ProcessExpired(ctx)
	if err != nil {
		h.logger.ErrorContext(ctx, "consent sweep failed",
			"request_id", requestcontext.RequestID(ctx),
			"error", err,
		)
		httputil.WriteError(w, err)
		return
	}
	httputil.WriteJSON(w, http.StatusOK, map[string]int{"expired": count})
}

func (h *ConsentHandler) subject(w http.ResponseWriter, ctx context.Context) (id.SubjectID, bool) {
	raw := requestcontext.Subject(ctx)
	if raw == "" {
		httputil.WriteError(w, dErrors.New(dErrors.CodeUnauthorized, "authentication required"))
		return id.SubjectID{}, false
	}
	subject, err := id.ParseSubjectID(raw)
	if err != nil {
		httputil.WriteError(w, dErrors.New(dErrors.CodeUnauthorized, "malformed subject identifier"))
		return id.SubjectID{}, false
	}
	return subject, true
}
