package httptransport

import (
	"context"
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"

	"custos/internal/enforcement"
	"custos/internal/tenantgate/models"
	id "custos/pkg/domain"
	dErrors "custos/pkg/domain-errors"
	"custos/pkg/platform/httputil"
	"custos/pkg/requestcontext"
)

// EnforcementService defines the three caller-facing checkpoints.
type EnforcementService interface {
	CheckSignup(ctx context.Context, email string, requestedClass models.DeploymentClass) enforcement.Decision
	CheckCheckout(ctx context.Context, account models.Account, productClass models.DeploymentClass) enforcement.Decision
	ValidateAPIRequest(ctx context.Context, req enforcement.APIRequest) enforcement.Decision
}

// AccountResolver loads the account a checkout decision is about.
type AccountResolver interface {
	GetAccount(ctx context.Context, accountID id.AccountID) (models.Account, error)
}

// EnforcementHandler wires the enforcement checkpoints to HTTP. Decisions,
// including denials, are 200 responses: the caller must branch on the
// structured result, not on transport status.
type EnforcementHandler struct {
	service  EnforcementService
	accounts AccountResolver
	logger   *slog.Logger
}

func NewEnforcementHandler(service EnforcementService, accounts AccountResolver, logger *slog.Logger) *EnforcementHandler {
	return &EnforcementHandler{service: service, accounts: accounts, logger: logger}
}

// Register mounts enforcement endpoints on the router.
func (h *EnforcementHandler) Register(r chi.Router) {
	r.Post("/enforce/signup", h.HandleSignup)
	r.Post("/enforce/checkout", h.HandleCheckout)
	r.Post("/enforce/validate", h.HandleValidate)
}

type signupCheckRequest struct {
	Email          string `json:"email"`
	RequestedClass string `json:"requested_class"`
}

// HandleSignup handles POST /enforce/signup.
func (h *EnforcementHandler) HandleSignup(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	requestID := requestcontext.RequestID(ctx)

	req, ok := httputil.DecodeAndPrepare[signupCheckRequest](w, r, h.logger, ctx, requestID)
	if !ok {
		return
	}

	decision := h.service.CheckSignup(ctx, req.Email, models.DeploymentClass(req.RequestedClass))
	httputil.WriteJSON(w, http.StatusOK, decision)
}

type checkoutCheckRequest struct {
	AccountID    string `json:"account_id"`
	ProductClass string `json:"product_class"`
}

func (r *checkoutCheckRequest) Validate() error {
	if _, err := id.ParseAccountID(r.AccountID); err != nil {
		return dErrors.New(dErrors.CodeInvalidInput, "account_id is malformed")
	}
	return nil
}

// HandleCheckout handles POST /enforce/checkout. An account that cannot be
// loaded denies fail-closed rather than erroring: checkout callers need a
// decision either way.
func (h *EnforcementHandler) HandleCheckout(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	requestID := requestcontext.RequestID(ctx)

	req, ok := httputil.DecodeAndPrepare[checkoutCheckRequest](w, r, h.logger, ctx, requestID)
	if !ok {
		return
	}
	accountID, _ := id.ParseAccountID(req.AccountID)

	account, err := h.accounts.GetAccount(ctx, accountID)
	if err != nil {
		h.logger.WarnContext(ctx, "checkout account unavailable, denying",
			"request_id", requestID,
			"error", err,
		)
		account = nil
	}

	decision := h.service.CheckCheckout(ctx, account, models.DeploymentClass(req.ProductClass))
	httputil.WriteJSON(w, http.StatusOK, decision)
}

type validateRequest struct {
	Operation     string `json:"operation,omitempty"`
	AccountID     string `json:"account_id,omitempty"`
	RequiredClass string `json:"required_class,omitempty"`
	RequiredScope string `json:"required_scope,omitempty"`
}

// HandleValidate handles POST /enforce/validate, the generic checkpoint.
// The subject comes from the authenticated context, never the body.
func (h *EnforcementHandler) HandleValidate(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	requestID := requestcontext.RequestID(ctx)

	req, ok := httputil.DecodeAndPrepare[validateRequest](w, r, h.logger, ctx, requestID)
	if !ok {
		return
	}

	apiReq := enforcement.APIRequest{
		Operation:     req.Operation,
		RequiredClass: models.DeploymentClass(req.RequiredClass),
		RequiredScope: id.ConsentScope(req.RequiredScope),
	}
	if req.AccountID != "" {
		accountID, err := id.ParseAccountID(req.AccountID)
		if err != nil {
			httputil.WriteError(w, dErrors.New(dErrors.CodeInvalidInput, "account_id is malformed"))
			return
		}
		apiReq.AccountID = accountID
	}
	if raw := requestcontext.Subject(ctx); raw != "" {
		subject, err := id.ParseSubjectID(raw)
		if err != nil {
			httputil.WriteError(w, dErrors.New(dErrors.CodeUnauthorized, "malformed subject identifier"))
			return
		}
		apiReq.Subject = subject
	}

	decision := h.service.ValidateAPIRequest(ctx, apiReq)
	httputil.WriteJSON(w, http.StatusOK, decision)
}
