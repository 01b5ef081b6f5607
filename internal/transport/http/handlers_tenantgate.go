package httptransport

import (
	"context"
	"log/slog"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"

	"custos/internal/tenantgate"
	"custos/internal/tenantgate/models"
	id "custos/pkg/domain"
	dErrors "custos/pkg/domain-errors"
	"custos/pkg/platform/httputil"
	"custos/pkg/requestcontext"
)

// TenantGateService defines the gate operations the transport exposes.
type TenantGateService interface {
	Classify(ctx context.Context, email string) tenantgate.Classification
	ProvisionRelational(ctx context.Context, p tenantgate.ProvisionRelationalParams) (tenantgate.ProvisionResult, error)
	ProvisionInstitutional(ctx context.Context, p tenantgate.ProvisionInstitutionalParams) (tenantgate.ProvisionResult, error)
	GetAccount(ctx context.Context, accountID id.AccountID) (models.Account, error)
}

// TenantGateHandler wires account provisioning endpoints to the gate.
type TenantGateHandler struct {
	service TenantGateService
	logger  *slog.Logger
}

func NewTenantGateHandler(service TenantGateService, logger *slog.Logger) *TenantGateHandler {
	return &TenantGateHandler{service: service, logger: logger}
}

// Register mounts tenant-gate endpoints on the router.
func (h *TenantGateHandler) Register(r chi.Router) {
	r.Post("/accounts/classify", h.HandleClassify)
	r.Post("/accounts/relational", h.HandleProvisionRelational)
	r.Post("/accounts/institutional", h.HandleProvisionInstitutional)
	r.Get("/accounts/{accountID}", h.HandleGetAccount)
}

type classifyRequest struct {
	Email string `json:"email"`
}

// HandleClassify handles POST /accounts/classify.
func (h *TenantGateHandler) HandleClassify(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	requestID := requestcontext.RequestID(ctx)

	req, ok := httputil.DecodeAndPrepare[classifyRequest](w, r, h.logger, ctx, requestID)
	if !ok {
		return
	}

	classification := h.service.Classify(ctx, req.Email)
	body := map[string]any{"class": classification.Class}
	if classification.Match != nil {
		body["restricted_domain"] = classification.Match.Domain
		body["enforcement"] = classification.Match.Enforcement
	}
	httputil.WriteJSON(w, http.StatusOK, body)
}

type provisionRelationalRequest struct {
	TenantID              string    `json:"tenant_id"`
	Email                 string    `json:"email"`
	BundleSize            int       `json:"bundle_size"`
	Members               []string  `json:"members"`
	ConsentAcknowledgedAt time.Time `json:"consent_acknowledged_at"`
}

func (r *provisionRelationalRequest) Validate() error {
	if _, err := id.ParseTenantID(r.TenantID); err != nil {
		return dErrors.New(dErrors.CodeInvalidInput, "tenant_id is malformed")
	}
	if r.Email == "" {
		return dErrors.New(dErrors.CodeInvalidInput, "email is required")
	}
	return nil
}

// HandleProvisionRelational handles POST /accounts/relational. A denial is
// a 200 with allowed=false: the caller branches on the decision, it is not
// a transport fault.
func (h *TenantGateHandler) HandleProvisionRelational(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	requestID := requestcontext.RequestID(ctx)

	req, ok := httputil.DecodeAndPrepare[provisionRelationalRequest](w, r, h.logger, ctx, requestID)
	if !ok {
		return
	}
	tenantID, _ := id.ParseTenantID(req.TenantID)

	result, err := h.service.ProvisionRelational(ctx, tenantgate.ProvisionRelationalParams{
		TenantID:              tenantID,
		Email:                 req.Email,
		BundleSize:            req.BundleSize,
		Members:               req.Members,
		ConsentAcknowledgedAt: req.ConsentAcknowledgedAt,
	})
	if err != nil {
		h.logger.ErrorContext(ctx, "relational provisioning failed",
			"request_id", requestID,
			"error", err,
		)
		httputil.WriteError(w, err)
		return
	}
	writeProvisionResult(w, result)
}

type provisionInstitutionalRequest struct {
	TenantID   string   `json:"tenant_id"`
	SeatCount  int      `json:"seat_count"`
	Units      []string `json:"units"`
	ContractID string   `json:"contract_id"`
}

func (r *provisionInstitutionalRequest) Validate() error {
	if _, err := id.ParseTenantID(r.TenantID); err != nil {
		return dErrors.New(dErrors.CodeInvalidInput, "tenant_id is malformed")
	}
	return nil
}

// HandleProvisionInstitutional handles POST /accounts/institutional.
func (h *TenantGateHandler) HandleProvisionInstitutional(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	requestID := requestcontext.RequestID(ctx)

	req, ok := httputil.DecodeAndPrepare[provisionInstitutionalRequest](w, r, h.logger, ctx, requestID)
	if !ok {
		return
	}
	tenantID, _ := id.ParseTenantID(req.TenantID)

	result, err := h.service.ProvisionInstitutional(ctx, tenantgate.ProvisionInstitutionalParams{
		TenantID:   tenantID,
		SeatCount:  req.SeatCount,
		Units:      req.Units,
		ContractID: req.ContractID,
	})
	if err != nil {
		h.logger.ErrorContext(ctx, "institutional provisioning failed",
			"request_id", requestID,
			"error", err,
		)
		httputil.WriteError(w, err)
		return
	}
	writeProvisionResult(w, result)
}

// HandleGetAccount handles GET /accounts/{accountID}.
func (h *TenantGateHandler) HandleGetAccount(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	accountID, err := id.ParseAccountID(chi.URLParam(r, "accountID"))
	if err != nil {
		httputil.WriteError(w, dErrors.New(dErrors.CodeInvalidInput, "account id is malformed"))
		return
	}
	account, err := h.service.GetAccount(ctx, accountID)
	if err != nil {
		httputil.WriteError(w, err)
		return
	}
	httputil.WriteJSON(w, http.StatusOK, accountView(account))
}

func writeProvisionResult(w http.ResponseWriter, result tenantgate.ProvisionResult) {
	body := map[string]any{"allowed": result.Allowed}
	if result.Reason != "" {
		body["reason"] = result.Reason
	}
	if result.Account != nil {
		body["account"] = accountView(result.Account)
	}
	status := http.StatusOK
	if result.Allowed && result.Account != nil {
		status = http.StatusCreated
	}
	httputil.WriteJSON(w, status, body)
}

// accountView renders the class-specific shape. The two cases are the whole
// sum type; the sealed interface guarantees no third shape can appear.
func accountView(account models.Account) map[string]any {
	switch a := account.(type) {
	case *models.RelationalAccount:
		return map[string]any{
			"id":                      a.ID,
			"class":                   a.Class(),
			"tenant_id":               a.TenantID,
			"bundle_size":             a.BundleSize,
			"members":                 a.Members,
			"consent_acknowledged_at": a.ConsentAcknowledgedAt,
			"created_at":              a.CreatedAt,
		}
	case *models.InstitutionalAccount:
		return map[string]any{
			"id":          a.ID,
			"class":       a.Class(),
			"tenant_id":   a.TenantID,
			"seat_count":  a.SeatCount,
			"units":       a.Units,
			"contract_id": a.ContractID,
			"created_at":  a.CreatedAt,
		}
	default:
		return map[string]any{"id": account.AccountID(), "class": account.Class()}
	}
}
