package httptransport

import (
	"context"
	"log/slog"
	"net/http"
	"strconv"
	"time"

	"github.com/go-chi/chi/v5"

	"custos/internal/retention"
	id "custos/pkg/domain"
	dErrors "custos/pkg/domain-errors"
	"custos/pkg/platform/httputil"
	"custos/pkg/requestcontext"
)

// RetentionService defines the scheduler operations the transport exposes.
type RetentionService interface {
	CreatePolicy(ctx context.Context, params retention.CreatePolicyParams) (*retention.RetentionPolicy, error)
	CreateSchedule(ctx context.Context, dataRef string, policyID id.PolicyID) (*retention.RetentionSchedule, error)
	ApplyLegalHold(ctx context.Context, scheduleID id.ScheduleID, until time.Time) (*retention.RetentionSchedule, error)
	ReleaseLegalHold(ctx context.Context, scheduleID id.ScheduleID) (*retention.RetentionSchedule, error)
	ProcessScheduledDeletions(ctx context.Context) (retention.SweepResult, error)
	GetUpcomingDeletions(ctx context.Context, withinDays int) ([]*retention.RetentionSchedule, error)
}

// RetentionHandler wires retention endpoints to the scheduler.
type RetentionHandler struct {
	service RetentionService
	logger  *slog.Logger
}

func NewRetentionHandler(service RetentionService, logger *slog.Logger) *RetentionHandler {
	return &RetentionHandler{service: service, logger: logger}
}

// Register mounts retention endpoints on the router.
func (h *RetentionHandler) Register(r chi.Router) {
	r.Post("/retention/policies", h.HandleCreatePolicy)
	r.Post("/retention/schedules", h.HandleCreateSchedule)
	r.Post("/retention/schedules/{scheduleID}/hold", h.HandleApplyHold)
	r.Delete("/retention/schedules/{scheduleID}/hold", h.HandleReleaseHold)
	r.Post("/retention/sweep", h.HandleSweep)
	r.Get("/retention/upcoming", h.HandleUpcoming)
}

type createPolicyRequest struct {
	TenantID      string `json:"tenant_id"`
	Category      string `json:"category"`
	WindowSeconds *int64 `json:"window_seconds,omitempty"`
}

func (r *createPolicyRequest) Validate() error {
	if _, err := id.ParseTenantID(r.TenantID); err != nil {
		return dErrors.New(dErrors.CodeInvalidInput, "tenant_id is malformed")
	}
	return nil
}

// HandleCreatePolicy handles POST /retention/policies. Omitting
// window_seconds means indefinite retention.
func (h *RetentionHandler) HandleCreatePolicy(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	requestID := requestcontext.RequestID(ctx)

	req, ok := httputil.DecodeAndPrepare[createPolicyRequest](w, r, h.logger, ctx, requestID)
	if !ok {
		return
	}
	tenantID, _ := id.ParseTenantID(req.TenantID)

	params := retention.CreatePolicyParams{TenantID: tenantID, Category: req.Category}
	if req.WindowSeconds != nil {
		window := time.Duration(*req.WindowSeconds) * time.Second
		params.Window = &window
	}

	policy, err := h.service.CreatePolicy(ctx, params)
	if err != nil {
		httputil.WriteError(w, err)
		return
	}
	h.logger.InfoContext(ctx, "retention policy created",
		"request_id", requestID,
		"policy_id", policy.ID,
	)
	httputil.WriteJSON(w, http.StatusCreated, policy)
}

type createScheduleRequest struct {
	DataRef  string `json:"data_ref"`
	PolicyID string `json:"policy_id"`
}

func (r *createScheduleRequest) Validate() error {
	if _, err := id.ParsePolicyID(r.PolicyID); err != nil {
		return dErrors.New(dErrors.CodeInvalidInput, "policy_id is malformed")
	}
	return nil
}

// HandleCreateSchedule handles POST /retention/schedules.
func (h *RetentionHandler) HandleCreateSchedule(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	requestID := requestcontext.RequestID(ctx)

	req, ok := httputil.DecodeAndPrepare[createScheduleRequest](w, r, h.logger, ctx, requestID)
	if !ok {
		return
	}
	policyID, _ := id.ParsePolicyID(req.PolicyID)

	schedule, err := h.service.CreateSchedule(ctx, req.DataRef, policyID)
	if err != nil {
		httputil.WriteError(w, err)
		return
	}
	httputil.WriteJSON(w, http.StatusCreated, schedule)
}

type applyHoldRequest struct {
	Until time.Time `json:"until"`
}

// HandleApplyHold handles POST /retention/schedules/{scheduleID}/hold.
func (h *RetentionHandler) HandleApplyHold(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	requestID := requestcontext.RequestID(ctx)

	scheduleID, err := id.ParseScheduleID(chi.URLParam(r, "scheduleID"))
	if err != nil {
		httputil.WriteError(w, dErrors.New(dErrors.CodeInvalidInput, "schedule id is malformed"))
		return
	}
	req, ok := httputil.DecodeAndPrepare[applyHoldRequest](w, r, h.logger, ctx, requestID)
	if !ok {
		return
	}

	schedule, err := h.service.ApplyLegalHold(ctx, scheduleID, req.Until)
	if err != nil {
		httputil.WriteError(w, err)
		return
	}
	h.logger.InfoContext(ctx, "legal hold applied",
		"request_id", requestID,
		"schedule_id", schedule.ID,
	)
	httputil.WriteJSON(w, http.StatusOK, schedule)
}

// HandleReleaseHold handles DELETE /retention/schedules/{scheduleID}/hold.
func (h *RetentionHandler) HandleReleaseHold(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	scheduleID, err := id.ParseScheduleID(chi.URLParam(r, "scheduleID"))
	if err != nil {
		httputil.WriteError(w, dErrors.New(dErrors.CodeInvalidInput, "schedule id is malformed"))
		return
	}
	schedule, err := h.service.ReleaseLegalHold(ctx, scheduleID)
	if err != nil {
		httputil.WriteError(w, err)
		return
	}
	httputil.WriteJSON(w, http.StatusOK, schedule)
}

// HandleSweep handles POST /retention/sweep, the periodic external trigger
// for scheduled deletions.
func (h *RetentionHandler) HandleSweep(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	result, err := h.service.ProcessScheduledDeletions(ctx)
	if err != nil {
		h.logger.ErrorContext(ctx, "retention sweep failed",
			"request_id", requestcontext.RequestID(ctx),
			"error", err,
		)
		httputil.WriteError(w, err)
		return
	}
	httputil.WriteJSON(w, http.StatusOK, result)
}

// HandleUpcoming handles GET /retention/upcoming?within_days=N.
func (h *RetentionHandler) HandleUpcoming(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	withinDays := 7
	if raw := r.URL.Query().Get("within_days"); raw != "" {
		parsed, err := strconv.Atoi(raw)
		if err != nil {
			httputil.WriteError(w, dErrors.New(dErrors.CodeInvalidInput, "within_days must be an integer"))
			return
		}
		withinDays = parsed
	}

	schedules, err := h.service.GetUpcomingDeletions(ctx, withinDays)
	if err != nil {
		httputil.WriteError(w, err)
		return
	}
	httputil.WriteJSON(w, http.StatusOK, map[string]any{"schedules": schedules})
}
