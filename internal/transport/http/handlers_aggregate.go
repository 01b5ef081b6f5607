package httptransport

import (
	"context"
	"log/slog"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"

	"custos/internal/aggregate"
	dErrors "custos/pkg/domain-errors"
	"custos/pkg/platform/httputil"
	"custos/pkg/requestcontext"
)

// AggregateService defines the aggregation operations the transport
// exposes. Callers submit the signal set under evaluation; the service is a
// pure gatekeeper over it.
type AggregateService interface {
	ComputeMetrics(ctx context.Context, unit string, signals []aggregate.RawSignal) aggregate.UnitMetrics
	ValidateFilteredView(ctx context.Context, all []aggregate.RawSignal, filter aggregate.SignalFilter) aggregate.FilterDecision
	ValidateExport(ctx context.Context, all []aggregate.RawSignal, req aggregate.ExportRequest) (aggregate.ExportDecision, error)
}

// AggregateHandler wires aggregate-view endpoints to the aggregator.
type AggregateHandler struct {
	service AggregateService
	logger  *slog.Logger
}

func NewAggregateHandler(service AggregateService, logger *slog.Logger) *AggregateHandler {
	return &AggregateHandler{service: service, logger: logger}
}

// Register mounts aggregate endpoints on the router.
func (h *AggregateHandler) Register(r chi.Router) {
	r.Post("/aggregate/metrics", h.HandleMetrics)
	r.Post("/aggregate/filter", h.HandleFilter)
	r.Post("/aggregate/export", h.HandleExport)
}

type signalPayload struct {
	Unit      string    `json:"unit"`
	State     string    `json:"state"`
	Timestamp time.Time `json:"timestamp"`
}

func decodeSignals(payload []signalPayload) ([]aggregate.RawSignal, error) {
	signals := make([]aggregate.RawSignal, 0, len(payload))
	for _, p := range payload {
		state := aggregate.SignalState(p.State)
		if !state.IsValid() {
			return nil, dErrors.New(dErrors.CodeInvalidInput, "unknown signal state")
		}
		if p.Unit == "" {
			return nil, dErrors.New(dErrors.CodeInvalidInput, "signal unit is required")
		}
		signals = append(signals, aggregate.RawSignal{Unit: p.Unit, State: state, Timestamp: p.Timestamp})
	}
	return signals, nil
}

type filterPayload struct {
	Unit   string    `json:"unit,omitempty"`
	States []string  `json:"states,omitempty"`
	From   time.Time `json:"from,omitempty"`
	To     time.Time `json:"to,omitempty"`
}

func (f filterPayload) toFilter() aggregate.SignalFilter {
	filter := aggregate.SignalFilter{Unit: f.Unit, From: f.From, To: f.To}
	for _, st := range f.States {
		filter.States = append(filter.States, aggregate.SignalState(st))
	}
	return filter
}

type metricsRequest struct {
	Unit    string          `json:"unit"`
	Signals []signalPayload `json:"signals"`
}

func (r *metricsRequest) Validate() error {
	if r.Unit == "" {
		return dErrors.New(dErrors.CodeInvalidInput, "unit is required")
	}
	return nil
}

// HandleMetrics handles POST /aggregate/metrics. The response is either
// fully visible metrics or the suppressed sentinel, never a mixture.
func (h *AggregateHandler) HandleMetrics(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	requestID := requestcontext.RequestID(ctx)

	req, ok := httputil.DecodeAndPrepare[metricsRequest](w, r, h.logger, ctx, requestID)
	if !ok {
		return
	}
	signals, err := decodeSignals(req.Signals)
	if err != nil {
		httputil.WriteError(w, err)
		return
	}

	httputil.WriteJSON(w, http.StatusOK, h.service.ComputeMetrics(ctx, req.Unit, signals))
}

type filterViewRequest struct {
	Signals []signalPayload `json:"signals"`
	Filter  filterPayload   `json:"filter"`
}

// HandleFilter handles POST /aggregate/filter, re-validating a drill-down
// view against the post-filter count.
func (h *AggregateHandler) HandleFilter(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	requestID := requestcontext.RequestID(ctx)

	req, ok := httputil.DecodeAndPrepare[filterViewRequest](w, r, h.logger, ctx, requestID)
	if !ok {
		return
	}
	signals, err := decodeSignals(req.Signals)
	if err != nil {
		httputil.WriteError(w, err)
		return
	}

	httputil.WriteJSON(w, http.StatusOK, h.service.ValidateFilteredView(ctx, signals, req.Filter.toFilter()))
}

type exportRequest struct {
	Signals []signalPayload `json:"signals"`
	Units   []string        `json:"units"`
	Filter  filterPayload   `json:"filter,omitempty"`
}

func (r *exportRequest) Validate() error {
	if len(r.Units) == 0 {
		return dErrors.New(dErrors.CodeInvalidInput, "at least one unit is required")
	}
	return nil
}

// HandleExport handles POST /aggregate/export.
func (h *AggregateHandler) HandleExport(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	requestID := requestcontext.RequestID(ctx)

	req, ok := httputil.DecodeAndPrepare[exportRequest](w, r, h.logger, ctx, requestID)
	if !ok {
		return
	}
	signals, err := decodeSignals(req.Signals)
	if err != nil {
		httputil.WriteError(w, err)
		return
	}

	decision, err := h.service.ValidateExport(ctx, signals, aggregate.ExportRequest{
		Units:  req.Units,
		Filter: req.Filter.toFilter(),
	})
	if err != nil {
		h.logger.ErrorContext(ctx, "export validation failed",
			"request_id", requestID,
			"error", err,
		)
		httputil.WriteError(w, err)
		return
	}
	httputil.WriteJSON(w, http.StatusOK, decision)
}
