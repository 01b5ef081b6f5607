package httptransport

import (
	"context"
	"log/slog"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"

	"custos/internal/ledger"
	dErrors "custos/pkg/domain-errors"
	"custos/pkg/platform/httputil"
	"custos/pkg/requestcontext"
)

// LedgerService defines the audit-trail reads the transport exposes. There
// is deliberately no write endpoint: entries are appended by the other
// services, never by callers directly.
type LedgerService interface {
	List(ctx context.Context, filter ledger.Filter) ([]ledger.AuditEntry, error)
	VerifyChainIntegrity(ctx context.Context) (ledger.IntegrityReport, error)
}

// LedgerHandler wires audit-trail endpoints to the ledger service.
type LedgerHandler struct {
	service LedgerService
	logger  *slog.Logger
}

func NewLedgerHandler(service LedgerService, logger *slog.Logger) *LedgerHandler {
	return &LedgerHandler{service: service, logger: logger}
}

// Register mounts ledger endpoints on the router.
func (h *LedgerHandler) Register(r chi.Router) {
	r.Get("/ledger/entries", h.HandleList)
	r.Get("/ledger/integrity", h.HandleVerify)
}

// HandleList handles GET /ledger/entries with optional kind, actor, target,
// from, and to query filters.
func (h *LedgerHandler) HandleList(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	query := r.URL.Query()

	filter := ledger.Filter{
		Kind:     ledger.EntryKind(query.Get("kind")),
		ActorRef: query.Get("actor"),
		Target:   query.Get("target"),
	}
	for _, bound := range []struct {
		param string
		dest  *time.Time
	}{
		{"from", &filter.From},
		{"to", &filter.To},
	} {
		raw := query.Get(bound.param)
		if raw == "" {
			continue
		}
		parsed, err := time.Parse(time.RFC3339, raw)
		if err != nil {
			httputil.WriteError(w, dErrors.New(dErrors.CodeInvalidInput, bound.param+" must be RFC 3339"))
			return
		}
		*bound.dest = parsed
	}

	entries, err := h.service.List(ctx, filter)
	if err != nil {
		httputil.WriteError(w, err)
		return
	}
	httputil.WriteJSON(w, http.StatusOK, map[string]any{"entries": entries})
}

// HandleVerify handles GET /ledger/integrity. An invalid chain is still a
// 200: detection is the product here, and operators read the report either
// way.
func (h *LedgerHandler) HandleVerify(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	report, err := h.service.VerifyChainIntegrity(ctx)
	if err != nil {
		h.logger.ErrorContext(ctx, "integrity verification failed",
			"request_id", requestcontext.RequestID(ctx),
			"error", err,
		)
		httputil.WriteError(w, err)
		return
	}
	if !report.Valid {
		h.logger.ErrorContext(ctx, "audit chain integrity violation detected",
			"request_id", requestcontext.RequestID(ctx),
			"broken_at", report.BrokenAtSequence,
		)
	}
	httputil.WriteJSON(w, http.StatusOK, report)
}
