package httptransport

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"custos/internal/consent"
	"custos/internal/ledger"
	"custos/internal/platform/logger"
	id "custos/pkg/domain"
	"custos/pkg/requestcontext"
)

func newConsentTestRouter(t *testing.T, subject id.SubjectID, now time.Time) http.Handler {
	t.Helper()

	service := consent.NewService(consent.NewInMemoryStore(), ledger.NewService(ledger.NewInMemoryStore()))
	handler := NewConsentHandler(service, logger.New())

	r := chi.NewRouter()
	r.Use(func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, req *http.Request) {
			ctx := requestcontext.WithSubject(req.Context(), subject.String())
			ctx = requestcontext.WithTime(ctx, now)
			next.ServeHTTP(w, req.WithContext(ctx))
		})
	})
	handler.Register(r)
	return r
}

func TestConsentEndpoints(t *testing.T) {
	subject := id.NewSubjectID()
	now := time.Date(2026, 8, 20, 9, 0, 0, 0, time.UTC)
	router := newConsentTestRouter(t, subject, now)

	do := func(method, path, body string) *httptest.ResponseRecorder {
		rec := httptest.NewRecorder()
		req := httptest.NewRequest(method, path, strings.NewReader(body))
		router.ServeHTTP(rec, req)
		return rec
	}

	t.Run("grant then status then revoke", func(t *testing.T) {
		rec := do(http.MethodPost, "/consent/grants", `{"scope":"capacity_logging"}`)
		require.Equal(t, http.StatusCreated, rec.Code)

		var record consent.Record
		require.NoError(t, json.NewDecoder(rec.Body).Decode(&record))
		assert.Equal(t, consent.StatusGranted, record.Status)

		rec = do(http.MethodGet, "/consent/grants/capacity_logging", "")
		require.Equal(t, http.StatusOK, rec.Code)
		assert.Contains(t, rec.Body.String(), `"has_consent":true`)

		rec = do(http.MethodDelete, "/consent/grants/capacity_logging", "")
		require.Equal(t, http.StatusNoContent, rec.Code)

		rec = do(http.MethodGet, "/consent/grants/capacity_logging", "")
		assert.Contains(t, rec.Body.String(), `"has_consent":false`)
	})

	t.Run("modify supersedes the active grant", func(t *testing.T) {
		rec := do(http.MethodPost, "/consent/grants", `{"scope":"aggregate_reporting"}`)
		require.Equal(t, http.StatusCreated, rec.Code)
		var first consent.Record
		require.NoError(t, json.NewDecoder(rec.Body).Decode(&first))

		rec = do(http.MethodPatch, "/consent/grants/aggregate_reporting", `{"condition":"weekdays only"}`)
		require.Equal(t, http.StatusOK, rec.Code)
		var second consent.Record
		require.NoError(t, json.NewDecoder(rec.Body).Decode(&second))
		assert.NotEqual(t, first.ID, second.ID)
		assert.Equal(t, consent.StatusGranted, second.Status)
		assert.Equal(t, "weekdays only", second.Condition)
	})

	t.Run("modifying without a grant is not found", func(t *testing.T) {
		rec := do(http.MethodPatch, "/consent/grants/retention_extension", `{"condition":"x"}`)
		assert.Equal(t, http.StatusNotFound, rec.Code)
	})

	t.Run("unknown scope is a bad request", func(t *testing.T) {
		rec := do(http.MethodPost, "/consent/grants", `{"scope":"telemetry"}`)
		assert.Equal(t, http.StatusBadRequest, rec.Code)
		assert.Contains(t, rec.Body.String(), "invalid_input")
	})

	t.Run("malformed body is a bad request", func(t *testing.T) {
		rec := do(http.MethodPost, "/consent/grants", `{`)
		assert.Equal(t, http.StatusBadRequest, rec.Code)
	})

	t.Run("revoking without a grant is not found", func(t *testing.T) {
		rec := do(http.MethodDelete, "/consent/grants/pattern_analysis", "")
		assert.Equal(t, http.StatusNotFound, rec.Code)
	})
}

func TestConsentRequiresSubject(t *testing.T) {
	service := consent.NewService(consent.NewInMemoryStore(), ledger.NewService(ledger.NewInMemoryStore()))
	handler := NewConsentHandler(service, logger.New())
	r := chi.NewRouter()
	handler.Register(r)

	rec := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodPost, "/consent/grants",
		strings.NewReader(`{"scope":"capacity_logging"}`)).
		WithContext(context.Background())
	r.ServeHTTP(rec, req)

	assert.Equal(t, http.StatusUnauthorized, rec.Code)
}
