package enforcement

import (
	"encoding/json"
	"net/http"

	"custos/internal/tenantgate/models"
	id "custos/pkg/domain"
	"custos/pkg/requestcontext"
)

// Requirement is what a guarded route demands of every request passing
// through it. The subject comes from the authenticated request context, not
// from the requirement.
type Requirement struct {
	Operation     string
	RequiredClass models.DeploymentClass
	RequiredScope id.ConsentScope
	// AccountHeader optionally names a request header carrying the account
	// id to check RequiredClass against.
	AccountHeader string
}

// Middleware mounts ValidateAPIRequest in front of a handler. Denials are
// written as 403 with the structured decision; the guarded handler never
// runs.
func (s *Service) Middleware(req Requirement) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			ctx := r.Context()

			apiReq := APIRequest{
				Operation:     req.Operation,
				RequiredClass: req.RequiredClass,
				RequiredScope: req.RequiredScope,
			}
			if subject := requestcontext.Subject(ctx); subject != "" {
				parsed, err := id.ParseSubjectID(subject)
				if err != nil {
					writeDecision(w, denyClosed("malformed subject identifier"))
					return
				}
				apiReq.Subject = parsed
			}
			if req.AccountHeader != "" {
				if raw := r.Header.Get(req.AccountHeader); raw != "" {
					accountID, err := id.ParseAccountID(raw)
					if err != nil {
						writeDecision(w, denyClosed("malformed account identifier"))
						return
					}
					apiReq.AccountID = accountID
				}
			}

			decision := s.ValidateAPIRequest(ctx, apiReq)
			if !decision.Allowed {
				writeDecision(w, decision)
				return
			}
			next.ServeHTTP(w, r)
		})
	}
}

func writeDecision(w http.ResponseWriter, decision Decision) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusForbidden)
	_ = json.NewEncoder(w).Encode(decision)
}
