package enforcement

import (
	"custos/internal/tenantgate/models"
	id "custos/pkg/domain"
)

// Decision is the structured outcome of an enforcement checkpoint. Denials
// are routine results the caller branches on, not errors. FailClosed marks
// denials caused by missing or unverifiable evidence rather than an explicit
// rule.
type Decision struct {
	Allowed    bool   `json:"allowed"`
	Reason     string `json:"reason,omitempty"`
	FailClosed bool   `json:"fail_closed,omitempty"`
}

func allow() Decision {
	return Decision{Allowed: true}
}

func deny(reason string) Decision {
	return Decision{Reason: reason}
}

func denyClosed(reason string) Decision {
	return Decision{Reason: reason, FailClosed: true}
}

// APIRequest describes what a guarded operation requires. Zero-valued
// fields require nothing: a request with no RequiredScope skips the consent
// check entirely.
type APIRequest struct {
	// Operation names the guarded operation, for audit and logging only.
	Operation string
	// Subject is the authenticated subject the request acts for.
	Subject id.SubjectID
	// AccountID scopes the request to an account when set.
	AccountID id.AccountID
	// RequiredClass demands the account be of this deployment class.
	RequiredClass models.DeploymentClass
	// RequiredScope demands an active consent grant for this scope.
	RequiredScope id.ConsentScope
}
