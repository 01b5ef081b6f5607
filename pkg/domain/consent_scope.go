package domain

import dErrors "custos/pkg/domain-errors"

// ConsentScope is a domain value that identifies what a subject has agreed
// to. Scope binding allows selective revocation without affecting other
// processing.
//
// Usage: construct via ParseConsentScope at trust boundaries to enforce the
// allowlist; direct casting bypasses validation.
type ConsentScope string

// Supported consent scopes.
const (
	ScopeCapacityLogging    ConsentScope = "capacity_logging"
	ScopeAggregateReporting ConsentScope = "aggregate_reporting"
	ScopePatternAnalysis    ConsentScope = "pattern_analysis"
	ScopeRetentionExtension ConsentScope = "retention_extension"
)

// validConsentScopes is the single source of truth for valid scopes.
var validConsentScopes = map[ConsentScope]bool{
	ScopeCapacityLogging:    true,
	ScopeAggregateReporting: true,
	ScopePatternAnalysis:    true,
	ScopeRetentionExtension: true,
}

// ParseConsentScope constructs a ConsentScope from external input.
//
// Errors: returns CodeInvalidInput when the value is empty or unsupported.
func ParseConsentScope(s string) (ConsentScope, error) {
	if s == "" {
		return "", dErrors.New(dErrors.CodeInvalidInput, "scope cannot be empty")
	}
	sc := ConsentScope(s)
	if !sc.IsValid() {
		return "", dErrors.New(dErrors.CodeInvalidInput, "invalid scope")
	}
	return sc, nil
}

// IsValid checks if the scope is one of the supported enum values.
func (s ConsentScope) IsValid() bool {
	return validConsentScopes[s]
}

// AllConsentScopes returns every supported scope; used by revoke-all
// processing and by handlers rendering scope choices.
func AllConsentScopes() []ConsentScope {
	return []ConsentScope{
		ScopeCapacityLogging,
		ScopeAggregateReporting,
		ScopePatternAnalysis,
		ScopeRetentionExtension,
	}
}
