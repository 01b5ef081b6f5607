package tenantgate

import (
	"context"
	"strings"

	"custos/internal/tenantgate/models"
	"custos/internal/tenantgate/registry"
)

// Classification is the deterministic outcome of the domain check. Match is
// set when a restricted domain forced the institutional class.
type Classification struct {
	Class models.DeploymentClass
	Match *registry.RestrictedDomain
}

// Classifier decides the deployment class for an identity. Classification
// is a pure function of the email and the loaded restricted-domain set:
// two terminal outcomes, no intermediate state, and no client-supplied flag
// can override a restricted-domain match.
type Classifier struct {
	loader *registry.Loader
}

func NewClassifier(loader *registry.Loader) *Classifier {
	return &Classifier{loader: loader}
}

// Classify resolves the class for an email address. A restricted-domain
// match - exact or parent domain - forces institutional; everything else is
// relational.
func (c *Classifier) Classify(ctx context.Context, email string) Classification {
	domain := emailDomain(email)
	if domain == "" {
		// Unclassifiable identities fail closed into the aggregate-only
		// class.
		return Classification{Class: models.ClassInstitutional}
	}

	for _, restricted := range c.loader.Load(ctx) {
		if domainMatches(domain, strings.ToLower(restricted.Domain)) {
			match := restricted
			return Classification{Class: models.ClassInstitutional, Match: &match}
		}
	}
	return Classification{Class: models.ClassRelational}
}

func emailDomain(email string) string {
	at := strings.LastIndex(email, "@")
	if at < 0 || at == len(email)-1 {
		return ""
	}
	return strings.ToLower(email[at+1:])
}

// domainMatches reports whether candidate equals restricted or sits beneath
// it (mail.nhs.uk matches nhs.uk).
func domainMatches(candidate, restricted string) bool {
	return candidate == restricted || strings.HasSuffix(candidate, "."+restricted)
}
