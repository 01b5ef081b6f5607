package registry

// EnforcementLevel is what happens when a restricted domain shows up at a
// consumer signup surface.
type EnforcementLevel string

const (
	EnforcementBlock        EnforcementLevel = "block"
	EnforcementRedirectSSO  EnforcementLevel = "redirect_to_sso"
	EnforcementContactSales EnforcementLevel = "contact_sales"
)

// RestrictedDomain marks an email domain whose members may only exist inside
// an institutional deployment.
type RestrictedDomain struct {
	Domain       string           `json:"domain"`
	Enforcement  EnforcementLevel `json:"enforcement"`
	Organization string           `json:"organization"`
}
