package registry

// SeedDomains is the compiled-in restricted-domain list. It is the floor the
// loader can never fall below: augmentations come from the durable store,
// but a load failure falls back to exactly this set, never to an empty
// (permissive) one.
func SeedDomains() []RestrictedDomain {
	return []RestrictedDomain{
		{Domain: "nhs.uk", Enforcement: EnforcementRedirectSSO, Organization: "NHS"},
		{Domain: "police.uk", Enforcement: EnforcementBlock, Organization: "UK Police"},
		{Domain: "mod.uk", Enforcement: EnforcementBlock, Organization: "Ministry of Defence"},
		{Domain: "gov.uk", Enforcement: EnforcementContactSales, Organization: "UK Government"},
		{Domain: "schools.gov.uk", Enforcement: EnforcementRedirectSSO, Organization: "State Schools"},
	}
}
