package tenantgate

// GuardIndividualData strips the named individual-level fields from a record
// destined for an institutional context. The fields are removed outright,
// not nulled in place, so the stripped shape carries no hint of what was
// there.
//
// If stripping would leave nothing behind, the guard returns nil rather
// than an empty shell: an empty-but-present record still leaks that an
// individual-only record existed.
func GuardIndividualData(record map[string]any, individualFields []string) map[string]any {
	if record == nil {
		return nil
	}

	strip := make(map[string]bool, len(individualFields))
	for _, f := range individualFields {
		strip[f] = true
	}

	guarded := make(map[string]any, len(record))
	for k, v := range record {
		if strip[k] || v == nil {
			continue
		}
		guarded[k] = v
	}

	if len(guarded) == 0 {
		return nil
	}
	return guarded
}
