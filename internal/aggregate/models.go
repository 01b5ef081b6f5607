package aggregate

import "time"

// SignalState is the enumerated state a raw capacity signal reports.
type SignalState string

const (
	// StateAvailable is the favorable state: the unit member reported
	// headroom.
	StateAvailable SignalState = "available"
	// StateStretched is the intermediate state; it counts toward neither
	// load nor risk.
	StateStretched SignalState = "stretched"
	// StateOverloaded is the unfavorable state and drives the risk metric.
	StateOverloaded SignalState = "overloaded"
)

// IsValid reports whether the state is one of the supported enum values.
func (s SignalState) IsValid() bool {
	switch s {
	case StateAvailable, StateStretched, StateOverloaded:
		return true
	}
	return false
}

// RawSignal is one de-identified capacity report. It belongs to exactly one
// organizational unit and never carries a subject identifier - the
// separation layer guarantees that before signals reach this package.
type RawSignal struct {
	Unit      string      `json:"unit"`
	State     SignalState `json:"state"`
	Timestamp time.Time   `json:"timestamp"`
}

// TrendDirection describes the velocity comparison between the two most
// recent windows.
//
// TrendInsufficient is internal: it records that at least one comparison
// window was below the disclosure floor, which is NOT the same fact as
// "genuinely stable". External surfaces collapse it to stable via
// Disclosed(), but operators can still tell the two apart.
type TrendDirection string

const (
	TrendRising       TrendDirection = "rising"
	TrendFalling      TrendDirection = "falling"
	TrendStable       TrendDirection = "stable"
	TrendInsufficient TrendDirection = "insufficient_data"
)

// Disclosed maps the internal direction to the externally visible one.
func (t TrendDirection) Disclosed() TrendDirection {
	if t == TrendInsufficient {
		return TrendStable
	}
	return t
}

// Freshness buckets elapsed time since the unit's most recent signal.
type Freshness string

const (
	FreshnessFresh   Freshness = "fresh"
	FreshnessStale   Freshness = "stale"
	FreshnessDormant Freshness = "dormant"
)

// UnitMetrics is the aggregate view for one unit. It is either fully
// visible (IsSuppressed=false, every pointer populated) or fully suppressed
// (IsSuppressed=true, every other field zeroed) - never partially one or
// the other. SignalCount is only reported for visible metrics, since a
// small count is itself an individual-level leak.
type UnitMetrics struct {
	Unit         string          `json:"unit"`
	IsSuppressed bool            `json:"is_suppressed"`
	SignalCount  int             `json:"signal_count,omitempty"`
	Load         *float64        `json:"load,omitempty"`
	Risk         *float64        `json:"risk,omitempty"`
	Trend        *TrendDirection `json:"trend,omitempty"`
	Freshness    *Freshness      `json:"freshness,omitempty"`
}

// SuppressedMetrics is the single sentinel shape for a below-floor unit.
func SuppressedMetrics(unit string) UnitMetrics {
	return UnitMetrics{Unit: unit, IsSuppressed: true}
}

// SignalFilter narrows a signal set for drill-down views. Zero values mean
// "no constraint".
type SignalFilter struct {
	Unit   string
	States []SignalState
	From   time.Time
	To     time.Time
}

// Matches reports whether a signal satisfies every set constraint.
func (f SignalFilter) Matches(sig RawSignal) bool {
	if f.Unit != "" && sig.Unit != f.Unit {
		return false
	}
	if len(f.States) > 0 {
		found := false
		for _, st := range f.States {
			if sig.State == st {
				found = true
				break
			}
		}
		if !found {
			return false
		}
	}
	if !f.From.IsZero() && sig.Timestamp.Before(f.From) {
		return false
	}
	if !f.To.IsZero() && sig.Timestamp.After(f.To) {
		return false
	}
	return true
}

// FilterDecision is the outcome of re-validating a drill-down view.
type FilterDecision struct {
	Allowed        bool `json:"allowed"`
	ResultingCount int  `json:"resulting_count"`
}

// ExportRequest asks for an export of one or more units, optionally
// pre-filtered.
type ExportRequest struct {
	Units  []string
	Filter SignalFilter
}

// ExportDecision is the outcome of validating an export. BlockedUnits lists
// every requested unit whose post-filter count is below the floor; the
// export as a whole is only allowed when no unit is blocked.
type ExportDecision struct {
	Allowed      bool     `json:"allowed"`
	BlockedUnits []string `json:"blocked_units,omitempty"`
}
