package aggregate

import "time"

// KAnonymityFloor is the minimum number of underlying signals before any
// aggregate derived from them may be disclosed. It is a compile-time
// constant on purpose: nothing below the service boundary can weaken it at
// runtime.
const KAnonymityFloor = 5

// InclusionDelay is how long a signal must age before it becomes eligible
// for aggregation. Near-real-time views would otherwise let an observer
// correlate a metric change with the one person who just logged.
const InclusionDelay = 300 * time.Second

// velocityWindow is the span of each of the two comparison windows.
const velocityWindow = 7 * 24 * time.Hour

// freshnessWindow buckets elapsed time since the most recent signal:
// fresh within one window, stale within three, dormant beyond.
const freshnessWindow = 48 * time.Hour

// ComputeMetrics derives the aggregate view for one unit's signal set.
// Pure function: same inputs, same output, no I/O.
//
// The k-anonymity gate is all-or-nothing. If the count is below the floor
// the entire result collapses to the suppressed sentinel - load is never
// shown with risk hidden, or vice versa.
func ComputeMetrics(unit string, signals []RawSignal, now time.Time) UnitMetrics {
	if len(signals) < KAnonymityFloor {
		return SuppressedMetrics(unit)
	}

	var available, overloaded int
	latest := signals[0].Timestamp
	for _, sig := range signals {
		switch sig.State {
		case StateAvailable:
			available++
		case StateOverloaded:
			overloaded++
		}
		if sig.Timestamp.After(latest) {
			latest = sig.Timestamp
		}
	}

	load := percentage(available, len(signals))
	risk := percentage(overloaded, len(signals))
	trend := computeTrend(signals, now)
	freshness := computeFreshness(latest, now)

	return UnitMetrics{
		Unit:        unit,
		SignalCount: len(signals),
		Load:        &load,
		Risk:        &risk,
		Trend:       &trend,
		Freshness:   &freshness,
	}
}

func percentage(part, whole int) float64 {
	if whole == 0 {
		return 0
	}
	return float64(part) / float64(whole) * 100
}

// computeTrend compares signal volume in the most recent window against the
// window before it. A direction is only reported when BOTH windows
// independently clear the k-anonymity floor; otherwise the result is
// TrendInsufficient, which external surfaces disclose as stable.
func computeTrend(signals []RawSignal, now time.Time) TrendDirection {
	recentStart := now.Add(-velocityWindow)
	priorStart := now.Add(-2 * velocityWindow)

	var recent, prior int
	for _, sig := range signals {
		switch {
		case !sig.Timestamp.Before(recentStart):
			recent++
		case !sig.Timestamp.Before(priorStart):
			prior++
		}
	}

	if recent < KAnonymityFloor || prior < KAnonymityFloor {
		return TrendInsufficient
	}
	switch {
	case recent > prior:
		return TrendRising
	case recent < prior:
		return TrendFalling
	default:
		return TrendStable
	}
}

func computeFreshness(latest, now time.Time) Freshness {
	elapsed := now.Sub(latest)
	switch {
	case elapsed <= freshnessWindow:
		return FreshnessFresh
	case elapsed <= 3*freshnessWindow:
		return FreshnessStale
	default:
		return FreshnessDormant
	}
}

// ApplyDelay returns only the signals old enough for aggregate inclusion.
func ApplyDelay(signals []RawSignal, delay time.Duration, now time.Time) []RawSignal {
	cutoff := now.Add(-delay)
	var eligible []RawSignal
	for _, sig := range signals {
		if !sig.Timestamp.After(cutoff) {
			eligible = append(eligible, sig)
		}
	}
	return eligible
}
