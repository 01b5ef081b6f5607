package aggregate

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var testNow = time.Date(2026, 6, 15, 12, 0, 0, 0, time.UTC)

func signals(unit string, state SignalState, count int, at time.Time) []RawSignal {
	out := make([]RawSignal, 0, count)
	for i := 0; i < count; i++ {
		out = append(out, RawSignal{Unit: unit, State: state, Timestamp: at})
	}
	return out
}

func TestComputeMetrics_Floor(t *testing.T) {
	recent := testNow.Add(-time.Hour)

	t.Run("five signals are visible", func(t *testing.T) {
		set := append(
			signals("engineering", StateAvailable, 3, recent),
			signals("engineering", StateOverloaded, 2, recent)...,
		)
		m := ComputeMetrics("engineering", set, testNow)

		assert.False(t, m.IsSuppressed)
		require.NotNil(t, m.Load)
		require.NotNil(t, m.Risk)
		assert.InDelta(t, 60.0, *m.Load, 0.001)
		assert.InDelta(t, 40.0, *m.Risk, 0.001)
		assert.Equal(t, 5, m.SignalCount)
	})

	t.Run("four signals collapse to the suppressed sentinel", func(t *testing.T) {
		set := signals("design", StateAvailable, 4, recent)
		m := ComputeMetrics("design", set, testNow)

		assert.True(t, m.IsSuppressed)
		assert.Nil(t, m.Load)
		assert.Nil(t, m.Risk)
		assert.Nil(t, m.Trend)
		assert.Nil(t, m.Freshness)
		assert.Zero(t, m.SignalCount)
	})

	t.Run("no partial disclosure: every field set or none", func(t *testing.T) {
		for count := 0; count < 10; count++ {
			m := ComputeMetrics("ops", signals("ops", StateStretched, count, recent), testNow)
			if m.IsSuppressed {
				assert.Nil(t, m.Load)
				assert.Nil(t, m.Risk)
				assert.Nil(t, m.Trend)
				assert.Nil(t, m.Freshness)
			} else {
				assert.NotNil(t, m.Load)
				assert.NotNil(t, m.Risk)
				assert.NotNil(t, m.Trend)
				assert.NotNil(t, m.Freshness)
			}
		}
	})

	t.Run("stretched counts toward neither load nor risk", func(t *testing.T) {
		set := append(
			signals("support", StateStretched, 4, recent),
			RawSignal{Unit: "support", State: StateAvailable, Timestamp: recent},
		)
		m := ComputeMetrics("support", set, testNow)
		require.False(t, m.IsSuppressed)
		assert.InDelta(t, 20.0, *m.Load, 0.001)
		assert.InDelta(t, 0.0, *m.Risk, 0.001)
	})
}

func TestComputeTrend(t *testing.T) {
	inRecent := testNow.Add(-2 * 24 * time.Hour)
	inPrior := testNow.Add(-10 * 24 * time.Hour)

	t.Run("rising when recent window outgrows prior", func(t *testing.T) {
		set := append(
			signals("eng", StateAvailable, 8, inRecent),
			signals("eng", StateAvailable, 5, inPrior)...,
		)
		assert.Equal(t, TrendRising, computeTrend(set, testNow))
	})

	t.Run("falling when recent window shrinks", func(t *testing.T) {
		set := append(
			signals("eng", StateAvailable, 5, inRecent),
			signals("eng", StateAvailable, 8, inPrior)...,
		)
		assert.Equal(t, TrendFalling, computeTrend(set, testNow))
	})

	t.Run("stable when both windows match", func(t *testing.T) {
		set := append(
			signals("eng", StateAvailable, 6, inRecent),
			signals("eng", StateAvailable, 6, inPrior)...,
		)
		assert.Equal(t, TrendStable, computeTrend(set, testNow))
	})

	t.Run("insufficient when either window is below the floor", func(t *testing.T) {
		set := append(
			signals("eng", StateAvailable, 8, inRecent),
			signals("eng", StateAvailable, 4, inPrior)...,
		)
		got := computeTrend(set, testNow)
		assert.Equal(t, TrendInsufficient, got)
		// External surfaces must not distinguish this from stable.
		assert.Equal(t, TrendStable, got.Disclosed())
	})
}

func TestComputeFreshness(t *testing.T) {
	cases := []struct {
		elapsed time.Duration
		want    Freshness
	}{
		{time.Hour, FreshnessFresh},
		{47 * time.Hour, FreshnessFresh},
		{3 * 24 * time.Hour, FreshnessStale},
		{5 * 24 * time.Hour, FreshnessStale},
		{10 * 24 * time.Hour, FreshnessDormant},
	}
	for _, tc := range cases {
		assert.Equal(t, tc.want, computeFreshness(testNow.Add(-tc.elapsed), testNow), "elapsed %v", tc.elapsed)
	}
}

func TestApplyDelay(t *testing.T) {
	set := []RawSignal{
		{Unit: "eng", State: StateAvailable, Timestamp: testNow.Add(-time.Hour)},
		{Unit: "eng", State: StateAvailable, Timestamp: testNow.Add(-301 * time.Second)},
		{Unit: "eng", State: StateAvailable, Timestamp: testNow.Add(-10 * time.Second)},
		{Unit: "eng", State: StateAvailable, Timestamp: testNow},
	}

	eligible := ApplyDelay(set, InclusionDelay, testNow)
	require.Len(t, eligible, 2)
	for _, sig := range eligible {
		assert.True(t, sig.Timestamp.Before(testNow.Add(-InclusionDelay)) ||
			sig.Timestamp.Equal(testNow.Add(-InclusionDelay)))
	}
}
