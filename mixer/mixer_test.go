package mixer

import (
	"math"
	"sync"
	"testing"

	"github.com/stretchr/testify/require"
)

func toneSource(freq float64, amp float32) func(out []float32) int {
	phase := 0.0
	return func(out []float32) int {
		for i := range out {
			out[i] = amp * float32(math.Sin(phase))
			phase += 2 * math.Pi * freq / SampleRate
		}
		return len(out)
	}
}

func silentSource() func(out []float32) int {
	return func(out []float32) int { return len(out) }
}

func TestTickEmptyMixerReturnsSilence(t *testing.T) {
	m := New()
	out := m.Tick()
	require.Len(t, out, BatchSamples)
	for _, v := range out {
		require.Equal(t, float32(0), v)
	}
}

func TestTickClampsToRange(t *testing.T) {
	m := New()
	m.AddSource(1, toneSource(1000, 1.0))
	m.AddSource(2, toneSource(1000, 1.0))
	m.AddSource(3, toneSource(1000, 1.0))
	for i := 0; i < 20; i++ {
		out := m.Tick()
		for _, v := range out {
			require.LessOrEqual(t, v, float32(1.0))
			require.GreaterOrEqual(t, v, float32(-1.0))
		}
	}
}

func TestSilentSourceMarkedGoneAfterThreshold(t *testing.T) {
	m := New()
	// A source that delivers no samples at all (underflow) counts as silent;
	// silentSource's full batch of zeros does not.
	m.AddSource(1, func(out []float32) int { return 0 })
	for i := 0; i < silentTicksBeforeGone+1; i++ {
		m.Tick()
	}
	require.True(t, m.sources[1].gone)
}

func TestRemoveSource(t *testing.T) {
	m := New()
	m.AddSource(1, silentSource())
	require.Len(t, m.sources, 1)
	m.RemoveSource(1)
	require.Len(t, m.sources, 0)
}

func TestMinusSelfExcludesOwnContributionButKeepsOthers(t *testing.T) {
	m := New()
	m.AddSource(1, toneSource(1000, 1.0))
	m.AddSource(2, silentSource())
	m.Tick()

	minusSelf := m.MinusSelf(1)
	require.Len(t, minusSelf, BatchSamples)
	for _, v := range minusSelf {
		require.Equal(t, float32(0), v, "source 1's own minus-self mix should be silent when source 2 contributed nothing")
	}

	minusOther := m.MinusSelf(2)
	var sawNonZero bool
	for _, v := range minusOther {
		if v != 0 {
			sawNonZero = true
			break
		}
	}
	require.True(t, sawNonZero, "source 2's minus-self mix should still carry source 1's tone")
}

// TestConcurrentAddRemoveSourceDuringTick exercises the scenario that
// crashed with "concurrent map read and map write" before sources gained a
// mutex: one goroutine ticking the mixer (as the audio loop does every
// 20ms) while other goroutines add/remove sources concurrently (as a
// client's own per-connection goroutine does on disconnect).
func TestConcurrentAddRemoveSourceDuringTick(t *testing.T) {
	m := New()
	var wg sync.WaitGroup

	for id := uint32(1); id <= 8; id++ {
		wg.Add(1)
		go func(id uint32) {
			defer wg.Done()
			for i := 0; i < 50; i++ {
				m.AddSource(id, silentSource())
				m.RemoveSource(id)
			}
		}(id)
	}

	wg.Add(1)
	go func() {
		defer wg.Done()
		for i := 0; i < 200; i++ {
			m.Tick()
		}
	}()

	wg.Wait()
}

func TestSoftKneeGainReductionMonotonic(t *testing.T) {
	below := softKneeGainReduction(-30, compThresholdDB, compRatio, compKneeDB)
	at := softKneeGainReduction(compThresholdDB, compThresholdDB, compRatio, compKneeDB)
	above := softKneeGainReduction(0, compThresholdDB, compRatio, compKneeDB)
	require.Equal(t, 0.0, below)
	require.Less(t, at, 0.0)
	require.Less(t, above, at)
}
