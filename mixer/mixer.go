// Package mixer implements the server-side audio pipeline (spec §3.7,
// §4.2 audio path, §7.2): a per-source jitter buffer feeding an N-way mix
// with side-chain ducking and a soft-knee master compressor, run once per
// 20 ms tick at the shared 48 kHz sample rate.
package mixer

import (
	"math"
	"sync"
)

const (
	// SampleRate is the shared PCM sample rate throughout the pipeline.
	SampleRate = 48000
	// BatchSamples is one mixer tick's worth of samples at 20 ms/48 kHz.
	BatchSamples = SampleRate / 50

	silentTicksBeforeGone = 3

	duckAttackMs  = 5.0
	duckReleaseMs = 120.0

	compThresholdDB = -18.0
	compRatio       = 4.0
	compAttackMs    = 3.0
	compReleaseMs   = 80.0
	compKneeDB      = 6.0
	compMakeupDB    = 6.0
)

func dbToLinear(db float64) float64 { return math.Pow(10, db/20) }
func linearToDB(lin float64) float64 {
	if lin <= 1e-9 {
		return -180
	}
	return 20 * math.Log10(lin)
}

// onePoleCoeff computes a one-pole smoothing coefficient for a time constant in
// milliseconds at the mixer's tick rate (one update per BatchSamples/
// SampleRate seconds).
func onePoleCoeff(timeConstantMs float64) float64 {
	tickSeconds := float64(BatchSamples) / float64(SampleRate)
	return math.Exp(-tickSeconds / (timeConstantMs / 1000))
}

// Source is one client's audio feed into the mixer.
type Source struct {
	ID uint32

	// Pull drains up to BatchSamples from the client's inbound ring,
	// returning fewer if underflowing.
	Pull func(out []float32) int

	silentTicks int
	envelope    float64 // one-pole RMS envelope for side-chain ducking
	gone        bool
}

// Mixer holds per-source state and the shared master compressor envelope.
// sources is guarded by mu since AddSource/RemoveSource run on the audio
// loop's own goroutine (syncSources, ticked every 20ms) while a client's
// per-connection goroutine can also call RemoveSource directly on
// disconnect — without a lock this is an ordinary concurrent map
// read/write crash, not a rare corner case.
type Mixer struct {
	mu      sync.Mutex
	sources map[uint32]*Source

	compEnvelope float64 // peak-detector envelope, linear

	// lastContributions and lastMasterGain cache the previous Tick's
	// per-source pre-compressor samples and per-sample master gain curve,
	// so MinusSelf can reconstruct an approximate mix-minus-self signal
	// without re-running the full pipeline per listener (spec §4.2 "mix-
	// minus-self ... if implementation cost allows").
	lastContributions map[uint32][]float32
	lastMasterGain    []float64
}

// New builds an empty mixer.
func New() *Mixer {
	return &Mixer{sources: make(map[uint32]*Source)}
}

// AddSource registers a client's audio feed.
func (m *Mixer) AddSource(id uint32, pull func(out []float32) int) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.sources[id] = &Source{ID: id, Pull: pull}
}

// RemoveSource drops a client's feed. Safe to call concurrently with Tick
// or AddSource — a client's own per-connection goroutine calls this
// directly on disconnect, independent of the audio loop's own goroutine.
func (m *Mixer) RemoveSource(id uint32) {
	m.mu.Lock()
	defer m.mu.Unlock()
	delete(m.sources, id)
}

// pulledSource is one source's samples and RMS for a single tick.
type pulledSource struct {
	src     *Source
	samples []float32
	rms     float64
}

// duckFactor computes source active[idx]'s side-chain attenuation: the
// louder the other active sources' smoothed envelopes, the more this
// source's own contribution is reduced, so a dominant speaker attenuates
// everyone else in the shared mix (spec §7.2 step 4).
func duckFactor(active []pulledSource, idx int) float64 {
	var otherMax float64
	for i, a := range active {
		if i == idx {
			continue
		}
		if a.src.envelope > otherMax {
			otherMax = a.src.envelope
		}
	}
	const maxAttenuation = 0.8
	reduction := otherMax * maxAttenuation
	if reduction > maxAttenuation {
		reduction = maxAttenuation
	}
	return 1 - reduction
}

// Tick runs one mixer cycle: pull, RMS, sum with crowd scaling, duck,
// compress, clamp, and returns the shared mixed batch. It also caches each
// active source's pre-compressor contribution and the per-sample master
// gain curve so MinusSelf can reconstruct that source's mix-minus-self
// signal afterward (spec §4.2).
func (m *Mixer) Tick() []float32 {
	m.mu.Lock()
	sources := make([]*Source, 0, len(m.sources))
	for _, s := range m.sources {
		sources = append(sources, s)
	}
	m.mu.Unlock()

	var active []pulledSource
	for _, s := range sources {
		buf := make([]float32, BatchSamples)
		n := s.Pull(buf)
		if n == 0 {
			s.silentTicks++
			if s.silentTicks > silentTicksBeforeGone {
				s.gone = true
			}
			continue
		}
		s.silentTicks = 0
		s.gone = false

		var sumSq float64
		for i := 0; i < n; i++ {
			sumSq += float64(buf[i]) * float64(buf[i])
		}
		rms := math.Sqrt(sumSq / float64(n))

		attack := onePoleCoeff(duckAttackMs)
		release := onePoleCoeff(duckReleaseMs)
		coeff := release
		if rms > s.envelope {
			coeff = attack
		}
		s.envelope = coeff*s.envelope + (1-coeff)*rms

		active = append(active, pulledSource{src: s, samples: buf[:n], rms: rms})
	}

	mixed := make([]float32, BatchSamples)
	m.lastContributions = make(map[uint32][]float32, len(active))
	m.lastMasterGain = nil
	if len(active) == 0 {
		return mixed
	}

	crowdGain := 1.0 / math.Sqrt(float64(len(active)))
	for idx, a := range active {
		duckGain := duckFactor(active, idx)
		gain := crowdGain * duckGain
		contribution := make([]float32, BatchSamples)
		for i, v := range a.samples {
			sample := float32(float64(v) * gain)
			mixed[i] += sample
			contribution[i] = sample
		}
		m.lastContributions[a.src.ID] = contribution
	}

	m.lastMasterGain = m.computeCompressorGains(mixed)
	for i, g := range m.lastMasterGain {
		mixed[i] = clampSample(mixed[i] * float32(g))
	}
	return mixed
}

// MinusSelf reconstructs the mix every other active source heard last Tick,
// excluding id's own contribution, reapplying the same master gain curve
// rather than re-running the full dynamics pipeline per listener (spec
// §4.2 "mix-minus-self ... if implementation cost allows"). Callers not
// opting into mix-minus-self should just reuse Tick's shared mixed batch
// instead of calling this.
func (m *Mixer) MinusSelf(id uint32) []float32 {
	out := make([]float32, BatchSamples)
	for i := range out {
		var sum float32
		for otherID, contribution := range m.lastContributions {
			if otherID == id {
				continue
			}
			sum += contribution[i]
		}
		gain := float32(1)
		if i < len(m.lastMasterGain) {
			gain = float32(m.lastMasterGain[i])
		}
		out[i] = clampSample(sum * gain)
	}
	return out
}

func clampSample(v float32) float32 {
	if v > 1 {
		return 1
	}
	if v < -1 {
		return -1
	}
	return v
}

// computeCompressorGains runs the soft-knee master compressor's envelope
// follower over buf (spec §7.2 step 5) and returns the per-sample linear
// gain (including fixed makeup) it would apply, without mutating buf —
// callers apply the same curve to both the shared mix and any
// mix-minus-self reconstruction.
func (m *Mixer) computeCompressorGains(buf []float32) []float64 {
	// The envelope is updated once per sample, so its coefficients use a
	// one-sample step rather than onePoleCoeff's one-tick step.
	attack := math.Exp(-1 / (SampleRate * compAttackMs / 1000))
	release := math.Exp(-1 / (SampleRate * compReleaseMs / 1000))
	makeup := dbToLinear(compMakeupDB)

	gains := make([]float64, len(buf))
	for i, v := range buf {
		peak := math.Abs(float64(v))
		coeff := release
		if peak > m.compEnvelope {
			coeff = attack
		}
		m.compEnvelope = coeff*m.compEnvelope + (1-coeff)*peak

		envDB := linearToDB(m.compEnvelope)
		gainDB := softKneeGainReduction(envDB, compThresholdDB, compRatio, compKneeDB)
		gains[i] = dbToLinear(gainDB) * makeup
	}
	return gains
}

// softKneeGainReduction computes the compressor's gain reduction in dB for
// an input level inputDB, given a threshold, ratio, and knee width. Below
// the knee, gain reduction is zero; above it, the reduction follows the
// compression ratio; within the knee, a quadratic blends the two smoothly.
func softKneeGainReduction(inputDB, thresholdDB, ratio, kneeDB float64) float64 {
	delta := inputDB - thresholdDB
	half := kneeDB / 2
	switch {
	case delta <= -half:
		return 0
	case delta >= half:
		return (thresholdDB + delta/ratio) - inputDB
	default:
		x := delta + half
		reduced := x * x / (2 * kneeDB) * (1 - 1/ratio)
		return -reduced
	}
}
