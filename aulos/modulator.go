package aulos

import dspcore "github.com/cwbudde/algo-dsp/dsp/core"

// point is one sampled envelope point: Delay is the duration, in samples,
// from the *previous* point (not cumulative). A Modulator is Stopped once it
// has advanced past every point in its list — there is no trailing point
// that holds forever, matching original_source/aulos/src/modulator.hpp's
// SampledPoint span (Modulator::stopped() == _nextIndex == _size): an
// envelope's declared total duration is also its note's natural lifetime.
type point struct {
	delay float32
	value float32
}

// Modulator samples a piecewise-linear envelope at the renderer's sampling
// rate. It never owns the point list: buildPoints converts an Envelope plus
// a sampling rate into the point slice a Modulator is constructed from.
type Modulator struct {
	points []point

	nextIndex      int
	lastPointValue float32
	offsetSamples  float32
	currentValue   float32
}

// buildPoints converts an Envelope into a Modulator's point list: a leading
// zero-delay point holding initialValue, then one point per envelope change
// (delay converted from milliseconds to samples). Once a Modulator has
// advanced past the last of these points it is Stopped — an envelope with
// zero declared changes (besides the leading point) is Stopped as soon as
// its Modulator is started.
func buildPoints(e Envelope, samplingRate uint32, transform func(float32) float32) []point {
	pts := make([]point, 0, len(e.Changes)+1)
	pts = append(pts, point{delay: 0, value: transform(0)})
	for _, c := range e.Changes {
		delaySamples := float32(uint64(c.DurationMS) * uint64(samplingRate) / 1000)
		pts = append(pts, point{delay: delaySamples, value: transform(c.Value)})
	}
	return pts
}

// identity leaves envelope values untouched (amplitude/asymmetry/oscillation).
func identity(v float32) float32 { return v }

// exp2 is applied to the frequency envelope: its values are a count of
// octaves, so the modulator samples 2^v directly.
func exp2(v float32) float32 { return pow2(v) }

// NewModulator builds a Modulator over points. points[0].delay must be 0.
func NewModulator(points []point) *Modulator {
	if len(points) == 0 || points[0].delay != 0 {
		panic(PreconditionViolation{"modulator point list must start at delay 0"})
	}
	return &Modulator{points: points, nextIndex: len(points), lastPointValue: points[len(points)-1].value, currentValue: points[len(points)-1].value}
}

// Advance consumes samples, interpolating linearly between the last point
// reached and the next, and returns the maximum envelope value seen during
// this call (including the value before advancing).
func (m *Modulator) Advance(samples float32) float32 {
	maxValue := m.currentValue
	for m.nextIndex < len(m.points) {
		next := m.points[m.nextIndex]
		remainingDelay := next.delay - m.offsetSamples
		if remainingDelay > samples {
			m.offsetSamples += samples
			m.currentValue = dspcore.FlushDenormals(m.lastPointValue + (next.value-m.lastPointValue)*m.offsetSamples/next.delay)
			break
		}
		samples -= remainingDelay
		m.lastPointValue = next.value
		m.offsetSamples = 0
		m.currentValue = next.value
		m.nextIndex++
		if m.currentValue > maxValue {
			maxValue = m.currentValue
		}
	}
	if m.currentValue > maxValue {
		maxValue = m.currentValue
	}
	return maxValue
}

// CurrentValue returns the value the modulator is presently sampling.
func (m *Modulator) CurrentValue() float32 {
	return m.currentValue
}

// MaxContinuousAdvance returns how many samples can be consumed before the
// next change point is reached. Callers must check Stopped first: once a
// Modulator has advanced past its last point there is no next point to
// bound against.
func (m *Modulator) MaxContinuousAdvance() float32 {
	if m.nextIndex >= len(m.points) {
		return 0
	}
	return m.points[m.nextIndex].delay - m.offsetSamples
}

// Segment exposes the modulator's current linear leg as ShaperData, for
// building a LinearShaper over it (used by Voice for the amplitude ramp).
func (m *Modulator) Segment() ShaperData {
	if m.nextIndex >= len(m.points) {
		return ShaperData{FirstY: m.currentValue, DeltaY: 0, DeltaX: 1, OffsetX: 0}
	}
	next := m.points[m.nextIndex]
	return ShaperData{
		FirstY:  m.lastPointValue,
		DeltaY:  next.value - m.lastPointValue,
		DeltaX:  next.delay,
		OffsetX: m.offsetSamples,
	}
}

// Start resets the modulator to the beginning of the envelope, skipping any
// run of consecutive zero-delay points (instantaneous jumps) so starting a
// note never drops an already-reached jump.
func (m *Modulator) Start(fromCurrent bool) {
	if fromCurrent {
		m.lastPointValue = m.currentValue
	} else {
		m.lastPointValue = m.points[0].value
	}
	m.nextIndex = 1
	for m.nextIndex < len(m.points) && m.points[m.nextIndex].delay == 0 {
		m.lastPointValue = m.points[m.nextIndex].value
		m.nextIndex++
	}
	m.offsetSamples = 0
	m.currentValue = m.lastPointValue
}

// Stop jumps the modulator straight past its last point, to the Stopped state.
func (m *Modulator) Stop() {
	m.nextIndex = len(m.points)
	m.lastPointValue = m.points[len(m.points)-1].value
	m.offsetSamples = 0
	m.currentValue = m.lastPointValue
}

// Stopped reports whether the modulator has advanced past its last point.
func (m *Modulator) Stopped() bool {
	return m.nextIndex >= len(m.points)
}
