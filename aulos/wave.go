package aulos

// waveData precomputes the four envelope point lists (amplitude, frequency,
// asymmetry, oscillation) for a voice at a given sampling rate; shared,
// read-only, between however many WaveState instances a voice needs (one
// for mono, two independent ones for stereo ears).
type waveData struct {
	shapeParameter float32
	waveShape      WaveShape

	amplitudePoints   []point
	frequencyPoints   []point
	asymmetryPoints   []point
	oscillationPoints []point
}

func newWaveData(v VoiceData, samplingRate uint32) *waveData {
	return &waveData{
		shapeParameter:    v.WaveShapeParameter,
		waveShape:         v.WaveShape,
		amplitudePoints:   buildPoints(v.AmplitudeEnvelope, samplingRate, identity),
		frequencyPoints:   buildPoints(v.FrequencyEnvelope, samplingRate, exp2),
		asymmetryPoints:   buildPoints(v.AsymmetryEnvelope, samplingRate, identity),
		oscillationPoints: buildPoints(v.OscillationEnvelope, samplingRate, identity),
	}
}

// waveState is one ear's worth of oscillator state: four modulators, a
// period machine, and the bookkeeping needed for the stereo head-delay
// lead-in (startDelay) and for deferring a retrigger until the previous
// note's tail has finished (restartDelay).
type waveState struct {
	data         *waveData
	samplingRate float32

	amplitude   *Modulator
	frequency   *Modulator
	asymmetry   *Modulator
	oscillation *Modulator
	period      WavePeriod

	baseFrequency float32
	startDelay    uint32
	restartDelay  uint32
	restartFreq   float32
	restartAmp    float32
	totalSamples  uint64
}

func newWaveState(data *waveData, samplingRate uint32, startDelay uint32) *waveState {
	return &waveState{
		data:         data,
		samplingRate: float32(samplingRate),
		amplitude:    NewModulator(data.amplitudePoints),
		frequency:    NewModulator(data.frequencyPoints),
		asymmetry:    NewModulator(data.asymmetryPoints),
		oscillation:  NewModulator(data.oscillationPoints),
		startDelay:   startDelay,
	}
}

// Start begins playing a new note at frequency (Hz) and amplitude, honoring
// any pending stereo head-delay lead-in. fromCurrent determines whether the
// amplitude envelope and period phase continue from wherever they currently
// are (legato-style retrigger) or reset from zero.
func (w *waveState) Start(frequency, amplitude float32, fromCurrent bool) {
	w.amplitude.Start(fromCurrent)
	w.frequency.Start(false)
	w.asymmetry.Start(false)
	w.oscillation.Start(false)
	w.baseFrequency = frequency
	nextFrequency := w.baseFrequency * w.frequency.CurrentValue()
	w.period.Start(w.samplingRate/nextFrequency, w.asymmetry.CurrentValue(), fromCurrent)
}

// StartDelayed arranges for Start to happen delay samples from now; if the
// previous note already stopped (or another delay is already pending), the
// new note starts immediately and the delay becomes a silent lead-in instead.
func (w *waveState) StartDelayed(frequency, amplitude float32, delay uint32) {
	if w.amplitude.Stopped() || w.startDelay > 0 {
		w.Start(frequency, amplitude, false)
		w.startDelay = delay
		return
	}
	if delay == 0 {
		w.Start(frequency, amplitude, true)
		w.startDelay = 0
		return
	}
	w.restartDelay = delay
	w.restartFreq = frequency
	w.restartAmp = amplitude
}

// Stop jumps the amplitude envelope to its end: the wave reports Stopped at
// once and emits no further samples; the current half-period is not played
// out.
func (w *waveState) Stop() {
	w.amplitude.Stop()
}

// Stopped reports whether the amplitude envelope has run its full course.
func (w *waveState) Stopped() bool {
	return w.amplitude.Stopped()
}

// MaxAdvance bounds how many samples Advance may be called with next.
func (w *waveState) MaxAdvance() uint32 {
	if w.startDelay > 0 {
		return w.startDelay
	}
	maxWaveAdvance := uint32(1<<32 - 1)
	if !w.amplitude.Stopped() {
		ampAdvance := uint32(w.amplitude.MaxContinuousAdvance())
		periodAdvance := w.period.MaxAdvance()
		if ampAdvance < periodAdvance {
			maxWaveAdvance = ampAdvance
		} else {
			maxWaveAdvance = periodAdvance
		}
	}
	if w.restartDelay > 0 && w.restartDelay < maxWaveAdvance {
		return w.restartDelay
	}
	return maxWaveAdvance
}

// Advance moves every modulator and the period machine forward by samples,
// restarting the period with freshly modulated frequency/asymmetry whenever
// it completes a full cycle, and firing a deferred StartDelayed retrigger
// once its delay elapses.
func (w *waveState) Advance(samples uint32) {
	w.totalSamples += uint64(samples)
	if w.startDelay > 0 {
		w.startDelay -= samples
		return
	}
	if !w.amplitude.Stopped() {
		f := float32(samples)
		w.amplitude.Advance(f)
		w.frequency.Advance(f)
		w.asymmetry.Advance(f)
		w.oscillation.Advance(f)
		if !w.period.Advance(f) {
			nextFrequency := w.baseFrequency * w.frequency.CurrentValue()
			w.period.Restart(w.samplingRate/nextFrequency, w.asymmetry.CurrentValue())
		}
	}
	if w.restartDelay > 0 {
		w.restartDelay -= samples
		if w.restartDelay == 0 {
			w.Start(w.restartFreq, w.restartAmp, true)
		}
	}
}

// WaveShaperData builds the ShaperData for the current half-period, scaled
// by amplitude and blended toward a hard extremum by the oscillation
// modulator's current value (oscillation=1 yields a square wave regardless
// of wave shape; oscillation=0 yields the shape's native curve — see
// DESIGN.md "oscillation" for the scenario this is grounded on).
func (w *waveState) WaveShaperData(amplitude float32) (ShaperData, float32) {
	sign := w.period.CurrentPartSign()
	firstY := amplitude * sign
	return ShaperData{
		FirstY:  firstY,
		DeltaY:  -2 * firstY,
		DeltaX:  w.period.CurrentPartLength(),
		Shape:   w.data.shapeParameter,
		OffsetX: w.period.CurrentPartOffset(),
	}, w.oscillation.CurrentValue()
}

// AmplitudeShaperData builds the ShaperData for a LinearShaper tracking the
// amplitude modulator's current segment; during a stereo lead-in it is a
// constant 0, so the delayed ear stays silent.
func (w *waveState) AmplitudeShaperData() ShaperData {
	if w.startDelay > 0 {
		return ShaperData{FirstY: 0, DeltaY: 0, DeltaX: 1, OffsetX: 0}
	}
	return w.amplitude.Segment()
}

// TotalSamples returns the number of samples this wave has advanced through.
func (w *waveState) TotalSamples() uint64 {
	return w.totalSamples
}
