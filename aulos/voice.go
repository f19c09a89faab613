package aulos

import (
	"math"

	dspcore "github.com/cwbudde/algo-dsp/dsp/core"
)

// Voice is a single-note oscillator: one wave state for mono playback, two
// independent per-ear wave states (with their own head-delay lead-ins) for
// stereo. The shaper variant is resolved once, at construction, from the
// voice's WaveShape — the per-sample render loop below never branches on it
// again (see DESIGN.md "shaper dispatch").
type Voice struct {
	newShaper func(ShaperData) Shaper

	stereo bool
	left   *waveState
	right  *waveState // nil when mono

	leftGain, rightGain float32 // 1, 1 for mono
	baseAmplitude       float32

	voiceDelayFrames int32 // from VoiceData.StereoDelayMS, constant across notes
}

// NewVoice constructs a voice for the given timbre. stereo selects whether
// the voice renders one or two independent ears.
func NewVoice(v VoiceData, samplingRate uint32, stereo bool) *Voice {
	data := newWaveData(v, samplingRate)
	voice := &Voice{
		newShaper: func(d ShaperData) Shaper { return NewShaper(v.WaveShape, d) },
		stereo:    stereo,
	}
	if !stereo {
		voice.left = newWaveState(data, samplingRate, 0)
		voice.leftGain, voice.rightGain = 1, 1
		return voice
	}
	voice.voiceDelayFrames = int32(math.Round(float64(v.StereoDelayMS) * float64(samplingRate) / 1000))
	voice.left = newWaveState(data, samplingRate, 0)
	voice.right = newWaveState(data, samplingRate, 0)
	voice.leftGain = minf(1-v.StereoPan, 1)
	rightGain := minf(1+v.StereoPan, 1)
	if v.StereoInversion {
		rightGain = -rightGain
	}
	voice.rightGain = rightGain
	return voice
}

func minf(a, b float32) float32 {
	if a < b {
		return a
	}
	return b
}

func clampf(x, lo, hi float32) float32 {
	if x < lo {
		return lo
	}
	if x > hi {
		return hi
	}
	return x
}

// Start triggers a new note. trackDelayFrames is the per-note stereo lead-in
// computed by the owning track's circular acoustics (zero when the track has
// no spatialization); it adds to the voice's own constant StereoDelayMS
// lead-in, independently per ear (see DESIGN.md "stereo delay compounding").
func (v *Voice) Start(note Note, amplitude float32, trackDelayFrames int32) {
	v.baseAmplitude = clampf(amplitude, -1, 1)
	freq := note.Frequency()
	if !v.stereo {
		v.left.StartDelayed(freq, amplitude, 0)
		return
	}
	leftDelay := nonNegative(-v.voiceDelayFrames) + nonNegative(-trackDelayFrames)
	rightDelay := nonNegative(v.voiceDelayFrames) + nonNegative(trackDelayFrames)
	v.left.StartDelayed(freq, amplitude, leftDelay)
	v.right.StartDelayed(freq, amplitude, rightDelay)
}

func nonNegative(x int32) uint32 {
	if x < 0 {
		return 0
	}
	return uint32(x)
}

// Stop ends the voice's envelope(s) at once: Stopped reports true and Render
// writes no further frames; the current half-period(s) are not played out.
func (v *Voice) Stop() {
	v.left.Stop()
	if v.right != nil {
		v.right.Stop()
	}
}

// Stopped reports whether every ear's amplitude envelope has run its course.
func (v *Voice) Stopped() bool {
	if v.right == nil {
		return v.left.Stopped()
	}
	return v.left.Stopped() && v.right.Stopped()
}

// Render mixes up to maxFrames frames (additively) into buffer, which must
// hold maxFrames*channels float32s already positioned at the voice's output
// offset. Returns the number of frames actually written before the voice
// ran out of sound.
func (v *Voice) Render(buffer []float32, maxFrames uint32) uint32 {
	if v.right == nil {
		return v.renderMono(buffer, maxFrames)
	}
	return v.renderStereo(buffer, maxFrames)
}

func (v *Voice) renderMono(buffer []float32, maxFrames uint32) uint32 {
	var offset uint32
	for offset < maxFrames && !v.left.Stopped() {
		remaining := maxFrames - offset
		step := minu32(remaining, v.left.MaxAdvance())
		shaperData, oscillation := v.left.WaveShaperData(v.baseAmplitude)
		waveShaper := v.newShaper(shaperData)
		ampShaper := NewLinearShaper(v.left.AmplitudeShaperData())
		squareTarget := shaperData.FirstY
		for i := uint32(0); i < step; i++ {
			raw := waveShaper.Advance()
			blended := raw*(1-oscillation) + squareTarget*oscillation
			buffer[offset+i] = dspcore.FlushDenormals(buffer[offset+i] + blended*ampShaper.Advance())
		}
		v.left.Advance(step)
		offset += step
	}
	return offset
}

func (v *Voice) renderStereo(buffer []float32, maxFrames uint32) uint32 {
	var offset uint32
	for offset < maxFrames && !(v.left.Stopped() && v.right.Stopped()) {
		remaining := maxFrames - offset
		step := minu32(minu32(remaining, v.left.MaxAdvance()), v.right.MaxAdvance())

		leftData, leftOsc := v.left.WaveShaperData(v.baseAmplitude * v.leftGain)
		rightData, rightOsc := v.right.WaveShaperData(v.baseAmplitude * v.rightGain)
		leftShaper := v.newShaper(leftData)
		rightShaper := v.newShaper(rightData)
		leftAmpShaper := NewLinearShaper(v.left.AmplitudeShaperData())
		rightAmpShaper := NewLinearShaper(v.right.AmplitudeShaperData())
		leftSquare := leftData.FirstY
		rightSquare := rightData.FirstY

		for i := uint32(0); i < step; i++ {
			l := leftShaper.Advance()*(1-leftOsc) + leftSquare*leftOsc
			r := rightShaper.Advance()*(1-rightOsc) + rightSquare*rightOsc
			idx := (offset + i) * 2
			buffer[idx] = dspcore.FlushDenormals(buffer[idx] + l*leftAmpShaper.Advance())
			buffer[idx+1] = dspcore.FlushDenormals(buffer[idx+1] + r*rightAmpShaper.Advance())
		}
		v.left.Advance(step)
		v.right.Advance(step)
		offset += step
	}
	return offset
}

func minu32(a, b uint32) uint32 {
	if a < b {
		return a
	}
	return b
}

// TotalSamples returns the number of samples the voice has advanced
// through, the max of its two ears when stereo.
func (v *Voice) TotalSamples() uint64 {
	if v.right == nil {
		return v.left.TotalSamples()
	}
	l, r := v.left.TotalSamples(), v.right.TotalSamples()
	if l > r {
		return l
	}
	return r
}
