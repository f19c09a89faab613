package aulos

import "math"

// MinSamplingRate and MaxSamplingRate bound the sampling rates NewRenderer
// accepts; outside this range it returns ErrUnsupportedFormat.
const (
	MinSamplingRate = 8000
	MaxSamplingRate = 48000
)

// ChannelLayout selects mono or stereo output.
type ChannelLayout int

const (
	Mono ChannelLayout = iota
	Stereo
)

func (c ChannelLayout) count() int {
	if c == Stereo {
		return 2
	}
	return 1
}

// AudioFormat describes the PCM layout a Renderer produces.
type AudioFormat struct {
	SamplingRate uint32
	Channels     ChannelLayout
}

// Renderer mixes every track of a Composition into interleaved float32 PCM,
// one render/skip call at a time, honoring the composition's own loop
// bookkeeping.
type Renderer struct {
	format    AudioFormat
	looping   bool
	stepFrames uint32

	tracks      []*TrackRenderer
	gainDivisor float32

	currentOffset    uint64
	loopOffsetFrames uint64
	loopLengthFrames uint64
}

// NewRenderer builds one TrackRenderer per (part, track) whose amplitude
// envelope has non-zero total duration, and prepares the composition-level
// step clock and loop window.
func NewRenderer(c *Composition, format AudioFormat, looping bool) (*Renderer, error) {
	if format.SamplingRate < MinSamplingRate || format.SamplingRate > MaxSamplingRate {
		return nil, ErrUnsupportedFormat
	}
	if c.Speed == 0 {
		return nil, ErrUnsupportedFormat
	}
	r := &Renderer{
		format:     format,
		looping:    looping,
		stepFrames: uint32(math.Round(float64(format.SamplingRate) / float64(c.Speed))),
	}
	r.gainDivisor = c.GainDivisor
	if r.gainDivisor <= 0 {
		r.gainDivisor = 1
	}
	for _, part := range c.Parts {
		for _, track := range part.Tracks {
			if part.Voice.AmplitudeEnvelope.TotalDurationMS() == 0 {
				continue
			}
			tr := newTrackRenderer(track, part.Voice, r.stepFrames, format.Channels.count(), format.SamplingRate, c.LoopOffset, c.LoopLength)
			tr.Restart(r.gainDivisor)
			r.tracks = append(r.tracks, tr)
		}
	}
	r.loopOffsetFrames = uint64(c.LoopOffset) * uint64(r.stepFrames)
	r.loopLengthFrames = uint64(c.LoopLength) * uint64(r.stepFrames)
	return r, nil
}

// Format returns the audio format this renderer was constructed with.
func (r *Renderer) Format() AudioFormat { return r.format }

// LoopOffset returns the loop window's start, in frames.
func (r *Renderer) LoopOffset() uint64 { return r.loopOffsetFrames }

// CurrentOffset returns the renderer's current playback position, in frames.
func (r *Renderer) CurrentOffset() uint64 { return r.currentOffset }

// Render zeroes buf, mixes every track additively into it for up to
// maxFrames frames, and returns the number of frames actually written.
func (r *Renderer) Render(buf []float32, maxFrames uint32) uint32 {
	channels := uint32(r.format.Channels.count())
	for i := range buf[:maxFrames*channels] {
		buf[i] = 0
	}
	return r.renderInto(buf, maxFrames, channels)
}

// SkipFrames advances playback by up to maxFrames without returning audio,
// using a bounded scratch buffer so callers can discard arbitrarily large
// spans of silence cheaply.
func (r *Renderer) SkipFrames(maxFrames uint32) uint32 {
	const scratchBytes = 16 * 1024
	channels := uint32(r.format.Channels.count())
	scratchFrames := uint32(scratchBytes / 4 / int(channels))
	if scratchFrames == 0 {
		scratchFrames = 1
	}
	scratch := make([]float32, scratchFrames*channels)

	var total uint32
	for total < maxFrames {
		chunk := maxFrames - total
		if chunk > scratchFrames {
			chunk = scratchFrames
		}
		for i := range scratch[:chunk*channels] {
			scratch[i] = 0
		}
		produced := r.renderInto(scratch, chunk, channels)
		total += produced
		if produced < chunk {
			break
		}
	}
	return total
}

// renderInto implements the three-step render control flow shared by
// Render and SkipFrames against an already-zeroed buffer.
func (r *Renderer) renderInto(buf []float32, maxFrames, channels uint32) uint32 {
	var written uint32
	for written < maxFrames {
		remaining := maxFrames - written
		window := buf[written*channels : maxFrames*channels]

		var maxProduced uint32
		for _, t := range r.tracks {
			if produced := t.Render(window[:remaining*channels], remaining); produced > maxProduced {
				maxProduced = produced
			}
		}
		written += maxProduced
		r.currentOffset += uint64(maxProduced)

		if r.looping && r.loopLengthFrames > 0 && r.currentOffset >= r.loopOffsetFrames+r.loopLengthFrames {
			r.currentOffset = r.loopOffsetFrames + (r.currentOffset-r.loopOffsetFrames)%r.loopLengthFrames
		}

		if maxProduced >= remaining {
			continue
		}
		if !r.looping {
			return written
		}
		gap := remaining - maxProduced
		if r.loopLengthFrames > 0 {
			windowEnd := r.loopOffsetFrames + r.loopLengthFrames
			toWindowEnd := windowEnd - r.currentOffset
			if toWindowEnd == 0 {
				toWindowEnd = r.loopLengthFrames
			}
			fill := gap
			if uint64(fill) > toWindowEnd {
				fill = uint32(toWindowEnd)
			}
			written += fill
			r.currentOffset += uint64(fill)
			if uint64(fill) == toWindowEnd {
				r.currentOffset = r.loopOffsetFrames
			}
			continue
		}
		stepPos := uint32(r.currentOffset % uint64(r.stepFrames))
		toStepBoundary := r.stepFrames - stepPos
		if stepPos == 0 && r.currentOffset > 0 {
			toStepBoundary = 0
		}
		// At offset 0 nothing was produced at all (an empty composition
		// looped): emit one full step of silence before restarting, so
		// playback advances instead of restarting in place forever.
		fill := gap
		if fill > toStepBoundary {
			fill = toStepBoundary
		}
		written += fill
		r.currentOffset += uint64(fill)
		if fill == toStepBoundary {
			r.Restart()
		}
	}
	return written
}

// Restart stops every track's playing voices, resets their cursors to the
// first sound, and rewinds the composition's own playback position.
func (r *Renderer) Restart() {
	r.currentOffset = 0
	for _, t := range r.tracks {
		t.Restart(r.gainDivisor)
	}
}
