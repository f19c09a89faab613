package aulos

import (
	"strconv"
	"strings"
)

// Serialize renders c back into the composition text format Parse accepts.
// Round-tripping through Parse (after a gain-normalization pass produces
// the same GainDivisor both times) yields a structurally equal
// Composition, modulo the pretty-printing choices made here.
func Serialize(c *Composition) []byte {
	var b strings.Builder

	if c.Author != "" {
		b.WriteString("author \"")
		b.WriteString(c.Author)
		b.WriteString("\"\n")
	}
	if c.LoopLength > 0 {
		b.WriteString("loop ")
		writeUint(&b, uint64(c.LoopOffset))
		b.WriteByte(' ')
		writeUint(&b, uint64(c.LoopLength))
		b.WriteByte('\n')
	}
	b.WriteString("speed ")
	writeUint(&b, uint64(c.Speed))
	b.WriteByte('\n')
	if c.Title != "" {
		b.WriteString("title \"")
		b.WriteString(c.Title)
		b.WriteString("\"\n")
	}

	for i, part := range c.Parts {
		b.WriteString("\n@voice ")
		writeUint(&b, uint64(i+1))
		if part.VoiceName != "" {
			b.WriteString(" \"")
			b.WriteString(part.VoiceName)
			b.WriteByte('"')
		}
		b.WriteByte('\n')
		writeEnvelope(&b, "amplitude", part.Voice.AmplitudeEnvelope)
		writeEnvelope(&b, "asymmetry", part.Voice.AsymmetryEnvelope)
		writeEnvelope(&b, "frequency", part.Voice.FrequencyEnvelope)
		writeEnvelope(&b, "oscillation", part.Voice.OscillationEnvelope)
		b.WriteString("polyphony ")
		if part.Voice.Polyphony == PolyphonyFull {
			b.WriteString("full\n")
		} else {
			b.WriteString("chord\n")
		}
		b.WriteString("stereo_delay ")
		writeFloat(&b, part.Voice.StereoDelayMS)
		b.WriteByte('\n')
		b.WriteString("stereo_inversion ")
		if part.Voice.StereoInversion {
			b.WriteByte('1')
		} else {
			b.WriteByte('0')
		}
		b.WriteByte('\n')
		b.WriteString("stereo_pan ")
		writeFloat(&b, part.Voice.StereoPan)
		b.WriteByte('\n')
		b.WriteString("stereo_radius ")
		writeFloat(&b, part.Voice.StereoRadiusMS)
		b.WriteByte('\n')
		b.WriteString("wave ")
		switch part.Voice.WaveShape {
		case WaveLinear:
			b.WriteString("linear")
		case WaveSmoothQuadratic:
			b.WriteString("smooth_quadratic")
		case WaveSharpQuadratic:
			b.WriteString("sharp_quadratic")
		case WaveSmoothCubic:
			b.WriteString("cubic ")
			writeFloat(&b, part.Voice.WaveShapeParameter)
		case WaveQuintic:
			b.WriteString("quintic ")
			writeFloat(&b, part.Voice.WaveShapeParameter)
		case WaveCosine:
			b.WriteString("cosine")
		}
		b.WriteByte('\n')
	}

	b.WriteString("\n@tracks")
	for p, part := range c.Parts {
		for t, track := range part.Tracks {
			b.WriteByte('\n')
			writeUint(&b, uint64(p+1))
			b.WriteByte(' ')
			writeUint(&b, uint64(t+1))
			b.WriteByte(' ')
			writeUint(&b, uint64(track.Properties.Weight))
		}
	}

	b.WriteString("\n\n@sequences")
	for p, part := range c.Parts {
		for t, track := range part.Tracks {
			for s, seq := range track.Sequences {
				b.WriteByte('\n')
				writeUint(&b, uint64(p+1))
				b.WriteByte(' ')
				writeUint(&b, uint64(t+1))
				b.WriteByte(' ')
				writeUint(&b, uint64(s+1))
				if len(seq.Sounds) > 0 {
					b.WriteByte(' ')
				}
				for _, sound := range seq.Sounds {
					for i := uint32(0); i < sound.DelaySteps; i++ {
						b.WriteByte(',')
					}
					b.WriteString(noteName(sound.Note))
				}
			}
		}
	}

	b.WriteString("\n\n@fragments")
	for p, part := range c.Parts {
		for t, track := range part.Tracks {
			b.WriteByte('\n')
			writeUint(&b, uint64(p+1))
			b.WriteByte(' ')
			writeUint(&b, uint64(t+1))
			for _, frag := range track.Fragments {
				b.WriteByte(' ')
				writeUint(&b, uint64(frag.DelaySteps))
				b.WriteByte(' ')
				writeUint(&b, uint64(frag.SequenceIndex+1))
			}
		}
	}
	b.WriteByte('\n')

	return []byte(b.String())
}

var noteLetters = [12]string{"C", "C#", "D", "D#", "E", "F", "F#", "G", "G#", "A", "A#", "B"}

func noteName(n Note) string {
	semitone := int(n) % 12
	octave := int(n) / 12
	return noteLetters[semitone] + strconv.Itoa(octave)
}

func writeUint(b *strings.Builder, v uint64) {
	b.WriteString(strconv.FormatUint(v, 10))
}

func writeFloat(b *strings.Builder, v float32) {
	b.WriteString(strconv.FormatFloat(float64(v), 'f', 4, 32))
}

func writeEnvelope(b *strings.Builder, name string, e Envelope) {
	if len(e.Changes) == 0 {
		return
	}
	b.WriteString(name)
	for _, change := range e.Changes {
		b.WriteByte(' ')
		writeUint(b, uint64(change.DurationMS))
		switch change.Shape {
		case EnvelopeSmoothQuadratic2:
			b.WriteString(" smooth_quadratic_2")
		case EnvelopeSmoothQuadratic4:
			b.WriteString(" smooth_quadratic_4")
		case EnvelopeSharpQuadratic2:
			b.WriteString(" sharp_quadratic_2")
		case EnvelopeSharpQuadratic4:
			b.WriteString(" sharp_quadratic_4")
		}
		b.WriteByte(' ')
		writeFloat(b, change.Value)
	}
	b.WriteByte('\n')
}
