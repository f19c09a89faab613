package parser

import "github.com/cwbudde/aulos-go/aulos"

const (
	minSpeed = 1
	maxSpeed = 32
)

type section int

const (
	sectionGlobal section = iota
	sectionVoice
	sectionTracks
	sectionSequences
	sectionFragments
)

type parseState struct {
	s             *scanner
	section       section
	comp          aulos.Composition
	currentVoice  *aulos.VoiceData
}

// Parse reads a composition text (UTF-8, LF or CRLF line endings) and
// returns the packed, gain-normalized Composition it describes. On any
// malformed input it returns a *ParseError.
func Parse(text []byte) (comp *aulos.Composition, err error) {
	defer func() {
		if r := recover(); r != nil {
			if pe, ok := r.(*ParseError); ok {
				err = pe
				return
			}
			panic(r)
		}
	}()

	p := &parseState{s: newScanner(text)}
	p.run()

	if len(p.comp.Parts) == 0 {
		return &p.comp, nil
	}
	if err := aulos.NormalizeGain(&p.comp); err != nil {
		return nil, err
	}
	return &p.comp, nil
}

func (p *parseState) run() {
	s := p.s
	for {
		switch c := s.peek(); c {
		case 0:
			return
		case '\r', '\n':
			s.consumeEndOfLine()
		case '\t', ' ':
			for s.peek() == ' ' || s.peek() == '\t' {
				s.pos++
			}
		case '@':
			s.pos++
			p.parseSectionHeader()
		default:
			if isDigit(c) {
				p.parseIndexedLine()
			} else {
				p.parseCommand(s.readIdentifier())
			}
		}
	}
}

func (p *parseState) parseSectionHeader() {
	s := p.s
	switch name := s.readIdentifier(); name {
	case "voice":
		partIndex := uint32(len(p.comp.Parts) + 1)
		s.readUnsigned(partIndex, partIndex)
		voiceName, _ := s.tryReadString()
		s.consumeEndOfLine()
		p.comp.Parts = append(p.comp.Parts, aulos.PartData{VoiceName: voiceName})
		p.currentVoice = &p.comp.Parts[len(p.comp.Parts)-1].Voice
		p.section = sectionVoice
	case "tracks":
		s.consumeEndOfLine()
		p.section = sectionTracks
	case "sequences":
		s.consumeEndOfLine()
		p.section = sectionSequences
	case "fragments":
		s.consumeEndOfLine()
		p.section = sectionFragments
	default:
		s.fail("unknown section \"@" + name + "\"")
	}
}

func (p *parseState) part(index uint32) *aulos.PartData {
	if index < 1 || int(index) > len(p.comp.Parts) {
		p.s.fail("number is out of range")
	}
	return &p.comp.Parts[index-1]
}

func (p *parseState) parseIndexedLine() {
	s := p.s
	switch p.section {
	case sectionTracks:
		part := p.part(s.readUnsigned(1, uint32(len(p.comp.Parts))))
		trackIndex := uint32(len(part.Tracks) + 1)
		s.readUnsigned(trackIndex, trackIndex)
		weight, ok := s.tryReadUnsigned(1, 255)
		if !ok {
			weight = 1
		}
		s.consumeEndOfLine()
		part.Tracks = append(part.Tracks, aulos.TrackData{Properties: aulos.TrackProperties{Weight: uint8(weight)}})
	case sectionSequences:
		part := p.part(s.readUnsigned(1, uint32(len(p.comp.Parts))))
		track := &part.Tracks[s.readUnsigned(1, uint32(len(part.Tracks)))-1]
		sequenceIndex := uint32(len(track.Sequences) + 1)
		s.readUnsigned(sequenceIndex, sequenceIndex)
		track.Sequences = append(track.Sequences, aulos.Sequence{Sounds: s.parseSequence()})
	case sectionFragments:
		part := p.part(s.readUnsigned(1, uint32(len(p.comp.Parts))))
		track := &part.Tracks[s.readUnsigned(1, uint32(len(part.Tracks)))-1]
		for {
			delay, ok := s.tryReadUnsigned(0, 1<<32 - 1)
			if !ok {
				break
			}
			seqIndex := s.readUnsigned(1, uint32(len(track.Sequences)))
			track.Fragments = append(track.Fragments, aulos.Fragment{DelaySteps: delay, SequenceIndex: int(seqIndex) - 1})
		}
		s.consumeEndOfLine()
	default:
		s.fail("unexpected token")
	}
}

func (p *parseState) parseCommand(command string) {
	s := p.s

	requireVoice := func() {
		if p.section != sectionVoice {
			s.fail("unexpected command")
		}
	}
	requireGlobal := func() {
		if p.section != sectionGlobal {
			s.fail("unexpected command")
		}
	}

	switch command {
	case "amplitude":
		requireVoice()
		p.currentVoice.AmplitudeEnvelope = s.readEnvelope(0, 1)
	case "asymmetry":
		requireVoice()
		p.currentVoice.AsymmetryEnvelope = s.readEnvelope(0, 1)
	case "frequency":
		requireVoice()
		p.currentVoice.FrequencyEnvelope = s.readEnvelope(-1, 1)
	case "oscillation":
		requireVoice()
		p.currentVoice.OscillationEnvelope = s.readEnvelope(0, 1)
	case "loop":
		requireGlobal()
		p.comp.LoopOffset = s.readUnsigned(0, 1<<32 - 1)
		p.comp.LoopLength = s.readUnsigned(0, 1<<32 - 1)
	case "polyphony":
		requireVoice()
		switch s.readIdentifier() {
		case "chord":
			p.currentVoice.Polyphony = aulos.PolyphonyChord
		case "full":
			p.currentVoice.Polyphony = aulos.PolyphonyFull
		default:
			s.fail("bad voice polyphony")
		}
	case "stereo_delay":
		requireVoice()
		p.currentVoice.StereoDelayMS = s.readFloat(-1000, 1000)
	case "stereo_inversion":
		requireVoice()
		p.currentVoice.StereoInversion = s.readUnsigned(0, 1) == 1
	case "stereo_pan":
		requireVoice()
		p.currentVoice.StereoPan = s.readFloat(-1, 1)
	case "stereo_radius":
		requireVoice()
		p.currentVoice.StereoRadiusMS = s.readFloat(-1000, 1000)
	case "wave":
		requireVoice()
		p.parseWave()
	case "speed":
		requireGlobal()
		p.comp.Speed = s.readUnsigned(minSpeed, maxSpeed)
	case "title":
		requireGlobal()
		p.comp.Title = s.readString()
	case "author":
		requireGlobal()
		p.comp.Author = s.readString()
	default:
		s.fail("unknown command \"" + command + "\"")
	}

	if c := s.peek(); c != 0 && c != '\n' && c != '\r' {
		s.fail("end of line expected")
	}
	s.consumeEndOfLine()
}

func (p *parseState) parseWave() {
	s := p.s
	var minShape, maxShape float32
	switch shapeName := s.readIdentifier(); shapeName {
	case "linear":
		p.currentVoice.WaveShape = aulos.WaveLinear
	case "smooth_quadratic":
		p.currentVoice.WaveShape = aulos.WaveSmoothQuadratic
	case "sharp_quadratic":
		p.currentVoice.WaveShape = aulos.WaveSharpQuadratic
	case "cubic":
		p.currentVoice.WaveShape = aulos.WaveSmoothCubic
		minShape, maxShape = aulos.MinSmoothCubicShape, aulos.MaxSmoothCubicShape
	case "quintic":
		p.currentVoice.WaveShape = aulos.WaveQuintic
		minShape, maxShape = aulos.MinQuinticShape, aulos.MaxQuinticShape
	case "cosine":
		p.currentVoice.WaveShape = aulos.WaveCosine
	default:
		s.fail("bad voice wave type")
	}
	if parameter, ok := s.tryReadFloat(minShape, maxShape); ok {
		p.currentVoice.WaveShapeParameter = parameter
	} else {
		p.currentVoice.WaveShapeParameter = 0
	}
}

// readEnvelope reads repeated `duration[ shape] value` pairs until the next
// token isn't a duration.
func (s *scanner) readEnvelope(minValue, maxValue float32) aulos.Envelope {
	var changes []aulos.EnvelopeChange
	for {
		duration, ok := s.tryReadUnsigned(0, aulos.MaxEnvelopeDurationMS)
		if !ok {
			break
		}
		shape := aulos.EnvelopeLinear
		if name := s.tryReadIdentifier(); name != "" {
			switch name {
			case "smooth_quadratic_2":
				shape = aulos.EnvelopeSmoothQuadratic2
			case "smooth_quadratic_4":
				shape = aulos.EnvelopeSmoothQuadratic4
			case "sharp_quadratic_2":
				shape = aulos.EnvelopeSharpQuadratic2
			case "sharp_quadratic_4":
				shape = aulos.EnvelopeSharpQuadratic4
			default:
				s.fail("unknown envelope shape")
			}
		}
		value := s.readFloat(minValue, maxValue)
		changes = append(changes, aulos.EnvelopeChange{DurationMS: duration, Value: value, Shape: shape})
	}
	return aulos.Envelope{Changes: changes}
}
