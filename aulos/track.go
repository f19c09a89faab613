package aulos

import "sort"

// trackSound is one entry in a track's flattened, chord-grouped sound list.
type trackSound struct {
	delaySteps  uint32
	note        Note
	chordLength uint8 // length of the chord starting here; 0 for chord members after the first
}

// TrackRenderer owns one track's voice pool and plays its flattened sound
// list against a shared step clock.
type TrackRenderer struct {
	stepFrames uint32
	channels   int
	voiceData  VoiceData
	acoustics  circularAcoustics
	polyphony  Polyphony
	weight     uint8
	gain       float32

	sounds         []trackSound
	loopSoundIndex int // -1 if no loop anchor
	loopDelaySteps uint32

	voicePool    []*Voice
	playing      []*Voice
	playingNotes []Note

	nextSoundIndex  int
	strideRemaining uint64
	infinite        bool
	pendingLoopWrap bool
}

// newTrackRenderer builds the flattened sound list from a track's fragments
// and sequences, sizes its voice pool, and prepares the loop anchor.
func newTrackRenderer(track TrackData, voice VoiceData, stepFrames uint32, channels int, samplingRate uint32, loopOffsetSteps, loopLengthSteps uint32) *TrackRenderer {
	t := &TrackRenderer{
		stepFrames: stepFrames,
		channels:   channels,
		voiceData:  voice,
		acoustics:  newCircularAcoustics(track.Properties, samplingRate),
		polyphony:  track.Properties.Polyphony,
		weight:     track.Properties.Weight,
		loopSoundIndex: -1,
	}
	abs := buildAbsoluteSounds(track)
	t.sounds = toTrackSounds(abs)
	t.setVoices(t.maxPolyphony(), samplingRate)
	if loopLengthSteps > 0 {
		t.setLoop(loopOffsetSteps, loopLengthSteps)
	}
	return t
}

type absSound struct {
	offset uint32
	note   Note
}

// buildAbsoluteSounds replays every fragment in step order, absorbing
// overlap: a new fragment erases everything placed by prior fragments at or
// after its own step.
func buildAbsoluteSounds(track TrackData) []absSound {
	var sounds []absSound
	var fragOffset uint32
	for _, frag := range track.Fragments {
		fragOffset += frag.DelaySteps
		i := 0
		for i < len(sounds) && sounds[i].offset < fragOffset {
			i++
		}
		sounds = sounds[:i]
		if frag.SequenceIndex < 0 || frag.SequenceIndex >= len(track.Sequences) {
			continue
		}
		cur := fragOffset
		for _, s := range track.Sequences[frag.SequenceIndex].Sounds {
			cur += s.DelaySteps
			sounds = append(sounds, absSound{offset: cur, note: s.Note})
		}
	}
	return sounds
}

// toTrackSounds converts absolute-offset sounds into the delay/chord-length
// representation the render loop consumes.
func toTrackSounds(sounds []absSound) []trackSound {
	if len(sounds) == 0 {
		return nil
	}
	sort.SliceStable(sounds, func(i, j int) bool { return sounds[i].offset < sounds[j].offset })
	result := make([]trackSound, 0, len(sounds))
	var prevOffset uint32
	i := 0
	for i < len(sounds) {
		offset := sounds[i].offset
		var delay uint32
		if i > 0 {
			delay = offset - prevOffset
		} else {
			delay = offset
		}
		j := i
		for j < len(sounds) && sounds[j].offset == offset {
			j++
		}
		result = append(result, trackSound{delaySteps: delay, note: sounds[i].note, chordLength: uint8(j - i)})
		for k := i + 1; k < j; k++ {
			result = append(result, trackSound{delaySteps: 0, note: sounds[k].note, chordLength: 0})
		}
		prevOffset = offset
		i = j
	}
	return result
}

// maxPolyphony returns the number of voices the track's pool must hold:
// the longest chord for Chord polyphony, or the count of distinct notes
// ever played for Full polyphony.
func (t *TrackRenderer) maxPolyphony() int {
	if len(t.sounds) == 0 {
		return 0
	}
	if t.polyphony == PolyphonyFull {
		seen := map[Note]bool{}
		for _, s := range t.sounds {
			seen[s.note] = true
		}
		return len(seen)
	}
	maxChord := 1
	for _, s := range t.sounds {
		if int(s.chordLength) > maxChord {
			maxChord = int(s.chordLength)
		}
	}
	return maxChord
}

func (t *TrackRenderer) setVoices(count int, samplingRate uint32) {
	t.voicePool = make([]*Voice, 0, count)
	t.playing = make([]*Voice, 0, count)
	t.playingNotes = make([]Note, 0, count)
	for i := 0; i < count; i++ {
		t.voicePool = append(t.voicePool, NewVoice(t.voiceData, samplingRate, t.channels == 2))
	}
}

// setLoop walks forward through the sound list accumulating offsets until
// reaching loopOffset, then computes the delay that makes the cycle from
// that anchor back to itself exactly loopLength steps long.
func (t *TrackRenderer) setLoop(loopOffset, loopLength uint32) {
	if len(t.sounds) == 0 {
		return
	}
	cumulative := make([]uint32, len(t.sounds))
	var cur uint32
	anchor := -1
	for i, s := range t.sounds {
		cur += s.delaySteps
		cumulative[i] = cur
		if anchor == -1 && cur >= loopOffset {
			anchor = i
		}
	}
	if anchor == -1 {
		return
	}
	last := cumulative[len(cumulative)-1]
	span := last - cumulative[anchor]
	if loopLength > span {
		t.loopDelaySteps = loopLength - span
	}
	t.loopSoundIndex = anchor
}

func (t *TrackRenderer) takeFromPool() *Voice {
	if len(t.voicePool) == 0 {
		panic(PreconditionViolation{"voice pool exhausted: maxPolyphony under-counted"})
	}
	v := t.voicePool[len(t.voicePool)-1]
	t.voicePool = t.voicePool[:len(t.voicePool)-1]
	return v
}

func (t *TrackRenderer) startChord(idx int) int {
	chordLen := int(t.sounds[idx].chordLength)
	if chordLen == 0 {
		chordLen = 1
	}
	switch t.polyphony {
	case PolyphonyFull:
		for i := 0; i < chordLen; i++ {
			t.startFull(t.sounds[idx+i].note)
		}
	default:
		claimed := make([]bool, len(t.playing))
		for i := 0; i < chordLen; i++ {
			t.startChordMember(t.sounds[idx+i].note, &claimed)
		}
	}
	return chordLen
}

func (t *TrackRenderer) startFull(note Note) {
	for i, pn := range t.playingNotes {
		if pn == note {
			t.playing[i].Start(note, t.gain, t.acoustics.stereoDelayFrames(note))
			return
		}
	}
	v := t.takeFromPool()
	v.Start(note, t.gain, t.acoustics.stereoDelayFrames(note))
	t.playing = append(t.playing, v)
	t.playingNotes = append(t.playingNotes, note)
}

// startChordMember assigns note to a voice under Chord polyphony: it always
// searches the currently playing voices first for the highest note not yet
// claimed by this same chord, and steals it. Only when every playing voice
// is already claimed does it fall back to the idle pool. This mirrors
// original_source/aulos/src/renderer.cpp's _playingSounds scan, which only
// reaches _voicePool when the scan ends at _playingSounds.end().
func (t *TrackRenderer) startChordMember(note Note, claimed *[]bool) {
	best := -1
	for i, pn := range t.playingNotes {
		if (*claimed)[i] {
			continue
		}
		if best == -1 || pn > t.playingNotes[best] {
			best = i
		}
	}
	if best == -1 {
		v := t.takeFromPool()
		t.playing = append(t.playing, v)
		t.playingNotes = append(t.playingNotes, note)
		*claimed = append(*claimed, true)
		v.Start(note, t.gain, t.acoustics.stereoDelayFrames(note))
		return
	}
	(*claimed)[best] = true
	t.playingNotes[best] = note
	t.playing[best].Start(note, t.gain, t.acoustics.stereoDelayFrames(note))
}

func (t *TrackRenderer) sweepFinished() {
	i := 0
	for i < len(t.playing) {
		if t.playing[i].Stopped() {
			t.voicePool = append(t.voicePool, t.playing[i])
			last := len(t.playing) - 1
			t.playing[i] = t.playing[last]
			t.playing = t.playing[:last]
			t.playingNotes[i] = t.playingNotes[last]
			t.playingNotes = t.playingNotes[:last]
			continue
		}
		i++
	}
}

// Render mixes this track into buffer (additively) for up to maxFrames
// frames, advancing the track's own clock, and returns the number of frames
// it actually produced before running out of sound (or maxFrames, if it
// keeps going, e.g. because it is looping).
func (t *TrackRenderer) Render(buffer []float32, maxFrames uint32) uint32 {
	var offset uint32
	for offset < maxFrames {
		if !t.infinite && t.strideRemaining == 0 {
			if t.pendingLoopWrap {
				t.nextSoundIndex = t.loopSoundIndex
				t.pendingLoopWrap = false
			}
			if t.nextSoundIndex < len(t.sounds) {
				chordLen := t.startChord(t.nextSoundIndex)
				t.nextSoundIndex += chordLen
				switch {
				case t.nextSoundIndex < len(t.sounds):
					t.strideRemaining = uint64(t.sounds[t.nextSoundIndex].delaySteps) * uint64(t.stepFrames)
				case t.loopSoundIndex >= 0:
					t.strideRemaining = uint64(t.loopDelaySteps) * uint64(t.stepFrames)
					t.pendingLoopWrap = true
				default:
					t.infinite = true
				}
			} else {
				t.infinite = true
			}
		}

		remaining := maxFrames - offset
		var budget uint32
		if t.infinite {
			budget = remaining
		} else if uint64(remaining) < t.strideRemaining {
			budget = remaining
		} else {
			budget = uint32(t.strideRemaining)
		}
		if budget == 0 {
			break
		}

		window := buffer[offset*uint32(t.channels) : (offset+budget)*uint32(t.channels)]
		var maxProduced uint32
		for _, v := range t.playing {
			if produced := v.Render(window, budget); produced > maxProduced {
				maxProduced = produced
			}
		}
		t.sweepFinished()

		if t.infinite {
			offset += maxProduced
			if len(t.playing) == 0 {
				break
			}
		} else {
			offset += budget
			t.strideRemaining -= uint64(budget)
		}
	}
	return offset
}

// Restart stops and pools every playing voice, resets the cursor to the
// first sound, and recomputes the per-voice gain from weight/gainDivisor.
func (t *TrackRenderer) Restart(gainDivisor float32) {
	for _, v := range t.playing {
		v.Stop()
		t.voicePool = append(t.voicePool, v)
	}
	t.playing = t.playing[:0]
	t.playingNotes = t.playingNotes[:0]
	t.nextSoundIndex = 0
	t.infinite = false
	t.pendingLoopWrap = false
	if len(t.sounds) > 0 {
		t.strideRemaining = uint64(t.sounds[0].delaySteps) * uint64(t.stepFrames)
	} else {
		t.strideRemaining = 0
	}
	if gainDivisor <= 0 {
		gainDivisor = 1
	}
	t.gain = float32(t.weight) / gainDivisor
}
