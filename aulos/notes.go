package aulos

import "github.com/cwbudde/algo-approx"

// Note enumerates the 120 equal-tempered pitches from C0 to B9.
type Note uint8

const noteCount = 120

// NewNote builds a Note from a zero-based semitone offset within an octave
// (0 = C, 1 = Db, ... 11 = B) and an octave number in [0, 9].
func NewNote(semitone, octave int) Note {
	return Note(octave*12 + semitone)
}

// noteFrequencies is the precomputed equal-tempered frequency table, A4 = 440 Hz exactly.
var noteFrequencies = buildNoteTable()

const a4Index = 9 + 4*12 // A4 relative to C0

// buildNoteTable fills every octave from its own A-note anchor, doubling
// each anchor exactly from A4 rather than computing every entry from a
// fresh 2^x, the same structure as original_source/aulos/src/voice.cpp's
// NoteTable constructor. Doubling (and halving) a float32 only changes its
// exponent field, so every A-note anchor is bit-exact relative to A4, and
// since each octave's non-A notes are reached from their octave's anchor by
// the identical chain of ratio multiplications, freq(N+12) == 2*freq(N)
// exactly for every N (spec.md §8 property 1) instead of merely
// approximately.
func buildNoteTable() [noteCount]float32 {
	var table [noteCount]float32
	table[a4Index] = 440.0

	for a := a4Index; a+12 < noteCount; a += 12 {
		table[a+12] = table[a] * 2
	}
	for a := a4Index; a-12 >= 0; a -= 12 {
		table[a-12] = table[a] / 2
	}

	ratio := noteRatio()
	const aSemitone = 9
	const bSemitone = 11
	for base := 0; base+11 < noteCount; base += 12 {
		a := base + aSemitone
		for n := a; n > base; n-- {
			table[n-1] = table[n] / ratio
		}
		for n := a; n < base+bSemitone; n++ {
			table[n+1] = table[n] * ratio
		}
	}
	return table
}

// noteRatio returns the equal-tempered semitone ratio 2^(1/12), computed via
// pow2.
func noteRatio() float32 {
	return pow2(1.0 / 12.0)
}

// pow2 computes 2^x via the same fast-exp approximation the teacher uses for
// its MIDI-to-frequency conversion (piano/utils.go's pow2Approx). Used here
// for the one-time semitone ratio and by Modulator's frequency-envelope
// transform (exp2 in modulator.go), which needs 2^v for an arbitrary
// continuously modulated v, not just a fixed table of 120 values.
func pow2(x float32) float32 {
	const ln2 = 0.69314718055994530942
	return approx.FastExp(x * ln2)
}

// Frequency returns the frequency in Hz of the given note.
func (n Note) Frequency() float32 {
	if int(n) < 0 || int(n) >= noteCount {
		panic(PreconditionViolation{"note index out of range"})
	}
	return noteFrequencies[n]
}

// Valid reports whether n is one of the 120 representable notes.
func (n Note) Valid() bool {
	return int(n) < noteCount
}
