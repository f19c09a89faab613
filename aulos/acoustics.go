package aulos

import "math"

// circularAcoustics computes a per-note stereo lead-in delay from a track's
// spatialization parameters: a source of angular extent sourceSize, offset
// by sourceOffset, maps each note's pitch to an angle; head radius plus
// source radius produce a per-ear path-length difference.
type circularAcoustics struct {
	headRadius   float32 // in samples
	sourceRadius float32 // in head radii
	sourceSize   float32 // in right angles
	sourceOffset float32 // in right angles; 0 = forward, positive = right
}

func newCircularAcoustics(props TrackProperties, samplingRate uint32) circularAcoustics {
	return circularAcoustics{
		headRadius:   float32(samplingRate) * props.HeadRadiusMS / 1000,
		sourceRadius: props.SourceRadius,
		sourceSize:   props.SourceSize,
		sourceOffset: props.SourceOffset,
	}
}

// stereoDelayFrames returns the signed frame delay for note; zero when the
// track has no spatialization configured.
func (a circularAcoustics) stereoDelayFrames(note Note) int32 {
	const lastNoteIndex = noteCount - 1
	noteAngle := float32(2*int(note)-lastNoteIndex) / float32(2*lastNoteIndex) // [-0.5, 0.5]
	doubleSin := 2 * float32(math.Sin(float64((noteAngle*a.sourceSize+a.sourceOffset)*math.Pi/2)))
	left := float32(math.Sqrt(float64(1 + a.sourceRadius*(a.sourceRadius+doubleSin))))
	right := float32(math.Sqrt(float64(1 + a.sourceRadius*(a.sourceRadius-doubleSin))))
	delta := left - right
	return int32(a.headRadius * delta)
}
