package aulos

import "testing"

// sawtoothVoice builds the single-voice timbre shared by spec.md §8's
// end-to-end scenarios: amplitude ramps 0->1 over 0ms then holds 1 for
// 1001ms, oscillator is an asymmetric (asymmetry=1) linear sawtooth.
func sawtoothVoice() VoiceData {
	return VoiceData{
		WaveShape: WaveLinear,
		AmplitudeEnvelope: Envelope{Changes: []EnvelopeChange{
			{DurationMS: 0, Value: 1},
			{DurationMS: 1001, Value: 1},
		}},
		AsymmetryEnvelope: Envelope{Changes: []EnvelopeChange{
			{DurationMS: 0, Value: 1},
		}},
	}
}

func singleTrackComposition(voice VoiceData, speed uint32, loopOffset, loopLength uint32, notesAtSteps []int) *Composition {
	var sounds []Sound
	var prevStep int
	for i, step := range notesAtSteps {
		delay := uint32(step - prevStep)
		if i == 0 {
			delay = uint32(step)
		}
		sounds = append(sounds, Sound{DelaySteps: delay, Note: a4Index})
		prevStep = step
	}
	return &Composition{
		Speed:       speed,
		LoopOffset:  loopOffset,
		LoopLength:  loopLength,
		GainDivisor: 1,
		Parts: []PartData{{
			Voice: voice,
			Tracks: []TrackData{{
				Properties: TrackProperties{Weight: 1},
				Sequences:  []Sequence{{Sounds: sounds}},
				Fragments:  []Fragment{{DelaySteps: 0, SequenceIndex: 0}},
			}},
		}},
	}
}

func renderUntilDone(t *testing.T, r *Renderer, channels int, maxFrames uint32) []float32 {
	t.Helper()
	block := make([]float32, 4096*channels)
	var out []float32
	var total uint32
	for total < maxFrames {
		want := uint32(4096)
		if total+want > maxFrames {
			want = maxFrames - total
		}
		produced := r.Render(block, want)
		out = append(out, block[:produced*uint32(channels)]...)
		total += produced
		if produced == 0 {
			break
		}
	}
	return out
}

// Scenario 1: no notes, no loop.
func TestScenarioNoNotesNoLoop(t *testing.T) {
	c := singleTrackComposition(sawtoothVoice(), 1, 0, 0, nil)
	r, err := NewRenderer(c, AudioFormat{SamplingRate: 8000, Channels: Mono}, false)
	if err != nil {
		t.Fatalf("NewRenderer: %v", err)
	}
	out := renderUntilDone(t, r, 1, 100000)
	if len(out) != 0 {
		t.Fatalf("expected 0 frames with no notes, got %d", len(out))
	}
}

// Scenario 2: two notes at steps 0 and 1, no loop: expect 16008 total frames.
func TestScenarioTwoNotesNoLoop(t *testing.T) {
	c := singleTrackComposition(sawtoothVoice(), 1, 0, 0, []int{0, 1})
	r, err := NewRenderer(c, AudioFormat{SamplingRate: 8000, Channels: Mono}, false)
	if err != nil {
		t.Fatalf("NewRenderer: %v", err)
	}
	out := renderUntilDone(t, r, 1, 100000)
	if len(out) != 16008 {
		t.Fatalf("expected 16008 frames, got %d", len(out))
	}
}

// Scenario 3: no notes with loop [1,1] looping enabled.
func TestScenarioNoNotesLoopEnabled(t *testing.T) {
	c := singleTrackComposition(sawtoothVoice(), 1, 1, 1, nil)
	r, err := NewRenderer(c, AudioFormat{SamplingRate: 8000, Channels: Mono}, true)
	if err != nil {
		t.Fatalf("NewRenderer: %v", err)
	}
	if r.LoopOffset() != 8000 {
		t.Fatalf("loop offset = %d, want 8000", r.LoopOffset())
	}
	block := make([]float32, 20000)
	r.Render(block, 16000)
	if r.CurrentOffset() != 8000+(16000-8000)%8000 {
		t.Fatalf("current offset after 16000 frames = %d, want wrap within [8000,16000)", r.CurrentOffset())
	}
}

// Scenario 4: two notes with loop [1,1] looping enabled.
func TestScenarioTwoNotesLoopEnabled(t *testing.T) {
	c := singleTrackComposition(sawtoothVoice(), 1, 1, 1, []int{0, 1})
	r, err := NewRenderer(c, AudioFormat{SamplingRate: 8000, Channels: Mono}, true)
	if err != nil {
		t.Fatalf("NewRenderer: %v", err)
	}
	if r.LoopOffset() != 8000 {
		t.Fatalf("loop offset = %d, want 8000", r.LoopOffset())
	}
	if r.loopLengthFrames != 8000 {
		t.Fatalf("loop length = %d, want 8000", r.loopLengthFrames)
	}
}

// Scenario 5: two notes, no loop window defined, but looping enabled: the
// whole composition repeats at the next step boundary past its natural end.
func TestScenarioTwoNotesNoLoopButLoopingEnabled(t *testing.T) {
	c := singleTrackComposition(sawtoothVoice(), 1, 0, 0, []int{0, 1})
	r, err := NewRenderer(c, AudioFormat{SamplingRate: 8000, Channels: Mono}, true)
	if err != nil {
		t.Fatalf("NewRenderer: %v", err)
	}
	block := make([]float32, 4096)
	var total uint64
	for total < 23999 {
		want := uint32(4096)
		if total+uint64(want) > 23999 {
			want = uint32(23999 - total)
		}
		r.Render(block, want)
		total += uint64(want)
	}
	if r.CurrentOffset() != 23999 {
		t.Fatalf("offset = %d, want 23999", r.CurrentOffset())
	}
	r.Render(block, 1)
	if r.CurrentOffset() != 0 {
		t.Fatalf("offset after wrap = %d, want 0", r.CurrentOffset())
	}
}

// Scenario 6: parse-speed timing. A4 at step 0, B4 at step 1, speed=6 at
// 48kHz: second sound starts round(48000/6)=8000 frames after the first.
func TestScenarioSpeedTiming(t *testing.T) {
	voice := sawtoothVoice()
	c := &Composition{
		Speed:       6,
		GainDivisor: 1,
		Parts: []PartData{{
			Voice: voice,
			Tracks: []TrackData{{
				Properties: TrackProperties{Weight: 1},
				Sequences: []Sequence{{Sounds: []Sound{
					{DelaySteps: 0, Note: NewNote(9, 4)},  // A4
					{DelaySteps: 1, Note: NewNote(11, 4)}, // B4
				}}},
				Fragments: []Fragment{{DelaySteps: 0, SequenceIndex: 0}},
			}},
		}},
	}
	r, err := NewRenderer(c, AudioFormat{SamplingRate: 48000, Channels: Mono}, false)
	if err != nil {
		t.Fatalf("NewRenderer: %v", err)
	}
	if r.stepFrames != 8000 {
		t.Fatalf("stepFrames = %d, want 8000", r.stepFrames)
	}
}

// Scenario 7: stereo delay. ±1ms at 48kHz produces a 48-frame offset between
// ears' first nonzero sample.
func TestScenarioStereoDelay(t *testing.T) {
	voice := sawtoothVoice()
	voice.StereoDelayMS = 1
	c := singleTrackComposition(voice, 1, 0, 0, []int{0})
	r, err := NewRenderer(c, AudioFormat{SamplingRate: 48000, Channels: Stereo}, false)
	if err != nil {
		t.Fatalf("NewRenderer: %v", err)
	}
	out := renderUntilDone(t, r, 2, 100000)
	firstNonZero := func(stride, offset int) int {
		for i := offset; i < len(out); i += stride {
			if out[i] != 0 {
				return (i - offset) / stride
			}
		}
		return -1
	}
	left := firstNonZero(2, 0)
	right := firstNonZero(2, 1)
	diff := right - left
	if diff < 0 {
		diff = -diff
	}
	if diff != 48 {
		t.Fatalf("stereo delay offset = %d frames, want 48", diff)
	}
}

// Scenario 8: oscillation=1 collapses the sawtooth to a square wave whose
// period matches the note's fundamental.
func TestScenarioSquareWaveViaOscillation(t *testing.T) {
	voice := VoiceData{
		WaveShape: WaveLinear,
		AmplitudeEnvelope: Envelope{Changes: []EnvelopeChange{
			{DurationMS: 0, Value: 1},
			{DurationMS: 1001, Value: 1},
		}},
		OscillationEnvelope: Envelope{Changes: []EnvelopeChange{
			{DurationMS: 0, Value: 1},
		}},
	}
	c := singleTrackComposition(voice, 1, 0, 0, []int{0})
	r, err := NewRenderer(c, AudioFormat{SamplingRate: 44000, Channels: Mono}, false)
	if err != nil {
		t.Fatalf("NewRenderer: %v", err)
	}
	out := renderUntilDone(t, r, 1, 500)
	var signChanges []int
	for i := 1; i < len(out); i++ {
		if (out[i-1] >= 0) != (out[i] >= 0) {
			signChanges = append(signChanges, i)
		}
	}
	if len(signChanges) < 3 {
		t.Fatalf("expected at least three sign changes in a square wave, got %d", len(signChanges))
	}
	period := signChanges[2] - signChanges[0]
	if period < 98 || period > 102 {
		t.Fatalf("square wave period = %d samples, want ~100", period)
	}
}

// Property 7: after emitting loopOffset + k*loopLength + r frames, the
// renderer's current offset is loopOffset + r, for several (k, r) pairs.
func TestLoopWrapProperty(t *testing.T) {
	c := singleTrackComposition(sawtoothVoice(), 1, 1, 3, nil)
	r, err := NewRenderer(c, AudioFormat{SamplingRate: 8000, Channels: Mono}, true)
	if err != nil {
		t.Fatalf("NewRenderer: %v", err)
	}
	loopOffset := r.LoopOffset()   // 8000
	loopLength := r.loopLengthFrames // 24000

	block := make([]float32, 4096)
	var total uint64
	render := func(n uint64) {
		for n > 0 {
			want := uint32(4096)
			if uint64(want) > n {
				want = uint32(n)
			}
			r.Render(block, want)
			n -= uint64(want)
			total += uint64(want)
		}
	}

	render(loopOffset) // reach the loop point exactly once
	cases := []struct{ k, rem uint64 }{
		{0, 0}, {0, 100}, {1, 0}, {1, 5000}, {2, 23999},
	}
	var prevTotal uint64
	for _, tc := range cases {
		targetTotal := loopOffset + tc.k*loopLength + tc.rem
		if targetTotal < prevTotal {
			continue
		}
		render(targetTotal - total)
		prevTotal = total
		want := loopOffset + tc.rem
		if r.CurrentOffset() != want {
			t.Fatalf("after %d total frames (k=%d r=%d): offset = %d, want %d",
				total, tc.k, tc.rem, r.CurrentOffset(), want)
		}
	}
}

// Property 6: SkipFrames(N) leaves CurrentOffset identical to Render(...) of
// the same N frames.
func TestRenderSkipEquivalence(t *testing.T) {
	voice := sawtoothVoice()
	c := singleTrackComposition(voice, 1, 0, 0, []int{0, 1, 2})

	r1, _ := NewRenderer(c, AudioFormat{SamplingRate: 8000, Channels: Mono}, false)
	buf := make([]float32, 10000)
	r1.Render(buf, 10000)

	r2, _ := NewRenderer(c, AudioFormat{SamplingRate: 8000, Channels: Mono}, false)
	r2.SkipFrames(10000)

	if r1.CurrentOffset() != r2.CurrentOffset() {
		t.Fatalf("render offset %d != skip offset %d", r1.CurrentOffset(), r2.CurrentOffset())
	}
}

// Property 8: a gain-normalized, non-looping render never exceeds [-1-eps, 1+eps].
func TestGainBound(t *testing.T) {
	c := singleTrackComposition(sawtoothVoice(), 1, 0, 0, []int{0, 1, 2, 3})
	if err := NormalizeGain(c); err != nil {
		t.Fatalf("NormalizeGain: %v", err)
	}
	r, err := NewRenderer(c, AudioFormat{SamplingRate: 8000, Channels: Mono}, false)
	if err != nil {
		t.Fatalf("NewRenderer: %v", err)
	}
	out := renderUntilDone(t, r, 1, 100000)
	const eps = 1e-4
	for i, s := range out {
		if s > 1+eps || s < -1-eps {
			t.Fatalf("sample %d = %v out of [-1-eps, 1+eps]", i, s)
		}
	}
}
