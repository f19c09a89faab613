package aulos

// gainEpsilon is the smallest divisor NormalizeGain sets for a nonzero peak;
// a peak of exactly zero (pure silence) keeps the divisor at 1 instead.
const gainEpsilon = 1e-9

// NormalizeGain renders c once, at MaxSamplingRate mono with GainDivisor
// forced to 1, measures the peak absolute sample value, and sets
// c.GainDivisor to that peak (or gainEpsilon, whichever is larger; 1 when
// the peak is exactly zero) so that a subsequent real render stays within
// [-1, +1]. With a loop defined, the scan covers every frame up to the end
// of the first loop cycle; without one, it stops at the composition's end
// or after 4096*64 frames, whichever comes first, so anything later in a
// longer composition is not measured.
//
// Parsers call this once, at composition packing time, before handing the
// Composition to NewRenderer.
func NormalizeGain(c *Composition) error {
	c.GainDivisor = 1
	r, err := NewRenderer(c, AudioFormat{SamplingRate: MaxSamplingRate, Channels: Mono}, c.HasLoop())
	if err != nil {
		return err
	}

	const chunkFrames = 4096
	buf := make([]float32, chunkFrames)
	var peak float32

	framesToScan := uint64(chunkFrames) * 64
	if c.HasLoop() {
		framesToScan = r.loopOffsetFrames + r.loopLengthFrames
		if framesToScan == 0 {
			framesToScan = uint64(chunkFrames) * 64
		}
	}

	var scanned uint64
	for scanned < framesToScan {
		chunk := uint32(chunkFrames)
		if remaining := framesToScan - scanned; remaining < uint64(chunk) {
			chunk = uint32(remaining)
		}
		produced := r.Render(buf, chunk)
		for _, s := range buf[:produced] {
			if s < 0 {
				s = -s
			}
			if s > peak {
				peak = s
			}
		}
		scanned += uint64(produced)
		if produced < chunk && !c.HasLoop() {
			break
		}
	}

	switch {
	case peak == 0:
		// Empty or silent composition: fall back to an identity divisor
		// rather than amplifying noise-floor denormals toward infinity.
		c.GainDivisor = 1
	case peak > gainEpsilon:
		c.GainDivisor = peak
	default:
		c.GainDivisor = gainEpsilon
	}
	return nil
}
