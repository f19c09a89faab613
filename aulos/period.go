package aulos

import "math"

// WavePeriod tracks position within the two halves of one oscillator cycle:
// the first half starts at +amplitude and descends to -amplitude, the second
// starts at -amplitude and ascends back to +amplitude. Asymmetry biases
// their relative lengths.
type WavePeriod struct {
	currentLength    float32
	currentSign      float32
	nextLength       float32
	currentRemaining float32
}

// Advance subtracts samples from the remaining length of the current half;
// if the half is exhausted it swaps to the second half and subtracts the
// remainder. Returns false once both halves of the period are exhausted,
// at which point the caller must Restart with freshly modulated parameters.
func (p *WavePeriod) Advance(samples float32) bool {
	p.currentRemaining -= samples
	if p.currentRemaining <= -1 {
		panic(PreconditionViolation{"period advanced past maxAdvance"})
	}
	if p.currentRemaining > 0 {
		return true
	}
	if p.nextLength == 0 {
		return false
	}
	p.currentLength = p.nextLength
	p.currentSign = -1
	p.nextLength = 0
	p.currentRemaining += p.currentLength
	return p.currentRemaining > 0
}

// MaxAdvance returns the largest sample count Advance may be called with.
func (p *WavePeriod) MaxAdvance() uint32 {
	return uint32(math.Ceil(float64(p.currentRemaining)))
}

// Restart begins a new period immediately following the current one,
// preserving whatever negative "overflow" remainder carried over so
// frequency glides stay phase-coherent.
func (p *WavePeriod) Restart(periodLength, asymmetry float32) {
	if periodLength <= 0 || asymmetry < 0 || asymmetry > 1 {
		panic(PreconditionViolation{"invalid period restart parameters"})
	}
	firstPartLength := periodLength * (1 + asymmetry) / 2
	secondPartLength := periodLength - firstPartLength
	for {
		p.currentRemaining += firstPartLength
		if p.currentRemaining > 0 {
			p.currentLength = firstPartLength
			p.currentSign = 1
			p.nextLength = secondPartLength
			break
		}
		p.currentRemaining += secondPartLength
		if p.currentRemaining > 0 {
			p.currentLength = secondPartLength
			p.currentSign = -1
			p.nextLength = 0
			break
		}
	}
}

// CurrentPartLength, CurrentPartOffset and CurrentPartSign describe where
// within the current half the period machine presently sits.
func (p *WavePeriod) CurrentPartLength() float32 { return p.currentLength }
func (p *WavePeriod) CurrentPartOffset() float32 { return p.currentLength - p.currentRemaining }
func (p *WavePeriod) CurrentPartSign() float32   { return p.currentSign }

// Start begins (or continues) playing a period of the given length and
// asymmetry. If fromCurrent is true, the normalized position within the
// current half is preserved across the parameter change (a frequency/
// asymmetry glide while sustaining); otherwise playback resets to the start
// of the first (positive) half.
func (p *WavePeriod) Start(periodLength, asymmetry float32, fromCurrent bool) {
	if periodLength <= 0 || asymmetry < 0 || asymmetry > 1 {
		panic(PreconditionViolation{"invalid period start parameters"})
	}
	firstPartLength := periodLength * (1 + asymmetry) / 2
	secondPartLength := periodLength - firstPartLength
	if !fromCurrent {
		p.currentLength = firstPartLength
		p.currentSign = 1
		p.nextLength = secondPartLength
		p.currentRemaining = p.currentLength
		return
	}
	remainingRatio := p.currentRemaining / p.currentLength
	if p.currentSign > 0 {
		p.currentLength = firstPartLength
		p.nextLength = secondPartLength
	} else {
		p.currentLength = secondPartLength
		p.nextLength = 0
	}
	p.currentRemaining = p.currentLength * remainingRatio
}
