package aulos

import "math"

// ShaperData parameterizes a Shaper: it advances from (0, FirstY) to
// (DeltaX, FirstY+DeltaY) along a fixed curve that stays within
// [min(FirstY, FirstY+DeltaY), max(FirstY, FirstY+DeltaY)] for every
// X in [0, DeltaX]. OffsetX must be in [0, DeltaX).
type ShaperData struct {
	FirstY float32
	DeltaY float32
	DeltaX float32
	Shape  float32
	OffsetX float32
}

// Shaper is a stateful per-sample curve generator. Advance returns Y(OffsetX)
// and moves OffsetX forward by one sample.
type Shaper interface {
	Advance() float32
}

// shaperValue is the closed-form reference implementation of the same curve
// an Advance() recurrence computes; used only for testing agreement between
// the two (see shaper_test.go).
type shaperValue func(firstY, deltaY, deltaX, shape, offsetX float32) float32

// LinearShaper: Y(X) = firstY + (deltaY/deltaX)*X.
type LinearShaper struct {
	c1     float64
	nextY  float64
}

func NewLinearShaper(d ShaperData) *LinearShaper {
	c1 := float64(d.DeltaY) / float64(d.DeltaX)
	return &LinearShaper{c1: c1, nextY: float64(d.FirstY) + c1*float64(d.OffsetX)}
}

func (s *LinearShaper) Advance() float32 {
	y := s.nextY
	s.nextY += s.c1
	return float32(y)
}

func linearValue(firstY, deltaY, deltaX, _, offsetX float32) float32 {
	normalizedX := offsetX / deltaX
	return firstY + deltaY*normalizedX
}

// SmoothQuadraticShaper has zero derivative at the left end.
type SmoothQuadraticShaper struct {
	halfDeltaY float32
	baseY      float32
	halfDeltaX float32
	nextX      float32
}

func NewSmoothQuadraticShaper(d ShaperData) *SmoothQuadraticShaper {
	halfDeltaY := d.DeltaY / 2
	return &SmoothQuadraticShaper{
		halfDeltaY: halfDeltaY,
		baseY:      d.FirstY - halfDeltaY,
		halfDeltaX: d.DeltaX / 2,
		nextX:      d.OffsetX,
	}
}

func (s *SmoothQuadraticShaper) Advance() float32 {
	doubleNormalizedX := s.nextX / s.halfDeltaX
	offset := 1 - (2-doubleNormalizedX)*doubleNormalizedX
	var signedOffset float32
	if s.nextX-s.halfDeltaX > 0 {
		signedOffset = offset
	} else {
		signedOffset = -offset
	}
	result := s.baseY + s.halfDeltaY*(2*doubleNormalizedX-signedOffset)
	s.nextX++
	return result
}

func smoothQuadraticValue(firstY, deltaY, deltaX, _, offsetX float32) float32 {
	normalizedX := offsetX / deltaX
	offset := float32(0.5) - 2*normalizedX*(1-normalizedX)
	var signed float32
	if offsetX-deltaX/2 > 0 {
		signed = offset
	} else {
		signed = -offset
	}
	return firstY + deltaY*(2*normalizedX-(0.5+signed))
}

// SharpQuadraticShaper has zero derivative at the midpoint.
type SharpQuadraticShaper struct {
	c0, c1, c2 float32
	baseY      float32
	halfDeltaX float32
	nextX      float32
}

func NewSharpQuadraticShaper(d ShaperData) *SharpQuadraticShaper {
	c0 := d.DeltaY / 2
	c1 := 2 * d.DeltaY / d.DeltaX
	c2 := c1 / d.DeltaX
	return &SharpQuadraticShaper{
		c0: c0, c1: c1, c2: c2,
		baseY:      d.FirstY + c0,
		halfDeltaX: d.DeltaX / 2,
		nextX:      d.OffsetX,
	}
}

func (s *SharpQuadraticShaper) Advance() float32 {
	offset := s.c0 - (s.c1-s.c2*s.nextX)*s.nextX
	var result float32
	if s.nextX-s.halfDeltaX > 0 {
		result = s.baseY + offset
	} else {
		result = s.baseY - offset
	}
	s.nextX++
	return result
}

func sharpQuadraticValue(firstY, deltaY, deltaX, _, offsetX float32) float32 {
	normalizedX := offsetX / deltaX
	offset := float32(0.5) - 2*normalizedX*(1-normalizedX)
	var signed float32
	if offsetX-deltaX/2 > 0 {
		signed = offset
	} else {
		signed = -offset
	}
	return firstY + deltaY*(0.5+signed)
}

// SmoothCubicShaper: shape in [0, 3], zero derivative at the left end.
const (
	MinSmoothCubicShape = 0.0
	MaxSmoothCubicShape = 3.0
)

type SmoothCubicShaper struct {
	c0, c2, c3 float32
	nextX      float32
}

func NewSmoothCubicShaper(d ShaperData) *SmoothCubicShaper {
	if d.Shape < MinSmoothCubicShape || d.Shape > MaxSmoothCubicShape {
		panic(PreconditionViolation{"smooth cubic shape out of range"})
	}
	return &SmoothCubicShaper{
		c0: d.FirstY,
		c2: (3 - d.Shape) * d.DeltaY / (d.DeltaX * d.DeltaX),
		c3: (2 - d.Shape) * d.DeltaY / (d.DeltaX * d.DeltaX * d.DeltaX),
		nextX: d.OffsetX,
	}
}

func (s *SmoothCubicShaper) Advance() float32 {
	result := s.c0 + (s.c2-s.c3*s.nextX)*s.nextX*s.nextX
	s.nextX++
	return result
}

func smoothCubicValue(firstY, deltaY, deltaX, shape, offsetX float32) float32 {
	normalizedX := offsetX / deltaX
	return firstY + deltaY*(1+(2-shape)*(1-normalizedX))*normalizedX*normalizedX
}

// QuinticShaper: shape in [-1.5, 4.01], zero crossing at the midpoint.
const (
	MinQuinticShape = -1.5
	MaxQuinticShape = 4.01
)

type QuinticShaper struct {
	c0, c2, c3, c4, c5 float32
	deltaX             float32
	nextX              float32
}

func NewQuinticShaper(d ShaperData) *QuinticShaper {
	if d.Shape < MinQuinticShape || d.Shape > MaxQuinticShape {
		panic(PreconditionViolation{"quintic shape out of range"})
	}
	return &QuinticShaper{
		c0:     d.FirstY,
		c2:     (15 + 8*d.Shape) * d.DeltaY,
		c3:     (50 + 32*d.Shape) * d.DeltaY,
		c4:     (60 + 40*d.Shape) * d.DeltaY,
		c5:     (24 + 16*d.Shape) * d.DeltaY,
		deltaX: d.DeltaX,
		nextX:  d.OffsetX,
	}
}

func (s *QuinticShaper) Advance() float32 {
	normalizedX := s.nextX / s.deltaX
	result := s.c0 + (s.c2-(s.c3-(s.c4-s.c5*normalizedX)*normalizedX)*normalizedX)*normalizedX*normalizedX
	s.nextX++
	return result
}

func quinticValue(firstY, deltaY, deltaX, shape, offsetX float32) float32 {
	normalizedX := offsetX / deltaX
	return firstY + deltaY*(15+8*shape-(50+32*shape-(60+40*shape-(24+16*shape)*normalizedX)*normalizedX)*normalizedX)*normalizedX*normalizedX
}

// CosineShaper: Y(X) = firstY + deltaY*(1-cos(pi*X/deltaX))/2, implemented
// via the two-term Chebyshev recurrence so no per-sample trig is needed.
type CosineShaper struct {
	base       float64
	multiplier float64
	lastCos    float64
	nextCos    float64
}

func NewCosineShaper(d ShaperData) *CosineShaper {
	amplitude := float64(d.DeltaY) / 2
	base := float64(d.FirstY) + amplitude
	theta := math.Pi / float64(d.DeltaX)
	return &CosineShaper{
		base:       base,
		multiplier: 2 * math.Cos(theta),
		lastCos:    amplitude * math.Cos(theta*float64(d.OffsetX)-theta),
		nextCos:    amplitude * math.Cos(theta * float64(d.OffsetX)),
	}
}

func (s *CosineShaper) Advance() float32 {
	result := s.base - s.nextCos
	next := s.multiplier*s.nextCos - s.lastCos
	s.lastCos = s.nextCos
	s.nextCos = next
	return float32(result)
}

func cosineValue(firstY, deltaY, deltaX, _, offsetX float32) float32 {
	normalizedX := offsetX / deltaX
	return firstY + deltaY*(1-float32(math.Cos(math.Pi*float64(normalizedX))))/2
}

// NewShaper builds the Shaper variant named by shape.
func NewShaper(shape WaveShape, d ShaperData) Shaper {
	switch shape {
	case WaveLinear:
		return NewLinearShaper(d)
	case WaveSmoothQuadratic:
		return NewSmoothQuadraticShaper(d)
	case WaveSharpQuadratic:
		return NewSharpQuadraticShaper(d)
	case WaveSmoothCubic:
		return NewSmoothCubicShaper(d)
	case WaveQuintic:
		return NewQuinticShaper(d)
	case WaveCosine:
		return NewCosineShaper(d)
	default:
		panic(PreconditionViolation{"unknown wave shape"})
	}
}

// ShaperValue evaluates the closed-form reference curve for shape, used by
// tests to verify Advance() recurrences stay within tolerance.
func ShaperValue(shape WaveShape, firstY, deltaY, deltaX, shapeParam, offsetX float32) float32 {
	var fn shaperValue
	switch shape {
	case WaveLinear:
		fn = linearValue
	case WaveSmoothQuadratic:
		fn = smoothQuadraticValue
	case WaveSharpQuadratic:
		fn = sharpQuadraticValue
	case WaveSmoothCubic:
		fn = smoothCubicValue
	case WaveQuintic:
		fn = quinticValue
	case WaveCosine:
		fn = cosineValue
	default:
		panic(PreconditionViolation{"unknown wave shape"})
	}
	return fn(firstY, deltaY, deltaX, shapeParam, offsetX)
}
