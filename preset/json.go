// Package preset loads JSON-encoded default voice and track settings that
// tools and tests can layer on top of aulos.VoiceData/aulos.TrackProperties
// zero values, the way the teacher's piano preset files layer onto
// piano.NewDefaultParams.
package preset

import (
	"encoding/json"
	"fmt"
	"os"

	"github.com/cwbudde/aulos-go/aulos"
)

// EnvelopeChangeSetting is one leg of a JSON-encoded envelope.
type EnvelopeChangeSetting struct {
	DurationMS uint32  `json:"duration_ms"`
	Shape      string  `json:"shape"`
	Value      float32 `json:"value"`
}

// VoiceSetting is the JSON schema for a voice's default timbre. Every field
// is optional; fields left unset keep whatever the destination VoiceData
// already holds.
type VoiceSetting struct {
	WaveShape           string                  `json:"wave_shape"`
	WaveShapeParameter  *float32                `json:"wave_shape_parameter"`
	AmplitudeEnvelope   []EnvelopeChangeSetting `json:"amplitude_envelope"`
	AsymmetryEnvelope   []EnvelopeChangeSetting `json:"asymmetry_envelope"`
	FrequencyEnvelope   []EnvelopeChangeSetting `json:"frequency_envelope"`
	OscillationEnvelope []EnvelopeChangeSetting `json:"oscillation_envelope"`
	StereoDelayMS       *float32                `json:"stereo_delay_ms"`
	StereoRadiusMS      *float32                `json:"stereo_radius_ms"`
	StereoPan           *float32                `json:"stereo_pan"`
	StereoInversion     *bool                   `json:"stereo_inversion"`
	Polyphony           string                  `json:"polyphony"`
}

// TrackSetting is the JSON schema for a track's default mixing/spatialization
// properties.
type TrackSetting struct {
	Weight       *uint8   `json:"weight"`
	HeadRadiusMS *float32 `json:"head_radius_ms"`
	SourceRadius *float32 `json:"source_radius"`
	SourceSize   *float32 `json:"source_size"`
	SourceOffset *float32 `json:"source_offset"`
}

// File is the JSON schema for an aulos preset file.
type File struct {
	Voice *VoiceSetting `json:"voice"`
	Track *TrackSetting `json:"track"`
}

// LoadJSON loads a preset JSON file and applies it on top of zero-valued
// defaults, returning the resulting VoiceData/TrackProperties pair.
func LoadJSON(path string) (aulos.VoiceData, aulos.TrackProperties, error) {
	b, err := os.ReadFile(path)
	if err != nil {
		return aulos.VoiceData{}, aulos.TrackProperties{}, err
	}

	var f File
	if err := json.Unmarshal(b, &f); err != nil {
		return aulos.VoiceData{}, aulos.TrackProperties{}, err
	}

	var voice aulos.VoiceData
	var track aulos.TrackProperties
	if err := ApplyFile(&voice, &track, &f); err != nil {
		return aulos.VoiceData{}, aulos.TrackProperties{}, err
	}
	return voice, track, nil
}

// ApplyFile applies a parsed preset file onto existing voice/track defaults.
func ApplyFile(voice *aulos.VoiceData, track *aulos.TrackProperties, f *File) error {
	if f == nil {
		return nil
	}
	if f.Voice != nil {
		if err := applyVoice(voice, f.Voice); err != nil {
			return err
		}
	}
	if f.Track != nil {
		if err := applyTrack(track, f.Track); err != nil {
			return err
		}
	}
	return nil
}

func applyVoice(dst *aulos.VoiceData, v *VoiceSetting) error {
	if v.WaveShape != "" {
		shape, minShape, maxShape, err := parseWaveShape(v.WaveShape)
		if err != nil {
			return err
		}
		dst.WaveShape = shape
		if v.WaveShapeParameter != nil {
			if *v.WaveShapeParameter < minShape || *v.WaveShapeParameter > maxShape {
				return fmt.Errorf("wave_shape_parameter out of range for %q: %f", v.WaveShape, *v.WaveShapeParameter)
			}
			dst.WaveShapeParameter = *v.WaveShapeParameter
		}
	}

	var err error
	if v.AmplitudeEnvelope != nil {
		if dst.AmplitudeEnvelope, err = applyEnvelope(v.AmplitudeEnvelope, 0, 1); err != nil {
			return fmt.Errorf("amplitude_envelope: %w", err)
		}
	}
	if v.AsymmetryEnvelope != nil {
		if dst.AsymmetryEnvelope, err = applyEnvelope(v.AsymmetryEnvelope, 0, 1); err != nil {
			return fmt.Errorf("asymmetry_envelope: %w", err)
		}
	}
	if v.FrequencyEnvelope != nil {
		if dst.FrequencyEnvelope, err = applyEnvelope(v.FrequencyEnvelope, -1, 1); err != nil {
			return fmt.Errorf("frequency_envelope: %w", err)
		}
	}
	if v.OscillationEnvelope != nil {
		if dst.OscillationEnvelope, err = applyEnvelope(v.OscillationEnvelope, 0, 1); err != nil {
			return fmt.Errorf("oscillation_envelope: %w", err)
		}
	}

	if v.StereoDelayMS != nil {
		if *v.StereoDelayMS < -1000 || *v.StereoDelayMS > 1000 {
			return fmt.Errorf("stereo_delay_ms out of range: %f", *v.StereoDelayMS)
		}
		dst.StereoDelayMS = *v.StereoDelayMS
	}
	if v.StereoRadiusMS != nil {
		if *v.StereoRadiusMS < -1000 || *v.StereoRadiusMS > 1000 {
			return fmt.Errorf("stereo_radius_ms out of range: %f", *v.StereoRadiusMS)
		}
		dst.StereoRadiusMS = *v.StereoRadiusMS
	}
	if v.StereoPan != nil {
		if *v.StereoPan < -1 || *v.StereoPan > 1 {
			return fmt.Errorf("stereo_pan out of range: %f", *v.StereoPan)
		}
		dst.StereoPan = *v.StereoPan
	}
	if v.StereoInversion != nil {
		dst.StereoInversion = *v.StereoInversion
	}
	if v.Polyphony != "" {
		switch v.Polyphony {
		case "chord":
			dst.Polyphony = aulos.PolyphonyChord
		case "full":
			dst.Polyphony = aulos.PolyphonyFull
		default:
			return fmt.Errorf("unknown polyphony %q", v.Polyphony)
		}
	}
	return nil
}

func applyTrack(dst *aulos.TrackProperties, t *TrackSetting) error {
	if t.Weight != nil {
		if *t.Weight == 0 {
			return fmt.Errorf("weight must be > 0")
		}
		dst.Weight = *t.Weight
	}
	if t.HeadRadiusMS != nil {
		if *t.HeadRadiusMS < 0 {
			return fmt.Errorf("head_radius_ms must be >= 0")
		}
		dst.HeadRadiusMS = *t.HeadRadiusMS
	}
	if t.SourceRadius != nil {
		if *t.SourceRadius < 0 {
			return fmt.Errorf("source_radius must be >= 0")
		}
		dst.SourceRadius = *t.SourceRadius
	}
	if t.SourceSize != nil {
		if *t.SourceSize < 0 {
			return fmt.Errorf("source_size must be >= 0")
		}
		dst.SourceSize = *t.SourceSize
	}
	if t.SourceOffset != nil {
		dst.SourceOffset = *t.SourceOffset
	}
	return nil
}

func applyEnvelope(changes []EnvelopeChangeSetting, minValue, maxValue float32) (aulos.Envelope, error) {
	out := make([]aulos.EnvelopeChange, 0, len(changes))
	for i, c := range changes {
		if c.DurationMS > aulos.MaxEnvelopeDurationMS {
			return aulos.Envelope{}, fmt.Errorf("change %d: duration_ms too large: %d", i, c.DurationMS)
		}
		if c.Value < minValue || c.Value > maxValue {
			return aulos.Envelope{}, fmt.Errorf("change %d: value out of range: %f", i, c.Value)
		}
		shape, err := parseEnvelopeShape(c.Shape)
		if err != nil {
			return aulos.Envelope{}, fmt.Errorf("change %d: %w", i, err)
		}
		out = append(out, aulos.EnvelopeChange{DurationMS: c.DurationMS, Value: c.Value, Shape: shape})
	}
	return aulos.Envelope{Changes: out}, nil
}

func parseEnvelopeShape(name string) (aulos.EnvelopeShape, error) {
	switch name {
	case "", "linear":
		return aulos.EnvelopeLinear, nil
	case "smooth_quadratic_2":
		return aulos.EnvelopeSmoothQuadratic2, nil
	case "smooth_quadratic_4":
		return aulos.EnvelopeSmoothQuadratic4, nil
	case "sharp_quadratic_2":
		return aulos.EnvelopeSharpQuadratic2, nil
	case "sharp_quadratic_4":
		return aulos.EnvelopeSharpQuadratic4, nil
	default:
		return 0, fmt.Errorf("unknown envelope shape %q", name)
	}
}

func parseWaveShape(name string) (shape aulos.WaveShape, minParam, maxParam float32, err error) {
	switch name {
	case "linear":
		return aulos.WaveLinear, 0, 0, nil
	case "smooth_quadratic":
		return aulos.WaveSmoothQuadratic, 0, 0, nil
	case "sharp_quadratic":
		return aulos.WaveSharpQuadratic, 0, 0, nil
	case "cubic":
		return aulos.WaveSmoothCubic, aulos.MinSmoothCubicShape, aulos.MaxSmoothCubicShape, nil
	case "quintic":
		return aulos.WaveQuintic, aulos.MinQuinticShape, aulos.MaxQuinticShape, nil
	case "cosine":
		return aulos.WaveCosine, 0, 0, nil
	default:
		return 0, 0, 0, fmt.Errorf("unknown wave_shape %q", name)
	}
}
