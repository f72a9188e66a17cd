package filter

import (
	"fmt"
	"math"

	"github.com/rae1st/oscillate/engine"
)

const TypeNightcore = "nightcore"

const (
	nightcoreMin = 0.5
	nightcoreMax = 2.0
)

// NightcorePresets maps preset names to [pitch, tempo] multipliers. Daycore
// variants mirror the nightcore intensities below unity.
var NightcorePresets = map[string][2]float64{
	"light":           {1.1, 1.05},
	"medium":          {1.2, 1.15},
	"heavy":           {1.3, 1.25},
	"extreme":         {1.5, 1.4},
	"daycore_light":   {0.9, 0.95},
	"daycore_medium":  {0.85, 0.9},
	"daycore_heavy":   {0.8, 0.85},
	"daycore_extreme": {0.7, 0.75},
}

// Nightcore raises (or lowers) pitch and tempo independently.
type Nightcore struct {
	base
	pitch            float64
	tempo            float64
	preserveFormants bool
}

// NewNightcore builds a nightcore filter. Pitch and tempo multipliers must
// lie in [0.5, 2.0]; 1.0 on either axis means no change.
func NewNightcore(pitch, tempo float64, preserveFormants bool) (*Nightcore, error) {
	n := &Nightcore{
		base:             base{name: TypeNightcore, enabled: true, priority: PriorityNightcore},
		pitch:            1.0,
		tempo:            1.0,
		preserveFormants: preserveFormants,
	}
	if err := n.SetPitch(pitch); err != nil {
		return nil, err
	}
	if err := n.SetTempo(tempo); err != nil {
		return nil, err
	}
	return n, nil
}

// NewNightcorePreset builds a nightcore filter from a named preset.
func NewNightcorePreset(preset string) (*Nightcore, error) {
	values, ok := NightcorePresets[preset]
	if !ok {
		return nil, engine.NewPresetError(TypeNightcore, preset)
	}
	return NewNightcore(values[0], values[1], false)
}

// NewNightcorePitchOnly shifts pitch while keeping the original tempo.
func NewNightcorePitchOnly(pitch float64) (*Nightcore, error) {
	return NewNightcore(pitch, 1.0, true)
}

// NewNightcoreTempoOnly changes tempo while keeping the original pitch.
func NewNightcoreTempoOnly(tempo float64) (*Nightcore, error) {
	return NewNightcore(1.0, tempo, false)
}

func (n *Nightcore) Type() string { return TypeNightcore }

// SetPitch sets the pitch multiplier.
func (n *Nightcore) SetPitch(pitch float64) error {
	if pitch < nightcoreMin || pitch > nightcoreMax {
		return engine.NewRangeError(n.name, "pitch", pitch, nightcoreMin, nightcoreMax)
	}
	n.pitch = pitch
	return nil
}

// SetTempo sets the tempo multiplier.
func (n *Nightcore) SetTempo(tempo float64) error {
	if tempo < nightcoreMin || tempo > nightcoreMax {
		return engine.NewRangeError(n.name, "tempo", tempo, nightcoreMin, nightcoreMax)
	}
	n.tempo = tempo
	return nil
}

func (n *Nightcore) Pitch() float64 { return n.pitch }
func (n *Nightcore) Tempo() float64 { return n.tempo }

// Fragment emits an atempo entry when the tempo deviates from 1.0 and an
// asetrate-based pitch entry when the pitch does. Pitch shifting resamples
// back to 48 kHz when formant preservation is requested.
func (n *Nightcore) Fragment() Fragment {
	var graph []string
	if math.Abs(n.tempo-1.0) > 0.01 {
		graph = append(graph, fmt.Sprintf("atempo=%g", n.tempo))
	}
	if math.Abs(n.pitch-1.0) > 0.01 {
		if n.preserveFormants {
			graph = append(graph, fmt.Sprintf("asetrate=48000*%g,aresample=48000", n.pitch))
		} else {
			graph = append(graph, fmt.Sprintf("asetrate=48000*%g", n.pitch))
		}
	}
	return Fragment{Graph: graph}
}

func (n *Nightcore) Describe() Description {
	preserve := 0.0
	if n.preserveFormants {
		preserve = 1.0
	}
	return Description{
		Name:     n.name,
		Type:     TypeNightcore,
		Enabled:  n.enabled,
		Priority: n.priority,
		Params: map[string]float64{
			"pitch":             n.pitch,
			"tempo":             n.tempo,
			"preserve_formants": preserve,
		},
	}
}

func nightcoreFromDescription(d Description) (Filter, error) {
	pitch := paramOr(d.Params, "pitch", 1.0)
	tempo := paramOr(d.Params, "tempo", 1.0)
	preserve := paramOr(d.Params, "preserve_formants", 0) > 0.5
	return NewNightcore(pitch, tempo, preserve)
}

func paramOr(params map[string]float64, key string, fallback float64) float64 {
	if v, ok := params[key]; ok {
		return v
	}
	return fallback
}
