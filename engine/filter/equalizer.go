package filter

import (
	"fmt"
	"math"

	"github.com/rae1st/oscillate/engine"
)

const TypeEqualizer = "equalizer"

const (
	eqGainMin = -20.0
	eqGainMax = 20.0
)

// Bands are the ten octave-spaced center frequencies the equalizer operates
// on. Gains for other frequencies are rejected.
var Bands = []int{32, 64, 125, 250, 500, 1000, 2000, 4000, 8000, 16000}

// EqualizerPresets maps preset names to per-band gains in dB.
var EqualizerPresets = map[string]map[int]float64{
	"flat":         {},
	"rock":         {32: 4, 64: 3, 125: -1, 500: -2, 2000: 2, 4000: 3, 8000: 4},
	"pop":          {64: -1, 125: 2, 500: 4, 1000: 4, 2000: 2, 8000: -1},
	"jazz":         {32: 2, 64: 1, 500: 2, 1000: -2, 4000: 2, 8000: 3},
	"classical":    {32: 4, 64: 3, 125: 2, 8000: 2, 16000: 3},
	"electronic":   {32: 5, 64: 4, 125: 1, 2000: 2, 8000: 4, 16000: 5},
	"vocal":        {250: -2, 500: 2, 1000: 4, 2000: 4, 4000: 2},
	"bass_boost":   {32: 6, 64: 5, 125: 4, 250: 2},
	"treble_boost": {4000: 2, 8000: 4, 16000: 6},
}

// Equalizer adjusts per-band gain across the ten standard octave bands.
type Equalizer struct {
	base
	gains map[int]float64
}

// NewEqualizer builds an equalizer with the given per-band gains in dB.
// Unlisted bands stay at 0. Gains outside [-20, 20] dB or unknown bands fail.
func NewEqualizer(gains map[int]float64) (*Equalizer, error) {
	eq := &Equalizer{
		base:  base{name: TypeEqualizer, enabled: true, priority: PriorityEqualizer},
		gains: make(map[int]float64, len(Bands)),
	}
	for _, freq := range Bands {
		eq.gains[freq] = 0
	}
	for freq, gain := range gains {
		if err := eq.SetGain(freq, gain); err != nil {
			return nil, err
		}
	}
	return eq, nil
}

// NewEqualizerPreset builds an equalizer from a named preset.
func NewEqualizerPreset(preset string) (*Equalizer, error) {
	gains, ok := EqualizerPresets[preset]
	if !ok {
		return nil, engine.NewPresetError(TypeEqualizer, preset)
	}
	eq, err := NewEqualizer(gains)
	if err != nil {
		return nil, err
	}
	return eq, nil
}

func (e *Equalizer) Type() string { return TypeEqualizer }

// SetGain sets one band's gain in dB.
func (e *Equalizer) SetGain(freq int, gain float64) error {
	if _, ok := e.gains[freq]; !ok {
		return &engine.FilterError{
			Filter: e.name,
			Param:  fmt.Sprintf("band_%d", freq),
			Err:    engine.ErrParamOutOfRange,
		}
	}
	if gain < eqGainMin || gain > eqGainMax {
		return engine.NewRangeError(e.name, fmt.Sprintf("band_%d", freq), gain, eqGainMin, eqGainMax)
	}
	e.gains[freq] = gain
	return nil
}

// Gain returns one band's current gain in dB, or 0 for unknown bands.
func (e *Equalizer) Gain(freq int) float64 {
	return e.gains[freq]
}

// Reset zeroes all bands.
func (e *Equalizer) Reset() {
	for freq := range e.gains {
		e.gains[freq] = 0
	}
}

// Fragment emits one equalizer graph entry per band whose gain is
// audible (|gain| > 0.01 dB), in ascending frequency order.
func (e *Equalizer) Fragment() Fragment {
	var graph []string
	for _, freq := range Bands {
		gain := e.gains[freq]
		if math.Abs(gain) <= 0.01 {
			continue
		}
		graph = append(graph, fmt.Sprintf("equalizer=f=%d:width_type=o:width=1:g=%g", freq, gain))
	}
	return Fragment{Graph: graph}
}

func (e *Equalizer) Describe() Description {
	params := make(map[string]float64, len(e.gains))
	for freq, gain := range e.gains {
		params[fmt.Sprintf("band_%d", freq)] = gain
	}
	return Description{
		Name:     e.name,
		Type:     TypeEqualizer,
		Enabled:  e.enabled,
		Priority: e.priority,
		Params:   params,
	}
}

func equalizerFromDescription(d Description) (Filter, error) {
	gains := make(map[int]float64, len(d.Params))
	for key, gain := range d.Params {
		var freq int
		if _, err := fmt.Sscanf(key, "band_%d", &freq); err != nil {
			return nil, &engine.FilterError{Filter: d.Name, Param: key, Err: engine.ErrParamOutOfRange}
		}
		gains[freq] = gain
	}
	return NewEqualizer(gains)
}

// Gains returns a copy of the current per-band gains.
func (e *Equalizer) Gains() map[int]float64 {
	out := make(map[int]float64, len(e.gains))
	for freq, gain := range e.gains {
		out[freq] = gain
	}
	return out
}
