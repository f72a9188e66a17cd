package filter

import (
	"fmt"

	"github.com/rae1st/oscillate/engine"
)

const TypeBassBoost = "bass_boost"

const (
	bassLevelMin = 0.0
	bassLevelMax = 20.0
	bassFreqMin  = 20.0
	bassFreqMax  = 200.0
	bassWidthMin = 0.1
	bassWidthMax = 5.0
)

// BassBoost is a single low-shelf boost, a lighter alternative to dialing in
// the full equalizer.
type BassBoost struct {
	base
	level float64
	freq  float64
	width float64
}

// NewBassBoost builds a bass boost with the given gain in dB, center
// frequency in Hz and octave width.
func NewBassBoost(level, freq, width float64) (*BassBoost, error) {
	b := &BassBoost{
		base:  base{name: TypeBassBoost, enabled: true, priority: PriorityBassBoost},
		level: 0,
		freq:  100,
		width: 0.5,
	}
	if err := b.SetLevel(level); err != nil {
		return nil, err
	}
	if err := b.SetFreq(freq); err != nil {
		return nil, err
	}
	if err := b.SetWidth(width); err != nil {
		return nil, err
	}
	return b, nil
}

func (b *BassBoost) Type() string { return TypeBassBoost }

// SetLevel sets the boost gain in dB.
func (b *BassBoost) SetLevel(level float64) error {
	if level < bassLevelMin || level > bassLevelMax {
		return engine.NewRangeError(b.name, "level", level, bassLevelMin, bassLevelMax)
	}
	b.level = level
	return nil
}

// SetFreq sets the shelf center frequency in Hz.
func (b *BassBoost) SetFreq(freq float64) error {
	if freq < bassFreqMin || freq > bassFreqMax {
		return engine.NewRangeError(b.name, "freq", freq, bassFreqMin, bassFreqMax)
	}
	b.freq = freq
	return nil
}

// SetWidth sets the shelf width in octaves.
func (b *BassBoost) SetWidth(width float64) error {
	if width < bassWidthMin || width > bassWidthMax {
		return engine.NewRangeError(b.name, "width", width, bassWidthMin, bassWidthMax)
	}
	b.width = width
	return nil
}

func (b *BassBoost) Level() float64 { return b.level }

func (b *BassBoost) Fragment() Fragment {
	if b.level <= 0.01 {
		return Fragment{}
	}
	return Fragment{
		Graph: []string{fmt.Sprintf("bass=g=%g:f=%g:w=%g", b.level, b.freq, b.width)},
	}
}

func (b *BassBoost) Describe() Description {
	return Description{
		Name:     b.name,
		Type:     TypeBassBoost,
		Enabled:  b.enabled,
		Priority: b.priority,
		Params: map[string]float64{
			"level": b.level,
			"freq":  b.freq,
			"width": b.width,
		},
	}
}

func bassBoostFromDescription(d Description) (Filter, error) {
	return NewBassBoost(
		paramOr(d.Params, "level", 0),
		paramOr(d.Params, "freq", 100),
		paramOr(d.Params, "width", 0.5),
	)
}
