package filter

import (
	"fmt"
	"math"

	"github.com/rae1st/oscillate/engine"
)

const TypeAudio8D = "audio_8d"

const (
	audio8dStrengthMin = 0.1
	audio8dStrengthMax = 1.0
	audio8dSpeedMin    = 0.5
	audio8dSpeedMax    = 5.0
	audio8dRadiusMin   = 0.1
	audio8dRadiusMax   = 1.0
	audio8dReverbMin   = 0.0
	audio8dReverbMax   = 1.0
)

// Audio8DPresets maps preset names to [strength, speed, radius, reverb].
var Audio8DPresets = map[string][4]float64{
	"subtle":   {0.4, 1.0, 0.5, 0.1},
	"normal":   {0.7, 2.0, 0.7, 0.3},
	"intense":  {0.9, 3.0, 0.8, 0.4},
	"hypnotic": {1.0, 4.0, 0.9, 0.5},
}

// Audio8D produces the rotating "8D" spatial effect by combining a pulsator,
// stereo widening, phasing and an optional reverb tail.
type Audio8D struct {
	base
	strength float64
	speed    float64
	radius   float64
	reverb   float64
}

// NewAudio8D builds the spatial effect. Strength and radius shape the
// rotation depth, speed is the rotation rate in Hz, reverb adds a tail.
func NewAudio8D(strength, speed, radius, reverb float64) (*Audio8D, error) {
	a := &Audio8D{
		base:     base{name: TypeAudio8D, enabled: true, priority: PriorityAudio8D},
		strength: audio8dStrengthMin,
		speed:    1.0,
		radius:   audio8dRadiusMin,
	}
	if err := a.SetStrength(strength); err != nil {
		return nil, err
	}
	if err := a.SetSpeed(speed); err != nil {
		return nil, err
	}
	if err := a.SetRadius(radius); err != nil {
		return nil, err
	}
	if err := a.SetReverb(reverb); err != nil {
		return nil, err
	}
	return a, nil
}

// NewAudio8DPreset builds the effect from a named preset.
func NewAudio8DPreset(preset string) (*Audio8D, error) {
	values, ok := Audio8DPresets[preset]
	if !ok {
		return nil, engine.NewPresetError(TypeAudio8D, preset)
	}
	return NewAudio8D(values[0], values[1], values[2], values[3])
}

func (a *Audio8D) Type() string { return TypeAudio8D }

func (a *Audio8D) SetStrength(strength float64) error {
	if strength < audio8dStrengthMin || strength > audio8dStrengthMax {
		return engine.NewRangeError(a.name, "strength", strength, audio8dStrengthMin, audio8dStrengthMax)
	}
	a.strength = strength
	return nil
}

func (a *Audio8D) SetSpeed(speed float64) error {
	if speed < audio8dSpeedMin || speed > audio8dSpeedMax {
		return engine.NewRangeError(a.name, "speed", speed, audio8dSpeedMin, audio8dSpeedMax)
	}
	a.speed = speed
	return nil
}

func (a *Audio8D) SetRadius(radius float64) error {
	if radius < audio8dRadiusMin || radius > audio8dRadiusMax {
		return engine.NewRangeError(a.name, "radius", radius, audio8dRadiusMin, audio8dRadiusMax)
	}
	a.radius = radius
	return nil
}

func (a *Audio8D) SetReverb(reverb float64) error {
	if reverb < audio8dReverbMin || reverb > audio8dReverbMax {
		return engine.NewRangeError(a.name, "reverb", reverb, audio8dReverbMin, audio8dReverbMax)
	}
	a.reverb = reverb
	return nil
}

func (a *Audio8D) Fragment() Fragment {
	depth := a.strength * a.radius
	phaserDelay := int(math.Max(1, a.radius*10))

	graph := []string{
		fmt.Sprintf("apulsator=hz=%g:amount=%g", a.speed, depth*0.5),
		fmt.Sprintf("extrastereo=m=%.2f", a.strength*2),
		fmt.Sprintf("aphaser=in_gain=0.4:out_gain=0.74:delay=%d:decay=0.4:speed=%g", phaserDelay, a.speed),
	}
	if a.reverb > 0.01 {
		mix := math.Min(0.5, a.reverb)
		graph = append(graph, fmt.Sprintf("aecho=0.8:0.9:%d:%g", int(50*a.reverb), mix))
	}
	graph = append(graph, "chorus=0.5:0.9:50:0.4:0.25:2")

	return Fragment{Graph: graph}
}

func (a *Audio8D) Describe() Description {
	return Description{
		Name:     a.name,
		Type:     TypeAudio8D,
		Enabled:  a.enabled,
		Priority: a.priority,
		Params: map[string]float64{
			"strength": a.strength,
			"speed":    a.speed,
			"radius":   a.radius,
			"reverb":   a.reverb,
		},
	}
}

func audio8DFromDescription(d Description) (Filter, error) {
	return NewAudio8D(
		paramOr(d.Params, "strength", audio8dStrengthMin),
		paramOr(d.Params, "speed", 1.0),
		paramOr(d.Params, "radius", audio8dRadiusMin),
		paramOr(d.Params, "reverb", 0),
	)
}
