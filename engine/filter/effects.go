package filter

import (
	"fmt"

	"github.com/rae1st/oscillate/engine"
)

const (
	TypeReverb  = "reverb"
	TypeEcho    = "echo"
	TypeKaraoke = "karaoke"
	TypeCustom  = "custom"
)

// Reverb adds a simple reflective tail.
type Reverb struct {
	base
	amount float64
	delay  float64
}

// NewReverb builds a reverb with a wet amount in [0, 1] and a reflection
// delay in milliseconds within [10, 500].
func NewReverb(amount, delay float64) (*Reverb, error) {
	r := &Reverb{
		base:   base{name: TypeReverb, enabled: true, priority: PriorityReverb},
		amount: 0,
		delay:  60,
	}
	if err := r.SetAmount(amount); err != nil {
		return nil, err
	}
	if err := r.SetDelay(delay); err != nil {
		return nil, err
	}
	return r, nil
}

func (r *Reverb) Type() string { return TypeReverb }

func (r *Reverb) SetAmount(amount float64) error {
	if amount < 0 || amount > 1 {
		return engine.NewRangeError(r.name, "amount", amount, 0, 1)
	}
	r.amount = amount
	return nil
}

func (r *Reverb) SetDelay(delay float64) error {
	if delay < 10 || delay > 500 {
		return engine.NewRangeError(r.name, "delay", delay, 10, 500)
	}
	r.delay = delay
	return nil
}

func (r *Reverb) Fragment() Fragment {
	if r.amount <= 0.01 {
		return Fragment{}
	}
	return Fragment{
		Graph: []string{fmt.Sprintf("aecho=0.8:0.88:%d:%g", int(r.delay), r.amount)},
	}
}

func (r *Reverb) Describe() Description {
	return Description{
		Name:     r.name,
		Type:     TypeReverb,
		Enabled:  r.enabled,
		Priority: r.priority,
		Params: map[string]float64{
			"amount": r.amount,
			"delay":  r.delay,
		},
	}
}

func reverbFromDescription(d Description) (Filter, error) {
	return NewReverb(paramOr(d.Params, "amount", 0), paramOr(d.Params, "delay", 60))
}

// Echo repeats the signal with configurable gains, delay and decay.
type Echo struct {
	base
	inGain  float64
	outGain float64
	delay   float64
	decay   float64
}

// NewEcho builds an echo. Gains and decay lie in [0, 1], delay in
// milliseconds within [10, 2000].
func NewEcho(inGain, outGain, delay, decay float64) (*Echo, error) {
	e := &Echo{
		base:    base{name: TypeEcho, enabled: true, priority: PriorityEcho},
		inGain:  0.6,
		outGain: 0.3,
		delay:   500,
		decay:   0.5,
	}
	if err := e.SetInGain(inGain); err != nil {
		return nil, err
	}
	if err := e.SetOutGain(outGain); err != nil {
		return nil, err
	}
	if err := e.SetDelay(delay); err != nil {
		return nil, err
	}
	if err := e.SetDecay(decay); err != nil {
		return nil, err
	}
	return e, nil
}

func (e *Echo) Type() string { return TypeEcho }

func (e *Echo) SetInGain(v float64) error {
	if v < 0 || v > 1 {
		return engine.NewRangeError(e.name, "in_gain", v, 0, 1)
	}
	e.inGain = v
	return nil
}

func (e *Echo) SetOutGain(v float64) error {
	if v < 0 || v > 1 {
		return engine.NewRangeError(e.name, "out_gain", v, 0, 1)
	}
	e.outGain = v
	return nil
}

func (e *Echo) SetDelay(v float64) error {
	if v < 10 || v > 2000 {
		return engine.NewRangeError(e.name, "delay", v, 10, 2000)
	}
	e.delay = v
	return nil
}

func (e *Echo) SetDecay(v float64) error {
	if v < 0 || v > 1 {
		return engine.NewRangeError(e.name, "decay", v, 0, 1)
	}
	e.decay = v
	return nil
}

func (e *Echo) Fragment() Fragment {
	if e.outGain <= 0.01 || e.decay <= 0.01 {
		return Fragment{}
	}
	return Fragment{
		Graph: []string{fmt.Sprintf("aecho=%g:%g:%d:%g", e.inGain, e.outGain, int(e.delay), e.decay)},
	}
}

func (e *Echo) Describe() Description {
	return Description{
		Name:     e.name,
		Type:     TypeEcho,
		Enabled:  e.enabled,
		Priority: e.priority,
		Params: map[string]float64{
			"in_gain":  e.inGain,
			"out_gain": e.outGain,
			"delay":    e.delay,
			"decay":    e.decay,
		},
	}
}

func echoFromDescription(d Description) (Filter, error) {
	return NewEcho(
		paramOr(d.Params, "in_gain", 0.6),
		paramOr(d.Params, "out_gain", 0.3),
		paramOr(d.Params, "delay", 500),
		paramOr(d.Params, "decay", 0.5),
	)
}

// Karaoke attenuates center-panned content, which usually carries the vocal.
type Karaoke struct {
	base
	level float64
}

// NewKaraoke builds a karaoke filter with a cancellation level in [0, 1].
// 0 leaves the signal untouched, 1 removes the mid channel entirely.
func NewKaraoke(level float64) (*Karaoke, error) {
	k := &Karaoke{base: base{name: TypeKaraoke, enabled: true, priority: PriorityKaraoke}}
	if err := k.SetLevel(level); err != nil {
		return nil, err
	}
	return k, nil
}

func (k *Karaoke) Type() string { return TypeKaraoke }

func (k *Karaoke) SetLevel(level float64) error {
	if level < 0 || level > 1 {
		return engine.NewRangeError(k.name, "level", level, 0, 1)
	}
	k.level = level
	return nil
}

func (k *Karaoke) Fragment() Fragment {
	if k.level <= 0.01 {
		return Fragment{}
	}
	return Fragment{
		Graph: []string{fmt.Sprintf("stereotools=mlev=%.3f", 1.0-k.level)},
	}
}

func (k *Karaoke) Describe() Description {
	return Description{
		Name:     k.name,
		Type:     TypeKaraoke,
		Enabled:  k.enabled,
		Priority: k.priority,
		Params:   map[string]float64{"level": k.level},
	}
}

func karaokeFromDescription(d Description) (Filter, error) {
	return NewKaraoke(paramOr(d.Params, "level", 0))
}

// Custom carries raw transcoder fragments for effects the closed variants
// do not cover. Fragments pass through verbatim.
type Custom struct {
	base
	fragment Fragment
}

// NewCustom wraps raw fragments under a caller-chosen name. The name must be
// non-empty so the chain can address the filter.
func NewCustom(name string, fragment Fragment) (*Custom, error) {
	if name == "" {
		return nil, &engine.FilterError{Filter: TypeCustom, Param: "name", Err: engine.ErrParamOutOfRange}
	}
	return &Custom{
		base:     base{name: name, enabled: true, priority: PriorityKaraoke + 10},
		fragment: fragment,
	}, nil
}

func (c *Custom) Type() string       { return TypeCustom }
func (c *Custom) Fragment() Fragment { return c.fragment }

func (c *Custom) Describe() Description {
	return Description{
		Name:     c.name,
		Type:     TypeCustom,
		Enabled:  c.enabled,
		Priority: c.priority,
		Before:   c.fragment.Before,
		Options:  c.fragment.Options,
		Graph:    append([]string(nil), c.fragment.Graph...),
	}
}

func customFromDescription(d Description) (Filter, error) {
	return NewCustom(d.Name, Fragment{
		Before:  d.Before,
		Options: d.Options,
		Graph:   append([]string(nil), d.Graph...),
	})
}
