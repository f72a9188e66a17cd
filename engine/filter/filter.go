// Package filter models the audio effect chain. Each filter validates its own
// parameters and deterministically computes the transcoder fragment it
// contributes; the chain combines enabled fragments in priority order.
package filter

import (
	"github.com/rae1st/oscillate/engine"
)

// Fixed default priorities per filter type. Lower priority is applied
// earlier in the transcoder pipeline.
const (
	PriorityEqualizer = 10
	PriorityBassBoost = 15
	PriorityNightcore = 20
	PriorityAudio8D   = 30
	PriorityReverb    = 40
	PriorityEcho      = 45
	PriorityKaraoke   = 50
)

// Fragment is one filter's contribution to the transcoder configuration.
// Before and Options are raw argument strings; Graph entries are joined
// with commas into the combined audio filter graph.
type Fragment struct {
	Before  string
	Options string
	Graph   []string
}

func (f Fragment) empty() bool {
	return f.Before == "" && f.Options == "" && len(f.Graph) == 0
}

// Filter is the closed set of audio effects. Concrete variants live in this
// package; parameters are valid at all times (constructors and setters
// reject out-of-range values before mutating).
type Filter interface {
	Name() string
	Type() string
	Priority() int
	SetPriority(p int)
	Enabled() bool
	SetEnabled(enabled bool)
	// Fragment computes the transcoder contribution from the current
	// parameters. Disabled or no-op filters return a zero Fragment.
	Fragment() Fragment
	// Describe returns the serializable form used in persisted state.
	Describe() Description
}

// Description is the durable form of one filter.
type Description struct {
	Name     string             `json:"name"`
	Type     string             `json:"type"`
	Enabled  bool               `json:"enabled"`
	Priority int                `json:"priority"`
	Params   map[string]float64 `json:"params,omitempty"`

	// Custom filter payload.
	Before  string   `json:"before,omitempty"`
	Options string   `json:"options,omitempty"`
	Graph   []string `json:"graph,omitempty"`
}

// FromDescription reconstructs a filter from its durable form. Unknown types
// fail with a FilterError; parameter validation applies as at construction.
func FromDescription(d Description) (Filter, error) {
	var (
		f   Filter
		err error
	)
	switch d.Type {
	case TypeEqualizer:
		f, err = equalizerFromDescription(d)
	case TypeBassBoost:
		f, err = bassBoostFromDescription(d)
	case TypeNightcore:
		f, err = nightcoreFromDescription(d)
	case TypeAudio8D:
		f, err = audio8DFromDescription(d)
	case TypeReverb:
		f, err = reverbFromDescription(d)
	case TypeEcho:
		f, err = echoFromDescription(d)
	case TypeKaraoke:
		f, err = karaokeFromDescription(d)
	case TypeCustom:
		f, err = customFromDescription(d)
	default:
		return nil, &engine.FilterError{Filter: d.Name, Param: d.Type, Err: engine.ErrUnknownPreset}
	}
	if err != nil {
		return nil, err
	}
	f.SetEnabled(d.Enabled)
	if d.Priority != 0 {
		f.SetPriority(d.Priority)
	}
	return f, nil
}

// base carries the shared name/enabled/priority state of every variant.
type base struct {
	name     string
	enabled  bool
	priority int
}

func (b *base) Name() string            { return b.name }
func (b *base) Priority() int           { return b.priority }
func (b *base) SetPriority(p int)       { b.priority = p }
func (b *base) Enabled() bool           { return b.enabled }
func (b *base) SetEnabled(enabled bool) { b.enabled = enabled }
