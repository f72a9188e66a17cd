package filter

import (
	"sort"
	"strings"
	"sync"

	"github.com/rae1st/oscillate/engine"
)

// Chain is the ordered set of filters attached to one player. Adding a
// filter whose name is already present replaces it in place; fragments of
// enabled filters are combined in ascending priority order, insertion order
// breaking ties.
type Chain struct {
	mu      sync.Mutex
	filters []Filter
}

// NewChain returns an empty chain.
func NewChain() *Chain {
	return &Chain{}
}

// Add appends a filter, replacing any existing filter of the same name
// while keeping its position.
func (c *Chain) Add(f Filter) {
	if f == nil {
		return
	}
	c.mu.Lock()
	defer c.mu.Unlock()

	for i, existing := range c.filters {
		if existing.Name() == f.Name() {
			c.filters[i] = f
			return
		}
	}
	c.filters = append(c.filters, f)
}

// Remove deletes a filter by name and reports whether it was present.
func (c *Chain) Remove(name string) bool {
	c.mu.Lock()
	defer c.mu.Unlock()

	for i, f := range c.filters {
		if f.Name() == name {
			c.filters = append(c.filters[:i], c.filters[i+1:]...)
			return true
		}
	}
	return false
}

// Get returns the filter with the given name, or nil.
func (c *Chain) Get(name string) Filter {
	c.mu.Lock()
	defer c.mu.Unlock()

	for _, f := range c.filters {
		if f.Name() == name {
			return f
		}
	}
	return nil
}

// SetEnabled flips one filter's enabled flag and reports whether the
// filter exists.
func (c *Chain) SetEnabled(name string, enabled bool) bool {
	c.mu.Lock()
	defer c.mu.Unlock()

	for _, f := range c.filters {
		if f.Name() == name {
			f.SetEnabled(enabled)
			return true
		}
	}
	return false
}

// Clear removes all filters.
func (c *Chain) Clear() {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.filters = nil
}

// Len returns the number of attached filters.
func (c *Chain) Len() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return len(c.filters)
}

// EnabledCount returns how many filters are currently enabled.
func (c *Chain) EnabledCount() int {
	c.mu.Lock()
	defer c.mu.Unlock()

	count := 0
	for _, f := range c.filters {
		if f.Enabled() {
			count++
		}
	}
	return count
}

// Names lists filter names in insertion order.
func (c *Chain) Names() []string {
	c.mu.Lock()
	defer c.mu.Unlock()

	names := make([]string, len(c.filters))
	for i, f := range c.filters {
		names[i] = f.Name()
	}
	return names
}

// Combined merges the fragments of all enabled filters in priority order
// into a single transcoder argument set. Before and Options segments join
// with spaces, graph entries with commas.
func (c *Chain) Combined() engine.TranscodeArgs {
	c.mu.Lock()
	ordered := make([]Filter, len(c.filters))
	copy(ordered, c.filters)
	c.mu.Unlock()

	sort.SliceStable(ordered, func(i, j int) bool {
		return ordered[i].Priority() < ordered[j].Priority()
	})

	var before, options, graph []string
	for _, f := range ordered {
		if !f.Enabled() {
			continue
		}
		frag := f.Fragment()
		if frag.empty() {
			continue
		}
		if frag.Before != "" {
			before = append(before, frag.Before)
		}
		if frag.Options != "" {
			options = append(options, frag.Options)
		}
		graph = append(graph, frag.Graph...)
	}

	return engine.TranscodeArgs{
		Before:      strings.Join(before, " "),
		Options:     strings.Join(options, " "),
		FilterGraph: strings.Join(graph, ","),
	}
}

// Describe snapshots every filter's durable form in insertion order.
func (c *Chain) Describe() []Description {
	c.mu.Lock()
	defer c.mu.Unlock()

	out := make([]Description, len(c.filters))
	for i, f := range c.filters {
		out[i] = f.Describe()
	}
	return out
}

// ChainFromDescriptions rebuilds a chain from persisted filter
// descriptions. A single bad description fails the whole rebuild so a
// half-restored chain never plays.
func ChainFromDescriptions(descs []Description) (*Chain, error) {
	chain := NewChain()
	for _, d := range descs {
		f, err := FromDescription(d)
		if err != nil {
			return nil, err
		}
		chain.Add(f)
	}
	return chain, nil
}
