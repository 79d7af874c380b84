package sampling

import (
	"fmt"
	"sort"
	"strings"
)

// Registry is a read-only lookup of sampling strategies by name. The
// hosting process populates it once at startup; the pipeline only ever
// sees the resolved Strategy, never performs discovery itself.
type Registry struct {
	byName map[string]Strategy
}

// NewRegistry builds a registry from the given strategies. Names are
// case-insensitive and must be unique.
func NewRegistry(strategies ...Strategy) (Registry, error) {
	byName := make(map[string]Strategy, len(strategies))
	for _, s := range strategies {
		if s == nil {
			return Registry{}, fmt.Errorf("nil sampling strategy")
		}
		name := strings.ToLower(strings.TrimSpace(s.Name()))
		if name == "" {
			return Registry{}, fmt.Errorf("sampling strategy with empty name")
		}
		if _, ok := byName[name]; ok {
			return Registry{}, fmt.Errorf("duplicate sampling strategy: %q", name)
		}
		byName[name] = s
	}
	return Registry{byName: byName}, nil
}

// DefaultRegistry returns a registry with the built-in strategies.
func DefaultRegistry() Registry {
	r, err := NewRegistry(Uniform{}, WeightedEdges{}, Scene{})
	if err != nil {
		// Built-ins have distinct hard-coded names.
		panic(err)
	}
	return r
}

// Get resolves a strategy by name.
func (r Registry) Get(name string) (Strategy, bool) {
	if r.byName == nil {
		return nil, false
	}
	s, ok := r.byName[strings.ToLower(strings.TrimSpace(name))]
	return s, ok
}

// Names returns the registered strategy names, sorted.
func (r Registry) Names() []string {
	names := make([]string, 0, len(r.byName))
	for name := range r.byName {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}
