package probe

import (
	"errors"
	"fmt"
	"sync"

	"github.com/buemura/baseera/internal/catalog"
	"github.com/buemura/baseera/internal/severity"
)

type entry struct {
	probe   Probe
	enabled bool
}

// Registry is an ordered, append-only list of probes. Registration order is
// execution order.
type Registry struct {
	mu      sync.RWMutex
	entries []entry
	byID    map[int]int
	byName  map[string]int
}

// NewRegistry creates an empty probe registry.
func NewRegistry() *Registry {
	return &Registry{
		byID:   make(map[int]int),
		byName: make(map[string]int),
	}
}

// Register appends a probe. It fails if another probe already uses the same
// type id or name.
func (r *Registry) Register(p Probe) error {
	d := p.Descriptor()

	r.mu.Lock()
	defer r.mu.Unlock()

	if i, ok := r.byID[d.TypeID]; ok {
		return fmt.Errorf("%w: %d claimed by %q and %q",
			ErrDuplicateProbeID, d.TypeID, r.entries[i].probe.Descriptor().Name, d.Name)
	}
	if _, ok := r.byName[d.Name]; ok {
		return fmt.Errorf("probe name %q already registered", d.Name)
	}

	r.byID[d.TypeID] = len(r.entries)
	r.byName[d.Name] = len(r.entries)
	r.entries = append(r.entries, entry{probe: p, enabled: d.Enabled})
	return nil
}

// MustRegister is Register for startup wiring; it panics on error.
func (r *Registry) MustRegister(probes ...Probe) {
	for _, p := range probes {
		if err := r.Register(p); err != nil {
			panic(err)
		}
	}
}

// Get retrieves a probe by name.
func (r *Registry) Get(name string) (Probe, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	i, ok := r.byName[name]
	if !ok {
		return nil, fmt.Errorf("%w: %q", ErrProbeNotFound, name)
	}
	return r.entries[i].probe, nil
}

// List returns all probes in registration order.
func (r *Registry) List() []Probe {
	r.mu.RLock()
	defer r.mu.RUnlock()

	out := make([]Probe, len(r.entries))
	for i, e := range r.entries {
		out[i] = e.probe
	}
	return out
}

// Enabled returns the enabled probes in registration order.
func (r *Registry) Enabled() []Probe {
	r.mu.RLock()
	defer r.mu.RUnlock()

	var out []Probe
	for _, e := range r.entries {
		if e.enabled {
			out = append(out, e.probe)
		}
	}
	return out
}

// Descriptors returns every probe's descriptor in registration order, with
// Enabled reflecting the registry's current gate.
func (r *Registry) Descriptors() []Descriptor {
	r.mu.RLock()
	defer r.mu.RUnlock()

	out := make([]Descriptor, len(r.entries))
	for i, e := range r.entries {
		d := e.probe.Descriptor()
		d.Enabled = e.enabled
		out[i] = d
	}
	return out
}

// SetEnabled toggles whether the named probe takes part in scans.
func (r *Registry) SetEnabled(name string, enabled bool) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	i, ok := r.byName[name]
	if !ok {
		return fmt.Errorf("%w: %q", ErrProbeNotFound, name)
	}
	r.entries[i].enabled = enabled
	return nil
}

// Len returns the number of registered probes.
func (r *Registry) Len() int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.entries)
}

// Validate checks every descriptor against the catalog: the type id must be
// known and the declared tier must match both the catalog and the severity
// classifier.
func (r *Registry) Validate(cat *catalog.Catalog) error {
	var errs []error
	for _, d := range r.Descriptors() {
		e, err := cat.Lookup(d.TypeID)
		if err != nil {
			errs = append(errs, fmt.Errorf("probe %q: %w", d.Name, err))
			continue
		}
		if d.Severity != e.Severity {
			errs = append(errs, fmt.Errorf("%w: probe %q declares %s, catalog type %d (%s) is %s",
				catalog.ErrSeverityMismatch, d.Name, d.Severity, e.ID, e.Name, e.Severity))
		}
		if want := severity.Classify(d.TypeID); d.Severity != want {
			errs = append(errs, fmt.Errorf("%w: probe %q declares %s, classifier says %s",
				catalog.ErrSeverityMismatch, d.Name, d.Severity, want))
		}
	}
	return errors.Join(errs...)
}

// Subset returns a new registry holding only the named probes, all enabled,
// in this registry's order.
func (r *Registry) Subset(names []string) (*Registry, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	want := make(map[string]bool, len(names))
	for _, name := range names {
		if _, ok := r.byName[name]; !ok {
			return nil, fmt.Errorf("%w: %q", ErrProbeNotFound, name)
		}
		want[name] = true
	}

	sub := NewRegistry()
	for _, e := range r.entries {
		if !want[e.probe.Descriptor().Name] {
			continue
		}
		if err := sub.Register(e.probe); err != nil {
			return nil, err
		}
		sub.entries[len(sub.entries)-1].enabled = true
	}
	return sub, nil
}
