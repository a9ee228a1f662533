// Package catalog holds the read-only reference table of known
// vulnerability types. Probe descriptors join against it by type id.
package catalog

import (
	_ "embed"
	"errors"
	"fmt"
	"sort"

	"github.com/buemura/baseera/internal/severity"
	"github.com/buemura/baseera/pkg/types"
	"gopkg.in/yaml.v3"
)

//go:embed catalog.yaml
var defaultCatalog []byte

var (
	// ErrUnknownType is returned when a type id is not in the catalog.
	ErrUnknownType = errors.New("unknown vulnerability type")
	// ErrSeverityMismatch is returned when two sources disagree on the tier
	// of a vulnerability type.
	ErrSeverityMismatch = errors.New("severity mismatch")
)

// Entry describes one vulnerability type.
type Entry struct {
	ID          int            `yaml:"id" json:"id"`
	Name        string         `yaml:"name" json:"name"`
	DisplayName string         `yaml:"display_name" json:"displayName"`
	Severity    types.Severity `yaml:"severity" json:"severity"`
	Category    string         `yaml:"category" json:"category"`
	CWE         string         `yaml:"cwe" json:"cwe"`
	Description string         `yaml:"description" json:"description"`
}

// Catalog is an immutable id-indexed set of entries.
type Catalog struct {
	entries map[int]Entry
}

type document struct {
	Types []Entry `yaml:"types"`
}

// Default returns the catalog embedded in the binary. It panics if the
// embedded data is invalid, which can only happen on a bad build.
func Default() *Catalog {
	c, err := Parse(defaultCatalog)
	if err != nil {
		panic(fmt.Sprintf("embedded catalog: %v", err))
	}
	return c
}

// Parse decodes a YAML catalog and validates it: ids and names are unique
// and every entry's tier matches severity.Classify for its id.
func Parse(data []byte) (*Catalog, error) {
	var doc document
	if err := yaml.Unmarshal(data, &doc); err != nil {
		return nil, fmt.Errorf("decoding catalog: %w", err)
	}

	c := &Catalog{entries: make(map[int]Entry, len(doc.Types))}
	names := make(map[string]int, len(doc.Types))
	var errs []error

	for _, e := range doc.Types {
		if e.ID <= 0 {
			errs = append(errs, fmt.Errorf("entry %q: id must be positive, got %d", e.Name, e.ID))
			continue
		}
		if _, dup := c.entries[e.ID]; dup {
			errs = append(errs, fmt.Errorf("duplicate type id %d", e.ID))
			continue
		}
		if other, dup := names[e.Name]; dup {
			errs = append(errs, fmt.Errorf("type name %q used by ids %d and %d", e.Name, other, e.ID))
			continue
		}
		if want := severity.Classify(e.ID); e.Severity != want {
			errs = append(errs, fmt.Errorf("%w: type %d (%s) declared %s, classifier says %s",
				ErrSeverityMismatch, e.ID, e.Name, e.Severity, want))
		}
		c.entries[e.ID] = e
		names[e.Name] = e.ID
	}

	if err := errors.Join(errs...); err != nil {
		return nil, err
	}
	return c, nil
}

// Lookup returns the entry for a type id.
func (c *Catalog) Lookup(id int) (Entry, error) {
	e, ok := c.entries[id]
	if !ok {
		return Entry{}, fmt.Errorf("%w: %d", ErrUnknownType, id)
	}
	return e, nil
}

// Entries returns all entries sorted by id.
func (c *Catalog) Entries() []Entry {
	out := make([]Entry, 0, len(c.entries))
	for _, e := range c.entries {
		out = append(out, e)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out
}

// Len returns the number of entries.
func (c *Catalog) Len() int {
	return len(c.entries)
}
