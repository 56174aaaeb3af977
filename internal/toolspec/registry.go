package toolspec

import (
	"os"
	"path/filepath"
	"sort"
	"strings"

	"github.com/boshu2/macc/internal/macc"
)

// Registry holds every loaded ToolSpec by id.
type Registry struct {
	specs map[string]ToolSpec
}

// NewRegistry builds an empty registry.
func NewRegistry() *Registry {
	return &Registry{specs: make(map[string]ToolSpec)}
}

// Add registers spec, returning an error if its id is already present.
func (r *Registry) Add(spec ToolSpec) error {
	if _, exists := r.specs[spec.ID]; exists {
		return macc.Validationf("duplicate tool spec id: %s", spec.ID)
	}
	r.specs[spec.ID] = spec
	return nil
}

// Get looks up a tool spec by id.
func (r *Registry) Get(id string) (ToolSpec, bool) {
	spec, ok := r.specs[id]
	return spec, ok
}

// IDs returns every registered tool id, sorted.
func (r *Registry) IDs() []string {
	ids := make([]string, 0, len(r.specs))
	for id := range r.specs {
		ids = append(ids, id)
	}
	sort.Strings(ids)
	return ids
}

// LoadDir loads every *.yaml/*.yml tool spec file in dir into a registry.
// Later files (lexicographically) do not override earlier ones; a
// duplicate id across files is an error, since distinct tool specs sharing
// an id indicates a packaging mistake, not an intentional override.
func LoadDir(dir string) (*Registry, error) {
	reg := NewRegistry()

	entries, err := os.ReadDir(dir)
	if err != nil {
		if os.IsNotExist(err) {
			return reg, nil
		}
		return nil, macc.IO("read tool spec directory", dir, err)
	}

	names := make([]string, 0, len(entries))
	for _, e := range entries {
		if e.IsDir() {
			continue
		}
		ext := strings.ToLower(filepath.Ext(e.Name()))
		if ext == ".yaml" || ext == ".yml" {
			names = append(names, e.Name())
		}
	}
	sort.Strings(names)

	for _, name := range names {
		data, err := os.ReadFile(filepath.Join(dir, name))
		if err != nil {
			return nil, macc.IO("read tool spec file", filepath.Join(dir, name), err)
		}
		spec, err := FromYAML(data)
		if err != nil {
			return nil, err
		}
		if err := reg.Add(spec); err != nil {
			return nil, err
		}
	}

	return reg, nil
}
