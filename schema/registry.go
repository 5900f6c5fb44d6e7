package schema

import (
	_ "embed"
	"fmt"
	"sort"
	"sync"

	"go.yaml.in/yaml/v3"
)

//go:embed schemas.yaml
var builtinYAML []byte

// Registry provides node schema lookup by type.
type Registry struct {
	mu      sync.RWMutex
	schemas map[string]*NodeSchema
}

// NewRegistry creates an empty Registry.
func NewRegistry() *Registry {
	return &Registry{schemas: make(map[string]*NodeSchema)}
}

// Parse builds a Registry from a YAML document keyed by node type.
func Parse(data []byte) (*Registry, error) {
	var raw map[string]*NodeSchema
	if err := yaml.Unmarshal(data, &raw); err != nil {
		return nil, fmt.Errorf("schema: parsing: %w", err)
	}

	r := NewRegistry()
	for typ, s := range raw {
		if s == nil {
			s = &NodeSchema{}
		}
		s.Type = typ
		if err := r.Register(s); err != nil {
			return nil, err
		}
	}
	return r, nil
}

// Builtin returns the schemas embedded in the binary.
func Builtin() (*Registry, error) {
	return Parse(builtinYAML)
}

// MustBuiltin is Builtin for program start-up; it panics on a malformed table.
func MustBuiltin() *Registry {
	r, err := Builtin()
	if err != nil {
		panic(err)
	}
	return r
}

// BuiltinYAML returns the embedded schema document.
func BuiltinYAML() []byte {
	return builtinYAML
}

// Register adds or replaces a schema.
func (r *Registry) Register(s *NodeSchema) error {
	if s.Type == "" {
		return fmt.Errorf("schema: type is required")
	}
	if err := s.check(); err != nil {
		return err
	}
	if s.Config == nil {
		s.Config = Schema{}
	}
	if s.Inputs == nil {
		s.Inputs = Schema{}
	}

	r.mu.Lock()
	defer r.mu.Unlock()
	r.schemas[s.Type] = s
	return nil
}

// Get retrieves the schema for a node type.
func (r *Registry) Get(nodeType string) (*NodeSchema, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	s, ok := r.schemas[nodeType]
	return s, ok
}

// Types returns the sorted registered node types.
func (r *Registry) Types() []string {
	r.mu.RLock()
	defer r.mu.RUnlock()
	types := make([]string, 0, len(r.schemas))
	for t := range r.schemas {
		types = append(types, t)
	}
	sort.Strings(types)
	return types
}

// All returns every schema ordered by type.
func (r *Registry) All() []*NodeSchema {
	types := r.Types()
	r.mu.RLock()
	defer r.mu.RUnlock()
	out := make([]*NodeSchema, 0, len(types))
	for _, t := range types {
		out = append(out, r.schemas[t])
	}
	return out
}
