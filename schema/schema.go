// Package schema holds the declarative per-type schemas for node config
// and inputs. The built-in tables are embedded from schemas.yaml.
package schema

import (
	"fmt"
	"slices"
)

// FieldType is the declared type of a config field or input slot.
type FieldType string

const (
	TypeString   FieldType = "string"
	TypeInteger  FieldType = "integer"
	TypeBoolean  FieldType = "boolean"
	TypeArray    FieldType = "array"
	TypeHash     FieldType = "hash"
	TypeSingle   FieldType = "single"
	TypeMultiple FieldType = "multiple"
)

var (
	configTypes = []FieldType{TypeString, TypeInteger, TypeBoolean, TypeArray, TypeHash}
	inputTypes  = []FieldType{TypeSingle, TypeMultiple}
)

// Field declares one config field or input slot.
type Field struct {
	Type          FieldType `yaml:"type" json:"type"`
	Required      bool      `yaml:"required" json:"required"`
	AllowedValues []any     `yaml:"allowed_values" json:"allowed_values,omitempty"`
	MinCount      *int      `yaml:"min_count" json:"min_count,omitempty"`
	MaxCount      *int      `yaml:"max_count" json:"max_count,omitempty"`
}

// Schema maps field names to their declarations.
type Schema map[string]Field

// NodeSchema is the pair of schemas declared by one node type.
type NodeSchema struct {
	Type        string `yaml:"-" json:"type"`
	Description string `yaml:"description" json:"description"`
	Config      Schema `yaml:"config" json:"config"`
	Inputs      Schema `yaml:"inputs" json:"inputs"`
}

func (s *NodeSchema) check() error {
	for name, f := range s.Config {
		if !slices.Contains(configTypes, f.Type) {
			return fmt.Errorf("schema %s: config field %q has invalid type %q", s.Type, name, f.Type)
		}
	}
	for name, f := range s.Inputs {
		if !slices.Contains(inputTypes, f.Type) {
			return fmt.Errorf("schema %s: input slot %q has invalid type %q", s.Type, name, f.Type)
		}
		if f.MinCount != nil && f.MaxCount != nil && *f.MinCount > *f.MaxCount {
			return fmt.Errorf("schema %s: input slot %q has min_count > max_count", s.Type, name)
		}
	}
	return nil
}
