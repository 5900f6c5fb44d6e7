package validation

import (
	"fmt"
	"sort"
	"strings"

	"github.com/kbukum/vidpipe/pipeline"
	"github.com/kbukum/vidpipe/schema"
)

// UnexpectedInputsKey collects input slots the schema does not declare.
const UnexpectedInputsKey = "unexpected_inputs"

// Result is the cached validity persisted on a node.
type Result struct {
	IsValid bool              `json:"is_valid"`
	Errors  map[string]string `json:"validation_errors"`
}

// Validator validates nodes against a schema registry.
type Validator struct {
	registry *schema.Registry
}

// New creates a node Validator.
func New(registry *schema.Registry) *Validator {
	return &Validator{registry: registry}
}

// Registry returns the schema registry backing the validator.
func (v *Validator) Registry() *schema.Registry {
	return v.registry
}

// Validate checks config and inputs. siblingIDs are the ids of the other
// nodes in the node's pipeline.
func (v *Validator) Validate(node *pipeline.Node, siblingIDs []string) Result {
	s, ok := v.registry.Get(node.Type)
	if !ok {
		return Result{Errors: map[string]string{"type": "Unknown node type: " + node.Type}}
	}

	errs := ValidateConfig(node, s.Config)
	for k, msg := range ValidateInputs(node, s.Inputs, siblingIDs) {
		errs[k] = msg
	}
	return Result{IsValid: len(errs) == 0, Errors: errs}
}

// Apply validates the node and stores the result on it.
func (v *Validator) Apply(node *pipeline.Node, siblingIDs []string) Result {
	res := v.Validate(node, siblingIDs)
	node.IsValid = res.IsValid
	node.ValidationErrors = res.Errors
	return res
}

// ValidateConfig returns the first error of each declared config field.
func ValidateConfig(node *pipeline.Node, s schema.Schema) map[string]string {
	errs := make(map[string]string)
	for _, name := range sortedFields(s) {
		field := s[name]
		value, present := node.Config[name]
		if !present || value == nil {
			if field.Required {
				errs[name] = requiredMessage(node.Type)
			}
			continue
		}
		if !matchesType(field.Type, value) {
			errs[name] = fmt.Sprintf("must be a %s", field.Type)
			continue
		}
		if len(field.AllowedValues) > 0 && !allowed(field.AllowedValues, value) {
			errs[name] = "must be one of: " + joinValues(field.AllowedValues)
		}
	}
	return errs
}

// ValidateInputs checks slot shapes, counts and that every referenced id
// is one of siblingIDs.
func ValidateInputs(node *pipeline.Node, s schema.Schema, siblingIDs []string) map[string]string {
	siblings := make(map[string]bool, len(siblingIDs))
	for _, id := range siblingIDs {
		if id != node.ID {
			siblings[id] = true
		}
	}

	errs := make(map[string]string)
	for _, name := range sortedFields(s) {
		slot := s[name]
		value, present := node.Inputs[name]
		if !present || value == nil {
			if slot.Required {
				errs[name] = requiredMessage(node.Type)
			}
			continue
		}

		switch slot.Type {
		case schema.TypeSingle:
			id, ok := pipeline.AsString(value)
			if !ok || id == "" {
				errs[name] = "must be a single"
			} else if !siblings[id] {
				errs[name] = "references non-existent nodes"
			}
		case schema.TypeMultiple:
			items, ok := pipeline.AsSlice(value)
			switch {
			case !ok:
				errs[name] = "must be a multiple"
			case slot.MinCount != nil && len(items) < *slot.MinCount:
				errs[name] = fmt.Sprintf("requires at least %d items, got %d", *slot.MinCount, len(items))
			case slot.MaxCount != nil && len(items) > *slot.MaxCount:
				errs[name] = fmt.Sprintf("allows at most %d items, got %d", *slot.MaxCount, len(items))
			case !allReferenced(items, siblings):
				errs[name] = "references non-existent nodes"
			}
		}
	}

	var unexpected []string
	for name := range node.Inputs {
		if _, declared := s[name]; !declared {
			unexpected = append(unexpected, name)
		}
	}
	if len(unexpected) > 0 {
		sort.Strings(unexpected)
		errs[UnexpectedInputsKey] = "Unexpected input slot(s): " + strings.Join(unexpected, ", ")
	}
	return errs
}

func requiredMessage(nodeType string) string {
	return fmt.Sprintf("is required for %s nodes", nodeType)
}

func sortedFields(s schema.Schema) []string {
	names := make([]string, 0, len(s))
	for name := range s {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

func matchesType(t schema.FieldType, v any) bool {
	switch t {
	case schema.TypeString:
		_, ok := v.(string)
		return ok
	case schema.TypeInteger:
		return pipeline.IsInteger(v)
	case schema.TypeBoolean:
		_, ok := v.(bool)
		return ok
	case schema.TypeArray:
		_, ok := pipeline.AsSlice(v)
		return ok
	case schema.TypeHash:
		_, ok := pipeline.AsMap(v)
		return ok
	default:
		return false
	}
}

// allowed compares numbers by value so 1, 1.0 and json.Number("1") match.
func allowed(values []any, v any) bool {
	vf, vIsNum := pipeline.AsFloat(v)
	for _, candidate := range values {
		if cf, ok := pipeline.AsFloat(candidate); ok && vIsNum {
			if cf == vf {
				return true
			}
			continue
		}
		if candidate == v {
			return true
		}
	}
	return false
}

func allReferenced(items []any, siblings map[string]bool) bool {
	for _, item := range items {
		id, ok := pipeline.AsString(item)
		if !ok || !siblings[id] {
			return false
		}
	}
	return true
}

func joinValues(values []any) string {
	parts := make([]string, len(values))
	for i, v := range values {
		parts[i] = fmt.Sprint(v)
	}
	return strings.Join(parts, ", ")
}
