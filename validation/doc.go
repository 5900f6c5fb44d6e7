// Package validation checks node documents against their type's schema
// and validates API request structs.
//
// Node validation never fails: it returns a field -> message map that the
// engine persists on the node as is_valid / validation_errors.
//
//	v := validation.New(schema.MustBuiltin())
//	res := v.Validate(node, siblingIDs)
//	node.IsValid, node.ValidationErrors = res.IsValid, res.Errors
//
// Request structs use go-playground validator tags:
//
//	type createNodeRequest struct {
//	    Type string `json:"type" validate:"required"`
//	}
//	if err := validation.Struct(req); err != nil { ... }
package validation
