package api

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"reflect"
	"strconv"
	"strings"

	"github.com/santhosh-tekuri/jsonschema/v6"
	"github.com/santhosh-tekuri/jsonschema/v6/kind"

	"github.com/gork-labs/gork/pkg/gorkson"
	"github.com/gork-labs/gork/pkg/polymorph"
)

const componentsResource = "components.json"

// SchemaValidator validates documents against the component schema of the
// type their discriminator selects.
type SchemaValidator struct {
	codec   *polymorph.Codec
	gen     *SchemaGenerator
	schemas map[string]*jsonschema.Schema
}

// NewSchemaValidator compiles every component schema of spec.
func NewSchemaValidator(spec *Spec, codec *polymorph.Codec) (*SchemaValidator, error) {
	data, err := json.Marshal(spec.Components)
	if err != nil {
		return nil, err
	}
	doc, err := jsonschema.UnmarshalJSON(bytes.NewReader(data))
	if err != nil {
		return nil, err
	}

	compiler := jsonschema.NewCompiler()
	if err := compiler.AddResource(componentsResource, map[string]any{"components": doc}); err != nil {
		return nil, fmt.Errorf("failed to add schema resource: %w", err)
	}

	v := &SchemaValidator{
		codec:   codec,
		gen:     spec.Generator(),
		schemas: make(map[string]*jsonschema.Schema, len(spec.Components.Schemas)),
	}
	for name := range spec.Components.Schemas {
		s, err := compiler.Compile(componentsResource + "#/components/schemas/" + name)
		if err != nil {
			return nil, fmt.Errorf("failed to compile schema %s: %w", name, err)
		}
		v.schemas[name] = s
	}
	return v, nil
}

// Validate checks node against the family type base. Documents are checked
// against the schema of the type their discriminator resolves to; lists are
// checked element by element. Schema violations are returned as a
// *ValidationErrorResponse.
func (v *SchemaValidator) Validate(node any, base reflect.Type) error {
	resp := &ValidationErrorResponse{Message: "Schema validation failed"}
	if err := v.validateNode(node, base, "", resp); err != nil {
		return err
	}
	return resp.errOrNil()
}

func (v *SchemaValidator) validateNode(node any, base reflect.Type, prefix string, resp *ValidationErrorResponse) error {
	switch n := node.(type) {
	case nil:
		return nil
	case []any:
		for i, item := range n {
			if err := v.validateNode(item, base, prefix+"["+strconv.Itoa(i)+"]", resp); err != nil {
				return err
			}
		}
		return nil
	case *gorkson.Document:
		return v.validateDocument(n, base, prefix, resp)
	}
	return fmt.Errorf("%w: cannot validate %T", polymorph.ErrNotObject, node)
}

func (v *SchemaValidator) validateDocument(doc *gorkson.Document, base reflect.Type, prefix string, resp *ValidationErrorResponse) error {
	t, err := v.codec.Resolve(doc, base)
	if err != nil {
		return err
	}
	name := v.gen.SchemaName(t.GoType())
	schema, ok := v.schemas[name]
	if !ok {
		return fmt.Errorf("api: no schema for %s", t.GoType())
	}

	data, err := json.Marshal(doc)
	if err != nil {
		return err
	}
	instance, err := jsonschema.UnmarshalJSON(bytes.NewReader(data))
	if err != nil {
		return err
	}

	err = schema.Validate(instance)
	var verr *jsonschema.ValidationError
	switch {
	case err == nil:
		return nil
	case errors.As(err, &verr):
		collectSchemaErrors(verr, prefix, resp)
		return nil
	}
	return err
}

// collectSchemaErrors flattens the leaves of a validation error tree into
// resp, keyed by document path.
func collectSchemaErrors(verr *jsonschema.ValidationError, prefix string, resp *ValidationErrorResponse) {
	if len(verr.Causes) > 0 {
		for _, cause := range verr.Causes {
			collectSchemaErrors(cause, prefix, resp)
		}
		return
	}

	field := joinFieldPath(prefix, strings.Join(verr.InstanceLocation, "."))
	if req, ok := verr.ErrorKind.(*kind.Required); ok {
		for _, missing := range req.Missing {
			resp.Add(joinFieldPath(field, missing), "required")
		}
		return
	}

	rule := "schema"
	if path := verr.ErrorKind.KeywordPath(); len(path) > 0 {
		rule = path[len(path)-1]
	}
	resp.Add(field, rule)
}
