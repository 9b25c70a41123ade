package api

import (
	"reflect"

	"github.com/gork-labs/gork/pkg/gorkson"
	"github.com/gork-labs/gork/pkg/polymorph"
)

// OpenAPIVersion is the OpenAPI version written by NewSpec.
const OpenAPIVersion = "3.1.0"

// Spec is an OpenAPI document under construction. Schemas requested through
// SchemaFor are added to its components.
type Spec struct {
	*OpenAPISpec
	gen *SchemaGenerator
}

// NewSpec builds an OpenAPI 3.1 document whose components describe every
// type registered in reg, plus the standard error responses.
func NewSpec(title, version string, reg *polymorph.Registry, m *gorkson.Marshaler, opts ...OpenAPIOption) *Spec {
	gen := NewSchemaGenerator(reg, m)
	spec := &OpenAPISpec{
		OpenAPI: OpenAPIVersion,
		Info:    Info{Title: title, Version: version},
		Paths:   map[string]*PathItem{},
		Components: &Components{
			Schemas: gen.Schemas(),
		},
	}
	for _, o := range opts {
		o(spec)
	}

	s := &Spec{OpenAPISpec: spec, gen: gen}
	s.SchemaFor(reflect.TypeOf(ErrorResponse{}))
	s.SchemaFor(reflect.TypeOf(ValidationErrorResponse{}))
	ensureStdResponses(spec.Components)
	return s
}

// SchemaFor returns the schema for goType, adding components as needed.
func (s *Spec) SchemaFor(goType reflect.Type) *Schema {
	return s.gen.SchemaFor(goType)
}

// Generator returns the schema generator backing the spec.
func (s *Spec) Generator() *SchemaGenerator {
	return s.gen
}

// ensureStdResponses populates common error responses in components.
func ensureStdResponses(comps *Components) {
	if comps.Responses == nil {
		comps.Responses = map[string]*Response{}
	}

	add := func(name, desc string, schemaRef string) {
		if _, ok := comps.Responses[name]; !ok {
			comps.Responses[name] = &Response{
				Description: desc,
				Content: map[string]MediaType{
					"application/json": {Schema: &Schema{Ref: schemaRef}},
				},
			}
		}
	}

	add("BadRequest", "Bad Request - Validation failed", schemaRefPrefix+"ValidationErrorResponse")
	add("UnprocessableEntity", "Unprocessable Entity - Request body could not be parsed", schemaRefPrefix+"ErrorResponse")
	add("InternalServerError", "Internal Server Error", schemaRefPrefix+"ErrorResponse")
}

// ResponseRef returns a reference to one of the standard responses.
func ResponseRef(name string) *Response {
	return &Response{Ref: "#/components/responses/" + name}
}
