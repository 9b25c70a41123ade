package api

import (
	"encoding/json"

	"github.com/gork-labs/gork/pkg/gorkson"
)

// OpenAPISpec represents the root of an OpenAPI 3.1 document.
type OpenAPISpec struct {
	OpenAPI    string               `json:"openapi"`
	Info       Info                 `json:"info"`
	Paths      map[string]*PathItem `json:"paths"`
	Components *Components          `json:"components,omitempty"`
}

// MarshalJSON implements a custom marshaler for OpenAPISpec to ensure that
// it is always marshaled using the standard json package, even when a custom
// marshaler is active.
func (s *OpenAPISpec) MarshalJSON() ([]byte, error) {
	type Alias OpenAPISpec
	return json.Marshal((*Alias)(s))
}

// Encode renders the spec in the given wire format. Key order follows the
// JSON rendering.
func (s *OpenAPISpec) Encode(f gorkson.Format) ([]byte, error) {
	data, err := json.Marshal(s)
	if err != nil {
		return nil, err
	}
	node, err := gorkson.ParseJSON(data)
	if err != nil {
		return nil, err
	}
	return f.Marshal(node)
}

// Info represents the OpenAPI info section containing metadata about the API.
type Info struct {
	Title   string `json:"title,omitempty"`
	Version string `json:"version,omitempty"`
}

// Components represents the OpenAPI components section containing reusable objects.
type Components struct {
	Schemas   map[string]*Schema   `json:"schemas,omitempty"`
	Responses map[string]*Response `json:"responses,omitempty"`
}

// PathItem represents a path item object containing HTTP operations for a path.
type PathItem struct {
	Get    *Operation `json:"get,omitempty"`
	Post   *Operation `json:"post,omitempty"`
	Put    *Operation `json:"put,omitempty"`
	Patch  *Operation `json:"patch,omitempty"`
	Delete *Operation `json:"delete,omitempty"`
}

// Operation represents an OpenAPI operation object describing a single API operation.
type Operation struct {
	OperationID string               `json:"operationId,omitempty"`
	Description string               `json:"description,omitempty"`
	Tags        []string             `json:"tags,omitempty"`
	Parameters  []Parameter          `json:"parameters,omitempty"`
	RequestBody *RequestBody         `json:"requestBody,omitempty"`
	Responses   map[string]*Response `json:"responses,omitempty"`
}

// Parameter represents an OpenAPI parameter object describing a single operation parameter.
type Parameter struct {
	Name        string  `json:"name"`
	In          string  `json:"in"` // "query", "header", "path", "cookie"
	Required    bool    `json:"required"`
	Description string  `json:"description,omitempty"`
	Schema      *Schema `json:"schema,omitempty"`
}

// RequestBody represents an OpenAPI request body object.
type RequestBody struct {
	Required bool                 `json:"required,omitempty"`
	Content  map[string]MediaType `json:"content,omitempty"`
}

// MediaType represents an OpenAPI media type object containing schema information.
type MediaType struct {
	Schema *Schema `json:"schema,omitempty"`
}

// Response represents an OpenAPI response object describing a single response from an API operation.
type Response struct {
	Ref         string               `json:"$ref,omitempty"`
	Description string               `json:"description,omitempty"`
	Content     map[string]MediaType `json:"content,omitempty"`
}

// Schema represents an OpenAPI schema object defining the structure of request/response data.
type Schema struct {
	Title                string             `json:"title,omitempty"`
	Ref                  string             `json:"$ref,omitempty"`
	Type                 string             `json:"-"`
	Types                []string           `json:"-"`
	Properties           map[string]*Schema `json:"properties,omitempty"`
	Required             []string           `json:"required,omitempty"`
	AllOf                []*Schema          `json:"allOf,omitempty"`
	OneOf                []*Schema          `json:"oneOf,omitempty"`
	AnyOf                []*Schema          `json:"anyOf,omitempty"`
	Discriminator        *Discriminator     `json:"discriminator,omitempty"`
	Description          string             `json:"description,omitempty"`
	Format               string             `json:"format,omitempty"`
	Minimum              *float64           `json:"minimum,omitempty"`
	Maximum              *float64           `json:"maximum,omitempty"`
	MinLength            *int               `json:"minLength,omitempty"`
	MaxLength            *int               `json:"maxLength,omitempty"`
	MinItems             *int               `json:"minItems,omitempty"`
	MaxItems             *int               `json:"maxItems,omitempty"`
	Pattern              string             `json:"pattern,omitempty"`
	Enum                 []string           `json:"enum,omitempty"`
	Items                *Schema            `json:"items,omitempty"`
	AdditionalProperties *Schema            `json:"additionalProperties,omitempty"`
}

// MarshalJSON implements custom JSON marshaling for Schema to handle the type field correctly.
// If Types is set, it marshals as an array. If Type is set, it marshals as a string.
func (s *Schema) MarshalJSON() ([]byte, error) {
	type Alias Schema
	aux := &struct {
		Type interface{} `json:"type,omitempty"`
		*Alias
	}{
		Alias: (*Alias)(s),
	}

	if len(s.Types) > 0 {
		aux.Type = s.Types
	} else if s.Type != "" {
		aux.Type = s.Type
	}

	return json.Marshal(aux)
}

// UnmarshalJSON implements custom JSON unmarshaling for Schema to handle the type field correctly.
func (s *Schema) UnmarshalJSON(data []byte) error {
	type Alias Schema
	aux := &struct {
		Type interface{} `json:"type"`
		*Alias
	}{
		Alias: (*Alias)(s),
	}

	if err := json.Unmarshal(data, aux); err != nil {
		return err
	}

	switch v := aux.Type.(type) {
	case string:
		s.Type = v
	case []interface{}:
		s.Types = make([]string, len(v))
		for i, item := range v {
			if str, ok := item.(string); ok {
				s.Types[i] = str
			}
		}
	}

	return nil
}

// Discriminator represents an OpenAPI discriminator object for polymorphic schemas.
type Discriminator struct {
	PropertyName string            `json:"propertyName"`
	Mapping      map[string]string `json:"mapping,omitempty"`
}

// OpenAPIOption allows callers to tweak the generated specification.
type OpenAPIOption func(*OpenAPISpec)

// WithTitle sets the spec title.
func WithTitle(title string) OpenAPIOption {
	return func(spec *OpenAPISpec) { spec.Info.Title = title }
}

// WithVersion sets the spec version.
func WithVersion(version string) OpenAPIOption {
	return func(spec *OpenAPISpec) { spec.Info.Version = version }
}

// AddOperation attaches op to path under the given HTTP method.
func (s *OpenAPISpec) AddOperation(path, method string, op *Operation) {
	if s.Paths == nil {
		s.Paths = map[string]*PathItem{}
	}
	item := s.Paths[path]
	if item == nil {
		item = &PathItem{}
		s.Paths[path] = item
	}
	attachOperation(item, method, op)
}

func attachOperation(item *PathItem, method string, op *Operation) {
	switch method {
	case "get", "GET":
		item.Get = op
	case "post", "POST":
		item.Post = op
	case "put", "PUT":
		item.Put = op
	case "patch", "PATCH":
		item.Patch = op
	case "delete", "DELETE":
		item.Delete = op
	}
}
