package api

import (
	"encoding/json"
	"reflect"
	"strings"
	"testing"

	"github.com/gork-labs/gork/pkg/gorkson"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewSpec(t *testing.T) {
	spec := NewSpec("Items", "v1", testRegistry(t), nil)

	assert.Equal(t, "3.1.0", spec.OpenAPI)
	assert.Equal(t, Info{Title: "Items", Version: "v1"}, spec.Info)
	assert.Contains(t, spec.Components.Schemas, "Item")
	assert.Contains(t, spec.Components.Schemas, "ErrorResponse")
	assert.Contains(t, spec.Components.Schemas, "ValidationErrorResponse")

	bad := spec.Components.Responses["BadRequest"]
	require.NotNil(t, bad)
	assert.Equal(t, "#/components/schemas/ValidationErrorResponse", bad.Content["application/json"].Schema.Ref)

	spec.AddOperation("/api/Items", "GET", &Operation{
		OperationID: "listItems",
		Responses: map[string]*Response{
			"200": {Description: "OK", Content: map[string]MediaType{
				"application/json": {Schema: spec.SchemaFor(reflect.TypeOf([]Item{}))},
			}},
			"400": ResponseRef("BadRequest"),
		},
	})
	require.NotNil(t, spec.Paths["/api/Items"].Get)
	assert.Equal(t, "#/components/responses/BadRequest", spec.Paths["/api/Items"].Get.Responses["400"].Ref)
}

func TestNewSpec_Options(t *testing.T) {
	spec := NewSpec("a", "1", testRegistry(t), nil, WithTitle("b"), WithVersion("2"))
	assert.Equal(t, "b", spec.Info.Title)
	assert.Equal(t, "2", spec.Info.Version)
}

func TestSpec_Encode(t *testing.T) {
	spec := NewSpec("Items", "v1", testRegistry(t), nil)

	data, err := spec.Encode(gorkson.JSON)
	require.NoError(t, err)
	var decoded map[string]any
	require.NoError(t, json.Unmarshal(data, &decoded))
	assert.Equal(t, "3.1.0", decoded["openapi"])

	var roundTrip OpenAPISpec
	require.NoError(t, json.Unmarshal(data, &roundTrip))
	item := roundTrip.Components.Schemas["Item"]
	require.NotNil(t, item)
	assert.Equal(t, "object", item.Type)
	assert.Equal(t, "@odata.type", item.Discriminator.PropertyName)

	data, err = spec.Encode(gorkson.YAML)
	require.NoError(t, err)
	assert.True(t, strings.HasPrefix(string(data), "openapi: 3.1.0"), string(data[:40]))
	assert.Contains(t, string(data), "propertyName:")
	assert.Contains(t, string(data), "@odata.type")
}

func TestSchema_TypeJSON(t *testing.T) {
	data, err := json.Marshal(&Schema{Types: []string{"string", "null"}})
	require.NoError(t, err)
	assert.JSONEq(t, `{"type":["string","null"]}`, string(data))

	var s Schema
	require.NoError(t, json.Unmarshal([]byte(`{"type":["integer","null"]}`), &s))
	assert.Equal(t, []string{"integer", "null"}, s.Types)
}
