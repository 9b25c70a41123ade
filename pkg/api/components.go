package api

import (
	"encoding/json"
	"path"
	"reflect"
	"strconv"
	"strings"
	"time"

	"github.com/gork-labs/gork/pkg/gorkson"
	"github.com/gork-labs/gork/pkg/polymorph"
)

const schemaRefPrefix = "#/components/schemas/"

var (
	timeType       = reflect.TypeOf(time.Time{})
	rawMessageType = reflect.TypeOf(json.RawMessage(nil))
)

// SchemaGenerator builds component schemas for the types of a registry and
// for any other Go type reachable from them.
type SchemaGenerator struct {
	reg     *polymorph.Registry
	m       *gorkson.Marshaler
	names   map[reflect.Type]string
	taken   map[string]reflect.Type
	schemas map[string]*Schema
}

// NewSchemaGenerator creates a generator for reg. Field names follow m; a
// nil m uses the default gorkson rules.
func NewSchemaGenerator(reg *polymorph.Registry, m *gorkson.Marshaler) *SchemaGenerator {
	if m == nil {
		m = &gorkson.Marshaler{}
	}
	g := &SchemaGenerator{
		reg:     reg,
		m:       m,
		names:   map[reflect.Type]string{},
		taken:   map[string]reflect.Type{},
		schemas: map[string]*Schema{},
	}

	counts := map[string]int{}
	for _, t := range reg.Types() {
		counts[t.Name()]++
	}
	for _, t := range reg.Types() {
		name := t.Name()
		if counts[name] > 1 {
			name = t.QualifiedName()
		}
		g.claim(t.GoType(), sanitizeSchemaName(name))
	}
	for _, t := range reg.Types() {
		g.schemas[g.names[t.GoType()]] = g.typeSchema(t)
	}
	return g
}

// GenerateComponents returns one component schema per type registered in
// reg, keyed by schema name.
//
// Family bases carry the discriminator property, mark it required and map
// every discriminator value to the schema of the type it selects. Types with
// a parent are expressed as allOf the parent reference and their own
// properties.
func GenerateComponents(reg *polymorph.Registry, m *gorkson.Marshaler) map[string]*Schema {
	return NewSchemaGenerator(reg, m).Schemas()
}

// Schemas returns the component schemas generated so far.
func (g *SchemaGenerator) Schemas() map[string]*Schema {
	return g.schemas
}

// SchemaName returns the component name used for goType, or "" when goType
// has no component.
func (g *SchemaGenerator) SchemaName(goType reflect.Type) string {
	return g.names[indirectType(goType)]
}

// SchemaFor returns the schema describing values of goType. Named structs
// become components and are returned as references.
func (g *SchemaGenerator) SchemaFor(goType reflect.Type) *Schema {
	return g.fieldSchema(goType)
}

func (g *SchemaGenerator) claim(t reflect.Type, name string) string {
	if other, ok := g.taken[name]; ok && other != t {
		if pkg := lastPathComponent(t.PkgPath()); pkg != "" {
			name = sanitizeSchemaName(pkg + "." + name)
		}
		for i := 2; ; i++ {
			if _, used := g.taken[name]; !used {
				break
			}
			name = sanitizeSchemaName(t.Name()) + strconv.Itoa(i)
		}
	}
	g.names[t] = name
	g.taken[name] = t
	return name
}

func (g *SchemaGenerator) typeSchema(t *polymorph.Type) *Schema {
	name := g.names[t.GoType()]
	own := g.objectSchema(t.GoType(), g.inheritedFields(t))

	if t.Parent() == nil && t.Key() != "" && g.isBase(t) {
		g.addDiscriminator(own, t)
	}

	if parent := t.Parent(); parent != nil {
		return &Schema{
			Title: name,
			AllOf: []*Schema{{Ref: schemaRefPrefix + g.names[parent.GoType()]}, own},
		}
	}
	own.Title = name
	return own
}

func (g *SchemaGenerator) isBase(t *polymorph.Type) bool {
	return len(t.Variants()) > 0 || len(g.reg.Children(t)) > 0
}

// addDiscriminator adds the discriminator property and its mapping to the
// schema of a family root.
func (g *SchemaGenerator) addDiscriminator(s *Schema, t *polymorph.Type) {
	key := t.Key()
	if _, ok := s.Properties[key]; !ok {
		minLen := 1
		s.Properties[key] = &Schema{Type: "string", MinLength: &minLen}
	}
	addRequiredField(s, key)

	mapping := map[string]string{}
	for _, v := range t.Variants() {
		mapping[v.Value] = schemaRefPrefix + g.names[v.Type.GoType()]
	}
	for _, d := range append([]*polymorph.Type{t}, g.reg.Descendants(t)...) {
		if d.Abstract() {
			continue
		}
		if _, ok := mapping[d.Discriminator()]; !ok {
			mapping[d.Discriminator()] = schemaRefPrefix + g.names[d.GoType()]
		}
	}
	s.Discriminator = &Discriminator{PropertyName: key, Mapping: mapping}
}

// inheritedFields lists the document fields already described by the
// parent schema.
func (g *SchemaGenerator) inheritedFields(t *polymorph.Type) map[string]bool {
	parent := t.Parent()
	if parent == nil || parent.GoType().Kind() != reflect.Struct {
		return nil
	}
	out := map[string]bool{}
	for _, f := range g.m.StructFields(parent.GoType()) {
		out[f.Name] = true
	}
	return out
}

func (g *SchemaGenerator) objectSchema(t reflect.Type, exclude map[string]bool) *Schema {
	s := &Schema{Type: "object", Properties: map[string]*Schema{}}
	if t.Kind() != reflect.Struct {
		return s
	}
	for _, f := range g.m.StructFields(t) {
		if exclude[f.Name] {
			continue
		}
		fs := g.fieldSchema(f.Type)
		if discVal := gorkson.ParseGorkTag(f.Tag.Get("gork")).Discriminator; discVal != "" {
			fs.Enum = []string{discVal}
		}
		if tag := f.Tag.Get("validate"); tag != "" {
			applyValidationConstraints(fs, tag, f.Type, s, f.Name)
		}
		s.Properties[f.Name] = fs
	}
	return s
}

func (g *SchemaGenerator) fieldSchema(t reflect.Type) *Schema {
	t = indirectType(t)
	if name, ok := g.names[t]; ok {
		return &Schema{Ref: schemaRefPrefix + name}
	}

	switch t {
	case timeType:
		return &Schema{Type: "string", Format: "date-time"}
	case rawMessageType:
		return &Schema{}
	}

	switch t.Kind() {
	case reflect.Slice, reflect.Array:
		if t.Elem().Kind() == reflect.Uint8 {
			return &Schema{Type: "string", Format: "byte"}
		}
		return buildArraySchema(t, g.fieldSchema(t.Elem()))
	case reflect.Map:
		return &Schema{Type: "object", AdditionalProperties: g.fieldSchema(t.Elem())}
	case reflect.Interface:
		return &Schema{}
	case reflect.Struct:
		if t.Name() == "" {
			return g.objectSchema(t, nil)
		}
		name := g.claim(t, sanitizeSchemaName(t.Name()))
		// Claim the name before recursing so self references terminate.
		g.schemas[name] = &Schema{}
		s := g.objectSchema(t, nil)
		s.Title = name
		g.schemas[name] = s
		return &Schema{Ref: schemaRefPrefix + name}
	}
	return mapBasicKind(t.Kind())
}

func buildArraySchema(t reflect.Type, items *Schema) *Schema {
	var title string
	if elemName := indirectType(t.Elem()).Name(); elemName != "" {
		title = "[]" + elemName
	}
	return &Schema{Title: title, Type: "array", Items: items}
}

// mapBasicKind maps Go kinds to OpenAPI schema information.
func mapBasicKind(kind reflect.Kind) *Schema {
	switch kind {
	case reflect.String:
		return &Schema{Type: "string"}
	case reflect.Int, reflect.Int8, reflect.Int16, reflect.Int32, reflect.Int64,
		reflect.Uint, reflect.Uint8, reflect.Uint16, reflect.Uint32, reflect.Uint64:
		return &Schema{Type: "integer"}
	case reflect.Float32, reflect.Float64:
		return &Schema{Type: "number"}
	case reflect.Bool:
		return &Schema{Type: "boolean"}
	}
	return &Schema{Type: "object"}
}

func sanitizeSchemaName(name string) string {
	return strings.Map(func(r rune) rune {
		switch {
		case r >= 'a' && r <= 'z', r >= 'A' && r <= 'Z', r >= '0' && r <= '9',
			r == '.', r == '-', r == '_':
			return r
		}
		return '_'
	}, name)
}

func lastPathComponent(p string) string {
	if p == "" {
		return ""
	}
	return path.Base(p)
}

func indirectType(t reflect.Type) reflect.Type {
	for t != nil && t.Kind() == reflect.Ptr {
		t = t.Elem()
	}
	return t
}

// applyValidationConstraints maps validator tags onto the field schema.
// "required" marks the field required on the parent schema.
func applyValidationConstraints(fieldSchema *Schema, validateTag string, fieldType reflect.Type, parent *Schema, fieldName string) {
	if fieldSchema == nil {
		return
	}

	for _, p := range strings.Split(validateTag, ",") {
		if p == "dive" {
			// Later rules apply to elements.
			return
		}
		if p == "required" {
			addRequiredField(parent, fieldName)
			continue
		}

		key, val := parseValidationRule(p)
		applyValidationRule(fieldSchema, key, val, fieldType)
	}
}

func addRequiredField(parent *Schema, fieldName string) {
	for _, r := range parent.Required {
		if r == fieldName {
			return
		}
	}
	parent.Required = append(parent.Required, fieldName)
}

func parseValidationRule(p string) (key, val string) {
	if idx := strings.Index(p, "="); idx != -1 {
		return p[:idx], p[idx+1:]
	}
	return p, ""
}

func applyValidationRule(fieldSchema *Schema, key, val string, fieldType reflect.Type) {
	switch key {
	case "min", "gte", "gt":
		applyMinConstraint(fieldSchema, val, fieldType)
	case "max", "lte", "lt":
		applyMaxConstraint(fieldSchema, val, fieldType)
	case "len":
		applyMinConstraint(fieldSchema, val, fieldType)
		applyMaxConstraint(fieldSchema, val, fieldType)
	case "regexp":
		fieldSchema.Pattern = val
	case "oneof":
		fieldSchema.Enum = strings.Fields(val)
	case "email":
		fieldSchema.Format = "email"
	case "url", "uri":
		fieldSchema.Format = "uri"
	case "uuid", "uuid4":
		fieldSchema.Format = "uuid"
	}
}

func applyMinConstraint(fieldSchema *Schema, val string, fieldType reflect.Type) {
	num, err := strconv.ParseFloat(val, 64)
	if err != nil {
		return
	}
	switch {
	case isStringKind(fieldType):
		v := int(num)
		fieldSchema.MinLength = &v
	case isCollectionKind(fieldType):
		v := int(num)
		fieldSchema.MinItems = &v
	default:
		fieldSchema.Minimum = &num
	}
}

func applyMaxConstraint(fieldSchema *Schema, val string, fieldType reflect.Type) {
	num, err := strconv.ParseFloat(val, 64)
	if err != nil {
		return
	}
	switch {
	case isStringKind(fieldType):
		v := int(num)
		fieldSchema.MaxLength = &v
	case isCollectionKind(fieldType):
		v := int(num)
		fieldSchema.MaxItems = &v
	default:
		fieldSchema.Maximum = &num
	}
}

func isStringKind(t reflect.Type) bool {
	return indirectType(t).Kind() == reflect.String
}

func isCollectionKind(t reflect.Type) bool {
	switch indirectType(t).Kind() {
	case reflect.Slice, reflect.Array, reflect.Map:
		return true
	}
	return false
}
