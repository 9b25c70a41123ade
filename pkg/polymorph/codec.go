// Package polymorph encodes and decodes polymorphic type families through an
// injected discriminator field.
//
// A family is one base type (an interface or a struct) and the concrete types
// registered below it. Encoding writes the discriminator of the value's
// concrete type as the first document field. Decoding reads that field
// case-insensitively, resolves the concrete type through an ordered list of
// strategies and hands the remaining document to the gorkson engine for
// exactly one level of plain decoding.
//
// Registries are built once:
//
//	reg, err := polymorph.NewBuilder().
//		Register(polymorph.TypeOf[Item](),
//			polymorph.WithKey("@odata.type"),
//			polymorph.WithVariant("#Item.ItemA", reflect.TypeOf(ItemA{})),
//		).
//		Build()
//	codec := polymorph.NewCodec(reg)
package polymorph

import (
	"fmt"
	"reflect"

	"github.com/gork-labs/gork/pkg/gorkson"
)

// Engine is the generic document codec polymorph delegates to.
// *gorkson.Marshaler implements it.
type Engine interface {
	EncodeValue(h gorkson.Hook, v reflect.Value, declared reflect.Type) (any, error)
	DecodeValue(h gorkson.Hook, node any, t reflect.Type) (reflect.Value, error)
	HasField(t reflect.Type, name string) bool
}

type config struct {
	engine     Engine
	defaultKey string
	typeField  string
}

// Option configures a Codec or a Resolver.
type Option func(*config)

// WithEngine replaces the default gorkson engine.
func WithEngine(e Engine) Option {
	return func(c *config) { c.engine = e }
}

// WithDefaultKey sets the discriminator field used by families that do not
// declare one with WithKey.
func WithDefaultKey(key string) Option {
	return func(c *config) { c.defaultKey = key }
}

// WithTypeField enables resolving the concrete type from a document field
// that names it directly. An empty name selects DefaultTypeField.
//
// Any document can then select any registered descendant of the requested
// base. Only enable it for trusted input.
func WithTypeField(name string) Option {
	return func(c *config) {
		if name == "" {
			name = DefaultTypeField
		}
		c.typeField = name
	}
}

func newConfig(opts []Option) config {
	cfg := config{defaultKey: DefaultKey}
	for _, opt := range opts {
		opt(&cfg)
	}
	if cfg.engine == nil {
		cfg.engine = &gorkson.Marshaler{}
	}
	if cfg.defaultKey == "" {
		cfg.defaultKey = DefaultKey
	}
	return cfg
}

// Codec encodes and decodes registered families. It is immutable and safe for
// concurrent use.
type Codec struct {
	reg        *Registry
	resolver   *Resolver
	engine     Engine
	defaultKey string
}

// NewCodec returns a Codec over reg.
func NewCodec(reg *Registry, opts ...Option) *Codec {
	cfg := newConfig(opts)
	return &Codec{
		reg:        reg,
		resolver:   &Resolver{reg: reg, typeField: cfg.typeField},
		engine:     cfg.engine,
		defaultKey: cfg.defaultKey,
	}
}

// Registry returns the registry the codec was built with.
func (c *Codec) Registry() *Registry { return c.reg }

// Resolver returns the subtype resolver used by Decode.
func (c *Codec) Resolver() *Resolver { return c.resolver }

// KeyFor returns the discriminator field name used for goType.
func (c *Codec) KeyFor(goType reflect.Type) string {
	if goType == nil {
		return c.defaultKey
	}
	return c.keyOf(c.reg.Describe(goType))
}

func (c *Codec) keyOf(t *Type) string {
	if t != nil && t.key != "" {
		return t.key
	}
	return c.defaultKey
}

// EncodeAny converts v into a document node. Every registered struct value
// met on the way, including v itself, is encoded polymorphically.
func (c *Codec) EncodeAny(v any) (any, error) {
	return c.engine.EncodeValue(newCallHook(c), reflect.ValueOf(v), nil)
}

// DecodeAny decodes node into the value pointed to by out. Every registered
// struct or interface target met on the way is decoded polymorphically.
func (c *Codec) DecodeAny(node any, out any) error {
	rv := reflect.ValueOf(out)
	if rv.Kind() != reflect.Ptr || rv.IsNil() {
		return gorkson.ErrInvalidTarget
	}
	v, err := c.engine.DecodeValue(newCallHook(c), node, rv.Elem().Type())
	if err != nil {
		return err
	}
	rv.Elem().Set(v)
	return nil
}

// Marshal encodes v with Encode and writes it in format f. A nil base
// encodes v with EncodeAny, which also accepts slices and maps.
func (c *Codec) Marshal(v any, base reflect.Type, f gorkson.Format) ([]byte, error) {
	var (
		node any
		err  error
	)
	if base == nil {
		node, err = c.EncodeAny(v)
	} else {
		var doc *gorkson.Document
		doc, err = c.Encode(v, base)
		node = doc
		if doc == nil {
			node = nil
		}
	}
	if err != nil {
		return nil, err
	}
	return f.Marshal(node)
}

// Unmarshal parses data in format f and decodes it against base.
func (c *Codec) Unmarshal(data []byte, base reflect.Type, f gorkson.Format) (any, error) {
	node, err := f.Unmarshal(data)
	if err != nil {
		return nil, err
	}
	return c.Decode(node, base)
}

// UnmarshalInto parses data in format f and decodes it into out with
// DecodeAny.
func (c *Codec) UnmarshalInto(data []byte, out any, f gorkson.Format) error {
	node, err := f.Unmarshal(data)
	if err != nil {
		return err
	}
	return c.DecodeAny(node, out)
}

// DecodeAs decodes node against T and returns it as a T.
func DecodeAs[T any](c *Codec, node any) (T, error) {
	var zero T
	v, err := c.Decode(node, TypeOf[T]())
	if err != nil || v == nil {
		return zero, err
	}
	return asType[T](v)
}

// UnmarshalAs parses data in format f and decodes it against T.
func UnmarshalAs[T any](c *Codec, data []byte, f gorkson.Format) (T, error) {
	var zero T
	node, err := f.Unmarshal(data)
	if err != nil {
		return zero, err
	}
	return DecodeAs[T](c, node)
}

// asType converts a decoded pointer to T, dereferencing it when T is the
// struct type itself.
func asType[T any](v any) (T, error) {
	if out, ok := v.(T); ok {
		return out, nil
	}
	rv := reflect.ValueOf(v)
	if rv.Kind() == reflect.Ptr {
		if out, ok := rv.Elem().Interface().(T); ok {
			return out, nil
		}
	}
	var zero T
	return zero, fmt.Errorf("polymorph: decoded %T is not assignable to %s", v, TypeOf[T]())
}
