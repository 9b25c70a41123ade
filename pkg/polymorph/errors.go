package polymorph

import (
	"errors"
	"fmt"
	"reflect"
)

// ErrInvalidRegistry is wrapped by every Builder.Build failure.
var ErrInvalidRegistry = errors.New("polymorph: invalid registry")

// ErrNotObject is returned when a polymorphic value does not encode to, or
// decode from, a document object.
var ErrNotObject = errors.New("polymorph: value is not an object")

// ErrInvalidDiscriminator is returned when the discriminator field holds an
// object or an array instead of a scalar.
var ErrInvalidDiscriminator = errors.New("polymorph: discriminator is not a scalar")

// DuplicateDiscriminatorError reports two declarations on one base type that
// share a discriminator value.
type DuplicateDiscriminatorError struct {
	Base   reflect.Type
	Value  string
	First  reflect.Type
	Second reflect.Type
}

func (e *DuplicateDiscriminatorError) Error() string {
	return fmt.Sprintf("polymorph: discriminator %q declared twice on %s (%s and %s)",
		e.Value, e.Base, e.First, e.Second)
}

// Unwrap makes the error match ErrInvalidRegistry.
func (e *DuplicateDiscriminatorError) Unwrap() error { return ErrInvalidRegistry }

// UnresolvedSubtypeError reports a discriminator value no resolution strategy
// could map to a type.
type UnresolvedSubtypeError struct {
	Base  reflect.Type
	Value string
}

func (e *UnresolvedSubtypeError) Error() string {
	return fmt.Sprintf("polymorph: could not find subtype of %s with discriminator %q", e.Base, e.Value)
}

// AbstractTypeError reports a decode that resolved to a type which cannot be
// instantiated.
type AbstractTypeError struct {
	Type  reflect.Type
	Value string
}

func (e *AbstractTypeError) Error() string {
	if e.Value == "" {
		return fmt.Sprintf("polymorph: cannot decode abstract type %s without a discriminator", e.Type)
	}
	return fmt.Sprintf("polymorph: discriminator %q resolves to abstract type %s", e.Value, e.Type)
}

func registryError(format string, args ...any) error {
	return fmt.Errorf("%w: "+format, append([]any{ErrInvalidRegistry}, args...)...)
}
