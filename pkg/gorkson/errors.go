package gorkson

import (
	"errors"
	"fmt"
	"reflect"
)

// ErrInvalidTarget is returned when Decode is given something other than a
// non-nil pointer.
var ErrInvalidTarget = errors.New("gorkson: decode target must be a non-nil pointer")

// TypeError reports a document node that cannot be stored in a Go type.
type TypeError struct {
	Node string
	Type reflect.Type
}

func (e *TypeError) Error() string {
	return fmt.Sprintf("gorkson: cannot decode %s into %s", e.Node, e.Type)
}

// UnknownFieldError reports a document field with no matching struct field
// while DisallowUnknownFields is set.
type UnknownFieldError struct {
	Type  reflect.Type
	Field string
}

func (e *UnknownFieldError) Error() string {
	return fmt.Sprintf("gorkson: unknown field %q in %s", e.Field, e.Type)
}

// UnsupportedTypeError reports a Go type the Marshaler cannot represent.
type UnsupportedTypeError struct {
	Type reflect.Type
}

func (e *UnsupportedTypeError) Error() string {
	return fmt.Sprintf("gorkson: unsupported type %s", e.Type)
}
