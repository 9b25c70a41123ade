package api

import (
	"errors"
	"reflect"
	"strconv"
	"strings"

	"github.com/go-playground/validator/v10"
	"github.com/gork-labs/gork/pkg/gorkson"
)

// validate is a globally accessible validator instance configured to use
// document field names.
var validate *validator.Validate

func init() {
	validate = validator.New(validator.WithRequiredStructEnabled())

	// Use document names in validation errors so that field names match the
	// request body.
	validate.RegisterTagNameFunc(func(fld reflect.StructField) string {
		name := gorkson.FieldName(fld)
		if name == "-" {
			return ""
		}
		return name
	})
}

// Validate runs the validate struct tags of v. Rule failures are returned as
// a *ValidationErrorResponse whose details map the field path (document
// names, without the root type) to the failed tags.
func Validate(v any) error {
	rv := reflect.ValueOf(v)
	for rv.Kind() == reflect.Ptr || rv.Kind() == reflect.Interface {
		if rv.IsNil() {
			return nil
		}
		rv = rv.Elem()
	}

	switch rv.Kind() {
	case reflect.Struct:
		return validateStruct(rv.Interface())
	case reflect.Slice, reflect.Array:
		resp := &ValidationErrorResponse{Message: "Validation failed"}
		for i := 0; i < rv.Len(); i++ {
			err := Validate(rv.Index(i).Interface())
			var verr *ValidationErrorResponse
			switch {
			case err == nil:
			case errors.As(err, &verr):
				resp.Merge("["+strconv.Itoa(i)+"]", verr)
			default:
				return err
			}
		}
		return resp.errOrNil()
	}
	return nil
}

func validateStruct(v any) error {
	err := validate.Struct(v)
	if err == nil {
		return nil
	}

	var verrs validator.ValidationErrors
	if !errors.As(err, &verrs) {
		return err
	}
	root := reflect.TypeOf(v)
	resp := &ValidationErrorResponse{Message: "Validation failed"}
	for _, ve := range verrs {
		resp.Add(fieldPath(root, ve.StructNamespace()), ve.Tag())
	}
	return resp
}

// fieldPath turns a validator struct namespace ("ItemA.ItemBase.Name") into
// a document path ("Name"). The root type and embedded structs are dropped.
func fieldPath(root reflect.Type, ns string) string {
	segments := strings.Split(ns, ".")
	if len(segments) > 0 {
		segments = segments[1:]
	}

	var out []string
	t := root
	for _, seg := range segments {
		name, suffix := seg, ""
		if i := strings.IndexByte(seg, '['); i >= 0 {
			name, suffix = seg[:i], seg[i:]
		}

		t = indirectType(t)
		if t == nil || t.Kind() != reflect.Struct {
			out = append(out, seg)
			t = nil
			continue
		}
		f, ok := t.FieldByName(name)
		if !ok {
			out = append(out, seg)
			t = nil
			continue
		}
		if !f.Anonymous {
			out = append(out, gorkson.FieldName(f)+suffix)
		}
		t = f.Type
		if suffix != "" {
			if t = indirectType(t); t.Kind() == reflect.Slice || t.Kind() == reflect.Array || t.Kind() == reflect.Map {
				t = t.Elem()
			}
		}
	}
	return strings.Join(out, ".")
}
