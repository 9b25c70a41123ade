package gorkson

import (
	"reflect"
	"strings"
	"sync"
)

// fieldInfo describes one document field of a struct type.
type fieldInfo struct {
	name      string
	index     []int
	typ       reflect.Type
	omitEmpty bool
}

// structInfo is the cached field layout of a struct type.
type structInfo struct {
	fields []fieldInfo
	byName map[string]int
}

// lookup finds a field by exact name, then case-insensitively.
func (s *structInfo) lookup(name string) (fieldInfo, bool) {
	if i, ok := s.byName[name]; ok {
		return s.fields[i], true
	}
	for _, f := range s.fields {
		if strings.EqualFold(f.name, name) {
			return f, true
		}
	}
	return fieldInfo{}, false
}

var structCache sync.Map // reflect.Type -> *structInfo

func cachedStructInfo(t reflect.Type) *structInfo {
	if v, ok := structCache.Load(t); ok {
		return v.(*structInfo)
	}
	info := buildStructInfo(t)
	actual, _ := structCache.LoadOrStore(t, info)
	return actual.(*structInfo)
}

type candidate struct {
	fieldInfo
	depth int
}

func buildStructInfo(t reflect.Type) *structInfo {
	var all []candidate
	collectFields(t, nil, 0, map[reflect.Type]bool{}, &all)

	// A shallower field hides deeper ones with the same name; at equal depth
	// the first declared wins.
	best := make(map[string]int)
	for i, c := range all {
		j, seen := best[c.name]
		if !seen || c.depth < all[j].depth {
			best[c.name] = i
		}
	}

	info := &structInfo{byName: make(map[string]int)}
	for i, c := range all {
		if best[c.name] != i {
			continue
		}
		info.byName[c.name] = len(info.fields)
		info.fields = append(info.fields, c.fieldInfo)
	}
	return info
}

func collectFields(t reflect.Type, prefix []int, depth int, visiting map[reflect.Type]bool, out *[]candidate) {
	if visiting[t] {
		return
	}
	visiting[t] = true
	defer delete(visiting, t)

	for i := 0; i < t.NumField(); i++ {
		field := t.Field(i)
		index := append(append([]int(nil), prefix...), i)
		name, opts := fieldName(field)
		if name == "-" {
			continue
		}

		if field.Anonymous && name == "" {
			ft := indirectType(field.Type)
			if ft.Kind() == reflect.Struct {
				collectFields(ft, index, depth+1, visiting, out)
				continue
			}
		}

		// Skip unexported fields
		if field.PkgPath != "" {
			continue
		}
		if name == "" {
			name = field.Name
		}

		*out = append(*out, candidate{
			fieldInfo: fieldInfo{
				name:      name,
				index:     index,
				typ:       field.Type,
				omitEmpty: opts.omitEmpty,
			},
			depth: depth,
		})
	}
}

// GorkTagInfo represents parsed information from a gork struct tag.
type GorkTagInfo struct {
	Name          string
	Discriminator string
	OmitEmpty     bool
}

// ParseGorkTag parses a gork struct tag: "name[,omitempty][,discriminator=value]".
func ParseGorkTag(tag string) GorkTagInfo {
	if tag == "" {
		return GorkTagInfo{}
	}

	parts := strings.Split(tag, ",")
	info := GorkTagInfo{Name: strings.TrimSpace(parts[0])}
	for _, p := range parts[1:] {
		p = strings.TrimSpace(p)
		switch {
		case p == "omitempty":
			info.OmitEmpty = true
		case strings.HasPrefix(p, "discriminator="):
			info.Discriminator = strings.TrimPrefix(p, "discriminator=")
		}
	}
	return info
}

type tagOptions struct {
	omitEmpty bool
}

// fieldName extracts the field name from the gork tag, falling back to the
// json tag. An empty name means the Go field name applies.
func fieldName(field reflect.StructField) (string, tagOptions) {
	if gorkTag := field.Tag.Get("gork"); gorkTag != "" {
		info := ParseGorkTag(gorkTag)
		if info.Name != "" {
			return info.Name, tagOptions{omitEmpty: info.OmitEmpty}
		}
	}

	if jsonTag, ok := field.Tag.Lookup("json"); ok {
		parts := strings.Split(jsonTag, ",")
		var opts tagOptions
		for _, p := range parts[1:] {
			if p == "omitempty" {
				opts.omitEmpty = true
			}
		}
		return parts[0], opts
	}

	return "", tagOptions{}
}

// FieldName returns the document name of a struct field, or "-" when the
// field is skipped.
func FieldName(field reflect.StructField) string {
	name, _ := fieldName(field)
	if name == "" {
		return field.Name
	}
	return name
}

// fieldByIndex walks index for encoding. It reports false when an embedded
// pointer on the way is nil.
func fieldByIndex(v reflect.Value, index []int) (reflect.Value, bool) {
	for i, x := range index {
		if i > 0 {
			if v.Kind() == reflect.Ptr {
				if v.IsNil() {
					return reflect.Value{}, false
				}
				v = v.Elem()
			}
		}
		v = v.Field(x)
	}
	return v, true
}

// fieldByIndexAlloc walks index for decoding, allocating nil embedded
// pointers on the way.
func fieldByIndexAlloc(v reflect.Value, index []int) reflect.Value {
	for i, x := range index {
		if i > 0 && v.Kind() == reflect.Ptr {
			if v.IsNil() {
				if !v.CanSet() {
					return reflect.Value{}
				}
				v.Set(reflect.New(v.Type().Elem()))
			}
			v = v.Elem()
		}
		v = v.Field(x)
	}
	return v
}
