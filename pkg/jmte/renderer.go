package jmte

import (
	"fmt"
	"reflect"
	"sort"
	"strconv"
	"strings"
	"time"

	"golang.org/x/text/language"
)

// Renderer converts a resolved value to output text. Renderers are chosen by
// the value's runtime type through a RendererRegistry.
type Renderer interface {
	Render(value any, locale language.Tag) string
}

// RendererFunc adapts a function to the Renderer interface.
type RendererFunc func(value any, locale language.Tag) string

func (f RendererFunc) Render(value any, locale language.Tag) string {
	return f(value, locale)
}

// NamedRenderer is selected explicitly in a template with ${expr;name} or
// ${expr;name(format)}. The format text is passed through verbatim.
type NamedRenderer interface {
	Name() string
	Render(value any, format string, locale language.Tag) string
	// SupportedTypes lists the types the renderer is meant for. An empty list
	// means every type.
	SupportedTypes() []reflect.Type
}

// NewNamedRenderer builds a NamedRenderer from a function.
func NewNamedRenderer(name string, fn func(value any, format string, locale language.Tag) string, types ...reflect.Type) NamedRenderer {
	return &namedRendererFunc{name: name, fn: fn, types: types}
}

type namedRendererFunc struct {
	name  string
	fn    func(value any, format string, locale language.Tag) string
	types []reflect.Type
}

func (r *namedRendererFunc) Name() string { return r.name }

func (r *namedRendererFunc) Render(value any, format string, locale language.Tag) string {
	return r.fn(value, format, locale)
}

func (r *namedRendererFunc) SupportedTypes() []reflect.Type { return r.types }

// Category marker interfaces. Their unexported methods mean no value ever
// implements them, so they only appear as registry keys.
type (
	objectCategory   interface{ jmteObject() }
	iterableCategory interface{ jmteIterable() }
	sequenceCategory interface{ jmteSequence() }
	mappingCategory  interface{ jmteMapping() }
)

// Category types. Every runtime type falls into exactly one of them and
// inherits renderers registered for its category and the category's parents:
// Sequence → Iterable → Object and Mapping → Object.
var (
	ObjectType   = reflect.TypeOf((*objectCategory)(nil)).Elem()
	IterableType = reflect.TypeOf((*iterableCategory)(nil)).Elem()
	SequenceType = reflect.TypeOf((*sequenceCategory)(nil)).Elem()
	MappingType  = reflect.TypeOf((*mappingCategory)(nil)).Elem()
)

func isCategory(t reflect.Type) bool {
	return t == ObjectType || t == IterableType || t == SequenceType || t == MappingType
}

// categoryOf returns the category of a concrete type.
func categoryOf(t reflect.Type) reflect.Type {
	switch t.Kind() {
	case reflect.Slice, reflect.Array:
		return SequenceType
	case reflect.Map:
		return MappingType
	case reflect.Chan:
		return IterableType
	case reflect.Func:
		if t.CanSeq() {
			return IterableType
		}
	}
	return ObjectType
}

// supertype returns the direct parent of t in the type model: the element
// type for pointers, the category for other types and the parent category
// for categories. ObjectType has none.
func supertype(t reflect.Type) reflect.Type {
	switch t {
	case ObjectType:
		return nil
	case IterableType, MappingType:
		return ObjectType
	case SequenceType:
		return IterableType
	}
	if t.Kind() == reflect.Pointer {
		return t.Elem()
	}
	if t.Kind() == reflect.Interface {
		return ObjectType
	}
	return categoryOf(t)
}

// supertypeClosure returns t followed by every ancestor.
func supertypeClosure(t reflect.Type) []reflect.Type {
	var chain []reflect.Type
	for ; t != nil; t = supertype(t) {
		chain = append(chain, t)
	}
	return chain
}

// ObjectRenderer renders any value as plain text.
type ObjectRenderer struct{}

func (ObjectRenderer) Render(value any, _ language.Tag) string {
	return FormatValue(value)
}

// MapRenderer renders maps as key=value pairs in sorted key order.
type MapRenderer struct {
	Separator string
}

func (r MapRenderer) Render(value any, locale language.Tag) string {
	rv := reflect.Indirect(reflect.ValueOf(value))
	if rv.Kind() != reflect.Map {
		return FormatValue(value)
	}
	pairs := make([]string, 0, rv.Len())
	entries := rv.MapRange()
	for entries.Next() {
		pairs = append(pairs, FormatValue(entries.Key().Interface())+"="+FormatValue(entries.Value().Interface()))
	}
	sort.Strings(pairs)
	return strings.Join(pairs, separatorOr(r.Separator))
}

// SequenceRenderer renders slices and arrays by joining their elements.
type SequenceRenderer struct {
	Separator string
}

func (r SequenceRenderer) Render(value any, _ language.Tag) string {
	rv := reflect.Indirect(reflect.ValueOf(value))
	if rv.Kind() != reflect.Slice && rv.Kind() != reflect.Array {
		return FormatValue(value)
	}
	parts := make([]string, rv.Len())
	for i := range parts {
		parts[i] = FormatValue(rv.Index(i).Interface())
	}
	return strings.Join(parts, separatorOr(r.Separator))
}

// IterableRenderer renders single-pass sources by draining them. Rendering a
// channel consumes it.
type IterableRenderer struct {
	Separator string
}

func (r IterableRenderer) Render(value any, _ language.Tag) string {
	seq, ok := iterate(value)
	if !ok {
		return FormatValue(value)
	}
	var parts []string
	for item := range seq {
		parts = append(parts, FormatValue(item))
	}
	return strings.Join(parts, separatorOr(r.Separator))
}

func separatorOr(sep string) string {
	if sep == "" {
		return ", "
	}
	return sep
}

// FormatValue converts a value to its default string representation
func FormatValue(value any) string {
	if isNil(value) {
		return ""
	}

	switch v := value.(type) {
	case string:
		return v
	case int, int8, int16, int32, int64:
		return fmt.Sprintf("%d", v)
	case uint, uint8, uint16, uint32, uint64:
		return fmt.Sprintf("%d", v)
	case float32:
		return strconv.FormatFloat(float64(v), 'g', 10, 32)
	case float64:
		return strconv.FormatFloat(v, 'g', 15, 64)
	case bool:
		return strconv.FormatBool(v)
	case time.Time:
		return v.Format(time.RFC3339)
	case error:
		return v.Error()
	case fmt.Stringer:
		return v.String()
	default:
		return fmt.Sprintf("%v", v)
	}
}
