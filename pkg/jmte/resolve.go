package jmte

import (
	"reflect"
	"strconv"
	"strings"
	"unicode"
	"unicode/utf8"
)

// PropertyGetter lets model values expose named properties without
// reflection. It is consulted before any other kind of access.
type PropertyGetter interface {
	Property(name string) (any, bool)
}

// Resolution is the outcome of resolving a path. When Resolved is false Kind
// and Detail describe why.
type Resolution struct {
	Value    any
	Resolved bool
	Kind     ErrorKind
	Detail   string
}

func unresolved(kind ErrorKind, detail string) Resolution {
	return Resolution{Kind: kind, Detail: detail}
}

// Resolve looks up path[0] in scope and applies every following segment as
// a map key, sequence index, struct field, zero-argument method or
// PropertyGetter property. A missing map key yields a resolved nil value;
// stepping through nil yields ErrNilTraversal.
func Resolve(path []string, scope *ScopeStack) Resolution {
	if len(path) == 0 {
		return unresolved(ErrUnresolvedRoot, "")
	}
	current, ok := scope.Lookup(path[0])
	if !ok {
		return unresolved(ErrUnresolvedRoot, path[0])
	}

	for _, segment := range path[1:] {
		if isNil(current) {
			return unresolved(ErrNilTraversal, segment)
		}
		res := accessSegment(current, segment)
		if !res.Resolved {
			return res
		}
		current = res.Value
	}
	return Resolution{Value: current, Resolved: true}
}

// accessSegment applies one path segment to a non-nil value.
func accessSegment(current any, segment string) Resolution {
	if getter, ok := current.(PropertyGetter); ok {
		if v, found := getter.Property(segment); found {
			return Resolution{Value: v, Resolved: true}
		}
	}

	original := reflect.ValueOf(current)
	v := original
	for v.Kind() == reflect.Pointer || v.Kind() == reflect.Interface {
		if v.IsNil() {
			return unresolved(ErrNilTraversal, segment)
		}
		v = v.Elem()
	}

	switch v.Kind() {
	case reflect.Map:
		key, ok := mapKey(v.Type().Key(), segment)
		if !ok {
			break
		}
		item := v.MapIndex(key)
		if !item.IsValid() {
			return Resolution{Resolved: true}
		}
		return Resolution{Value: item.Interface(), Resolved: true}

	case reflect.Slice, reflect.Array:
		index, err := strconv.Atoi(segment)
		if err != nil {
			break
		}
		if index < 0 || index >= v.Len() {
			return unresolved(ErrIndexOutOfRange, segment)
		}
		return Resolution{Value: v.Index(index).Interface(), Resolved: true}

	case reflect.Struct:
		if field, ok := structField(v, segment); ok {
			return Resolution{Value: field, Resolved: true}
		}
	}

	if result, ok := callGetter(original, segment); ok {
		return Resolution{Value: result, Resolved: true}
	}
	return unresolved(ErrNotContainer, segment)
}

// mapKey converts a path segment into a value usable as a key of keyType.
func mapKey(keyType reflect.Type, segment string) (reflect.Value, bool) {
	switch keyType.Kind() {
	case reflect.String:
		return reflect.ValueOf(segment).Convert(keyType), true
	case reflect.Interface:
		if reflect.TypeOf(segment).Implements(keyType) {
			return reflect.ValueOf(segment).Convert(keyType), true
		}
	case reflect.Int, reflect.Int8, reflect.Int16, reflect.Int32, reflect.Int64:
		n, err := strconv.ParseInt(segment, 10, keyType.Bits())
		if err == nil {
			return reflect.ValueOf(n).Convert(keyType), true
		}
	case reflect.Uint, reflect.Uint8, reflect.Uint16, reflect.Uint32, reflect.Uint64:
		n, err := strconv.ParseUint(segment, 10, keyType.Bits())
		if err == nil {
			return reflect.ValueOf(n).Convert(keyType), true
		}
	}
	return reflect.Value{}, false
}

// structField finds an exported field by its exact name or with the first
// letter upper-cased, so ${user.name} reaches User.Name.
func structField(v reflect.Value, name string) (any, bool) {
	for _, candidate := range []string{name, exportedName(name)} {
		sf, ok := v.Type().FieldByName(candidate)
		if !ok || !sf.IsExported() {
			continue
		}
		field, err := v.FieldByIndexErr(sf.Index)
		if err != nil {
			return nil, false
		}
		return field.Interface(), true
	}
	return nil, false
}

// callGetter calls a zero-argument method named name, Name, GetName or
// IsName. Methods may return a value, or a value and an error.
func callGetter(v reflect.Value, name string) (any, bool) {
	exported := exportedName(name)
	for _, candidate := range []string{exported, "Get" + exported, "Is" + exported} {
		m := v.MethodByName(candidate)
		if !m.IsValid() && v.Kind() != reflect.Pointer && v.CanAddr() {
			m = v.Addr().MethodByName(candidate)
		}
		if !m.IsValid() {
			continue
		}
		mt := m.Type()
		if mt.NumIn() != 0 || mt.NumOut() == 0 || mt.NumOut() > 2 {
			continue
		}
		if mt.NumOut() == 2 && !mt.Out(1).Implements(errorType) {
			continue
		}
		out := m.Call(nil)
		if len(out) == 2 && !out[1].IsNil() {
			return nil, false
		}
		return out[0].Interface(), true
	}
	return nil, false
}

var errorType = reflect.TypeOf((*error)(nil)).Elem()

func exportedName(name string) string {
	r, size := utf8.DecodeRuneInString(name)
	if r == utf8.RuneError {
		return name
	}
	return string(unicode.ToUpper(r)) + name[size:]
}

func isNil(v any) bool {
	if v == nil {
		return true
	}
	rv := reflect.ValueOf(v)
	switch rv.Kind() {
	case reflect.Pointer, reflect.Map, reflect.Slice, reflect.Interface, reflect.Chan, reflect.Func:
		return rv.IsNil()
	}
	return false
}

// IsTruthy reports whether v counts as true in an if directive. nil, false,
// zero numbers, empty strings, the string "false" and empty collections are
// false; everything else is true.
func IsTruthy(v any) bool {
	if isNil(v) {
		return false
	}

	switch val := v.(type) {
	case bool:
		return val
	case string:
		return val != "" && !strings.EqualFold(val, "false")
	}

	rv := reflect.ValueOf(v)
	switch rv.Kind() {
	case reflect.Bool:
		return rv.Bool()
	case reflect.String:
		s := rv.String()
		return s != "" && !strings.EqualFold(s, "false")
	case reflect.Int, reflect.Int8, reflect.Int16, reflect.Int32, reflect.Int64:
		return rv.Int() != 0
	case reflect.Uint, reflect.Uint8, reflect.Uint16, reflect.Uint32, reflect.Uint64, reflect.Uintptr:
		return rv.Uint() != 0
	case reflect.Float32, reflect.Float64:
		return rv.Float() != 0
	case reflect.Map, reflect.Slice, reflect.Array:
		return rv.Len() > 0
	case reflect.Pointer:
		return IsTruthy(rv.Elem().Interface())
	default:
		return true
	}
}
