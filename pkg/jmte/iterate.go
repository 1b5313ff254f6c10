package jmte

import (
	"cmp"
	"iter"
	"reflect"
	"slices"
)

// source is something a foreach directive can walk. size is -1 for
// single-pass sources whose length is unknown until they are drained.
type source struct {
	seq  iter.Seq[any]
	size int
}

// iterationSource classifies value for iteration. Slices, arrays and maps are
// sized; channels and range-over-func iterators are single-pass. Maps yield
// {"key", "value"} entries in key order.
func iterationSource(value any) (source, bool) {
	if isNil(value) {
		return source{}, false
	}
	rv := reflect.ValueOf(value)
	for rv.Kind() == reflect.Pointer {
		if rv.IsNil() {
			return source{}, false
		}
		rv = rv.Elem()
	}

	switch rv.Kind() {
	case reflect.Slice, reflect.Array:
		return source{seq: sequenceOf(rv), size: rv.Len()}, true
	case reflect.Map:
		return source{seq: entriesOf(rv), size: rv.Len()}, true
	case reflect.Chan:
		if rv.Type().ChanDir()&reflect.RecvDir == 0 {
			return source{}, false
		}
		return source{seq: channelOf(rv), size: -1}, true
	case reflect.Func:
		if !rv.Type().CanSeq() {
			return source{}, false
		}
		return source{seq: funcOf(rv), size: -1}, true
	}
	return source{}, false
}

// iterate returns the elements of value in iteration order.
func iterate(value any) (iter.Seq[any], bool) {
	src, ok := iterationSource(value)
	return src.seq, ok
}

func sequenceOf(rv reflect.Value) iter.Seq[any] {
	return func(yield func(any) bool) {
		for i := 0; i < rv.Len(); i++ {
			if !yield(rv.Index(i).Interface()) {
				return
			}
		}
	}
}

func entriesOf(rv reflect.Value) iter.Seq[any] {
	keys := rv.MapKeys()
	slices.SortFunc(keys, compareKeys)
	return func(yield func(any) bool) {
		for _, k := range keys {
			entry := map[string]any{
				"key":   k.Interface(),
				"value": rv.MapIndex(k).Interface(),
			}
			if !yield(entry) {
				return
			}
		}
	}
}

// compareKeys orders map keys numerically when they are numbers and by their
// rendered text otherwise.
func compareKeys(a, b reflect.Value) int {
	for a.Kind() == reflect.Interface && !a.IsNil() {
		a = a.Elem()
	}
	for b.Kind() == reflect.Interface && !b.IsNil() {
		b = b.Elem()
	}
	switch {
	case a.CanInt() && b.CanInt():
		return cmp.Compare(a.Int(), b.Int())
	case a.CanUint() && b.CanUint():
		return cmp.Compare(a.Uint(), b.Uint())
	case a.CanFloat() && b.CanFloat():
		return cmp.Compare(a.Float(), b.Float())
	}
	return cmp.Compare(FormatValue(a.Interface()), FormatValue(b.Interface()))
}

func channelOf(rv reflect.Value) iter.Seq[any] {
	return func(yield func(any) bool) {
		for {
			v, ok := rv.Recv()
			if !ok || !yield(v.Interface()) {
				return
			}
		}
	}
}

func funcOf(rv reflect.Value) iter.Seq[any] {
	return func(yield func(any) bool) {
		for v := range rv.Seq() {
			if !yield(v.Interface()) {
				return
			}
		}
	}
}

// lookahead walks a source while always knowing whether the current element
// is the last one. Single-pass sources are read one element ahead.
type lookahead struct {
	next  func() (any, bool)
	stop  func()
	ahead any
	more  bool
}

func newLookahead(seq iter.Seq[any]) *lookahead {
	next, stop := iter.Pull(seq)
	l := &lookahead{next: next, stop: stop}
	l.ahead, l.more = next()
	return l
}

// Next returns the current element and whether it is the final one.
func (l *lookahead) Next() (value any, last bool, ok bool) {
	if !l.more {
		return nil, false, false
	}
	value = l.ahead
	l.ahead, l.more = l.next()
	return value, !l.more, true
}

func (l *lookahead) Close() {
	l.stop()
}
