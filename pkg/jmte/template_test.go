package jmte

import (
	"fmt"
	"reflect"
	"slices"
	"strings"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/text/language"
)

func newTestEngine(t *testing.T, opts ...Option) (*Engine, *CollectingErrorHandler) {
	t.Helper()
	collector := NewCollectingErrorHandler()
	engine := NewWithConfig(DefaultConfig())
	engine.SetErrorHandler(collector)
	for _, opt := range opts {
		opt(engine)
	}
	return engine, collector
}

func TestTransform(t *testing.T) {
	tests := []struct {
		name     string
		template string
		model    map[string]any
		want     string
	}{
		{
			name:     "literal round trip",
			template: "no directives {here} $ { or \\ there",
			want:     "no directives {here} $ { or \\ there",
		},
		{
			name:     "simple substitution",
			template: "Hello ${name}!",
			model:    map[string]any{"name": "World"},
			want:     "Hello World!",
		},
		{
			name:     "whitespace inside directive",
			template: "Hello ${ name }!",
			model:    map[string]any{"name": "World"},
			want:     "Hello World!",
		},
		{
			name:     "escaped directive",
			template: `\${name} is ${name}`,
			model:    map[string]any{"name": "x"},
			want:     "${name} is x",
		},
		{
			name:     "nested path",
			template: "${user.address.city}, ${user.tags.0}",
			model: map[string]any{"user": map[string]any{
				"address": map[string]any{"city": "Berlin"},
				"tags":    []string{"admin"},
			}},
			want: "Berlin, admin",
		},
		{
			name:     "numbers and booleans",
			template: "${i} ${f} ${b}",
			model:    map[string]any{"i": 42, "f": 2.5, "b": true},
			want:     "42 2.5 true",
		},
		{
			name:     "default for missing value",
			template: "${name(anonymous)}",
			want:     "anonymous",
		},
		{
			name:     "default for nil value",
			template: "${name(anonymous)}",
			model:    map[string]any{"name": nil},
			want:     "anonymous",
		},
		{
			name:     "default ignored when present",
			template: "${name(anonymous)}",
			model:    map[string]any{"name": "Ann"},
			want:     "Ann",
		},
		{
			name:     "wrapped value",
			template: "[${<b>,name,</b>}]",
			model:    map[string]any{"name": "Ann"},
			want:     "[<b>Ann</b>]",
		},
		{
			name:     "wrapped empty value",
			template: "[${<b>,name,</b>}]",
			model:    map[string]any{"name": ""},
			want:     "[]",
		},
		{
			name:     "if true",
			template: "${if flag}Y${else}N${end}",
			model:    map[string]any{"flag": true},
			want:     "Y",
		},
		{
			name:     "if false",
			template: "${if flag}Y${else}N${end}",
			model:    map[string]any{"flag": false},
			want:     "N",
		},
		{
			name:     "if missing is false",
			template: "${if flag}Y${else}N${end}",
			want:     "N",
		},
		{
			name:     "if without else",
			template: "a${if flag}Y${end}b",
			want:     "ab",
		},
		{
			name:     "negated if",
			template: "${if !flag}Y${else}N${end}",
			model:    map[string]any{"flag": ""},
			want:     "Y",
		},
		{
			name:     "if on collection",
			template: "${if items}some${else}none${end}",
			model:    map[string]any{"items": []int{}},
			want:     "none",
		},
		{
			name:     "comparison matches",
			template: "${if color=='red'}R${else}O${end}",
			model:    map[string]any{"color": "red"},
			want:     "R",
		},
		{
			name:     "comparison differs",
			template: "${if color=='red'}R${else}O${end}",
			model:    map[string]any{"color": "blue"},
			want:     "O",
		},
		{
			name:     "negated comparison",
			template: "${if !color=='red'}R${else}O${end}",
			model:    map[string]any{"color": "blue"},
			want:     "R",
		},
		{
			name:     "comparison with number",
			template: "${if count=3}three${end}",
			model:    map[string]any{"count": 3},
			want:     "three",
		},
		{
			name:     "comparison on missing value",
			template: "${if color=='red'}R${else}O${end}",
			want:     "O",
		},
		{
			name:     "nested if",
			template: "${if a}${if b}AB${else}A${end}${end}",
			model:    map[string]any{"a": true, "b": false},
			want:     "A",
		},
		{
			name:     "foreach with separator",
			template: "${foreach list x ,}${x}${end}",
			model:    map[string]any{"list": []int{1, 2, 3}},
			want:     "1,2,3",
		},
		{
			name:     "foreach separator with spaces",
			template: "${foreach list x  and }${x}${end}",
			model:    map[string]any{"list": []string{"a", "b"}},
			want:     "a and b",
		},
		{
			name:     "foreach newline separator",
			template: "${foreach list x\n}${x}${end}",
			model:    map[string]any{"list": []string{"a", "b"}},
			want:     "a\nb",
		},
		{
			name:     "foreach space then newline separator",
			template: "${foreach list x \n}${x}${end}",
			model:    map[string]any{"list": []string{"a", "b"}},
			want:     "a\nb",
		},
		{
			name:     "default containing commas",
			template: "Dear ${name(Sir, Madam)}",
			want:     "Dear Sir, Madam",
		},
		{
			name:     "comparison with end delimiter in operand",
			template: "${if x=='}'}Y${else}N${end}",
			model:    map[string]any{"x": "}"},
			want:     "Y",
		},
		{
			name:     "int8 map key",
			template: "${m.44}",
			model:    map[string]any{"m": map[int8]string{44: "ok"}},
			want:     "ok",
		},
		{
			name:     "foreach single element has no separator",
			template: "${foreach list x ,}${x}${end}",
			model:    map[string]any{"list": []int{7}},
			want:     "7",
		},
		{
			name:     "loop variables",
			template: "${foreach l i}${if first_i}[${end}${i}${if odd_i}o${end}${if even_i}e${end}${if last_i}]${end}${end}",
			model:    map[string]any{"l": []string{"a", "b", "c"}},
			want:     "[aeboce]",
		},
		{
			name:     "loop over struct elements",
			template: "${foreach people p , }${p.name}${end}",
			model:    map[string]any{"people": []testPerson{{Name: "Ann"}, {Name: "Bob"}}},
			want:     "Ann, Bob",
		},
		{
			name:     "loop over array",
			template: "${foreach a x}${x}${end}",
			model:    map[string]any{"a": [3]int{1, 2, 3}},
			want:     "123",
		},
		{
			name:     "loop over map entries in key order",
			template: "${foreach m e ,}${e.key}=${e.value}${end}",
			model:    map[string]any{"m": map[string]int{"b": 2, "a": 1, "c": 3}},
			want:     "a=1,b=2,c=3",
		},
		{
			name:     "empty list",
			template: "a${foreach l x}${x}${end}b",
			model:    map[string]any{"l": []int{}},
			want:     "ab",
		},
		{
			name:     "nil list",
			template: "a${foreach l x}${x}${end}b",
			model:    map[string]any{"l": nil},
			want:     "ab",
		},
		{
			name:     "loop variable does not leak",
			template: "${foreach l item}${item}${end}|${item}",
			model:    map[string]any{"l": []int{1, 2}, "item": "outer"},
			want:     "12|outer",
		},
		{
			name:     "nested loops shadow",
			template: "${foreach outer x}${foreach inner x}${x}${end}-${x};${end}",
			model:    map[string]any{"outer": []string{"a", "b"}, "inner": []int{1, 2}},
			want:     "12-a;12-b;",
		},
		{
			name:     "inner loop sees outer variable",
			template: "${foreach rows r}${foreach cols c ,}${r}${c}${end};${end}",
			model:    map[string]any{"rows": []string{"a", "b"}, "cols": []int{1, 2}},
			want:     "a1,a2;b1,b2;",
		},
		{
			name:     "if inside foreach evaluated per element",
			template: "${foreach l x}${if x}Y${else}N${end}${end}",
			model:    map[string]any{"l": []any{true, false, "x", 0}},
			want:     "YNYN",
		},
		{
			name:     "sequence default rendering",
			template: "${list}",
			model:    map[string]any{"list": []string{"a", "b"}},
			want:     "a, b",
		},
		{
			name:     "method call",
			template: "${p.greeting}",
			model:    map[string]any{"p": testPerson{Name: "Ann"}},
			want:     "Hi Ann",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			engine, _ := newTestEngine(t)
			got, err := engine.Transform(tt.template, tt.model)
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestTransformStreams(t *testing.T) {
	engine, _ := newTestEngine(t)

	ch := make(chan string, 3)
	for _, s := range []string{"x", "y", "z"} {
		ch <- s
	}
	close(ch)

	got, err := engine.Transform("${foreach ch s ,}${s}${if last_s}!${end}${end}", map[string]any{"ch": ch})
	require.NoError(t, err)
	assert.Equal(t, "x,y,z!", got)

	got, err = engine.Transform("${foreach seq n -}${n}${if first_n}^${end}${end}", map[string]any{
		"seq": slices.Values([]int{1, 2, 3}),
	})
	require.NoError(t, err)
	assert.Equal(t, "1^-2-3", got)

	empty := make(chan int)
	close(empty)
	got, err = engine.Transform("a${foreach ch x}${x}${end}b", map[string]any{"ch": empty})
	require.NoError(t, err)
	assert.Equal(t, "ab", got)
}

func TestTransformReportsProblems(t *testing.T) {
	tests := []struct {
		name     string
		template string
		model    map[string]any
		want     string
		kinds    []ErrorKind
		path     string
	}{
		{
			name:     "unresolved root",
			template: "a${missing}b",
			want:     "ab",
			kinds:    []ErrorKind{ErrUnresolvedRoot},
			path:     "missing",
		},
		{
			name:     "not a container",
			template: "${name.first}",
			model:    map[string]any{"name": "Ann"},
			kinds:    []ErrorKind{ErrNotContainer},
			path:     "name.first",
		},
		{
			name:     "index out of range",
			template: "${list.5}",
			model:    map[string]any{"list": []int{1}},
			kinds:    []ErrorKind{ErrIndexOutOfRange},
			path:     "list.5",
		},
		{
			name:     "map key out of key type range",
			template: "${m.300}",
			model:    map[string]any{"m": map[int8]string{44: "wrapped"}},
			kinds:    []ErrorKind{ErrNotContainer},
			path:     "m.300",
		},
		{
			name:     "not iterable",
			template: "${foreach n x}${x}${end}",
			model:    map[string]any{"n": 5},
			kinds:    []ErrorKind{ErrNotIterable},
			path:     "n",
		},
		{
			name:     "foreach over missing source",
			template: "${foreach missing x}${x}${end}",
			kinds:    []ErrorKind{ErrUnresolvedRoot},
			path:     "missing",
		},
		{
			name:     "unknown renderer falls back",
			template: "${name;nope}",
			model:    map[string]any{"name": "Ann"},
			want:     "Ann",
			kinds:    []ErrorKind{ErrUnknownRenderer},
			path:     "name",
		},
		{
			name:     "default suppresses report",
			template: "${missing(x)}",
			want:     "x",
		},
		{
			name:     "missing if root is silent",
			template: "${if missing}x${end}",
		},
		{
			name:     "bad if path is reported",
			template: "${if name.first}x${end}",
			model:    map[string]any{"name": "Ann"},
			kinds:    []ErrorKind{ErrNotContainer},
			path:     "name.first",
		},
		{
			name:     "nil traversal silent by default",
			template: "${p.name}",
			model:    map[string]any{"p": nil},
		},
		{
			name:     "missing map key is silent",
			template: "${m.key}",
			model:    map[string]any{"m": map[string]any{}},
		},
		{
			name:     "loop variable outside its loop",
			template: "${foreach l item}${end}${item}",
			model:    map[string]any{"l": []int{1}},
			kinds:    []ErrorKind{ErrUnresolvedRoot},
			path:     "item",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			engine, collector := newTestEngine(t)
			got, err := engine.Transform(tt.template, tt.model)
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)

			var kinds []ErrorKind
			for _, report := range collector.Reports() {
				kinds = append(kinds, report.Kind)
			}
			assert.Equal(t, tt.kinds, kinds)
			if tt.path != "" {
				require.NotEmpty(t, collector.Reports())
				assert.Equal(t, tt.path, collector.Reports()[0].Path)
			}
		})
	}
}

func TestTransformReportNilTraversal(t *testing.T) {
	config := DefaultConfig()
	config.ReportNilTraversal = true
	engine, collector := newTestEngine(t, WithConfig(config))

	got, err := engine.Transform("${p.name}", map[string]any{"p": (*testPerson)(nil)})
	require.NoError(t, err)
	assert.Equal(t, "", got)

	reports := collector.Reports()
	require.Len(t, reports, 1)
	assert.Equal(t, ErrNilTraversal, reports[0].Kind)
	assert.Equal(t, "p.name", reports[0].Path)
	assert.Equal(t, "name", reports[0].Detail)
}

func TestTransformErrorHandlerSubstitution(t *testing.T) {
	engine, _ := newTestEngine(t, WithErrorHandler(ErrorHandlerFunc(func(report *ErrorReport) string {
		return "<" + report.Path + "?>"
	})))

	got, err := engine.Transform("Hello ${name}, ${if x.y}${end}${foreach n i}${end}", map[string]any{
		"x": "str",
		"n": 1,
	})
	require.NoError(t, err)
	assert.Equal(t, "Hello <name?>, <n?>", got, "if conditions never substitute text")
}

func TestTransformNamedRenderers(t *testing.T) {
	shout := NewNamedRenderer("shout", func(value any, format string, _ language.Tag) string {
		return strings.ToUpper(FormatValue(value)) + format
	}, reflect.TypeFor[string]())
	echo := NewNamedRenderer("echo", func(_ any, format string, locale language.Tag) string {
		return format + "@" + locale.String()
	})

	engine, _ := newTestEngine(t, WithNamedRenderer(shout), WithNamedRenderer(echo), WithLocale("de"))

	got, err := engine.Transform("${name;shout} ${name;shout(!)} ${name;echo(a, b)}", map[string]any{"name": "ann"})
	require.NoError(t, err)
	assert.Equal(t, "ANN ANN! a, b@de", got)

	// Named renderers also apply inside wrapped expressions and loops.
	got, err = engine.Transform("${foreach l x ,}${(,x,);shout}${end}", map[string]any{"l": []string{"a", "b"}})
	require.NoError(t, err)
	assert.Equal(t, "(A),(B)", got)
}

func TestTransformTypeRenderer(t *testing.T) {
	engine, _ := newTestEngine(t)
	require.NoError(t, engine.RegisterRenderer(reflect.TypeFor[celsius](), RendererFunc(func(value any, _ language.Tag) string {
		return fmt.Sprintf("%g°C", float64(value.(celsius)))
	})))

	got, err := engine.Transform("${t} ${if t=='21.5°C'}warm${end}", map[string]any{"t": celsius(21.5)})
	require.NoError(t, err)
	assert.Equal(t, "21.5°C warm", got)

	engine.DeregisterRenderer(reflect.TypeFor[celsius]())
	got, err = engine.Transform("${t}", map[string]any{"t": celsius(21.5)})
	require.NoError(t, err)
	assert.Equal(t, "21.5", got)
}

type recordingListener struct {
	events []string
}

func (l *recordingListener) Log(token Token, action Action) {
	l.events = append(l.events, action.String()+" "+token.Text())
}

func TestTransformProcessListener(t *testing.T) {
	listener := &recordingListener{}
	engine, _ := newTestEngine(t, WithProcessListener(listener))

	_, err := engine.Transform("${if a}${x}${end}${foreach l i}${i}${end}", map[string]any{
		"a": true,
		"x": "X",
		"l": []int{1, 2},
	})
	require.NoError(t, err)

	want := []string{
		"ENTER if a",
		"EVAL x",
		"EXIT if a",
		"ENTER foreach l i",
		"ITERATE_FOREACH foreach l i",
		"EVAL i",
		"ITERATE_FOREACH foreach l i",
		"EVAL i",
		"EXIT foreach l i",
	}
	assert.Equal(t, want, listener.events)

	engine.RemoveProcessListener(listener)
	listener.events = nil
	_, err = engine.Transform("${x}", map[string]any{"x": 1})
	require.NoError(t, err)
	assert.Empty(t, listener.events)
}

func TestTransformRecoversPanics(t *testing.T) {
	boom := NewNamedRenderer("boom", func(any, string, language.Tag) string {
		panic("renderer exploded")
	})
	engine, _ := newTestEngine(t, WithNamedRenderer(boom))

	got, err := engine.Transform("before ${x;boom} after", map[string]any{"x": 1})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "renderer exploded")
	assert.Empty(t, got)
}

func TestTransformParseError(t *testing.T) {
	engine, _ := newTestEngine(t, WithSourceName("greeting.txt"))

	got, err := engine.Transform("Hello ${if name}", nil)
	require.Error(t, err)
	assert.Empty(t, got)
	assert.True(t, IsParseError(err))
	assert.ErrorIs(t, err, ErrUnbalancedBlock)
	assert.Contains(t, err.Error(), "greeting.txt")
}

func TestTransformCustomDelimiters(t *testing.T) {
	engine, _ := newTestEngine(t, WithDelimiters("{{", "}}"))

	got, err := engine.Transform("{{foreach l x ,}}{{x}}{{end}} ${untouched}", map[string]any{"l": []int{1, 2}})
	require.NoError(t, err)
	assert.Equal(t, "1,2 ${untouched}", got)
}

// countingProps records how often each property is read.
type countingProps struct {
	values map[string]any
	reads  map[string]int
}

func (c *countingProps) Property(name string) (any, bool) {
	c.reads[name]++
	v, ok := c.values[name]
	return v, ok
}

func TestTransformEvaluatesConditionsOncePerPass(t *testing.T) {
	engine, collector := newTestEngine(t)
	props := &countingProps{
		values: map[string]any{"flag": true, "kind": "a"},
		reads:  map[string]int{},
	}
	model := map[string]any{"x": props, "items": []int{1, 2, 3}}

	tmpl, err := engine.Compile("${if x.flag}T${else}F${end}|${if x.kind=='a'}eq${else}ne${end}")
	require.NoError(t, err)

	got, err := tmpl.Transform(model)
	require.NoError(t, err)
	assert.Equal(t, "T|eq", got)
	assert.Equal(t, map[string]int{"flag": 1, "kind": 1}, props.reads)

	got, err = tmpl.Transform(model)
	require.NoError(t, err)
	assert.Equal(t, "T|eq", got)
	assert.Equal(t, map[string]int{"flag": 2, "kind": 2}, props.reads, "each call starts with fresh state")

	props.reads = map[string]int{}
	loop, err := engine.Compile("${foreach items i ,}${if x.flag}${i}${end}${if !x.kind='b'}!${end}${end}")
	require.NoError(t, err)

	got, err = loop.Transform(model)
	require.NoError(t, err)
	assert.Equal(t, "1!,2!,3!", got)
	assert.Equal(t, map[string]int{"flag": 3, "kind": 3}, props.reads, "once per iteration")
	assert.Zero(t, collector.Len())
}

func TestTransformNegativeSizeFactor(t *testing.T) {
	engine := NewWithConfig(&Config{ExpansionSizeFactor: -1})

	got, err := engine.Transform("hello ${name}", map[string]any{"name": "Ann"})
	require.NoError(t, err)
	assert.Equal(t, "hello Ann", got)
}

func TestTemplateReuseAndConcurrency(t *testing.T) {
	engine, _ := newTestEngine(t)
	tmpl, err := engine.Compile("${foreach l x ,}${prefix}${x}${end}")
	require.NoError(t, err)

	var wg sync.WaitGroup
	results := make([]string, 16)
	for i := range results {
		wg.Add(1)
		go func() {
			defer wg.Done()
			out, err := tmpl.Transform(map[string]any{
				"prefix": fmt.Sprintf("%d:", i),
				"l":      []int{1, 2},
			})
			if err != nil {
				results[i] = err.Error()
				return
			}
			results[i] = out
		}()
	}
	wg.Wait()

	for i, got := range results {
		assert.Equal(t, fmt.Sprintf("%d:1,%d:2", i, i), got)
	}
}

func TestUsedVariables(t *testing.T) {
	tests := []struct {
		name     string
		template string
		want     []string
	}{
		{"none", "plain text", []string{}},
		{"basic", "${a}${if b}${c}${end}", []string{"a", "b", "c"}},
		{"duplicates and paths", "${b.x} ${a} ${b.y} ${a}", []string{"a", "b"}},
		{
			"loop variables excluded",
			"${foreach list item}${item.x}${first_item}${last_item}${other}${end}",
			[]string{"list", "other"},
		},
		{
			"loop variable used outside loop",
			"${foreach list item}${end}${item}",
			[]string{"item", "list"},
		},
		{
			"nested loop sources",
			"${foreach rows r}${foreach r.cells c}${c}${end}${end}",
			[]string{"rows"},
		},
		{"comparison and else", "${if x=='1'}${y}${else}${z}${end}", []string{"x", "y", "z"}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			engine, _ := newTestEngine(t)
			got, err := engine.UsedVariables(tt.template)
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestTemplateDupAndString(t *testing.T) {
	engine, _ := newTestEngine(t)
	tmpl, err := engine.Compile("${foreach l x}${if x}${x}${else}-${end}${end}")
	require.NoError(t, err)

	dup := tmpl.Dup()
	model := map[string]any{"l": []any{1, 0}}
	want, err := tmpl.Transform(model)
	require.NoError(t, err)
	got, err := dup.Transform(model)
	require.NoError(t, err)
	assert.Equal(t, want, got)
	assert.Equal(t, tmpl.Source(), dup.Source())

	tree := "ForEach(x in l)\n" +
		"  If(if x) Else\n" +
		"    Expression(x)\n" +
		"  else\n" +
		"    Literal(\"-\")\n"
	assert.Equal(t, tree, tmpl.String())
}
