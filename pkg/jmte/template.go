package jmte

import (
	"fmt"
	"sort"
	"strings"
)

// Template is a compiled template: an immutable token tree that can be
// transformed with any number of models, also concurrently.
type Template struct {
	source string
	tokens []Token
	engine *Engine
}

// compile lexes and builds source with the given delimiters.
func compile(source, start, end, sourceName string) ([]Token, error) {
	segments, err := Lex(source, start, end)
	if err == nil {
		var tokens []Token
		tokens, err = build(segments, source)
		if err == nil {
			return tokens, nil
		}
	}
	if pe, ok := err.(*ParseError); ok && sourceName != "" {
		pe.Source = sourceName
	}
	return nil, err
}

// Source returns the template text.
func (t *Template) Source() string {
	return t.source
}

// Tokens returns the root tokens of the compiled tree. The tree must not be
// modified; use Dup for a private copy.
func (t *Template) Tokens() []Token {
	return t.tokens
}

// Transform expands the template with model. Resolution problems go to the
// engine's error handler and never fail the call. A panic raised by a
// renderer, listener or error handler is returned as an error.
func (t *Template) Transform(model map[string]any) (output string, err error) {
	defer func() {
		if r := recover(); r != nil {
			err = RecoverError(r)
			output = ""
		}
	}()

	env := t.engine.environment()
	var out strings.Builder
	if hint := int(float64(len(t.source)) * t.engine.config.ExpansionSizeFactor); hint > 0 {
		out.Grow(hint)
	}

	logger := GetLogger()
	if logger.IsDebugMode() {
		logger.DebugTemplate(t.source, model)
	}

	newEvaluator(env, model, &out).evaluate(t.tokens, newPass())
	return out.String(), nil
}

// UsedVariables returns the sorted root names of every path in the
// template. Loop variables and their first_, last_, odd_ and even_ companions
// are left out inside the loop that binds them.
func (t *Template) UsedVariables() []string {
	used := make(map[string]struct{})
	collectVariables(t.tokens, nil, used)

	names := make([]string, 0, len(used))
	for name := range used {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

func collectVariables(tokens []Token, bound map[string]bool, used map[string]struct{}) {
	add := func(path []string) {
		if len(path) > 0 && !bound[path[0]] {
			used[path[0]] = struct{}{}
		}
	}

	for _, tok := range tokens {
		switch t := tok.(type) {
		case *ExpressionToken:
			add(t.Path)
		case *IfToken:
			add(t.Path)
			collectVariables(t.Body, bound, used)
			collectVariables(t.Else, bound, used)
		case *IfCmpToken:
			add(t.Path)
			collectVariables(t.Body, bound, used)
			collectVariables(t.Else, bound, used)
		case *ForEachToken:
			add(t.Path)
			inner := make(map[string]bool, len(bound)+5)
			for name := range bound {
				inner[name] = true
			}
			for _, name := range []string{t.VarName, t.firstName(), t.lastName(), t.oddName(), t.evenName()} {
				inner[name] = true
			}
			collectVariables(t.Body, inner, used)
		}
	}
}

// Dup returns a template with an independent copy of the token tree.
func (t *Template) Dup() *Template {
	return &Template{
		source: t.source,
		tokens: dupTokens(t.tokens),
		engine: t.engine,
	}
}

// String renders the token tree for debugging.
func (t *Template) String() string {
	var b strings.Builder
	writeTree(&b, t.tokens, 0)
	return b.String()
}

func writeTree(b *strings.Builder, tokens []Token, depth int) {
	for _, tok := range tokens {
		fmt.Fprintf(b, "%s%s\n", strings.Repeat("  ", depth), tok)
		switch t := tok.(type) {
		case *IfToken:
			writeBranches(b, t, depth)
		case *IfCmpToken:
			writeBranches(b, &t.IfToken, depth)
		case *ForEachToken:
			writeTree(b, t.Body, depth+1)
		}
	}
}

func writeBranches(b *strings.Builder, t *IfToken, depth int) {
	writeTree(b, t.Body, depth+1)
	if t.HasElse {
		fmt.Fprintf(b, "%selse\n", strings.Repeat("  ", depth))
		writeTree(b, t.Else, depth+1)
	}
}
