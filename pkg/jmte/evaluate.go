package jmte

import (
	"strings"

	"golang.org/x/text/language"
)

// environment is the read-only engine state an evaluation runs against.
type environment struct {
	registry           *RendererRegistry
	errorHandler       ErrorHandler
	listeners          []ProcessListener
	locale             language.Tag
	reportNilTraversal bool
}

// pass holds the per-evaluation state of one walk over a token list. Every
// foreach element gets its own pass, so the tree itself is never written to.
type pass struct {
	conditions map[*IfToken]bool
}

func newPass() *pass {
	return &pass{conditions: make(map[*IfToken]bool)}
}

// evaluator walks a token tree for one transform call.
type evaluator struct {
	env    environment
	scope  *ScopeStack
	out    *strings.Builder
	logger *Logger
}

func newEvaluator(env environment, model map[string]any, out *strings.Builder) *evaluator {
	if env.registry == nil {
		env.registry = NewRendererRegistry()
	}
	if env.errorHandler == nil {
		env.errorHandler = &DefaultErrorHandler{}
	}
	return &evaluator{
		env:    env,
		scope:  NewScopeStack(model),
		out:    out,
		logger: GetLogger(),
	}
}

func (e *evaluator) notify(tok Token, action Action) {
	for _, l := range e.env.listeners {
		l.Log(tok, action)
	}
}

func (e *evaluator) evaluate(tokens []Token, p *pass) {
	for _, tok := range tokens {
		switch t := tok.(type) {
		case *LiteralToken:
			e.notify(t, ActionEval)
			e.out.WriteString(t.Value)
		case *ExpressionToken:
			e.notify(t, ActionEval)
			e.out.WriteString(e.expression(t))
		case *IfToken:
			e.branch(t, t, e.condition(t, p))
		case *IfCmpToken:
			e.branch(t, &t.IfToken, e.compare(t, p))
		case *ForEachToken:
			e.forEach(t)
		case *EndToken:
		}
	}
}

// report hands a problem to the error handler and returns its substitute
// text. Nil traversals are dropped unless the engine asks for them.
func (e *evaluator) report(kind ErrorKind, path []string, detail string, tok Token) string {
	if kind == ErrNilTraversal && !e.env.reportNilTraversal {
		return ""
	}
	return e.env.errorHandler.Handle(&ErrorReport{
		Kind:   kind,
		Path:   strings.Join(path, "."),
		Detail: detail,
		Token:  tok,
		Locale: e.env.locale,
	})
}

func (e *evaluator) expression(t *ExpressionToken) string {
	res := Resolve(t.Path, e.scope)
	if e.logger.IsDebugMode() {
		e.logger.DebugExpression(t.Expression, res.Value)
	}

	if t.HasDefault && (!res.Resolved || isNil(res.Value)) {
		return t.Default
	}
	if !res.Resolved {
		return e.report(res.Kind, t.Path, res.Detail, t)
	}

	text := e.render(t, res.Value)
	if text == "" {
		return ""
	}
	return t.Prefix + text + t.Suffix
}

func (e *evaluator) render(t *ExpressionToken, value any) string {
	if t.Renderer != "" {
		if named, ok := e.env.registry.Named(t.Renderer); ok {
			return named.Render(value, t.Format, e.env.locale)
		}
		if text := e.report(ErrUnknownRenderer, t.Path, t.Renderer, t); text != "" {
			return text
		}
	}
	return e.env.registry.ResolveValue(value).Render(value, e.env.locale)
}

// condition evaluates an if condition once per pass. An undefined root is
// false without a report, so ${if name} can test for presence.
func (e *evaluator) condition(t *IfToken, p *pass) bool {
	if cached, ok := p.conditions[t]; ok {
		return cached
	}
	res := Resolve(t.Path, e.scope)
	if !res.Resolved && res.Kind != ErrUnresolvedRoot {
		e.report(res.Kind, t.Path, res.Detail, t)
	}
	result := res.Resolved && IsTruthy(res.Value)
	if t.Negated {
		result = !result
	}
	p.conditions[t] = result
	return result
}

// compare evaluates an equality condition once per pass. The value is
// compared in its default rendering; an unresolved value never matches.
func (e *evaluator) compare(t *IfCmpToken, p *pass) bool {
	if cached, ok := p.conditions[&t.IfToken]; ok {
		return cached
	}
	res := Resolve(t.Path, e.scope)
	if !res.Resolved && res.Kind != ErrUnresolvedRoot {
		e.report(res.Kind, t.Path, res.Detail, t)
	}
	result := false
	if res.Resolved && !isNil(res.Value) {
		text := e.env.registry.ResolveValue(res.Value).Render(res.Value, e.env.locale)
		result = text == t.Operand
	}
	if t.Negated {
		result = !result
	}
	p.conditions[&t.IfToken] = result
	return result
}

func (e *evaluator) branch(tok Token, t *IfToken, result bool) {
	e.notify(tok, ActionEnter)
	defer e.notify(tok, ActionExit)

	if result {
		e.evaluate(t.Body, newPass())
	} else if t.HasElse {
		e.evaluate(t.Else, newPass())
	}
}

func (e *evaluator) forEach(t *ForEachToken) {
	res := Resolve(t.Path, e.scope)
	if !res.Resolved {
		e.out.WriteString(e.report(res.Kind, t.Path, res.Detail, t))
		return
	}
	if isNil(res.Value) {
		return
	}
	src, ok := iterationSource(res.Value)
	if !ok {
		e.out.WriteString(e.report(ErrNotIterable, t.Path, "", t))
		return
	}
	if src.size == 0 {
		return
	}

	if src.size > 0 {
		e.iterateSized(t, src)
		return
	}
	e.iterateStream(t, src)
}

func (e *evaluator) iterateSized(t *ForEachToken, src source) {
	e.notify(t, ActionEnter)
	defer e.notify(t, ActionExit)

	e.scope.Enter(func() {
		index := 0
		for item := range src.seq {
			e.iteration(t, item, index, index == src.size-1)
			index++
		}
	})
}

func (e *evaluator) iterateStream(t *ForEachToken, src source) {
	items := newLookahead(src.seq)
	defer items.Close()

	item, last, ok := items.Next()
	if !ok {
		return
	}

	e.notify(t, ActionEnter)
	defer e.notify(t, ActionExit)

	e.scope.Enter(func() {
		for index := 0; ok; index++ {
			e.iteration(t, item, index, last)
			item, last, ok = items.Next()
		}
	})
}

// iteration binds the loop variables for one element and evaluates the body.
func (e *evaluator) iteration(t *ForEachToken, item any, index int, last bool) {
	e.scope.Set(t.VarName, item)
	e.scope.Set(t.firstName(), index == 0)
	e.scope.Set(t.lastName(), last)
	e.scope.Set(t.oddName(), index%2 == 1)
	e.scope.Set(t.evenName(), index%2 == 0)
	e.notify(t, ActionIterateForEach)

	e.evaluate(t.Body, newPass())
	if !last {
		e.out.WriteString(t.Separator)
	}
}
