package jmte

import (
	"fmt"
	"strings"
)

// Token is a node of a compiled template. Token trees are never modified
// after Build returns; per-evaluation state lives in the evaluator.
type Token interface {
	// Text returns the directive text the token was compiled from.
	Text() string
	// Dup returns an independent structural copy.
	Dup() Token
	String() string
}

// LiteralToken is text copied verbatim to the output.
type LiteralToken struct {
	Value string
}

func (t *LiteralToken) Text() string { return t.Value }

func (t *LiteralToken) Dup() Token { return &LiteralToken{Value: t.Value} }

func (t *LiteralToken) String() string {
	return fmt.Sprintf("Literal(%q)", t.Value)
}

// ExpressionToken resolves a dotted path and renders the value.
type ExpressionToken struct {
	Expression string
	Path       []string
	// Renderer names an explicit NamedRenderer; empty means type-based resolution.
	Renderer string
	// Format is passed verbatim to the named renderer.
	Format string
	// Default replaces an unresolved or nil value when HasDefault is set.
	Default    string
	HasDefault bool
	// Prefix and Suffix wrap the output when it is not empty.
	Prefix string
	Suffix string
}

func (t *ExpressionToken) Text() string {
	var b strings.Builder
	if t.Prefix != "" || t.Suffix != "" {
		b.WriteString(t.Prefix)
		b.WriteByte(',')
	}
	b.WriteString(t.Expression)
	if t.HasDefault {
		fmt.Fprintf(&b, "(%s)", t.Default)
	}
	if t.Prefix != "" || t.Suffix != "" {
		b.WriteByte(',')
		b.WriteString(t.Suffix)
	}
	if t.Renderer != "" {
		b.WriteByte(';')
		b.WriteString(t.Renderer)
		if t.Format != "" {
			fmt.Fprintf(&b, "(%s)", t.Format)
		}
	}
	return b.String()
}

func (t *ExpressionToken) Dup() Token {
	dup := *t
	dup.Path = append([]string(nil), t.Path...)
	return &dup
}

func (t *ExpressionToken) String() string {
	return fmt.Sprintf("Expression(%s)", t.Text())
}

// IfToken renders Body when the condition is truthy, Else otherwise.
type IfToken struct {
	Expression string
	Path       []string
	Negated    bool
	Body       []Token
	Else       []Token
	HasElse    bool
}

func (t *IfToken) Text() string {
	if t.Negated {
		return keywordIf + " !" + t.Expression
	}
	return keywordIf + " " + t.Expression
}

func (t *IfToken) Dup() Token {
	return t.dup()
}

func (t *IfToken) dup() *IfToken {
	return &IfToken{
		Expression: t.Expression,
		Path:       append([]string(nil), t.Path...),
		Negated:    t.Negated,
		Body:       dupTokens(t.Body),
		Else:       dupTokens(t.Else),
		HasElse:    t.HasElse,
	}
}

func (t *IfToken) String() string {
	if t.HasElse {
		return fmt.Sprintf("If(%s) Else", t.Text())
	}
	return fmt.Sprintf("If(%s)", t.Text())
}

// IfCmpToken is an IfToken whose condition is string equality with Operand
// instead of truthiness.
type IfCmpToken struct {
	IfToken
	Operand string
}

func (t *IfCmpToken) Text() string {
	return fmt.Sprintf("%s=='%s'", t.IfToken.Text(), t.Operand)
}

func (t *IfCmpToken) Dup() Token {
	return &IfCmpToken{IfToken: *t.IfToken.dup(), Operand: t.Operand}
}

func (t *IfCmpToken) String() string {
	if t.HasElse {
		return fmt.Sprintf("IfCmp(%s) Else", t.Text())
	}
	return fmt.Sprintf("IfCmp(%s)", t.Text())
}

// ForEachToken renders Body once per element of the iterable at Path,
// binding each element to VarName and inserting Separator between elements.
type ForEachToken struct {
	Expression string
	Path       []string
	VarName    string
	Separator  string
	Body       []Token
}

func (t *ForEachToken) Text() string {
	if t.Separator != "" {
		return fmt.Sprintf("%s %s %s %s", keywordForEach, t.Expression, t.VarName, t.Separator)
	}
	return fmt.Sprintf("%s %s %s", keywordForEach, t.Expression, t.VarName)
}

func (t *ForEachToken) Dup() Token {
	return &ForEachToken{
		Expression: t.Expression,
		Path:       append([]string(nil), t.Path...),
		VarName:    t.VarName,
		Separator:  t.Separator,
		Body:       dupTokens(t.Body),
	}
}

func (t *ForEachToken) String() string {
	return fmt.Sprintf("ForEach(%s in %s)", t.VarName, t.Expression)
}

// Names of the synthetic loop variables for VarName.
func (t *ForEachToken) firstName() string { return FirstPrefix + t.VarName }
func (t *ForEachToken) lastName() string  { return LastPrefix + t.VarName }
func (t *ForEachToken) oddName() string   { return OddPrefix + t.VarName }
func (t *ForEachToken) evenName() string  { return EvenPrefix + t.VarName }

// Prefixes of the synthetic variables bound inside a foreach body.
const (
	FirstPrefix = "first_"
	LastPrefix  = "last_"
	OddPrefix   = "odd_"
	EvenPrefix  = "even_"
)

// EndToken closes a block. The builder consumes it, so it never appears in a
// finished tree.
type EndToken struct{}

func (t *EndToken) Text() string { return keywordEnd }

func (t *EndToken) Dup() Token { return &EndToken{} }

func (t *EndToken) String() string { return "End" }

func dupTokens(tokens []Token) []Token {
	if tokens == nil {
		return nil
	}
	out := make([]Token, len(tokens))
	for i, tok := range tokens {
		out[i] = tok.Dup()
	}
	return out
}
