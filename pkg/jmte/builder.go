package jmte

import (
	"fmt"
	"regexp"
	"strings"
	"unicode"
)

// Regular expressions for splitting a path into segments
var (
	// Matches index or key access like [0], ['key'], ["key"]
	bracketRegex = regexp.MustCompile(`^\[([^\]]+)\]`)
	// Matches dot notation like .field
	dotRegex = regexp.MustCompile(`^\.([^.\[]+)`)
	// Matches a renderer reference like name or name(format)
	rendererRegex = regexp.MustCompile(`^([A-Za-z_][\w-]*)(?:\((.*)\))?$`)
)

// blockFrame is an open if or foreach directive waiting for its end.
type blockFrame struct {
	token   Token
	segment Segment
	inElse  bool
}

// body returns the token list that new children are appended to.
func (f *blockFrame) body() *[]Token {
	switch t := f.token.(type) {
	case *ForEachToken:
		return &t.Body
	default:
		it := ifTokenOf(f.token)
		if f.inElse {
			return &it.Else
		}
		return &it.Body
	}
}

func ifTokenOf(tok Token) *IfToken {
	switch t := tok.(type) {
	case *IfToken:
		return t
	case *IfCmpToken:
		return &t.IfToken
	default:
		return nil
	}
}

// Build nests a flat segment sequence into a token tree. Structural problems
// are reported as *ParseError.
func Build(segments []Segment) ([]Token, error) {
	return build(segments, "")
}

// build is Build with the original input available for line and column
// information in errors.
func build(segments []Segment, input string) ([]Token, error) {
	var root []Token
	var stack []*blockFrame

	appendToken := func(tok Token) {
		if len(stack) == 0 {
			root = append(root, tok)
			return
		}
		body := stack[len(stack)-1].body()
		*body = append(*body, tok)
	}

	for _, seg := range segments {
		switch seg.Kind {
		case SegmentLiteral:
			appendToken(&LiteralToken{Value: seg.Text})

		case SegmentExpression:
			tok, err := parseExpression(seg.Text)
			if err != nil {
				return nil, NewParseError(ErrInvalidDirective, err.Error(), seg.Text, seg.Position, input)
			}
			appendToken(tok)

		case SegmentIf:
			_, rest := splitKeyword(seg.Text)
			tok, err := parseIf(rest)
			if err != nil {
				return nil, NewParseError(ErrInvalidDirective, err.Error(), seg.Text, seg.Position, input)
			}
			stack = append(stack, &blockFrame{token: tok, segment: seg})

		case SegmentForEach:
			_, rest := splitKeyword(seg.Text)
			tok, err := parseForEach(rest)
			if err != nil {
				return nil, NewParseError(ErrInvalidDirective, err.Error(), seg.Text, seg.Position, input)
			}
			stack = append(stack, &blockFrame{token: tok, segment: seg})

		case SegmentElse:
			if err := checkBare(seg); err != nil {
				return nil, NewParseError(ErrInvalidDirective, err.Error(), seg.Text, seg.Position, input)
			}
			if len(stack) == 0 {
				return nil, NewParseError(ErrElseWithoutIf, "else outside of an if block", seg.Text, seg.Position, input)
			}
			top := stack[len(stack)-1]
			it := ifTokenOf(top.token)
			if it == nil {
				return nil, NewParseError(ErrElseWithoutIf,
					"else inside a foreach block", seg.Text, seg.Position, input)
			}
			if top.inElse {
				return nil, NewParseError(ErrDuplicateElse, "if block already has an else", seg.Text, seg.Position, input)
			}
			top.inElse = true
			it.HasElse = true

		case SegmentEnd:
			if err := checkBare(seg); err != nil {
				return nil, NewParseError(ErrInvalidDirective, err.Error(), seg.Text, seg.Position, input)
			}
			if len(stack) == 0 {
				return nil, NewParseError(ErrUnbalancedBlock, "end without an open block", seg.Text, seg.Position, input)
			}
			top := stack[len(stack)-1]
			stack = stack[:len(stack)-1]
			appendToken(top.token)
		}
	}

	if len(stack) > 0 {
		open := stack[len(stack)-1].segment
		return nil, NewParseError(ErrUnbalancedBlock,
			fmt.Sprintf("%d block(s) not closed with end", len(stack)), open.Text, open.Position, input)
	}

	logger := GetLogger()
	if logger.IsDebugMode() {
		logger.WithField("token_count", len(root)).Debug("Token tree built")
	}
	return root, nil
}

// checkBare rejects trailing text after else and end.
func checkBare(seg Segment) error {
	keyword, rest := splitKeyword(seg.Text)
	if strings.TrimSpace(rest) != "" {
		return fmt.Errorf("unexpected text after %s: %q", keyword, strings.TrimSpace(rest))
	}
	return nil
}

// parseExpression parses the body of a bare expression directive:
//
//	[prefix,]path[(default)][,suffix][;renderer[(format)]]
func parseExpression(body string) (*ExpressionToken, error) {
	tok := &ExpressionToken{}
	expr := strings.TrimSpace(body)

	if i := strings.IndexByte(expr, ';'); i != -1 {
		ref := strings.TrimSpace(expr[i+1:])
		m := rendererRegex.FindStringSubmatch(ref)
		if m == nil {
			return nil, fmt.Errorf("invalid renderer reference %q", ref)
		}
		tok.Renderer = m[1]
		tok.Format = m[2]
		expr = strings.TrimSpace(expr[:i])
	}

	if first, last := wrapCommas(expr); first != -1 {
		if first == last {
			return nil, fmt.Errorf("wrapped expression %q needs prefix,path,suffix", expr)
		}
		tok.Prefix = expr[:first]
		tok.Suffix = expr[last+1:]
		expr = strings.TrimSpace(expr[first+1 : last])
	}

	if strings.HasSuffix(expr, ")") {
		open := strings.IndexByte(expr, '(')
		if open == -1 {
			return nil, fmt.Errorf("unbalanced parenthesis in %q", expr)
		}
		tok.Default = expr[open+1 : len(expr)-1]
		tok.HasDefault = true
		expr = strings.TrimSpace(expr[:open])
	}

	path, err := parsePath(expr)
	if err != nil {
		return nil, err
	}
	tok.Expression = expr
	tok.Path = path
	return tok, nil
}

// wrapCommas returns the positions of the first and last comma that are not
// inside a default value, or -1 when there is none. A parenthesis only opens
// a default when it directly follows a path character, so ${(,name,)} still
// wraps with "(" and ")".
func wrapCommas(expr string) (first, last int) {
	first, last = -1, -1
	depth := 0
	for i := 0; i < len(expr); i++ {
		switch c := expr[i]; {
		case c == '(' && (depth > 0 || (i > 0 && isPathByte(expr[i-1]))):
			depth++
		case c == ')' && depth > 0:
			depth--
		case c == ',' && depth == 0:
			if first == -1 {
				first = i
			}
			last = i
		}
	}
	return first, last
}

func isPathByte(c byte) bool {
	return c == '_' || c == ']' || c >= 0x80 ||
		('a' <= c && c <= 'z') || ('A' <= c && c <= 'Z') || ('0' <= c && c <= '9')
}

// parseIf parses the header of an if directive. A comparison with == or =
// produces an *IfCmpToken.
func parseIf(header string) (Token, error) {
	expr := strings.TrimSpace(header)
	negated := false
	if strings.HasPrefix(expr, "!") {
		negated = true
		expr = strings.TrimSpace(expr[1:])
	}

	operand, hasOperand := "", false
	if i := strings.Index(expr, "=="); i != -1 {
		operand, hasOperand = expr[i+2:], true
		expr = expr[:i]
	} else if i := strings.IndexByte(expr, '='); i != -1 {
		operand, hasOperand = expr[i+1:], true
		expr = expr[:i]
	}
	expr = strings.TrimSpace(expr)

	path, err := parsePath(expr)
	if err != nil {
		return nil, err
	}
	it := IfToken{Expression: expr, Path: path, Negated: negated}
	if !hasOperand {
		return &it, nil
	}
	return &IfCmpToken{IfToken: it, Operand: unquote(strings.TrimSpace(operand))}, nil
}

// parseForEach parses "source var [separator]". The separator is everything
// after the single whitespace rune following var, untrimmed. A line break
// right after var is part of the separator.
func parseForEach(header string) (*ForEachToken, error) {
	source, rest := splitKeyword(header)
	if source == "" {
		return nil, fmt.Errorf("foreach needs a source and a variable name")
	}
	varName, separator := splitKeyword(rest)
	after := strings.TrimLeftFunc(rest, unicode.IsSpace)[len(varName):]
	if strings.HasPrefix(after, "\n") || strings.HasPrefix(after, "\r\n") {
		separator = after
	}
	if varName == "" {
		return nil, fmt.Errorf("foreach over %q needs a variable name", source)
	}
	if !isIdentifier(varName) {
		return nil, fmt.Errorf("invalid loop variable name %q", varName)
	}
	path, err := parsePath(source)
	if err != nil {
		return nil, err
	}
	return &ForEachToken{
		Expression: source,
		Path:       path,
		VarName:    varName,
		Separator:  separator,
	}, nil
}

// parsePath splits a dotted path into segments. Bracket access is accepted
// as well, so a.b[0]['c'] and a.b.0.c are equivalent.
func parsePath(expression string) ([]string, error) {
	if expression == "" {
		return nil, fmt.Errorf("empty expression")
	}
	if strings.IndexFunc(expression, unicode.IsSpace) != -1 {
		return nil, fmt.Errorf("whitespace inside path %q", expression)
	}

	var parts []string
	remaining := expression
	idx := strings.IndexAny(remaining, ".[")
	if idx == 0 {
		return nil, fmt.Errorf("expression %q must start with a variable name", expression)
	}
	root := remaining
	if idx != -1 {
		root = remaining[:idx]
	}
	if !isVariableName(root) {
		return nil, fmt.Errorf("invalid variable name %q in %q", root, expression)
	}
	if idx == -1 {
		return []string{remaining}, nil
	}
	parts = append(parts, remaining[:idx])
	remaining = remaining[idx:]

	for remaining != "" {
		if strings.HasPrefix(remaining, ".") {
			matches := dotRegex.FindStringSubmatch(remaining)
			if len(matches) < 2 {
				return nil, fmt.Errorf("invalid dot notation in %q", expression)
			}
			parts = append(parts, matches[1])
			remaining = remaining[len(matches[0]):]
		} else if strings.HasPrefix(remaining, "[") {
			matches := bracketRegex.FindStringSubmatch(remaining)
			if len(matches) < 2 {
				return nil, fmt.Errorf("invalid bracket notation in %q", expression)
			}
			parts = append(parts, unquote(matches[1]))
			remaining = remaining[len(matches[0]):]
		} else {
			return nil, fmt.Errorf("unexpected character in %q", expression)
		}
	}
	return parts, nil
}

func unquote(s string) string {
	if len(s) >= 2 {
		if (s[0] == '\'' && s[len(s)-1] == '\'') || (s[0] == '"' && s[len(s)-1] == '"') {
			return s[1 : len(s)-1]
		}
	}
	return s
}

// isVariableName accepts model keys made of letters, digits, '_' and '-'.
// Digits may lead, so positional names such as ${1} work.
func isVariableName(s string) bool {
	for _, r := range s {
		if r == '_' || r == '-' || unicode.IsLetter(r) || unicode.IsDigit(r) {
			continue
		}
		return false
	}
	return s != ""
}

func isIdentifier(s string) bool {
	for i, r := range s {
		if r == '_' || unicode.IsLetter(r) || (i > 0 && unicode.IsDigit(r)) {
			continue
		}
		return false
	}
	return s != ""
}
