package jmte

import (
	"strings"
	"unicode"
	"unicode/utf8"
)

// SegmentKind classifies a raw template segment
type SegmentKind int

const (
	SegmentLiteral SegmentKind = iota
	SegmentExpression
	SegmentIf
	SegmentElse
	SegmentForEach
	SegmentEnd
)

func (k SegmentKind) String() string {
	switch k {
	case SegmentLiteral:
		return "literal"
	case SegmentExpression:
		return "expression"
	case SegmentIf:
		return "if"
	case SegmentElse:
		return "else"
	case SegmentForEach:
		return "foreach"
	case SegmentEnd:
		return "end"
	default:
		return "unknown"
	}
}

// Directive keywords
const (
	keywordIf      = "if"
	keywordElse    = "else"
	keywordForEach = "foreach"
	keywordEnd     = "end"
)

// escapeChar placed directly before the start delimiter turns it into text.
const escapeChar = '\\'

// Segment is one lexed piece of a template. For literals Text is the verbatim
// text, for directives it is the untrimmed body between the delimiters.
type Segment struct {
	Kind     SegmentKind
	Text     string
	Position int
}

// Lex splits input into literal and directive segments in a single
// left-to-right pass. A start delimiter without a matching end delimiter is a
// fatal *ParseError.
func Lex(input, start, end string) ([]Segment, error) {
	if start == "" || end == "" {
		return nil, NewConfigurationError("delimiters", "start and end delimiters must not be empty")
	}

	logger := GetLogger()
	if logger.IsDebugMode() {
		logger.WithField("input_length", len(input)).Debug("Starting lexing")
	}

	var segments []Segment
	appendLiteral := func(text string, pos int) {
		if text == "" {
			return
		}
		if n := len(segments); n > 0 && segments[n-1].Kind == SegmentLiteral {
			segments[n-1].Text += text
			return
		}
		segments = append(segments, Segment{Kind: SegmentLiteral, Text: text, Position: pos})
	}

	pos := 0
	for pos < len(input) {
		idx := strings.Index(input[pos:], start)
		if idx == -1 {
			appendLiteral(input[pos:], pos)
			break
		}
		startPos := pos + idx

		if startPos > 0 && input[startPos-1] == escapeChar {
			appendLiteral(input[pos:startPos-1]+start, pos)
			pos = startPos + len(start)
			continue
		}

		appendLiteral(input[pos:startPos], pos)

		bodyStart := startPos + len(start)
		endIdx := directiveEnd(input[bodyStart:], end)
		if endIdx == -1 {
			return nil, NewParseError(ErrUnmatchedDelimiter,
				"missing '"+end+"' for '"+start+"'", snippet(input[startPos:]), startPos, input)
		}
		body := input[bodyStart : bodyStart+endIdx]
		segment := Segment{Kind: classify(body), Text: body, Position: startPos}
		if logger.IsDebugMode() {
			logger.WithFields(Fields{
				"kind":     segment.Kind,
				"content":  body,
				"position": startPos,
			}).Debug("Found directive")
		}
		segments = append(segments, segment)
		pos = bodyStart + endIdx + len(end)
	}

	if logger.IsDebugMode() {
		logger.WithField("segment_count", len(segments)).Debug("Lexing complete")
	}

	return segments, nil
}

// directiveEnd returns the index of the end delimiter in rest, or -1. In an
// if directive a quoted comparison operand may contain the end delimiter; an
// unterminated quote is ordinary text.
func directiveEnd(rest, end string) int {
	if keyword, _ := splitKeyword(rest); keyword != keywordIf {
		return strings.Index(rest, end)
	}
	for i := 0; i < len(rest); {
		if strings.HasPrefix(rest[i:], end) {
			return i
		}
		if c := rest[i]; c == '\'' || c == '"' {
			if closing := strings.IndexByte(rest[i+1:], c); closing != -1 {
				i += closing + 2
				continue
			}
		}
		i++
	}
	return -1
}

// classify determines the directive kind from the leading keyword of body
func classify(body string) SegmentKind {
	keyword, _ := splitKeyword(body)
	switch keyword {
	case keywordIf:
		return SegmentIf
	case keywordElse:
		return SegmentElse
	case keywordForEach:
		return SegmentForEach
	case keywordEnd:
		return SegmentEnd
	default:
		return SegmentExpression
	}
}

// splitKeyword returns the first word of body and everything after the single
// whitespace rune that follows it. The remainder is not trimmed.
func splitKeyword(body string) (string, string) {
	s := strings.TrimLeftFunc(body, unicode.IsSpace)
	i := strings.IndexFunc(s, unicode.IsSpace)
	if i == -1 {
		return s, ""
	}
	_, width := utf8.DecodeRuneInString(s[i:])
	return s[:i], s[i+width:]
}

func snippet(s string) string {
	const limit = 20
	if len(s) <= limit {
		return s
	}
	return s[:limit] + "..."
}
