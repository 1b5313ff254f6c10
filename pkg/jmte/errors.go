package jmte

import (
	"errors"
	"fmt"
	"strings"

	"golang.org/x/text/language"
	"golang.org/x/text/message"
	"golang.org/x/text/message/catalog"
)

// Parse error kinds. A *ParseError unwraps to one of these.
var (
	ErrUnmatchedDelimiter = errors.New("unmatched start delimiter")
	ErrUnbalancedBlock    = errors.New("unbalanced block")
	ErrElseWithoutIf      = errors.New("else without if")
	ErrDuplicateElse      = errors.New("duplicate else")
	ErrInvalidDirective   = errors.New("invalid directive")
)

// ParseError represents a fatal error found while compiling a template.
// Compilation stops at the first one and nothing is evaluated.
type ParseError struct {
	Kind     error
	Message  string
	Token    string
	Source   string
	Position int
	Line     int
	Column   int
}

func (e *ParseError) Error() string {
	var b strings.Builder
	b.WriteString("parse error")
	if e.Source != "" {
		fmt.Fprintf(&b, " in %s", e.Source)
	}
	if e.Line > 0 {
		fmt.Fprintf(&b, " at line %d, column %d", e.Line, e.Column)
	} else {
		fmt.Fprintf(&b, " at position %d", e.Position)
	}
	if e.Token != "" {
		fmt.Fprintf(&b, " near '%s'", e.Token)
	}
	b.WriteString(": ")
	if e.Message != "" {
		b.WriteString(e.Message)
	} else if e.Kind != nil {
		b.WriteString(e.Kind.Error())
	}
	return b.String()
}

func (e *ParseError) Unwrap() error {
	return e.Kind
}

// NewParseError creates a parse error and derives line and column from the
// byte position within input.
func NewParseError(kind error, message, token string, position int, input string) error {
	line, column := lineColumn(input, position)
	return &ParseError{
		Kind:     kind,
		Message:  message,
		Token:    token,
		Position: position,
		Line:     line,
		Column:   column,
	}
}

func lineColumn(input string, position int) (int, int) {
	if position < 0 || position > len(input) {
		return 0, 0
	}
	before := input[:position]
	line := strings.Count(before, "\n") + 1
	column := position - strings.LastIndex(before, "\n")
	return line, column
}

// ErrorKind classifies non-fatal resolution problems reported while a
// template is evaluated.
type ErrorKind int

const (
	ErrUnresolvedRoot ErrorKind = iota
	ErrNotContainer
	ErrIndexOutOfRange
	ErrNotIterable
	ErrNilTraversal
	ErrUnknownRenderer
)

func (k ErrorKind) String() string {
	switch k {
	case ErrUnresolvedRoot:
		return "unresolved-root"
	case ErrNotContainer:
		return "not-container"
	case ErrIndexOutOfRange:
		return "index-out-of-range"
	case ErrNotIterable:
		return "not-iterable"
	case ErrNilTraversal:
		return "nil-traversal"
	case ErrUnknownRenderer:
		return "unknown-renderer"
	default:
		return "unknown"
	}
}

// ErrorReport is handed to the ErrorHandler whenever a value cannot be
// resolved, iterated or rendered. Evaluation always continues afterwards.
type ErrorReport struct {
	Kind   ErrorKind
	Path   string
	Detail string
	Token  Token
	Locale language.Tag
	Cause  error
}

func (r *ErrorReport) Error() string {
	return r.Message()
}

func (r *ErrorReport) Unwrap() error {
	return r.Cause
}

// Message returns the report text translated for the report's locale.
func (r *ErrorReport) Message() string {
	p := message.NewPrinter(r.Locale, message.Catalog(messages))
	switch r.Kind {
	case ErrUnresolvedRoot:
		return p.Sprintf(msgUnresolvedRoot, r.Path)
	case ErrNotContainer:
		return p.Sprintf(msgNotContainer, r.Path, r.Detail)
	case ErrIndexOutOfRange:
		return p.Sprintf(msgIndexOutOfRange, r.Path, r.Detail)
	case ErrNotIterable:
		return p.Sprintf(msgNotIterable, r.Path)
	case ErrNilTraversal:
		return p.Sprintf(msgNilTraversal, r.Path, r.Detail)
	case ErrUnknownRenderer:
		return p.Sprintf(msgUnknownRenderer, r.Detail, r.Path)
	default:
		return p.Sprintf(msgUnknown, r.Path)
	}
}

const (
	msgUnresolvedRoot  = "variable %q is not defined in the model"
	msgNotContainer    = "cannot resolve %q: segment %q is applied to a value that is not a container"
	msgIndexOutOfRange = "cannot resolve %q: index %s is out of range"
	msgNotIterable     = "cannot iterate over %q: value is not iterable"
	msgNilTraversal    = "cannot resolve %q: value before segment %q is nil"
	msgUnknownRenderer = "unknown renderer %q used for %q"
	msgUnknown         = "cannot evaluate %q"
)

var messages = func() *catalog.Builder {
	b := catalog.NewBuilder(catalog.Fallback(language.English))
	de := map[string]string{
		msgUnresolvedRoot:  "Variable %q ist im Modell nicht definiert",
		msgNotContainer:    "%q kann nicht aufgelöst werden: Segment %q wird auf einen Wert angewendet, der kein Container ist",
		msgIndexOutOfRange: "%q kann nicht aufgelöst werden: Index %s liegt außerhalb des gültigen Bereichs",
		msgNotIterable:     "über %q kann nicht iteriert werden: Wert ist nicht iterierbar",
		msgNilTraversal:    "%q kann nicht aufgelöst werden: Wert vor Segment %q ist nil",
		msgUnknownRenderer: "unbekannter Renderer %q für %q",
		msgUnknown:         "%q kann nicht ausgewertet werden",
	}
	for key, msg := range de {
		_ = b.SetString(language.German, key, msg)
	}
	return b
}()

// ConfigurationError reports invalid engine configuration or invalid input to
// a model helper. It is always returned to the caller.
type ConfigurationError struct {
	Field   string
	Message string
}

func (e *ConfigurationError) Error() string {
	if e.Field != "" {
		return fmt.Sprintf("configuration error in %s: %s", e.Field, e.Message)
	}
	return fmt.Sprintf("configuration error: %s", e.Message)
}

// NewConfigurationError creates a new configuration error
func NewConfigurationError(field, message string) error {
	return &ConfigurationError{Field: field, Message: message}
}

// RecoverError converts a panic recovery value to an error
func RecoverError(r interface{}) error {
	switch v := r.(type) {
	case error:
		return fmt.Errorf("panic recovered: %w", v)
	case string:
		return fmt.Errorf("panic recovered: %s", v)
	default:
		return fmt.Errorf("panic recovered: %v", v)
	}
}

// IsParseError checks if an error is a parse error
func IsParseError(err error) bool {
	var pe *ParseError
	return errors.As(err, &pe)
}

// IsResolutionError checks if an error is a resolution report
func IsResolutionError(err error) bool {
	var re *ErrorReport
	return errors.As(err, &re)
}

// IsConfigurationError checks if an error is a configuration error
func IsConfigurationError(err error) bool {
	var ce *ConfigurationError
	return errors.As(err, &ce)
}
