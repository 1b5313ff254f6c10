package jmte

import (
	"errors"
	"fmt"
	"strings"
	"testing"

	"golang.org/x/text/language"
)

func TestParseErrorMessage(t *testing.T) {
	err := NewParseError(ErrUnbalancedBlock, "end without an open block", "end", 9, "abc\ndef  ${end}")
	pe := err.(*ParseError)
	pe.Source = "letter.txt"

	want := "parse error in letter.txt at line 2, column 6 near 'end': end without an open block"
	if got := pe.Error(); got != want {
		t.Errorf("Error() = %q, want %q", got, want)
	}
	if !errors.Is(err, ErrUnbalancedBlock) {
		t.Error("ParseError should unwrap to its kind")
	}
}

func TestParseErrorWithoutInput(t *testing.T) {
	err := NewParseError(ErrInvalidDirective, "", "", 3, "")
	want := "parse error at position 3: invalid directive"
	if got := err.Error(); got != want {
		t.Errorf("Error() = %q, want %q", got, want)
	}
}

func TestErrorReportMessage(t *testing.T) {
	tests := []struct {
		name   string
		report ErrorReport
		want   string
	}{
		{
			name:   "unresolved root english",
			report: ErrorReport{Kind: ErrUnresolvedRoot, Path: "name", Locale: language.English},
			want:   `variable "name" is not defined in the model`,
		},
		{
			name:   "unresolved root german",
			report: ErrorReport{Kind: ErrUnresolvedRoot, Path: "name", Locale: language.German},
			want:   `Variable "name" ist im Modell nicht definiert`,
		},
		{
			name:   "index out of range",
			report: ErrorReport{Kind: ErrIndexOutOfRange, Path: "list.4", Detail: "4", Locale: language.English},
			want:   `cannot resolve "list.4": index 4 is out of range`,
		},
		{
			name:   "unknown renderer german",
			report: ErrorReport{Kind: ErrUnknownRenderer, Path: "x", Detail: "fancy", Locale: language.German},
			want:   `unbekannter Renderer "fancy" für "x"`,
		},
		{
			name:   "unsupported locale falls back to english",
			report: ErrorReport{Kind: ErrNotIterable, Path: "n", Locale: language.Japanese},
			want:   `cannot iterate over "n": value is not iterable`,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := tt.report.Message(); got != tt.want {
				t.Errorf("Message() = %q, want %q", got, tt.want)
			}
		})
	}
}

func TestErrorKindString(t *testing.T) {
	kinds := map[ErrorKind]string{
		ErrUnresolvedRoot:  "unresolved-root",
		ErrNotContainer:    "not-container",
		ErrIndexOutOfRange: "index-out-of-range",
		ErrNotIterable:     "not-iterable",
		ErrNilTraversal:    "nil-traversal",
		ErrUnknownRenderer: "unknown-renderer",
		ErrorKind(99):      "unknown",
	}
	for kind, want := range kinds {
		if got := kind.String(); got != want {
			t.Errorf("ErrorKind(%d).String() = %q, want %q", kind, got, want)
		}
	}
}

func TestErrorClassification(t *testing.T) {
	parseErr := fmt.Errorf("compiling: %w", NewParseError(ErrDuplicateElse, "x", "", 0, ""))
	report := fmt.Errorf("wrapped: %w", &ErrorReport{Kind: ErrNotIterable})
	configErr := NewConfigurationError("Locale", "bad")

	if !IsParseError(parseErr) || IsParseError(report) {
		t.Error("IsParseError classification is wrong")
	}
	if !IsResolutionError(report) || IsResolutionError(configErr) {
		t.Error("IsResolutionError classification is wrong")
	}
	if !IsConfigurationError(configErr) || IsConfigurationError(parseErr) {
		t.Error("IsConfigurationError classification is wrong")
	}
	if got := configErr.Error(); got != "configuration error in Locale: bad" {
		t.Errorf("ConfigurationError.Error() = %q", got)
	}
}

func TestRecoverError(t *testing.T) {
	cause := errors.New("cause")
	tests := []struct {
		value any
		want  string
	}{
		{cause, "panic recovered: cause"},
		{"text", "panic recovered: text"},
		{42, "panic recovered: 42"},
	}
	for _, tt := range tests {
		if got := RecoverError(tt.value).Error(); got != tt.want {
			t.Errorf("RecoverError(%v) = %q, want %q", tt.value, got, tt.want)
		}
	}
	if !errors.Is(RecoverError(cause), cause) {
		t.Error("RecoverError should wrap error values")
	}
}

func TestCollectingErrorHandler(t *testing.T) {
	h := NewCollectingErrorHandler()
	if h.Err() != nil || h.Len() != 0 || h.Reports() != nil {
		t.Fatal("new handler should be empty")
	}

	h.Handle(&ErrorReport{Kind: ErrUnresolvedRoot, Path: "a", Locale: language.English})
	h.Handle(&ErrorReport{Kind: ErrNotIterable, Path: "b", Locale: language.English})

	if h.Len() != 2 {
		t.Fatalf("Len() = %d, want 2", h.Len())
	}
	reports := h.Reports()
	if reports[0].Path != "a" || reports[1].Path != "b" {
		t.Errorf("reports out of order: %v", reports)
	}

	err := h.Err()
	if err == nil {
		t.Fatal("Err() = nil, want collected reports")
	}
	if !strings.Contains(err.Error(), `variable "a" is not defined`) {
		t.Errorf("Err() = %q, missing first report", err)
	}
	var report *ErrorReport
	if !errors.As(err, &report) {
		t.Error("Err() should expose the reports via errors.As")
	}

	h.Reset()
	if h.Len() != 0 || h.Err() != nil {
		t.Error("Reset() should drop all reports")
	}
}

func TestDefaultErrorHandlerLogs(t *testing.T) {
	var buf strings.Builder
	h := &DefaultErrorHandler{Logger: NewLogger(&buf, LogWarn)}

	out := h.Handle(&ErrorReport{
		Kind:   ErrUnresolvedRoot,
		Path:   "user",
		Token:  &ExpressionToken{Expression: "user", Path: []string{"user"}},
		Locale: language.English,
	})
	if out != "" {
		t.Errorf("Handle() = %q, want empty substitution", out)
	}
	logged := buf.String()
	for _, want := range []string{"level=WARN", "kind=unresolved-root", "path=user", "token=user", "not defined in the model"} {
		if !strings.Contains(logged, want) {
			t.Errorf("log output %q missing %q", logged, want)
		}
	}
}
