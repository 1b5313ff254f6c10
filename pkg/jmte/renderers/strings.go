package renderers

import (
	"reflect"
	"strings"

	"golang.org/x/text/cases"
	"golang.org/x/text/language"

	"github.com/benjaminschreck/go-jmte/pkg/jmte"
)

var stringTypes = []reflect.Type{reflect.TypeFor[string]()}

// Upper renders text in upper case using the engine locale's casing rules.
type Upper struct{}

func (Upper) Name() string                   { return "upper" }
func (Upper) SupportedTypes() []reflect.Type { return stringTypes }

func (Upper) Render(value any, _ string, locale language.Tag) string {
	return cases.Upper(locale).String(jmte.FormatValue(value))
}

// Lower renders text in lower case using the engine locale's casing rules.
type Lower struct{}

func (Lower) Name() string                   { return "lower" }
func (Lower) SupportedTypes() []reflect.Type { return stringTypes }

func (Lower) Render(value any, _ string, locale language.Tag) string {
	return cases.Lower(locale).String(jmte.FormatValue(value))
}

// Title upper-cases the first letter of every word.
type Title struct{}

func (Title) Name() string                   { return "title" }
func (Title) SupportedTypes() []reflect.Type { return stringTypes }

func (Title) Render(value any, _ string, locale language.Tag) string {
	return cases.Title(locale).String(jmte.FormatValue(value))
}

// Trim removes surrounding whitespace, or the characters given as format.
type Trim struct{}

func (Trim) Name() string                   { return "trim" }
func (Trim) SupportedTypes() []reflect.Type { return stringTypes }

func (Trim) Render(value any, format string, _ language.Tag) string {
	text := jmte.FormatValue(value)
	if format == "" {
		return strings.TrimSpace(text)
	}
	return strings.Trim(text, format)
}
