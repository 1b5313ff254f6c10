package renderers

import (
	"html"
	"reflect"
	"strings"
	"sync"

	"github.com/microcosm-cc/bluemonday"
	"golang.org/x/text/language"

	"github.com/benjaminschreck/go-jmte/pkg/jmte"
)

var (
	policyOnce   sync.Once
	strictPolicy *bluemonday.Policy
	ugcPolicy    *bluemonday.Policy
)

func policies() (*bluemonday.Policy, *bluemonday.Policy) {
	policyOnce.Do(func() {
		strictPolicy = bluemonday.StrictPolicy()
		ugcPolicy = bluemonday.UGCPolicy()
	})
	return strictPolicy, ugcPolicy
}

// HTML makes values safe to embed in HTML. The format selects the policy:
//
//	(empty) or strict  strip every tag
//	ugc                keep formatting markup such as <b> and <a href>
//	escape             escape <, >, &, ' and " without removing anything
type HTML struct{}

func (HTML) Name() string { return "html" }

func (HTML) SupportedTypes() []reflect.Type { return nil }

func (HTML) Render(value any, format string, _ language.Tag) string {
	text := jmte.FormatValue(value)
	if text == "" {
		return ""
	}
	strict, ugc := policies()
	switch strings.TrimSpace(format) {
	case "ugc":
		return ugc.Sanitize(text)
	case "escape":
		return html.EscapeString(text)
	default:
		return strict.Sanitize(text)
	}
}
