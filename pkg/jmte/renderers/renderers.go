// Package renderers provides named renderers for go-jmte templates:
//
//	${amount;number(#,##0.00)}   ${ratio;number(percent)}
//	${created;date(dd.MM.yyyy)}  ${comment;html(ugc)}
//	${name;upper} ${name;lower} ${name;title} ${code;trim(-)}
package renderers

import (
	"fmt"

	"github.com/benjaminschreck/go-jmte/pkg/jmte"
)

// All returns one instance of every renderer in this package.
func All() []jmte.NamedRenderer {
	return []jmte.NamedRenderer{
		Number{},
		Date{},
		HTML{},
		Upper{},
		Lower{},
		Title{},
		Trim{},
	}
}

// Register adds every renderer in this package to engine.
func Register(engine *jmte.Engine) error {
	for _, r := range All() {
		if err := engine.RegisterNamedRenderer(r); err != nil {
			return fmt.Errorf("registering renderer %s: %w", r.Name(), err)
		}
	}
	return nil
}
