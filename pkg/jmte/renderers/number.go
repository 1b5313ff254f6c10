package renderers

import (
	"fmt"
	"reflect"
	"strconv"
	"strings"

	"golang.org/x/text/language"
	"golang.org/x/text/message"
	"golang.org/x/text/number"

	"github.com/benjaminschreck/go-jmte/pkg/jmte"
)

var numberTypes = []reflect.Type{
	reflect.TypeFor[int](),
	reflect.TypeFor[int8](),
	reflect.TypeFor[int16](),
	reflect.TypeFor[int32](),
	reflect.TypeFor[int64](),
	reflect.TypeFor[uint](),
	reflect.TypeFor[uint8](),
	reflect.TypeFor[uint16](),
	reflect.TypeFor[uint32](),
	reflect.TypeFor[uint64](),
	reflect.TypeFor[float32](),
	reflect.TypeFor[float64](),
}

// Number formats numbers for the engine locale. The format is one of:
//
//	(empty)     locale default, e.g. 1,234.5
//	percent     0.25 becomes 25%
//	2           exactly two fraction digits
//	#,##0.00    pattern: fraction digits after '.', grouping only with ','
type Number struct{}

func (Number) Name() string { return "number" }

func (Number) SupportedTypes() []reflect.Type { return numberTypes }

func (Number) Render(value any, format string, locale language.Tag) string {
	n, err := toNumber(value)
	if err != nil {
		return jmte.FormatValue(value)
	}

	p := message.NewPrinter(locale)
	format = strings.TrimSpace(format)
	switch {
	case format == "":
		return p.Sprint(number.Decimal(n))
	case format == "percent":
		return p.Sprint(number.Percent(n))
	}

	if scale, err := strconv.Atoi(format); err == nil {
		return p.Sprint(number.Decimal(n, number.Scale(scale)))
	}

	opts := []number.Option{number.Scale(fractionDigits(format))}
	if !strings.Contains(format, ",") {
		opts = append(opts, number.NoSeparator())
	}
	return p.Sprint(number.Decimal(n, opts...))
}

// fractionDigits counts the 0 and # placeholders after the decimal point of
// a pattern such as "#,##0.00".
func fractionDigits(pattern string) int {
	i := strings.IndexByte(pattern, '.')
	if i == -1 {
		return 0
	}
	digits := 0
	for _, r := range pattern[i+1:] {
		if r != '0' && r != '#' {
			break
		}
		digits++
	}
	return digits
}

// toNumber converts various types to float64
func toNumber(val any) (float64, error) {
	switch v := val.(type) {
	case float64:
		return v, nil
	case float32:
		return float64(v), nil
	case int:
		return float64(v), nil
	case int8:
		return float64(v), nil
	case int16:
		return float64(v), nil
	case int32:
		return float64(v), nil
	case int64:
		return float64(v), nil
	case uint:
		return float64(v), nil
	case uint8:
		return float64(v), nil
	case uint16:
		return float64(v), nil
	case uint32:
		return float64(v), nil
	case uint64:
		return float64(v), nil
	case string:
		return strconv.ParseFloat(strings.TrimSpace(v), 64)
	default:
		return 0, fmt.Errorf("cannot convert %T to number", val)
	}
}
