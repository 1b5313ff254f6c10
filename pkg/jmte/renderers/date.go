package renderers

import (
	"fmt"
	"reflect"
	"strings"
	"time"

	"golang.org/x/text/language"

	"github.com/benjaminschreck/go-jmte/pkg/jmte"
)

// DefaultDatePattern is used when a template gives no pattern.
const DefaultDatePattern = "yyyy-MM-dd"

// Date formats time values with Java style patterns such as
// "dd.MM.yyyy HH:mm". Month and weekday names follow the engine locale for
// German, French and Spanish. Strings and Unix timestamps are parsed first.
type Date struct{}

func (Date) Name() string { return "date" }

func (Date) SupportedTypes() []reflect.Type {
	return []reflect.Type{reflect.TypeFor[time.Time](), reflect.TypeFor[string](), reflect.TypeFor[int64]()}
}

func (Date) Render(value any, format string, locale language.Tag) string {
	t, err := parseDate(value)
	if err != nil {
		return jmte.FormatValue(value)
	}
	if format == "" {
		format = DefaultDatePattern
	}
	base, _ := locale.Base()
	return formatDate(t, format, base.String())
}

// Common date format patterns that we'll try to parse
var commonDateFormats = []string{
	time.RFC3339Nano,
	time.RFC3339,
	"2006-01-02T15:04:05",
	"2006-01-02 15:04:05",
	"2006-01-02",
	"01/02/2006",
	"02.01.2006",
	"2006/01/02",
	"Jan 2, 2006",
	"January 2, 2006",
}

// parseDate attempts to parse a date from various input types
func parseDate(value any) (time.Time, error) {
	switch v := value.(type) {
	case time.Time:
		return v, nil
	case *time.Time:
		if v == nil {
			return time.Time{}, fmt.Errorf("cannot parse nil time pointer")
		}
		return *v, nil
	case int64:
		// Values this large are milliseconds
		if v > 1e10 {
			return time.UnixMilli(v).UTC(), nil
		}
		return time.Unix(v, 0).UTC(), nil
	case int:
		return parseDate(int64(v))
	case string:
		for _, format := range commonDateFormats {
			if parsed, err := time.Parse(format, strings.TrimSpace(v)); err == nil {
				return parsed, nil
			}
		}
		return time.Time{}, fmt.Errorf("could not parse date string: %s", v)
	default:
		return time.Time{}, fmt.Errorf("cannot parse %T as date", value)
	}
}

// javaLayouts maps runs of a pattern letter to Go layout elements, indexed by
// run length. Longer runs use the last entry.
var javaLayouts = map[byte][]string{
	'y': {"", "2006", "06", "2006", "2006"},
	'M': {"", "1", "01", "Jan", "January"},
	'd': {"", "2", "02"},
	'H': {"", "15", "15"},
	'h': {"", "3", "03"},
	'm': {"", "4", "04"},
	's': {"", "5", "05"},
	'E': {"", "Mon", "Mon", "Mon", "Monday"},
	'a': {"", "PM"},
	'z': {"", "MST"},
	'Z': {"", "-0700"},
	'X': {"", "Z07", "Z0700", "Z07:00"},
}

// formatDate renders t with a Java SimpleDateFormat pattern. Text in single
// quotes and characters that are not pattern letters are copied literally.
func formatDate(t time.Time, pattern, lang string) string {
	tr := dateTranslationsByLanguage[lang]

	var b strings.Builder
	for i := 0; i < len(pattern); {
		c := pattern[i]

		if c == '\'' {
			end := strings.IndexByte(pattern[i+1:], '\'')
			if end == -1 {
				b.WriteString(pattern[i+1:])
				break
			}
			if end == 0 {
				b.WriteByte('\'')
			} else {
				b.WriteString(pattern[i+1 : i+1+end])
			}
			i += end + 2
			continue
		}

		run := 1
		for i+run < len(pattern) && pattern[i+run] == c {
			run++
		}

		if c == 'S' {
			digits := min(run, 9)
			fraction := t.Nanosecond()
			for range 9 - digits {
				fraction /= 10
			}
			fmt.Fprintf(&b, "%0*d", digits, fraction)
			i += run
			continue
		}

		layouts, ok := javaLayouts[c]
		if !ok {
			b.WriteString(pattern[i : i+run])
			i += run
			continue
		}
		layout := layouts[min(run, len(layouts)-1)]
		b.WriteString(tr.translate(layout, t.Format(layout)))
		i += run
	}
	return b.String()
}

type dateTranslations struct {
	months        map[string]string
	monthsShort   map[string]string
	weekdays      map[string]string
	weekdaysShort map[string]string
}

var dateTranslationsByLanguage = map[string]*dateTranslations{
	"de": {
		months: map[string]string{
			"January": "Januar", "February": "Februar", "March": "März",
			"April": "April", "May": "Mai", "June": "Juni",
			"July": "Juli", "August": "August", "September": "September",
			"October": "Oktober", "November": "November", "December": "Dezember",
		},
		monthsShort: map[string]string{
			"Mar": "Mär", "May": "Mai", "Oct": "Okt", "Dec": "Dez",
		},
		weekdays: map[string]string{
			"Monday": "Montag", "Tuesday": "Dienstag", "Wednesday": "Mittwoch",
			"Thursday": "Donnerstag", "Friday": "Freitag",
			"Saturday": "Samstag", "Sunday": "Sonntag",
		},
		weekdaysShort: map[string]string{
			"Mon": "Mo", "Tue": "Di", "Wed": "Mi",
			"Thu": "Do", "Fri": "Fr", "Sat": "Sa", "Sun": "So",
		},
	},
	"fr": {
		months: map[string]string{
			"January": "janvier", "February": "février", "March": "mars",
			"April": "avril", "May": "mai", "June": "juin",
			"July": "juillet", "August": "août", "September": "septembre",
			"October": "octobre", "November": "novembre", "December": "décembre",
		},
		monthsShort: map[string]string{
			"Jan": "janv.", "Feb": "févr.", "Mar": "mars",
			"Apr": "avr.", "May": "mai", "Jun": "juin",
			"Jul": "juil.", "Aug": "août", "Sep": "sept.",
			"Oct": "oct.", "Nov": "nov.", "Dec": "déc.",
		},
		weekdays: map[string]string{
			"Monday": "lundi", "Tuesday": "mardi", "Wednesday": "mercredi",
			"Thursday": "jeudi", "Friday": "vendredi",
			"Saturday": "samedi", "Sunday": "dimanche",
		},
		weekdaysShort: map[string]string{
			"Mon": "lun.", "Tue": "mar.", "Wed": "mer.",
			"Thu": "jeu.", "Fri": "ven.", "Sat": "sam.", "Sun": "dim.",
		},
	},
	"es": {
		months: map[string]string{
			"January": "enero", "February": "febrero", "March": "marzo",
			"April": "abril", "May": "mayo", "June": "junio",
			"July": "julio", "August": "agosto", "September": "septiembre",
			"October": "octubre", "November": "noviembre", "December": "diciembre",
		},
		monthsShort: map[string]string{
			"Jan": "ene", "Feb": "feb", "Mar": "mar",
			"Apr": "abr", "May": "may", "Jun": "jun",
			"Jul": "jul", "Aug": "ago", "Sep": "sept",
			"Oct": "oct", "Nov": "nov", "Dec": "dic",
		},
		weekdays: map[string]string{
			"Monday": "lunes", "Tuesday": "martes", "Wednesday": "miércoles",
			"Thursday": "jueves", "Friday": "viernes",
			"Saturday": "sábado", "Sunday": "domingo",
		},
		weekdaysShort: map[string]string{
			"Mon": "lun", "Tue": "mar", "Wed": "mié",
			"Thu": "jue", "Fri": "vie", "Sat": "sáb", "Sun": "dom",
		},
	},
}

// translate returns the localized form of a month or weekday name produced by
// layout, or text unchanged.
func (tr *dateTranslations) translate(layout, text string) string {
	if tr == nil {
		return text
	}
	var table map[string]string
	switch layout {
	case "January":
		table = tr.months
	case "Jan":
		table = tr.monthsShort
	case "Monday":
		table = tr.weekdays
	case "Mon":
		table = tr.weekdaysShort
	default:
		return text
	}
	if translated, ok := table[text]; ok {
		return translated
	}
	return text
}
