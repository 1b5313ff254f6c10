// Package jmte is a small text template engine.
//
// A template is plain text with directives between "${" and "}". Templates
// are compiled once into an immutable token tree and transformed with a model,
// a map of names to values:
//
//	out, err := jmte.Transform("Hello ${name}!", map[string]any{"name": "World"})
//	if err != nil {
//	    log.Fatal(err)
//	}
//	fmt.Println(out) // Hello World!
//
// # Template Syntax
//
// Expressions:
//
//	${name}                  - Variable
//	${address.city}          - Nested access (map keys, struct fields, getters)
//	${items.0} ${items[0]}   - Index access
//	${name(anonymous)}       - Default used when name is missing or nil
//	${<b>,name,</b>}         - Prefix and suffix, emitted only around non-empty output
//	${price;number(#,##0.00)} - Named renderer with a format
//	\${name}                 - Literal "${name}"
//
// Control Structures:
//
//	${if admin}...${else}...${end}     - Truthiness test
//	${if !admin}...${end}              - Negation
//	${if role=='admin'}...${end}       - Comparison with a literal
//	${foreach items item , }${item}${end} - Loop with separator ", "
//
// Inside a foreach body the loop variable and the booleans first_<var>,
// last_<var>, odd_<var> and even_<var> are bound. None of them are visible
// after the matching end.
//
// # Errors
//
// Malformed templates fail with a *ParseError before anything is evaluated.
// Values that cannot be resolved or iterated never fail a transform: each
// problem is passed to the engine's ErrorHandler as an *ErrorReport and the
// value renders as the handler's substitute text, normally empty.
//
// # Renderers
//
// Values are converted to text by a Renderer chosen through a
// RendererRegistry keyed by reflect.Type. Registering a renderer for an
// interface type applies it to every implementing type. The package
// github.com/benjaminschreck/go-jmte/pkg/jmte/renderers provides named
// renderers for numbers, dates, HTML and string case.
//
// # Configuration
//
// Engines read their defaults from JMTE_* environment variables or a YAML file
// loaded with LoadConfigFile:
//
//	JMTE_EXPR_START, JMTE_EXPR_END      - Delimiters
//	JMTE_LOCALE                         - BCP 47 locale (default "en")
//	JMTE_REPORT_NIL_TRAVERSAL           - Report paths stepping through nil
//	JMTE_CACHE_MAX_SIZE, JMTE_CACHE_TTL - Compiled template cache
//	JMTE_LOG_LEVEL, JMTE_LOG_FORMAT     - Logging (debug|info|warn|error|off, text|json)
package jmte
