package jmte

import (
	"reflect"
	"slices"
	"sync"

	"golang.org/x/text/language"
)

// Engine compiles and transforms templates. An engine may be shared by
// concurrent transforms once it is configured; configuration changes must not
// race with transforms.
type Engine struct {
	mu           sync.RWMutex
	config       *Config
	registry     *RendererRegistry
	errorHandler ErrorHandler
	listeners    []ProcessListener
	sourceName   string
	cache        *TemplateCache
}

// New creates a new engine with the global configuration.
func New() *Engine {
	return NewWithConfig(GetGlobalConfig())
}

// NewWithConfig creates a new engine with custom configuration. Unset fields
// take their default values.
func NewWithConfig(config *Config) *Engine {
	config = NewConfigWithDefaults(config)
	return &Engine{
		config:       config,
		registry:     NewRendererRegistry(),
		errorHandler: &DefaultErrorHandler{},
		cache: NewTemplateCacheWithConfig(CacheConfig{
			MaxSize: config.CacheMaxSize,
			TTL:     config.CacheTTL,
		}),
	}
}

// Option represents a configuration option for the engine.
type Option func(*Engine)

// NewWithOptions creates a new engine with the specified options.
func NewWithOptions(opts ...Option) *Engine {
	engine := New()
	for _, opt := range opts {
		opt(engine)
	}
	return engine
}

// WithConfig returns an option that sets the engine configuration.
func WithConfig(config *Config) Option {
	return func(e *Engine) {
		e.SetConfig(config)
	}
}

// WithCache returns an option that sets the cache size (0 disables caching).
func WithCache(maxSize int) Option {
	return func(e *Engine) {
		e.config.CacheMaxSize = maxSize
		e.cache = NewTemplateCacheWithConfig(CacheConfig{MaxSize: maxSize, TTL: e.config.CacheTTL})
	}
}

// WithDelimiters returns an option that replaces "${" and "}".
func WithDelimiters(start, end string) Option {
	return func(e *Engine) {
		e.config.ExprStartToken = start
		e.config.ExprEndToken = end
	}
}

// WithLocale returns an option that sets the locale used by renderers and
// error messages.
func WithLocale(locale string) Option {
	return func(e *Engine) {
		e.config.Locale = locale
	}
}

// WithErrorHandler returns an option that sets the error handler.
func WithErrorHandler(handler ErrorHandler) Option {
	return func(e *Engine) {
		e.SetErrorHandler(handler)
	}
}

// WithProcessListener returns an option that adds a process listener.
func WithProcessListener(listener ProcessListener) Option {
	return func(e *Engine) {
		e.AddProcessListener(listener)
	}
}

// WithNamedRenderer returns an option that registers a named renderer.
func WithNamedRenderer(renderer NamedRenderer) Option {
	return func(e *Engine) {
		if err := e.RegisterNamedRenderer(renderer); err != nil {
			Warn("Ignoring named renderer: %v", err)
		}
	}
}

// WithSourceName returns an option that names the template source in parse
// errors.
func WithSourceName(name string) Option {
	return func(e *Engine) {
		e.SetSourceName(name)
	}
}

// Config returns the engine's configuration.
func (e *Engine) Config() *Config {
	return e.config
}

// SetConfig replaces the engine's configuration and resets the cache.
func (e *Engine) SetConfig(config *Config) {
	e.config = NewConfigWithDefaults(config)
	e.cache = NewTemplateCacheWithConfig(CacheConfig{
		MaxSize: e.config.CacheMaxSize,
		TTL:     e.config.CacheTTL,
	})
}

// SetErrorHandler sets the handler that receives resolution problems. nil
// restores the default handler.
func (e *Engine) SetErrorHandler(handler ErrorHandler) {
	if handler == nil {
		handler = &DefaultErrorHandler{}
	}
	e.mu.Lock()
	e.errorHandler = handler
	e.mu.Unlock()
}

// ErrorHandler returns the current error handler.
func (e *Engine) ErrorHandler() ErrorHandler {
	e.mu.RLock()
	defer e.mu.RUnlock()
	return e.errorHandler
}

// SetSourceName names the template source in parse errors.
func (e *Engine) SetSourceName(name string) {
	e.mu.Lock()
	e.sourceName = name
	e.mu.Unlock()
}

// Locale returns the parsed engine locale.
func (e *Engine) Locale() language.Tag {
	return e.config.LocaleTag()
}

// AddProcessListener registers a listener for evaluation events.
func (e *Engine) AddProcessListener(listener ProcessListener) {
	if listener == nil {
		return
	}
	e.mu.Lock()
	e.listeners = append(e.listeners, listener)
	e.mu.Unlock()
}

// RemoveProcessListener unregisters a listener added earlier. Listeners of a
// non-comparable type such as ProcessListenerFunc cannot be removed.
func (e *Engine) RemoveProcessListener(listener ProcessListener) {
	if listener == nil || !reflect.TypeOf(listener).Comparable() {
		return
	}
	e.mu.Lock()
	defer e.mu.Unlock()
	e.listeners = slices.DeleteFunc(e.listeners, func(l ProcessListener) bool {
		return reflect.TypeOf(l).Comparable() && l == listener
	})
}

// Registry exposes the engine's renderer registry.
func (e *Engine) Registry() *RendererRegistry {
	return e.registry
}

// RegisterRenderer installs the default renderer for values of type t.
func (e *Engine) RegisterRenderer(t reflect.Type, renderer Renderer) error {
	return e.registry.Register(t, renderer)
}

// DeregisterRenderer removes the default renderer for t.
func (e *Engine) DeregisterRenderer(t reflect.Type) {
	e.registry.Deregister(t)
}

// RegisterNamedRenderer makes renderer available as ${expr;name}.
func (e *Engine) RegisterNamedRenderer(renderer NamedRenderer) error {
	return e.registry.RegisterNamed(renderer)
}

// DeregisterNamedRenderer removes a named renderer.
func (e *Engine) DeregisterNamedRenderer(renderer NamedRenderer) {
	e.registry.DeregisterNamed(renderer)
}

// ResolveNamedRenderer returns the named renderer called name.
func (e *Engine) ResolveNamedRenderer(name string) (NamedRenderer, bool) {
	return e.registry.Named(name)
}

// AllNamedRenderers returns every named renderer sorted by name.
func (e *Engine) AllNamedRenderers() []NamedRenderer {
	return e.registry.AllNamed()
}

// CompatibleRenderers returns the named renderers that support values of t.
func (e *Engine) CompatibleRenderers(t reflect.Type) []NamedRenderer {
	return e.registry.CompatibleNamed(t)
}

func (e *Engine) environment() environment {
	e.mu.RLock()
	defer e.mu.RUnlock()
	return environment{
		registry:           e.registry,
		errorHandler:       e.errorHandler,
		listeners:          slices.Clone(e.listeners),
		locale:             e.config.LocaleTag(),
		reportNilTraversal: e.config.ReportNilTraversal,
	}
}

// Compile parses source into a Template. Compiled templates are cached by
// source text when the cache is enabled.
func (e *Engine) Compile(source string) (*Template, error) {
	start, end := e.config.ExprStartToken, e.config.ExprEndToken
	e.mu.RLock()
	sourceName := e.sourceName
	e.mu.RUnlock()

	key := start + "\x00" + end + "\x00" + source
	return e.cache.GetOrCompile(key, func() (*Template, error) {
		tokens, err := compile(source, start, end, sourceName)
		if err != nil {
			return nil, err
		}
		return &Template{source: source, tokens: tokens, engine: e}, nil
	})
}

// MustCompile is like Compile but panics on error.
func (e *Engine) MustCompile(source string) *Template {
	tmpl, err := e.Compile(source)
	if err != nil {
		panic(err)
	}
	return tmpl
}

// Transform compiles template and expands it with model. Only parse and
// configuration problems are returned as errors.
func (e *Engine) Transform(template string, model map[string]any) (string, error) {
	tmpl, err := e.Compile(template)
	if err != nil {
		return "", err
	}
	return tmpl.Transform(model)
}

// UsedVariables returns the root variable names template refers to without
// evaluating it.
func (e *Engine) UsedVariables(template string) ([]string, error) {
	tmpl, err := e.Compile(template)
	if err != nil {
		return nil, err
	}
	return tmpl.UsedVariables(), nil
}

// ClearCache removes all templates from the cache.
func (e *Engine) ClearCache() {
	e.cache.Clear()
}

// DefaultEngine is the global default engine instance.
var DefaultEngine = New()

// Compile parses source with the default engine.
func Compile(source string) (*Template, error) {
	return DefaultEngine.Compile(source)
}

// Transform expands template with model using the default engine.
func Transform(template string, model map[string]any) (string, error) {
	return DefaultEngine.Transform(template, model)
}

// UsedVariables lists the root variables of template using the default engine.
func UsedVariables(template string) ([]string, error) {
	return DefaultEngine.UsedVariables(template)
}

// RegisterGlobalNamedRenderer adds a named renderer to the default engine.
func RegisterGlobalNamedRenderer(renderer NamedRenderer) error {
	return DefaultEngine.RegisterNamedRenderer(renderer)
}
