package jmte

import (
	"fmt"
	"reflect"
	"slices"
	"sort"
	"sync"
)

// RendererRegistry maps runtime types to default renderers and names to
// NamedRenderers.
//
// Resolve looks for a renderer registered for the exact type, then for a
// registered interface type the type implements (in registration order), then
// walks the supertype chain: *T to T, T to its category, a category to its
// parent category. Results are cached per type until the next registration
// or deregistration.
type RendererRegistry struct {
	mu         sync.RWMutex
	renderers  map[reflect.Type]Renderer
	interfaces []reflect.Type
	named      map[string]NamedRenderer
	namedByTyp map[reflect.Type]map[string]NamedRenderer

	cacheMu    sync.Mutex
	cache      map[reflect.Type]Renderer
	generation uint64
}

// NewRendererRegistry creates a registry holding the built-in category
// renderers.
func NewRendererRegistry() *RendererRegistry {
	r := &RendererRegistry{
		renderers:  make(map[reflect.Type]Renderer),
		named:      make(map[string]NamedRenderer),
		namedByTyp: make(map[reflect.Type]map[string]NamedRenderer),
		cache:      make(map[reflect.Type]Renderer),
	}
	r.Register(ObjectType, ObjectRenderer{})
	r.Register(MappingType, MapRenderer{})
	r.Register(SequenceType, SequenceRenderer{})
	r.Register(IterableType, IterableRenderer{})
	return r
}

// Register installs or replaces the default renderer for t. Registering an
// interface type makes it apply to every type implementing it.
func (r *RendererRegistry) Register(t reflect.Type, renderer Renderer) error {
	if t == nil {
		return fmt.Errorf("renderer type is required")
	}
	if renderer == nil {
		return fmt.Errorf("renderer for %s is required", t)
	}

	r.mu.Lock()
	if _, exists := r.renderers[t]; !exists && t.Kind() == reflect.Interface && !isCategory(t) {
		r.interfaces = append(r.interfaces, t)
	}
	r.renderers[t] = renderer
	r.mu.Unlock()

	r.invalidate()
	return nil
}

// Deregister removes the default renderer for t.
func (r *RendererRegistry) Deregister(t reflect.Type) {
	r.mu.Lock()
	delete(r.renderers, t)
	for i, iface := range r.interfaces {
		if iface == t {
			r.interfaces = append(r.interfaces[:i], r.interfaces[i+1:]...)
			break
		}
	}
	r.mu.Unlock()

	r.invalidate()
}

func (r *RendererRegistry) invalidate() {
	r.cacheMu.Lock()
	clear(r.cache)
	r.generation++
	r.cacheMu.Unlock()
}

// Resolve returns the default renderer for t.
func (r *RendererRegistry) Resolve(t reflect.Type) (Renderer, bool) {
	if t == nil {
		t = ObjectType
	}

	r.cacheMu.Lock()
	if cached, ok := r.cache[t]; ok {
		r.cacheMu.Unlock()
		return cached, true
	}
	generation := r.generation
	r.cacheMu.Unlock()

	r.mu.RLock()
	renderer := r.resolve(t)
	r.mu.RUnlock()
	if renderer == nil {
		return nil, false
	}

	r.cacheMu.Lock()
	if generation == r.generation {
		r.cache[t] = renderer
	}
	r.cacheMu.Unlock()
	return renderer, true
}

// ResolveValue returns the renderer for the runtime type of value. It never
// fails: without any match it falls back to ObjectRenderer.
func (r *RendererRegistry) ResolveValue(value any) Renderer {
	if renderer, ok := r.Resolve(reflect.TypeOf(value)); ok {
		return renderer
	}
	return ObjectRenderer{}
}

// resolve must be called with mu held.
func (r *RendererRegistry) resolve(t reflect.Type) Renderer {
	if renderer, ok := r.renderers[t]; ok {
		return renderer
	}
	if !isCategory(t) {
		for _, iface := range r.interfaces {
			if iface != t && t.Implements(iface) {
				if renderer := r.resolve(iface); renderer != nil {
					return renderer
				}
			}
		}
	}
	if super := supertype(t); super != nil {
		return r.resolve(super)
	}
	return nil
}

// RegisterNamed installs renderer under its name, replacing any renderer with
// the same name. Each supported type is expanded to its supertype closure.
func (r *RendererRegistry) RegisterNamed(renderer NamedRenderer) error {
	if renderer == nil {
		return fmt.Errorf("named renderer is required")
	}
	name := renderer.Name()
	if name == "" {
		return fmt.Errorf("named renderer name is required")
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	if previous, exists := r.named[name]; exists {
		r.unindex(previous)
	}
	r.named[name] = renderer
	for _, t := range declaredTypes(renderer) {
		for _, super := range supertypeClosure(t) {
			set, ok := r.namedByTyp[super]
			if !ok {
				set = make(map[string]NamedRenderer)
				r.namedByTyp[super] = set
			}
			set[name] = renderer
		}
	}
	return nil
}

// DeregisterNamed removes the renderer registered under renderer's name.
func (r *RendererRegistry) DeregisterNamed(renderer NamedRenderer) {
	if renderer == nil {
		return
	}
	r.mu.Lock()
	defer r.mu.Unlock()

	if registered, exists := r.named[renderer.Name()]; exists {
		r.unindex(registered)
		delete(r.named, renderer.Name())
	}
}

func (r *RendererRegistry) unindex(renderer NamedRenderer) {
	for _, t := range declaredTypes(renderer) {
		for _, super := range supertypeClosure(t) {
			if set, ok := r.namedByTyp[super]; ok {
				delete(set, renderer.Name())
				if len(set) == 0 {
					delete(r.namedByTyp, super)
				}
			}
		}
	}
}

func declaredTypes(renderer NamedRenderer) []reflect.Type {
	types := renderer.SupportedTypes()
	if len(types) == 0 {
		return []reflect.Type{ObjectType}
	}
	return types
}

// Named returns the renderer registered under name.
func (r *RendererRegistry) Named(name string) (NamedRenderer, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	renderer, ok := r.named[name]
	return renderer, ok
}

// CompatibleNamed returns the named renderers usable for values of type t,
// sorted by name. A renderer matches when t is one of its declared types or an
// ancestor of one, when one of its declared types is an ancestor of t, or when
// t implements a declared interface. Renderers without declared types match
// every type.
func (r *RendererRegistry) CompatibleNamed(t reflect.Type) []NamedRenderer {
	if t == nil {
		t = ObjectType
	}
	r.mu.RLock()
	defer r.mu.RUnlock()

	ancestors := supertypeClosure(t)
	found := make(map[string]NamedRenderer)
	for name, renderer := range r.namedByTyp[t] {
		found[name] = renderer
	}
	for name, renderer := range r.named {
		for _, declared := range declaredTypes(renderer) {
			if slices.Contains(ancestors, declared) || implementsDeclared(t, declared) {
				found[name] = renderer
				break
			}
		}
	}
	return sortedRenderers(found)
}

func implementsDeclared(t, declared reflect.Type) bool {
	return declared.Kind() == reflect.Interface && !isCategory(declared) &&
		t.Kind() != reflect.Interface && t.Implements(declared)
}

// AllNamed returns every named renderer sorted by name.
func (r *RendererRegistry) AllNamed() []NamedRenderer {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return sortedRenderers(r.named)
}

func sortedRenderers(set map[string]NamedRenderer) []NamedRenderer {
	names := make([]string, 0, len(set))
	for name := range set {
		names = append(names, name)
	}
	sort.Strings(names)
	out := make([]NamedRenderer, len(names))
	for i, name := range names {
		out[i] = set[name]
	}
	return out
}
