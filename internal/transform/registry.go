package transform

import (
	"errors"
	"fmt"
	"slices"
	"sync"
)

// ErrUnknownStage is returned when a configuration names an unregistered stage.
var ErrUnknownStage = errors.New("unknown transform stage")

// Env is the build-wide context handed to stage factories.
type Env struct {
	// Root is the project root directory on disk.
	Root       string
	Production bool
}

// Factory constructs a stage from its options.
type Factory func(opts Options, env Env) (Transform, error)

// Registry maps stage names to factories.
type Registry struct {
	mu        sync.RWMutex
	factories map[string]Factory
}

// NewRegistry creates an empty registry.
func NewRegistry() *Registry {
	return &Registry{factories: make(map[string]Factory)}
}

// DefaultRegistry returns a registry with every built-in stage.
func DefaultRegistry() *Registry {
	r := NewRegistry()
	r.MustRegister("copy", newCopy)
	r.MustRegister("file", newFile)
	r.MustRegister("esbuild", newESBuild)
	r.MustRegister("css", newCSS)
	r.MustRegister("minify-js", newMinifyJS)
	r.MustRegister("minify-css", newMinifyCSS)
	r.MustRegister("sass", newSass)
	r.MustRegister("inline-style", newInlineStyle)
	r.MustRegister("extract", newExtract)
	r.MustRegister("command", newCommand)
	return r
}

// Register adds a factory. Names must be unique.
func (r *Registry) Register(name string, f Factory) error {
	if name == "" || f == nil {
		return fmt.Errorf("cannot register stage %q: name and factory are required", name)
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	if _, exists := r.factories[name]; exists {
		return fmt.Errorf("stage %q already registered", name)
	}
	r.factories[name] = f
	return nil
}

// MustRegister is Register for init-time wiring.
func (r *Registry) MustRegister(name string, f Factory) {
	if err := r.Register(name, f); err != nil {
		panic(err)
	}
}

// Replace registers f under name, overriding any existing factory.
func (r *Registry) Replace(name string, f Factory) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.factories[name] = f
}

// New builds the named stage.
func (r *Registry) New(name string, opts map[string]any, env Env) (Transform, error) {
	r.mu.RLock()
	f, ok := r.factories[name]
	r.mu.RUnlock()

	if !ok {
		return nil, fmt.Errorf("%w: %q", ErrUnknownStage, name)
	}

	t, err := f(Options(opts), env)
	if err != nil {
		return nil, fmt.Errorf("stage %s: %w", name, err)
	}
	return t, nil
}

// Names lists the registered stages in lexical order.
func (r *Registry) Names() []string {
	r.mu.RLock()
	defer r.mu.RUnlock()

	names := make([]string, 0, len(r.factories))
	for name := range r.factories {
		names = append(names, name)
	}
	slices.Sort(names)
	return names
}
