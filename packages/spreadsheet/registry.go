package spreadsheet

import (
	"fmt"
	"sort"
	"strings"
	"sync"
)

// ArgKind is the shape a function expects for one argument
type ArgKind uint8

const (
	// ArgScalar accepts a literal, a single-cell reference or a nested
	// expression. a range here is an arity error.
	ArgScalar ArgKind = iota
	// ArgRange accepts only a range reference
	ArgRange
)

// FunctionImpl computes a function result from arguments that already
// match the declared shape. errors should be *SpreadsheetError.
type FunctionImpl func(args []Primitive) (Primitive, error)

// FunctionSpec declares a function's name, argument shape and behavior.
// the last Optional params may be omitted; when Variadic is set the last
// param repeats without limit.
type FunctionSpec struct {
	Name     string
	Params   []ArgKind
	Optional int
	Variadic bool
	Eval     FunctionImpl
}

func (f *FunctionSpec) minArgs() int {
	return len(f.Params) - f.Optional
}

// checkArity validates the argument count against the declared shape
func (f *FunctionSpec) checkArity(n int) error {
	lo := f.minArgs()
	if n < lo || (!f.Variadic && n > len(f.Params)) {
		return NewSpreadsheetError(ErrorCodeArity, fmt.Sprintf("%s %s, got %d", f.Name, f.arityText(), n))
	}
	return nil
}

func (f *FunctionSpec) arityText() string {
	lo, hi := f.minArgs(), len(f.Params)
	switch {
	case f.Variadic:
		return fmt.Sprintf("requires at least %d argument(s)", lo)
	case lo == hi:
		return fmt.Sprintf("requires exactly %d argument(s)", lo)
	default:
		return fmt.Sprintf("requires %d to %d arguments", lo, hi)
	}
}

// kindAt returns the expected shape of argument i
func (f *FunctionSpec) kindAt(i int) ArgKind {
	if len(f.Params) == 0 {
		return ArgScalar
	}
	if i < len(f.Params) {
		return f.Params[i]
	}
	return f.Params[len(f.Params)-1]
}

// Registry maps canonical (uppercase) function names to their specs. the
// parser consults it, so adding a function needs no parser or evaluator
// changes.
type Registry struct {
	mu        sync.RWMutex
	functions map[string]*FunctionSpec
}

// NewRegistry creates an empty registry
func NewRegistry() *Registry {
	return &Registry{functions: make(map[string]*FunctionSpec)}
}

// Register adds or replaces a function
func (r *Registry) Register(spec FunctionSpec) error {
	name := strings.ToUpper(strings.TrimSpace(spec.Name))
	if name == "" {
		return fmt.Errorf("function name is required")
	}
	if spec.Eval == nil {
		return fmt.Errorf("function %s has no implementation", name)
	}
	if spec.Optional < 0 || spec.Optional > len(spec.Params) {
		return fmt.Errorf("function %s declares %d optional params out of %d", name, spec.Optional, len(spec.Params))
	}
	spec.Name = name

	r.mu.Lock()
	defer r.mu.Unlock()
	r.functions[name] = &spec
	return nil
}

// Lookup finds a function by case-insensitive name
func (r *Registry) Lookup(name string) (*FunctionSpec, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	spec, ok := r.functions[strings.ToUpper(name)]
	return spec, ok
}

// Names returns the registered names in sorted order
func (r *Registry) Names() []string {
	r.mu.RLock()
	defer r.mu.RUnlock()
	names := make([]string, 0, len(r.functions))
	for name := range r.functions {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

var (
	defaultRegistryOnce sync.Once
	defaultRegistry     *Registry
)

// DefaultRegistry returns the shared registry of built-in functions
func DefaultRegistry() *Registry {
	defaultRegistryOnce.Do(func() {
		defaultRegistry = NewBuiltinRegistry()
	})
	return defaultRegistry
}
