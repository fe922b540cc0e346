// Package functions holds the scalar function signatures the analyzer
// resolves calls against, together with their evaluators.
package functions

import (
	"fmt"
	"strings"
	"sync"

	"dexql/pkg/types"
)

// EvalFunc computes a function over already evaluated arguments whose
// values are in the Go representation of the signature's argument types.
type EvalFunc func(args []any) (any, error)

// Signature is one overload of a function.
type Signature struct {
	Name       string
	Arguments  []types.DataType
	ReturnType types.DataType

	// Variadic repeats the last argument type. At least len(Arguments)
	// arguments are required.
	Variadic bool

	// Strict functions return null when any argument is null; Eval is not
	// called.
	Strict bool

	Eval EvalFunc
}

func (s *Signature) String() string {
	var b strings.Builder
	b.WriteString(s.Name)
	b.WriteString("(")
	for i, t := range s.Arguments {
		if i > 0 {
			b.WriteString(", ")
		}
		b.WriteString(t.Name())
	}
	if s.Variadic {
		b.WriteString("...")
	}
	b.WriteString(") -> ")
	b.WriteString(s.ReturnType.Name())
	return b.String()
}

// Invoke coerces args to the argument types in place, applies null
// strictness and evaluates.
func (s *Signature) Invoke(args []any) (any, error) {
	for i, a := range args {
		if a == nil {
			if s.Strict {
				return nil, nil
			}
			continue
		}
		v, err := s.ArgumentType(i).Value(a)
		if err != nil {
			return nil, err
		}
		args[i] = v
	}
	return s.Eval(args)
}

// ArgumentType returns the declared type of argument i.
func (s *Signature) ArgumentType(i int) types.DataType {
	if s.Variadic && i >= len(s.Arguments)-1 {
		return s.Arguments[len(s.Arguments)-1]
	}
	return s.Arguments[i]
}

func (s *Signature) acceptsArity(n int) bool {
	if s.Variadic {
		return n >= len(s.Arguments)
	}
	return n == len(s.Arguments)
}

// Resolver picks the overload of name for the given argument types.
type Resolver interface {
	Resolve(name string, args []types.DataType) (*Signature, bool)
}

// Registry is a Resolver over registered signatures. It is safe for
// concurrent use.
type Registry struct {
	mu     sync.RWMutex
	byName map[string][]*Signature
}

var _ Resolver = (*Registry)(nil)

func NewRegistry() *Registry {
	return &Registry{byName: make(map[string][]*Signature)}
}

// Register adds an overload. Registering the same argument list twice for
// one name is an error.
func (r *Registry) Register(sig *Signature) error {
	if sig.Eval == nil {
		return fmt.Errorf("function %s has no evaluator", sig.Name)
	}
	if sig.Variadic && len(sig.Arguments) == 0 {
		return fmt.Errorf("variadic function %s needs an argument type", sig.Name)
	}
	name := strings.ToLower(sig.Name)

	r.mu.Lock()
	defer r.mu.Unlock()
	for _, existing := range r.byName[name] {
		if sameArguments(existing, sig) {
			return fmt.Errorf("function %s is already registered", sig)
		}
	}
	r.byName[name] = append(r.byName[name], sig)
	return nil
}

func sameArguments(a, b *Signature) bool {
	if a.Variadic != b.Variadic || len(a.Arguments) != len(b.Arguments) {
		return false
	}
	for i := range a.Arguments {
		if !types.Equal(a.Arguments[i], b.Arguments[i]) {
			return false
		}
	}
	return true
}

// Resolve returns an exact overload if there is one. Otherwise, among the
// overloads every argument converts to, it prefers those that only widen
// and takes the narrowest of them; failing that, the widest candidate.
// Undefined arguments match any parameter.
func (r *Registry) Resolve(name string, args []types.DataType) (*Signature, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	candidates := r.byName[strings.ToLower(name)]

	for _, sig := range candidates {
		if sig.acceptsArity(len(args)) && matches(sig, args, exactMatch) {
			return sig, true
		}
	}

	var widening, fallback *Signature
	wideningScore, fallbackScore := 0, -1
	for _, sig := range candidates {
		if !sig.acceptsArity(len(args)) || !matches(sig, args, types.DataType.IsConvertibleTo) {
			continue
		}
		score := precedenceSum(sig, len(args))
		if matches(sig, args, widens) {
			if widening == nil || score < wideningScore {
				widening, wideningScore = sig, score
			}
		} else if score > fallbackScore {
			fallback, fallbackScore = sig, score
		}
	}
	if widening != nil {
		return widening, true
	}
	return fallback, fallback != nil
}

func matches(sig *Signature, args []types.DataType, accept func(arg, param types.DataType) bool) bool {
	for i, arg := range args {
		if !accept(arg, sig.ArgumentType(i)) {
			return false
		}
	}
	return true
}

func exactMatch(arg, param types.DataType) bool {
	return arg.ID() == types.UndefinedID || types.Equal(arg, param)
}

func widens(arg, param types.DataType) bool {
	return types.Precedence(param) >= types.Precedence(arg)
}

func precedenceSum(sig *Signature, n int) int {
	sum := 0
	for i := range n {
		sum += types.Precedence(sig.ArgumentType(i))
	}
	return sum
}

var (
	builtinsOnce sync.Once
	builtins     *Registry
)

// Builtins returns the shared registry of built-in functions.
func Builtins() *Registry {
	builtinsOnce.Do(func() {
		builtins = NewRegistry()
		registerBuiltins(builtins)
	})
	return builtins
}
