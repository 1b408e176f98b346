package eval

import (
	"math"
	"strings"
	"sync"

	"github.com/dvsuite/queryexec/errs"
	"github.com/dvsuite/queryexec/value"
)

// MaxArgs is used as the upper arity bound for variadic functions.
const MaxArgs = math.MaxInt32

// Handler evaluates an already-argument-evaluated function call.
type Handler func(args []value.Value, ctx *Context) (value.Value, error)

// Entry is a registered function (§3's "Function entry").
type Entry struct {
	Name     string // canonical, as displayed
	MinArgs  int
	MaxArgs  int // MaxArgs for variadic
	Handler  Handler
	NullSafe bool // true for NULL-tolerant functions (ISNULL, COALESCE, ERROR_*)
}

type registryT struct {
	mu      sync.RWMutex
	entries map[string]Entry // keyed upper-case
}

var registry = &registryT{entries: map[string]Entry{}}

// Register adds or replaces a function entry. Called from package init()s.
func Register(e Entry) {
	registry.mu.Lock()
	defer registry.mu.Unlock()
	registry.entries[strings.ToUpper(e.Name)] = e
}

func lookup(name string) (Entry, bool) {
	registry.mu.RLock()
	defer registry.mu.RUnlock()
	e, ok := registry.entries[strings.ToUpper(name)]
	return e, ok
}

// Invoke calls a registered function by name with already-evaluated
// arguments (§4.1's Contract). Name match is ASCII case-insensitive.
func Invoke(name string, args []value.Value, ctx *Context) (value.Value, error) {
	e, ok := lookup(name)
	if !ok {
		return value.Null, errs.New(errs.UnknownFunction, "unknown function: "+name).WithTarget(name)
	}
	if len(args) < e.MinArgs || (e.MaxArgs != MaxArgs && len(args) > e.MaxArgs) {
		return value.Null, errs.New(errs.ArgArity, "wrong number of arguments for "+e.Name).WithTarget(e.Name)
	}
	if !e.NullSafe {
		for _, a := range args {
			if a.IsNull() {
				return value.Null, nil
			}
		}
	}
	return e.Handler(args, ctx)
}
