// Package vars implements the variable scope (C3): declared variables for a
// compiled script, including the four @@ERROR_* pseudo-variables.
package vars

import (
	"strings"

	"github.com/dvsuite/queryexec/errs"
	"github.com/dvsuite/queryexec/value"
)

// Scope is an ordered sequence of frames; lookup walks from innermost to
// outermost. Frame 0 (the outermost, "script" frame) is created by New and
// is where SetErrorState always writes, so @@ERROR_* survives PopFrame of
// any nested TRY block (see DESIGN.md's resolution of the nested-handler
// Open Question).
type Scope struct {
	frames []map[string]value.Value // lower-cased name -> value
}

// New constructs a Scope with a single outermost frame.
func New() *Scope {
	return &Scope{frames: []map[string]value.Value{{}}}
}

// PushFrame opens a new innermost frame (e.g. entering a TRY block or a
// nested script context).
func (s *Scope) PushFrame() {
	s.frames = append(s.frames, map[string]value.Value{})
}

// PopFrame discards the innermost frame. Popping the outermost frame is a
// no-op guard against caller bugs, not a spec'd operation.
func (s *Scope) PopFrame() {
	if len(s.frames) <= 1 {
		return
	}
	s.frames = s.frames[:len(s.frames)-1]
}

func key(name string) string { return strings.ToLower(name) }

// Declare introduces name in the innermost frame with an initial value.
func (s *Scope) Declare(name string, initial value.Value) {
	s.frames[len(s.frames)-1][key(name)] = initial
}

// IsDeclared reports whether name has been explicitly declared in any frame.
func (s *Scope) IsDeclared(name string) bool {
	k := key(name)
	for i := len(s.frames) - 1; i >= 0; i-- {
		if _, ok := s.frames[i][k]; ok {
			return true
		}
	}
	return false
}

// Get returns the value bound to name, walking frames innermost-first.
// Reading an undeclared @@ERROR_* variable returns Null, not a fault;
// reading any other undeclared name also returns Null here — the evaluator
// (which knows the distinction between "undeclared ERROR var" and "genuinely
// undeclared user variable") is responsible for raising UndeclaredVariable
// where spec'd.
func (s *Scope) Get(name string) value.Value {
	k := key(name)
	for i := len(s.frames) - 1; i >= 0; i-- {
		if v, ok := s.frames[i][k]; ok {
			return v
		}
	}
	return value.Null
}

// Set assigns to an already-declared name in the frame where it was
// declared. Set on an undeclared name fails with UndeclaredVariable.
func (s *Scope) Set(name string, v value.Value) error {
	k := key(name)
	for i := len(s.frames) - 1; i >= 0; i-- {
		if _, ok := s.frames[i][k]; ok {
			s.frames[i][k] = v
			return nil
		}
	}
	return errs.New(errs.UndeclaredVariable, "variable not declared: "+name).WithTarget(name)
}

const (
	errMessage  = "@@ERROR_MESSAGE"
	errNumber   = "@@ERROR_NUMBER"
	errSeverity = "@@ERROR_SEVERITY"
	errState    = "@@ERROR_STATE"
)

// SetErrorState atomically declares and assigns all four @@ERROR_*
// pseudo-variables in the outermost (script) frame, as the error-handling
// machinery does when a TRY/CATCH handler runs.
func (s *Scope) SetErrorState(message string, number int, severity int, state int) {
	outer := s.frames[0]
	outer[key(errMessage)] = value.NewSimple(message)
	outer[key(errNumber)] = value.NewSimple(int64(number))
	outer[key(errSeverity)] = value.NewSimple(int64(severity))
	outer[key(errState)] = value.NewSimple(int64(state))
}

// ClearErrorState resets all four @@ERROR_* variables to Null, as happens on
// successful exit from a handler that chooses to clear them explicitly. Not
// called automatically by PopFrame — see DESIGN.md.
func (s *Scope) ClearErrorState() {
	outer := s.frames[0]
	delete(outer, key(errMessage))
	delete(outer, key(errNumber))
	delete(outer, key(errSeverity))
	delete(outer, key(errState))
}
