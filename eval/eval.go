package eval

import (
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/dvsuite/queryexec/errs"
	"github.com/dvsuite/queryexec/value"
	"github.com/dvsuite/queryexec/vars"
)

// Context carries everything Evaluate needs besides the expression itself:
// the ambient VariableScope, a deterministic "now" timestamp (GETDATE/
// SYSUTCDATETIME return the same instant for every call within one script,
// per §4.1), and an optional column resolver for bare identifiers.
type Context struct {
	Scope    *vars.Scope
	Now      time.Time
	Resolve  func(name string) (value.Value, bool)
}

// NewContext builds a Context with Now stamped at construction time — once
// per compiled script, as spec.md requires.
func NewContext(scope *vars.Scope) *Context {
	return &Context{Scope: scope, Now: time.Now().UTC()}
}

// Evaluate walks expr, evaluating children before invoking functions.
func Evaluate(expr Expr, ctx *Context) (value.Value, error) {
	switch e := expr.(type) {
	case *Literal:
		if e.Value == nil {
			return value.Null, nil
		}
		return value.NewSimple(e.Value), nil

	case *Variable:
		if ctx.Scope == nil {
			return value.Null, nil
		}
		if !ctx.Scope.IsDeclared(e.Name) {
			return value.Null, errs.New(errs.UndeclaredVariable, "undeclared variable "+e.Name).WithTarget(e.Name)
		}
		return ctx.Scope.Get(e.Name), nil

	case *SysVariable:
		if ctx.Scope == nil {
			return value.Null, nil
		}
		// Reading an undeclared @@ERROR_* returns Null, not a fault (§4.2).
		return ctx.Scope.Get(e.Name), nil

	case *ColumnRef:
		if ctx.Resolve != nil {
			if v, ok := ctx.Resolve(e.Name); ok {
				return v, nil
			}
		}
		return value.Null, nil

	case *Call:
		args := make([]value.Value, len(e.Args))
		for i, a := range e.Args {
			v, err := Evaluate(a, ctx)
			if err != nil {
				return value.Null, err
			}
			args[i] = v
		}
		return Invoke(e.Name, args, ctx)

	case *Cast:
		v, err := Evaluate(e.Expr, ctx)
		if err != nil {
			return value.Null, err
		}
		return castValue(v, e.Type, nil)

	case *Convert:
		v, err := Evaluate(e.Expr, ctx)
		if err != nil {
			return value.Null, err
		}
		var style *int
		if e.Style != nil {
			sv, err := Evaluate(e.Style, ctx)
			if err != nil {
				return value.Null, err
			}
			if !sv.IsNull() {
				n, ok := toInt(sv)
				if !ok {
					return value.Null, errs.New(errs.InvalidCast, "CONVERT style must be numeric")
				}
				style = &n
			}
		}
		return castValue(v, e.Type, style)

	case *BinaryOp:
		return evalBinaryOp(e, ctx)

	case *IsNullPredicate:
		v, err := Evaluate(e.Expr, ctx)
		if err != nil {
			return value.Null, err
		}
		isNull := v.IsNull()
		if e.Not {
			isNull = !isNull
		}
		return value.NewSimple(boolToBit(isNull)), nil

	case *CaseExpr:
		for _, w := range e.Whens {
			cv, err := Evaluate(w.Cond, ctx)
			if err != nil {
				return value.Null, err
			}
			if truthy(cv) {
				return Evaluate(w.Then, ctx)
			}
		}
		if e.Else != nil {
			return Evaluate(e.Else, ctx)
		}
		return value.Null, nil
	}
	return value.Null, errs.New(errs.InvalidArguments, "unrecognized expression node")
}

func boolToBit(b bool) int64 {
	if b {
		return 1
	}
	return 0
}

func truthy(v value.Value) bool {
	if v.IsNull() {
		return false
	}
	n, ok := toInt(v)
	return ok && n != 0
}

func toInt(v value.Value) (int, bool) {
	switch raw := v.Raw().(type) {
	case int64:
		return int(raw), true
	case float64:
		return int(raw), true
	case string:
		n, err := strconv.Atoi(strings.TrimSpace(raw))
		return n, err == nil
	}
	return 0, false
}

func evalBinaryOp(e *BinaryOp, ctx *Context) (value.Value, error) {
	l, err := Evaluate(e.Left, ctx)
	if err != nil {
		return value.Null, err
	}
	if e.Op == "AND" || e.Op == "OR" {
		// three-valued logic: evaluate right unconditionally (no side
		// effects in this evaluator, so short-circuiting isn't observable)
		r, err := Evaluate(e.Right, ctx)
		if err != nil {
			return value.Null, err
		}
		return evalLogical(e.Op, l, r), nil
	}

	r, err := Evaluate(e.Right, ctx)
	if err != nil {
		return value.Null, err
	}
	if l.IsNull() || r.IsNull() {
		return value.Null, nil
	}
	return evalArithOrCompare(e.Op, l, r)
}

func evalLogical(op string, l, r value.Value) value.Value {
	lb, lKnown := triBool(l)
	rb, rKnown := triBool(r)
	if op == "AND" {
		if lKnown && !lb || rKnown && !rb {
			return value.NewSimple(int64(0))
		}
		if lKnown && rKnown {
			return value.NewSimple(boolToBit(lb && rb))
		}
		return value.Null
	}
	// OR
	if lKnown && lb || rKnown && rb {
		return value.NewSimple(int64(1))
	}
	if lKnown && rKnown {
		return value.NewSimple(boolToBit(lb || rb))
	}
	return value.Null
}

func triBool(v value.Value) (b bool, known bool) {
	if v.IsNull() {
		return false, false
	}
	n, ok := toInt(v)
	if !ok {
		return false, false
	}
	return n != 0, true
}

func evalArithOrCompare(op string, l, r value.Value) (value.Value, error) {
	switch op {
	case "=", "<>", "!=", "<", ">", "<=", ">=":
		return compareOp(op, l, r)
	case "+", "-", "*", "/", "%":
		return arithOp(op, l, r)
	case "||":
		return value.NewSimple(asString(l) + asString(r)), nil
	}
	return value.Null, errs.New(errs.InvalidArguments, "unsupported operator "+op)
}

func compareOp(op string, l, r value.Value) (value.Value, error) {
	var cmp int
	lf, lok := asFloat(l)
	rf, rok := asFloat(r)
	if lok && rok {
		switch {
		case lf < rf:
			cmp = -1
		case lf > rf:
			cmp = 1
		default:
			cmp = 0
		}
	} else {
		ls, rs := asString(l), asString(r)
		cmp = strings.Compare(ls, rs)
	}
	var result bool
	switch op {
	case "=":
		result = cmp == 0
	case "<>", "!=":
		result = cmp != 0
	case "<":
		result = cmp < 0
	case ">":
		result = cmp > 0
	case "<=":
		result = cmp <= 0
	case ">=":
		result = cmp >= 0
	}
	return value.NewSimple(boolToBit(result)), nil
}

func arithOp(op string, l, r value.Value) (value.Value, error) {
	// string + string is concatenation, matching T-SQL's overload of +.
	if op == "+" {
		if ls, ok := l.Raw().(string); ok {
			if rs, ok2 := r.Raw().(string); ok2 {
				return value.NewSimple(ls + rs), nil
			}
		}
	}
	lf, lok := asFloat(l)
	rf, rok := asFloat(r)
	if !lok || !rok {
		return value.Null, errs.New(errs.InvalidArguments, "non-numeric operand to "+op)
	}
	switch op {
	case "+":
		return value.NewSimple(lf + rf), nil
	case "-":
		return value.NewSimple(lf - rf), nil
	case "*":
		return value.NewSimple(lf * rf), nil
	case "/":
		if rf == 0 {
			return value.Null, errs.New(errs.Fatal, "division by zero")
		}
		return value.NewSimple(lf / rf), nil
	case "%":
		if rf == 0 {
			return value.Null, errs.New(errs.Fatal, "modulo by zero")
		}
		li, ri := int64(lf), int64(rf)
		return value.NewSimple(float64(li % ri)), nil
	}
	return value.Null, errs.New(errs.InvalidArguments, "unsupported operator "+op)
}

func asFloat(v value.Value) (float64, bool) {
	switch raw := v.Raw().(type) {
	case float64:
		return raw, true
	case int64:
		return float64(raw), true
	case int:
		return float64(raw), true
	case string:
		f, err := strconv.ParseFloat(strings.TrimSpace(raw), 64)
		return f, err == nil
	}
	return 0, false
}

func asString(v value.Value) string {
	switch raw := v.Raw().(type) {
	case string:
		return raw
	case float64:
		return strconv.FormatFloat(raw, 'f', -1, 64)
	case int64:
		return strconv.FormatInt(raw, 10)
	case nil:
		return ""
	default:
		return fmt.Sprint(raw)
	}
}
