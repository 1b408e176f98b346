package eval

import (
	"math"

	"github.com/dvsuite/queryexec/value"
)

func init() {
	Register(Entry{Name: "ABS", MinArgs: 1, MaxArgs: 1, Handler: func(a []value.Value, ctx *Context) (value.Value, error) {
		f, ok := asFloat(a[0])
		if !ok {
			return value.Null, nil
		}
		return value.NewSimple(math.Abs(f)), nil
	}})

	Register(Entry{Name: "CEILING", MinArgs: 1, MaxArgs: 1, Handler: func(a []value.Value, ctx *Context) (value.Value, error) {
		f, ok := asFloat(a[0])
		if !ok {
			return value.Null, nil
		}
		return value.NewSimple(math.Ceil(f)), nil
	}})

	Register(Entry{Name: "FLOOR", MinArgs: 1, MaxArgs: 1, Handler: func(a []value.Value, ctx *Context) (value.Value, error) {
		f, ok := asFloat(a[0])
		if !ok {
			return value.Null, nil
		}
		return value.NewSimple(math.Floor(f)), nil
	}})

	// ROUND(n, length[, mode]) resolves the spec's third-argument Open
	// Question explicitly: the default (no mode, or mode==0) is banker's
	// rounding (round-half-to-even) — ROUND(2.5,0) == 2; a non-zero mode
	// switches to half-away-from-zero — ROUND(2.5,0,1) == 3. See DESIGN.md.
	Register(Entry{Name: "ROUND", MinArgs: 2, MaxArgs: 3, Handler: func(a []value.Value, ctx *Context) (value.Value, error) {
		f, ok := asFloat(a[0])
		if !ok {
			return value.Null, nil
		}
		n, _ := toInt(a[1])
		if len(a) == 3 {
			if flag, ok2 := toInt(a[2]); ok2 && flag != 0 {
				return value.NewSimple(roundHalfAwayFromZero(f, n)), nil
			}
		}
		return value.NewSimple(roundHalfToEven(f, n)), nil
	}})

	Register(Entry{Name: "POWER", MinArgs: 2, MaxArgs: 2, Handler: func(a []value.Value, ctx *Context) (value.Value, error) {
		base, ok1 := asFloat(a[0])
		exp, ok2 := asFloat(a[1])
		if !ok1 || !ok2 {
			return value.Null, nil
		}
		return value.NewSimple(math.Pow(base, exp)), nil
	}})

	Register(Entry{Name: "SQRT", MinArgs: 1, MaxArgs: 1, Handler: func(a []value.Value, ctx *Context) (value.Value, error) {
		f, ok := asFloat(a[0])
		if !ok {
			return value.Null, nil
		}
		return value.NewSimple(math.Sqrt(f)), nil
	}})

	Register(Entry{Name: "SIGN", MinArgs: 1, MaxArgs: 1, Handler: func(a []value.Value, ctx *Context) (value.Value, error) {
		f, ok := asFloat(a[0])
		if !ok {
			return value.Null, nil
		}
		switch {
		case f > 0:
			return value.NewSimple(int64(1)), nil
		case f < 0:
			return value.NewSimple(int64(-1)), nil
		default:
			return value.NewSimple(int64(0)), nil
		}
	}})

	Register(Entry{Name: "SQUARE", MinArgs: 1, MaxArgs: 1, Handler: func(a []value.Value, ctx *Context) (value.Value, error) {
		f, ok := asFloat(a[0])
		if !ok {
			return value.Null, nil
		}
		return value.NewSimple(f * f), nil
	}})

	Register(Entry{Name: "LOG", MinArgs: 1, MaxArgs: 2, Handler: func(a []value.Value, ctx *Context) (value.Value, error) {
		f, ok := asFloat(a[0])
		if !ok {
			return value.Null, nil
		}
		if len(a) == 2 {
			base, ok2 := asFloat(a[1])
			if !ok2 || base <= 0 || base == 1 {
				return value.Null, nil
			}
			return value.NewSimple(math.Log(f) / math.Log(base)), nil
		}
		return value.NewSimple(math.Log(f)), nil
	}})

	Register(Entry{Name: "LOG10", MinArgs: 1, MaxArgs: 1, Handler: func(a []value.Value, ctx *Context) (value.Value, error) {
		f, ok := asFloat(a[0])
		if !ok {
			return value.Null, nil
		}
		return value.NewSimple(math.Log10(f)), nil
	}})

	Register(Entry{Name: "EXP", MinArgs: 1, MaxArgs: 1, Handler: func(a []value.Value, ctx *Context) (value.Value, error) {
		f, ok := asFloat(a[0])
		if !ok {
			return value.Null, nil
		}
		return value.NewSimple(math.Exp(f)), nil
	}})

	Register(Entry{Name: "PI", MinArgs: 0, MaxArgs: 0, NullSafe: true, Handler: func(a []value.Value, ctx *Context) (value.Value, error) {
		return value.NewSimple(math.Pi), nil
	}})

	Register(Entry{Name: "RAND", MinArgs: 0, MaxArgs: 0, NullSafe: true, Handler: func(a []value.Value, ctx *Context) (value.Value, error) {
		// deterministic within a script: seeded from Now, never wall-clock
		// random, per the evaluator's no-hidden-nondeterminism design.
		seed := ctx.Now.UnixNano()
		x := float64((seed*1103515245+12345)%2147483648) / 2147483648.0
		if x < 0 {
			x = -x
		}
		return value.NewSimple(x), nil
	}})

	Register(Entry{Name: "SIN", MinArgs: 1, MaxArgs: 1, Handler: func(a []value.Value, ctx *Context) (value.Value, error) {
		f, ok := asFloat(a[0])
		if !ok {
			return value.Null, nil
		}
		return value.NewSimple(math.Sin(f)), nil
	}})

	Register(Entry{Name: "COS", MinArgs: 1, MaxArgs: 1, Handler: func(a []value.Value, ctx *Context) (value.Value, error) {
		f, ok := asFloat(a[0])
		if !ok {
			return value.Null, nil
		}
		return value.NewSimple(math.Cos(f)), nil
	}})

	Register(Entry{Name: "TAN", MinArgs: 1, MaxArgs: 1, Handler: func(a []value.Value, ctx *Context) (value.Value, error) {
		f, ok := asFloat(a[0])
		if !ok {
			return value.Null, nil
		}
		return value.NewSimple(math.Tan(f)), nil
	}})

	Register(Entry{Name: "ATN2", MinArgs: 2, MaxArgs: 2, Handler: func(a []value.Value, ctx *Context) (value.Value, error) {
		y, ok1 := asFloat(a[0])
		x, ok2 := asFloat(a[1])
		if !ok1 || !ok2 {
			return value.Null, nil
		}
		return value.NewSimple(math.Atan2(y, x)), nil
	}})
}
