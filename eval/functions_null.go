package eval

import (
	"github.com/dvsuite/queryexec/value"
)

func init() {
	// ISNULL/COALESCE evaluate strictly left-to-right and are NULL-tolerant
	// by definition — they exist to handle Null arguments (§4.1 resolved
	// choice: strict arg evaluation, not short-circuit).
	Register(Entry{Name: "ISNULL", MinArgs: 2, MaxArgs: 2, NullSafe: true, Handler: func(a []value.Value, ctx *Context) (value.Value, error) {
		if !a[0].IsNull() {
			return a[0], nil
		}
		return a[1], nil
	}})

	Register(Entry{Name: "COALESCE", MinArgs: 1, MaxArgs: MaxArgs, NullSafe: true, Handler: func(a []value.Value, ctx *Context) (value.Value, error) {
		for _, v := range a {
			if !v.IsNull() {
				return v, nil
			}
		}
		return value.Null, nil
	}})

	Register(Entry{Name: "NULLIF", MinArgs: 2, MaxArgs: 2, NullSafe: true, Handler: func(a []value.Value, ctx *Context) (value.Value, error) {
		if a[0].IsNull() || a[1].IsNull() {
			return a[0], nil
		}
		if a[0].Equal(a[1]) {
			return value.Null, nil
		}
		return a[0], nil
	}})
}
