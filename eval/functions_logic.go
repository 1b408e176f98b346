package eval

import (
	"github.com/dvsuite/queryexec/value"
)

func init() {
	Register(Entry{Name: "NOT", MinArgs: 1, MaxArgs: 1, Handler: func(args []value.Value, ctx *Context) (value.Value, error) {
		n, ok := toInt(args[0])
		if !ok {
			return value.Null, nil
		}
		return value.NewSimple(boolToBit(n == 0)), nil
	}})

	Register(Entry{Name: "__NEG", MinArgs: 1, MaxArgs: 1, Handler: func(args []value.Value, ctx *Context) (value.Value, error) {
		f, ok := asFloat(args[0])
		if !ok {
			return value.Null, nil
		}
		return value.NewSimple(-f), nil
	}})
}
