package eval

import (
	"github.com/dvsuite/queryexec/value"
)

// ERROR_* are 0-arg reads of the like-named @@ERROR_* scope variable,
// returning Null outside any handler (§4.1, §8 scenario 8) rather than
// faulting on an undeclared read.
func init() {
	for _, name := range []string{"ERROR_MESSAGE", "ERROR_NUMBER", "ERROR_SEVERITY", "ERROR_STATE"} {
		sysName := "@@" + name
		Register(Entry{Name: name, MinArgs: 0, MaxArgs: 0, NullSafe: true, Handler: func(a []value.Value, ctx *Context) (value.Value, error) {
			if ctx.Scope == nil {
				return value.Null, nil
			}
			return ctx.Scope.Get(sysName), nil
		}})
	}
}
