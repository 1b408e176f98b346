package eval

import (
	"github.com/dvsuite/queryexec/value"
)

func init() {
	// CREATEELASTICLOOKUP builds the composite id string Cosmos DB-backed
	// elastic tables use to address a row: "entity:logicalName:id:partitionId".
	// All-nulls rule: any Null argument makes the whole call Null (§4.1, §8
	// scenario 4) — this is NOT registered NullSafe, so the registry's
	// default NULL-propagation already enforces that.
	Register(Entry{Name: "CREATEELASTICLOOKUP", MinArgs: 4, MaxArgs: 4, Handler: func(a []value.Value, ctx *Context) (value.Value, error) {
		return value.NewSimple(asStr(a[0]) + ":" + asStr(a[1]) + ":" + asStr(a[2]) + ":" + asStr(a[3])), nil
	}})
}
