package eval

import (
	"encoding/json"
	"fmt"
	"strconv"
	"strings"

	"github.com/dvsuite/queryexec/value"
)

// jsonPath walks a minimal "$.member[index].member" path over a decoded
// document. Missing paths and type mismatches both yield (nil, false) —
// JSON_VALUE/JSON_QUERY turn that into Null, never a fault (§4.1).
func jsonPath(doc any, path string) (any, bool) {
	path = strings.TrimSpace(path)
	path = strings.TrimPrefix(path, "$")
	cur := doc
	i := 0
	for i < len(path) {
		switch {
		case path[i] == '.':
			i++
			j := i
			for j < len(path) && path[j] != '.' && path[j] != '[' {
				j++
			}
			member := path[i:j]
			i = j
			m, ok := cur.(map[string]any)
			if !ok {
				return nil, false
			}
			cur, ok = m[member]
			if !ok {
				return nil, false
			}
		case path[i] == '[':
			j := strings.IndexByte(path[i:], ']')
			if j < 0 {
				return nil, false
			}
			idxStr := path[i+1 : i+j]
			i += j + 1
			idx, err := strconv.Atoi(idxStr)
			if err != nil {
				return nil, false
			}
			arr, ok := cur.([]any)
			if !ok || idx < 0 || idx >= len(arr) {
				return nil, false
			}
			cur = arr[idx]
		default:
			return nil, false
		}
	}
	return cur, true
}

func init() {
	Register(Entry{Name: "JSON_VALUE", MinArgs: 2, MaxArgs: 2, Handler: func(a []value.Value, ctx *Context) (value.Value, error) {
		var doc any
		if err := json.Unmarshal([]byte(asStr(a[0])), &doc); err != nil {
			return value.Null, nil
		}
		v, ok := jsonPath(doc, asStr(a[1]))
		if !ok {
			return value.Null, nil
		}
		switch t := v.(type) {
		case map[string]any, []any:
			return value.Null, nil // JSON_VALUE only returns scalars
		case nil:
			return value.Null, nil
		case string:
			return value.NewSimple(t), nil
		case float64:
			return value.NewSimple(strconv.FormatFloat(t, 'f', -1, 64)), nil
		case bool:
			return value.NewSimple(fmt.Sprintf("%v", t)), nil
		}
		return value.Null, nil
	}})

	Register(Entry{Name: "JSON_QUERY", MinArgs: 2, MaxArgs: 2, Handler: func(a []value.Value, ctx *Context) (value.Value, error) {
		var doc any
		if err := json.Unmarshal([]byte(asStr(a[0])), &doc); err != nil {
			return value.Null, nil
		}
		v, ok := jsonPath(doc, asStr(a[1]))
		if !ok {
			return value.Null, nil
		}
		switch v.(type) {
		case map[string]any, []any:
			b, err := json.Marshal(v)
			if err != nil {
				return value.Null, nil
			}
			return value.NewSimple(string(b)), nil
		}
		return value.Null, nil // scalar at path isn't a fragment
	}})

	Register(Entry{Name: "ISJSON", MinArgs: 1, MaxArgs: 1, Handler: func(a []value.Value, ctx *Context) (value.Value, error) {
		var doc any
		err := json.Unmarshal([]byte(asStr(a[0])), &doc)
		return value.NewSimple(boolToBit(err == nil)), nil
	}})

	Register(Entry{Name: "JSON_MODIFY", MinArgs: 3, MaxArgs: 3, NullSafe: true, Handler: func(a []value.Value, ctx *Context) (value.Value, error) {
		if a[0].IsNull() {
			return value.Null, nil
		}
		var doc any
		if err := json.Unmarshal([]byte(asStr(a[0])), &doc); err != nil {
			return value.Null, nil
		}
		path := strings.TrimPrefix(strings.TrimSpace(asStr(a[1])), "$.")
		m, ok := doc.(map[string]any)
		if !ok {
			return value.Null, nil
		}
		if a[2].IsNull() {
			delete(m, path)
		} else {
			m[path] = a[2].Raw()
		}
		b, err := json.Marshal(m)
		if err != nil {
			return value.Null, nil
		}
		return value.NewSimple(string(b)), nil
	}})
}
