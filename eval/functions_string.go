package eval

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/dvsuite/queryexec/value"
)

func asStr(v value.Value) string {
	return asString(v)
}

func init() {
	Register(Entry{Name: "LEN", MinArgs: 1, MaxArgs: 1, Handler: func(a []value.Value, ctx *Context) (value.Value, error) {
		return value.NewSimple(int64(len([]rune(strings.TrimRight(asStr(a[0]), " "))))), nil
	}})

	Register(Entry{Name: "UPPER", MinArgs: 1, MaxArgs: 1, Handler: func(a []value.Value, ctx *Context) (value.Value, error) {
		return value.NewSimple(strings.ToUpper(asStr(a[0]))), nil
	}})

	Register(Entry{Name: "LOWER", MinArgs: 1, MaxArgs: 1, Handler: func(a []value.Value, ctx *Context) (value.Value, error) {
		return value.NewSimple(strings.ToLower(asStr(a[0]))), nil
	}})

	Register(Entry{Name: "LTRIM", MinArgs: 1, MaxArgs: 1, Handler: func(a []value.Value, ctx *Context) (value.Value, error) {
		return value.NewSimple(strings.TrimLeft(asStr(a[0]), " ")), nil
	}})

	Register(Entry{Name: "RTRIM", MinArgs: 1, MaxArgs: 1, Handler: func(a []value.Value, ctx *Context) (value.Value, error) {
		return value.NewSimple(strings.TrimRight(asStr(a[0]), " ")), nil
	}})

	Register(Entry{Name: "TRIM", MinArgs: 1, MaxArgs: 1, Handler: func(a []value.Value, ctx *Context) (value.Value, error) {
		return value.NewSimple(strings.TrimSpace(asStr(a[0]))), nil
	}})

	Register(Entry{Name: "LEFT", MinArgs: 2, MaxArgs: 2, Handler: func(a []value.Value, ctx *Context) (value.Value, error) {
		s := []rune(asStr(a[0]))
		n, _ := toInt(a[1])
		if n < 0 {
			n = 0
		}
		if n > len(s) {
			n = len(s)
		}
		return value.NewSimple(string(s[:n])), nil
	}})

	Register(Entry{Name: "RIGHT", MinArgs: 2, MaxArgs: 2, Handler: func(a []value.Value, ctx *Context) (value.Value, error) {
		s := []rune(asStr(a[0]))
		n, _ := toInt(a[1])
		if n < 0 {
			n = 0
		}
		if n > len(s) {
			n = len(s)
		}
		return value.NewSimple(string(s[len(s)-n:])), nil
	}})

	// SUBSTRING(s, start, len) is 1-based with clipping (§8 boundary behaviour):
	// SUBSTRING("abc", 0, 2) == "ab" (start clipped to 1);
	// SUBSTRING("abc", 5, 1) == "".
	Register(Entry{Name: "SUBSTRING", MinArgs: 3, MaxArgs: 3, Handler: func(a []value.Value, ctx *Context) (value.Value, error) {
		s := []rune(asStr(a[0]))
		start, _ := toInt(a[1])
		length, _ := toInt(a[2])
		if start < 1 {
			start = 1
		}
		if length < 0 {
			length = 0
		}
		idx := start - 1
		if idx >= len(s) {
			return value.NewSimple(""), nil
		}
		end := idx + length
		if end > len(s) {
			end = len(s)
		}
		if end < idx {
			end = idx
		}
		return value.NewSimple(string(s[idx:end])), nil
	}})

	Register(Entry{Name: "REPLACE", MinArgs: 3, MaxArgs: 3, Handler: func(a []value.Value, ctx *Context) (value.Value, error) {
		return value.NewSimple(strings.ReplaceAll(asStr(a[0]), asStr(a[1]), asStr(a[2]))), nil
	}})

	Register(Entry{Name: "CHARINDEX", MinArgs: 2, MaxArgs: 3, Handler: func(a []value.Value, ctx *Context) (value.Value, error) {
		needle := asStr(a[0])
		hay := []rune(asStr(a[1]))
		start := 0
		if len(a) == 3 {
			n, _ := toInt(a[2])
			if n > 1 {
				start = n - 1
			}
		}
		if start > len(hay) {
			return value.NewSimple(int64(0)), nil
		}
		idx := strings.Index(string(hay[start:]), needle)
		if idx < 0 {
			return value.NewSimple(int64(0)), nil
		}
		return value.NewSimple(int64(start + len([]rune(string(hay[start:])[:idx])) + 1)), nil
	}})

	Register(Entry{Name: "PATINDEX", MinArgs: 2, MaxArgs: 2, Handler: func(a []value.Value, ctx *Context) (value.Value, error) {
		pat := strings.Trim(asStr(a[0]), "%")
		hay := asStr(a[1])
		idx := strings.Index(hay, pat)
		if idx < 0 {
			return value.NewSimple(int64(0)), nil
		}
		return value.NewSimple(int64(idx + 1)), nil
	}})

	// CONCAT is variadic, NULL-tolerant: Null arguments are treated as empty.
	Register(Entry{Name: "CONCAT", MinArgs: 2, MaxArgs: MaxArgs, NullSafe: true, Handler: func(a []value.Value, ctx *Context) (value.Value, error) {
		var b strings.Builder
		for _, v := range a {
			if !v.IsNull() {
				b.WriteString(asStr(v))
			}
		}
		return value.NewSimple(b.String()), nil
	}})

	Register(Entry{Name: "CONCAT_WS", MinArgs: 3, MaxArgs: MaxArgs, NullSafe: true, Handler: func(a []value.Value, ctx *Context) (value.Value, error) {
		if a[0].IsNull() {
			return value.Null, nil
		}
		sep := asStr(a[0])
		var parts []string
		for _, v := range a[1:] {
			if !v.IsNull() {
				parts = append(parts, asStr(v))
			}
		}
		return value.NewSimple(strings.Join(parts, sep)), nil
	}})

	Register(Entry{Name: "STRING_SPLIT", MinArgs: 2, MaxArgs: 2, Handler: func(a []value.Value, ctx *Context) (value.Value, error) {
		parts := strings.Split(asStr(a[0]), asStr(a[1]))
		return value.NewFormatted(parts, strings.Join(parts, ", ")), nil
	}})

	Register(Entry{Name: "REVERSE", MinArgs: 1, MaxArgs: 1, Handler: func(a []value.Value, ctx *Context) (value.Value, error) {
		r := []rune(asStr(a[0]))
		for i, j := 0, len(r)-1; i < j; i, j = i+1, j-1 {
			r[i], r[j] = r[j], r[i]
		}
		return value.NewSimple(string(r)), nil
	}})

	Register(Entry{Name: "REPLICATE", MinArgs: 2, MaxArgs: 2, Handler: func(a []value.Value, ctx *Context) (value.Value, error) {
		n, _ := toInt(a[1])
		if n < 0 {
			n = 0
		}
		return value.NewSimple(strings.Repeat(asStr(a[0]), n)), nil
	}})

	Register(Entry{Name: "SPACE", MinArgs: 1, MaxArgs: 1, Handler: func(a []value.Value, ctx *Context) (value.Value, error) {
		n, _ := toInt(a[0])
		if n < 0 {
			n = 0
		}
		return value.NewSimple(strings.Repeat(" ", n)), nil
	}})

	Register(Entry{Name: "FORMAT", MinArgs: 2, MaxArgs: 3, Handler: func(a []value.Value, ctx *Context) (value.Value, error) {
		f, ok := asFloat(a[0])
		fmtSpec := asStr(a[1])
		if !ok {
			return value.NewSimple(asStr(a[0])), nil
		}
		switch fmtSpec {
		case "N", "N0":
			return value.NewSimple(fmt.Sprintf("%.0f", f)), nil
		case "N2":
			return value.NewSimple(fmt.Sprintf("%.2f", f)), nil
		default:
			return value.NewSimple(strconv.FormatFloat(f, 'f', -1, 64)), nil
		}
	}})

	Register(Entry{Name: "STR", MinArgs: 1, MaxArgs: 3, Handler: func(a []value.Value, ctx *Context) (value.Value, error) {
		f, _ := asFloat(a[0])
		length := 10
		decimals := 0
		if len(a) >= 2 {
			length, _ = toInt(a[1])
		}
		if len(a) == 3 {
			decimals, _ = toInt(a[2])
		}
		s := strconv.FormatFloat(f, 'f', decimals, 64)
		if len(s) < length {
			s = strings.Repeat(" ", length-len(s)) + s
		}
		return value.NewSimple(s), nil
	}})
}
