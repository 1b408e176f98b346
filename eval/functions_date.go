package eval

import (
	"strings"
	"time"

	"github.com/dvsuite/queryexec/value"
)

// datePart normalizes a DATEPART/DATEADD/DATEDIFF part-name argument: part
// names are case-insensitive per spec.md §4.1 (DATEPART('YEAR', d) and
// DATEPART('year', d) are equivalent).
func datePart(v value.Value) string {
	return strings.ToLower(asStr(v))
}

// quarterOf returns t's calendar quarter, 1-4.
func quarterOf(t time.Time) int {
	return (int(t.Month())-1)/3 + 1
}

func asTime(v value.Value) (time.Time, bool) {
	switch raw := v.Raw().(type) {
	case time.Time:
		return raw, true
	case string:
		for _, layout := range []string{time.RFC3339, "2006-01-02T15:04:05.000", "2006-01-02 15:04:05", "2006-01-02"} {
			if tm, err := time.Parse(layout, raw); err == nil {
				return tm, true
			}
		}
	}
	return time.Time{}, false
}

func init() {
	// GETDATE/SYSUTCDATETIME return ctx.Now, stamped once per script (§4.1):
	// every call within one evaluation sees the same instant.
	Register(Entry{Name: "GETDATE", MinArgs: 0, MaxArgs: 0, NullSafe: true, Handler: func(a []value.Value, ctx *Context) (value.Value, error) {
		return value.NewSimple(ctx.Now), nil
	}})

	Register(Entry{Name: "SYSUTCDATETIME", MinArgs: 0, MaxArgs: 0, NullSafe: true, Handler: func(a []value.Value, ctx *Context) (value.Value, error) {
		return value.NewSimple(ctx.Now.UTC()), nil
	}})

	Register(Entry{Name: "GETUTCDATE", MinArgs: 0, MaxArgs: 0, NullSafe: true, Handler: func(a []value.Value, ctx *Context) (value.Value, error) {
		return value.NewSimple(ctx.Now.UTC()), nil
	}})

	Register(Entry{Name: "YEAR", MinArgs: 1, MaxArgs: 1, Handler: func(a []value.Value, ctx *Context) (value.Value, error) {
		t, ok := asTime(a[0])
		if !ok {
			return value.Null, nil
		}
		return value.NewSimple(int64(t.Year())), nil
	}})

	Register(Entry{Name: "MONTH", MinArgs: 1, MaxArgs: 1, Handler: func(a []value.Value, ctx *Context) (value.Value, error) {
		t, ok := asTime(a[0])
		if !ok {
			return value.Null, nil
		}
		return value.NewSimple(int64(t.Month())), nil
	}})

	Register(Entry{Name: "DAY", MinArgs: 1, MaxArgs: 1, Handler: func(a []value.Value, ctx *Context) (value.Value, error) {
		t, ok := asTime(a[0])
		if !ok {
			return value.Null, nil
		}
		return value.NewSimple(int64(t.Day())), nil
	}})

	Register(Entry{Name: "DATEPART", MinArgs: 2, MaxArgs: 2, Handler: func(a []value.Value, ctx *Context) (value.Value, error) {
		t, ok := asTime(a[1])
		if !ok {
			return value.Null, nil
		}
		switch datePart(a[0]) {
		case "year", "yy", "yyyy":
			return value.NewSimple(int64(t.Year())), nil
		case "quarter", "qq", "q":
			return value.NewSimple(int64(quarterOf(t))), nil
		case "month", "mm", "m":
			return value.NewSimple(int64(t.Month())), nil
		case "day", "dd", "d":
			return value.NewSimple(int64(t.Day())), nil
		case "week", "wk", "ww":
			_, week := t.ISOWeek()
			return value.NewSimple(int64(week)), nil
		case "hour", "hh":
			return value.NewSimple(int64(t.Hour())), nil
		case "minute", "mi", "n":
			return value.NewSimple(int64(t.Minute())), nil
		case "second", "ss", "s":
			return value.NewSimple(int64(t.Second())), nil
		case "millisecond", "ms":
			return value.NewSimple(int64(t.Nanosecond() / 1e6)), nil
		case "weekday", "dw":
			return value.NewSimple(int64(t.Weekday()) + 1), nil
		}
		return value.Null, nil
	}})

	Register(Entry{Name: "DATEADD", MinArgs: 3, MaxArgs: 3, Handler: func(a []value.Value, ctx *Context) (value.Value, error) {
		t, ok := asTime(a[2])
		if !ok {
			return value.Null, nil
		}
		n, _ := toInt(a[1])
		switch datePart(a[0]) {
		case "year", "yy", "yyyy":
			return value.NewSimple(t.AddDate(n, 0, 0)), nil
		case "quarter", "qq", "q":
			return value.NewSimple(t.AddDate(0, n*3, 0)), nil
		case "month", "mm", "m":
			return value.NewSimple(t.AddDate(0, n, 0)), nil
		case "day", "dd", "d":
			return value.NewSimple(t.AddDate(0, 0, n)), nil
		case "week", "wk", "ww":
			return value.NewSimple(t.AddDate(0, 0, n*7)), nil
		case "hour", "hh":
			return value.NewSimple(t.Add(time.Duration(n) * time.Hour)), nil
		case "minute", "mi", "n":
			return value.NewSimple(t.Add(time.Duration(n) * time.Minute)), nil
		case "second", "ss", "s":
			return value.NewSimple(t.Add(time.Duration(n) * time.Second)), nil
		case "millisecond", "ms":
			return value.NewSimple(t.Add(time.Duration(n) * time.Millisecond)), nil
		}
		return value.Null, nil
	}})

	Register(Entry{Name: "DATEDIFF", MinArgs: 3, MaxArgs: 3, Handler: func(a []value.Value, ctx *Context) (value.Value, error) {
		t1, ok1 := asTime(a[1])
		t2, ok2 := asTime(a[2])
		if !ok1 || !ok2 {
			return value.Null, nil
		}
		d := t2.Sub(t1)
		switch datePart(a[0]) {
		case "year", "yy", "yyyy":
			return value.NewSimple(int64(t2.Year() - t1.Year())), nil
		case "quarter", "qq", "q":
			return value.NewSimple(int64((t2.Year()-t1.Year())*4 + quarterOf(t2) - quarterOf(t1))), nil
		case "month", "mm", "m":
			return value.NewSimple(int64((t2.Year()-t1.Year())*12 + int(t2.Month()) - int(t1.Month()))), nil
		case "day", "dd", "d":
			return value.NewSimple(int64(d.Hours() / 24)), nil
		case "week", "wk", "ww":
			return value.NewSimple(int64(d.Hours() / 24 / 7)), nil
		case "hour", "hh":
			return value.NewSimple(int64(d.Hours())), nil
		case "minute", "mi", "n":
			return value.NewSimple(int64(d.Minutes())), nil
		case "second", "ss", "s":
			return value.NewSimple(int64(d.Seconds())), nil
		case "millisecond", "ms":
			return value.NewSimple(d.Milliseconds()), nil
		}
		return value.Null, nil
	}})

	Register(Entry{Name: "EOMONTH", MinArgs: 1, MaxArgs: 1, Handler: func(a []value.Value, ctx *Context) (value.Value, error) {
		t, ok := asTime(a[0])
		if !ok {
			return value.Null, nil
		}
		firstOfNext := time.Date(t.Year(), t.Month()+1, 1, 0, 0, 0, 0, t.Location())
		return value.NewSimple(firstOfNext.AddDate(0, 0, -1)), nil
	}})

	Register(Entry{Name: "DATEFROMPARTS", MinArgs: 3, MaxArgs: 3, Handler: func(a []value.Value, ctx *Context) (value.Value, error) {
		year, ok1 := toInt(a[0])
		month, ok2 := toInt(a[1])
		day, ok3 := toInt(a[2])
		if !ok1 || !ok2 || !ok3 {
			return value.Null, nil
		}
		return value.NewSimple(time.Date(year, time.Month(month), day, 0, 0, 0, 0, time.UTC)), nil
	}})

	Register(Entry{Name: "DATETIMEFROMPARTS", MinArgs: 7, MaxArgs: 7, Handler: func(a []value.Value, ctx *Context) (value.Value, error) {
		year, ok1 := toInt(a[0])
		month, ok2 := toInt(a[1])
		day, ok3 := toInt(a[2])
		hour, ok4 := toInt(a[3])
		minute, ok5 := toInt(a[4])
		second, ok6 := toInt(a[5])
		ms, ok7 := toInt(a[6])
		if !ok1 || !ok2 || !ok3 || !ok4 || !ok5 || !ok6 || !ok7 {
			return value.Null, nil
		}
		return value.NewSimple(time.Date(year, time.Month(month), day, hour, minute, second, ms*1e6, time.UTC)), nil
	}})
}
