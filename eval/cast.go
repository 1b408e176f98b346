package eval

import (
	"fmt"
	"math"
	"strconv"
	"strings"
	"time"

	"github.com/dvsuite/queryexec/errs"
	"github.com/dvsuite/queryexec/value"
)

// convertStyle maps a CONVERT style code to a Go reference-time layout for
// datetime<->string conversions. Unlisted/unknown codes fall back to the
// default ISO form (126), per §4.1.
var convertStyle = map[int]string{
	1:   "01/02/06",
	2:   "06.01.02",
	3:   "02/01/06",
	4:   "02.01.06",
	5:   "02-01-06",
	100: "Jan  2 2006  3:04PM",
	101: "01/02/2006",
	102: "2006.01.02",
	103: "02/01/2006",
	104: "02.01.2006",
	105: "02-01-2006",
	106: "02 Jan 2006",
	107: "Jan 02, 2006",
	108: "15:04:05",
	120: "2006-01-02 15:04:05",
	121: "2006-01-02 15:04:05.000",
	126: "2006-01-02T15:04:05.000",
	127: "2006-01-02T15:04:05.000Z",
}

// defaultDateTimeLayout is used when no style code is supplied.
const defaultDateTimeLayout = "2006-01-02T15:04:05.000"

// castValue implements CAST(v AS t) and, via an optional style, CONVERT(t, v, style).
func castValue(v value.Value, t TypeSpec, style *int) (value.Value, error) {
	if v.IsNull() {
		return value.Null, nil
	}
	base := strings.ToLower(t.Base)
	switch base {
	case "int", "bigint", "smallint", "tinyint":
		n, err := castToInt(v)
		if err != nil {
			return value.Null, err
		}
		return value.NewSimple(n), nil

	case "bit":
		b, err := castToBit(v)
		if err != nil {
			return value.Null, err
		}
		return value.NewSimple(boolToBit(b)), nil

	case "float", "real":
		f, err := castToFloat(v)
		if err != nil {
			return value.Null, err
		}
		return value.NewSimple(f), nil

	case "decimal", "numeric":
		f, err := castToFloat(v)
		if err != nil {
			return value.Null, err
		}
		scale := t.Scale
		if !t.HasPrecScale {
			scale = 0
		}
		return value.NewSimple(roundHalfAwayFromZero(f, scale)), nil

	case "money", "smallmoney":
		f, err := castToFloat(v)
		if err != nil {
			return value.Null, err
		}
		rounded := roundHalfAwayFromZero(f, 4)
		return value.NewMoney(value.Money{Amount: rounded, Formatted: strconv.FormatFloat(rounded, 'f', 4, 64)}), nil

	case "datetime", "date", "smalldatetime":
		tm, err := castToTime(v)
		if err != nil {
			return value.Null, err
		}
		if base == "date" {
			tm = time.Date(tm.Year(), tm.Month(), tm.Day(), 0, 0, 0, 0, tm.Location())
		}
		return value.NewSimple(tm), nil

	case "uniqueidentifier":
		s := castToGuidString(v)
		return value.NewSimple(s), nil

	case "nvarchar", "varchar", "nchar", "char", "text", "ntext":
		s, err := castToString(v, style)
		if err != nil {
			return value.Null, err
		}
		if t.HasLength && t.MaxLength >= 0 {
			r := []rune(s)
			if len(r) > t.MaxLength {
				s = string(r[:t.MaxLength])
			}
		}
		return value.NewSimple(s), nil
	}
	return value.Null, errs.New(errs.InvalidCast, "unsupported CAST/CONVERT target type "+t.Base).WithTarget(t.Base)
}

func castToInt(v value.Value) (int64, error) {
	switch raw := v.Raw().(type) {
	case int64:
		return raw, nil
	case float64:
		return int64(math.Trunc(raw)), nil // truncate toward zero
	case bool:
		return boolToBit(raw), nil
	case string:
		s := strings.TrimSpace(raw)
		if n, err := strconv.ParseInt(s, 10, 64); err == nil {
			return n, nil
		}
		if f, err := strconv.ParseFloat(s, 64); err == nil {
			return int64(math.Trunc(f)), nil
		}
		return 0, errs.New(errs.InvalidCast, "cannot cast string to int: "+raw)
	case time.Time:
		return 0, errs.New(errs.InvalidCast, "cannot cast datetime to int")
	}
	return 0, errs.New(errs.InvalidCast, fmt.Sprintf("cannot cast %T to int", v.Raw()))
}

func castToBit(v value.Value) (bool, error) {
	switch raw := v.Raw().(type) {
	case bool:
		return raw, nil
	case int64:
		return raw != 0, nil
	case float64:
		return raw != 0, nil
	case string:
		s := strings.TrimSpace(strings.ToLower(raw))
		switch s {
		case "1", "true":
			return true, nil
		case "0", "false":
			return false, nil
		}
		return false, errs.New(errs.InvalidCast, "cannot cast string to bit: "+raw)
	}
	return false, errs.New(errs.InvalidCast, fmt.Sprintf("cannot cast %T to bit", v.Raw()))
}

func castToFloat(v value.Value) (float64, error) {
	f, ok := asFloat(v)
	if !ok {
		if _, isTime := v.Raw().(time.Time); isTime {
			return 0, errs.New(errs.InvalidCast, "cannot cast datetime to numeric")
		}
		return 0, errs.New(errs.InvalidCast, fmt.Sprintf("cannot cast %T to numeric", v.Raw()))
	}
	return f, nil
}

func castToTime(v value.Value) (time.Time, error) {
	switch raw := v.Raw().(type) {
	case time.Time:
		return raw, nil
	case string:
		s := strings.TrimSpace(raw)
		for _, layout := range []string{time.RFC3339, "2006-01-02T15:04:05.000", "2006-01-02 15:04:05", "2006-01-02"} {
			if tm, err := time.Parse(layout, s); err == nil {
				return tm, nil
			}
		}
		return time.Time{}, errs.New(errs.InvalidCast, "cannot parse datetime: "+raw)
	case int64, float64:
		return time.Time{}, errs.New(errs.InvalidCast, "cannot cast numeric to datetime")
	}
	return time.Time{}, errs.New(errs.InvalidCast, fmt.Sprintf("cannot cast %T to datetime", v.Raw()))
}

func castToGuidString(v value.Value) string {
	if l, ok := v.AsLookup(); ok {
		return strings.ToUpper(l.ID.String())
	}
	return strings.ToUpper(asString(v))
}

func castToString(v value.Value, style *int) (string, error) {
	switch raw := v.Raw().(type) {
	case time.Time:
		layout := defaultDateTimeLayout
		if style != nil {
			if l, ok := convertStyle[*style]; ok {
				layout = l
			}
		}
		return raw.Format(layout), nil
	case bool:
		return strconv.FormatInt(boolToBit(raw), 10), nil
	}
	if l, ok := v.AsLookup(); ok {
		return strings.ToUpper(l.ID.String()), nil
	}
	if m, ok := v.AsMoney(); ok {
		return strconv.FormatFloat(m.Amount, 'f', 4, 64), nil
	}
	return asString(v), nil
}

func roundHalfAwayFromZero(f float64, scale int) float64 {
	mult := math.Pow(10, float64(scale))
	scaled := f * mult
	if scaled >= 0 {
		return math.Floor(scaled+0.5) / mult
	}
	return math.Ceil(scaled-0.5) / mult
}

// roundHalfToEven implements banker's rounding: exact .5 ties round to the
// nearest even integer at the target scale, matching ROUND's default mode
// (§8: ROUND(2.5,0) == 2).
func roundHalfToEven(f float64, scale int) float64 {
	mult := math.Pow(10, float64(scale))
	scaled := f * mult
	floor := math.Floor(scaled)
	diff := scaled - floor
	switch {
	case diff < 0.5:
		return floor / mult
	case diff > 0.5:
		return (floor + 1) / mult
	default:
		if math.Mod(floor, 2) == 0 {
			return floor / mult
		}
		return (floor + 1) / mult
	}
}
