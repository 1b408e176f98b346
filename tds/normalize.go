package tds

import (
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/dvsuite/queryexec/value"
)

// normalizeCell maps one scanned driver cell into a value.Value, keyed off
// the column's DatabaseTypeName as reported by the driver's ColumnType
// (§4.5's "Column metadata is read from the protocol's row descriptor").
// An unrecognized type degrades to Simple(raw) rather than faulting, so an
// exotic server type never blocks an otherwise-successful query.
func normalizeCell(dataType string, raw any) value.Value {
	if raw == nil {
		return value.Null
	}
	if b, ok := raw.([]byte); ok {
		raw = string(b)
	}

	switch strings.ToUpper(dataType) {
	case "UNIQUEIDENTIFIER":
		if s, ok := raw.(string); ok {
			if id, err := uuid.Parse(s); err == nil {
				return value.NewSimple(id)
			}
		}
		return value.NewSimple(raw)
	case "DATETIME", "DATETIME2", "SMALLDATETIME", "DATE", "DATETIMEOFFSET":
		if t, ok := raw.(time.Time); ok {
			return value.NewSimple(t.UTC())
		}
		return value.NewSimple(raw)
	case "MONEY", "SMALLMONEY":
		amount, ok := asFloat(raw)
		if !ok {
			return value.NewSimple(raw)
		}
		return value.NewMoney(value.Money{Amount: amount})
	case "DECIMAL", "NUMERIC", "FLOAT", "REAL":
		if f, ok := asFloat(raw); ok {
			return value.NewSimple(f)
		}
		return value.NewSimple(raw)
	case "BIT":
		if b, ok := raw.(bool); ok {
			return value.NewSimple(b)
		}
		return value.NewSimple(raw)
	case "INT", "BIGINT", "SMALLINT", "TINYINT":
		if n, ok := asInt64(raw); ok {
			return value.NewSimple(n)
		}
		return value.NewSimple(raw)
	case "NVARCHAR", "VARCHAR", "NCHAR", "CHAR", "TEXT", "NTEXT":
		return value.NewSimple(fmt.Sprintf("%v", raw))
	default:
		return value.NewSimple(raw)
	}
}

func asFloat(raw any) (float64, bool) {
	switch v := raw.(type) {
	case float64:
		return v, true
	case float32:
		return float64(v), true
	case int64:
		return float64(v), true
	case string:
		var f float64
		if _, err := fmt.Sscanf(v, "%g", &f); err == nil {
			return f, true
		}
	}
	return 0, false
}

func asInt64(raw any) (int64, bool) {
	switch v := raw.(type) {
	case int64:
		return v, true
	case int32:
		return int64(v), true
	case int:
		return int64(v), true
	}
	return 0, false
}
