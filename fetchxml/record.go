package fetchxml

import (
	"github.com/dvsuite/queryexec/value"
	"github.com/google/uuid"
)

// RawEntityReference mirrors the platform's EntityReference payload shape.
type RawEntityReference struct {
	ID          uuid.UUID
	EntityName  string
	DisplayName string
}

// RawOptionSetValue mirrors a single picklist selection.
type RawOptionSetValue struct {
	Value     int
	Formatted string
}

// RawMoney mirrors a Money payload.
type RawMoney struct {
	Amount float64
}

// RawAliasedValue wraps a value returned for a linked-entity/aggregate
// column; AliasedValue payloads unwrap recursively per §4.4.
type RawAliasedValue struct {
	Value any
}

// RawRow is one server row: qualified key -> raw payload (absent keys mean
// the server omitted the column, mapped to Null per the Record contract).
type RawRow map[string]any

// toValue converts one raw cell, unwrapping AliasedValue and recognizing the
// EntityReference/OptionSetValue/OptionSetValue-collection/Money/Formatted
// shapes named in §4.4.
func toValue(raw any) value.Value {
	switch v := raw.(type) {
	case nil:
		return value.Null
	case RawAliasedValue:
		return toValue(v.Value)
	case RawEntityReference:
		return value.NewLookup(value.Lookup{ID: v.ID, EntityName: v.EntityName, DisplayName: v.DisplayName})
	case RawOptionSetValue:
		return value.NewOptionSet(value.OptionSet{Code: v.Value, Formatted: v.Formatted})
	case []RawOptionSetValue:
		opts := make([]value.OptionSet, len(v))
		for i, o := range v {
			opts[i] = value.OptionSet{Code: o.Value, Formatted: o.Formatted}
		}
		return value.NewOptionSetSet(opts)
	case RawMoney:
		return value.NewMoney(value.Money{Amount: v.Amount})
	case formattedCell:
		return value.NewFormatted(v.Raw, v.Formatted)
	default:
		return value.NewSimple(v)
	}
}

// formattedCell carries a raw payload alongside its server-supplied
// human-readable rendering — "any value carrying a formatted representation
// becomes Formatted" (§4.4).
type formattedCell struct {
	Raw       any
	Formatted string
}

// NewFormattedCell is the RawRow-level constructor callers use to mark a
// cell as carrying a formatted rendering.
func NewFormattedCell(raw any, formatted string) any {
	return formattedCell{Raw: raw, Formatted: formatted}
}

// MapRecord maps one RawRow onto cols, applying the §4.4 qualified-key
// lookup order (alias -> linkedEntityAlias.logicalName -> logicalName) and
// injecting the primary id column when present and not already mapped. A nil
// cols (the all-attributes case) maps every key the row actually carries.
func MapRecord(entityLogicalName string, primaryIDField string, row RawRow, cols []value.Column) *value.Record {
	rec := value.NewRecord()
	if cols == nil {
		for k, raw := range row {
			rec.Set(k, toValue(raw))
		}
	} else {
		for _, col := range cols {
			key := col.QualifiedKey()
			if raw, ok := row[key]; ok {
				rec.Set(key, toValue(raw))
			}
		}
	}
	if primaryIDField != "" {
		if _, already := rec.Get(primaryIDField); !already {
			if raw, ok := row[primaryIDField]; ok {
				rec.Set(primaryIDField, toValue(raw))
			}
		}
	}
	return rec
}
