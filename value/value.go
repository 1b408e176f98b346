// Package value implements the typed cell model (C1): Value, Column, Record
// and QueryResult, as described in spec §3.
package value

import (
	"sort"
	"strings"

	"github.com/google/uuid"
)

// Kind discriminates the Value union. A non-null Value carries exactly one
// payload variant matching its Kind.
type Kind int

const (
	KindNull Kind = iota
	KindSimple
	KindLookup
	KindOptionSet
	KindOptionSetSet
	KindMoney
	KindFormatted
)

// Lookup is an EntityReference-shaped payload: a 128-bit id plus the entity
// it targets, with an optional human display name.
type Lookup struct {
	ID          uuid.UUID
	EntityName  string
	DisplayName string // empty when the server didn't supply one
}

// OptionSet is a single option-set (picklist) selection.
type OptionSet struct {
	Code      int
	Formatted string // empty when the server didn't supply a label
}

// Money carries a decimal amount alongside its optional formatted rendering.
type Money struct {
	Amount    float64
	Formatted string
}

// Formatted pairs a raw value with its human-readable rendering. Formatted
// is never constructed with an empty Formatted string (see NewFormatted).
type Formatted struct {
	Raw       any
	Formatted string
}

// Value is the discriminated cell type. Zero value is Null.
type Value struct {
	kind      Kind
	simple    any
	lookup    Lookup
	option    OptionSet
	optionSet []OptionSet
	money     Money
	formatted Formatted
}

// Null is the canonical null Value.
var Null = Value{kind: KindNull}

// NewSimple wraps a primitive payload (string, int64, float64, bool, time.Time, ...).
func NewSimple(v any) Value {
	if v == nil {
		return Null
	}
	return Value{kind: KindSimple, simple: v}
}

// NewLookup constructs a Lookup-kind Value.
func NewLookup(l Lookup) Value {
	return Value{kind: KindLookup, lookup: l}
}

// NewOptionSet constructs an OptionSet-kind Value.
func NewOptionSet(o OptionSet) Value {
	return Value{kind: KindOptionSet, option: o}
}

// NewOptionSetSet constructs an OptionSetSet-kind Value (multi-select picklist).
func NewOptionSetSet(os []OptionSet) Value {
	return Value{kind: KindOptionSetSet, optionSet: os}
}

// NewMoney constructs a Money-kind Value.
func NewMoney(m Money) Value {
	return Value{kind: KindMoney, money: m}
}

// NewFormatted constructs a Formatted-kind Value. Per the §3 invariant,
// Formatted.formatted is never empty; callers passing an empty rendering get
// a plain Simple(raw) instead.
func NewFormatted(raw any, formatted string) Value {
	if formatted == "" {
		return NewSimple(raw)
	}
	return Value{kind: KindFormatted, formatted: Formatted{Raw: raw, Formatted: formatted}}
}

func (v Value) Kind() Kind   { return v.kind }
func (v Value) IsNull() bool { return v.kind == KindNull }

// Raw returns the underlying comparison payload for any non-null variant:
// the simple value itself, the Lookup.ID, the OptionSet.Code, the Money
// amount, or the Formatted.Raw. Comparisons between Values always compare
// raw payloads (§3).
func (v Value) Raw() any {
	switch v.kind {
	case KindNull:
		return nil
	case KindSimple:
		return v.simple
	case KindLookup:
		return v.lookup.ID
	case KindOptionSet:
		return v.option.Code
	case KindOptionSetSet:
		return v.optionSet
	case KindMoney:
		return v.money.Amount
	case KindFormatted:
		return v.formatted.Raw
	}
	return nil
}

// AsLookup returns the Lookup payload and whether v is Lookup-kind.
func (v Value) AsLookup() (Lookup, bool) {
	if v.kind != KindLookup {
		return Lookup{}, false
	}
	return v.lookup, true
}

// AsOptionSet returns the OptionSet payload and whether v is OptionSet-kind.
func (v Value) AsOptionSet() (OptionSet, bool) {
	if v.kind != KindOptionSet {
		return OptionSet{}, false
	}
	return v.option, true
}

// AsOptionSetSet returns the []OptionSet payload and whether v is OptionSetSet-kind.
func (v Value) AsOptionSetSet() ([]OptionSet, bool) {
	if v.kind != KindOptionSetSet {
		return nil, false
	}
	return v.optionSet, true
}

// AsMoney returns the Money payload and whether v is Money-kind.
func (v Value) AsMoney() (Money, bool) {
	if v.kind != KindMoney {
		return Money{}, false
	}
	return v.money, true
}

// AsFormatted returns the Formatted payload and whether v is Formatted-kind.
func (v Value) AsFormatted() (Formatted, bool) {
	if v.kind != KindFormatted {
		return Formatted{}, false
	}
	return v.formatted, true
}

// Equal compares two Values by raw payload, per §3.
func (v Value) Equal(other Value) bool {
	if v.kind == KindNull || other.kind == KindNull {
		return v.kind == other.kind
	}
	return v.Raw() == other.Raw()
}

// Column describes one result column (§3).
type Column struct {
	LogicalName       string
	Alias             string
	LinkedEntityAlias string
	LinkedEntityName  string
	IsAggregate       bool
	AggregateFunction string
	DataType          string // "Unknown" when inferred from all-attributes
}

// QualifiedKey is the lookup key used in a Record map: alias if present,
// else linkedEntityAlias.logicalName if linked, else logicalName.
func (c Column) QualifiedKey() string {
	if c.Alias != "" {
		return c.Alias
	}
	if c.LinkedEntityAlias != "" {
		return c.LinkedEntityAlias + "." + c.LogicalName
	}
	return c.LogicalName
}

// Record is a case-insensitive mapping from qualified key to Value.
type Record struct {
	values map[string]Value // keyed by lower-cased qualified key
	keys   map[string]string
}

// NewRecord constructs an empty Record.
func NewRecord() *Record {
	return &Record{values: map[string]Value{}, keys: map[string]string{}}
}

// Set stores v under qualified key k (case-insensitively).
func (r *Record) Set(k string, v Value) {
	lk := strings.ToLower(k)
	r.values[lk] = v
	r.keys[lk] = k
}

// Get returns the Value for k, and whether the key is present at all. A
// caller who knows the column exists should treat "key absent" as Null;
// Get's second return distinguishes "never mapped" from "mapped to Null".
func (r *Record) Get(k string) (Value, bool) {
	v, ok := r.values[strings.ToLower(k)]
	return v, ok
}

// GetOrNull returns the Value for k, or Null if the server omitted the key.
func (r *Record) GetOrNull(k string) Value {
	v, ok := r.Get(k)
	if !ok {
		return Null
	}
	return v
}

// Keys returns the original-case keys present in this record, sorted for
// determinism.
func (r *Record) Keys() []string {
	out := make([]string, 0, len(r.keys))
	for _, k := range r.keys {
		out = append(out, k)
	}
	sort.Strings(out)
	return out
}

// Len reports the number of mapped keys.
func (r *Record) Len() int { return len(r.values) }

// QueryResult is the outcome of a FetchXML or TDS query (§3).
type QueryResult struct {
	EntityLogicalName string
	Columns           []Column
	Records           []*Record
	Count             int
	TotalCount        *int
	MoreRecords       bool
	PagingCookie      string
	PageNumber        int
	ElapsedMs         int64
	ExecutedFetch     string
	IsAggregate       bool
}
