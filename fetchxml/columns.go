package fetchxml

import (
	"sort"
	"strings"

	"github.com/dvsuite/queryexec/value"
)

// Columns walks the document's <entity>/<link-entity> tree and extracts one
// value.Column per <attribute>, per §4.4's Column extraction rule. If
// <all-attributes/> is present anywhere, columns start empty — the caller
// infers them from returned records instead (see InferAllAttributesColumns).
func Columns(doc *Document) []value.Column {
	entity := doc.Root.Child("entity")
	if entity == nil {
		return nil
	}
	if hasAllAttributes(entity) {
		return nil
	}
	var cols []value.Column
	walkEntity(entity, "", "", &cols)
	return cols
}

func hasAllAttributes(e *Element) bool {
	if e.Child("all-attributes") != nil {
		return true
	}
	for _, le := range e.ChildrenOf("link-entity") {
		if hasAllAttributes(le) {
			return true
		}
	}
	return false
}

func walkEntity(e *Element, linkedAlias, linkedName string, cols *[]value.Column) {
	for _, attr := range e.ChildrenOf("attribute") {
		name, _ := attr.Get("name")
		alias, _ := attr.Get("alias")
		col := value.Column{
			LogicalName:       name,
			Alias:             alias,
			LinkedEntityAlias: linkedAlias,
			LinkedEntityName:  linkedName,
		}
		if agg, ok := attr.Get("aggregate"); ok {
			col.IsAggregate = true
			col.AggregateFunction = agg
		}
		*cols = append(*cols, col)
	}
	for _, le := range e.ChildrenOf("link-entity") {
		leName, _ := le.Get("name")
		leAlias, hasAlias := le.Get("alias")
		if !hasAlias {
			leAlias = leName
		}
		walkEntity(le, leAlias, leName, cols)
	}
}

// InferAllAttributesColumns unions the key sets of all records returned for
// an all-attributes query, ordering entity-id-like keys first then
// ASCII-case-insensitive (§4.4's All-attributes column inference).
func InferAllAttributesColumns(records []*value.Record) []value.Column {
	seen := map[string]bool{}
	var keys []string
	for _, r := range records {
		for _, k := range r.Keys() {
			lk := strings.ToLower(k)
			if !seen[lk] {
				seen[lk] = true
				keys = append(keys, k)
			}
		}
	}
	sort.Slice(keys, func(i, j int) bool {
		iID, jID := isIDLike(keys[i]), isIDLike(keys[j])
		if iID != jID {
			return iID // id-like keys sort first
		}
		return strings.ToLower(keys[i]) < strings.ToLower(keys[j])
	})
	cols := make([]value.Column, len(keys))
	for i, k := range keys {
		cols[i] = value.Column{LogicalName: k, DataType: "Unknown"}
	}
	return cols
}

func isIDLike(key string) bool {
	return strings.HasSuffix(strings.ToLower(key), "id")
}
