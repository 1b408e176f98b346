package fetchxml

import (
	"context"

	"github.com/dvsuite/queryexec/value"
)

const defaultMaxRecords = 5000

func hasColumn(cols []value.Column, logicalName string) bool {
	for _, c := range cols {
		if c.LogicalName == logicalName && c.LinkedEntityAlias == "" {
			return true
		}
	}
	return false
}

// Page is one server response to a single Retrieve call.
type Page struct {
	Rows         []RawRow
	MoreRecords  bool
	PagingCookie string
	TotalCount   *int
}

// Client issues one FetchXML retrieval against the wire. fetchxml does not
// own the transport (that's the pool/Web API collaborator's job); it only
// drives the paging loop and rewrite rules around whatever Client provides.
type Client interface {
	Retrieve(ctx context.Context, doc *Document) (Page, error)
}

// AllPages iterates Retrieve until !MoreRecords or the accumulated row count
// reaches maxRecords (default 5000 when <= 0), carrying pagingCookie between
// calls and retaining the first page's columns, per §4.4.
func AllPages(ctx context.Context, client Client, doc *Document, entityLogicalName, primaryIDField string, maxRecords int) (*value.QueryResult, error) {
	if maxRecords <= 0 {
		maxRecords = defaultMaxRecords
	}

	cols := Columns(doc)
	allAttributes := cols == nil && hasAllAttributes(doc.Root.Child("entity"))
	if !allAttributes && primaryIDField != "" && !hasColumn(cols, primaryIDField) {
		cols = append(cols, value.Column{LogicalName: primaryIDField})
	}

	var records []*value.Record
	var lastCookie string
	page := 1
	moreRecords := false
	var totalCount *int

	for {
		rewritten := Rewrite(doc, Options{PageNumber: page, PagingCookie: lastCookie, IncludeCount: page == 1})
		resp, err := client.Retrieve(ctx, rewritten)
		if err != nil {
			return nil, err
		}

		useCols := cols
		if allAttributes {
			useCols = nil // inferred after all pages, once all rows are in
		}
		for _, row := range resp.Rows {
			records = append(records, MapRecord(entityLogicalName, primaryIDField, row, useCols))
			if len(records) >= maxRecords {
				break
			}
		}

		moreRecords = resp.MoreRecords
		lastCookie = resp.PagingCookie
		if resp.TotalCount != nil {
			totalCount = resp.TotalCount
		}

		if !moreRecords || len(records) >= maxRecords {
			if len(records) >= maxRecords {
				moreRecords = true
				lastCookie = ""
			}
			break
		}
		page++
	}

	if allAttributes {
		cols = InferAllAttributesColumns(records)
	}

	return &value.QueryResult{
		EntityLogicalName: entityLogicalName,
		Columns:           cols,
		Records:           records,
		Count:             len(records),
		TotalCount:        totalCount,
		MoreRecords:       moreRecords,
		PagingCookie:      lastCookie,
		PageNumber:        page,
	}, nil
}
