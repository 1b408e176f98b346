package fetchxml

import (
	"context"
	"testing"
)

type fakeClient struct {
	pages []Page
	calls int
}

func (f *fakeClient) Retrieve(ctx context.Context, doc *Document) (Page, error) {
	p := f.pages[f.calls]
	f.calls++
	return p, nil
}

func TestAllPages_ThreePagesOfTwoRows(t *testing.T) {
	doc, err := Parse(`<fetch><entity name="account"><attribute name="name"/></entity></fetch>`)
	if err != nil {
		t.Fatal(err)
	}
	client := &fakeClient{pages: []Page{
		{Rows: []RawRow{{"name": "a"}, {"name": "b"}}, MoreRecords: true, PagingCookie: "c1"},
		{Rows: []RawRow{{"name": "c"}, {"name": "d"}}, MoreRecords: true, PagingCookie: "c2"},
		{Rows: []RawRow{{"name": "e"}, {"name": "f"}}, MoreRecords: false},
	}}

	qr, err := AllPages(context.Background(), client, doc, "account", "accountid", 5000)
	if err != nil {
		t.Fatal(err)
	}
	if qr.Count != 6 {
		t.Fatalf("expected count=6, got %d", qr.Count)
	}
	if qr.MoreRecords {
		t.Fatalf("expected moreRecords=false")
	}
	if len(qr.Columns) != 2 || qr.Columns[0].LogicalName != "name" || qr.Columns[1].LogicalName != "accountid" {
		t.Fatalf("expected [name, accountid] columns, got %+v", qr.Columns)
	}
}

func TestAllPages_AllAttributesInference(t *testing.T) {
	doc, err := Parse(`<fetch><entity name="account"><all-attributes/></entity></fetch>`)
	if err != nil {
		t.Fatal(err)
	}
	client := &fakeClient{pages: []Page{
		{Rows: []RawRow{{"a": "1", "b": "2"}, {"b": "3", "c": "4"}, {"a": "5", "c": "6", "accountid": "x"}}, MoreRecords: false},
	}}

	qr, err := AllPages(context.Background(), client, doc, "account", "accountid", 5000)
	if err != nil {
		t.Fatal(err)
	}
	want := []string{"accountid", "a", "b", "c"}
	if len(qr.Columns) != len(want) {
		t.Fatalf("expected %d columns, got %d: %+v", len(want), len(qr.Columns), qr.Columns)
	}
	for i, w := range want {
		if qr.Columns[i].LogicalName != w {
			t.Fatalf("column %d: expected %s, got %s", i, w, qr.Columns[i].LogicalName)
		}
		if qr.Columns[i].DataType != "Unknown" {
			t.Fatalf("expected dataType=Unknown, got %s", qr.Columns[i].DataType)
		}
	}
}
