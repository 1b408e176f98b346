package fetchxml

import "testing"

func TestParse_MissingEntityFaults(t *testing.T) {
	_, err := Parse(`<fetch></fetch>`)
	if err == nil {
		t.Fatalf("expected InvalidFetchXml")
	}
}

func TestRewrite_TopAndPageBecomesCountAndPage(t *testing.T) {
	doc, err := Parse(`<fetch top="10"><entity name="account"><attribute name="name"/></entity></fetch>`)
	if err != nil {
		t.Fatal(err)
	}
	Rewrite(doc, Options{PageNumber: 2})

	if v, _ := doc.Root.Get("count"); v != "10" {
		t.Fatalf("expected count=10, got %v", v)
	}
	if v, _ := doc.Root.Get("page"); v != "2" {
		t.Fatalf("expected page=2, got %v", v)
	}
	if _, hasTop := doc.Root.Get("top"); hasTop {
		t.Fatalf("expected top to be removed")
	}
}

func TestRewrite_CountClampedAt5000(t *testing.T) {
	doc, err := Parse(`<fetch top="9000"><entity name="account"><attribute name="name"/></entity></fetch>`)
	if err != nil {
		t.Fatal(err)
	}
	Rewrite(doc, Options{PageNumber: 1})
	if v, _ := doc.Root.Get("count"); v != "5000" {
		t.Fatalf("expected count clamped to 5000, got %v", v)
	}
}

func TestRewrite_IncludeCount(t *testing.T) {
	doc, err := Parse(`<fetch><entity name="account"><attribute name="name"/></entity></fetch>`)
	if err != nil {
		t.Fatal(err)
	}
	Rewrite(doc, Options{IncludeCount: true})
	if v, _ := doc.Root.Get("returntotalrecordcount"); v != "true" {
		t.Fatalf("expected returntotalrecordcount=true, got %v", v)
	}
}
