// Package fetchxml implements the FetchXML executor (C5): rewrite rules,
// column extraction, record mapping, and paging, per spec.md §4.4.
package fetchxml

import (
	"encoding/xml"
	"strconv"
	"strings"

	"github.com/dvsuite/queryexec/errs"
)

// Attr is an ordered XML attribute, used in place of a Go map so
// serialization stays deterministic — encoding/xml's own map iteration order
// for dynamically-assembled attributes is not stable across runs, so every
// element here carries its attributes as an explicit ordered slice rather
// than leaning on encoding/xml's default struct-field ordering.
type Attr struct {
	Name  string
	Value string
}

// Element is one FetchXML tree node: fetch, entity, attribute, link-entity,
// filter, condition, order, all-attributes.
type Element struct {
	Tag      string
	Attrs    []Attr
	Children []*Element
}

func (e *Element) Get(name string) (string, bool) {
	for _, a := range e.Attrs {
		if a.Name == name {
			return a.Value, true
		}
	}
	return "", false
}

func (e *Element) Set(name, value string) {
	for i, a := range e.Attrs {
		if a.Name == name {
			e.Attrs[i].Value = value
			return
		}
	}
	e.Attrs = append(e.Attrs, Attr{Name: name, Value: value})
}

func (e *Element) Remove(name string) {
	out := e.Attrs[:0]
	for _, a := range e.Attrs {
		if a.Name != name {
			out = append(out, a)
		}
	}
	e.Attrs = out
}

func (e *Element) Child(tag string) *Element {
	for _, c := range e.Children {
		if c.Tag == tag {
			return c
		}
	}
	return nil
}

func (e *Element) ChildrenOf(tag string) []*Element {
	var out []*Element
	for _, c := range e.Children {
		if c.Tag == tag {
			out = append(out, c)
		}
	}
	return out
}

// Document wraps the root <fetch> element.
type Document struct {
	Root *Element
}

// Parse reads a FetchXML document into tree form.
func Parse(src string) (*Document, error) {
	dec := xml.NewDecoder(strings.NewReader(src))
	root, err := parseElement(dec, nil)
	if err != nil {
		return nil, errs.Wrap(errs.InvalidFetchXml, err)
	}
	if root == nil || root.Tag != "fetch" {
		return nil, errs.New(errs.InvalidFetchXml, "missing root <fetch> element")
	}
	if root.Child("entity") == nil {
		return nil, errs.New(errs.InvalidFetchXml, "missing <entity> element")
	}
	if _, ok := root.Child("entity").Get("name"); !ok {
		return nil, errs.New(errs.InvalidFetchXml, "entity missing name attribute")
	}
	return &Document{Root: root}, nil
}

func parseElement(dec *xml.Decoder, start *xml.StartElement) (*Element, error) {
	var cur *Element
	if start != nil {
		cur = &Element{Tag: start.Name.Local}
		for _, a := range start.Attr {
			cur.Attrs = append(cur.Attrs, Attr{Name: a.Name.Local, Value: a.Value})
		}
	}
	for {
		tok, err := dec.Token()
		if err != nil {
			if cur != nil {
				return cur, nil
			}
			return nil, err
		}
		switch t := tok.(type) {
		case xml.StartElement:
			child, err := parseElement(dec, &t)
			if err != nil {
				return nil, err
			}
			if cur == nil {
				cur = child
			} else {
				cur.Children = append(cur.Children, child)
			}
		case xml.EndElement:
			return cur, nil
		}
	}
}

// Serialize renders the document in stable, attribute-ordered form (rule 4).
func (d *Document) Serialize() string {
	var b strings.Builder
	writeElement(&b, d.Root)
	return b.String()
}

func writeElement(b *strings.Builder, e *Element) {
	b.WriteByte('<')
	b.WriteString(e.Tag)
	for _, a := range e.Attrs {
		b.WriteByte(' ')
		b.WriteString(a.Name)
		b.WriteString(`="`)
		b.WriteString(xmlEscape(a.Value))
		b.WriteByte('"')
	}
	if len(e.Children) == 0 {
		b.WriteString("/>")
		return
	}
	b.WriteByte('>')
	for _, c := range e.Children {
		writeElement(b, c)
	}
	b.WriteString("</")
	b.WriteString(e.Tag)
	b.WriteByte('>')
}

func xmlEscape(s string) string {
	r := strings.NewReplacer(`&`, "&amp;", `"`, "&quot;", `<`, "&lt;", `>`, "&gt;")
	return r.Replace(s)
}

// Options configures Rewrite, mirroring the paging options a caller supplies
// per call (§4.4's Input).
type Options struct {
	PageNumber    int // 0 means "not requested"
	PagingCookie  string
	IncludeCount  bool
}

const maxFetchCount = 5000

// Rewrite applies rules 1-3 (top to count, page/paging-cookie, total record
// count) in order to doc in place and returns the same document. Rule 4,
// deterministic serialization, is Serialize.
func Rewrite(doc *Document, opts Options) *Document {
	fetch := doc.Root // rule attributes (top/page/count/paging-cookie/...) live on <fetch>
	pagingRequested := opts.PageNumber > 0 || opts.PagingCookie != ""

	if top, hasTop := fetch.Get("top"); hasTop && pagingRequested {
		n, err := strconv.Atoi(top)
		if err == nil {
			fetch.Remove("top")
			if n > maxFetchCount {
				n = maxFetchCount
			}
			fetch.Set("count", strconv.Itoa(n))
		}
	}

	if pagingRequested {
		page := opts.PageNumber
		if page == 0 {
			page = 1
		}
		fetch.Set("page", strconv.Itoa(page))
		if opts.PagingCookie != "" {
			fetch.Set("paging-cookie", opts.PagingCookie)
		}
	}

	if opts.IncludeCount {
		fetch.Set("returntotalrecordcount", "true")
	}

	return doc
}
