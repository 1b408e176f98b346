package export

import (
	"context"
	"sort"
	"sync"
	"testing"

	"github.com/dvsuite/queryexec/fetchxml"
	"github.com/dvsuite/queryexec/graph"
	"github.com/dvsuite/queryexec/pool"
)

type fakeLease struct{}

func (fakeLease) Healthy() bool { return true }
func (fakeLease) Close() error  { return nil }

type fakeSeed struct{}

func (fakeSeed) Clone(ctx context.Context) (pool.LeaseClient, error) { return fakeLease{}, nil }
func (fakeSeed) Invalidate()                                        {}

func newTestPool(t *testing.T, maxConcurrent int) *pool.Pool {
	t.Helper()
	p := pool.New(func(ctx context.Context, envURL string) (pool.SeedClient, error) {
		return fakeSeed{}, nil
	}, "https://example.crm.dynamics.com", pool.Config{MaxConcurrent: maxConcurrent, ThrottleFloor: 1})
	if err := p.Init(context.Background(), nil); err != nil {
		t.Fatalf("pool.Init: %v", err)
	}
	return p
}

// fakeFetchClient serves two pages of one row each for any entity.
type fakeFetchClient struct {
	mu    *sync.Mutex
	pages map[string]int
}

func (c *fakeFetchClient) Retrieve(ctx context.Context, doc *fetchxml.Document) (fetchxml.Page, error) {
	entity, _ := doc.Root.Child("entity").Get("name")
	c.mu.Lock()
	n := c.pages[entity]
	c.pages[entity] = n + 1
	c.mu.Unlock()

	row := fetchxml.RawRow{entity + "id": "row-" + entity}
	return fetchxml.Page{Rows: []fetchxml.RawRow{row}, MoreRecords: n == 0}, nil
}

type fakeSource struct{}

func (fakeSource) FetchDoc(entity string) (*fetchxml.Document, string, error) {
	doc, err := fetchxml.Parse(`<fetch><entity name="` + entity + `"><attribute name="name"/></entity></fetch>`)
	return doc, entity + "id", err
}

type collectingSink struct {
	mu      sync.Mutex
	batches []Batch
}

func (s *collectingSink) Write(ctx context.Context, b Batch) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.batches = append(s.batches, b)
	return nil
}

func TestExport_DrainsEveryEntityAcrossTiers(t *testing.T) {
	p := newTestPool(t, 2)
	fake := &fakeFetchClient{mu: &sync.Mutex{}, pages: map[string]int{}}
	sink := &collectingSink{}

	g, err := graph.Build([]graph.Entity{
		{Name: "account"},
		{Name: "contact", Lookups: []graph.Lookup{{FieldName: "parentcustomerid", TargetEntity: "account"}}},
	}, nil)
	if err != nil {
		t.Fatalf("Build: %v", err)
	}

	ex := &Exporter{
		Pool:      p,
		NewClient: func(l *pool.Lease) fetchxml.Client { return fake },
		Source:    fakeSource{},
		Sink:      sink,
		Cfg:       Config{BatchSize: 1},
	}

	if err := Export(context.Background(), g, ex); err != nil {
		t.Fatalf("Export: %v", err)
	}

	var entities []string
	total := 0
	for _, b := range sink.batches {
		entities = append(entities, b.Entity)
		total += len(b.Records)
	}
	sort.Strings(entities)
	if total != 4 {
		t.Fatalf("expected 4 total records (2 pages x 2 entities), got %d", total)
	}
}
