// Package export implements the parallel exporter (C8): per-entity paged
// retrieval with bounded parallelism across the whole export, backpressure
// via sink acknowledgement, and progress events, per spec.md §4.7.
//
// Grounded on the teacher's database/concurrent.go ConcurrentMapFuncWithError
// (errgroup fan-out with an ordered-collect channel), adapted here from
// "gather every output" to "stream batches to a sink while the dependency
// graph allows the next entity to start".
package export

import (
	"context"
	"sort"
	"sync"

	"github.com/dvsuite/queryexec/errs"
	"github.com/dvsuite/queryexec/fetchxml"
	"github.com/dvsuite/queryexec/graph"
	"github.com/dvsuite/queryexec/pool"
	"github.com/dvsuite/queryexec/progress"
	"github.com/dvsuite/queryexec/value"
	"golang.org/x/sync/errgroup"
)

// Batch is one chunk of records exported for one entity, paired with the
// columns that describe them.
type Batch struct {
	Entity  string
	Columns []value.Column
	Records []*value.Record
}

// Sink is the backpressure-aware destination for exported batches. Write
// must not return until b is durably consumed; the worker awaits it before
// requesting the next page (§4.7's Backpressure rule). A non-nil error is
// treated as fatal: siblings in the same tier are cancelled.
type Sink interface {
	Write(ctx context.Context, b Batch) error
}

// EntitySource supplies the base FetchXML document and primary-id field
// name used to page through one entity.
type EntitySource interface {
	FetchDoc(entity string) (doc *fetchxml.Document, primaryIDField string, err error)
}

// ClientFactory binds a fetchxml.Client to one leased pool connection.
type ClientFactory func(lease *pool.Lease) fetchxml.Client

// Config holds the ambient export knobs (§6's batchSize/pageSize CLI knob).
type Config struct {
	BatchSize int
}

// DefaultConfig matches spec.md's stated default batch size of 500.
func DefaultConfig() Config { return Config{BatchSize: 500} }

// Exporter drives Export.
type Exporter struct {
	Pool      *pool.Pool
	NewClient ClientFactory
	Source    EntitySource
	Sink      Sink
	Progress  progress.Sink
	Cfg       Config
}

func (ex *Exporter) progressSink() progress.Sink {
	if ex.Progress == nil {
		return progress.NullSink{}
	}
	return ex.Progress
}

func (ex *Exporter) batchSize() int {
	if ex.Cfg.BatchSize <= 0 {
		return DefaultConfig().BatchSize
	}
	return ex.Cfg.BatchSize
}

// Export runs every entity in g concurrently, bounded only by the pool's
// MaxConcurrent (no separate semaphore here -- GetLease is the single
// concurrency governor per §5), starting each entity as soon as every
// entity it depends on (per g's intra-set edges) has completed export. This
// is deliberately finer-grained than a tier barrier: spec.md §4.7 says the
// next tier "may begin as soon as its dependencies have completed export",
// not after every entity in the prior tier finishes.
func Export(ctx context.Context, g *graph.Graph, ex *Exporter) error {
	indegree := make(map[string]int, len(g.Nodes))
	dependents := make(map[string][]string, len(g.Nodes))
	for name, n := range g.Nodes {
		indegree[name] = len(n.Edges)
		for _, dep := range n.Edges {
			dependents[dep] = append(dependents[dep], name)
		}
	}

	eg, egCtx := errgroup.WithContext(ctx)
	var mu sync.Mutex
	started := make(map[string]bool, len(g.Nodes))

	var launch func(name string)
	launch = func(name string) {
		mu.Lock()
		if started[name] {
			mu.Unlock()
			return
		}
		started[name] = true
		mu.Unlock()

		eg.Go(func() error {
			rows, err := ex.exportEntity(egCtx, name)
			ex.progressSink().EntityCompleted(progress.EntityDone{Entity: name, Rows: rows, Err: err})
			if err != nil {
				ex.progressSink().Failure("export", name+": "+err.Error())
				return err
			}

			mu.Lock()
			var ready []string
			for _, dep := range dependents[name] {
				indegree[dep]--
				if indegree[dep] == 0 {
					ready = append(ready, dep)
				}
			}
			mu.Unlock()

			sort.Strings(ready)
			for _, r := range ready {
				launch(r)
			}
			return nil
		})
	}

	var initial []string
	for name, deg := range indegree {
		if deg == 0 {
			initial = append(initial, name)
		}
	}
	sort.Strings(initial)
	for _, name := range initial {
		launch(name)
	}

	return eg.Wait()
}

// exportEntity issues paged Retrieve calls for one entity, emitting a batch
// to ex.Sink every ex.batchSize() records (or at end of the last page), per
// §4.7's Per-entity algorithm. A lease is held for exactly one Retrieve
// call at a time; on Throttled the lease is surrendered via
// Pool.NotifyThrottled before the back-off is re-tried.
func (ex *Exporter) exportEntity(ctx context.Context, entity string) (int, error) {
	doc, primaryIDField, err := ex.Source.FetchDoc(entity)
	if err != nil {
		return 0, err
	}

	cols := fetchxml.Columns(doc)
	allAttributes := cols == nil

	var pending []*value.Record
	var records []*value.Record // only accumulated when allAttributes, for column inference
	total := 0
	page := 1
	cookie := ""

	flush := func(last bool) error {
		if len(pending) == 0 {
			return nil
		}
		useCols := cols
		if allAttributes {
			useCols = fetchxml.InferAllAttributesColumns(records)
		}
		b := Batch{Entity: entity, Columns: useCols, Records: pending}
		if err := ex.Sink.Write(ctx, b); err != nil {
			return errs.Wrap(errs.Fatal, err)
		}
		pending = nil
		return nil
	}

	for {
		if err := ctx.Err(); err != nil {
			return total, errs.Wrap(errs.Cancelled, err)
		}

		resp, err := ex.retrievePage(ctx, doc, page, cookie)
		if err != nil {
			return total, err
		}

		for _, row := range resp.Page.Rows {
			rec := fetchxml.MapRecord(entity, primaryIDField, row, cols)
			pending = append(pending, rec)
			if allAttributes {
				records = append(records, rec)
			}
			total++
			if len(pending) >= ex.batchSize() {
				if err := flush(false); err != nil {
					return total, err
				}
			}
		}

		ex.progressSink().ExportPageEmitted(progress.ExportPage{
			Entity: entity, EmittedRows: total, PageNumber: page, MoreRecords: resp.Page.MoreRecords,
		})

		if !resp.Page.MoreRecords {
			break
		}
		cookie = resp.Page.PagingCookie
		page++
	}

	if err := flush(true); err != nil {
		return total, err
	}
	return total, nil
}

type pageResult struct {
	Page fetchxml.Page
}

// retrievePage leases a client, issues one Retrieve, and releases the
// lease. A Throttled response surrenders the lease via NotifyThrottled and
// retries once the pool's back-off window has elapsed (Pool.GetLease itself
// blocks on the throttle's Wait).
func (ex *Exporter) retrievePage(ctx context.Context, doc *fetchxml.Document, page int, cookie string) (pageResult, error) {
	rewritten := fetchxml.Rewrite(doc, fetchxml.Options{PageNumber: page, PagingCookie: cookie, IncludeCount: page == 1})

	for {
		lease, err := ex.Pool.GetLease(ctx)
		if err != nil {
			return pageResult{}, err
		}
		client := ex.NewClient(lease)
		p, err := client.Retrieve(ctx, rewritten)
		if err != nil {
			if errs.Is(err, errs.Throttled) {
				ex.Pool.NotifyThrottled(lease, 0)
				continue
			}
			lease.Release()
			return pageResult{}, err
		}
		lease.Release()
		return pageResult{Page: p}, nil
	}
}
