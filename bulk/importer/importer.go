package importer

import (
	"context"
	"fmt"
	"math/rand"
	"sort"
	"sync"
	"time"

	"github.com/google/uuid"
	"golang.org/x/sync/errgroup"

	"github.com/dvsuite/queryexec/bulk"
	"github.com/dvsuite/queryexec/errs"
	"github.com/dvsuite/queryexec/graph"
	"github.com/dvsuite/queryexec/logx"
	"github.com/dvsuite/queryexec/progress"
	"github.com/dvsuite/queryexec/value"
)

// Target is the write-side collaborator the importer upserts through. It
// is expected to be built on top of the same connection pool (pool.Pool)
// the query executors use; that wiring lives in the collaborator, not here,
// keeping the importer itself pool-agnostic.
type Target interface {
	// Upsert is idempotent on primary key, else a natural-key alternate
	// when the collaborator is configured for one (§4.8).
	Upsert(ctx context.Context, entity string, rec *value.Record) (targetID string, err error)
	DisableSideEffects(ctx context.Context, entities []string) error
	EnableSideEffects(ctx context.Context, entities []string) error
}

// Source supplies one batch at a time for an entity, keyed by batch index,
// so resume can simply ask for the index following the last applied one.
// A false ok with a nil error means the entity is exhausted.
type Source interface {
	NextBatch(ctx context.Context, entity string, batchIndex int) (records []*value.Record, ok bool, err error)
}

// Config holds the ambient import knobs (§6).
type Config struct {
	RetryCap int // per-record cap for Transient/Throttled retries, default 5
}

func DefaultConfig() Config { return Config{RetryCap: 5} }

// Importer drives Import.
type Importer struct {
	Target         Target
	Source         Source
	Graph          *graph.Graph
	CheckpointPath string
	DeadLetter     *bulk.DeadLetterWriter
	Progress       progress.Sink
	Log            logx.Logger
	Cfg            Config
	MaxConcurrent  int

	remap *RemapTable
}

func (im *Importer) progressSink() progress.Sink {
	if im.Progress == nil {
		return progress.NullSink{}
	}
	return im.Progress
}

func (im *Importer) logger() logx.Logger {
	if im.Log == nil {
		return logx.NullLogger{}
	}
	return im.Log
}

func (im *Importer) retryCap() int {
	if im.Cfg.RetryCap <= 0 {
		return DefaultConfig().RetryCap
	}
	return im.Cfg.RetryCap
}

func (im *Importer) concurrency() int {
	if im.MaxConcurrent <= 0 {
		return 1
	}
	return im.MaxConcurrent
}

// selfRefFix is a deferred self-referencing lookup patch, applied in the
// second pass after every non-self record of the entity is upserted (§4.8).
type selfRefFix struct {
	field          string
	sourceTargetID string // this record's own target id (the primary key to upsert against)
	refSourceID    string // the self-ref field's source id, resolved via remap once the pass completes
}

// Import runs plan's tiers strictly in order, bounded within each tier by
// MaxConcurrent, suppressing side effects across every entity in the plan
// for the run's duration (§4.8).
func (im *Importer) Import(ctx context.Context, plan *graph.ExecutionPlan) error {
	im.remap = NewRemapTable()

	checkpoint, err := bulk.LoadCheckpoint(im.CheckpointPath)
	if err != nil {
		return err
	}
	im.hydrateRemapFromCheckpoint(checkpoint)

	var allEntities []string
	for _, tier := range plan.Tiers {
		allEntities = append(allEntities, tier.Entities...)
	}

	scope, err := EnterSuppression(ctx, im.Target, allEntities, im.logger())
	if err != nil {
		return err
	}
	defer scope.Exit(context.Background())

	anyFailed := false
	for i, tier := range plan.Tiers {
		im.progressSink().TierStarted(progress.TierStart{Index: i, Entities: tier.Entities})

		eg, egCtx := errgroup.WithContext(ctx)
		eg.SetLimit(im.concurrency())
		results := make(map[string]error, len(tier.Entities))
		var mu sync.Mutex
		for _, name := range tier.Entities {
			name := name
			eg.Go(func() error {
				err := im.importEntity(egCtx, name, checkpoint)
				mu.Lock()
				results[name] = err
				mu.Unlock()
				if err := checkpoint.Save(im.CheckpointPath); err != nil {
					im.logger().Printf("importer: failed to save checkpoint: %v\n", err)
				}
				// A FatalEntity failure cancels only this entity; the tier
				// continues processing its siblings (§4.8's Completion
				// rule), so importEntity's error is never returned to the
				// errgroup -- that would cancel the whole tier's ctx.
				return nil
			})
		}
		_ = eg.Wait()

		tierFailed := false
		for _, name := range tier.Entities {
			if results[name] != nil {
				tierFailed = true
			}
		}
		if tierFailed {
			anyFailed = true
			im.progressSink().Failure("tier", fmt.Sprintf("tier %d completed with failures", i))
		}
	}

	if anyFailed {
		return errs.New(errs.Fatal, "one or more tiers failed; checkpoint retained for resume")
	}

	scope.Exit(context.Background())
	if err := bulk.Delete(im.CheckpointPath); err != nil {
		im.logger().Printf("importer: failed to delete checkpoint: %v\n", err)
	}
	return nil
}

func (im *Importer) hydrateRemapFromCheckpoint(c *bulk.Checkpoint) {
	for entity, ec := range c.Entities {
		for _, r := range ec.RemapDelta {
			im.remap.Set(entity, r.SourceID, r.TargetID)
		}
	}
}

// importEntity resumes entity from its checkpointed batch index (0 if
// none), upserting every record with non-self lookups remapped, then runs
// the self-reference second pass once the whole entity is done.
func (im *Importer) importEntity(ctx context.Context, entity string, checkpoint *bulk.Checkpoint) error {
	if ec, ok := checkpoint.Entities[entity]; ok && ec.Completed {
		return nil // already completed by a prior run
	}

	node := im.Graph.Nodes[entity]
	start := checkpoint.Entities[entity].LastBatch

	var pendingSelfRefs []selfRefFix
	batchIdx := start
	rows := 0
	for {
		if err := ctx.Err(); err != nil {
			return errs.Wrap(errs.Cancelled, err)
		}

		records, ok, err := im.Source.NextBatch(ctx, entity, batchIdx)
		if err != nil {
			return err
		}
		if !ok {
			break
		}

		applied := 0
		for _, rec := range records {
			fix, err := im.importRecord(ctx, node, rec)
			if err != nil {
				if errs.Is(err, errs.InvalidValue) {
					im.divert(entity, rec, err)
					continue
				}
				if errs.Is(err, errs.Fatal) {
					im.progressSink().Failure("FatalEntity", entity+": "+err.Error())
					return err
				}
				return err
			}
			if fix != nil {
				pendingSelfRefs = append(pendingSelfRefs, *fix)
			}
			applied++
		}

		ec := checkpoint.Entities[entity]
		ec.LastBatch = batchIdx + 1
		ec.RemapDelta = im.remapDelta(entity)
		checkpoint.Entities[entity] = ec

		im.progressSink().ImportBatchApplied(progress.ImportBatch{Entity: entity, BatchIndex: batchIdx, Applied: applied})
		rows += applied
		batchIdx++
	}

	for _, fix := range pendingSelfRefs {
		refTargetID, found := im.remap.Get(entity, fix.refSourceID)
		if !found {
			continue // target outside this run's data; leave unset
		}
		patch := value.NewRecord()
		patch.Set(node.Entity.PrimaryKey, value.NewSimple(fix.sourceTargetID))
		id, _ := uuid.Parse(refTargetID)
		patch.Set(fix.field, value.NewLookup(value.Lookup{ID: id, EntityName: entity}))
		if _, err := im.Target.Upsert(ctx, entity, patch); err != nil {
			return err
		}
	}

	ec := checkpoint.Entities[entity]
	ec.Completed = true
	checkpoint.Entities[entity] = ec
	im.progressSink().EntityCompleted(progress.EntityDone{Entity: entity, Rows: rows})
	return nil
}

func (im *Importer) remapDelta(entity string) []bulk.RemapEntry {
	snap := im.remap.Snapshot(entity)
	keys := make([]string, 0, len(snap))
	for k := range snap {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	out := make([]bulk.RemapEntry, 0, len(keys))
	for _, k := range keys {
		out = append(out, bulk.RemapEntry{SourceID: k, TargetID: snap[k]})
	}
	return out
}

func (im *Importer) divert(entity string, rec *value.Record, cause error) {
	key := recordKey(rec)
	im.progressSink().Failure("ValidationFailed", entity+"/"+key+": "+cause.Error())
	if im.DeadLetter == nil {
		return
	}
	if err := im.DeadLetter.Append(entity, key, cause.Error()); err != nil {
		im.logger().Printf("importer: failed writing dead-letter for %s/%s: %v\n", entity, key, err)
	}
}

func recordKey(rec *value.Record) string {
	for _, k := range rec.Keys() {
		if v, ok := rec.Get(k); ok {
			return fmt.Sprintf("%v", v.Raw())
		}
	}
	return "<empty>"
}

// importRecord upserts one record after remapping its non-self intra-plan
// lookups, retrying per §4.8's classification policy. It returns a
// self-reference fix to apply in the second pass, if the record carries a
// non-null self-ref lookup.
func (im *Importer) importRecord(ctx context.Context, node *graph.Node, rec *value.Record) (*selfRefFix, error) {
	sourceID := recordKey(rec)
	if v, ok := rec.Get(node.Entity.PrimaryKey); ok {
		sourceID = fmt.Sprintf("%v", v.Raw())
	}

	remapped, fix := im.remapNonSelfLookups(node, rec, sourceID)

	var targetID string
	var lastErr error
	for attempt := 0; attempt <= im.retryCap(); attempt++ {
		targetID, lastErr = im.Target.Upsert(ctx, node.Entity.Name, remapped)
		if lastErr == nil {
			break
		}
		code, _ := errs.CodeOf(lastErr)
		switch code {
		case errs.AuthFailed:
			if attempt >= 1 {
				return nil, lastErr // one re-lease/retry only
			}
			continue
		case errs.Transient, errs.Throttled:
			if attempt >= im.retryCap() {
				return nil, errs.Wrap(errs.Fatal, lastErr)
			}
			time.Sleep(backoffDelay(attempt))
			continue
		default:
			return nil, lastErr
		}
	}
	if lastErr != nil {
		return nil, lastErr
	}

	im.remap.Set(node.Entity.Name, sourceID, targetID)

	if fix != nil {
		fix.sourceTargetID = targetID
	}
	return fix, nil
}

// remapNonSelfLookups rewrites every non-self intra-plan lookup field to
// its target-environment id, leaving external lookups verbatim. A self-ref
// lookup is left untouched here (it's resolved in the second pass) but
// reported back as a pending fix.
func (im *Importer) remapNonSelfLookups(node *graph.Node, rec *value.Record, sourceID string) (*value.Record, *selfRefFix) {
	out := value.NewRecord()
	for _, k := range rec.Keys() {
		if v, ok := rec.Get(k); ok {
			out.Set(k, v)
		}
	}

	var fix *selfRefFix
	for _, l := range node.Entity.Lookups {
		cell, ok := out.Get(l.FieldName)
		if !ok || cell.IsNull() {
			continue
		}
		lookup, isLookup := cell.AsLookup()
		if !isLookup {
			continue
		}
		if l.TargetEntity == node.Entity.Name {
			fix = &selfRefFix{field: l.FieldName, refSourceID: lookup.ID.String()}
			continue
		}
		if targetID, found := im.remap.Get(l.TargetEntity, lookup.ID.String()); found {
			id, _ := uuid.Parse(targetID)
			out.Set(l.FieldName, value.NewLookup(value.Lookup{ID: id, EntityName: lookup.EntityName, DisplayName: lookup.DisplayName}))
		}
		// else: external reference, preserved verbatim (§4.8).
	}
	return out, fix
}

// backoffDelay mirrors the pool's full-jitter exponential policy (500ms
// doubling, capped at 30s) for per-record Transient/Throttled retries.
func backoffDelay(attempt int) time.Duration {
	base := 500 * time.Millisecond
	max := base << uint(attempt)
	if max > 30*time.Second || max <= 0 {
		max = 30 * time.Second
	}
	return time.Duration(rand.Int63n(int64(max)))
}
