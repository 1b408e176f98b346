package main

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/dvsuite/queryexec/pool"
	"github.com/dvsuite/queryexec/value"
)

// webAPITarget implements importer.Target over the Web API's upsert-by-PATCH
// convention. One is constructed per Importer and leases a fresh connection
// (and thus a fresh token) for every record, same as webAPIClient does for
// export.
type webAPITarget struct {
	envURL string
	pool   *pool.Pool
}

func (t *webAPITarget) Upsert(ctx context.Context, entity string, rec *value.Record) (string, error) {
	lease, err := t.pool.GetLease(ctx)
	if err != nil {
		return "", err
	}
	defer lease.Release()

	body := map[string]any{}
	id := ""
	for _, k := range rec.Keys() {
		v, _ := rec.Get(k)
		if v.IsNull() {
			continue
		}
		if k == "sourceId" {
			continue
		}
		body[k] = v.Raw()
		if lookup, ok := v.AsLookup(); ok && lookup.ID.String() != "" {
			body[k] = lookup.ID.String()
		}
	}
	if v, ok := rec.Get("id"); ok {
		if s, ok := v.Raw().(string); ok {
			id = s
		}
	}
	if id == "" {
		id = fmt.Sprintf("%v", rec.GetOrNull("sourceId").Raw())
	}

	payload, err := json.Marshal(body)
	if err != nil {
		return "", err
	}
	return upsertViaWebAPI(ctx, t.envURL, tokenOf(lease), entity, "", id, payload)
}

// DisableSideEffects and EnableSideEffects are no-ops in this harness:
// importer.Target's signature carries no per-request headers, so neither
// sets a SuppressDuplicateDetection/bypass-plugin-execution header on later
// Upserts, and neither logs anything.
func (t *webAPITarget) DisableSideEffects(ctx context.Context, entities []string) error {
	return nil
}

func (t *webAPITarget) EnableSideEffects(ctx context.Context, entities []string) error {
	return nil
}
