package importer

import (
	"context"

	"github.com/dvsuite/queryexec/logx"
)

// SuppressionScope disables side-effect registrations (plugins/webhooks) on
// a set of entities for the lifetime of an import run, and guarantees
// re-enabling them on every exit path -- success, panic-free error return,
// or cancellation -- mirroring the teacher's dry_run.go wrap-construct-
// defer-unwind pattern (there: fake driver wrapping; here: disable-then-
// guaranteed-re-enable of server-side side effects).
type SuppressionScope struct {
	target   Target
	entities []string
	log      logx.Logger
}

// EnterSuppression disables side effects on entities and returns a scope
// whose Exit re-enables them. The caller must defer Exit immediately.
func EnterSuppression(ctx context.Context, target Target, entities []string, log logx.Logger) (*SuppressionScope, error) {
	if log == nil {
		log = logx.NullLogger{}
	}
	if err := target.DisableSideEffects(ctx, entities); err != nil {
		return nil, err
	}
	log.Printf("importer: side effects suppressed for %v\n", entities)
	return &SuppressionScope{target: target, entities: entities, log: log}, nil
}

// Exit re-enables side effects, best-effort: a failure here is logged, not
// propagated, since the import's own success/failure has already been
// decided by the time Exit runs.
func (s *SuppressionScope) Exit(ctx context.Context) {
	if s == nil {
		return
	}
	if err := s.target.EnableSideEffects(ctx, s.entities); err != nil {
		s.log.Printf("importer: failed to re-enable side effects for %v: %v\n", s.entities, err)
		return
	}
	s.log.Printf("importer: side effects re-enabled for %v\n", s.entities)
}
