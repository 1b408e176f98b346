package progress

import "github.com/dvsuite/queryexec/logx"

// LogSink renders every event as one line through a logx.Logger, the way a
// collaborator might wire a terminal dialog's status line without this
// package knowing anything about terminals.
type LogSink struct {
	Log logx.Logger
}

func (s LogSink) logger() logx.Logger {
	if s.Log == nil {
		return logx.NullLogger{}
	}
	return s.Log
}

func (s LogSink) ExportPageEmitted(e ExportPage) {
	s.logger().Printf("export %s: page %d, %d rows, moreRecords=%v\n", e.Entity, e.PageNumber, e.EmittedRows, e.MoreRecords)
}

func (s LogSink) EntityCompleted(e EntityDone) {
	if e.Err != nil {
		s.logger().Printf("entity %s failed after %d rows: %v\n", e.Entity, e.Rows, e.Err)
		return
	}
	s.logger().Printf("entity %s completed: %d rows\n", e.Entity, e.Rows)
}

func (s LogSink) TierStarted(t TierStart) {
	s.logger().Printf("tier %d started: %v\n", t.Index, t.Entities)
}

func (s LogSink) ImportBatchApplied(b ImportBatch) {
	s.logger().Printf("import %s: batch %d, %d rows applied\n", b.Entity, b.BatchIndex, b.Applied)
}

func (s LogSink) Failure(classification, detail string) {
	s.logger().Printf("failure [%s]: %s\n", classification, detail)
}

func (s LogSink) Checkpointed(position string) {
	s.logger().Printf("checkpointed: %s\n", position)
}
