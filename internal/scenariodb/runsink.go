package scenariodb

import (
	"context"

	"github.com/vk/gridplan/internal/capability"
)

// RunSink decorates a DB sink with the current run identifier, so export
// hooks do not need to carry it.
type RunSink struct {
	*DB
	RunID string
}

// WriteResult stamps the run identifier before appending the row.
func (s *RunSink) WriteResult(ctx context.Context, row capability.ResultRow) error {
	if row.RunID == "" {
		row.RunID = s.RunID
	}
	return s.DB.WriteResult(ctx, row)
}
