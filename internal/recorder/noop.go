package recorder

import "context"

// NoopRecorder is a no-op implementation used when SQLite is not available.
type NoopRecorder struct{}

func NewNoopRecorder() *NoopRecorder { return &NoopRecorder{} }

func (n *NoopRecorder) RecordRun(context.Context, *IngestRun) error { return nil }
func (n *NoopRecorder) RecentRuns(context.Context, int) ([]IngestRun, error) {
	return []IngestRun{}, nil
}
func (n *NoopRecorder) Close() error { return nil }
