package runs

import (
	"time"

	"github.com/tomhorwitzsynthesis/akropolis-monthly-tracking-test/internal/domain/annotation"
)

type RunID string

// Status of a run. Per-entity failures never move a run to failed; only
// run-level errors such as an unreadable dataset do.
type Status string

const (
	StatusQueued  Status = "queued"
	StatusRunning Status = "running"
	StatusSuccess Status = "success"
	StatusFailed  Status = "failed"
)

// Run is one analysis over one dataset.
type Run struct {
	ID          RunID               `json:"id"`
	TenantID    string              `json:"tenant_id"`
	Kind        annotation.Kind     `json:"kind"`
	Media       annotation.Media    `json:"media"`
	Source      string              `json:"source"`
	Status      Status              `json:"status"`
	TriggeredAt time.Time           `json:"triggered_at"`
	DurationMS  int64               `json:"duration_ms"`
	Manifest    annotation.Manifest `json:"manifest"`
	ArtifactURL string              `json:"artifact_url,omitempty"`
	Error       string              `json:"error,omitempty"`
}

// Failure is a persisted per-entity failure of a run.
type Failure struct {
	ID        int64     `json:"id"`
	TenantID  string    `json:"tenant_id"`
	RunID     RunID     `json:"run_id"`
	CreatedAt time.Time `json:"created_at"`
	annotation.Failure
}
