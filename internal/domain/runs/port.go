package runs

import (
	"context"

	"github.com/tomhorwitzsynthesis/akropolis-monthly-tracking-test/internal/domain/dataset"
)

// Repository persists runs.
type Repository interface {
	Save(ctx context.Context, r *Run) error
	Get(ctx context.Context, tenant string, id RunID) (*Run, error)
	Latest(ctx context.Context, tenant string, limit int) ([]*Run, error)
}

// FailureRepository persists per-entity failures of runs.
type FailureRepository interface {
	SaveAll(ctx context.Context, failures []*Failure) error
	ListByRun(ctx context.Context, tenant string, id RunID, limit int) ([]*Failure, error)
}

// ArtifactStore moves datasets and workbooks in and out of object storage.
type ArtifactStore interface {
	Upload(ctx context.Context, localPath, key string) (string, error)
	UploadAndCleanup(ctx context.Context, localPath, key string) (string, error)
	Download(ctx context.Context, key, localPath string) error
}

// DatasetReader loads a tabular dataset from a local file.
type DatasetReader interface {
	Read(ctx context.Context, path, sheet string) (dataset.Table, error)
}
