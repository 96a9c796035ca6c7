package runs

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/google/uuid"

	"github.com/tomhorwitzsynthesis/akropolis-monthly-tracking-test/internal/application"
	"github.com/tomhorwitzsynthesis/akropolis-monthly-tracking-test/internal/application/aggregate"
	"github.com/tomhorwitzsynthesis/akropolis-monthly-tracking-test/internal/application/analyses"
	"github.com/tomhorwitzsynthesis/akropolis-monthly-tracking-test/internal/domain/annotation"
	"github.com/tomhorwitzsynthesis/akropolis-monthly-tracking-test/internal/domain/dataset"
	domain "github.com/tomhorwitzsynthesis/akropolis-monthly-tracking-test/internal/domain/runs"
	"github.com/tomhorwitzsynthesis/akropolis-monthly-tracking-test/internal/logger"
)

// ErrInvalidCommand marks a trigger request that cannot start a run.
var ErrInvalidCommand = errors.New("invalid run command")

// Analyzer runs one analysis over a loaded dataset.
type Analyzer interface {
	Run(ctx context.Context, req analyses.Request) (analyses.Output, error)
}

// Exporter writes an aggregated workbook to a local file.
type Exporter interface {
	Write(path string, wb aggregate.Workbook) error
}

// Service implements the run use-cases. It is safe for concurrent use as
// long as its collaborators are.
type Service struct {
	Repo      domain.Repository
	Failures  domain.FailureRepository
	Artifacts domain.ArtifactStore
	Reader    domain.DatasetReader
	Exporter  Exporter
	Analyzer  Analyzer
	// Columns maps a media type to its dataset columns.
	Columns func(annotation.Media) dataset.Columns
	Clock   application.Clock
	Log     logger.Logger
	// WorkDir holds downloaded datasets and workbooks before upload.
	WorkDir string
}

type TriggerCommand struct {
	TenantID string `json:"-"`
	Kind     string `json:"analysis"`
	Media    string `json:"media"`
	// Source is an object key, or a local path when Local is set.
	Source string `json:"source"`
	Sheet  string `json:"sheet,omitempty"`
	Local  bool   `json:"local,omitempty"`
	// Columns overrides the media's configured columns when set.
	Columns *dataset.Columns `json:"columns,omitempty"`
}

type TriggerResult struct {
	ID          string              `json:"id"`
	Status      string              `json:"status"`
	ArtifactURL string              `json:"artifact_url"`
	DurationMS  int64               `json:"duration_ms"`
	Manifest    annotation.Manifest `json:"manifest"`
}

// Trigger runs an analysis to completion: it records the run, executes it
// and stores the outcome.
func (s *Service) Trigger(ctx context.Context, cmd TriggerCommand) (TriggerResult, error) {
	run, err := s.Start(ctx, cmd)
	if err != nil {
		return TriggerResult{}, err
	}
	return s.Execute(ctx, run, cmd)
}

// TriggerUntilDone executes an already started run detached from the
// caller's context, for use from a goroutine after the request returned.
func (s *Service) TriggerUntilDone(run *domain.Run, cmd TriggerCommand) (TriggerResult, error) {
	return s.Execute(context.Background(), run, cmd)
}

// Start validates cmd and saves a queued run.
func (s *Service) Start(ctx context.Context, cmd TriggerCommand) (*domain.Run, error) {
	kind, err := annotation.ParseKind(cmd.Kind)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidCommand, err)
	}
	media, err := annotation.ParseMedia(cmd.Media)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidCommand, err)
	}
	if cmd.Source == "" {
		return nil, fmt.Errorf("%w: source is required", ErrInvalidCommand)
	}
	run := &domain.Run{
		ID:          domain.RunID(fmt.Sprintf("%s-%s", uuid.New().String(), kind)),
		TenantID:    cmd.TenantID,
		Kind:        kind,
		Media:       media,
		Source:      cmd.Source,
		Status:      domain.StatusQueued,
		TriggeredAt: s.clock().Now(),
	}
	if err := s.Repo.Save(ctx, run); err != nil {
		return nil, fmt.Errorf("save run: %w", err)
	}
	return run, nil
}

// Execute loads the dataset, runs the analysis, exports and uploads the
// workbook and records the manifest and per-entity failures.
func (s *Service) Execute(ctx context.Context, run *domain.Run, cmd TriggerCommand) (TriggerResult, error) {
	log := s.log().With(logger.String("run_id", string(run.ID)), logger.String("tenant", run.TenantID))
	start := s.clock().Now()

	run.Status = domain.StatusRunning
	if err := s.Repo.Save(ctx, run); err != nil {
		return s.fail(run, start, fmt.Errorf("save run: %w", err))
	}

	path, cleanup, err := s.fetch(ctx, run, cmd)
	if err != nil {
		return s.fail(run, start, err)
	}
	defer cleanup()

	table, err := s.Reader.Read(ctx, path, cmd.Sheet)
	if err != nil {
		return s.fail(run, start, fmt.Errorf("read dataset: %w", err))
	}

	cols := s.columns(run.Media)
	if cmd.Columns != nil {
		cols = *cmd.Columns
	}
	out, err := s.Analyzer.Run(ctx, analyses.Request{Kind: run.Kind, Media: run.Media, Columns: cols, Table: table})
	if err != nil {
		return s.fail(run, start, fmt.Errorf("run analysis: %w", err))
	}

	url, err := s.publish(ctx, run, out.Workbook)
	if err != nil {
		return s.fail(run, start, err)
	}

	if len(out.Failures) > 0 && s.Failures != nil {
		now := s.clock().Now()
		rows := make([]*domain.Failure, len(out.Failures))
		for i, f := range out.Failures {
			rows[i] = &domain.Failure{TenantID: run.TenantID, RunID: run.ID, CreatedAt: now, Failure: f}
		}
		if err := s.Failures.SaveAll(ctx, rows); err != nil {
			log.Warn("failed to persist entity failures", logger.Error(err))
		}
	}

	run.Status = domain.StatusSuccess
	run.Manifest = out.Workbook.Manifest
	run.ArtifactURL = url
	run.DurationMS = s.clock().Now().Sub(start).Milliseconds()
	if err := s.Repo.Save(ctx, run); err != nil {
		return result(run), fmt.Errorf("save run: %w", err)
	}
	log.Info("run finished",
		logger.String("status", string(run.Status)),
		logger.Int("total", run.Manifest.Total),
		logger.Int("errored", run.Manifest.Errored),
		logger.Int64("duration_ms", run.DurationMS),
	)
	return result(run), nil
}

// fetch resolves the dataset to a local path, downloading it when it lives
// in object storage.
func (s *Service) fetch(ctx context.Context, run *domain.Run, cmd TriggerCommand) (string, func(), error) {
	if cmd.Local || s.Artifacts == nil {
		return cmd.Source, func() {}, nil
	}
	local := filepath.Join(s.workDir(), fmt.Sprintf("%s-input%s", run.ID, filepath.Ext(cmd.Source)))
	if err := s.Artifacts.Download(ctx, cmd.Source, local); err != nil {
		return "", nil, fmt.Errorf("download dataset: %w", err)
	}
	return local, func() { _ = os.Remove(local) }, nil
}

// publish writes the workbook and uploads it when a store is configured.
// Without a store the local path is the artifact.
func (s *Service) publish(ctx context.Context, run *domain.Run, wb aggregate.Workbook) (string, error) {
	name := fmt.Sprintf("%s.xlsx", run.ID)
	local := filepath.Join(s.workDir(), name)
	if err := s.Exporter.Write(local, wb); err != nil {
		return "", fmt.Errorf("write workbook: %w", err)
	}
	if s.Artifacts == nil {
		return local, nil
	}
	key := fmt.Sprintf("%s/%s/%s/%s", run.TenantID, run.Media, run.Kind, name)
	url, err := s.Artifacts.UploadAndCleanup(ctx, local, key)
	if err != nil {
		_ = os.Remove(local)
		return "", fmt.Errorf("upload workbook: %w", err)
	}
	return url, nil
}

func (s *Service) fail(run *domain.Run, start time.Time, cause error) (TriggerResult, error) {
	run.Status = domain.StatusFailed
	run.Error = cause.Error()
	run.DurationMS = s.clock().Now().Sub(start).Milliseconds()
	if err := s.Repo.Save(context.Background(), run); err != nil {
		s.log().Error("failed to record run failure", logger.String("run_id", string(run.ID)), logger.Error(err))
	}
	s.log().Error("run failed", logger.String("run_id", string(run.ID)), logger.Error(cause))
	return result(run), cause
}

func result(run *domain.Run) TriggerResult {
	return TriggerResult{
		ID:          string(run.ID),
		Status:      string(run.Status),
		ArtifactURL: run.ArtifactURL,
		DurationMS:  run.DurationMS,
		Manifest:    run.Manifest,
	}
}

// Latest returns the newest runs of a tenant.
func (s *Service) Latest(ctx context.Context, tenant string, limit int) ([]*domain.Run, error) {
	return s.Repo.Latest(ctx, tenant, limit)
}

func (s *Service) Get(ctx context.Context, tenant string, id domain.RunID) (*domain.Run, error) {
	return s.Repo.Get(ctx, tenant, id)
}

// FailuresOf lists the entity failures recorded for a run.
func (s *Service) FailuresOf(ctx context.Context, tenant string, id domain.RunID, limit int) ([]*domain.Failure, error) {
	if s.Failures == nil {
		return []*domain.Failure{}, nil
	}
	return s.Failures.ListByRun(ctx, tenant, id, limit)
}

func (s *Service) clock() application.Clock {
	if s.Clock == nil {
		return application.SystemClock{}
	}
	return s.Clock
}

func (s *Service) log() logger.Logger {
	if s.Log == nil {
		return logger.NewNop()
	}
	return s.Log
}

func (s *Service) workDir() string {
	if s.WorkDir == "" {
		return os.TempDir()
	}
	return s.WorkDir
}

func (s *Service) columns(m annotation.Media) dataset.Columns {
	if s.Columns == nil {
		return dataset.Columns{}
	}
	return s.Columns(m)
}
