package runs

import (
	"context"
	"errors"
	"os"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/tomhorwitzsynthesis/akropolis-monthly-tracking-test/internal/application/aggregate"
	"github.com/tomhorwitzsynthesis/akropolis-monthly-tracking-test/internal/application/analyses"
	"github.com/tomhorwitzsynthesis/akropolis-monthly-tracking-test/internal/domain/annotation"
	"github.com/tomhorwitzsynthesis/akropolis-monthly-tracking-test/internal/domain/dataset"
	domain "github.com/tomhorwitzsynthesis/akropolis-monthly-tracking-test/internal/domain/runs"
)

type memRepo struct {
	mu      sync.Mutex
	runs    map[domain.RunID]domain.Run
	history []domain.Status
}

func newMemRepo() *memRepo { return &memRepo{runs: map[domain.RunID]domain.Run{}} }

func (m *memRepo) Save(_ context.Context, r *domain.Run) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.runs[r.ID] = *r
	m.history = append(m.history, r.Status)
	return nil
}

func (m *memRepo) Get(_ context.Context, _ string, id domain.RunID) (*domain.Run, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	r, ok := m.runs[id]
	if !ok {
		return nil, errors.New("not found")
	}
	return &r, nil
}

func (m *memRepo) Latest(context.Context, string, int) ([]*domain.Run, error) { return nil, nil }

type memFailures struct{ saved []*domain.Failure }

func (m *memFailures) SaveAll(_ context.Context, f []*domain.Failure) error {
	m.saved = append(m.saved, f...)
	return nil
}

func (m *memFailures) ListByRun(context.Context, string, domain.RunID, int) ([]*domain.Failure, error) {
	return m.saved, nil
}

type fakeStore struct {
	downloaded, uploaded string
}

func (f *fakeStore) Upload(_ context.Context, _, key string) (string, error) {
	return "http://minio/" + key, nil
}

func (f *fakeStore) UploadAndCleanup(ctx context.Context, localPath, key string) (string, error) {
	f.uploaded = key
	_ = os.Remove(localPath)
	return f.Upload(ctx, localPath, key)
}

func (f *fakeStore) Download(_ context.Context, key, localPath string) error {
	f.downloaded = key
	return os.WriteFile(localPath, []byte("x"), 0o600)
}

type fakeReader struct {
	table dataset.Table
	err   error
}

func (f fakeReader) Read(context.Context, string, string) (dataset.Table, error) { return f.table, f.err }

type fakeExporter struct{ written aggregate.Workbook }

func (f *fakeExporter) Write(path string, wb aggregate.Workbook) error {
	f.written = wb
	return os.WriteFile(path, []byte("xlsx"), 0o600)
}

type fakeAnalyzer struct{ got analyses.Request }

func (f *fakeAnalyzer) Run(_ context.Context, req analyses.Request) (analyses.Output, error) {
	f.got = req
	var m annotation.Manifest
	m.Add(annotation.StatusSuccess)
	m.Add(annotation.StatusCallError)
	return analyses.Output{
		Workbook: aggregate.Workbook{Kind: req.Kind, Manifest: m},
		Failures: []annotation.Failure{{Stage: "selection", Key: "Acme", Status: annotation.StatusCallError, Reason: "boom"}},
	}, nil
}

type fixedClock struct{ t time.Time }

func (c fixedClock) Now() time.Time { return c.t }

func service(t *testing.T) (*Service, *memRepo, *memFailures, *fakeStore, *fakeAnalyzer) {
	repo, fails, store, an := newMemRepo(), &memFailures{}, &fakeStore{}, &fakeAnalyzer{}
	s := &Service{
		Repo:      repo,
		Failures:  fails,
		Artifacts: store,
		Reader:    fakeReader{table: dataset.Table{Columns: []string{"content", "brand"}}},
		Exporter:  &fakeExporter{},
		Analyzer:  an,
		Columns: func(annotation.Media) dataset.Columns {
			return dataset.Columns{Text: "content", Brand: "brand"}
		},
		Clock:   fixedClock{time.Date(2026, 1, 2, 3, 4, 5, 0, time.UTC)},
		WorkDir: t.TempDir(),
	}
	return s, repo, fails, store, an
}

func TestTrigger(t *testing.T) {
	s, repo, fails, store, an := service(t)
	res, err := s.Trigger(context.Background(), TriggerCommand{
		TenantID: "acme", Kind: "creativity", Media: "social_media", Source: "uploads/posts.xlsx",
	})
	require.NoError(t, err)

	assert.Equal(t, string(domain.StatusSuccess), res.Status)
	assert.Equal(t, 2, res.Manifest.Total)
	assert.Equal(t, "uploads/posts.xlsx", store.downloaded)
	assert.Equal(t, "acme/social_media/creativity/"+res.ID+".xlsx", store.uploaded)
	assert.Equal(t, "http://minio/"+store.uploaded, res.ArtifactURL)
	assert.Equal(t, []domain.Status{domain.StatusQueued, domain.StatusRunning, domain.StatusSuccess}, repo.history)
	assert.Equal(t, "content", an.got.Columns.Text)

	require.Len(t, fails.saved, 1)
	assert.Equal(t, domain.RunID(res.ID), fails.saved[0].RunID)
	assert.Equal(t, "Acme", fails.saved[0].Key)

	stored, err := s.Get(context.Background(), "acme", domain.RunID(res.ID))
	require.NoError(t, err)
	assert.Equal(t, annotation.KindCreativity, stored.Kind)
}

func TestTriggerRejectsInvalidCommands(t *testing.T) {
	s, repo, _, _, _ := service(t)
	for _, cmd := range []TriggerCommand{
		{Kind: "sentiment", Media: "pr", Source: "x"},
		{Kind: "creativity", Media: "tv", Source: "x"},
		{Kind: "creativity", Media: "pr"},
	} {
		_, err := s.Trigger(context.Background(), cmd)
		assert.ErrorIs(t, err, ErrInvalidCommand)
	}
	assert.Empty(t, repo.history)
}

func TestTriggerMarksRunFailed(t *testing.T) {
	s, repo, _, _, _ := service(t)
	s.Reader = fakeReader{err: errors.New("not a workbook")}
	res, err := s.Trigger(context.Background(), TriggerCommand{TenantID: "acme", Kind: "archetype", Media: "ads", Source: "a.xlsx", Local: true})
	require.Error(t, err)
	assert.Equal(t, string(domain.StatusFailed), res.Status)

	stored, gerr := repo.Get(context.Background(), "acme", domain.RunID(res.ID))
	require.NoError(t, gerr)
	assert.Equal(t, domain.StatusFailed, stored.Status)
	assert.Contains(t, stored.Error, "not a workbook")
}

func TestTriggerColumnOverride(t *testing.T) {
	s, _, _, _, an := service(t)
	s.Artifacts = nil
	cols := dataset.Columns{Text: "Post", Brand: "Page"}
	res, err := s.Trigger(context.Background(), TriggerCommand{Kind: "pillars", Media: "social_media", Source: "local.xlsx", Columns: &cols})
	require.NoError(t, err)
	assert.Equal(t, cols, an.got.Columns)
	assert.FileExists(t, res.ArtifactURL)
}
