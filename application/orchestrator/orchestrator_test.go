package orchestrator

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/karaokeforge/pipeline/application/alignment"
	"github.com/karaokeforge/pipeline/application/pipeline"
	"github.com/karaokeforge/pipeline/domain/model"
	"github.com/karaokeforge/pipeline/internal/mocks"
	"github.com/karaokeforge/pipeline/pkg/logger"
	"github.com/karaokeforge/pipeline/pkg/progress"
)

func testLogger(t *testing.T) *logger.Logger {
	t.Helper()
	log, err := logger.New(false)
	require.NoError(t, err)
	return log
}

type harness struct {
	orch    *Orchestrator
	storage *mocks.StorageProvider
	cache   *mocks.CacheStore
	reg     *progress.Registry
}

func newHarness(t *testing.T, deps pipeline.Deps) *harness {
	t.Helper()
	reg := progress.NewRegistry(time.Hour, nil)
	deps.Progress = reg
	storage := deps.Storage.(*mocks.StorageProvider)
	cache := deps.Cache.(*mocks.CacheStore)

	o := New(pipeline.New(deps), &mocks.AdmissionLimiter{}, reg, storage, cache, testLogger(t))
	return &harness{orch: o, storage: storage, cache: cache, reg: reg}
}

func baseDeps(t *testing.T, base string) pipeline.Deps {
	t.Helper()
	log := testLogger(t)
	storage := &mocks.StorageProvider{
		ExistsFunc: func(ctx context.Context, path string) (bool, error) { return true, nil },
	}
	return pipeline.Deps{
		Fetcher:    &mocks.MediaFetcher{},
		Extractor:  &mocks.AudioExtractor{},
		Separator:  &mocks.SourceSeparator{},
		Recognizer: &mocks.SpeechRecognizer{},
		Analyzer:   &mocks.AudioAnalyzer{},
		Lyrics:     &mocks.LyricProvider{},
		Muxer:      &mocks.Muxer{},
		Cache:      &mocks.CacheStore{Base: base},
		Storage:    storage,
		Align:      alignment.New(log),
		Log:        log,
	}
}

func waitTerminal(t *testing.T, reg *progress.Registry, jobID string) progress.Entry {
	t.Helper()
	deadline := time.Now().Add(2 * time.Second)
	for time.Now().Before(deadline) {
		entry, ok := reg.Get(jobID)
		if ok && entry.Terminal {
			return entry
		}
		time.Sleep(time.Millisecond)
	}
	t.Fatalf("job %s never reached terminal state", jobID)
	return progress.Entry{}
}

func TestSubmit_SuccessfulJobReachesTerminalWithResult(t *testing.T) {
	deps := baseDeps(t, t.TempDir())
	h := newHarness(t, deps)

	jobID := h.orch.Submit(context.Background(), model.Source{Kind: model.SourceKindURL, URL: "https://example.com/x"})
	entry := waitTerminal(t, h.reg, jobID)

	assert.Equal(t, 100.0, entry.Percent)
	require.NotNil(t, entry.Result)
	assert.Equal(t, "video-id", entry.Result.VideoID)
	assert.Equal(t, "processed/video-id/karaoke.mp4", entry.Result.ProcessedPath)
	assert.Equal(t, "processed/video-id", entry.Result.StemsBasePath)
}

func TestSubmit_FailureCleansUpArtifactsOnceVideoIDKnown(t *testing.T) {
	deps := baseDeps(t, t.TempDir())
	deps.Separator = &mocks.SourceSeparator{
		SeparateFunc: func(ctx context.Context, inputWAVPath, outputBaseDir string) (*model.StemSet, error) {
			return nil, assert.AnError
		},
	}
	h := newHarness(t, deps)

	jobID := h.orch.Submit(context.Background(), model.Source{Kind: model.SourceKindURL, URL: "https://example.com/x"})
	entry := waitTerminal(t, h.reg, jobID)

	assert.Nil(t, entry.Result)
	assert.NotEmpty(t, h.storage.RemovedAll)
}

func TestSubmit_FailureBeforeVideoIDSkipsCleanup(t *testing.T) {
	deps := baseDeps(t, t.TempDir())
	deps.Fetcher = &mocks.MediaFetcher{
		FetchFunc: func(ctx context.Context, input string) (string, string, string, string, error) {
			return "", "", "", "", assert.AnError
		},
	}
	h := newHarness(t, deps)

	jobID := h.orch.Submit(context.Background(), model.Source{Kind: model.SourceKindURL, URL: "https://example.com/x"})
	waitTerminal(t, h.reg, jobID)

	assert.Empty(t, h.storage.Removed)
	assert.Empty(t, h.storage.RemovedAll)
}

func TestCancel_StopsAnInFlightJob(t *testing.T) {
	deps := baseDeps(t, t.TempDir())
	release := make(chan struct{})
	deps.Extractor = &mocks.AudioExtractor{
		ExtractFunc: func(ctx context.Context, inputPath, outputWAVPath string) error {
			select {
			case <-ctx.Done():
				return ctx.Err()
			case <-release:
				return nil
			}
		},
	}
	h := newHarness(t, deps)

	jobID := h.orch.Submit(context.Background(), model.Source{Kind: model.SourceKindURL, URL: "https://example.com/x"})
	time.Sleep(10 * time.Millisecond)
	h.orch.Cancel(jobID)
	close(release)

	entry := waitTerminal(t, h.reg, jobID)
	assert.Contains(t, entry.Message, "cancel")
}
