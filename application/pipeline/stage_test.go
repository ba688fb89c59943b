package pipeline

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/karaokeforge/pipeline/application/alignment"
	"github.com/karaokeforge/pipeline/domain/model"
	"github.com/karaokeforge/pipeline/domain/ports"
	"github.com/karaokeforge/pipeline/internal/mocks"
	"github.com/karaokeforge/pipeline/pkg/logger"
)

func testLogger(t *testing.T) *logger.Logger {
	t.Helper()
	log, err := logger.New(false)
	require.NoError(t, err)
	return log
}

func newTestDeps(t *testing.T, base string) (Deps, *mocks.StorageProvider, *mocks.ProgressReporter) {
	t.Helper()
	storage := &mocks.StorageProvider{
		ExistsFunc: func(ctx context.Context, path string) (bool, error) { return true, nil },
	}
	progress := &mocks.ProgressReporter{}
	log := testLogger(t)

	deps := Deps{
		Fetcher:    &mocks.MediaFetcher{},
		Extractor:  &mocks.AudioExtractor{},
		Separator:  &mocks.SourceSeparator{},
		Recognizer: &mocks.SpeechRecognizer{},
		Analyzer:   &mocks.AudioAnalyzer{},
		Lyrics:     &mocks.LyricProvider{},
		Muxer:      &mocks.Muxer{},
		Cache:      &mocks.CacheStore{Base: base},
		Storage:    storage,
		Progress:   progress,
		Align:      alignment.New(log),
		Log:        log,
	}
	return deps, storage, progress
}

func testJob(source model.Source) *model.Job {
	return &model.Job{
		ID:        "job-1",
		Source:    source,
		Language:  "auto",
		Subtitles: model.DefaultSubtitleOptions(),
	}
}

func TestRun_FullSequenceWithURLSource(t *testing.T) {
	deps, _, progress := newTestDeps(t, t.TempDir())
	p := New(deps)

	job := testJob(model.Source{Kind: model.SourceKindURL, URL: "https://example.com/watch"})
	st, err := p.Run(context.Background(), job)

	require.NoError(t, err)
	assert.Equal(t, "video-id", job.VideoID)
	assert.Equal(t, "Title", st.Title)
	assert.NotEmpty(t, st.WAVPath)
	assert.NotNil(t, st.Stems)
	assert.NotEmpty(t, st.OutputPath)
	assert.NotEmpty(t, progress.Updates)

	last := progress.Updates[len(progress.Updates)-1]
	assert.Equal(t, model.StageFinalize, last.Stage)
}

func TestRun_LocalFileSourceDerivesVideoIDFromFilename(t *testing.T) {
	deps, _, _ := newTestDeps(t, t.TempDir())
	p := New(deps)

	job := testJob(model.Source{Kind: model.SourceKindLocalFile, Path: "/music/My Song.mp3"})
	st, err := p.Run(context.Background(), job)

	require.NoError(t, err)
	assert.NotEmpty(t, job.VideoID)
	assert.Equal(t, "My Song.mp3", st.Title)
}

func TestRun_LocalFileMissingFails(t *testing.T) {
	deps, storage, _ := newTestDeps(t, t.TempDir())
	storage.ExistsFunc = func(ctx context.Context, path string) (bool, error) { return false, nil }
	p := New(deps)

	job := testJob(model.Source{Kind: model.SourceKindLocalFile, Path: "/missing.mp3"})
	_, err := p.Run(context.Background(), job)

	assert.Error(t, err)
}

func TestRun_AudioAnalysisFailureDegradesRatherThanFails(t *testing.T) {
	deps, _, _ := newTestDeps(t, t.TempDir())
	deps.Analyzer = &mocks.AudioAnalyzer{
		AnalyzeFunc: func(ctx context.Context, wavPath string) (float64, string, float64, error) {
			return 0, "", 0, assert.AnError
		},
	}
	p := New(deps)

	job := testJob(model.Source{Kind: model.SourceKindURL, URL: "https://example.com/watch"})
	st, err := p.Run(context.Background(), job)

	require.NoError(t, err)
	assert.Zero(t, st.BPM)
	assert.Empty(t, st.Key)
}

func TestRun_CustomLyricsTakePriorityOverProvider(t *testing.T) {
	deps, _, _ := newTestDeps(t, t.TempDir())
	searched := false
	deps.Lyrics = &mocks.LyricProvider{
		SearchFunc: func(ctx context.Context, title, artist string, limit int) ([]ports.LyricCandidate, error) {
			searched = true
			return nil, nil
		},
	}
	deps.Recognizer = &mocks.SpeechRecognizer{
		TranscribeFunc: func(ctx context.Context, wavPath, language string) ([]model.KaraokeSegment, error) {
			return []model.KaraokeSegment{
				{Start: 0, End: 1, Text: "hello", Words: []model.Word{{Text: "hello", Start: 0, End: 1}}},
			}, nil
		},
	}
	p := New(deps)

	job := testJob(model.Source{Kind: model.SourceKindURL, URL: "https://example.com/watch"})
	job.CustomLyrics = "hello"
	st, err := p.Run(context.Background(), job)

	require.NoError(t, err)
	assert.NotEmpty(t, st.Segments)
	assert.False(t, searched)
}

func TestRun_NoSubtitlesWhenDisabled(t *testing.T) {
	deps, _, _ := newTestDeps(t, t.TempDir())
	p := New(deps)

	job := testJob(model.Source{Kind: model.SourceKindURL, URL: "https://example.com/watch"})
	job.Subtitles.Generate = false
	st, err := p.Run(context.Background(), job)

	require.NoError(t, err)
	assert.Empty(t, st.SubtitlePath)
}

func TestRun_SeparationFailurePropagates(t *testing.T) {
	deps, _, _ := newTestDeps(t, t.TempDir())
	deps.Separator = &mocks.SourceSeparator{
		SeparateFunc: func(ctx context.Context, inputWAVPath, outputBaseDir string) (*model.StemSet, error) {
			return nil, assert.AnError
		},
	}
	p := New(deps)

	job := testJob(model.Source{Kind: model.SourceKindURL, URL: "https://example.com/watch"})
	_, err := p.Run(context.Background(), job)

	assert.ErrorIs(t, err, assert.AnError)
}

func TestSplitNonEmptyLines_TrimsAndDropsBlank(t *testing.T) {
	lines := splitNonEmptyLines("  first \n\n  second  \n")
	assert.Equal(t, []string{"first", "second"}, lines)
}
