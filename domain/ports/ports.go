// Package ports defines the interfaces the job orchestrator depends on.
// Every external tool or model is abstracted behind one of these so the
// orchestrator can be driven by fakes in tests.
package ports

import (
	"context"
	"time"

	"github.com/karaokeforge/pipeline/domain/model"
)

// TaskHandle abstracts a cancellable unit of background work, replacing any
// framework-specific task/future type. Cancel is best-effort: it requests
// cancellation but does not force-kill in-flight subprocesses.
type TaskHandle interface {
	Cancel()
	Done() <-chan struct{}
}

// MediaFetcher resolves a URL or free-text search query to a local audio
// file, classifying failures per the fetch error taxonomy.
type MediaFetcher interface {
	// Fetch downloads (or locates a cached download of) the given input,
	// returning the resolved video id, local file path, title and uploader.
	Fetch(ctx context.Context, input string) (videoID, localPath, title, uploader string, err error)

	// Suggestions returns up to limit lightweight metadata hits for input
	// without downloading media.
	Suggestions(ctx context.Context, input string, limit int) ([]SuggestionItem, error)
}

// SuggestionItem is one lightweight search/metadata hit.
type SuggestionItem struct {
	ID         string
	Title      string
	Thumbnail  string
	URL        string
	Uploader   string
	UploaderID string
}

// AudioExtractor normalizes arbitrary input media into canonical WAV.
type AudioExtractor interface {
	Extract(ctx context.Context, inputPath, outputWAVPath string) error
}

// SourceSeparator splits a WAV into stems and derives an instrumental mix.
type SourceSeparator interface {
	Separate(ctx context.Context, inputWAVPath, outputBaseDir string) (*model.StemSet, error)
	ModelName() string
	LibraryVersion() string
}

// SpeechRecognizer produces word-timestamped transcription segments.
type SpeechRecognizer interface {
	Transcribe(ctx context.Context, wavPath, language string) ([]model.KaraokeSegment, error)
	ModelName() string
	LibraryVersion() string
}

// AudioAnalyzer estimates tempo and musical key.
type AudioAnalyzer interface {
	Analyze(ctx context.Context, wavPath string) (bpm float64, key string, keyConfidence float64, err error)
}

// LyricProvider searches for and retrieves official lyric text.
type LyricProvider interface {
	Search(ctx context.Context, title, artist string, limit int) ([]LyricCandidate, error)
	FetchLyrics(ctx context.Context, candidateID string) (string, error)
}

// LyricCandidate is one ranked lyric-search hit.
type LyricCandidate struct {
	ID     string
	Title  string
	Artist string
	URL    string
	Score  float64
}

// CacheStore owns the per-video_id cache metadata document and the
// derived path layout under the processed tree.
type CacheStore interface {
	Load(ctx context.Context, videoID string) (*model.CacheMetadata, error)
	Save(ctx context.Context, meta *model.CacheMetadata) error

	DownloadPath(videoID, ext string) string
	ProcessedDir(videoID string) string
	StemsBaseDir(videoID, separatorModel string) string
	TranscriptionPath(videoID, recognizerModel, language string) string
	SubtitlePath(videoID, ext string) string
	KaraokeVideoPath(videoID string) string

	// Root returns the processed-tree root every path above is derived
	// from, so callers can express an absolute artifact path as a
	// relative, publicly-servable URI.
	Root() string

	// HashFile computes the content hash used for cache-identity checks.
	HashFile(ctx context.Context, path string) (string, error)
}

// ProgressReporter is the narrow interface stages use to report progress;
// satisfied by pkg/progress.Registry.
type ProgressReporter interface {
	Update(jobID string, stage model.JobStage, percent float64, message string, isStepStart bool, result *model.Result)
}

// StorageProvider abstracts filesystem operations so components can be
// tested without touching disk.
type StorageProvider interface {
	Exists(ctx context.Context, path string) (bool, error)
	Size(ctx context.Context, path string) (int64, error)
	Remove(ctx context.Context, path string) error
	RemoveAll(ctx context.Context, path string) error
	TempFile(ctx context.Context, dir, pattern string) (string, error)
}

// Muxer composes the final karaoke video from video, instrumental audio,
// and an optional subtitle file.
type Muxer interface {
	MergeWithSubtitles(ctx context.Context, videoPath, instrumentalPath, subtitlePath, outputPath string, pitchSemitones float64) error
	MergeWithoutSubtitles(ctx context.Context, videoPath, instrumentalPath, outputPath string, pitchSemitones float64) error
}

// Option is the functional-option type used to configure a Job at
// submission time.
type Option func(*model.Job)

func WithLanguage(lang string) Option {
	return func(j *model.Job) { j.Language = lang }
}

func WithSubtitles(opts model.SubtitleOptions) Option {
	return func(j *model.Job) { j.Subtitles = opts }
}

func WithGlobalPitch(semitones float64) Option {
	return func(j *model.Job) { j.GlobalPitch = semitones }
}

func WithCustomLyrics(text string) Option {
	return func(j *model.Job) { j.CustomLyrics = text }
}

// AdmissionLimiter bounds how many jobs may be in heavyweight stages
// concurrently. Admission of the request itself (registry insertion) never
// blocks; only entry into stages beyond admission does.
type AdmissionLimiter interface {
	Acquire(ctx context.Context) error
	Release()
}

// Clock is injected so tests can control TTL sweeps deterministically.
type Clock interface {
	Now() time.Time
}

type realClock struct{}

func (realClock) Now() time.Time { return time.Now() }

// RealClock is the production Clock implementation.
var RealClock Clock = realClock{}
