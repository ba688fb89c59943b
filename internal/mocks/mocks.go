// Package mocks provides test doubles for every port in domain/ports, in
// the optional-func-field style: each method delegates to a settable func
// field when present and falls back to a zero-value/no-error default
// otherwise, so a test only wires the behavior it actually cares about.
package mocks

import (
	"context"

	"github.com/karaokeforge/pipeline/domain/model"
	"github.com/karaokeforge/pipeline/domain/ports"
)

// MediaFetcher is a test double for ports.MediaFetcher.
type MediaFetcher struct {
	FetchFunc       func(ctx context.Context, input string) (string, string, string, string, error)
	SuggestionsFunc func(ctx context.Context, input string, limit int) ([]ports.SuggestionItem, error)
}

func (f *MediaFetcher) Fetch(ctx context.Context, input string) (string, string, string, string, error) {
	if f.FetchFunc != nil {
		return f.FetchFunc(ctx, input)
	}
	return "video-id", "/tmp/video-id.mp4", "Title", "Uploader", nil
}

func (f *MediaFetcher) Suggestions(ctx context.Context, input string, limit int) ([]ports.SuggestionItem, error) {
	if f.SuggestionsFunc != nil {
		return f.SuggestionsFunc(ctx, input, limit)
	}
	return nil, nil
}

// AudioExtractor is a test double for ports.AudioExtractor.
type AudioExtractor struct {
	ExtractFunc func(ctx context.Context, inputPath, outputWAVPath string) error
}

func (e *AudioExtractor) Extract(ctx context.Context, inputPath, outputWAVPath string) error {
	if e.ExtractFunc != nil {
		return e.ExtractFunc(ctx, inputPath, outputWAVPath)
	}
	return nil
}

// SourceSeparator is a test double for ports.SourceSeparator.
type SourceSeparator struct {
	SeparateFunc func(ctx context.Context, inputWAVPath, outputBaseDir string) (*model.StemSet, error)
	Model        string
	Version      string
}

func (s *SourceSeparator) Separate(ctx context.Context, inputWAVPath, outputBaseDir string) (*model.StemSet, error) {
	if s.SeparateFunc != nil {
		return s.SeparateFunc(ctx, inputWAVPath, outputBaseDir)
	}
	paths := make(map[model.StemKind]string, len(model.CoreStems)+1)
	for _, k := range model.CoreStems {
		paths[k] = outputBaseDir + "/" + string(k) + ".wav"
	}
	paths[model.StemInstrumental] = outputBaseDir + "/instrumental.wav"
	return &model.StemSet{Paths: paths}, nil
}

func (s *SourceSeparator) ModelName() string {
	if s.Model != "" {
		return s.Model
	}
	return "demucs-test"
}

func (s *SourceSeparator) LibraryVersion() string {
	if s.Version != "" {
		return s.Version
	}
	return "0.0.0-test"
}

// SpeechRecognizer is a test double for ports.SpeechRecognizer.
type SpeechRecognizer struct {
	TranscribeFunc func(ctx context.Context, wavPath, language string) ([]model.KaraokeSegment, error)
	Model          string
	Version        string
}

func (r *SpeechRecognizer) Transcribe(ctx context.Context, wavPath, language string) ([]model.KaraokeSegment, error) {
	if r.TranscribeFunc != nil {
		return r.TranscribeFunc(ctx, wavPath, language)
	}
	return nil, nil
}

func (r *SpeechRecognizer) ModelName() string {
	if r.Model != "" {
		return r.Model
	}
	return "whisper-test"
}

func (r *SpeechRecognizer) LibraryVersion() string {
	if r.Version != "" {
		return r.Version
	}
	return "0.0.0-test"
}

// AudioAnalyzer is a test double for ports.AudioAnalyzer.
type AudioAnalyzer struct {
	AnalyzeFunc func(ctx context.Context, wavPath string) (float64, string, float64, error)
}

func (a *AudioAnalyzer) Analyze(ctx context.Context, wavPath string) (float64, string, float64, error) {
	if a.AnalyzeFunc != nil {
		return a.AnalyzeFunc(ctx, wavPath)
	}
	return 120.0, "C major", 0.9, nil
}

// LyricProvider is a test double for ports.LyricProvider.
type LyricProvider struct {
	SearchFunc      func(ctx context.Context, title, artist string, limit int) ([]ports.LyricCandidate, error)
	FetchLyricsFunc func(ctx context.Context, candidateID string) (string, error)
}

func (l *LyricProvider) Search(ctx context.Context, title, artist string, limit int) ([]ports.LyricCandidate, error) {
	if l.SearchFunc != nil {
		return l.SearchFunc(ctx, title, artist, limit)
	}
	return nil, nil
}

func (l *LyricProvider) FetchLyrics(ctx context.Context, candidateID string) (string, error) {
	if l.FetchLyricsFunc != nil {
		return l.FetchLyricsFunc(ctx, candidateID)
	}
	return "", nil
}

// Muxer is a test double for ports.Muxer.
type Muxer struct {
	MergeWithSubtitlesFunc    func(ctx context.Context, videoPath, instrumentalPath, subtitlePath, outputPath string, pitchSemitones float64) error
	MergeWithoutSubtitlesFunc func(ctx context.Context, videoPath, instrumentalPath, outputPath string, pitchSemitones float64) error
}

func (m *Muxer) MergeWithSubtitles(ctx context.Context, videoPath, instrumentalPath, subtitlePath, outputPath string, pitchSemitones float64) error {
	if m.MergeWithSubtitlesFunc != nil {
		return m.MergeWithSubtitlesFunc(ctx, videoPath, instrumentalPath, subtitlePath, outputPath, pitchSemitones)
	}
	return nil
}

func (m *Muxer) MergeWithoutSubtitles(ctx context.Context, videoPath, instrumentalPath, outputPath string, pitchSemitones float64) error {
	if m.MergeWithoutSubtitlesFunc != nil {
		return m.MergeWithoutSubtitlesFunc(ctx, videoPath, instrumentalPath, outputPath, pitchSemitones)
	}
	return nil
}

// CacheStore is an in-memory test double for ports.CacheStore, returning
// deterministic path layouts under base so tests can assert on them
// without touching disk.
type CacheStore struct {
	Base string

	LoadFunc     func(ctx context.Context, videoID string) (*model.CacheMetadata, error)
	SaveFunc     func(ctx context.Context, meta *model.CacheMetadata) error
	HashFileFunc func(ctx context.Context, path string) (string, error)

	docs map[string]*model.CacheMetadata
}

func (c *CacheStore) Load(ctx context.Context, videoID string) (*model.CacheMetadata, error) {
	if c.LoadFunc != nil {
		return c.LoadFunc(ctx, videoID)
	}
	if c.docs == nil {
		return nil, nil
	}
	return c.docs[videoID], nil
}

func (c *CacheStore) Save(ctx context.Context, meta *model.CacheMetadata) error {
	if c.SaveFunc != nil {
		return c.SaveFunc(ctx, meta)
	}
	if c.docs == nil {
		c.docs = make(map[string]*model.CacheMetadata)
	}
	c.docs[meta.VideoID] = meta
	return nil
}

func (c *CacheStore) DownloadPath(videoID, ext string) string {
	return c.Base + "/downloads/" + videoID + "." + ext
}

func (c *CacheStore) ProcessedDir(videoID string) string {
	return c.Base + "/processed/" + videoID
}

func (c *CacheStore) StemsBaseDir(videoID, separatorModel string) string {
	return c.Base + "/processed/" + videoID + "/stems/" + separatorModel
}

func (c *CacheStore) TranscriptionPath(videoID, recognizerModel, language string) string {
	return c.Base + "/processed/" + videoID + "/transcription-" + recognizerModel + "-" + language + ".json"
}

func (c *CacheStore) SubtitlePath(videoID, ext string) string {
	return c.Base + "/processed/" + videoID + "/karaoke." + ext
}

func (c *CacheStore) KaraokeVideoPath(videoID string) string {
	return c.Base + "/processed/" + videoID + "/karaoke.mp4"
}

func (c *CacheStore) Root() string {
	return c.Base + "/processed"
}

func (c *CacheStore) HashFile(ctx context.Context, path string) (string, error) {
	if c.HashFileFunc != nil {
		return c.HashFileFunc(ctx, path)
	}
	return "deadbeef", nil
}

// StorageProvider is an in-memory test double for ports.StorageProvider.
type StorageProvider struct {
	ExistsFunc   func(ctx context.Context, path string) (bool, error)
	SizeFunc     func(ctx context.Context, path string) (int64, error)
	RemoveFunc   func(ctx context.Context, path string) error
	RemoveAllFunc func(ctx context.Context, path string) error
	TempFileFunc func(ctx context.Context, dir, pattern string) (string, error)

	Removed    []string
	RemovedAll []string
}

func (s *StorageProvider) Exists(ctx context.Context, path string) (bool, error) {
	if s.ExistsFunc != nil {
		return s.ExistsFunc(ctx, path)
	}
	return false, nil
}

func (s *StorageProvider) Size(ctx context.Context, path string) (int64, error) {
	if s.SizeFunc != nil {
		return s.SizeFunc(ctx, path)
	}
	return 0, nil
}

func (s *StorageProvider) Remove(ctx context.Context, path string) error {
	s.Removed = append(s.Removed, path)
	if s.RemoveFunc != nil {
		return s.RemoveFunc(ctx, path)
	}
	return nil
}

func (s *StorageProvider) RemoveAll(ctx context.Context, path string) error {
	s.RemovedAll = append(s.RemovedAll, path)
	if s.RemoveAllFunc != nil {
		return s.RemoveAllFunc(ctx, path)
	}
	return nil
}

func (s *StorageProvider) TempFile(ctx context.Context, dir, pattern string) (string, error) {
	if s.TempFileFunc != nil {
		return s.TempFileFunc(ctx, dir, pattern)
	}
	return dir + "/" + pattern, nil
}

// AdmissionLimiter is a test double for ports.AdmissionLimiter, unbounded
// unless AcquireFunc is set.
type AdmissionLimiter struct {
	AcquireFunc func(ctx context.Context) error
	Released    int
}

func (a *AdmissionLimiter) Acquire(ctx context.Context) error {
	if a.AcquireFunc != nil {
		return a.AcquireFunc(ctx)
	}
	return nil
}

func (a *AdmissionLimiter) Release() {
	a.Released++
}

// ProgressReporter is a test double for ports.ProgressReporter, recording
// every update it receives for assertion.
type ProgressReporter struct {
	Updates []ProgressUpdate
}

type ProgressUpdate struct {
	JobID       string
	Stage       model.JobStage
	Percent     float64
	Message     string
	IsStepStart bool
	Result      *model.Result
}

func (p *ProgressReporter) Update(jobID string, stage model.JobStage, percent float64, message string, isStepStart bool, result *model.Result) {
	p.Updates = append(p.Updates, ProgressUpdate{
		JobID: jobID, Stage: stage, Percent: percent, Message: message, IsStepStart: isStepStart, Result: result,
	})
}
