package pipeline

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/karaokeforge/pipeline/application/alignment"
	"github.com/karaokeforge/pipeline/application/subtitle"
	"github.com/karaokeforge/pipeline/domain/model"
	"github.com/karaokeforge/pipeline/domain/ports"
	"github.com/karaokeforge/pipeline/pkg/fuzzy"
	"github.com/karaokeforge/pipeline/pkg/logger"
	"github.com/karaokeforge/pipeline/pkg/metrics"
	"go.uber.org/zap"
)

// Deps bundles every port the pipeline drives. Each field is an interface
// so a test can substitute a fake without touching the stage bodies.
type Deps struct {
	Fetcher    ports.MediaFetcher
	Extractor  ports.AudioExtractor
	Separator  ports.SourceSeparator
	Recognizer ports.SpeechRecognizer
	Analyzer   ports.AudioAnalyzer
	Lyrics     ports.LyricProvider
	Muxer      ports.Muxer
	Cache      ports.CacheStore
	Storage    ports.StorageProvider
	Progress   ports.ProgressReporter
	Align      *alignment.Engine
	Log        *logger.Logger

	// Metrics is optional; a nil value disables stage-duration/failure
	// instrumentation entirely.
	Metrics *metrics.Collectors
}

// State carries the accumulating output of each stage for one job run. It
// is scratch state owned exclusively by the Pipeline that created it; the
// orchestrator only ever sees the final Result or error.
type State struct {
	Job *model.Job

	DownloadPath string
	Title        string
	Uploader     string

	WAVPath string

	Stems         *model.StemSet
	Recognized    []model.KaraokeSegment
	BPM           float64
	Key           string
	KeyConfidence float64

	LyricText    string
	Segments     []model.KaraokeSegment
	SubtitlePath string

	OutputPath string
}

// Pipeline runs one job through the full stage sequence, reporting
// progress against model.StageRange windows as it goes.
type Pipeline struct {
	deps Deps
}

func New(deps Deps) *Pipeline {
	return &Pipeline{deps: deps}
}

// Run executes every stage in order, short-circuiting on the first error.
// video_id resolution (download/import) always runs first, so a failure
// afterward still leaves the caller able to decide whether cleanup is safe
// (see application/orchestrator's cleanup policy: cleanup happens only
// once VideoID is known).
func (p *Pipeline) Run(ctx context.Context, job *model.Job) (*State, error) {
	st := &State{Job: job}

	if p.deps.Metrics != nil {
		p.deps.Metrics.JobsStarted.Inc()
	}

	stages := []struct {
		label model.JobStage
		run   func(context.Context, *State) error
	}{
		{model.StageDownload, p.resolveSource},
		{model.StageExtractAudio, p.extractAudio},
		{model.StageAnalyzeAudio, p.analyzeAudio},
		{model.StageSeparateTracks, p.separateTracks},
		{model.StageTranscribe, p.transcribe},
		{model.StageProcessLyrics, p.processLyrics},
		{model.StageGenerateSubtitles, p.generateSubtitles},
		{model.StageMerge, p.merge},
	}

	for _, s := range stages {
		start := time.Now()
		err := s.run(ctx, st)
		if p.deps.Metrics != nil {
			p.deps.Metrics.ObserveStage(s.label, time.Since(start).Seconds())
		}
		if err != nil {
			if p.deps.Metrics != nil {
				p.deps.Metrics.RecordFailure(s.label)
			}
			return st, err
		}
	}

	return st, nil
}

func (p *Pipeline) report(job *model.Job, stage model.JobStage, frac float64, msg string, isStepStart bool) {
	if p.deps.Progress == nil {
		return
	}
	start, end := model.StageRange(stage)
	percent := start + frac*(end-start)
	p.deps.Progress.Update(job.ID, stage, percent, msg, isStepStart, nil)
}

func (p *Pipeline) resolveSource(ctx context.Context, st *State) error {
	job := st.Job
	stage := model.StageDownload
	if job.Source.Kind == model.SourceKindLocalFile {
		stage = model.StageImportLocalFile
	}
	p.report(job, stage, 0, "resolving source", true)

	switch job.Source.Kind {
	case model.SourceKindLocalFile:
		exists, err := p.deps.Storage.Exists(ctx, job.Source.Path)
		if err != nil {
			return err
		}
		if !exists {
			return fmt.Errorf("local file does not exist: %s", job.Source.Path)
		}
		st.DownloadPath = job.Source.Path
		st.Title = filepath.Base(job.Source.Path)
		job.VideoID = fuzzy.NormalizeText(st.Title)

	default:
		input := job.Source.URL
		if job.Source.Kind == model.SourceKindSearch {
			input = job.Source.Query
		}
		videoID, localPath, title, uploader, err := p.deps.Fetcher.Fetch(ctx, input)
		if err != nil {
			return err
		}
		job.VideoID = videoID
		st.DownloadPath = localPath
		st.Title = title
		st.Uploader = uploader
	}

	p.report(job, stage, 1, "source resolved", false)
	return nil
}

func (p *Pipeline) extractAudio(ctx context.Context, st *State) error {
	job := st.Job
	p.report(job, model.StageExtractAudio, 0, "extracting audio", true)

	st.WAVPath = p.deps.Cache.DownloadPath(job.VideoID, "wav")
	if err := p.deps.Extractor.Extract(ctx, st.DownloadPath, st.WAVPath); err != nil {
		return err
	}

	p.report(job, model.StageExtractAudio, 1, "audio extracted", false)
	return nil
}

func (p *Pipeline) analyzeAudio(ctx context.Context, st *State) error {
	job := st.Job
	p.report(job, model.StageAnalyzeAudio, 0, "analyzing audio", true)

	meta, err := p.deps.Cache.Load(ctx, job.VideoID)
	if err == nil && meta != nil && meta.HasAudioAnalysis() {
		st.BPM = meta.AudioAnalysis.BPM
		st.Key = meta.AudioAnalysis.Key
		st.KeyConfidence = meta.AudioAnalysis.KeyConfidence
		p.report(job, model.StageAnalyzeAudio, 1, "audio analysis cached", false)
		return nil
	}

	bpm, key, confidence, err := p.deps.Analyzer.Analyze(ctx, st.WAVPath)
	if err != nil {
		// Tempo/key are cosmetic metadata, not required for a playable
		// video; degrade rather than fail the job.
		p.deps.Log.Warn("audio analysis failed, continuing without bpm/key", zap.Error(err))
	} else {
		st.BPM, st.Key, st.KeyConfidence = bpm, key, confidence
		if meta == nil {
			meta = &model.CacheMetadata{VideoID: job.VideoID}
		}
		meta.AudioAnalysis = &model.AudioAnalysisCacheSection{BPM: bpm, Key: key, KeyConfidence: confidence}
		_ = p.deps.Cache.Save(ctx, meta)
	}

	p.report(job, model.StageAnalyzeAudio, 1, "audio analyzed", false)
	return nil
}

func (p *Pipeline) separateTracks(ctx context.Context, st *State) error {
	job := st.Job
	p.report(job, model.StageSeparateTracks, 0, "separating stems", true)

	sha, shaErr := p.deps.Cache.HashFile(ctx, st.WAVPath)
	meta, _ := p.deps.Cache.Load(ctx, job.VideoID)
	if shaErr == nil && meta != nil && meta.MatchesStems(p.deps.Separator.ModelName(), p.deps.Separator.LibraryVersion(), sha) {
		base := p.deps.Cache.StemsBaseDir(job.VideoID, p.deps.Separator.ModelName())
		inputStem := strings.TrimSuffix(filepath.Base(st.WAVPath), filepath.Ext(st.WAVPath))
		st.Stems = &model.StemSet{VideoID: job.VideoID, Paths: stemPathsFromBase(filepath.Join(base, inputStem))}
		p.report(job, model.StageSeparateTracks, 1, "stems cached", false)
		return nil
	}

	outDir := p.deps.Cache.ProcessedDir(job.VideoID)
	stems, err := p.deps.Separator.Separate(ctx, st.WAVPath, outDir)
	if err != nil {
		return err
	}
	st.Stems = stems

	if shaErr == nil {
		p.saveStemsMetadata(ctx, job.VideoID, sha)
	}

	p.report(job, model.StageSeparateTracks, 1, "stems separated", false)
	return nil
}

func stemPathsFromBase(base string) map[model.StemKind]string {
	paths := make(map[model.StemKind]string, len(model.CoreStems)+1)
	for _, k := range model.CoreStems {
		paths[k] = filepath.Join(base, string(k)+".wav")
	}
	paths[model.StemInstrumental] = filepath.Join(base, "instrumental.wav")
	return paths
}

func (p *Pipeline) saveStemsMetadata(ctx context.Context, videoID, sha string) {
	meta, _ := p.deps.Cache.Load(ctx, videoID)
	if meta == nil {
		meta = &model.CacheMetadata{VideoID: videoID}
	}
	meta.Stems = &model.StemsCacheSection{
		Model: p.deps.Separator.ModelName(), LibraryVersion: p.deps.Separator.LibraryVersion(), AudioSHA256: sha,
	}
	_ = p.deps.Cache.Save(ctx, meta)
}

func (p *Pipeline) transcribe(ctx context.Context, st *State) error {
	job := st.Job
	p.report(job, model.StageTranscribe, 0, "transcribing vocals", true)

	path := p.deps.Cache.TranscriptionPath(job.VideoID, p.deps.Recognizer.ModelName(), job.Language)
	meta, _ := p.deps.Cache.Load(ctx, job.VideoID)
	if meta != nil && meta.MatchesTranscription(p.deps.Recognizer.ModelName(), p.deps.Recognizer.LibraryVersion(), job.Language) {
		if segments, err := loadTranscription(path); err == nil {
			st.Recognized = segments
			p.report(job, model.StageTranscribe, 1, "transcription cached", false)
			return nil
		}
	}

	vocalsPath := st.Stems.Path(model.StemVocals)
	segments, err := p.deps.Recognizer.Transcribe(ctx, vocalsPath, job.Language)
	if err != nil {
		return err
	}
	st.Recognized = segments

	if err := saveTranscription(path, segments); err == nil {
		p.saveTranscriptionMetadata(ctx, job.VideoID, job.Language)
	}
	p.report(job, model.StageTranscribe, 1, "transcription complete", false)
	return nil
}

func loadTranscription(path string) ([]model.KaraokeSegment, error) {
	raw, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	var segments []model.KaraokeSegment
	if err := json.Unmarshal(raw, &segments); err != nil {
		return nil, err
	}
	return segments, nil
}

func saveTranscription(path string, segments []model.KaraokeSegment) error {
	raw, err := json.MarshalIndent(segments, "", "  ")
	if err != nil {
		return err
	}
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return err
	}
	return os.WriteFile(path, raw, 0o644)
}

func (p *Pipeline) saveTranscriptionMetadata(ctx context.Context, videoID, language string) {
	meta, _ := p.deps.Cache.Load(ctx, videoID)
	if meta == nil {
		meta = &model.CacheMetadata{VideoID: videoID}
	}
	meta.Transcription = &model.TranscriptionCacheSection{
		Model: p.deps.Recognizer.ModelName(), LibraryVersion: p.deps.Recognizer.LibraryVersion(), Language: language,
	}
	_ = p.deps.Cache.Save(ctx, meta)
}

// processLyrics resolves which lyric text to align against, in priority
// order: custom user-supplied lyrics, then an official provider lookup,
// falling back to the recognized transcript itself (passthrough) when
// neither is available or the provider comes up empty.
func (p *Pipeline) processLyrics(ctx context.Context, st *State) error {
	job := st.Job
	p.report(job, model.StageProcessLyrics, 0, "aligning lyrics", true)

	switch {
	case job.CustomLyrics != "":
		st.Segments = p.deps.Align.AlignCustom(job.CustomLyrics, st.Recognized)

	default:
		text := p.lookupOfficialLyrics(ctx, st)
		st.LyricText = text
		if text != "" {
			st.Segments = p.deps.Align.AlignOfficial(splitNonEmptyLines(text), st.Recognized)
		} else {
			st.Segments = p.deps.Align.AlignNone(st.Recognized)
		}
	}

	p.report(job, model.StageProcessLyrics, 1, "lyrics aligned", false)
	return nil
}

func splitNonEmptyLines(text string) []string {
	var out []string
	for _, line := range strings.Split(text, "\n") {
		if trimmed := strings.TrimSpace(line); trimmed != "" {
			out = append(out, trimmed)
		}
	}
	return out
}

func (p *Pipeline) lookupOfficialLyrics(ctx context.Context, st *State) string {
	if p.deps.Lyrics == nil {
		return ""
	}
	artist := fuzzy.PrimaryArtist(st.Uploader)
	candidates, err := p.deps.Lyrics.Search(ctx, st.Title, artist, 1)
	if err != nil || len(candidates) == 0 {
		return ""
	}
	text, err := p.deps.Lyrics.FetchLyrics(ctx, candidates[0].ID)
	if err != nil {
		return ""
	}
	return text
}

func (p *Pipeline) generateSubtitles(ctx context.Context, st *State) error {
	job := st.Job
	p.report(job, model.StageGenerateSubtitles, 0, "generating subtitles", true)

	if !job.Subtitles.Generate {
		p.report(job, model.StageGenerateSubtitles, 1, "subtitles disabled", false)
		return nil
	}

	ass, err := subtitle.Generate(st.Segments, subtitle.Options{
		FontSize: job.Subtitles.FontSize,
		Position: job.Subtitles.Position,
		Colors:   subtitle.DefaultColors(),
	})
	if err != nil {
		return err
	}
	if ass == "" {
		p.report(job, model.StageGenerateSubtitles, 1, "no subtitle content", false)
		return nil
	}

	st.SubtitlePath = p.deps.Cache.SubtitlePath(job.VideoID, "ass")
	if err := os.MkdirAll(filepath.Dir(st.SubtitlePath), 0o755); err != nil {
		return err
	}
	if err := os.WriteFile(st.SubtitlePath, []byte(ass), 0o644); err != nil {
		return err
	}

	p.report(job, model.StageGenerateSubtitles, 1, "subtitles generated", false)
	return nil
}

func (p *Pipeline) merge(ctx context.Context, st *State) error {
	job := st.Job
	p.report(job, model.StageMerge, 0, "merging final video", true)

	st.OutputPath = p.deps.Cache.KaraokeVideoPath(job.VideoID)
	instrumental := st.Stems.Path(model.StemInstrumental)

	var err error
	if st.SubtitlePath != "" {
		err = p.deps.Muxer.MergeWithSubtitles(ctx, st.DownloadPath, instrumental, st.SubtitlePath, st.OutputPath, job.GlobalPitch)
	} else {
		err = p.deps.Muxer.MergeWithoutSubtitles(ctx, st.DownloadPath, instrumental, st.OutputPath, job.GlobalPitch)
	}
	if err != nil {
		return err
	}

	p.report(job, model.StageMerge, 1, "merge complete", false)
	p.report(job, model.StageFinalize, 1, "finalizing", true)
	return nil
}
