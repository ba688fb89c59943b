// Package model defines the core data types shared across the karaoke
// pipeline: jobs, cache records, karaoke segments, and stem sets.
package model

import "time"

// SourceKind discriminates how a job's input was supplied.
type SourceKind string

const (
	SourceKindURL      SourceKind = "url"
	SourceKindSearch   SourceKind = "search"
	SourceKindLocalFile SourceKind = "local_file"
)

// SubtitlePosition is the on-screen anchor for generated subtitles.
type SubtitlePosition string

const (
	SubtitlePositionTop    SubtitlePosition = "top"
	SubtitlePositionBottom SubtitlePosition = "bottom"
)

// SubtitleFontSizes is the closed set of accepted subtitle font sizes.
var SubtitleFontSizes = []int{24, 30, 36, 42}

// SubtitleOptions controls subtitle generation and styling.
type SubtitleOptions struct {
	Generate bool
	Position SubtitlePosition
	FontSize int
}

// DefaultSubtitleOptions returns the implementation's style policy.
func DefaultSubtitleOptions() SubtitleOptions {
	return SubtitleOptions{
		Generate: true,
		Position: SubtitlePositionBottom,
		FontSize: 30,
	}
}

// Source is the immutable description of what a job should process.
type Source struct {
	Kind  SourceKind
	URL   string
	Query string
	Path  string // local file path, for SourceKindLocalFile
}

// JobStage names a pipeline stage for progress/cancellation reporting.
type JobStage string

const (
	StageDownload           JobStage = "download"
	StageImportLocalFile    JobStage = "import_local_file"
	StageExtractAudio       JobStage = "extract_audio"
	StageAnalyzeAudio       JobStage = "analyze_audio"
	StageSeparateTracks     JobStage = "separate_tracks"
	StageTranscribe         JobStage = "transcribe"
	StageProcessLyrics      JobStage = "process_lyrics"
	StageGenerateSubtitles  JobStage = "generate_subtitles"
	StageMerge              JobStage = "merge"
	StageFinalize           JobStage = "finalize"
)

// StageRange returns the [start,end] percent window reserved for a stage.
func StageRange(s JobStage) (start, end float64) {
	switch s {
	case StageDownload, StageImportLocalFile:
		return 0, 15
	case StageExtractAudio:
		return 15, 25
	case StageAnalyzeAudio:
		return 25, 30
	case StageSeparateTracks:
		return 30, 60
	case StageTranscribe:
		return 60, 80
	case StageProcessLyrics:
		return 80, 88
	case StageGenerateSubtitles:
		return 88, 92
	case StageMerge:
		return 92, 99
	case StageFinalize:
		return 99, 100
	default:
		return 0, 100
	}
}

// Job holds the immutable request plus mutable lifecycle state for one
// karaoke production run. Lifecycle mutation is owned exclusively by the
// orchestrator; the progress registry owns the Job's visible snapshot.
type Job struct {
	ID       string
	Source   Source
	Language string // BCP-47 tag, or "auto"

	Subtitles    SubtitleOptions
	GlobalPitch  float64 // semitones, [-12,12], 0 = disabled
	CustomLyrics string  // empty = none

	CreatedAt time.Time

	// Resolved during the pipeline; empty until determined.
	VideoID string
}

// Result is the terminal payload of a successfully finalized job.
type Result struct {
	VideoID        string
	ProcessedPath  string
	Title          string
	StemsBasePath  string
	BPM            *float64
	Key            *string
	KeyConfidence  *float64
}
