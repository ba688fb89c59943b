package model

import "time"

// StemsCacheSection records the identity of a completed source-separation
// run, so a later request can decide whether the stems on disk are reusable.
type StemsCacheSection struct {
	Model          string
	LibraryVersion string
	AudioSHA256    string
	UpdatedAt      time.Time
}

// TranscriptionCacheSection records the identity of a completed speech
// recognition run.
type TranscriptionCacheSection struct {
	Model          string
	LibraryVersion string
	Language       string
	UpdatedAt      time.Time
}

// AudioAnalysisCacheSection records a completed tempo/key analysis.
type AudioAnalysisCacheSection struct {
	BPM           float64
	Key           string
	KeyConfidence float64
	UpdatedAt     time.Time
}

// CacheMetadata is the per-video_id document persisted at
// <processed>/<video_id>/cache_metadata. Each section is optional; a nil
// section means "never computed." A non-nil section is valid only when
// every identity field matches the caller's current runtime identity —
// see Matches* helpers below.
type CacheMetadata struct {
	VideoID       string
	Stems         *StemsCacheSection
	Transcription *TranscriptionCacheSection
	AudioAnalysis *AudioAnalysisCacheSection
}

// MatchesStems reports whether the recorded stems section is valid for the
// given runtime identity (model, library version, and input audio hash).
func (c *CacheMetadata) MatchesStems(model, libVersion, audioSHA256 string) bool {
	s := c.Stems
	if s == nil {
		return false
	}
	return s.Model == model && s.LibraryVersion == libVersion && s.AudioSHA256 == audioSHA256
}

// MatchesTranscription reports whether the recorded transcription section
// is valid for the given runtime identity (model, library version, language).
func (c *CacheMetadata) MatchesTranscription(model, libVersion, language string) bool {
	t := c.Transcription
	if t == nil {
		return false
	}
	return t.Model == model && t.LibraryVersion == libVersion && t.Language == language
}

// HasAudioAnalysis reports whether tempo/key analysis has been cached.
// Audio analysis carries no identity tuple of its own: a cached section is
// reused for the video_id for as long as the metadata document holds it.
func (c *CacheMetadata) HasAudioAnalysis() bool {
	return c.AudioAnalysis != nil
}
