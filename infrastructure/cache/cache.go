// Package cache implements the cache store (C1): versioned metadata
// read/write, hash computation, and the filesystem path layout every other
// component derives artifact paths from.
package cache

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"fmt"
	"io"
	"os"
	"path/filepath"

	"github.com/karaokeforge/pipeline/domain/model"
)

const hashChunkSize = 8192

// Store implements ports.CacheStore against the local filesystem, per the
// layout:
//
//	downloads/<video_id>.<ext>
//	processed/<video_id>/cache_metadata
//	processed/<video_id>/<model>/<model>/<input_stem>/{vocals,drums,bass,other,instrumental}.wav
//	processed/<video_id>/transcription_<model>_<lang>.json
//	processed/<video_id>.<subtitle_ext>
//	processed/<video_id>_karaoke.mp4
type Store struct {
	DownloadsDir  string
	ProcessedRoot string
}

func New(downloadsDir, processedDir string) *Store {
	return &Store{DownloadsDir: downloadsDir, ProcessedRoot: processedDir}
}

func (s *Store) DownloadPath(videoID, ext string) string {
	return filepath.Join(s.DownloadsDir, videoID+"."+ext)
}

func (s *Store) ProcessedDirFor(videoID string) string {
	return filepath.Join(s.ProcessedRoot, videoID)
}

// ProcessedDir satisfies ports.CacheStore's method of the same name.
func (s *Store) ProcessedDir(videoID string) string { return s.ProcessedDirFor(videoID) }

func (s *Store) StemsBaseDir(videoID, separatorModel string) string {
	return filepath.Join(s.ProcessedDirFor(videoID), separatorModel, separatorModel)
}

func (s *Store) TranscriptionPath(videoID, recognizerModel, language string) string {
	return filepath.Join(s.ProcessedDirFor(videoID), fmt.Sprintf("transcription_%s_%s.json", recognizerModel, language))
}

func (s *Store) SubtitlePath(videoID, ext string) string {
	return filepath.Join(s.ProcessedRoot, videoID+"."+ext)
}

func (s *Store) KaraokeVideoPath(videoID string) string {
	return filepath.Join(s.ProcessedRoot, videoID+"_karaoke.mp4")
}

// Root satisfies ports.CacheStore.Root.
func (s *Store) Root() string { return s.ProcessedRoot }

func (s *Store) metadataPath(videoID string) string {
	return filepath.Join(s.ProcessedDirFor(videoID), "cache_metadata")
}

// HashFile computes the SHA-256 of path, reading it in fixed-size chunks
// so multi-gigabyte inputs never need to be buffered whole.
func (s *Store) HashFile(ctx context.Context, path string) (string, error) {
	f, err := os.Open(path)
	if err != nil {
		return "", err
	}
	defer f.Close()

	h := sha256.New()
	buf := make([]byte, hashChunkSize)
	for {
		if err := ctx.Err(); err != nil {
			return "", err
		}
		n, err := f.Read(buf)
		if n > 0 {
			h.Write(buf[:n])
		}
		if err == io.EOF {
			break
		}
		if err != nil {
			return "", err
		}
	}
	return hex.EncodeToString(h.Sum(nil)), nil
}

// Load reads the cache metadata document for videoID. Any read or parse
// error is treated as a cache miss (nil, nil), matching the corruption
// handling contract in §7.
func (s *Store) Load(ctx context.Context, videoID string) (*model.CacheMetadata, error) {
	raw, err := os.ReadFile(s.metadataPath(videoID))
	if err != nil {
		if os.IsNotExist(err) {
			return nil, nil
		}
		return nil, nil // corruption/read failure: treat as miss
	}

	var doc cacheDocument
	if err := json.Unmarshal(raw, &doc); err != nil {
		return nil, nil // corrupt document: treat as miss
	}
	return doc.toModel(videoID), nil
}

// Save atomically writes the cache metadata document: write to a temp
// file in the same directory, then rename, so a reader never observes a
// partially-written document.
func (s *Store) Save(ctx context.Context, meta *model.CacheMetadata) error {
	dir := s.ProcessedDirFor(meta.VideoID)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return err
	}

	doc := fromModel(meta)
	raw, err := json.MarshalIndent(doc, "", "  ")
	if err != nil {
		return err
	}

	tmp, err := os.CreateTemp(dir, "cache_metadata.*.tmp")
	if err != nil {
		return err
	}
	tmpPath := tmp.Name()
	if _, err := tmp.Write(raw); err != nil {
		tmp.Close()
		os.Remove(tmpPath)
		return err
	}
	if err := tmp.Close(); err != nil {
		os.Remove(tmpPath)
		return err
	}
	return os.Rename(tmpPath, s.metadataPath(meta.VideoID))
}

type cacheDocument struct {
	Stems         *stemsDoc         `json:"stems,omitempty"`
	Transcription *transcriptionDoc `json:"transcription,omitempty"`
	AudioAnalysis *analysisDoc      `json:"audio_analysis,omitempty"`
}

type stemsDoc struct {
	Model          string `json:"model"`
	LibraryVersion string `json:"library_version"`
	AudioSHA256    string `json:"audio_sha256"`
	UpdatedAt      string `json:"updated_at"`
}

type transcriptionDoc struct {
	Model          string `json:"model"`
	LibraryVersion string `json:"library_version"`
	Language       string `json:"language"`
	UpdatedAt      string `json:"updated_at"`
}

type analysisDoc struct {
	BPM           float64 `json:"bpm"`
	Key           string  `json:"key"`
	KeyConfidence float64 `json:"key_confidence"`
	UpdatedAt     string  `json:"updated_at"`
}

func (d *cacheDocument) toModel(videoID string) *model.CacheMetadata {
	m := &model.CacheMetadata{VideoID: videoID}
	if d.Stems != nil {
		m.Stems = &model.StemsCacheSection{
			Model:          d.Stems.Model,
			LibraryVersion: d.Stems.LibraryVersion,
			AudioSHA256:    d.Stems.AudioSHA256,
		}
	}
	if d.Transcription != nil {
		m.Transcription = &model.TranscriptionCacheSection{
			Model:          d.Transcription.Model,
			LibraryVersion: d.Transcription.LibraryVersion,
			Language:       d.Transcription.Language,
		}
	}
	if d.AudioAnalysis != nil {
		m.AudioAnalysis = &model.AudioAnalysisCacheSection{
			BPM:           d.AudioAnalysis.BPM,
			Key:           d.AudioAnalysis.Key,
			KeyConfidence: d.AudioAnalysis.KeyConfidence,
		}
	}
	return m
}

func fromModel(m *model.CacheMetadata) *cacheDocument {
	d := &cacheDocument{}
	if m.Stems != nil {
		d.Stems = &stemsDoc{
			Model:          m.Stems.Model,
			LibraryVersion: m.Stems.LibraryVersion,
			AudioSHA256:    m.Stems.AudioSHA256,
			UpdatedAt:      m.Stems.UpdatedAt.UTC().Format("2006-01-02T15:04:05Z"),
		}
	}
	if m.Transcription != nil {
		d.Transcription = &transcriptionDoc{
			Model:          m.Transcription.Model,
			LibraryVersion: m.Transcription.LibraryVersion,
			Language:       m.Transcription.Language,
			UpdatedAt:      m.Transcription.UpdatedAt.UTC().Format("2006-01-02T15:04:05Z"),
		}
	}
	if m.AudioAnalysis != nil {
		d.AudioAnalysis = &analysisDoc{
			BPM:           m.AudioAnalysis.BPM,
			Key:           m.AudioAnalysis.Key,
			KeyConfidence: m.AudioAnalysis.KeyConfidence,
			UpdatedAt:     m.AudioAnalysis.UpdatedAt.UTC().Format("2006-01-02T15:04:05Z"),
		}
	}
	return d
}
