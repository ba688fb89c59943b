package cache

import (
	"context"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/karaokeforge/pipeline/domain/model"
)

func TestStore_SaveThenLoadRoundTrips(t *testing.T) {
	base := t.TempDir()
	s := New(filepath.Join(base, "downloads"), filepath.Join(base, "processed"))

	meta := &model.CacheMetadata{
		VideoID: "abc123",
		Stems: &model.StemsCacheSection{
			Model: "htdemucs", LibraryVersion: "4.0.0", AudioSHA256: "deadbeef",
			UpdatedAt: time.Now(),
		},
	}
	require.NoError(t, s.Save(context.Background(), meta))

	loaded, err := s.Load(context.Background(), "abc123")
	require.NoError(t, err)
	require.NotNil(t, loaded)
	require.NotNil(t, loaded.Stems)
	assert.Equal(t, "htdemucs", loaded.Stems.Model)
	assert.Equal(t, "deadbeef", loaded.Stems.AudioSHA256)
}

func TestStore_LoadMissingReturnsNilNil(t *testing.T) {
	base := t.TempDir()
	s := New(filepath.Join(base, "downloads"), filepath.Join(base, "processed"))

	loaded, err := s.Load(context.Background(), "nope")
	assert.NoError(t, err)
	assert.Nil(t, loaded)
}

func TestStore_LoadCorruptDocumentIsTreatedAsMiss(t *testing.T) {
	base := t.TempDir()
	s := New(filepath.Join(base, "downloads"), filepath.Join(base, "processed"))

	dir := s.ProcessedDirFor("bad")
	require.NoError(t, os.MkdirAll(dir, 0o755))
	require.NoError(t, os.WriteFile(filepath.Join(dir, "cache_metadata"), []byte("{not json"), 0o644))

	loaded, err := s.Load(context.Background(), "bad")
	assert.NoError(t, err)
	assert.Nil(t, loaded)
}

func TestStore_PathLayout(t *testing.T) {
	s := New("/tmp/downloads", "/tmp/processed")
	assert.Equal(t, "/tmp/downloads/vid.mp4", s.DownloadPath("vid", "mp4"))
	assert.Equal(t, "/tmp/processed/vid/htdemucs/htdemucs", s.StemsBaseDir("vid", "htdemucs"))
	assert.Equal(t, "/tmp/processed/vid/transcription_base_en.json", s.TranscriptionPath("vid", "base", "en"))
	assert.Equal(t, "/tmp/processed/vid.ass", s.SubtitlePath("vid", "ass"))
	assert.Equal(t, "/tmp/processed/vid_karaoke.mp4", s.KaraokeVideoPath("vid"))
}

func TestStore_HashFile(t *testing.T) {
	base := t.TempDir()
	s := New(base, base)
	path := filepath.Join(base, "f.txt")
	require.NoError(t, os.WriteFile(path, []byte("hello"), 0o644))

	hash, err := s.HashFile(context.Background(), path)
	require.NoError(t, err)
	assert.Equal(t, "2cf24dba5fb0a30e26e83b2ac5b9e29e1b161e5c1fa7425e73043362938b9824", hash)
}
