// Package fetcher implements the media fetcher (C3): URL/search resolution
// and download via a yt-dlp-compatible subprocess, wrapped in a circuit
// breaker so a failing downloader trips once instead of per-job.
package fetcher

import (
	"bufio"
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"os"
	"os/exec"
	"path/filepath"
	"regexp"
	"strings"
	"time"

	"github.com/karaokeforge/pipeline/domain/ports"
	pkgerrors "github.com/karaokeforge/pipeline/pkg/errors"
	"github.com/karaokeforge/pipeline/pkg/logger"
	"github.com/karaokeforge/pipeline/pkg/retry"
	"github.com/sony/gobreaker"
	"go.uber.org/zap"
)

// knownExts are the extensions the download-dir short-circuit check
// recognizes as "already fetched".
var knownExts = []string{"mp4", "mkv", "webm", "avi", "mov", "m4v", "mp3", "wav", "flac", "m4a", "ogg"}

// videoIDPattern recognizes the canonical 11-char alphanumeric-underscore-
// hyphen video identifier embedded in streaming-site URL forms.
var videoIDPattern = regexp.MustCompile(`[A-Za-z0-9_-]{11}`)
var urlPattern = regexp.MustCompile(`^https?://`)

// Config configures the Fetcher.
type Config struct {
	BinaryPath    string // path to the yt-dlp-compatible downloader binary
	DownloadDir   string
	SocketTimeout time.Duration
	Retries       int // total download attempts, including the first
	Logger        *logger.Logger
}

// Fetcher implements ports.MediaFetcher.
type Fetcher struct {
	cfg     Config
	log     *logger.Logger
	breaker *gobreaker.CircuitBreaker
}

func New(cfg Config) *Fetcher {
	if cfg.SocketTimeout == 0 {
		cfg.SocketTimeout = 60 * time.Second
	}
	if cfg.Retries == 0 {
		cfg.Retries = 3
	}
	log := cfg.Logger
	if log == nil {
		log, _ = logger.New(false)
	}

	breaker := gobreaker.NewCircuitBreaker(gobreaker.Settings{
		Name:    "media-fetcher",
		Timeout: 30 * time.Second,
		ReadyToTrip: func(counts gobreaker.Counts) bool {
			return counts.ConsecutiveFailures >= 5
		},
	})

	return &Fetcher{cfg: cfg, log: log, breaker: breaker}
}

// looksLikeURL reports whether input should be treated as a direct URL
// rather than dispatched as a search query.
func looksLikeURL(input string) bool {
	return urlPattern.MatchString(strings.TrimSpace(input))
}

// Fetch resolves input to a downloaded local file, eliding the download if
// a file matching <video_id>.<known-ext> already exists.
func (f *Fetcher) Fetch(ctx context.Context, input string) (videoID, localPath, title, uploader string, err error) {
	target := input
	if !looksLikeURL(input) {
		target = "ytsearch1:" + input
	}

	if id := ExtractVideoID(input); id != "" {
		if path, ok := f.existingDownload(id); ok {
			meta, metaErr := f.fetchMetadataOnly(ctx, target)
			if metaErr == nil {
				return id, path, meta.Title, meta.Uploader, nil
			}
			f.log.Warn("download-dir short-circuit metadata lookup failed, falling back to full fetch",
				zap.String("video_id", id), zap.Error(metaErr))
		}
	}

	result, breakerErr := f.breaker.Execute(func() (interface{}, error) {
		var meta *downloadMeta
		retryCfg := retry.DefaultConfig()
		retryCfg.MaxAttempts = f.cfg.Retries
		retryCfg.Retryable = isRetryableFetchError
		retryErr := retry.Do(ctx, retryCfg, func() error {
			m, runErr := f.runDownload(ctx, target)
			if runErr != nil {
				return runErr
			}
			meta = m
			return nil
		})
		return meta, retryErr
	})
	if breakerErr != nil {
		if breakerErr == gobreaker.ErrOpenState {
			return "", "", "", "", pkgerrors.NewFetchError(pkgerrors.CodeNetwork, input, "fetcher circuit open, too many recent failures", breakerErr)
		}
		return "", "", "", "", breakerErr
	}

	meta := result.(*downloadMeta)
	return meta.ID, meta.localPath(f.cfg.DownloadDir), meta.Title, meta.Uploader, nil
}

// Suggestions returns up to limit lightweight metadata hits without
// downloading media. For a URL input this degenerates to a single-item
// metadata fetch.
func (f *Fetcher) Suggestions(ctx context.Context, input string, limit int) ([]SuggestionItemResult, error) {
	target := input
	if !looksLikeURL(input) {
		target = fmt.Sprintf("ytsearch%d:%s", limit, input)
	}

	args := []string{"--flat-playlist", "--dump-json", "--no-warnings", target}
	cmd := exec.CommandContext(ctx, f.binary(), args...)
	var stdout, stderr bytes.Buffer
	cmd.Stdout = &stdout
	cmd.Stderr = &stderr

	if err := cmd.Run(); err != nil {
		return nil, pkgerrors.NewFetchError(ClassifyError(stderr.String()), input, "suggestions lookup failed", err)
	}

	seen := make(map[string]struct{})
	var items []SuggestionItemResult
	scanner := bufio.NewScanner(&stdout)
	scanner.Buffer(make([]byte, 0, 64*1024), 4*1024*1024)
	for scanner.Scan() {
		var meta downloadMeta
		if err := json.Unmarshal(scanner.Bytes(), &meta); err != nil {
			continue
		}
		if _, dup := seen[meta.ID]; dup {
			continue
		}
		seen[meta.ID] = struct{}{}
		items = append(items, SuggestionItemResult{
			ID:         meta.ID,
			Title:      meta.Title,
			Thumbnail:  meta.Thumbnail,
			URL:        meta.WebpageURL,
			Uploader:   meta.Uploader,
			UploaderID: meta.UploaderID,
		})
		if len(items) >= limit {
			break
		}
	}
	return items, nil
}

// SuggestionItemResult is an alias of ports.SuggestionItem, so Suggestions
// has the signature ports.MediaFetcher requires.
type SuggestionItemResult = ports.SuggestionItem

type downloadMeta struct {
	ID         string `json:"id"`
	Title      string `json:"title"`
	Uploader   string `json:"uploader"`
	UploaderID string `json:"uploader_id"`
	Thumbnail  string `json:"thumbnail"`
	WebpageURL string `json:"webpage_url"`
	Ext        string `json:"ext"`
}

func (m *downloadMeta) localPath(dir string) string {
	ext := m.Ext
	if ext == "" {
		ext = "mp4"
	}
	return filepath.Join(dir, m.ID+"."+ext)
}

// existingDownload reports whether a file matching <video_id>.<known-ext>
// is already present in the download directory.
func (f *Fetcher) existingDownload(videoID string) (string, bool) {
	for _, ext := range KnownExtensions() {
		p := filepath.Join(f.cfg.DownloadDir, videoID+"."+ext)
		if info, statErr := os.Stat(p); statErr == nil && !info.IsDir() {
			return p, true
		}
	}
	return "", false
}

// fetchMetadataOnly retrieves title/uploader without downloading media, for
// the download-dir short-circuit path where the file already exists.
func (f *Fetcher) fetchMetadataOnly(ctx context.Context, target string) (*downloadMeta, error) {
	args := []string{"--skip-download", "--dump-json", "--no-warnings", target}
	cmd := exec.CommandContext(ctx, f.binary(), args...)
	var stdout, stderr bytes.Buffer
	cmd.Stdout = &stdout
	cmd.Stderr = &stderr

	if err := cmd.Run(); err != nil {
		return nil, pkgerrors.NewFetchError(ClassifyError(stderr.String()), target, "metadata lookup failed", err)
	}

	line := lastJSONLine(stdout.String())
	var meta downloadMeta
	if err := json.Unmarshal([]byte(line), &meta); err != nil {
		return nil, pkgerrors.NewFetchError(pkgerrors.CodeGeneric, target, "could not parse downloader output", err)
	}
	return &meta, nil
}

func (f *Fetcher) binary() string {
	if f.cfg.BinaryPath != "" {
		return f.cfg.BinaryPath
	}
	return "yt-dlp"
}

func (f *Fetcher) runDownload(ctx context.Context, target string) (*downloadMeta, error) {
	args := []string{
		"--no-warnings",
		"--print-json",
		"--socket-timeout", fmt.Sprintf("%d", int(f.cfg.SocketTimeout.Seconds())),
		"-o", filepath.Join(f.cfg.DownloadDir, "%(id)s.%(ext)s"),
		target,
	}
	cmd := exec.CommandContext(ctx, f.binary(), args...)
	var stdout, stderr bytes.Buffer
	cmd.Stdout = &stdout
	cmd.Stderr = &stderr

	f.log.Debug("running media fetch", zap.String("target", target))

	if err := cmd.Run(); err != nil {
		code := ClassifyError(stderr.String())
		return nil, pkgerrors.NewFetchError(code, target, "download failed", err)
	}

	line := lastJSONLine(stdout.String())
	var meta downloadMeta
	if err := json.Unmarshal([]byte(line), &meta); err != nil {
		return nil, pkgerrors.NewFetchError(pkgerrors.CodeGeneric, target, "could not parse downloader output", err)
	}
	if meta.ID == "" {
		return nil, pkgerrors.NewFetchError(pkgerrors.CodeNoResults, target, "no results", nil)
	}
	return &meta, nil
}

// isRetryableFetchError reports whether a runDownload failure is worth
// another attempt, per the taxonomy's per-code Retryable() classification.
func isRetryableFetchError(err error) bool {
	fe, ok := pkgerrors.As[*pkgerrors.FetchError](err)
	return ok && fe.Code.Retryable()
}

func lastJSONLine(s string) string {
	lines := strings.Split(strings.TrimSpace(s), "\n")
	for i := len(lines) - 1; i >= 0; i-- {
		if strings.HasPrefix(strings.TrimSpace(lines[i]), "{") {
			return lines[i]
		}
	}
	return ""
}
