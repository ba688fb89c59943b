// Package separator implements the source separator (C5): subprocess
// supervision of a Demucs-compatible stem separator, replicating its
// empirically observed nested output layout, plus the instrumental
// mixdown.
package separator

import (
	"bytes"
	"context"
	stderrors "errors"
	"os"
	"os/exec"
	"path/filepath"
	"strings"
	"time"

	"github.com/karaokeforge/pipeline/domain/model"
	"github.com/karaokeforge/pipeline/infrastructure/ffmpeg"
	pkgerrors "github.com/karaokeforge/pipeline/pkg/errors"
	"github.com/karaokeforge/pipeline/pkg/logger"
	"github.com/karaokeforge/pipeline/pkg/retry"
	"github.com/sony/gobreaker"
	"go.uber.org/zap"
)

// stemFilenames are the filenames Demucs writes directly, relative to the
// final (nested) output subdirectory.
var stemFilenames = map[model.StemKind]string{
	model.StemVocals: "vocals.wav",
	model.StemDrums:  "drums.wav",
	model.StemBass:   "bass.wav",
	model.StemOther:  "other.wav",
}

const instrumentalFilename = "instrumental.wav"

// Config configures the Separator.
type Config struct {
	PythonPath string // interpreter used to invoke `-m demucs.separate`
	Model      string
	Device     string // "cuda" or "cpu"
	Version    string // library version recorded in cache metadata

	Timeout      time.Duration // hard subprocess kill timeout
	WaitTimeout  time.Duration // post-process stem-visibility poll timeout
	PollInterval time.Duration
	Retries      int // total subprocess attempts, including the first

	Executor *ffmpeg.Executor // used for the instrumental mixdown
	Logger   *logger.Logger
}

// Separator implements ports.SourceSeparator.
type Separator struct {
	cfg     Config
	log     *logger.Logger
	breaker *gobreaker.CircuitBreaker
}

func New(cfg Config) *Separator {
	if cfg.Timeout == 0 {
		cfg.Timeout = 2400 * time.Second
	}
	if cfg.WaitTimeout == 0 {
		cfg.WaitTimeout = 15 * time.Second
	}
	if cfg.PollInterval == 0 {
		cfg.PollInterval = 500 * time.Millisecond
	}
	if cfg.Retries == 0 {
		cfg.Retries = 2
	}
	if cfg.PythonPath == "" {
		cfg.PythonPath = "python3"
	}
	log := cfg.Logger
	if log == nil {
		log, _ = logger.New(false)
	}
	breaker := gobreaker.NewCircuitBreaker(gobreaker.Settings{
		Name:    "source-separator",
		Timeout: 60 * time.Second,
		ReadyToTrip: func(counts gobreaker.Counts) bool {
			return counts.ConsecutiveFailures >= 3
		},
	})
	return &Separator{cfg: cfg, log: log, breaker: breaker}
}

func (s *Separator) ModelName() string      { return s.cfg.Model }
func (s *Separator) LibraryVersion() string { return s.cfg.Version }

// Separate runs the separator subprocess and verifies its output,
// returning the stem set (including the derived instrumental mixdown).
// outputBaseDir is the <processed>/<video_id> directory; this function
// derives the nested <base>/<model>/<model>/<input_stem>/ path the
// external tool actually writes to.
func (s *Separator) Separate(ctx context.Context, inputWAVPath, outputBaseDir string) (*model.StemSet, error) {
	inputStem := strings.TrimSuffix(filepath.Base(inputWAVPath), filepath.Ext(inputWAVPath))
	modelBaseOutputDir := filepath.Join(outputBaseDir, s.cfg.Model)
	actualStemsDir := filepath.Join(modelBaseOutputDir, s.cfg.Model, inputStem)

	if err := os.MkdirAll(actualStemsDir, 0o755); err != nil {
		return nil, pkgerrors.NewSeparationError("could not create stems directory", s.cfg.Model, err)
	}

	result, err := s.breaker.Execute(func() (interface{}, error) {
		retryCfg := retry.DefaultConfig()
		retryCfg.MaxAttempts = s.cfg.Retries
		retryCfg.Delay = 2 * time.Second
		retryCfg.Retryable = isRetryableSeparationError
		return nil, retry.Do(ctx, retryCfg, func() error {
			return s.runSubprocess(ctx, inputWAVPath, modelBaseOutputDir)
		})
	})
	_ = result
	if err != nil {
		if err == gobreaker.ErrOpenState {
			return nil, pkgerrors.NewSeparationError("separator circuit open, too many recent failures", s.cfg.Model, err)
		}
		return nil, err
	}

	// The tool finishes writing files shortly after the process exits;
	// the verification loop below absorbs that lag instead of a fixed sleep.
	stems, err := s.verifyStems(ctx, actualStemsDir)
	if err != nil {
		return nil, err
	}

	instrumentalPath := filepath.Join(actualStemsDir, instrumentalFilename)
	if err := s.mixInstrumental(ctx, stems, instrumentalPath); err != nil {
		return nil, err
	}
	stems.Paths[model.StemInstrumental] = instrumentalPath

	return stems, nil
}

func (s *Separator) runSubprocess(ctx context.Context, inputPath, outputDir string) error {
	runCtx, cancel := context.WithTimeout(ctx, s.cfg.Timeout)
	defer cancel()

	absInput, err := filepath.Abs(inputPath)
	if err != nil {
		return pkgerrors.NewSeparationError("could not resolve input path", s.cfg.Model, err)
	}
	absOut, err := filepath.Abs(outputDir)
	if err != nil {
		return pkgerrors.NewSeparationError("could not resolve output path", s.cfg.Model, err)
	}

	args := []string{"-m", "demucs.separate", "--out", absOut, "-n", s.cfg.Model, "-d", s.cfg.Device, absInput}
	cmd := exec.CommandContext(runCtx, s.cfg.PythonPath, args...)
	var stderr bytes.Buffer
	cmd.Stderr = &stderr

	s.log.Debug("running separator subprocess", zap.String("model", s.cfg.Model), zap.String("device", s.cfg.Device))

	if err := cmd.Run(); err != nil {
		if runCtx.Err() != nil {
			return pkgerrors.NewSeparationError("separator timed out", s.cfg.Model, runCtx.Err())
		}
		lastLine := lastNonEmptyLine(stderr.String())
		return pkgerrors.NewSeparationError("separator failed: "+lastLine, s.cfg.Model, err)
	}
	return nil
}

// verifyStems polls actualStemsDir until all four core stems are present
// and at least model.MinValidStemBytes, or the wait timeout elapses.
func (s *Separator) verifyStems(ctx context.Context, dir string) (*model.StemSet, error) {
	deadline := time.Now().Add(s.cfg.WaitTimeout)
	ticker := time.NewTicker(s.cfg.PollInterval)
	defer ticker.Stop()

	for {
		stems := &model.StemSet{Paths: map[model.StemKind]string{}}
		var missing []string
		for _, kind := range model.CoreStems {
			p := filepath.Join(dir, stemFilenames[kind])
			if info, err := os.Stat(p); err == nil && info.Size() >= model.MinValidStemBytes {
				stems.Paths[kind] = p
			} else {
				missing = append(missing, stemFilenames[kind])
			}
		}
		if len(missing) == 0 {
			return stems, nil
		}
		if time.Now().After(deadline) {
			entries, _ := os.ReadDir(dir)
			names := make([]string, 0, len(entries))
			for _, e := range entries {
				names = append(names, e.Name())
			}
			s.log.Warn("stem verification timed out",
				zap.Strings("missing", missing),
				zap.String("dir", dir),
				zap.Strings("dir_contents", names),
			)
			return nil, pkgerrors.NewSeparationError("stem files not found after separation", s.cfg.Model, nil)
		}
		select {
		case <-ctx.Done():
			return nil, ctx.Err()
		case <-ticker.C:
		}
	}
}

// mixInstrumental sums drums+bass+other into a single stereo track with
// dynamic-range normalization, at PCM 24-bit 48kHz.
func (s *Separator) mixInstrumental(ctx context.Context, stems *model.StemSet, outputPath string) error {
	builder := ffmpeg.NewFilterChainBuilder().AddAMerge(3).AddPan(2).AddDynAudNorm()
	filterComplex := "[0:a][1:a][2:a]" + builder.Build()

	args := []string{
		"-y",
		"-i", stems.Path(model.StemDrums),
		"-i", stems.Path(model.StemBass),
		"-i", stems.Path(model.StemOther),
		"-filter_complex", filterComplex,
		"-c:a", "pcm_s24le",
		"-ar", "48000",
		outputPath,
	}
	return s.cfg.Executor.Execute(ctx, args)
}

// isRetryableSeparationError reports whether a runSubprocess failure was a
// hard timeout rather than a deterministic tool failure; only the former is
// worth another attempt, since demucs itself failing on the same input will
// fail again identically.
func isRetryableSeparationError(err error) bool {
	se, ok := pkgerrors.As[*pkgerrors.SeparationError](err)
	if !ok {
		return false
	}
	return stderrors.Is(se.Cause, context.DeadlineExceeded)
}

func lastNonEmptyLine(s string) string {
	lines := strings.Split(strings.TrimRight(s, "\n"), "\n")
	for i := len(lines) - 1; i >= 0; i-- {
		if strings.TrimSpace(lines[i]) != "" {
			return lines[i]
		}
	}
	return "unknown separator error"
}
