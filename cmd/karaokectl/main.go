// Command karaokectl is a thin CLI that wires every infrastructure adapter
// into the orchestrator and submits a single job from the command line,
// printing progress lines as they arrive — the karaoke-domain analogue of
// the teacher's example/main.go.
package main

import (
	"context"
	"flag"
	"fmt"
	"log"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/karaokeforge/pipeline/application/alignment"
	"github.com/karaokeforge/pipeline/application/orchestrator"
	"github.com/karaokeforge/pipeline/application/pipeline"
	"github.com/karaokeforge/pipeline/domain/model"
	"github.com/karaokeforge/pipeline/domain/ports"
	"github.com/karaokeforge/pipeline/infrastructure/analyzer"
	"github.com/karaokeforge/pipeline/infrastructure/cache"
	"github.com/karaokeforge/pipeline/infrastructure/fetcher"
	"github.com/karaokeforge/pipeline/infrastructure/ffmpeg"
	"github.com/karaokeforge/pipeline/infrastructure/lyrics"
	"github.com/karaokeforge/pipeline/infrastructure/recognizer"
	"github.com/karaokeforge/pipeline/infrastructure/separator"
	"github.com/karaokeforge/pipeline/infrastructure/storage"
	"github.com/karaokeforge/pipeline/internal/config"
	"github.com/karaokeforge/pipeline/pkg/logger"
	"github.com/karaokeforge/pipeline/pkg/metrics"
	"github.com/karaokeforge/pipeline/pkg/progress"
	"github.com/prometheus/client_golang/prometheus"
	"go.uber.org/zap"
)

func main() {
	input := flag.String("input", "", "URL, search query, or local file path to produce a karaoke video from")
	localFile := flag.Bool("local-file", false, "treat -input as a local file path rather than a URL")
	customLyrics := flag.String("custom-lyrics", "", "use these lyrics instead of an official lookup")
	flag.Parse()

	if *input == "" {
		fmt.Fprintln(os.Stderr, "usage: karaokectl -input <url|query|path> [-local-file] [-custom-lyrics text]")
		os.Exit(2)
	}

	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("config: %v", err)
	}

	appLog, err := logger.New(cfg.Debug)
	if err != nil {
		log.Fatalf("logger: %v", err)
	}
	defer appLog.Sync()

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	orch := buildOrchestrator(cfg, appLog)

	var source model.Source
	if *localFile {
		source = model.Source{Kind: model.SourceKindLocalFile, Path: *input}
	} else {
		source = model.Source{Kind: model.SourceKindURL, URL: *input}
	}

	var opts []ports.Option
	if *customLyrics != "" {
		opts = append(opts, ports.WithCustomLyrics(*customLyrics))
	}

	jobID := orch.Submit(ctx, source, opts...)
	fmt.Printf("submitted job %s\n", jobID)

	watch(ctx, orch, jobID)
}

func buildOrchestrator(cfg config.Config, log *logger.Logger) *orchestrator.Orchestrator {
	exec, err := ffmpeg.NewExecutor(ffmpeg.ExecutorConfig{Logger: log})
	if err != nil {
		fmt.Fprintf(os.Stderr, "ffmpeg executor: %v\n", err)
		os.Exit(1)
	}

	store := storage.NewLocalStorage()
	cacheStore := cache.New(cfg.DownloadsDir, cfg.ProcessedDir)

	fetch := fetcher.New(fetcher.Config{
		DownloadDir:   cfg.DownloadsDir,
		SocketTimeout: cfg.FetchTimeout,
		Logger:        log,
	})
	extractor := ffmpeg.NewExtractor(exec, store)
	sep := separator.New(separator.Config{
		Model:   cfg.DemucsModel,
		Timeout: cfg.SeparationTimeout,
		Executor: exec,
		Logger:   log,
	})
	rec := recognizer.NewService(&recognizer.WhisperCLIBackend{
		BinaryPath: "whisper-cli",
		ModelPath:  cfg.WhisperModelTag,
	}, log)
	lyricProvider := lyrics.New(lyrics.Config{APIToken: cfg.GeniusAPIToken})
	mux := ffmpeg.NewMuxer(exec)
	metricsCollectors := metrics.New()
	if err := metricsCollectors.Register(prometheus.DefaultRegisterer); err != nil {
		log.Warn("metrics registration failed", zap.Error(err))
	}

	reg := progress.NewRegistry(cfg.ProgressTTL, nil)
	reg.StartCleanupLoop(time.Minute)

	deps := pipeline.Deps{
		Fetcher:    fetch,
		Extractor:  extractor,
		Separator:  sep,
		Recognizer: rec,
		Analyzer:   analyzer.New(),
		Lyrics:     lyricProvider,
		Muxer:      mux,
		Cache:      cacheStore,
		Storage:    store,
		Progress:   reg,
		Align:      alignment.New(log),
		Log:        log,
		Metrics:    metricsCollectors,
	}

	admission := pipeline.NewSemaphore(cfg.MaxConcurrentJobs)
	return orchestrator.New(pipeline.New(deps), admission, reg, store, cacheStore, log)
}

func watch(ctx context.Context, orch *orchestrator.Orchestrator, jobID string) {
	ticker := time.NewTicker(500 * time.Millisecond)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			orch.Cancel(jobID)
			return
		case <-ticker.C:
			entry, ok := orch.Status(jobID)
			if !ok {
				return
			}
			fmt.Printf("[%s] stage=%-20s %6.1f%%  %s\n", jobID[:8], entry.Stage, entry.Percent, entry.Message)
			if entry.Terminal {
				return
			}
		}
	}
}
