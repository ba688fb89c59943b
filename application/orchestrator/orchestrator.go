// Package orchestrator implements the job orchestrator (C12): accepting
// submissions, admitting them through a bounded-concurrency gate, running
// the stage pipeline, and applying the cleanup-on-failure policy.
package orchestrator

import (
	"context"
	"path/filepath"
	"strings"
	"sync"

	"github.com/google/uuid"
	"go.uber.org/multierr"
	"go.uber.org/zap"

	"github.com/karaokeforge/pipeline/application/pipeline"
	"github.com/karaokeforge/pipeline/domain/model"
	"github.com/karaokeforge/pipeline/domain/ports"
	"github.com/karaokeforge/pipeline/pkg/logger"
	"github.com/karaokeforge/pipeline/pkg/progress"
)

// Orchestrator owns the lifetime of submitted jobs: admission, execution,
// cancellation, and the cleanup-on-failure policy.
//
// Cleanup policy: a job's downloaded/processed artifacts are removed on
// failure or cancellation only once its video_id has been resolved — a
// failure before that point (e.g. the fetch itself failing) has nothing on
// disk to clean up, and attempting to derive a cleanup path from an empty
// video_id would be wrong. A job that succeeds is never cleaned up; its
// artifacts are the product.
type Orchestrator struct {
	pipeline  *pipeline.Pipeline
	admission ports.AdmissionLimiter
	progress  *progress.Registry
	storage   ports.StorageProvider
	cache     ports.CacheStore
	log       *logger.Logger

	mu     sync.Mutex
	cancel map[string]context.CancelFunc
}

func New(p *pipeline.Pipeline, admission ports.AdmissionLimiter, reg *progress.Registry, storage ports.StorageProvider, cache ports.CacheStore, log *logger.Logger) *Orchestrator {
	return &Orchestrator{
		pipeline:  p,
		admission: admission,
		progress:  reg,
		storage:   storage,
		cache:     cache,
		log:       log,
		cancel:    make(map[string]context.CancelFunc),
	}
}

// taskHandle adapts a context.CancelFunc to ports.TaskHandle so the
// progress registry can request cancellation without depending on this
// package.
type taskHandle struct {
	cancel context.CancelFunc
	done   chan struct{}
}

func (h *taskHandle) Cancel()            { h.cancel() }
func (h *taskHandle) Done() <-chan struct{} { return h.done }

// Submit creates a job from source plus opts, registers it in the progress
// registry, and begins running it in the background. It returns the job id
// immediately; Submit itself never blocks on admission.
func (o *Orchestrator) Submit(ctx context.Context, source model.Source, opts ...ports.Option) string {
	job := &model.Job{
		ID:        uuid.NewString(),
		Source:    source,
		Language:  "auto",
		Subtitles: model.DefaultSubtitleOptions(),
	}
	for _, opt := range opts {
		opt(job)
	}

	runCtx, cancel := context.WithCancel(context.Background())
	done := make(chan struct{})

	o.progress.Create(job.ID, "job accepted, preparing")
	o.progress.RegisterTask(job.ID, &taskHandle{cancel: cancel, done: done})

	o.mu.Lock()
	o.cancel[job.ID] = cancel
	o.mu.Unlock()

	go o.run(runCtx, job, done)

	return job.ID
}

func (o *Orchestrator) run(ctx context.Context, job *model.Job, done chan struct{}) {
	defer close(done)
	defer func() {
		o.mu.Lock()
		delete(o.cancel, job.ID)
		o.mu.Unlock()
	}()

	log := o.log.With(zap.String("job_id", job.ID))

	if err := o.admission.Acquire(ctx); err != nil {
		o.fail(job, "", err, log)
		return
	}
	defer o.admission.Release()

	st, err := o.pipeline.Run(ctx, job)

	videoID := job.VideoID
	if err != nil {
		o.fail(job, videoID, err, log)
		return
	}

	result := o.buildResult(st)
	o.progress.Update(job.ID, model.StageFinalize, 100, "job complete", false, &result)
	log.Info("job succeeded", zap.String("video_id", videoID))
}

func (o *Orchestrator) buildResult(st *pipeline.State) model.Result {
	root := o.cache.Root()
	result := model.Result{
		VideoID:       st.Job.VideoID,
		ProcessedPath: processedURI(root, st.OutputPath),
		Title:         st.Title,
	}
	if st.Stems != nil {
		if vocals := st.Stems.Path(model.StemVocals); vocals != "" {
			result.StemsBasePath = processedURI(root, filepath.Dir(vocals))
		}
	}
	if st.BPM > 0 {
		bpm := st.BPM
		result.BPM = &bpm
	}
	if st.Key != "" {
		key := st.Key
		result.Key = &key
		conf := st.KeyConfidence
		result.KeyConfidence = &conf
	}
	return result
}

// processedURI finalizes an absolute filesystem path under root into a
// publicly-servable "processed/<rel-path>" URI, mirroring the original's
// f"processed/{relative_video_path_posix}" construction. A path that
// cannot be expressed relative to root (escapes it, or root is unset) is
// returned unchanged rather than silently fabricating a URI.
func processedURI(root, path string) string {
	if root == "" || path == "" {
		return path
	}
	rel, err := filepath.Rel(root, path)
	if err != nil || rel == ".." || strings.HasPrefix(rel, ".."+string(filepath.Separator)) {
		return path
	}
	return "processed/" + filepath.ToSlash(rel)
}

// fail marks the job terminal with an error message and, per the cleanup
// policy, removes any artifacts already written for videoID.
func (o *Orchestrator) fail(job *model.Job, videoID string, err error, log *logger.Logger) {
	message := "job failed: " + err.Error()
	o.progress.Update(job.ID, model.StageFinalize, 100, message, false, nil)
	log.Error("job failed", zap.Error(err), zap.String("video_id", videoID))

	if videoID == "" {
		return
	}

	if cleanupErr := o.cleanup(videoID); cleanupErr != nil {
		log.Warn("cleanup after failure encountered errors", zap.Error(cleanupErr))
	}
}

// cleanup removes every artifact directory/file derived from videoID,
// aggregating any individual removal failures with multierr rather than
// stopping at the first one.
func (o *Orchestrator) cleanup(videoID string) error {
	ctx := context.Background()
	var errs error

	for _, ext := range []string{"wav", "mp4", "webm", "m4a"} {
		path := o.cache.DownloadPath(videoID, ext)
		if exists, _ := o.storage.Exists(ctx, path); exists {
			errs = multierr.Append(errs, o.storage.Remove(ctx, path))
		}
	}

	processedDir := o.cache.ProcessedDir(videoID)
	if exists, _ := o.storage.Exists(ctx, processedDir); exists {
		errs = multierr.Append(errs, o.storage.RemoveAll(ctx, processedDir))
	}

	videoPath := o.cache.KaraokeVideoPath(videoID)
	if exists, _ := o.storage.Exists(ctx, videoPath); exists {
		errs = multierr.Append(errs, o.storage.Remove(ctx, videoPath))
	}

	return errs
}

// Cancel requests cancellation of jobID; a no-op if unknown or already
// terminal.
func (o *Orchestrator) Cancel(jobID string) {
	o.progress.Cancel(jobID)
}

// Progress exposes the underlying registry for status queries.
func (o *Orchestrator) Progress() *progress.Registry {
	return o.progress
}

// Status returns jobID's current progress snapshot, or ok=false if unknown.
func (o *Orchestrator) Status(jobID string) (progress.Entry, bool) {
	return o.progress.Get(jobID)
}

// Shutdown cancels every in-flight job, used on process shutdown.
func (o *Orchestrator) Shutdown() {
	o.progress.CancelAll()
}
