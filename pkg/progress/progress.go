// Package progress implements the progress registry (C2): the single
// source of truth for per-job status and live background tasks, safe for
// concurrent observers and mutators.
package progress

import (
	"strings"
	"sync"
	"time"

	"github.com/karaokeforge/pipeline/domain/model"
	"github.com/karaokeforge/pipeline/domain/ports"
	"github.com/prometheus/client_golang/prometheus"
)

// Update holds one snapshot-worthy progress event, kept for callers that
// want the lower-level fan-out primitives (ChannelReporter/MultiReporter)
// independent of the Registry.
type Update struct {
	JobID       string
	Stage       model.JobStage
	Percent     float64
	Message     string
	IsStepStart bool
	Result      *model.Result
	Timestamp   time.Time
}

// Reporter is the interface for simple progress fan-out, independent of
// the stateful Registry below.
type Reporter interface {
	Report(update Update)
}

// ChannelReporter sends updates to a channel, dropping them if the
// channel is full so a slow observer never blocks a pipeline stage.
type ChannelReporter struct {
	ch chan<- Update
}

func NewChannelReporter(ch chan<- Update) *ChannelReporter {
	return &ChannelReporter{ch: ch}
}

func (r *ChannelReporter) Report(update Update) {
	select {
	case r.ch <- update:
	default:
	}
}

// MultiReporter fans an update out to multiple reporters.
type MultiReporter struct {
	mu        sync.RWMutex
	reporters []Reporter
}

func NewMultiReporter(reporters ...Reporter) *MultiReporter {
	return &MultiReporter{reporters: reporters}
}

func (m *MultiReporter) Add(r Reporter) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.reporters = append(m.reporters, r)
}

func (m *MultiReporter) Report(update Update) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	for _, r := range m.reporters {
		r.Report(update)
	}
}

// NoopReporter discards all updates.
type NoopReporter struct{}

func (NoopReporter) Report(_ Update) {}

// entry is the registry's internal per-job record. All access happens
// under Registry.mu; callers only ever see copied-out Entry snapshots.
type entry struct {
	jobID       string
	stage       model.JobStage
	percent     float64
	message     string
	isStepStart bool
	result      *model.Result
	terminal    bool
	createdAt   time.Time
	updatedAt   time.Time
	handle      ports.TaskHandle
}

// Entry is an immutable snapshot of a job's progress state.
type Entry struct {
	JobID       string
	Stage       model.JobStage
	Percent     float64
	Message     string
	IsStepStart bool
	Result      *model.Result
	Terminal    bool
	CreatedAt   time.Time
	UpdatedAt   time.Time
}

func (e *entry) snapshot() Entry {
	return Entry{
		JobID:       e.jobID,
		Stage:       e.stage,
		Percent:     e.percent,
		Message:     e.message,
		IsStepStart: e.isStepStart,
		Result:      e.result,
		Terminal:    e.terminal,
		CreatedAt:   e.createdAt,
		UpdatedAt:   e.updatedAt,
	}
}

// terminalMarkers are message substrings that count as a terminal
// error/cancel signal even before progress reaches 100, matching the
// registry's "terminal = progress==100 AND (result!=nil OR message
// contains error/cancel marker)" contract.
var terminalMarkers = []string{"error", "cancel", "fail"}

func looksTerminal(message string, percent float64, result *model.Result) bool {
	if percent < 100 {
		return false
	}
	if result != nil {
		return true
	}
	lower := strings.ToLower(message)
	for _, m := range terminalMarkers {
		if strings.Contains(lower, m) {
			return true
		}
	}
	return false
}

// Registry is the dedicated, mutex-guarded progress store. It replaces any
// thread-unsafe dict-of-dicts: every read returns a copied snapshot, and
// every mutation is monotone-aware.
type Registry struct {
	mu      sync.Mutex
	entries map[string]*entry
	clock   ports.Clock

	ttl          time.Duration
	stopCleanup  chan struct{}
	cleanupOnce  sync.Once
	cleanupWG    sync.WaitGroup

	activeGauge    prometheus.Gauge
	terminalCounter *prometheus.CounterVec
}

// NewRegistry creates an empty registry. ttl is how long a terminal entry
// is retained before the cleanup loop sweeps it.
func NewRegistry(ttl time.Duration, clock ports.Clock) *Registry {
	if clock == nil {
		clock = ports.RealClock
	}
	return &Registry{
		entries: make(map[string]*entry),
		clock:   clock,
		ttl:     ttl,
		activeGauge: prometheus.NewGauge(prometheus.GaugeOpts{
			Name: "karaoke_active_jobs",
			Help: "Number of jobs currently tracked by the progress registry.",
		}),
		terminalCounter: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "karaoke_jobs_terminal_total",
			Help: "Count of jobs that reached a terminal state, by outcome.",
		}, []string{"outcome"}),
	}
}

// Collectors exposes the registry's prometheus collectors for registration
// with a prometheus.Registerer.
func (r *Registry) Collectors() []prometheus.Collector {
	return []prometheus.Collector{r.activeGauge, r.terminalCounter}
}

// Create inserts a fresh entry with progress 0.
func (r *Registry) Create(jobID, message string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	now := r.clock.Now()
	r.entries[jobID] = &entry{
		jobID:       jobID,
		message:     message,
		isStepStart: true,
		createdAt:   now,
		updatedAt:   now,
	}
	r.activeGauge.Set(float64(len(r.entries)))
}

// RegisterTask associates a cancellation handle with jobID.
func (r *Registry) RegisterTask(jobID string, handle ports.TaskHandle) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if e, ok := r.entries[jobID]; ok {
		e.handle = handle
	}
}

// Update is the monotone-aware updater: ignores updates after a terminal
// success, accepts error/cancel updates unconditionally, suppresses
// duplicate no-op messages, and clamps progress to [0,100].
func (r *Registry) Update(jobID string, stage model.JobStage, percent float64, message string, isStepStart bool, result *model.Result) {
	r.mu.Lock()
	defer r.mu.Unlock()

	e, ok := r.entries[jobID]
	if !ok {
		return
	}
	if e.terminal {
		return
	}
	if percent < 0 {
		percent = 0
	}
	if percent > 100 {
		percent = 100
	}

	terminal := looksTerminal(message, percent, result)
	if !terminal && percent < e.percent {
		// Non-terminal updates must never move progress backwards.
		percent = e.percent
	}
	if !terminal && percent == e.percent && message == e.message && stage == e.stage {
		return
	}

	e.stage = stage
	e.percent = percent
	e.message = message
	e.isStepStart = isStepStart
	e.updatedAt = r.clock.Now()
	if result != nil {
		e.result = result
	}
	if terminal {
		e.terminal = true
		outcome := "success"
		lower := strings.ToLower(message)
		switch {
		case strings.Contains(lower, "cancel"):
			outcome = "canceled"
		case strings.Contains(lower, "error") || strings.Contains(lower, "fail"):
			outcome = "error"
		}
		r.terminalCounter.WithLabelValues(outcome).Inc()
	}
}

// Get returns a snapshot of jobID's state, or ok=false if unknown.
func (r *Registry) Get(jobID string) (Entry, bool) {
	r.mu.Lock()
	defer r.mu.Unlock()
	e, ok := r.entries[jobID]
	if !ok {
		return Entry{}, false
	}
	return e.snapshot(), true
}

// Exists reports whether jobID is tracked.
func (r *Registry) Exists(jobID string) bool {
	r.mu.Lock()
	defer r.mu.Unlock()
	_, ok := r.entries[jobID]
	return ok
}

// ActiveCount returns the number of non-terminal entries.
func (r *Registry) ActiveCount() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	n := 0
	for _, e := range r.entries {
		if !e.terminal {
			n++
		}
	}
	return n
}

// Stats summarizes the registry for a health endpoint.
type Stats struct {
	Total    int
	Active   int
	Terminal int
}

func (r *Registry) Stats() Stats {
	r.mu.Lock()
	defer r.mu.Unlock()
	s := Stats{Total: len(r.entries)}
	for _, e := range r.entries {
		if e.terminal {
			s.Terminal++
		} else {
			s.Active++
		}
	}
	return s
}

// Cancel sets the cancel flag on jobID's handle (if any) and transitions it
// to terminal progress=100 with a cancel message, unless already terminal.
func (r *Registry) Cancel(jobID string) {
	r.mu.Lock()
	e, ok := r.entries[jobID]
	if !ok || e.terminal {
		r.mu.Unlock()
		return
	}
	e.terminal = true
	e.percent = 100
	e.message = "cancellation requested"
	e.updatedAt = r.clock.Now()
	handle := e.handle
	r.mu.Unlock()

	r.terminalCounter.WithLabelValues("canceled").Inc()
	if handle != nil {
		handle.Cancel()
	}
}

// CancelAll cancels every non-terminal job, used on shutdown.
func (r *Registry) CancelAll() {
	r.mu.Lock()
	jobIDs := make([]string, 0, len(r.entries))
	for id, e := range r.entries {
		if !e.terminal {
			jobIDs = append(jobIDs, id)
		}
	}
	r.mu.Unlock()

	for _, id := range jobIDs {
		r.Cancel(id)
	}
}

// StartCleanupLoop begins a periodic sweep removing terminal entries older
// than the registry's ttl.
func (r *Registry) StartCleanupLoop(interval time.Duration) {
	r.mu.Lock()
	if r.stopCleanup != nil {
		r.mu.Unlock()
		return
	}
	r.stopCleanup = make(chan struct{})
	stop := r.stopCleanup
	r.mu.Unlock()

	r.cleanupWG.Add(1)
	go func() {
		defer r.cleanupWG.Done()
		ticker := time.NewTicker(interval)
		defer ticker.Stop()
		for {
			select {
			case <-stop:
				return
			case <-ticker.C:
				r.sweep()
			}
		}
	}()
}

// StopCleanupLoop stops the sweep goroutine, if running.
func (r *Registry) StopCleanupLoop() {
	r.cleanupOnce.Do(func() {
		r.mu.Lock()
		stop := r.stopCleanup
		r.mu.Unlock()
		if stop != nil {
			close(stop)
		}
	})
	r.cleanupWG.Wait()
}

func (r *Registry) sweep() {
	r.mu.Lock()
	defer r.mu.Unlock()
	now := r.clock.Now()
	for id, e := range r.entries {
		if e.terminal && e.percent == 100 && now.Sub(e.updatedAt) > r.ttl {
			delete(r.entries, id)
		}
	}
	r.activeGauge.Set(float64(len(r.entries)))
}
