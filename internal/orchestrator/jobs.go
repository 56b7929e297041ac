// Package orchestrator tracks asynchronous report jobs and drives each one
// through its ingest, analysis and render stages.
package orchestrator

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"slices"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/finsight-ai/finsight/internal/chunk"
	"github.com/finsight-ai/finsight/internal/fault"
	"github.com/finsight-ai/finsight/internal/models"
)

// State represents the lifecycle stage of a report job. Transitions are
// monotonic: Pending → Ingesting → Analyzing → Complete or Failed.
type State string

const (
	StatePending   State = "pending"
	StateIngesting State = "ingesting"
	StateAnalyzing State = "analyzing"
	StateComplete  State = "complete"
	StateFailed    State = "failed"
)

// Terminal reports whether the state is final.
func (s State) Terminal() bool {
	return s == StateComplete || s == StateFailed
}

// Job represents one asynchronous report request.
type Job struct {
	ID          string
	Ticker      string
	State       State
	Artifact    string // report path, set on completion
	Err         error
	CreatedAt   time.Time
	CompletedAt *time.Time

	mu sync.RWMutex
}

// Snapshot returns a thread-safe copy of the job state.
func (j *Job) Snapshot() Job {
	j.mu.RLock()
	defer j.mu.RUnlock()
	return Job{
		ID:          j.ID,
		Ticker:      j.Ticker,
		State:       j.State,
		Artifact:    j.Artifact,
		Err:         j.Err,
		CreatedAt:   j.CreatedAt,
		CompletedAt: j.CompletedAt,
	}
}

// FailureReason returns the taxonomy label of the job's error, empty while
// the job has not failed.
func (j *Job) FailureReason() string {
	if j.Err == nil {
		return ""
	}
	return fault.Reason(j.Err)
}

func (j *Job) setState(s State) {
	j.mu.Lock()
	j.State = s
	j.mu.Unlock()
}

// ContextFetcher supplies raw context documents for a ticker.
type ContextFetcher interface {
	FetchContext(ctx context.Context, ticker string) ([]models.Document, error)
}

// Indexer rebuilds the ticker's vector index from documents.
type Indexer interface {
	Ingest(ctx context.Context, ticker string, docs []models.Document) (int64, error)
}

// Analyzer runs the analysis pipeline and produces the synthesis result.
type Analyzer interface {
	Run(ctx context.Context, ticker string) (*models.SynthesisResult, error)
}

// Renderer turns a synthesis result into a report artifact.
type Renderer interface {
	Render(ctx context.Context, result *models.SynthesisResult) (string, error)
}

// Timeouts bounds each stage of a job. Zero values mean no bound.
type Timeouts struct {
	Fetch   time.Duration
	Ingest  time.Duration
	Analyze time.Duration
	Render  time.Duration
}

// Orchestrator owns the job registry. Jobs are kept in memory; once maxJobs
// is exceeded the oldest terminal jobs are evicted. Running jobs are never
// evicted.
type Orchestrator struct {
	fetcher  ContextFetcher
	indexer  Indexer
	analyzer Analyzer
	renderer Renderer

	chunking chunk.Config
	timeouts Timeouts
	maxJobs  int

	mu    sync.RWMutex
	jobs  map[string]*Job
	order []string // job IDs in submission order, for eviction
}

// New creates an orchestrator over the given stage collaborators.
func New(fetcher ContextFetcher, indexer Indexer, analyzer Analyzer, renderer Renderer, timeouts Timeouts, maxJobs int) *Orchestrator {
	if maxJobs <= 0 {
		maxJobs = 256
	}
	return &Orchestrator{
		fetcher:  fetcher,
		indexer:  indexer,
		analyzer: analyzer,
		renderer: renderer,
		chunking: chunk.DefaultConfig(),
		timeouts: timeouts,
		maxJobs:  maxJobs,
		jobs:     make(map[string]*Job),
	}
}

// Submit registers a new job for the ticker and starts it in the background.
// It returns immediately with the job ID. Concurrent submissions for the same
// ticker are allowed; their index writes resolve last-write-wins.
func (o *Orchestrator) Submit(ticker string) (string, error) {
	ticker = strings.ToUpper(strings.TrimSpace(ticker))
	if ticker == "" {
		return "", fmt.Errorf("empty ticker")
	}

	job := &Job{
		ID:        uuid.New().String()[:8], // Short ID for convenience
		Ticker:    ticker,
		State:     StatePending,
		CreatedAt: time.Now(),
	}

	o.mu.Lock()
	o.jobs[job.ID] = job
	o.order = append(o.order, job.ID)
	o.evictLocked()
	o.mu.Unlock()

	slog.Info("job submitted", "job_id", job.ID, "ticker", ticker)
	go o.run(job)

	return job.ID, nil
}

// Status returns a snapshot of the job, or fault.ErrNotFound for unknown IDs.
func (o *Orchestrator) Status(jobID string) (Job, error) {
	o.mu.RLock()
	job, ok := o.jobs[jobID]
	o.mu.RUnlock()
	if !ok {
		return Job{}, fmt.Errorf("job %s: %w", jobID, fault.ErrNotFound)
	}
	return job.Snapshot(), nil
}

// Result returns the artifact path of a completed job. It fails with
// fault.ErrNotReady while the job is still running and with the job's own
// error once it has failed.
func (o *Orchestrator) Result(jobID string) (string, error) {
	snap, err := o.Status(jobID)
	if err != nil {
		return "", err
	}

	switch snap.State {
	case StateComplete:
		return snap.Artifact, nil
	case StateFailed:
		return "", snap.Err
	default:
		return "", fmt.Errorf("job %s is %s: %w", jobID, snap.State, fault.ErrNotReady)
	}
}

// Jobs returns snapshots of all tracked jobs, most recent first.
func (o *Orchestrator) Jobs() []Job {
	o.mu.RLock()
	defer o.mu.RUnlock()

	jobs := make([]Job, 0, len(o.jobs))
	for _, job := range o.jobs {
		jobs = append(jobs, job.Snapshot())
	}

	slices.SortFunc(jobs, func(a, b Job) int {
		return b.CreatedAt.Compare(a.CreatedAt)
	})

	return jobs
}

// evictLocked drops the oldest terminal jobs until the registry fits the
// bound again. Callers hold o.mu.
func (o *Orchestrator) evictLocked() {
	if len(o.jobs) <= o.maxJobs {
		return
	}

	kept := o.order[:0]
	for _, id := range o.order {
		job, ok := o.jobs[id]
		if !ok {
			continue
		}
		if len(o.jobs) > o.maxJobs && job.Snapshot().State.Terminal() {
			delete(o.jobs, id)
			continue
		}
		kept = append(kept, id)
	}
	o.order = kept
}

// run drives a job through its stages. Each stage failure is mapped to its
// taxonomy reason; a persistence failure during ingest is logged and does not
// fail the job.
func (o *Orchestrator) run(job *Job) {
	defer func() {
		if r := recover(); r != nil {
			slog.Error("job goroutine panicked", "job_id", job.ID, "panic", r)
			o.fail(job, stageSentinel(job), fmt.Errorf("internal panic: %v", r))
		}
	}()

	ctx := context.Background()

	job.setState(StateIngesting)

	docs, err := o.fetchAndChunk(ctx, job.Ticker)
	if err != nil {
		o.fail(job, fault.ErrIngestionFailed, err)
		return
	}

	version, err := o.ingest(ctx, job.Ticker, docs)
	if err != nil {
		if errors.Is(err, fault.ErrPersistenceFailed) {
			// The fresh index is live locally; the job proceeds on it and a
			// later ingestion will restore durability.
			slog.Warn("index not persisted remotely, continuing",
				"job_id", job.ID, "ticker", job.Ticker, "version", version, "error", err)
		} else {
			o.fail(job, fault.ErrIngestionFailed, err)
			return
		}
	}
	slog.Info("job context ingested", "job_id", job.ID, "ticker", job.Ticker, "version", version, "documents", len(docs))

	job.setState(StateAnalyzing)

	result, err := o.analyze(ctx, job.Ticker)
	if err != nil {
		o.fail(job, fault.ErrAnalysisFailed, err)
		return
	}

	artifact, err := o.render(ctx, result)
	if err != nil {
		o.fail(job, fault.ErrReportFailed, err)
		return
	}

	o.complete(job, artifact)
}

func (o *Orchestrator) fetchAndChunk(ctx context.Context, ticker string) ([]models.Document, error) {
	ctx, cancel := o.bound(ctx, o.timeouts.Fetch)
	defer cancel()

	raw, err := o.fetcher.FetchContext(ctx, ticker)
	if err != nil {
		return nil, fmt.Errorf("fetch context: %w", err)
	}
	if len(raw) == 0 {
		return nil, fmt.Errorf("no context documents for %s", ticker)
	}

	docs := BuildDocuments(ticker, raw, o.chunking)
	if len(docs) == 0 {
		return nil, fmt.Errorf("context for %s was empty after chunking", ticker)
	}
	return docs, nil
}

// BuildDocuments chunks each scraped document and assigns stable ascending
// IDs, which also break retrieval score ties deterministically.
func BuildDocuments(ticker string, raw []models.Document, cfg chunk.Config) []models.Document {
	var docs []models.Document
	seq := 0
	for _, d := range raw {
		for _, piece := range chunk.Split(d.Text, cfg) {
			docs = append(docs, models.Document{
				ID:        fmt.Sprintf("%s-%04d", ticker, seq),
				Text:      piece,
				Source:    d.Source,
				FetchedAt: d.FetchedAt,
			})
			seq++
		}
	}
	return docs
}

func (o *Orchestrator) ingest(ctx context.Context, ticker string, docs []models.Document) (int64, error) {
	ctx, cancel := o.bound(ctx, o.timeouts.Ingest)
	defer cancel()
	return o.indexer.Ingest(ctx, ticker, docs)
}

func (o *Orchestrator) analyze(ctx context.Context, ticker string) (*models.SynthesisResult, error) {
	ctx, cancel := o.bound(ctx, o.timeouts.Analyze)
	defer cancel()
	return o.analyzer.Run(ctx, ticker)
}

func (o *Orchestrator) render(ctx context.Context, result *models.SynthesisResult) (string, error) {
	ctx, cancel := o.bound(ctx, o.timeouts.Render)
	defer cancel()
	return o.renderer.Render(ctx, result)
}

func (o *Orchestrator) bound(ctx context.Context, d time.Duration) (context.Context, context.CancelFunc) {
	if d <= 0 {
		return context.WithCancel(ctx)
	}
	return context.WithTimeout(ctx, d)
}

func (o *Orchestrator) complete(job *Job, artifact string) {
	job.mu.Lock()
	job.State = StateComplete
	job.Artifact = artifact
	now := time.Now()
	job.CompletedAt = &now
	job.mu.Unlock()

	slog.Info("job completed", "job_id", job.ID, "ticker", job.Ticker, "artifact", artifact)
}

func (o *Orchestrator) fail(job *Job, sentinel error, err error) {
	job.mu.Lock()
	job.State = StateFailed
	job.Err = fmt.Errorf("%w: %v", sentinel, err)
	now := time.Now()
	job.CompletedAt = &now
	job.mu.Unlock()

	slog.Error("job failed", "job_id", job.ID, "ticker", job.Ticker, "reason", fault.Reason(sentinel), "error", err)
}

// stageSentinel maps the job's current state to the failure sentinel used
// when a panic aborts it.
func stageSentinel(job *Job) error {
	switch job.Snapshot().State {
	case StateAnalyzing:
		return fault.ErrAnalysisFailed
	default:
		return fault.ErrIngestionFailed
	}
}
