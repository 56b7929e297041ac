package orchestrator

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync/atomic"
	"testing"
	"time"

	"github.com/finsight-ai/finsight/internal/chunk"
	"github.com/finsight-ai/finsight/internal/fault"
	"github.com/finsight-ai/finsight/internal/models"
)

type fakeFetcher struct {
	docs []models.Document
	err  error
}

func (f *fakeFetcher) FetchContext(ctx context.Context, ticker string) ([]models.Document, error) {
	return f.docs, f.err
}

type fakeIndexer struct {
	calls atomic.Int64
	err   error
}

func (f *fakeIndexer) Ingest(ctx context.Context, ticker string, docs []models.Document) (int64, error) {
	f.calls.Add(1)
	if f.err != nil {
		return 0, f.err
	}
	return f.calls.Load(), nil
}

type fakeAnalyzer struct {
	calls atomic.Int64
	err   error
}

func (f *fakeAnalyzer) Run(ctx context.Context, ticker string) (*models.SynthesisResult, error) {
	f.calls.Add(1)
	if f.err != nil {
		return nil, f.err
	}
	return &models.SynthesisResult{
		Ticker:         ticker,
		Recommendation: "HOLD",
		GeneratedAt:    time.Now(),
	}, nil
}

type fakeRenderer struct {
	err error
}

func (f *fakeRenderer) Render(ctx context.Context, result *models.SynthesisResult) (string, error) {
	if f.err != nil {
		return "", f.err
	}
	return "reports/investment_report_" + result.Ticker + ".pdf", nil
}

func contextDocs() []models.Document {
	return []models.Document{
		{Text: "Apple designs and sells consumer electronics.", Source: "profile"},
	}
}

func newTestOrchestrator(fetcher ContextFetcher, indexer Indexer, analyzer Analyzer, renderer Renderer) *Orchestrator {
	return New(fetcher, indexer, analyzer, renderer, Timeouts{}, 16)
}

func awaitTerminal(t *testing.T, o *Orchestrator, jobID string) Job {
	t.Helper()
	deadline := time.Now().Add(2 * time.Second)
	for time.Now().Before(deadline) {
		snap, err := o.Status(jobID)
		if err != nil {
			t.Fatalf("Status() error = %v", err)
		}
		if snap.State.Terminal() {
			return snap
		}
		time.Sleep(2 * time.Millisecond)
	}
	t.Fatal("job did not reach a terminal state")
	return Job{}
}

func TestSubmit_HappyPath(t *testing.T) {
	o := newTestOrchestrator(&fakeFetcher{docs: contextDocs()}, &fakeIndexer{}, &fakeAnalyzer{}, &fakeRenderer{})

	jobID, err := o.Submit("aapl")
	if err != nil {
		t.Fatalf("Submit() error = %v", err)
	}
	if len(jobID) != 8 {
		t.Errorf("Submit() job ID = %q, want 8 characters", jobID)
	}

	snap := awaitTerminal(t, o, jobID)
	if snap.State != StateComplete {
		t.Fatalf("job state = %s, want complete (err: %v)", snap.State, snap.Err)
	}
	if snap.Ticker != "AAPL" {
		t.Errorf("job ticker = %q, want normalized AAPL", snap.Ticker)
	}
	if snap.CompletedAt == nil {
		t.Error("CompletedAt not set on completion")
	}

	artifact, err := o.Result(jobID)
	if err != nil {
		t.Fatalf("Result() error = %v", err)
	}
	if !strings.Contains(artifact, "AAPL") {
		t.Errorf("Result() = %q, want report path for AAPL", artifact)
	}
}

func TestSubmit_EmptyTicker(t *testing.T) {
	o := newTestOrchestrator(&fakeFetcher{}, &fakeIndexer{}, &fakeAnalyzer{}, &fakeRenderer{})

	if _, err := o.Submit("   "); err == nil {
		t.Error("Submit(blank) error = nil, want error")
	}
}

func TestStatus_UnknownJob(t *testing.T) {
	o := newTestOrchestrator(&fakeFetcher{}, &fakeIndexer{}, &fakeAnalyzer{}, &fakeRenderer{})

	_, err := o.Status("nope")
	if !errors.Is(err, fault.ErrNotFound) {
		t.Errorf("Status(unknown) error = %v, want ErrNotFound", err)
	}

	_, err = o.Result("nope")
	if !errors.Is(err, fault.ErrNotFound) {
		t.Errorf("Result(unknown) error = %v, want ErrNotFound", err)
	}
}

func TestResult_NotReadyWhileRunning(t *testing.T) {
	blocked := make(chan struct{})
	analyzer := &blockingAnalyzer{release: blocked}
	o := newTestOrchestrator(&fakeFetcher{docs: contextDocs()}, &fakeIndexer{}, analyzer, &fakeRenderer{})

	jobID, err := o.Submit("AAPL")
	if err != nil {
		t.Fatalf("Submit() error = %v", err)
	}

	// Wait until the job is inside the analyzing stage.
	deadline := time.Now().Add(2 * time.Second)
	for {
		snap, err := o.Status(jobID)
		if err != nil {
			t.Fatalf("Status() error = %v", err)
		}
		if snap.State == StateAnalyzing {
			break
		}
		if time.Now().After(deadline) {
			t.Fatalf("job stuck in %s", snap.State)
		}
		time.Sleep(2 * time.Millisecond)
	}

	_, err = o.Result(jobID)
	if !errors.Is(err, fault.ErrNotReady) {
		t.Errorf("Result(running) error = %v, want ErrNotReady", err)
	}

	close(blocked)
	awaitTerminal(t, o, jobID)
}

type blockingAnalyzer struct {
	release chan struct{}
}

func (a *blockingAnalyzer) Run(ctx context.Context, ticker string) (*models.SynthesisResult, error) {
	<-a.release
	return &models.SynthesisResult{Ticker: ticker, Recommendation: "HOLD"}, nil
}

func TestRun_FetchFailureSkipsLaterStages(t *testing.T) {
	indexer := &fakeIndexer{}
	analyzer := &fakeAnalyzer{}
	o := newTestOrchestrator(&fakeFetcher{err: errors.New("scrape blocked")}, indexer, analyzer, &fakeRenderer{})

	jobID, _ := o.Submit("AAPL")
	snap := awaitTerminal(t, o, jobID)

	if snap.State != StateFailed {
		t.Fatalf("job state = %s, want failed", snap.State)
	}
	if snap.FailureReason() != "ingestion_failed" {
		t.Errorf("FailureReason() = %q, want ingestion_failed", snap.FailureReason())
	}
	if indexer.calls.Load() != 0 {
		t.Errorf("indexer called %d times after fetch failure, want 0", indexer.calls.Load())
	}
	if analyzer.calls.Load() != 0 {
		t.Errorf("analyzer called %d times after fetch failure, want 0", analyzer.calls.Load())
	}

	if _, err := o.Result(jobID); !errors.Is(err, fault.ErrIngestionFailed) {
		t.Errorf("Result(failed) error = %v, want ErrIngestionFailed", err)
	}
}

func TestRun_IngestFailure(t *testing.T) {
	analyzer := &fakeAnalyzer{}
	indexer := &fakeIndexer{err: errors.New("embedder down")}
	o := newTestOrchestrator(&fakeFetcher{docs: contextDocs()}, indexer, analyzer, &fakeRenderer{})

	jobID, _ := o.Submit("AAPL")
	snap := awaitTerminal(t, o, jobID)

	if snap.State != StateFailed || snap.FailureReason() != "ingestion_failed" {
		t.Errorf("job = %s/%s, want failed/ingestion_failed", snap.State, snap.FailureReason())
	}
	if analyzer.calls.Load() != 0 {
		t.Errorf("analyzer ran despite ingest failure")
	}
}

func TestRun_PersistenceFailureDoesNotFailJob(t *testing.T) {
	indexer := &fakeIndexer{err: fmt.Errorf("persist: %w", fault.ErrPersistenceFailed)}
	o := newTestOrchestrator(&fakeFetcher{docs: contextDocs()}, indexer, &fakeAnalyzer{}, &fakeRenderer{})

	jobID, _ := o.Submit("AAPL")
	snap := awaitTerminal(t, o, jobID)

	if snap.State != StateComplete {
		t.Errorf("job state = %s, want complete despite persistence failure (err: %v)", snap.State, snap.Err)
	}
}

func TestRun_AnalysisFailure(t *testing.T) {
	analyzer := &fakeAnalyzer{err: fmt.Errorf("ticker AAPL: %w", fault.ErrAllStagesFailed)}
	o := newTestOrchestrator(&fakeFetcher{docs: contextDocs()}, &fakeIndexer{}, analyzer, &fakeRenderer{})

	jobID, _ := o.Submit("AAPL")
	snap := awaitTerminal(t, o, jobID)

	if snap.State != StateFailed || snap.FailureReason() != "analysis_failed" {
		t.Errorf("job = %s/%s, want failed/analysis_failed", snap.State, snap.FailureReason())
	}
}

func TestRun_RenderFailure(t *testing.T) {
	renderer := &fakeRenderer{err: fmt.Errorf("disk full: %w", fault.ErrReportFailed)}
	o := newTestOrchestrator(&fakeFetcher{docs: contextDocs()}, &fakeIndexer{}, &fakeAnalyzer{}, renderer)

	jobID, _ := o.Submit("AAPL")
	snap := awaitTerminal(t, o, jobID)

	if snap.State != StateFailed || snap.FailureReason() != "report_generation_failed" {
		t.Errorf("job = %s/%s, want failed/report_generation_failed", snap.State, snap.FailureReason())
	}
}

func TestJobs_MostRecentFirst(t *testing.T) {
	o := newTestOrchestrator(&fakeFetcher{docs: contextDocs()}, &fakeIndexer{}, &fakeAnalyzer{}, &fakeRenderer{})

	first, _ := o.Submit("AAPL")
	time.Sleep(5 * time.Millisecond)
	second, _ := o.Submit("MSFT")

	awaitTerminal(t, o, first)
	awaitTerminal(t, o, second)

	all := o.Jobs()
	if len(all) != 2 {
		t.Fatalf("Jobs() = %d jobs, want 2", len(all))
	}
	if all[0].ID != second || all[1].ID != first {
		t.Errorf("Jobs() order = [%s, %s], want most recent first [%s, %s]",
			all[0].ID, all[1].ID, second, first)
	}
}

func TestEviction_DropsOldestTerminalJobs(t *testing.T) {
	o := New(&fakeFetcher{docs: contextDocs()}, &fakeIndexer{}, &fakeAnalyzer{}, &fakeRenderer{}, Timeouts{}, 3)

	var ids []string
	for i := 0; i < 3; i++ {
		id, err := o.Submit("AAPL")
		if err != nil {
			t.Fatalf("Submit() error = %v", err)
		}
		awaitTerminal(t, o, id)
		ids = append(ids, id)
	}

	// The fourth submission pushes the registry over the bound; the oldest
	// terminal job goes.
	extra, err := o.Submit("MSFT")
	if err != nil {
		t.Fatalf("Submit() error = %v", err)
	}
	awaitTerminal(t, o, extra)

	if _, err := o.Status(ids[0]); !errors.Is(err, fault.ErrNotFound) {
		t.Errorf("oldest terminal job still tracked, Status() error = %v", err)
	}
	for _, id := range append(ids[1:], extra) {
		if _, err := o.Status(id); err != nil {
			t.Errorf("job %s unexpectedly evicted: %v", id, err)
		}
	}
}

func TestBuildDocuments(t *testing.T) {
	raw := []models.Document{
		{Text: "First profile paragraph.", Source: "profile"},
		{Text: "A headline.", Source: "news"},
	}

	docs := BuildDocuments("AAPL", raw, chunk.DefaultConfig())

	if len(docs) != 2 {
		t.Fatalf("BuildDocuments() = %d documents, want 2", len(docs))
	}
	if docs[0].ID != "AAPL-0000" || docs[1].ID != "AAPL-0001" {
		t.Errorf("document IDs = %s, %s, want AAPL-0000, AAPL-0001", docs[0].ID, docs[1].ID)
	}
	if docs[0].Source != "profile" || docs[1].Source != "news" {
		t.Errorf("sources not carried through: %s, %s", docs[0].Source, docs[1].Source)
	}
}

func TestBuildDocuments_SkipsEmptyContent(t *testing.T) {
	raw := []models.Document{
		{Text: "   ", Source: "profile"},
		{Text: "Real content.", Source: "news"},
	}

	docs := BuildDocuments("AAPL", raw, chunk.DefaultConfig())

	if len(docs) != 1 {
		t.Fatalf("BuildDocuments() = %d documents, want 1", len(docs))
	}
	if docs[0].ID != "AAPL-0000" {
		t.Errorf("document ID = %s, want AAPL-0000", docs[0].ID)
	}
}
