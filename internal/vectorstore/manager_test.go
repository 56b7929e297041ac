package vectorstore

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/finsight-ai/finsight/internal/blobstore"
	"github.com/finsight-ai/finsight/internal/fault"
	"github.com/finsight-ai/finsight/internal/models"
	"github.com/finsight-ai/finsight/internal/rag"
)

// fakeEmbedder produces deterministic vectors and can block to simulate a
// slow backend.
type fakeEmbedder struct {
	block chan struct{} // when set, EmbedBatch waits until closed
}

func (f *fakeEmbedder) Embed(ctx context.Context, text string) ([]float32, error) {
	return []float32{1, 0}, nil
}

func (f *fakeEmbedder) EmbedBatch(ctx context.Context, texts []string) ([][]float32, error) {
	if f.block != nil {
		<-f.block
	}
	out := make([][]float32, len(texts))
	for i := range texts {
		out[i] = []float32{1, 0}
	}
	return out, nil
}

func (f *fakeEmbedder) Model() string  { return "fake" }
func (f *fakeEmbedder) Dimension() int { return 2 }

// failingStore rejects every Put but delegates Get to a Memory store.
type failingStore struct {
	*blobstore.Memory
}

func (s *failingStore) Put(ctx context.Context, key string, data []byte) error {
	return errors.New("bucket unreachable")
}

func newTestManager(store blobstore.Store) *Manager {
	embedder := &fakeEmbedder{}
	return NewManager(embedder, store, rag.NewRetriever(embedder, nil), nil, "indexes/")
}

func docs(ids ...string) []models.Document {
	out := make([]models.Document, len(ids))
	for i, id := range ids {
		out[i] = models.Document{ID: id, Text: "text " + id, FetchedAt: time.Now()}
	}
	return out
}

func TestIngest_VersionIncrements(t *testing.T) {
	m := newTestManager(blobstore.NewMemory())
	ctx := context.Background()

	v1, err := m.Ingest(ctx, "AAPL", docs("a", "b"))
	if err != nil {
		t.Fatalf("first Ingest() error = %v", err)
	}
	if v1 != 1 {
		t.Errorf("first Ingest() version = %d, want 1", v1)
	}

	v2, err := m.Ingest(ctx, "AAPL", docs("c"))
	if err != nil {
		t.Fatalf("second Ingest() error = %v", err)
	}
	if v2 != 2 {
		t.Errorf("second Ingest() version = %d, want 2", v2)
	}

	// The new index fully replaces the old one.
	idx, err := m.Load(ctx, "AAPL")
	if err != nil {
		t.Fatalf("Load() error = %v", err)
	}
	if idx.Len() != 1 {
		t.Errorf("index has %d documents after re-ingest, want 1", idx.Len())
	}
	if _, ok := idx.Documents["a"]; ok {
		t.Error("old document survived re-ingestion")
	}
}

func TestIngest_TickerNormalization(t *testing.T) {
	m := newTestManager(blobstore.NewMemory())
	ctx := context.Background()

	if _, err := m.Ingest(ctx, "  aapl ", docs("a")); err != nil {
		t.Fatalf("Ingest() error = %v", err)
	}

	idx, err := m.Load(ctx, "AAPL")
	if err != nil {
		t.Fatalf("Load(normalized) error = %v", err)
	}
	if idx.Ticker != "AAPL" {
		t.Errorf("index ticker = %q, want AAPL", idx.Ticker)
	}
}

func TestIngest_ConcurrentSameTicker(t *testing.T) {
	m := newTestManager(blobstore.NewMemory())
	ctx := context.Background()

	block := make(chan struct{})
	m.embedder = &fakeEmbedder{block: block}

	var wg sync.WaitGroup
	wg.Add(1)
	firstStarted := make(chan struct{})
	var firstErr error
	go func() {
		defer wg.Done()
		close(firstStarted)
		_, firstErr = m.Ingest(ctx, "AAPL", docs("a"))
	}()

	<-firstStarted
	// Wait until the first ingest is inside EmbedBatch.
	waitFor(t, func() bool {
		m.mu.RLock()
		defer m.mu.RUnlock()
		_, busy := m.inflight["AAPL"]
		return busy
	})

	_, err := m.Ingest(ctx, "AAPL", docs("b"))
	if !errors.Is(err, fault.ErrAlreadyInProgress) {
		t.Errorf("concurrent Ingest() error = %v, want ErrAlreadyInProgress", err)
	}

	close(block)
	wg.Wait()
	if firstErr != nil {
		t.Fatalf("first Ingest() error = %v", firstErr)
	}

	// After the first finishes the ticker accepts ingests again.
	if _, err := m.Ingest(ctx, "AAPL", docs("c")); err != nil {
		t.Errorf("Ingest() after completion error = %v", err)
	}
}

func TestLoad_PullOnMissThenCache(t *testing.T) {
	store := blobstore.NewMemory()
	ctx := context.Background()

	// One manager populates the remote store.
	writer := newTestManager(store)
	if _, err := writer.Ingest(ctx, "AAPL", docs("a", "b")); err != nil {
		t.Fatalf("Ingest() error = %v", err)
	}

	// A fresh manager simulates a restarted process with a cold cache.
	reader := newTestManager(store)
	getsBefore := store.GetCalls()

	idx, err := reader.Load(ctx, "AAPL")
	if err != nil {
		t.Fatalf("Load() error = %v", err)
	}
	if idx.Version != 1 || idx.Len() != 2 {
		t.Errorf("Load() = version %d with %d documents, want version 1 with 2", idx.Version, idx.Len())
	}
	if store.GetCalls() != getsBefore+1 {
		t.Errorf("Load() made %d remote gets, want 1", store.GetCalls()-getsBefore)
	}

	// Subsequent loads are served from the local cache.
	if _, err := reader.Load(ctx, "AAPL"); err != nil {
		t.Fatalf("second Load() error = %v", err)
	}
	if store.GetCalls() != getsBefore+1 {
		t.Errorf("cached Load() hit the remote store again (%d gets)", store.GetCalls()-getsBefore)
	}
}

func TestLoad_UnknownTicker(t *testing.T) {
	m := newTestManager(blobstore.NewMemory())

	_, err := m.Load(context.Background(), "ZZZZ")
	if !errors.Is(err, fault.ErrNotFound) {
		t.Errorf("Load(unknown) error = %v, want ErrNotFound", err)
	}
}

func TestIngest_VersionContinuesAcrossRestart(t *testing.T) {
	store := blobstore.NewMemory()
	ctx := context.Background()

	writer := newTestManager(store)
	if _, err := writer.Ingest(ctx, "AAPL", docs("a")); err != nil {
		t.Fatalf("Ingest() error = %v", err)
	}
	if _, err := writer.Ingest(ctx, "AAPL", docs("b")); err != nil {
		t.Fatalf("Ingest() error = %v", err)
	}

	// A restarted process pulls the remote copy and continues the sequence.
	restarted := newTestManager(store)
	v, err := restarted.Ingest(ctx, "AAPL", docs("c"))
	if err != nil {
		t.Fatalf("Ingest() after restart error = %v", err)
	}
	if v != 3 {
		t.Errorf("Ingest() after restart version = %d, want 3", v)
	}
}

func TestIngest_PersistenceFailureKeepsLocalIndex(t *testing.T) {
	m := newTestManager(&failingStore{Memory: blobstore.NewMemory()})
	ctx := context.Background()

	version, err := m.Ingest(ctx, "AAPL", docs("a", "b"))
	if !errors.Is(err, fault.ErrPersistenceFailed) {
		t.Fatalf("Ingest() error = %v, want ErrPersistenceFailed", err)
	}
	if version != 1 {
		t.Errorf("Ingest() version = %d, want 1 despite persistence failure", version)
	}

	// The local index is live and queryable.
	idx, err := m.Load(ctx, "AAPL")
	if err != nil {
		t.Fatalf("Load() after persistence failure error = %v", err)
	}
	if idx.Version != 1 || idx.Len() != 2 {
		t.Errorf("local index = version %d with %d documents, want version 1 with 2", idx.Version, idx.Len())
	}

	scored, err := m.Query(ctx, "AAPL", "anything", 5)
	if err != nil {
		t.Fatalf("Query() after persistence failure error = %v", err)
	}
	if len(scored) != 2 {
		t.Errorf("Query() got %d documents, want 2", len(scored))
	}
}

func TestQuery_UnknownTicker(t *testing.T) {
	m := newTestManager(blobstore.NewMemory())

	_, err := m.Query(context.Background(), "ZZZZ", "topic", 5)
	if !errors.Is(err, fault.ErrNotFound) {
		t.Errorf("Query(unknown) error = %v, want ErrNotFound", err)
	}
}

func TestVersion(t *testing.T) {
	m := newTestManager(blobstore.NewMemory())

	if v := m.Version("AAPL"); v != 0 {
		t.Errorf("Version() before ingest = %d, want 0", v)
	}

	if _, err := m.Ingest(context.Background(), "AAPL", docs("a")); err != nil {
		t.Fatalf("Ingest() error = %v", err)
	}
	if v := m.Version("aapl"); v != 1 {
		t.Errorf("Version() after ingest = %d, want 1", v)
	}
}

func TestCodec_RoundTrip(t *testing.T) {
	idx := &models.TickerIndex{
		Ticker:  "AAPL",
		Version: 7,
		Vectors: []models.IndexedVector{{Embedding: []float32{0.5, -0.25}, DocID: "a"}},
		Documents: map[string]models.Document{
			"a": {ID: "a", Text: "hello", Source: "profile"},
		},
		BuiltAt: time.Now().UTC().Truncate(time.Second),
	}

	data, err := encodeIndex(idx)
	if err != nil {
		t.Fatalf("encodeIndex() error = %v", err)
	}

	got, err := decodeIndex(data)
	if err != nil {
		t.Fatalf("decodeIndex() error = %v", err)
	}
	if got.Ticker != idx.Ticker || got.Version != idx.Version || got.Len() != idx.Len() {
		t.Errorf("decodeIndex() = %s v%d (%d docs), want %s v%d (%d docs)",
			got.Ticker, got.Version, got.Len(), idx.Ticker, idx.Version, idx.Len())
	}
	if got.Documents["a"].Text != "hello" {
		t.Errorf("decodeIndex() lost document text: %q", got.Documents["a"].Text)
	}
}

func TestDecodeIndex_Garbage(t *testing.T) {
	if _, err := decodeIndex([]byte("not a gob stream")); err == nil {
		t.Error("decodeIndex(garbage) error = nil, want error")
	}
}

func waitFor(t *testing.T, cond func() bool) {
	t.Helper()
	deadline := time.Now().Add(2 * time.Second)
	for time.Now().Before(deadline) {
		if cond() {
			return
		}
		time.Sleep(5 * time.Millisecond)
	}
	t.Fatal("condition not met within deadline")
}
