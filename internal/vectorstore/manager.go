// Package vectorstore owns the ticker → index mapping and keeps the local
// cache consistent with the remote object store: push-on-write, pull-on-miss.
package vectorstore

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"sync"
	"time"

	"github.com/finsight-ai/finsight/internal/blobstore"
	"github.com/finsight-ai/finsight/internal/embedding"
	"github.com/finsight-ai/finsight/internal/fault"
	"github.com/finsight-ai/finsight/internal/metrics"
	"github.com/finsight-ai/finsight/internal/models"
	"github.com/finsight-ai/finsight/internal/rag"
)

// Manager guarantees local/remote index consistency and serializes per-ticker
// mutation. Indexes are swapped atomically under the map lock, so readers see
// either the old or the new complete index, never a partial one.
type Manager struct {
	embedder  embedding.Embedder
	store     blobstore.Store
	retriever *rag.Retriever
	collector *metrics.Collector
	keyPrefix string

	mu       sync.RWMutex
	indexes  map[string]*models.TickerIndex
	inflight map[string]struct{}
}

// NewManager creates a manager backed by the given embedder and object store.
func NewManager(embedder embedding.Embedder, store blobstore.Store, retriever *rag.Retriever, collector *metrics.Collector, keyPrefix string) *Manager {
	return &Manager{
		embedder:  embedder,
		store:     store,
		retriever: retriever,
		collector: collector,
		keyPrefix: keyPrefix,
		indexes:   make(map[string]*models.TickerIndex),
		inflight:  make(map[string]struct{}),
	}
}

func (m *Manager) key(ticker string) string {
	return m.keyPrefix + ticker + ".gob"
}

// Ingest replaces the ticker's index with a freshly built one from the given
// documents. At most one ingest per ticker is in flight; a concurrent call
// returns fault.ErrAlreadyInProgress. On success the new version is returned.
// If the local build succeeds but the remote push fails, the new version is
// returned together with an error wrapping fault.ErrPersistenceFailed and the
// local index stays live.
func (m *Manager) Ingest(ctx context.Context, ticker string, docs []models.Document) (int64, error) {
	ticker = normalize(ticker)
	if len(docs) == 0 {
		return 0, fmt.Errorf("no documents for %s", ticker)
	}

	m.mu.Lock()
	if _, busy := m.inflight[ticker]; busy {
		m.mu.Unlock()
		return 0, fmt.Errorf("ticker %s: %w", ticker, fault.ErrAlreadyInProgress)
	}
	m.inflight[ticker] = struct{}{}
	m.mu.Unlock()

	defer func() {
		m.mu.Lock()
		delete(m.inflight, ticker)
		m.mu.Unlock()
	}()

	// Continue the version sequence from whatever copy exists. A cold cache
	// pulls the remote version so re-ingestion after restart stays monotonic.
	var prevVersion int64
	if prev, err := m.Load(ctx, ticker); err == nil {
		prevVersion = prev.Version
	} else if !errors.Is(err, fault.ErrNotFound) {
		slog.Warn("could not read previous index version", "ticker", ticker, "error", err)
	}

	texts := make([]string, len(docs))
	for i, d := range docs {
		texts[i] = d.Text
	}

	embedStart := time.Now()
	vectors, err := m.embedder.EmbedBatch(ctx, texts)
	m.collector.RecordTiming(metrics.OpEmbedding, time.Since(embedStart))
	if err != nil {
		return 0, fmt.Errorf("embed documents for %s: %w", ticker, fault.Classify(err))
	}

	idx := &models.TickerIndex{
		Ticker:    ticker,
		Version:   prevVersion + 1,
		Vectors:   make([]models.IndexedVector, len(docs)),
		Documents: make(map[string]models.Document, len(docs)),
		BuiltAt:   time.Now().UTC(),
	}
	for i, d := range docs {
		idx.Vectors[i] = models.IndexedVector{Embedding: vectors[i], DocID: d.ID}
		idx.Documents[d.ID] = d
	}
	if err := idx.Validate(); err != nil {
		return 0, fmt.Errorf("build index for %s: %w", ticker, err)
	}

	// Publish locally first: readers must see the new index even when the
	// remote push fails (durability is eventual, availability is not).
	m.mu.Lock()
	m.indexes[ticker] = idx
	m.mu.Unlock()

	slog.Info("index rebuilt", "ticker", ticker, "version", idx.Version, "documents", len(docs))

	data, err := encodeIndex(idx)
	if err != nil {
		return idx.Version, fmt.Errorf("encode index for %s: %w (%v)", ticker, fault.ErrPersistenceFailed, err)
	}

	putStart := time.Now()
	err = m.store.Put(ctx, m.key(ticker), data)
	m.collector.RecordTiming(metrics.OpBlobPut, time.Since(putStart))
	if err != nil {
		slog.Warn("remote push failed, local index remains usable", "ticker", ticker, "version", idx.Version, "error", err)
		return idx.Version, fmt.Errorf("persist index for %s: %w (%v)", ticker, fault.ErrPersistenceFailed, err)
	}

	return idx.Version, nil
}

// Load returns the current local index for the ticker, pulling from the
// remote store on a cache miss. Fails with fault.ErrNotFound when neither
// copy exists.
func (m *Manager) Load(ctx context.Context, ticker string) (*models.TickerIndex, error) {
	ticker = normalize(ticker)

	m.mu.RLock()
	idx, ok := m.indexes[ticker]
	m.mu.RUnlock()
	if ok {
		return idx, nil
	}

	getStart := time.Now()
	data, err := m.store.Get(ctx, m.key(ticker))
	m.collector.RecordTiming(metrics.OpBlobGet, time.Since(getStart))
	if err != nil {
		if errors.Is(err, fault.ErrNotFound) {
			return nil, fmt.Errorf("ticker %s: %w", ticker, fault.ErrNotFound)
		}
		return nil, fmt.Errorf("fetch index for %s: %w", ticker, fault.Classify(err))
	}

	idx, err = decodeIndex(data)
	if err != nil {
		return nil, fmt.Errorf("decode index for %s: %w", ticker, err)
	}

	m.mu.Lock()
	// An ingest may have published a newer index while we were fetching;
	// never let a stale remote copy roll the cache back.
	if current, ok := m.indexes[ticker]; ok && current.Version >= idx.Version {
		idx = current
	} else {
		m.indexes[ticker] = idx
	}
	m.mu.Unlock()

	slog.Info("index materialized from remote", "ticker", ticker, "version", idx.Version, "documents", idx.Len())
	return idx, nil
}

// Query retrieves the k documents most relevant to topic from the ticker's
// index, with the same NotFound behavior as Load.
func (m *Manager) Query(ctx context.Context, ticker, topic string, k int) ([]models.ScoredDocument, error) {
	idx, err := m.Load(ctx, ticker)
	if err != nil {
		return nil, err
	}
	return m.retriever.Retrieve(ctx, idx, topic, k)
}

// Version returns the current version for a ticker, 0 when absent locally.
func (m *Manager) Version(ticker string) int64 {
	m.mu.RLock()
	defer m.mu.RUnlock()
	if idx, ok := m.indexes[normalize(ticker)]; ok {
		return idx.Version
	}
	return 0
}

func normalize(ticker string) string {
	return strings.ToUpper(strings.TrimSpace(ticker))
}
