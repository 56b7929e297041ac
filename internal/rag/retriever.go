// Package rag implements retrieval over a loaded ticker index: embed the
// query topic, score every indexed vector, return the top-k documents.
package rag

import (
	"context"
	"fmt"
	"log/slog"
	"math"
	"sort"
	"strings"
	"time"

	"github.com/finsight-ai/finsight/internal/embedding"
	"github.com/finsight-ai/finsight/internal/fault"
	"github.com/finsight-ai/finsight/internal/metrics"
	"github.com/finsight-ai/finsight/internal/models"
)

// Retriever is stateless over the index it is given; per-ticker indexes are
// small enough for exact nearest-neighbor search.
type Retriever struct {
	embedder  embedding.Embedder
	collector *metrics.Collector
}

// NewRetriever creates a retriever using the given embedder.
func NewRetriever(embedder embedding.Embedder, collector *metrics.Collector) *Retriever {
	return &Retriever{embedder: embedder, collector: collector}
}

// Retrieve returns the top-k documents most similar to topic, ordered by
// descending cosine similarity with ties broken by ascending document ID.
// An empty index yields an empty result, not an error.
func (r *Retriever) Retrieve(ctx context.Context, idx *models.TickerIndex, topic string, k int) ([]models.ScoredDocument, error) {
	if idx.Len() == 0 {
		return []models.ScoredDocument{}, nil
	}
	if k <= 0 {
		k = 5
	}

	queryVec, err := r.embedder.Embed(ctx, topic)
	if err != nil {
		return nil, fmt.Errorf("embed topic: %w", fault.Classify(err))
	}

	start := time.Now()
	scored := make([]models.ScoredDocument, 0, len(idx.Vectors))
	for _, v := range idx.Vectors {
		doc, ok := idx.Documents[v.DocID]
		if !ok {
			// Validate() guards this at build time; skip rather than fail a read.
			continue
		}
		scored = append(scored, models.ScoredDocument{
			Document: doc,
			Score:    cosine(queryVec, v.Embedding),
		})
	}

	sort.Slice(scored, func(i, j int) bool {
		if scored[i].Score != scored[j].Score {
			return scored[i].Score > scored[j].Score
		}
		return scored[i].Document.ID < scored[j].Document.ID
	})

	if len(scored) > k {
		scored = scored[:k]
	}

	r.collector.RecordTiming(metrics.OpVectorSearch, time.Since(start))
	slog.Debug("retrieval complete", "ticker", idx.Ticker, "topic", topic, "k", k, "candidates", idx.Len())
	return scored, nil
}

// FormatContext joins retrieved documents into a prompt context block.
func FormatContext(docs []models.ScoredDocument) string {
	parts := make([]string, 0, len(docs))
	for _, d := range docs {
		parts = append(parts, d.Document.Text)
	}
	return strings.Join(parts, "\n---\n")
}

// cosine computes cosine similarity between two vectors. Mismatched or
// zero-magnitude vectors score 0.
func cosine(a, b []float32) float64 {
	if len(a) != len(b) || len(a) == 0 {
		return 0
	}
	var dot, normA, normB float64
	for i := range a {
		dot += float64(a[i]) * float64(b[i])
		normA += float64(a[i]) * float64(a[i])
		normB += float64(b[i]) * float64(b[i])
	}
	if normA == 0 || normB == 0 {
		return 0
	}
	return dot / (math.Sqrt(normA) * math.Sqrt(normB))
}
