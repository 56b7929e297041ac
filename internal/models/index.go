package models

import (
	"fmt"
	"time"
)

// IndexedVector links one embedding to the document it was computed from.
type IndexedVector struct {
	Embedding []float32 `json:"embedding"`
	DocID     string    `json:"doc_id"`
}

// TickerIndex is one ticker's retrievable knowledge base. It is replaced
// wholesale on every re-ingestion and treated as immutable once published,
// so concurrent readers can hold a reference without locking.
type TickerIndex struct {
	Ticker    string              `json:"ticker"`
	Version   int64               `json:"version"`
	Vectors   []IndexedVector     `json:"vectors"`
	Documents map[string]Document `json:"documents"`
	BuiltAt   time.Time           `json:"built_at"`
}

// Validate checks the vectors/documents cross-reference invariant: every
// vector points at an existing document and every document is referenced.
func (idx *TickerIndex) Validate() error {
	referenced := make(map[string]bool, len(idx.Vectors))
	for i, v := range idx.Vectors {
		if _, ok := idx.Documents[v.DocID]; !ok {
			return fmt.Errorf("vector %d references unknown document %q", i, v.DocID)
		}
		referenced[v.DocID] = true
	}
	for id := range idx.Documents {
		if !referenced[id] {
			return fmt.Errorf("document %q has no vector", id)
		}
	}
	return nil
}

// Len returns the number of indexed documents.
func (idx *TickerIndex) Len() int {
	if idx == nil {
		return 0
	}
	return len(idx.Vectors)
}
