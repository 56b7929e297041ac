package vectorstore

import (
	"bytes"
	"encoding/gob"
	"fmt"

	"github.com/finsight-ai/finsight/internal/models"
)

// The remote blob format is a gob-encoded TickerIndex. Versioning lives in
// the index itself; the key layout (<prefix><TICKER>.gob) is the contract.

func encodeIndex(idx *models.TickerIndex) ([]byte, error) {
	var buf bytes.Buffer
	if err := gob.NewEncoder(&buf).Encode(idx); err != nil {
		return nil, fmt.Errorf("gob encode: %w", err)
	}
	return buf.Bytes(), nil
}

func decodeIndex(data []byte) (*models.TickerIndex, error) {
	var idx models.TickerIndex
	if err := gob.NewDecoder(bytes.NewReader(data)).Decode(&idx); err != nil {
		return nil, fmt.Errorf("gob decode: %w", err)
	}
	if err := idx.Validate(); err != nil {
		return nil, fmt.Errorf("corrupt index: %w", err)
	}
	return &idx, nil
}
