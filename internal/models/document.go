// Package models defines the data structures shared across the Finsight core.
package models

import "time"

// Document is one unit of retrievable ticker context.
type Document struct {
	ID        string    `json:"id"`
	Text      string    `json:"text"`
	Source    string    `json:"source"`
	FetchedAt time.Time `json:"fetched_at"`
}

// ScoredDocument pairs a document with its similarity to a query topic.
type ScoredDocument struct {
	Document Document `json:"document"`
	Score    float64  `json:"score"`
}
