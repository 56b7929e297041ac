// Package analysis runs the analyst stages and the synthesis stage that
// together produce one investment recommendation.
package analysis

import (
	"context"

	"github.com/finsight-ai/finsight/internal/models"
)

// Querier retrieves topic-relevant documents from a ticker's index. It is
// satisfied by the vector store manager.
type Querier interface {
	Query(ctx context.Context, ticker, topic string, k int) ([]models.ScoredDocument, error)
}

// Agent is one analyst stage. The set of agents is closed: fundamental,
// technical and macro. Produce never returns an error; a failed stage is
// reported through the result's Succeeded flag so the pipeline can
// aggregate partial outcomes.
type Agent interface {
	Kind() models.AnalysisKind
	Produce(ctx context.Context, ticker string) models.AnalysisResult
}

// failed builds the stage result for a collaborator failure.
func failed(kind models.AnalysisKind, reason string) models.AnalysisResult {
	return models.AnalysisResult{
		Kind:          kind,
		Succeeded:     false,
		FailureReason: reason,
	}
}
