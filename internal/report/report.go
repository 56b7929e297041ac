// Package report renders a synthesis result into a downloadable artifact.
package report

import (
	"context"

	"github.com/finsight-ai/finsight/internal/models"
)

// Sink turns a synthesis result into an artifact and returns a reference
// to it (a file path for the PDF sink). Failures wrap fault.ErrReportFailed.
type Sink interface {
	Render(ctx context.Context, result *models.SynthesisResult) (string, error)
}
