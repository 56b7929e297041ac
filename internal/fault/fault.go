// Package fault defines the error taxonomy shared by the analysis core.
//
// Sentinel errors are checked with errors.Is() by callers; collaborator
// errors are classified into the taxonomy at the boundary where they occur.
package fault

import (
	"context"
	"errors"
	"fmt"
	"strings"
)

var (
	// ErrNotFound indicates an unknown ticker or job.
	ErrNotFound = errors.New("not found")

	// ErrAlreadyInProgress indicates a concurrent ingestion for the same ticker.
	// The caller should retry after the in-flight ingestion finishes.
	ErrAlreadyInProgress = errors.New("ingestion already in progress")

	// ErrPersistenceFailed indicates the local index build succeeded but the
	// remote push did not. The local index remains usable; durability is not
	// guaranteed until a later ingestion pushes successfully.
	ErrPersistenceFailed = errors.New("remote persistence failed")

	// ErrIngestionFailed indicates the ingestion stage of a job failed.
	ErrIngestionFailed = errors.New("ingestion failed")

	// ErrAllStagesFailed indicates every analyst stage of a pipeline run failed.
	ErrAllStagesFailed = errors.New("all analysis stages failed")

	// ErrAnalysisFailed indicates the analysis stage of a job failed,
	// either because all analyst stages failed or synthesis did not produce
	// a recommendation.
	ErrAnalysisFailed = errors.New("analysis failed")

	// ErrReportFailed indicates the report sink could not render the artifact.
	ErrReportFailed = errors.New("report generation failed")

	// ErrNotReady indicates a job result was requested before the job completed.
	ErrNotReady = errors.New("result not ready")

	// Collaborator-level errors, wrapped into the above before surfacing.
	ErrUnavailable = errors.New("collaborator unavailable")
	ErrRateLimited = errors.New("rate limited")
	ErrTimeout     = errors.New("call timed out")
)

// Classify wraps a collaborator error with the matching taxonomy sentinel.
// Errors already carrying a sentinel pass through unchanged.
func Classify(err error) error {
	if err == nil {
		return nil
	}

	for _, sentinel := range []error{
		ErrNotFound, ErrAlreadyInProgress, ErrPersistenceFailed,
		ErrIngestionFailed, ErrAllStagesFailed, ErrAnalysisFailed,
		ErrReportFailed, ErrNotReady, ErrUnavailable, ErrRateLimited,
		ErrTimeout,
	} {
		if errors.Is(err, sentinel) {
			return err
		}
	}

	if errors.Is(err, context.DeadlineExceeded) {
		return fmt.Errorf("%w: %v", ErrTimeout, err)
	}

	msg := strings.ToLower(err.Error())
	switch {
	case strings.Contains(msg, "rate limit") || strings.Contains(msg, "429") || strings.Contains(msg, "too many requests"):
		return fmt.Errorf("%w: %v", ErrRateLimited, err)
	case strings.Contains(msg, "not found") || strings.Contains(msg, "404"):
		return fmt.Errorf("%w: %v", ErrNotFound, err)
	default:
		return fmt.Errorf("%w: %v", ErrUnavailable, err)
	}
}

// Reason returns a short machine-readable label for the first taxonomy
// sentinel found in the error chain, or "unknown" when none matches.
func Reason(err error) string {
	switch {
	case err == nil:
		return ""
	case errors.Is(err, ErrIngestionFailed):
		return "ingestion_failed"
	case errors.Is(err, ErrAllStagesFailed), errors.Is(err, ErrAnalysisFailed):
		return "analysis_failed"
	case errors.Is(err, ErrReportFailed):
		return "report_generation_failed"
	case errors.Is(err, ErrPersistenceFailed):
		return "persistence_failed"
	case errors.Is(err, ErrAlreadyInProgress):
		return "already_in_progress"
	case errors.Is(err, ErrNotFound):
		return "not_found"
	case errors.Is(err, ErrNotReady):
		return "not_ready"
	case errors.Is(err, ErrRateLimited):
		return "rate_limited"
	case errors.Is(err, ErrTimeout):
		return "timeout"
	case errors.Is(err, ErrUnavailable):
		return "unavailable"
	default:
		return "unknown"
	}
}
