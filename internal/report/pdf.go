package report

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"time"

	"github.com/finsight-ai/finsight/internal/fault"
	"github.com/finsight-ai/finsight/internal/metrics"
	"github.com/finsight-ai/finsight/internal/models"
	"github.com/go-pdf/fpdf"
)

// PDFSink writes investment reports as PDF files into an output directory.
type PDFSink struct {
	dir       string
	collector *metrics.Collector
}

var _ Sink = (*PDFSink)(nil)

// NewPDFSink creates a sink writing into dir, creating it if needed.
func NewPDFSink(dir string, collector *metrics.Collector) (*PDFSink, error) {
	if err := os.MkdirAll(dir, 0755); err != nil {
		return nil, fmt.Errorf("create report dir: %w", err)
	}
	return &PDFSink{dir: dir, collector: collector}, nil
}

// Render writes the report PDF and returns its path.
func (s *PDFSink) Render(ctx context.Context, result *models.SynthesisResult) (string, error) {
	start := time.Now()
	defer func() { s.collector.RecordTiming(metrics.OpRender, time.Since(start)) }()

	if err := ctx.Err(); err != nil {
		return "", fmt.Errorf("%w: %v", fault.ErrReportFailed, err)
	}

	pdf := fpdf.New("P", "mm", "A4", "")
	pdf.SetMargins(15, 15, 15)
	pdf.SetAutoPageBreak(true, 15)
	pdf.AddPage()

	pdf.SetFont("Helvetica", "B", 16)
	pdf.MultiCell(0, 8, fmt.Sprintf("Investment Analysis Report: %s", result.Ticker), "", "C", false)

	pdf.SetFont("Helvetica", "", 9)
	pdf.MultiCell(0, 5, fmt.Sprintf("Generated on %s", result.GeneratedAt.Format("2006-01-02 15:04:05 MST")), "", "C", false)
	pdf.Ln(6)

	for i, r := range result.Results {
		s.writeSection(pdf, fmt.Sprintf("%d. %s Analysis", i+1, titleCase(string(r.Kind))), r)
	}

	pdf.SetFont("Helvetica", "B", 13)
	pdf.MultiCell(0, 7, "Final Recommendation", "", "L", false)
	pdf.SetFont("Helvetica", "", 10)
	pdf.MultiCell(0, 5, result.Recommendation, "", "L", false)
	pdf.Ln(6)

	pdf.SetFont("Helvetica", "I", 8)
	pdf.MultiCell(0, 4, "Disclaimer: This is an AI-generated report and not financial advice.", "", "L", false)

	name := fmt.Sprintf("investment_report_%s_%s.pdf", result.Ticker, result.GeneratedAt.Format("20060102T150405"))
	path := filepath.Join(s.dir, name)
	if err := pdf.OutputFileAndClose(path); err != nil {
		return "", fmt.Errorf("write %s: %w (%v)", path, fault.ErrReportFailed, err)
	}

	slog.Info("report rendered", "ticker", result.Ticker, "path", path)
	return path, nil
}

func (s *PDFSink) writeSection(pdf *fpdf.Fpdf, heading string, r models.AnalysisResult) {
	pdf.SetFont("Helvetica", "B", 13)
	pdf.MultiCell(0, 7, heading, "", "L", false)

	pdf.SetFont("Helvetica", "", 10)
	if r.Succeeded {
		pdf.MultiCell(0, 5, r.Narrative, "", "L", false)
		if len(r.Supporting) > 0 {
			pdf.SetFont("Helvetica", "I", 8)
			pdf.MultiCell(0, 4, formatSupporting(r.Supporting), "", "L", false)
		}
	} else {
		pdf.SetFont("Helvetica", "I", 10)
		pdf.MultiCell(0, 5, fmt.Sprintf("Section unavailable: %s", r.FailureReason), "", "L", false)
	}
	pdf.Ln(5)
}

func formatSupporting(supporting map[string]any) string {
	keys := make([]string, 0, len(supporting))
	for k := range supporting {
		keys = append(keys, k)
	}
	sort.Strings(keys)

	parts := make([]string, 0, len(keys))
	for _, k := range keys {
		parts = append(parts, fmt.Sprintf("%s=%v", k, supporting[k]))
	}
	return "Data: " + strings.Join(parts, ", ")
}

func titleCase(s string) string {
	if s == "" {
		return s
	}
	return strings.ToUpper(s[:1]) + s[1:]
}
