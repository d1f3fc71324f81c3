package assistant

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/vidyavistaar/portal/internal/llm"
	"github.com/vidyavistaar/portal/internal/llm/prompts"
	"github.com/vidyavistaar/portal/internal/model"
)

// ReportOptions controls BuildMonthlyReport.
type ReportOptions struct {
	Language model.Language
	Model    string
	// Gen runs the analysis. When nil the report carries only the summary
	// and the digest.
	Gen llm.Generator
	Now time.Time
}

// BuildMonthlyReport aggregates the current performance data. A failed
// analysis call is logged and leaves Analysis empty; only store errors fail
// the report.
func BuildMonthlyReport(ctx context.Context, catalog Catalog, opts ReportOptions) (model.MonthlyReport, error) {
	lang := opts.Language
	if !lang.Valid() {
		lang = model.LanguageEnglish
	}
	snap, err := catalog.ExportPerformance(ctx)
	if err != nil {
		return model.MonthlyReport{}, fmt.Errorf("export performance: %w", err)
	}

	rep := model.MonthlyReport{
		GeneratedAt: opts.Now,
		Language:    lang,
		Summary:     Summarize(snap, lang),
		Digest:      BuildDigest(snap, lang),
	}
	if opts.Gen == nil {
		return rep, nil
	}

	rep.Model = opts.Model
	system, err := prompts.BuildAnalysisPrompt(lang)
	if err != nil {
		return model.MonthlyReport{}, err
	}
	analysis, err := opts.Gen.Generate(ctx, system, rep.Summary)
	if err != nil {
		slog.Warn("monthly analysis failed", "error", err)
		return rep, nil
	}
	rep.Analysis = analysis
	return rep, nil
}
