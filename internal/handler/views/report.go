// Package views renders the server-side HTML pages. The components live in
// .templ files; run go generate after editing them.
package views

//go:generate templ generate

import (
	"context"
	"strconv"
	"strings"
	"time"

	appI18n "github.com/vidyavistaar/portal/internal/i18n"
	"github.com/vidyavistaar/portal/internal/model"
)

func generatedLine(ctx context.Context, rep model.MonthlyReport) string {
	modelName := rep.Model
	if modelName == "" {
		modelName = "-"
	}
	return appI18n.Td(ctx, "ReportGenerated", map[string]any{
		"Time":  rep.GeneratedAt.Format(time.DateTime),
		"Model": modelName,
	})
}

func lowScoreLine(sq model.ScoredQuiz) string {
	return sq.Subject + " / " + sq.Chapter + ": " + strconv.Itoa(sq.Score) + "%"
}

func weakAreasLine(ctx context.Context, areas []string) string {
	return appI18n.T(ctx, "ReportWeakAreas") + ": " + strings.Join(areas, ", ")
}

func averageLine(ctx context.Context, score int) string {
	return appI18n.T(ctx, "ReportAverage") + ": " + strconv.Itoa(score) + "%"
}
