package handler

import (
	"log/slog"
	"net/http"

	"github.com/vidyavistaar/portal/internal/assistant"
	"github.com/vidyavistaar/portal/internal/handler/views"
	appI18n "github.com/vidyavistaar/portal/internal/i18n"
)

// handleAnalysisReport renders the monthly report page. ?analyze=0 skips the
// generation call and shows only the locally computed digest.
func (h *Handler) handleAnalysisReport(w http.ResponseWriter, r *http.Request) {
	opts := assistant.ReportOptions{
		Language: appI18n.Language(r.Context()),
		Model:    h.config.LLMModel,
		Now:      h.now(),
	}
	if r.URL.Query().Get("analyze") != "0" {
		opts.Gen = h.gen
	}
	rep, err := assistant.BuildMonthlyReport(r.Context(), h.store, opts)
	if err != nil {
		writeError(w, r, err)
		return
	}

	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	if err := views.AnalysisReport(rep).Render(r.Context(), w); err != nil {
		slog.Error("render error", "error", err)
	}
}
