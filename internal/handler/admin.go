package handler

import (
	"crypto/sha256"
	"encoding/hex"
	"io"
	"log/slog"
	"net/http"

	"github.com/vidyavistaar/portal/internal/model"
	"github.com/vidyavistaar/portal/internal/store"
)

type uploadResponse struct {
	Imported  bool   `json:"imported"`
	Duplicate bool   `json:"duplicate,omitempty"`
	Filename  string `json:"filename"`
	Quizzes   int    `json:"quizzes"`
	Subjects  int    `json:"subjects"`
	Users     int    `json:"users"`
}

// handleUploadFixtures imports an uploaded fixture file. A file whose content
// was already imported under the same name is skipped.
func (h *Handler) handleUploadFixtures(w http.ResponseWriter, r *http.Request) {
	if err := r.ParseMultipartForm(10 << 20); err != nil {
		writeError(w, r, model.NewValidationError("fixtures_file", "file too large"))
		return
	}

	file, header, err := r.FormFile("fixtures_file")
	if err != nil {
		writeError(w, r, model.NewValidationError("fixtures_file", "no file uploaded"))
		return
	}
	defer file.Close()

	data, err := io.ReadAll(file)
	if err != nil {
		writeError(w, r, err)
		return
	}

	hashBytes := sha256.Sum256(data)
	hash := hex.EncodeToString(hashBytes[:])

	storedHash, err := h.store.GetImportedFileHash(r.Context(), header.Filename)
	if err != nil {
		slog.Error("failed to check import status", "error", err)
		writeError(w, r, err)
		return
	}
	if storedHash == hash {
		writeJSON(w, http.StatusOK, uploadResponse{Duplicate: true, Filename: header.Filename})
		return
	}

	fx, err := store.ParseFixtures(data)
	if err != nil {
		writeError(w, r, model.NewValidationError("fixtures_file", err.Error()))
		return
	}
	if err := h.store.ImportFixtures(r.Context(), fx); err != nil {
		writeError(w, r, err)
		return
	}
	for _, q := range fx.Quizzes {
		if err := h.quizzes.Invalidate(r.Context(), q.ID); err != nil {
			slog.Warn("failed to invalidate cached quiz", "quiz_id", q.ID, "error", err)
		}
	}
	if err := h.store.SetImportedFileHash(r.Context(), header.Filename, hash); err != nil {
		slog.Error("failed to record import", "error", err)
	}

	slog.Info("uploaded fixtures via admin", "filename", header.Filename, "quizzes", len(fx.Quizzes))
	writeJSON(w, http.StatusOK, uploadResponse{
		Imported: true,
		Filename: header.Filename,
		Quizzes:  len(fx.Quizzes),
		Subjects: len(fx.Subjects),
		Users:    len(fx.Users),
	})
}
