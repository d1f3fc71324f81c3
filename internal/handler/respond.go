package handler

import (
	"encoding/json"
	"errors"
	"io"
	"log/slog"
	"net/http"
	"reflect"
	"strings"

	"github.com/go-playground/validator/v10"

	appI18n "github.com/vidyavistaar/portal/internal/i18n"
	"github.com/vidyavistaar/portal/internal/model"
)

const maxBodyBytes = 1 << 20

func newValidator() *validator.Validate {
	v := validator.New()
	// Report JSON field names instead of Go struct names.
	v.RegisterTagNameFunc(func(fld reflect.StructField) string {
		name := strings.SplitN(fld.Tag.Get("json"), ",", 2)[0]
		if name == "-" {
			return ""
		}
		return name
	})
	return v
}

// decode reads a JSON body into dst and validates it.
func (h *Handler) decode(r *http.Request, dst any) error {
	dec := json.NewDecoder(io.LimitReader(r.Body, maxBodyBytes))
	if err := dec.Decode(dst); err != nil {
		return model.NewValidationError("body", "invalid JSON")
	}
	if err := h.validate.Struct(dst); err != nil {
		var verrs validator.ValidationErrors
		if errors.As(err, &verrs) && len(verrs) > 0 {
			fe := verrs[0]
			reason := "failed " + fe.Tag()
			if fe.Param() != "" {
				reason += "=" + fe.Param()
			}
			return model.NewValidationError(fe.Field(), reason)
		}
		return err
	}
	return nil
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		slog.Error("encode response", "error", err)
	}
}

type errorBody struct {
	Error string `json:"error"`
}

// writeError maps err onto a status code and a localized message.
func writeError(w http.ResponseWriter, r *http.Request, err error) {
	status, msg := classify(r, err)
	if status >= http.StatusInternalServerError {
		slog.Error("request failed", "method", r.Method, "path", r.URL.Path, "error", err)
	}
	writeJSON(w, status, errorBody{Error: msg})
}

func tr(r *http.Request, msgID string) string {
	return appI18n.T(r.Context(), msgID)
}

func classify(r *http.Request, err error) (int, string) {
	ctx := r.Context()
	var (
		verr *model.ValidationError
		aerr *model.AuthError
		xerr *model.ExternalServiceError
	)
	switch {
	case errors.As(err, &verr):
		return http.StatusBadRequest, verr.Error()
	case errors.Is(err, model.ErrInvalidStep):
		return http.StatusBadRequest, appI18n.T(ctx, "ErrInvalidStep")
	case errors.As(err, &aerr):
		return http.StatusUnauthorized, appI18n.T(ctx, aerr.Reason)
	case errors.Is(err, model.ErrForbidden):
		return http.StatusForbidden, appI18n.T(ctx, "ErrForbidden")
	case errors.Is(err, model.ErrNotFound):
		return http.StatusNotFound, appI18n.T(ctx, "ErrNotFound")
	case errors.Is(err, model.ErrAlreadyResolved):
		return http.StatusConflict, appI18n.T(ctx, "ErrAlreadyResolved")
	case errors.Is(err, model.ErrBusy):
		return http.StatusConflict, appI18n.T(ctx, "ErrBusy")
	case errors.Is(err, model.ErrAttemptFinished):
		return http.StatusConflict, appI18n.T(ctx, "ErrAttemptFinished")
	case errors.Is(err, model.ErrDeadlineExceeded):
		return http.StatusConflict, appI18n.T(ctx, "ErrDeadlineExceeded")
	case errors.Is(err, model.ErrAlreadyExists):
		return http.StatusConflict, err.Error()
	case errors.Is(err, model.ErrRetryNotAllowed):
		return http.StatusConflict, appI18n.T(ctx, "ErrRetryNotAllowed")
	case errors.As(err, &xerr):
		return http.StatusBadGateway, appI18n.T(ctx, "ErrInternal")
	default:
		return http.StatusInternalServerError, appI18n.T(ctx, "ErrInternal")
	}
}
