package http

import (
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"

	"obras/internal/core"
	"obras/internal/storage"
)

type errorResponse struct {
	Error string `json:"error"`
}

func writeJSON(w http.ResponseWriter, status int, data any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if data == nil {
		return
	}
	if err := json.NewEncoder(w).Encode(data); err != nil {
		slog.Error("Failed to encode response", "error", err)
	}
}

func writeError(w http.ResponseWriter, status int, message string) {
	writeJSON(w, status, errorResponse{Error: message})
}

// writeStorageError maps storage and validation errors to HTTP statuses.
func writeStorageError(w http.ResponseWriter, r *http.Request, err error) {
	switch {
	case errors.Is(err, storage.ErrNotFound):
		writeError(w, http.StatusNotFound, "registro não encontrado")
	case errors.Is(err, storage.ErrDuplicateName):
		writeError(w, http.StatusConflict, "já existe uma secretaria com esse nome")
	case errors.Is(err, storage.ErrProjectNotInDepartment):
		writeError(w, http.StatusUnprocessableEntity, "a obra não pertence à secretaria da medição")
	case isValidationError(err):
		writeError(w, http.StatusUnprocessableEntity, err.Error())
	default:
		slog.ErrorContext(r.Context(), "Internal error", "error", err, "url", r.URL.Path)
		writeError(w, http.StatusInternalServerError, "erro interno")
	}
}

func isValidationError(err error) bool {
	for _, target := range []error{
		core.ErrEmptyName, core.ErrNameLength, core.ErrEmptyDesc, core.ErrDescTooLong,
		core.ErrInvalidAmount, core.ErrNegativeAmount, core.ErrZeroDate,
		core.ErrInvalidPeriod, core.ErrInvalidSource, core.ErrMissingRelation,
	} {
		if errors.Is(err, target) {
			return true
		}
	}
	return false
}

func readJSON(w http.ResponseWriter, r *http.Request, data any) error {
	r.Body = http.MaxBytesReader(w, r.Body, 1<<20)
	dec := json.NewDecoder(r.Body)
	dec.DisallowUnknownFields()
	if err := dec.Decode(data); err != nil {
		writeError(w, http.StatusBadRequest, "corpo da requisição inválido")
		return err
	}
	return nil
}
