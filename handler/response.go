package handler

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"

	"cmrp/middleware"
	"cmrp/models"
	"cmrp/storage"

	"github.com/sirupsen/logrus"
)

// maxUploadSize bounds multipart bodies (photos and ID proofs)
const maxUploadSize = 10 << 20

// respondWithJSON sends a JSON response
func respondWithJSON(w http.ResponseWriter, statusCode int, payload interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(statusCode)
	json.NewEncoder(w).Encode(payload)
}

// respondWithError sends an error response
func respondWithError(w http.ResponseWriter, statusCode int, errorType, message string) {
	response := models.ErrorResponse{
		Error:   errorType,
		Message: message,
		Code:    statusCode,
	}
	respondWithJSON(w, statusCode, response)
}

// respondWithServiceError maps service error kinds to HTTP codes. Unclassified errors
// are logged and reported as 500 without leaking their text.
func respondWithServiceError(w http.ResponseWriter, logger logrus.FieldLogger, err error) {
	switch {
	case errors.Is(err, models.ErrUnauthenticated):
		respondWithError(w, http.StatusUnauthorized, "Unauthorized", err.Error())
	case errors.Is(err, models.ErrForbidden):
		respondWithError(w, http.StatusForbidden, "Forbidden", err.Error())
	case errors.Is(err, models.ErrNotFound):
		respondWithError(w, http.StatusNotFound, "Not found", err.Error())
	case errors.Is(err, models.ErrConflict):
		respondWithError(w, http.StatusConflict, "Conflict", err.Error())
	case errors.Is(err, models.ErrInvalidArgument):
		respondWithError(w, http.StatusBadRequest, "Validation error", err.Error())
	default:
		logger.WithError(err).Error("request failed")
		respondWithError(w, http.StatusInternalServerError, "Internal error", "Something went wrong")
	}
}

// decodeJSON parses the request body into dst, responding 400 on failure
func decodeJSON(w http.ResponseWriter, r *http.Request, dst interface{}) bool {
	if err := json.NewDecoder(r.Body).Decode(dst); err != nil {
		respondWithError(w, http.StatusBadRequest, "Invalid request", "Failed to parse request body")
		return false
	}
	return true
}

// principal returns the caller set by the auth middleware
func principal(w http.ResponseWriter, r *http.Request) (models.Principal, bool) {
	p, ok := middleware.PrincipalFromContext(r.Context())
	if !ok {
		respondWithError(w, http.StatusUnauthorized, "Unauthorized", "Authentication required")
	}
	return p, ok
}

// formFile reads an optional multipart file into memory. A missing field returns nil.
func formFile(r *http.Request, field string) (*storage.File, error) {
	file, header, err := r.FormFile(field)
	if errors.Is(err, http.ErrMissingFile) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("%w: invalid %s upload", models.ErrInvalidArgument, field)
	}
	defer file.Close()

	data, err := io.ReadAll(io.LimitReader(file, maxUploadSize+1))
	if err != nil {
		return nil, fmt.Errorf("failed to read %s upload: %w", field, err)
	}
	if len(data) > maxUploadSize {
		return nil, fmt.Errorf("%w: %s exceeds %d bytes", models.ErrInvalidArgument, field, maxUploadSize)
	}
	if len(data) == 0 {
		return nil, fmt.Errorf("%w: %s is empty", models.ErrInvalidArgument, field)
	}

	return &storage.File{
		Name:        header.Filename,
		ContentType: header.Header.Get("Content-Type"),
		Data:        data,
	}, nil
}

// parseMultipart parses a multipart body, responding 400 on failure
func parseMultipart(w http.ResponseWriter, r *http.Request) bool {
	r.Body = http.MaxBytesReader(w, r.Body, maxUploadSize+(1<<20))
	if err := r.ParseMultipartForm(maxUploadSize); err != nil {
		respondWithError(w, http.StatusBadRequest, "Invalid request", "Expected a multipart/form-data body")
		return false
	}
	return true
}
