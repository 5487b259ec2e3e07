package controllers

import (
	"encoding/json"
	"errors"
	"net/http"

	"github.com/faeln1/go-onebot-guard/internal/app/repositories"
	"github.com/faeln1/go-onebot-guard/internal/app/services"
)

const maxRequestBody = 1 << 20

type errorResponse struct {
	Error string `json:"error"`
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

func writeError(w http.ResponseWriter, status int, err error) {
	writeJSON(w, status, errorResponse{Error: err.Error()})
}

func decodeJSON(w http.ResponseWriter, r *http.Request, v any) error {
	dec := json.NewDecoder(http.MaxBytesReader(w, r.Body, maxRequestBody))
	return dec.Decode(v)
}

// statusFor traduz erros de serviço em códigos HTTP.
func statusFor(err error) int {
	switch {
	case errors.Is(err, services.ErrInvalidUserID),
		errors.Is(err, services.ErrInvalidGroupID),
		errors.Is(err, services.ErrReasonTooLong),
		errors.Is(err, services.ErrWelcomeEmpty),
		errors.Is(err, services.ErrWelcomeTooLong):
		return http.StatusBadRequest
	case errors.Is(err, repositories.ErrBlacklistNotFound),
		errors.Is(err, repositories.ErrWelcomeNotFound):
		return http.StatusNotFound
	case errors.Is(err, repositories.ErrStoreUnavailable):
		return http.StatusServiceUnavailable
	default:
		return http.StatusInternalServerError
	}
}
