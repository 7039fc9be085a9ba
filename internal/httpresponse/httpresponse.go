// Package httpresponse renders JSON bodies and the uniform error body used
// by every HTTP handler.
package httpresponse

import (
	"encoding/json"
	"errors"
	"net/http"
	"time"

	"github.com/patric-chuzhbe/jobtracker/internal/apperror"
	"github.com/patric-chuzhbe/jobtracker/internal/logger"
	"github.com/patric-chuzhbe/jobtracker/internal/models"
	"github.com/patric-chuzhbe/jobtracker/internal/objectstorage"
)

var now = time.Now

// WriteJSON encodes v as the response body with the given status code.
func WriteJSON(res http.ResponseWriter, status int, v any) {
	res.Header().Set("Content-Type", "application/json")
	res.WriteHeader(status)

	if err := json.NewEncoder(res).Encode(v); err != nil {
		logger.Log.Debugln("error while encoding response", "err", err)
	}
}

// WriteError renders err as an ErrorResponse. Domain failures keep their
// message and status, anything else becomes a 500 without details.
func WriteError(res http.ResponseWriter, err error) {
	if errors.Is(err, objectstorage.ErrNotFound) {
		WriteErrorStatus(res, http.StatusNotFound, "File not found")
		return
	}

	status := apperror.KindOf(err).HTTPStatus()
	if status == http.StatusInternalServerError {
		logger.Log.Errorw("request failed", "err", err)
	}

	WriteErrorStatus(res, status, apperror.MessageOf(err))
}

// WriteErrorStatus renders an ErrorResponse with an explicit status.
func WriteErrorStatus(res http.ResponseWriter, status int, message string) {
	WriteJSON(res, status, models.ErrorResponse{
		Message:   message,
		Status:    status,
		Timestamp: now().UTC(),
	})
}
