package handler

import (
	"errors"
	"log/slog"
	"math"
	"net/http"
	"strconv"

	"github.com/goccy/go-json"

	"github.com/nysc/volunteers/internal/domain"
)

// maxBodyBytes caps request bodies read by DecodeJSON.
const maxBodyBytes = 1 << 20

// Envelope is the response shape shared by every JSON endpoint.
type Envelope struct {
	Success bool                `json:"success"`
	Code    string              `json:"code,omitempty"`
	Message string              `json:"message,omitempty"`
	Data    interface{}         `json:"data,omitempty"`
	Errors  []domain.FieldError `json:"errors,omitempty"`
}

// RespondJSON writes a JSON response with the given status code.
func RespondJSON(w http.ResponseWriter, status int, data interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if data != nil {
		_ = json.NewEncoder(w).Encode(data)
	}
}

// RespondSuccess writes {success:true, message, data}.
func RespondSuccess(w http.ResponseWriter, status int, message string, data interface{}) {
	RespondJSON(w, status, Envelope{Success: true, Message: message, Data: data})
}

// RespondError writes a JSON error response, detecting domain.AppError for status codes.
// Anything else is logged and answered with a generic 500.
func RespondError(w http.ResponseWriter, err error) {
	appErr, ok := domain.AsAppError(err)
	if !ok {
		appErr = domain.ErrInternal("internal server error", err)
	}
	if appErr.Status >= http.StatusInternalServerError {
		slog.Error("request failed", "code", appErr.Code, "message", appErr.Message, "error", appErr.Cause)
	}
	if appErr.Status == http.StatusTooManyRequests && appErr.RetryAfter > 0 {
		w.Header().Set("Retry-After", strconv.Itoa(int(math.Ceil(appErr.RetryAfter.Seconds()))))
	}

	RespondJSON(w, appErr.Status, Envelope{
		Success: false,
		Code:    appErr.Code,
		Message: appErr.Message,
		Errors:  appErr.Details,
	})
}

// DecodeJSON reads and decodes a JSON request body into dst.
func DecodeJSON(r *http.Request, dst interface{}) error {
	body := http.MaxBytesReader(nil, r.Body, maxBodyBytes)
	if err := json.NewDecoder(body).Decode(dst); err != nil {
		var maxErr *http.MaxBytesError
		if errors.As(err, &maxErr) {
			return domain.ErrValidation("request body too large")
		}
		return domain.ErrValidation("invalid request body")
	}
	return nil
}
