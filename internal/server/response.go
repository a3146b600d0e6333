package server

import (
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"

	"github.com/joseph-ayodele/repair-jobsheets/internal/common"
	"github.com/joseph-ayodele/repair-jobsheets/internal/validate"
)

// envelope is the JSON body of every API response.
type envelope struct {
	Success   bool                `json:"success"`
	Data      any                 `json:"data,omitempty"`
	Message   string              `json:"message,omitempty"`
	Error     string              `json:"error,omitempty"`
	Details   string              `json:"details,omitempty"`
	Errors    validate.Violations `json:"errors,omitempty"`
	RequestID string              `json:"requestId,omitempty"`
}

func writeJSON(w http.ResponseWriter, status int, body any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(body)
}

func writeData(w http.ResponseWriter, status int, data any) {
	writeJSON(w, status, envelope{Success: true, Data: data})
}

func writeMessage(w http.ResponseWriter, status int, msg string) {
	writeJSON(w, status, envelope{Success: true, Message: msg})
}

// errorWriter renders errors. In production, server-side failures carry a
// generic message; otherwise the full error chain is included.
type errorWriter struct {
	production bool
	logger     *slog.Logger
}

func (ew errorWriter) write(w http.ResponseWriter, r *http.Request, err error) {
	status := common.HTTPStatus(err)
	body := envelope{
		Success:   false,
		Error:     clientMessage(err),
		RequestID: common.RequestIDFromContext(r.Context()),
	}
	var ve *validate.ValidationError
	if errors.As(err, &ve) {
		body.Errors = ve.Violations
	}
	if status >= http.StatusInternalServerError {
		ew.logger.Error("http.request.failed",
			"method", r.Method,
			"path", r.URL.Path,
			"status", status,
			"request_id", body.RequestID,
			"error", err,
		)
		if ew.production {
			body.Error = genericMessage(status)
		} else {
			body.Details = err.Error()
		}
	}
	writeJSON(w, status, body)
}

func clientMessage(err error) string {
	var ve *validate.ValidationError
	if errors.As(err, &ve) {
		return ve.Error()
	}
	var ae *common.AppError
	if errors.As(err, &ae) {
		return ae.Message
	}
	return err.Error()
}

func genericMessage(status int) string {
	if status == http.StatusServiceUnavailable {
		return "Service temporarily unavailable"
	}
	return "Internal server error"
}
