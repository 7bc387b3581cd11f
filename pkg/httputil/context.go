package httputil

import (
	"encoding/json"
	"net/http"

	"go.uber.org/zap"
)

type ContextKey string

const (
	RequestIDCtxKey ContextKey = "RequestID"
	LogEntryCtxKey  ContextKey = "LogEntry"
)

// RequestID returns the request id set by the RequestID middleware, or "".
func RequestID(r *http.Request) string {
	id, _ := r.Context().Value(RequestIDCtxKey).(string)
	return id
}

// Logger returns the request-scoped logger set by the logger middleware,
// tagged with the request id. It never returns nil.
func Logger(r *http.Request) *zap.Logger {
	logger, ok := r.Context().Value(LogEntryCtxKey).(*zap.Logger)
	if !ok || logger == nil {
		return zap.NewNop()
	}
	if id := RequestID(r); id != "" {
		return logger.With(zap.String("req_id", id))
	}
	return logger
}

// JSON writes a JSON response with the given status code and data.
func JSON(w http.ResponseWriter, statusCode int, data any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(statusCode)
	if err := json.NewEncoder(w).Encode(data); err != nil {
		http.Error(w, "Failed to encode response", http.StatusInternalServerError)
	}
}

// ErrorResponse is the body of every failed request.
type ErrorResponse struct {
	Error string `json:"error"`
}

// MessageResponse is the body of every successful mutation.
type MessageResponse struct {
	Message string `json:"message"`
}

// Error sends a JSON {"error": message} body.
func Error(w http.ResponseWriter, statusCode int, message string) {
	JSON(w, statusCode, ErrorResponse{Error: message})
}

// Message sends a JSON {"message": message} body.
func Message(w http.ResponseWriter, statusCode int, message string) {
	JSON(w, statusCode, MessageResponse{Message: message})
}
