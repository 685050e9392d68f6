package server

import (
	"encoding/json"
	"net/http"

	"github.com/matzehuels/cursograph/pkg/errors"
	"github.com/matzehuels/cursograph/pkg/graph"
)

// errorBody is the JSON shape of every error response.
type errorBody struct {
	Code    errors.Code `json:"code"`
	Message string      `json:"message"`
	Retry   bool        `json:"retry"`
}

func writeJSON(w http.ResponseWriter, status int, payload any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(payload)
}

func writeBytes(w http.ResponseWriter, contentType string, data []byte) {
	w.Header().Set("Content-Type", contentType)
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write(data)
}

// writeError maps err to a status code and writes an errorBody. Errors
// without a code are reported as INTERNAL_ERROR.
func writeError(w http.ResponseWriter, err error) {
	code := errors.GetCode(err)
	if code == "" {
		code = errors.ErrCodeInternal
	}
	writeJSON(w, statusFor(code), bodyFor(code, err))
}

func bodyFor(code errors.Code, err error) errorBody {
	return errorBody{Code: code, Message: errors.UserMessage(err), Retry: errors.IsRetryable(err)}
}

// statusFor returns the HTTP status for an error code.
func statusFor(code errors.Code) int {
	switch code {
	case errors.ErrCodeInvalidInput, errors.ErrCodeInvalidShape, errors.ErrCodeInvalidKind,
		errors.ErrCodeInvalidFormat, errors.ErrCodeInvalidConfig:
		return http.StatusBadRequest
	case errors.ErrCodeMalformedHierarchy, errors.ErrCodeDuplicateNode:
		return http.StatusUnprocessableEntity
	case errors.ErrCodeNotFound, errors.ErrCodeSelectorNotFound, errors.ErrCodeUnsupported:
		return http.StatusNotFound
	case errors.ErrCodeNetwork, errors.ErrCodeTimeout, errors.ErrCodeUnauthorized:
		return http.StatusBadGateway
	}
	return http.StatusInternalServerError
}

// contentTypes maps render formats to response content types.
var contentTypes = map[string]string{
	graph.FormatJSON: "application/json",
	graph.FormatFlow: "application/json",
	graph.FormatDOT:  "text/vnd.graphviz; charset=utf-8",
	graph.FormatSVG:  "image/svg+xml",
	graph.FormatPNG:  "image/png",
	graph.FormatPDF:  "application/pdf",
}
