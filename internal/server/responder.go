package server

import (
	"encoding/json"
	"net/http"

	"github.com/koustreak/schemapub/internal/errs"
)

type errorBody struct {
	Error struct {
		Code    string `json:"code"`
		Message string `json:"message"`
	} `json:"error"`
}

func writeJSON(w http.ResponseWriter, status int, payload any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(payload)
}

func writeError(w http.ResponseWriter, status int, code, message string) {
	body := errorBody{}
	body.Error.Code = code
	body.Error.Message = message
	writeJSON(w, status, body)
}

// writeErr answers with the status matching err's kind.
func writeErr(w http.ResponseWriter, err error) {
	kind := errs.KindOf(err)
	writeError(w, statusFor(kind), kind.String(), err.Error())
}

func statusFor(kind errs.ErrKind) int {
	switch kind {
	case errs.ErrKindNotFound:
		return http.StatusNotFound
	case errs.ErrKindInvalidInput:
		return http.StatusBadRequest
	case errs.ErrKindTimeout:
		return http.StatusGatewayTimeout
	case errs.ErrKindConnectionFailed:
		return http.StatusServiceUnavailable
	case errs.ErrKindPermissionDenied, errs.ErrKindPublishFailed:
		return http.StatusBadGateway
	default:
		return http.StatusInternalServerError
	}
}
