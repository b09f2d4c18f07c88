package httpapi

import (
	"errors"
	"net/http"

	"github.com/goccy/go-json"

	"github.com/tetrisge/rsge/internal/credentials"
	"github.com/tetrisge/rsge/rsge"
	"github.com/tetrisge/rsge/soap"
)

// User-facing messages, in Georgian like the rest of the ERP.
const (
	msgNotConfigured = "rs.ge პარამეტრები არ არის კონფიგურირებული"
	msgSystemError   = "დაფიქსირდა სისტემური შეცდომა"
)

type statusBody struct {
	Success bool `json:"success"`
}

type dataBody struct {
	Success bool `json:"success"`
	Data    any  `json:"data"`
}

type errorBody struct {
	Success bool   `json:"success"`
	Error   string `json:"error"`
	Code    string `json:"code,omitempty"`
}

// writeSuccess writes {success:true,data}. A nil data omits the field.
func writeSuccess(w http.ResponseWriter, status int, data any) {
	if data == nil {
		writeJSON(w, status, statusBody{Success: true})
		return
	}
	writeJSON(w, status, dataBody{Success: true, Data: data})
}

func writeError(w http.ResponseWriter, status int, code, message string) {
	writeJSON(w, status, errorBody{Success: false, Error: message, Code: code})
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json; charset=utf-8")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

// mapError turns an operation error into a status, code and the message
// shown to the caller. Transport and parse details are never shown.
func mapError(err error) (int, string, string) {
	var (
		appErr      *soap.ApplicationError
		faultErr    *soap.SOAPFaultError
		unconfirmed *rsge.UnconfirmedSubmissionError
		tErr        *soap.TransportError
		parseErr    *soap.ParseError
	)
	switch {
	case errors.Is(err, credentials.ErrNotConfigured), errors.Is(err, rsge.ErrCredentialsMissing):
		return http.StatusUnauthorized, "NOT_CONFIGURED", msgNotConfigured
	case errors.Is(err, rsge.ErrWaybillIDMissing), errors.Is(err, rsge.ErrTinMissing):
		return http.StatusBadRequest, "VALIDATION_ERROR", err.Error()
	case errors.As(err, &appErr):
		return http.StatusUnprocessableEntity, appErr.Code, appErr.Message
	case errors.As(err, &faultErr):
		return http.StatusBadGateway, soap.CodeSOAPFault, faultErr.Message
	case errors.As(err, &unconfirmed):
		return http.StatusConflict, "UNCONFIRMED_SUBMISSION", unconfirmed.Error()
	case errors.As(err, &tErr):
		return http.StatusBadGateway, soap.ErrorCode(err), msgSystemError
	case errors.As(err, &parseErr):
		return http.StatusBadGateway, soap.CodeParseError, msgSystemError
	default:
		return http.StatusInternalServerError, "INTERNAL_ERROR", msgSystemError
	}
}
