package httpapi

import (
	"bytes"
	"context"
	"fmt"
	"log/slog"
	"net/http"
	"strconv"
	"strings"

	"github.com/go-chi/chi/v5"
	"github.com/goccy/go-json"

	"github.com/tetrisge/rsge/rsge"
)

// waybillRef is the body of the send, delete and close calls. The id is
// accepted as a JSON string or number.
type waybillRef struct {
	WaybillID flexString `json:"waybillId"`
}

type flexString string

func (s *flexString) UnmarshalJSON(b []byte) error {
	b = bytes.TrimSpace(b)
	if bytes.Equal(b, []byte("null")) {
		*s = ""
		return nil
	}
	if len(b) > 0 && b[0] == '"' {
		var v string
		if err := json.Unmarshal(b, &v); err != nil {
			return err
		}
		*s = flexString(strings.TrimSpace(v))
		return nil
	}
	if _, err := strconv.ParseFloat(string(b), 64); err != nil {
		return fmt.Errorf("waybillId must be a string or number")
	}
	*s = flexString(b)
	return nil
}

func (h *Handler) lookupTin(w http.ResponseWriter, r *http.Request) {
	res, err := h.client.LookupTin(r.Context(), chi.URLParam(r, "tin"))
	if err != nil {
		h.fail(w, r, "lookup_tin", err)
		return
	}
	writeSuccess(w, http.StatusOK, res)
}

func (h *Handler) saveWaybill(w http.ResponseWriter, r *http.Request) {
	creds, ok := h.credentials(w, r, "save_waybill")
	if !ok {
		return
	}
	var in rsge.CreateWaybillInput
	if !h.decodeBody(w, r, &in) {
		return
	}
	res, err := h.client.SaveWaybill(r.Context(), creds, in)
	if err != nil {
		h.fail(w, r, "save_waybill", err)
		return
	}
	writeSuccess(w, http.StatusOK, res)
}

func (h *Handler) sendWaybill(w http.ResponseWriter, r *http.Request) {
	h.waybillTransition(w, r, "send_waybill", h.client.SendWaybill)
}

func (h *Handler) deleteWaybill(w http.ResponseWriter, r *http.Request) {
	h.waybillTransition(w, r, "delete_waybill", h.client.DeleteWaybill)
}

func (h *Handler) closeWaybill(w http.ResponseWriter, r *http.Request) {
	h.waybillTransition(w, r, "close_waybill", h.client.CloseWaybill)
}

type transitionFunc = func(ctx context.Context, creds rsge.Credentials, waybillID string) error

func (h *Handler) waybillTransition(w http.ResponseWriter, r *http.Request, op string, fn transitionFunc) {
	creds, ok := h.credentials(w, r, op)
	if !ok {
		return
	}
	var ref waybillRef
	if !h.decodeBody(w, r, &ref) {
		return
	}
	if err := fn(r.Context(), creds, string(ref.WaybillID)); err != nil {
		h.fail(w, r, op, err)
		return
	}
	writeSuccess(w, http.StatusOK, nil)
}

func (h *Handler) getWaybills(w http.ResponseWriter, r *http.Request) {
	creds, ok := h.credentials(w, r, "get_waybills")
	if !ok {
		return
	}
	q := r.URL.Query()
	from, to, err := rsge.ParseDateRange(q.Get("from"), q.Get("to"), h.now())
	if err != nil {
		writeError(w, http.StatusBadRequest, "VALIDATION_ERROR", err.Error())
		return
	}
	items, err := h.client.GetWaybills(r.Context(), creds, from, to)
	if err != nil {
		h.fail(w, r, "get_waybills", err)
		return
	}
	writeSuccess(w, http.StatusOK, items)
}

func (h *Handler) getWaybillUnits(w http.ResponseWriter, r *http.Request) {
	creds, ok := h.credentials(w, r, "get_waybill_units")
	if !ok {
		return
	}
	units, err := h.client.GetWaybillUnits(r.Context(), creds)
	if err != nil {
		h.fail(w, r, "get_waybill_units", err)
		return
	}
	writeSuccess(w, http.StatusOK, units)
}

func (h *Handler) saveInvoice(w http.ResponseWriter, r *http.Request) {
	creds, ok := h.credentials(w, r, "save_invoice")
	if !ok {
		return
	}
	var in rsge.CreateInvoiceInput
	if !h.decodeBody(w, r, &in) {
		return
	}
	res, err := h.client.SaveInvoice(r.Context(), creds, in)
	if err != nil {
		h.fail(w, r, "save_invoice", err)
		return
	}
	writeSuccess(w, http.StatusOK, res)
}

func (h *Handler) getInvoices(w http.ResponseWriter, r *http.Request) {
	creds, ok := h.credentials(w, r, "get_invoices")
	if !ok {
		return
	}
	q := r.URL.Query()
	from, to, err := rsge.ParseDateRange(q.Get("from"), q.Get("to"), h.now())
	if err != nil {
		writeError(w, http.StatusBadRequest, "VALIDATION_ERROR", err.Error())
		return
	}
	items, err := h.client.GetInvoices(r.Context(), creds, from, to)
	if err != nil {
		h.fail(w, r, "get_invoices", err)
		return
	}
	writeSuccess(w, http.StatusOK, items)
}

// forgetSubmission releases a digest recorded for the caller's own rs.ge
// account.
func (h *Handler) forgetSubmission(w http.ResponseWriter, r *http.Request) {
	creds, ok := h.credentials(w, r, "forget_submission")
	if !ok {
		return
	}
	if err := h.client.ForgetSubmission(r.Context(), creds, chi.URLParam(r, "digest")); err != nil {
		h.fail(w, r, "forget_submission", err)
		return
	}
	writeSuccess(w, http.StatusOK, nil)
}

// credentials resolves the caller's rs.ge credentials or writes the
// failure response.
func (h *Handler) credentials(w http.ResponseWriter, r *http.Request, op string) (rsge.Credentials, bool) {
	creds, err := h.store.Resolve(r.Context(), callerIDFromContext(r.Context()))
	if err != nil {
		h.fail(w, r, op, err)
		return rsge.Credentials{}, false
	}
	return creds, true
}

func (h *Handler) decodeBody(w http.ResponseWriter, r *http.Request, v any) bool {
	dec := json.NewDecoder(http.MaxBytesReader(w, r.Body, maxBodyBytes))
	if err := dec.Decode(v); err != nil {
		writeError(w, http.StatusBadRequest, "VALIDATION_ERROR", "invalid request body: "+err.Error())
		return false
	}
	return true
}

func (h *Handler) fail(w http.ResponseWriter, r *http.Request, op string, err error) {
	status, code, msg := mapError(err)
	level := slog.LevelInfo
	if status >= http.StatusInternalServerError {
		level = slog.LevelError
	}
	h.logger.Log(r.Context(), level, "rs.ge operation failed",
		"operation", op,
		"outcome", "failure",
		"request_id", requestIDFromContext(r.Context()),
		"caller_id", callerIDFromContext(r.Context()),
		"status", status,
		"code", code,
		"error", err.Error(),
	)
	writeError(w, status, code, msg)
}
