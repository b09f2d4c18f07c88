package rsge

import (
	"context"
	"io"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/tetrisge/rsge/soap"
	"github.com/tetrisge/rsge/xmlcodec"
)

func TestMemoryJournalExpiry(t *testing.T) {
	ctx := context.Background()
	now := time.Date(2024, 5, 1, 12, 0, 0, 0, time.UTC)
	j := NewMemoryJournal()
	j.now = func() time.Time { return now }

	require.NoError(t, j.MarkPending(ctx, "d1", time.Minute))
	pending, err := j.Pending(ctx, "d1")
	require.NoError(t, err)
	assert.True(t, pending)

	now = now.Add(time.Minute)
	pending, err = j.Pending(ctx, "d1")
	require.NoError(t, err)
	assert.False(t, pending)
}

func TestMemoryJournalForget(t *testing.T) {
	ctx := context.Background()
	j := NewMemoryJournal()
	require.NoError(t, j.MarkPending(ctx, "d1", time.Hour))
	require.NoError(t, j.Forget(ctx, "d1"))

	pending, err := j.Pending(ctx, "d1")
	require.NoError(t, err)
	assert.False(t, pending)
}

func TestSubmissionGuardBlocksAfterTimeout(t *testing.T) {
	ctx := context.Background()
	timeouts := true
	caller := &fakeCaller{reply: func(method string, _ *xmlcodec.Params) (*soap.CallResult, error) {
		if timeouts {
			return nil, &soap.TransportError{Method: method, Reason: soap.ReasonTimeout}
		}
		return resultOf(t, `<ID>1</ID><WAYBILL_NUMBER>W1</WAYBILL_NUMBER>`), nil
	}}
	client := New(caller, WithSubmissionGuard(NewMemoryJournal(), time.Hour))
	in := CreateWaybillInput{BuyerTin: "123", Goods: []WaybillGood{{Name: "x", Quantity: 1}}}

	_, err := client.SaveWaybill(ctx, testCreds, in)
	assert.Equal(t, soap.CodeTimeout, soap.ErrorCode(err))

	timeouts = false
	_, err = client.SaveWaybill(ctx, testCreds, in)
	var unconfirmed *UnconfirmedSubmissionError
	require.ErrorAs(t, err, &unconfirmed)
	assert.Equal(t, "save_waybill", unconfirmed.Method)
	assert.Equal(t, 1, caller.count())

	// A different document is not affected.
	other := in
	other.BuyerTin = "456"
	_, err = client.SaveWaybill(ctx, testCreds, other)
	require.NoError(t, err)

	require.NoError(t, client.ForgetSubmission(ctx, testCreds, unconfirmed.Digest))
	res, err := client.SaveWaybill(ctx, testCreds, in)
	require.NoError(t, err)
	assert.Equal(t, "W1", res.WaybillNumber)
	assert.Equal(t, 3, caller.count())
}

func TestSubmissionGuardBlocksAfterCancelInFlight(t *testing.T) {
	var hits atomic.Int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		hits.Add(1)
		select {
		case <-r.Context().Done():
		case <-time.After(200 * time.Millisecond):
		}
		w.Header().Set("Content-Type", soap.SOAPMIMEType)
		_, _ = io.WriteString(w, methodResponse("save_waybill", `<ID>9</ID><WAYBILL_NUMBER>W9</WAYBILL_NUMBER>`))
	}))
	t.Cleanup(srv.Close)

	client := New(soap.NewClient(srv.URL), WithSubmissionGuard(NewMemoryJournal(), time.Hour))
	in := CreateWaybillInput{BuyerTin: "123", Goods: []WaybillGood{{Name: "x", Quantity: 1}}}

	ctx, cancel := context.WithTimeout(context.Background(), time.Hour)
	go func() {
		time.Sleep(50 * time.Millisecond)
		cancel()
	}()
	_, err := client.SaveWaybill(ctx, testCreds, in)
	assert.Equal(t, soap.CodeCanceled, soap.ErrorCode(err))

	_, err = client.SaveWaybill(context.Background(), testCreds, in)
	var unconfirmed *UnconfirmedSubmissionError
	require.ErrorAs(t, err, &unconfirmed)
	assert.Equal(t, int32(1), hits.Load())
}

func TestSubmissionGuardConnectionFailure(t *testing.T) {
	ctx := context.Background()
	sent := true
	caller := &fakeCaller{reply: func(method string, _ *xmlcodec.Params) (*soap.CallResult, error) {
		res := &soap.CallResult{Method: method}
		if sent {
			res.InvokeAt = time.Now()
		}
		return res, &soap.TransportError{Method: method, Reason: soap.ReasonConnection}
	}}
	client := New(caller, WithSubmissionGuard(NewMemoryJournal(), time.Hour))

	// Dropped after the request went out: outcome unknown.
	first := CreateInvoiceInput{BuyerTin: "123"}
	_, err := client.SaveInvoice(ctx, testCreds, first)
	assert.Equal(t, soap.CodeConnectionError, soap.ErrorCode(err))
	_, err = client.SaveInvoice(ctx, testCreds, first)
	assert.ErrorAs(t, err, new(*UnconfirmedSubmissionError))
	assert.Equal(t, 1, caller.count())

	// Never sent: safe to try again.
	sent = false
	second := CreateInvoiceInput{BuyerTin: "456"}
	for range 2 {
		_, err = client.SaveInvoice(ctx, testCreds, second)
		assert.Equal(t, soap.CodeConnectionError, soap.ErrorCode(err))
	}
	assert.Equal(t, 3, caller.count())
}

func TestSubmissionGuardIgnoresAnsweredFailures(t *testing.T) {
	ctx := context.Background()
	failures := []error{
		&soap.TransportError{Method: "save_invoice", Reason: soap.ReasonHTTPStatus, StatusCode: http.StatusInternalServerError},
		&soap.TransportError{Method: "save_invoice", Reason: soap.ReasonThrottled},
		&soap.SOAPFaultError{Method: "save_invoice", Message: "Server was unable to process request"},
		&soap.ApplicationError{Method: "save_invoice", Code: "-1", Message: "rejected"},
	}
	for _, failure := range failures {
		caller := &fakeCaller{reply: func(string, *xmlcodec.Params) (*soap.CallResult, error) {
			return nil, failure
		}}
		client := New(caller, WithSubmissionGuard(NewMemoryJournal(), time.Hour))
		in := CreateInvoiceInput{BuyerTin: "123"}

		_, err := client.SaveInvoice(ctx, testCreds, in)
		require.Error(t, err)
		_, err = client.SaveInvoice(ctx, testCreds, in)
		require.Error(t, err)
		assert.NotErrorAs(t, err, new(*UnconfirmedSubmissionError), failure.Error())
		assert.Equal(t, 2, caller.count())
	}
}

func TestForgetSubmissionScopedToAccount(t *testing.T) {
	ctx := context.Background()
	caller := &fakeCaller{reply: func(method string, _ *xmlcodec.Params) (*soap.CallResult, error) {
		return nil, &soap.TransportError{Method: method, Reason: soap.ReasonTimeout}
	}}
	client := New(caller, WithSubmissionGuard(NewMemoryJournal(), time.Hour))
	in := CreateWaybillInput{BuyerTin: "123"}

	_, err := client.SaveWaybill(ctx, testCreds, in)
	require.Error(t, err)
	_, err = client.SaveWaybill(ctx, testCreds, in)
	var unconfirmed *UnconfirmedSubmissionError
	require.ErrorAs(t, err, &unconfirmed)

	other := Credentials{ServiceUser: "user:999", ServicePassword: "x"}
	require.NoError(t, client.ForgetSubmission(ctx, other, unconfirmed.Digest))
	_, err = client.SaveWaybill(ctx, testCreds, in)
	assert.ErrorAs(t, err, new(*UnconfirmedSubmissionError))

	assert.ErrorIs(t, client.ForgetSubmission(ctx, Credentials{}, unconfirmed.Digest), ErrCredentialsMissing)

	require.NoError(t, client.ForgetSubmission(ctx, testCreds, unconfirmed.Digest))
	_, err = client.SaveWaybill(ctx, testCreds, in)
	assert.Equal(t, soap.CodeTimeout, soap.ErrorCode(err))
	assert.Equal(t, 2, caller.count())
}

func TestNoGuardByDefault(t *testing.T) {
	ctx := context.Background()
	caller := &fakeCaller{reply: func(method string, _ *xmlcodec.Params) (*soap.CallResult, error) {
		return nil, &soap.TransportError{Method: method, Reason: soap.ReasonTimeout}
	}}
	client := New(caller)

	for range 2 {
		_, err := client.SaveWaybill(ctx, testCreds, CreateWaybillInput{})
		assert.Equal(t, soap.CodeTimeout, soap.ErrorCode(err))
	}
	assert.Equal(t, 2, caller.count())
	assert.NoError(t, client.ForgetSubmission(ctx, testCreds, "anything"))
}
