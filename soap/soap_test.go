package soap

import (
	"context"
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/tetrisge/rsge/xmlcodec"
)

func envelope(body string) string {
	return `<?xml version="1.0" encoding="utf-8"?>` +
		`<soap:Envelope xmlns:soap="http://schemas.xmlsoap.org/soap/envelope/" ` +
		`xmlns:xsi="http://www.w3.org/2001/XMLSchema-instance" xmlns:xsd="http://www.w3.org/2001/XMLSchema">` +
		`<soap:Body>` + body + `</soap:Body></soap:Envelope>`
}

func response(method, inner string) string {
	return envelope(`<` + method + `Response xmlns="http://tempuri.org/"><` + method + `Result>` +
		inner + `</` + method + `Result></` + method + `Response>`)
}

type captured struct {
	method      string
	contentType string
	soapAction  string
	body        string
}

func newServer(t *testing.T, status int, reply string) (*httptest.Server, *captured) {
	t.Helper()
	got := &captured{}
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		raw, _ := io.ReadAll(r.Body)
		got.method = r.Method
		got.contentType = r.Header.Get("Content-Type")
		got.soapAction = r.Header.Get("SOAPAction")
		got.body = string(raw)
		w.Header().Set("Content-Type", SOAPMIMEType)
		w.WriteHeader(status)
		_, _ = io.WriteString(w, reply)
	}))
	t.Cleanup(srv.Close)
	return srv, got
}

func TestCallContextBuildsEnvelope(t *testing.T) {
	srv, got := newServer(t, http.StatusOK, response("get_waybill_units", `<UNITS/>`))
	client := NewClient(srv.URL)

	params := xmlcodec.NewParams().Add("su", "user").AddSecret("sp", "pa<ss")
	res, err := client.CallContext(context.Background(), "get_waybill_units", params)
	require.NoError(t, err)

	assert.Equal(t, http.MethodPost, got.method)
	assert.Equal(t, "text/xml; charset=utf-8", got.contentType)
	assert.Equal(t, "http://tempuri.org/get_waybill_units", got.soapAction)
	assert.True(t, strings.HasPrefix(got.body, `<?xml version="1.0" encoding="utf-8"?>`))
	assert.Contains(t, got.body, `<soap:Envelope xmlns:xsi="http://www.w3.org/2001/XMLSchema-instance"`)
	assert.Contains(t, got.body, `xmlns:soap="http://schemas.xmlsoap.org/soap/envelope/"`)
	assert.Contains(t, got.body, `<soap:Body><get_waybill_units xmlns="http://tempuri.org/"><su>user</su><sp>pa&lt;ss</sp></get_waybill_units></soap:Body>`)

	assert.Equal(t, http.StatusOK, res.StatusCode)
	assert.Equal(t, "get_waybill_units", res.Method)
	assert.Contains(t, res.RequestContent.Body, "<sp>***</sp>")
	assert.NotContains(t, res.RequestContent.Body, "pa&lt;ss")
	assert.Equal(t, "get_waybill_unitsResult", res.Result.Tag())
	_, ok := res.Result.Find("UNITS")
	assert.True(t, ok)
}

func TestCallContextReturnsUnwrappedResult(t *testing.T) {
	srv, _ := newServer(t, http.StatusOK,
		response("save_waybill", `<ID>123</ID><WAYBILL_NUMBER>WB-001</WAYBILL_NUMBER>`))

	res, err := NewClient(srv.URL).CallContext(context.Background(), "save_waybill", xmlcodec.NewParams())
	require.NoError(t, err)
	assert.Equal(t, "123", res.Result.Value("ID"))
	assert.Equal(t, "WB-001", res.Result.Value("WAYBILL_NUMBER"))
}

func TestCallContextSOAPFault(t *testing.T) {
	srv, _ := newServer(t, http.StatusOK, envelope(
		`<soap:Fault><faultcode>soap:Client</faultcode><faultstring>Invalid session</faultstring></soap:Fault>`))

	res, err := NewClient(srv.URL).CallContext(context.Background(), "save_waybill", xmlcodec.NewParams())
	require.Error(t, err)

	var faultErr *SOAPFaultError
	require.ErrorAs(t, err, &faultErr)
	assert.Equal(t, "Invalid session", faultErr.Message)
	assert.Equal(t, "soap:Client", faultErr.Code)
	assert.Equal(t, xmlcodec.Fragment{}, res.Result)
	assert.Equal(t, CodeSOAPFault, ErrorCode(err))
}

func TestCallContextFaultNamedDataElement(t *testing.T) {
	srv, _ := newServer(t, http.StatusOK,
		response("get_waybills", `<WAYBILL><ID>1</ID><Fault>none</Fault></WAYBILL>`))

	res, err := NewClient(srv.URL).CallContext(context.Background(), "get_waybills", xmlcodec.NewParams())
	require.NoError(t, err)
	blocks := res.Result.Blocks("WAYBILL")
	require.Len(t, blocks, 1)
	assert.Equal(t, "none", blocks[0].Value("Fault"))
}

func TestCallContextFaultTakesPrecedence(t *testing.T) {
	srv, _ := newServer(t, http.StatusOK, envelope(
		`<soap:Fault><faultstring>boom</faultstring></soap:Fault>`+
			`<save_waybillResult><error_code>5</error_code><error_text>Unauthorized</error_text></save_waybillResult>`))

	_, err := NewClient(srv.URL).CallContext(context.Background(), "save_waybill", xmlcodec.NewParams())

	var faultErr *SOAPFaultError
	require.ErrorAs(t, err, &faultErr)
	assert.Equal(t, "boom", faultErr.Message)
	var appErr *ApplicationError
	assert.False(t, errors.As(err, &appErr))
}

func TestCallContextFaultWithoutString(t *testing.T) {
	srv, _ := newServer(t, http.StatusOK, envelope(`<soap:Fault><faultcode>soap:Server</faultcode></soap:Fault>`))

	_, err := NewClient(srv.URL).CallContext(context.Background(), "save_waybill", xmlcodec.NewParams())

	var faultErr *SOAPFaultError
	require.ErrorAs(t, err, &faultErr)
	assert.Equal(t, "SOAP Fault", faultErr.Message)
}

func TestCallContextApplicationErrors(t *testing.T) {
	tests := []struct {
		name    string
		inner   string
		code    string
		message string
	}{
		{
			name:    "code with text",
			inner:   `<error_code>5</error_code><error_text>Unauthorized</error_text>`,
			code:    "5",
			message: "Unauthorized",
		},
		{
			name:    "negative code",
			inner:   `<RESULT><error_code>-1</error_code><error_text>Not found</error_text></RESULT>`,
			code:    "-1",
			message: "Not found",
		},
		{
			name:    "missing text",
			inner:   `<error_code>42</error_code>`,
			code:    "42",
			message: "error code 42",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			srv, _ := newServer(t, http.StatusOK, response("get_waybills", tt.inner))

			_, err := NewClient(srv.URL).CallContext(context.Background(), "get_waybills", xmlcodec.NewParams())

			var appErr *ApplicationError
			require.ErrorAs(t, err, &appErr)
			assert.Equal(t, tt.code, appErr.Code)
			assert.Equal(t, tt.message, appErr.Message)
			assert.Equal(t, tt.code, ErrorCode(err))
		})
	}
}

func TestCallContextZeroErrorCodeIsSuccess(t *testing.T) {
	for _, inner := range []string{
		`<error_code>0</error_code><ID>7</ID>`,
		`<error_code>00</error_code><ID>7</ID>`,
		`<error_code></error_code><ID>7</ID>`,
	} {
		srv, _ := newServer(t, http.StatusOK, response("del_waybill", inner))

		res, err := NewClient(srv.URL).CallContext(context.Background(), "del_waybill", xmlcodec.NewParams())
		require.NoError(t, err, inner)
		assert.Equal(t, "7", res.Result.Value("ID"))
	}
}

func TestCallContextParseErrors(t *testing.T) {
	tests := []struct {
		name  string
		reply string
	}{
		{name: "missing result", reply: envelope(`<save_waybillResponse xmlns="http://tempuri.org/"/>`)},
		{name: "other method result", reply: response("send_waybill", `<ID>1</ID>`)},
		{name: "html error page", reply: `<html><body><h1>Service Unavailable</h1></body></html>`},
		{name: "not xml", reply: `Service Unavailable`},
		{name: "empty", reply: ``},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			srv, _ := newServer(t, http.StatusOK, tt.reply)

			_, err := NewClient(srv.URL).CallContext(context.Background(), "save_waybill", xmlcodec.NewParams())

			var parseErr *ParseError
			require.ErrorAs(t, err, &parseErr)
			assert.Equal(t, "save_waybill", parseErr.Method)
			assert.Equal(t, CodeParseError, ErrorCode(err))
		})
	}
}

func TestCallContextHTTPStatus(t *testing.T) {
	srv, _ := newServer(t, http.StatusInternalServerError, envelope(
		`<soap:Fault><faultstring>Server was unable to process request</faultstring></soap:Fault>`))

	res, err := NewClient(srv.URL).CallContext(context.Background(), "save_waybill", xmlcodec.NewParams())

	var tErr *TransportError
	require.ErrorAs(t, err, &tErr)
	assert.Equal(t, ReasonHTTPStatus, tErr.Reason)
	assert.Equal(t, http.StatusInternalServerError, tErr.StatusCode)
	assert.Contains(t, string(tErr.ResponseBody), "Server was unable to process request")
	assert.Equal(t, http.StatusInternalServerError, res.StatusCode)
	assert.Equal(t, CodeHTTPError, ErrorCode(err))
}

func TestCallContextTimeout(t *testing.T) {
	release := make(chan struct{})
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		select {
		case <-r.Context().Done():
		case <-release:
		}
	}))
	t.Cleanup(func() {
		close(release)
		srv.Close()
	})

	client := NewClient(srv.URL, WithRequestTimeout(50*time.Millisecond))
	_, err := client.CallContext(context.Background(), "save_waybill", xmlcodec.NewParams())

	var tErr *TransportError
	require.ErrorAs(t, err, &tErr)
	assert.Equal(t, ReasonTimeout, tErr.Reason)
	assert.True(t, tErr.Timeout())
	assert.Equal(t, CodeTimeout, ErrorCode(err))
}

func TestCallContextConnectionRefused(t *testing.T) {
	srv := httptest.NewServer(http.NotFoundHandler())
	url := srv.URL
	srv.Close()

	_, err := NewClient(url).CallContext(context.Background(), "save_waybill", xmlcodec.NewParams())

	var tErr *TransportError
	require.ErrorAs(t, err, &tErr)
	assert.Equal(t, ReasonConnection, tErr.Reason)
	assert.False(t, tErr.Timeout())
	assert.Equal(t, CodeConnectionError, ErrorCode(err))
}

func TestCallContextCanceled(t *testing.T) {
	srv, _ := newServer(t, http.StatusOK, response("save_waybill", ``))
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err := NewClient(srv.URL).CallContext(ctx, "save_waybill", xmlcodec.NewParams())

	var tErr *TransportError
	require.ErrorAs(t, err, &tErr)
	assert.Equal(t, ReasonCanceled, tErr.Reason)
	assert.Equal(t, CodeCanceled, ErrorCode(err))
}

func TestCallContextRateLimited(t *testing.T) {
	srv, _ := newServer(t, http.StatusOK, response("get_waybill_units", ``))
	client := NewClient(srv.URL, WithRateLimit(0.1, 1))

	_, err := client.CallContext(context.Background(), "get_waybill_units", xmlcodec.NewParams())
	require.NoError(t, err)

	ctx, cancel := context.WithTimeout(context.Background(), 100*time.Millisecond)
	defer cancel()
	_, err = client.CallContext(ctx, "get_waybill_units", xmlcodec.NewParams())

	var tErr *TransportError
	require.ErrorAs(t, err, &tErr)
	assert.Equal(t, ReasonThrottled, tErr.Reason)
	assert.Equal(t, CodeThrottled, ErrorCode(err))
}

func TestCallContextCustomHeadersAndNamespace(t *testing.T) {
	var header http.Header
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		header = r.Header.Clone()
		_, _ = io.WriteString(w, response("is_vat_payer", `true`))
	}))
	t.Cleanup(srv.Close)

	client := NewClient(srv.URL,
		WithNamespace("urn:test/"),
		WithUserAgent("test-agent"),
		WithHTTPHeaders(map[string]string{"X-Tenant": "t1"}),
	)
	res, err := client.CallContext(context.Background(), "is_vat_payer", xmlcodec.NewParams())
	require.NoError(t, err)

	assert.Equal(t, "urn:test/is_vat_payer", header.Get("SOAPAction"))
	assert.Equal(t, "test-agent", header.Get("User-Agent"))
	assert.Equal(t, "t1", header.Get("X-Tenant"))
	assert.Equal(t, "true", res.Result.Text())
}

func TestErrorCodeForForeignErrors(t *testing.T) {
	assert.Equal(t, "", ErrorCode(nil))
	assert.Equal(t, "", ErrorCode(errors.New("other")))
}
