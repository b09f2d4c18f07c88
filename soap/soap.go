// Package soap is a SOAP 1.1 client for the rs.ge web services.
//
// A call renders a parameter block into an envelope, POSTs it to the
// configured endpoint and classifies the outcome into one of four error
// kinds: TransportError, SOAPFaultError, ParseError or ApplicationError.
// The client never retries: rs.ge does not guarantee idempotency for
// document-creating methods such as save_waybill.
package soap

import (
	"bytes"
	"context"
	"crypto/tls"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net"
	"net/http"
	"time"

	"golang.org/x/time/rate"

	"github.com/tetrisge/rsge/xmlcodec"
)

// DefaultURL is the rs.ge waybill service endpoint.
const DefaultURL = "https://services.rs.ge/WayBillService/WayBillService.asmx"

const maxResponseSize = 32 << 20

type options struct {
	tlsCfg           *tls.Config
	timeout          time.Duration
	contimeout       time.Duration
	tlshshaketimeout time.Duration
	client           HTTPClient
	userAgent        string
	httpHeaders      map[string]string
	namespace        string
	rateLimit        float64
	rateBurst        int
	logger           *slog.Logger
}

var defaultOptions = options{
	timeout:          time.Duration(30 * time.Second),
	contimeout:       time.Duration(30 * time.Second),
	tlshshaketimeout: time.Duration(15 * time.Second),
	userAgent:        "rsge-client/1.0",
	namespace:        DefaultNamespace,
}

// A Option sets options such as timeouts, tls, rate limits, etc.
type Option func(*options)

// WithHTTPClient is an Option to set the HTTP client to use
// This cannot be used with WithTLSHandshakeTimeout, WithTLS,
// WithTimeout, WithRequestTimeout options
func WithHTTPClient(c HTTPClient) Option {
	return func(o *options) {
		o.client = c
	}
}

// WithTLSHandshakeTimeout is an Option to set default tls handshake timeout
// This option cannot be used with WithHTTPClient
func WithTLSHandshakeTimeout(t time.Duration) Option {
	return func(o *options) {
		o.tlshshaketimeout = t
	}
}

// WithRequestTimeout is an Option to set default end-end request timeout.
// rs.ge publishes no SLA, so a zero value is ignored rather than disabling
// the timeout.
// This option cannot be used with WithHTTPClient
func WithRequestTimeout(t time.Duration) Option {
	return func(o *options) {
		if t > 0 {
			o.contimeout = t
		}
	}
}

// WithTLS is an Option to set tls config
// This option cannot be used with WithHTTPClient
func WithTLS(tls *tls.Config) Option {
	return func(o *options) {
		o.tlsCfg = tls
	}
}

// WithTimeout is an Option to set default HTTP dial timeout
func WithTimeout(t time.Duration) Option {
	return func(o *options) {
		o.timeout = t
	}
}

// WithUserAgent is an Option to set User-Agent header value
func WithUserAgent(userAgent string) Option {
	return func(o *options) {
		o.userAgent = userAgent
	}
}

// WithHTTPHeaders is an Option to set global HTTP headers for all requests
func WithHTTPHeaders(headers map[string]string) Option {
	return func(o *options) {
		o.httpHeaders = headers
	}
}

// WithNamespace is an Option to set the service namespace used for method
// elements and SOAPAction values.
func WithNamespace(ns string) Option {
	return func(o *options) {
		o.namespace = ns
	}
}

// WithRateLimit is an Option to throttle outgoing calls to perSecond
// requests with the given burst. The endpoint is shared by every caller of
// the client.
func WithRateLimit(perSecond float64, burst int) Option {
	return func(o *options) {
		o.rateLimit = perSecond
		o.rateBurst = burst
	}
}

// WithLogger is an Option to set the logger for call outcomes.
func WithLogger(l *slog.Logger) Option {
	return func(o *options) {
		o.logger = l
	}
}

func makeDefaultClient(opts *options) HTTPClient {
	tr := &http.Transport{
		Proxy:           http.ProxyFromEnvironment,
		TLSClientConfig: opts.tlsCfg,
		DialContext: func(ctx context.Context, network, addr string) (net.Conn, error) {
			d := net.Dialer{Timeout: opts.timeout}
			return d.DialContext(ctx, network, addr)
		},
		TLSHandshakeTimeout:   opts.tlshshaketimeout,
		ExpectContinueTimeout: time.Second * 2,
	}
	return &http.Client{
		Timeout:   opts.contimeout,
		Transport: tr,
	}
}

// Client is soap client. It holds no per-call state and is safe for
// concurrent use.
type Client struct {
	url     string
	opts    *options
	limiter *rate.Limiter
	logger  *slog.Logger
}

// HTTPClient is a client which can make HTTP requests
// An example implementation is net/http.Client
type HTTPClient interface {
	Do(req *http.Request) (*http.Response, error)
}

// NewClient creates new SOAP client instance
func NewClient(url string, opt ...Option) *Client {
	opts := defaultOptions
	for _, o := range opt {
		o(&opts)
	}
	if opts.client == nil {
		opts.client = makeDefaultClient(&opts)
	}
	c := &Client{
		url:    url,
		opts:   &opts,
		logger: opts.logger,
	}
	if c.logger == nil {
		c.logger = slog.New(slog.NewTextHandler(io.Discard, nil))
	}
	if opts.rateLimit > 0 {
		burst := opts.rateBurst
		if burst <= 0 {
			burst = 1
		}
		c.limiter = rate.NewLimiter(rate.Limit(opts.rateLimit), burst)
	}
	return c
}

// URL returns the endpoint the client posts to.
func (s *Client) URL() string {
	return s.url
}

// CallContext invokes a remote method and returns the unwrapped
// <methodResult> element in CallResult.Result.
//
// The returned CallResult is non-nil whenever a request was built, also on
// failure, so callers can log the exchange.
func (s *Client) CallContext(ctx context.Context, method string, params *xmlcodec.Params) (*CallResult, error) {
	reqBody, err := marshalEnvelope(s.opts.namespace, method, params.String())
	if err != nil {
		return nil, fmt.Errorf("marshal envelope failed: %w", err)
	}
	traceBody, err := marshalEnvelope(s.opts.namespace, method, params.Redacted())
	if err != nil {
		return nil, fmt.Errorf("marshal envelope failed: %w", err)
	}

	invokeResult := &CallResult{
		RequestURL: s.url,
		Method:     method,
		RequestContent: CallContent{
			Body: string(traceBody),
		},
	}

	res, err := s.call(ctx, method, reqBody, invokeResult)
	s.logOutcome(ctx, invokeResult, err)
	if err != nil {
		return invokeResult, err
	}
	invokeResult.Result = res
	return invokeResult, nil
}

func (s *Client) call(ctx context.Context, method string, reqBody []byte, invokeResult *CallResult) (xmlcodec.Fragment, error) {
	if s.limiter != nil {
		if err := s.limiter.Wait(ctx); err != nil {
			reason := ReasonThrottled
			if ctx.Err() != nil {
				reason = classifyTransportErr(ctx.Err())
			}
			return xmlcodec.Fragment{}, &TransportError{Method: method, Reason: reason, Err: err}
		}
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, s.url, bytes.NewReader(reqBody))
	if err != nil {
		return xmlcodec.Fragment{}, &TransportError{Method: method, Reason: ReasonConnection, Err: err}
	}
	req.Header.Set("Content-Type", SOAPMIMEType)
	req.Header.Set("SOAPAction", s.opts.namespace+method)
	req.Header.Set("User-Agent", s.opts.userAgent)
	req.Header.Set("Accept", "*/*")
	for k, v := range s.opts.httpHeaders {
		req.Header.Set(k, v)
	}
	invokeResult.RequestContent.Header = req.Header.Clone()

	invokeResult.InvokeAt = time.Now()
	res, err := s.opts.client.Do(req)
	if err != nil {
		invokeResult.ReturnAt = time.Now()
		return xmlcodec.Fragment{}, &TransportError{Method: method, Reason: classifyTransportErr(err), Err: err}
	}
	defer res.Body.Close()

	respBody, err := io.ReadAll(io.LimitReader(res.Body, maxResponseSize))
	invokeResult.ReturnAt = time.Now()
	invokeResult.StatusCode = res.StatusCode
	invokeResult.ResponseContent = CallContent{
		Header: res.Header.Clone(),
		Body:   string(respBody),
	}
	if err != nil {
		return xmlcodec.Fragment{}, &TransportError{Method: method, Reason: classifyTransportErr(err), Err: err}
	}
	if res.StatusCode < 200 || res.StatusCode > 299 {
		return xmlcodec.Fragment{}, &TransportError{
			Method:       method,
			Reason:       ReasonHTTPStatus,
			StatusCode:   res.StatusCode,
			ResponseBody: respBody,
		}
	}

	result, err := decodeResponse(method, respBody)
	invokeResult.DecodedAt = time.Now()
	return result, err
}

func classifyTransportErr(err error) string {
	var netErr net.Error
	switch {
	case errors.Is(err, context.DeadlineExceeded):
		return ReasonTimeout
	case errors.As(err, &netErr) && netErr.Timeout():
		return ReasonTimeout
	case errors.Is(err, context.Canceled):
		return ReasonCanceled
	default:
		return ReasonConnection
	}
}

func (s *Client) logOutcome(ctx context.Context, r *CallResult, err error) {
	fields := []any{
		"operation", "soap_call",
		"method", r.Method,
		"status_code", r.StatusCode,
		"duration_ms", r.Duration().Milliseconds(),
	}
	if err == nil {
		s.logger.DebugContext(ctx, "rs.ge call completed", append(fields, "outcome", "success")...)
		return
	}
	fields = append(fields, "outcome", "failure", "error_code", ErrorCode(err), "error", err.Error())
	var appErr *ApplicationError
	if errors.As(err, &appErr) {
		s.logger.InfoContext(ctx, "rs.ge call rejected", fields...)
		return
	}
	s.logger.WarnContext(ctx, "rs.ge call failed", fields...)
}
