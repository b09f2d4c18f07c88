// Package rsge implements the rs.ge waybill, VAT invoice and taxpayer
// lookup operations on top of the soap transport.
//
// Every operation is a single stateless round-trip (LookupTin makes two in
// parallel). Errors from the transport are returned unchanged so callers
// can inspect them with errors.As.
package rsge

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"time"

	"github.com/tetrisge/rsge/soap"
	"github.com/tetrisge/rsge/xmlcodec"
)

// Caller performs one SOAP round-trip. *soap.Client implements it.
type Caller interface {
	CallContext(ctx context.Context, method string, params *xmlcodec.Params) (*soap.CallResult, error)
}

var _ Caller = (*soap.Client)(nil)

// DefaultGuardTTL is how long an unconfirmed submission blocks identical
// resubmissions when no TTL is given.
const DefaultGuardTTL = 24 * time.Hour

type Client struct {
	caller   Caller
	journal  Journal
	guardTTL time.Duration
	logger   *slog.Logger
}

type Option func(*Client)

// WithSubmissionGuard records save_waybill and save_invoice calls that
// failed after the request was sent and refuses identical resubmissions
// until they are forgotten.
func WithSubmissionGuard(j Journal, ttl time.Duration) Option {
	return func(c *Client) {
		c.journal = j
		c.guardTTL = ttl
	}
}

func WithLogger(l *slog.Logger) Option {
	return func(c *Client) {
		c.logger = l
	}
}

func New(caller Caller, opts ...Option) *Client {
	c := &Client{caller: caller}
	for _, o := range opts {
		o(c)
	}
	if c.logger == nil {
		c.logger = slog.New(slog.NewTextHandler(io.Discard, nil))
	}
	if c.guardTTL <= 0 {
		c.guardTTL = DefaultGuardTTL
	}
	return c
}

func (c *Client) invoke(ctx context.Context, method string, req any) (xmlcodec.Fragment, error) {
	params, err := xmlcodec.Encode(req)
	if err != nil {
		return xmlcodec.Fragment{}, fmt.Errorf("rsge: encode %s request: %w", method, err)
	}
	return c.call(ctx, method, params)
}

func (c *Client) call(ctx context.Context, method string, params *xmlcodec.Params) (xmlcodec.Fragment, error) {
	res, err := c.caller.CallContext(ctx, method, params)
	if err != nil {
		return xmlcodec.Fragment{}, err
	}
	return res.Result, nil
}

// submit is invoke for document-creating methods. With a guard configured,
// a call whose outcome is unknown blocks identical resubmissions by the
// same rs.ge account.
func (c *Client) submit(ctx context.Context, method string, creds Credentials, req any) (xmlcodec.Fragment, error) {
	params, err := xmlcodec.Encode(req)
	if err != nil {
		return xmlcodec.Fragment{}, fmt.Errorf("rsge: encode %s request: %w", method, err)
	}
	if c.journal == nil {
		return c.call(ctx, method, params)
	}

	digest, err := soap.RequestDigest(method, params)
	if err != nil {
		return xmlcodec.Fragment{}, fmt.Errorf("rsge: digest %s request: %w", method, err)
	}
	key := journalKey(creds, digest)
	pending, err := c.journal.Pending(ctx, key)
	if err != nil {
		return xmlcodec.Fragment{}, fmt.Errorf("rsge: submission journal: %w", err)
	}
	if pending {
		return xmlcodec.Fragment{}, &UnconfirmedSubmissionError{Method: method, Digest: digest}
	}

	res, err := c.caller.CallContext(ctx, method, params)
	if err == nil {
		return res.Result, nil
	}
	if !outcomeUnknown(res, err) {
		return xmlcodec.Fragment{}, err
	}

	markCtx := context.WithoutCancel(ctx)
	if markErr := c.journal.MarkPending(markCtx, key, c.guardTTL); markErr != nil {
		c.logger.ErrorContext(ctx, "cannot record unconfirmed submission",
			"operation", "submission_guard",
			"outcome", "failure",
			"method", method,
			"digest", digest,
			"error", markErr.Error(),
		)
	} else {
		c.logger.WarnContext(ctx, "submission outcome unknown",
			"operation", "submission_guard",
			"outcome", "pending",
			"method", method,
			"digest", digest,
			"error_code", soap.ErrorCode(err),
		)
	}
	return xmlcodec.Fragment{}, err
}

// outcomeUnknown reports whether a failed call may still have been applied
// by rs.ge: the request was handed to the HTTP client and no response
// status came back. A nil res carries no send time and counts as sent.
func outcomeUnknown(res *soap.CallResult, err error) bool {
	var tErr *soap.TransportError
	if !errors.As(err, &tErr) {
		return false
	}
	switch tErr.Reason {
	case soap.ReasonTimeout, soap.ReasonCanceled, soap.ReasonConnection:
	default:
		return false
	}
	return res == nil || !res.InvokeAt.IsZero()
}

// journalKey scopes a digest to the rs.ge account that submitted it.
func journalKey(creds Credentials, digest string) string {
	return creds.ServiceUser + "/" + digest
}

// ForgetSubmission clears an unconfirmed submission of the account in
// creds once the caller has checked the remote state, allowing the same
// request to be sent again. Digests of other accounts are untouched.
func (c *Client) ForgetSubmission(ctx context.Context, creds Credentials, digest string) error {
	if c.journal == nil {
		return nil
	}
	if err := creds.Validate(); err != nil {
		return err
	}
	return c.journal.Forget(ctx, journalKey(creds, digest))
}

// required returns the value of tag or a ParseError naming it.
func required(method string, f xmlcodec.Fragment, tag string) (string, error) {
	v := f.Value(tag)
	if v == "" {
		return "", &soap.ParseError{Method: method, Element: tag, Reason: "missing required field"}
	}
	return v, nil
}

func formatDate(t time.Time) string {
	return t.Format(dateLayout)
}
