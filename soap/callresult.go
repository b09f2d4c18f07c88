package soap

import (
	"net/http"
	"time"

	"github.com/tetrisge/rsge/xmlcodec"
)

type CallContent struct {
	Header http.Header
	Body   string
}

// CallResult records one exchange with the remote service. The request
// body has secret parameters masked.
type CallResult struct {
	RequestURL      string
	Method          string
	StatusCode      int
	RequestContent  CallContent
	ResponseContent CallContent
	InvokeAt        time.Time
	ReturnAt        time.Time
	DecodedAt       time.Time

	// Result is the unwrapped <methodResult> element. It is only set on
	// success.
	Result xmlcodec.Fragment
}

// Duration returns the time spent waiting for the remote service.
func (r *CallResult) Duration() time.Duration {
	if r == nil || r.InvokeAt.IsZero() || r.ReturnAt.IsZero() {
		return 0
	}
	return r.ReturnAt.Sub(r.InvokeAt)
}
