// Package credentials resolves the rs.ge service credentials of a caller.
package credentials

import (
	"context"
	"errors"
	"fmt"

	"github.com/tetrisge/rsge/rsge"
)

// ErrNotConfigured matches every NotConfiguredError.
var ErrNotConfigured = errors.New("rs.ge credentials are not configured")

// NotConfiguredError is returned when a caller has no usable service user
// or password.
type NotConfiguredError struct {
	CallerID string
}

func (e *NotConfiguredError) Error() string {
	return fmt.Sprintf("rs.ge credentials are not configured for caller %q", e.CallerID)
}

func (e *NotConfiguredError) Is(target error) bool {
	return target == ErrNotConfigured
}

// Store resolves the credentials for a caller. Implementations return a
// NotConfiguredError when either field is missing.
type Store interface {
	Resolve(ctx context.Context, callerID string) (rsge.Credentials, error)
}

// StaticStore hands the same credentials to every caller.
type StaticStore struct {
	creds rsge.Credentials
}

var _ Store = (*StaticStore)(nil)

func NewStaticStore(creds rsge.Credentials) *StaticStore {
	return &StaticStore{creds: creds}
}

func (s *StaticStore) Resolve(_ context.Context, callerID string) (rsge.Credentials, error) {
	if err := s.creds.Validate(); err != nil {
		return rsge.Credentials{}, &NotConfiguredError{CallerID: callerID}
	}
	return s.creds, nil
}
