package rsge

import (
	"context"
	"fmt"
	"sync"
	"time"
)

// Journal remembers submissions whose outcome on the remote side is
// unknown. Implementations must be safe for concurrent use.
type Journal interface {
	Pending(ctx context.Context, digest string) (bool, error)
	MarkPending(ctx context.Context, digest string, ttl time.Duration) error
	Forget(ctx context.Context, digest string) error
}

// UnconfirmedSubmissionError is returned when an identical request failed
// earlier after being sent and may already have created a document on
// rs.ge.
type UnconfirmedSubmissionError struct {
	Method string
	Digest string
}

func (e *UnconfirmedSubmissionError) Error() string {
	return fmt.Sprintf("rs.ge %s: an identical submission failed earlier with an unknown outcome and is unconfirmed (digest %s)", e.Method, e.Digest)
}

// MemoryJournal is an in-process Journal.
type MemoryJournal struct {
	mu      sync.Mutex
	entries map[string]time.Time
	now     func() time.Time
}

func NewMemoryJournal() *MemoryJournal {
	return &MemoryJournal{
		entries: make(map[string]time.Time),
		now:     time.Now,
	}
}

func (j *MemoryJournal) Pending(_ context.Context, digest string) (bool, error) {
	j.mu.Lock()
	defer j.mu.Unlock()

	expires, ok := j.entries[digest]
	if !ok {
		return false, nil
	}
	if !j.now().Before(expires) {
		delete(j.entries, digest)
		return false, nil
	}
	return true, nil
}

func (j *MemoryJournal) MarkPending(_ context.Context, digest string, ttl time.Duration) error {
	j.mu.Lock()
	defer j.mu.Unlock()
	j.entries[digest] = j.now().Add(ttl)
	return nil
}

func (j *MemoryJournal) Forget(_ context.Context, digest string) error {
	j.mu.Lock()
	defer j.mu.Unlock()
	delete(j.entries, digest)
	return nil
}
