// Package faketest provides a scriptable adapter.Port fake, following
// this codebase's pkg/testutil convention of hand-written fakes over
// generated mocks. It backs pkg/executor's and pkg/facade's behavior
// tests without a real backend.
package faketest

import (
	"context"
	"sync"
	"sync/atomic"
	"time"

	appErrors "github.com/hardikgo/crossdb/internal/errors"
	"github.com/hardikgo/crossdb/pkg/planmodel"
)

// Adapter is a configurable adapter.Port: each call to Execute sleeps
// for Delay (simulating I/O), then returns either Rows or Err,
// optionally failing the first N attempts before succeeding (to
// exercise the executor's retry path).
type Adapter struct {
	mu sync.Mutex

	// Rows is returned by Execute on success.
	Rows []map[string]any

	// Err, if set, is returned by the first FailuresBeforeSuccess
	// Execute calls, or by every call when FailuresBeforeSuccess is zero.
	Err error

	// FailuresBeforeSuccess is how many leading Execute calls return
	// Err before the adapter starts returning Rows. Zero means Err (if
	// set) always wins.
	FailuresBeforeSuccess int

	// Delay is slept at the start of every Execute call, honoring ctx
	// cancellation.
	Delay time.Duration

	// attempts counts calls made so far, for FailuresBeforeSuccess and
	// for tests asserting retry counts.
	attempts int32

	// concurrentCalls/maxObservedConcurrency let tests assert the
	// executor never exceeds a backend's configured semaphore
	// capacity.
	concurrentCalls  int32
	maxObservedConcurrency int32
}

// NewAdapter returns an Adapter that always succeeds with rows.
func NewAdapter(rows []map[string]any) *Adapter {
	return &Adapter{Rows: rows}
}

func (a *Adapter) TestConnection(ctx context.Context) (bool, error) {
	return a.Err == nil, a.Err
}

func (a *Adapter) Execute(ctx context.Context, op *planmodel.Operation) ([]map[string]any, error) {
	cur := atomic.AddInt32(&a.concurrentCalls, 1)
	defer atomic.AddInt32(&a.concurrentCalls, -1)
	for {
		observed := atomic.LoadInt32(&a.maxObservedConcurrency)
		if cur <= observed || atomic.CompareAndSwapInt32(&a.maxObservedConcurrency, observed, cur) {
			break
		}
	}

	if a.Delay > 0 {
		select {
		case <-time.After(a.Delay):
		case <-ctx.Done():
			return nil, appErrors.New(appErrors.ErrorTypeTimeout, "faketest: execute cancelled")
		}
	}

	attempt := atomic.AddInt32(&a.attempts, 1)

	a.mu.Lock()
	defer a.mu.Unlock()
	if a.Err != nil && int(attempt) <= a.FailuresBeforeSuccess {
		return nil, a.Err
	}
	if a.Err != nil && a.FailuresBeforeSuccess == 0 {
		return nil, a.Err
	}
	return a.Rows, nil
}

func (a *Adapter) IntrospectSchema(ctx context.Context) ([]planmodel.TableDescriptor, error) {
	return nil, nil
}

// Attempts returns how many times Execute has been called so far.
func (a *Adapter) Attempts() int {
	return int(atomic.LoadInt32(&a.attempts))
}

// MaxObservedConcurrency returns the highest number of Execute calls
// that were in flight simultaneously.
func (a *Adapter) MaxObservedConcurrency() int {
	return int(atomic.LoadInt32(&a.maxObservedConcurrency))
}
