package jetstream

import (
	"sync"
)

// protocolFilterFn runs before enqueue and drops protocol-only frames that
// have already been observed.
type protocolFilterFn[T any] func(t T) (keep bool)

// ingestionFilterFn splits a frame into "payload for the application" and
// "protocol observation for internal bookkeeping". ingest=false discards
// the payload while protocol=true still counts it for flow
// control/ordering.
type ingestionFilterFn[T any] func(t T) (ingest bool, protocol bool)

// dispatchedFn is invoked after each successful yield; used for auto-ack
// and for stopping the iterator once batch targets are reached.
type dispatchedFn[T any] func(t T)

// queuedIterator is a cancellable, asynchronous sequence of typed values
// produced from incoming frames. Its buffer has no capacity limit: push
// never blocks and never drops a value while the iterator is open.
type queuedIterator[T any] struct {
	mu        sync.Mutex
	cond      *sync.Cond
	buf       []T
	err       error
	closed    bool
	protocol  protocolFilterFn[T]
	ingestion ingestionFilterFn[T]
	dispatch  dispatchedFn[T]
}

// newQueuedIterator builds an iterator with optional filter/dispatch hooks.
// Any of them may be nil.
func newQueuedIterator[T any](protocol protocolFilterFn[T], ingestion ingestionFilterFn[T], dispatch dispatchedFn[T]) *queuedIterator[T] {
	it := &queuedIterator[T]{protocol: protocol, ingestion: ingestion, dispatch: dispatch}
	it.cond = sync.NewCond(&it.mu)
	return it
}

// push enqueues a value produced from an incoming frame. It applies the
// ingestion filter first (which may veto the payload while still counting
// it as a protocol observation), then the protocol filter.
func (it *queuedIterator[T]) push(v T) {
	if it.ingestion != nil {
		// The protocol observation already happened inside the hook;
		// a vetoed payload just never reaches the buffer.
		if ingest, _ := it.ingestion(v); !ingest {
			return
		}
	}
	if it.protocol != nil && !it.protocol(v) {
		return
	}
	it.mu.Lock()
	if it.closed {
		it.mu.Unlock()
		return
	}
	it.buf = append(it.buf, v)
	it.mu.Unlock()
	it.cond.Signal()
}

// stop terminates the iterator. A subsequent next() drains any buffered
// values first, then surfaces err (nil means clean end-of-sequence).
func (it *queuedIterator[T]) stop(err error) {
	it.mu.Lock()
	defer it.mu.Unlock()
	if it.closed {
		return
	}
	it.closed = true
	it.err = err
	it.cond.Broadcast()
}

// next blocks until a value is available, the iterator is stopped, or
// cancel fires. ok is false once the buffered values are exhausted and the
// iterator has been stopped; err carries the stop reason, if any.
func (it *queuedIterator[T]) next(cancel <-chan struct{}) (v T, ok bool, err error) {
	stopSignal := make(chan struct{})
	if cancel != nil {
		go func() {
			select {
			case <-cancel:
				it.mu.Lock()
				it.cond.Broadcast()
				it.mu.Unlock()
			case <-stopSignal:
			}
		}()
		defer close(stopSignal)
	}

	it.mu.Lock()
	defer it.mu.Unlock()
	for len(it.buf) == 0 && !it.closed {
		if cancel != nil {
			select {
			case <-cancel:
				return v, false, nil
			default:
			}
		}
		it.cond.Wait()
	}
	if len(it.buf) > 0 {
		v = it.buf[0]
		it.buf = it.buf[1:]
		if it.dispatch != nil {
			it.dispatch(v)
		}
		return v, true, nil
	}
	return v, false, it.err
}

// stopped reports whether stop() has been called, regardless of remaining
// buffered values.
func (it *queuedIterator[T]) stopped() bool {
	it.mu.Lock()
	defer it.mu.Unlock()
	return it.closed
}
