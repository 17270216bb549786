package jetstream

import (
	"encoding/json"
	"fmt"
	"sync"
	"time"

	"github.com/nats-io/nats.go"
	"go.uber.org/zap"
)

// FetchIterator is the batched-pull iterator returned by Client.Fetch.
// Unlike Subscription's iterator, a non-terminal status frame ends
// the fetch cleanly instead of being silently absorbed: a batch has a
// defined termination, an open-ended subscription does not.
type FetchIterator struct {
	client *Client
	raw    RawSubscription
	iter   *queuedIterator[*Msg]
	logger *zap.Logger

	mu       sync.Mutex
	received int
	bytes    int
	batch    int
	maxBytes int
	done     bool

	hb       *heartbeatMonitor
	expTimer *time.Timer
}

// Fetch issues a single batched pull and returns an iterator over up to
// opts.Batch messages.
func (c *Client) Fetch(stream, durable string, opts FetchOpts) (*FetchIterator, error) {
	if stream == "" || durable == "" {
		return nil, fmt.Errorf("fetch: stream and durable name are required")
	}
	if err := opts.validate(); err != nil {
		return nil, err
	}
	if opts.MaxBytes > 0 && !c.features.Enabled(FeatureMaxBytes) {
		return nil, fmt.Errorf("fetch: max_bytes requires server feature support")
	}
	batch := opts.Batch
	if batch <= 0 {
		batch = 1
	}

	f := &FetchIterator{
		client:   c,
		logger:   c.logger,
		batch:    batch,
		maxBytes: opts.MaxBytes,
	}
	f.iter = newQueuedIterator[*Msg](nil, nil, nil)

	inbox := c.transport.NewInbox()
	raw, err := c.transport.Subscribe(inbox, "", f.handleRaw)
	if err != nil {
		return nil, err
	}
	if err := raw.AutoUnsubscribe(batch); err != nil {
		raw.Unsubscribe()
		return nil, err
	}
	f.raw = raw

	if opts.IdleHeartbeat > 0 {
		f.hb = newHeartbeatMonitor(opts.IdleHeartbeat, defaultMaxOut, opts.Expires, f.onMissedHeartbeat)
	}

	if opts.Expires > 0 {
		f.expTimer = time.AfterFunc(opts.Expires, f.onExpire)
	}

	body, err := json.Marshal(pullRequest{
		Batch:         batch,
		NoWait:        opts.NoWait,
		MaxBytes:      opts.MaxBytes,
		ExpiresNanos:  int64(opts.Expires),
		IdleHeartbeat: int64(opts.IdleHeartbeat),
	})
	if err != nil {
		f.cleanup()
		return nil, err
	}
	if err := c.transport.Publish(consumerMsgNextSubject(c.apiPrefix, stream, durable), inbox, body, nil); err != nil {
		f.cleanup()
		return nil, err
	}

	return f, nil
}

// handleRaw classifies each frame arriving on the fetch's private inbox.
func (f *FetchIterator) handleRaw(raw *nats.Msg) {
	if f.hb != nil {
		f.hb.work()
	}

	if sf, ok := parseStatus(raw); ok {
		if sf.isHeartbeat() || sf.isFlowControl() {
			return
		}
		cls := classify(sf, contextGeneral, f.client.features)
		if cls.kind == kindProtocolUnknown {
			f.logger.Debug("ignoring unrecognized protocol frame", zap.Int("status", sf.code), zap.String("description", sf.description))
			return
		}
		if cls.severity == severityTerminal {
			f.client.metrics.fetchTerminations.WithLabelValues(string(cls.kind)).Inc()
			f.finish(cls.asError(sf))
			return
		}
		// Non-terminal status (e.g. no messages available for a no_wait
		// batch): the batch ends cleanly, not with an error.
		f.client.metrics.fetchTerminations.WithLabelValues("clean").Inc()
		f.finish(nil)
		return
	}

	msg := adaptMsg(raw)
	f.mu.Lock()
	f.received++
	f.bytes += len(msg.Data)
	done := f.received >= f.batch || (f.maxBytes > 0 && f.bytes >= f.maxBytes) || msg.Meta.NumPending == 0
	f.mu.Unlock()

	f.iter.push(msg)
	if done {
		f.client.metrics.fetchTerminations.WithLabelValues("batch_complete").Inc()
		f.finish(nil)
	}
}

func (f *FetchIterator) onMissedHeartbeat(missed int) bool {
	f.logger.Warn("fetch idle heartbeat missed", zap.Int("missed", missed))
	f.client.metrics.missedHeartbeats.Inc()
	f.client.metrics.fetchTerminations.WithLabelValues("heartbeat_missed").Inc()
	f.finish(&Error{Kind: KindIdleHeartbeatMissed, Terminal: true, Description: "idle heartbeat missed"})
	return false
}

func (f *FetchIterator) onExpire() {
	f.client.metrics.fetchTerminations.WithLabelValues("expired").Inc()
	f.finish(nil)
}

// finish stops the iterator exactly once and releases the subscription,
// timer, and heartbeat monitor.
func (f *FetchIterator) finish(err error) {
	f.mu.Lock()
	if f.done {
		f.mu.Unlock()
		return
	}
	f.done = true
	f.mu.Unlock()

	f.iter.stop(err)
	f.cleanup()
}

func (f *FetchIterator) cleanup() {
	if f.expTimer != nil {
		f.expTimer.Stop()
	}
	if f.hb != nil {
		f.hb.stop()
	}
	if f.raw != nil {
		f.raw.Unsubscribe()
	}
}

// Next blocks until a message arrives, the batch completes, or cancel
// fires.
func (f *FetchIterator) Next(cancel <-chan struct{}) (*Msg, error) {
	v, ok, err := f.iter.next(cancel)
	if !ok {
		return nil, err
	}
	return v, nil
}

// Stop ends the fetch early, releasing its subscription and timers.
func (f *FetchIterator) Stop() {
	f.finish(nil)
}
