package jetstream

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/nats-io/nats.go"
	"go.uber.org/zap"
)

// Subscription wraps a typedSubscription with JetStream-specific behavior:
// ordered-consumer recovery, heartbeat wiring, and destroy/info RPCs. It
// holds a non-owning handle back to the client that created it purely to
// issue recreate and destroy RPCs; the client owns the subscription, not
// the reverse.
type Subscription struct {
	client *Client
	typed  *typedSubscription
	logger *zap.Logger

	mu          sync.Mutex
	info        subscriptionInfo
	hb          *heartbeatMonitor
	closed      bool
	recreating  bool
	isConnected func() bool
}

func newSubscription(client *Client, info subscriptionInfo, iterator bool, callback func(*Msg, error)) (*Subscription, error) {
	s := &Subscription{
		client:      client,
		info:        info,
		logger:      client.logger,
		isConnected: client.isConnected,
	}

	autoAck := info.config.AckPolicy != AckPolicyNone && !info.config.ManualAck

	opts := typedSubOpts{
		queue:       info.config.DeliverGroup,
		max:         info.config.MaxMessages,
		iterator:    iterator,
		classifyCtx: contextGeneral,
		features:    client.features,
		logger:      client.logger,
	}
	opts.callback = callback
	if autoAck {
		opts.dispatch = func(m *Msg) {
			if m != nil {
				m.Ack()
			}
		}
		if callback != nil {
			opts.callback = func(m *Msg, err error) {
				if err == nil && m != nil {
					m.Ack()
				}
				callback(m, err)
			}
		}
	}

	typed, err := newTypedSubscription(client.transport, info.deliver, opts)
	if err != nil {
		return nil, err
	}
	s.typed = typed
	typed.onData = s.onData
	typed.onHeartbeat = s.onHeartbeat
	typed.onFlowControl = s.onFlowControl

	if info.config.IdleHeartbeat > 0 {
		s.installHeartbeatMonitor(info.config.IdleHeartbeat, 0)
	}
	return s, nil
}

// installHeartbeatMonitor cancels any existing monitor before replacing
// it; at most one heartbeat monitor exists per subscription at a time.
func (s *Subscription) installHeartbeatMonitor(interval time.Duration, cancelAfter time.Duration) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.hb != nil {
		s.hb.stop()
	}
	s.hb = newHeartbeatMonitor(interval, defaultMaxOut, cancelAfter, s.onMissedHeartbeat)
}

func (s *Subscription) cancelHeartbeatMonitor() {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.hb != nil {
		s.hb.stop()
		s.hb = nil
	}
}

// onData runs the ordered-consumer sequence check: every accepted message
// must carry the recorded delivery sequence plus one.
func (s *Subscription) onData(m *Msg) bool {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.hb != nil {
		s.hb.work()
	}

	if !s.info.config.Ordered {
		return true
	}

	expected := s.info.ordSeq.deliverySeq + 1
	if m.Meta.ConsumerSeq != expected {
		gapAt := s.info.ordSeq.streamSeq + 1
		go s.recreate(gapAt)
		return false
	}
	s.info.ordSeq.deliverySeq = m.Meta.ConsumerSeq
	s.info.ordSeq.streamSeq = m.Meta.StreamSeq
	return true
}

// onFlowControl counts the frame; returning false leaves the auto-reply to
// the typed subscription.
func (s *Subscription) onFlowControl(*nats.Msg) bool {
	s.mu.Lock()
	s.info.fc.fcCount++
	s.mu.Unlock()
	return false
}

// onHeartbeat records the heartbeat, unstalls the server when asked to,
// and (ordered only) treats a last-consumer-seq mismatch as a gap.
func (s *Subscription) onHeartbeat(sf statusFrame, raw *nats.Msg) {
	s.mu.Lock()
	if s.hb != nil {
		s.hb.work()
	}
	s.info.fc.heartbeatCount++
	ordered := s.info.config.Ordered
	recordedDeliverySeq := s.info.ordSeq.deliverySeq
	streamSeq := s.info.ordSeq.streamSeq
	s.mu.Unlock()

	lastConsumer := raw.Header.Get(LastConsumerSeqHdr)
	stalled := raw.Header.Get(ConsumerStalledHdr)
	if stalled != "" {
		if err := s.client.transport.Publish(stalled, "", nil, nil); err != nil {
			s.logger.Debug("failed to unstall consumer", zap.Error(err))
		}
	}

	if !ordered || lastConsumer == "" {
		return
	}
	if parseUintOr(lastConsumer, 0) != recordedDeliverySeq {
		go s.recreate(streamSeq + 1)
	}
}

// onMissedHeartbeat escalates a heartbeat outage. An unordered consumer
// surfaces the condition as an error; an ordered one silently recreates.
func (s *Subscription) onMissedHeartbeat(missed int) bool {
	s.mu.Lock()
	ordered := s.info.config.Ordered
	streamSeq := s.info.ordSeq.streamSeq
	s.mu.Unlock()

	s.client.metrics.missedHeartbeats.Inc()

	if !ordered {
		s.logger.Warn("idle heartbeat missed", zap.Int("missed", missed))
		s.typed.deliver(nil, &Error{Kind: KindIdleHeartbeatMissed, Terminal: true, Code: 409, Description: fmt.Sprintf("%d idle heartbeats missed", missed)})
		return false
	}

	if s.isConnected != nil && !s.isConnected() {
		// Disconnected: do nothing until reconnect.
		return true
	}
	go s.recreate(streamSeq + 1)
	return true
}

// recreate rebinds the subscription to a fresh inbox and recreates the
// server-side ordered consumer starting at requestedStreamSeq.
func (s *Subscription) recreate(requestedStreamSeq uint64) {
	s.mu.Lock()
	if s.closed || s.recreating {
		s.mu.Unlock()
		return
	}
	s.recreating = true
	s.mu.Unlock()

	defer func() {
		s.mu.Lock()
		s.recreating = false
		s.mu.Unlock()
	}()

	newDeliver := s.client.transport.NewInbox()
	if err := s.typed.rebind(newDeliver); err != nil {
		s.typed.deliver(nil, &Error{Kind: KindRequestFailed, Terminal: true, Description: err.Error()})
		return
	}

	s.mu.Lock()
	s.info.ordSeq = seqPair{streamSeq: requestedStreamSeq - 1, deliverySeq: 0}
	s.info.fc = flowControlState{consumerRestarts: s.info.fc.consumerRestarts + 1}
	s.info.config.DeliverSubject = newDeliver
	s.info.config.DeliverPolicy = DeliverByStartSequence
	s.info.config.OptStartSeq = requestedStreamSeq
	s.info.deliver = newDeliver
	cfg := s.info.config
	stream := s.info.stream
	restarts := s.info.fc.consumerRestarts
	s.mu.Unlock()

	s.logger.Warn("recreating ordered consumer", zap.String("stream", stream), zap.Uint64("start_seq", requestedStreamSeq), zap.Uint64("restarts", restarts))
	s.client.metrics.consumerRestarts.Inc()

	ctx, cancel := context.WithTimeout(context.Background(), defaultRequestTimeout)
	defer cancel()
	info, err := s.client.createConsumer(ctx, stream, cfg)
	if err != nil {
		s.typed.deliver(nil, &Error{Kind: KindRequestFailed, Terminal: true, Description: err.Error()})
		return
	}

	s.mu.Lock()
	s.info.name = info.Name
	s.info.config = consumerConfigFromInfo(info, s.info.config.Ordered)
	s.mu.Unlock()
}

func parseUintOr(s string, def uint64) uint64 {
	var v uint64
	var any bool
	for _, r := range s {
		if r < '0' || r > '9' {
			return def
		}
		any = true
		v = v*10 + uint64(r-'0')
	}
	if !any {
		return def
	}
	return v
}

// ConsumerInfo issues a CONSUMER.INFO RPC and caches the result.
func (s *Subscription) ConsumerInfo(ctx context.Context) (*nats.ConsumerInfo, error) {
	s.mu.Lock()
	stream, name := s.info.stream, s.consumerName()
	s.mu.Unlock()
	resp, err := s.client.consumerInfo(ctx, stream, name)
	if err != nil {
		return nil, err
	}
	s.mu.Lock()
	s.info.last = &resp.ConsumerInfo
	s.mu.Unlock()
	return &resp.ConsumerInfo, nil
}

func (s *Subscription) consumerName() string {
	if s.info.config.Durable != "" {
		return s.info.config.Durable
	}
	return s.info.name
}

// Destroy drains the subscription, then issues a CONSUMER.DELETE RPC.
func (s *Subscription) Destroy(ctx context.Context) error {
	s.mu.Lock()
	if s.closed {
		s.mu.Unlock()
		return nil
	}
	s.closed = true
	stream, name := s.info.stream, s.consumerName()
	s.mu.Unlock()

	s.cancelHeartbeatMonitor()
	if err := s.typed.drain(); err != nil {
		s.logger.Debug("drain before destroy failed", zap.Error(err))
	}
	return s.client.deleteConsumer(ctx, stream, name)
}

// Unsubscribe cancels the subscription's heartbeat monitor and inbox
// subscription; calling it again is a no-op.
func (s *Subscription) Unsubscribe() error {
	s.mu.Lock()
	if s.closed {
		s.mu.Unlock()
		return nil
	}
	s.closed = true
	s.mu.Unlock()
	s.cancelHeartbeatMonitor()
	return s.typed.unsubscribe()
}

// Messages returns the next message in iterator mode; blocks until one
// arrives, the subscription is closed, or cancel fires.
func (s *Subscription) Messages(cancel <-chan struct{}) (*Msg, error) {
	return s.typed.next(cancel)
}
