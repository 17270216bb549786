package jetstream

import (
	"errors"
	"sync"

	"github.com/nats-io/nats.go"
	"go.uber.org/zap"
)

// typedSubscription wraps a raw transport subscription on a deliver inbox,
// adapting raw messages into typed JS messages, installing the
// flow-control auto-reply protocol filter, and (when not in manual-ack
// mode) auto-acking on dispatch.
type typedSubscription struct {
	transport      Transport
	raw            RawSubscription
	deliverSubject string
	features       *FeatureSet
	ctx            classifyContext
	logger         *zap.Logger

	mu       sync.Mutex
	stopped  bool
	iter     *queuedIterator[*Msg]
	callback func(*Msg, error)

	// onHeartbeat/onFlowControl/onData are hooks the JetStream subscription
	// layer installs to observe ordered-consumer sequencing and recreate
	// triggers without typedSubscription knowing about them.
	onHeartbeat   func(statusFrame, *nats.Msg)
	onFlowControl func(*nats.Msg) (consumed bool)
	onData        func(*Msg) (keep bool)
}

type typedSubOpts struct {
	queue       string
	max         int
	iterator    bool
	callback    func(*Msg, error)
	protocol    protocolFilterFn[*Msg]
	ingestion   ingestionFilterFn[*Msg]
	dispatch    dispatchedFn[*Msg]
	classifyCtx classifyContext
	features    *FeatureSet
	logger      *zap.Logger
}

// newTypedSubscription subscribes on subject and returns a subscription
// adapter. Exactly one of opts.iterator or opts.callback selects the
// delivery mode: the iterator adapter hides non-terminal errors, the
// callback adapter surfaces all classified errors.
func newTypedSubscription(transport Transport, subject string, opts typedSubOpts) (*typedSubscription, error) {
	logger := opts.logger
	if logger == nil {
		logger = zap.NewNop()
	}
	s := &typedSubscription{
		transport:      transport,
		deliverSubject: subject,
		features:       opts.features,
		ctx:            opts.classifyCtx,
		logger:         logger,
		callback:       opts.callback,
	}
	if opts.iterator {
		s.iter = newQueuedIterator(opts.protocol, opts.ingestion, opts.dispatch)
	}

	raw, err := transport.Subscribe(subject, opts.queue, s.handleRaw)
	if err != nil {
		return nil, err
	}
	if opts.max > 0 {
		if err := raw.AutoUnsubscribe(opts.max); err != nil {
			raw.Unsubscribe()
			return nil, err
		}
	}
	s.raw = raw
	return s, nil
}

// handleRaw is the transport's per-message callback. It distinguishes
// heartbeat, flow-control, data, and status frames and routes each one.
func (s *typedSubscription) handleRaw(raw *nats.Msg) {
	if sf, ok := parseStatus(raw); ok {
		switch {
		case sf.isHeartbeat():
			if s.onHeartbeat != nil {
				s.onHeartbeat(sf, raw)
			}
			return
		case sf.isFlowControl():
			consumed := false
			if s.onFlowControl != nil {
				consumed = s.onFlowControl(raw)
			}
			if !consumed && raw.Reply != "" {
				if err := s.transport.Publish(raw.Reply, "", nil, nil); err != nil {
					s.logger.Debug("flow control reply failed", zap.Error(err))
				}
			}
			return
		default:
			cls := classify(sf, s.ctx, s.features)
			if cls.kind == kindProtocolUnknown {
				s.logger.Debug("ignoring unrecognized protocol frame", zap.Int("status", sf.code), zap.String("description", sf.description))
				return
			}
			s.deliver(nil, cls.asError(sf))
			return
		}
	}

	msg := adaptMsg(raw)
	if s.onData != nil && !s.onData(msg) {
		return
	}
	s.deliver(msg, nil)
}

// deliver routes a decoded message/error to the iterator or callback,
// applying the mode-specific error-visibility rule.
func (s *typedSubscription) deliver(msg *Msg, err error) {
	if s.iter != nil {
		if err != nil {
			if jerr, ok := err.(*Error); ok && !jerr.Terminal {
				// Transient: hidden from the iterator.
				return
			}
			s.iter.stop(err)
			return
		}
		s.iter.push(msg)
		return
	}
	if s.callback != nil {
		s.callback(msg, err)
	}
}

// next reads the next value in iterator mode.
func (s *typedSubscription) next(cancel <-chan struct{}) (*Msg, error) {
	if s.iter == nil {
		return nil, errors.New("subscription is in callback mode")
	}
	v, ok, err := s.iter.next(cancel)
	if !ok {
		if err != nil {
			return nil, err
		}
		return nil, nil
	}
	return v, nil
}

func (s *typedSubscription) stopIterator(err error) {
	if s.iter != nil {
		s.iter.stop(err)
	}
}

func (s *typedSubscription) unsubscribe() error {
	s.mu.Lock()
	if s.stopped {
		s.mu.Unlock()
		return nil
	}
	s.stopped = true
	s.mu.Unlock()
	s.stopIterator(nil)
	if s.raw == nil {
		return nil
	}
	return s.raw.Unsubscribe()
}

func (s *typedSubscription) drain() error {
	s.mu.Lock()
	if s.stopped {
		s.mu.Unlock()
		return nil
	}
	s.stopped = true
	s.mu.Unlock()
	if s.raw == nil {
		return nil
	}
	return s.raw.Drain()
}

// rebind swaps the underlying raw subscription for a freshly allocated
// inbox, used by the ordered-consumer recreate protocol.
func (s *typedSubscription) rebind(newSubject string) error {
	if s.raw != nil {
		s.raw.Unsubscribe()
	}
	raw, err := s.transport.Subscribe(newSubject, "", s.handleRaw)
	if err != nil {
		return err
	}
	s.deliverSubject = newSubject
	s.raw = raw
	return nil
}
