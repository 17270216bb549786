package jetstream

import (
	"context"
	"errors"
	"time"

	"github.com/nats-io/nats.go"
)

// RawSubscription is the subset of a transport subscription the delivery
// core needs: cancellation and the batch-limit the server-side pull
// protocol relies on (the transport stops delivering after that many
// messages).
type RawSubscription interface {
	Unsubscribe() error
	Drain() error
	AutoUnsubscribe(max int) error
}

// Transport is the messaging layer this package is built on: subject-based
// publish/subscribe, request/reply, inbox allocation, and a feature-support
// query. Everything below this interface (header codec, connection
// lifecycle, reconnection) is out of scope for this package.
type Transport interface {
	Request(ctx context.Context, subject string, data []byte, hdr nats.Header) (*nats.Msg, error)
	Publish(subject, reply string, data []byte, hdr nats.Header) error
	Subscribe(subject, queue string, cb func(*nats.Msg)) (RawSubscription, error)
	NewInbox() string
	Features() *FeatureSet
}

// connTransport adapts a live *nats.Conn to Transport. This is the only
// place in the package that talks to the wire; everything above it is pure
// protocol logic.
type connTransport struct {
	nc       *nats.Conn
	features *FeatureSet
}

// NewTransport builds a Transport over an established NATS connection. features
// may be nil, in which case every gated feature (e.g. max_bytes pull
// support) is treated as unavailable.
func NewTransport(nc *nats.Conn, features *FeatureSet) Transport {
	if features == nil {
		features = NewFeatureSet()
	}
	return &connTransport{nc: nc, features: features}
}

func (t *connTransport) Request(ctx context.Context, subject string, data []byte, hdr nats.Header) (*nats.Msg, error) {
	msg := &nats.Msg{Subject: subject, Data: data, Header: hdr}
	reply, err := t.nc.RequestMsgWithContext(ctx, msg)
	if err != nil {
		if errors.Is(err, nats.ErrTimeout) || errors.Is(err, context.DeadlineExceeded) {
			return nil, &Error{Kind: KindRequestTimeout, Terminal: false, Description: err.Error()}
		}
		return nil, &Error{Kind: KindRequestFailed, Terminal: true, Description: err.Error()}
	}
	return reply, nil
}

func (t *connTransport) Publish(subject, reply string, data []byte, hdr nats.Header) error {
	return t.nc.PublishMsg(&nats.Msg{Subject: subject, Reply: reply, Data: data, Header: hdr})
}

func (t *connTransport) Subscribe(subject, queue string, cb func(*nats.Msg)) (RawSubscription, error) {
	if queue != "" {
		return t.nc.QueueSubscribe(subject, queue, cb)
	}
	return t.nc.Subscribe(subject, cb)
}

func (t *connTransport) NewInbox() string {
	return t.nc.NewInbox()
}

func (t *connTransport) Features() *FeatureSet {
	return t.features
}

// defaultRequestTimeout is used when a caller does not supply one.
const defaultRequestTimeout = 5 * time.Second
