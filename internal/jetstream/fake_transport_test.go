package jetstream

import (
	"context"
	"fmt"
	"strconv"
	"sync"

	"github.com/nats-io/nats.go"
)

// fakeRawSub is a no-op RawSubscription that records the calls made to it,
// standing in for the real *nats.Subscription in unit tests.
type fakeRawSub struct {
	mu           sync.Mutex
	subject      string
	unsubscribed bool
	drained      bool
	autoUnsub    int
}

func (f *fakeRawSub) Unsubscribe() error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.unsubscribed = true
	return nil
}

func (f *fakeRawSub) Drain() error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.drained = true
	return nil
}

func (f *fakeRawSub) AutoUnsubscribe(max int) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.autoUnsub = max
	return nil
}

type publishedMsg struct {
	subject string
	reply   string
	data    []byte
	hdr     nats.Header
}

// fakeTransport implements Transport entirely in memory: Request is
// answered by a pluggable function, Subscribe registers a callback a test
// can drive directly by calling deliver, and Publish/NewInbox are recorded
// for assertions.
type fakeTransport struct {
	mu        sync.Mutex
	inboxSeq  int
	features  *FeatureSet
	subs      map[string]func(*nats.Msg)
	published []publishedMsg
	requestFn func(ctx context.Context, subject string, data []byte, hdr nats.Header) (*nats.Msg, error)
}

func newFakeTransport() *fakeTransport {
	return &fakeTransport{features: NewFeatureSet(), subs: map[string]func(*nats.Msg){}}
}

func (t *fakeTransport) Request(ctx context.Context, subject string, data []byte, hdr nats.Header) (*nats.Msg, error) {
	if t.requestFn != nil {
		return t.requestFn(ctx, subject, data, hdr)
	}
	return nil, fmt.Errorf("fakeTransport: no handler registered for %s", subject)
}

func (t *fakeTransport) Publish(subject, reply string, data []byte, hdr nats.Header) error {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.published = append(t.published, publishedMsg{subject: subject, reply: reply, data: data, hdr: hdr})
	return nil
}

func (t *fakeTransport) Subscribe(subject, queue string, cb func(*nats.Msg)) (RawSubscription, error) {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.subs[subject] = cb
	return &fakeRawSub{subject: subject}, nil
}

func (t *fakeTransport) NewInbox() string {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.inboxSeq++
	return "_INBOX.test." + strconv.Itoa(t.inboxSeq)
}

func (t *fakeTransport) Features() *FeatureSet {
	return t.features
}

// deliver invokes the callback registered for subject, simulating a frame
// arriving from the broker.
func (t *fakeTransport) deliver(subject string, msg *nats.Msg) {
	t.mu.Lock()
	cb := t.subs[subject]
	t.mu.Unlock()
	if cb != nil {
		cb(msg)
	}
}

func (t *fakeTransport) publishedTo(subject string) []publishedMsg {
	t.mu.Lock()
	defer t.mu.Unlock()
	var out []publishedMsg
	for _, p := range t.published {
		if p.subject == subject {
			out = append(out, p)
		}
	}
	return out
}

// ackReplySubject builds a synthetic $JS.ACK reply subject matching the
// token layout parseMsgMetadata expects.
func ackReplySubject(stream, consumer string, delivered, streamSeq, consumerSeq uint64, tsNanos int64, pending uint64) string {
	return fmt.Sprintf("$JS.ACK.%s.%s.%d.%d.%d.%d.%d", stream, consumer, delivered, streamSeq, consumerSeq, tsNanos, pending)
}

func statusMsg(code int, description string) *nats.Msg {
	hdr := nats.Header{}
	hdr.Set(statusHdr, strconv.Itoa(code))
	if description != "" {
		hdr.Set(descrHdr, description)
	}
	return &nats.Msg{Header: hdr}
}

func heartbeatMsg(lastConsumer string, stalled string) *nats.Msg {
	hdr := nats.Header{}
	hdr.Set(statusHdr, "100")
	hdr.Set(descrHdr, idleHeartbeatDescription)
	if lastConsumer != "" {
		hdr.Set(LastConsumerSeqHdr, lastConsumer)
	}
	if stalled != "" {
		hdr.Set(ConsumerStalledHdr, stalled)
	}
	return &nats.Msg{Header: hdr}
}

func flowControlMsg(reply string) *nats.Msg {
	hdr := nats.Header{}
	hdr.Set(statusHdr, "100")
	hdr.Set(descrHdr, flowControlDescription)
	return &nats.Msg{Header: hdr, Reply: reply}
}
