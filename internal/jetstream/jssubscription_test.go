package jetstream

import (
	"context"
	"encoding/json"
	"testing"
	"time"

	"github.com/nats-io/nats.go"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestClient(tr *fakeTransport) *Client {
	return NewClient(tr, ClientOpts{IsConnected: func() bool { return true }})
}

// consumerCreateResponse echoes the requested config back the way a real
// broker does, under the server-assigned consumer name.
func consumerCreateResponse(t *testing.T, name string, reqBody []byte) *nats.Msg {
	t.Helper()
	var req struct {
		Stream string              `json:"stream_name"`
		Config nats.ConsumerConfig `json:"config"`
	}
	require.NoError(t, json.Unmarshal(reqBody, &req))
	body, err := json.Marshal(consumerInfoResponse{
		ConsumerInfo: nats.ConsumerInfo{Name: name, Stream: req.Stream, Config: req.Config},
	})
	require.NoError(t, err)
	return &nats.Msg{Data: body}
}

func newOrderedSubscriptionInfo(stream, deliver string) subscriptionInfo {
	return subscriptionInfo{
		stream: stream,
		config: ConsumerConfig{
			Stream:         stream,
			Ordered:        true,
			AckPolicy:      AckPolicyNone,
			MaxDeliver:     1,
			FlowControl:    true,
			DeliverSubject: deliver,
		},
		deliver: deliver,
		name:    "orig-consumer",
	}
}

func TestOrderedSubscriptionAcceptsInOrderMessages(t *testing.T) {
	tr := newFakeTransport()
	c := newTestClient(tr)
	info := newOrderedSubscriptionInfo("S", "deliver.0")
	sub, err := newSubscription(c, info, true, nil)
	require.NoError(t, err)

	reply := ackReplySubject("S", "orig-consumer", 1, 10, 1, 0, 0)
	tr.deliver("deliver.0", &nats.Msg{Subject: "deliver.0", Reply: reply, Data: []byte("a")})

	v, ok, err := sub.typed.iter.next(nil)
	require.True(t, ok)
	require.NoError(t, err)
	assert.Equal(t, "a", string(v.Data))

	sub.mu.Lock()
	assert.Equal(t, uint64(1), sub.info.ordSeq.deliverySeq)
	assert.Equal(t, uint64(10), sub.info.ordSeq.streamSeq)
	sub.mu.Unlock()
}

func TestOrderedSubscriptionGapTriggersRecreate(t *testing.T) {
	tr := newFakeTransport()
	tr.requestFn = func(ctx context.Context, subject string, data []byte, hdr nats.Header) (*nats.Msg, error) {
		if subject == consumerCreateSubject(DefaultAPIPrefix, "S") {
			return consumerCreateResponse(t, "recreated-consumer", data), nil
		}
		t.Fatalf("unexpected request to %s", subject)
		return nil, nil
	}
	c := newTestClient(tr)
	info := newOrderedSubscriptionInfo("S", "deliver.0")
	sub, err := newSubscription(c, info, true, nil)
	require.NoError(t, err)

	// First message establishes the baseline sequence.
	reply1 := ackReplySubject("S", "orig-consumer", 1, 10, 1, 0, 0)
	tr.deliver("deliver.0", &nats.Msg{Subject: "deliver.0", Reply: reply1, Data: []byte("a")})
	v, ok, err := sub.typed.iter.next(nil)
	require.True(t, ok)
	require.NoError(t, err)
	assert.Equal(t, "a", string(v.Data))

	// Second message skips a delivery sequence: gap.
	reply2 := ackReplySubject("S", "orig-consumer", 1, 14, 5, 0, 0)
	tr.deliver("deliver.0", &nats.Msg{Subject: "deliver.0", Reply: reply2, Data: []byte("gap")})

	require.Eventually(t, func() bool {
		sub.mu.Lock()
		defer sub.mu.Unlock()
		return sub.info.name == "recreated-consumer"
	}, time.Second, 5*time.Millisecond, "recreate should have adopted the new consumer")

	sub.mu.Lock()
	assert.Equal(t, uint64(1), sub.info.fc.consumerRestarts)
	assert.Equal(t, uint64(11), sub.info.config.OptStartSeq, "recreate requests start at gap stream_seq+1")
	newDeliver := sub.info.deliver
	sub.mu.Unlock()

	// The gap message itself must never have reached the iterator.
	assert.False(t, sub.typed.iter.stopped())

	// The first message of the recreated consumer arrives on the fresh
	// inbox with delivery_seq 1 and is yielded as if nothing happened.
	require.NotEqual(t, "deliver.0", newDeliver)
	replyNew := ackReplySubject("S", "recreated-consumer", 1, 11, 1, 0, 0)
	tr.deliver(newDeliver, &nats.Msg{Subject: newDeliver, Reply: replyNew, Data: []byte("resumed")})

	v, ok, err = sub.typed.iter.next(nil)
	require.True(t, ok)
	require.NoError(t, err)
	assert.Equal(t, "resumed", string(v.Data))
	assert.Equal(t, uint64(1), v.Meta.ConsumerSeq)
}

func TestOrderedSubscriptionHeartbeatMismatchTriggersRecreate(t *testing.T) {
	tr := newFakeTransport()
	tr.requestFn = func(ctx context.Context, subject string, data []byte, hdr nats.Header) (*nats.Msg, error) {
		return consumerCreateResponse(t, "recreated-consumer", data), nil
	}
	c := newTestClient(tr)
	info := newOrderedSubscriptionInfo("S", "deliver.0")
	sub, err := newSubscription(c, info, true, nil)
	require.NoError(t, err)

	reply1 := ackReplySubject("S", "orig-consumer", 1, 10, 1, 0, 0)
	tr.deliver("deliver.0", &nats.Msg{Subject: "deliver.0", Reply: reply1, Data: []byte("a")})
	_, ok, _ := sub.typed.iter.next(nil)
	require.True(t, ok)

	// Heartbeat claims a different last-consumer-seq than what we recorded.
	tr.deliver("deliver.0", heartbeatMsg("99", ""))

	require.Eventually(t, func() bool {
		sub.mu.Lock()
		defer sub.mu.Unlock()
		return sub.info.fc.consumerRestarts == 1
	}, time.Second, 5*time.Millisecond)
}

func TestOrderedSubscriptionHeartbeatUnstallsServer(t *testing.T) {
	tr := newFakeTransport()
	c := newTestClient(tr)
	info := newOrderedSubscriptionInfo("S", "deliver.0")
	_, err := newSubscription(c, info, true, nil)
	require.NoError(t, err)

	tr.deliver("deliver.0", heartbeatMsg("0", "stalled.subject"))

	require.Eventually(t, func() bool {
		return len(tr.publishedTo("stalled.subject")) == 1
	}, time.Second, 5*time.Millisecond)
}

func TestUnorderedSubscriptionMissedHeartbeatInjectsError(t *testing.T) {
	tr := newFakeTransport()
	c := newTestClient(tr)
	info := subscriptionInfo{
		stream: "S",
		config: ConsumerConfig{
			Stream:         "S",
			Durable:        "d1",
			AckPolicy:      AckPolicyExplicit,
			DeliverSubject: "deliver.0",
			IdleHeartbeat:  10 * time.Millisecond,
		},
		deliver: "deliver.0",
		name:    "d1",
	}
	sub, err := newSubscription(c, info, true, nil)
	require.NoError(t, err)

	_, ok, err := sub.typed.iter.next(nil)
	require.False(t, ok)
	require.Error(t, err)
	jerr, ok2 := err.(*Error)
	require.True(t, ok2)
	assert.Equal(t, KindIdleHeartbeatMissed, jerr.Kind)
}

func TestOrderedSubscriptionDoesNotRecreateWhenDisconnected(t *testing.T) {
	tr := newFakeTransport()
	connected := false
	c := NewClient(tr, ClientOpts{IsConnected: func() bool { return connected }})
	info := newOrderedSubscriptionInfo("S", "deliver.0")
	info.config.IdleHeartbeat = 10 * time.Millisecond
	sub, err := newSubscription(c, info, true, nil)
	require.NoError(t, err)

	time.Sleep(60 * time.Millisecond)

	sub.mu.Lock()
	restarts := sub.info.fc.consumerRestarts
	sub.mu.Unlock()
	assert.Zero(t, restarts, "disconnected ordered subscription must not recreate")
	assert.False(t, sub.typed.iter.stopped(), "disconnected ordered subscription must not surface an error either")
}

func TestSubscriptionDestroyDrainsThenDeletes(t *testing.T) {
	tr := newFakeTransport()
	var deletedSubject string
	tr.requestFn = func(ctx context.Context, subject string, data []byte, hdr nats.Header) (*nats.Msg, error) {
		deletedSubject = subject
		body, _ := json.Marshal(consumerDeleteResponse{Success: true})
		return &nats.Msg{Data: body}, nil
	}
	c := newTestClient(tr)
	info := subscriptionInfo{
		stream:  "S",
		config:  ConsumerConfig{Stream: "S", Durable: "d1", AckPolicy: AckPolicyExplicit, DeliverSubject: "deliver.0"},
		deliver: "deliver.0",
		name:    "d1",
	}
	sub, err := newSubscription(c, info, true, nil)
	require.NoError(t, err)

	require.NoError(t, sub.Destroy(context.Background()))
	assert.Equal(t, consumerDeleteSubject(DefaultAPIPrefix, "S", "d1"), deletedSubject)
	assert.True(t, sub.typed.raw.(*fakeRawSub).drained)

	// Idempotent.
	require.NoError(t, sub.Destroy(context.Background()))
}
