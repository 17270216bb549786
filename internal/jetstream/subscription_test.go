package jetstream

import (
	"testing"

	"github.com/nats-io/nats.go"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestTypedSubscriptionFlowControlAutoReplies(t *testing.T) {
	tr := newFakeTransport()
	sub, err := newTypedSubscription(tr, "deliver.1", typedSubOpts{iterator: true})
	require.NoError(t, err)

	tr.deliver("deliver.1", flowControlMsg("fc.reply.1"))

	replies := tr.publishedTo("fc.reply.1")
	require.Len(t, replies, 1)
	assert.Empty(t, replies[0].data)
	_ = sub
}

func TestTypedSubscriptionFlowControlSkipsAutoReplyWhenConsumed(t *testing.T) {
	tr := newFakeTransport()
	sub, err := newTypedSubscription(tr, "deliver.1", typedSubOpts{iterator: true})
	require.NoError(t, err)
	sub.onFlowControl = func(*nats.Msg) bool { return true }

	tr.deliver("deliver.1", flowControlMsg("fc.reply.1"))

	assert.Empty(t, tr.publishedTo("fc.reply.1"))
}

func TestTypedSubscriptionUnknown100FrameIsDropped(t *testing.T) {
	tr := newFakeTransport()
	sub, err := newTypedSubscription(tr, "deliver.1", typedSubOpts{iterator: true})
	require.NoError(t, err)

	var heartbeats int
	sub.onHeartbeat = func(statusFrame, *nats.Msg) { heartbeats++ }

	// A 100-status frame that is neither heartbeat nor flow control must
	// not trigger a flow-control reply, a heartbeat observation, or an
	// iterator error.
	unknown := statusMsg(100, "something new the server made up")
	unknown.Reply = "fc.reply.1"
	tr.deliver("deliver.1", unknown)

	assert.Empty(t, tr.publishedTo("fc.reply.1"))
	assert.Zero(t, heartbeats)
	assert.False(t, sub.iter.stopped())
}

func TestTypedSubscriptionHeartbeatRoutesToHook(t *testing.T) {
	tr := newFakeTransport()
	sub, err := newTypedSubscription(tr, "deliver.1", typedSubOpts{iterator: true})
	require.NoError(t, err)

	var seen *nats.Msg
	sub.onHeartbeat = func(sf statusFrame, raw *nats.Msg) { seen = raw }

	hb := heartbeatMsg("5", "")
	tr.deliver("deliver.1", hb)
	require.NotNil(t, seen)
	assert.Equal(t, "5", seen.Header.Get(LastConsumerSeqHdr))
}

func TestTypedSubscriptionIteratorHidesTransientErrors(t *testing.T) {
	tr := newFakeTransport()
	sub, err := newTypedSubscription(tr, "deliver.1", typedSubOpts{iterator: true, classifyCtx: contextGeneral})
	require.NoError(t, err)

	tr.deliver("deliver.1", statusMsg(404, "No Messages"))

	// A transient status must not stop the iterator.
	assert.False(t, sub.iter.stopped())
}

func TestTypedSubscriptionIteratorStopsOnTerminalError(t *testing.T) {
	tr := newFakeTransport()
	sub, err := newTypedSubscription(tr, "deliver.1", typedSubOpts{iterator: true, classifyCtx: contextGeneral})
	require.NoError(t, err)

	tr.deliver("deliver.1", statusMsg(409, "Exceeded MaxBatch"))

	require.True(t, sub.iter.stopped())
	_, _, err = sub.iter.next(nil)
	require.Error(t, err)
	jerr, ok := err.(*Error)
	require.True(t, ok)
	assert.Equal(t, KindMaxBatchExceeded, jerr.Kind)
}

func TestTypedSubscriptionCallbackSurfacesAllClassifiedErrors(t *testing.T) {
	tr := newFakeTransport()
	var gotErr error
	var callbackCalls int
	sub, err := newTypedSubscription(tr, "deliver.1", typedSubOpts{
		classifyCtx: contextGeneral,
		callback: func(m *Msg, err error) {
			callbackCalls++
			gotErr = err
		},
	})
	require.NoError(t, err)
	_ = sub

	tr.deliver("deliver.1", statusMsg(404, "No Messages"))
	require.Equal(t, 1, callbackCalls)
	require.Error(t, gotErr)
	jerr, ok := gotErr.(*Error)
	require.True(t, ok)
	assert.Equal(t, KindNoMessages, jerr.Kind)
}

func TestTypedSubscriptionOnDataVetoDropsMessage(t *testing.T) {
	tr := newFakeTransport()
	sub, err := newTypedSubscription(tr, "deliver.1", typedSubOpts{iterator: true})
	require.NoError(t, err)
	sub.onData = func(m *Msg) bool { return string(m.Data) != "vetoed" }

	reply := ackReplySubject("S", "C", 1, 1, 1, 0, 0)
	tr.deliver("deliver.1", &nats.Msg{Subject: "deliver.1", Reply: reply, Data: []byte("vetoed")})
	reply2 := ackReplySubject("S", "C", 1, 2, 2, 0, 0)
	tr.deliver("deliver.1", &nats.Msg{Subject: "deliver.1", Reply: reply2, Data: []byte("kept")})

	v, ok, err := sub.iter.next(nil)
	require.True(t, ok)
	require.NoError(t, err)
	assert.Equal(t, "kept", string(v.Data), "vetoed data message must not reach the iterator")
}

func TestTypedSubscriptionDataMessageReachesIterator(t *testing.T) {
	tr := newFakeTransport()
	sub, err := newTypedSubscription(tr, "deliver.1", typedSubOpts{iterator: true})
	require.NoError(t, err)

	reply := ackReplySubject("S", "C", 1, 1, 1, 0, 0)
	tr.deliver("deliver.1", &nats.Msg{Subject: "deliver.1", Reply: reply, Data: []byte("hello")})

	v, ok, err := sub.iter.next(nil)
	require.True(t, ok)
	require.NoError(t, err)
	assert.Equal(t, "hello", string(v.Data))
	assert.Equal(t, uint64(1), v.Meta.StreamSeq)
}

func TestTypedSubscriptionUnsubscribeIsIdempotent(t *testing.T) {
	tr := newFakeTransport()
	sub, err := newTypedSubscription(tr, "deliver.1", typedSubOpts{iterator: true})
	require.NoError(t, err)

	require.NoError(t, sub.unsubscribe())
	require.NoError(t, sub.unsubscribe())
	assert.True(t, sub.raw.(*fakeRawSub).unsubscribed)
}
