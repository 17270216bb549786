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

func pubAckMsg(t *testing.T, resp pubAckResponse) *nats.Msg {
	t.Helper()
	body, err := json.Marshal(resp)
	require.NoError(t, err)
	return &nats.Msg{Data: body}
}

func TestPublishRetriesOn503WithinBudget(t *testing.T) {
	tr := newFakeTransport()
	var calls int
	tr.requestFn = func(ctx context.Context, subject string, data []byte, hdr nats.Header) (*nats.Msg, error) {
		calls++
		if calls < 3 {
			return statusMsg(503, "Service Unavailable"), nil
		}
		return pubAckMsg(t, pubAckResponse{Stream: "S", Seq: 42}), nil
	}
	c := newTestClient(tr)
	ack, err := c.Publish(context.Background(), "orders.new", []byte("x"), PubOpts{Retries: 3, RetryDelay: time.Millisecond})
	require.NoError(t, err)
	assert.Equal(t, "S", ack.Stream)
	assert.Equal(t, uint64(42), ack.Seq)
	assert.Equal(t, 3, calls)
}

func TestPublishGivesUpAfterRetriesExhausted(t *testing.T) {
	tr := newFakeTransport()
	var calls int
	tr.requestFn = func(ctx context.Context, subject string, data []byte, hdr nats.Header) (*nats.Msg, error) {
		calls++
		return statusMsg(503, "Service Unavailable"), nil
	}
	c := newTestClient(tr)
	_, err := c.Publish(context.Background(), "orders.new", []byte("x"), PubOpts{Retries: 2, RetryDelay: time.Millisecond})
	require.Error(t, err)
	jerr, ok := err.(*Error)
	require.True(t, ok)
	assert.Equal(t, KindBrokerUnavailable, jerr.Kind)
	assert.Equal(t, 2, calls, "at most Retries wire requests")
}

func TestPublishReportsDuplicateAck(t *testing.T) {
	tr := newFakeTransport()
	tr.requestFn = func(ctx context.Context, subject string, data []byte, hdr nats.Header) (*nats.Msg, error) {
		assert.Equal(t, "dedupe-1", hdr.Get(MsgIDHdr))
		return pubAckMsg(t, pubAckResponse{Stream: "S", Seq: 7, Duplicate: true}), nil
	}
	c := newTestClient(tr)
	ack, err := c.Publish(context.Background(), "orders.new", []byte("x"), PubOpts{MsgID: "dedupe-1"})
	require.NoError(t, err)
	assert.True(t, ack.Duplicate)
}

func TestPublishInvalidAckIsNeverRetried(t *testing.T) {
	tr := newFakeTransport()
	var calls int
	tr.requestFn = func(ctx context.Context, subject string, data []byte, hdr nats.Header) (*nats.Msg, error) {
		calls++
		return pubAckMsg(t, pubAckResponse{Seq: 1}), nil // no stream name
	}
	c := newTestClient(tr)
	_, err := c.Publish(context.Background(), "orders.new", []byte("x"), PubOpts{Retries: 3, RetryDelay: time.Millisecond})
	require.Error(t, err)
	assert.Same(t, ErrInvalidAck, err)
	assert.Equal(t, 1, calls, "invalid ack is a terminal condition, not a retry trigger")
}

func TestPublishNonTransientFailurePropagatesImmediately(t *testing.T) {
	tr := newFakeTransport()
	var calls int
	tr.requestFn = func(ctx context.Context, subject string, data []byte, hdr nats.Header) (*nats.Msg, error) {
		calls++
		return statusMsg(409, "Exceeded MaxBatch"), nil
	}
	c := newTestClient(tr)
	_, err := c.Publish(context.Background(), "orders.new", []byte("x"), PubOpts{Retries: 3, RetryDelay: time.Millisecond})
	require.Error(t, err)
	jerr, ok := err.(*Error)
	require.True(t, ok)
	assert.Equal(t, KindMaxBatchExceeded, jerr.Kind)
	assert.Equal(t, 1, calls)
}

func TestPublishSetsExpectationHeaders(t *testing.T) {
	tr := newFakeTransport()
	lastSeq := uint64(9)
	var gotHdr nats.Header
	tr.requestFn = func(ctx context.Context, subject string, data []byte, hdr nats.Header) (*nats.Msg, error) {
		gotHdr = hdr
		return pubAckMsg(t, pubAckResponse{Stream: "S", Seq: 10}), nil
	}
	c := newTestClient(tr)
	_, err := c.Publish(context.Background(), "orders.new", []byte("x"), PubOpts{
		ExpectStream:       "S",
		ExpectLastSequence: &lastSeq,
	})
	require.NoError(t, err)
	assert.Equal(t, "S", gotHdr.Get(ExpectedStreamHdr))
	assert.Equal(t, "9", gotHdr.Get(ExpectedLastSeqHdr))
}

func TestPullReturnsSingleMessage(t *testing.T) {
	tr := newFakeTransport()
	tr.requestFn = func(ctx context.Context, subject string, data []byte, hdr nats.Header) (*nats.Msg, error) {
		assert.Equal(t, consumerMsgNextSubject(DefaultAPIPrefix, "S", "d1"), subject)
		reply := ackReplySubject("S", "d1", 1, 1, 1, 0, 0)
		return &nats.Msg{Reply: reply, Data: []byte("hi")}, nil
	}
	c := newTestClient(tr)
	m, err := c.Pull(context.Background(), "S", "d1", time.Second)
	require.NoError(t, err)
	assert.Equal(t, "hi", string(m.Data))
}

func TestPullClassifiesStatusReply(t *testing.T) {
	tr := newFakeTransport()
	tr.requestFn = func(ctx context.Context, subject string, data []byte, hdr nats.Header) (*nats.Msg, error) {
		return statusMsg(404, "No Messages"), nil
	}
	c := newTestClient(tr)
	_, err := c.Pull(context.Background(), "S", "d1", time.Second)
	require.Error(t, err)
	jerr, ok := err.(*Error)
	require.True(t, ok)
	assert.Equal(t, KindNoMessages, jerr.Kind)
}
