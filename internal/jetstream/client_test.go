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

func consumerInfoReply(t *testing.T, info nats.ConsumerInfo) *nats.Msg {
	t.Helper()
	body, err := json.Marshal(consumerInfoResponse{ConsumerInfo: info})
	require.NoError(t, err)
	return &nats.Msg{Data: body}
}

func apiErrorReply(t *testing.T, code int, description string) *nats.Msg {
	t.Helper()
	body, err := json.Marshal(map[string]interface{}{
		"error": map[string]interface{}{"code": code, "description": description},
	})
	require.NoError(t, err)
	return &nats.Msg{Data: body}
}

func streamNamesReply(t *testing.T, streams ...string) *nats.Msg {
	t.Helper()
	body, err := json.Marshal(streamNamesResponse{Streams: streams})
	require.NoError(t, err)
	return &nats.Msg{Data: body}
}

func TestProcessOptionsOrderedSynthesizesConfig(t *testing.T) {
	tr := newFakeTransport()
	c := newTestClient(tr)

	info, err := c.processOptions(context.Background(), "T", ConsumerConfig{Stream: "S", Ordered: true}, false)
	require.NoError(t, err)

	assert.Equal(t, AckPolicyNone, info.config.AckPolicy)
	assert.Equal(t, 1, info.config.MaxDeliver)
	assert.True(t, info.config.FlowControl)
	assert.Equal(t, 5*time.Second, info.config.IdleHeartbeat)
	assert.Equal(t, 22*time.Hour, info.config.AckWait)
	assert.True(t, info.config.MemStorage)
	assert.Equal(t, 1, info.config.NumReplicas)
	assert.NotEmpty(t, info.config.DeliverSubject, "ordered consumers get a fresh inbox")
	assert.Equal(t, info.config.DeliverSubject, info.deliver)
	assert.Equal(t, "T", info.config.FilterSubject)
}

func TestProcessOptionsOrderedRejectsDurable(t *testing.T) {
	tr := newFakeTransport()
	c := newTestClient(tr)

	_, err := c.processOptions(context.Background(), "T", ConsumerConfig{Stream: "S", Ordered: true, Durable: "d"}, false)
	require.Error(t, err)
}

func TestProcessOptionsDefaultsAckPolicyToAll(t *testing.T) {
	tr := newFakeTransport()
	c := newTestClient(tr)

	info, err := c.processOptions(context.Background(), "T", ConsumerConfig{Stream: "S"}, false)
	require.NoError(t, err)
	assert.Equal(t, AckPolicyAll, info.config.AckPolicy)
}

func TestProcessOptionsResolvesStreamBySubject(t *testing.T) {
	tr := newFakeTransport()
	tr.requestFn = func(ctx context.Context, subject string, data []byte, hdr nats.Header) (*nats.Msg, error) {
		require.Equal(t, streamNamesSubject(DefaultAPIPrefix), subject)
		var req struct {
			Subject string `json:"subject"`
		}
		require.NoError(t, json.Unmarshal(data, &req))
		assert.Equal(t, "orders.*", req.Subject)
		return streamNamesReply(t, "ORDERS"), nil
	}
	c := newTestClient(tr)

	info, err := c.processOptions(context.Background(), "orders.*", ConsumerConfig{}, false)
	require.NoError(t, err)
	assert.Equal(t, "ORDERS", info.stream)
}

func TestProcessOptionsFailsWhenNoStreamMatchesSubject(t *testing.T) {
	tr := newFakeTransport()
	tr.requestFn = func(ctx context.Context, subject string, data []byte, hdr nats.Header) (*nats.Msg, error) {
		return streamNamesReply(t), nil
	}
	c := newTestClient(tr)

	_, err := c.processOptions(context.Background(), "nobody.cares", ConsumerConfig{}, false)
	require.Error(t, err)
}

func TestProcessOptionsAdoptsExistingDurable(t *testing.T) {
	tr := newFakeTransport()
	tr.requestFn = func(ctx context.Context, subject string, data []byte, hdr nats.Header) (*nats.Msg, error) {
		require.Equal(t, consumerInfoSubject(DefaultAPIPrefix, "S", "d1"), subject)
		return consumerInfoReply(t, nats.ConsumerInfo{
			Name:   "d1",
			Stream: "S",
			Config: nats.ConsumerConfig{Durable: "d1", FilterSubject: "T", DeliverSubject: "known.deliver", AckPolicy: nats.AckExplicitPolicy},
		}), nil
	}
	c := newTestClient(tr)

	info, err := c.processOptions(context.Background(), "T", ConsumerConfig{Stream: "S", Durable: "d1", ManualAck: true}, false)
	require.NoError(t, err)
	assert.True(t, info.attached)
	assert.Equal(t, "d1", info.name)
	assert.Equal(t, "known.deliver", info.deliver, "adopted config supplies the deliver subject")
	assert.Equal(t, AckPolicyExplicit, info.config.AckPolicy)
	assert.True(t, info.config.ManualAck, "user's manual-ack choice survives adoption")
}

func TestProcessOptionsRejectsDurableFilterMismatch(t *testing.T) {
	tr := newFakeTransport()
	tr.requestFn = func(ctx context.Context, subject string, data []byte, hdr nats.Header) (*nats.Msg, error) {
		return consumerInfoReply(t, nats.ConsumerInfo{
			Name:   "d1",
			Stream: "S",
			Config: nats.ConsumerConfig{Durable: "d1", FilterSubject: "other.subject"},
		}), nil
	}
	c := newTestClient(tr)

	_, err := c.processOptions(context.Background(), "T", ConsumerConfig{Stream: "S", Durable: "d1"}, false)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "other.subject")
}

func TestProcessOptionsRejectsDuplicatePushBind(t *testing.T) {
	tr := newFakeTransport()
	tr.requestFn = func(ctx context.Context, subject string, data []byte, hdr nats.Header) (*nats.Msg, error) {
		return consumerInfoReply(t, nats.ConsumerInfo{
			Name:      "d1",
			Stream:    "S",
			PushBound: true,
			Config:    nats.ConsumerConfig{Durable: "d1", FilterSubject: "T", DeliverSubject: "known.deliver"},
		}), nil
	}
	c := newTestClient(tr)

	_, err := c.processOptions(context.Background(), "T", ConsumerConfig{Stream: "S", Durable: "d1"}, false)
	require.Error(t, err)
}

func TestProcessOptionsRejectsQueueGroupMismatch(t *testing.T) {
	tr := newFakeTransport()
	tr.requestFn = func(ctx context.Context, subject string, data []byte, hdr nats.Header) (*nats.Msg, error) {
		return consumerInfoReply(t, nats.ConsumerInfo{
			Name:   "d1",
			Stream: "S",
			Config: nats.ConsumerConfig{Durable: "d1", FilterSubject: "T", DeliverGroup: "required-group"},
		}), nil
	}
	c := newTestClient(tr)

	_, err := c.processOptions(context.Background(), "T", ConsumerConfig{Stream: "S", Durable: "d1", DeliverGroup: "wrong"}, false)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "required-group")
}

func TestProcessOptionsProceedsAsNewConsumerOn404(t *testing.T) {
	tr := newFakeTransport()
	tr.requestFn = func(ctx context.Context, subject string, data []byte, hdr nats.Header) (*nats.Msg, error) {
		return statusMsg(404, "Consumer Not Found"), nil
	}
	c := newTestClient(tr)

	info, err := c.processOptions(context.Background(), "T", ConsumerConfig{Stream: "S", Durable: "d1"}, false)
	require.NoError(t, err)
	assert.False(t, info.attached)
	assert.Equal(t, "T", info.config.FilterSubject)
}

func TestMaybeCreateConsumerSkipsWhenAttached(t *testing.T) {
	tr := newFakeTransport()
	c := newTestClient(tr)

	info := subscriptionInfo{stream: "S", attached: true}
	require.NoError(t, c.maybeCreateConsumer(context.Background(), &info))
}

func TestMaybeCreateConsumerFailsBindOnlyWithoutConsumer(t *testing.T) {
	tr := newFakeTransport()
	c := newTestClient(tr)

	info := subscriptionInfo{stream: "S", config: ConsumerConfig{Durable: "missing", BindOnly: true}}
	err := c.maybeCreateConsumer(context.Background(), &info)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "missing")
	assert.Contains(t, err.Error(), "S")
	assert.Empty(t, tr.published, "bind-only failure must not create a consumer")
}

func TestMaybeCreateConsumerMergesDefaults(t *testing.T) {
	tr := newFakeTransport()
	var created nats.ConsumerConfig
	tr.requestFn = func(ctx context.Context, subject string, data []byte, hdr nats.Header) (*nats.Msg, error) {
		require.Equal(t, consumerCreateSubject(DefaultAPIPrefix, "S"), subject)
		var req struct {
			Stream string              `json:"stream_name"`
			Config nats.ConsumerConfig `json:"config"`
		}
		require.NoError(t, json.Unmarshal(data, &req))
		created = req.Config
		return consumerInfoReply(t, nats.ConsumerInfo{Name: "srv-name", Stream: "S", Config: req.Config}), nil
	}
	c := newTestClient(tr)

	info := subscriptionInfo{stream: "S", config: ConsumerConfig{Durable: "d1", AckPolicy: AckPolicyExplicit}}
	require.NoError(t, c.maybeCreateConsumer(context.Background(), &info))
	assert.Equal(t, 30*time.Second, created.AckWait)
	assert.Equal(t, nats.ReplayInstantPolicy, created.ReplayPolicy)
	assert.Equal(t, "srv-name", info.name)
}

func TestMaybeCreateConsumerDetectsMissingMultiFilterSupport(t *testing.T) {
	tr := newFakeTransport()
	tr.requestFn = func(ctx context.Context, subject string, data []byte, hdr nats.Header) (*nats.Msg, error) {
		// An old server ignores filter_subjects and echoes a config
		// without them.
		return consumerInfoReply(t, nats.ConsumerInfo{Name: "d1", Stream: "S", Config: nats.ConsumerConfig{Durable: "d1"}}), nil
	}
	c := newTestClient(tr)

	info := subscriptionInfo{stream: "S", config: ConsumerConfig{Durable: "d1", FilterSubjects: []string{"T.a", "T.b"}}}
	err := c.maybeCreateConsumer(context.Background(), &info)
	require.Error(t, err)
}

func TestMaybeCreateConsumerSurfacesAPIError(t *testing.T) {
	tr := newFakeTransport()
	tr.requestFn = func(ctx context.Context, subject string, data []byte, hdr nats.Header) (*nats.Msg, error) {
		return apiErrorReply(t, 10059, "stream not found"), nil
	}
	c := newTestClient(tr)

	info := subscriptionInfo{stream: "S", config: ConsumerConfig{Durable: "d1"}}
	err := c.maybeCreateConsumer(context.Background(), &info)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "stream not found")
}

func TestPullSubscribeRejectsOrderedAndDeliverSubject(t *testing.T) {
	tr := newFakeTransport()
	c := newTestClient(tr)

	_, err := c.PullSubscribe(context.Background(), "T", ConsumerConfig{Stream: "S", Ordered: true})
	require.Error(t, err)

	_, err = c.PullSubscribe(context.Background(), "T", ConsumerConfig{Stream: "S", DeliverSubject: "d"})
	require.Error(t, err)

	_, err = c.PullSubscribe(context.Background(), "T", ConsumerConfig{Stream: "S", AckPolicy: AckPolicyAll})
	require.Error(t, err)
}

func TestSubscribeCallbackRequiredUnlessIterating(t *testing.T) {
	tr := newFakeTransport()
	c := newTestClient(tr)

	_, err := c.Subscribe(context.Background(), "T", ConsumerConfig{Stream: "S"}, false, nil)
	require.Error(t, err)
}

func TestDirectGetParsesHeaders(t *testing.T) {
	tr := newFakeTransport()
	tr.requestFn = func(ctx context.Context, subject string, data []byte, hdr nats.Header) (*nats.Msg, error) {
		require.Equal(t, directGetSubject("S"), subject)
		h := nats.Header{}
		h.Set(directGetSubjectHdr, "T")
		h.Set(directGetSequenceHdr, "12")
		h.Set(directGetStreamHdr, "S")
		h.Set(directGetTimestampHdr, "2024-01-02T03:04:05Z")
		return &nats.Msg{Header: h, Data: []byte("payload")}, nil
	}
	c := newTestClient(tr)

	res, err := c.DirectGet(context.Background(), "S", 12)
	require.NoError(t, err)
	assert.Equal(t, uint64(12), res.Sequence)
	assert.Equal(t, "T", res.Subject)
	assert.Equal(t, "S", res.Stream)
	assert.Equal(t, "payload", string(res.Data))
}

func TestDirectGetClassifiesStatusReply(t *testing.T) {
	tr := newFakeTransport()
	tr.requestFn = func(ctx context.Context, subject string, data []byte, hdr nats.Header) (*nats.Msg, error) {
		return statusMsg(404, "Message Not Found"), nil
	}
	c := newTestClient(tr)

	_, err := c.DirectGet(context.Background(), "S", 99)
	require.Error(t, err)
}
