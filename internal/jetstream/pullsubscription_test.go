package jetstream

import (
	"context"
	"encoding/json"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestPullSubscription(t *testing.T, tr *fakeTransport) *PullSubscription {
	t.Helper()
	c := newTestClient(tr)
	info := subscriptionInfo{
		stream:  "S",
		config:  ConsumerConfig{Stream: "S", Durable: "d1", AckPolicy: AckPolicyExplicit},
		deliver: "_INBOX.test.1",
		name:    "d1",
	}
	sub, err := newSubscription(c, info, true, nil)
	require.NoError(t, err)
	return &PullSubscription{Subscription: sub}
}

func TestPullOptsValidateRejectsMaxBytesWithoutFeature(t *testing.T) {
	err := PullOpts{Batch: 1, MaxBytes: 10}.validate(NewFeatureSet())
	require.Error(t, err)

	err = PullOpts{Batch: 1, MaxBytes: 10}.validate(NewFeatureSet(FeatureMaxBytes))
	require.NoError(t, err)
}

func TestPullOptsValidateRequiresExpiresGreaterThanHeartbeat(t *testing.T) {
	err := PullOpts{Batch: 1, IdleHeartbeat: time.Second, Expires: time.Second}.validate(nil)
	require.Error(t, err)

	err = PullOpts{Batch: 1, IdleHeartbeat: time.Second, Expires: 2 * time.Second}.validate(nil)
	require.NoError(t, err)

	err = PullOpts{Batch: 1}.validate(nil)
	require.NoError(t, err)
}

func TestPullSendsWireRequestOnDeliverInbox(t *testing.T) {
	tr := newFakeTransport()
	p := newTestPullSubscription(t, tr)

	err := p.Pull(context.Background(), PullOpts{Batch: 5, Expires: time.Second})
	require.NoError(t, err)

	reqs := tr.publishedTo(consumerMsgNextSubject(DefaultAPIPrefix, "S", "d1"))
	require.Len(t, reqs, 1)
	assert.Equal(t, "_INBOX.test.1", reqs[0].reply)

	var body pullRequest
	require.NoError(t, json.Unmarshal(reqs[0].data, &body))
	assert.Equal(t, 5, body.Batch)
	assert.Equal(t, int64(time.Second), body.ExpiresNanos)
}

func TestPullInstallsHeartbeatMonitorOnlyWhenExpiresAndHeartbeatSet(t *testing.T) {
	tr := newFakeTransport()
	p := newTestPullSubscription(t, tr)

	require.NoError(t, p.Pull(context.Background(), PullOpts{Batch: 1, Expires: time.Second}))
	p.mu.Lock()
	assert.Nil(t, p.hb, "no idle_heartbeat requested: no monitor")
	p.mu.Unlock()

	require.NoError(t, p.Pull(context.Background(), PullOpts{Batch: 1, Expires: time.Second, IdleHeartbeat: 100 * time.Millisecond}))
	p.mu.Lock()
	assert.NotNil(t, p.hb)
	p.mu.Unlock()
}

func TestPullReplacesPriorHeartbeatMonitorEachCall(t *testing.T) {
	tr := newFakeTransport()
	p := newTestPullSubscription(t, tr)

	require.NoError(t, p.Pull(context.Background(), PullOpts{Batch: 1, Expires: time.Second, IdleHeartbeat: 100 * time.Millisecond}))
	p.mu.Lock()
	first := p.hb
	p.mu.Unlock()
	require.NotNil(t, first)

	require.NoError(t, p.Pull(context.Background(), PullOpts{Batch: 1, Expires: time.Second, IdleHeartbeat: 100 * time.Millisecond}))
	p.mu.Lock()
	second := p.hb
	p.mu.Unlock()
	require.NotNil(t, second)
	assert.NotSame(t, first, second, "each Pull call installs a fresh monitor")
}

func TestPullRejectsInvalidOptsBeforePublishing(t *testing.T) {
	tr := newFakeTransport()
	p := newTestPullSubscription(t, tr)

	err := p.Pull(context.Background(), PullOpts{Batch: 1, MaxBytes: 10})
	require.Error(t, err)
	assert.Empty(t, tr.publishedTo(consumerMsgNextSubject(DefaultAPIPrefix, "S", "d1")))
}
