package jetstream

import (
	"testing"
	"time"

	"github.com/nats-io/nats.go"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestFetchClient(tr *fakeTransport, features ...Feature) *Client {
	return NewClient(tr, ClientOpts{
		IsConnected: func() bool { return true },
		Features:    NewFeatureSet(features...),
	})
}

func newTestFetch(t *testing.T, tr *fakeTransport, opts FetchOpts) (*Client, *FetchIterator, string) {
	t.Helper()
	return newTestFetchWithClient(t, newTestFetchClient(tr), tr, opts)
}

func newTestFetchWithClient(t *testing.T, c *Client, tr *fakeTransport, opts FetchOpts) (*Client, *FetchIterator, string) {
	t.Helper()
	f, err := c.Fetch("S", "d1", opts)
	require.NoError(t, err)

	reqs := tr.publishedTo(consumerMsgNextSubject(DefaultAPIPrefix, "S", "d1"))
	require.Len(t, reqs, 1)
	inbox := reqs[0].reply
	require.NotEmpty(t, inbox)
	return c, f, inbox
}

func TestFetchTerminatesOnBatchComplete(t *testing.T) {
	tr := newFakeTransport()
	_, f, inbox := newTestFetch(t, tr, FetchOpts{Batch: 2, Expires: time.Second})

	reply := ackReplySubject("S", "d1", 1, 1, 1, 0, 1)
	tr.deliver(inbox, &nats.Msg{Subject: inbox, Reply: reply, Data: []byte("one")})
	reply2 := ackReplySubject("S", "d1", 1, 2, 2, 0, 0)
	tr.deliver(inbox, &nats.Msg{Subject: inbox, Reply: reply2, Data: []byte("two")})

	v, err := f.Next(nil)
	require.NoError(t, err)
	assert.Equal(t, "one", string(v.Data))
	v, err = f.Next(nil)
	require.NoError(t, err)
	assert.Equal(t, "two", string(v.Data))

	_, err = f.Next(nil)
	assert.NoError(t, err, "clean end of batch carries no error")
}

func TestFetchTerminatesOnServerPendingZero(t *testing.T) {
	tr := newFakeTransport()
	_, f, inbox := newTestFetch(t, tr, FetchOpts{Batch: 10, Expires: time.Second})

	reply := ackReplySubject("S", "d1", 1, 5, 1, 0, 0) // pending == 0
	tr.deliver(inbox, &nats.Msg{Subject: inbox, Reply: reply, Data: []byte("only")})

	v, err := f.Next(nil)
	require.NoError(t, err)
	assert.Equal(t, "only", string(v.Data))

	_, err = f.Next(nil)
	assert.NoError(t, err)
}

func TestFetchTerminatesOnMaxBytes(t *testing.T) {
	tr := newFakeTransport()
	c := newTestFetchClient(tr, FeatureMaxBytes)
	_, f, inbox := newTestFetchWithClient(t, c, tr, FetchOpts{Batch: 100, Expires: time.Second, MaxBytes: 5})

	reply := ackReplySubject("S", "d1", 1, 1, 1, 0, 99)
	tr.deliver(inbox, &nats.Msg{Subject: inbox, Reply: reply, Data: []byte("12345")})

	v, err := f.Next(nil)
	require.NoError(t, err)
	assert.Equal(t, "12345", string(v.Data))
	_, err = f.Next(nil)
	assert.NoError(t, err)
}

func TestFetchTerminatesOnTerminalError(t *testing.T) {
	tr := newFakeTransport()
	_, f, inbox := newTestFetch(t, tr, FetchOpts{Batch: 10, Expires: time.Second})

	tr.deliver(inbox, statusMsg(409, "Exceeded MaxBatch"))

	_, err := f.Next(nil)
	require.Error(t, err)
	jerr, ok := err.(*Error)
	require.True(t, ok)
	assert.Equal(t, KindMaxBatchExceeded, jerr.Kind)
}

func TestFetchIgnoresNonTerminalStatusAndEndsCleanly(t *testing.T) {
	tr := newFakeTransport()
	_, f, inbox := newTestFetch(t, tr, FetchOpts{Batch: 10, NoWait: true})

	tr.deliver(inbox, statusMsg(404, "No Messages"))

	_, err := f.Next(nil)
	assert.NoError(t, err)
}

func TestFetchExpiresAfterTimer(t *testing.T) {
	tr := newFakeTransport()
	_, f, _ := newTestFetch(t, tr, FetchOpts{Batch: 10, Expires: 20 * time.Millisecond})

	_, err := f.Next(nil)
	assert.NoError(t, err)
	assert.True(t, f.raw.(*fakeRawSub).unsubscribed)
}

func TestFetchRequiresNoWaitOrExpires(t *testing.T) {
	tr := newFakeTransport()
	c := newTestFetchClient(tr)
	_, err := c.Fetch("S", "d1", FetchOpts{Batch: 1})
	require.Error(t, err)
}

func TestFetchValidatesStreamAndDurable(t *testing.T) {
	tr := newFakeTransport()
	c := newTestFetchClient(tr)
	_, err := c.Fetch("", "d1", FetchOpts{Batch: 1, NoWait: true})
	require.Error(t, err)
	_, err = c.Fetch("S", "", FetchOpts{Batch: 1, NoWait: true})
	require.Error(t, err)
}

func TestFetchMaxWaitingTerminalOnlyWhenOptedIn(t *testing.T) {
	tr := newFakeTransport()
	_, f, inbox := newTestFetch(t, tr, FetchOpts{Batch: 1, Expires: 50 * time.Millisecond})
	tr.deliver(inbox, statusMsg(409, "Exceeded MaxWaiting"))
	_, err := f.Next(nil)
	assert.NoError(t, err, "transient by default: the batch just ends")

	tr2 := newFakeTransport()
	c2 := newTestFetchClient(tr2, FeatureMaxWaitingTerminal)
	_, f2, inbox2 := newTestFetchWithClient(t, c2, tr2, FetchOpts{Batch: 1, Expires: 50 * time.Millisecond})
	tr2.deliver(inbox2, statusMsg(409, "Exceeded MaxWaiting"))
	_, err = f2.Next(nil)
	require.Error(t, err)
	jerr, ok := err.(*Error)
	require.True(t, ok)
	assert.Equal(t, KindMaxWaitingExceeded, jerr.Kind)
	assert.Contains(t, err.Error(), "MaxWaitingExceeded")
}

func TestFetchMaxBytesRequiresFeature(t *testing.T) {
	tr := newFakeTransport()
	c := newTestFetchClient(tr)
	_, err := c.Fetch("S", "d1", FetchOpts{Batch: 1, NoWait: true, MaxBytes: 1024})
	require.Error(t, err)

	tr2 := newFakeTransport()
	c2 := newTestFetchClient(tr2, FeatureMaxBytes)
	_, err = c2.Fetch("S", "d1", FetchOpts{Batch: 1, NoWait: true, MaxBytes: 1024})
	require.NoError(t, err)
}
