package jetstream

import (
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestQueuedIteratorPushAndNextPreserveOrder(t *testing.T) {
	it := newQueuedIterator[int](nil, nil, nil)
	it.push(1)
	it.push(2)
	it.push(3)

	for _, want := range []int{1, 2, 3} {
		v, ok, err := it.next(nil)
		require.True(t, ok)
		require.NoError(t, err)
		assert.Equal(t, want, v)
	}
}

func TestQueuedIteratorStopSurfacesErrorAfterDrainingBuffer(t *testing.T) {
	it := newQueuedIterator[int](nil, nil, nil)
	it.push(1)
	stopErr := errors.New("boom")
	it.stop(stopErr)

	v, ok, err := it.next(nil)
	require.True(t, ok)
	assert.Equal(t, 1, v)
	require.NoError(t, err)

	_, ok, err = it.next(nil)
	assert.False(t, ok)
	assert.Equal(t, stopErr, err)
}

func TestQueuedIteratorStopWithNilErrIsCleanEndOfSequence(t *testing.T) {
	it := newQueuedIterator[int](nil, nil, nil)
	it.stop(nil)
	_, ok, err := it.next(nil)
	assert.False(t, ok)
	assert.NoError(t, err)
}

func TestQueuedIteratorProtocolFilterDropsFrames(t *testing.T) {
	it := newQueuedIterator[int](func(v int) bool { return v%2 == 0 }, nil, nil)
	it.push(1) // dropped
	it.push(2) // kept
	it.push(3) // dropped
	it.push(4) // kept

	v, ok, _ := it.next(nil)
	require.True(t, ok)
	assert.Equal(t, 2, v)
	v, ok, _ = it.next(nil)
	require.True(t, ok)
	assert.Equal(t, 4, v)
}

func TestQueuedIteratorIngestionFilterVetoesPayloadButNotObservation(t *testing.T) {
	var observed []int
	it := newQueuedIterator[int](nil, func(v int) (ingest bool, protocol bool) {
		observed = append(observed, v)
		return v >= 10, true
	}, nil)
	it.push(1)
	it.push(10)
	it.push(20)

	v, ok, _ := it.next(nil)
	require.True(t, ok)
	assert.Equal(t, 10, v)
	v, ok, _ = it.next(nil)
	require.True(t, ok)
	assert.Equal(t, 20, v)
	assert.Equal(t, []int{1, 10, 20}, observed)
}

func TestQueuedIteratorDispatchedFnCalledOnYield(t *testing.T) {
	var dispatched []int
	it := newQueuedIterator[int](nil, nil, func(v int) { dispatched = append(dispatched, v) })
	it.push(7)
	_, ok, _ := it.next(nil)
	require.True(t, ok)
	assert.Equal(t, []int{7}, dispatched)
}

func TestQueuedIteratorNextUnblocksOnCancel(t *testing.T) {
	it := newQueuedIterator[int](nil, nil, nil)
	cancel := make(chan struct{})

	done := make(chan struct{})
	go func() {
		defer close(done)
		_, ok, err := it.next(cancel)
		assert.False(t, ok)
		assert.NoError(t, err)
	}()

	time.Sleep(10 * time.Millisecond)
	close(cancel)

	select {
	case <-done:
	case <-time.After(time.Second):
		t.Fatal("next() did not unblock on cancel")
	}
}

func TestQueuedIteratorPushAfterStopIsDiscarded(t *testing.T) {
	it := newQueuedIterator[int](nil, nil, nil)
	it.stop(nil)
	it.push(99)
	_, ok, err := it.next(nil)
	assert.False(t, ok)
	assert.NoError(t, err)
}
