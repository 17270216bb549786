package jetstream

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestClassifyNoMessagesAndTimeoutAreTransientRegardlessOfContext(t *testing.T) {
	for _, ctx := range []classifyContext{contextGeneral, contextPublish, contextDirectGet} {
		cls := classify(statusFrame{code: 404}, ctx, nil)
		assert.Equal(t, KindNoMessages, cls.kind)
		assert.Equal(t, severityTransient, cls.severity)

		cls = classify(statusFrame{code: 408}, ctx, nil)
		assert.Equal(t, KindRequestTimeout, cls.kind)
		assert.Equal(t, severityTransient, cls.severity)
	}
}

func TestClassify409TerminalKinds(t *testing.T) {
	cases := []struct {
		description string
		kind        Kind
	}{
		{"MaxBatchExceeded", KindMaxBatchExceeded},
		{"Exceeded MaxBatch", KindMaxBatchExceeded},
		{"MaxExpiresExceeded", KindMaxExpiresExceeded},
		{"MaxBytesExceeded", KindMaxBytesExceeded},
		{"MaxMessageSizeExceeded", KindMaxMessageSizeExceeded},
		{"ConsumerDeleted", KindConsumerDeleted},
		{"ConsumerIsPushBased", KindConsumerIsPushBased},
	}
	for _, c := range cases {
		cls := classify(statusFrame{code: 409, description: c.description}, contextGeneral, nil)
		assert.Equal(t, c.kind, cls.kind, c.description)
		assert.Equal(t, severityTerminal, cls.severity, c.description)
	}
}

func TestClassify409MaxWaitingDependsOnFeatureFlag(t *testing.T) {
	cls := classify(statusFrame{code: 409, description: "Exceeded MaxWaiting"}, contextGeneral, nil)
	assert.Equal(t, KindMaxWaitingExceeded, cls.kind)
	assert.Equal(t, severityTransient, cls.severity, "transient unless the client opted in")

	fs := NewFeatureSet(FeatureMaxWaitingTerminal)
	cls = classify(statusFrame{code: 409, description: "Exceeded MaxWaiting"}, contextGeneral, fs)
	assert.Equal(t, KindMaxWaitingExceeded, cls.kind)
	assert.Equal(t, severityTerminal, cls.severity, "terminal once the feature is enabled")
}

func TestClassify409UnknownTextIsTerminal(t *testing.T) {
	cls := classify(statusFrame{code: 409, description: "something the client has never seen"}, contextGeneral, nil)
	assert.Equal(t, KindRequestFailed, cls.kind)
	assert.Equal(t, severityTerminal, cls.severity)
}

func TestClassify503IsTransientOnlyForPublish(t *testing.T) {
	cls := classify(statusFrame{code: 503}, contextPublish, nil)
	assert.Equal(t, KindBrokerUnavailable, cls.kind)
	assert.Equal(t, severityTransient, cls.severity)

	cls = classify(statusFrame{code: 503}, contextGeneral, nil)
	assert.Equal(t, KindBrokerUnavailable, cls.kind)
	assert.Equal(t, severityTerminal, cls.severity)
}

func TestClassifyUnknown100IsIgnored(t *testing.T) {
	cls := classify(statusFrame{code: 100, description: "something unrelated"}, contextGeneral, nil)
	assert.Equal(t, kindProtocolUnknown, cls.kind)
	assert.Equal(t, severityNone, cls.severity)
	assert.Nil(t, cls.asError(statusFrame{code: 100}))
}

func TestClassifyOtherStatusIsTerminal(t *testing.T) {
	cls := classify(statusFrame{code: 500, description: "internal server error"}, contextGeneral, nil)
	assert.Equal(t, KindRequestFailed, cls.kind)
	assert.Equal(t, severityTerminal, cls.severity)
}

func TestErrorIsMatchesByKind(t *testing.T) {
	var err error = &Error{Kind: KindMaxBatchExceeded, Terminal: true, Code: 409, Description: "Exceeded MaxBatch"}
	assert.True(t, errors.Is(err, &Error{Kind: KindMaxBatchExceeded}))
	assert.False(t, errors.Is(err, &Error{Kind: KindMaxBytesExceeded}))
	assert.Contains(t, err.Error(), "MaxBatchExceeded")
}
