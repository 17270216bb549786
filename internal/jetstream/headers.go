package jetstream

import (
	"strconv"
	"strings"

	"github.com/nats-io/nats.go"
)

// Publish headers (names bit-exact, string values).
const (
	MsgIDHdr                 = "Nats-Msg-Id"
	ExpectedStreamHdr        = "Nats-Expected-Stream"
	ExpectedLastSeqHdr       = "Nats-Expected-Last-Sequence"
	ExpectedLastMsgIDHdr     = "Nats-Expected-Last-Msg-Id"
	ExpectedLastSubjSeqHdr   = "Nats-Expected-Last-Subject-Sequence"
	LastConsumerSeqHdr       = "Nats-Last-Consumer"
	LastStreamSeqHdr         = "Nats-Last-Stream"
	ConsumerStalledHdr       = "Nats-Consumer-Stalled"
	directGetSubjectHdr      = "Nats-Subject"
	directGetSequenceHdr     = "Nats-Sequence"
	directGetTimestampHdr    = "Nats-Time-Stamp"
	directGetStreamHdr       = "Nats-Stream"
	statusHdr                = "Status"
	descrHdr                 = "Description"
	idleHeartbeatDescription = "Idle Heartbeat"
	flowControlDescription   = "FlowControl Request"
)

// statusFrame is the decoded form of a headers-only message: flow control,
// idle heartbeat, or a plain 4xx/5xx status.
type statusFrame struct {
	code        int
	description string
}

// parseStatus extracts the status code/description from a message's
// headers. ok is false for ordinary data messages (no Status header).
func parseStatus(msg *nats.Msg) (statusFrame, bool) {
	if msg == nil || len(msg.Header) == 0 {
		return statusFrame{}, false
	}
	raw := msg.Header.Get(statusHdr)
	if raw == "" {
		return statusFrame{}, false
	}
	code, err := strconv.Atoi(strings.TrimSpace(raw))
	if err != nil {
		return statusFrame{}, false
	}
	return statusFrame{code: code, description: msg.Header.Get(descrHdr)}, true
}

// isHeartbeat reports whether a 100-status frame is an idle heartbeat as
// opposed to a flow-control request; the two share a status code and are
// distinguished by description text.
func (s statusFrame) isHeartbeat() bool {
	return s.code == 100 && strings.Contains(s.description, idleHeartbeatDescription)
}

// isFlowControl likewise matches on description text; a 100-status frame
// that is neither heartbeat nor flow control falls through to classify()
// and is dropped there as protocol-unknown.
func (s statusFrame) isFlowControl() bool {
	return s.code == 100 && strings.Contains(s.description, flowControlDescription)
}

// DirectGetResult is the decoded reply to a DIRECT.GET request.
type DirectGetResult struct {
	Subject   string
	Sequence  uint64
	Timestamp string
	Stream    string
	Data      []byte
	Header    nats.Header
}

func parseDirectGet(msg *nats.Msg) (*DirectGetResult, error) {
	if sf, ok := parseStatus(msg); ok {
		return nil, classify(sf, contextDirectGet, nil).asError(sf)
	}
	seqStr := msg.Header.Get(directGetSequenceHdr)
	seq, _ := strconv.ParseUint(seqStr, 10, 64)
	return &DirectGetResult{
		Subject:   msg.Header.Get(directGetSubjectHdr),
		Sequence:  seq,
		Timestamp: msg.Header.Get(directGetTimestampHdr),
		Stream:    msg.Header.Get(directGetStreamHdr),
		Data:      msg.Data,
		Header:    msg.Header,
	}, nil
}
