package jetstream

import (
	"strconv"
	"strings"
	"time"

	"github.com/nats-io/nats.go"
)

// MsgMetadata is the JetStream delivery metadata recoverable from a data
// message's reply subject: the ack-reply subject has the form
//
//	$JS.ACK.<stream>.<consumer>.<num_delivered>.<stream_seq>.<consumer_seq>.<timestamp>.<pending>
type MsgMetadata struct {
	Stream       string
	Consumer     string
	NumDelivered uint64
	StreamSeq    uint64
	ConsumerSeq  uint64
	Timestamp    time.Time
	NumPending   uint64
}

// Msg is a typed, adapted JetStream message.
type Msg struct {
	Subject string
	Reply   string
	Data    []byte
	Header  nats.Header
	Meta    MsgMetadata

	raw *nats.Msg
}

// parseMsgMetadata decodes the ack-reply subject token layout. It returns
// ok=false for a malformed or non-JetStream reply subject.
func parseMsgMetadata(reply string) (MsgMetadata, bool) {
	if !strings.HasPrefix(reply, "$JS.ACK.") {
		return MsgMetadata{}, false
	}
	tokens := strings.Split(reply, ".")
	// $JS ACK <stream> <consumer> <delivered> <sseq> <cseq> <tm> <pending> [domain/hash]
	if len(tokens) < 9 {
		return MsgMetadata{}, false
	}
	var meta MsgMetadata
	meta.Stream = tokens[2]
	meta.Consumer = tokens[3]
	meta.NumDelivered, _ = strconv.ParseUint(tokens[4], 10, 64)
	meta.StreamSeq, _ = strconv.ParseUint(tokens[5], 10, 64)
	meta.ConsumerSeq, _ = strconv.ParseUint(tokens[6], 10, 64)
	if nanos, err := strconv.ParseInt(tokens[7], 10, 64); err == nil {
		meta.Timestamp = time.Unix(0, nanos)
	}
	meta.NumPending, _ = strconv.ParseUint(tokens[8], 10, 64)
	return meta, true
}

func adaptMsg(raw *nats.Msg) *Msg {
	meta, _ := parseMsgMetadata(raw.Reply)
	return &Msg{
		Subject: raw.Subject,
		Reply:   raw.Reply,
		Data:    raw.Data,
		Header:  raw.Header,
		Meta:    meta,
		raw:     raw,
	}
}

// Ack acknowledges the message by replying on its reply subject; it is a
// no-op for a message with no reply subject. It does not consult the
// consumer's ack policy: ordered (ack None) subscriptions never auto-ack
// because Subscription installs auto-ack only for other ack policies.
func (m *Msg) Ack() error {
	if m.raw == nil || m.Reply == "" {
		return nil
	}
	return m.raw.Respond(nil)
}
