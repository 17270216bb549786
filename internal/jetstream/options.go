package jetstream

import (
	"fmt"
	"time"

	"github.com/nats-io/nats.go"
)

// AckPolicy mirrors the broker's consumer ack policy.
type AckPolicy int

const (
	AckPolicyNotSet AckPolicy = iota
	AckPolicyNone
	AckPolicyAll
	AckPolicyExplicit
)

// DeliverPolicy mirrors the broker's consumer deliver policy.
type DeliverPolicy int

const (
	DeliverAll DeliverPolicy = iota
	DeliverLast
	DeliverNew
	DeliverByStartSequence
	DeliverByStartTime
	DeliverLastPerSubject
)

// ConsumerConfig is the caller-facing consumer options record.
type ConsumerConfig struct {
	Stream         string
	Durable        string
	DeliverGroup   string
	FilterSubject  string
	FilterSubjects []string
	AckPolicy      AckPolicy
	DeliverPolicy  DeliverPolicy
	OptStartSeq    uint64
	OptStartTime   *time.Time
	MaxDeliver     int
	DeliverSubject string
	IdleHeartbeat  time.Duration
	FlowControl    bool
	Ordered        bool
	BindOnly       bool
	ManualAck      bool
	MaxMessages    int
	MaxAckPending  int
	AckWait        time.Duration
	MemStorage     bool
	NumReplicas    int
	ReplayPolicy   string
}

// validate enforces the ordered- and pull-consumer constraints.
func (c *ConsumerConfig) validate(forPull bool) error {
	if c.Ordered {
		if c.AckPolicy != AckPolicyNotSet && c.AckPolicy != AckPolicyNone {
			return fmt.Errorf("ordered consumer: ack policy must be unset or none")
		}
		if c.Durable != "" {
			return fmt.Errorf("ordered consumer: durable name not allowed")
		}
		if c.DeliverSubject != "" {
			return fmt.Errorf("ordered consumer: deliver subject not allowed")
		}
		if c.DeliverGroup != "" {
			return fmt.Errorf("ordered consumer: deliver group not allowed")
		}
		if c.MaxDeliver > 1 {
			return fmt.Errorf("ordered consumer: max deliver must be <= 1")
		}
	}
	if forPull {
		if c.Ordered {
			return fmt.Errorf("pull consumer: cannot be ordered")
		}
		if c.DeliverSubject != "" {
			return fmt.Errorf("pull consumer: deliver subject not allowed")
		}
		if c.AckPolicy != AckPolicyExplicit && c.AckPolicy != AckPolicyNotSet {
			return fmt.Errorf("pull consumer: ack policy must be explicit")
		}
	}
	return nil
}

// PullOpts configures a single Pull request.
type PullOpts struct {
	Batch         int
	NoWait        bool
	MaxBytes      int
	Expires       time.Duration
	IdleHeartbeat time.Duration
}

func (o PullOpts) validate(features *FeatureSet) error {
	if o.MaxBytes > 0 && !features.Enabled(FeatureMaxBytes) {
		return fmt.Errorf("pull: max_bytes requires server feature support")
	}
	if o.IdleHeartbeat > 0 && o.Expires <= o.IdleHeartbeat {
		return fmt.Errorf("pull: idle_heartbeat requires expires > idle_heartbeat")
	}
	return nil
}

// FetchOpts configures Client.Fetch.
type FetchOpts struct {
	Batch         int
	NoWait        bool
	MaxBytes      int
	Expires       time.Duration
	IdleHeartbeat time.Duration
}

func (o FetchOpts) validate() error {
	if !o.NoWait && o.Expires <= 0 {
		return fmt.Errorf("fetch: requires no_wait or expires > 0")
	}
	return nil
}

// PubOpts carries optimistic-concurrency expectation headers and retry
// tuning for Publish.
type PubOpts struct {
	MsgID                string
	ExpectStream         string
	ExpectLastSequence   *uint64
	ExpectLastMsgID      string
	ExpectLastSubjectSeq *uint64
	Retries              int
	RetryDelay           time.Duration
	Timeout              time.Duration
}

const (
	defaultPublishRetries    = 1
	defaultPublishRetryDelay = 250 * time.Millisecond
)

func (o PubOpts) withDefaults() PubOpts {
	if o.Retries <= 0 {
		o.Retries = defaultPublishRetries
	}
	if o.RetryDelay <= 0 {
		o.RetryDelay = defaultPublishRetryDelay
	}
	if o.Timeout <= 0 {
		o.Timeout = defaultRequestTimeout
	}
	return o
}

// PubAck is the parsed publish-ack reply.
type PubAck struct {
	Stream    string `json:"stream"`
	Seq       uint64 `json:"seq"`
	Duplicate bool   `json:"duplicate,omitempty"`
}

// seqPair tracks ordered-consumer delivery vs. stream sequence.
type seqPair struct {
	streamSeq   uint64
	deliverySeq uint64
}

// flowControlState tracks per-subscription protocol counters.
type flowControlState struct {
	heartbeatCount   uint64
	fcCount          uint64
	consumerRestarts uint64
}

// subscriptionInfo resolves user options into concrete values.
// last caches the most recent ConsumerInfo fetched for this subscription.
type subscriptionInfo struct {
	stream   string
	config   ConsumerConfig
	deliver  string
	attached bool
	name     string
	last     *nats.ConsumerInfo
	ordSeq   seqPair
	fc       flowControlState
}
