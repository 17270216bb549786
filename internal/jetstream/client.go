package jetstream

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/nats-io/nats.go"
	"github.com/prometheus/client_golang/prometheus"
	"go.uber.org/zap"
)

// apiEnvelope decodes the generic `{"type": "...", "error": {...}}` shape
// every JetStream API response carries: the minimal envelope needed to
// detect a JS error inside an otherwise-opaque reply.
type apiEnvelope struct {
	Type  string `json:"type,omitempty"`
	Error *struct {
		Code        int    `json:"code"`
		Description string `json:"description"`
	} `json:"error,omitempty"`
}

func (e apiEnvelope) asError() error {
	if e.Error == nil {
		return nil
	}
	return &Error{Kind: KindRequestFailed, Terminal: true, Code: e.Error.Code, Description: e.Error.Description}
}

// decodeAPIReply guards a management-RPC reply against the headers-only
// status frames the same inbox can carry: a 503
// with no JSON body otherwise fails json.Unmarshal instead of classifying
// as BrokerUnavailable. ok is false when reply was such a frame, in which
// case err (nil only for an unrecognized 100-status frame) should be
// returned as-is, and also when the JSON body fails to decode.
func decodeAPIReply(reply *nats.Msg, ctx classifyContext, features *FeatureSet, v interface{}) (ok bool, err error) {
	if sf, isStatus := parseStatus(reply); isStatus {
		return false, classify(sf, ctx, features).asError(sf)
	}
	if err := json.Unmarshal(reply.Data, v); err != nil {
		return false, fmt.Errorf("decode %s reply: %w", ctx, err)
	}
	return true, nil
}

func (ctx classifyContext) String() string {
	switch ctx {
	case contextPublish:
		return "publish"
	case contextDirectGet:
		return "direct-get"
	default:
		return "management"
	}
}

type consumerInfoResponse struct {
	apiEnvelope
	nats.ConsumerInfo
}

type consumerDeleteResponse struct {
	apiEnvelope
	Success bool `json:"success,omitempty"`
}

type pubAckResponse struct {
	apiEnvelope
	Stream    string `json:"stream"`
	Seq       uint64 `json:"seq"`
	Duplicate bool   `json:"duplicate,omitempty"`
}

type streamNamesResponse struct {
	apiEnvelope
	Streams []string `json:"streams"`
}

// Client is the JetStream client: option normalization,
// consumer bind/create, publish, one-shot pull, fetch, and subscribe
// factories.
type Client struct {
	transport   Transport
	apiPrefix   string
	logger      *zap.Logger
	features    *FeatureSet
	metrics     *coreMetrics
	isConnected func() bool
}

// ClientOpts configures a new Client. Registerer, when non-nil, is where
// the delivery core's Prometheus counters are registered; nil registers
// nothing.
type ClientOpts struct {
	APIPrefix   string
	Logger      *zap.Logger
	Features    *FeatureSet
	Registerer  prometheus.Registerer
	IsConnected func() bool
}

// NewClient builds a JetStream client over transport.
func NewClient(transport Transport, opts ClientOpts) *Client {
	prefix := opts.APIPrefix
	if prefix == "" {
		prefix = DefaultAPIPrefix
	}
	logger := opts.Logger
	if logger == nil {
		logger = zap.NewNop()
	}
	metrics := newCoreMetrics(opts.Registerer)
	isConnected := opts.IsConnected
	if isConnected == nil {
		isConnected = func() bool { return true }
	}
	return &Client{
		transport:   transport,
		apiPrefix:   prefix,
		logger:      logger,
		features:    opts.Features,
		metrics:     metrics,
		isConnected: isConnected,
	}
}

// processOptions normalizes user config. subject is the
// subject the caller wants to consume (used to derive FilterSubject and
// to resolve the stream when not supplied).
func (c *Client) processOptions(ctx context.Context, subject string, user ConsumerConfig, forPull bool) (subscriptionInfo, error) {
	cfg := user

	if cfg.Ordered {
		if err := cfg.validate(false); err != nil {
			return subscriptionInfo{}, err
		}
		cfg.AckPolicy = AckPolicyNone
		cfg.MaxDeliver = 1
		cfg.FlowControl = true
		if cfg.IdleHeartbeat <= 0 {
			cfg.IdleHeartbeat = 5 * time.Second
		}
		cfg.AckWait = 22 * time.Hour
		cfg.MemStorage = true
		cfg.NumReplicas = 1
		cfg.DeliverSubject = c.transport.NewInbox()
	} else if err := cfg.validate(forPull); err != nil {
		return subscriptionInfo{}, err
	}

	if cfg.AckPolicy == AckPolicyNotSet {
		cfg.AckPolicy = AckPolicyAll
	}

	stream := cfg.Stream
	if stream == "" {
		resolved, err := c.streamBySubject(ctx, subject)
		if err != nil {
			return subscriptionInfo{}, fmt.Errorf("resolve stream for subject %q: %w", subject, err)
		}
		stream = resolved
	}

	info := subscriptionInfo{stream: stream, config: cfg}

	if cfg.Durable != "" {
		existing, err := c.consumerInfo(ctx, stream, cfg.Durable)
		switch {
		case err == nil:
			if existing.Config.FilterSubject != "" && subject != "" && existing.Config.FilterSubject != subject {
				return subscriptionInfo{}, fmt.Errorf("durable %q is already bound to filter subject %q", cfg.Durable, existing.Config.FilterSubject)
			}
			if existing.PushBound && cfg.DeliverGroup == "" {
				return subscriptionInfo{}, fmt.Errorf("consumer %q is already bound to a subscription", cfg.Durable)
			}
			if existing.Config.DeliverGroup != "" && existing.Config.DeliverGroup != cfg.DeliverGroup {
				return subscriptionInfo{}, fmt.Errorf("cannot create queue subscription %q for consumer %q which requires queue group %q", cfg.DeliverGroup, cfg.Durable, existing.Config.DeliverGroup)
			}
			info.config = consumerConfigFromInfo(&existing.ConsumerInfo, cfg.Ordered)
			info.config.ManualAck = cfg.ManualAck
			info.config.MaxMessages = cfg.MaxMessages
			info.name = existing.Name
			info.attached = true
		case isNotFoundErr(err):
			// Proceed as a new consumer.
		default:
			return subscriptionInfo{}, fmt.Errorf("consumer info for %q: %w", cfg.Durable, err)
		}
	}

	if info.config.FilterSubject == "" && len(info.config.FilterSubjects) == 0 && !info.attached {
		info.config.FilterSubject = subject
	}

	switch {
	case info.config.DeliverSubject != "":
		info.deliver = info.config.DeliverSubject
	case forPull:
		// Pull consumers carry no deliver_subject on the wire; the inbox
		// is used only as the reply-to on MSG.NEXT requests.
		info.deliver = c.transport.NewInbox()
	default:
		info.deliver = c.transport.NewInbox()
		info.config.DeliverSubject = info.deliver
	}

	return info, nil
}

// maybeCreateConsumer issues ConsumerAdd with defaults merged in, unless
// already attached.
func (c *Client) maybeCreateConsumer(ctx context.Context, info *subscriptionInfo) error {
	if info.attached {
		return nil
	}
	if info.config.BindOnly {
		return fmt.Errorf("consumer %q on stream %q does not exist (bind-only)", info.config.Durable, info.stream)
	}

	cfg := info.config
	if cfg.AckPolicy == AckPolicyNotSet {
		cfg.AckPolicy = AckPolicyExplicit
	}
	if cfg.AckWait <= 0 {
		cfg.AckWait = 30 * time.Second
	}
	if cfg.ReplayPolicy == "" {
		cfg.ReplayPolicy = "instant"
	}

	result, err := c.createConsumer(ctx, info.stream, cfg)
	if err != nil {
		return err
	}
	if len(cfg.FilterSubjects) > 0 && len(result.Config.FilterSubjects) == 0 {
		return fmt.Errorf("server does not support multiple filter subjects (upgrade required)")
	}
	info.name = result.Name
	manualAck, maxMessages := info.config.ManualAck, info.config.MaxMessages
	info.config = consumerConfigFromInfo(result, info.config.Ordered)
	info.config.ManualAck = manualAck
	info.config.MaxMessages = maxMessages
	info.attached = false
	return nil
}

func (c *Client) createConsumer(ctx context.Context, stream string, cfg ConsumerConfig) (*nats.ConsumerInfo, error) {
	req := struct {
		Stream string              `json:"stream_name"`
		Config nats.ConsumerConfig `json:"config"`
	}{Stream: stream, Config: toNatsConsumerConfig(cfg)}

	body, err := json.Marshal(req)
	if err != nil {
		return nil, err
	}
	reply, err := c.transport.Request(ctx, consumerCreateSubject(c.apiPrefix, stream), body, nil)
	if err != nil {
		return nil, err
	}
	var resp consumerInfoResponse
	if _, err := decodeAPIReply(reply, contextGeneral, c.features, &resp); err != nil {
		return nil, err
	}
	if apiErr := resp.asError(); apiErr != nil {
		return nil, apiErr
	}
	return &resp.ConsumerInfo, nil
}

func (c *Client) consumerInfo(ctx context.Context, stream, name string) (*consumerInfoResponse, error) {
	reply, err := c.transport.Request(ctx, consumerInfoSubject(c.apiPrefix, stream, name), nil, nil)
	if err != nil {
		return nil, err
	}
	var resp consumerInfoResponse
	if _, err := decodeAPIReply(reply, contextGeneral, c.features, &resp); err != nil {
		return nil, err
	}
	if apiErr := resp.asError(); apiErr != nil {
		return nil, apiErr
	}
	return &resp, nil
}

func (c *Client) deleteConsumer(ctx context.Context, stream, name string) error {
	reply, err := c.transport.Request(ctx, consumerDeleteSubject(c.apiPrefix, stream, name), nil, nil)
	if err != nil {
		return err
	}
	var resp consumerDeleteResponse
	if _, err := decodeAPIReply(reply, contextGeneral, c.features, &resp); err != nil {
		return err
	}
	return resp.asError()
}

func (c *Client) streamBySubject(ctx context.Context, subject string) (string, error) {
	body, err := json.Marshal(struct {
		Subject string `json:"subject"`
	}{Subject: subject})
	if err != nil {
		return "", err
	}
	reply, err := c.transport.Request(ctx, streamNamesSubject(c.apiPrefix), body, nil)
	if err != nil {
		return "", err
	}
	var resp streamNamesResponse
	if _, err := decodeAPIReply(reply, contextGeneral, c.features, &resp); err != nil {
		return "", err
	}
	if apiErr := resp.asError(); apiErr != nil {
		return "", apiErr
	}
	if len(resp.Streams) == 0 {
		return "", fmt.Errorf("no stream matches subject %q", subject)
	}
	return resp.Streams[0], nil
}

// ConsumerInfo issues a CONSUMER.INFO RPC for an existing consumer.
func (c *Client) ConsumerInfo(ctx context.Context, stream, name string) (*nats.ConsumerInfo, error) {
	resp, err := c.consumerInfo(ctx, stream, name)
	if err != nil {
		return nil, err
	}
	return &resp.ConsumerInfo, nil
}

// DeleteConsumer issues a CONSUMER.DELETE RPC.
func (c *Client) DeleteConsumer(ctx context.Context, stream, name string) error {
	return c.deleteConsumer(ctx, stream, name)
}

// DirectGet issues a DIRECT.GET request for a single sequence.
func (c *Client) DirectGet(ctx context.Context, stream string, seq uint64) (*DirectGetResult, error) {
	body, err := json.Marshal(struct {
		Seq uint64 `json:"seq"`
	}{Seq: seq})
	if err != nil {
		return nil, err
	}
	reply, err := c.transport.Request(ctx, directGetSubject(stream), body, nil)
	if err != nil {
		return nil, err
	}
	return parseDirectGet(reply)
}

// Subscribe creates or attaches to a push consumer and returns a live
// JetStream subscription. Exactly one of iterator or callback
// selects the delivery mode: when iterator is true, callback may be nil and
// messages are read via Subscription.Messages; otherwise callback receives
// every message and classified error.
func (c *Client) Subscribe(ctx context.Context, subject string, cfg ConsumerConfig, iterator bool, callback func(*Msg, error)) (*Subscription, error) {
	if !iterator && callback == nil {
		return nil, fmt.Errorf("subscribe: callback required unless iterator mode is requested")
	}

	info, err := c.processOptions(ctx, subject, cfg, false)
	if err != nil {
		return nil, err
	}
	if err := c.maybeCreateConsumer(ctx, &info); err != nil {
		return nil, err
	}
	return newSubscription(c, info, iterator, callback)
}

// PullSubscribe creates or attaches to an explicit-ack pull consumer. The
// returned PullSubscription must have Pull called on it before
// any messages are delivered.
func (c *Client) PullSubscribe(ctx context.Context, subject string, cfg ConsumerConfig) (*PullSubscription, error) {
	if cfg.Ordered {
		return nil, fmt.Errorf("pull subscribe: cannot be ordered")
	}
	if cfg.DeliverSubject != "" {
		return nil, fmt.Errorf("pull subscribe: deliver subject not allowed")
	}
	if cfg.AckPolicy == AckPolicyNotSet {
		cfg.AckPolicy = AckPolicyExplicit
	}
	if cfg.AckPolicy != AckPolicyExplicit {
		return nil, fmt.Errorf("pull subscribe: ack policy must be explicit")
	}

	info, err := c.processOptions(ctx, subject, cfg, true)
	if err != nil {
		return nil, err
	}
	if err := c.maybeCreateConsumer(ctx, &info); err != nil {
		return nil, err
	}
	sub, err := newSubscription(c, info, true, nil)
	if err != nil {
		return nil, err
	}
	return &PullSubscription{Subscription: sub}, nil
}

func isNotFoundErr(err error) bool {
	jerr, ok := err.(*Error)
	return ok && jerr.Code == 404
}

func toNatsConsumerConfig(cfg ConsumerConfig) nats.ConsumerConfig {
	nc := nats.ConsumerConfig{
		Durable:        cfg.Durable,
		DeliverSubject: cfg.DeliverSubject,
		DeliverGroup:   cfg.DeliverGroup,
		OptStartSeq:    cfg.OptStartSeq,
		OptStartTime:   cfg.OptStartTime,
		AckWait:        cfg.AckWait,
		MaxDeliver:     cfg.MaxDeliver,
		FilterSubject:  cfg.FilterSubject,
		FilterSubjects: cfg.FilterSubjects,
		MaxAckPending:  cfg.MaxAckPending,
		FlowControl:    cfg.FlowControl,
		Heartbeat:      cfg.IdleHeartbeat,
		MemoryStorage:  cfg.MemStorage,
		Replicas:       cfg.NumReplicas,
	}
	switch cfg.AckPolicy {
	case AckPolicyNone:
		nc.AckPolicy = nats.AckNonePolicy
	case AckPolicyAll:
		nc.AckPolicy = nats.AckAllPolicy
	default:
		nc.AckPolicy = nats.AckExplicitPolicy
	}
	switch cfg.DeliverPolicy {
	case DeliverLast:
		nc.DeliverPolicy = nats.DeliverLastPolicy
	case DeliverNew:
		nc.DeliverPolicy = nats.DeliverNewPolicy
	case DeliverByStartSequence:
		nc.DeliverPolicy = nats.DeliverByStartSequencePolicy
	case DeliverByStartTime:
		nc.DeliverPolicy = nats.DeliverByStartTimePolicy
	case DeliverLastPerSubject:
		nc.DeliverPolicy = nats.DeliverLastPerSubjectPolicy
	default:
		nc.DeliverPolicy = nats.DeliverAllPolicy
	}
	if cfg.ReplayPolicy == "original" {
		nc.ReplayPolicy = nats.ReplayOriginalPolicy
	} else {
		nc.ReplayPolicy = nats.ReplayInstantPolicy
	}
	return nc
}

func consumerConfigFromInfo(info *nats.ConsumerInfo, ordered bool) ConsumerConfig {
	cfg := ConsumerConfig{
		Durable:        info.Config.Durable,
		DeliverSubject: info.Config.DeliverSubject,
		DeliverGroup:   info.Config.DeliverGroup,
		FilterSubject:  info.Config.FilterSubject,
		FilterSubjects: info.Config.FilterSubjects,
		OptStartSeq:    info.Config.OptStartSeq,
		OptStartTime:   info.Config.OptStartTime,
		AckWait:        info.Config.AckWait,
		MaxDeliver:     info.Config.MaxDeliver,
		MaxAckPending:  info.Config.MaxAckPending,
		FlowControl:    info.Config.FlowControl,
		IdleHeartbeat:  info.Config.Heartbeat,
		MemStorage:     info.Config.MemoryStorage,
		NumReplicas:    info.Config.Replicas,
		Ordered:        ordered,
	}
	switch info.Config.AckPolicy {
	case nats.AckNonePolicy:
		cfg.AckPolicy = AckPolicyNone
	case nats.AckAllPolicy:
		cfg.AckPolicy = AckPolicyAll
	default:
		cfg.AckPolicy = AckPolicyExplicit
	}
	switch info.Config.DeliverPolicy {
	case nats.DeliverLastPolicy:
		cfg.DeliverPolicy = DeliverLast
	case nats.DeliverNewPolicy:
		cfg.DeliverPolicy = DeliverNew
	case nats.DeliverByStartSequencePolicy:
		cfg.DeliverPolicy = DeliverByStartSequence
	case nats.DeliverByStartTimePolicy:
		cfg.DeliverPolicy = DeliverByStartTime
	case nats.DeliverLastPerSubjectPolicy:
		cfg.DeliverPolicy = DeliverLastPerSubject
	default:
		cfg.DeliverPolicy = DeliverAll
	}
	if info.Config.ReplayPolicy == nats.ReplayOriginalPolicy {
		cfg.ReplayPolicy = "original"
	} else {
		cfg.ReplayPolicy = "instant"
	}
	return cfg
}
