package jetstream

import (
	"context"
	"encoding/json"
	"strconv"
	"time"

	"github.com/nats-io/nats.go"
)

// Publish sends data to subject with the optimistic-concurrency
// expectation headers PubOpts carries, retrying on a transient
// broker-unavailable status.
func (c *Client) Publish(ctx context.Context, subject string, data []byte, opts PubOpts) (*PubAck, error) {
	opts = opts.withDefaults()

	hdr := nats.Header{}
	if opts.MsgID != "" {
		hdr.Set(MsgIDHdr, opts.MsgID)
	}
	if opts.ExpectStream != "" {
		hdr.Set(ExpectedStreamHdr, opts.ExpectStream)
	}
	if opts.ExpectLastMsgID != "" {
		hdr.Set(ExpectedLastMsgIDHdr, opts.ExpectLastMsgID)
	}
	if opts.ExpectLastSequence != nil {
		hdr.Set(ExpectedLastSeqHdr, strconv.FormatUint(*opts.ExpectLastSequence, 10))
	}
	if opts.ExpectLastSubjectSeq != nil {
		hdr.Set(ExpectedLastSubjSeqHdr, strconv.FormatUint(*opts.ExpectLastSubjectSeq, 10))
	}

	// At most opts.Retries wire requests are emitted; only a 503 reply on a
	// non-final attempt triggers another one.
	var lastErr error
	for attempt := 0; attempt < opts.Retries; attempt++ {
		if attempt > 0 {
			c.metrics.publishRetries.Inc()
			select {
			case <-time.After(opts.RetryDelay):
			case <-ctx.Done():
				return nil, ctx.Err()
			}
		}
		final := attempt == opts.Retries-1

		reqCtx, cancel := context.WithTimeout(ctx, opts.Timeout)
		reply, err := c.transport.Request(reqCtx, subject, data, hdr)
		cancel()
		if err != nil {
			jerr, ok := err.(*Error)
			if ok && jerr.Kind == KindBrokerUnavailable && !final {
				lastErr = err
				continue
			}
			return nil, err
		}

		var resp pubAckResponse
		if _, err := decodeAPIReply(reply, contextPublish, c.features, &resp); err != nil {
			if jerr, ok := err.(*Error); ok && jerr.Kind == KindBrokerUnavailable && !final {
				lastErr = err
				continue
			}
			return nil, err
		}
		if apiErr := resp.asError(); apiErr != nil {
			if jerr, ok := apiErr.(*Error); ok && jerr.Code == 503 && !final {
				lastErr = apiErr
				continue
			}
			return nil, apiErr
		}
		if resp.Stream == "" {
			return nil, ErrInvalidAck
		}
		return &PubAck{Stream: resp.Stream, Seq: resp.Seq, Duplicate: resp.Duplicate}, nil
	}
	return nil, lastErr
}

// Pull performs a single one-shot pull request for one message.
func (c *Client) Pull(ctx context.Context, stream, durable string, expires time.Duration) (*Msg, error) {
	noWait := expires <= 0
	body, err := json.Marshal(pullRequest{
		Batch:        1,
		NoWait:       noWait,
		ExpiresNanos: int64(expires),
	})
	if err != nil {
		return nil, err
	}

	timeout := defaultRequestTimeout
	if expires > timeout {
		timeout = expires
	}
	reqCtx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()

	reply, err := c.transport.Request(reqCtx, consumerMsgNextSubject(c.apiPrefix, stream, durable), body, nil)
	if err != nil {
		return nil, err
	}
	if sf, ok := parseStatus(reply); ok {
		return nil, classify(sf, contextGeneral, c.features).asError(sf)
	}
	return adaptMsg(reply), nil
}
