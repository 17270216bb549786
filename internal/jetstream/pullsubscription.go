package jetstream

import (
	"context"
	"encoding/json"
	"fmt"
)

// pullRequest is the wire body for a MSG.NEXT request.
type pullRequest struct {
	Batch         int   `json:"batch"`
	NoWait        bool  `json:"no_wait,omitempty"`
	MaxBytes      int   `json:"max_bytes,omitempty"`
	ExpiresNanos  int64 `json:"expires,omitempty"`
	IdleHeartbeat int64 `json:"idle_heartbeat,omitempty"`
}

// PullSubscription extends Subscription with an explicit pull operation.
type PullSubscription struct {
	*Subscription
}

func (s *Subscription) snapshot() (stream, deliver, consumer string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.info.stream, s.info.deliver, s.consumerName()
}

// Pull requests up to opts.Batch messages (or opts.MaxBytes worth) on the
// subscription's deliver inbox.
func (p *PullSubscription) Pull(ctx context.Context, opts PullOpts) error {
	if err := opts.validate(p.client.features); err != nil {
		return err
	}

	p.cancelHeartbeatMonitor()
	if opts.Expires > 0 && opts.IdleHeartbeat > 0 {
		p.installHeartbeatMonitor(opts.IdleHeartbeat, opts.Expires)
	}

	stream, deliver, consumer := p.snapshot()

	body, err := json.Marshal(pullRequest{
		Batch:         opts.Batch,
		NoWait:        opts.NoWait,
		MaxBytes:      opts.MaxBytes,
		ExpiresNanos:  int64(opts.Expires),
		IdleHeartbeat: int64(opts.IdleHeartbeat),
	})
	if err != nil {
		return fmt.Errorf("encode pull request: %w", err)
	}

	subject := consumerMsgNextSubject(p.client.apiPrefix, stream, consumer)
	return p.client.transport.Publish(subject, deliver, body, nil)
}
