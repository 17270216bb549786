// Package jetstream implements the client-side delivery core that turns a
// NATS JetStream broker's request/reply and publish/subscribe primitives
// into single-shot pull, batched fetch, and long-lived push/pull
// subscriptions. It owns consumer bind/create, flow control, idle-heartbeat
// liveness, ordered-consumer recovery, publish-with-expectations, and the
// server error taxonomy. Connection lifecycle, subject-based pub/sub,
// request/reply, inbox allocation, and header encoding are provided by the
// Transport this package is built on (satisfied by nats-io/nats.go).
package jetstream
