package kademlia

import "github.com/pkg/errors"

// The six error kinds from the protocol's error-handling design.
// Handlers compare against these with errors.Is; network code wraps
// them with github.com/pkg/errors to retain a stack trace for logs,
// following the errors.Errorf/errors.Wrap idiom in
// other_examples/6bac95d6_romainPellerin-noise__skademlia-identity.go.go
// and other_examples/fbf9fb57_romainPellerin-noise__skademlia-dht-routes.go.go.
var (
	// ErrUnauthenticated: signature mismatch, public-key/id mismatch,
	// or the sender's id fails the difficulty check.
	ErrUnauthenticated = errors.New("kademlia: unauthenticated request")

	// ErrStale: request timestamp falls outside the allowed skew window.
	ErrStale = errors.New("kademlia: stale request timestamp")

	// ErrTransportTransient: a single send attempt failed (timeout,
	// connection refused); the client retries.
	ErrTransportTransient = errors.New("kademlia: transient transport error")

	// ErrTransportExhausted: all retry attempts failed.
	ErrTransportExhausted = errors.New("kademlia: transport retries exhausted")

	// ErrNotFound is not a protocol error: FIND_VALUE returns peers
	// instead. Exposed for callers that want to distinguish the case.
	ErrNotFound = errors.New("kademlia: key not found")

	// ErrInternal marks an invariant violation; the node should
	// terminate rather than continue operating on corrupted state.
	ErrInternal = errors.New("kademlia: internal invariant violation")
)
