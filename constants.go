package kademlia

import "time"

// NodeIDSize is the width in bytes of a NodeId (SHA-256 digest width).
const NodeIDSize = 32

// NumBuckets is the number of k-buckets in a routing table, one per
// possible common-prefix length of a 256-bit NodeId.
const NumBuckets = NodeIDSize * 8

// DefaultC1 is the default proof-of-work admission difficulty: the
// number of leading zero bits a node ID's SHA-256 digest must have.
const DefaultC1 = 8

// DefaultK is the default k-bucket replication parameter.
const DefaultK = 20

// DefaultRefreshTimerLower and DefaultRefreshTimerUpper bound the
// uniform random interval (in seconds) between refresh cycles.
const (
	DefaultRefreshTimerLower = 60
	DefaultRefreshTimerUpper = 300
)

// DefaultTimeoutTimer is the per-attempt RPC timeout, in seconds.
const DefaultTimeoutTimer = 5

// DefaultTimeoutMaxAttempts is the number of attempts a client call
// makes before it fails with ErrTransportExhausted.
const DefaultTimeoutMaxAttempts = 3

// DefaultLogInterval is how often (in attempts) identity generation
// reports progress.
const DefaultLogInterval = 100000

// DefaultSkew is the allowed clock skew window for request timestamps.
// The Rust source this package is descended from never enforces this;
// SPEC_FULL.md resolves that open question in favor of enforcement.
const DefaultSkew = 30 * time.Second

// TCPIODeadline bounds a single read or write on an RPC connection.
const TCPIODeadline = 10 * time.Second

// TCPIOBufferSize caps the size of a single framed RPC payload.
const TCPIOBufferSize = 4 << 20 // 4 MiB
