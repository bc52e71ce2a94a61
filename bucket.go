package kademlia

import "github.com/pkg/errors"

// PingFunc probes a peer and reports whether it is still reachable.
// The routing table never performs network I/O itself (see §5 of
// SPEC_FULL.md); it calls back into a pinger supplied by the node.
type PingFunc func(address string) bool

// KBucket holds up to K PeerRecords ordered least-recently-seen first,
// most-recently-seen last. Adapted from the teacher's KBucket
// (k_bucket.go, package framework) which re-sorted by LastSeen on
// every read; this version keeps the list ordered at all times so
// touch/insert are O(n) without a full merge sort, which matters once
// buckets are scoped to a single bit-prefix rather than the teacher's
// flat K-bucket-per-hex-distance map.
type KBucket struct {
	k       int
	entries []PeerRecord
}

// NewKBucket constructs an empty bucket with capacity k (k must be >= 1).
func NewKBucket(k int) (*KBucket, error) {
	if k < 1 {
		return nil, errors.New("kademlia: k-bucket capacity must be >= 1")
	}
	return &KBucket{k: k, entries: make([]PeerRecord, 0, k)}, nil
}

// Len returns the number of entries currently in the bucket.
func (b *KBucket) Len() int {
	return len(b.entries)
}

// Full reports whether the bucket has reached its capacity.
func (b *KBucket) Full() bool {
	return len(b.entries) >= b.k
}

// Entries returns the bucket's entries, least-recently-seen first.
// The returned slice is a copy; callers may not mutate the bucket
// through it.
func (b *KBucket) Entries() []PeerRecord {
	out := make([]PeerRecord, len(b.entries))
	copy(out, b.entries)
	return out
}

func (b *KBucket) indexOf(id NodeId) int {
	for i, e := range b.entries {
		if e.ID.Equal(id) {
			return i
		}
	}
	return -1
}

// Contains reports whether id is present in the bucket.
func (b *KBucket) Contains(id NodeId) bool {
	return b.indexOf(id) >= 0
}

func (b *KBucket) removeAt(i int) PeerRecord {
	removed := b.entries[i]
	b.entries = append(b.entries[:i], b.entries[i+1:]...)
	return removed
}

// Insert applies the bucket's eviction policy for peer:
//   - if already present, it is refreshed and moved to the tail (MRS).
//   - else if the bucket has room, it is appended at the tail.
//   - else the head (LRS) is pinged via ping: if it responds, the new
//     peer is dropped and the head is refreshed to the tail; if it
//     fails to respond, the head is evicted and the new peer appended.
//
// ping may be nil, in which case the bucket falls back to the
// synchronous drop-new policy the teacher's routing code always used
// (spec §4.3 requires implementers to choose and document one of
// these; DESIGN.md records the choice to default to ping-head and
// allow drop-new via a nil PingFunc).
func (b *KBucket) Insert(peer PeerRecord, ping PingFunc) bool {
	if i := b.indexOf(peer.ID); i >= 0 {
		existing := b.removeAt(i)
		b.entries = append(b.entries, existing.Touch())
		return true
	}

	if !b.Full() {
		b.entries = append(b.entries, peer)
		return true
	}

	if ping == nil {
		return false
	}

	head := b.entries[0]
	if ping(head.Address) {
		b.removeAt(0)
		b.entries = append(b.entries, head.Touch())
		return false
	}

	b.removeAt(0)
	b.entries = append(b.entries, peer)
	return true
}

// Remove deletes id from the bucket if present.
func (b *KBucket) Remove(id NodeId) bool {
	i := b.indexOf(id)
	if i < 0 {
		return false
	}
	b.removeAt(i)
	return true
}
