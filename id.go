package kademlia

import (
	"bytes"
	"encoding/hex"
)

// NodeId is the 32-byte SHA-256 digest of a node's Ed25519 public key.
// Admissibility requires at least C1 leading zero bits (see identity.go).
type NodeId [NodeIDSize]byte

// String returns the hex encoding of the ID.
func (id NodeId) String() string {
	return hex.EncodeToString(id[:])
}

// Equal reports whether two IDs are byte-equal.
func (id NodeId) Equal(other NodeId) bool {
	return bytes.Equal(id[:], other[:])
}

// IsZero reports whether the ID is the zero value.
func (id NodeId) IsZero() bool {
	return id.Equal(NodeId{})
}

// Distance returns the bitwise XOR of id and other, interpreted as the
// fundamental Kademlia metric.
func (id NodeId) Distance(other NodeId) NodeId {
	var out NodeId
	for i := 0; i < NodeIDSize; i++ {
		out[i] = id[i] ^ other[i]
	}
	return out
}

// Less reports whether id's distance is smaller than other's distance,
// comparing as a big-endian unsigned integer.
func (d NodeId) Less(other NodeId) bool {
	return bytes.Compare(d[:], other[:]) < 0
}

// CommonPrefixLen returns the number of leading bits at which id and
// other agree. A return value of NumBuckets means the two IDs are
// identical.
func (id NodeId) CommonPrefixLen(other NodeId) int {
	distance := id.Distance(other)
	for byteIdx, b := range distance {
		if b == 0 {
			continue
		}
		return byteIdx*8 + leadingZeroBitsInByte(b)
	}
	return NumBuckets
}

// BucketIndex returns the index (0..NumBuckets-1) of the k-bucket that
// a peer with id `other` belongs in, relative to the local id. Bucket
// i holds peers whose ID differs from the local ID at bit position i
// (0 = most significant bit), i.e. i equals CommonPrefixLen.
func (id NodeId) BucketIndex(other NodeId) int {
	prefixLen := id.CommonPrefixLen(other)
	if prefixLen >= NumBuckets {
		// other == id; callers must reject this before inserting.
		return NumBuckets - 1
	}
	return prefixLen
}

func leadingZeroBitsInByte(b byte) int {
	n := 0
	for mask := byte(0x80); mask != 0; mask >>= 1 {
		if b&mask != 0 {
			break
		}
		n++
	}
	return n
}

// hasLeadingZeroBits reports whether digest has at least c leading zero
// bits. Generalized to the full 0..len(digest)*8 range: it compares
// whole zero bytes first, then masks the remaining bits of the next
// byte, unlike the C1<=16-only check in the original Rust source
// (kademlia_node_search/node.rs::generate_id) and in
// other_examples/6bac95d6_romainPellerin-noise__skademlia-identity.go.go's
// checkHashedBytesPrefixLen, which this function follows the shape of.
func hasLeadingZeroBits(digest []byte, c int) bool {
	if c <= 0 {
		return true
	}
	if c > len(digest)*8 {
		return false
	}

	fullBytes := c / 8
	remBits := c % 8
	for i := 0; i < fullBytes; i++ {
		if digest[i] != 0 {
			return false
		}
	}
	if remBits == 0 {
		return true
	}
	mask := byte(0xFF << (8 - remBits))
	return digest[fullBytes]&mask == 0
}
