package kademlia

import (
	"time"

	"go.uber.org/zap"
)

// Identity bundles an admissible keypair with the NodeId it produces.
type Identity struct {
	Keypair Keypair
	ID      NodeId
}

// GenerateIdentity repeatedly creates a fresh Ed25519 pair and computes
// id = SHA-256(public_key), accepting the pair once id has at least c1
// leading zero bits. Progress is logged every logInterval attempts.
// Termination is probabilistic: no deadline is enforced, matching
// kademlia_node_search/node.rs::generate_id in the Rust original this
// package descends from.
func GenerateIdentity(c1 int, logInterval uint64, log *zap.SugaredLogger) (Identity, time.Duration, uint64, error) {
	if log == nil {
		log = zap.NewNop().Sugar()
	}

	start := time.Now()
	var attempts uint64

	log.Infow("generating node identity", "difficulty_bits", c1)

	for {
		attempts++

		kp, err := GenerateKeypair()
		if err != nil {
			return Identity{}, time.Since(start), attempts, err
		}

		digest := SHA256(kp.Public)

		if attempts%logInterval == 0 {
			log.Infow("identity generation in progress",
				"attempts", attempts,
				"elapsed", time.Since(start),
			)
		}

		if hasLeadingZeroBits(digest[:], c1) {
			elapsed := time.Since(start)
			log.Infow("generated node identity",
				"attempts", attempts,
				"elapsed", elapsed,
				"id", NodeId(digest).String(),
			)
			return Identity{Keypair: kp, ID: NodeId(digest)}, elapsed, attempts, nil
		}
	}
}

// VerifyIdentity reports whether publicKey is entitled to claim id
// under the c1 proof-of-work admission constraint: SHA-256(publicKey)
// must equal id, and id must carry at least c1 leading zero bits.
func VerifyIdentity(publicKey []byte, id NodeId, c1 int) bool {
	digest := SHA256(publicKey)
	if NodeId(digest) != id {
		return false
	}
	return hasLeadingZeroBits(digest[:], c1)
}
