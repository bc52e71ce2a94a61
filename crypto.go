package kademlia

import (
	"crypto/ed25519"
	"crypto/rand"
	"crypto/sha256"

	"github.com/pkg/errors"
)

// Keypair is an Ed25519 signing key owned exclusively by a single node
// for its process lifetime.
type Keypair struct {
	Public  ed25519.PublicKey
	Private ed25519.PrivateKey
}

// GenerateKeypair creates a fresh Ed25519 pair from a cryptographically
// secure RNG, mirroring the teacher's inline use of
// ed25519.GenerateKey(rand.Reader) in host.go's NewHost.
func GenerateKeypair() (Keypair, error) {
	pub, priv, err := ed25519.GenerateKey(rand.Reader)
	if err != nil {
		return Keypair{}, errors.Wrap(err, "kademlia: generate keypair")
	}
	return Keypair{Public: pub, Private: priv}, nil
}

// Sign signs message with the keypair's private key.
func (kp Keypair) Sign(message []byte) []byte {
	return ed25519.Sign(kp.Private, message)
}

// Verify reports whether signature is a valid Ed25519 signature over
// message under publicKey. It never panics: a malformed public key or
// signature simply fails verification.
func Verify(publicKey, message, signature []byte) bool {
	if len(publicKey) != ed25519.PublicKeySize {
		return false
	}
	return ed25519.Verify(publicKey, message, signature)
}

// SHA256 returns the 32-byte SHA-256 digest of data.
func SHA256(data []byte) [32]byte {
	return sha256.Sum256(data)
}

// idFromPublicKey derives the NodeId that a public key is entitled to
// claim: the SHA-256 digest of the key itself.
func idFromPublicKey(pub ed25519.PublicKey) NodeId {
	return NodeId(sha256.Sum256(pub))
}
