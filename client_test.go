package kademlia

import (
	"testing"

	"github.com/stretchr/testify/require"
)

func testClient(t *testing.T) *Client {
	t.Helper()
	kp, err := GenerateKeypair()
	require.NoError(t, err)
	identity := Identity{Keypair: kp, ID: idFromPublicKey(kp.Public)}
	return NewClient(identity, "127.0.0.1:9999", defaultNodeConfig().timeout, 1, nil)
}

func TestBuildPingSignatureVerifies(t *testing.T) {
	c := testClient(t)
	req := c.BuildPing()
	require.True(t, Verify(req.SenderPublicKey, canonicalPingBytes(req.NodeAddress, req.Timestamp), req.Signature))
}

func TestBuildFindNodeSignatureVerifies(t *testing.T) {
	c := testClient(t)
	var target NodeId
	target[0] = 7
	req := c.BuildFindNode(target)
	require.True(t, Verify(req.SenderPublicKey,
		canonicalFindNodeBytes(req.RequesterNodeID, req.RequesterNodeAddress, req.TargetNodeID, req.Timestamp),
		req.Signature))
}

func TestBuildStoreSignatureVerifies(t *testing.T) {
	c := testClient(t)
	req := c.BuildStore([]byte("k"), []byte("v"))
	require.True(t, Verify(req.SenderPublicKey, canonicalStoreBytes(req.Key, req.Value, req.Timestamp), req.Signature))
}

func TestSendExhaustsAttemptsAgainstUnreachableAddress(t *testing.T) {
	c := testClient(t)
	c.MaxAttempts = 2
	_, err := c.Ping("127.0.0.1:1")
	require.Error(t, err)
}
