package kademlia

import (
	"context"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestBootstrapMergesRoutingTable(t *testing.T) {
	seed := newTestNode(t)
	joiner := newTestNode(t)

	require.NoError(t, joiner.Bootstrap(seed.Address))
	require.True(t, joiner.table.Contains(seed.Identity.ID))
}

func TestBootstrapFailsAgainstDeadAddress(t *testing.T) {
	joiner := newTestNode(t)
	err := joiner.Bootstrap("127.0.0.1:1")
	require.Error(t, err)
}

func TestLookupFindsBootstrappedPeer(t *testing.T) {
	seed := newTestNode(t)
	joiner := newTestNode(t)
	require.NoError(t, joiner.Bootstrap(seed.Address))

	results, err := joiner.Lookup(context.Background(), seed.Identity.ID)
	require.NoError(t, err)

	found := false
	for _, p := range results {
		if p.ID.Equal(seed.Identity.ID) {
			found = true
		}
	}
	require.True(t, found, "expected lookup to surface the bootstrapped seed peer")
}

func TestLookupValueHitAfterStore(t *testing.T) {
	seed := newTestNode(t)
	joiner := newTestNode(t)
	require.NoError(t, joiner.Bootstrap(seed.Address))

	key := []byte("ledger-entry")
	value := []byte("bid=100")
	_, err := joiner.client.Store(seed.Address, key, value)
	require.NoError(t, err)

	got, hit, _, err := joiner.LookupValue(context.Background(), key)
	require.NoError(t, err)
	require.True(t, hit)
	require.Equal(t, value, got)
}
