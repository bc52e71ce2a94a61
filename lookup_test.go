package kademlia

import (
	"context"
	"testing"

	"github.com/stretchr/testify/require"
)

// TestLookupConvergesAcrossMultiplePeers builds a small ring of nodes
// (each bootstrapping through the previous one) and checks that a
// lookup from the first node eventually surfaces peers it never
// contacted directly.
func TestLookupConvergesAcrossMultiplePeers(t *testing.T) {
	nodes := make([]*Node, 4)
	for i := range nodes {
		nodes[i] = newTestNode(t)
	}
	for i := 1; i < len(nodes); i++ {
		require.NoError(t, nodes[i].Bootstrap(nodes[i-1].Address))
	}

	results, err := nodes[0].Lookup(context.Background(), nodes[len(nodes)-1].Identity.ID)
	require.NoError(t, err)
	require.NotEmpty(t, results)

	// nodes[0] only ever heard from nodes[1]; nodes[2] can only have
	// been learned through nodes[1]'s FIND_NODE answer.
	found := false
	for _, p := range results {
		if p.ID.Equal(nodes[2].Identity.ID) {
			found = true
		}
	}
	require.True(t, found, "expected lookup to surface a peer not contacted directly")
}
