package kademlia

import (
	"bytes"
	"context"
	"errors"
	"sort"
	"sync"

	"golang.org/x/sync/errgroup"
)

// LookupAlpha bounds how many peers are queried concurrently per round
// of an iterative lookup, the classic Kademlia alpha parameter.
const LookupAlpha = 3

// errValueFound is a sentinel returned by a FIND_VALUE queryFunc to
// short-circuit the round loop once any contacted peer answers a hit.
var errValueFound = errors.New("kademlia: value found")

// lookupCandidate tracks one peer considered during an iterative
// lookup and whether it has already been queried this search.
type lookupCandidate struct {
	peer    PeerRecord
	queried bool
}

// queryFunc contacts addr on behalf of an in-progress lookup and
// returns the peers it reports closer to the search target.
type queryFunc func(ctx context.Context, addr string) ([]WireNode, error)

// Lookup performs an iterative FIND_NODE search for target, starting
// from the routing table's current closest-known peers and converging
// on the K true closest nodes in the network. Replaces the teacher's
// manual sync.WaitGroup/sync.Mutex fan-out in dht.go with
// golang.org/x/sync/errgroup, matching the concurrency idiom used by
// other_examples/e6ce1f62_simonunzio-storj__pkg-kademlia-dialer_test.go.go.
func (n *Node) Lookup(ctx context.Context, target NodeId) ([]PeerRecord, error) {
	seed := n.table.FindClosest(target, n.table.k)
	return runLookup(ctx, target, n.table.k, seed, func(ctx context.Context, addr string) ([]WireNode, error) {
		resp, err := n.client.FindNode(addr, target)
		if err != nil {
			return nil, err
		}
		return resp.Nodes, nil
	})
}

// LookupValue performs an iterative FIND_VALUE search for key. It
// returns (value, true) on a hit from any contacted peer, or the
// closest peers found and false on an exhaustive miss.
func (n *Node) LookupValue(ctx context.Context, key []byte) ([]byte, bool, []PeerRecord, error) {
	var target NodeId
	digest := SHA256(key)
	copy(target[:], digest[:])

	var found []byte
	var once sync.Once

	seed := n.table.FindClosest(target, n.table.k)
	peers, err := runLookup(ctx, target, n.table.k, seed, func(ctx context.Context, addr string) ([]WireNode, error) {
		resp, err := n.client.FindValue(addr, key)
		if err != nil {
			return nil, err
		}
		if len(resp.Value) > 0 {
			once.Do(func() { found = resp.Value })
			return nil, errValueFound
		}
		return resp.Nodes, nil
	})

	if errors.Is(err, errValueFound) {
		return found, true, nil, nil
	}
	if err != nil {
		return nil, false, nil, err
	}
	return nil, false, peers, nil
}

// runLookup runs the round-based iterative search shared by Lookup and
// LookupValue: each round queries up to LookupAlpha of the closest
// not-yet-queried candidates concurrently, merges their answers, and
// stops when a round yields no peer closer than the best already
// known (standard Kademlia convergence condition), or a queryFunc
// returns errValueFound.
func runLookup(ctx context.Context, target NodeId, k int, seed []PeerRecord, query queryFunc) ([]PeerRecord, error) {
	seen := make(map[NodeId]*lookupCandidate, k*2)
	order := make([]*lookupCandidate, 0, k*2)
	add := func(p PeerRecord) {
		if _, ok := seen[p.ID]; ok {
			return
		}
		c := &lookupCandidate{peer: p}
		seen[p.ID] = c
		order = append(order, c)
	}
	for _, p := range seed {
		add(p)
	}

	sortCandidates := func() {
		sort.SliceStable(order, func(i, j int) bool {
			di := order[i].peer.ID.Distance(target)
			dj := order[j].peer.ID.Distance(target)
			return bytes.Compare(di[:], dj[:]) < 0
		})
	}

	for {
		sortCandidates()

		var round []*lookupCandidate
		for _, c := range order {
			if !c.queried {
				round = append(round, c)
				if len(round) == LookupAlpha {
					break
				}
			}
		}
		if len(round) == 0 {
			break
		}

		var bestBefore [32]byte
		haveBest := len(order) > 0
		if haveBest {
			bestBefore = order[0].peer.ID.Distance(target)
		}

		g, gctx := errgroup.WithContext(ctx)
		var mu sync.Mutex
		for _, c := range round {
			c := c
			c.queried = true
			g.Go(func() error {
				nodes, err := query(gctx, c.peer.Address)
				if err != nil {
					if errors.Is(err, errValueFound) {
						return err
					}
					return nil
				}
				mu.Lock()
				for _, wn := range nodes {
					var id NodeId
					copy(id[:], wn.ID)
					if !id.Equal(target) {
						add(NewPeerRecord(id, wn.Address))
					}
				}
				mu.Unlock()
				return nil
			})
		}
		if err := g.Wait(); err != nil {
			return nil, err
		}

		sortCandidates()
		if haveBest && len(order) > 0 {
			bestAfter := order[0].peer.ID.Distance(target)
			if bytes.Equal(bestBefore[:], bestAfter[:]) {
				break
			}
		}
	}

	sortCandidates()
	out := make([]PeerRecord, 0, k)
	for _, c := range order {
		out = append(out, c.peer)
		if len(out) == k {
			break
		}
	}
	return out, nil
}
