package kademlia

import "time"

// PeerRecord is an immutable (except for LastSeen) description of a
// known peer, adapted from the teacher's Peer type in route_table.go
// and peer_store.go (two near-duplicate revisions in the retrieved
// snapshot; this package keeps one unified type).
type PeerRecord struct {
	ID       NodeId
	Address  string
	LastSeen int64 // unix seconds
}

// NewPeerRecord creates a PeerRecord seen at the current time.
func NewPeerRecord(id NodeId, address string) PeerRecord {
	return PeerRecord{ID: id, Address: address, LastSeen: time.Now().Unix()}
}

// Touch returns a copy of the record with LastSeen advanced to now,
// the only mutation a PeerRecord ever undergoes.
func (p PeerRecord) Touch() PeerRecord {
	p.LastSeen = time.Now().Unix()
	return p
}
