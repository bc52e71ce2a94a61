package kademlia

import "testing"

func randPeer(t *testing.T, last byte) PeerRecord {
	t.Helper()
	var id NodeId
	id[NodeIDSize-1] = last
	return NewPeerRecord(id, "127.0.0.1:0")
}

func TestKBucketInsertAndTouch(t *testing.T) {
	b, err := NewKBucket(2)
	if err != nil {
		t.Fatalf("new bucket: %v", err)
	}
	p1 := randPeer(t, 1)
	p2 := randPeer(t, 2)

	if !b.Insert(p1, nil) {
		t.Fatalf("expected first insert to succeed")
	}
	if !b.Insert(p2, nil) {
		t.Fatalf("expected second insert to succeed")
	}
	if b.Len() != 2 {
		t.Fatalf("expected 2 entries, got %d", b.Len())
	}

	// Re-inserting p1 should move it to the tail without growing the bucket.
	if !b.Insert(p1, nil) {
		t.Fatalf("expected refresh insert to report success")
	}
	entries := b.Entries()
	if len(entries) != 2 {
		t.Fatalf("expected 2 entries after refresh, got %d", len(entries))
	}
	if !entries[len(entries)-1].ID.Equal(p1.ID) {
		t.Errorf("expected refreshed peer to move to tail")
	}
}

func TestKBucketEvictionDropNewWithNilPing(t *testing.T) {
	b, err := NewKBucket(1)
	if err != nil {
		t.Fatalf("new bucket: %v", err)
	}
	head := randPeer(t, 1)
	if !b.Insert(head, nil) {
		t.Fatalf("expected first insert to succeed")
	}

	newcomer := randPeer(t, 2)
	if b.Insert(newcomer, nil) {
		t.Errorf("expected drop-new fallback with a nil PingFunc")
	}
	if !b.Contains(head.ID) {
		t.Errorf("expected original head to remain after drop-new")
	}
}

func TestKBucketEvictionPingHeadAlive(t *testing.T) {
	b, _ := NewKBucket(1)
	head := randPeer(t, 1)
	b.Insert(head, nil)

	newcomer := randPeer(t, 2)
	alwaysAlive := func(string) bool { return true }
	if b.Insert(newcomer, alwaysAlive) {
		t.Errorf("expected newcomer to be dropped when head responds to ping")
	}
	if !b.Contains(head.ID) || b.Contains(newcomer.ID) {
		t.Errorf("expected head retained and newcomer dropped")
	}
}

func TestKBucketEvictionPingHeadDead(t *testing.T) {
	b, _ := NewKBucket(1)
	head := randPeer(t, 1)
	b.Insert(head, nil)

	newcomer := randPeer(t, 2)
	alwaysDead := func(string) bool { return false }
	if !b.Insert(newcomer, alwaysDead) {
		t.Errorf("expected newcomer to be inserted when head fails to respond")
	}
	if b.Contains(head.ID) || !b.Contains(newcomer.ID) {
		t.Errorf("expected head evicted and newcomer present")
	}
}

func TestKBucketRemove(t *testing.T) {
	b, _ := NewKBucket(2)
	p := randPeer(t, 1)
	b.Insert(p, nil)
	if !b.Remove(p.ID) {
		t.Errorf("expected remove to report success")
	}
	if b.Contains(p.ID) {
		t.Errorf("expected peer to be gone after remove")
	}
	if b.Remove(p.ID) {
		t.Errorf("expected second remove of the same id to report failure")
	}
}
