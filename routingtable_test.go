package kademlia

import "testing"

func TestRoutingTableRejectsSelf(t *testing.T) {
	var self NodeId
	self[0] = 1
	table, err := NewRoutingTable(self, 2, nil)
	if err != nil {
		t.Fatalf("new routing table: %v", err)
	}
	added, err := table.AddNode(NewPeerRecord(self, "127.0.0.1:1"))
	if err != nil {
		t.Fatalf("add node: %v", err)
	}
	if added {
		t.Errorf("expected self id to be rejected")
	}
}

func TestRoutingTableAddAndContains(t *testing.T) {
	var self NodeId
	table, err := NewRoutingTable(self, 2, nil)
	if err != nil {
		t.Fatalf("new routing table: %v", err)
	}

	var other NodeId
	other[0] = 0x80
	if _, err := table.AddNode(NewPeerRecord(other, "127.0.0.1:2")); err != nil {
		t.Fatalf("add node: %v", err)
	}
	if !table.Contains(other) {
		t.Errorf("expected table to contain added peer")
	}
}

func TestRoutingTableFindClosestOrdering(t *testing.T) {
	var self NodeId
	table, err := NewRoutingTable(self, 20, nil)
	if err != nil {
		t.Fatalf("new routing table: %v", err)
	}

	var near, far NodeId
	near[NodeIDSize-1] = 0x01
	far[0] = 0x80

	if _, err := table.AddNode(NewPeerRecord(far, "127.0.0.1:1")); err != nil {
		t.Fatalf("add far: %v", err)
	}
	if _, err := table.AddNode(NewPeerRecord(near, "127.0.0.1:2")); err != nil {
		t.Fatalf("add near: %v", err)
	}

	closest := table.FindClosest(self, 2)
	if len(closest) != 2 {
		t.Fatalf("expected 2 results, got %d", len(closest))
	}
	if !closest[0].ID.Equal(near) {
		t.Errorf("expected nearer peer first, got %s", closest[0].ID)
	}
}

func TestRoutingTableRandomNodeEmpty(t *testing.T) {
	var self NodeId
	table, _ := NewRoutingTable(self, 2, nil)
	if _, ok := table.RandomNode(); ok {
		t.Errorf("expected no random node in an empty table")
	}
}
