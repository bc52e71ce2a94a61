package kademlia

import "testing"

func TestNodeIdDistanceSelf(t *testing.T) {
	var a NodeId
	for i := range a {
		a[i] = byte(i)
	}
	d := a.Distance(a)
	if !d.IsZero() {
		t.Errorf("distance to self should be zero, got %s", d)
	}
}

func TestNodeIdCommonPrefixLen(t *testing.T) {
	var a, b NodeId
	a[0] = 0b10110000
	b[0] = 0b10100000
	if got := a.CommonPrefixLen(b); got != 3 {
		t.Errorf("expected common prefix len 3, got %d", got)
	}
}

func TestNodeIdCommonPrefixLenIdentical(t *testing.T) {
	var a NodeId
	a[0] = 0xFF
	if got := a.CommonPrefixLen(a); got != NumBuckets {
		t.Errorf("expected %d, got %d", NumBuckets, got)
	}
}

func TestNodeIdBucketIndex(t *testing.T) {
	var self, other NodeId
	self[0] = 0b00000000
	other[0] = 0b10000000
	if idx := self.BucketIndex(other); idx != 0 {
		t.Errorf("expected bucket 0, got %d", idx)
	}
}

func TestHasLeadingZeroBits(t *testing.T) {
	digest := make([]byte, 32)
	if !hasLeadingZeroBits(digest, 256) {
		t.Errorf("all-zero digest should satisfy any difficulty up to 256")
	}
	if hasLeadingZeroBits(digest, 257) {
		t.Errorf("difficulty beyond digest length should fail")
	}

	digest[0] = 0b00000001
	if !hasLeadingZeroBits(digest, 7) {
		t.Errorf("expected 7 leading zero bits to hold")
	}
	if hasLeadingZeroBits(digest, 8) {
		t.Errorf("expected 8 leading zero bits to fail")
	}

	digest[0] = 0
	digest[1] = 0b00010000
	if !hasLeadingZeroBits(digest, 11) {
		t.Errorf("expected 11 leading zero bits across byte boundary to hold")
	}
	if hasLeadingZeroBits(digest, 12) {
		t.Errorf("expected 12 leading zero bits to fail")
	}
}
