package kademlia

import "testing"

func TestSignVerifyRoundTrip(t *testing.T) {
	kp, err := GenerateKeypair()
	if err != nil {
		t.Fatalf("generate keypair: %v", err)
	}
	msg := []byte("hello kademlia")
	sig := kp.Sign(msg)
	if !Verify(kp.Public, msg, sig) {
		t.Errorf("expected signature to verify")
	}
}

func TestVerifyRejectsTamperedMessage(t *testing.T) {
	kp, err := GenerateKeypair()
	if err != nil {
		t.Fatalf("generate keypair: %v", err)
	}
	sig := kp.Sign([]byte("original"))
	if Verify(kp.Public, []byte("tampered"), sig) {
		t.Errorf("expected signature over tampered message to fail")
	}
}

func TestIdFromPublicKeyIsSHA256(t *testing.T) {
	kp, err := GenerateKeypair()
	if err != nil {
		t.Fatalf("generate keypair: %v", err)
	}
	want := SHA256(kp.Public)
	got := idFromPublicKey(kp.Public)
	if NodeId(want) != got {
		t.Errorf("idFromPublicKey should equal SHA256 of the public key")
	}
}
