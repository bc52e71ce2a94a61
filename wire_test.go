package kademlia

import (
	"net"
	"testing"
)

func TestDebugBytesFormat(t *testing.T) {
	got := debugBytes([]byte{1, 2, 255})
	want := "[1, 2, 255]"
	if got != want {
		t.Errorf("expected %q, got %q", want, got)
	}
}

func TestDebugBytesEmpty(t *testing.T) {
	if got := debugBytes(nil); got != "[]" {
		t.Errorf("expected empty slice to render as [], got %q", got)
	}
}

func TestCanonicalPingBytesDeterministic(t *testing.T) {
	a := canonicalPingBytes("127.0.0.1:9000", 12345)
	b := canonicalPingBytes("127.0.0.1:9000", 12345)
	if string(a) != string(b) {
		t.Errorf("canonical ping bytes should be deterministic for identical inputs")
	}
	c := canonicalPingBytes("127.0.0.1:9000", 12346)
	if string(a) == string(c) {
		t.Errorf("canonical ping bytes should differ when timestamp differs")
	}
}

func TestWriteReadFrameRoundTrip(t *testing.T) {
	server, client := net.Pipe()
	defer server.Close()
	defer client.Close()

	payload := []byte(`{"hello":"world"}`)

	done := make(chan error, 1)
	go func() {
		done <- writeFrame(client, payload)
	}()

	got, err := readFrame(server)
	if err != nil {
		t.Fatalf("read frame: %v", err)
	}
	if err := <-done; err != nil {
		t.Fatalf("write frame: %v", err)
	}
	if string(got) != string(payload) {
		t.Errorf("expected %q, got %q", payload, got)
	}
}
