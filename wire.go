package kademlia

import (
	"bufio"
	"encoding/binary"
	"fmt"
	"io"
	"net"
	"strconv"
	"strings"
	"time"

	"github.com/pkg/errors"
)

// RPCMethod names the four Kademlia RPCs.
type RPCMethod string

const (
	MethodPing      RPCMethod = "PING"
	MethodStore     RPCMethod = "STORE"
	MethodFindNode  RPCMethod = "FIND_NODE"
	MethodFindValue RPCMethod = "FIND_VALUE"
)

// Envelope fields common to every RPC request, per spec §3/§6.
type Envelope struct {
	Timestamp       int64  `json:"timestamp"`
	Signature       []byte `json:"signature"`
	SenderPublicKey []byte `json:"sender_public_key"`
}

// PingRequest pings a node to confirm liveness and exchange contact info.
type PingRequest struct {
	Envelope
	NodeAddress string `json:"node_address"`
}

// PingResponse carries the responder's ID and a signature binding it
// to the request timestamp.
type PingResponse struct {
	NodeID    []byte `json:"node_id"`
	Signature []byte `json:"signature"`
}

// StoreRequest asks the receiver to persist key/value in its LocalStore.
type StoreRequest struct {
	Envelope
	Key   []byte `json:"key"`
	Value []byte `json:"value"`
}

// StoreResponse acknowledges a STORE.
type StoreResponse struct {
	OK bool `json:"ok"`
}

// FindNodeRequest asks the receiver for the K closest known peers to
// TargetNodeID.
type FindNodeRequest struct {
	Envelope
	RequesterNodeID      []byte `json:"requester_node_id"`
	RequesterNodeAddress string `json:"requester_node_address"`
	TargetNodeID         []byte `json:"target_node_id"`
}

// WireNode is a peer as carried on the wire: just enough to dial it
// and re-derive its claimed identity.
type WireNode struct {
	ID      []byte `json:"id"`
	Address string `json:"address"`
}

// FindNodeResponse carries the closest known peers to the request's target.
type FindNodeResponse struct {
	Nodes []WireNode `json:"nodes"`
}

// FindValueRequest asks the receiver for the value stored under Key,
// or (absent that) the closest peers to it.
type FindValueRequest struct {
	Envelope
	Key []byte `json:"key"`
}

// FindValueResponse is a tagged union of {Value, Peers}: Value is set
// on a hit, Nodes is populated on a miss.
type FindValueResponse struct {
	Value []byte     `json:"value,omitempty"`
	Nodes []WireNode `json:"nodes,omitempty"`
}

// debugBytes renders a byte slice the way the Rust original's `{:?}`
// formatter does ("[b0, b1, ...]"), because the canonical signed
// message bytes in spec §6 are defined over that rendering and must
// be reproduced bit-identically by signer and verifier.
func debugBytes(b []byte) string {
	var sb strings.Builder
	sb.WriteByte('[')
	for i, v := range b {
		if i > 0 {
			sb.WriteString(", ")
		}
		sb.WriteString(strconv.Itoa(int(v)))
	}
	sb.WriteByte(']')
	return sb.String()
}

// canonicalPingBytes reproduces spec §6: UTF-8 of "{self_addr}{timestamp}".
func canonicalPingBytes(selfAddr string, timestamp int64) []byte {
	return []byte(fmt.Sprintf("%s%d", selfAddr, timestamp))
}

// canonicalFindNodeBytes reproduces spec §6's FIND_NODE signed payload.
func canonicalFindNodeBytes(requesterID []byte, requesterAddr string, targetID []byte, timestamp int64) []byte {
	return []byte(fmt.Sprintf("%s%s%s%d",
		debugBytes(requesterID), requesterAddr, debugBytes(targetID), timestamp))
}

// canonicalStoreBytes reproduces spec §6's STORE signed payload.
func canonicalStoreBytes(key, value []byte, timestamp int64) []byte {
	return []byte(fmt.Sprintf("%s%s%d", debugBytes(key), debugBytes(value), timestamp))
}

// canonicalFindValueBytes reproduces spec §6's FIND_VALUE signed payload.
func canonicalFindValueBytes(key []byte, timestamp int64) []byte {
	return []byte(fmt.Sprintf("%s%d", debugBytes(key), timestamp))
}

// canonicalPingResponseBytes is the payload PING responses sign: the
// responder's own ID concatenated with the request timestamp (spec §4.5).
func canonicalPingResponseBytes(responderID []byte, timestamp int64) []byte {
	return []byte(fmt.Sprintf("%s%d", debugBytes(responderID), timestamp))
}

// writeFrame writes a length-prefixed payload to conn: an 8-byte
// big-endian size followed by the payload itself. Adapted from the
// teacher's WriteToConn/Uint64ToBytes in helpers.go.
func writeFrame(conn net.Conn, payload []byte) error {
	if uint64(len(payload)) > TCPIOBufferSize {
		return errors.New("kademlia: payload exceeds buffer size")
	}
	conn.SetWriteDeadline(time.Now().Add(TCPIODeadline))

	sizeBuf := make([]byte, 8)
	binary.BigEndian.PutUint64(sizeBuf, uint64(len(payload)))
	if _, err := conn.Write(sizeBuf); err != nil {
		return errors.Wrap(err, "kademlia: write frame size")
	}
	if _, err := conn.Write(payload); err != nil {
		return errors.Wrap(err, "kademlia: write frame payload")
	}
	return nil
}

// readFrame reads a length-prefixed payload from conn, the inverse of
// writeFrame. Adapted from the teacher's ReadFromConn/BytesToUint64.
func readFrame(conn net.Conn) ([]byte, error) {
	conn.SetReadDeadline(time.Now().Add(TCPIODeadline))
	reader := bufio.NewReader(conn)

	sizeBuf := make([]byte, 8)
	if _, err := io.ReadFull(reader, sizeBuf); err != nil {
		return nil, errors.Wrap(err, "kademlia: read frame size")
	}
	size := binary.BigEndian.Uint64(sizeBuf)
	if size > TCPIOBufferSize {
		return nil, errors.New("kademlia: incoming payload exceeds buffer size")
	}

	payload := make([]byte, size)
	if _, err := io.ReadFull(reader, payload); err != nil {
		return nil, errors.Wrap(err, "kademlia: read frame payload")
	}
	return payload, nil
}
