package kademlia

import (
	"encoding/json"
	"net"
	"time"

	"github.com/pkg/errors"
	"go.uber.org/zap"
)

// Client builds and sends signed RPC requests on behalf of a local
// identity. Adapted from the teacher's Host.SendMessage (host.go),
// split out from the node/server so request construction can be unit
// tested without a listening socket, and from
// kademlia_node_search/node_functions/client.rs's
// attempt_with_timeout/create_*_request split.
type Client struct {
	Identity    Identity
	Timeout     time.Duration
	MaxAttempts int
	SelfAddress string
	log         *zap.SugaredLogger
}

// NewClient constructs a Client for identity, retrying each send up to
// maxAttempts times bounded by timeout per attempt.
func NewClient(identity Identity, selfAddress string, timeout time.Duration, maxAttempts int, log *zap.SugaredLogger) *Client {
	if log == nil {
		log = zap.NewNop().Sugar()
	}
	return &Client{
		Identity:    identity,
		Timeout:     timeout,
		MaxAttempts: maxAttempts,
		SelfAddress: selfAddress,
		log:         log,
	}
}

func now() int64 { return time.Now().Unix() }

// BuildPing constructs a signed PingRequest.
func (c *Client) BuildPing() PingRequest {
	ts := now()
	sig := c.Identity.Keypair.Sign(canonicalPingBytes(c.SelfAddress, ts))
	return PingRequest{
		Envelope:    Envelope{Timestamp: ts, Signature: sig, SenderPublicKey: c.Identity.Keypair.Public},
		NodeAddress: c.SelfAddress,
	}
}

// BuildFindNode constructs a signed FindNodeRequest targeting target.
func (c *Client) BuildFindNode(target NodeId) FindNodeRequest {
	ts := now()
	selfID := c.Identity.ID
	sig := c.Identity.Keypair.Sign(canonicalFindNodeBytes(selfID[:], c.SelfAddress, target[:], ts))
	return FindNodeRequest{
		Envelope:             Envelope{Timestamp: ts, Signature: sig, SenderPublicKey: c.Identity.Keypair.Public},
		RequesterNodeID:      selfID[:],
		RequesterNodeAddress: c.SelfAddress,
		TargetNodeID:         target[:],
	}
}

// BuildStore constructs a signed StoreRequest.
func (c *Client) BuildStore(key, value []byte) StoreRequest {
	ts := now()
	sig := c.Identity.Keypair.Sign(canonicalStoreBytes(key, value, ts))
	return StoreRequest{
		Envelope: Envelope{Timestamp: ts, Signature: sig, SenderPublicKey: c.Identity.Keypair.Public},
		Key:      key,
		Value:    value,
	}
}

// BuildFindValue constructs a signed FindValueRequest.
func (c *Client) BuildFindValue(key []byte) FindValueRequest {
	ts := now()
	sig := c.Identity.Keypair.Sign(canonicalFindValueBytes(key, ts))
	return FindValueRequest{
		Envelope: Envelope{Timestamp: ts, Signature: sig, SenderPublicKey: c.Identity.Keypair.Public},
		Key:      key,
	}
}

// dialAndRoundTrip performs one attempt: dial address, write the
// signed request frame, read and decode the response frame into out.
func (c *Client) dialAndRoundTrip(address string, method RPCMethod, request, out interface{}) error {
	deadline := time.Now().Add(c.Timeout)
	conn, err := net.DialTimeout("tcp", address, c.Timeout)
	if err != nil {
		return errors.Wrap(ErrTransportTransient, err.Error())
	}
	defer conn.Close()
	if c.Timeout > 0 {
		// Close the connection once Timeout has elapsed since the dial
		// began, so the whole attempt, not only the dial, is bounded.
		timer := time.AfterFunc(time.Until(deadline), func() { conn.Close() })
		defer timer.Stop()
	}

	frame, err := json.Marshal(struct {
		Method  RPCMethod   `json:"method"`
		Request interface{} `json:"request"`
	}{Method: method, Request: request})
	if err != nil {
		return errors.Wrap(err, "kademlia: encode request")
	}

	if err := writeFrame(conn, frame); err != nil {
		return errors.Wrap(ErrTransportTransient, err.Error())
	}

	response, err := readFrame(conn)
	if err != nil {
		return errors.Wrap(ErrTransportTransient, err.Error())
	}

	if err := json.Unmarshal(response, out); err != nil {
		return errors.Wrap(err, "kademlia: decode response")
	}
	return nil
}

// send retries dialAndRoundTrip up to MaxAttempts times, each bounded
// by Timeout, failing with ErrTransportExhausted once attempts are
// exhausted. No exponential backoff, matching spec §4.4's "MAY be
// added" — this core does not add it.
func (c *Client) send(address string, method RPCMethod, request, out interface{}) error {
	var lastErr error
	for attempt := 1; attempt <= c.MaxAttempts; attempt++ {
		lastErr = c.dialAndRoundTrip(address, method, request, out)
		if lastErr == nil {
			return nil
		}
		c.log.Warnw("rpc attempt failed", "method", method, "address", address, "attempt", attempt, "error", lastErr)
	}
	return errors.Wrapf(ErrTransportExhausted, "method=%s address=%s: %v", method, address, lastErr)
}

// Ping sends a PING to address.
func (c *Client) Ping(address string) (PingResponse, error) {
	var resp PingResponse
	err := c.send(address, MethodPing, c.BuildPing(), &resp)
	return resp, err
}

// Store sends a STORE(key, value) to address.
func (c *Client) Store(address string, key, value []byte) (StoreResponse, error) {
	var resp StoreResponse
	err := c.send(address, MethodStore, c.BuildStore(key, value), &resp)
	return resp, err
}

// FindNode sends a FIND_NODE(target) to address.
func (c *Client) FindNode(address string, target NodeId) (FindNodeResponse, error) {
	var resp FindNodeResponse
	err := c.send(address, MethodFindNode, c.BuildFindNode(target), &resp)
	return resp, err
}

// FindValue sends a FIND_VALUE(key) to address.
func (c *Client) FindValue(address string, key []byte) (FindValueResponse, error) {
	var resp FindValueResponse
	err := c.send(address, MethodFindValue, c.BuildFindValue(key), &resp)
	return resp, err
}
