package kademlia

import (
	"encoding/json"
	"net"
	"time"

	"github.com/pkg/errors"
	"go.uber.org/zap"
)

// rpcEnvelope is the outer frame every request/response travels in:
// a method tag plus the method-specific payload, mirroring the
// teacher's RPCRequest{Version, Method, Data} in rpc.go but keeping
// the payload as a typed struct rather than interface{}.
type rpcEnvelope struct {
	Method  RPCMethod       `json:"method"`
	Request json.RawMessage `json:"request"`
}

// Server validates and dispatches incoming Kademlia RPCs against a
// shared RoutingTable and LocalStore. Its handlers do no network I/O
// of their own while holding either's lock; the one exception is the
// eviction ping that RoutingTable.AddNode may issue under the table
// lock when a bucket is full. Adapted from the teacher's
// HandleRPCConnection (rpc.go), generalized with the signature +
// difficulty + timestamp-skew prelude spec §4.5 requires and the
// teacher's zero-dependency identity scheme lacks entirely.
type Server struct {
	identity   Identity
	table      *RoutingTable
	store      *LocalStore
	difficulty int
	skew       time.Duration
	listener   net.Listener
	closed     bool
	log        *zap.SugaredLogger
}

// NewServer wraps listener to serve RPCs for identity, validating
// requests against difficulty and skew, and mutating table/store.
func NewServer(identity Identity, table *RoutingTable, store *LocalStore, difficulty int, skew time.Duration, listener net.Listener, log *zap.SugaredLogger) *Server {
	if log == nil {
		log = zap.NewNop().Sugar()
	}
	return &Server{
		identity:   identity,
		table:      table,
		store:      store,
		difficulty: difficulty,
		skew:       skew,
		listener:   listener,
		log:        log,
	}
}

// Serve accepts connections until Close is called, handling each on
// its own goroutine, matching the teacher's Host.Listen.
func (s *Server) Serve() {
	for !s.closed {
		conn, err := s.listener.Accept()
		if err != nil {
			if s.closed {
				return
			}
			s.log.Warnw("accept failed", "error", err)
			continue
		}
		go s.handleConnection(conn)
	}
}

// Close stops Serve and releases the listener.
func (s *Server) Close() error {
	s.closed = true
	return s.listener.Close()
}

func (s *Server) handleConnection(conn net.Conn) {
	defer conn.Close()

	frame, err := readFrame(conn)
	if err != nil {
		s.log.Debugw("failed to read request frame", "error", err)
		return
	}

	var envelope rpcEnvelope
	if err := json.Unmarshal(frame, &envelope); err != nil {
		s.log.Debugw("failed to decode request envelope", "error", err)
		return
	}

	response, err := s.dispatch(envelope)
	if err != nil {
		s.log.Debugw("request rejected", "method", envelope.Method, "error", err)
		return
	}

	out, err := json.Marshal(response)
	if err != nil {
		s.log.Errorw("failed to encode response", "method", envelope.Method, "error", err)
		return
	}
	if err := writeFrame(conn, out); err != nil {
		s.log.Debugw("failed to write response frame", "error", err)
	}
}

// verifyTimestamp rejects requests whose timestamp falls outside the
// ±skew window. Spec §4.5 step 1 notes the Rust source never enforces
// this; SPEC_FULL.md resolves the open question in favor of
// enforcement (DESIGN.md OQ-1).
func (s *Server) verifyTimestamp(timestamp int64) error {
	delta := time.Since(time.Unix(timestamp, 0))
	if delta < 0 {
		delta = -delta
	}
	if delta > s.skew {
		return errors.Wrapf(ErrStale, "timestamp %d outside ±%s skew", timestamp, s.skew)
	}
	return nil
}

// verifySender recomputes canonical bytes, checks the signature, and
// verifies the sender's claimed difficulty proof-of-work. It returns
// the authenticated sender NodeId.
func (s *Server) verifySender(publicKey, signature, canonicalBytes []byte) (NodeId, error) {
	if !Verify(publicKey, canonicalBytes, signature) {
		return NodeId{}, errors.Wrap(ErrUnauthenticated, "signature verification failed")
	}
	senderID := idFromPublicKey(publicKey)
	if !VerifyIdentity(publicKey, senderID, s.difficulty) {
		return NodeId{}, errors.Wrap(ErrUnauthenticated, "sender id fails difficulty check")
	}
	return senderID, nil
}

func (s *Server) dispatch(envelope rpcEnvelope) (interface{}, error) {
	switch envelope.Method {
	case MethodPing:
		return s.handlePing(envelope.Request)
	case MethodStore:
		return s.handleStore(envelope.Request)
	case MethodFindNode:
		return s.handleFindNode(envelope.Request)
	case MethodFindValue:
		return s.handleFindValue(envelope.Request)
	default:
		return nil, errors.Errorf("kademlia: unknown rpc method %q", envelope.Method)
	}
}

func (s *Server) handlePing(raw json.RawMessage) (PingResponse, error) {
	var req PingRequest
	if err := json.Unmarshal(raw, &req); err != nil {
		return PingResponse{}, errors.Wrap(err, "kademlia: decode ping request")
	}
	if err := s.verifyTimestamp(req.Timestamp); err != nil {
		return PingResponse{}, err
	}
	senderID, err := s.verifySender(req.SenderPublicKey, req.Signature,
		canonicalPingBytes(req.NodeAddress, req.Timestamp))
	if err != nil {
		return PingResponse{}, err
	}

	if _, err := s.table.AddNode(NewPeerRecord(senderID, req.NodeAddress)); err != nil {
		return PingResponse{}, err
	}

	selfID := s.identity.ID
	sig := s.identity.Keypair.Sign(canonicalPingResponseBytes(selfID[:], req.Timestamp))
	return PingResponse{NodeID: selfID[:], Signature: sig}, nil
}

func (s *Server) handleStore(raw json.RawMessage) (StoreResponse, error) {
	var req StoreRequest
	if err := json.Unmarshal(raw, &req); err != nil {
		return StoreResponse{}, errors.Wrap(err, "kademlia: decode store request")
	}
	if err := s.verifyTimestamp(req.Timestamp); err != nil {
		return StoreResponse{}, err
	}
	// STORE requests carry no dialable return address (see spec §6's
	// wire schema); the sender cannot be inserted into the routing
	// table here (DESIGN.md OQ-2).
	if _, err := s.verifySender(req.SenderPublicKey, req.Signature,
		canonicalStoreBytes(req.Key, req.Value, req.Timestamp)); err != nil {
		return StoreResponse{}, err
	}

	s.store.Put(req.Key, req.Value)
	return StoreResponse{OK: true}, nil
}

func (s *Server) handleFindNode(raw json.RawMessage) (FindNodeResponse, error) {
	var req FindNodeRequest
	if err := json.Unmarshal(raw, &req); err != nil {
		return FindNodeResponse{}, errors.Wrap(err, "kademlia: decode find_node request")
	}
	if err := s.verifyTimestamp(req.Timestamp); err != nil {
		return FindNodeResponse{}, err
	}
	senderID, err := s.verifySender(req.SenderPublicKey, req.Signature,
		canonicalFindNodeBytes(req.RequesterNodeID, req.RequesterNodeAddress, req.TargetNodeID, req.Timestamp))
	if err != nil {
		return FindNodeResponse{}, err
	}

	if _, err := s.table.AddNode(NewPeerRecord(senderID, req.RequesterNodeAddress)); err != nil {
		return FindNodeResponse{}, err
	}

	var target NodeId
	copy(target[:], req.TargetNodeID)
	closest := s.table.FindClosest(target, s.table.k)
	return FindNodeResponse{Nodes: toWireNodes(closest)}, nil
}

func (s *Server) handleFindValue(raw json.RawMessage) (FindValueResponse, error) {
	var req FindValueRequest
	if err := json.Unmarshal(raw, &req); err != nil {
		return FindValueResponse{}, errors.Wrap(err, "kademlia: decode find_value request")
	}
	if err := s.verifyTimestamp(req.Timestamp); err != nil {
		return FindValueResponse{}, err
	}
	if _, err := s.verifySender(req.SenderPublicKey, req.Signature,
		canonicalFindValueBytes(req.Key, req.Timestamp)); err != nil {
		return FindValueResponse{}, err
	}

	if value, ok := s.store.Get(req.Key); ok {
		return FindValueResponse{Value: value}, nil
	}

	var target NodeId
	digest := SHA256(req.Key)
	copy(target[:], digest[:])
	closest := s.table.FindClosest(target, s.table.k)
	return FindValueResponse{Nodes: toWireNodes(closest)}, nil
}

func toWireNodes(peers []PeerRecord) []WireNode {
	out := make([]WireNode, len(peers))
	for i, p := range peers {
		out[i] = WireNode{ID: p.ID[:], Address: p.Address}
	}
	return out
}
