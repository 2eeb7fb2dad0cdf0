package rtc

import (
	"context"
	"fmt"
	"sync"

	"github.com/google/uuid"
	pion "github.com/pion/webrtc/v4"

	"github.com/twoseats/twoseats/internal/config"
	"github.com/twoseats/twoseats/internal/media"
	"github.com/twoseats/twoseats/internal/signaling"
)

// Transport owns the relay connection and all peer connections of one
// session. It registers a single identifier and routes signaling traffic
// to per-call peer connections by call ID.
type Transport struct {
	wsURL  string
	iceCfg pion.Configuration

	sig     *signaling.Client
	handler *signaling.Handler

	mu           sync.Mutex
	id           string
	open         bool
	conns        map[string]*peerConn
	onConnection func(Channel)
	onCall       func(Incoming)
	onError      func(error)
}

// NewTransport creates a transport for the given relay URL.
func NewTransport(wsURL string, cfg *config.Config) *Transport {
	return &Transport{
		wsURL:  wsURL,
		iceCfg: iceConfiguration(cfg),
		conns:  make(map[string]*peerConn),
	}
}

// iceConfiguration builds the peer connection configuration from the
// STUN/TURN settings.
func iceConfiguration(cfg *config.Config) pion.Configuration {
	iceServers := []pion.ICEServer{{URLs: cfg.GetSTUNServers()}}

	turnServers := cfg.GetTURNServers()
	if turnServers != nil {
		username, password := cfg.GetTURNCredentials()
		iceServers = append(iceServers, pion.ICEServer{
			URLs:       turnServers,
			Username:   username,
			Credential: password,
		})
	}

	policy := pion.ICETransportPolicyAll
	if turnServers != nil && cfg.ForceRelay {
		policy = pion.ICETransportPolicyRelay
	}

	return pion.Configuration{
		ICEServers:         iceServers,
		ICETransportPolicy: policy,
	}
}

// OnConnection registers the handler for data connections dialed by the
// remote peer. The channel is delivered before it opens so handlers can
// be attached in time.
func (t *Transport) OnConnection(f func(Channel)) {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.onConnection = f
}

// OnCall registers the handler for media calls dialed by the remote peer.
func (t *Transport) OnCall(f func(Incoming)) {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.onCall = f
}

// OnError registers the handler for asynchronous transport errors.
func (t *Transport) OnError(f func(error)) {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.onError = f
}

// Open connects to the relay and claims the given identifier. A second
// Open on the same transport is rejected regardless of how the first one
// ended; callers create a fresh transport to retry.
func (t *Transport) Open(ctx context.Context, id string) error {
	t.mu.Lock()
	if t.open {
		t.mu.Unlock()
		return ErrAlreadyOpen
	}
	t.open = true
	t.id = id
	t.mu.Unlock()

	sig := signaling.NewClient(t.wsURL)
	if err := sig.Connect(); err != nil {
		return fmt.Errorf("relay: %w", err)
	}

	handler := signaling.NewHandler(sig)
	go handler.Start()

	sig.Register(id)

	select {
	case <-handler.Registered:
	case errStr := <-handler.Error:
		sig.Close()
		if errStr == signaling.ErrorIdentifierTaken {
			return ErrIdentifierTaken
		}
		return fmt.Errorf("relay: %s", errStr)
	case <-handler.Closed:
		return ErrRelayClosed
	case <-ctx.Done():
		sig.Close()
		return ctx.Err()
	}

	t.mu.Lock()
	t.sig = sig
	t.handler = handler
	t.mu.Unlock()

	go t.route()

	return nil
}

// ID returns the registered identifier, or "" before Open succeeds.
func (t *Transport) ID() string {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.id
}

// route is the transport's signaling loop. It runs until the relay
// connection drops.
func (t *Transport) route() {
	for {
		select {
		case msg, ok := <-t.handler.Signal:
			if !ok {
				return
			}
			t.handleSignal(msg)

		case errStr, ok := <-t.handler.Error:
			if !ok {
				continue
			}
			t.emitError(fmt.Errorf("relay: %s", errStr))

		case <-t.handler.Closed:
			t.emitError(ErrRelayClosed)
			return
		}
	}
}

func (t *Transport) handleSignal(msg *signaling.Message) {
	switch msg.Type {
	case signaling.MessageTypeOffer:
		t.handleOffer(msg)

	case signaling.MessageTypeAnswer:
		if conn := t.conn(msg.CallID); conn != nil {
			if err := conn.acceptAnswer(msg.SDP); err != nil {
				t.emitError(err)
			}
		}

	case signaling.MessageTypeICE:
		if conn := t.conn(msg.CallID); conn != nil {
			if err := conn.addRemoteICE(msg.Candidate); err != nil {
				t.emitError(err)
			}
		}

	case signaling.MessageTypeClose:
		if conn := t.conn(msg.CallID); conn != nil {
			conn.closeLocal()
		}
	}
}

// handleOffer sets up the peer connection for a remotely initiated data
// connection or media call.
func (t *Transport) handleOffer(msg *signaling.Message) {
	if msg.CallID == "" || msg.From == "" {
		return
	}

	conn, err := t.newPeerConn(msg.CallID, msg.From, msg.Media)
	if err != nil {
		t.emitError(err)
		return
	}

	switch msg.Media {
	case signaling.MediaData:
		// Deliver before answering so open handlers are attached
		// before the channel can open.
		conn.pc.OnDataChannel(conn.attachDataChannel)

		t.mu.Lock()
		onConnection := t.onConnection
		t.mu.Unlock()
		if onConnection != nil {
			onConnection(conn)
		}

		if err := conn.answerDataOffer(msg.SDP); err != nil {
			t.emitError(err)
			conn.closeLocal()
		}

	default:
		// Media call: hold the offer until the application answers.
		conn.holdOffer(msg.SDP)

		t.mu.Lock()
		onCall := t.onCall
		t.mu.Unlock()
		if onCall != nil {
			onCall(conn)
		}
	}
}

// Connect dials a data connection to the remote identifier.
func (t *Transport) Connect(remoteID string) (Channel, error) {
	if !t.isOpen() {
		return nil, ErrNotOpen
	}

	conn, err := t.newPeerConn(uuid.NewString(), remoteID, signaling.MediaData)
	if err != nil {
		return nil, err
	}

	if err := conn.dialData(); err != nil {
		conn.closeLocal()
		return nil, err
	}

	return conn, nil
}

// Call dials a media call to the remote identifier. The tag travels in
// the offer so the callee knows how to answer; stream may be nil for a
// receive-only call.
func (t *Transport) Call(remoteID string, stream *media.Stream, tag string) (Call, error) {
	if !t.isOpen() {
		return nil, ErrNotOpen
	}

	conn, err := t.newPeerConn(uuid.NewString(), remoteID, tag)
	if err != nil {
		return nil, err
	}

	if err := conn.dialMedia(stream); err != nil {
		conn.closeLocal()
		return nil, err
	}

	return conn, nil
}

// Close tears down every peer connection and the relay link.
func (t *Transport) Close() error {
	t.mu.Lock()
	conns := make([]*peerConn, 0, len(t.conns))
	for _, c := range t.conns {
		conns = append(conns, c)
	}
	sig := t.sig
	t.mu.Unlock()

	for _, c := range conns {
		c.closeLocal()
	}
	if sig != nil {
		sig.Close()
	}
	return nil
}

func (t *Transport) isOpen() bool {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.open && t.sig != nil
}

func (t *Transport) conn(callID string) *peerConn {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.conns[callID]
}

func (t *Transport) removeConn(callID string) {
	t.mu.Lock()
	defer t.mu.Unlock()
	delete(t.conns, callID)
}

func (t *Transport) send(msg *signaling.Message) {
	t.mu.Lock()
	sig := t.sig
	t.mu.Unlock()
	if sig != nil {
		sig.SendMessage(msg)
	}
}

func (t *Transport) emitError(err error) {
	t.mu.Lock()
	onError := t.onError
	t.mu.Unlock()
	if onError != nil {
		onError(err)
	}
}
