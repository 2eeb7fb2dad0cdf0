package rtc

import (
	"encoding/json"
	"fmt"
	"sync"
	"time"

	"github.com/pion/rtcp"
	pion "github.com/pion/webrtc/v4"

	"github.com/twoseats/twoseats/internal/media"
	"github.com/twoseats/twoseats/internal/signaling"
)

const pliInterval = 3 * time.Second

// peerConn is one peer connection: either a data connection or a media
// call, depending on its tag. It implements Channel, Call and Incoming;
// the transport hands it out under the matching interface.
type peerConn struct {
	t    *Transport
	id   string
	peer string
	tag  string

	pc *pion.PeerConnection

	mu         sync.Mutex
	remoteSet  bool
	pendingICE []pion.ICECandidateInit
	heldOffer  string

	dc       *pion.DataChannel
	dcOpen   bool
	openFns  []func()
	msgFns   []func([]byte)
	closeFns []func()

	remote    *media.RemoteStream
	streamFns []func(*media.RemoteStream)

	closed bool
}

// newPeerConn creates a peer connection, registers it with the transport
// and wires the signaling callbacks.
func (t *Transport) newPeerConn(callID, peer, tag string) (*peerConn, error) {
	pc, err := pion.NewPeerConnection(t.iceCfg)
	if err != nil {
		return nil, fmt.Errorf("create peer connection: %w", err)
	}

	conn := &peerConn{t: t, id: callID, peer: peer, tag: tag, pc: pc}

	pc.OnICECandidate(func(c *pion.ICECandidate) {
		if c == nil {
			return
		}
		candidate, err := json.Marshal(c.ToJSON())
		if err != nil {
			return
		}
		t.send(&signaling.Message{
			Type:      signaling.MessageTypeICE,
			To:        peer,
			CallID:    callID,
			Candidate: string(candidate),
		})
	})

	pc.OnConnectionStateChange(func(state pion.PeerConnectionState) {
		if state == pion.PeerConnectionStateFailed || state == pion.PeerConnectionStateClosed {
			conn.closeLocal()
		}
	})

	pc.OnTrack(func(track *pion.TrackRemote, receiver *pion.RTPReceiver) {
		conn.handleTrack(track)
	})

	t.mu.Lock()
	t.conns[callID] = conn
	t.mu.Unlock()

	return conn, nil
}

func (c *peerConn) ID() string   { return c.id }
func (c *peerConn) Peer() string { return c.peer }
func (c *peerConn) Tag() string  { return c.tag }

// --- data connection side ---

// dialData creates the data channel and sends the offer.
func (c *peerConn) dialData() error {
	ordered := true
	dc, err := c.pc.CreateDataChannel("twoseats", &pion.DataChannelInit{Ordered: &ordered})
	if err != nil {
		return fmt.Errorf("create data channel: %w", err)
	}
	c.attachDataChannel(dc)

	return c.sendOffer()
}

// attachDataChannel wires the channel callbacks. Called directly for
// dialed channels and from OnDataChannel for accepted ones.
func (c *peerConn) attachDataChannel(dc *pion.DataChannel) {
	c.mu.Lock()
	c.dc = dc
	c.mu.Unlock()

	dc.OnOpen(func() {
		c.mu.Lock()
		c.dcOpen = true
		fns := append([]func(){}, c.openFns...)
		c.mu.Unlock()
		for _, f := range fns {
			f()
		}
	})

	dc.OnMessage(func(msg pion.DataChannelMessage) {
		c.mu.Lock()
		fns := append([]func([]byte){}, c.msgFns...)
		c.mu.Unlock()
		for _, f := range fns {
			f(msg.Data)
		}
	})

	dc.OnClose(func() {
		c.closeLocal()
	})
}

func (c *peerConn) IsOpen() bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.dcOpen && !c.closed
}

func (c *peerConn) Send(data []byte) error {
	c.mu.Lock()
	dc, open := c.dc, c.dcOpen && !c.closed
	c.mu.Unlock()

	if !open || dc == nil {
		return ErrChannelNotOpen
	}
	return dc.Send(data)
}

func (c *peerConn) OnOpen(f func()) {
	c.mu.Lock()
	c.openFns = append(c.openFns, f)
	open := c.dcOpen
	c.mu.Unlock()
	if open {
		f()
	}
}

func (c *peerConn) OnMessage(f func([]byte)) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.msgFns = append(c.msgFns, f)
}

func (c *peerConn) OnClose(f func()) {
	c.mu.Lock()
	c.closeFns = append(c.closeFns, f)
	closed := c.closed
	c.mu.Unlock()
	if closed {
		f()
	}
}

// --- media call side ---

// dialMedia attaches the local tracks and sends the offer.
func (c *peerConn) dialMedia(stream *media.Stream) error {
	if stream != nil {
		for _, track := range stream.Tracks() {
			if _, err := c.pc.AddTrack(track.Local()); err != nil {
				return fmt.Errorf("add track: %w", err)
			}
		}
	} else {
		// Receive-only call still needs media sections to negotiate.
		if _, err := c.pc.AddTransceiverFromKind(pion.RTPCodecTypeVideo, pion.RTPTransceiverInit{Direction: pion.RTPTransceiverDirectionRecvonly}); err != nil {
			return fmt.Errorf("add transceiver: %w", err)
		}
	}

	return c.sendOffer()
}

// holdOffer stores a remote media offer until the application answers.
func (c *peerConn) holdOffer(sdp string) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.heldOffer = sdp
}

// Answer accepts an incoming media call, optionally attaching a local
// stream. A nil stream answers receive-only.
func (c *peerConn) Answer(local *media.Stream) error {
	c.mu.Lock()
	offer := c.heldOffer
	c.heldOffer = ""
	c.mu.Unlock()

	if offer == "" {
		return ErrNoPendingOffer
	}

	if err := c.pc.SetRemoteDescription(pion.SessionDescription{Type: pion.SDPTypeOffer, SDP: offer}); err != nil {
		return fmt.Errorf("set remote description: %w", err)
	}
	c.markRemoteSet()

	if local != nil {
		for _, track := range local.Tracks() {
			if _, err := c.pc.AddTrack(track.Local()); err != nil {
				return fmt.Errorf("add track: %w", err)
			}
		}
	}

	answer, err := c.pc.CreateAnswer(nil)
	if err != nil {
		return fmt.Errorf("create answer: %w", err)
	}
	if err := c.pc.SetLocalDescription(answer); err != nil {
		return fmt.Errorf("set local description: %w", err)
	}

	c.t.send(&signaling.Message{
		Type:    signaling.MessageTypeAnswer,
		To:      c.peer,
		CallID:  c.id,
		Media:   c.tag,
		SDP:     c.pc.LocalDescription().SDP,
		SDPType: "answer",
	})

	return nil
}

func (c *peerConn) OnStream(f func(*media.RemoteStream)) {
	c.mu.Lock()
	c.streamFns = append(c.streamFns, f)
	remote := c.remote
	c.mu.Unlock()
	if remote != nil {
		f(remote)
	}
}

// handleTrack folds arriving remote tracks into the call's remote
// stream, firing OnStream on the first one.
func (c *peerConn) handleTrack(track *pion.TrackRemote) {
	c.mu.Lock()
	first := c.remote == nil
	if first {
		c.remote = media.NewRemoteStream(c.id)
	}
	remote := c.remote
	fns := append([]func(*media.RemoteStream){}, c.streamFns...)
	c.mu.Unlock()

	remote.AddTrack(track)

	if track.Kind() == pion.RTPCodecTypeVideo {
		go c.sendPLI(track)
	}

	if first {
		for _, f := range fns {
			f(remote)
		}
	}
}

// sendPLI periodically requests keyframes so a newly attached viewer
// does not wait for the next natural one.
func (c *peerConn) sendPLI(track *pion.TrackRemote) {
	ticker := time.NewTicker(pliInterval)
	defer ticker.Stop()

	for range ticker.C {
		c.mu.Lock()
		closed := c.closed
		c.mu.Unlock()
		if closed {
			return
		}

		pli := []rtcp.Packet{&rtcp.PictureLossIndication{MediaSSRC: uint32(track.SSRC())}}
		if err := c.pc.WriteRTCP(pli); err != nil {
			return
		}
	}
}

// --- shared signaling plumbing ---

// sendOffer creates and sends the local offer for dialed connections.
func (c *peerConn) sendOffer() error {
	offer, err := c.pc.CreateOffer(nil)
	if err != nil {
		return fmt.Errorf("create offer: %w", err)
	}
	if err := c.pc.SetLocalDescription(offer); err != nil {
		return fmt.Errorf("set local description: %w", err)
	}

	c.t.send(&signaling.Message{
		Type:    signaling.MessageTypeOffer,
		To:      c.peer,
		CallID:  c.id,
		Media:   c.tag,
		SDP:     c.pc.LocalDescription().SDP,
		SDPType: "offer",
	})

	return nil
}

// answerDataOffer completes the SDP exchange for an accepted data
// connection.
func (c *peerConn) answerDataOffer(sdp string) error {
	if err := c.pc.SetRemoteDescription(pion.SessionDescription{Type: pion.SDPTypeOffer, SDP: sdp}); err != nil {
		return fmt.Errorf("set remote description: %w", err)
	}
	c.markRemoteSet()

	answer, err := c.pc.CreateAnswer(nil)
	if err != nil {
		return fmt.Errorf("create answer: %w", err)
	}
	if err := c.pc.SetLocalDescription(answer); err != nil {
		return fmt.Errorf("set local description: %w", err)
	}

	c.t.send(&signaling.Message{
		Type:    signaling.MessageTypeAnswer,
		To:      c.peer,
		CallID:  c.id,
		Media:   c.tag,
		SDP:     c.pc.LocalDescription().SDP,
		SDPType: "answer",
	})

	return nil
}

// acceptAnswer applies the remote answer on the dialing side.
func (c *peerConn) acceptAnswer(sdp string) error {
	if err := c.pc.SetRemoteDescription(pion.SessionDescription{Type: pion.SDPTypeAnswer, SDP: sdp}); err != nil {
		return fmt.Errorf("set remote description: %w", err)
	}
	c.markRemoteSet()
	return nil
}

// addRemoteICE applies a trickled candidate, buffering it when the
// remote description is not set yet.
func (c *peerConn) addRemoteICE(candidate string) error {
	var init pion.ICECandidateInit
	if err := json.Unmarshal([]byte(candidate), &init); err != nil {
		return fmt.Errorf("parse ICE candidate: %w", err)
	}

	c.mu.Lock()
	if !c.remoteSet {
		c.pendingICE = append(c.pendingICE, init)
		c.mu.Unlock()
		return nil
	}
	c.mu.Unlock()

	if err := c.pc.AddICECandidate(init); err != nil {
		return fmt.Errorf("add ICE candidate: %w", err)
	}
	return nil
}

// markRemoteSet flushes candidates that arrived before the remote
// description.
func (c *peerConn) markRemoteSet() {
	c.mu.Lock()
	c.remoteSet = true
	pending := c.pendingICE
	c.pendingICE = nil
	c.mu.Unlock()

	for _, init := range pending {
		c.pc.AddICECandidate(init)
	}
}

// Close tears the connection down and tells the peer.
func (c *peerConn) Close() error {
	c.mu.Lock()
	alreadyClosed := c.closed
	c.mu.Unlock()

	if !alreadyClosed {
		c.t.send(&signaling.Message{
			Type:   signaling.MessageTypeClose,
			To:     c.peer,
			CallID: c.id,
		})
	}

	c.closeLocal()
	return nil
}

// closeLocal tears the connection down without notifying the peer.
func (c *peerConn) closeLocal() {
	c.mu.Lock()
	if c.closed {
		c.mu.Unlock()
		return
	}
	c.closed = true
	c.dcOpen = false
	fns := append([]func(){}, c.closeFns...)
	c.mu.Unlock()

	c.pc.Close()
	c.t.removeConn(c.id)

	for _, f := range fns {
		f()
	}
}
