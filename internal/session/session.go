// Package session orchestrates one watch-together session: identifier
// resolution, the data channel handshake, chat, and the camera and
// movie call lifecycle.
package session

import (
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"sync"
	"time"

	"github.com/twoseats/twoseats/internal/media"
	"github.com/twoseats/twoseats/internal/playback"
	"github.com/twoseats/twoseats/internal/rtc"
)

// handshakeStallWarning is how long after the channel opens we wait for
// the partner's ready before surfacing a warning. The session keeps
// waiting; the warning is status only.
const handshakeStallWarning = 30 * time.Second

// Session is the per-room orchestrator. All mutable state is guarded by
// mu; transport and player callbacks run their handlers to completion
// under it, so superseded call references can be checked safely.
type Session struct {
	role     Role
	roomCode string
	localID  string
	remoteID string

	transport Transport
	devices   media.Devices
	player    Playback

	mu            sync.Mutex
	state         State
	started       bool
	channel       rtc.Channel
	channelGen    int
	transportOpen bool
	remoteReady   bool

	cameraStream *media.Stream
	cameraCall   rtc.Call
	cameraFacing string
	micEnabled   bool

	incomingCamera rtc.Call
	movieCall      rtc.Call
	captureFailed  bool

	events chan Event
}

// New creates a session for the given room code and role.
func New(roomCode string, role Role, transport Transport, devices media.Devices, player Playback) *Session {
	localID, remoteID := Resolve(roomCode, role)

	return &Session{
		role:       role,
		roomCode:   roomCode,
		localID:    localID,
		remoteID:   remoteID,
		transport:  transport,
		devices:    devices,
		player:     player,
		state:      StateIdle,
		micEnabled: true,
		events:     make(chan Event, 64),
	}
}

// Role returns the session's role.
func (s *Session) Role() Role { return s.role }

// RoomCode returns the room code.
func (s *Session) RoomCode() string { return s.roomCode }

// LocalID returns the identifier this session registers.
func (s *Session) LocalID() string { return s.localID }

// RemoteID returns the partner's identifier.
func (s *Session) RemoteID() string { return s.remoteID }

// Events returns the session's event stream. Events are dropped, not
// blocked on, when the consumer falls behind.
func (s *Session) Events() <-chan Event { return s.events }

// State returns the current lifecycle state.
func (s *Session) State() State {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.state
}

// Ready reports whether the handshake completed on the current channel.
func (s *Session) Ready() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.transportOpen && s.remoteReady
}

// Start opens the transport under the session's identifier and, for
// guests, dials the host's data channel. A session starts at most once;
// retrying after a failed start means creating a new session.
func (s *Session) Start(ctx context.Context) error {
	s.mu.Lock()
	if s.started {
		s.mu.Unlock()
		return ErrAlreadyStarted
	}
	s.started = true
	s.state = StateOpening
	s.mu.Unlock()
	s.emitState(StateOpening)

	s.transport.OnConnection(s.handleConnection)
	s.transport.OnCall(s.handleCall)
	s.transport.OnError(s.handleTransportError)

	if err := s.transport.Open(ctx, s.localID); err != nil {
		s.setState(StateIdle)
		if errors.Is(err, rtc.ErrIdentifierTaken) {
			s.emitStatus("This room already has a " + string(s.role))
			return WrapError("open", err, s.localID)
		}
		s.emitStatus("Could not reach the relay")
		return NewError("open", err)
	}

	s.setState(StateOpen)
	s.emitStatus("Connected to relay as " + s.localID)

	if s.role == RoleGuest {
		ch, err := s.transport.Connect(s.remoteID)
		if err != nil {
			s.emitStatus("Could not reach the host")
			return NewError("connect", err)
		}
		s.bindChannel(ch)
	} else {
		s.emitStatus("Waiting for your partner to join")
	}

	return nil
}

// handleConnection accepts a data connection dialed by the partner.
// A new connection always supersedes the old one.
func (s *Session) handleConnection(ch rtc.Channel) {
	s.bindChannel(ch)
}

// bindChannel makes ch the session's data channel and reruns the
// handshake on it. Readiness flags are re-derived per channel instance;
// the generation counter keeps stale channel callbacks from touching
// current state.
func (s *Session) bindChannel(ch rtc.Channel) {
	s.mu.Lock()
	s.channelGen++
	gen := s.channelGen
	old := s.channel
	s.channel = ch
	s.transportOpen = false
	s.remoteReady = false
	s.state = StateHandshaking
	s.mu.Unlock()
	s.emitState(StateHandshaking)

	if old != nil {
		go old.Close()
	}

	ch.OnOpen(func() { s.onChannelOpen(gen) })
	ch.OnMessage(func(data []byte) { s.onChannelMessage(gen, data) })
	ch.OnClose(func() { s.onChannelClose(gen) })
}

func (s *Session) currentGen(gen int) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return gen == s.channelGen
}

// onChannelOpen starts the handshake: say hello, expect a ready back.
func (s *Session) onChannelOpen(gen int) {
	s.mu.Lock()
	if gen != s.channelGen {
		s.mu.Unlock()
		return
	}
	s.transportOpen = true
	s.mu.Unlock()

	s.emitStatus("Partner connected, handshaking")
	s.sendWire(wireMessage{Type: msgHello, From: s.localID})

	time.AfterFunc(handshakeStallWarning, func() {
		s.mu.Lock()
		stalled := gen == s.channelGen && s.transportOpen && !s.remoteReady
		s.mu.Unlock()
		if stalled {
			s.emitStatus("Still waiting for your partner's handshake")
		}
	})
}

// onChannelMessage dispatches one data channel message. Malformed and
// unknown messages are dropped.
func (s *Session) onChannelMessage(gen int, data []byte) {
	if !s.currentGen(gen) {
		return
	}

	var msg wireMessage
	if err := json.Unmarshal(data, &msg); err != nil {
		slog.Debug("dropping malformed message", "error", err)
		return
	}

	switch msg.Type {
	case msgHello:
		s.sendWire(wireMessage{Type: msgReady, From: s.localID})

	case msgReady:
		s.mu.Lock()
		if gen != s.channelGen {
			s.mu.Unlock()
			return
		}
		s.remoteReady = true
		s.state = StateReady
		s.mu.Unlock()

		s.emitState(StateReady)
		s.emitStatus("Partner is ready")
		s.evaluateMovieShare()

	case msgChat:
		s.emit(Event{Type: EventChat, Text: msg.Text, From: msg.From})

	default:
		slog.Debug("dropping unknown message", "type", msg.Type)
	}
}

// onChannelClose resets the readiness flags; the next channel reruns
// the handshake from scratch.
func (s *Session) onChannelClose(gen int) {
	s.mu.Lock()
	if gen != s.channelGen {
		s.mu.Unlock()
		return
	}
	s.transportOpen = false
	s.remoteReady = false
	s.state = StateOpen
	s.mu.Unlock()

	s.emitState(StateOpen)
	s.emitStatus("Partner disconnected")
}

// SendChat sends a chat line to the partner.
func (s *Session) SendChat(text string) error {
	if text == "" {
		return nil
	}
	return s.sendWire(wireMessage{Type: msgChat, From: s.localID, Text: text})
}

func (s *Session) sendWire(msg wireMessage) error {
	s.mu.Lock()
	ch := s.channel
	s.mu.Unlock()

	if ch == nil || !ch.IsOpen() {
		return NewError("send", ErrNotConnected)
	}

	data, err := json.Marshal(msg)
	if err != nil {
		return NewError("send", err)
	}
	return ch.Send(data)
}

// handleTransportError surfaces asynchronous transport errors as
// status; nothing is retried automatically.
func (s *Session) handleTransportError(err error) {
	s.emit(Event{Type: EventError, Err: err, Text: err.Error()})
}

// NotifyPlay reacts to local playback starting: status plus a movie
// share attempt if everything else is in place.
func (s *Session) NotifyPlay() {
	s.emitStatus("Playing")
	s.evaluateMovieShare()
}

// NotifyPause reacts to local playback pausing. Pause is status only;
// the movie call stays up.
func (s *Session) NotifyPause() {
	s.emitStatus("Paused")
}

// Seek jumps local playback to a fraction of the movie and reports the
// landing position.
func (s *Session) Seek(fraction float64) {
	pos := s.player.Seek(fraction)
	s.emitStatus("Seeking to " + playback.FormatTime(pos))
}

// Close tears the whole session down.
func (s *Session) Close() error {
	s.mu.Lock()
	cameraStream := s.cameraStream
	s.cameraStream = nil
	s.cameraCall = nil
	s.incomingCamera = nil
	s.movieCall = nil
	s.channel = nil
	s.state = StateIdle
	s.mu.Unlock()

	if cameraStream != nil {
		cameraStream.StopAll()
	}
	return s.transport.Close()
}

func (s *Session) setState(state State) {
	s.mu.Lock()
	s.state = state
	s.mu.Unlock()
	s.emitState(state)
}

func (s *Session) emitState(state State) {
	s.emit(Event{Type: EventState, State: state})
}

func (s *Session) emitStatus(text string) {
	s.emit(Event{Type: EventStatus, Text: text})
}

// emit never blocks; a slow consumer loses events instead of stalling
// transport callbacks.
func (s *Session) emit(ev Event) {
	select {
	case s.events <- ev:
	default:
		slog.Debug("dropping event", "type", ev.Type)
	}
}
