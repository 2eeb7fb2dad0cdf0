package session

import (
	"errors"

	"github.com/twoseats/twoseats/internal/media"
	"github.com/twoseats/twoseats/internal/playback"
	"github.com/twoseats/twoseats/internal/rtc"
)

// EnableCamera captures the local camera and calls the partner with it.
// An existing camera call is replaced, never duplicated: the old stream
// stops and the old call closes before the new one dials.
func (s *Session) EnableCamera() error {
	s.mu.Lock()
	facing := s.cameraFacing
	if facing == "" {
		facing = media.FacingUser
	}
	s.mu.Unlock()

	return s.startCamera(facing)
}

// startCamera opens a camera stream with the given facing and swaps it
// in as the live one.
func (s *Session) startCamera(facing string) error {
	stream, err := s.devices.GetUserMedia(media.Constraints{Video: true, Audio: true, Facing: facing})
	if err != nil {
		switch {
		case errors.Is(err, media.ErrPermissionDenied):
			s.emitStatus("Camera permission denied")
		case errors.Is(err, media.ErrDeviceUnavailable):
			s.emitStatus("No camera available")
		default:
			s.emitStatus("Could not start camera")
		}
		return NewError("enable camera", err)
	}

	s.mu.Lock()
	oldStream := s.cameraStream
	oldCall := s.cameraCall
	s.cameraStream = stream
	s.cameraCall = nil
	s.cameraFacing = facing
	micEnabled := s.micEnabled
	connected := s.transportOpen
	s.mu.Unlock()

	if oldStream != nil {
		oldStream.StopAll()
	}
	if oldCall != nil {
		oldCall.Close()
	}

	for _, t := range stream.AudioTracks() {
		t.SetEnabled(micEnabled)
	}

	s.emitStatus("Camera on")

	if connected {
		s.callWithCamera(stream)
	}
	return nil
}

// callWithCamera dials a camera call carrying the given stream.
func (s *Session) callWithCamera(stream *media.Stream) {
	call, err := s.transport.Call(s.remoteID, stream, TagCamera)
	if err != nil {
		s.emit(Event{Type: EventError, Err: NewError("camera call", err), Text: "Could not call your partner"})
		return
	}

	s.mu.Lock()
	// The stream may have been replaced while dialing.
	if s.cameraStream != stream {
		s.mu.Unlock()
		call.Close()
		return
	}
	s.cameraCall = call
	s.mu.Unlock()

	call.OnStream(func(remote *media.RemoteStream) {
		s.mu.Lock()
		current := s.cameraCall == call
		s.mu.Unlock()
		if current {
			s.emit(Event{Type: EventPartnerStream, Stream: remote})
		}
	})
}

// DisableCamera stops the local camera and closes the camera call.
// Calling it with no camera active is a no-op.
func (s *Session) DisableCamera() {
	s.mu.Lock()
	stream := s.cameraStream
	call := s.cameraCall
	s.cameraStream = nil
	s.cameraCall = nil
	s.mu.Unlock()

	if stream == nil && call == nil {
		return
	}

	if stream != nil {
		stream.StopAll()
	}
	if call != nil {
		call.Close()
	}

	s.emitStatus("Camera off")
}

// SwitchCamera flips between the user and environment cameras, swapping
// the stream and the call. With no active camera or only one camera the
// session state is left untouched.
func (s *Session) SwitchCamera() error {
	s.mu.Lock()
	active := s.cameraStream != nil
	facing := s.cameraFacing
	s.mu.Unlock()

	if !active {
		s.emitStatus("Turn on your camera first")
		return NewError("switch camera", ErrNoCameraToSwitch)
	}

	devices, err := s.devices.Enumerate()
	if err != nil {
		return NewError("switch camera", err)
	}
	cameras := 0
	for _, d := range devices {
		if d.Kind == media.KindVideo {
			cameras++
		}
	}
	if cameras < 2 {
		s.emitStatus("Only one camera available")
		return NewError("switch camera", ErrOnlyOneCamera)
	}

	next := media.FacingEnvironment
	if facing == media.FacingEnvironment {
		next = media.FacingUser
	}

	return s.startCamera(next)
}

// ToggleMicrophone flips the mute state of the camera stream's audio
// tracks. No renegotiation happens; a muted track just stops producing.
func (s *Session) ToggleMicrophone() (bool, error) {
	s.mu.Lock()
	stream := s.cameraStream
	s.micEnabled = !s.micEnabled
	enabled := s.micEnabled
	s.mu.Unlock()

	if stream == nil {
		// Undo the flip; there is nothing to mute yet.
		s.mu.Lock()
		s.micEnabled = !s.micEnabled
		s.mu.Unlock()
		s.emitStatus("Turn on your camera first")
		return false, NewError("toggle microphone", ErrNoCameraActive)
	}

	for _, t := range stream.AudioTracks() {
		t.SetEnabled(enabled)
	}

	if enabled {
		s.emitStatus("Microphone on")
	} else {
		s.emitStatus("Microphone muted")
	}
	return enabled, nil
}

// RequestMovieShare starts the movie call if every precondition holds:
// the handshake is complete on the current channel and the movie is
// playing. When something is missing the request is remembered by the
// preconditions themselves; play and ready events re-evaluate it, so
// asking early defers rather than fails.
func (s *Session) RequestMovieShare() error {
	if s.role != RoleHost {
		return NewError("movie share", ErrHostOnly)
	}

	s.mu.Lock()
	ready := s.transportOpen && s.remoteReady
	failed := s.captureFailed
	s.mu.Unlock()

	if failed {
		return NewError("movie share", playback.ErrCaptureUnsupported)
	}

	if !ready || !s.player.Playing() {
		s.emitStatus("Movie will be shared once you are both connected and playing")
		return nil
	}

	stream, err := s.player.CaptureStream()
	if err != nil {
		if errors.Is(err, playback.ErrCaptureUnsupported) {
			// Terminal for this source; stop re-evaluating.
			s.mu.Lock()
			s.captureFailed = true
			s.mu.Unlock()
			s.emitStatus("This movie cannot be shared, watch locally instead")
		}
		return NewError("movie share", err)
	}

	s.mu.Lock()
	oldCall := s.movieCall
	s.movieCall = nil
	s.mu.Unlock()
	if oldCall != nil {
		oldCall.Close()
	}

	call, err := s.transport.Call(s.remoteID, stream, TagMovie)
	if err != nil {
		s.emit(Event{Type: EventError, Err: NewError("movie share", err), Text: "Could not share the movie"})
		return NewError("movie share", err)
	}

	s.mu.Lock()
	s.movieCall = call
	s.mu.Unlock()

	s.emitStatus("Sharing the movie")
	return nil
}

// evaluateMovieShare retries the share when a gating event fires. Purely
// flag driven; no polling.
func (s *Session) evaluateMovieShare() {
	if s.role != RoleHost || !s.player.Loaded() {
		return
	}

	s.mu.Lock()
	ready := s.transportOpen && s.remoteReady
	failed := s.captureFailed
	s.mu.Unlock()

	if ready && !failed && s.player.Playing() {
		s.RequestMovieShare()
	}
}

// handleCall answers every incoming media call. Camera calls are
// answered with the local camera stream when one is live; movie calls
// are answered receive-only. A new call of a kind replaces the previous
// one so concurrent dials cannot duplicate.
func (s *Session) handleCall(in rtc.Incoming) {
	switch in.Tag() {
	case TagCamera:
		s.answerCameraCall(in)
	case TagMovie:
		s.answerMovieCall(in)
	default:
		in.Close()
	}
}

func (s *Session) answerCameraCall(in rtc.Incoming) {
	s.mu.Lock()
	local := s.cameraStream
	old := s.incomingCamera
	s.incomingCamera = in
	s.mu.Unlock()

	if old != nil {
		old.Close()
	}

	if err := in.Answer(local); err != nil {
		s.emit(Event{Type: EventError, Err: NewError("answer camera", err), Text: "Could not answer camera call"})
		return
	}

	in.OnStream(func(remote *media.RemoteStream) {
		s.mu.Lock()
		current := s.incomingCamera == in
		s.mu.Unlock()
		if current {
			s.emit(Event{Type: EventPartnerStream, Stream: remote})
		}
	})
}

func (s *Session) answerMovieCall(in rtc.Incoming) {
	s.mu.Lock()
	old := s.movieCall
	s.movieCall = in
	s.mu.Unlock()

	if old != nil {
		old.Close()
	}

	if err := in.Answer(nil); err != nil {
		s.emit(Event{Type: EventError, Err: NewError("answer movie", err), Text: "Could not answer movie call"})
		return
	}

	in.OnStream(func(remote *media.RemoteStream) {
		s.mu.Lock()
		current := s.movieCall == in
		s.mu.Unlock()
		if current {
			s.emit(Event{Type: EventMovieStream, Stream: remote})
			s.emitStatus("Movie stream incoming")
		}
	})
}
