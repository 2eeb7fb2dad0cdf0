package session

import (
	"context"
	"sync"
	"time"

	"github.com/pion/webrtc/v4"

	"github.com/twoseats/twoseats/internal/media"
	"github.com/twoseats/twoseats/internal/rtc"
)

// fakeChannel is a scriptable data channel.
type fakeChannel struct {
	mu       sync.Mutex
	peer     string
	open     bool
	closed   bool
	sent     [][]byte
	openFns  []func()
	msgFns   []func([]byte)
	closeFns []func()
}

func (c *fakeChannel) Peer() string { return c.peer }

func (c *fakeChannel) IsOpen() bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.open && !c.closed
}

func (c *fakeChannel) Send(data []byte) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	if !c.open || c.closed {
		return rtc.ErrChannelNotOpen
	}
	c.sent = append(c.sent, data)
	return nil
}

func (c *fakeChannel) OnOpen(f func()) {
	c.mu.Lock()
	open := c.open
	c.openFns = append(c.openFns, f)
	c.mu.Unlock()
	if open {
		f()
	}
}

func (c *fakeChannel) OnMessage(f func([]byte)) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.msgFns = append(c.msgFns, f)
}

func (c *fakeChannel) OnClose(f func()) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.closeFns = append(c.closeFns, f)
}

func (c *fakeChannel) Close() error {
	c.mu.Lock()
	c.closed = true
	c.mu.Unlock()
	return nil
}

// fireOpen simulates the channel opening.
func (c *fakeChannel) fireOpen() {
	c.mu.Lock()
	c.open = true
	fns := append([]func(){}, c.openFns...)
	c.mu.Unlock()
	for _, f := range fns {
		f()
	}
}

// deliver simulates a message arriving from the peer.
func (c *fakeChannel) deliver(data []byte) {
	c.mu.Lock()
	fns := append([]func([]byte){}, c.msgFns...)
	c.mu.Unlock()
	for _, f := range fns {
		f(data)
	}
}

func (c *fakeChannel) sentMessages() [][]byte {
	c.mu.Lock()
	defer c.mu.Unlock()
	out := make([][]byte, len(c.sent))
	copy(out, c.sent)
	return out
}

// fakeCall records an outgoing media call.
type fakeCall struct {
	mu        sync.Mutex
	id        string
	peer      string
	tag       string
	stream    *media.Stream
	closed    bool
	streamFns []func(*media.RemoteStream)
}

func (c *fakeCall) ID() string   { return c.id }
func (c *fakeCall) Peer() string { return c.peer }
func (c *fakeCall) Tag() string  { return c.tag }

func (c *fakeCall) OnStream(f func(*media.RemoteStream)) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.streamFns = append(c.streamFns, f)
}

func (c *fakeCall) OnClose(func()) {}

func (c *fakeCall) Close() error {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.closed = true
	return nil
}

func (c *fakeCall) isClosed() bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.closed
}

// fireStream simulates the remote side answering with media.
func (c *fakeCall) fireStream(s *media.RemoteStream) {
	c.mu.Lock()
	fns := append([]func(*media.RemoteStream){}, c.streamFns...)
	c.mu.Unlock()
	for _, f := range fns {
		f(s)
	}
}

// fakeIncoming is a remotely dialed media call.
type fakeIncoming struct {
	fakeCall
	answered     bool
	answeredWith *media.Stream
}

func (c *fakeIncoming) Answer(local *media.Stream) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.answered = true
	c.answeredWith = local
	return nil
}

// fakeTransport implements the session's Transport port.
type fakeTransport struct {
	mu           sync.Mutex
	openID       string
	openErr      error
	channels     []*fakeChannel
	calls        []*fakeCall
	onConnection func(rtc.Channel)
	onCall       func(rtc.Incoming)
	onError      func(error)
	closed       bool
}

func (t *fakeTransport) Open(ctx context.Context, id string) error {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.openID = id
	return t.openErr
}

func (t *fakeTransport) Connect(remoteID string) (rtc.Channel, error) {
	ch := &fakeChannel{peer: remoteID}
	t.mu.Lock()
	t.channels = append(t.channels, ch)
	t.mu.Unlock()
	return ch, nil
}

func (t *fakeTransport) Call(remoteID string, stream *media.Stream, tag string) (rtc.Call, error) {
	call := &fakeCall{peer: remoteID, stream: stream, tag: tag}
	t.mu.Lock()
	t.calls = append(t.calls, call)
	t.mu.Unlock()
	return call, nil
}

func (t *fakeTransport) OnConnection(f func(rtc.Channel)) { t.onConnection = f }
func (t *fakeTransport) OnCall(f func(rtc.Incoming))      { t.onCall = f }
func (t *fakeTransport) OnError(f func(error))            { t.onError = f }

func (t *fakeTransport) Close() error {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.closed = true
	return nil
}

func (t *fakeTransport) callsTagged(tag string) []*fakeCall {
	t.mu.Lock()
	defer t.mu.Unlock()
	var out []*fakeCall
	for _, c := range t.calls {
		if c.tag == tag {
			out = append(out, c)
		}
	}
	return out
}

// fakeTrack implements media.Track without any real capture.
type fakeTrack struct {
	mu      sync.Mutex
	id      string
	kind    string
	enabled bool
	stopped bool
}

func (t *fakeTrack) ID() string    { return t.id }
func (t *fakeTrack) Kind() string  { return t.kind }
func (t *fakeTrack) Label() string { return t.id }

func (t *fakeTrack) Enabled() bool {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.enabled
}

func (t *fakeTrack) SetEnabled(enabled bool) {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.enabled = enabled
}

func (t *fakeTrack) Stop() {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.stopped = true
}

func (t *fakeTrack) isStopped() bool {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.stopped
}

func (t *fakeTrack) Local() webrtc.TrackLocal { return nil }

// fakeDevices hands out streams of fake tracks.
type fakeDevices struct {
	mu      sync.Mutex
	cameras int
	err     error
	tracks  [][]*fakeTrack
}

func (d *fakeDevices) GetUserMedia(c media.Constraints) (*media.Stream, error) {
	d.mu.Lock()
	defer d.mu.Unlock()
	if d.err != nil {
		return nil, d.err
	}

	var ts []*fakeTrack
	stream := media.NewStream()
	if c.Video {
		t := &fakeTrack{id: "video-" + c.Facing, kind: media.KindVideo, enabled: true}
		ts = append(ts, t)
		stream.AddTrack(t)
	}
	if c.Audio {
		t := &fakeTrack{id: "audio", kind: media.KindAudio, enabled: true}
		ts = append(ts, t)
		stream.AddTrack(t)
	}
	d.tracks = append(d.tracks, ts)
	return stream, nil
}

func (d *fakeDevices) Enumerate() ([]media.DeviceInfo, error) {
	d.mu.Lock()
	defer d.mu.Unlock()
	var out []media.DeviceInfo
	for i := 0; i < d.cameras; i++ {
		out = append(out, media.DeviceInfo{ID: "cam", Kind: media.KindVideo})
	}
	out = append(out, media.DeviceInfo{ID: "mic", Kind: media.KindAudio})
	return out, nil
}

// fakePlayer implements the session's Playback port.
type fakePlayer struct {
	mu           sync.Mutex
	loaded       bool
	playing      bool
	duration     time.Duration
	position     time.Duration
	captureErr   error
	captureCalls int
}

func (p *fakePlayer) Loaded() bool {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.loaded
}

func (p *fakePlayer) Playing() bool {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.playing
}

func (p *fakePlayer) Position() time.Duration {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.position
}

func (p *fakePlayer) Duration() time.Duration {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.duration
}

func (p *fakePlayer) Seek(fraction float64) time.Duration {
	p.mu.Lock()
	defer p.mu.Unlock()
	if fraction < 0 {
		fraction = 0
	}
	if fraction > 1 {
		fraction = 1
	}
	p.position = time.Duration(fraction * float64(p.duration))
	return p.position
}

func (p *fakePlayer) Play() error {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.playing = true
	return nil
}

func (p *fakePlayer) Pause() error {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.playing = false
	return nil
}

func (p *fakePlayer) CaptureStream() (*media.Stream, error) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.captureCalls++
	if p.captureErr != nil {
		return nil, p.captureErr
	}
	return media.NewStream(), nil
}
