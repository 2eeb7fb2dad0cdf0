package session

import (
	"context"
	"encoding/json"
	"testing"
	"time"
)

func newHostSession(t *testing.T) (*Session, *fakeTransport, *fakeDevices, *fakePlayer) {
	t.Helper()

	ft := &fakeTransport{}
	fd := &fakeDevices{cameras: 2}
	fp := &fakePlayer{loaded: true, duration: 120 * time.Second}

	sess := New("TS123ABC", RoleHost, ft, fd, fp)
	if err := sess.Start(context.Background()); err != nil {
		t.Fatalf("start: %v", err)
	}
	return sess, ft, fd, fp
}

// connectPartner simulates the guest dialing the host's data channel.
func connectPartner(t *testing.T, ft *fakeTransport, sess *Session) *fakeChannel {
	t.Helper()
	ch := &fakeChannel{peer: sess.RemoteID()}
	ft.onConnection(ch)
	ch.fireOpen()
	return ch
}

func wireJSON(t *testing.T, msgType, from, text string) []byte {
	t.Helper()
	data, err := json.Marshal(wireMessage{Type: msgType, From: from, Text: text})
	if err != nil {
		t.Fatal(err)
	}
	return data
}

func drainEvents(sess *Session) []Event {
	var out []Event
	for {
		select {
		case ev := <-sess.Events():
			out = append(out, ev)
		default:
			return out
		}
	}
}

func sentTypes(t *testing.T, ch *fakeChannel) []string {
	t.Helper()
	var out []string
	for _, raw := range ch.sentMessages() {
		var msg wireMessage
		if err := json.Unmarshal(raw, &msg); err != nil {
			t.Fatalf("sent garbage: %v", err)
		}
		out = append(out, msg.Type)
	}
	return out
}

func TestStart_RegistersDerivedIdentifier(t *testing.T) {
	sess, ft, _, _ := newHostSession(t)

	if ft.openID != "TS123ABC-HOST" {
		t.Errorf("registered %q, want TS123ABC-HOST", ft.openID)
	}
	if sess.State() != StateOpen {
		t.Errorf("state = %v, want open", sess.State())
	}
}

func TestStart_Twice(t *testing.T) {
	sess, _, _, _ := newHostSession(t)

	if err := sess.Start(context.Background()); err == nil {
		t.Fatal("second start should fail")
	}
}

func TestGuest_DialsHost(t *testing.T) {
	ft := &fakeTransport{}
	sess := New("TS123ABC", RoleGuest, ft, &fakeDevices{}, &fakePlayer{})

	if err := sess.Start(context.Background()); err != nil {
		t.Fatalf("start: %v", err)
	}

	if len(ft.channels) != 1 {
		t.Fatalf("guest dialed %d channels, want 1", len(ft.channels))
	}
	if ft.channels[0].peer != "TS123ABC-HOST" {
		t.Errorf("dialed %q, want TS123ABC-HOST", ft.channels[0].peer)
	}
}

func TestHandshake_HelloOnOpenReadyOnHello(t *testing.T) {
	sess, ft, _, _ := newHostSession(t)
	ch := connectPartner(t, ft, sess)

	// Hello goes out as soon as the channel opens.
	types := sentTypes(t, ch)
	if len(types) != 1 || types[0] != msgHello {
		t.Fatalf("sent %v, want [hello]", types)
	}

	// The partner's hello is answered with ready.
	ch.deliver(wireJSON(t, msgHello, sess.RemoteID(), ""))
	types = sentTypes(t, ch)
	if len(types) != 2 || types[1] != msgReady {
		t.Fatalf("sent %v, want [hello ready]", types)
	}

	// Our readiness flips only on the partner's ready.
	if sess.Ready() {
		t.Fatal("session ready before partner's ready arrived")
	}
	ch.deliver(wireJSON(t, msgReady, sess.RemoteID(), ""))
	if !sess.Ready() {
		t.Fatal("session not ready after partner's ready")
	}
	if sess.State() != StateReady {
		t.Errorf("state = %v, want ready", sess.State())
	}
}

func TestHandshake_RerunsPerChannel(t *testing.T) {
	sess, ft, _, _ := newHostSession(t)
	ch := connectPartner(t, ft, sess)
	ch.deliver(wireJSON(t, msgReady, sess.RemoteID(), ""))

	if !sess.Ready() {
		t.Fatal("handshake did not complete")
	}

	// A replacement channel resets readiness until its own handshake.
	ch2 := connectPartner(t, ft, sess)
	if sess.Ready() {
		t.Fatal("readiness survived channel replacement")
	}

	types := sentTypes(t, ch2)
	if len(types) != 1 || types[0] != msgHello {
		t.Fatalf("new channel sent %v, want [hello]", types)
	}

	ch2.deliver(wireJSON(t, msgReady, sess.RemoteID(), ""))
	if !sess.Ready() {
		t.Fatal("handshake did not rerun on new channel")
	}
}

func TestMalformedMessagesDropped(t *testing.T) {
	sess, ft, _, _ := newHostSession(t)
	ch := connectPartner(t, ft, sess)

	ch.deliver([]byte("not json at all"))
	ch.deliver([]byte(`{"type":"mystery"}`))
	ch.deliver([]byte(`{}`))

	if sess.Ready() {
		t.Fatal("junk messages should not complete the handshake")
	}
	types := sentTypes(t, ch)
	if len(types) != 1 {
		t.Fatalf("junk messages provoked replies: %v", types)
	}
}

func TestChat_RoundTrip(t *testing.T) {
	sess, ft, _, _ := newHostSession(t)
	ch := connectPartner(t, ft, sess)
	drainEvents(sess)

	ch.deliver(wireJSON(t, msgChat, sess.RemoteID(), "hi there"))

	var got *Event
	for _, ev := range drainEvents(sess) {
		if ev.Type == EventChat {
			got = &ev
			break
		}
	}
	if got == nil {
		t.Fatal("no chat event emitted")
	}
	if got.Text != "hi there" {
		t.Errorf("chat text = %q", got.Text)
	}

	if err := sess.SendChat("right back"); err != nil {
		t.Fatalf("send chat: %v", err)
	}
	types := sentTypes(t, ch)
	if types[len(types)-1] != msgChat {
		t.Errorf("last sent = %v, want chat", types)
	}
}

func TestChat_FailsWithoutChannel(t *testing.T) {
	sess, _, _, _ := newHostSession(t)

	if err := sess.SendChat("anyone there?"); err == nil {
		t.Fatal("chat without a channel should fail")
	}
}

func TestChannelClose_ResetsReadiness(t *testing.T) {
	sess, ft, _, _ := newHostSession(t)
	ch := connectPartner(t, ft, sess)
	ch.deliver(wireJSON(t, msgReady, sess.RemoteID(), ""))

	// Simulate the channel dropping.
	ch.mu.Lock()
	fns := append([]func(){}, ch.closeFns...)
	ch.mu.Unlock()
	for _, f := range fns {
		f()
	}

	if sess.Ready() {
		t.Fatal("readiness survived channel close")
	}
	if sess.State() != StateOpen {
		t.Errorf("state = %v, want open", sess.State())
	}
}

func TestSeek_EmitsFormattedStatus(t *testing.T) {
	sess, _, _, _ := newHostSession(t)
	drainEvents(sess)

	sess.Seek(0.5)

	events := drainEvents(sess)
	if len(events) == 0 {
		t.Fatal("no status emitted")
	}
	want := "Seeking to 1:00"
	if events[0].Text != want {
		t.Errorf("status = %q, want %q", events[0].Text, want)
	}
}
