package playback

import (
	"encoding/binary"
	"errors"
	"math"
	"os"
	"path/filepath"
	"testing"
	"time"
)

// writeIVF writes a frameless IVF file whose header announces the given
// timebase and frame count. The probe only reads the header, so no frame
// payload is needed.
func writeIVF(t *testing.T, num, den uint32, frames uint32) string {
	t.Helper()

	header := make([]byte, 32)
	copy(header[0:4], "DKIF")
	binary.LittleEndian.PutUint16(header[4:6], 0)
	binary.LittleEndian.PutUint16(header[6:8], 32)
	copy(header[8:12], "VP80")
	binary.LittleEndian.PutUint16(header[12:14], 640)
	binary.LittleEndian.PutUint16(header[14:16], 480)
	binary.LittleEndian.PutUint32(header[16:20], den)
	binary.LittleEndian.PutUint32(header[20:24], num)
	binary.LittleEndian.PutUint32(header[24:28], frames)

	path := filepath.Join(t.TempDir(), "movie.ivf")
	if err := os.WriteFile(path, header, 0o644); err != nil {
		t.Fatal(err)
	}
	return path
}

func loadedPlayer(t *testing.T) *Player {
	t.Helper()
	p := NewPlayer()
	// 30 fps, 3600 frames: a two minute movie.
	if err := p.LoadLocal(writeIVF(t, 1, 30, 3600)); err != nil {
		t.Fatalf("load: %v", err)
	}
	return p
}

func TestLoadLocal_EmptyPath(t *testing.T) {
	p := NewPlayer()
	if err := p.LoadLocal(""); !errors.Is(err, ErrNoSourceProvided) {
		t.Fatalf("err = %v, want ErrNoSourceProvided", err)
	}
	if p.Loaded() {
		t.Error("player loaded after failed load")
	}
}

func TestLoadLocal_ReadsIVFDuration(t *testing.T) {
	p := loadedPlayer(t)

	if got := p.Duration(); got != 2*time.Minute {
		t.Errorf("duration = %v, want 2m0s", got)
	}
	if p.Playing() {
		t.Error("freshly loaded movie should be paused")
	}
}

func TestLoadLocal_NonIVFStillLoads(t *testing.T) {
	path := filepath.Join(t.TempDir(), "movie.mp4")
	if err := os.WriteFile(path, []byte("not an ivf file"), 0o644); err != nil {
		t.Fatal(err)
	}

	p := NewPlayer()
	if err := p.LoadLocal(path); err != nil {
		t.Fatalf("load: %v", err)
	}

	if !p.Loaded() {
		t.Error("non-ivf source should still load")
	}
	if p.Duration() != 0 {
		t.Errorf("duration = %v, want 0 for unknown format", p.Duration())
	}
	if p.Progress() != 0 {
		t.Errorf("progress = %v, want 0 with unknown duration", p.Progress())
	}
	if _, err := p.CaptureStream(); !errors.Is(err, ErrCaptureUnsupported) {
		t.Errorf("capture err = %v, want ErrCaptureUnsupported", err)
	}
}

func TestPlay_NothingLoaded(t *testing.T) {
	p := NewPlayer()
	if err := p.Play(); !errors.Is(err, ErrNothingLoaded) {
		t.Fatalf("err = %v, want ErrNothingLoaded", err)
	}
}

func TestSeek_HalfOfTwoMinutes(t *testing.T) {
	p := loadedPlayer(t)

	pos := p.Seek(0.5)
	if pos != time.Minute {
		t.Errorf("seek(0.5) = %v, want 1m0s", pos)
	}
	if got := FormatTime(pos); got != "1:00" {
		t.Errorf("formatted = %q, want 1:00", got)
	}
}

func TestSeek_Clamps(t *testing.T) {
	p := loadedPlayer(t)

	if pos := p.Seek(1.5); pos != 2*time.Minute {
		t.Errorf("seek(1.5) = %v, want duration", pos)
	}
	if pos := p.Seek(-0.3); pos != 0 {
		t.Errorf("seek(-0.3) = %v, want 0", pos)
	}
	if pos := p.Seek(math.NaN()); pos != 0 {
		t.Errorf("seek(NaN) = %v, want 0", pos)
	}
}

func TestSeek_PausedPositionIsExact(t *testing.T) {
	p := loadedPlayer(t)

	p.Seek(0.25)
	if got := p.Position(); got != 30*time.Second {
		t.Errorf("position = %v, want 30s", got)
	}
	// The clock must not advance while paused.
	time.Sleep(20 * time.Millisecond)
	if got := p.Position(); got != 30*time.Second {
		t.Errorf("position drifted to %v while paused", got)
	}
}

func TestPlay_AdvancesPosition(t *testing.T) {
	p := loadedPlayer(t)

	if err := p.Play(); err != nil {
		t.Fatalf("play: %v", err)
	}
	time.Sleep(30 * time.Millisecond)

	if got := p.Position(); got <= 0 {
		t.Errorf("position = %v, want > 0 while playing", got)
	}

	if err := p.Pause(); err != nil {
		t.Fatalf("pause: %v", err)
	}
	frozen := p.Position()
	time.Sleep(20 * time.Millisecond)
	if got := p.Position(); got != frozen {
		t.Errorf("position moved from %v to %v after pause", frozen, got)
	}
}

func TestPlayPauseHooks(t *testing.T) {
	p := loadedPlayer(t)

	var plays, pauses int
	p.OnPlay = func() { plays++ }
	p.OnPause = func() { pauses++ }

	p.Play()
	p.Play() // already playing, no second event
	p.Pause()
	p.Pause()

	if plays != 1 {
		t.Errorf("OnPlay fired %d times, want 1", plays)
	}
	if pauses != 1 {
		t.Errorf("OnPause fired %d times, want 1", pauses)
	}
}

func TestCaptureStream_Idempotent(t *testing.T) {
	p := loadedPlayer(t)
	defer p.StopCapture()

	s1, err := p.CaptureStream()
	if err != nil {
		t.Fatalf("capture: %v", err)
	}
	s2, err := p.CaptureStream()
	if err != nil {
		t.Fatalf("capture again: %v", err)
	}
	if s1 != s2 {
		t.Error("repeat capture must return the same stream")
	}
	if len(s1.VideoTracks()) != 1 {
		t.Errorf("capture stream has %d video tracks, want 1", len(s1.VideoTracks()))
	}
}

func TestFormatTime(t *testing.T) {
	cases := []struct {
		d    time.Duration
		want string
	}{
		{0, "0:00"},
		{59 * time.Second, "0:59"},
		{time.Minute, "1:00"},
		{61 * time.Second, "1:01"},
		{10 * time.Minute, "10:00"},
		{-5 * time.Second, "0:00"},
	}

	for _, c := range cases {
		if got := FormatTime(c.d); got != c.want {
			t.Errorf("FormatTime(%v) = %q, want %q", c.d, got, c.want)
		}
	}
}
