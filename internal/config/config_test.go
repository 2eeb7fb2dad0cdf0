package config

import "testing"

func clearEnv(t *testing.T) {
	t.Helper()
	for _, key := range []string{
		"TWOSEATS_DOMAIN", "TWOSEATS_STUN", "TWOSEATS_TURN",
		"TWOSEATS_TURN_USER", "TWOSEATS_TURN_PASS",
		"TWOSEATS_CAMERA_FRONT", "TWOSEATS_CAMERA_BACK", "TWOSEATS_MIC",
	} {
		t.Setenv(key, "")
	}
}

func TestLoad_Defaults(t *testing.T) {
	clearEnv(t)

	cfg, err := Load(Options{})
	if err != nil {
		t.Fatal(err)
	}

	if cfg.Domain != DefaultDomain {
		t.Errorf("domain = %q, want %q", cfg.Domain, DefaultDomain)
	}
	if cfg.WebSocketURL != "wss://relay.twoseats.app/ws" {
		t.Errorf("ws url = %q", cfg.WebSocketURL)
	}
	if cfg.STUNServer != DefaultSTUN {
		t.Errorf("stun = %q", cfg.STUNServer)
	}
	if cfg.GetTURNServers() != nil {
		t.Error("no TURN configured, want nil")
	}
}

func TestLoad_FlagBeatsEnv(t *testing.T) {
	clearEnv(t)
	t.Setenv("TWOSEATS_DOMAIN", "env.example.com")

	cfg, err := Load(Options{Domain: "flag.example.com"})
	if err != nil {
		t.Fatal(err)
	}
	if cfg.Domain != "flag.example.com" {
		t.Errorf("domain = %q, want the flag value", cfg.Domain)
	}
}

func TestLoad_EnvBeatsDefault(t *testing.T) {
	clearEnv(t)
	t.Setenv("TWOSEATS_DOMAIN", "env.example.com")

	cfg, err := Load(Options{})
	if err != nil {
		t.Fatal(err)
	}
	if cfg.Domain != "env.example.com" {
		t.Errorf("domain = %q, want the env value", cfg.Domain)
	}
}

func TestBuildWebSocketURL(t *testing.T) {
	cases := []struct {
		domain string
		want   string
	}{
		{"relay.twoseats.app", "wss://relay.twoseats.app/ws"},
		{"localhost", "ws://localhost/ws"},
		{"localhost:8080", "ws://localhost:8080/ws"},
		{"192.168.1.5:8080", "ws://192.168.1.5:8080/ws"},
		{"ws://custom.example.com/signal", "ws://custom.example.com/signal"},
	}

	for _, c := range cases {
		if got := buildWebSocketURL(c.domain); got != c.want {
			t.Errorf("buildWebSocketURL(%q) = %q, want %q", c.domain, got, c.want)
		}
	}
}

func TestGetTURNCredentials(t *testing.T) {
	clearEnv(t)

	cfg, err := Load(Options{TURNServer: "turn:turn.example.com:3478", TURNUser: "u", TURNPass: "p"})
	if err != nil {
		t.Fatal(err)
	}

	servers := cfg.GetTURNServers()
	if len(servers) != 1 || servers[0] != "turn:turn.example.com:3478" {
		t.Errorf("turn servers = %v", servers)
	}
	user, pass := cfg.GetTURNCredentials()
	if user != "u" || pass != "p" {
		t.Errorf("credentials = %q/%q", user, pass)
	}
}

func TestGetRoomLink(t *testing.T) {
	clearEnv(t)

	cfg, err := Load(Options{})
	if err != nil {
		t.Fatal(err)
	}
	want := "https://relay.twoseats.app/?room=TS123ABC"
	if got := cfg.GetRoomLink("TS123ABC"); got != want {
		t.Errorf("link = %q, want %q", got, want)
	}
}
