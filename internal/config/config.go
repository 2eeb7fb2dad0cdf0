package config

import (
	"fmt"
	"os"
	"strings"

	"github.com/joho/godotenv"
)

// Default configuration values (production)
const (
	DefaultDomain = "relay.twoseats.app"
	DefaultSTUN   = "stun:stun.l.google.com:19302"
)

// Config holds application configuration
type Config struct {
	// Domain is the signaling relay domain
	Domain string

	// WebSocketURL is constructed from domain
	WebSocketURL string

	// ICE servers for WebRTC
	STUNServer string
	TURNServer string
	TURNUser   string
	TURNPass   string
	ForceRelay bool

	// Media device sources. CameraFront/CameraBack point at IVF files used
	// as the "user" and "environment" facing capture devices; Microphone
	// points at an Ogg Opus file. Any of them may be empty.
	CameraFront string
	CameraBack  string
	Microphone  string
}

// Options for loading config with CLI flag overrides
type Options struct {
	Domain      string
	STUNServer  string
	TURNServer  string
	TURNUser    string
	TURNPass    string
	ForceRelay  bool
	CameraFront string
	CameraBack  string
	Microphone  string
}

// Load reads configuration with the following priority:
// 1. CLI flags (passed via Options) - highest priority
// 2. Environment variables (a .env file is honored when present)
// 3. Hardcoded defaults - lowest priority
func Load(opts Options) (*Config, error) {
	// Best effort: a missing .env file is not an error.
	_ = godotenv.Load()

	cfg := &Config{
		Domain:      firstOf(opts.Domain, os.Getenv("TWOSEATS_DOMAIN"), DefaultDomain),
		STUNServer:  firstOf(opts.STUNServer, os.Getenv("TWOSEATS_STUN"), DefaultSTUN),
		TURNServer:  firstOf(opts.TURNServer, os.Getenv("TWOSEATS_TURN")),
		TURNUser:    firstOf(opts.TURNUser, os.Getenv("TWOSEATS_TURN_USER")),
		TURNPass:    firstOf(opts.TURNPass, os.Getenv("TWOSEATS_TURN_PASS")),
		ForceRelay:  opts.ForceRelay,
		CameraFront: firstOf(opts.CameraFront, os.Getenv("TWOSEATS_CAMERA_FRONT")),
		CameraBack:  firstOf(opts.CameraBack, os.Getenv("TWOSEATS_CAMERA_BACK")),
		Microphone:  firstOf(opts.Microphone, os.Getenv("TWOSEATS_MIC")),
	}

	cfg.WebSocketURL = buildWebSocketURL(cfg.Domain)

	return cfg, nil
}

// buildWebSocketURL derives the relay endpoint from the configured domain.
// Local addresses (with an explicit port) use plain ws://, everything else wss://.
func buildWebSocketURL(domain string) string {
	if strings.Contains(domain, "://") {
		return domain
	}
	if strings.Contains(domain, ":") || strings.HasPrefix(domain, "localhost") {
		return fmt.Sprintf("ws://%s/ws", domain)
	}
	return fmt.Sprintf("wss://%s/ws", domain)
}

// GetSTUNServers returns the STUN server URLs for the ICE configuration.
func (c *Config) GetSTUNServers() []string {
	return []string{c.STUNServer}
}

// GetTURNServers returns TURN server URLs, or nil if none configured.
func (c *Config) GetTURNServers() []string {
	if c.TURNServer == "" {
		return nil
	}
	return []string{c.TURNServer}
}

// GetTURNCredentials returns the TURN username and password.
func (c *Config) GetTURNCredentials() (string, string) {
	return c.TURNUser, c.TURNPass
}

// GetRoomLink builds the shareable invitation link for a room code.
// The web client consumes the code from the ?room= query parameter.
func (c *Config) GetRoomLink(roomCode string) string {
	return fmt.Sprintf("https://%s/?room=%s", c.Domain, roomCode)
}

func firstOf(values ...string) string {
	for _, v := range values {
		if v != "" {
			return v
		}
	}
	return ""
}
