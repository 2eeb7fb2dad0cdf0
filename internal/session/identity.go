package session

import (
	"crypto/rand"
	"fmt"
	"log/slog"
	"math/big"
	"net/url"
	"strings"
)

// Role determines which identifier each peer claims. It is fixed for
// the lifetime of a session.
type Role string

const (
	RoleHost  Role = "HOST"
	RoleGuest Role = "GUEST"
)

// Other returns the partner's role.
func (r Role) Other() Role {
	if r == RoleHost {
		return RoleGuest
	}
	return RoleHost
}

// Room codes look like TS7G2K9Q: a fixed prefix plus six characters.
const (
	roomCodePrefix = "TS"
	roomCodeLength = 6
	roomCodeChars  = "ABCDEFGHIJKLMNOPQRSTUVWXYZ0123456789"
)

// Resolve derives both peer identifiers from the room code. It is pure:
// both peers compute the same pair, each seeing the other's identifier
// as remote.
func Resolve(roomCode string, role Role) (localID, remoteID string) {
	localID = fmt.Sprintf("%s-%s", roomCode, role)
	remoteID = fmt.Sprintf("%s-%s", roomCode, role.Other())
	return localID, remoteID
}

// GenerateRoomCode creates a fresh random room code.
func GenerateRoomCode() string {
	var b strings.Builder
	b.WriteString(roomCodePrefix)
	for i := 0; i < roomCodeLength; i++ {
		b.WriteByte(roomCodeChars[randomIndex(len(roomCodeChars))])
	}
	return b.String()
}

// randomIndex returns a cryptographically secure random index for a slice of given length.
func randomIndex(max int) int {
	n, err := rand.Int(rand.Reader, big.NewInt(int64(max)))
	if err != nil {
		slog.Error("failed to generate random index", "error", err)
		return 0
	}
	return int(n.Int64())
}

// NormalizeRoomCode trims whitespace and uppercases user input.
func NormalizeRoomCode(code string) string {
	return strings.ToUpper(strings.TrimSpace(code))
}

// ValidateRoomCode checks the normalized code's shape.
func ValidateRoomCode(code string) error {
	if !strings.HasPrefix(code, roomCodePrefix) {
		return fmt.Errorf("room code must start with %s", roomCodePrefix)
	}
	if len(code) != len(roomCodePrefix)+roomCodeLength {
		return fmt.Errorf("room code must be %d characters", len(roomCodePrefix)+roomCodeLength)
	}
	for _, c := range code[len(roomCodePrefix):] {
		if !strings.ContainsRune(roomCodeChars, c) {
			return fmt.Errorf("room code contains invalid character %q", c)
		}
	}
	return nil
}

// ParseRoomInput accepts either a bare room code or an invitation link
// carrying the code in the ?room= query parameter.
func ParseRoomInput(input string) (string, error) {
	input = strings.TrimSpace(input)

	if strings.Contains(input, "://") {
		u, err := url.Parse(input)
		if err != nil {
			return "", fmt.Errorf("invalid invitation link: %w", err)
		}
		input = u.Query().Get("room")
		if input == "" {
			return "", fmt.Errorf("invitation link has no room code")
		}
	}

	code := NormalizeRoomCode(input)
	if err := ValidateRoomCode(code); err != nil {
		return "", err
	}
	return code, nil
}
