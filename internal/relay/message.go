package relay

// Message defines the structure for all C2S (Client to Server)
// and S2C (Server to Client) websocket messages. The JSON shape mirrors
// the client-side signaling envelope.
type Message struct {
	Type      string `json:"type"`
	From      string `json:"from,omitempty"`
	To        string `json:"to,omitempty"`
	CallID    string `json:"call_id,omitempty"`
	Media     string `json:"media,omitempty"`
	SDP       string `json:"sdp,omitempty"`
	SDPType   string `json:"sdp_type,omitempty"`
	Candidate string `json:"candidate,omitempty"`
	Error     string `json:"error,omitempty"`

	// client is the client that sent the message.
	// It's used internally by the Hub and not sent over JSON.
	client *Client `json:"-"`
}
