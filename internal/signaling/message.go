package signaling

// Message represents all WebSocket messages between a peer and the relay.
// Every message after registration is addressed by peer identifier.
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
}

// Message type constants.
const (
	MessageTypeRegister = "register"
	MessageTypeOffer    = "offer"
	MessageTypeAnswer   = "answer"
	MessageTypeICE      = "ice"
	MessageTypeClose    = "close"

	MessageTypeRegistered = "registered"
	MessageTypeError      = "error"
)

// Media tag constants carried on offer messages so the callee knows how
// to answer before any tracks arrive.
const (
	MediaData   = "data"
	MediaCamera = "camera"
	MediaMovie  = "movie"
)

// Relay error strings.
const (
	ErrorIdentifierTaken = "identifier-taken"
	ErrorPeerUnavailable = "peer-unavailable"
	ErrorNotRegistered   = "not-registered"
)
