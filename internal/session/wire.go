package session

// Data channel messages. Everything on the channel is JSON with a type
// discriminator; anything that does not parse or carries an unknown
// type is dropped.
const (
	msgHello = "hello"
	msgReady = "ready"
	msgChat  = "chat"
)

type wireMessage struct {
	Type string `json:"type"`
	From string `json:"from,omitempty"`
	Text string `json:"text,omitempty"`
}
