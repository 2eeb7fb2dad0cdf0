package signaling

// Handler routes incoming relay messages to appropriate channels.
// Signaling traffic for peer connections (offer/answer/ice/close) goes to
// Signal as-is; registration outcomes and relay errors get their own lanes.
type Handler struct {
	client     *Client
	Registered chan struct{}
	Signal     chan *Message
	Error      chan string
	Closed     chan struct{}
	closed     bool
}

// NewHandler creates a new message handler.
func NewHandler(client *Client) *Handler {
	return &Handler{
		client:     client,
		Registered: make(chan struct{}, 1),
		Signal:     make(chan *Message, 32),
		Error:      make(chan string, 1),
		Closed:     make(chan struct{}),
	}
}

// Start begins listening to incoming messages and routing them.
// It returns when the relay connection drops.
func (h *Handler) Start() {
	defer close(h.Closed)

	for msg := range h.client.Incoming() {

		switch msg.Type {

		case MessageTypeRegistered:
			h.Registered <- struct{}{}

		case MessageTypeOffer, MessageTypeAnswer, MessageTypeICE, MessageTypeClose:
			h.Signal <- msg

		case MessageTypeError:
			h.handleError(msg)

		default:
			// Unknown relay messages are dropped.
		}
	}
}

// handleError forwards the relay error string.
func (h *Handler) handleError(msg *Message) {
	if msg.Error == "" {
		h.Error <- "unknown error from relay"
		return
	}
	h.Error <- msg.Error
}

// Close closes all handler channels.
func (h *Handler) Close() {
	if h.closed {
		return
	}
	h.closed = true

	close(h.Registered)
	close(h.Signal)
	close(h.Error)
}
