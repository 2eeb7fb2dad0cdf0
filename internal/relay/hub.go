package relay

import "log/slog"

// Relay error strings sent to clients. Kept in sync with the client-side
// signaling package.
const (
	errIdentifierTaken = "identifier-taken"
	errPeerUnavailable = "peer-unavailable"
	errNotRegistered   = "not-registered"
)

// Hub is the central brain of the relay.
// It keeps a registry of connected peers by identifier and routes every
// addressed message to its destination. It knows nothing about rooms or
// roles; identifier arithmetic happens entirely on the clients.
type Hub struct {
	// Peers maps registered identifiers to their clients.
	Peers map[string]*Client

	// Register is a channel for newly accepted connections.
	Register chan *Client

	// Unregister is a channel for dropped connections.
	Unregister chan *Client

	// Inbound is the channel clients push parsed messages to.
	// The hub processes these messages one at a time.
	Inbound chan *Message
}

// NewHub creates a new Hub instance.
func NewHub() *Hub {
	return &Hub{
		Peers:      make(map[string]*Client),
		Register:   make(chan *Client),
		Unregister: make(chan *Client),
		Inbound:    make(chan *Message),
	}
}

// Run starts the hub's main processing loop.
// This is the single goroutine that safely manages all state.
func (h *Hub) Run() {
	for {
		select {
		case client := <-h.Register:
			// The connection is accepted but owns no identifier yet.
			// It must send a "register" message to claim one.
			slog.Debug("client connected", "addr", client.addr())

		case client := <-h.Unregister:
			slog.Debug("client disconnected", "addr", client.addr(), "id", client.ID)

			if client.ID != "" {
				// Only remove the entry if it still belongs to this
				// connection; a rejected duplicate never owned it.
				if h.Peers[client.ID] == client {
					delete(h.Peers, client.ID)
				}
			}

			// Close the client's send channel to stop its WritePump
			close(client.Send)

		case message := <-h.Inbound:
			h.route(message)
		}
	}
}

// route processes one inbound message.
func (h *Hub) route(message *Message) {
	switch message.Type {

	// A peer claims an identifier. The first claim wins; a second
	// connection claiming the same identifier is rejected so that two
	// hosts of the same room code fail fast instead of fighting.
	case "register":
		id := message.From
		if id == "" {
			message.client.Send <- &Message{Type: "error", Error: errNotRegistered}
			return
		}

		if _, taken := h.Peers[id]; taken {
			slog.Info("registration rejected", "id", id)
			message.client.Send <- &Message{Type: "error", Error: errIdentifierTaken}
			return
		}

		h.Peers[id] = message.client
		message.client.ID = id

		slog.Info("peer registered", "id", id, "addr", message.client.addr())

		message.client.Send <- &Message{Type: "registered", From: id}

	// Everything else is addressed signaling traffic: forward verbatim
	// to the destination identifier.
	case "offer", "answer", "ice", "close":
		if message.client.ID == "" {
			message.client.Send <- &Message{Type: "error", Error: errNotRegistered}
			return
		}

		target, ok := h.Peers[message.To]
		if !ok {
			slog.Debug("no such peer", "to", message.To, "type", message.Type)
			message.client.Send <- &Message{Type: "error", Error: errPeerUnavailable}
			return
		}

		// Stamp the verified sender so clients cannot spoof each other.
		message.From = message.client.ID
		target.Send <- message

	default:
		slog.Debug("unknown message type", "type", message.Type)
	}
}
