package relay

import (
	"fmt"
	"log/slog"
	"net/http"

	"github.com/gorilla/websocket"
)

// Configure the websocket upgrader
var upgrader = websocket.Upgrader{
	ReadBufferSize:  64 * 1024, // 64 KB
	WriteBufferSize: 64 * 1024, // 64 KB

	// The relay grants nothing beyond message routing, so cross-origin
	// web clients are allowed to connect.
	CheckOrigin: func(r *http.Request) bool {
		return true
	},
}

// ServeWs returns an http.HandlerFunc that handles websocket requests.
// It takes the hub as a dependency.
func ServeWs(hub *Hub) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		conn, err := upgrader.Upgrade(w, r, nil)
		if err != nil {
			slog.Error("failed to upgrade connection", "error", err)
			return
		}

		client := &Client{
			Hub:  hub,
			Conn: conn,
			Send: make(chan *Message, 256),
		}

		client.Hub.Register <- client

		// Start the client's read and write pumps in separate goroutines
		go client.WritePump()
		go client.ReadPump()
	}
}

// ListenAndServe runs the relay on the given port until the process exits.
func ListenAndServe(port int) error {
	hub := NewHub()
	go hub.Run()

	mux := http.NewServeMux()
	mux.HandleFunc("/health", func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "text/plain; charset=utf-8")
		w.WriteHeader(http.StatusOK)
		w.Write([]byte("Relay is healthy."))
	})
	mux.HandleFunc("/ws", ServeWs(hub))

	addr := fmt.Sprintf(":%d", port)
	slog.Info("relay listening", "addr", addr)

	return http.ListenAndServe(addr, mux)
}
