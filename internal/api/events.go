package api

import (
	"context"
	"log"
	"net/http"
	"time"

	"github.com/gorilla/websocket"
)

var upgrader = websocket.Upgrader{
	ReadBufferSize:  1024,
	WriteBufferSize: 4096,
	// the control page may be served from anywhere on the LAN
	CheckOrigin: func(r *http.Request) bool { return true },
}

// handleEvents pushes Status to a websocket client every eventInterval until
// the client goes away.
func (s *Server) handleEvents(w http.ResponseWriter, r *http.Request) {
	conn, err := upgrader.Upgrade(w, r, nil)
	if err != nil {
		log.Printf("API: events upgrade: %v", err)
		return
	}
	defer conn.Close()

	// reader goroutine: notices the close frame / broken connection
	gone := make(chan struct{})
	go func() {
		defer close(gone)
		for {
			if _, _, err := conn.ReadMessage(); err != nil {
				return
			}
		}
	}()

	ticker := time.NewTicker(s.eventInterval)
	defer ticker.Stop()

	for {
		// the request context of a hijacked connection never ends on its own
		ctx, cancel := context.WithTimeout(r.Context(), s.commandTimeout)
		st, err := s.status(ctx)
		cancel()
		if err != nil {
			log.Printf("API: events status: %v", err)
			return
		}
		conn.SetWriteDeadline(time.Now().Add(s.commandTimeout))
		if err := conn.WriteJSON(st); err != nil {
			return
		}

		select {
		case <-gone:
			return
		case <-r.Context().Done():
			return
		case <-ticker.C:
		}
	}
}
