package realtime

import (
	"time"

	"github.com/gorilla/websocket"

	"github.com/Barunkrsingh/chat-application/internal/models"
)

const (
	writeWait  = 10 * time.Second
	pongWait   = 60 * time.Second
	pingPeriod = 30 * time.Second
	readLimit  = 512
)

// Event is one websocket frame sent to clients.
type Event struct {
	Type string         `json:"type"`
	Data models.Message `json:"data"`
}

// Serve streams sub to conn until the client disconnects or the
// subscription ends. It owns conn and closes it on return.
func (h *Hub) Serve(conn *websocket.Conn, sub *Subscription) {
	defer h.Unsubscribe(sub)

	done := make(chan struct{})
	go func() {
		defer close(done)
		readPump(conn)
	}()

	writePump(conn, sub, done)
	conn.Close()
	<-done
}

// readPump discards client frames and keeps the read deadline alive through
// pongs. It returns when the connection fails or closes.
func readPump(conn *websocket.Conn) {
	conn.SetReadLimit(readLimit)
	conn.SetReadDeadline(time.Now().Add(pongWait))
	conn.SetPongHandler(func(string) error {
		return conn.SetReadDeadline(time.Now().Add(pongWait))
	})

	for {
		if _, _, err := conn.ReadMessage(); err != nil {
			return
		}
	}
}

func writePump(conn *websocket.Conn, sub *Subscription, done <-chan struct{}) {
	ticker := time.NewTicker(pingPeriod)
	defer ticker.Stop()

	for {
		select {
		case msg, ok := <-sub.C:
			conn.SetWriteDeadline(time.Now().Add(writeWait))
			if !ok {
				conn.WriteMessage(websocket.CloseMessage,
					websocket.FormatCloseMessage(websocket.CloseGoingAway, ""))
				return
			}
			if err := conn.WriteJSON(Event{Type: "message", Data: msg}); err != nil {
				return
			}

		case <-ticker.C:
			conn.SetWriteDeadline(time.Now().Add(writeWait))
			if err := conn.WriteMessage(websocket.PingMessage, nil); err != nil {
				return
			}

		case <-done:
			return
		}
	}
}
