package api

import (
	"encoding/json"
	"log"
	"net/http"
	"time"

	"github.com/gorilla/websocket"

	"github.com/seenimoa/incomeview/internal/report"
	"github.com/seenimoa/incomeview/internal/statement"
)

var upgrader = websocket.Upgrader{
	ReadBufferSize:  1024,
	WriteBufferSize: 1024,
	CheckOrigin: func(r *http.Request) bool {
		return true // local view; CORS origins do not apply to upgrades
	},
}

const (
	// Time allowed to write a message to the peer.
	writeWait = 10 * time.Second

	// Time allowed to read the next pong message from the peer.
	pongWait = 60 * time.Second

	// Send pings to peer with this period. Must be less than pongWait.
	pingPeriod = (pongWait * 9) / 10

	// Maximum message size allowed from peer.
	maxMessageSize = 4096
)

// WSMessage is a frame exchanged over the view socket.
//
// Client → server: {"type":"view","data":{...query}} or {"type":"ping"}.
// Server → client: {"type":"rows","data":{"rows":[...]}}, {"type":"error","error":"..."}
// or {"type":"pong"}.
type WSMessage struct {
	Type  string          `json:"type"`
	Data  json.RawMessage `json:"data,omitempty"`
	Error string          `json:"error,omitempty"`
}

// RowsPayload is the data of a "rows" message.
type RowsPayload struct {
	Count int          `json:"count"`
	Rows  []report.Row `json:"rows"`
}

// handleWebSocket upgrades HTTP connections to WebSocket. Every "view"
// message is answered with the rows for that query.
func (s *Server) handleWebSocket(w http.ResponseWriter, r *http.Request) {
	conn, err := upgrader.Upgrade(w, r, nil)
	if err != nil {
		log.Printf("WebSocket upgrade error: %v", err)
		return
	}

	send := make(chan WSMessage, 16)
	done := make(chan struct{})

	// Start reader and writer goroutines
	go wsWritePump(conn, send, done)
	go s.wsReadPump(conn, send, done)
}

// wsReadPump reads client messages and queues the replies. It owns send
// and closes it on exit, which stops the write pump. Once the write pump
// has exited (done closed) it stops queueing and returns.
func (s *Server) wsReadPump(conn *websocket.Conn, send chan<- WSMessage, done <-chan struct{}) {
	defer close(send)

	conn.SetReadLimit(maxMessageSize)
	_ = conn.SetReadDeadline(time.Now().Add(pongWait))
	conn.SetPongHandler(func(string) error {
		_ = conn.SetReadDeadline(time.Now().Add(pongWait))
		return nil
	})

	for {
		_, message, err := conn.ReadMessage()
		if err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseNormalClosure) {
				log.Printf("WebSocket read error: %v", err)
			}
			return
		}

		var out WSMessage
		var msg WSMessage
		if err := json.Unmarshal(message, &msg); err != nil {
			out = WSMessage{Type: "error", Error: "malformed message"}
		} else {
			switch msg.Type {
			case "view":
				out = s.viewMessage(msg.Data)
			case "ping":
				out = WSMessage{Type: "pong"}
			default:
				out = WSMessage{Type: "error", Error: "unknown message type " + msg.Type}
			}
		}
		if !queueMessage(send, done, out) {
			return
		}
	}
}

// queueMessage hands msg to the write pump. It reports false without
// blocking further once done is closed.
func queueMessage(send chan<- WSMessage, done <-chan struct{}, msg WSMessage) bool {
	select {
	case send <- msg:
		return true
	case <-done:
		return false
	}
}

// viewMessage runs the pipeline for a raw query and builds the reply.
func (s *Server) viewMessage(raw json.RawMessage) WSMessage {
	if errMsg := s.state.Err(); errMsg != "" {
		return WSMessage{Type: "error", Error: report.ErrorMessage(errMsg)}
	}

	var q statement.Query
	if len(raw) > 0 {
		if err := json.Unmarshal(raw, &q); err != nil {
			return WSMessage{Type: "error", Error: "malformed query"}
		}
	}
	filter, sort, err := q.Parse()
	if err != nil {
		return WSMessage{Type: "error", Error: err.Error()}
	}

	rows := report.Rows(s.state.View(filter, sort))
	data, err := json.Marshal(RowsPayload{Count: len(rows), Rows: rows})
	if err != nil {
		return WSMessage{Type: "error", Error: err.Error()}
	}
	return WSMessage{Type: "rows", Data: data}
}

// wsWritePump writes queued messages to the connection and keeps it alive
// with pings. It closes done and the connection on exit.
func wsWritePump(conn *websocket.Conn, send <-chan WSMessage, done chan<- struct{}) {
	ticker := time.NewTicker(pingPeriod)
	defer func() {
		ticker.Stop()
		close(done)
		conn.Close()
	}()

	for {
		select {
		case msg, ok := <-send:
			_ = conn.SetWriteDeadline(time.Now().Add(writeWait))
			if !ok {
				// Reader exited
				_ = conn.WriteMessage(websocket.CloseMessage, []byte{})
				return
			}

			data, err := json.Marshal(msg)
			if err != nil {
				log.Printf("WebSocket marshal error: %v", err)
				return
			}

			if err := conn.WriteMessage(websocket.TextMessage, data); err != nil {
				return
			}

		case <-ticker.C:
			_ = conn.SetWriteDeadline(time.Now().Add(writeWait))
			if err := conn.WriteMessage(websocket.PingMessage, nil); err != nil {
				return
			}
		}
	}
}
