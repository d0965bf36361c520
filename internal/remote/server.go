package remote

import (
	"errors"
	"net/http"
	"time"

	"github.com/gorilla/websocket"
	"github.com/sirupsen/logrus"
)

// errSessionBacklogFull is returned by wsSession.Send when a client isn't
// draining its outbound buffer fast enough; the task logs and moves on
// rather than blocking on a slow peer.
var errSessionBacklogFull = errors.New("remote: session send backlog full")

const (
	writeWait      = 10 * time.Second
	pongWait       = 60 * time.Second
	pingPeriod     = (pongWait * 9) / 10
	maxMessageSize = 512
)

var upgrader = websocket.Upgrader{
	ReadBufferSize:  1024,
	WriteBufferSize: 1024,
	CheckOrigin:     func(r *http.Request) bool { return true },
}

// wsSession adapts a gorilla/websocket connection to the Session
// interface, buffering outbound frames through a channel so a slow client
// can't block the task goroutine that calls Send.
type wsSession struct {
	conn *websocket.Conn
	send chan []byte
	task *Task
	log  *logrus.Logger
}

func (s *wsSession) Send(frame []byte) error {
	select {
	case s.send <- frame:
		return nil
	default:
		return errSessionBacklogFull
	}
}

// HandleWebSocket upgrades an HTTP request to a websocket connection and
// wires it into task as a Session, mirroring the original's
// remote_wsConnect/remote_wsReceive/remote_wsDisconnect callbacks: on
// connect, a greeting is sent and a Connected event queued; each inbound
// frame becomes a MessageReceive event; closing the socket queues a
// Disconnected event.
func HandleWebSocket(task *Task, log *logrus.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		conn, err := upgrader.Upgrade(w, r, nil)
		if err != nil {
			log.WithError(err).Warn("websocket upgrade failed")
			return
		}

		session := &wsSession{conn: conn, send: make(chan []byte, 32), task: task, log: log}
		task.Submit(Event{Kind: Connected, Session: session})

		if err := conn.WriteMessage(websocket.TextMessage, []byte("quadro2")); err != nil {
			log.WithError(err).Warn("failed to send greeting")
		}

		go session.writePump()
		go session.readPump()
	}
}

// readPump forwards inbound frames to the task and queues a Disconnected
// event once the connection closes, by whichever side.
func (s *wsSession) readPump() {
	defer func() {
		s.task.Submit(Event{Kind: Disconnected, Session: s})
		s.conn.Close()
	}()

	s.conn.SetReadLimit(maxMessageSize)
	s.conn.SetReadDeadline(time.Now().Add(pongWait))
	s.conn.SetPongHandler(func(string) error {
		s.conn.SetReadDeadline(time.Now().Add(pongWait))
		return nil
	})

	for {
		_, data, err := s.conn.ReadMessage()
		if err != nil {
			return
		}
		s.task.Submit(Event{Kind: MessageReceive, Session: s, Payload: data, Timestamp: time.Now().UnixMicro()})
	}
}

// writePump drains the session's outbound buffer to the socket and keeps
// the connection alive with protocol-level pings.
func (s *wsSession) writePump() {
	ticker := time.NewTicker(pingPeriod)
	defer func() {
		ticker.Stop()
		s.conn.Close()
	}()

	for {
		select {
		case frame, ok := <-s.send:
			s.conn.SetWriteDeadline(time.Now().Add(writeWait))
			if !ok {
				s.conn.WriteMessage(websocket.CloseMessage, []byte{})
				return
			}
			if err := s.conn.WriteMessage(websocket.TextMessage, frame); err != nil {
				return
			}
		case <-ticker.C:
			s.conn.SetWriteDeadline(time.Now().Add(writeWait))
			if err := s.conn.WriteMessage(websocket.PingMessage, nil); err != nil {
				return
			}
		}
	}
}
