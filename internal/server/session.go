package server

import (
	"errors"
	"sync"
	"time"

	"example/marketplace/internal/logger"
	"example/marketplace/internal/models"

	"github.com/google/uuid"
	"github.com/gorilla/websocket"
)

const writeWait = 10 * time.Second

var (
	errSessionClosed = errors.New("session closed")
	errSlowConsumer  = errors.New("session send buffer full")
)

// session is one websocket connection. It is the Notification Sink handed to
// the marketplace for whichever customer logged in through it. All writes go
// through a single goroutine.
type session struct {
	id   string
	conn *websocket.Conn
	send chan interface{}
	done chan struct{}
	once sync.Once

	// name is the customer bound by register/login; read loop only.
	name string
}

func newSession(conn *websocket.Conn, buffer int) *session {
	if buffer < 1 {
		buffer = 1
	}
	return &session{
		id:   uuid.NewString(),
		conn: conn,
		send: make(chan interface{}, buffer),
		done: make(chan struct{}),
	}
}

// Notify queues n without blocking.
func (s *session) Notify(n models.Notification) error {
	select {
	case <-s.done:
		return errSessionClosed
	default:
	}
	select {
	case s.send <- models.WSPush{Event: n.Kind, Notification: n}:
		return nil
	case <-s.done:
		return errSessionClosed
	default:
		return errSlowConsumer
	}
}

// reply queues a response, waiting for room unless the session is gone.
func (s *session) reply(v interface{}) bool {
	select {
	case s.send <- v:
		return true
	case <-s.done:
		return false
	}
}

func (s *session) writeLoop() {
	for {
		select {
		case v := <-s.send:
			_ = s.conn.SetWriteDeadline(time.Now().Add(writeWait))
			if err := s.conn.WriteJSON(v); err != nil {
				logger.Log.Warnw("Write error", "session", s.id, "error", err)
				s.close()
				return
			}
		case <-s.done:
			return
		}
	}
}

func (s *session) close() {
	s.once.Do(func() { close(s.done) })
}
