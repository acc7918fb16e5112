package socket

import (
	socketio "github.com/googollee/go-socket.io"
	"github.com/sirupsen/logrus"
)

// Server pushes group events to connected clients over socket.io.
type Server struct {
	io  *socketio.Server
	log *logrus.Logger
}

// NewServer builds the socket.io server and registers the room handlers.
// Clients join one room per group and receive broadcasts for it.
func NewServer(log *logrus.Logger) *Server {
	io := socketio.NewServer(nil)
	s := &Server{io: io, log: log}

	io.OnConnect("/", func(conn socketio.Conn) error {
		log.WithField("socketId", conn.ID()).Info("socket connected")
		return nil
	})

	io.OnEvent("/", "joinGroup", func(conn socketio.Conn, groupID string) {
		conn.Join(groupID)
		log.WithFields(logrus.Fields{
			"socketId": conn.ID(),
			"groupId":  groupID,
		}).Info("socket joined group room")
	})

	io.OnEvent("/", "leaveGroup", func(conn socketio.Conn, groupID string) {
		conn.Leave(groupID)
	})

	io.OnError("/", func(conn socketio.Conn, err error) {
		log.WithError(err).Warn("socket error")
	})

	io.OnDisconnect("/", func(conn socketio.Conn, reason string) {
		log.WithFields(logrus.Fields{
			"socketId": conn.ID(),
			"reason":   reason,
		}).Info("socket disconnected")
	})

	return s
}

// BroadcastToGroup emits an event to every client in the group's room.
func (s *Server) BroadcastToGroup(groupID, event string, payload interface{}) {
	s.io.BroadcastToRoom("/", groupID, event, payload)
}

// Serve runs the socket.io event loop until Close is called.
func (s *Server) Serve() error {
	return s.io.Serve()
}

// Close shuts the event loop down.
func (s *Server) Close() error {
	return s.io.Close()
}

// Handler exposes the underlying HTTP handler for mounting on a router.
func (s *Server) Handler() *socketio.Server {
	return s.io
}
