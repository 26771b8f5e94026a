// Package server owns the TCP acceptor and the graceful-shutdown sequence
// of spec.md §5 and §4.8, grounded on the teacher's shutdown.go: close the
// listener first, then wait for in-flight sessions to drain on their own.
// The wait has no time bound.
package server

import (
	"log"
	"net"
	"sync"

	"github.com/chatd/chatd/internal/hub"
	"github.com/chatd/chatd/internal/session"
)

// Server accepts TCP connections and spins up one session per connection.
type Server struct {
	addr     string
	dispatch session.Dispatch
	maxLine  int
	hub      *hub.Hub
	logger   *log.Logger

	mu       sync.Mutex
	ln       net.Listener
	sessions map[*session.Session]struct{}
	wg       sync.WaitGroup
}

// New constructs a Server bound to addr (not yet listening).
func New(addr string, dispatch session.Dispatch, maxLine int, h *hub.Hub, logger *log.Logger) *Server {
	if logger == nil {
		logger = log.Default()
	}
	return &Server{
		addr:     addr,
		dispatch: dispatch,
		maxLine:  maxLine,
		hub:      h,
		logger:   logger,
		sessions: make(map[*session.Session]struct{}),
	}
}

// ListenAndServe opens the listener and accepts connections until Shutdown
// closes it. It returns nil when the listener is closed deliberately.
func (srv *Server) ListenAndServe() error {
	ln, err := net.Listen("tcp", srv.addr)
	if err != nil {
		return err
	}
	srv.mu.Lock()
	srv.ln = ln
	srv.mu.Unlock()

	srv.logger.Printf("server: listening on %s", srv.addr)

	for {
		conn, err := ln.Accept()
		if err != nil {
			srv.mu.Lock()
			closing := srv.ln == nil
			srv.mu.Unlock()
			if closing {
				return nil
			}
			srv.logger.Printf("server: accept error: %v", err)
			continue
		}
		srv.handleAccept(conn)
	}
}

func (srv *Server) handleAccept(conn net.Conn) {
	var sess *session.Session
	sess = session.New(conn, srv.dispatch, srv.maxLine, srv.logger, func(s *session.Session) {
		srv.hub.Remove(s)
		srv.mu.Lock()
		delete(srv.sessions, s)
		srv.mu.Unlock()
		srv.wg.Done()
	})

	srv.hub.Add(sess)
	srv.mu.Lock()
	srv.sessions[sess] = struct{}{}
	srv.mu.Unlock()
	srv.wg.Add(1)

	go sess.Serve()
}

// Shutdown closes the listener so no new connections are accepted; already
// open sessions are left to drain on their own (spec.md §5: "open sessions
// continue until their peer closes or their next write completes"). It
// blocks until every session has finished; there is no timeout.
func (srv *Server) Shutdown() {
	srv.mu.Lock()
	ln := srv.ln
	srv.ln = nil
	srv.mu.Unlock()
	if ln != nil {
		ln.Close()
	}
	srv.wg.Wait()
}
