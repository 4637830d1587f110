package transport

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net"
	"sync"
	"time"

	"chat-relay/domain"
	relayerrors "chat-relay/errors"
	"chat-relay/services"
)

// Server accepts TCP connections and runs one session goroutine per
// client, bounded by a connection ceiling. It is a supervised worker:
// per-connection failures never escape Run, only losing the listening
// endpoint does.
type Server struct {
	log        *slog.Logger
	chat       services.IChatService
	addr       string
	maxClients int

	mu       sync.Mutex
	listener net.Listener
	sessions map[*Session]struct{}
	wg       sync.WaitGroup
}

func NewServer(log *slog.Logger, chat services.IChatService, addr string, maxClients int) *Server {
	return &Server{
		log:        log,
		chat:       chat,
		addr:       addr,
		maxClients: maxClients,
		sessions:   make(map[*Session]struct{}),
	}
}

// Listen acquires the TCP endpoint. It is called before supervision
// starts so that a port conflict aborts startup instead of being retried.
func (s *Server) Listen() error {
	listener, err := net.Listen("tcp", s.addr)
	if err != nil {
		return fmt.Errorf("acquiring listen endpoint %s: %w", s.addr, err)
	}

	s.mu.Lock()
	s.listener = listener
	s.mu.Unlock()
	return nil
}

// Addr returns the bound listen address, or "" before Listen.
func (s *Server) Addr() string {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.listener == nil {
		return ""
	}
	return s.listener.Addr().String()
}

// Run owns the acceptance loop until the context is canceled. On
// shutdown it broadcasts a final notice, stops accepting, severs all live
// sessions and waits for their goroutines.
func (s *Server) Run(ctx context.Context) error {
	s.mu.Lock()
	listener := s.listener
	s.mu.Unlock()
	if listener == nil {
		if err := s.Listen(); err != nil {
			return err
		}
		s.mu.Lock()
		listener = s.listener
		s.mu.Unlock()
	}
	s.log.Info("Chat relay listening",
		"address", listener.Addr().String(), "max_clients", s.maxClients)

	go func() {
		<-ctx.Done()
		s.shutdown()
	}()

	slots := make(chan struct{}, s.maxClients)
	for {
		conn, err := listener.Accept()
		if err != nil {
			if ctx.Err() != nil || errors.Is(err, net.ErrClosed) {
				s.wg.Wait()
				s.log.Info("Acceptance loop stopped")
				return nil
			}
			s.log.Error("Accept failed", "error", err)
			continue
		}

		select {
		case slots <- struct{}{}:
		default:
			s.reject(conn)
			continue
		}

		session := NewSession(s.log, s.chat, conn)
		s.track(session)
		s.wg.Add(1)
		go func() {
			defer s.wg.Done()
			defer func() { <-slots }()
			defer s.untrack(session)
			session.Run()
		}()
	}
}

// reject turns away a connection beyond the ceiling with an ERROR record.
func (s *Server) reject(conn net.Conn) {
	s.log.Warn("Rejecting connection", "remote", conn.RemoteAddr().String(),
		"error", relayerrors.ErrServerFull)
	peer := NewPeer(conn)
	full := domain.NewMessage(domain.TypeError, domain.ServerSender,
		"Server is full, try again later", time.Now())
	_ = peer.Send(full)
	_ = peer.Close()
}

// shutdown broadcasts the final notice, releases the listener, then
// severs every live session.
func (s *Server) shutdown() {
	s.chat.PostSystem("Server is shutting down...")

	s.mu.Lock()
	listener := s.listener
	open := make([]*Session, 0, len(s.sessions))
	for session := range s.sessions {
		open = append(open, session)
	}
	s.mu.Unlock()

	if listener != nil {
		_ = listener.Close()
	}
	for _, session := range open {
		session.Close()
	}
}

func (s *Server) track(session *Session) {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.sessions[session] = struct{}{}
}

func (s *Server) untrack(session *Session) {
	s.mu.Lock()
	defer s.mu.Unlock()

	delete(s.sessions, session)
}
