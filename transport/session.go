package transport

import (
	"bufio"
	"errors"
	"fmt"
	"log/slog"
	"net"
	"strings"
	"sync"
	"time"

	"chat-relay/domain"
	relayerrors "chat-relay/errors"
	"chat-relay/services"
)

// Commands accepted from a registered client. Any other non-empty line is
// broadcast as chat.
const (
	cmdPrivate = "/pm"
	cmdUsers   = "/users"
	cmdQuit    = "/quit"
)

// Session drives one peer from accept to teardown:
// CONNECTED (transport open, unregistered) -> ACTIVE (name bound) ->
// CLOSED (terminal).
type Session struct {
	log  *slog.Logger
	chat services.IChatService
	peer *Peer

	teardown sync.Once
}

func NewSession(log *slog.Logger, chat services.IChatService, conn net.Conn) *Session {
	peer := NewPeer(conn)
	return &Session{
		log:  log.With("session", peer.ID.String()),
		chat: chat,
		peer: peer,
	}
}

// Run blocks until the client disconnects, the transport fails, or
// teardown severs the connection.
func (s *Session) Run() {
	defer s.Close()

	scanner := bufio.NewScanner(s.peer.conn)
	name, ok := s.register(scanner)
	if !ok {
		return
	}
	s.serve(scanner, name)
}

// register implements the CONNECTED state: candidate names are read until
// one is accepted or the transport closes. A rejected name leaves the
// session unregistered and the client free to retry.
func (s *Session) register(scanner *bufio.Scanner) (string, bool) {
	for scanner.Scan() {
		name := strings.TrimSpace(scanner.Text())
		if name == "" {
			continue
		}

		err := s.chat.Join(name, s.peer)
		if err == nil {
			s.peer.Bind(name)
			s.log.Info("Session active", "name", name)
			return name, true
		}

		reason := "Invalid name, try another one"
		if errors.Is(err, relayerrors.ErrNameTaken) {
			reason = fmt.Sprintf("Name '%s' is already taken, try another one", name)
		}
		rejection := domain.NewMessage(domain.TypeError, domain.ServerSender, reason, time.Now())
		if writeErr := s.peer.Send(rejection); writeErr != nil {
			return "", false
		}
	}
	return "", false
}

// serve implements the ACTIVE state: every inbound line is routed until
// the stream ends.
func (s *Session) serve(scanner *bufio.Scanner, name string) {
	for scanner.Scan() {
		line := strings.TrimSpace(scanner.Text())
		switch {
		case line == "":
		case line == cmdQuit:
			return
		case line == cmdUsers:
			listing := domain.NewMessage(domain.TypeUserList, domain.ServerSender,
				s.chat.UserList(), time.Now())
			if err := s.peer.Send(listing); err != nil {
				return
			}
		case strings.HasPrefix(line, cmdPrivate+" "):
			s.private(name, line)
		default:
			s.chat.PostMessage(name, line)
		}
	}

	if err := scanner.Err(); err != nil {
		s.log.Warn("Transport failure", "name", name, "error", err)
	}
}

// private parses "/pm <recipient> <text>" and routes it.
func (s *Session) private(sender, line string) {
	rest := strings.TrimSpace(strings.TrimPrefix(line, cmdPrivate))
	recipient, content, found := strings.Cut(rest, " ")
	content = strings.TrimSpace(content)
	if !found || content == "" {
		usage := domain.NewMessage(domain.TypeError, domain.ServerSender,
			"Usage: /pm <user> <message>", time.Now())
		_ = s.peer.Send(usage)
		return
	}
	s.chat.PostPrivate(sender, recipient, content)
}

// Close is the CLOSED transition. Terminal and idempotent: re-invoking
// teardown on an already-closed session is a no-op.
func (s *Session) Close() {
	s.teardown.Do(func() {
		if name := s.peer.Name(); name != "" {
			s.chat.Leave(name)
		}
		_ = s.peer.Close()
		s.log.Info("Session closed")
	})
}
