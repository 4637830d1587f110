// Package transport drives raw TCP connections through the session
// lifecycle and owns each peer's outbound write path.
package transport

import (
	"bufio"
	"net"
	"sync"

	"github.com/google/uuid"

	"chat-relay/domain"
	relayerrors "chat-relay/errors"
)

// Peer is the handle for one connected, possibly-named client. Its
// session owns it exclusively; the registry only references it while the
// name is registered.
type Peer struct {
	ID uuid.UUID

	mu     sync.Mutex
	conn   net.Conn
	writer *bufio.Writer
	name   string
	closed bool
}

func NewPeer(conn net.Conn) *Peer {
	return &Peer{
		ID:     uuid.New(),
		conn:   conn,
		writer: bufio.NewWriter(conn),
	}
}

// Send encodes the record and flushes it to the connection.
func (p *Peer) Send(m domain.Message) error {
	p.mu.Lock()
	defer p.mu.Unlock()

	if p.closed {
		return relayerrors.ErrSessionClosed
	}
	if _, err := p.writer.WriteString(domain.Encode(m) + "\n"); err != nil {
		return err
	}
	return p.writer.Flush()
}

// Bind assigns the display name exactly once, at successful registration.
func (p *Peer) Bind(name string) {
	p.mu.Lock()
	defer p.mu.Unlock()

	if p.name == "" {
		p.name = name
	}
}

// Name returns the bound display name, or "" while unregistered.
func (p *Peer) Name() string {
	p.mu.Lock()
	defer p.mu.Unlock()

	return p.name
}

// Close clears the liveness flag and closes the connection. Idempotent.
func (p *Peer) Close() error {
	p.mu.Lock()
	if p.closed {
		p.mu.Unlock()
		return nil
	}
	p.closed = true
	p.mu.Unlock()

	return p.conn.Close()
}
