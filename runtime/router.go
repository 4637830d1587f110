package runtime

import (
	"fmt"
	"log/slog"
	"sync"
	"time"

	"chat-relay/contract"
	"chat-relay/domain"
	relayerrors "chat-relay/errors"
)

// ContentFilter rewrites user-authored payloads before a record is built.
// Administrative records never pass through it.
type ContentFilter interface {
	Mask(content string) string
}

// Router implements join, leave, broadcast and private-send against the
// registry. Every operation serializes behind one mutex, so joins, leaves
// and deliveries form a single total order for every observer; the
// registry is never seen in a state reflecting only part of an operation.
type Router struct {
	mu       sync.Mutex
	log      *slog.Logger
	registry contract.IRegistry
	filter   ContentFilter
	clock    func() time.Time
}

func NewRouter(log *slog.Logger, registry contract.IRegistry, filter ContentFilter) *Router {
	return &Router{
		log:      log,
		registry: registry,
		filter:   filter,
		clock:    time.Now,
	}
}

// Join registers name and runs the welcome sequence: a WELCOME record to
// the new peer, a USER_LIST snapshot, then a USER_JOIN announcement to
// every registered peer including the new one. A duplicate name is an
// ordinary negative result, not a failure: nothing is broadcast and the
// registry is untouched.
func (r *Router) Join(name string, sink contract.MessageSink) error {
	if err := domain.ValidateDisplayName(name); err != nil {
		return err
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	if !r.registry.Register(name, sink) {
		return relayerrors.ErrNameTaken
	}

	now := r.clock()
	welcome := domain.NewMessage(domain.TypeWelcome, domain.ServerSender,
		fmt.Sprintf("Welcome to the chat, %s!", name), now)
	userList := domain.NewMessage(domain.TypeUserList, domain.ServerSender,
		domain.FormatUserList(r.registry.Names()), now)

	// A failed welcome is not fatal here: the join announcement below
	// attempts the same sink again and reaps it if it is dead.
	if err := sink.Send(welcome); err == nil {
		_ = sink.Send(userList)
	}

	// Announce last so the joiner's own snapshot is settled first.
	r.broadcastLocked(domain.ServerSender, name+" joined the chat", domain.TypeUserJoin)
	r.log.Info("Peer joined", "name", name, "online", r.registry.Size())
	return nil
}

// Leave unregisters name and announces the departure to the remaining
// peers. Calling it twice for the same name produces exactly one
// USER_LEAVE broadcast.
func (r *Router) Leave(name string) {
	r.mu.Lock()
	defer r.mu.Unlock()

	if _, ok := r.registry.Unregister(name); !ok {
		return
	}
	r.broadcastLocked(domain.ServerSender, name+" left the chat", domain.TypeUserLeave)
	r.log.Info("Peer left", "name", name, "online", r.registry.Size())
}

// Broadcast constructs one record with the current timestamp and delivers
// it to every registered peer. Control does not return until every peer
// in the snapshot taken at call time has been attempted.
func (r *Router) Broadcast(sender, content string, t domain.MessageType) {
	if t == domain.TypeChat {
		content = r.mask(content)
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	r.broadcastLocked(sender, content, t)
}

// PrivateSend delivers a PRIVATE record to the recipient and a SYSTEM
// confirmation to the sender, or an ERROR record to the sender when the
// recipient is not registered. It never broadcasts; a sender that has
// since disconnected is skipped silently.
func (r *Router) PrivateSend(sender, recipient, content string) {
	r.mu.Lock()
	defer r.mu.Unlock()

	now := r.clock()
	var failed []string

	target, ok := r.registry.Lookup(recipient)
	if !ok {
		r.log.Warn("Private send failed", "sender", sender, "recipient", recipient,
			"error", relayerrors.ErrRecipientNotFound)
		notFound := domain.NewMessage(domain.TypeError, domain.ServerSender,
			fmt.Sprintf("User '%s' not found", recipient), now)
		r.sendToRegistered(sender, notFound, &failed)
		r.reapLocked(failed)
		return
	}

	private := domain.NewMessage(domain.TypePrivate, "[Private] "+sender, r.mask(content), now)
	if err := target.Send(private); err != nil {
		r.log.Warn("Peer unreachable during private send", "name", recipient, "error", err)
		failed = append(failed, recipient)
	}

	confirmation := domain.NewMessage(domain.TypeSystem, domain.ServerSender,
		fmt.Sprintf("Private message sent to %s", recipient), now)
	r.sendToRegistered(sender, confirmation, &failed)
	r.reapLocked(failed)
}

// broadcastLocked fans one record out to a point-in-time snapshot and
// then reaps whichever sinks failed. Caller must hold r.mu.
func (r *Router) broadcastLocked(sender, content string, t domain.MessageType) {
	record := domain.NewMessage(t, sender, content, r.clock())
	r.reapLocked(r.deliverAll(record))
}

// deliverAll attempts every peer in the current snapshot and returns the
// names whose sinks failed. A failure for one peer never prevents
// delivery to the others.
func (r *Router) deliverAll(record domain.Message) []string {
	var failed []string
	for _, entry := range r.registry.Snapshot() {
		if err := entry.Sink.Send(record); err != nil {
			r.log.Warn("Peer unreachable during delivery", "name", entry.Name, "error", err)
			failed = append(failed, entry.Name)
		}
	}
	return failed
}

// reapLocked demotes unreachable peers to departures, after the snapshot
// that exposed them has been fully attempted. The USER_LEAVE broadcast
// for one dead peer can itself reveal further dead peers, hence the
// worklist loop. Caller must hold r.mu.
func (r *Router) reapLocked(failed []string) {
	for len(failed) > 0 {
		name := failed[0]
		failed = failed[1:]

		if _, ok := r.registry.Unregister(name); !ok {
			continue
		}
		r.log.Info("Removing unreachable peer", "name", name)
		record := domain.NewMessage(domain.TypeUserLeave, domain.ServerSender,
			name+" left the chat", r.clock())
		failed = append(failed, r.deliverAll(record)...)
	}
}

// sendToRegistered delivers to name only if it is still registered,
// recording a write failure for the reaper.
func (r *Router) sendToRegistered(name string, record domain.Message, failed *[]string) {
	sink, ok := r.registry.Lookup(name)
	if !ok {
		return
	}
	if err := sink.Send(record); err != nil {
		r.log.Warn("Peer unreachable during direct send", "name", name, "error", err)
		*failed = append(*failed, name)
	}
}

func (r *Router) mask(content string) string {
	if r.filter == nil {
		return content
	}
	return r.filter.Mask(content)
}
