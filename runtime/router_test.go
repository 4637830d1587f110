package runtime

import (
	"fmt"
	"log/slog"
	"testing"
	"time"

	"github.com/mama165/sdk-go/logs"
	"github.com/stretchr/testify/require"
	"go.uber.org/mock/gomock"

	"chat-relay/contract"
	"chat-relay/domain"
	relayerrors "chat-relay/errors"
	"chat-relay/mocks"
)

// recorderSink captures every delivered record; Send fails permanently
// once fail is set, simulating a dead connection.
type recorderSink struct {
	records []domain.Message
	fail    bool
}

func (s *recorderSink) Send(m domain.Message) error {
	if s.fail {
		return fmt.Errorf("broken pipe")
	}
	s.records = append(s.records, m)
	return nil
}

func (s *recorderSink) types() []domain.MessageType {
	var out []domain.MessageType
	for _, m := range s.records {
		out = append(out, m.Type)
	}
	return out
}

func newTestRouter() (*Router, *Registry) {
	registry := NewRegistry()
	router := NewRouter(logs.GetLoggerFromLevel(slog.LevelDebug), registry, nil)
	router.clock = func() time.Time {
		return time.Date(0, time.January, 1, 12, 30, 45, 0, time.UTC)
	}
	return router, registry
}

func TestRouter_Join_WelcomeSequence(t *testing.T) {
	req := require.New(t)
	router, _ := newTestRouter()
	alice := &recorderSink{}

	// When Alice joins an empty relay
	req.NoError(router.Join("Alice", alice))

	// Then she receives WELCOME, USER_LIST, then her own join announcement
	req.Equal([]domain.MessageType{
		domain.TypeWelcome, domain.TypeUserList, domain.TypeUserJoin,
	}, alice.types())
	req.Equal("Welcome to the chat, Alice!", alice.records[0].Content)
	req.Equal("Online users: Alice", alice.records[1].Content)
	req.Equal("Alice joined the chat", alice.records[2].Content)
	req.Equal(domain.ServerSender, alice.records[0].Sender)
}

func TestRouter_Join_SecondPeerAnnouncedToAll(t *testing.T) {
	req := require.New(t)
	router, _ := newTestRouter()
	alice := &recorderSink{}
	bob := &recorderSink{}
	req.NoError(router.Join("Alice", alice))

	// When Bob joins while Alice is registered
	req.NoError(router.Join("Bob", bob))

	// Then Bob's list carries both names
	req.Equal("Online users: Alice, Bob", bob.records[1].Content)

	// And both peers observe Bob's join announcement
	req.Equal("Bob joined the chat", alice.records[len(alice.records)-1].Content)
	req.Equal(domain.TypeUserJoin, alice.records[len(alice.records)-1].Type)
	req.Equal("Bob joined the chat", bob.records[2].Content)
}

func TestRouter_Join_NameTaken(t *testing.T) {
	req := require.New(t)
	router, registry := newTestRouter()
	alice := &recorderSink{}
	req.NoError(router.Join("Alice", alice))
	delivered := len(alice.records)

	// When a second session claims the same name
	err := router.Join("Alice", &recorderSink{})

	// Then it is an ordinary negative result: no state change, no broadcast
	req.ErrorIs(err, relayerrors.ErrNameTaken)
	req.Equal(1, registry.Size())
	req.Len(alice.records, delivered)
}

func TestRouter_Join_InvalidName(t *testing.T) {
	req := require.New(t)
	router, registry := newTestRouter()

	err := router.Join("not valid", &recorderSink{})

	req.ErrorIs(err, relayerrors.ErrInvalidName)
	req.Zero(registry.Size())
}

func TestRouter_Broadcast_AllPeersReceive(t *testing.T) {
	req := require.New(t)
	router, _ := newTestRouter()
	alice := &recorderSink{}
	bob := &recorderSink{}
	req.NoError(router.Join("Alice", alice))
	req.NoError(router.Join("Bob", bob))

	// When Alice broadcasts "hi"
	router.Broadcast("Alice", "hi", domain.TypeChat)

	// Then both peers receive exactly one copy, with the router's timestamp
	for _, sink := range []*recorderSink{alice, bob} {
		last := sink.records[len(sink.records)-1]
		req.Equal("CHAT_MESSAGE|Alice|hi|12:30:45", domain.Encode(last))
	}
}

func TestRouter_Broadcast_OrderPreservedPerObserver(t *testing.T) {
	req := require.New(t)
	router, _ := newTestRouter()
	alice := &recorderSink{}
	bob := &recorderSink{}
	req.NoError(router.Join("Alice", alice))
	req.NoError(router.Join("Bob", bob))

	// When two calls are routed in order C1, C2
	router.Broadcast("Alice", "first", domain.TypeChat)
	router.PrivateSend("Alice", "Bob", "second")

	// Then Bob observes C1's effect before C2's effect
	n := len(bob.records)
	req.Equal("first", bob.records[n-2].Content)
	req.Equal("second", bob.records[n-1].Content)
	req.Equal(domain.TypePrivate, bob.records[n-1].Type)
}

func TestRouter_Broadcast_FailedPeerReaped(t *testing.T) {
	req := require.New(t)
	router, registry := newTestRouter()
	alice := &recorderSink{}
	bob := &recorderSink{}
	carol := &recorderSink{}
	req.NoError(router.Join("Alice", alice))
	req.NoError(router.Join("Bob", bob))
	req.NoError(router.Join("Carol", carol))

	// Given Bob's connection dies
	bob.fail = true

	// When Alice broadcasts to three peers
	router.Broadcast("Alice", "hi", domain.TypeChat)

	// Then the other two still receive the message
	req.Equal("hi", alice.records[len(alice.records)-2].Content)
	req.Equal("hi", carol.records[len(carol.records)-2].Content)

	// And Bob is removed with a USER_LEAVE broadcast to the remaining two
	req.Equal(2, registry.Size())
	_, stillThere := registry.Lookup("Bob")
	req.False(stillThere)
	for _, sink := range []*recorderSink{alice, carol} {
		last := sink.records[len(sink.records)-1]
		req.Equal(domain.TypeUserLeave, last.Type)
		req.Equal("Bob left the chat", last.Content)
	}

	// And Bob does not appear in subsequent broadcasts
	router.Broadcast("Alice", "again", domain.TypeChat)
	req.Equal("again", carol.records[len(carol.records)-1].Content)
}

func TestRouter_Leave_Idempotent(t *testing.T) {
	req := require.New(t)
	router, registry := newTestRouter()
	alice := &recorderSink{}
	bob := &recorderSink{}
	req.NoError(router.Join("Alice", alice))
	req.NoError(router.Join("Bob", bob))

	// When Bob leaves twice
	router.Leave("Bob")
	router.Leave("Bob")

	// Then exactly one USER_LEAVE broadcast is produced
	leaves := 0
	for _, m := range alice.records {
		if m.Type == domain.TypeUserLeave {
			leaves++
		}
	}
	req.Equal(1, leaves)
	req.Equal(1, registry.Size())
}

func TestRouter_PrivateSend_DeliversAndConfirms(t *testing.T) {
	req := require.New(t)
	router, _ := newTestRouter()
	alice := &recorderSink{}
	bob := &recorderSink{}
	carol := &recorderSink{}
	req.NoError(router.Join("Alice", alice))
	req.NoError(router.Join("Bob", bob))
	req.NoError(router.Join("Carol", carol))
	carolBefore := len(carol.records)

	// When Alice sends Bob a private message
	router.PrivateSend("Alice", "Bob", "psst")

	// Then Bob receives the PRIVATE record with the tagged sender
	last := bob.records[len(bob.records)-1]
	req.Equal(domain.TypePrivate, last.Type)
	req.Equal("[Private] Alice", last.Sender)
	req.Equal("psst", last.Content)

	// And Alice receives a SYSTEM confirmation
	confirmation := alice.records[len(alice.records)-1]
	req.Equal(domain.TypeSystem, confirmation.Type)
	req.Equal("Private message sent to Bob", confirmation.Content)

	// And no other peer receives anything
	req.Len(carol.records, carolBefore)
}

func TestRouter_PrivateSend_RecipientMissing(t *testing.T) {
	req := require.New(t)
	router, _ := newTestRouter()
	alice := &recorderSink{}
	bob := &recorderSink{}
	req.NoError(router.Join("Alice", alice))
	req.NoError(router.Join("Bob", bob))
	bobBefore := len(bob.records)

	// When Alice targets a name nobody holds
	router.PrivateSend("Alice", "Mallory", "psst")

	// Then only Alice hears back, with an ERROR record
	reply := alice.records[len(alice.records)-1]
	req.Equal(domain.TypeError, reply.Type)
	req.Equal("User 'Mallory' not found", reply.Content)
	req.Len(bob.records, bobBefore)
}

func TestRouter_PrivateSend_SenderGoneIsSilent(t *testing.T) {
	req := require.New(t)
	router, registry := newTestRouter()
	bob := &recorderSink{}
	req.NoError(router.Join("Bob", bob))

	// When an unregistered sender targets Bob
	router.PrivateSend("Ghost", "Bob", "boo")

	// Then Bob still receives the private record and nothing fails
	last := bob.records[len(bob.records)-1]
	req.Equal(domain.TypePrivate, last.Type)
	req.Equal("[Private] Ghost", last.Sender)
	req.Equal(1, registry.Size())
}

func TestRouter_Broadcast_AttemptsFullSnapshot(t *testing.T) {
	ctrl := gomock.NewController(t)
	defer ctrl.Finish()

	mockRegistry := mocks.NewMockIRegistry(ctrl)
	router := NewRouter(logs.GetLoggerFromLevel(slog.LevelDebug), mockRegistry, nil)

	sinkA := mocks.NewMockMessageSink(ctrl)
	sinkB := mocks.NewMockMessageSink(ctrl)
	snapshot := []contract.Entry{
		{Name: "Alice", Sink: sinkA},
		{Name: "Bob", Sink: sinkB},
	}

	// Given a snapshot of two live peers
	mockRegistry.EXPECT().Snapshot().Return(snapshot).Times(1)

	// Then every sink in the snapshot is attempted exactly once
	sinkA.EXPECT().Send(gomock.Any()).Return(nil).Times(1)
	sinkB.EXPECT().Send(gomock.Any()).Return(nil).Times(1)

	// When one record is broadcast
	router.Broadcast("Alice", "hi", domain.TypeChat)
}

// The filter must touch user-authored chat only, never system records.
type upperFilter struct{}

func (upperFilter) Mask(content string) string { return "MASKED" }

func TestRouter_Broadcast_FiltersChatOnly(t *testing.T) {
	req := require.New(t)
	registry := NewRegistry()
	router := NewRouter(logs.GetLoggerFromLevel(slog.LevelDebug), registry, upperFilter{})
	alice := &recorderSink{}
	req.NoError(router.Join("Alice", alice))

	router.Broadcast("Alice", "hello", domain.TypeChat)
	router.Broadcast(domain.ServerSender, "Server is shutting down...", domain.TypeSystem)

	n := len(alice.records)
	req.Equal("MASKED", alice.records[n-2].Content)
	req.Equal("Server is shutting down...", alice.records[n-1].Content)
}
