//go:generate go run go.uber.org/mock/mockgen -source=contract.go -destination=../mocks/mock_contract.go -package=mocks
package contract

import (
	"context"
	"reflect"

	"chat-relay/domain"
)

// MessageSink is the outbound write path of one connected peer.
// Deliveries funnel through the router's exclusion domain, so a sink is
// never written by two routing operations at once.
type MessageSink interface {
	Send(m domain.Message) error
}

// Entry is a point-in-time registry element; it does not stay valid as
// the registry mutates.
type Entry struct {
	Name string
	Sink MessageSink
}

type IRegistry interface {
	Register(name string, sink MessageSink) bool
	Unregister(name string) (MessageSink, bool)
	Lookup(name string) (MessageSink, bool)
	Snapshot() []Entry
	Names() []string
	Size() int
}

type IRouter interface {
	Join(name string, sink MessageSink) error
	Leave(name string)
	Broadcast(sender, content string, t domain.MessageType)
	PrivateSend(sender, recipient, content string)
}

type WorkerName string

// Worker doesn't protect itself
// Can be silly, focused
type Worker interface {
	Run(ctx context.Context) error
}

type ISupervisor interface {
	Add(worker ...Worker) ISupervisor
	Run(ctx context.Context)
	Start(ctx context.Context, worker Worker)
	Stop()
}

// GetWorkerName uses reflection to retrieve the type name of the worker.
// This is used for logging and supervision purposes during worker
// lifecycle events, avoiding the need for manual naming in the Worker
// interface.
func GetWorkerName(w Worker) string {
	if w == nil {
		return "NilWorker"
	}
	t := reflect.TypeOf(w)
	for t.Kind() == reflect.Ptr {
		t = t.Elem()
	}
	return t.Name()
}
