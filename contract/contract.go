//go:generate go run go.uber.org/mock/mockgen -source=contract.go -destination=../mocks/mock_contract.go -package=mocks
package contract

import (
	"chat-relay/domain"
	"chat-relay/domain/event"
	"context"
	"reflect"
)

type ISupervisor interface {
	Add(worker ...Worker) ISupervisor
	Run(ctx context.Context)
	Start(ctx context.Context, worker Worker)
	Stop()
}

// Worker doesn't protect itself
// Can be silly, focused
type Worker interface {
	Run(ctx context.Context) error
}

// GetWorkerName uses reflection to retrieve the type name of the worker.
// This is used for logging and supervision purposes during worker initialization
// or lifecycle events, avoiding the need for manual naming in the Worker interface.
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

// EventSink receives outbound events. Implementations must not block past ctx.
type EventSink interface {
	Consume(ctx context.Context, e event.DomainEvent) error
}

// IPublisher accepts envelopes in production order.
type IPublisher interface {
	Publish(env event.Envelope)
}

type ISessions interface {
	Subscribe(id domain.ConnectionID, sink EventSink)
	Unsubscribe(id domain.ConnectionID)
	Targets(audience event.Audience) []EventSink
	Len() int
}

type IRegistry interface {
	TryClaim(id domain.ConnectionID, name domain.Nickname) (alreadyBound bool, err error)
	Release(id domain.ConnectionID) (domain.Nickname, bool)
	IsHeld(name domain.Nickname) bool
	Lookup(id domain.ConnectionID) (domain.Nickname, bool)
	Nicknames() []domain.Nickname
	Len() int
}

type ISnapshotter interface {
	Snapshot() domain.Snapshot
}

// ICoordinator is what the transport drives. Calls for one connection must be serialized
// by the caller; calls for different connections may be concurrent.
type ICoordinator interface {
	ISnapshotter
	Connect(id domain.ConnectionID, sink EventSink)
	SetNickname(cmd domain.SetNicknameCommand)
	ReconnectNickname(cmd domain.ReconnectNicknameCommand)
	PostMessage(cmd domain.PostMessageCommand)
	Disconnect(id domain.ConnectionID)
}
