package runtime

import (
	"chat-relay/domain"
	"chat-relay/domain/event"
	"context"
	"testing"

	"github.com/stretchr/testify/require"
)

type Sink struct {
	name string
}

func (s Sink) Consume(ctx context.Context, e event.DomainEvent) error {
	return nil
}

func TestSessions_Targets(t *testing.T) {
	req := require.New(t)
	sessions := NewSessions()
	a, b, c := domain.NewConnectionID(), domain.NewConnectionID(), domain.NewConnectionID()
	sinkA, sinkB, sinkC := Sink{"a"}, Sink{"b"}, Sink{"c"}

	// Given three open connections
	sessions.Subscribe(a, sinkA)
	sessions.Subscribe(b, sinkB)
	sessions.Subscribe(c, sinkC)
	req.Equal(3, sessions.Len())

	// Then each audience resolves to its connections
	req.Equal(1, len(sessions.Targets(event.To(a))))
	req.Contains(sessions.Targets(event.To(a)), sinkA)

	others := sessions.Targets(event.Except(a))
	req.Len(others, 2)
	req.ElementsMatch(others, []Sink{sinkB, sinkC})

	req.Len(sessions.Targets(event.All()), 3)
}

func TestSessions_Unsubscribe(t *testing.T) {
	req := require.New(t)
	sessions := NewSessions()
	a, b := domain.NewConnectionID(), domain.NewConnectionID()
	sessions.Subscribe(a, Sink{"a"})
	sessions.Subscribe(b, Sink{"b"})

	// When a leaves
	sessions.Unsubscribe(a)

	// Then it is not targeted anymore
	req.Nil(sessions.Targets(event.To(a)))
	req.Nil(sessions.Targets(event.Except(b)))
	req.Len(sessions.Targets(event.All()), 1)
}
