package runtime

import (
	"chat-relay/contract"
	"chat-relay/domain"
	"chat-relay/domain/event"
	"chat-relay/errors"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/jonboulle/clockwork"
)

var _ contract.ICoordinator = (*Coordinator)(nil)

// Coordinator turns transport events into registry and grace operations and
// decides what gets broadcast.
//
// Every handler runs under one mutex, and so does every grace expiry. Envelopes
// are published while that mutex is held, which gives a single production order:
// for a nickname, its join precedes its messages, which precede its leave.
type Coordinator struct {
	mu        sync.Mutex
	log       *slog.Logger
	registry  contract.IRegistry
	sessions  contract.ISessions
	publisher contract.IPublisher
	graces    *GraceTracker
}

func NewCoordinator(log *slog.Logger, registry contract.IRegistry, sessions contract.ISessions,
	publisher contract.IPublisher, graceWindow time.Duration, clock clockwork.Clock) *Coordinator {
	c := &Coordinator{
		log:       log,
		registry:  registry,
		sessions:  sessions,
		publisher: publisher,
	}
	if clock == nil {
		clock = clockwork.NewRealClock()
	}
	c.graces = NewGraceTracker(log, graceWindow, WithClock(clock), WithGuard(&c.mu))
	return c
}

// Connect registers a bare connection. It holds no nickname yet.
func (c *Coordinator) Connect(id domain.ConnectionID, sink contract.EventSink) {
	c.mu.Lock()
	defer c.mu.Unlock()

	c.sessions.Subscribe(id, sink)
	c.log.Debug("Connection opened", "connection_id", id)
}

// SetNickname handles a first-time claim. The claimant always gets a reply.
func (c *Coordinator) SetNickname(cmd domain.SetNicknameCommand) {
	c.mu.Lock()
	defer c.mu.Unlock()

	id, name := cmd.ConnectionID, cmd.Nickname
	if name.IsEmpty() {
		c.reject(id, errors.ErrEmptyNickname)
		return
	}

	if current, bound := c.registry.Lookup(id); bound {
		if current == name {
			c.accept(id, name)
			return
		}
		c.log.Debug("Claim rejected, connection already bound",
			"connection_id", id, "nickname", name, "current", current)
		c.reject(id, fmt.Errorf("%w: %s", errors.ErrAlreadyBound, current))
		return
	}

	if c.registry.IsHeld(name) {
		c.log.Debug("Claim rejected, nickname taken", "connection_id", id, "nickname", name)
		c.reject(id, errors.ErrNicknameTaken)
		return
	}

	c.bindLocked(id, name)
}

// ReconnectNickname handles the re-claim a client sends on every (re)connection.
// Anomalies are ignored silently: the claimant gets no reply.
func (c *Coordinator) ReconnectNickname(cmd domain.ReconnectNicknameCommand) {
	c.mu.Lock()
	defer c.mu.Unlock()

	id, name := cmd.ConnectionID, cmd.Nickname
	if name.IsEmpty() {
		return
	}

	if current, bound := c.registry.Lookup(id); bound {
		if current != name {
			c.log.Debug("Reconnect ignored, connection already bound",
				"connection_id", id, "nickname", name, "current", current)
		}
		return
	}

	if c.registry.IsHeld(name) {
		c.log.Debug("Reconnect ignored, nickname held by a live connection",
			"connection_id", id, "nickname", name)
		return
	}

	c.bindLocked(id, name)
}

// bindLocked cancels any grace entry for name, then binds it. A cancelled entry
// means the departure was never announced, so the return stays silent too.
func (c *Coordinator) bindLocked(id domain.ConnectionID, name domain.Nickname) {
	quickReconnect := c.graces.Disarm(name)

	if _, err := c.registry.TryClaim(id, name); err != nil {
		// Unreachable while every claim goes through this lock.
		c.log.Warn("Binding failed after checks", "connection_id", id, "nickname", name, "error", err)
		c.reject(id, err)
		return
	}

	c.accept(id, name)
	if quickReconnect {
		c.log.Info("Nickname reclaimed within grace window", "connection_id", id, "nickname", name)
		return
	}
	c.publisher.Publish(event.NewEnvelope(event.UserJoined{Nickname: name}, event.Except(id)))
	c.log.Info("Nickname joined", "connection_id", id, "nickname", name)
}

// PostMessage relays a chat line to every other connection. Messages from
// connections without a nickname are dropped.
func (c *Coordinator) PostMessage(cmd domain.PostMessageCommand) {
	c.mu.Lock()
	defer c.mu.Unlock()

	name, bound := c.registry.Lookup(cmd.ConnectionID)
	if !bound {
		c.log.Debug("Message dropped, connection holds no nickname", "connection_id", cmd.ConnectionID)
		return
	}

	message := domain.Message{Nickname: name, Content: cmd.Content, Timestamp: cmd.Timestamp}
	c.publisher.Publish(event.NewEnvelope(event.NewMessagePosted(message), event.Except(cmd.ConnectionID)))
}

// Disconnect tears the connection down. A held nickname enters its grace window.
func (c *Coordinator) Disconnect(id domain.ConnectionID) {
	c.mu.Lock()
	defer c.mu.Unlock()

	c.sessions.Unsubscribe(id)

	name, bound := c.registry.Release(id)
	if !bound {
		c.log.Debug("Connection closed", "connection_id", id)
		return
	}

	if err := c.graces.Arm(name, c.expireLocked); err != nil {
		c.log.Warn("Grace window not armed", "nickname", name, "error", err)
		return
	}
	c.log.Debug("Connection closed, nickname pending", "connection_id", id, "nickname", name)
}

// expireLocked runs with c.mu held by the grace tracker.
func (c *Coordinator) expireLocked(name domain.Nickname) {
	c.publisher.Publish(event.NewEnvelope(event.UserLeft{Nickname: name}, event.All()))
	c.log.Info("Nickname left", "nickname", name)
}

func (c *Coordinator) accept(id domain.ConnectionID, name domain.Nickname) {
	reply := event.NicknameResponse{Success: true, Nickname: name}
	c.publisher.Publish(event.NewEnvelope(reply, event.To(id)))
}

func (c *Coordinator) reject(id domain.ConnectionID, err error) {
	reply := event.NicknameResponse{Success: false, Message: err.Error()}
	c.publisher.Publish(event.NewEnvelope(reply, event.To(id)))
}

func (c *Coordinator) Snapshot() domain.Snapshot {
	c.mu.Lock()
	defer c.mu.Unlock()

	return domain.Snapshot{
		Connections: c.sessions.Len(),
		Nicknames:   c.registry.Nicknames(),
		Pending:     c.graces.PendingNicknames(),
	}
}

// Close cancels every pending grace window without announcing departures.
func (c *Coordinator) Close() {
	c.mu.Lock()
	defer c.mu.Unlock()

	if n := c.graces.Stop(); n > 0 {
		c.log.Info(fmt.Sprintf("%d pending grace windows cancelled", n))
	}
}
