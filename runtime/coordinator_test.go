package runtime

import (
	"chat-relay/domain"
	"chat-relay/domain/event"
	"log/slog"
	"sync"
	"testing"
	"time"

	"github.com/jonboulle/clockwork"
	"github.com/mama165/sdk-go/logs"
	"github.com/samber/lo"
	"github.com/stretchr/testify/require"
)

// recorder keeps published envelopes in production order.
type recorder struct {
	mu        sync.Mutex
	envelopes []event.Envelope
}

func (r *recorder) Publish(env event.Envelope) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.envelopes = append(r.envelopes, env)
}

func (r *recorder) all() []event.Envelope {
	r.mu.Lock()
	defer r.mu.Unlock()
	return append([]event.Envelope(nil), r.envelopes...)
}

// named returns the envelopes carrying the given event.
func (r *recorder) named(name event.Name) []event.Envelope {
	return lo.Filter(r.all(), func(env event.Envelope, _ int) bool {
		return env.Event.EventName() == name
	})
}

func (r *recorder) reset() {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.envelopes = nil
}

type coordinatorFixture struct {
	coordinator *Coordinator
	published   *recorder
	clock       *clockwork.FakeClock
}

func newCoordinatorFixture() coordinatorFixture {
	log := logs.GetLoggerFromLevel(slog.LevelDebug)
	published := &recorder{}
	clock := clockwork.NewFakeClock()
	coordinator := NewCoordinator(log, NewRegistry(), NewSessions(), published, DefaultGraceWindow, clock)
	return coordinatorFixture{coordinator: coordinator, published: published, clock: clock}
}

func (f coordinatorFixture) connect() domain.ConnectionID {
	id := domain.NewConnectionID()
	f.coordinator.Connect(id, Sink{})
	return id
}

func (f coordinatorFixture) claim(id domain.ConnectionID, name domain.Nickname) {
	f.coordinator.SetNickname(domain.SetNicknameCommand{ConnectionID: id, Nickname: name})
}

func (f coordinatorFixture) reconnect(id domain.ConnectionID, name domain.Nickname) {
	f.coordinator.ReconnectNickname(domain.ReconnectNicknameCommand{ConnectionID: id, Nickname: name})
}

func (f coordinatorFixture) say(id domain.ConnectionID, content string) {
	f.coordinator.PostMessage(domain.PostMessageCommand{ConnectionID: id, Content: content, Timestamp: "12:00"})
}

func TestCoordinator_SetNickname_Joins(t *testing.T) {
	req := require.New(t)
	f := newCoordinatorFixture()
	a, b := f.connect(), f.connect()

	// When A claims alice
	f.claim(a, "alice")

	// Then A gets a success and the others see the join
	envelopes := f.published.all()
	req.Len(envelopes, 2)
	req.Equal(event.NicknameResponse{Success: true, Nickname: "alice"}, envelopes[0].Event)
	req.Equal(event.To(a), envelopes[0].Audience)
	req.Equal(event.UserJoined{Nickname: "alice"}, envelopes[1].Event)
	req.Equal(event.Except(a), envelopes[1].Audience)
	req.True(envelopes[1].Audience.Includes(b))
	req.False(envelopes[1].Audience.Includes(a))
}

func TestCoordinator_SetNickname_Taken(t *testing.T) {
	req := require.New(t)
	f := newCoordinatorFixture()
	a, b := f.connect(), f.connect()
	f.claim(a, "alice")
	f.published.reset()

	// When B claims alice
	f.claim(b, "alice")

	// Then only B hears about it, with a failure
	envelopes := f.published.all()
	req.Len(envelopes, 1)
	reply := envelopes[0].Event.(event.NicknameResponse)
	req.False(reply.Success)
	req.Equal("nickname already in use", reply.Message)
	req.Equal(event.To(b), envelopes[0].Audience)
	req.Equal(domain.Snapshot{Connections: 2, Nicknames: []domain.Nickname{"alice"}, Pending: []domain.Nickname{}},
		f.coordinator.Snapshot())
}

func TestCoordinator_SetNickname_Same_Name_Again(t *testing.T) {
	req := require.New(t)
	f := newCoordinatorFixture()
	a := f.connect()
	f.claim(a, "alice")
	f.published.reset()

	// When A claims alice a second time
	f.claim(a, "alice")

	// Then it is acknowledged without a second join
	req.Len(f.published.all(), 1)
	req.Equal(event.NicknameResponse{Success: true, Nickname: "alice"}, f.published.all()[0].Event)
	req.Empty(f.published.named(event.UserJoinedName))
}

func TestCoordinator_SetNickname_While_Bound_To_Another(t *testing.T) {
	req := require.New(t)
	f := newCoordinatorFixture()
	a := f.connect()
	f.claim(a, "alice")
	f.published.reset()

	// When A tries to rename itself
	f.claim(a, "bob")

	// Then the claim fails and alice stays bound
	reply := f.published.all()[0].Event.(event.NicknameResponse)
	req.False(reply.Success)
	req.Contains(reply.Message, "alice")
	req.Empty(f.published.named(event.UserJoinedName))
	req.Equal([]domain.Nickname{"alice"}, f.coordinator.Snapshot().Nicknames)
}

func TestCoordinator_SetNickname_Empty(t *testing.T) {
	req := require.New(t)
	f := newCoordinatorFixture()
	a := f.connect()

	f.claim(a, "")

	reply := f.published.all()[0].Event.(event.NicknameResponse)
	req.False(reply.Success)
	req.Empty(f.coordinator.Snapshot().Nicknames)
}

func TestCoordinator_PostMessage(t *testing.T) {
	req := require.New(t)
	f := newCoordinatorFixture()
	a, b := f.connect(), f.connect()
	f.claim(a, "alice")
	f.published.reset()

	// When A says hi
	f.say(a, "hi")

	// Then everybody but A gets it, tagged with alice
	envelopes := f.published.all()
	req.Len(envelopes, 1)
	req.Equal(event.MessagePosted{Nickname: "alice", Message: "hi", Timestamp: "12:00"}, envelopes[0].Event)
	req.True(envelopes[0].Audience.Includes(b))
	req.False(envelopes[0].Audience.Includes(a))
}

func TestCoordinator_PostMessage_Unbound_Is_Dropped(t *testing.T) {
	req := require.New(t)
	f := newCoordinatorFixture()
	a := f.connect()
	f.connect()

	f.say(a, "anyone?")

	req.Empty(f.published.all())
}

func TestCoordinator_Quick_Reconnect_Is_Silent(t *testing.T) {
	req := require.New(t)
	f := newCoordinatorFixture()
	a, b := f.connect(), f.connect()
	f.claim(a, "alice")
	f.published.reset()

	// Given A drops
	f.coordinator.Disconnect(a)
	req.Equal([]domain.Nickname{"alice"}, f.coordinator.Snapshot().Pending)

	// When A comes back within a second
	f.clock.Advance(time.Second)
	a2 := f.connect()
	f.reconnect(a2, "alice")

	// Then A is acknowledged, nobody sees a leave or a join
	req.Len(f.published.all(), 1)
	req.Equal(event.To(a2), f.published.all()[0].Audience)
	f.clock.Advance(DefaultGraceWindow)
	req.Never(func() bool { return len(f.published.named(event.UserLeftName)) > 0 },
		100*time.Millisecond, 10*time.Millisecond)
	req.Empty(f.published.named(event.UserJoinedName))

	// And A can talk right away
	f.say(a2, "back")
	posted := f.published.named(event.ChatMessageName)
	req.Len(posted, 1)
	req.True(posted[0].Audience.Includes(b))
}

func TestCoordinator_Slow_Departure_Announced_Once(t *testing.T) {
	req := require.New(t)
	f := newCoordinatorFixture()
	a, b := f.connect(), f.connect()
	f.claim(a, "alice")
	f.published.reset()

	// Given A drops and does not come back
	f.coordinator.Disconnect(a)
	f.clock.Advance(4 * time.Second)

	// Then B sees alice leave exactly once
	req.Eventually(func() bool { return len(f.published.named(event.UserLeftName)) == 1 },
		time.Second, 5*time.Millisecond)
	left := f.published.named(event.UserLeftName)[0]
	req.Equal(event.UserLeft{Nickname: "alice"}, left.Event)
	req.True(left.Audience.Includes(b))
	f.clock.Advance(DefaultGraceWindow)
	req.Never(func() bool { return len(f.published.named(event.UserLeftName)) > 1 },
		100*time.Millisecond, 10*time.Millisecond)

	// And C can now claim alice
	c := f.connect()
	f.claim(c, "alice")
	replies := f.published.named(event.NicknameResponseName)
	req.Len(replies, 1)
	req.True(replies[0].Event.(event.NicknameResponse).Success)
	req.Len(f.published.named(event.UserJoinedName), 1)
}

func TestCoordinator_Name_Held_During_Grace_Is_Reclaimable(t *testing.T) {
	req := require.New(t)
	f := newCoordinatorFixture()
	a := f.connect()
	f.claim(a, "alice")
	f.coordinator.Disconnect(a)
	f.published.reset()

	// When a fresh connection claims alice during the grace window
	c := f.connect()
	f.claim(c, "alice")

	// Then the claim wins, cancels the pending leave, and stays silent
	req.Len(f.published.all(), 1)
	req.True(f.published.all()[0].Event.(event.NicknameResponse).Success)
	f.clock.Advance(DefaultGraceWindow)
	req.Never(func() bool { return len(f.published.all()) > 1 }, 100*time.Millisecond, 10*time.Millisecond)
	req.Empty(f.coordinator.Snapshot().Pending)
}

func TestCoordinator_Reconnect_Fresh_Name_Joins(t *testing.T) {
	req := require.New(t)
	f := newCoordinatorFixture()
	a := f.connect()
	f.connect()

	// When A reconnects with a name nobody holds
	f.reconnect(a, "alice")

	// Then it is a regular join
	req.Len(f.published.named(event.NicknameResponseName), 1)
	req.Len(f.published.named(event.UserJoinedName), 1)
}

func TestCoordinator_Reconnect_Live_Name_Is_Ignored(t *testing.T) {
	req := require.New(t)
	f := newCoordinatorFixture()
	a, b := f.connect(), f.connect()
	f.claim(a, "alice")
	f.published.reset()

	// When B tries to take alice through a reconnect
	f.reconnect(b, "alice")

	// Then nothing is sent to anyone and A keeps alice
	req.Empty(f.published.all())
	name, ok := f.coordinator.registry.Lookup(a)
	req.True(ok)
	req.Equal(domain.Nickname("alice"), name)
}

func TestCoordinator_Reconnect_Twice_On_Same_Connection(t *testing.T) {
	req := require.New(t)
	f := newCoordinatorFixture()
	a := f.connect()
	f.reconnect(a, "alice")
	f.published.reset()

	// When the client fires the same reconnect again
	f.reconnect(a, "alice")

	// Then it is a no-op
	req.Empty(f.published.all())
	req.Equal(1, f.coordinator.registry.Len())
}

func TestCoordinator_Disconnect_Unbound(t *testing.T) {
	req := require.New(t)
	f := newCoordinatorFixture()
	a := f.connect()

	f.coordinator.Disconnect(a)
	f.clock.Advance(DefaultGraceWindow)

	req.Never(func() bool { return len(f.published.all()) > 0 }, 50*time.Millisecond, 5*time.Millisecond)
	req.Zero(f.coordinator.Snapshot().Connections)
}

func TestCoordinator_Events_Ordered_Per_Nickname(t *testing.T) {
	req := require.New(t)
	f := newCoordinatorFixture()
	a := f.connect()
	f.connect()

	// Given alice joins, talks, and leaves for good
	f.claim(a, "alice")
	f.say(a, "one")
	f.say(a, "two")
	f.coordinator.Disconnect(a)
	f.clock.Advance(DefaultGraceWindow)
	req.Eventually(func() bool { return len(f.published.named(event.UserLeftName)) == 1 },
		time.Second, 5*time.Millisecond)

	// Then the broadcasts come out join, messages, leave
	names := lo.Map(f.published.all(), func(env event.Envelope, _ int) event.Name {
		return env.Event.EventName()
	})
	req.Equal([]event.Name{
		event.NicknameResponseName,
		event.UserJoinedName,
		event.ChatMessageName,
		event.ChatMessageName,
		event.UserLeftName,
	}, names)
}

func TestCoordinator_Close_Cancels_Pending_Leaves(t *testing.T) {
	req := require.New(t)
	f := newCoordinatorFixture()
	a := f.connect()
	f.claim(a, "alice")
	f.coordinator.Disconnect(a)
	f.published.reset()

	f.coordinator.Close()
	f.clock.Advance(DefaultGraceWindow)

	req.Never(func() bool { return len(f.published.all()) > 0 }, 50*time.Millisecond, 5*time.Millisecond)
	req.Empty(f.coordinator.Snapshot().Pending)
}
