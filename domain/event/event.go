package event

import (
	"chat-relay/domain"
	"time"
)

// Name is the wire name of an outbound event.
type Name string

const (
	NicknameResponseName Name = "nickname response"
	UserJoinedName       Name = "user joined"
	UserLeftName         Name = "user left"
	ChatMessageName      Name = "chat message"
)

type DomainEvent interface {
	EventName() Name
}

// NicknameResponse answers a claim. It is only ever sent to the claimant.
type NicknameResponse struct {
	Success  bool            `json:"success"`
	Message  string          `json:"message,omitempty"`
	Nickname domain.Nickname `json:"nickname,omitempty"`
}

func (NicknameResponse) EventName() Name { return NicknameResponseName }

type UserJoined struct {
	Nickname domain.Nickname `json:"nickname"`
}

func (UserJoined) EventName() Name { return UserJoinedName }

type UserLeft struct {
	Nickname domain.Nickname `json:"nickname"`
}

func (UserLeft) EventName() Name { return UserLeftName }

// MessagePosted carries a chat line tagged with the sender's bound nickname.
type MessagePosted struct {
	Nickname  domain.Nickname `json:"nickname"`
	Message   string          `json:"message"`
	Timestamp string          `json:"timestamp"`
}

func (MessagePosted) EventName() Name { return ChatMessageName }

func NewMessagePosted(m domain.Message) MessagePosted {
	return MessagePosted{Nickname: m.Nickname, Message: m.Content, Timestamp: m.Timestamp}
}

type AudienceKind int

const (
	// Direct targets a single connection.
	Direct AudienceKind = iota
	// Others targets every connection except one.
	Others
	// Everyone targets every connection.
	Everyone
)

// Audience selects the connections an envelope is delivered to.
// It is resolved at delivery time against the connections still open.
type Audience struct {
	Kind       AudienceKind
	Connection domain.ConnectionID
}

func To(id domain.ConnectionID) Audience     { return Audience{Kind: Direct, Connection: id} }
func Except(id domain.ConnectionID) Audience { return Audience{Kind: Others, Connection: id} }
func All() Audience                          { return Audience{Kind: Everyone} }

func (a Audience) Includes(id domain.ConnectionID) bool {
	switch a.Kind {
	case Direct:
		return id == a.Connection
	case Others:
		return id != a.Connection
	default:
		return true
	}
}

// Envelope is one outbound event plus its audience, in production order.
type Envelope struct {
	Event    DomainEvent
	Audience Audience
	At       time.Time
}

func NewEnvelope(e DomainEvent, audience Audience) Envelope {
	return Envelope{Event: e, Audience: audience, At: time.Now().UTC()}
}
