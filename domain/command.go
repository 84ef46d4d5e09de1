package domain

// Command is an inbound request issued by one connection.
// Commands from the same connection arrive serialized by the transport.
type Command interface {
	Connection() ConnectionID
}

// SetNicknameCommand is a first-time claim of a nickname.
type SetNicknameCommand struct {
	ConnectionID ConnectionID
	Nickname     Nickname
}

func (c SetNicknameCommand) Connection() ConnectionID { return c.ConnectionID }

// ReconnectNicknameCommand is a resilient re-claim sent on every (re)connection.
type ReconnectNicknameCommand struct {
	ConnectionID ConnectionID
	Nickname     Nickname
}

func (c ReconnectNicknameCommand) Connection() ConnectionID { return c.ConnectionID }

// PostMessageCommand asks the relay to broadcast a chat line.
type PostMessageCommand struct {
	ConnectionID ConnectionID
	Content      string
	Timestamp    string
}

func (c PostMessageCommand) Connection() ConnectionID { return c.ConnectionID }
