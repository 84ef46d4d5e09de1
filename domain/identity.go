// Package domain contains core concepts of the chat relay.
// This file defines connections, nicknames and the bindings between them.
// No runtime, network, or UI logic should be added here.
package domain

import (
	"slices"
	"strings"

	"github.com/google/uuid"
)

// ConnectionID identifies one transport channel. It is never reused while the channel is open.
type ConnectionID string

func NewConnectionID() ConnectionID {
	return ConnectionID(uuid.NewString())
}

func (c ConnectionID) String() string { return string(c) }

// Nickname is the display identity a connection claims.
// At any instant at most one live connection holds a given nickname.
type Nickname string

func (n Nickname) String() string { return string(n) }

// IsEmpty reports whether the nickname carries no text at all.
// Whitespace-only names are accepted, the relay does no structural validation.
func (n Nickname) IsEmpty() bool { return n == "" }

// Snapshot is a point-in-time view of the relay sessions.
type Snapshot struct {
	Connections int        `json:"connections"`
	Nicknames   []Nickname `json:"nicknames"`
	Pending     []Nickname `json:"pending"`
}

// SortNicknames orders nicknames case-insensitively, ties broken by exact text.
func SortNicknames(nicknames []Nickname) {
	slices.SortFunc(nicknames, func(a, b Nickname) int {
		if c := strings.Compare(strings.ToLower(string(a)), strings.ToLower(string(b))); c != 0 {
			return c
		}
		return strings.Compare(string(a), string(b))
	})
}
