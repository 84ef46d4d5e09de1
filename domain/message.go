// Package domain contains core concepts of the chat relay.
// This file defines chat messages relayed between identities.
package domain

// Message is a chat line relayed verbatim.
// Timestamp is the client-generated display string, the relay never parses it.
type Message struct {
	Nickname  Nickname
	Content   string
	Timestamp string
}
