package runtime

import (
	"chat-relay/domain"
	"chat-relay/errors"
	"sync"

	"github.com/samber/lo"
)

// Registry owns the bindings between live connections and nicknames.
// It is the only place a binding may be created or destroyed.
type Registry struct {
	mu       sync.RWMutex
	bindings map[domain.ConnectionID]domain.Nickname // connection -> nickname
	holders  map[domain.Nickname]domain.ConnectionID // nickname -> connection
}

func NewRegistry() *Registry {
	return &Registry{
		bindings: make(map[domain.ConnectionID]domain.Nickname),
		holders:  make(map[domain.Nickname]domain.ConnectionID),
	}
}

// TryClaim binds name to the connection if no other connection holds it.
// Claiming the name the connection already holds succeeds without mutation and
// reports alreadyBound. A connection bound to a different name is rejected with
// ErrAlreadyBound, the prior binding is kept.
func (r *Registry) TryClaim(id domain.ConnectionID, name domain.Nickname) (alreadyBound bool, err error) {
	if name.IsEmpty() {
		return false, errors.ErrEmptyNickname
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	if current, ok := r.bindings[id]; ok {
		if current == name {
			return true, nil
		}
		return false, errors.ErrAlreadyBound
	}
	if _, taken := r.holders[name]; taken {
		return false, errors.ErrNicknameTaken
	}

	r.bindings[id] = name
	r.holders[name] = id
	return false, nil
}

// Release removes the binding of the connection, if any, and returns the nickname it held.
func (r *Registry) Release(id domain.ConnectionID) (domain.Nickname, bool) {
	r.mu.Lock()
	defer r.mu.Unlock()

	name, ok := r.bindings[id]
	if !ok {
		return "", false
	}
	delete(r.bindings, id)
	if r.holders[name] == id {
		delete(r.holders, name)
	}
	return name, true
}

func (r *Registry) IsHeld(name domain.Nickname) bool {
	r.mu.RLock()
	defer r.mu.RUnlock()
	_, ok := r.holders[name]
	return ok
}

func (r *Registry) Lookup(id domain.ConnectionID) (domain.Nickname, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	name, ok := r.bindings[id]
	return name, ok
}

// Nicknames returns the bound nicknames, sorted.
func (r *Registry) Nicknames() []domain.Nickname {
	r.mu.RLock()
	names := lo.Keys(r.holders)
	r.mu.RUnlock()

	domain.SortNicknames(names)
	return names
}

func (r *Registry) Len() int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.bindings)
}
