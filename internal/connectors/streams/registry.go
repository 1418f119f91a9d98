// Package streams tracks live stream connections under typed keys so
// the bot never double-subscribes and can tear everything down on exit.
package streams

import (
	"io"
	"sync"

	"github.com/ziptalk/proton-arb/internal/types"
)

// Kind distinguishes the streams a venue can expose for one symbol.
type Kind string

const (
	KindBookTicker Kind = "bookTicker"
	KindUserData   Kind = "userData"
)

// StreamKey identifies one connection.
type StreamKey struct {
	Venue  types.Venue
	Symbol string
	Kind   Kind
}

// Registry owns stream connections. Register refuses duplicates;
// CloseAll is called once on shutdown.
type Registry struct {
	mu    sync.Mutex
	conns map[StreamKey]io.Closer
}

func NewRegistry() *Registry {
	return &Registry{conns: make(map[StreamKey]io.Closer)}
}

// Register records a connection under its key. Returns false if the
// key is already taken; the caller must not open a second stream.
func (r *Registry) Register(key StreamKey, conn io.Closer) bool {
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, exists := r.conns[key]; exists {
		return false
	}
	r.conns[key] = conn
	return true
}

// Deregister closes and forgets the connection under key.
func (r *Registry) Deregister(key StreamKey) error {
	r.mu.Lock()
	conn, ok := r.conns[key]
	delete(r.conns, key)
	r.mu.Unlock()
	if !ok {
		return nil
	}
	return conn.Close()
}

// Has reports whether a connection is registered under key.
func (r *Registry) Has(key StreamKey) bool {
	r.mu.Lock()
	defer r.mu.Unlock()
	_, ok := r.conns[key]
	return ok
}

// CloseAll closes every registered connection and empties the registry.
// The first error is returned; the rest still get closed.
func (r *Registry) CloseAll() error {
	r.mu.Lock()
	defer r.mu.Unlock()
	var first error
	for key, conn := range r.conns {
		if err := conn.Close(); err != nil && first == nil {
			first = err
		}
		delete(r.conns, key)
	}
	return first
}
