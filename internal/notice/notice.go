// Package notice holds the transient success and error messages shown to
// the user. Each notice dismisses itself after a TTL.
package notice

import (
	"sort"
	"sync"
	"time"

	"github.com/google/uuid"
)

// #region types
// Kind is the notice flavour.
type Kind string

const (
	Success Kind = "success"
	Error   Kind = "error"
)

// Notice is one message on the board.
type Notice struct {
	ID        string    `json:"id"`
	Kind      Kind      `json:"type"`
	Message   string    `json:"message"`
	CreatedAt time.Time `json:"created_at"`
}

type entry struct {
	n     Notice
	timer *time.Timer
}
// #endregion types

// #region board
// Board keeps the live notices. The zero value is not usable; use NewBoard.
type Board struct {
	mu      sync.Mutex
	ttl     time.Duration
	seq     uint64
	order   map[string]uint64
	entries map[string]*entry
	closed  bool
}

// NewBoard creates a board whose notices expire after ttl; ttl <= 0 keeps
// them until dismissed.
func NewBoard(ttl time.Duration) *Board {
	return &Board{
		ttl:     ttl,
		order:   map[string]uint64{},
		entries: map[string]*entry{},
	}
}

// Post adds a notice and returns it.
func (b *Board) Post(kind Kind, message string) Notice {
	n := Notice{ID: uuid.New().String(), Kind: kind, Message: message, CreatedAt: time.Now().UTC()}

	b.mu.Lock()
	defer b.mu.Unlock()
	if b.closed {
		return n
	}
	e := &entry{n: n}
	if b.ttl > 0 {
		id := n.ID
		e.timer = time.AfterFunc(b.ttl, func() { b.Dismiss(id) })
	}
	b.seq++
	b.order[n.ID] = b.seq
	b.entries[n.ID] = e
	return n
}

func (b *Board) Success(message string) Notice { return b.Post(Success, message) }
func (b *Board) Error(message string) Notice   { return b.Post(Error, message) }

// Dismiss removes a notice and stops its timer. It reports whether the
// notice was still live.
func (b *Board) Dismiss(id string) bool {
	b.mu.Lock()
	defer b.mu.Unlock()
	e, ok := b.entries[id]
	if !ok {
		return false
	}
	if e.timer != nil {
		e.timer.Stop()
	}
	delete(b.entries, id)
	delete(b.order, id)
	return true
}

// List returns the live notices, oldest first.
func (b *Board) List() []Notice {
	b.mu.Lock()
	defer b.mu.Unlock()
	out := make([]Notice, 0, len(b.entries))
	for _, e := range b.entries {
		out = append(out, e.n)
	}
	sort.Slice(out, func(i, j int) bool { return b.order[out[i].ID] < b.order[out[j].ID] })
	return out
}

// Close stops every timer and drops all notices. Later posts are ignored.
func (b *Board) Close() {
	b.mu.Lock()
	defer b.mu.Unlock()
	for id, e := range b.entries {
		if e.timer != nil {
			e.timer.Stop()
		}
		delete(b.entries, id)
		delete(b.order, id)
	}
	b.closed = true
}
// #endregion board
