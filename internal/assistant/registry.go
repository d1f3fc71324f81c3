package assistant

import (
	"log/slog"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/vidyavistaar/portal/internal/llm"
	"github.com/vidyavistaar/portal/internal/model"
)

const (
	// MaxPerUser caps live conversations per user; creating one more closes
	// the user's least recently used conversation.
	MaxPerUser = 3
	// IdleTimeout is how long an untouched conversation survives Prune.
	IdleTimeout = 30 * time.Minute
)

type entry struct {
	conv     *Conversation
	lastUsed time.Time
}

// Registry holds the live conversations of all users. Conversations are
// never persisted.
type Registry struct {
	gen     llm.Generator
	catalog Catalog
	now     func() time.Time

	mu    sync.Mutex
	convs map[string]*entry
}

// NewRegistry creates an empty Registry whose conversations use gen and catalog.
func NewRegistry(gen llm.Generator, catalog Catalog) *Registry {
	return &Registry{gen: gen, catalog: catalog, now: time.Now, convs: make(map[string]*entry)}
}

// SetClock overrides the clock used for idle tracking.
func (r *Registry) SetClock(now func() time.Time) {
	r.now = now
}

// Create starts a conversation for u.
func (r *Registry) Create(u *model.User) *Conversation {
	c := NewConversation(uuid.NewString(), u.ID, u.Role, r.gen, r.catalog)
	r.mu.Lock()
	evicted := r.evictLocked(u.ID)
	r.convs[c.ID()] = &entry{conv: c, lastUsed: r.now()}
	r.mu.Unlock()

	for _, old := range evicted {
		old.Close()
		slog.Info("closed least recently used conversation", "conversation", old.ID(), "user", u.ID)
	}
	return c
}

// evictLocked removes the owner's least recently used conversations until
// there is room for one more.
func (r *Registry) evictLocked(ownerID string) []*Conversation {
	var out []*Conversation
	for {
		var oldest *entry
		n := 0
		for _, e := range r.convs {
			if e.conv.OwnerID() != ownerID {
				continue
			}
			n++
			if oldest == nil || e.lastUsed.Before(oldest.lastUsed) {
				oldest = e
			}
		}
		if n < MaxPerUser {
			return out
		}
		delete(r.convs, oldest.conv.ID())
		out = append(out, oldest.conv)
	}
}

// Get returns the user's conversation. Conversations owned by someone else
// are reported as not found.
func (r *Registry) Get(userID, id string) (*Conversation, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	e, ok := r.convs[id]
	if !ok || e.conv.OwnerID() != userID {
		return nil, model.NewNotFoundError("conversation", id)
	}
	e.lastUsed = r.now()
	return e.conv, nil
}

// Delete ends the conversation and cancels its in-flight call, if any.
func (r *Registry) Delete(userID, id string) error {
	r.mu.Lock()
	e, ok := r.convs[id]
	if !ok || e.conv.OwnerID() != userID {
		r.mu.Unlock()
		return model.NewNotFoundError("conversation", id)
	}
	delete(r.convs, id)
	r.mu.Unlock()
	e.conv.Close()
	return nil
}

// Prune closes conversations untouched for IdleTimeout and reports how many
// were removed.
func (r *Registry) Prune() int {
	now := r.now()
	var idle []*Conversation
	r.mu.Lock()
	for id, e := range r.convs {
		if now.Sub(e.lastUsed) >= IdleTimeout {
			delete(r.convs, id)
			idle = append(idle, e.conv)
		}
	}
	r.mu.Unlock()

	for _, c := range idle {
		c.Close()
	}
	return len(idle)
}

// Len returns the number of live conversations.
func (r *Registry) Len() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.convs)
}
