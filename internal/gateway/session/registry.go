package session

import (
	"log"
	"time"

	"github.com/google/uuid"
	"github.com/hashicorp/golang-lru/v2/expirable"

	"nexus/internal/idea"
)

// Session is one hosted idea cycle.
type Session struct {
	ID        string
	CreatedAt time.Time
	Machine   *idea.Machine
}

// Factory builds the machine for a new session id.
type Factory func(id string) *idea.Machine

// Registry keeps the most recently created sessions in memory. Sessions
// expire after the configured TTL or when the limit is exceeded; an evicted
// session is simply gone.
type Registry struct {
	cache   *expirable.LRU[string, *Session]
	factory Factory
	now     func() time.Time
}

func NewRegistry(limit int, ttl time.Duration, factory Factory, logger *log.Logger) *Registry {
	if logger == nil {
		logger = log.Default()
	}
	onEvict := func(id string, _ *Session) {
		logger.Printf("session %s evicted", id)
	}
	return &Registry{
		cache:   expirable.NewLRU[string, *Session](limit, onEvict, ttl),
		factory: factory,
		now:     time.Now,
	}
}

func (r *Registry) Create() *Session {
	id := uuid.NewString()
	s := &Session{ID: id, CreatedAt: r.now(), Machine: r.factory(id)}
	r.cache.Add(id, s)
	return s
}

func (r *Registry) Get(id string) (*Session, bool) {
	return r.cache.Get(id)
}

func (r *Registry) Remove(id string) bool {
	return r.cache.Remove(id)
}

func (r *Registry) Len() int {
	return r.cache.Len()
}
