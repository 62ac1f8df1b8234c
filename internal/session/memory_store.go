package session

import (
	"context"
	"time"

	"github.com/geocoder89/accounthub/internal/cache"
)

// MemoryStore keeps sessions in process. Sessions are lost on restart and
// not shared between replicas, so it is meant for dev and tests.
type MemoryStore struct {
	c *cache.Cache
}

func NewMemoryStore(ttl time.Duration) *MemoryStore {
	return &MemoryStore{c: cache.New(ttl)}
}

func (s *MemoryStore) Create(_ context.Context, userID string, ttl time.Duration) (Session, error) {
	sess := newSession(userID, ttl)
	s.c.SetWithTTL(sess.ID, sess, ttl)
	return sess, nil
}

func (s *MemoryStore) Get(_ context.Context, id string) (Session, error) {
	v, ok := s.c.Get(id)
	if !ok {
		return Session{}, ErrNotFound
	}

	sess, ok := v.(Session)
	if !ok || sess.Expired(time.Now().UTC()) {
		return Session{}, ErrNotFound
	}

	return sess, nil
}

func (s *MemoryStore) Delete(_ context.Context, id string) error {
	s.c.Delete(id)
	return nil
}

func (s *MemoryStore) Ping(context.Context) error {
	return nil
}

// Sweep drops expired sessions and reports how many went.
func (s *MemoryStore) Sweep() int {
	return s.c.Sweep()
}
