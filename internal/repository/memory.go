package repository

import (
	"cmp"
	"context"
	"errors"
	"slices"
	"sync"
	"time"

	"github.com/apiproject/userapi/internal/model"
)

var errMemoryClosed = errors.New("memory store closed")

// MemoryStore keeps users in process memory. The email index is checked
// under the same lock as the insert, so uniqueness holds under concurrency.
type MemoryStore struct {
	mu      sync.RWMutex
	users   []model.User // ascending id order
	byEmail map[string]int64
	nextID  int64
	closed  bool
	now     func() time.Time
}

// NewMemory creates an empty in-memory store.
func NewMemory() *MemoryStore {
	return &MemoryStore{
		byEmail: make(map[string]int64),
		nextID:  1,
		now:     time.Now,
	}
}

// EnsureSchema is a no-op for the memory store.
func (s *MemoryStore) EnsureSchema(ctx context.Context) error {
	return nil
}

// Create assigns the next id; ids are never handed out twice.
func (s *MemoryStore) Create(ctx context.Context, name, email string) (*model.User, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	if s.closed {
		return nil, unavailable("create user", errMemoryClosed)
	}
	if _, exists := s.byEmail[email]; exists {
		return nil, ErrEmailExists
	}

	user := model.User{
		ID:        s.nextID,
		Name:      name,
		Email:     email,
		CreatedAt: storeTime(s.now()),
	}
	s.nextID++
	s.users = append(s.users, user)
	s.byEmail[email] = user.ID

	return &user, nil
}

// List returns copies of every user in id order.
func (s *MemoryStore) List(ctx context.Context) ([]*model.User, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	if s.closed {
		return nil, unavailable("list users", errMemoryClosed)
	}

	users := make([]*model.User, 0, len(s.users))
	for i := range s.users {
		user := s.users[i]
		users = append(users, &user)
	}
	return users, nil
}

// GetByID returns a copy of the user with the given id.
func (s *MemoryStore) GetByID(ctx context.Context, id int64) (*model.User, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	if s.closed {
		return nil, unavailable("get user by ID", errMemoryClosed)
	}

	i, ok := s.indexOf(id)
	if !ok {
		return nil, ErrUserNotFound
	}
	user := s.users[i]
	return &user, nil
}

// Delete removes the user with the given id.
func (s *MemoryStore) Delete(ctx context.Context, id int64) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	if s.closed {
		return unavailable("delete user", errMemoryClosed)
	}

	i, ok := s.indexOf(id)
	if !ok {
		return ErrUserNotFound
	}
	delete(s.byEmail, s.users[i].Email)
	s.users = append(s.users[:i], s.users[i+1:]...)
	return nil
}

// Ping reports whether the store is still open.
func (s *MemoryStore) Ping(ctx context.Context) error {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if s.closed {
		return errMemoryClosed
	}
	return nil
}

// Close marks the store as closed; later calls fail as unavailable.
func (s *MemoryStore) Close() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.closed = true
	return nil
}

// indexOf binary-searches the id-ordered slice. Caller holds the lock.
func (s *MemoryStore) indexOf(id int64) (int, bool) {
	return slices.BinarySearchFunc(s.users, id, func(u model.User, target int64) int {
		return cmp.Compare(u.ID, target)
	})
}
