package auth

import (
	"context"
	"sync"
	"time"
)

// Repository defines the interface for user storage
type Repository interface {
	Create(ctx context.Context, user *User) (*User, error)
	GetByEmail(ctx context.Context, email string) (*User, error)
	GetByID(ctx context.Context, id int64) (*User, error)
	UpdateCredentials(ctx context.Context, id int64, passwordHash string, role Role) error
}

// InMemoryRepository keeps users in a map. Used for local runs and tests.
type InMemoryRepository struct {
	mu     sync.RWMutex
	nextID int64
	users  map[int64]*User
}

// NewInMemoryRepository creates a new in-memory repository
func NewInMemoryRepository() *InMemoryRepository {
	return &InMemoryRepository{
		nextID: 1,
		users:  make(map[int64]*User),
	}
}

// Create stores the user and assigns an id.
func (r *InMemoryRepository) Create(ctx context.Context, user *User) (*User, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	for _, existing := range r.users {
		if existing.Email == user.Email {
			return nil, ErrEmailAlreadyRegistered
		}
	}

	stored := *user
	stored.ID = r.nextID
	r.nextID++
	if stored.CreatedAt.IsZero() {
		stored.CreatedAt = time.Now().UTC()
	}
	r.users[stored.ID] = &stored

	out := stored
	return &out, nil
}

// GetByEmail finds a user by normalized email.
func (r *InMemoryRepository) GetByEmail(ctx context.Context, email string) (*User, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	email = normalizeEmail(email)
	for _, u := range r.users {
		if u.Email == email {
			out := *u
			return &out, nil
		}
	}
	return nil, ErrUserNotFound
}

// GetByID finds a user by id.
func (r *InMemoryRepository) GetByID(ctx context.Context, id int64) (*User, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	u, ok := r.users[id]
	if !ok {
		return nil, ErrUserNotFound
	}
	out := *u
	return &out, nil
}

// UpdateCredentials replaces the password hash and role.
func (r *InMemoryRepository) UpdateCredentials(ctx context.Context, id int64, passwordHash string, role Role) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	u, ok := r.users[id]
	if !ok {
		return ErrUserNotFound
	}
	u.PasswordHash = passwordHash
	u.Role = role
	return nil
}
