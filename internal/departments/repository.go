package departments

import (
	"context"
	"sort"
	"sync"
)

// Repository defines the interface for department storage
type Repository interface {
	List(ctx context.Context) ([]*Department, error)
	GetByID(ctx context.Context, id int64) (*Department, error)
	Create(ctx context.Context, name string) (*Department, error)
	Update(ctx context.Context, id int64, name string) (*Department, error)
	Delete(ctx context.Context, id int64) error
}

// InMemoryRepository is an in-memory implementation of Repository.
type InMemoryRepository struct {
	mu     sync.RWMutex
	nextID int64
	items  map[int64]*Department
}

// NewInMemoryRepository creates a new in-memory repository
func NewInMemoryRepository() *InMemoryRepository {
	return &InMemoryRepository{nextID: 1, items: make(map[int64]*Department)}
}

func (r *InMemoryRepository) List(ctx context.Context) ([]*Department, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	out := make([]*Department, 0, len(r.items))
	for _, d := range r.items {
		cp := *d
		out = append(out, &cp)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out, nil
}

func (r *InMemoryRepository) GetByID(ctx context.Context, id int64) (*Department, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	d, ok := r.items[id]
	if !ok {
		return nil, ErrDepartmentNotFound
	}
	cp := *d
	return &cp, nil
}

func (r *InMemoryRepository) Create(ctx context.Context, name string) (*Department, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	d := &Department{ID: r.nextID, Name: name}
	r.nextID++
	r.items[d.ID] = d
	cp := *d
	return &cp, nil
}

func (r *InMemoryRepository) Update(ctx context.Context, id int64, name string) (*Department, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	d, ok := r.items[id]
	if !ok {
		return nil, ErrDepartmentNotFound
	}
	d.Name = name
	cp := *d
	return &cp, nil
}

// Delete removes the department. The in-use check lives in Service because
// the in-memory store has no foreign keys.
func (r *InMemoryRepository) Delete(ctx context.Context, id int64) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if _, ok := r.items[id]; !ok {
		return ErrDepartmentNotFound
	}
	delete(r.items, id)
	return nil
}
