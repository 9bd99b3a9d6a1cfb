package doctors

import (
	"context"
	"sort"
	"sync"
)

// Repository defines the interface for doctor storage
type Repository interface {
	List(ctx context.Context, departmentID int64) ([]*Doctor, error)
	GetByID(ctx context.Context, id int64) (*Doctor, error)
	Create(ctx context.Context, req CreateRequest) (*Doctor, error)
	CountByDepartment(ctx context.Context, departmentID int64) (int, error)
}

// InMemoryRepository is an in-memory implementation of Repository.
type InMemoryRepository struct {
	mu     sync.RWMutex
	nextID int64
	items  map[int64]*Doctor
}

// NewInMemoryRepository creates a new in-memory repository
func NewInMemoryRepository() *InMemoryRepository {
	return &InMemoryRepository{nextID: 1, items: make(map[int64]*Doctor)}
}

// List returns doctors ordered by id. departmentID 0 means all.
func (r *InMemoryRepository) List(ctx context.Context, departmentID int64) ([]*Doctor, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	out := make([]*Doctor, 0, len(r.items))
	for _, d := range r.items {
		if departmentID != 0 && d.DepartmentID != departmentID {
			continue
		}
		cp := *d
		out = append(out, &cp)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out, nil
}

func (r *InMemoryRepository) GetByID(ctx context.Context, id int64) (*Doctor, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	d, ok := r.items[id]
	if !ok {
		return nil, ErrDoctorNotFound
	}
	cp := *d
	return &cp, nil
}

func (r *InMemoryRepository) Create(ctx context.Context, req CreateRequest) (*Doctor, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	d := &Doctor{
		ID:             r.nextID,
		Name:           req.Name,
		DepartmentID:   req.DepartmentID,
		Specialization: req.Specialization,
	}
	r.nextID++
	r.items[d.ID] = d
	cp := *d
	return &cp, nil
}

func (r *InMemoryRepository) CountByDepartment(ctx context.Context, departmentID int64) (int, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	n := 0
	for _, d := range r.items {
		if d.DepartmentID == departmentID {
			n++
		}
	}
	return n, nil
}
