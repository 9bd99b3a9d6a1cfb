package departments

import (
	"context"

	"github.com/wolfman30/clinic-reservation/pkg/logging"
)

// DoctorCounter reports how many doctors belong to a department.
type DoctorCounter interface {
	CountByDepartment(ctx context.Context, departmentID int64) (int, error)
}

// Service validates department writes.
type Service struct {
	repo    Repository
	doctors DoctorCounter
	logger  *logging.Logger
}

// NewService constructs a department service. doctors may be nil when the
// store enforces the relation itself.
func NewService(repo Repository, doctors DoctorCounter, logger *logging.Logger) *Service {
	if repo == nil {
		panic("departments: repository required")
	}
	if logger == nil {
		logger = logging.Default()
	}
	return &Service{repo: repo, doctors: doctors, logger: logger}
}

func (s *Service) List(ctx context.Context) ([]*Department, error) {
	return s.repo.List(ctx)
}

func (s *Service) Get(ctx context.Context, id int64) (*Department, error) {
	return s.repo.GetByID(ctx, id)
}

func (s *Service) Create(ctx context.Context, req CreateRequest) (*Department, error) {
	name, err := normalizeName(req.Name)
	if err != nil {
		return nil, err
	}
	d, err := s.repo.Create(ctx, name)
	if err != nil {
		return nil, err
	}
	s.logger.Info("department created", "department_id", d.ID)
	return d, nil
}

func (s *Service) Update(ctx context.Context, id int64, req UpdateRequest) (*Department, error) {
	current, err := s.repo.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}
	if req.Name == nil {
		return current, nil
	}
	name, err := normalizeName(*req.Name)
	if err != nil {
		return nil, err
	}
	return s.repo.Update(ctx, id, name)
}

func (s *Service) Delete(ctx context.Context, id int64) error {
	if _, err := s.repo.GetByID(ctx, id); err != nil {
		return err
	}
	if s.doctors != nil {
		n, err := s.doctors.CountByDepartment(ctx, id)
		if err != nil {
			return err
		}
		if n > 0 {
			return ErrDepartmentInUse
		}
	}
	if err := s.repo.Delete(ctx, id); err != nil {
		return err
	}
	s.logger.Info("department deleted", "department_id", id)
	return nil
}
