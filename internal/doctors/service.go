package doctors

import (
	"context"
	"errors"

	"github.com/wolfman30/clinic-reservation/internal/departments"
	"github.com/wolfman30/clinic-reservation/pkg/logging"
)

// DepartmentLookup resolves a department id.
type DepartmentLookup interface {
	GetByID(ctx context.Context, id int64) (*departments.Department, error)
}

// Service reads and registers doctors.
type Service struct {
	repo        Repository
	departments DepartmentLookup
	logger      *logging.Logger
}

func NewService(repo Repository, depts DepartmentLookup, logger *logging.Logger) *Service {
	if repo == nil {
		panic("doctors: repository required")
	}
	if logger == nil {
		logger = logging.Default()
	}
	return &Service{repo: repo, departments: depts, logger: logger}
}

func (s *Service) List(ctx context.Context, departmentID int64) ([]*Doctor, error) {
	return s.repo.List(ctx, departmentID)
}

func (s *Service) Get(ctx context.Context, id int64) (*Doctor, error) {
	return s.repo.GetByID(ctx, id)
}

func (s *Service) Create(ctx context.Context, req CreateRequest) (*Doctor, error) {
	if err := req.normalize(); err != nil {
		return nil, err
	}
	if s.departments != nil {
		if _, err := s.departments.GetByID(ctx, req.DepartmentID); err != nil {
			if errors.Is(err, departments.ErrDepartmentNotFound) {
				return nil, ErrUnknownDepartment
			}
			return nil, err
		}
	}
	d, err := s.repo.Create(ctx, req)
	if err != nil {
		return nil, err
	}
	s.logger.Info("doctor created", "doctor_id", d.ID, "department_id", d.DepartmentID)
	return d, nil
}
