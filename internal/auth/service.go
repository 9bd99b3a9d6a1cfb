package auth

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"golang.org/x/crypto/bcrypt"

	"github.com/wolfman30/clinic-reservation/pkg/logging"
)

// Service registers users and exchanges credentials for tokens.
type Service struct {
	repo       Repository
	tokens     *TokenIssuer
	logger     *logging.Logger
	bcryptCost int

	dummyOnce sync.Once
	dummyHash []byte
}

// NewService constructs an auth service.
func NewService(repo Repository, tokens *TokenIssuer, logger *logging.Logger) *Service {
	if repo == nil {
		panic("auth: repository required")
	}
	if tokens == nil {
		panic("auth: token issuer required")
	}
	if logger == nil {
		logger = logging.Default()
	}
	return &Service{
		repo:       repo,
		tokens:     tokens,
		logger:     logger,
		bcryptCost: bcrypt.DefaultCost,
	}
}

// WithBcryptCost overrides the hashing cost (tests use bcrypt.MinCost). It
// must be called before the service handles requests.
func (s *Service) WithBcryptCost(cost int) *Service {
	if cost >= bcrypt.MinCost && cost <= bcrypt.MaxCost {
		s.bcryptCost = cost
	}
	return s
}

// Tokens exposes the issuer for the auth middleware.
func (s *Service) Tokens() *TokenIssuer {
	return s.tokens
}

// Register creates a USER account.
func (s *Service) Register(ctx context.Context, req RegisterRequest) (*User, error) {
	req.Normalize()
	if err := req.Validate(); err != nil {
		return nil, err
	}

	if _, err := s.repo.GetByEmail(ctx, req.Email); err == nil {
		return nil, ErrEmailAlreadyRegistered
	} else if !errors.Is(err, ErrUserNotFound) {
		return nil, err
	}

	hash, err := bcrypt.GenerateFromPassword([]byte(req.Password), s.bcryptCost)
	if err != nil {
		return nil, fmt.Errorf("auth: hash password: %w", err)
	}

	user, err := s.repo.Create(ctx, &User{
		Email:        req.Email,
		PasswordHash: string(hash),
		Role:         RoleUser,
	})
	if err != nil {
		return nil, err
	}
	s.logger.Info("user registered", "user_id", user.ID)
	return user, nil
}

// LoginResult carries the signed token and its expiry.
type LoginResult struct {
	Token     string
	ExpiresAt time.Time
	User      *User
}

// Login verifies credentials and issues a token.
func (s *Service) Login(ctx context.Context, req LoginRequest) (*LoginResult, error) {
	email := normalizeEmail(req.Username)
	if email == "" || req.Password == "" {
		return nil, ErrInvalidCredentials
	}

	user, err := s.repo.GetByEmail(ctx, email)
	if err != nil {
		if errors.Is(err, ErrUserNotFound) {
			// Burn a comparison so unknown emails cost the same as bad passwords.
			_ = bcrypt.CompareHashAndPassword(s.placeholderHash(), []byte(req.Password))
			return nil, ErrInvalidCredentials
		}
		return nil, err
	}

	if err := bcrypt.CompareHashAndPassword([]byte(user.PasswordHash), []byte(req.Password)); err != nil {
		return nil, ErrInvalidCredentials
	}

	token, expires, err := s.tokens.Issue(user)
	if err != nil {
		return nil, fmt.Errorf("auth: issue token: %w", err)
	}
	s.logger.Info("user logged in", "user_id", user.ID, "role", user.Role)
	return &LoginResult{Token: token, ExpiresAt: expires, User: user}, nil
}

// EnsureAdmin creates the bootstrap admin or promotes and re-keys an existing
// account with the same email.
func (s *Service) EnsureAdmin(ctx context.Context, email, password string) (*User, error) {
	req := RegisterRequest{Email: email, Password: password}
	req.Normalize()
	if err := req.Validate(); err != nil {
		return nil, fmt.Errorf("auth: bootstrap admin: %w", err)
	}

	hash, err := bcrypt.GenerateFromPassword([]byte(req.Password), s.bcryptCost)
	if err != nil {
		return nil, fmt.Errorf("auth: hash password: %w", err)
	}

	existing, err := s.repo.GetByEmail(ctx, req.Email)
	switch {
	case err == nil:
		if err := s.repo.UpdateCredentials(ctx, existing.ID, string(hash), RoleAdmin); err != nil {
			return nil, err
		}
		existing.PasswordHash = string(hash)
		existing.Role = RoleAdmin
		s.logger.Info("bootstrap admin updated", "user_id", existing.ID)
		return existing, nil
	case errors.Is(err, ErrUserNotFound):
		user, err := s.repo.Create(ctx, &User{Email: req.Email, PasswordHash: string(hash), Role: RoleAdmin})
		if err != nil {
			return nil, err
		}
		s.logger.Info("bootstrap admin created", "user_id", user.ID)
		return user, nil
	default:
		return nil, err
	}
}

// Lookup returns the stored user behind a principal.
func (s *Service) Lookup(ctx context.Context, p Principal) (*User, error) {
	return s.repo.GetByID(ctx, p.UserID)
}

// placeholderHash is computed once, on the first unknown-email login.
func (s *Service) placeholderHash() []byte {
	s.dummyOnce.Do(func() {
		s.dummyHash, _ = bcrypt.GenerateFromPassword([]byte("placeholder-password"), s.bcryptCost)
	})
	return s.dummyHash
}
