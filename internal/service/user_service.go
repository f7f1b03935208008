package service

import (
	"context"
	"errors"
	"strings"

	"go.uber.org/zap"

	"github.com/stanachoad2-cyber/MaintenanceApp/internal/auth"
	"github.com/stanachoad2-cyber/MaintenanceApp/internal/domain"
	"github.com/stanachoad2-cyber/MaintenanceApp/internal/repository"
	apperrors "github.com/stanachoad2-cyber/MaintenanceApp/pkg/util"
)

// UserService administers accounts.
type UserService struct {
	users      repository.UserRepository
	logger     *zap.Logger
	bcryptCost int
	// owner is the bootstrap account, which cannot be deleted.
	owner string
}

// UserDependencies bundles collaborators for user service.
type UserDependencies struct {
	UserRepo   repository.UserRepository
	Logger     *zap.Logger
	BcryptCost int
	Owner      string
}

// UserCreateInput describes a new account.
type UserCreateInput struct {
	Username string
	Password string
	Fullname string
	Role     domain.Role
}

// NewUserService constructs the service.
func NewUserService(deps UserDependencies) *UserService {
	logger := deps.Logger
	if logger == nil {
		logger = zap.NewNop()
	}
	return &UserService{
		users:      deps.UserRepo,
		logger:     logger,
		bcryptCost: deps.BcryptCost,
		owner:      strings.TrimSpace(deps.Owner),
	}
}

// List returns every account ordered by username.
func (s *UserService) List(ctx context.Context, actor *domain.User) ([]domain.User, error) {
	if !actor.IsSuperAdmin() {
		return nil, apperrors.NewForbidden("super admin required")
	}
	users, err := s.users.List(ctx)
	if err != nil {
		return nil, err
	}
	if users == nil {
		users = []domain.User{}
	}
	return users, nil
}

// Add creates an account.
func (s *UserService) Add(ctx context.Context, actor *domain.User, input UserCreateInput) (*domain.User, error) {
	if !actor.IsSuperAdmin() {
		return nil, apperrors.NewForbidden("super admin required")
	}
	return s.create(ctx, input)
}

func (s *UserService) create(ctx context.Context, input UserCreateInput) (*domain.User, error) {
	input.Username = strings.TrimSpace(input.Username)
	input.Fullname = strings.TrimSpace(input.Fullname)

	missing := []string{}
	if input.Username == "" {
		missing = append(missing, "username")
	}
	if input.Password == "" {
		missing = append(missing, "password")
	}
	if input.Fullname == "" {
		missing = append(missing, "fullname")
	}
	if input.Role == "" {
		missing = append(missing, "role")
	}
	if len(missing) > 0 {
		return nil, apperrors.NewValidationError("required fields missing", map[string]any{"fields": missing})
	}
	if !input.Role.Valid() {
		return nil, apperrors.NewValidationError("unknown role", map[string]any{"role": input.Role})
	}

	hash, err := auth.HashPassword(input.Password, s.bcryptCost)
	if err != nil {
		return nil, err
	}
	user := &domain.User{
		Username:     input.Username,
		PasswordHash: hash,
		Fullname:     input.Fullname,
		Role:         input.Role,
	}
	if err := s.users.Create(ctx, user); err != nil {
		if errors.Is(err, repository.ErrDuplicate) {
			return nil, apperrors.NewConflict("username already exists", map[string]any{"username": input.Username})
		}
		return nil, err
	}
	s.logger.Info("user created", zap.String("username", user.Username), zap.String("role", string(user.Role)))
	return user, nil
}

// Delete removes an account. The bootstrap owner and the caller's own account
// are protected.
func (s *UserService) Delete(ctx context.Context, actor *domain.User, id string) error {
	if !actor.IsSuperAdmin() {
		return apperrors.NewForbidden("super admin required")
	}
	user, err := s.users.GetByID(ctx, id)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return apperrors.NewNotFound("user", map[string]any{"id": id})
		}
		return err
	}
	if s.owner != "" && user.Username == s.owner {
		return apperrors.NewConflict("the owner account cannot be deleted", map[string]any{"username": user.Username})
	}
	if user.ID == actor.ID {
		return apperrors.NewConflict("cannot delete your own account", nil)
	}
	if err := s.users.Delete(ctx, id); err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return apperrors.NewNotFound("user", map[string]any{"id": id})
		}
		return err
	}
	s.logger.Info("user deleted", zap.String("username", user.Username), zap.String("actor", actor.Username))
	return nil
}

// CreateUser adds an account without an acting user. Used by the CLI.
func (s *UserService) CreateUser(ctx context.Context, input UserCreateInput) (*domain.User, error) {
	return s.create(ctx, input)
}

// EnsureBootstrapAdmin creates the owner account when it does not exist yet.
// Without a configured password nothing is created.
func (s *UserService) EnsureBootstrapAdmin(ctx context.Context, password, fullname string) (bool, error) {
	if s.owner == "" || password == "" {
		return false, nil
	}
	if _, err := s.users.GetByUsername(ctx, s.owner); err == nil {
		return false, nil
	} else if !errors.Is(err, repository.ErrNotFound) {
		return false, err
	}

	if strings.TrimSpace(fullname) == "" {
		fullname = s.owner
	}
	_, err := s.create(ctx, UserCreateInput{
		Username: s.owner,
		Password: password,
		Fullname: fullname,
		Role:     domain.RoleSuperAdmin,
	})
	if err != nil {
		if apperrors.IsCode(err, "CONFLICT") {
			return false, nil
		}
		return false, err
	}
	return true, nil
}
