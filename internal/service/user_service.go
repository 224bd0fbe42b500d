package service

import (
	"context"
	"strings"
	"time"

	"go.uber.org/zap"

	"github.com/spec-kit/task-manager/internal/auth"
	"github.com/spec-kit/task-manager/internal/domain"
	"github.com/spec-kit/task-manager/internal/events"
	"github.com/spec-kit/task-manager/internal/repository"
	apperrors "github.com/spec-kit/task-manager/pkg/util"
)

// UserService registers users and maintains their identity invariants.
type UserService struct {
	users  repository.UserRepository
	tasks  repository.TaskRepository
	hasher PasswordHasher
	tokens *auth.TokenManager
	clock  Clock
	events publisher
	logger *zap.Logger
}

// UserDependencies bundles collaborators for the user service.
type UserDependencies struct {
	UserRepo     repository.UserRepository
	TaskRepo     repository.TaskRepository
	Hasher       PasswordHasher
	TokenManager *auth.TokenManager
	Dispatcher   events.Dispatcher
	Logger       *zap.Logger
	Clock        Clock
}

// CreateUserInput describes a new account.
type CreateUserInput struct {
	Username  string          `json:"username" validate:"required,min=3,max=50"`
	Email     string          `json:"email" validate:"required,email,max=100"`
	Password  string          `json:"password" validate:"required,min=6"`
	FirstName string          `json:"first_name" validate:"max=50"`
	LastName  string          `json:"last_name" validate:"max=50"`
	Role      domain.UserRole `json:"role"`
}

// UpdateUserInput replaces the mutable profile of a user. An empty Role or a
// nil Enabled keeps the stored value. The password is never touched.
type UpdateUserInput struct {
	Username  string          `json:"username" validate:"required,min=3,max=50"`
	Email     string          `json:"email" validate:"required,email,max=100"`
	FirstName string          `json:"first_name" validate:"max=50"`
	LastName  string          `json:"last_name" validate:"max=50"`
	Role      domain.UserRole `json:"role"`
	Enabled   *bool           `json:"enabled"`
}

type passwordInput struct {
	Password string `json:"password" validate:"required,min=6"`
}

// NewUserService constructs the service.
func NewUserService(deps UserDependencies) *UserService {
	logger := deps.Logger
	if logger == nil {
		logger = zap.NewNop()
	}
	return &UserService{
		users:  deps.UserRepo,
		tasks:  deps.TaskRepo,
		hasher: deps.Hasher,
		tokens: deps.TokenManager,
		clock:  deps.Clock,
		events: publisher{dispatcher: deps.Dispatcher, logger: logger},
		logger: logger,
	}
}

// Create registers a user. Username and email must be unused.
func (s *UserService) Create(ctx context.Context, input CreateUserInput) (*domain.User, error) {
	input.Username = strings.TrimSpace(input.Username)
	input.Email = strings.TrimSpace(input.Email)
	if err := validateInput(input); err != nil {
		return nil, err
	}
	if err := validatePassword(input.Password); err != nil {
		return nil, err
	}
	if input.Role == "" {
		input.Role = domain.UserRoleUser
	}
	if err := validateRole(input.Role); err != nil {
		return nil, err
	}

	if err := s.ensureUsernameFree(ctx, input.Username); err != nil {
		return nil, err
	}
	if err := s.ensureEmailFree(ctx, input.Email); err != nil {
		return nil, err
	}

	hash, err := s.hasher.Hash(input.Password)
	if err != nil {
		return nil, apperrors.NewInternalError(err)
	}

	now := s.clock.Now()
	user := &domain.User{
		Username:     input.Username,
		Email:        input.Email,
		PasswordHash: hash,
		FirstName:    strings.TrimSpace(input.FirstName),
		LastName:     strings.TrimSpace(input.LastName),
		Role:         input.Role,
		Enabled:      true,
		CreatedAt:    now,
		UpdatedAt:    now,
	}
	if err := s.users.Create(ctx, user); err != nil {
		return nil, storeError(err)
	}

	s.publishUser(ctx, events.EventUserCreated, user)
	return user, nil
}

// Update replaces the profile fields of a user, re-checking uniqueness only
// for the fields that change.
func (s *UserService) Update(ctx context.Context, id string, input UpdateUserInput) (*domain.User, error) {
	input.Username = strings.TrimSpace(input.Username)
	input.Email = strings.TrimSpace(input.Email)
	if err := validateInput(input); err != nil {
		return nil, err
	}
	if input.Role != "" {
		if err := validateRole(input.Role); err != nil {
			return nil, err
		}
	}

	current, err := s.users.GetByID(ctx, id)
	if err != nil {
		return nil, storeError(err)
	}
	if input.Username != current.Username {
		if err := s.ensureUsernameFree(ctx, input.Username); err != nil {
			return nil, err
		}
	}
	if input.Email != current.Email {
		if err := s.ensureEmailFree(ctx, input.Email); err != nil {
			return nil, err
		}
	}

	now := s.clock.Now()
	user, err := s.users.UpdateFunc(ctx, id, func(u *domain.User) error {
		u.Username = input.Username
		u.Email = input.Email
		u.FirstName = strings.TrimSpace(input.FirstName)
		u.LastName = strings.TrimSpace(input.LastName)
		if input.Role != "" {
			u.Role = input.Role
		}
		if input.Enabled != nil {
			u.Enabled = *input.Enabled
		}
		u.UpdatedAt = now
		return nil
	})
	if err != nil {
		return nil, storeError(err)
	}

	s.publishUser(ctx, events.EventUserUpdated, user)
	return user, nil
}

// ChangePassword hashes and stores a new password.
func (s *UserService) ChangePassword(ctx context.Context, id, password string) (*domain.User, error) {
	if err := validatePassword(password); err != nil {
		return nil, err
	}
	hash, err := s.hasher.Hash(password)
	if err != nil {
		return nil, apperrors.NewInternalError(err)
	}

	now := s.clock.Now()
	user, err := s.users.UpdateFunc(ctx, id, func(u *domain.User) error {
		u.PasswordHash = hash
		u.UpdatedAt = now
		return nil
	})
	if err != nil {
		return nil, storeError(err)
	}
	return user, nil
}

// SetEnabled toggles whether the user may authenticate.
func (s *UserService) SetEnabled(ctx context.Context, id string, enabled bool) (*domain.User, error) {
	now := s.clock.Now()
	user, err := s.users.UpdateFunc(ctx, id, func(u *domain.User) error {
		u.Enabled = enabled
		u.UpdatedAt = now
		return nil
	})
	if err != nil {
		return nil, storeError(err)
	}

	s.publishUser(ctx, events.EventUserUpdated, user)
	return user, nil
}

// Delete removes a user. Users that still own tasks cannot be deleted.
func (s *UserService) Delete(ctx context.Context, id string) error {
	user, err := s.users.GetByID(ctx, id)
	if err != nil {
		return storeError(err)
	}
	owned, err := s.tasks.Count(ctx, repository.TaskFilter{OwnerID: &id})
	if err != nil {
		return storeError(err)
	}
	if owned > 0 {
		return apperrors.NewConflict("tasks", owned)
	}
	if err := s.users.Delete(ctx, id); err != nil {
		return storeError(err)
	}

	s.publishUser(ctx, events.EventUserDeleted, user)
	return nil
}

// ValidateCredentials reports whether an enabled user matches the identifier
// (username or email) and password. Lookup failures of any kind yield false.
func (s *UserService) ValidateCredentials(ctx context.Context, usernameOrEmail, password string) bool {
	_, ok := s.authenticate(ctx, usernameOrEmail, password)
	return ok
}

// Login validates credentials and issues an access token.
func (s *UserService) Login(ctx context.Context, usernameOrEmail, password string) (*domain.User, string, time.Time, error) {
	user, ok := s.authenticate(ctx, usernameOrEmail, password)
	if !ok {
		return nil, "", time.Time{}, apperrors.NewUnauthorized("invalid credentials")
	}
	if s.tokens == nil {
		return nil, "", time.Time{}, apperrors.NewInternalError(errTokensDisabled)
	}
	token, exp, err := s.tokens.GenerateToken(user)
	if err != nil {
		return nil, "", time.Time{}, apperrors.NewInternalError(err)
	}
	return user, token, exp, nil
}

func (s *UserService) authenticate(ctx context.Context, usernameOrEmail, password string) (*domain.User, bool) {
	user, err := s.FindByUsernameOrEmail(ctx, usernameOrEmail)
	if err != nil {
		if !apperrors.IsNotFound(err) {
			s.logger.Warn("credential lookup failed", zap.Error(err))
		}
		return nil, false
	}
	if !user.Enabled || !s.hasher.Verify(password, user.PasswordHash) {
		return nil, false
	}
	return user, true
}

// GetByID returns a user by id.
func (s *UserService) GetByID(ctx context.Context, id string) (*domain.User, error) {
	user, err := s.users.GetByID(ctx, id)
	return user, storeError(err)
}

// GetByUsername returns a user by exact username.
func (s *UserService) GetByUsername(ctx context.Context, username string) (*domain.User, error) {
	user, err := s.users.GetByUsername(ctx, username)
	return user, storeError(err)
}

// GetByEmail returns a user by exact email.
func (s *UserService) GetByEmail(ctx context.Context, email string) (*domain.User, error) {
	user, err := s.users.GetByEmail(ctx, email)
	return user, storeError(err)
}

// FindByUsernameOrEmail tries the username first, then the email.
func (s *UserService) FindByUsernameOrEmail(ctx context.Context, identifier string) (*domain.User, error) {
	user, err := s.users.GetByUsername(ctx, identifier)
	if err == nil {
		return user, nil
	}
	if !apperrors.IsNotFound(err) {
		return nil, storeError(err)
	}
	user, err = s.users.GetByEmail(ctx, identifier)
	if err != nil {
		if apperrors.IsNotFound(err) {
			return nil, apperrors.NewNotFound("user", identifier)
		}
		return nil, storeError(err)
	}
	return user, nil
}

// ExistsByUsername reports whether the username is taken.
func (s *UserService) ExistsByUsername(ctx context.Context, username string) (bool, error) {
	ok, err := s.users.ExistsByUsername(ctx, username)
	return ok, storeError(err)
}

// ExistsByEmail reports whether the email is taken.
func (s *UserService) ExistsByEmail(ctx context.Context, email string) (bool, error) {
	ok, err := s.users.ExistsByEmail(ctx, email)
	return ok, storeError(err)
}

func (s *UserService) ensureUsernameFree(ctx context.Context, username string) error {
	taken, err := s.users.ExistsByUsername(ctx, username)
	if err != nil {
		return storeError(err)
	}
	if taken {
		return apperrors.NewConflict("username", username)
	}
	return nil
}

func (s *UserService) ensureEmailFree(ctx context.Context, email string) error {
	taken, err := s.users.ExistsByEmail(ctx, email)
	if err != nil {
		return storeError(err)
	}
	if taken {
		return apperrors.NewConflict("email", email)
	}
	return nil
}

func (s *UserService) publishUser(ctx context.Context, eventType events.EventType, user *domain.User) {
	s.events.publish(ctx, events.NewEvent(eventType, events.SubjectUser, user.ID, s.clock.Now(), events.UserPayload{
		Username: user.Username,
		Email:    user.Email,
		Role:     user.Role,
		Enabled:  user.Enabled,
	}))
}
