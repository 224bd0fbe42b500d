package service

import (
	"context"
	"fmt"
	"time"

	"github.com/spec-kit/task-manager/internal/domain"
	"github.com/spec-kit/task-manager/internal/repository"
	apperrors "github.com/spec-kit/task-manager/pkg/util"
)

// QueryService answers read-only task and user listings. Every call reads
// current store state; results are in creation order unless an order is
// requested.
type QueryService struct {
	tasks repository.TaskRepository
	users repository.UserRepository
	clock Clock
}

// QueryDependencies bundles collaborators for the query service.
type QueryDependencies struct {
	TaskRepo repository.TaskRepository
	UserRepo repository.UserRepository
	Clock    Clock
}

// NewQueryService constructs the service.
func NewQueryService(deps QueryDependencies) *QueryService {
	return &QueryService{
		tasks: deps.TaskRepo,
		users: deps.UserRepo,
		clock: deps.Clock,
	}
}

func (s *QueryService) listTasks(ctx context.Context, filter repository.TaskFilter) ([]domain.Task, error) {
	tasks, err := s.tasks.List(ctx, filter)
	return tasks, storeError(err)
}

func (s *QueryService) listUsers(ctx context.Context, filter repository.UserFilter) ([]domain.User, error) {
	users, err := s.users.List(ctx, filter)
	return users, storeError(err)
}

func (s *QueryService) requireOwner(ctx context.Context, ownerID string) error {
	exists, err := s.users.Exists(ctx, ownerID)
	if err != nil {
		return storeError(err)
	}
	if !exists {
		return apperrors.NewNotFound("user", ownerID)
	}
	return nil
}

// ListTasks returns every task.
func (s *QueryService) ListTasks(ctx context.Context) ([]domain.Task, error) {
	return s.listTasks(ctx, repository.TaskFilter{})
}

// TasksByOwner returns the owner's tasks in the requested order.
func (s *QueryService) TasksByOwner(ctx context.Context, ownerID string, order repository.TaskOrder) ([]domain.Task, error) {
	if !order.Valid() {
		return nil, apperrors.NewValidationError("order", "unknown order "+string(order))
	}
	if err := s.requireOwner(ctx, ownerID); err != nil {
		return nil, err
	}
	return s.listTasks(ctx, repository.TaskFilter{OwnerID: &ownerID, Order: order})
}

// TasksByStatus returns tasks in one status.
func (s *QueryService) TasksByStatus(ctx context.Context, status domain.TaskStatus) ([]domain.Task, error) {
	if err := validateStatus(status); err != nil {
		return nil, err
	}
	return s.listTasks(ctx, repository.TaskFilter{Statuses: []domain.TaskStatus{status}})
}

// TasksByPriority returns tasks with one priority.
func (s *QueryService) TasksByPriority(ctx context.Context, priority domain.TaskPriority) ([]domain.Task, error) {
	if err := validatePriority(priority); err != nil {
		return nil, err
	}
	return s.listTasks(ctx, repository.TaskFilter{Priorities: []domain.TaskPriority{priority}})
}

// TasksByOwnerAndStatus combines the owner and status filters.
func (s *QueryService) TasksByOwnerAndStatus(ctx context.Context, ownerID string, status domain.TaskStatus) ([]domain.Task, error) {
	if err := validateStatus(status); err != nil {
		return nil, err
	}
	if err := s.requireOwner(ctx, ownerID); err != nil {
		return nil, err
	}
	return s.listTasks(ctx, repository.TaskFilter{OwnerID: &ownerID, Statuses: []domain.TaskStatus{status}})
}

// CompletedByOwner returns the owner's COMPLETED tasks.
func (s *QueryService) CompletedByOwner(ctx context.Context, ownerID string) ([]domain.Task, error) {
	return s.TasksByOwnerAndStatus(ctx, ownerID, domain.TaskStatusCompleted)
}

// PendingByOwner returns the owner's PENDING tasks.
func (s *QueryService) PendingByOwner(ctx context.Context, ownerID string) ([]domain.Task, error) {
	return s.TasksByOwnerAndStatus(ctx, ownerID, domain.TaskStatusPending)
}

// InProgressByOwner returns the owner's IN_PROGRESS tasks.
func (s *QueryService) InProgressByOwner(ctx context.Context, ownerID string) ([]domain.Task, error) {
	return s.TasksByOwnerAndStatus(ctx, ownerID, domain.TaskStatusInProgress)
}

func overdueFilter(now time.Time) repository.TaskFilter {
	return repository.TaskFilter{
		ExcludeStatuses: []domain.TaskStatus{domain.TaskStatusCompleted},
		DueBefore:       &now,
	}
}

// Overdue returns every task past its due date that is not completed.
func (s *QueryService) Overdue(ctx context.Context) ([]domain.Task, error) {
	return s.listTasks(ctx, overdueFilter(s.clock.Now()))
}

// OverdueByOwner restricts Overdue to one owner.
func (s *QueryService) OverdueByOwner(ctx context.Context, ownerID string) ([]domain.Task, error) {
	if err := s.requireOwner(ctx, ownerID); err != nil {
		return nil, err
	}
	filter := overdueFilter(s.clock.Now())
	filter.OwnerID = &ownerID
	return s.listTasks(ctx, filter)
}

// MaxDueSoonDays bounds the DueSoon window.
const MaxDueSoonDays = 3650

// DueSoon returns the owner's uncompleted tasks due in (now, now+days].
// Negative days yield an empty result.
func (s *QueryService) DueSoon(ctx context.Context, ownerID string, days int) ([]domain.Task, error) {
	if days > MaxDueSoonDays {
		return nil, apperrors.NewValidationError("days", fmt.Sprintf("must be at most %d", MaxDueSoonDays))
	}
	if err := s.requireOwner(ctx, ownerID); err != nil {
		return nil, err
	}
	if days < 0 {
		return []domain.Task{}, nil
	}
	now := s.clock.Now()
	horizon := now.AddDate(0, 0, days)
	return s.listTasks(ctx, repository.TaskFilter{
		OwnerID:         &ownerID,
		ExcludeStatuses: []domain.TaskStatus{domain.TaskStatusCompleted},
		DueAfter:        &now,
		DueTo:           &horizon,
	})
}

// TitleContains matches titles case-insensitively.
func (s *QueryService) TitleContains(ctx context.Context, term string) ([]domain.Task, error) {
	return s.listTasks(ctx, repository.TaskFilter{TitleContains: &term})
}

// DescriptionContains matches descriptions case-insensitively.
func (s *QueryService) DescriptionContains(ctx context.Context, term string) ([]domain.Task, error) {
	return s.listTasks(ctx, repository.TaskFilter{DescriptionContains: &term})
}

// SearchByOwner matches title or description within one owner's tasks.
func (s *QueryService) SearchByOwner(ctx context.Context, ownerID, term string) ([]domain.Task, error) {
	if err := s.requireOwner(ctx, ownerID); err != nil {
		return nil, err
	}
	return s.listTasks(ctx, repository.TaskFilter{OwnerID: &ownerID, SearchTerm: &term})
}

// CreatedBetween returns tasks created in [start, end]. An inverted range is empty.
func (s *QueryService) CreatedBetween(ctx context.Context, start, end time.Time) ([]domain.Task, error) {
	if start.After(end) {
		return []domain.Task{}, nil
	}
	return s.listTasks(ctx, repository.TaskFilter{CreatedFrom: &start, CreatedTo: &end})
}

// DueBetween returns tasks due in [start, end]. An inverted range is empty.
func (s *QueryService) DueBetween(ctx context.Context, start, end time.Time) ([]domain.Task, error) {
	if start.After(end) {
		return []domain.Task{}, nil
	}
	return s.listTasks(ctx, repository.TaskFilter{DueFrom: &start, DueTo: &end})
}

// ListUsers returns every user.
func (s *QueryService) ListUsers(ctx context.Context) ([]domain.User, error) {
	return s.listUsers(ctx, repository.UserFilter{})
}

// UsersByRole returns users holding one role.
func (s *QueryService) UsersByRole(ctx context.Context, role domain.UserRole) ([]domain.User, error) {
	if err := validateRole(role); err != nil {
		return nil, err
	}
	return s.listUsers(ctx, repository.UserFilter{Role: &role})
}

// ActiveUsers returns enabled users.
func (s *QueryService) ActiveUsers(ctx context.Context) ([]domain.User, error) {
	enabled := true
	return s.listUsers(ctx, repository.UserFilter{Enabled: &enabled})
}

// UsersWithTasks returns users owning at least one task.
func (s *QueryService) UsersWithTasks(ctx context.Context) ([]domain.User, error) {
	has := true
	return s.listUsers(ctx, repository.UserFilter{HasTasks: &has})
}

// UsersWithoutTasks returns users owning no task.
func (s *QueryService) UsersWithoutTasks(ctx context.Context) ([]domain.User, error) {
	has := false
	return s.listUsers(ctx, repository.UserFilter{HasTasks: &has})
}

// SearchUsers matches username, email or full name case-insensitively.
func (s *QueryService) SearchUsers(ctx context.Context, term string) ([]domain.User, error) {
	return s.listUsers(ctx, repository.UserFilter{SearchTerm: &term})
}
