package service

import (
	"context"

	"golang.org/x/sync/errgroup"

	"github.com/spec-kit/task-manager/internal/domain"
	"github.com/spec-kit/task-manager/internal/repository"
	apperrors "github.com/spec-kit/task-manager/pkg/util"
)

// StatisticsService computes grouped counts and per-owner summaries.
type StatisticsService struct {
	tasks repository.TaskRepository
	users repository.UserRepository
	clock Clock
}

// StatisticsDependencies bundles collaborators for the statistics service.
type StatisticsDependencies struct {
	TaskRepo repository.TaskRepository
	UserRepo repository.UserRepository
	Clock    Clock
}

// TaskSummary aggregates one owner's tasks. CANCELLED tasks count toward
// Total only, so the status buckets need not add up to it.
type TaskSummary struct {
	Total      int64 `json:"total"`
	Completed  int64 `json:"completed"`
	Pending    int64 `json:"pending"`
	InProgress int64 `json:"in_progress"`
	Overdue    int64 `json:"overdue"`
}

// NewStatisticsService constructs the service.
func NewStatisticsService(deps StatisticsDependencies) *StatisticsService {
	return &StatisticsService{
		tasks: deps.TaskRepo,
		users: deps.UserRepo,
		clock: deps.Clock,
	}
}

// CountByStatus groups all tasks by status. Empty groups are omitted.
func (s *StatisticsService) CountByStatus(ctx context.Context) (map[domain.TaskStatus]int64, error) {
	counts, err := s.tasks.CountByStatus(ctx)
	return counts, storeError(err)
}

// CountByPriority groups all tasks by priority. Empty groups are omitted.
func (s *StatisticsService) CountByPriority(ctx context.Context) (map[domain.TaskPriority]int64, error) {
	counts, err := s.tasks.CountByPriority(ctx)
	return counts, storeError(err)
}

// CountByRole groups all users by role. Empty groups are omitted.
func (s *StatisticsService) CountByRole(ctx context.Context) (map[domain.UserRole]int64, error) {
	counts, err := s.users.CountByRole(ctx)
	return counts, storeError(err)
}

// CountTasksWithStatus counts tasks in one status.
func (s *StatisticsService) CountTasksWithStatus(ctx context.Context, status domain.TaskStatus) (int64, error) {
	if err := validateStatus(status); err != nil {
		return 0, err
	}
	count, err := s.tasks.Count(ctx, repository.TaskFilter{Statuses: []domain.TaskStatus{status}})
	return count, storeError(err)
}

// CountUsersWithRole counts users holding one role.
func (s *StatisticsService) CountUsersWithRole(ctx context.Context, role domain.UserRole) (int64, error) {
	if err := validateRole(role); err != nil {
		return 0, err
	}
	count, err := s.users.Count(ctx, repository.UserFilter{Role: &role})
	return count, storeError(err)
}

// CountByOwner counts all tasks of an existing owner.
func (s *StatisticsService) CountByOwner(ctx context.Context, ownerID string) (int64, error) {
	if err := s.requireOwner(ctx, ownerID); err != nil {
		return 0, err
	}
	count, err := s.tasks.Count(ctx, repository.TaskFilter{OwnerID: &ownerID})
	return count, storeError(err)
}

// CountCompletedByOwner counts an owner's COMPLETED tasks.
func (s *StatisticsService) CountCompletedByOwner(ctx context.Context, ownerID string) (int64, error) {
	if err := s.requireOwner(ctx, ownerID); err != nil {
		return 0, err
	}
	count, err := s.tasks.Count(ctx, repository.TaskFilter{
		OwnerID:  &ownerID,
		Statuses: []domain.TaskStatus{domain.TaskStatusCompleted},
	})
	return count, storeError(err)
}

// UserSummary builds the per-owner summary. The counts run concurrently
// against the store and are not a single snapshot.
func (s *StatisticsService) UserSummary(ctx context.Context, ownerID string) (*TaskSummary, error) {
	if err := s.requireOwner(ctx, ownerID); err != nil {
		return nil, err
	}

	byStatus := func(status domain.TaskStatus) repository.TaskFilter {
		return repository.TaskFilter{Statuses: []domain.TaskStatus{status}}
	}

	var summary TaskSummary
	counts := []struct {
		dst    *int64
		filter repository.TaskFilter
	}{
		{&summary.Total, repository.TaskFilter{}},
		{&summary.Completed, byStatus(domain.TaskStatusCompleted)},
		{&summary.Pending, byStatus(domain.TaskStatusPending)},
		{&summary.InProgress, byStatus(domain.TaskStatusInProgress)},
		{&summary.Overdue, overdueFilter(s.clock.Now())},
	}

	g, gctx := errgroup.WithContext(ctx)
	for _, count := range counts {
		filter := count.filter
		filter.OwnerID = &ownerID
		dst := count.dst
		g.Go(func() error {
			n, err := s.tasks.Count(gctx, filter)
			if err != nil {
				return storeError(err)
			}
			*dst = n
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}
	return &summary, nil
}

func (s *StatisticsService) requireOwner(ctx context.Context, ownerID string) error {
	exists, err := s.users.Exists(ctx, ownerID)
	if err != nil {
		return storeError(err)
	}
	if !exists {
		return apperrors.NewNotFound("user", ownerID)
	}
	return nil
}
