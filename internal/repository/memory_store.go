package repository

import (
	"context"
	"slices"
	"sort"
	"strings"
	"sync"

	"github.com/google/uuid"

	"github.com/spec-kit/task-manager/internal/domain"
	apperrors "github.com/spec-kit/task-manager/pkg/util"
)

// MemoryStore keeps users and tasks in process memory. It backs both
// repository contracts so owner references and uniqueness are checked
// under a single lock.
type MemoryStore struct {
	mu sync.RWMutex

	users      map[string]*domain.User
	userOrder  []string
	byUsername map[string]string
	byEmail    map[string]string

	tasks     map[string]*domain.Task
	taskOrder []string
	byOwner   map[string]map[string]struct{}
}

// NewMemoryStore returns an empty store.
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{
		users:      make(map[string]*domain.User),
		byUsername: make(map[string]string),
		byEmail:    make(map[string]string),
		tasks:      make(map[string]*domain.Task),
		byOwner:    make(map[string]map[string]struct{}),
	}
}

// Tasks returns the task view of the store.
func (s *MemoryStore) Tasks() TaskRepository {
	return &memoryTasks{s: s}
}

// Users returns the user view of the store.
func (s *MemoryStore) Users() UserRepository {
	return &memoryUsers{s: s}
}

type memoryUsers struct {
	s *MemoryStore
}

func (r *memoryUsers) Create(_ context.Context, user *domain.User) error {
	s := r.s
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, taken := s.byUsername[user.Username]; taken {
		return apperrors.NewConflict("username", user.Username)
	}
	if _, taken := s.byEmail[user.Email]; taken {
		return apperrors.NewConflict("email", user.Email)
	}

	user.ID = uuid.Must(uuid.NewV7()).String()
	stored := *user
	s.users[stored.ID] = &stored
	s.userOrder = append(s.userOrder, stored.ID)
	s.byUsername[stored.Username] = stored.ID
	s.byEmail[stored.Email] = stored.ID
	return nil
}

func (r *memoryUsers) GetByID(_ context.Context, id string) (*domain.User, error) {
	s := r.s
	s.mu.RLock()
	defer s.mu.RUnlock()

	user, ok := s.users[id]
	if !ok {
		return nil, apperrors.NewNotFound("user", id)
	}
	clone := *user
	return &clone, nil
}

func (r *memoryUsers) GetByUsername(ctx context.Context, username string) (*domain.User, error) {
	r.s.mu.RLock()
	id, ok := r.s.byUsername[username]
	r.s.mu.RUnlock()
	if !ok {
		return nil, apperrors.NewNotFound("user", username)
	}
	return r.GetByID(ctx, id)
}

func (r *memoryUsers) GetByEmail(ctx context.Context, email string) (*domain.User, error) {
	r.s.mu.RLock()
	id, ok := r.s.byEmail[email]
	r.s.mu.RUnlock()
	if !ok {
		return nil, apperrors.NewNotFound("user", email)
	}
	return r.GetByID(ctx, id)
}

func (r *memoryUsers) UpdateFunc(_ context.Context, id string, fn func(*domain.User) error) (*domain.User, error) {
	s := r.s
	s.mu.Lock()
	defer s.mu.Unlock()

	current, ok := s.users[id]
	if !ok {
		return nil, apperrors.NewNotFound("user", id)
	}
	updated := *current
	if err := fn(&updated); err != nil {
		return nil, err
	}
	updated.ID = current.ID

	if owner, taken := s.byUsername[updated.Username]; taken && owner != current.ID {
		return nil, apperrors.NewConflict("username", updated.Username)
	}
	if owner, taken := s.byEmail[updated.Email]; taken && owner != current.ID {
		return nil, apperrors.NewConflict("email", updated.Email)
	}

	delete(s.byUsername, current.Username)
	delete(s.byEmail, current.Email)
	// Keys come from the stored record; the caller's id may alias a reused buffer.
	s.byUsername[updated.Username] = current.ID
	s.byEmail[updated.Email] = current.ID
	s.users[current.ID] = &updated

	clone := updated
	return &clone, nil
}

func (r *memoryUsers) Delete(_ context.Context, id string) error {
	s := r.s
	s.mu.Lock()
	defer s.mu.Unlock()

	user, ok := s.users[id]
	if !ok {
		return apperrors.NewNotFound("user", id)
	}
	if owned := len(s.byOwner[id]); owned > 0 {
		return apperrors.NewConflict("tasks", owned)
	}

	delete(s.users, id)
	delete(s.byUsername, user.Username)
	delete(s.byEmail, user.Email)
	delete(s.byOwner, id)
	s.userOrder = removeID(s.userOrder, id)
	return nil
}

func (r *memoryUsers) Exists(_ context.Context, id string) (bool, error) {
	r.s.mu.RLock()
	defer r.s.mu.RUnlock()
	_, ok := r.s.users[id]
	return ok, nil
}

func (r *memoryUsers) ExistsByUsername(_ context.Context, username string) (bool, error) {
	r.s.mu.RLock()
	defer r.s.mu.RUnlock()
	_, ok := r.s.byUsername[username]
	return ok, nil
}

func (r *memoryUsers) ExistsByEmail(_ context.Context, email string) (bool, error) {
	r.s.mu.RLock()
	defer r.s.mu.RUnlock()
	_, ok := r.s.byEmail[email]
	return ok, nil
}

func (r *memoryUsers) List(_ context.Context, filter UserFilter) ([]domain.User, error) {
	s := r.s
	s.mu.RLock()
	defer s.mu.RUnlock()

	result := []domain.User{}
	for _, id := range s.userOrder {
		user := s.users[id]
		if s.matchUser(user, filter) {
			result = append(result, *user)
		}
	}
	return result, nil
}

func (r *memoryUsers) Count(ctx context.Context, filter UserFilter) (int64, error) {
	users, err := r.List(ctx, filter)
	return int64(len(users)), err
}

func (r *memoryUsers) CountByRole(_ context.Context) (map[domain.UserRole]int64, error) {
	s := r.s
	s.mu.RLock()
	defer s.mu.RUnlock()

	counts := make(map[domain.UserRole]int64)
	for _, user := range s.users {
		counts[user.Role]++
	}
	return counts, nil
}

// matchUser must be called with the lock held.
func (s *MemoryStore) matchUser(user *domain.User, filter UserFilter) bool {
	if filter.Role != nil && user.Role != *filter.Role {
		return false
	}
	if filter.Enabled != nil && user.Enabled != *filter.Enabled {
		return false
	}
	if filter.SearchTerm != nil {
		term := strings.ToLower(*filter.SearchTerm)
		if !containsFold(user.FullName(), term) &&
			!containsFold(user.Username, term) &&
			!containsFold(user.Email, term) {
			return false
		}
	}
	if filter.HasTasks != nil && (len(s.byOwner[user.ID]) > 0) != *filter.HasTasks {
		return false
	}
	return true
}

type memoryTasks struct {
	s *MemoryStore
}

func (r *memoryTasks) Create(_ context.Context, task *domain.Task) error {
	s := r.s
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, ok := s.users[task.OwnerID]; !ok {
		return apperrors.NewNotFound("user", task.OwnerID)
	}

	task.ID = uuid.Must(uuid.NewV7()).String()
	stored := cloneTask(task)
	s.tasks[stored.ID] = stored
	s.taskOrder = append(s.taskOrder, stored.ID)
	owned, ok := s.byOwner[stored.OwnerID]
	if !ok {
		owned = make(map[string]struct{})
		s.byOwner[stored.OwnerID] = owned
	}
	owned[stored.ID] = struct{}{}
	return nil
}

func (r *memoryTasks) GetByID(_ context.Context, id string) (*domain.Task, error) {
	s := r.s
	s.mu.RLock()
	defer s.mu.RUnlock()

	task, ok := s.tasks[id]
	if !ok {
		return nil, apperrors.NewNotFound("task", id)
	}
	return cloneTask(task), nil
}

func (r *memoryTasks) UpdateFunc(_ context.Context, id string, fn func(*domain.Task) error) (*domain.Task, error) {
	s := r.s
	s.mu.Lock()
	defer s.mu.Unlock()

	current, ok := s.tasks[id]
	if !ok {
		return nil, apperrors.NewNotFound("task", id)
	}
	updated := cloneTask(current)
	if err := fn(updated); err != nil {
		return nil, err
	}
	// id and owner are immutable
	updated.ID = current.ID
	updated.OwnerID = current.OwnerID
	s.tasks[current.ID] = updated
	return cloneTask(updated), nil
}

func (r *memoryTasks) Delete(_ context.Context, id string) error {
	s := r.s
	s.mu.Lock()
	defer s.mu.Unlock()

	task, ok := s.tasks[id]
	if !ok {
		return apperrors.NewNotFound("task", id)
	}
	delete(s.tasks, id)
	delete(s.byOwner[task.OwnerID], id)
	s.taskOrder = removeID(s.taskOrder, id)
	return nil
}

func (r *memoryTasks) Exists(_ context.Context, id string) (bool, error) {
	r.s.mu.RLock()
	defer r.s.mu.RUnlock()
	_, ok := r.s.tasks[id]
	return ok, nil
}

func (r *memoryTasks) List(_ context.Context, filter TaskFilter) ([]domain.Task, error) {
	s := r.s
	s.mu.RLock()
	defer s.mu.RUnlock()

	result := []domain.Task{}
	for _, id := range s.taskOrder {
		task := s.tasks[id]
		if matchTask(task, filter) {
			result = append(result, *cloneTask(task))
		}
	}
	sortTasks(result, filter.Order)
	return result, nil
}

func (r *memoryTasks) Count(ctx context.Context, filter TaskFilter) (int64, error) {
	tasks, err := r.List(ctx, filter)
	return int64(len(tasks)), err
}

func (r *memoryTasks) CountByStatus(_ context.Context) (map[domain.TaskStatus]int64, error) {
	r.s.mu.RLock()
	defer r.s.mu.RUnlock()

	counts := make(map[domain.TaskStatus]int64)
	for _, task := range r.s.tasks {
		counts[task.Status]++
	}
	return counts, nil
}

func (r *memoryTasks) CountByPriority(_ context.Context) (map[domain.TaskPriority]int64, error) {
	r.s.mu.RLock()
	defer r.s.mu.RUnlock()

	counts := make(map[domain.TaskPriority]int64)
	for _, task := range r.s.tasks {
		counts[task.Priority]++
	}
	return counts, nil
}

func matchTask(task *domain.Task, filter TaskFilter) bool {
	if filter.OwnerID != nil && task.OwnerID != *filter.OwnerID {
		return false
	}
	if len(filter.Statuses) > 0 && !slices.Contains(filter.Statuses, task.Status) {
		return false
	}
	if len(filter.ExcludeStatuses) > 0 && slices.Contains(filter.ExcludeStatuses, task.Status) {
		return false
	}
	if len(filter.Priorities) > 0 && !slices.Contains(filter.Priorities, task.Priority) {
		return false
	}
	if filter.TitleContains != nil && !containsFold(task.Title, strings.ToLower(*filter.TitleContains)) {
		return false
	}
	if filter.DescriptionContains != nil && !containsFold(task.Description, strings.ToLower(*filter.DescriptionContains)) {
		return false
	}
	if filter.SearchTerm != nil {
		term := strings.ToLower(*filter.SearchTerm)
		if !containsFold(task.Title, term) && !containsFold(task.Description, term) {
			return false
		}
	}
	if filter.CreatedFrom != nil && task.CreatedAt.Before(*filter.CreatedFrom) {
		return false
	}
	if filter.CreatedTo != nil && task.CreatedAt.After(*filter.CreatedTo) {
		return false
	}

	dueBounded := filter.DueFrom != nil || filter.DueTo != nil || filter.DueAfter != nil || filter.DueBefore != nil
	if !dueBounded {
		return true
	}
	if task.DueDate == nil {
		return false
	}
	due := *task.DueDate
	switch {
	case filter.DueFrom != nil && due.Before(*filter.DueFrom):
		return false
	case filter.DueTo != nil && due.After(*filter.DueTo):
		return false
	case filter.DueAfter != nil && !due.After(*filter.DueAfter):
		return false
	case filter.DueBefore != nil && !due.Before(*filter.DueBefore):
		return false
	}
	return true
}

// sortTasks expects tasks in creation order and keeps it among ties.
func sortTasks(tasks []domain.Task, order TaskOrder) {
	switch order {
	case TaskOrderCreatedDesc:
		// reverse first so equal timestamps stay newest first
		for i, j := 0, len(tasks)-1; i < j; i, j = i+1, j-1 {
			tasks[i], tasks[j] = tasks[j], tasks[i]
		}
		sort.SliceStable(tasks, func(i, j int) bool {
			return tasks[i].CreatedAt.After(tasks[j].CreatedAt)
		})
	case TaskOrderDueAsc:
		sort.SliceStable(tasks, func(i, j int) bool {
			a, b := tasks[i].DueDate, tasks[j].DueDate
			switch {
			case a == nil:
				return false
			case b == nil:
				return true
			default:
				return a.Before(*b)
			}
		})
	case TaskOrderPriorityDesc:
		sort.SliceStable(tasks, func(i, j int) bool {
			return tasks[i].Priority.Rank() > tasks[j].Priority.Rank()
		})
	}
}

func cloneTask(task *domain.Task) *domain.Task {
	clone := *task
	if task.DueDate != nil {
		due := *task.DueDate
		clone.DueDate = &due
	}
	if task.CompletedAt != nil {
		completed := *task.CompletedAt
		clone.CompletedAt = &completed
	}
	return &clone
}

func containsFold(value, lowerTerm string) bool {
	return strings.Contains(strings.ToLower(value), lowerTerm)
}

func removeID(ids []string, id string) []string {
	if i := slices.Index(ids, id); i >= 0 {
		return slices.Delete(ids, i, i+1)
	}
	return ids
}
