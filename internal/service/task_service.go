package service

import (
	"context"
	"strings"
	"time"

	"go.uber.org/zap"

	"github.com/spec-kit/task-manager/internal/domain"
	"github.com/spec-kit/task-manager/internal/events"
	"github.com/spec-kit/task-manager/internal/repository"
	apperrors "github.com/spec-kit/task-manager/pkg/util"
)

// TaskService coordinates task workflows for a single owner at a time.
type TaskService struct {
	tasks  repository.TaskRepository
	users  repository.UserRepository
	clock  Clock
	events publisher
}

// TaskDependencies bundles collaborators for the task service.
type TaskDependencies struct {
	TaskRepo   repository.TaskRepository
	UserRepo   repository.UserRepository
	Dispatcher events.Dispatcher
	Logger     *zap.Logger
	Clock      Clock
}

// TaskInput describes task content for create and full update. Empty
// Status and Priority fall back to PENDING and MEDIUM on create and to the
// stored values on update.
type TaskInput struct {
	Title       string              `json:"title" validate:"required,max=200"`
	Description string              `json:"description" validate:"max=1000"`
	Status      domain.TaskStatus   `json:"status"`
	Priority    domain.TaskPriority `json:"priority"`
	DueDate     *time.Time          `json:"due_date"`
}

// NewTaskService constructs the service.
func NewTaskService(deps TaskDependencies) *TaskService {
	return &TaskService{
		tasks:  deps.TaskRepo,
		users:  deps.UserRepo,
		clock:  deps.Clock,
		events: publisher{dispatcher: deps.Dispatcher, logger: deps.Logger},
	}
}

func (in *TaskInput) normalize() error {
	in.Title = strings.TrimSpace(in.Title)
	if err := validateInput(in); err != nil {
		return err
	}
	if in.Status != "" {
		if err := validateStatus(in.Status); err != nil {
			return err
		}
	}
	if in.Priority != "" {
		if err := validatePriority(in.Priority); err != nil {
			return err
		}
	}
	return nil
}

// Create stores a new task for an existing owner.
func (s *TaskService) Create(ctx context.Context, ownerID string, input TaskInput) (*domain.Task, error) {
	if err := input.normalize(); err != nil {
		return nil, err
	}
	exists, err := s.users.Exists(ctx, ownerID)
	if err != nil {
		return nil, storeError(err)
	}
	if !exists {
		return nil, apperrors.NewNotFound("user", ownerID)
	}

	now := s.clock.Now()
	task := &domain.Task{
		OwnerID:     ownerID,
		Title:       input.Title,
		Description: input.Description,
		Priority:    input.Priority,
		DueDate:     input.DueDate,
		CreatedAt:   now,
		UpdatedAt:   now,
	}
	if task.Priority == "" {
		task.Priority = domain.TaskPriorityMedium
	}
	status := input.Status
	if status == "" {
		status = domain.TaskStatusPending
	}
	task.SetStatus(status, now)

	if err := s.tasks.Create(ctx, task); err != nil {
		return nil, storeError(err)
	}

	s.events.publish(ctx, events.NewEvent(events.EventTaskCreated, events.SubjectTask, task.ID, now, events.TaskCreatedPayload{
		OwnerID:  task.OwnerID,
		Title:    task.Title,
		Status:   task.Status,
		Priority: task.Priority,
		DueDate:  task.DueDate,
	}))
	return task, nil
}

// Update replaces title, description, status, priority and due date.
func (s *TaskService) Update(ctx context.Context, id string, input TaskInput) (*domain.Task, error) {
	if err := input.normalize(); err != nil {
		return nil, err
	}

	now := s.clock.Now()
	task, err := s.tasks.UpdateFunc(ctx, id, func(t *domain.Task) error {
		t.Title = input.Title
		t.Description = input.Description
		t.DueDate = input.DueDate
		if input.Priority != "" {
			t.Priority = input.Priority
		}
		status := input.Status
		if status == "" {
			status = t.Status
		}
		t.SetStatus(status, now)
		t.UpdatedAt = now
		return nil
	})
	if err != nil {
		return nil, storeError(err)
	}

	s.events.publish(ctx, events.NewEvent(events.EventTaskUpdated, events.SubjectTask, task.ID, now, events.TaskUpdatedPayload{
		OwnerID:  task.OwnerID,
		Title:    task.Title,
		Status:   task.Status,
		Priority: task.Priority,
	}))
	return task, nil
}

// ChangeStatus sets the status. Any status may follow any other.
func (s *TaskService) ChangeStatus(ctx context.Context, id string, status domain.TaskStatus) (*domain.Task, error) {
	if err := validateStatus(status); err != nil {
		return nil, err
	}

	now := s.clock.Now()
	var previous domain.TaskStatus
	task, err := s.tasks.UpdateFunc(ctx, id, func(t *domain.Task) error {
		previous = t.Status
		t.SetStatus(status, now)
		t.UpdatedAt = now
		return nil
	})
	if err != nil {
		return nil, storeError(err)
	}

	s.events.publish(ctx, events.NewEvent(events.EventTaskStatusChanged, events.SubjectTask, task.ID, now, events.TaskStatusChangedPayload{
		OwnerID:     task.OwnerID,
		OldStatus:   previous,
		NewStatus:   task.Status,
		CompletedAt: task.CompletedAt,
	}))
	return task, nil
}

// Complete marks the task COMPLETED, keeping the first completion instant.
func (s *TaskService) Complete(ctx context.Context, id string) (*domain.Task, error) {
	return s.ChangeStatus(ctx, id, domain.TaskStatusCompleted)
}

// ChangePriority sets the priority.
func (s *TaskService) ChangePriority(ctx context.Context, id string, priority domain.TaskPriority) (*domain.Task, error) {
	if err := validatePriority(priority); err != nil {
		return nil, err
	}

	now := s.clock.Now()
	var previous domain.TaskPriority
	task, err := s.tasks.UpdateFunc(ctx, id, func(t *domain.Task) error {
		previous = t.Priority
		t.Priority = priority
		t.UpdatedAt = now
		return nil
	})
	if err != nil {
		return nil, storeError(err)
	}

	s.events.publish(ctx, events.NewEvent(events.EventTaskPriorityChanged, events.SubjectTask, task.ID, now, events.TaskPriorityChangedPayload{
		OwnerID:     task.OwnerID,
		OldPriority: previous,
		NewPriority: task.Priority,
	}))
	return task, nil
}

// Delete removes a task.
func (s *TaskService) Delete(ctx context.Context, id string) error {
	task, err := s.tasks.GetByID(ctx, id)
	if err != nil {
		return storeError(err)
	}
	if err := s.tasks.Delete(ctx, id); err != nil {
		return storeError(err)
	}

	s.events.publish(ctx, events.NewEvent(events.EventTaskDeleted, events.SubjectTask, task.ID, s.clock.Now(), events.TaskDeletedPayload{
		OwnerID: task.OwnerID,
	}))
	return nil
}

// GetByID returns a task by id.
func (s *TaskService) GetByID(ctx context.Context, id string) (*domain.Task, error) {
	task, err := s.tasks.GetByID(ctx, id)
	return task, storeError(err)
}

// IsOwnedBy reports whether the task belongs to the user. Missing tasks
// report false.
func (s *TaskService) IsOwnedBy(ctx context.Context, taskID, userID string) bool {
	task, err := s.tasks.GetByID(ctx, taskID)
	if err != nil {
		return false
	}
	return task.OwnerID == userID
}
