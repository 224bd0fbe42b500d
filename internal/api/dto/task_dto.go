package dto

import (
	"time"

	"github.com/spec-kit/task-manager/internal/domain"
)

// CreateTaskRequest payload. UserID names the owner.
type CreateTaskRequest struct {
	UserID      string              `json:"user_id"`
	Title       string              `json:"title"`
	Description string              `json:"description"`
	Status      domain.TaskStatus   `json:"status"`
	Priority    domain.TaskPriority `json:"priority"`
	DueDate     *time.Time          `json:"due_date"`
}

// UpdateTaskRequest fully replaces the editable task fields.
type UpdateTaskRequest struct {
	Title       string              `json:"title"`
	Description string              `json:"description"`
	Status      domain.TaskStatus   `json:"status"`
	Priority    domain.TaskPriority `json:"priority"`
	DueDate     *time.Time          `json:"due_date"`
}

// ChangeStatusRequest payload.
type ChangeStatusRequest struct {
	Status domain.TaskStatus `json:"status"`
}

// ChangePriorityRequest payload.
type ChangePriorityRequest struct {
	Priority domain.TaskPriority `json:"priority"`
}

// TaskResponse includes the overdue flag computed at response time.
type TaskResponse struct {
	ID          string              `json:"id"`
	UserID      string              `json:"user_id"`
	Title       string              `json:"title"`
	Description string              `json:"description"`
	Status      domain.TaskStatus   `json:"status"`
	Priority    domain.TaskPriority `json:"priority"`
	DueDate     *time.Time          `json:"due_date"`
	CompletedAt *time.Time          `json:"completed_at"`
	Overdue     bool                `json:"overdue"`
	CreatedAt   time.Time           `json:"created_at"`
	UpdatedAt   time.Time           `json:"updated_at"`
}

// NewTaskResponse maps a domain task.
func NewTaskResponse(task *domain.Task, now time.Time) TaskResponse {
	return TaskResponse{
		ID:          task.ID,
		UserID:      task.OwnerID,
		Title:       task.Title,
		Description: task.Description,
		Status:      task.Status,
		Priority:    task.Priority,
		DueDate:     task.DueDate,
		CompletedAt: task.CompletedAt,
		Overdue:     task.IsOverdue(now),
		CreatedAt:   task.CreatedAt,
		UpdatedAt:   task.UpdatedAt,
	}
}

// NewTaskResponses maps a slice, never returning nil.
func NewTaskResponses(tasks []domain.Task, now time.Time) []TaskResponse {
	out := make([]TaskResponse, 0, len(tasks))
	for i := range tasks {
		out = append(out, NewTaskResponse(&tasks[i], now))
	}
	return out
}

// OwnershipResponse answers the belongs-to check.
type OwnershipResponse struct {
	TaskID string `json:"task_id"`
	UserID string `json:"user_id"`
	Owned  bool   `json:"owned"`
}

// CountResponse wraps a single count.
type CountResponse struct {
	Count int64 `json:"count"`
}

// ExistsResponse wraps an existence check.
type ExistsResponse struct {
	Exists bool `json:"exists"`
}
