package events

import (
	"time"

	"github.com/google/uuid"

	"github.com/spec-kit/task-manager/internal/domain"
)

// EventType enumerates supported event identifiers.
type EventType string

const (
	EventTaskCreated         EventType = "task_created"
	EventTaskUpdated         EventType = "task_updated"
	EventTaskStatusChanged   EventType = "task_status_changed"
	EventTaskPriorityChanged EventType = "task_priority_changed"
	EventTaskDeleted         EventType = "task_deleted"
	EventUserCreated         EventType = "user_created"
	EventUserUpdated         EventType = "user_updated"
	EventUserDeleted         EventType = "user_deleted"
)

// AllEventTypes lists every type a subscriber can register for.
var AllEventTypes = []EventType{
	EventTaskCreated,
	EventTaskUpdated,
	EventTaskStatusChanged,
	EventTaskPriorityChanged,
	EventTaskDeleted,
	EventUserCreated,
	EventUserUpdated,
	EventUserDeleted,
}

// Subject identifies the kind of entity an event refers to.
type Subject string

const (
	SubjectTask Subject = "task"
	SubjectUser Subject = "user"
)

// Event represents a domain event emitted by services after a successful write.
type Event struct {
	ID        string    `json:"id"`
	Type      EventType `json:"type"`
	Subject   Subject   `json:"subject"`
	SubjectID string    `json:"subject_id"`
	Timestamp time.Time `json:"timestamp"`
	Payload   any       `json:"payload,omitempty"`
}

// NewEvent stamps an event with a fresh time-ordered id.
func NewEvent(eventType EventType, subject Subject, subjectID string, at time.Time, payload any) Event {
	return Event{
		ID:        uuid.Must(uuid.NewV7()).String(),
		Type:      eventType,
		Subject:   subject,
		SubjectID: subjectID,
		Timestamp: at,
		Payload:   payload,
	}
}

// TaskCreatedPayload payload.
type TaskCreatedPayload struct {
	OwnerID  string              `json:"owner_id"`
	Title    string              `json:"title"`
	Status   domain.TaskStatus   `json:"status"`
	Priority domain.TaskPriority `json:"priority"`
	DueDate  *time.Time          `json:"due_date,omitempty"`
}

// TaskUpdatedPayload carries the task state after a full update.
type TaskUpdatedPayload struct {
	OwnerID  string              `json:"owner_id"`
	Title    string              `json:"title"`
	Status   domain.TaskStatus   `json:"status"`
	Priority domain.TaskPriority `json:"priority"`
}

// TaskStatusChangedPayload payload.
type TaskStatusChangedPayload struct {
	OwnerID     string            `json:"owner_id"`
	OldStatus   domain.TaskStatus `json:"old_status"`
	NewStatus   domain.TaskStatus `json:"new_status"`
	CompletedAt *time.Time        `json:"completed_at,omitempty"`
}

// TaskPriorityChangedPayload payload.
type TaskPriorityChangedPayload struct {
	OwnerID     string              `json:"owner_id"`
	OldPriority domain.TaskPriority `json:"old_priority"`
	NewPriority domain.TaskPriority `json:"new_priority"`
}

// TaskDeletedPayload payload.
type TaskDeletedPayload struct {
	OwnerID string `json:"owner_id"`
}

// UserPayload describes a user in user_* events. Credentials are never included.
type UserPayload struct {
	Username string          `json:"username"`
	Email    string          `json:"email"`
	Role     domain.UserRole `json:"role"`
	Enabled  bool            `json:"enabled"`
}
