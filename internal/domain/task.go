package domain

import "time"

// TaskStatus enumerates lifecycle states for tasks.
type TaskStatus string

const (
	TaskStatusPending    TaskStatus = "PENDING"
	TaskStatusInProgress TaskStatus = "IN_PROGRESS"
	TaskStatusCompleted  TaskStatus = "COMPLETED"
	TaskStatusCancelled  TaskStatus = "CANCELLED"
)

// TaskStatuses lists every status in declaration order.
var TaskStatuses = []TaskStatus{
	TaskStatusPending,
	TaskStatusInProgress,
	TaskStatusCompleted,
	TaskStatusCancelled,
}

// Valid reports whether s is a known status.
func (s TaskStatus) Valid() bool {
	switch s {
	case TaskStatusPending, TaskStatusInProgress, TaskStatusCompleted, TaskStatusCancelled:
		return true
	default:
		return false
	}
}

// TaskPriority enumerates task urgency.
type TaskPriority string

const (
	TaskPriorityLow    TaskPriority = "LOW"
	TaskPriorityMedium TaskPriority = "MEDIUM"
	TaskPriorityHigh   TaskPriority = "HIGH"
	TaskPriorityUrgent TaskPriority = "URGENT"
)

// TaskPriorities lists every priority from least to most urgent.
var TaskPriorities = []TaskPriority{
	TaskPriorityLow,
	TaskPriorityMedium,
	TaskPriorityHigh,
	TaskPriorityUrgent,
}

// Valid reports whether p is a known priority.
func (p TaskPriority) Valid() bool {
	return p.Rank() > 0
}

// Rank orders priorities by urgency; unknown values rank 0.
func (p TaskPriority) Rank() int {
	switch p {
	case TaskPriorityLow:
		return 1
	case TaskPriorityMedium:
		return 2
	case TaskPriorityHigh:
		return 3
	case TaskPriorityUrgent:
		return 4
	default:
		return 0
	}
}

const (
	MaxTitleLength       = 200
	MaxDescriptionLength = 1000
)

// Task is a unit of work owned by exactly one user.
type Task struct {
	ID          string
	OwnerID     string
	Title       string
	Description string
	Status      TaskStatus
	Priority    TaskPriority
	DueDate     *time.Time
	CompletedAt *time.Time
	CreatedAt   time.Time
	UpdatedAt   time.Time
}

// SetStatus writes the status and keeps CompletedAt in step with it.
// CompletedAt is set only on the first transition into COMPLETED and is
// cleared by any other status.
func (t *Task) SetStatus(status TaskStatus, now time.Time) {
	t.Status = status
	switch status {
	case TaskStatusCompleted:
		if t.CompletedAt == nil {
			completed := now
			t.CompletedAt = &completed
		}
	default:
		t.CompletedAt = nil
	}
}

// IsOverdue reports whether the due date has passed and the task is not completed.
func (t *Task) IsOverdue(now time.Time) bool {
	if t.DueDate == nil {
		return false
	}
	switch t.Status {
	case TaskStatusCompleted:
		return false
	default:
		return now.After(*t.DueDate)
	}
}

// IsDueWithin reports whether the task is not completed and due in (now, now+window].
func (t *Task) IsDueWithin(now time.Time, window time.Duration) bool {
	if t.DueDate == nil || window < 0 || t.Status == TaskStatusCompleted {
		return false
	}
	due := *t.DueDate
	return due.After(now) && !due.After(now.Add(window))
}
