package repository

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/spec-kit/task-manager/internal/domain"
	apperrors "github.com/spec-kit/task-manager/pkg/util"
)

// TaskOrder selects the ordering of task listings.
type TaskOrder string

const (
	// TaskOrderCreation is insertion order and the default.
	TaskOrderCreation     TaskOrder = ""
	TaskOrderCreatedDesc  TaskOrder = "created_desc"
	TaskOrderDueAsc       TaskOrder = "due_asc"
	TaskOrderPriorityDesc TaskOrder = "priority_desc"
)

// Valid reports whether o is a known ordering.
func (o TaskOrder) Valid() bool {
	switch o {
	case TaskOrderCreation, TaskOrderCreatedDesc, TaskOrderDueAsc, TaskOrderPriorityDesc:
		return true
	default:
		return false
	}
}

// TaskFilter narrows task listings. Nil fields do not filter. Range bounds
// named From/To are inclusive, After/Before are exclusive; any due bound
// excludes tasks without a due date. Substring matches are case-insensitive.
type TaskFilter struct {
	OwnerID             *string
	Statuses            []domain.TaskStatus
	ExcludeStatuses     []domain.TaskStatus
	Priorities          []domain.TaskPriority
	TitleContains       *string
	DescriptionContains *string
	SearchTerm          *string
	CreatedFrom         *time.Time
	CreatedTo           *time.Time
	DueFrom             *time.Time
	DueTo               *time.Time
	DueAfter            *time.Time
	DueBefore           *time.Time
	Order               TaskOrder
}

// TaskRepository encapsulates task persistence.
type TaskRepository interface {
	Create(ctx context.Context, task *domain.Task) error
	GetByID(ctx context.Context, id string) (*domain.Task, error)
	// UpdateFunc loads the task, applies fn and persists the result as one atomic step.
	UpdateFunc(ctx context.Context, id string, fn func(*domain.Task) error) (*domain.Task, error)
	Delete(ctx context.Context, id string) error
	Exists(ctx context.Context, id string) (bool, error)
	List(ctx context.Context, filter TaskFilter) ([]domain.Task, error)
	Count(ctx context.Context, filter TaskFilter) (int64, error)
	CountByStatus(ctx context.Context) (map[domain.TaskStatus]int64, error)
	CountByPriority(ctx context.Context) (map[domain.TaskPriority]int64, error)
}

type taskRepository struct {
	pool *pgxpool.Pool
}

// NewTaskRepository instantiates a Postgres-backed repository.
func NewTaskRepository(pool *pgxpool.Pool) TaskRepository {
	return &taskRepository{pool: pool}
}

const taskColumns = `id, owner_id, title, description, status, priority, due_date, completed_at, created_at, updated_at`

func (r *taskRepository) Create(ctx context.Context, task *domain.Task) error {
	const query = `
        INSERT INTO tasks (id, owner_id, title, description, status, priority, due_date, completed_at, created_at, updated_at)
        VALUES ($1,$2,$3,$4,$5,$6,$7,$8,$9,$10)`
	id := uuid.Must(uuid.NewV7()).String()
	_, err := r.pool.Exec(ctx, query,
		id,
		task.OwnerID,
		task.Title,
		task.Description,
		task.Status,
		task.Priority,
		task.DueDate,
		task.CompletedAt,
		task.CreatedAt,
		task.UpdatedAt,
	)
	if err != nil {
		if code, _ := pgErrorCode(err); code == pgForeignKeyViolation {
			return apperrors.NewNotFound("user", task.OwnerID)
		}
		return fmt.Errorf("insert task: %w", err)
	}
	task.ID = id
	return nil
}

func (r *taskRepository) GetByID(ctx context.Context, id string) (*domain.Task, error) {
	task, err := fetchTask(ctx, r.pool, `SELECT `+taskColumns+` FROM tasks WHERE id=$1`, id)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, apperrors.NewNotFound("task", id)
	}
	return task, err
}

func (r *taskRepository) UpdateFunc(ctx context.Context, id string, fn func(*domain.Task) error) (*domain.Task, error) {
	tx, err := r.pool.Begin(ctx)
	if err != nil {
		return nil, err
	}
	defer tx.Rollback(ctx) //nolint:errcheck

	task, err := fetchTask(ctx, tx, `SELECT `+taskColumns+` FROM tasks WHERE id=$1 FOR UPDATE`, id)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, apperrors.NewNotFound("task", id)
		}
		return nil, err
	}
	if err := fn(task); err != nil {
		return nil, err
	}

	const query = `
        UPDATE tasks SET title=$1, description=$2, status=$3, priority=$4, due_date=$5,
            completed_at=$6, updated_at=$7
        WHERE id=$8`
	if _, err := tx.Exec(ctx, query,
		task.Title,
		task.Description,
		task.Status,
		task.Priority,
		task.DueDate,
		task.CompletedAt,
		task.UpdatedAt,
		task.ID,
	); err != nil {
		return nil, fmt.Errorf("update task: %w", err)
	}
	if err := tx.Commit(ctx); err != nil {
		return nil, err
	}
	return task, nil
}

func (r *taskRepository) Delete(ctx context.Context, id string) error {
	cmd, err := r.pool.Exec(ctx, `DELETE FROM tasks WHERE id=$1`, id)
	if err != nil {
		return err
	}
	if cmd.RowsAffected() == 0 {
		return apperrors.NewNotFound("task", id)
	}
	return nil
}

func (r *taskRepository) Exists(ctx context.Context, id string) (bool, error) {
	var exists bool
	err := r.pool.QueryRow(ctx, `SELECT EXISTS(SELECT 1 FROM tasks WHERE id=$1)`, id).Scan(&exists)
	return exists, err
}

func (r *taskRepository) List(ctx context.Context, filter TaskFilter) ([]domain.Task, error) {
	where, args := buildTaskWhere(filter)
	query := fmt.Sprintf(`SELECT %s FROM tasks WHERE %s ORDER BY %s`, taskColumns, where, taskOrderClause(filter.Order))

	rows, err := r.pool.Query(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	return scanTasks(rows)
}

func (r *taskRepository) Count(ctx context.Context, filter TaskFilter) (int64, error) {
	where, args := buildTaskWhere(filter)
	var count int64
	err := r.pool.QueryRow(ctx, `SELECT COUNT(*) FROM tasks WHERE `+where, args...).Scan(&count)
	return count, err
}

func (r *taskRepository) CountByStatus(ctx context.Context) (map[domain.TaskStatus]int64, error) {
	rows, err := r.pool.Query(ctx, `SELECT status, COUNT(*) FROM tasks GROUP BY status`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	counts := make(map[domain.TaskStatus]int64)
	for rows.Next() {
		var status domain.TaskStatus
		var count int64
		if err := rows.Scan(&status, &count); err != nil {
			return nil, err
		}
		counts[status] = count
	}
	return counts, rows.Err()
}

func (r *taskRepository) CountByPriority(ctx context.Context) (map[domain.TaskPriority]int64, error) {
	rows, err := r.pool.Query(ctx, `SELECT priority, COUNT(*) FROM tasks GROUP BY priority`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	counts := make(map[domain.TaskPriority]int64)
	for rows.Next() {
		var priority domain.TaskPriority
		var count int64
		if err := rows.Scan(&priority, &count); err != nil {
			return nil, err
		}
		counts[priority] = count
	}
	return counts, rows.Err()
}

func buildTaskWhere(filter TaskFilter) (string, []any) {
	clauses := []string{"1=1"}
	args := []any{}

	add := func(format string, value any) {
		args = append(args, value)
		clauses = append(clauses, fmt.Sprintf(format, len(args)))
	}

	if filter.OwnerID != nil {
		add("owner_id=$%d", *filter.OwnerID)
	}
	if len(filter.Statuses) > 0 {
		placeholders := make([]string, len(filter.Statuses))
		for i, status := range filter.Statuses {
			args = append(args, status)
			placeholders[i] = fmt.Sprintf("$%d", len(args))
		}
		clauses = append(clauses, fmt.Sprintf("status IN (%s)", strings.Join(placeholders, ",")))
	}
	if len(filter.ExcludeStatuses) > 0 {
		placeholders := make([]string, len(filter.ExcludeStatuses))
		for i, status := range filter.ExcludeStatuses {
			args = append(args, status)
			placeholders[i] = fmt.Sprintf("$%d", len(args))
		}
		clauses = append(clauses, fmt.Sprintf("status NOT IN (%s)", strings.Join(placeholders, ",")))
	}
	if len(filter.Priorities) > 0 {
		placeholders := make([]string, len(filter.Priorities))
		for i, pr := range filter.Priorities {
			args = append(args, pr)
			placeholders[i] = fmt.Sprintf("$%d", len(args))
		}
		clauses = append(clauses, fmt.Sprintf("priority IN (%s)", strings.Join(placeholders, ",")))
	}
	if filter.TitleContains != nil {
		add("LOWER(title) LIKE $%d", escapeLike(*filter.TitleContains))
	}
	if filter.DescriptionContains != nil {
		add("LOWER(description) LIKE $%d", escapeLike(*filter.DescriptionContains))
	}
	if filter.SearchTerm != nil {
		args = append(args, escapeLike(*filter.SearchTerm))
		placeholder := fmt.Sprintf("$%d", len(args))
		clauses = append(clauses, fmt.Sprintf("(LOWER(title) LIKE %s OR LOWER(description) LIKE %s)", placeholder, placeholder))
	}
	if filter.CreatedFrom != nil {
		add("created_at >= $%d", *filter.CreatedFrom)
	}
	if filter.CreatedTo != nil {
		add("created_at <= $%d", *filter.CreatedTo)
	}
	if filter.DueFrom != nil {
		add("due_date >= $%d", *filter.DueFrom)
	}
	if filter.DueTo != nil {
		add("due_date <= $%d", *filter.DueTo)
	}
	if filter.DueAfter != nil {
		add("due_date > $%d", *filter.DueAfter)
	}
	if filter.DueBefore != nil {
		add("due_date < $%d", *filter.DueBefore)
	}
	return strings.Join(clauses, " AND "), args
}

func taskOrderClause(order TaskOrder) string {
	switch order {
	case TaskOrderCreatedDesc:
		return "created_at DESC, seq DESC"
	case TaskOrderDueAsc:
		return "due_date ASC NULLS LAST, seq ASC"
	case TaskOrderPriorityDesc:
		return `CASE priority WHEN 'URGENT' THEN 4 WHEN 'HIGH' THEN 3 WHEN 'MEDIUM' THEN 2 WHEN 'LOW' THEN 1 ELSE 0 END DESC, seq ASC`
	default:
		return "seq ASC"
	}
}

func fetchTask(ctx context.Context, q querier, query string, arg any) (*domain.Task, error) {
	var task domain.Task
	if err := q.QueryRow(ctx, query, arg).Scan(
		&task.ID,
		&task.OwnerID,
		&task.Title,
		&task.Description,
		&task.Status,
		&task.Priority,
		&task.DueDate,
		&task.CompletedAt,
		&task.CreatedAt,
		&task.UpdatedAt,
	); err != nil {
		return nil, err
	}
	return &task, nil
}

func scanTasks(rows pgx.Rows) ([]domain.Task, error) {
	result := []domain.Task{}
	for rows.Next() {
		var task domain.Task
		if err := rows.Scan(
			&task.ID,
			&task.OwnerID,
			&task.Title,
			&task.Description,
			&task.Status,
			&task.Priority,
			&task.DueDate,
			&task.CompletedAt,
			&task.CreatedAt,
			&task.UpdatedAt,
		); err != nil {
			return nil, err
		}
		result = append(result, task)
	}
	return result, rows.Err()
}
