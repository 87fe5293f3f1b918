package postgres

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/phrazzld/audiobrief/internal/domain"
	"github.com/phrazzld/audiobrief/internal/platform/logger"
	"github.com/phrazzld/audiobrief/internal/store"
)

const taskColumns = `id, query, fingerprint, status, result, error_message, determinable,
	title, author, chat_id, attempts, created_at, updated_at, completed_at`

// inFlightStatuses mirrors the predicate of idx_tasks_fingerprint_in_flight.
const inFlightStatuses = `('pending', 'processing', 'processing_timeout')`

// PostgresTaskStore implements store.TaskStore using PostgreSQL.
type PostgresTaskStore struct {
	db *sql.DB
}

var _ store.TaskStore = (*PostgresTaskStore)(nil)

// NewPostgresTaskStore creates a new PostgresTaskStore.
func NewPostgresTaskStore(db *sql.DB) *PostgresTaskStore {
	return &PostgresTaskStore{db: db}
}

// Create inserts a new task.
func (s *PostgresTaskStore) Create(ctx context.Context, task *domain.Task) error {
	log := logger.FromContext(ctx)

	if err := task.Validate(); err != nil {
		return fmt.Errorf("%w: %v", store.ErrInvalidEntity, err)
	}

	result, err := marshalResult(task.Result)
	if err != nil {
		return err
	}

	query := `
		INSERT INTO tasks (` + taskColumns + `)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14)
	`
	_, err = s.db.ExecContext(ctx, query,
		task.ID,
		task.Query,
		task.Fingerprint,
		string(task.Status),
		result,
		nullString(task.Error),
		nullBool(task.Determinable),
		task.Title,
		task.Author,
		task.ChatID,
		task.Attempts,
		task.CreatedAt,
		task.UpdatedAt,
		nullTime(task.CompletedAt),
	)
	if err != nil {
		if IsUniqueViolation(err) {
			log.Debug("in-flight task already exists for fingerprint",
				"fingerprint", task.Fingerprint)
			return fmt.Errorf("%w: in-flight task for %q", store.ErrDuplicate, task.Fingerprint)
		}
		log.Error("failed to create task",
			"task_id", task.ID,
			"error", err)
		return store.NewStoreError("task", "create", "failed to create task", MapError(err))
	}
	return nil
}

// GetByID returns the task with the given ID.
func (s *PostgresTaskStore) GetByID(ctx context.Context, id uuid.UUID) (*domain.Task, error) {
	query := `SELECT ` + taskColumns + ` FROM tasks WHERE id = $1`
	return s.getOne(ctx, s.db, query, id)
}

// GetActiveByFingerprint returns the in-flight task holding the fingerprint.
func (s *PostgresTaskStore) GetActiveByFingerprint(
	ctx context.Context,
	fingerprint string,
) (*domain.Task, error) {
	query := `
		SELECT ` + taskColumns + `
		FROM tasks
		WHERE fingerprint = $1 AND status IN ` + inFlightStatuses + `
		LIMIT 1
	`
	return s.getOne(ctx, s.db, query, fingerprint)
}

// GetLatestByFingerprint returns the newest task for the fingerprint.
func (s *PostgresTaskStore) GetLatestByFingerprint(
	ctx context.Context,
	fingerprint string,
) (*domain.Task, error) {
	query := `
		SELECT ` + taskColumns + `
		FROM tasks
		WHERE fingerprint = $1
		ORDER BY created_at DESC
		LIMIT 1
	`
	return s.getOne(ctx, s.db, query, fingerprint)
}

// Update persists the mutable fields of a task.
func (s *PostgresTaskStore) Update(ctx context.Context, task *domain.Task) error {
	return s.update(ctx, s.db, task)
}

// Mutate locks the task row, applies fn and writes the result back in one
// transaction.
func (s *PostgresTaskStore) Mutate(
	ctx context.Context,
	id uuid.UUID,
	fn func(task *domain.Task) error,
) (*domain.Task, error) {
	var mutated *domain.Task
	err := store.RunInTransaction(ctx, s.db, func(ctx context.Context, tx *sql.Tx) error {
		query := `SELECT ` + taskColumns + ` FROM tasks WHERE id = $1 FOR UPDATE`
		task, err := s.getOne(ctx, tx, query, id)
		if err != nil {
			return err
		}
		if err := fn(task); err != nil {
			return err
		}
		if err := s.update(ctx, tx, task); err != nil {
			return err
		}
		mutated = task
		return nil
	})
	if err != nil {
		return nil, err
	}
	return mutated, nil
}

// ListByStatus returns tasks in status whose updated_at is older than olderThan.
func (s *PostgresTaskStore) ListByStatus(
	ctx context.Context,
	status domain.TaskStatus,
	olderThan time.Duration,
) ([]*domain.Task, error) {
	log := logger.FromContext(ctx)

	var query string
	var args []any
	if olderThan > 0 {
		query = `
			SELECT ` + taskColumns + `
			FROM tasks
			WHERE status = $1 AND updated_at < $2
			ORDER BY created_at ASC
		`
		args = []any{string(status), time.Now().UTC().Add(-olderThan)}
	} else {
		query = `
			SELECT ` + taskColumns + `
			FROM tasks
			WHERE status = $1
			ORDER BY created_at ASC
		`
		args = []any{string(status)}
	}

	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		log.Error("failed to query tasks by status",
			"status", status,
			"error", err)
		return nil, store.NewStoreError("task", "list", "failed to query tasks by status", MapError(err))
	}
	defer func() { _ = rows.Close() }()

	var tasks []*domain.Task
	for rows.Next() {
		task, err := scanTask(rows)
		if err != nil {
			return nil, store.NewStoreError("task", "list", "failed to scan task row", err)
		}
		tasks = append(tasks, task)
	}
	if err := rows.Err(); err != nil {
		return nil, store.NewStoreError("task", "list", "error iterating task rows", MapError(err))
	}
	return tasks, nil
}

func (s *PostgresTaskStore) getOne(
	ctx context.Context,
	db store.DBTX,
	query string,
	args ...any,
) (*domain.Task, error) {
	task, err := scanTask(db.QueryRowContext(ctx, query, args...))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, store.ErrTaskNotFound
		}
		logger.FromContext(ctx).Error("failed to load task", "error", err)
		return nil, store.NewStoreError("task", "get", "failed to load task", MapError(err))
	}
	return task, nil
}

func (s *PostgresTaskStore) update(ctx context.Context, db store.DBTX, task *domain.Task) error {
	if err := task.Validate(); err != nil {
		return fmt.Errorf("%w: %v", store.ErrInvalidEntity, err)
	}

	result, err := marshalResult(task.Result)
	if err != nil {
		return err
	}

	query := `
		UPDATE tasks
		SET status = $1, result = $2, error_message = $3, determinable = $4,
			title = $5, author = $6, attempts = $7, updated_at = $8, completed_at = $9
		WHERE id = $10
	`
	res, err := db.ExecContext(ctx, query,
		string(task.Status),
		result,
		nullString(task.Error),
		nullBool(task.Determinable),
		task.Title,
		task.Author,
		task.Attempts,
		task.UpdatedAt,
		nullTime(task.CompletedAt),
		task.ID,
	)
	if err != nil {
		logger.FromContext(ctx).Error("failed to update task",
			"task_id", task.ID,
			"status", task.Status,
			"error", err)
		return store.NewStoreError("task", "update", "failed to update task", MapError(err))
	}
	return CheckRowsAffected(res, store.ErrTaskNotFound)
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanTask(row rowScanner) (*domain.Task, error) {
	var (
		task         domain.Task
		status       string
		result       []byte
		errorMessage sql.NullString
		determinable sql.NullBool
		completedAt  sql.NullTime
	)

	err := row.Scan(
		&task.ID,
		&task.Query,
		&task.Fingerprint,
		&status,
		&result,
		&errorMessage,
		&determinable,
		&task.Title,
		&task.Author,
		&task.ChatID,
		&task.Attempts,
		&task.CreatedAt,
		&task.UpdatedAt,
		&completedAt,
	)
	if err != nil {
		return nil, err
	}

	task.Status = domain.TaskStatus(status)
	task.Error = errorMessage.String
	if determinable.Valid {
		v := determinable.Bool
		task.Determinable = &v
	}
	if completedAt.Valid {
		t := completedAt.Time
		task.CompletedAt = &t
	}
	if len(result) > 0 {
		var r domain.Result
		if err := json.Unmarshal(result, &r); err != nil {
			return nil, fmt.Errorf("decode task result: %w", err)
		}
		task.Result = &r
	}
	return &task, nil
}

func marshalResult(result *domain.Result) ([]byte, error) {
	if result == nil {
		return nil, nil
	}
	data, err := json.Marshal(result)
	if err != nil {
		return nil, fmt.Errorf("encode task result: %w", err)
	}
	return data, nil
}

func nullString(s string) sql.NullString {
	return sql.NullString{String: s, Valid: s != ""}
}

func nullBool(b *bool) sql.NullBool {
	if b == nil {
		return sql.NullBool{}
	}
	return sql.NullBool{Bool: *b, Valid: true}
}

func nullTime(t *time.Time) sql.NullTime {
	if t == nil {
		return sql.NullTime{}
	}
	return sql.NullTime{Time: *t, Valid: true}
}
