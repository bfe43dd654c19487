package repositories

import (
	"database/sql"
	"fmt"
	"time"

	"github.com/desertthunder/releaseradar/internal/models"
	"github.com/desertthunder/releaseradar/internal/shared"
)

// ExecutionLogRepository handles persistence for run outcome records.
//
// The log is append-only; there are deliberately no update or delete methods.
type ExecutionLogRepository struct {
	db *sql.DB
}

// NewExecutionLogRepository creates a new [ExecutionLogRepository] with the given database connection
func NewExecutionLogRepository(db *sql.DB) *ExecutionLogRepository {
	return &ExecutionLogRepository{db: db}
}

// Insert appends a run outcome record with a generated ID
func (r *ExecutionLogRepository) Insert(entry *models.ExecutionLog) error {
	id := shared.GenerateID()
	entry.SetID(id)

	if err := entry.Validate(); err != nil {
		return fmt.Errorf("validation failed: %w", err)
	}

	query := `
		INSERT INTO execution_log (id, execution_time, status, duration_ms, error, created_at)
		VALUES (?, ?, ?, ?, ?, ?)
	`

	_, err := r.db.Exec(query,
		id,
		entry.ExecutionTime(),
		string(entry.Status()),
		entry.DurationMS(),
		entry.Error(),
		entry.CreatedAt(),
	)
	if err != nil {
		return fmt.Errorf("failed to insert execution log: %w", err)
	}

	return nil
}

// Latest retrieves the most recent run record by execution time.
// Returns (nil, nil) when the log is empty.
func (r *ExecutionLogRepository) Latest() (*models.ExecutionLog, error) {
	query := `
		SELECT id, execution_time, status, duration_ms, error, created_at
		FROM execution_log
		ORDER BY execution_time DESC
		LIMIT 1
	`

	var (
		id            string
		executionTime time.Time
		status        string
		durationMS    int64
		errMsg        string
		createdAt     time.Time
	)

	err := r.db.QueryRow(query).Scan(&id, &executionTime, &status, &durationMS, &errMsg, &createdAt)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to scan execution log: %w", err)
	}

	entry := models.NewExecutionLog(executionTime, models.RunStatus(status), time.Duration(durationMS)*time.Millisecond)
	entry.SetID(id)
	entry.SetError(errMsg)
	entry.SetCreatedAt(createdAt)

	return entry, nil
}

// EnsureIndex creates the execution-time index used by [Latest] if it is missing
func (r *ExecutionLogRepository) EnsureIndex() error {
	query := `CREATE INDEX IF NOT EXISTS idx_execution_log_execution_time ON execution_log (execution_time)`

	if _, err := r.db.Exec(query); err != nil {
		return fmt.Errorf("failed to create execution log index: %w", err)
	}

	return nil
}
