package repo

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/cain76/finderskeepers-v2-sub001/internal/domain"
)

// HistoryRepo — архив урегулированных batch'ей.
// Реализует sched.Archiver: запись добавляется один раз после settle
// и больше не меняется.
type HistoryRepo struct {
	pool *pgxpool.Pool
}

// NewHistoryRepo создаёт новый HistoryRepo.
func NewHistoryRepo(pool *pgxpool.Pool) *HistoryRepo {
	return &HistoryRepo{pool: pool}
}

// ArchiveBatch записывает итоги batch и его tasks в одной транзакции.
func (r *HistoryRepo) ArchiveBatch(ctx context.Context, record domain.BatchRecord) error {
	configJSON, err := json.Marshal(record.Batch.Config)
	if err != nil {
		return fmt.Errorf("marshal config: %w", err)
	}

	settledAt := time.Now()
	if record.Batch.SettledAt != nil {
		settledAt = *record.Batch.SettledAt
	}

	tx, err := r.pool.Begin(ctx)
	if err != nil {
		return fmt.Errorf("begin tx: %w", err)
	}
	defer tx.Rollback(ctx)

	query := `
		INSERT INTO batch_history (id, name, config, task_count, completed, failed, cancelled, created_at, settled_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)
		ON CONFLICT (id) DO NOTHING
	`
	_, err = tx.Exec(ctx, query,
		record.Batch.ID,
		record.Batch.Name,
		configJSON,
		record.Batch.TaskCount,
		record.Summary.Completed,
		record.Summary.Failed,
		record.Summary.Cancelled,
		record.Batch.CreatedAt,
		settledAt,
	)
	if err != nil {
		return fmt.Errorf("insert batch history: %w", err)
	}

	taskQuery := `
		INSERT INTO batch_history_tasks (id, batch_id, seq, name, task_type, status, attempts, last_error)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8)
		ON CONFLICT (id) DO NOTHING
	`
	for seq, t := range record.Tasks {
		_, err = tx.Exec(ctx, taskQuery,
			t.TaskID,
			record.Batch.ID,
			seq,
			t.Name,
			t.Type,
			t.Status,
			t.Attempt,
			nullString(t.LastError),
		)
		if err != nil {
			return fmt.Errorf("insert task history: %w", err)
		}
	}

	return tx.Commit(ctx)
}

// ListRecent возвращает последние урегулированные batch'и (без tasks).
func (r *HistoryRepo) ListRecent(ctx context.Context, limit int) ([]domain.BatchRecord, error) {
	if limit <= 0 {
		limit = 50
	}

	query := `
		SELECT id, name, config, task_count, completed, failed, cancelled, created_at, settled_at
		FROM batch_history
		ORDER BY settled_at DESC
		LIMIT $1
	`
	rows, err := r.pool.Query(ctx, query, limit)
	if err != nil {
		return nil, fmt.Errorf("list history: %w", err)
	}
	defer rows.Close()

	var records []domain.BatchRecord
	for rows.Next() {
		record, err := scanBatchRow(rows)
		if err != nil {
			return nil, err
		}
		records = append(records, *record)
	}
	return records, rows.Err()
}

// GetByID возвращает архивную запись batch вместе с tasks.
func (r *HistoryRepo) GetByID(ctx context.Context, id uuid.UUID) (*domain.BatchRecord, error) {
	query := `
		SELECT id, name, config, task_count, completed, failed, cancelled, created_at, settled_at
		FROM batch_history
		WHERE id = $1
	`
	record, err := scanBatchRow(r.pool.QueryRow(ctx, query, id))
	if err != nil {
		return nil, err
	}

	taskQuery := `
		SELECT id, name, task_type, status, attempts, last_error
		FROM batch_history_tasks
		WHERE batch_id = $1
		ORDER BY seq ASC
	`
	rows, err := r.pool.Query(ctx, taskQuery, id)
	if err != nil {
		return nil, fmt.Errorf("list history tasks: %w", err)
	}
	defer rows.Close()

	for rows.Next() {
		var snap domain.TaskSnapshot
		var lastError *string

		err := rows.Scan(
			&snap.TaskID,
			&snap.Name,
			&snap.Type,
			&snap.Status,
			&snap.Attempt,
			&lastError,
		)
		if err != nil {
			return nil, fmt.Errorf("scan task history: %w", err)
		}

		if lastError != nil {
			snap.LastError = *lastError
		}
		if snap.Status == domain.TaskStatusCompleted {
			snap.Progress = 100
		}

		record.Tasks = append(record.Tasks, snap)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}

	return record, nil
}

// scanBatchRow сканирует строку batch_history в BatchRecord (без tasks).
func scanBatchRow(row pgx.Row) (*domain.BatchRecord, error) {
	var record domain.BatchRecord
	var configJSON []byte
	var settledAt time.Time

	err := row.Scan(
		&record.Batch.ID,
		&record.Batch.Name,
		&configJSON,
		&record.Batch.TaskCount,
		&record.Summary.Completed,
		&record.Summary.Failed,
		&record.Summary.Cancelled,
		&record.Batch.CreatedAt,
		&settledAt,
	)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("scan batch history: %w", err)
	}

	if err := json.Unmarshal(configJSON, &record.Batch.Config); err != nil {
		return nil, fmt.Errorf("unmarshal config: %w", err)
	}

	record.Batch.Status = domain.BatchStatusSettled
	record.Batch.SettledAt = &settledAt

	return &record, nil
}

// nullString возвращает nil для пустой строки (NULL в БД).
func nullString(s string) *string {
	if s == "" {
		return nil
	}
	return &s
}
