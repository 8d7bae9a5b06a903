package repo

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/shaiso/Dirigent/internal/domain"
)

// LogRepo — durable-журнал выполнения (таблица execution_log).
//
// Таблица append-only: ни UPDATE, ни DELETE репозиторий не выполняет.
// Порядок добавления фиксируется колонкой id (bigserial).
type LogRepo struct {
	pool *pgxpool.Pool
}

// NewLogRepo создаёт новый LogRepo.
func NewLogRepo(pool *pgxpool.Pool) *LogRepo {
	return &LogRepo{pool: pool}
}

// Append дописывает запись в журнал.
// Единственный быстрый повтор при обрыве соединения разрешён контрактом
// журнала; устойчивая ошибка уходит оркестратору как фатальная.
func (r *LogRepo) Append(ctx context.Context, rec domain.ExecutionRecord) error {
	err := r.insert(ctx, rec)
	if err == nil {
		return nil
	}

	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) {
		// Ошибка сервера (constraint, тип) повтором не лечится.
		return err
	}
	return r.insert(ctx, rec)
}

func (r *LogRepo) insert(ctx context.Context, rec domain.ExecutionRecord) error {
	query := `
		INSERT INTO execution_log (run_id, process_group, node_name,
			attempt_number, started_at, ended_at, status, error_message)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8)
	`
	_, err := r.pool.Exec(ctx, query,
		rec.RunID,
		rec.ProcessGroup,
		rec.NodeName,
		rec.AttemptNumber,
		rec.StartedAt,
		rec.EndedAt,
		rec.Status,
		nullString(rec.ErrorMessage),
	)
	if err != nil {
		return fmt.Errorf("insert execution record: %w", err)
	}
	return nil
}

// Ping проверяет доступность журнала.
func (r *LogRepo) Ping(ctx context.Context) error {
	pingCtx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()
	return r.pool.Ping(pingCtx)
}

// LogFilter — параметры выборки из журнала.
type LogFilter struct {
	RunID *uuid.UUID
	Group string
	Node  string
	Limit int
}

// List возвращает записи журнала в порядке добавления.
func (r *LogRepo) List(ctx context.Context, filter LogFilter) ([]domain.ExecutionRecord, error) {
	limit := filter.Limit
	if limit <= 0 {
		limit = 100
	}

	query := `
		SELECT run_id, process_group, node_name, attempt_number,
		       started_at, ended_at, status, error_message
		FROM execution_log
		WHERE ($1::uuid IS NULL OR run_id = $1)
		  AND ($2::text IS NULL OR process_group = $2)
		  AND ($3::text IS NULL OR node_name = $3)
		ORDER BY id
		LIMIT $4
	`
	rows, err := r.pool.Query(ctx, query,
		filter.RunID,
		nullString(filter.Group),
		nullString(filter.Node),
		limit,
	)
	if err != nil {
		return nil, fmt.Errorf("list execution records: %w", err)
	}
	defer rows.Close()

	var records []domain.ExecutionRecord
	for rows.Next() {
		rec, err := scanRecord(rows)
		if err != nil {
			return nil, err
		}
		records = append(records, *rec)
	}
	return records, rows.Err()
}

// scanRecord сканирует одну строку журнала.
func scanRecord(row pgx.Row) (*domain.ExecutionRecord, error) {
	var rec domain.ExecutionRecord
	var errorMessage *string

	err := row.Scan(
		&rec.RunID,
		&rec.ProcessGroup,
		&rec.NodeName,
		&rec.AttemptNumber,
		&rec.StartedAt,
		&rec.EndedAt,
		&rec.Status,
		&errorMessage,
	)
	if err != nil {
		return nil, fmt.Errorf("scan execution record: %w", err)
	}
	if errorMessage != nil {
		rec.ErrorMessage = *errorMessage
	}
	return &rec, nil
}

// nullString возвращает nil для пустой строки (NULL в БД).
func nullString(s string) *string {
	if s == "" {
		return nil
	}
	return &s
}
