package repo

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/shaiso/Dirigent/internal/domain"
)

// ConfigRepo — хранилище определений единиц работы (таблица work_units).
//
// Сериализованные поля dependencies и parameters объявлены в схеме
// как json, не jsonb: jsonb нормализует порядок ключей объекта,
// а порядок параметров — часть контракта и должен пережить запись
// и чтение. При чтении оба поля разбираются в типизированные поля:
// ниже по стеку нетипизированный текст не живёт.
type ConfigRepo struct {
	pool *pgxpool.Pool
}

// NewConfigRepo создаёт новый ConfigRepo.
func NewConfigRepo(pool *pgxpool.Pool) *ConfigRepo {
	return &ConfigRepo{pool: pool}
}

// ReadGroup возвращает все определения группы, включая неактивные.
// Фильтрация активных — обязанность построения графа.
func (r *ConfigRepo) ReadGroup(ctx context.Context, group string) ([]domain.WorkUnit, error) {
	query := `
		SELECT node_name, unit_reference, dependencies, parameters,
		       timeout_seconds, retry_attempts, retry_interval_seconds,
		       active, process_group
		FROM work_units
		WHERE process_group = $1
		ORDER BY node_name
	`
	rows, err := r.pool.Query(ctx, query, group)
	if err != nil {
		return nil, fmt.Errorf("read group: %w", err)
	}
	defer rows.Close()

	var units []domain.WorkUnit
	for rows.Next() {
		unit, err := scanUnit(rows)
		if err != nil {
			return nil, err
		}
		units = append(units, *unit)
	}
	return units, rows.Err()
}

// ReplaceGroup атомарно заменяет определения группы.
//
// Полная замена вместо точечных upsert'ов держит строки группы
// согласованными: наполовину загруженная конфигурация не видна
// ни одному читателю.
func (r *ConfigRepo) ReplaceGroup(ctx context.Context, group string, units []domain.WorkUnit) error {
	tx, err := r.pool.Begin(ctx)
	if err != nil {
		return fmt.Errorf("begin tx: %w", err)
	}
	defer tx.Rollback(ctx)

	if _, err := tx.Exec(ctx,
		`DELETE FROM work_units WHERE process_group = $1`, group,
	); err != nil {
		return fmt.Errorf("delete group: %w", err)
	}

	batch := &pgx.Batch{}
	for i := range units {
		unit := &units[i]

		depsJSON, err := json.Marshal(unit.DependsOn)
		if err != nil {
			return fmt.Errorf("marshal dependencies of %s: %w", unit.Name, err)
		}
		paramsJSON, err := json.Marshal(unit.Params)
		if err != nil {
			return fmt.Errorf("marshal parameters of %s: %w", unit.Name, err)
		}

		batch.Queue(`
			INSERT INTO work_units (node_name, unit_reference, dependencies,
				parameters, timeout_seconds, retry_attempts,
				retry_interval_seconds, active, process_group)
			VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)`,
			unit.Name,
			unit.Reference,
			depsJSON,
			paramsJSON,
			unit.TimeoutSec,
			unit.RetryAttempts,
			unit.RetryIntervalSec,
			unit.Active,
			group,
		)
	}

	results := tx.SendBatch(ctx, batch)
	for range units {
		if _, err := results.Exec(); err != nil {
			results.Close()
			return fmt.Errorf("insert unit: %w", err)
		}
	}
	if err := results.Close(); err != nil {
		return fmt.Errorf("close batch: %w", err)
	}

	return tx.Commit(ctx)
}

// ListGroups возвращает имена всех групп с количеством единиц.
func (r *ConfigRepo) ListGroups(ctx context.Context) (map[string]int, error) {
	rows, err := r.pool.Query(ctx, `
		SELECT process_group, COUNT(*)
		FROM work_units
		GROUP BY process_group
		ORDER BY process_group
	`)
	if err != nil {
		return nil, fmt.Errorf("list groups: %w", err)
	}
	defer rows.Close()

	groups := make(map[string]int)
	for rows.Next() {
		var group string
		var count int
		if err := rows.Scan(&group, &count); err != nil {
			return nil, fmt.Errorf("scan group: %w", err)
		}
		groups[group] = count
	}
	return groups, rows.Err()
}

// scanUnit сканирует одну строку в WorkUnit.
func scanUnit(row pgx.Row) (*domain.WorkUnit, error) {
	var unit domain.WorkUnit
	var depsJSON, paramsJSON []byte

	err := row.Scan(
		&unit.Name,
		&unit.Reference,
		&depsJSON,
		&paramsJSON,
		&unit.TimeoutSec,
		&unit.RetryAttempts,
		&unit.RetryIntervalSec,
		&unit.Active,
		&unit.ProcessGroup,
	)
	if err != nil {
		return nil, fmt.Errorf("scan unit: %w", err)
	}

	if depsJSON != nil {
		if err := json.Unmarshal(depsJSON, &unit.DependsOn); err != nil {
			return nil, fmt.Errorf("unmarshal dependencies of %s: %w", unit.Name, err)
		}
	}
	if paramsJSON != nil {
		if err := json.Unmarshal(paramsJSON, &unit.Params); err != nil {
			return nil, fmt.Errorf("unmarshal parameters of %s: %w", unit.Name, err)
		}
	}
	return &unit, nil
}
