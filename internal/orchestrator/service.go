package orchestrator

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/shaiso/Dirigent/internal/domain"
	"github.com/shaiso/Dirigent/internal/engine"
	"github.com/shaiso/Dirigent/internal/pool"
)

// Service — композиционный корень для CLI и daemon'а.
//
// Каждый коллаборатор внедряется явно через узкий интерфейс;
// общего фасада, владеющего всеми менеджерами, нет намеренно.
// Runs необязателен: без него запуски просто не попадают в реестр.
type Service struct {
	// Store — источник определений единиц работы.
	Store ConfigReader

	// Log — журнал выполнения.
	Log ExecutionLog

	// Runner выполняет попытки.
	Runner TaskRunner

	// Runs — реестр запусков (опционально).
	Runs RunRecorder

	// Logger (опционально; если nil — slog.Default()).
	Logger *slog.Logger
}

// RunOptions — параметры одного запуска.
type RunOptions struct {
	// MaxParallelism — ограничение параллелизма (0 — default).
	MaxParallelism int

	// Source — инициатор запуска для реестра: "cli", "schedule", "mq".
	Source string
}

// RunGroup читает определения группы, строит граф и выполняет его.
//
// Ошибки валидации конфигурации возвращаются до каких-либо побочных
// эффектов. Падение части узлов — не ошибка: смотрите RunResult.Status.
func (s *Service) RunGroup(ctx context.Context, group string, opts RunOptions) (*RunResult, error) {
	if s.Store == nil {
		return nil, ErrNoStore
	}

	logger := s.logger()

	defs, err := s.Store.ReadGroup(ctx, group)
	if err != nil {
		return nil, fmt.Errorf("read group %s: %w", group, err)
	}

	dag, err := engine.Build(defs, group)
	if err != nil {
		return nil, err
	}

	run := domain.NewRun(group, opts.Source)
	if s.Runs != nil {
		if err := s.Runs.Create(ctx, run); err != nil {
			return nil, fmt.Errorf("%w: register run: %v", ErrSchedulingFatal, err)
		}
		run.MarkRunning()
		if err := s.Runs.Update(ctx, run); err != nil {
			logger.Warn("failed to mark run running", "run_id", run.ID, "error", err)
		}
	}

	orch := New(Config{
		Runner:         s.Runner,
		Log:            s.Log,
		MaxParallelism: opts.MaxParallelism,
		Logger:         logger,
	})

	result, runErr := orch.RunWithID(ctx, dag, run.ID)

	if s.Runs != nil && result != nil {
		errMsg := ""
		if runErr != nil {
			errMsg = runErr.Error()
		}
		run.MarkFinished(result.Status, errMsg)
		// Реестр вторичен по отношению к журналу: сбой финализации
		// не меняет исход запуска.
		if err := s.Runs.Update(context.WithoutCancel(ctx), run); err != nil {
			logger.Warn("failed to finalize run row", "run_id", run.ID, "error", err)
		}
	}

	return result, runErr
}

// GroupResult — итог запуска одной группы внутри RunGroups.
type GroupResult struct {
	// Group — имя группы.
	Group string

	// Result — итог запуска (nil при ошибке построения графа).
	Result *RunResult

	// Err — ошибка чтения, валидации или фатального сбоя.
	Err error
}

// RunGroups выполняет несколько независимых групп с ограниченным
// параллелизмом самих групп. Ошибка одной группы не мешает остальным;
// порядок результатов совпадает с порядком аргументов.
func (s *Service) RunGroups(ctx context.Context, groups []string, groupParallelism int, opts RunOptions) []GroupResult {
	jobs := make([]pool.Job[*RunResult], len(groups))
	for i, group := range groups {
		group := group
		jobs[i] = func(ctx context.Context) (*RunResult, error) {
			return s.RunGroup(ctx, group, opts)
		}
	}

	collected := pool.Collect(ctx, groupParallelism, jobs)

	results := make([]GroupResult, len(groups))
	for i, res := range collected {
		results[i] = GroupResult{
			Group:  groups[i],
			Result: res.Value,
			Err:    res.Err,
		}
	}
	return results
}

// Validate строит граф группы без выполнения и возвращает его снимок.
func (s *Service) Validate(ctx context.Context, group string) (*engine.Snapshot, error) {
	if s.Store == nil {
		return nil, ErrNoStore
	}

	defs, err := s.Store.ReadGroup(ctx, group)
	if err != nil {
		return nil, fmt.Errorf("read group %s: %w", group, err)
	}

	dag, err := engine.Build(defs, group)
	if err != nil {
		return nil, err
	}

	snap := dag.Snapshot()
	return &snap, nil
}

func (s *Service) logger() *slog.Logger {
	if s.Logger != nil {
		return s.Logger
	}
	return slog.Default()
}
