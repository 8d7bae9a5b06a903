package cli

import (
	"context"
	"log/slog"

	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/shaiso/Dirigent/internal/config"
	"github.com/shaiso/Dirigent/internal/orchestrator"
	"github.com/shaiso/Dirigent/internal/repo"
)

// deps — коллабораторы команды, собранные из флагов.
//
// CLI работает в двух режимах: file-only (--file, журнал в памяти)
// и Postgres (DB_URL). Каждая команда собирает ровно те зависимости,
// которые ей нужны, и закрывает их через cleanup.
type deps struct {
	store   orchestrator.ConfigReader
	log     orchestrator.ExecutionLog
	memLog  *repo.MemoryLog // не-nil в file-only режиме
	runs    orchestrator.RunRecorder
	pool    *pgxpool.Pool // не-nil в Postgres-режиме
	cleanup func()
}

// openDeps собирает коллабораторов: файл определений, если задан
// definitionsFile, иначе Postgres по DB_URL.
func openDeps(ctx context.Context, definitionsFile string) (*deps, error) {
	if definitionsFile != "" {
		memLog := repo.NewMemoryLog()
		return &deps{
			store:   config.NewFileStore(definitionsFile),
			log:     memLog,
			memLog:  memLog,
			cleanup: func() {},
		}, nil
	}

	pool, err := repo.NewPool(ctx)
	if err != nil {
		return nil, err
	}
	return &deps{
		store:   repo.NewConfigRepo(pool),
		log:     repo.NewLogRepo(pool),
		runs:    repo.NewRunRepo(pool),
		pool:    pool,
		cleanup: pool.Close,
	}, nil
}

// service собирает orchestrator.Service поверх зависимостей.
func (d *deps) service(runner orchestrator.TaskRunner, logger *slog.Logger) *orchestrator.Service {
	return &orchestrator.Service{
		Store:  d.store,
		Log:    d.log,
		Runner: runner,
		Runs:   d.runs,
		Logger: logger,
	}
}
