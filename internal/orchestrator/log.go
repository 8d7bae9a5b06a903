package orchestrator

import (
	"context"
	"log/slog"

	"github.com/shaiso/Dirigent/internal/domain"
)

// teeLog раздваивает поток записей журнала.
//
// Ошибки primary распространяются (фатальная семантика журнала),
// ошибки secondary логируются и глотаются. Так к запуску подключается,
// например, публикация событий в очередь, не делая брокер жёсткой
// зависимостью выполнения.
type teeLog struct {
	primary     ExecutionLog
	secondaries []ExecutionLog
	logger      *slog.Logger
}

// TeeLog создаёт журнал, дописывающий каждую запись в primary
// и во все secondaries.
func TeeLog(logger *slog.Logger, primary ExecutionLog, secondaries ...ExecutionLog) ExecutionLog {
	if logger == nil {
		logger = slog.Default()
	}
	return &teeLog{
		primary:     primary,
		secondaries: secondaries,
		logger:      logger,
	}
}

// Append пишет запись в primary, затем в secondaries.
func (t *teeLog) Append(ctx context.Context, rec domain.ExecutionRecord) error {
	if err := t.primary.Append(ctx, rec); err != nil {
		return err
	}
	for _, secondary := range t.secondaries {
		if err := secondary.Append(ctx, rec); err != nil {
			t.logger.Warn("secondary execution log append failed",
				"node", rec.NodeName,
				"error", err,
			)
		}
	}
	return nil
}

// Ping проверяет только primary: secondary-журналы необязательны.
func (t *teeLog) Ping(ctx context.Context) error {
	return t.primary.Ping(ctx)
}
