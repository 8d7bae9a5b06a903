package orchestrator

import (
	"context"

	"github.com/shaiso/Dirigent/internal/domain"
)

// TaskRunner выполняет одну попытку единицы работы.
//
// Runner обязан уважать отмену и дедлайн контекста; оркестратор
// дополнительно страхуется собственным контекстом попытки и
// классифицирует context.DeadlineExceeded как TIMEOUT.
// Паника runner'а перехватывается и считается ошибкой попытки.
type TaskRunner interface {
	// Execute выполняет попытку attempt (нумерация с 1) единицы unit.
	// nil — успех, не-nil — ошибка попытки.
	Execute(ctx context.Context, unit *domain.WorkUnit, attempt int) error
}

// ExecutionLog — durable append-only журнал выполнения.
//
// Записи одного запуска сериализованы через управляющий цикл,
// но реализация обязана быть безопасной под конкурентными вызовами:
// журнал делят несколько одновременных запусков.
// Неустранимая ошибка Append фатальна для запуска; кратковременные
// сбои реализация может ретраить сама.
type ExecutionLog interface {
	// Append дописывает запись в журнал.
	Append(ctx context.Context, rec domain.ExecutionRecord) error

	// Ping проверяет доступность журнала. Вызывается до первой
	// диспетчеризации: недостижимый журнал прерывает запуск
	// до каких-либо побочных эффектов.
	Ping(ctx context.Context) error
}

// ConfigReader отдаёт определения единиц работы одной группы.
type ConfigReader interface {
	// ReadGroup возвращает определения группы, включая неактивные:
	// фильтрацией занимается построение графа.
	ReadGroup(ctx context.Context, group string) ([]domain.WorkUnit, error)
}

// RunRecorder — реестр запусков для истории.
type RunRecorder interface {
	// Create регистрирует новый запуск.
	Create(ctx context.Context, run *domain.Run) error

	// Update обновляет статус и временные метки запуска.
	Update(ctx context.Context, run *domain.Run) error
}
