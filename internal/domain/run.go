package domain

import (
	"time"

	"github.com/google/uuid"
)

// Run — один запуск графа группы.
//
// Run создаётся когда:
//   - оператор запускает группу вручную (через CLI)
//   - daemon запускает группу по расписанию
//   - приходит команда из очереди runs.requested
//
// Строка запуска хранится в реестре отдельно от журнала попыток,
// чтобы история запусков читалась без сканирования журнала.
type Run struct {
	// ID — уникальный идентификатор запуска.
	ID uuid.UUID `json:"id"`

	// ProcessGroup — группа, граф которой выполняется.
	ProcessGroup string `json:"process_group"`

	// Status — текущий статус запуска.
	Status RunStatus `json:"status"`

	// Source — кто инициировал запуск: "cli", "schedule", "mq".
	Source string `json:"source,omitempty"`

	// Error — текст ошибки, если запуск завершился ABORTED.
	Error string `json:"error,omitempty"`

	// StartedAt — время начала выполнения.
	StartedAt *time.Time `json:"started_at,omitempty"`

	// FinishedAt — время завершения.
	FinishedAt *time.Time `json:"finished_at,omitempty"`

	// CreatedAt — время создания записи.
	CreatedAt time.Time `json:"created_at"`
}

// NewRun создаёт запись запуска в статусе PENDING.
func NewRun(group, source string) *Run {
	return &Run{
		ID:           uuid.New(),
		ProcessGroup: group,
		Status:       RunStatusPending,
		Source:       source,
		CreatedAt:    time.Now().UTC(),
	}
}

// Duration возвращает продолжительность запуска.
// Возвращает 0, если запуск ещё не завершён.
func (r *Run) Duration() time.Duration {
	if r.StartedAt == nil || r.FinishedAt == nil {
		return 0
	}
	return r.FinishedAt.Sub(*r.StartedAt)
}

// IsFinished возвращает true, если запуск завершён.
func (r *Run) IsFinished() bool {
	return r.Status.IsTerminal()
}

// MarkRunning переводит запуск в статус RUNNING.
func (r *Run) MarkRunning() {
	now := time.Now().UTC()
	r.Status = RunStatusRunning
	r.StartedAt = &now
}

// MarkFinished переводит запуск в терминальный статус.
func (r *Run) MarkFinished(status RunStatus, errMsg string) {
	now := time.Now().UTC()
	r.Status = status
	r.Error = errMsg
	r.FinishedAt = &now
}
