package domain

import (
	"time"

	"github.com/google/uuid"
)

// ExecutionRecord — одна строка журнала выполнения.
//
// На каждую попытку выполнения узла пишется ровно одна запись.
// Узлы, которые не выполнялись вовсе (пропущены каскадом после падения
// предка или отменой запуска), получают маркерную запись:
// AttemptNumber = 0, статус SKIPPED, временные метки отсутствуют.
//
// Журнал append-only: записи никогда не изменяются и не удаляются.
type ExecutionRecord struct {
	// RunID — запуск, которому принадлежит запись.
	RunID uuid.UUID `json:"run_id"`

	// ProcessGroup — группа запуска.
	ProcessGroup string `json:"process_group"`

	// NodeName — имя узла.
	NodeName string `json:"node_name"`

	// AttemptNumber — номер попытки, начиная с 1.
	// 0 — маркер пропуска (узел не выполнялся).
	AttemptNumber int `json:"attempt_number"`

	// StartedAt — начало попытки. Nil для маркеров пропуска.
	StartedAt *time.Time `json:"started_at,omitempty"`

	// EndedAt — конец попытки. Nil для маркеров пропуска.
	EndedAt *time.Time `json:"ended_at,omitempty"`

	// Status — исход попытки.
	Status AttemptStatus `json:"status"`

	// ErrorMessage — текст ошибки. Пустой при успехе и для маркеров.
	ErrorMessage string `json:"error_message,omitempty"`
}

// Duration возвращает длительность попытки. 0 для маркеров пропуска.
func (r *ExecutionRecord) Duration() time.Duration {
	if r.StartedAt == nil || r.EndedAt == nil {
		return 0
	}
	return r.EndedAt.Sub(*r.StartedAt)
}

// IsSkipMarker возвращает true для маркерной записи пропуска.
func (r *ExecutionRecord) IsSkipMarker() bool {
	return r.AttemptNumber == 0
}

// NewSkipRecord создаёт маркерную запись для узла, который не выполнялся.
func NewSkipRecord(runID uuid.UUID, group, node string) ExecutionRecord {
	return ExecutionRecord{
		RunID:        runID,
		ProcessGroup: group,
		NodeName:     node,
		Status:       AttemptStatusSkipped,
	}
}
