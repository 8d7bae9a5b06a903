package orchestrator

import (
	"time"

	"github.com/google/uuid"
	"github.com/shaiso/Dirigent/internal/domain"
)

// RunResult — итог одного запуска графа.
//
// NodeStatus покрывает каждый узел графа, включая пропущенные
// и прерванные: частичный успех — нормальный отчётный исход,
// а не скрытая за ошибкой ситуация.
type RunResult struct {
	// RunID — идентификатор запуска.
	RunID uuid.UUID `json:"run_id"`

	// ProcessGroup — группа запуска.
	ProcessGroup string `json:"process_group"`

	// Status — агрегатный статус запуска.
	Status domain.RunStatus `json:"status"`

	// NodeStatus — финальный статус каждого узла графа.
	NodeStatus map[string]domain.NodeStatus `json:"node_status"`

	// Records — все записи журнала в порядке завершения попыток.
	Records []domain.ExecutionRecord `json:"records"`

	// StartedAt — начало запуска.
	StartedAt time.Time `json:"started_at"`

	// FinishedAt — конец запуска.
	FinishedAt time.Time `json:"finished_at"`
}

// NodeCounts — количество узлов по статусам.
type NodeCounts struct {
	Success int `json:"success"`
	Failed  int `json:"failed"`
	Skipped int `json:"skipped"`
	Aborted int `json:"aborted"`
}

// Counts агрегирует статусы узлов.
func (r *RunResult) Counts() NodeCounts {
	var c NodeCounts
	for _, status := range r.NodeStatus {
		switch status {
		case domain.NodeStatusSuccess:
			c.Success++
		case domain.NodeStatusFailed:
			c.Failed++
		case domain.NodeStatusSkipped:
			c.Skipped++
		case domain.NodeStatusAborted:
			c.Aborted++
		}
	}
	return c
}

// AllSucceeded возвращает true, если каждый узел завершился успешно.
func (r *RunResult) AllSucceeded() bool {
	for _, status := range r.NodeStatus {
		if status != domain.NodeStatusSuccess {
			return false
		}
	}
	return true
}

// Attempts возвращает количество попыток узла по записям журнала.
func (r *RunResult) Attempts(node string) int {
	attempts := 0
	for i := range r.Records {
		rec := &r.Records[i]
		if rec.NodeName == node && !rec.IsSkipMarker() {
			attempts++
		}
	}
	return attempts
}
