package domain

// NodeStatus — статус узла графа в рамках одного запуска.
//
// Жизненный цикл:
//
//	PENDING → READY → RUNNING → SUCCESS
//	                          ↘ READY (retry, попытки остались)
//	                          ↘ FAILED (попытки исчерпаны)
//	PENDING/READY → SKIPPED (упал предок или запуск отменён)
//	любой нетерминальный → ABORTED (фатальный сбой инфраструктуры)
type NodeStatus string

const (
	// NodeStatusPending — у узла есть незавершённые зависимости.
	NodeStatusPending NodeStatus = "PENDING"

	// NodeStatusReady — все зависимости успешны, узел ждёт диспетчеризации.
	NodeStatusReady NodeStatus = "READY"

	// NodeStatusRunning — попытка выполнения в полёте.
	NodeStatusRunning NodeStatus = "RUNNING"

	// NodeStatusSuccess — узел успешно завершён.
	NodeStatusSuccess NodeStatus = "SUCCESS"

	// NodeStatusFailed — все попытки исчерпаны, узел упал.
	NodeStatusFailed NodeStatus = "FAILED"

	// NodeStatusSkipped — узел не выполнялся: упал предок либо запуск отменён.
	NodeStatusSkipped NodeStatus = "SKIPPED"

	// NodeStatusAborted — запуск прерван фатальной ошибкой до того,
	// как узел достиг терминального статуса. Отличается от SKIPPED:
	// SKIPPED — осознанное решение планировщика, ABORTED — авария.
	NodeStatusAborted NodeStatus = "ABORTED"
)

// IsTerminal возвращает true, если статус финальный.
func (s NodeStatus) IsTerminal() bool {
	switch s {
	case NodeStatusSuccess, NodeStatusFailed, NodeStatusSkipped, NodeStatusAborted:
		return true
	default:
		return false
	}
}

// AttemptStatus — исход одной попытки выполнения узла.
type AttemptStatus string

const (
	// AttemptStatusSuccess — попытка завершилась успешно.
	AttemptStatusSuccess AttemptStatus = "SUCCESS"

	// AttemptStatusFailed — runner сообщил об ошибке.
	AttemptStatusFailed AttemptStatus = "FAILED"

	// AttemptStatusTimeout — попытка превысила таймаут.
	AttemptStatusTimeout AttemptStatus = "TIMEOUT"

	// AttemptStatusSkipped — узел не выполнялся вовсе (маркер в журнале
	// с attempt_number = 0, без временных меток).
	AttemptStatusSkipped AttemptStatus = "SKIPPED"
)

// RunStatus — агрегатный статус запуска группы.
//
// Жизненный цикл:
//
//	PENDING → RUNNING → SUCCESS
//	                  ↘ FAILED (хотя бы один узел FAILED/SKIPPED)
//	                  ↘ CANCELLED (внешняя отмена)
//	                  ↘ ABORTED (фатальный сбой инфраструктуры)
type RunStatus string

const (
	// RunStatusPending — запуск зарегистрирован, но ещё не начался.
	RunStatusPending RunStatus = "PENDING"

	// RunStatusRunning — запуск в процессе выполнения.
	RunStatusRunning RunStatus = "RUNNING"

	// RunStatusSuccess — все узлы завершились успешно.
	RunStatusSuccess RunStatus = "SUCCESS"

	// RunStatusFailed — часть узлов упала или была пропущена.
	// Это нормальный отчётный исход, а не ошибка запуска.
	RunStatusFailed RunStatus = "FAILED"

	// RunStatusCancelled — запуск отменён извне.
	RunStatusCancelled RunStatus = "CANCELLED"

	// RunStatusAborted — запуск прерван фатальной ошибкой (например,
	// журнал выполнения недоступен).
	RunStatusAborted RunStatus = "ABORTED"
)

// IsTerminal возвращает true, если статус финальный.
func (s RunStatus) IsTerminal() bool {
	switch s {
	case RunStatusSuccess, RunStatusFailed, RunStatusCancelled, RunStatusAborted:
		return true
	default:
		return false
	}
}
