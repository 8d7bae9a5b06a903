package orchestrator

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"
	"github.com/shaiso/Dirigent/internal/domain"
	"github.com/shaiso/Dirigent/internal/engine"
	"github.com/shaiso/Dirigent/internal/pool"
	"github.com/shaiso/Dirigent/internal/telemetry"
)

// Default configuration values.
const defaultMaxParallelism = 4

// Orchestrator выполняет граф зависимостей.
//
// Модель конкурентности: пул воркеров выполняет независимые попытки
// параллельно, а всё разделяемое состояние планирования (статусы,
// счётчики зависимостей, очередь готовых) принадлежит единственной
// управляющей горутине Run. Воркеры и retry-таймеры сообщают о событиях
// только через канал — потерянные обновления исключены по построению.
type Orchestrator struct {
	runner TaskRunner
	log    ExecutionLog

	maxParallelism int
	logger         *slog.Logger
}

// Config — конфигурация Orchestrator.
type Config struct {
	// Runner выполняет попытки единиц работы.
	Runner TaskRunner

	// Log — журнал выполнения.
	Log ExecutionLog

	// MaxParallelism — максимум одновременных попыток (default: 4).
	MaxParallelism int

	// Logger (опционально; если nil — slog.Default()).
	Logger *slog.Logger
}

// New создаёт новый Orchestrator.
func New(cfg Config) *Orchestrator {
	maxParallelism := cfg.MaxParallelism
	if maxParallelism <= 0 {
		maxParallelism = defaultMaxParallelism
	}

	logger := cfg.Logger
	if logger == nil {
		logger = slog.Default()
	}

	return &Orchestrator{
		runner:         cfg.Runner,
		log:            cfg.Log,
		maxParallelism: maxParallelism,
		logger:         logger,
	}
}

// eventKind — вид события управляющего цикла.
type eventKind int

const (
	// evAttemptDone — попытка выполнения узла завершилась.
	evAttemptDone eventKind = iota

	// evRetryDue — истекла пауза перед повторной попыткой.
	evRetryDue
)

// event — сообщение воркера или retry-таймера управляющему циклу.
type event struct {
	kind      eventKind
	node      string
	attempt   int
	status    domain.AttemptStatus
	errMsg    string
	startedAt time.Time
	endedAt   time.Time
}

// Run выполняет граф с новым идентификатором запуска.
func (o *Orchestrator) Run(ctx context.Context, dag *engine.DAG) (*RunResult, error) {
	return o.RunWithID(ctx, dag, uuid.New())
}

// RunWithID выполняет граф под заданным идентификатором запуска.
//
// Контракт:
//   - узел диспетчеризуется только после терминального успеха всех
//     прямых зависимостей;
//   - упавшая или превысившая таймаут попытка повторяется, пока не
//     исчерпаны retry_attempts; пауза между попытками локальна для узла
//     и не блокирует ни пул, ни другие узлы;
//   - все транзитивные зависимые окончательно упавшего узла
//     пропускаются и получают маркерные записи в журнале;
//   - отмена контекста останавливает новую диспетчеризацию, попытки
//     в полёте дорабатывают и записываются, остальные узлы — SKIPPED;
//   - недостижимый журнал прерывает запуск: до первой диспетчеризации —
//     без побочных эффектов, по ходу — остальные узлы помечаются ABORTED.
//
// RunResult возвращается и при ошибке: вызывающий всегда получает полную
// карту статусов и все записи журнала.
func (o *Orchestrator) RunWithID(ctx context.Context, dag *engine.DAG, runID uuid.UUID) (*RunResult, error) {
	if o.runner == nil {
		return nil, ErrNoRunner
	}
	if o.log == nil {
		return nil, ErrNoLog
	}

	logger := o.logger.With("run_id", runID.String(), "group", dag.Group)

	// Preflight: недоступный журнал прерывает запуск до каких-либо
	// побочных эффектов.
	if err := o.log.Ping(ctx); err != nil {
		return nil, fmt.Errorf("%w: execution log unreachable: %v", ErrSchedulingFatal, err)
	}

	// Контекст попыток: отменяется внешней отменой и фатальным сбоем.
	runCtx, cancelRun := context.WithCancel(ctx)
	defer cancelRun()

	// Журнал пишется и во время отмены: записи завершившихся попыток
	// не должны теряться из-за отменённого внешнего контекста.
	appendCtx := context.WithoutCancel(ctx)

	st := newRunState(dag)
	events := make(chan event, 2*len(dag.Nodes))

	// loopDone защищает retry-таймеры от отправки в никуда после
	// выхода из цикла.
	loopDone := make(chan struct{})
	defer close(loopDone)

	workers := pool.New(o.maxParallelism, len(dag.Nodes))
	defer workers.Close()

	startedAt := time.Now().UTC()
	logger.Info("run started",
		"nodes", dag.Size(),
		"max_parallelism", o.maxParallelism,
	)

	var fatal error
	cancelled := false
	done := ctx.Done()

	for !st.allTerminal() {
		stopping := cancelled || fatal != nil

		if !stopping {
			o.dispatch(runCtx, st, runID, events, workers, logger)
		}

		if stopping && st.inflight == 0 {
			if err := o.finalizeStopped(appendCtx, st, runID, dag.Group, fatal != nil); err != nil {
				fatal = err
			}
			break
		}

		// Страховка от тупика: нечего выполнять, некого ждать,
		// но запуск не завершён. После валидации графа это невозможно.
		if !stopping && st.inflight == 0 && len(st.ready) == 0 && len(st.timers) == 0 {
			fatal = fmt.Errorf("%w: no runnable nodes but run is not finished", ErrSchedulingFatal)
			cancelRun()
			st.stopTimers()
			continue
		}

		select {
		case ev := <-events:
			switch ev.kind {
			case evAttemptDone:
				if err := o.handleAttemptDone(appendCtx, st, runID, dag.Group, ev, fatal != nil, cancelled, events, loopDone, logger); err != nil {
					fatal = err
					cancelRun()
					st.stopTimers()
				}
			case evRetryDue:
				o.handleRetryDue(st, ev, cancelled || fatal != nil, logger)
			}

		case <-done:
			// Однократно: дальше ждём только дорабатывающие попытки.
			done = nil
			cancelled = true
			st.stopTimers()
			logger.Warn("run cancelled, waiting for in-flight attempts",
				"inflight", st.inflight,
			)
		}
	}

	finishedAt := time.Now().UTC()
	result := &RunResult{
		RunID:        runID,
		ProcessGroup: dag.Group,
		NodeStatus:   st.status,
		Records:      st.records,
		StartedAt:    startedAt,
		FinishedAt:   finishedAt,
	}

	switch {
	case fatal != nil:
		result.Status = domain.RunStatusAborted
	case cancelled:
		result.Status = domain.RunStatusCancelled
	case result.AllSucceeded():
		result.Status = domain.RunStatusSuccess
	default:
		result.Status = domain.RunStatusFailed
	}
	telemetry.RunsTotal.WithLabelValues(string(result.Status)).Inc()

	counts := result.Counts()
	logger.Info("run finished",
		"status", result.Status,
		"duration", finishedAt.Sub(startedAt),
		"success", counts.Success,
		"failed", counts.Failed,
		"skipped", counts.Skipped,
		"aborted", counts.Aborted,
	)

	switch {
	case fatal != nil:
		return result, fatal
	case cancelled:
		return result, ctx.Err()
	default:
		return result, nil
	}
}

// dispatch запускает готовые узлы, пока есть свободные слоты пула.
func (o *Orchestrator) dispatch(runCtx context.Context, st *runState, runID uuid.UUID, events chan<- event, workers *pool.Pool, logger *slog.Logger) {
	for st.inflight < o.maxParallelism {
		name, ok := st.popReady()
		if !ok {
			return
		}

		node := st.dag.Nodes[name]
		st.attempts[name]++
		attempt := st.attempts[name]
		st.status[name] = domain.NodeStatusRunning
		st.inflight++
		telemetry.RunningNodes.Inc()

		logger.Debug("dispatching node",
			"node", name,
			"attempt", attempt,
			"reference", node.Unit.Reference,
		)

		unit := node.Unit
		if err := workers.Submit(func() {
			events <- o.runAttempt(runCtx, &unit, attempt)
		}); err != nil {
			// Пул закрывается только после выхода из цикла.
			events <- event{
				kind:    evAttemptDone,
				node:    name,
				attempt: attempt,
				status:  domain.AttemptStatusFailed,
				errMsg:  err.Error(),
			}
		}
	}
}

// runAttempt выполняет одну попытку под таймаутом и классифицирует исход.
// Выполняется в горутине воркера; состояния запуска не касается.
func (o *Orchestrator) runAttempt(runCtx context.Context, unit *domain.WorkUnit, attempt int) event {
	timeout := time.Duration(unit.TimeoutSec) * time.Second
	attemptCtx, cancel := context.WithTimeout(runCtx, timeout)
	defer cancel()

	started := time.Now().UTC()
	err := o.execute(attemptCtx, unit, attempt)
	ended := time.Now().UTC()

	ev := event{
		kind:      evAttemptDone,
		node:      unit.Name,
		attempt:   attempt,
		startedAt: started,
		endedAt:   ended,
	}

	switch {
	case err == nil:
		ev.status = domain.AttemptStatusSuccess
	case errors.Is(err, context.DeadlineExceeded) || errors.Is(attemptCtx.Err(), context.DeadlineExceeded):
		ev.status = domain.AttemptStatusTimeout
		ev.errMsg = fmt.Sprintf("attempt exceeded timeout of %ds", unit.TimeoutSec)
	default:
		ev.status = domain.AttemptStatusFailed
		ev.errMsg = err.Error()
	}
	return ev
}

// execute вызывает runner, перехватывая панику: неотчитавшийся сбой
// runner'а считается обычной ошибкой попытки.
func (o *Orchestrator) execute(ctx context.Context, unit *domain.WorkUnit, attempt int) (err error) {
	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("task runner panic: %v", r)
		}
	}()
	return o.runner.Execute(ctx, unit, attempt)
}

// handleAttemptDone обрабатывает завершение попытки: пишет запись
// в журнал, обновляет статус узла, планирует retry либо каскадный
// пропуск зависимых. Возвращает фатальную ошибку при сбое журнала.
func (o *Orchestrator) handleAttemptDone(appendCtx context.Context, st *runState, runID uuid.UUID, group string, ev event, fatal, cancelled bool, events chan<- event, loopDone <-chan struct{}, logger *slog.Logger) error {
	st.inflight--
	telemetry.RunningNodes.Dec()

	// Фатальный режим: журнал потерян, событие только дренируется.
	if fatal {
		st.status[ev.node] = domain.NodeStatusAborted
		return nil
	}

	rec := domain.ExecutionRecord{
		RunID:         runID,
		ProcessGroup:  group,
		NodeName:      ev.node,
		AttemptNumber: ev.attempt,
		Status:        ev.status,
		ErrorMessage:  ev.errMsg,
	}
	if !ev.startedAt.IsZero() {
		started, ended := ev.startedAt, ev.endedAt
		rec.StartedAt = &started
		rec.EndedAt = &ended
	}

	if err := o.log.Append(appendCtx, rec); err != nil {
		st.status[ev.node] = domain.NodeStatusAborted
		return fmt.Errorf("%w: append execution record: %v", ErrSchedulingFatal, err)
	}
	st.records = append(st.records, rec)
	telemetry.AttemptsTotal.WithLabelValues(string(ev.status)).Inc()
	telemetry.AttemptDuration.Observe(rec.Duration().Seconds())

	node := st.dag.Nodes[ev.node]

	if ev.status == domain.AttemptStatusSuccess {
		logger.Debug("node succeeded", "node", ev.node, "attempt", ev.attempt)
		st.markSuccess(ev.node)
		return nil
	}

	// Попытка упала или превысила таймаут.
	if !cancelled && st.attempts[ev.node] < node.Unit.RetryAttempts {
		interval := time.Duration(node.Unit.RetryIntervalSec) * time.Second
		logger.Warn("node attempt failed, will retry",
			"node", ev.node,
			"attempt", ev.attempt,
			"status", ev.status,
			"retry_in", interval,
			"error", ev.errMsg,
		)

		st.status[ev.node] = domain.NodeStatusReady
		if interval <= 0 {
			st.ready = append(st.ready, ev.node)
			return nil
		}

		// Пауза локальна для узла: таймер не занимает слот пула
		// и не задерживает другие узлы.
		name := ev.node
		st.timers[name] = time.AfterFunc(interval, func() {
			select {
			case events <- event{kind: evRetryDue, node: name}:
			case <-loopDone:
			}
		})
		return nil
	}

	logger.Error("node failed permanently",
		"node", ev.node,
		"attempts", st.attempts[ev.node],
		"status", ev.status,
		"error", ev.errMsg,
	)

	skipped := st.markFailed(ev.node)
	for _, name := range skipped {
		skipRec := domain.NewSkipRecord(runID, group, name)
		if err := o.log.Append(appendCtx, skipRec); err != nil {
			return fmt.Errorf("%w: append skip record: %v", ErrSchedulingFatal, err)
		}
		st.records = append(st.records, skipRec)
		telemetry.AttemptsTotal.WithLabelValues(string(domain.AttemptStatusSkipped)).Inc()
		logger.Warn("node skipped", "node", name, "cause", ev.node)
	}
	return nil
}

// handleRetryDue возвращает узел в очередь готовых после retry-паузы.
func (o *Orchestrator) handleRetryDue(st *runState, ev event, stopping bool, logger *slog.Logger) {
	if _, waiting := st.timers[ev.node]; !waiting {
		return // устаревший таймер остановленного запуска
	}
	delete(st.timers, ev.node)

	if stopping || st.status[ev.node] != domain.NodeStatusReady {
		return
	}
	logger.Debug("retry due", "node", ev.node)
	st.ready = append(st.ready, ev.node)
}

// finalizeStopped доводит незавершённые узлы до терминального статуса
// после отмены или фатального сбоя. При отмене узлы пропускаются
// с маркерами в журнале; при фатальном сбое — помечаются ABORTED.
func (o *Orchestrator) finalizeStopped(appendCtx context.Context, st *runState, runID uuid.UUID, group string, fatal bool) error {
	st.stopTimers()
	remaining := st.nonTerminal()

	if fatal {
		for _, name := range remaining {
			st.status[name] = domain.NodeStatusAborted
		}
		return nil
	}

	for i, name := range remaining {
		skipRec := domain.NewSkipRecord(runID, group, name)
		if err := o.log.Append(appendCtx, skipRec); err != nil {
			// Журнал отказал на финализации — остаток помечаем ABORTED.
			for _, rest := range remaining[i:] {
				st.status[rest] = domain.NodeStatusAborted
			}
			return fmt.Errorf("%w: append skip record: %v", ErrSchedulingFatal, err)
		}
		st.status[name] = domain.NodeStatusSkipped
		st.records = append(st.records, skipRec)
	}
	return nil
}
