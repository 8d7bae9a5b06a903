package runner

import (
	"context"
	"sync"
	"time"

	"github.com/shaiso/Dirigent/internal/domain"
)

// NoopRunner ничего не выполняет — запоминает вызовы.
//
// Используется для dry-run режима (`run --dry-run`): граф проходит
// полный цикл планирования, журнал и статусы пишутся, но никакая
// работа не запускается.
type NoopRunner struct {
	// Delay — искусственная задержка попытки (0 — мгновенно).
	Delay time.Duration

	mu    sync.Mutex
	calls []NoopCall
}

// NoopCall — один зафиксированный вызов.
type NoopCall struct {
	Node    string
	Attempt int
}

// NewNoopRunner создаёт NoopRunner.
func NewNoopRunner() *NoopRunner {
	return &NoopRunner{}
}

// Execute фиксирует вызов и ждёт Delay, уважая отмену контекста.
func (r *NoopRunner) Execute(ctx context.Context, unit *domain.WorkUnit, attempt int) error {
	r.mu.Lock()
	r.calls = append(r.calls, NoopCall{Node: unit.Name, Attempt: attempt})
	r.mu.Unlock()

	if r.Delay <= 0 {
		return ctx.Err()
	}

	timer := time.NewTimer(r.Delay)
	defer timer.Stop()
	select {
	case <-timer.C:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

// Calls возвращает копию списка зафиксированных вызовов.
func (r *NoopRunner) Calls() []NoopCall {
	r.mu.Lock()
	defer r.mu.Unlock()
	calls := make([]NoopCall, len(r.calls))
	copy(calls, r.calls)
	return calls
}
