package orchestrator

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"sync"
	"testing"
	"time"

	"github.com/shaiso/Dirigent/internal/domain"
	"github.com/shaiso/Dirigent/internal/engine"
)

// quietLogger не засоряет вывод тестов.
func quietLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

// unit создаёт валидное определение для тестов.
func unit(name string, deps ...string) domain.WorkUnit {
	return domain.WorkUnit{
		Name:          name,
		Reference:     "noop://" + name,
		DependsOn:     deps,
		TimeoutSec:    60,
		RetryAttempts: 1,
		Active:        true,
		ProcessGroup:  "etl",
	}
}

// buildDAG строит граф из определений, падая при ошибке.
func buildDAG(t *testing.T, defs ...domain.WorkUnit) *engine.DAG {
	t.Helper()
	dag, err := engine.Build(defs, "etl")
	if err != nil {
		t.Fatalf("build dag: %v", err)
	}
	return dag
}

// fakeRunner — runner с программируемым поведением по узлам.
// Считает попытки и отслеживает пиковую параллельность.
type fakeRunner struct {
	mu      sync.Mutex
	calls   map[string]int
	running int
	maxSeen int
	fn      map[string]func(ctx context.Context, attempt int) error
}

func newFakeRunner() *fakeRunner {
	return &fakeRunner{
		calls: make(map[string]int),
		fn:    make(map[string]func(ctx context.Context, attempt int) error),
	}
}

// on задаёт поведение узла. Узлы без поведения завершаются успехом.
func (r *fakeRunner) on(node string, fn func(ctx context.Context, attempt int) error) {
	r.fn[node] = fn
}

func (r *fakeRunner) Execute(ctx context.Context, u *domain.WorkUnit, attempt int) error {
	r.mu.Lock()
	r.calls[u.Name]++
	r.running++
	if r.running > r.maxSeen {
		r.maxSeen = r.running
	}
	fn := r.fn[u.Name]
	r.mu.Unlock()

	defer func() {
		r.mu.Lock()
		r.running--
		r.mu.Unlock()
	}()

	if fn == nil {
		return nil
	}
	return fn(ctx, attempt)
}

func (r *fakeRunner) callCount(node string) int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.calls[node]
}

func (r *fakeRunner) peakParallelism() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.maxSeen
}

// stubLog — журнал в памяти с инъекцией сбоев.
type stubLog struct {
	mu      sync.Mutex
	records []domain.ExecutionRecord

	pingErr error
	// failAfter — количество успешных Append до начала сбоев (-1: без сбоев).
	failAfter int
	appended  int
}

func newStubLog() *stubLog {
	return &stubLog{failAfter: -1}
}

func (l *stubLog) Append(_ context.Context, rec domain.ExecutionRecord) error {
	l.mu.Lock()
	defer l.mu.Unlock()
	if l.failAfter >= 0 && l.appended >= l.failAfter {
		return errors.New("log unavailable")
	}
	l.appended++
	l.records = append(l.records, rec)
	return nil
}

func (l *stubLog) Ping(context.Context) error {
	return l.pingErr
}

func (l *stubLog) forNode(node string) []domain.ExecutionRecord {
	l.mu.Lock()
	defer l.mu.Unlock()
	var out []domain.ExecutionRecord
	for _, rec := range l.records {
		if rec.NodeName == node {
			out = append(out, rec)
		}
	}
	return out
}

func (l *stubLog) size() int {
	l.mu.Lock()
	defer l.mu.Unlock()
	return len(l.records)
}

func newOrchestrator(runner TaskRunner, log ExecutionLog, maxParallelism int) *Orchestrator {
	return New(Config{
		Runner:         runner,
		Log:            log,
		MaxParallelism: maxParallelism,
		Logger:         quietLogger(),
	})
}

func TestRun_LinearChain(t *testing.T) {
	dag := buildDAG(t,
		unit("extract"),
		unit("transform", "extract"),
		unit("load", "transform"),
	)
	runner := newFakeRunner()
	log := newStubLog()

	result, err := newOrchestrator(runner, log, 4).Run(context.Background(), dag)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if result.Status != domain.RunStatusSuccess {
		t.Errorf("status = %s, want SUCCESS", result.Status)
	}
	for _, name := range []string{"extract", "transform", "load"} {
		if result.NodeStatus[name] != domain.NodeStatusSuccess {
			t.Errorf("node %s = %s, want SUCCESS", name, result.NodeStatus[name])
		}
	}

	// Записи идут в порядке завершения: цепочка фиксирует его однозначно.
	if len(result.Records) != 3 {
		t.Fatalf("expected 3 records, got %d", len(result.Records))
	}
	for i, want := range []string{"extract", "transform", "load"} {
		if result.Records[i].NodeName != want {
			t.Errorf("record %d = %s, want %s", i, result.Records[i].NodeName, want)
		}
	}
}

func TestRun_DependencyOrdering(t *testing.T) {
	// merge не должен стартовать раньше завершения clean и enrich.
	dag := buildDAG(t,
		unit("extract"),
		unit("clean", "extract"),
		unit("enrich", "extract"),
		unit("merge", "clean", "enrich"),
	)
	runner := newFakeRunner()
	log := newStubLog()

	var mu sync.Mutex
	finished := make(map[string]bool)
	markDone := func(name string) func(context.Context, int) error {
		return func(context.Context, int) error {
			mu.Lock()
			finished[name] = true
			mu.Unlock()
			return nil
		}
	}
	runner.on("clean", markDone("clean"))
	runner.on("enrich", markDone("enrich"))
	runner.on("merge", func(context.Context, int) error {
		mu.Lock()
		defer mu.Unlock()
		if !finished["clean"] || !finished["enrich"] {
			return errors.New("merge started before its dependencies finished")
		}
		return nil
	})

	result, err := newOrchestrator(runner, log, 4).Run(context.Background(), dag)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if result.Status != domain.RunStatusSuccess {
		t.Errorf("status = %s, want SUCCESS", result.Status)
	}
}

func TestRun_IndependentNodesOverlap(t *testing.T) {
	dag := buildDAG(t,
		unit("left"),
		unit("right"),
	)
	runner := newFakeRunner()
	log := newStubLog()

	// Оба узла должны оказаться в полёте одновременно.
	barrier := make(chan struct{}, 2)
	wait := func(ctx context.Context, _ int) error {
		barrier <- struct{}{}
		for {
			select {
			case <-ctx.Done():
				return ctx.Err()
			default:
			}
			if len(barrier) == 2 {
				return nil
			}
			time.Sleep(time.Millisecond)
		}
	}
	runner.on("left", wait)
	runner.on("right", wait)

	result, err := newOrchestrator(runner, log, 2).Run(context.Background(), dag)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if result.Status != domain.RunStatusSuccess {
		t.Errorf("status = %s, want SUCCESS", result.Status)
	}
	if runner.peakParallelism() < 2 {
		t.Errorf("independent nodes never overlapped, peak = %d", runner.peakParallelism())
	}
}

func TestRun_MaxParallelismOne(t *testing.T) {
	dag := buildDAG(t,
		unit("a"),
		unit("b"),
		unit("c"),
	)
	runner := newFakeRunner()
	log := newStubLog()

	slow := func(context.Context, int) error {
		time.Sleep(10 * time.Millisecond)
		return nil
	}
	for _, name := range []string{"a", "b", "c"} {
		runner.on(name, slow)
	}

	result, err := newOrchestrator(runner, log, 1).Run(context.Background(), dag)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if result.Status != domain.RunStatusSuccess {
		t.Errorf("status = %s, want SUCCESS", result.Status)
	}
	if runner.peakParallelism() != 1 {
		t.Errorf("peak parallelism = %d, want 1", runner.peakParallelism())
	}
}

func TestRun_RetryThenSuccess(t *testing.T) {
	def := unit("extract")
	def.RetryAttempts = 3
	dag := buildDAG(t, def)

	runner := newFakeRunner()
	log := newStubLog()
	runner.on("extract", func(_ context.Context, attempt int) error {
		if attempt < 3 {
			return fmt.Errorf("transient failure on attempt %d", attempt)
		}
		return nil
	})

	result, err := newOrchestrator(runner, log, 4).Run(context.Background(), dag)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if result.Status != domain.RunStatusSuccess {
		t.Errorf("status = %s, want SUCCESS", result.Status)
	}
	if runner.callCount("extract") != 3 {
		t.Errorf("attempts = %d, want 3", runner.callCount("extract"))
	}

	records := log.forNode("extract")
	if len(records) != 3 {
		t.Fatalf("expected 3 journal records, got %d", len(records))
	}
	for i, want := range []domain.AttemptStatus{
		domain.AttemptStatusFailed,
		domain.AttemptStatusFailed,
		domain.AttemptStatusSuccess,
	} {
		if records[i].Status != want {
			t.Errorf("record %d status = %s, want %s", i, records[i].Status, want)
		}
		if records[i].AttemptNumber != i+1 {
			t.Errorf("record %d attempt = %d, want %d", i, records[i].AttemptNumber, i+1)
		}
	}
}

func TestRun_RetryExhausted(t *testing.T) {
	def := unit("extract")
	def.RetryAttempts = 2
	dag := buildDAG(t, def)

	runner := newFakeRunner()
	log := newStubLog()
	runner.on("extract", func(context.Context, int) error {
		return errors.New("persistent failure")
	})

	result, err := newOrchestrator(runner, log, 4).Run(context.Background(), dag)
	if err != nil {
		t.Fatalf("partial failure must not be an error: %v", err)
	}

	if result.Status != domain.RunStatusFailed {
		t.Errorf("status = %s, want FAILED", result.Status)
	}
	if result.NodeStatus["extract"] != domain.NodeStatusFailed {
		t.Errorf("node status = %s, want FAILED", result.NodeStatus["extract"])
	}
	if runner.callCount("extract") != 2 {
		t.Errorf("attempts = %d, want 2", runner.callCount("extract"))
	}
}

func TestRun_RetryPauseDoesNotBlockOthers(t *testing.T) {
	failing := unit("flaky")
	failing.RetryAttempts = 2
	failing.RetryIntervalSec = 1
	dag := buildDAG(t, failing, unit("steady"))

	runner := newFakeRunner()
	log := newStubLog()
	runner.on("flaky", func(_ context.Context, attempt int) error {
		if attempt == 1 {
			return errors.New("first attempt fails")
		}
		return nil
	})

	result, err := newOrchestrator(runner, log, 1).Run(context.Background(), dag)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if result.Status != domain.RunStatusSuccess {
		t.Errorf("status = %s, want SUCCESS", result.Status)
	}

	// steady завершается во время retry-паузы flaky, не после неё.
	steady := log.forNode("steady")
	flaky := log.forNode("flaky")
	if len(steady) != 1 || len(flaky) != 2 {
		t.Fatalf("records: steady=%d flaky=%d", len(steady), len(flaky))
	}
	if !steady[0].EndedAt.Before(*flaky[1].StartedAt) {
		t.Error("independent node should finish during the retry pause")
	}
}

func TestRun_SkipCascade(t *testing.T) {
	dag := buildDAG(t,
		unit("extract"),
		unit("transform", "extract"),
		unit("load", "transform"),
		unit("audit"),
	)
	runner := newFakeRunner()
	log := newStubLog()
	runner.on("extract", func(context.Context, int) error {
		return errors.New("source unavailable")
	})

	result, err := newOrchestrator(runner, log, 4).Run(context.Background(), dag)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if result.Status != domain.RunStatusFailed {
		t.Errorf("status = %s, want FAILED", result.Status)
	}
	if result.NodeStatus["extract"] != domain.NodeStatusFailed {
		t.Errorf("extract = %s, want FAILED", result.NodeStatus["extract"])
	}
	for _, name := range []string{"transform", "load"} {
		if result.NodeStatus[name] != domain.NodeStatusSkipped {
			t.Errorf("%s = %s, want SKIPPED", name, result.NodeStatus[name])
		}
		if runner.callCount(name) != 0 {
			t.Errorf("%s must not execute, ran %d times", name, runner.callCount(name))
		}

		// Пропущенный узел получает ровно одну маркерную запись.
		records := log.forNode(name)
		if len(records) != 1 {
			t.Fatalf("%s: expected 1 skip marker, got %d records", name, len(records))
		}
		if !records[0].IsSkipMarker() {
			t.Errorf("%s: record is not a skip marker: %+v", name, records[0])
		}
		if records[0].Status != domain.AttemptStatusSkipped {
			t.Errorf("%s: marker status = %s", name, records[0].Status)
		}
	}

	// Независимая ветка не страдает.
	if result.NodeStatus["audit"] != domain.NodeStatusSuccess {
		t.Errorf("audit = %s, want SUCCESS", result.NodeStatus["audit"])
	}
}

func TestRun_TimeoutClassified(t *testing.T) {
	def := unit("slow")
	def.TimeoutSec = 1
	dag := buildDAG(t, def)

	runner := newFakeRunner()
	log := newStubLog()
	runner.on("slow", func(ctx context.Context, _ int) error {
		<-ctx.Done()
		return ctx.Err()
	})

	result, err := newOrchestrator(runner, log, 4).Run(context.Background(), dag)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if result.NodeStatus["slow"] != domain.NodeStatusFailed {
		t.Errorf("node status = %s, want FAILED", result.NodeStatus["slow"])
	}
	records := log.forNode("slow")
	if len(records) != 1 {
		t.Fatalf("expected 1 record, got %d", len(records))
	}
	if records[0].Status != domain.AttemptStatusTimeout {
		t.Errorf("record status = %s, want TIMEOUT", records[0].Status)
	}
	if records[0].ErrorMessage == "" {
		t.Error("timeout record should carry an error message")
	}
}

func TestRun_Cancellation(t *testing.T) {
	dag := buildDAG(t,
		unit("first"),
		unit("second", "first"),
		unit("third", "second"),
	)
	runner := newFakeRunner()
	log := newStubLog()

	ctx, cancel := context.WithCancel(context.Background())
	runner.on("first", func(context.Context, int) error {
		// Отмена приходит, пока попытка в полёте; попытка дорабатывает.
		cancel()
		time.Sleep(20 * time.Millisecond)
		return nil
	})

	result, err := newOrchestrator(runner, log, 4).Run(ctx, dag)
	if !errors.Is(err, context.Canceled) {
		t.Fatalf("expected context.Canceled, got %v", err)
	}

	if result.Status != domain.RunStatusCancelled {
		t.Errorf("status = %s, want CANCELLED", result.Status)
	}

	// Попытка в полёте завершилась и записана.
	first := log.forNode("first")
	if len(first) != 1 || first[0].Status != domain.AttemptStatusSuccess {
		t.Errorf("in-flight attempt must be recorded: %+v", first)
	}
	if result.NodeStatus["first"] != domain.NodeStatusSuccess {
		t.Errorf("first = %s, want SUCCESS", result.NodeStatus["first"])
	}

	// Не начатые узлы пропущены с маркерами.
	for _, name := range []string{"second", "third"} {
		if result.NodeStatus[name] != domain.NodeStatusSkipped {
			t.Errorf("%s = %s, want SKIPPED", name, result.NodeStatus[name])
		}
		if runner.callCount(name) != 0 {
			t.Errorf("%s must not start after cancellation", name)
		}
		records := log.forNode(name)
		if len(records) != 1 || !records[0].IsSkipMarker() {
			t.Errorf("%s: expected skip marker, got %+v", name, records)
		}
	}
}

func TestRun_PingFailureAbortsBeforeSideEffects(t *testing.T) {
	dag := buildDAG(t, unit("extract"))
	runner := newFakeRunner()
	log := newStubLog()
	log.pingErr = errors.New("database down")

	result, err := newOrchestrator(runner, log, 4).Run(context.Background(), dag)
	if !errors.Is(err, ErrSchedulingFatal) {
		t.Fatalf("expected ErrSchedulingFatal, got %v", err)
	}
	if result != nil {
		t.Errorf("expected nil result, got %+v", result)
	}
	if runner.callCount("extract") != 0 {
		t.Error("no attempt may start when the log is unreachable")
	}
	if log.size() != 0 {
		t.Error("no records may be written when the log is unreachable")
	}
}

func TestRun_AppendFailureAbortsRun(t *testing.T) {
	dag := buildDAG(t,
		unit("extract"),
		unit("load", "extract"),
	)
	runner := newFakeRunner()
	log := newStubLog()
	log.failAfter = 0 // первый же Append падает

	result, err := newOrchestrator(runner, log, 4).Run(context.Background(), dag)
	if !errors.Is(err, ErrSchedulingFatal) {
		t.Fatalf("expected ErrSchedulingFatal, got %v", err)
	}

	if result.Status != domain.RunStatusAborted {
		t.Errorf("status = %s, want ABORTED", result.Status)
	}
	for name, status := range result.NodeStatus {
		if status != domain.NodeStatusAborted {
			t.Errorf("node %s = %s, want ABORTED", name, status)
		}
	}
}

func TestRun_AppendFailureKeepsTerminalStatuses(t *testing.T) {
	dag := buildDAG(t,
		unit("extract"),
		unit("load", "extract"),
	)
	runner := newFakeRunner()
	log := newStubLog()
	log.failAfter = 1 // запись extract проходит, запись load падает

	result, err := newOrchestrator(runner, log, 4).Run(context.Background(), dag)
	if !errors.Is(err, ErrSchedulingFatal) {
		t.Fatalf("expected ErrSchedulingFatal, got %v", err)
	}

	if result.Status != domain.RunStatusAborted {
		t.Errorf("status = %s, want ABORTED", result.Status)
	}
	// Узел, успевший достичь терминального статуса до фатального
	// сбоя журнала, сохраняет его; прерываются только незавершённые.
	if result.NodeStatus["extract"] != domain.NodeStatusSuccess {
		t.Errorf("extract = %s, want SUCCESS", result.NodeStatus["extract"])
	}
	if result.NodeStatus["load"] != domain.NodeStatusAborted {
		t.Errorf("load = %s, want ABORTED", result.NodeStatus["load"])
	}

	records := log.forNode("extract")
	if len(records) != 1 || records[0].Status != domain.AttemptStatusSuccess {
		t.Fatalf("expected 1 success record for extract, got %+v", records)
	}
	if got := log.forNode("load"); len(got) != 0 {
		t.Errorf("no load records must survive the journal failure, got %+v", got)
	}
}

func TestRun_RunnerPanicContained(t *testing.T) {
	dag := buildDAG(t, unit("extract"))
	runner := newFakeRunner()
	log := newStubLog()
	runner.on("extract", func(context.Context, int) error {
		panic("boom")
	})

	result, err := newOrchestrator(runner, log, 4).Run(context.Background(), dag)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if result.NodeStatus["extract"] != domain.NodeStatusFailed {
		t.Errorf("node status = %s, want FAILED", result.NodeStatus["extract"])
	}
	records := log.forNode("extract")
	if len(records) != 1 || records[0].Status != domain.AttemptStatusFailed {
		t.Fatalf("expected 1 failed record, got %+v", records)
	}
	if records[0].ErrorMessage == "" {
		t.Error("panic must surface as an attempt error message")
	}
}

func TestRun_MissingCollaborators(t *testing.T) {
	dag := buildDAG(t, unit("extract"))

	if _, err := New(Config{Log: newStubLog()}).Run(context.Background(), dag); !errors.Is(err, ErrNoRunner) {
		t.Errorf("expected ErrNoRunner, got %v", err)
	}
	if _, err := New(Config{Runner: newFakeRunner()}).Run(context.Background(), dag); !errors.Is(err, ErrNoLog) {
		t.Errorf("expected ErrNoLog, got %v", err)
	}
}
