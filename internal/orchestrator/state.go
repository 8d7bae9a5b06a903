package orchestrator

import (
	"sort"
	"time"

	"github.com/shaiso/Dirigent/internal/domain"
	"github.com/shaiso/Dirigent/internal/engine"
)

// runState — рабочее состояние одного запуска.
//
// Всё состояние принадлежит единственной управляющей горутине Run:
// воркеры и retry-таймеры общаются с ней только через канал событий,
// поэтому мьютексы здесь не нужны.
type runState struct {
	dag *engine.DAG

	// status — текущий статус каждого узла.
	status map[string]domain.NodeStatus

	// remaining — счётчик незакрытых зависимостей узла.
	// Узел становится READY, когда счётчик доходит до нуля.
	remaining map[string]int

	// attempts — количество уже сделанных попыток узла.
	attempts map[string]int

	// ready — FIFO-очередь узлов, готовых к диспетчеризации.
	// Узлы, ждущие retry-паузу, в очереди не стоят: их вернёт таймер.
	ready []string

	// timers — активные retry-таймеры (узел → таймер).
	timers map[string]*time.Timer

	// inflight — количество попыток в полёте.
	inflight int

	// records — накопленные записи журнала в порядке завершения.
	records []domain.ExecutionRecord
}

// newRunState инициализирует состояние: все узлы PENDING,
// корни сразу переводятся в READY.
func newRunState(dag *engine.DAG) *runState {
	st := &runState{
		dag:       dag,
		status:    make(map[string]domain.NodeStatus, len(dag.Nodes)),
		remaining: make(map[string]int, len(dag.Nodes)),
		attempts:  make(map[string]int, len(dag.Nodes)),
		timers:    make(map[string]*time.Timer),
		records:   make([]domain.ExecutionRecord, 0, len(dag.Nodes)),
	}

	for name, node := range dag.Nodes {
		st.status[name] = domain.NodeStatusPending
		st.remaining[name] = node.InDegree
	}
	for _, root := range dag.Roots {
		st.enqueue(root.Name())
	}
	return st
}

// enqueue переводит узел в READY и ставит в очередь диспетчеризации.
func (st *runState) enqueue(name string) {
	st.status[name] = domain.NodeStatusReady
	st.ready = append(st.ready, name)
}

// popReady снимает первый готовый узел из очереди.
func (st *runState) popReady() (string, bool) {
	if len(st.ready) == 0 {
		return "", false
	}
	name := st.ready[0]
	st.ready = st.ready[1:]
	return name, true
}

// allTerminal возвращает true, когда каждый узел достиг финального статуса.
func (st *runState) allTerminal() bool {
	for _, status := range st.status {
		if !status.IsTerminal() {
			return false
		}
	}
	return true
}

// markSuccess фиксирует успех узла и продвигает зависимые:
// у каждого прямого зависимого уменьшается счётчик незакрытых
// зависимостей, дошедшие до нуля встают в очередь READY.
func (st *runState) markSuccess(name string) {
	st.status[name] = domain.NodeStatusSuccess
	for _, dependent := range st.dag.Nodes[name].Dependents {
		depName := dependent.Name()
		if st.status[depName] != domain.NodeStatusPending {
			continue
		}
		st.remaining[depName]--
		if st.remaining[depName] == 0 {
			st.enqueue(depName)
		}
	}
}

// markFailed фиксирует окончательное падение узла и возвращает
// имена транзитивных зависимых, подлежащих пропуску, в
// отсортированном порядке. Счётчики зависимых не трогаются:
// пропущенные узлы не выполняются, их зависимые пропускаются тоже.
func (st *runState) markFailed(name string) []string {
	st.status[name] = domain.NodeStatusFailed

	seen := make(map[string]bool)
	var walk func(node *engine.Node)
	walk = func(node *engine.Node) {
		for _, dependent := range node.Dependents {
			depName := dependent.Name()
			if seen[depName] || st.status[depName].IsTerminal() {
				continue
			}
			seen[depName] = true
			walk(dependent)
		}
	}
	walk(st.dag.Nodes[name])

	skipped := make([]string, 0, len(seen))
	for depName := range seen {
		skipped = append(skipped, depName)
	}
	sort.Strings(skipped)

	for _, depName := range skipped {
		st.status[depName] = domain.NodeStatusSkipped
		st.removeReady(depName)
	}
	return skipped
}

// nonTerminal возвращает отсортированные имена узлов без финального статуса.
func (st *runState) nonTerminal() []string {
	var names []string
	for name, status := range st.status {
		if !status.IsTerminal() {
			names = append(names, name)
		}
	}
	sort.Strings(names)
	return names
}

// removeReady убирает узел из очереди готовых, если он там стоит.
func (st *runState) removeReady(name string) {
	for i, queued := range st.ready {
		if queued == name {
			st.ready = append(st.ready[:i], st.ready[i+1:]...)
			return
		}
	}
}

// stopTimers останавливает все retry-таймеры.
// Уже сработавший таймер мог успеть отправить событие — управляющий
// цикл игнорирует retry-события для остановленного запуска.
func (st *runState) stopTimers() {
	for name, timer := range st.timers {
		timer.Stop()
		delete(st.timers, name)
	}
}
