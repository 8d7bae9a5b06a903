package engine

import (
	"sort"

	"github.com/shaiso/Dirigent/internal/domain"
)

// Snapshot — сериализуемое представление графа.
// Используется командой `dag show` и тестами на идемпотентность Build.
type Snapshot struct {
	// Group — группа графа.
	Group string `json:"process_group"`

	// Roots — имена корневых узлов, отсортированы.
	Roots []string `json:"roots"`

	// Units — узлы графа: имя → определение с разрешёнными зависимостями.
	Units map[string]UnitSnapshot `json:"units"`
}

// UnitSnapshot — один узел в снимке графа.
type UnitSnapshot struct {
	// Dependencies — имена прямых зависимостей, отсортированы.
	Dependencies []string `json:"dependencies"`

	// Dependents — имена прямых зависимых узлов, отсортированы.
	Dependents []string `json:"dependents"`

	// Reference — opaque-ссылка единицы работы.
	Reference string `json:"unit_reference"`

	// Params — параметры единицы работы.
	Params domain.Params `json:"parameters"`

	// TimeoutSec — бюджет попытки в секундах.
	TimeoutSec int `json:"timeout_seconds"`

	// RetryAttempts — число разрешённых попыток.
	RetryAttempts int `json:"retry_attempts"`

	// RetryIntervalSec — пауза между попытками в секундах.
	RetryIntervalSec int `json:"retry_interval_seconds"`
}

// Snapshot строит снимок графа. Все списки отсортированы, поэтому
// снимки двух Build по одному набору определений сравнимы напрямую.
func (d *DAG) Snapshot() Snapshot {
	snap := Snapshot{
		Group: d.Group,
		Roots: make([]string, 0, len(d.Roots)),
		Units: make(map[string]UnitSnapshot, len(d.Nodes)),
	}

	for _, root := range d.Roots {
		snap.Roots = append(snap.Roots, root.Name())
	}
	sort.Strings(snap.Roots)

	for name, node := range d.Nodes {
		unit := UnitSnapshot{
			Dependencies:     nodeNames(node.DependsOn),
			Dependents:       nodeNames(node.Dependents),
			Reference:        node.Unit.Reference,
			Params:           node.Unit.Params,
			TimeoutSec:       node.Unit.TimeoutSec,
			RetryAttempts:    node.Unit.RetryAttempts,
			RetryIntervalSec: node.Unit.RetryIntervalSec,
		}
		snap.Units[name] = unit
	}
	return snap
}

// nodeNames возвращает отсортированные имена узлов.
func nodeNames(nodes []*Node) []string {
	names := make([]string, 0, len(nodes))
	for _, node := range nodes {
		names = append(names, node.Name())
	}
	sort.Strings(names)
	return names
}
