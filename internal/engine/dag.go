package engine

import (
	"sort"

	"github.com/shaiso/Dirigent/internal/domain"
)

// Node — узел графа зависимостей.
type Node struct {
	// Unit — определение единицы работы. Копия: Build не изменяет
	// входные определения и не держит ссылок на них.
	Unit domain.WorkUnit

	// InDegree — количество прямых зависимостей.
	InDegree int

	// DependsOn — узлы, от которых зависит этот узел.
	DependsOn []*Node

	// Dependents — узлы, которые зависят от этого узла.
	Dependents []*Node
}

// Name возвращает имя узла.
func (n *Node) Name() string {
	return n.Unit.Name
}

// DAG — направленный ациклический граф единиц работы одной группы.
//
// DAG — инертные данные: состояние выполнения живёт в запуске,
// поэтому один граф можно выполнять многократно.
type DAG struct {
	// Group — группа, для которой построен граф.
	Group string

	// Nodes — все узлы графа (имя → узел).
	Nodes map[string]*Node

	// Roots — узлы без зависимостей (точки входа).
	Roots []*Node

	// Order — топологически отсортированный список узлов.
	Order []*Node
}

// Build строит граф из набора определений для одной группы.
//
// Этапы:
//  1. Фильтрация: остаются только активные единицы указанной группы.
//  2. Валидация полей и уникальности имён.
//  3. Связывание по зависимостям; ссылка на отсутствующую, неактивную
//     или чужую единицу — ошибка построения, частичный граф не возвращается.
//  4. Поиск циклов обходом в глубину; ошибка перечисляет весь цикл.
//  5. Вычисление корней и топологического порядка.
//
// Build детерминирован: для одного набора определений множество рёбер
// всегда одинаково, повторный вызов даёт структурно идентичный граф.
func Build(defs []domain.WorkUnit, group string) (*DAG, error) {
	dag := &DAG{
		Group: group,
		Nodes: make(map[string]*Node),
	}

	// Первый проход: фильтруем, валидируем, создаём узлы.
	for i := range defs {
		def := &defs[i]
		if !def.Active || def.ProcessGroup != group {
			continue
		}
		if err := validateUnit(def, group); err != nil {
			return nil, err
		}
		if _, exists := dag.Nodes[def.Name]; exists {
			return nil, NewConfigError(group, def.Name, "node_name",
				"duplicate unit name", ErrDuplicateUnit)
		}

		unit := *def
		unit.Params = def.Params.Clone()
		unit.DependsOn = append([]string(nil), def.DependsOn...)
		// Каждый запланированный узел получает минимум одну попытку.
		if unit.RetryAttempts < 1 {
			unit.RetryAttempts = 1
		}
		dag.Nodes[def.Name] = &Node{Unit: unit}
	}

	if len(dag.Nodes) == 0 {
		return nil, NewConfigError(group, "", "process_group",
			"no active units in group", ErrEmptyGroup)
	}

	// Второй проход: связываем узлы по зависимостям.
	for _, name := range sortedNames(dag.Nodes) {
		node := dag.Nodes[name]
		for _, depName := range node.Unit.DependsOn {
			if depName == name {
				return nil, NewConfigError(group, name, "dependencies",
					"unit depends on itself", ErrSelfDependency)
			}
			dep, exists := dag.Nodes[depName]
			if !exists {
				return nil, NewConfigError(group, name, "dependencies",
					dependencyDetail(defs, group, depName), ErrUnknownDependency)
			}
			addEdge(dep, node)
		}
	}

	// Поиск циклов.
	if cycle := dag.findCycle(); cycle != nil {
		return nil, &CycleError{Group: group, Names: cycle}
	}

	dag.findRoots()
	dag.Order = dag.topologicalOrder()

	return dag, nil
}

// validateUnit проверяет скалярные поля определения.
func validateUnit(def *domain.WorkUnit, group string) error {
	if def.Name == "" {
		return NewConfigError(group, "", "node_name",
			"unit has empty name", ErrEmptyName)
	}
	if def.Reference == "" {
		return NewConfigError(group, def.Name, "unit_reference",
			"unit has empty reference", ErrEmptyReference)
	}
	if def.TimeoutSec <= 0 {
		return NewConfigError(group, def.Name, "timeout_seconds",
			"timeout must be positive", ErrBadTimeout)
	}
	if def.RetryIntervalSec < 0 {
		return NewConfigError(group, def.Name, "retry_interval_seconds",
			"retry interval must not be negative", ErrBadRetryInterval)
	}
	return nil
}

// dependencyDetail уточняет, почему зависимость не разрешилась:
// единицы нет вовсе, она неактивна или находится в другой группе.
func dependencyDetail(defs []domain.WorkUnit, group, depName string) string {
	for i := range defs {
		def := &defs[i]
		if def.Name != depName {
			continue
		}
		if def.ProcessGroup != group {
			return "depends on unit " + depName + " from group " + def.ProcessGroup
		}
		if !def.Active {
			return "depends on inactive unit " + depName
		}
	}
	return "depends on unknown unit " + depName
}

// addEdge добавляет ребро dep → node.
// Повторные рёбра схлопываются, чтобы не задваивать InDegree.
func addEdge(dep, node *Node) {
	for _, existing := range node.DependsOn {
		if existing.Name() == dep.Name() {
			return
		}
	}
	dep.Dependents = append(dep.Dependents, node)
	node.DependsOn = append(node.DependsOn, dep)
	node.InDegree++
}

// findCycle ищет цикл обходом в глубину по отношению "зависит от".
// Возвращает имена всех узлов цикла в порядке обхода, либо nil.
func (d *DAG) findCycle() []string {
	const (
		white = iota // не посещён
		grey         // в текущем пути обхода
		black        // полностью обработан
	)

	color := make(map[string]int, len(d.Nodes))
	var path []string
	var cycle []string

	var visit func(node *Node) bool
	visit = func(node *Node) bool {
		name := node.Name()
		color[name] = grey
		path = append(path, name)

		for _, dep := range node.DependsOn {
			switch color[dep.Name()] {
			case white:
				if visit(dep) {
					return true
				}
			case grey:
				// Вырезаем цикл из текущего пути.
				for i, onPath := range path {
					if onPath == dep.Name() {
						cycle = append(cycle, path[i:]...)
						return true
					}
				}
			}
		}

		path = path[:len(path)-1]
		color[name] = black
		return false
	}

	// Обходим в отсортированном порядке, чтобы сообщение об ошибке
	// было одинаковым от запуска к запуску.
	for _, name := range sortedNames(d.Nodes) {
		if color[name] == white && visit(d.Nodes[name]) {
			return cycle
		}
	}
	return nil
}

// findRoots находит узлы без входящих рёбер.
func (d *DAG) findRoots() {
	d.Roots = make([]*Node, 0)
	for _, name := range sortedNames(d.Nodes) {
		if node := d.Nodes[name]; node.InDegree == 0 {
			d.Roots = append(d.Roots, node)
		}
	}
}

// topologicalOrder строит топологический порядок (алгоритм Кана).
// Вызывается после findCycle, поэтому порядок всегда полон.
func (d *DAG) topologicalOrder() []*Node {
	inDegree := make(map[string]int, len(d.Nodes))
	for name, node := range d.Nodes {
		inDegree[name] = node.InDegree
	}

	queue := make([]*Node, len(d.Roots))
	copy(queue, d.Roots)

	order := make([]*Node, 0, len(d.Nodes))
	for len(queue) > 0 {
		node := queue[0]
		queue = queue[1:]
		order = append(order, node)

		for _, dependent := range node.Dependents {
			inDegree[dependent.Name()]--
			if inDegree[dependent.Name()] == 0 {
				queue = append(queue, dependent)
			}
		}
	}
	return order
}

// GetNode возвращает узел по имени.
func (d *DAG) GetNode(name string) *Node {
	return d.Nodes[name]
}

// Size возвращает количество узлов.
func (d *DAG) Size() int {
	return len(d.Nodes)
}

// sortedNames возвращает имена узлов в лексикографическом порядке.
func sortedNames(nodes map[string]*Node) []string {
	names := make([]string, 0, len(nodes))
	for name := range nodes {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}
