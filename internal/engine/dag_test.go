package engine

import (
	"errors"
	"reflect"
	"testing"

	"github.com/shaiso/Dirigent/internal/domain"
)

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

func TestBuild_SimpleChain(t *testing.T) {
	defs := []domain.WorkUnit{
		unit("extract"),
		unit("transform", "extract"),
		unit("load", "transform"),
	}

	dag, err := Build(defs, "etl")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if dag.Size() != 3 {
		t.Errorf("expected 3 nodes, got %d", dag.Size())
	}

	// Проверяем корневые узлы
	if len(dag.Roots) != 1 {
		t.Fatalf("expected 1 root node, got %d", len(dag.Roots))
	}
	if dag.Roots[0].Name() != "extract" {
		t.Errorf("expected root extract, got %s", dag.Roots[0].Name())
	}

	// Проверяем зависимости
	transform := dag.GetNode("transform")
	if len(transform.DependsOn) != 1 || transform.DependsOn[0].Name() != "extract" {
		t.Error("transform should depend on extract")
	}

	load := dag.GetNode("load")
	if len(load.DependsOn) != 1 || load.DependsOn[0].Name() != "transform" {
		t.Error("load should depend on transform")
	}
}

func TestBuild_Diamond(t *testing.T) {
	// extract → clean → merge
	// extract → enrich → merge
	defs := []domain.WorkUnit{
		unit("extract"),
		unit("clean", "extract"),
		unit("enrich", "extract"),
		unit("merge", "clean", "enrich"),
	}

	dag, err := Build(defs, "etl")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if dag.Size() != 4 {
		t.Errorf("expected 4 nodes, got %d", dag.Size())
	}

	merge := dag.GetNode("merge")
	if len(merge.DependsOn) != 2 {
		t.Errorf("merge should have 2 dependencies, got %d", len(merge.DependsOn))
	}

	// Проверяем inDegree
	if dag.GetNode("extract").InDegree != 0 {
		t.Error("extract should have inDegree 0")
	}
	if dag.GetNode("clean").InDegree != 1 {
		t.Error("clean should have inDegree 1")
	}
	if dag.GetNode("merge").InDegree != 2 {
		t.Error("merge should have inDegree 2")
	}
}

func TestBuild_TopologicalOrder(t *testing.T) {
	defs := []domain.WorkUnit{
		unit("merge", "clean", "enrich"),
		unit("enrich", "extract"),
		unit("clean", "extract"),
		unit("extract"),
	}

	dag, err := Build(defs, "etl")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if len(dag.Order) != 4 {
		t.Fatalf("expected 4 nodes in order, got %d", len(dag.Order))
	}

	pos := make(map[string]int)
	for i, node := range dag.Order {
		pos[node.Name()] = i
	}
	for _, node := range dag.Order {
		for _, dep := range node.DependsOn {
			if pos[dep.Name()] >= pos[node.Name()] {
				t.Errorf("%s must come after %s in topological order",
					node.Name(), dep.Name())
			}
		}
	}
}

func TestBuild_FiltersInactiveAndForeign(t *testing.T) {
	inactive := unit("cleanup")
	inactive.Active = false
	foreign := unit("report")
	foreign.ProcessGroup = "reporting"

	defs := []domain.WorkUnit{
		unit("extract"),
		inactive,
		foreign,
	}

	dag, err := Build(defs, "etl")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if dag.Size() != 1 {
		t.Errorf("expected 1 node after filtering, got %d", dag.Size())
	}
	if dag.GetNode("cleanup") != nil {
		t.Error("inactive unit should not appear in graph")
	}
	if dag.GetNode("report") != nil {
		t.Error("unit of another group should not appear in graph")
	}
}

func TestBuild_EmptyGroup(t *testing.T) {
	inactive := unit("cleanup")
	inactive.Active = false

	_, err := Build([]domain.WorkUnit{inactive}, "etl")
	if !errors.Is(err, ErrEmptyGroup) {
		t.Fatalf("expected ErrEmptyGroup, got %v", err)
	}
}

func TestBuild_DuplicateName(t *testing.T) {
	defs := []domain.WorkUnit{
		unit("extract"),
		unit("extract"),
	}

	_, err := Build(defs, "etl")
	if !errors.Is(err, ErrDuplicateUnit) {
		t.Fatalf("expected ErrDuplicateUnit, got %v", err)
	}

	var cfgErr *ConfigError
	if !errors.As(err, &cfgErr) {
		t.Fatalf("expected ConfigError, got %T", err)
	}
	if cfgErr.Unit != "extract" {
		t.Errorf("expected unit extract in error, got %q", cfgErr.Unit)
	}
}

func TestBuild_UnknownDependency(t *testing.T) {
	defs := []domain.WorkUnit{
		unit("load", "transform"),
	}

	_, err := Build(defs, "etl")
	if !errors.Is(err, ErrUnknownDependency) {
		t.Fatalf("expected ErrUnknownDependency, got %v", err)
	}
}

func TestBuild_InactiveDependency(t *testing.T) {
	// Зависимость на неактивную единицу — ошибка построения,
	// а не тихое удаление ребра.
	inactive := unit("extract")
	inactive.Active = false

	defs := []domain.WorkUnit{
		inactive,
		unit("load", "extract"),
	}

	_, err := Build(defs, "etl")
	if !errors.Is(err, ErrUnknownDependency) {
		t.Fatalf("expected ErrUnknownDependency, got %v", err)
	}

	var cfgErr *ConfigError
	if !errors.As(err, &cfgErr) {
		t.Fatalf("expected ConfigError, got %T", err)
	}
	if cfgErr.Message != "depends on inactive unit extract" {
		t.Errorf("unexpected message: %q", cfgErr.Message)
	}
}

func TestBuild_ForeignGroupDependency(t *testing.T) {
	foreign := unit("extract")
	foreign.ProcessGroup = "reporting"

	defs := []domain.WorkUnit{
		foreign,
		unit("load", "extract"),
	}

	_, err := Build(defs, "etl")
	if !errors.Is(err, ErrUnknownDependency) {
		t.Fatalf("expected ErrUnknownDependency, got %v", err)
	}
}

func TestBuild_SelfDependency(t *testing.T) {
	defs := []domain.WorkUnit{
		unit("extract", "extract"),
	}

	_, err := Build(defs, "etl")
	if !errors.Is(err, ErrSelfDependency) {
		t.Fatalf("expected ErrSelfDependency, got %v", err)
	}
}

func TestBuild_Cycle(t *testing.T) {
	defs := []domain.WorkUnit{
		unit("a", "c"),
		unit("b", "a"),
		unit("c", "b"),
	}

	_, err := Build(defs, "etl")
	if !errors.Is(err, ErrDependencyCycle) {
		t.Fatalf("expected ErrDependencyCycle, got %v", err)
	}

	// Ошибка называет все узлы цикла.
	var cycleErr *CycleError
	if !errors.As(err, &cycleErr) {
		t.Fatalf("expected CycleError, got %T", err)
	}
	if len(cycleErr.Names) != 3 {
		t.Errorf("expected 3 nodes in cycle, got %v", cycleErr.Names)
	}
	seen := make(map[string]bool)
	for _, name := range cycleErr.Names {
		seen[name] = true
	}
	for _, name := range []string{"a", "b", "c"} {
		if !seen[name] {
			t.Errorf("cycle should mention %s: %v", name, cycleErr.Names)
		}
	}
}

func TestBuild_DuplicateEdgesCollapse(t *testing.T) {
	defs := []domain.WorkUnit{
		unit("extract"),
		unit("load", "extract", "extract"),
	}

	dag, err := Build(defs, "etl")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	load := dag.GetNode("load")
	if load.InDegree != 1 {
		t.Errorf("duplicate edge should collapse, inDegree = %d", load.InDegree)
	}
	if len(load.DependsOn) != 1 {
		t.Errorf("expected 1 dependency edge, got %d", len(load.DependsOn))
	}
}

func TestBuild_FieldValidation(t *testing.T) {
	tests := []struct {
		name    string
		mutate  func(*domain.WorkUnit)
		wantErr error
	}{
		{
			name:    "empty name",
			mutate:  func(u *domain.WorkUnit) { u.Name = "" },
			wantErr: ErrEmptyName,
		},
		{
			name:    "empty reference",
			mutate:  func(u *domain.WorkUnit) { u.Reference = "" },
			wantErr: ErrEmptyReference,
		},
		{
			name:    "zero timeout",
			mutate:  func(u *domain.WorkUnit) { u.TimeoutSec = 0 },
			wantErr: ErrBadTimeout,
		},
		{
			name:    "negative timeout",
			mutate:  func(u *domain.WorkUnit) { u.TimeoutSec = -5 },
			wantErr: ErrBadTimeout,
		},
		{
			name:    "negative retry interval",
			mutate:  func(u *domain.WorkUnit) { u.RetryIntervalSec = -1 },
			wantErr: ErrBadRetryInterval,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			def := unit("extract")
			tt.mutate(&def)

			_, err := Build([]domain.WorkUnit{def}, "etl")
			if !errors.Is(err, tt.wantErr) {
				t.Fatalf("expected %v, got %v", tt.wantErr, err)
			}
		})
	}
}

func TestBuild_NormalizesRetryAttempts(t *testing.T) {
	def := unit("extract")
	def.RetryAttempts = 0

	dag, err := Build([]domain.WorkUnit{def}, "etl")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if got := dag.GetNode("extract").Unit.RetryAttempts; got != 1 {
		t.Errorf("expected retry attempts normalized to 1, got %d", got)
	}
}

func TestBuild_DoesNotMutateInput(t *testing.T) {
	defs := []domain.WorkUnit{
		unit("extract"),
		unit("load", "extract"),
	}
	defs[0].RetryAttempts = 0

	if _, err := Build(defs, "etl"); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if defs[0].RetryAttempts != 0 {
		t.Error("Build must not mutate input definitions")
	}
}

func TestBuild_Deterministic(t *testing.T) {
	defs := []domain.WorkUnit{
		unit("merge", "clean", "enrich"),
		unit("enrich", "extract"),
		unit("clean", "extract"),
		unit("extract"),
	}

	first, err := Build(defs, "etl")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	second, err := Build(defs, "etl")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if !reflect.DeepEqual(first.Snapshot(), second.Snapshot()) {
		t.Error("repeated Build must produce structurally identical graphs")
	}
}
