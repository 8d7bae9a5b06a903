package runner

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/shaiso/Dirigent/internal/domain"
	"github.com/shaiso/Dirigent/internal/orchestrator"
)

// Ошибки runner'ов.
var (
	// ErrUnknownScheme — для схемы ссылки не зарегистрирован runner.
	ErrUnknownScheme = errors.New("no runner registered for reference scheme")

	// ErrBadReference — ссылка без схемы либо пустая.
	ErrBadReference = errors.New("malformed unit reference")
)

// Registry маршрутизирует попытку к runner'у по схеме ссылки.
//
// Схема — префикс до "://": http://host/hook → "http",
// cmd://scripts/load.sh → "cmd". Сам Registry реализует
// orchestrator.TaskRunner, поэтому подставляется оркестратору напрямую.
type Registry struct {
	runners map[string]orchestrator.TaskRunner
}

// NewRegistry создаёт реестр с runner'ами по умолчанию:
// http/https, cmd и noop.
func NewRegistry() *Registry {
	r := &Registry{runners: make(map[string]orchestrator.TaskRunner)}
	httpRunner := NewHTTPRunner(nil)
	r.Register("http", httpRunner)
	r.Register("https", httpRunner)
	r.Register("cmd", NewCmdRunner())
	r.Register("noop", NewNoopRunner())
	return r
}

// Register добавляет runner для схемы.
func (r *Registry) Register(scheme string, runner orchestrator.TaskRunner) {
	r.runners[scheme] = runner
}

// Execute выбирает runner по схеме ссылки и делегирует попытку ему.
func (r *Registry) Execute(ctx context.Context, unit *domain.WorkUnit, attempt int) error {
	scheme, err := referenceScheme(unit.Reference)
	if err != nil {
		return err
	}
	runner, ok := r.runners[scheme]
	if !ok {
		return fmt.Errorf("%w: %s", ErrUnknownScheme, scheme)
	}
	return runner.Execute(ctx, unit, attempt)
}

// referenceScheme извлекает схему из ссылки.
func referenceScheme(reference string) (string, error) {
	scheme, _, found := strings.Cut(reference, "://")
	if !found || scheme == "" {
		return "", fmt.Errorf("%w: %q", ErrBadReference, reference)
	}
	return strings.ToLower(scheme), nil
}
