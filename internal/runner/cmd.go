package runner

import (
	"context"
	"errors"
	"fmt"
	"os"
	"os/exec"
	"strings"

	"github.com/shaiso/Dirigent/internal/domain"
)

// ErrCmdFailed — локальная команда завершилась с ошибкой.
var ErrCmdFailed = errors.New("cmd runner execution failed")

// CmdRunner выполняет единицу работы локальной командой.
//
// Ссылка cmd://path/to/script.sh интерпретируется как командная строка
// для sh -c. Параметры передаются окружением: DIRIGENT_PARAM_<KEY>,
// плюс DIRIGENT_NODE и DIRIGENT_ATTEMPT. Отмена контекста убивает
// процесс — таймаут попытки работает и для зависших скриптов.
type CmdRunner struct {
	// Shell — интерпретатор (default: /bin/sh).
	Shell string
}

// NewCmdRunner создаёт CmdRunner.
func NewCmdRunner() *CmdRunner {
	return &CmdRunner{Shell: "/bin/sh"}
}

// Execute выполняет команду.
func (r *CmdRunner) Execute(ctx context.Context, unit *domain.WorkUnit, attempt int) error {
	command := strings.TrimPrefix(unit.Reference, "cmd://")
	if command == "" {
		return fmt.Errorf("%w: empty command", ErrBadReference)
	}

	cmd := exec.CommandContext(ctx, r.Shell, "-c", command)
	cmd.Env = append(os.Environ(),
		"DIRIGENT_NODE="+unit.Name,
		fmt.Sprintf("DIRIGENT_ATTEMPT=%d", attempt),
	)
	for _, key := range unit.Params.Keys() {
		value, _ := unit.Params.Get(key)
		cmd.Env = append(cmd.Env,
			fmt.Sprintf("DIRIGENT_PARAM_%s=%v", strings.ToUpper(key), value))
	}

	output, err := cmd.CombinedOutput()
	if err != nil {
		// Убитый по дедлайну процесс — таймаут, а не обычное падение.
		if ctxErr := ctx.Err(); ctxErr != nil {
			return ctxErr
		}
		return fmt.Errorf("%w: %v: %s", ErrCmdFailed, err,
			truncate(strings.TrimSpace(string(output)), maxErrorBodyLen))
	}
	return nil
}
