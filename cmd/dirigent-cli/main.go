// Dirigent CLI — инструмент командной строки для работы
// с конфигурацией, графами и запусками.
//
// Использование:
//
//	dirigent [--json] <command> <subcommand> [flags]
//
// Команды:
//
//	validate  Проверка конфигурации группы
//	dag       Просмотр графа зависимостей
//	run       Запуск групп
//	config    Управление определениями
//	history   История запусков и журнал
package main

import (
	"context"
	"errors"
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/shaiso/Dirigent/internal/cli"
	"github.com/shaiso/Dirigent/internal/orchestrator"
)

// version задаётся через ldflags при сборке.
var version = "dev"

func main() {
	var jsonOutput bool

	rootCmd := &cobra.Command{
		Use:           "dirigent",
		Short:         "Dirigent CLI — workflow orchestration tool",
		Version:       version,
		SilenceUsage:  true,
		SilenceErrors: true,
	}

	rootCmd.PersistentFlags().BoolVar(&jsonOutput, "json", false, "Output in JSON format")

	outputFn := func() *cli.Output { return cli.NewOutput(jsonOutput) }

	rootCmd.AddCommand(
		cli.NewValidateCmd(outputFn),
		cli.NewDagCmd(outputFn),
		cli.NewRunCmd(outputFn),
		cli.NewConfigCmd(outputFn),
		cli.NewHistoryCmd(outputFn),
	)

	// CLI печатает таблицы в stdout; structured-логгер daemon'а
	// здесь не поднимается, диагностика идёт через slog.Default.
	if err := rootCmd.ExecuteContext(context.Background()); err != nil {
		if errors.Is(err, orchestrator.ErrGroupFailed) {
			// Итог уже напечатан командой; дублировать нечего.
			os.Exit(1)
		}
		fmt.Fprintln(os.Stderr, "Error:", err)
		os.Exit(1)
	}
}
