package cli

import (
	"context"
	"time"

	"github.com/spf13/cobra"

	"github.com/shaiso/Dirigent/internal/orchestrator"
	"github.com/shaiso/Dirigent/internal/runner"
	"github.com/shaiso/Dirigent/internal/telemetry"
)

// NewRunCmd создаёт команду run: выполнение графа одной или
// нескольких групп.
func NewRunCmd(outputFn func() *Output) *cobra.Command {
	var groups []string
	var file string
	var maxParallelism int
	var groupParallelism int
	var timeout time.Duration
	var dryRun bool
	var verbose bool

	cmd := &cobra.Command{
		Use:   "run",
		Short: "Run the dependency graph of one or more groups",
		RunE: func(cmd *cobra.Command, args []string) error {
			out := outputFn()
			ctx := cmd.Context()
			if timeout > 0 {
				var cancel context.CancelFunc
				ctx, cancel = context.WithTimeout(ctx, timeout)
				defer cancel()
			}
			logger := telemetry.FromContext(ctx)

			d, err := openDeps(ctx, file)
			if err != nil {
				return err
			}
			defer d.cleanup()

			var taskRunner orchestrator.TaskRunner = runner.NewRegistry()
			if dryRun {
				taskRunner = runner.NewNoopRunner()
			}

			svc := d.service(taskRunner, logger)
			opts := orchestrator.RunOptions{
				MaxParallelism: maxParallelism,
				Source:         "cli",
			}

			results := svc.RunGroups(ctx, groups, groupParallelism, opts)

			anyFailed := false
			for _, gr := range results {
				if gr.Err != nil {
					anyFailed = true
					out.Error("group %s: %v", gr.Group, gr.Err)
					continue
				}
				out.RunResult(gr.Result, verbose)
				if !gr.Result.AllSucceeded() {
					anyFailed = true
				}
			}

			if anyFailed {
				return orchestrator.ErrGroupFailed
			}
			return nil
		},
	}

	cmd.Flags().StringSliceVar(&groups, "group", nil, "Process group to run (repeatable)")
	cmd.Flags().StringVar(&file, "file", "", "Definitions YAML file (default: Postgres via DB_URL)")
	cmd.Flags().IntVar(&maxParallelism, "max-parallelism", 0, "Concurrent node attempts per group (default 4)")
	cmd.Flags().IntVar(&groupParallelism, "group-parallelism", 1, "Concurrent groups")
	cmd.Flags().DurationVar(&timeout, "timeout", 0, "Overall run deadline (0 — none)")
	cmd.Flags().BoolVar(&dryRun, "dry-run", false, "Schedule without executing units")
	cmd.Flags().BoolVarP(&verbose, "verbose", "v", false, "Print per-attempt records")
	cmd.MarkFlagRequired("group")

	return cmd
}
