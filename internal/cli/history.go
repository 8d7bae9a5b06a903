package cli

import (
	"github.com/google/uuid"
	"github.com/spf13/cobra"

	"github.com/shaiso/Dirigent/internal/repo"
)

// NewHistoryCmd создаёт группу команд для просмотра истории выполнения.
func NewHistoryCmd(outputFn func() *Output) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "history",
		Short: "Inspect past runs and the execution journal",
	}

	cmd.AddCommand(
		newHistoryRunsCmd(outputFn),
		newHistoryRecordsCmd(outputFn),
	)

	return cmd
}

// newHistoryRunsCmd — список запусков, новые первыми.
func newHistoryRunsCmd(outputFn func() *Output) *cobra.Command {
	var group string
	var limit int

	cmd := &cobra.Command{
		Use:   "runs",
		Short: "List runs",
		RunE: func(cmd *cobra.Command, args []string) error {
			out := outputFn()
			ctx := cmd.Context()

			pool, err := repo.NewPool(ctx)
			if err != nil {
				return err
			}
			defer pool.Close()

			runs, err := repo.NewRunRepo(pool).List(ctx, repo.RunFilter{
				Group: group,
				Limit: limit,
			})
			if err != nil {
				return err
			}

			out.Runs(runs)
			return nil
		},
	}

	cmd.Flags().StringVar(&group, "group", "", "Filter by process group")
	cmd.Flags().IntVar(&limit, "limit", 0, "Max runs to show (default 50)")

	return cmd
}

// newHistoryRecordsCmd — записи журнала одного запуска.
func newHistoryRecordsCmd(outputFn func() *Output) *cobra.Command {
	var runIDStr string
	var node string
	var limit int

	cmd := &cobra.Command{
		Use:   "records",
		Short: "Show journal records of a run",
		RunE: func(cmd *cobra.Command, args []string) error {
			out := outputFn()
			ctx := cmd.Context()

			runID, err := uuid.Parse(runIDStr)
			if err != nil {
				return err
			}

			pool, err := repo.NewPool(ctx)
			if err != nil {
				return err
			}
			defer pool.Close()

			records, err := repo.NewLogRepo(pool).List(ctx, repo.LogFilter{
				RunID: &runID,
				Node:  node,
				Limit: limit,
			})
			if err != nil {
				return err
			}

			out.Records(records)
			return nil
		},
	}

	cmd.Flags().StringVar(&runIDStr, "run-id", "", "Run identifier (UUID)")
	cmd.Flags().StringVar(&node, "node", "", "Filter by node name")
	cmd.Flags().IntVar(&limit, "limit", 0, "Max records to show (default 100)")
	cmd.MarkFlagRequired("run-id")

	return cmd
}
