package cli

import (
	"github.com/spf13/cobra"
)

// NewValidateCmd создаёт команду validate: построение графа без выполнения.
func NewValidateCmd(outputFn func() *Output) *cobra.Command {
	var group string
	var file string

	cmd := &cobra.Command{
		Use:   "validate",
		Short: "Validate group definitions and build the graph",
		RunE: func(cmd *cobra.Command, args []string) error {
			out := outputFn()
			ctx := cmd.Context()

			d, err := openDeps(ctx, file)
			if err != nil {
				return err
			}
			defer d.cleanup()

			svc := d.service(nil, nil)
			snap, err := svc.Validate(ctx, group)
			if err != nil {
				return err
			}

			out.Success("Group %s is valid: %d units, %d roots",
				group, len(snap.Units), len(snap.Roots))
			out.Snapshot(snap)
			return nil
		},
	}

	cmd.Flags().StringVar(&group, "group", "", "Process group to validate")
	cmd.Flags().StringVar(&file, "file", "", "Definitions YAML file (default: Postgres via DB_URL)")
	cmd.MarkFlagRequired("group")

	return cmd
}

// NewDagCmd создаёт группу команд для просмотра графа.
func NewDagCmd(outputFn func() *Output) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "dag",
		Short: "Inspect dependency graphs",
	}

	var group string
	var file string

	showCmd := &cobra.Command{
		Use:   "show",
		Short: "Show the dependency graph of a group",
		RunE: func(cmd *cobra.Command, args []string) error {
			out := outputFn()
			ctx := cmd.Context()

			d, err := openDeps(ctx, file)
			if err != nil {
				return err
			}
			defer d.cleanup()

			svc := d.service(nil, nil)
			snap, err := svc.Validate(ctx, group)
			if err != nil {
				return err
			}

			out.Snapshot(snap)
			return nil
		},
	}

	showCmd.Flags().StringVar(&group, "group", "", "Process group")
	showCmd.Flags().StringVar(&file, "file", "", "Definitions YAML file (default: Postgres via DB_URL)")
	showCmd.MarkFlagRequired("group")

	cmd.AddCommand(showCmd)
	return cmd
}
