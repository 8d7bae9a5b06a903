package cli

import (
	"fmt"
	"sort"

	"github.com/spf13/cobra"

	"github.com/shaiso/Dirigent/internal/config"
	"github.com/shaiso/Dirigent/internal/domain"
	"github.com/shaiso/Dirigent/internal/repo"
)

// NewConfigCmd создаёт группу команд для управления конфигурацией.
func NewConfigCmd(outputFn func() *Output) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "config",
		Short: "Manage work unit definitions",
	}

	cmd.AddCommand(
		newConfigLoadCmd(outputFn),
		newConfigShowCmd(outputFn),
		newConfigGroupsCmd(outputFn),
	)

	return cmd
}

// newConfigLoadCmd — загрузка определений из YAML-файла в Postgres.
// Группа заменяется атомарно целиком.
func newConfigLoadCmd(outputFn func() *Output) *cobra.Command {
	var file string
	var onlyGroup string

	cmd := &cobra.Command{
		Use:   "load",
		Short: "Load definitions from a YAML file into Postgres",
		RunE: func(cmd *cobra.Command, args []string) error {
			out := outputFn()
			ctx := cmd.Context()

			units, err := config.LoadUnits(file)
			if err != nil {
				return err
			}

			// Раскладываем по группам: замена выполняется погруппно.
			byGroup := make(map[string][]domain.WorkUnit)
			for i := range units {
				unit := units[i]
				if onlyGroup != "" && unit.ProcessGroup != onlyGroup {
					continue
				}
				byGroup[unit.ProcessGroup] = append(byGroup[unit.ProcessGroup], unit)
			}
			if len(byGroup) == 0 {
				return fmt.Errorf("no definitions to load from %s", file)
			}

			pool, err := repo.NewPool(ctx)
			if err != nil {
				return err
			}
			defer pool.Close()
			configRepo := repo.NewConfigRepo(pool)

			groups := make([]string, 0, len(byGroup))
			for group := range byGroup {
				groups = append(groups, group)
			}
			sort.Strings(groups)

			for _, group := range groups {
				if err := configRepo.ReplaceGroup(ctx, group, byGroup[group]); err != nil {
					return fmt.Errorf("load group %s: %w", group, err)
				}
				out.Success("Loaded group %s: %d units", group, len(byGroup[group]))
			}
			return nil
		},
	}

	cmd.Flags().StringVar(&file, "file", "", "Definitions YAML file")
	cmd.Flags().StringVar(&onlyGroup, "group", "", "Load only this group")
	cmd.MarkFlagRequired("file")

	return cmd
}

// newConfigShowCmd — просмотр определений группы.
func newConfigShowCmd(outputFn func() *Output) *cobra.Command {
	var group string
	var file string

	cmd := &cobra.Command{
		Use:   "show",
		Short: "Show definitions of a group",
		RunE: func(cmd *cobra.Command, args []string) error {
			out := outputFn()
			ctx := cmd.Context()

			d, err := openDeps(ctx, file)
			if err != nil {
				return err
			}
			defer d.cleanup()

			units, err := d.store.ReadGroup(ctx, group)
			if err != nil {
				return err
			}

			out.Units(units)
			return nil
		},
	}

	cmd.Flags().StringVar(&group, "group", "", "Process group")
	cmd.Flags().StringVar(&file, "file", "", "Definitions YAML file (default: Postgres via DB_URL)")
	cmd.MarkFlagRequired("group")

	return cmd
}

// newConfigGroupsCmd — список групп.
func newConfigGroupsCmd(outputFn func() *Output) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "groups",
		Short: "List process groups",
		RunE: func(cmd *cobra.Command, args []string) error {
			out := outputFn()
			ctx := cmd.Context()

			pool, err := repo.NewPool(ctx)
			if err != nil {
				return err
			}
			defer pool.Close()

			groups, err := repo.NewConfigRepo(pool).ListGroups(ctx)
			if err != nil {
				return err
			}

			out.Groups(groups)
			return nil
		},
	}

	return cmd
}
