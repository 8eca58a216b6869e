package commands

import (
	"context"
	"fmt"
	"time"

	"github.com/mixtools/mixatlas/pkg/store/sqlite/runs"
	"github.com/spf13/cobra"
)

type RunsCmd struct {
	limit int
	runs  runs.Store
}

func NewRunsCmd(runStore runs.Store) *cobra.Command {
	rc := &RunsCmd{runs: runStore}
	cmd := &cobra.Command{
		Use:   "runs",
		Short: "Show recent allocation runs",
		RunE:  rc.run,
	}
	cmd.Flags().IntVar(&rc.limit, "limit", 20, "Maximum number of runs to show")
	return cmd
}

func (rc *RunsCmd) run(cmd *cobra.Command, args []string) error {
	ctx, cancel := context.WithTimeout(cmd.Context(), 30*time.Second)
	defer cancel()

	records, err := rc.runs.List(ctx, rc.limit)
	if err != nil {
		return fmt.Errorf("listing runs: %w", err)
	}

	out := cmd.OutOrStdout()
	for _, r := range records {
		fmt.Fprintf(out, "%s\t%s\tweeks=%d\tbudget=%.2f\tkpi %.2f -> %.2f\t%s\n",
			r.ID, r.Model, r.Weeks, r.Budget, r.KPIBefore, r.KPIAfter,
			r.CreatedAt.Format(time.RFC3339))
	}
	return nil
}
