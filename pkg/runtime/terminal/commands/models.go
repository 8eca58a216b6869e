package commands

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/mixtools/mixatlas/pkg/services/registry"
	"github.com/spf13/cobra"
)

func NewModelsCmd(reg registry.Explorer) *cobra.Command {
	return &cobra.Command{
		Use:   "models",
		Short: "List the registered model bundles",
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx, cancel := context.WithTimeout(cmd.Context(), 30*time.Second)
			defer cancel()

			summaries, err := reg.ListModels(ctx)
			if err != nil {
				return fmt.Errorf("listing models: %w", err)
			}

			out := cmd.OutOrStdout()
			for _, s := range summaries {
				fmt.Fprintf(out, "%s\ttrained %s to %s\tchannels: %s\n",
					s.Name,
					s.TrainedFrom.Format("2006-01-02"),
					s.TrainedTo.Format("2006-01-02"),
					strings.Join(s.Channels, ", "))
			}
			return nil
		},
	}
}
