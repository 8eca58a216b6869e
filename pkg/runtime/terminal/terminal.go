package terminal

import (
	"io"
	"os"

	"github.com/mixtools/mixatlas/pkg/runtime/terminal/commands"
	"github.com/mixtools/mixatlas/pkg/runtime/terminal/export"
	"github.com/mixtools/mixatlas/pkg/services/registry"
	"github.com/mixtools/mixatlas/pkg/store/sqlite/runs"
	"github.com/spf13/cobra"
)

// Options carries the dependencies the terminal commands need.
type Options struct {
	Registry  registry.Explorer
	Allocator commands.Allocator
	Runs      runs.Store
	Output    io.Writer
}

type CLI struct {
	root *cobra.Command
}

func NewCLI(opts Options) *CLI {
	if opts.Output == nil {
		opts.Output = os.Stdout
	}

	root := &cobra.Command{
		Use:           "mixatlas",
		Short:         "Budget allocation for marketing mix models",
		SilenceUsage:  true,
		SilenceErrors: true,
	}
	root.SetOut(opts.Output)

	reporter := export.NewReporter(opts.Output)

	root.AddCommand(
		commands.NewModelsCmd(opts.Registry),
		commands.NewAllocateCmd(opts.Registry, opts.Allocator, opts.Runs, reporter),
		commands.NewRunsCmd(opts.Runs),
	)

	return &CLI{root: root}
}

func (c *CLI) Execute() error {
	return c.root.Execute()
}
