package commands

import (
	"context"
	"fmt"
	"time"

	"github.com/mixtools/mixatlas/pkg/adapters"
	"github.com/mixtools/mixatlas/pkg/mmm"
	"github.com/mixtools/mixatlas/pkg/models/domain"
	"github.com/mixtools/mixatlas/pkg/runtime/terminal/export"
	"github.com/mixtools/mixatlas/pkg/services/registry"
	"github.com/mixtools/mixatlas/pkg/store/sqlite/runs"
	"github.com/spf13/cobra"
)

// Allocator runs one budget optimization against a loaded bundle.
type Allocator interface {
	Allocate(ctx context.Context, bundle *mmm.Bundle, window domain.ForecastWindow, budget float64) (*domain.AllocationReport, error)
}

type AllocateCmd struct {
	model  string
	weeks  int
	budget float64

	registry  registry.Explorer
	allocator Allocator
	runs      runs.Store
	reporter  *export.Reporter
}

func NewAllocateCmd(reg registry.Explorer, allocator Allocator, runStore runs.Store, reporter *export.Reporter) *cobra.Command {
	ac := &AllocateCmd{registry: reg, allocator: allocator, runs: runStore, reporter: reporter}
	cmd := &cobra.Command{
		Use:   "allocate",
		Short: "Optimize a budget across a model's media channels",
		RunE:  ac.run,
	}

	cmd.Flags().StringVar(&ac.model, "model", "", "Name of the registered model")
	cmd.Flags().IntVar(&ac.weeks, "weeks", 4, "Number of weeks to predict")
	cmd.Flags().Float64Var(&ac.budget, "budget", 0, "Budget to allocate")

	_ = cmd.MarkFlagRequired("model")
	_ = cmd.MarkFlagRequired("budget")

	return cmd
}

func (ac *AllocateCmd) run(cmd *cobra.Command, args []string) error {
	if ac.weeks < 1 || ac.weeks > domain.MaxForecastWeeks {
		return fmt.Errorf("weeks must be between 1 and %d", domain.MaxForecastWeeks)
	}
	if ac.budget <= 0 {
		return fmt.Errorf("budget must be positive")
	}

	ctx, cancel := context.WithTimeout(cmd.Context(), 120*time.Second)
	defer cancel()

	bundle, err := ac.registry.GetBundle(ctx, ac.model)
	if err != nil {
		return fmt.Errorf("loading model %q: %w", ac.model, err)
	}

	window := domain.ForecastWindow{StartDate: bundle.TrainedTo, Horizon: ac.weeks}
	report, err := ac.allocator.Allocate(ctx, bundle, window, ac.budget)
	if err != nil {
		return fmt.Errorf("allocation failed: %w", err)
	}

	if ac.runs != nil {
		if err := ac.runs.Add(ctx, adapters.MapAllocationReportToStoreRun(report, time.Now().UTC())); err != nil {
			fmt.Fprintf(cmd.ErrOrStderr(), "warning: failed to record run: %v\n", err)
		}
	}

	return ac.reporter.Handle(adapters.MapAllocationReportToDomainReport(report))
}
