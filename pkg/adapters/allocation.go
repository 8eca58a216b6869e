package adapters

import (
	"fmt"
	"time"

	"github.com/mixtools/mixatlas/pkg/models/api"
	"github.com/mixtools/mixatlas/pkg/models/domain"
	"github.com/mixtools/mixatlas/pkg/models/store"
)

const dateLayout = "2006-01-02"

func MapModelSummaryDomainToApi(s domain.ModelSummary) api.Model {
	return api.Model{
		Name:        s.Name,
		Channels:    append([]string(nil), s.Channels...),
		TrainedFrom: s.TrainedFrom.Format(dateLayout),
		TrainedTo:   s.TrainedTo.Format(dateLayout),
	}
}

func MapAllocationRowDomainToApi(row domain.AllocationRow) api.AllocationRow {
	return api.AllocationRow{
		Media:              row.Channel,
		PreviousAllocation: row.Previous,
		OptimalAllocation:  row.Optimal,
	}
}

func MapAllocationReportDomainToApi(r *domain.AllocationReport) api.AllocationResponse {
	table := make([]api.AllocationRow, 0, len(r.Table.Rows)+1)
	for _, row := range r.Table.Rows {
		table = append(table, MapAllocationRowDomainToApi(row))
	}
	table = append(table, MapAllocationRowDomainToApi(r.Table.Total))

	return api.AllocationResponse{
		RunID:                  r.RunID,
		Model:                  r.Model,
		Weeks:                  r.Window.Horizon,
		Budget:                 r.Budget,
		KPIWithoutOptimization: r.KPIBefore,
		KPIWithOptimization:    r.KPIAfter,
		Table:                  table,
	}
}

func MapAllocationReportToStoreRun(r *domain.AllocationReport, createdAt time.Time) store.AllocationRun {
	return store.AllocationRun{
		ID:        r.RunID,
		Model:     r.Model,
		Weeks:     r.Window.Horizon,
		Budget:    r.Budget,
		KPIBefore: r.KPIBefore,
		KPIAfter:  r.KPIAfter,
		CreatedAt: createdAt,
	}
}

func MapStoreRunToApi(run store.AllocationRun) api.Run {
	return api.Run{
		ID:        run.ID,
		Model:     run.Model,
		Weeks:     run.Weeks,
		Budget:    run.Budget,
		KPIBefore: run.KPIBefore,
		KPIAfter:  run.KPIAfter,
		CreatedAt: run.CreatedAt.Format(time.RFC3339),
	}
}

// MapAllocationReportToDomainReport shapes an allocation result for the
// terminal reporter.
func MapAllocationReportToDomainReport(r *domain.AllocationReport) *domain.Report {
	details := make([]domain.ReportDetail, 0, len(r.Table.Rows)+1)
	for _, row := range r.Table.Rows {
		details = append(details, domain.ReportDetail{
			Name:        row.Channel,
			Value:       fmt.Sprintf("%.2f -> %.2f", row.Previous, row.Optimal),
			Unit:        "currency",
			Description: "previous -> optimal allocation",
		})
	}
	details = append(details, domain.ReportDetail{
		Name:        r.Table.Total.Channel,
		Value:       fmt.Sprintf("%.2f -> %.2f", r.Table.Total.Previous, r.Table.Total.Optimal),
		Unit:        "currency",
		Description: "column totals",
	})

	weekStarts := r.Window.WeekStarts()
	return &domain.Report{
		Title:    fmt.Sprintf("Budget allocation for %s", r.Model),
		Currency: "USD",
		Period: domain.TimePeriod{
			Start:    weekStarts[0],
			End:      weekStarts[len(weekStarts)-1].AddDate(0, 0, 6),
			Duration: r.Window.Horizon,
		},
		Sections: []domain.ReportSection{
			{
				Title: "Allocation",
				Summary: map[string]any{
					"run_id":            r.RunID,
					"budget":            fmt.Sprintf("%.2f", r.Budget),
					"kpi_without_optim": fmt.Sprintf("%.2f", r.KPIBefore),
					"kpi_with_optim":    fmt.Sprintf("%.2f", r.KPIAfter),
				},
				Details: details,
			},
		},
	}
}
