package api

type Model struct {
	Name        string   `json:"name"`
	Channels    []string `json:"channels"`
	TrainedFrom string   `json:"trained_from"`
	TrainedTo   string   `json:"trained_to"`
}

type AllocateRequest struct {
	Weeks  int     `json:"weeks"`
	Budget float64 `json:"budget"`
}

type AllocationRow struct {
	Media              string  `json:"media"`
	PreviousAllocation float64 `json:"previous_allocation"`
	OptimalAllocation  float64 `json:"optimal_allocation"`
}

type AllocationResponse struct {
	RunID                  string          `json:"run_id"`
	Model                  string          `json:"model"`
	Weeks                  int             `json:"weeks"`
	Budget                 float64         `json:"budget"`
	KPIWithoutOptimization float64         `json:"kpi_without_optimization"`
	KPIWithOptimization    float64         `json:"kpi_with_optimization"`
	// Table lists one row per channel plus the trailing Total row.
	Table []AllocationRow `json:"table"`
}

type Run struct {
	ID        string  `json:"id"`
	Model     string  `json:"model"`
	Weeks     int     `json:"weeks"`
	Budget    float64 `json:"budget"`
	KPIBefore float64 `json:"kpi_before"`
	KPIAfter  float64 `json:"kpi_after"`
	CreatedAt string  `json:"created_at"`
}

type Error struct {
	Error string `json:"error"`
}
