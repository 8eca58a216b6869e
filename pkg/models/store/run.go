package store

import "time"

// AllocationRun is the persisted record of one allocation request.
type AllocationRun struct {
	ID        string
	Model     string
	Weeks     int
	Budget    float64
	KPIBefore float64
	KPIAfter  float64
	CreatedAt time.Time
}
