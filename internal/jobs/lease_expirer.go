package jobs

import (
	"context"
	"log"
	"time"

	"model-market/internal/services"
)

// LeaseExpirer sweeps ACTIVE leases whose end date has passed and marks them
// EXPIRED. The sweep is idempotent, so overlapping or repeated runs are safe.
type LeaseExpirer struct {
	leasing *services.LeasingService
}

func NewLeaseExpirer(leasing *services.LeasingService) *LeaseExpirer {
	return &LeaseExpirer{leasing: leasing}
}

// Run executes one expiry sweep
func (le *LeaseExpirer) Run() {
	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	expired, err := le.leasing.ExpireLeases(ctx, time.Now())
	if err != nil {
		log.Printf("[LeaseExpirer] Error expiring leases: %v", err)
		return
	}
	if expired > 0 {
		log.Printf("[LeaseExpirer] Expired %d leases", expired)
	}
}
