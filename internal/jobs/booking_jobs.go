package jobs

import (
	"context"

	"hotel-reservation-engine/internal/logger"
)

// CompleteFinishedStays marks PAID bookings as COMPLETED once their
// check-out date has arrived
func (jr *JobRunner) CompleteFinishedStays() {
	jr.runWithRecovery("CompleteFinishedStays", func(ctx context.Context) {
		count, err := jr.maintenance.CompleteFinishedStays(ctx)
		if err != nil {
			logger.Error("Failed to complete some stays", "completed", count, "error", err)
			return
		}
		logger.Info("Completed finished stays", "count", count)
	})
}

// ExpireUnpaidBookings cancels PENDING bookings whose payment hold has run
// out, releasing their rooms
func (jr *JobRunner) ExpireUnpaidBookings() {
	jr.runWithRecovery("ExpireUnpaidBookings", func(ctx context.Context) {
		count, err := jr.maintenance.ExpireUnpaidBookings(ctx)
		if err != nil {
			logger.Error("Failed to expire some unpaid bookings", "expired", count, "error", err)
			return
		}
		logger.Info("Expired unpaid bookings", "count", count)
	})
}
