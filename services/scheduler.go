// services/scheduler.go
package services

import (
	"log"
	"time"

	"mission-service/models"

	"github.com/go-co-op/gocron/v2"
)

// RetentionDays is how long completed mission instances are kept around.
// Incomplete instances are retained indefinitely for audit.
const RetentionDays = 30

// StartRetentionScheduler runs the daily sweep over old mission instances.
// This is the only scheduled job the lazy-reset strategy needs.
func (s *TrackingService) StartRetentionScheduler() {
	sched, _ := gocron.NewScheduler()
	sched.Start()

	_, _ = sched.NewJob(
		gocron.DurationJob(24*time.Hour),
		gocron.NewTask(func() {
			if err := s.SweepExpiredInstances(time.Now().UTC()); err != nil {
				log.Printf("[SWEEP] Retention sweep failed: %v", err)
			}
		}),
	)
}

// SweepExpiredInstances hard-deletes completed instances whose cycle date is
// older than the retention window. Incomplete old instances stay.
func (s *TrackingService) SweepExpiredInstances(nowUTC time.Time) error {
	cutoff := nowUTC.AddDate(0, 0, -RetentionDays).Truncate(24 * time.Hour)

	result := s.DB.Unscoped().
		Where("cycle_date < ? AND is_completed = ?", cutoff, true).
		Delete(&models.UserMission{})
	if result.Error != nil {
		return result.Error
	}

	squadResult := s.DB.Unscoped().
		Where("cycle_date < ? AND is_completed = ?", cutoff, true).
		Delete(&models.SquadMissionProgress{})
	if squadResult.Error != nil {
		return squadResult.Error
	}

	log.Printf("[SWEEP] Cleaned up %d user missions, %d squad missions older than %d days",
		result.RowsAffected, squadResult.RowsAffected, RetentionDays)
	return nil
}
