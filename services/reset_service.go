package services

import (
	"fmt"
	"log"
	"math/rand"
	"time"

	"mission-service/models"
	"mission-service/utils"

	"github.com/google/uuid"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// ResetService lazily materializes mission instances on first access after a
// cycle rollover — no scheduled batch reset, just a cheap existence check on
// every hot path. Concurrent first-touches for the same user are resolved by
// the (mission, user, cycle_date) unique index; the loser's insert is
// dropped as a no-op.
type ResetService struct {
	DB      *gorm.DB
	Catalog *CatalogService
	Squads  *SquadMissionService
}

func NewResetService(db *gorm.DB, catalog *CatalogService, squads *SquadMissionService) *ResetService {
	return &ResetService{DB: db, Catalog: catalog, Squads: squads}
}

// EnsureDailyMissions guarantees the user has instances for today's daily
// cycle in their timezone. Daily pool missions are sampled pool_size at a
// time without replacement; non-pool daily missions are assigned
// unconditionally. Returns true if any instances were created.
func (s *ResetService) EnsureDailyMissions(user *models.LearnerUser, nowUTC time.Time) (bool, error) {
	cycleDate := utils.UserToday(user.Timezone, nowUTC)

	exists, err := s.hasInstances(user.ExternalUserID, cycleDate, models.CycleDaily)
	if err != nil {
		return false, err
	}
	if exists {
		return false, nil
	}

	missions, err := s.Catalog.ActiveIndividualMissions(models.CycleDaily)
	if err != nil {
		return false, err
	}
	if len(missions) == 0 {
		log.Printf("[RESET] No active individual daily missions configured")
		return false, nil
	}

	var pool, fixed []models.Mission
	for _, m := range missions {
		if m.IsRandomPool {
			pool = append(pool, m)
		} else {
			fixed = append(fixed, m)
		}
	}

	selected := fixed
	if len(pool) > 0 {
		selected = append(selected, samplePool(pool)...)
	}

	created, err := s.createInstances(user.ExternalUserID, selected, cycleDate)
	if err != nil {
		return false, err
	}
	log.Printf("[RESET] Created %d daily missions for user %s (%s)",
		created, user.ExternalUserID, cycleDate.Format("2006-01-02"))
	return created > 0, nil
}

// EnsureWeeklyMissions guarantees instances for this week's cycle, keyed on
// the Monday of the current week in the user's timezone. No pooling: every
// active weekly mission is instantiated.
func (s *ResetService) EnsureWeeklyMissions(user *models.LearnerUser, nowUTC time.Time) (bool, error) {
	cycleDate := utils.UserWeekStart(user.Timezone, nowUTC)

	exists, err := s.hasInstances(user.ExternalUserID, cycleDate, models.CycleWeekly)
	if err != nil {
		return false, err
	}
	if exists {
		return false, nil
	}

	missions, err := s.Catalog.ActiveIndividualMissions(models.CycleWeekly)
	if err != nil {
		return false, err
	}
	if len(missions) == 0 {
		return false, nil
	}

	created, err := s.createInstances(user.ExternalUserID, missions, cycleDate)
	if err != nil {
		return false, err
	}
	log.Printf("[RESET] Created %d weekly missions for user %s (week of %s)",
		created, user.ExternalUserID, cycleDate.Format("2006-01-02"))
	return created > 0, nil
}

// EnsurePermanentMissions creates the single lifetime instance of each
// active permanent mission the user does not have yet.
func (s *ResetService) EnsurePermanentMissions(user *models.LearnerUser) (bool, error) {
	exists, err := s.hasInstances(user.ExternalUserID, models.PermanentCycleDate, models.CyclePermanent)
	if err != nil {
		return false, err
	}
	if exists {
		return false, nil
	}

	missions, err := s.Catalog.ActiveIndividualMissions(models.CyclePermanent)
	if err != nil {
		return false, err
	}
	if len(missions) == 0 {
		return false, nil
	}

	created, err := s.createInstances(user.ExternalUserID, missions, models.PermanentCycleDate)
	if err != nil {
		return false, err
	}
	return created > 0, nil
}

// EnsureSquadInstances materializes squad mission progress rows for every
// squad the user belongs to, for both current cycles.
func (s *ResetService) EnsureSquadInstances(user *models.LearnerUser, nowUTC time.Time) error {
	var memberships []models.SquadMember
	if err := s.DB.Where("user_id = ?", user.ExternalUserID).Find(&memberships).Error; err != nil {
		return fmt.Errorf("load squad memberships for %s: %w", user.ExternalUserID, err)
	}

	today := utils.UserToday(user.Timezone, nowUTC)
	monday := utils.UserWeekStart(user.Timezone, nowUTC)

	for _, m := range memberships {
		if err := s.Squads.EnsureSquadInstances(m.SquadID, today, models.CycleDaily); err != nil {
			log.Printf("[RESET] Failed to ensure daily squad missions for squad %s: %v", m.SquadID, err)
		}
		if err := s.Squads.EnsureSquadInstances(m.SquadID, monday, models.CycleWeekly); err != nil {
			log.Printf("[RESET] Failed to ensure weekly squad missions for squad %s: %v", m.SquadID, err)
		}
	}
	return nil
}

func (s *ResetService) hasInstances(userID string, cycleDate time.Time, cycle models.CycleType) (bool, error) {
	var count int64
	err := s.DB.Model(&models.UserMission{}).
		Joins("JOIN missions ON missions.id = user_missions.mission_id AND missions.deleted_at IS NULL").
		Where("user_missions.user_id = ? AND user_missions.cycle_date = ? AND missions.cycle = ?",
			userID, cycleDate, cycle).
		Count(&count).Error
	return count > 0, err
}

func (s *ResetService) createInstances(userID string, missions []models.Mission, cycleDate time.Time) (int, error) {
	created := 0
	for _, m := range missions {
		instance := models.UserMission{
			ID:        uuid.NewString(),
			MissionID: m.ID,
			UserID:    userID,
			CycleDate: cycleDate,
			Progress:  0,
			Metadata:  models.MissionMetadata{},
		}
		// The pre-existing row wins a duplicate-create race.
		result := s.DB.Clauses(clause.OnConflict{DoNothing: true}).Create(&instance)
		if result.Error != nil {
			return created, fmt.Errorf("create instance of mission %s: %w", m.ID, result.Error)
		}
		created += int(result.RowsAffected)
	}
	return created, nil
}

// samplePool picks pool_size missions uniformly without replacement. The
// configured size comes from the pool members themselves; capped at the pool
// count.
func samplePool(pool []models.Mission) []models.Mission {
	size := pool[0].PoolSize
	if size > len(pool) {
		size = len(pool)
	}
	if size <= 0 {
		size = len(pool)
	}
	picked := make([]models.Mission, 0, size)
	for _, i := range rand.Perm(len(pool))[:size] {
		picked = append(picked, pool[i])
	}
	return picked
}
