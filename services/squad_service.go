package services

import (
	"fmt"
	"log"
	"time"

	"mission-service/models"

	"github.com/google/uuid"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// SquadMissionService aggregates individual completions into squad missions:
// when every current roster member has finished all of their own individual
// missions for a cycle, the squad mission completes once and pays out once
// to every member.
type SquadMissionService struct {
	DB         *gorm.DB
	Catalog    *CatalogService
	Settlement *SettlementService
}

func NewSquadMissionService(db *gorm.DB, catalog *CatalogService, settlement *SettlementService) *SquadMissionService {
	return &SquadMissionService{DB: db, Catalog: catalog, Settlement: settlement}
}

// EnsureSquadInstances lazily creates a progress row for every active
// all-members squad mission of the cycle. Idempotent via the
// (squad, mission, cycle_date) unique index.
func (s *SquadMissionService) EnsureSquadInstances(squadID string, cycleDate time.Time, cycle models.CycleType) error {
	missions, err := s.Catalog.ActiveSquadMissions(cycle)
	if err != nil {
		return fmt.Errorf("load squad missions: %w", err)
	}

	for _, m := range missions {
		progress := models.SquadMissionProgress{
			ID:               uuid.NewString(),
			SquadID:          squadID,
			MissionID:        m.ID,
			CycleDate:        cycleDate,
			CompletedMembers: []string{},
		}
		if err := s.DB.Clauses(clause.OnConflict{DoNothing: true}).Create(&progress).Error; err != nil {
			return fmt.Errorf("create squad progress for mission %s: %w", m.ID, err)
		}
	}
	return nil
}

// NotifyMemberCompletion is called when a member completes an individual
// mission. It re-derives from storage whether the member has now completed
// ALL of their individual missions for the cycle — a duplicate or
// out-of-order notification is therefore harmless — and if so folds the
// member into the squad's completed set, firing completion and payout when
// the set covers the current roster.
//
// Runs inside the caller's transaction so the individual completion, the
// squad completion and the payout commit together.
func (s *SquadMissionService) NotifyMemberCompletion(tx *gorm.DB, userID, squadID string, cycleDate time.Time, cycle models.CycleType) error {
	allDone, err := s.memberCompletedAll(tx, userID, cycleDate, cycle)
	if err != nil {
		return err
	}
	if !allDone {
		return nil
	}

	log.Printf("[SQUAD] User %s completed all %s missions, updating squad %s", userID, cycle, squadID)

	var rows []models.SquadMissionProgress
	if err := lockForUpdate(tx).
		Joins("JOIN missions ON missions.id = squad_mission_progresses.mission_id AND missions.deleted_at IS NULL").
		Where("squad_mission_progresses.squad_id = ? AND squad_mission_progresses.cycle_date = ? AND missions.cycle = ? AND squad_mission_progresses.is_completed = ?",
			squadID, cycleDate, cycle, false).
		Find(&rows).Error; err != nil {
		return fmt.Errorf("lock squad progress rows: %w", err)
	}

	for i := range rows {
		if err := s.addMemberAndCheck(tx, &rows[i], userID); err != nil {
			return err
		}
	}
	return nil
}

// memberCompletedAll checks the user's actual assigned instances, not the
// catalog — a pooled mission the user was never dealt does not block them.
func (s *SquadMissionService) memberCompletedAll(tx *gorm.DB, userID string, cycleDate time.Time, cycle models.CycleType) (bool, error) {
	var total, completed int64
	base := tx.Model(&models.UserMission{}).
		Joins("JOIN missions ON missions.id = user_missions.mission_id AND missions.deleted_at IS NULL").
		Where("user_missions.user_id = ? AND user_missions.cycle_date = ? AND missions.cycle = ? AND missions.access_type = ? AND missions.is_active = ?",
			userID, cycleDate, cycle, models.AccessIndividual, true)

	if err := base.Session(&gorm.Session{}).Count(&total).Error; err != nil {
		return false, err
	}
	if total == 0 {
		return false, nil
	}
	if err := base.Session(&gorm.Session{}).Where("user_missions.is_completed = ?", true).Count(&completed).Error; err != nil {
		return false, err
	}
	return completed == total, nil
}

func (s *SquadMissionService) addMemberAndCheck(tx *gorm.DB, progress *models.SquadMissionProgress, userID string) error {
	if !progress.HasMember(userID) {
		progress.CompletedMembers = append(progress.CompletedMembers, userID)
		// Struct-based update so the column's json serializer applies.
		if err := tx.Model(progress).Select("completed_members").Updates(progress).Error; err != nil {
			return fmt.Errorf("update completed members: %w", err)
		}
	}

	roster, err := s.squadRoster(tx, progress.SquadID)
	if err != nil {
		return err
	}
	log.Printf("[SQUAD] Squad %s mission %s: %d/%d members done",
		progress.SquadID, progress.MissionID, len(progress.CompletedMembers), len(roster))

	if !progress.CoversRoster(roster) || progress.IsCompleted {
		return nil
	}
	return s.completeSquadMission(tx, progress, roster)
}

// completeSquadMission marks the row complete and distributes the mission's
// reward list to every current member. rewards_distributed flips false→true
// inside the same lock, so the payout fires exactly once no matter how
// member completions interleave.
func (s *SquadMissionService) completeSquadMission(tx *gorm.DB, progress *models.SquadMissionProgress, roster []string) error {
	now := time.Now().UTC()
	progress.IsCompleted = true
	progress.CompletedAt = &now
	if err := tx.Model(progress).Updates(map[string]interface{}{
		"is_completed": true,
		"completed_at": now,
	}).Error; err != nil {
		return fmt.Errorf("complete squad mission: %w", err)
	}

	if progress.RewardsDistributed {
		log.Printf("[SQUAD] Rewards already distributed for squad progress %s", progress.ID)
		return nil
	}

	var mission models.Mission
	if err := tx.Preload("Rewards").First(&mission, "id = ?", progress.MissionID).Error; err != nil {
		return fmt.Errorf("load squad mission %s: %w", progress.MissionID, err)
	}

	for _, memberID := range roster {
		if err := s.Settlement.SettleRewards(tx, memberID, mission.Rewards); err != nil {
			return err
		}
	}

	progress.RewardsDistributed = true
	if err := tx.Model(progress).Update("rewards_distributed", true).Error; err != nil {
		return fmt.Errorf("mark rewards distributed: %w", err)
	}

	log.Printf("[SQUAD] 🏆 Squad %s completed '%s', rewards settled to %d members",
		progress.SquadID, mission.Title, len(roster))
	return nil
}

func (s *SquadMissionService) squadRoster(tx *gorm.DB, squadID string) ([]string, error) {
	var ids []string
	err := tx.Model(&models.SquadMember{}).Where("squad_id = ?", squadID).Pluck("user_id", &ids).Error
	return ids, err
}

// SquadProgressForUser returns the current-cycle squad mission rows for
// every squad the user belongs to.
func (s *SquadMissionService) SquadProgressForUser(userID string, today, monday time.Time) ([]models.SquadMissionProgress, error) {
	var squadIDs []string
	if err := s.DB.Model(&models.SquadMember{}).Where("user_id = ?", userID).Pluck("squad_id", &squadIDs).Error; err != nil {
		return nil, err
	}
	if len(squadIDs) == 0 {
		return nil, nil
	}

	var rows []models.SquadMissionProgress
	err := s.DB.Preload("Mission.Rewards.Currency").
		Where("squad_id IN ?", squadIDs).
		Where("cycle_date IN ?", []time.Time{today, monday}).
		Order("cycle_date DESC").
		Find(&rows).Error
	return rows, err
}
