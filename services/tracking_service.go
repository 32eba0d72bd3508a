package services

import (
	"errors"
	"fmt"
	"log"
	"time"

	"mission-service/models"
	"mission-service/utils"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

// TrackingService is the mission engine's entry point: feature services
// report a qualifying user action and the tracker resets cycles if needed,
// finds matching open instances, evaluates conditions, increments progress
// under a row lock, and settles rewards on completion. Tracking is a
// best-effort side effect — it never fails the caller's primary action.
type TrackingService struct {
	DB         *gorm.DB
	Reset      *ResetService
	Settlement *SettlementService
	Squads     *SquadMissionService
}

func NewTrackingService(db *gorm.DB, reset *ResetService, settlement *SettlementService, squads *SquadMissionService) *TrackingService {
	return &TrackingService{DB: db, Reset: reset, Settlement: settlement, Squads: squads}
}

// Track processes one user action event against all open instances of the
// matching mission type. Instances are handled independently: a failure on
// one is logged and does not block the others, and an event that fails a
// condition is silently skipped.
func (s *TrackingService) Track(userID string, missionType models.MissionType, ctx EventContext) {
	s.TrackAt(userID, missionType, ctx, time.Now().UTC())
}

// TrackAt is Track with an explicit clock, for tests and backfills.
func (s *TrackingService) TrackAt(userID string, missionType models.MissionType, ctx EventContext, nowUTC time.Time) {
	user, err := s.EnsureLearner(userID)
	if err != nil {
		log.Printf("[TRACK] Failed to resolve learner %s: %v", userID, err)
		return
	}

	if _, err := s.Reset.EnsureDailyMissions(user, nowUTC); err != nil {
		log.Printf("[TRACK] Daily reset failed for user %s: %v", userID, err)
	}
	if _, err := s.Reset.EnsureWeeklyMissions(user, nowUTC); err != nil {
		log.Printf("[TRACK] Weekly reset failed for user %s: %v", userID, err)
	}
	if _, err := s.Reset.EnsurePermanentMissions(user); err != nil {
		log.Printf("[TRACK] Permanent ensure failed for user %s: %v", userID, err)
	}
	if err := s.Reset.EnsureSquadInstances(user, nowUTC); err != nil {
		log.Printf("[TRACK] Squad ensure failed for user %s: %v", userID, err)
	}

	today := utils.UserToday(user.Timezone, nowUTC)
	monday := utils.UserWeekStart(user.Timezone, nowUTC)

	candidates, err := s.openInstances(userID, missionType, today, monday)
	if err != nil {
		log.Printf("[TRACK] Failed to load open instances for user %s type %s: %v", userID, missionType, err)
		return
	}

	for _, candidate := range candidates {
		if candidate.Mission == nil {
			continue
		}
		// Cheap pre-check outside the lock; re-evaluated inside.
		if !EvaluateConditions(candidate.Mission, &candidate, ctx) {
			continue
		}
		if err := s.applyProgress(candidate.ID, ctx, today, monday, nowUTC); err != nil {
			log.Printf("[TRACK] Progress update failed for instance %s: %v", candidate.ID, err)
		}
	}
}

// openInstances loads the user's incomplete instances of the mission type
// scoped to today's daily cycle, this week's weekly cycle, or permanent. A
// daily and a weekly mission of the same type both count the same event.
func (s *TrackingService) openInstances(userID string, missionType models.MissionType, today, monday time.Time) ([]models.UserMission, error) {
	var instances []models.UserMission
	err := s.DB.Preload("Mission.Rewards").
		Joins("JOIN missions ON missions.id = user_missions.mission_id AND missions.deleted_at IS NULL").
		Where("user_missions.user_id = ? AND user_missions.is_completed = ? AND missions.type = ? AND missions.is_active = ?",
			userID, false, missionType, true).
		Where(`(missions.cycle = ? AND user_missions.cycle_date = ?)
			OR (missions.cycle = ? AND user_missions.cycle_date = ?)
			OR missions.cycle = ?`,
			models.CycleDaily, today, models.CycleWeekly, monday, models.CyclePermanent).
		Find(&instances).Error
	return instances, err
}

// applyProgress performs the locked read-modify-write for one instance:
// re-evaluate conditions against fresh metadata, record the dedup ID before
// incrementing (so a retried event can never double-count), increment by
// exactly 1, and on completion settle rewards and notify squad aggregation —
// all in one transaction, so a completed-but-unpaid state cannot exist.
func (s *TrackingService) applyProgress(instanceID string, ctx EventContext, today, monday, nowUTC time.Time) error {
	return s.DB.Transaction(func(tx *gorm.DB) error {
		var instance models.UserMission
		if err := lockForUpdate(tx).First(&instance, "id = ?", instanceID).Error; err != nil {
			return fmt.Errorf("lock instance: %w", err)
		}
		if instance.IsCompleted {
			return nil
		}

		var mission models.Mission
		if err := tx.Preload("Rewards").First(&mission, "id = ?", instance.MissionID).Error; err != nil {
			return fmt.Errorf("load mission: %w", err)
		}

		if !EvaluateConditions(&mission, &instance, ctx) {
			return nil
		}

		if instance.Metadata == nil {
			instance.Metadata = models.MissionMetadata{}
		}
		if !recordDedup(mission.Type, instance.Metadata, ctx) {
			// Already counted; a retry of the same event is a no-op.
			return nil
		}

		instance.Progress++

		if instance.Progress >= mission.TargetCount && mission.TargetCount > 0 {
			instance.IsCompleted = true
			completedAt := nowUTC
			instance.CompletedAt = &completedAt

			if err := s.Settlement.SettleRewards(tx, instance.UserID, mission.Rewards); err != nil {
				return err
			}
			log.Printf("[TRACK] ✅ Mission '%s' completed by user %s", mission.Title, instance.UserID)
		}

		// Struct-based update: a map value would reach the driver raw,
		// without the metadata field's json serializer.
		if err := tx.Model(&instance).
			Select("progress", "is_completed", "completed_at", "metadata").
			Updates(&instance).Error; err != nil {
			return fmt.Errorf("save instance: %w", err)
		}

		if instance.IsCompleted && mission.AccessType == models.AccessIndividual {
			return s.notifySquads(tx, instance.UserID, mission.Cycle, today, monday)
		}
		return nil
	})
}

// recordDedup appends the event's entity ID to the type-specific metadata
// list. Returns false when the ID was already counted. Types without dedup
// always count.
func recordDedup(missionType models.MissionType, meta models.MissionMetadata, ctx EventContext) bool {
	switch missionType {
	case models.MissionTypeCompleteQuiz:
		if ctx.QuizID != "" {
			return meta.Add(models.MetaCompletedQuizIDs, ctx.QuizID)
		}
	case models.MissionTypeCreateQuiz:
		if ctx.QuizID != "" {
			return meta.Add(models.MetaCountedQuizIDs, ctx.QuizID)
		}
	case models.MissionTypeGetVerified:
		if ctx.VerifierID != "" {
			return meta.Add(models.MetaVerifierIDs, ctx.VerifierID)
		}
	case models.MissionTypeViewQuestion:
		if ctx.QuestionID != "" {
			return meta.Add(models.MetaViewedQuestionIDs, ctx.QuestionID)
		}
	case models.MissionTypeSaveQuestion:
		if ctx.QuestionID != "" {
			return meta.Add(models.MetaSavedQuestionIDs, ctx.QuestionID)
		}
	}
	return true
}

// notifySquads forwards the completion to the aggregator for every squad the
// user belongs to. Permanent missions never feed squad cycles.
func (s *TrackingService) notifySquads(tx *gorm.DB, userID string, cycle models.CycleType, today, monday time.Time) error {
	var cycleDate time.Time
	switch cycle {
	case models.CycleDaily:
		cycleDate = today
	case models.CycleWeekly:
		cycleDate = monday
	default:
		return nil
	}

	var squadIDs []string
	if err := tx.Model(&models.SquadMember{}).Where("user_id = ?", userID).Pluck("squad_id", &squadIDs).Error; err != nil {
		return fmt.Errorf("load squads for user %s: %w", userID, err)
	}
	for _, squadID := range squadIDs {
		if err := s.Squads.NotifyMemberCompletion(tx, userID, squadID, cycleDate, cycle); err != nil {
			return fmt.Errorf("notify squad %s: %w", squadID, err)
		}
	}
	return nil
}

// EnsureLearner fetches the local learner snapshot, creating a UTC-zoned
// placeholder when the profile sync has not delivered this user yet.
func (s *TrackingService) EnsureLearner(externalUserID string) (*models.LearnerUser, error) {
	var user models.LearnerUser
	err := s.DB.Where("external_user_id = ?", externalUserID).First(&user).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		user = models.LearnerUser{
			ID:             uuid.NewString(),
			ExternalUserID: externalUserID,
			Timezone:       "UTC",
		}
		if err := s.DB.Create(&user).Error; err != nil {
			return nil, err
		}
		return &user, nil
	}
	if err != nil {
		return nil, err
	}
	return &user, nil
}
