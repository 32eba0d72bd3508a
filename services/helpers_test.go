package services

import (
	"errors"
	"fmt"
	"path/filepath"
	"testing"
	"time"

	"mission-service/models"

	"github.com/google/uuid"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"
)

// Wednesday, so daily = Mar 12 and weekly = Monday Mar 10 in UTC.
var testNow = time.Date(2025, 3, 12, 10, 0, 0, 0, time.UTC)

func newTestDB(t *testing.T) *gorm.DB {
	t.Helper()

	db, err := gorm.Open(sqlite.Open(filepath.Join(t.TempDir(), "missions.db")), &gorm.Config{
		Logger: logger.Default.LogMode(logger.Silent),
	})
	if err != nil {
		t.Fatalf("failed to open test database: %v", err)
	}

	if err := db.AutoMigrate(
		&models.Currency{},
		&models.UserCurrency{},
		&models.Mission{},
		&models.MissionReward{},
		&models.UserMission{},
		&models.Squad{},
		&models.SquadMember{},
		&models.SquadMissionProgress{},
		&models.LearnerUser{},
		&models.RedeemableReward{},
		&models.RewardRedemption{},
	); err != nil {
		t.Fatalf("failed to migrate test database: %v", err)
	}

	t.Cleanup(func() {
		if sqlDB, err := db.DB(); err == nil {
			sqlDB.Close()
		}
	})
	return db
}

type testEnv struct {
	db         *gorm.DB
	catalog    *CatalogService
	settlement *SettlementService
	squads     *SquadMissionService
	reset      *ResetService
	tracking   *TrackingService
}

func newTestEnv(t *testing.T) *testEnv {
	t.Helper()
	db := newTestDB(t)
	catalog := NewCatalogService(db)
	settlement := NewSettlementService(db)
	squads := NewSquadMissionService(db, catalog, settlement)
	reset := NewResetService(db, catalog, squads)
	tracking := NewTrackingService(db, reset, settlement, squads)
	return &testEnv{
		db:         db,
		catalog:    catalog,
		settlement: settlement,
		squads:     squads,
		reset:      reset,
		tracking:   tracking,
	}
}

func seedCurrency(t *testing.T, db *gorm.DB, name string) models.Currency {
	t.Helper()
	currency := models.Currency{ID: uuid.NewString(), Name: name}
	if err := db.Create(&currency).Error; err != nil {
		t.Fatalf("failed to seed currency %s: %v", name, err)
	}
	return currency
}

func seedLearner(t *testing.T, db *gorm.DB, externalID, timezone string) models.LearnerUser {
	t.Helper()
	user := models.LearnerUser{
		ID:             uuid.NewString(),
		ExternalUserID: externalID,
		Username:       externalID,
		Timezone:       timezone,
	}
	if err := db.Create(&user).Error; err != nil {
		t.Fatalf("failed to seed learner %s: %v", externalID, err)
	}
	return user
}

// seedMission fills in identity fields and persists the definition with its
// reward lines.
func seedMission(t *testing.T, db *gorm.DB, mission models.Mission) models.Mission {
	t.Helper()
	if mission.ID == "" {
		mission.ID = uuid.NewString()
	}
	if mission.Code == "" {
		mission.Code = fmt.Sprintf("mission-%s", mission.ID[:8])
	}
	if mission.Title == "" {
		mission.Title = mission.Code
	}
	if mission.TargetCount == 0 {
		mission.TargetCount = 1
	}
	mission.IsActive = true
	for i := range mission.Rewards {
		mission.Rewards[i].ID = uuid.NewString()
		mission.Rewards[i].MissionID = mission.ID
	}
	if err := db.Create(&mission).Error; err != nil {
		t.Fatalf("failed to seed mission %s: %v", mission.Code, err)
	}
	return mission
}

func seedSquad(t *testing.T, db *gorm.DB, name string, memberIDs ...string) models.Squad {
	t.Helper()
	squad := models.Squad{ID: uuid.NewString(), Name: name}
	if err := db.Create(&squad).Error; err != nil {
		t.Fatalf("failed to seed squad %s: %v", name, err)
	}
	for _, userID := range memberIDs {
		member := models.SquadMember{ID: uuid.NewString(), SquadID: squad.ID, UserID: userID}
		if err := db.Create(&member).Error; err != nil {
			t.Fatalf("failed to seed squad member %s: %v", userID, err)
		}
	}
	return squad
}

func balanceOf(t *testing.T, db *gorm.DB, userID, currencyID string) int64 {
	t.Helper()
	var balance models.UserCurrency
	err := db.Where("user_id = ? AND currency_id = ?", userID, currencyID).First(&balance).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return 0
	}
	if err != nil {
		t.Fatalf("failed to read balance for user %s: %v", userID, err)
	}
	return balance.Balance
}

func instanceFor(t *testing.T, db *gorm.DB, userID, missionID string) models.UserMission {
	t.Helper()
	var instance models.UserMission
	if err := db.Where("user_id = ? AND mission_id = ?", userID, missionID).First(&instance).Error; err != nil {
		t.Fatalf("failed to load instance of mission %s for user %s: %v", missionID, userID, err)
	}
	return instance
}

func countInstances(t *testing.T, db *gorm.DB, userID string) int64 {
	t.Helper()
	var count int64
	if err := db.Model(&models.UserMission{}).Where("user_id = ?", userID).Count(&count).Error; err != nil {
		t.Fatalf("failed to count instances for user %s: %v", userID, err)
	}
	return count
}

func intPtr(v int) *int           { return &v }
func floatPtr(v float64) *float64 { return &v }
func boolPtr(v bool) *bool        { return &v }
