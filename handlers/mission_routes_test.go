package handlers

import (
	"bytes"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"path/filepath"
	"testing"

	"mission-service/models"
	"mission-service/services"

	"github.com/gofiber/fiber/v2"
	"github.com/google/uuid"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"
)

func newTestApp(t *testing.T) (*fiber.App, *gorm.DB) {
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

	catalog := services.NewCatalogService(db)
	settlement := services.NewSettlementService(db)
	squads := services.NewSquadMissionService(db, catalog, settlement)
	reset := services.NewResetService(db, catalog, squads)
	tracking := services.NewTrackingService(db, reset, settlement, squads)
	redemption := services.NewRedemptionService(db)

	app := fiber.New()
	SetupMissionRoutes(app, tracking, reset, squads)
	SetupRedemptionRoutes(app, redemption)
	SetupAdminRoutes(app, catalog, redemption)
	return app, db
}

func seedDailyMission(t *testing.T, db *gorm.DB, missionType models.MissionType) models.Mission {
	t.Helper()
	mission := models.Mission{
		ID:          uuid.NewString(),
		Code:        "mission-" + uuid.NewString()[:8],
		Title:       "Test Mission",
		Type:        missionType,
		Cycle:       models.CycleDaily,
		AccessType:  models.AccessIndividual,
		TargetCount: 2,
		IsActive:    true,
	}
	if err := db.Create(&mission).Error; err != nil {
		t.Fatalf("seed mission: %v", err)
	}
	return mission
}

func TestSecuredRoutes_RequireUserContext(t *testing.T) {
	app, _ := newTestApp(t)

	req := httptest.NewRequest(http.MethodGet, "/s/missions", nil)
	resp, err := app.Test(req)
	if err != nil {
		t.Fatalf("request failed: %v", err)
	}
	if resp.StatusCode != fiber.StatusUnauthorized {
		t.Errorf("status = %d, want 401 without X-User-ID", resp.StatusCode)
	}
}

func TestAdminRoutes_RequireAdminRole(t *testing.T) {
	app, _ := newTestApp(t)

	req := httptest.NewRequest(http.MethodGet, "/s/admin/missions", nil)
	req.Header.Set("X-User-ID", uuid.NewString())
	req.Header.Set("X-User-Roles", "student")
	resp, err := app.Test(req)
	if err != nil {
		t.Fatalf("request failed: %v", err)
	}
	if resp.StatusCode != fiber.StatusForbidden {
		t.Errorf("status = %d, want 403 for non-admin", resp.StatusCode)
	}

	req = httptest.NewRequest(http.MethodGet, "/s/admin/missions", nil)
	req.Header.Set("X-User-ID", uuid.NewString())
	req.Header.Set("X-User-Roles", "student, admin")
	resp, err = app.Test(req)
	if err != nil {
		t.Fatalf("request failed: %v", err)
	}
	if resp.StatusCode != fiber.StatusOK {
		t.Errorf("status = %d, want 200 for admin", resp.StatusCode)
	}
}

func TestTrackEndpoint_ValidatesAndAccepts(t *testing.T) {
	app, db := newTestApp(t)
	mission := seedDailyMission(t, db, models.MissionTypeLogin)
	userID := uuid.NewString()

	payload, _ := json.Marshal(map[string]interface{}{"mission_type": "login"})
	req := httptest.NewRequest(http.MethodPost, "/internal/missions/track", bytes.NewReader(payload))
	req.Header.Set("Content-Type", "application/json")
	resp, err := app.Test(req)
	if err != nil {
		t.Fatalf("request failed: %v", err)
	}
	if resp.StatusCode != fiber.StatusBadRequest {
		t.Errorf("status = %d, want 400 without user_id", resp.StatusCode)
	}

	payload, _ = json.Marshal(map[string]interface{}{
		"user_id":      userID,
		"mission_type": "login",
	})
	req = httptest.NewRequest(http.MethodPost, "/internal/missions/track", bytes.NewReader(payload))
	req.Header.Set("Content-Type", "application/json")
	resp, err = app.Test(req)
	if err != nil {
		t.Fatalf("request failed: %v", err)
	}
	if resp.StatusCode != fiber.StatusAccepted {
		t.Fatalf("status = %d, want 202", resp.StatusCode)
	}

	var instance models.UserMission
	if err := db.Where("user_id = ? AND mission_id = ?", userID, mission.ID).First(&instance).Error; err != nil {
		t.Fatalf("tracked instance not found: %v", err)
	}
	if instance.Progress != 1 {
		t.Errorf("progress = %d, want 1", instance.Progress)
	}
}

func TestMissionsEndpoint_LazyMaterializationAndStats(t *testing.T) {
	app, db := newTestApp(t)
	seedDailyMission(t, db, models.MissionTypeLogin)
	seedDailyMission(t, db, models.MissionTypeCompleteQuiz)
	userID := uuid.NewString()

	req := httptest.NewRequest(http.MethodGet, "/s/missions?status=all", nil)
	req.Header.Set("X-User-ID", userID)
	resp, err := app.Test(req)
	if err != nil {
		t.Fatalf("request failed: %v", err)
	}
	if resp.StatusCode != fiber.StatusOK {
		t.Fatalf("status = %d, want 200", resp.StatusCode)
	}

	var body struct {
		Success            bool                 `json:"success"`
		TotalMissions      int                  `json:"total_missions"`
		CompletedMissions  int                  `json:"completed_missions"`
		InProgressMissions int                  `json:"in_progress_missions"`
		DailyResetIn       int64                `json:"daily_reset_in"`
		WeeklyResetIn      int64                `json:"weekly_reset_in"`
		Missions           []models.UserMission `json:"missions"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&body); err != nil {
		t.Fatalf("decode response: %v", err)
	}

	// First visit materializes today's instances.
	if body.TotalMissions != 2 || len(body.Missions) != 2 {
		t.Errorf("total=%d missions=%d, want 2/2", body.TotalMissions, len(body.Missions))
	}
	if body.CompletedMissions != 0 || body.InProgressMissions != 2 {
		t.Errorf("completed=%d in_progress=%d, want 0/2", body.CompletedMissions, body.InProgressMissions)
	}
	if body.DailyResetIn <= 0 || body.DailyResetIn > 86400 {
		t.Errorf("daily_reset_in = %d, want within (0, 86400]", body.DailyResetIn)
	}
	if body.WeeklyResetIn <= 0 || body.WeeklyResetIn > 7*86400 {
		t.Errorf("weekly_reset_in = %d, want within (0, 604800]", body.WeeklyResetIn)
	}
}

func TestMissionsEndpoint_StatusFilterKeepsStats(t *testing.T) {
	app, db := newTestApp(t)
	mission := seedDailyMission(t, db, models.MissionTypeLogin)
	userID := uuid.NewString()

	// Complete the mission through the internal tracking endpoint.
	for i := 0; i < 2; i++ {
		payload, _ := json.Marshal(map[string]interface{}{
			"user_id":      userID,
			"mission_type": "login",
		})
		req := httptest.NewRequest(http.MethodPost, "/internal/missions/track", bytes.NewReader(payload))
		req.Header.Set("Content-Type", "application/json")
		if _, err := app.Test(req); err != nil {
			t.Fatalf("track request failed: %v", err)
		}
	}

	req := httptest.NewRequest(http.MethodGet, "/s/missions", nil) // default status=active
	req.Header.Set("X-User-ID", userID)
	resp, err := app.Test(req)
	if err != nil {
		t.Fatalf("request failed: %v", err)
	}

	var body struct {
		TotalMissions     int                  `json:"total_missions"`
		CompletedMissions int                  `json:"completed_missions"`
		Missions          []models.UserMission `json:"missions"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&body); err != nil {
		t.Fatalf("decode response: %v", err)
	}

	// The completed instance is filtered out of the list but still counted.
	if body.TotalMissions != 1 || body.CompletedMissions != 1 {
		t.Errorf("total=%d completed=%d, want 1/1", body.TotalMissions, body.CompletedMissions)
	}
	for _, inst := range body.Missions {
		if inst.MissionID == mission.ID {
			t.Error("completed mission should not appear with status=active")
		}
	}
}
