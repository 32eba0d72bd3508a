// handlers/mission_routes.go
package handlers

import (
	"log"
	"time"

	"mission-service/middleware"
	"mission-service/models"
	"mission-service/services"
	"mission-service/utils"

	"github.com/gofiber/fiber/v2"
)

func SetupMissionRoutes(app *fiber.App, tracking *services.TrackingService, reset *services.ResetService, squads *services.SquadMissionService) {
	// Internal trigger: feature services report qualifying user actions here
	// after the primary action succeeded. Tracking is best-effort — the
	// response never blocks on, or reports, per-instance failures.
	app.Post("/internal/missions/track", func(c *fiber.Ctx) error {
		var req struct {
			UserID      string                `json:"user_id"`
			MissionType models.MissionType    `json:"mission_type"`
			Context     services.EventContext `json:"context"`
		}
		if err := c.BodyParser(&req); err != nil {
			return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "invalid JSON", "cause": err.Error()})
		}
		if req.UserID == "" || req.MissionType == "" {
			return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "user_id and mission_type are required"})
		}

		tracking.Track(req.UserID, req.MissionType, req.Context)

		return c.Status(fiber.StatusAccepted).JSON(fiber.Map{"accepted": true})
	})

	securedGroup := app.Group("/s", middleware.UserContextMiddleware())

	// Missions screen: lazy ensure first so a user who has not acted yet
	// still sees freshly materialized instances.
	securedGroup.Get("/missions", func(c *fiber.Ctx) error {
		userID := c.Locals("user_id").(string)
		now := time.Now().UTC()

		user, err := tracking.EnsureLearner(userID)
		if err != nil {
			return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{"error": "failed to resolve user", "cause": err.Error()})
		}

		if _, err := reset.EnsureDailyMissions(user, now); err != nil {
			log.Printf("[MISSIONS] Daily ensure failed for %s: %v", userID, err)
		}
		if _, err := reset.EnsureWeeklyMissions(user, now); err != nil {
			log.Printf("[MISSIONS] Weekly ensure failed for %s: %v", userID, err)
		}
		if _, err := reset.EnsurePermanentMissions(user); err != nil {
			log.Printf("[MISSIONS] Permanent ensure failed for %s: %v", userID, err)
		}

		today := utils.UserToday(user.Timezone, now)
		monday := utils.UserWeekStart(user.Timezone, now)

		query := tracking.DB.Preload("Mission.Rewards.Currency").
			Joins("JOIN missions ON missions.id = user_missions.mission_id AND missions.deleted_at IS NULL").
			Where("user_missions.user_id = ?", userID).
			Where(`(missions.cycle = ? AND user_missions.cycle_date = ?)
				OR (missions.cycle = ? AND user_missions.cycle_date = ?)
				OR missions.cycle = ?`,
				models.CycleDaily, today, models.CycleWeekly, monday, models.CyclePermanent)

		var instances []models.UserMission
		if err := query.Order("user_missions.is_completed, user_missions.created_at DESC").Find(&instances).Error; err != nil {
			return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{"error": "failed to fetch missions", "cause": err.Error()})
		}

		total := len(instances)
		completed := 0
		for _, inst := range instances {
			if inst.IsCompleted {
				completed++
			}
		}

		// Post-filter so the stats above always describe the full cycle.
		cycleFilter := c.Query("cycle")
		statusFilter := c.Query("status", "active")
		filtered := make([]models.UserMission, 0, len(instances))
		for _, inst := range instances {
			if cycleFilter != "" && inst.Mission != nil && string(inst.Mission.Cycle) != cycleFilter {
				continue
			}
			if statusFilter == "active" && inst.IsCompleted {
				continue
			}
			if statusFilter == "completed" && !inst.IsCompleted {
				continue
			}
			filtered = append(filtered, inst)
		}

		return c.JSON(fiber.Map{
			"success":              true,
			"total_missions":       total,
			"completed_missions":   completed,
			"in_progress_missions": total - completed,
			"daily_reset_in":       utils.SecondsUntilDailyReset(user.Timezone, now),
			"weekly_reset_in":      utils.SecondsUntilWeeklyReset(user.Timezone, now),
			"missions":             filtered,
		})
	})

	securedGroup.Get("/missions/squad", func(c *fiber.Ctx) error {
		userID := c.Locals("user_id").(string)
		now := time.Now().UTC()

		user, err := tracking.EnsureLearner(userID)
		if err != nil {
			return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{"error": "failed to resolve user", "cause": err.Error()})
		}
		if err := reset.EnsureSquadInstances(user, now); err != nil {
			log.Printf("[MISSIONS] Squad ensure failed for %s: %v", userID, err)
		}

		today := utils.UserToday(user.Timezone, now)
		monday := utils.UserWeekStart(user.Timezone, now)

		rows, err := squads.SquadProgressForUser(userID, today, monday)
		if err != nil {
			return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{"error": "failed to fetch squad missions", "cause": err.Error()})
		}
		return c.JSON(fiber.Map{"success": true, "squad_missions": rows})
	})

	securedGroup.Get("/balances", func(c *fiber.Ctx) error {
		userID := c.Locals("user_id").(string)
		var balances []models.UserCurrency
		if err := tracking.DB.Preload("Currency").Where("user_id = ?", userID).Find(&balances).Error; err != nil {
			return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{"error": "failed to fetch balances", "cause": err.Error()})
		}
		return c.JSON(balances)
	})
}
