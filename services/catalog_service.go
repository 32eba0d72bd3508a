package services

import (
	"errors"
	"fmt"
	"log"

	"mission-service/models"

	"github.com/gofiber/fiber/v2"
	"github.com/google/uuid"
	"github.com/gosimple/slug"
	"gorm.io/gorm"
)

// CatalogService is the read-only accessor over mission definitions plus the
// admin surface that manages them out of band.
type CatalogService struct {
	DB *gorm.DB
}

func NewCatalogService(db *gorm.DB) *CatalogService {
	return &CatalogService{DB: db}
}

// ActiveIndividualMissions returns active individual missions for a cycle,
// rewards preloaded.
func (s *CatalogService) ActiveIndividualMissions(cycle models.CycleType) ([]models.Mission, error) {
	var missions []models.Mission
	err := s.DB.Preload("Rewards").
		Where("cycle = ? AND access_type = ? AND is_active = ?", cycle, models.AccessIndividual, true).
		Find(&missions).Error
	return missions, err
}

// ActiveSquadMissions returns active squad missions for a cycle that require
// the full roster.
func (s *CatalogService) ActiveSquadMissions(cycle models.CycleType) ([]models.Mission, error) {
	var missions []models.Mission
	err := s.DB.Preload("Rewards").
		Where("cycle = ? AND access_type = ? AND is_active = ? AND require_all_members = ?",
			cycle, models.AccessSquad, true, true).
		Find(&missions).Error
	return missions, err
}

// --- Admin Handlers ---

type missionRewardInput struct {
	CurrencyID string `json:"currency_id"`
	Amount     int64  `json:"amount"`
}

// CreateMission creates a new mission definition (Admin only)
func (s *CatalogService) CreateMission(c *fiber.Ctx) error {
	var req struct {
		Title             string                   `json:"title"`
		Description       string                   `json:"description"`
		Type              models.MissionType       `json:"type"`
		Cycle             models.CycleType         `json:"cycle"`
		AccessType        models.AccessType        `json:"access_type"`
		TargetCount       int                      `json:"target_count"`
		Conditions        models.MissionConditions `json:"conditions"`
		RequireAllMembers bool                     `json:"require_all_members"`
		IsRandomPool      bool                     `json:"is_random_pool"`
		PoolSize          int                      `json:"pool_size"`
		Rewards           []missionRewardInput     `json:"rewards"`
	}

	if err := c.BodyParser(&req); err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "Invalid request body"})
	}
	if req.Title == "" || req.Type == "" {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "title and type are required"})
	}
	// A zero target would be vacuously complete at progress=0; refuse it here
	// so such rows can never reach the tracker.
	if req.TargetCount < 1 {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "target_count must be at least 1"})
	}
	if req.Cycle == "" {
		req.Cycle = models.CycleDaily
	}
	if req.AccessType == "" {
		req.AccessType = models.AccessIndividual
	}
	if req.IsRandomPool && req.Cycle != models.CycleDaily {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "random pool is only supported for daily missions"})
	}
	if req.RequireAllMembers && req.AccessType != models.AccessSquad {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "require_all_members only applies to squad missions"})
	}
	if req.PoolSize <= 0 {
		req.PoolSize = 3
	}

	mission := models.Mission{
		ID:                uuid.NewString(),
		Code:              s.uniqueCode(req.Title),
		Title:             req.Title,
		Description:       req.Description,
		Type:              req.Type,
		Cycle:             req.Cycle,
		AccessType:        req.AccessType,
		TargetCount:       req.TargetCount,
		Conditions:        req.Conditions,
		RequireAllMembers: req.RequireAllMembers,
		IsRandomPool:      req.IsRandomPool,
		PoolSize:          req.PoolSize,
		IsActive:          true,
	}
	for _, r := range req.Rewards {
		mission.Rewards = append(mission.Rewards, models.MissionReward{
			ID:         uuid.NewString(),
			MissionID:  mission.ID,
			CurrencyID: r.CurrencyID,
			Amount:     r.Amount,
		})
	}

	if err := s.DB.Create(&mission).Error; err != nil {
		log.Printf("[CATALOG] DB error creating mission: %v", err)
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{"error": "Failed to create mission"})
	}

	return c.Status(fiber.StatusCreated).JSON(mission)
}

// uniqueCode slugs the title and suffixes on collision. Soft-deleted
// missions keep their code, and the unique index does not know about
// deleted_at, so the collision check must be unscoped.
func (s *CatalogService) uniqueCode(title string) string {
	base := slug.Make(title)
	code := base
	for i := 2; ; i++ {
		var count int64
		s.DB.Unscoped().Model(&models.Mission{}).Where("code = ?", code).Count(&count)
		if count == 0 {
			return code
		}
		code = fmt.Sprintf("%s-%d", base, i)
	}
}

// UpdateMission partially updates a mission definition (Admin only)
func (s *CatalogService) UpdateMission(c *fiber.Ctx) error {
	id := c.Params("id")
	if _, err := uuid.Parse(id); err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "Invalid mission ID"})
	}

	var mission models.Mission
	if err := s.DB.First(&mission, "id = ?", id).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return c.Status(fiber.StatusNotFound).JSON(fiber.Map{"error": "Mission not found"})
		}
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{"error": "DB error"})
	}

	var req struct {
		Title       *string                   `json:"title"`
		Description *string                   `json:"description"`
		TargetCount *int                      `json:"target_count"`
		Conditions  *models.MissionConditions `json:"conditions"`
		IsActive    *bool                     `json:"is_active"`
		PoolSize    *int                      `json:"pool_size"`
	}
	if err := c.BodyParser(&req); err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "Invalid request body"})
	}

	if req.Title != nil {
		mission.Title = *req.Title
	}
	if req.Description != nil {
		mission.Description = *req.Description
	}
	if req.TargetCount != nil {
		if *req.TargetCount < 1 {
			return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "target_count must be at least 1"})
		}
		mission.TargetCount = *req.TargetCount
	}
	if req.Conditions != nil {
		mission.Conditions = *req.Conditions
	}
	if req.IsActive != nil {
		mission.IsActive = *req.IsActive
	}
	if req.PoolSize != nil && *req.PoolSize > 0 {
		mission.PoolSize = *req.PoolSize
	}

	if err := s.DB.Save(&mission).Error; err != nil {
		log.Printf("[CATALOG] DB error updating mission %s: %v", id, err)
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{"error": "Failed to update mission"})
	}
	return c.JSON(mission)
}

// SetMissionStatus flips is_active (Admin only)
func (s *CatalogService) SetMissionStatus(c *fiber.Ctx) error {
	id := c.Params("id")
	var req struct {
		IsActive *bool `json:"is_active"`
	}
	if err := c.BodyParser(&req); err != nil || req.IsActive == nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "is_active is required"})
	}

	result := s.DB.Model(&models.Mission{}).Where("id = ?", id).Update("is_active", *req.IsActive)
	if result.Error != nil {
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{"error": "Failed to update mission status"})
	}
	if result.RowsAffected == 0 {
		return c.Status(fiber.StatusNotFound).JSON(fiber.Map{"error": "Mission not found"})
	}
	return c.JSON(fiber.Map{"message": "Mission status updated", "is_active": *req.IsActive})
}

// ListMissions returns the whole catalog (Admin only)
func (s *CatalogService) ListMissions(c *fiber.Ctx) error {
	var missions []models.Mission
	query := s.DB.Preload("Rewards.Currency")
	if cycle := c.Query("cycle"); cycle != "" {
		query = query.Where("cycle = ?", cycle)
	}
	if access := c.Query("access_type"); access != "" {
		query = query.Where("access_type = ?", access)
	}
	if err := query.Order("cycle, access_type, type").Find(&missions).Error; err != nil {
		log.Printf("[CATALOG] DB error listing missions: %v", err)
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{"error": "Failed to fetch missions"})
	}
	return c.JSON(missions)
}

// DeleteMission soft-deletes a mission definition (Admin only)
func (s *CatalogService) DeleteMission(c *fiber.Ctx) error {
	id := c.Params("id")
	if _, err := uuid.Parse(id); err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "Invalid mission ID"})
	}

	var mission models.Mission
	if err := s.DB.First(&mission, "id = ?", id).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return c.Status(fiber.StatusNotFound).JSON(fiber.Map{"error": "Mission not found"})
		}
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{"error": "DB error"})
	}
	if err := s.DB.Delete(&mission).Error; err != nil {
		log.Printf("[CATALOG] DB error deleting mission %s: %v", id, err)
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{"error": "Failed to delete mission"})
	}
	return c.JSON(fiber.Map{"message": "Mission deleted"})
}

// CreateCurrency registers a currency (Admin only)
func (s *CatalogService) CreateCurrency(c *fiber.Ctx) error {
	var req struct {
		Name        string `json:"name"`
		Description string `json:"description"`
	}
	if err := c.BodyParser(&req); err != nil || req.Name == "" {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "name is required"})
	}
	currency := models.Currency{ID: uuid.NewString(), Name: req.Name, Description: req.Description}
	if err := s.DB.Create(&currency).Error; err != nil {
		log.Printf("[CATALOG] DB error creating currency: %v", err)
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{"error": "Failed to create currency"})
	}
	return c.Status(fiber.StatusCreated).JSON(currency)
}
