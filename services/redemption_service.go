package services

import (
	"errors"
	"log"
	"time"

	"mission-service/models"

	"github.com/gofiber/fiber/v2"
	"github.com/google/uuid"
	"gorm.io/gorm"
)

// RedemptionService lets users spend earned currency on redeemable rewards.
// Redemptions are created pending and debited only when an admin approves.
type RedemptionService struct {
	DB *gorm.DB
}

func NewRedemptionService(db *gorm.DB) *RedemptionService {
	return &RedemptionService{DB: db}
}

// ListRewards returns active redeemable rewards
func (s *RedemptionService) ListRewards(c *fiber.Ctx) error {
	var rewards []models.RedeemableReward
	if err := s.DB.Preload("Currency").Where("is_active = ?", true).Find(&rewards).Error; err != nil {
		log.Printf("[REDEEM] DB error listing rewards: %v", err)
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{"error": "Failed to fetch rewards"})
	}
	return c.JSON(rewards)
}

// Redeem creates a pending redemption for the authenticated user
func (s *RedemptionService) Redeem(c *fiber.Ctx) error {
	userID := c.Locals("user_id").(string)
	rewardID := c.Params("id")
	if _, err := uuid.Parse(rewardID); err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "Invalid reward ID"})
	}

	var reward models.RedeemableReward
	if err := s.DB.First(&reward, "id = ? AND is_active = ?", rewardID, true).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return c.Status(fiber.StatusNotFound).JSON(fiber.Map{"error": "Reward not found"})
		}
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{"error": "DB error"})
	}

	// Early balance check so users cannot queue redemptions they can't
	// afford; the authoritative check happens again at approval.
	var balance models.UserCurrency
	err := s.DB.Where("user_id = ? AND currency_id = ?", userID, reward.CurrencyID).First(&balance).Error
	if err != nil && !errors.Is(err, gorm.ErrRecordNotFound) {
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{"error": "DB error"})
	}
	if balance.Balance < reward.AmountRequired {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "Insufficient balance"})
	}

	redemption := models.RewardRedemption{
		ID:       uuid.NewString(),
		RewardID: reward.ID,
		UserID:   userID,
		Status:   models.RedemptionPending,
	}
	if err := s.DB.Create(&redemption).Error; err != nil {
		log.Printf("[REDEEM] DB error creating redemption: %v", err)
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{"error": "Failed to create redemption"})
	}
	return c.Status(fiber.StatusCreated).JSON(redemption)
}

// MyRedemptions lists the authenticated user's redemptions
func (s *RedemptionService) MyRedemptions(c *fiber.Ctx) error {
	userID := c.Locals("user_id").(string)
	var redemptions []models.RewardRedemption
	if err := s.DB.Preload("Reward.Currency").
		Where("user_id = ?", userID).
		Order("created_at DESC").
		Find(&redemptions).Error; err != nil {
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{"error": "Failed to fetch redemptions"})
	}
	return c.JSON(redemptions)
}

// ReviewRedemption approves or rejects a pending redemption (Admin only).
// Approval debits the user's balance in the same transaction; it fails if
// funds have since been spent elsewhere.
func (s *RedemptionService) ReviewRedemption(c *fiber.Ctx) error {
	id := c.Params("id")
	var req struct {
		Status models.RedemptionStatus `json:"status"`
		Notes  string                  `json:"notes"`
	}
	if err := c.BodyParser(&req); err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "Invalid request body"})
	}
	if req.Status != models.RedemptionApproved && req.Status != models.RedemptionRejected {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "status must be approved or rejected"})
	}

	var insufficientFunds bool
	err := s.DB.Transaction(func(tx *gorm.DB) error {
		var redemption models.RewardRedemption
		if err := lockForUpdate(tx).Preload("Reward").First(&redemption, "id = ?", id).Error; err != nil {
			return err
		}
		if redemption.Status != models.RedemptionPending {
			return errors.New("redemption already reviewed")
		}

		if req.Status == models.RedemptionApproved {
			var balance models.UserCurrency
			if err := lockForUpdate(tx).
				Where("user_id = ? AND currency_id = ?", redemption.UserID, redemption.Reward.CurrencyID).
				First(&balance).Error; err != nil && !errors.Is(err, gorm.ErrRecordNotFound) {
				return err
			}
			if balance.Balance < redemption.Reward.AmountRequired {
				insufficientFunds = true
				return errors.New("insufficient balance")
			}
			if err := tx.Model(&models.UserCurrency{}).
				Where("id = ?", balance.ID).
				Update("balance", gorm.Expr("balance - ?", redemption.Reward.AmountRequired)).Error; err != nil {
				return err
			}
		}

		now := time.Now().UTC()
		return tx.Model(&redemption).Updates(map[string]interface{}{
			"status":      req.Status,
			"admin_notes": req.Notes,
			"reviewed_at": now,
		}).Error
	})
	if err != nil {
		if insufficientFunds {
			return c.Status(fiber.StatusConflict).JSON(fiber.Map{"error": "User no longer has sufficient balance"})
		}
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return c.Status(fiber.StatusNotFound).JSON(fiber.Map{"error": "Redemption not found"})
		}
		log.Printf("[REDEEM] Review failed for redemption %s: %v", id, err)
		return c.Status(fiber.StatusConflict).JSON(fiber.Map{"error": err.Error()})
	}

	return c.JSON(fiber.Map{"message": "Redemption reviewed", "status": req.Status})
}

// CreateReward creates a redeemable reward (Admin only)
func (s *RedemptionService) CreateReward(c *fiber.Ctx) error {
	var req struct {
		Name           string                      `json:"name"`
		Description    string                      `json:"description"`
		Type           models.RedeemableRewardType `json:"type"`
		CurrencyID     string                      `json:"currency_id"`
		AmountRequired int64                       `json:"amount_required"`
	}
	if err := c.BodyParser(&req); err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "Invalid request body"})
	}
	if req.Name == "" || req.CurrencyID == "" || req.AmountRequired <= 0 {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "name, currency_id and a positive amount_required are required"})
	}
	if req.Type == "" {
		req.Type = models.RedeemableOther
	}

	reward := models.RedeemableReward{
		ID:             uuid.NewString(),
		Name:           req.Name,
		Description:    req.Description,
		Type:           req.Type,
		CurrencyID:     req.CurrencyID,
		AmountRequired: req.AmountRequired,
		IsActive:       true,
	}
	if err := s.DB.Create(&reward).Error; err != nil {
		log.Printf("[REDEEM] DB error creating reward: %v", err)
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{"error": "Failed to create reward"})
	}
	return c.Status(fiber.StatusCreated).JSON(reward)
}
