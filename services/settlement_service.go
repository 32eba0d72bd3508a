package services

import (
	"errors"
	"fmt"
	"log"

	"mission-service/models"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

// SettlementService credits mission rewards into user currency balances.
// It only ever adds; debits belong to the redemption flow.
type SettlementService struct {
	DB *gorm.DB
}

func NewSettlementService(db *gorm.DB) *SettlementService {
	return &SettlementService{DB: db}
}

// SettleRewards applies every reward line to the user's balances inside the
// caller's transaction: either all lines for one completion are credited or
// none are.
func (s *SettlementService) SettleRewards(tx *gorm.DB, userID string, rewards []models.MissionReward) error {
	for _, reward := range rewards {
		if err := s.credit(tx, userID, reward.CurrencyID, reward.Amount); err != nil {
			return fmt.Errorf("credit %d of currency %s to user %s: %w", reward.Amount, reward.CurrencyID, userID, err)
		}
	}
	return nil
}

// credit fetches-or-creates the balance row (default 0) and adds amount.
func (s *SettlementService) credit(tx *gorm.DB, userID, currencyID string, amount int64) error {
	var balance models.UserCurrency
	err := tx.Where("user_id = ? AND currency_id = ?", userID, currencyID).First(&balance).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		balance = models.UserCurrency{
			ID:         uuid.NewString(),
			UserID:     userID,
			CurrencyID: currencyID,
			Balance:    0,
		}
		if err := tx.Create(&balance).Error; err != nil {
			return err
		}
	} else if err != nil {
		return err
	}

	if err := tx.Model(&models.UserCurrency{}).
		Where("id = ?", balance.ID).
		Update("balance", gorm.Expr("balance + ?", amount)).Error; err != nil {
		return err
	}

	log.Printf("[REWARD] 💰 +%d currency=%s user=%s", amount, currencyID, userID)
	return nil
}
