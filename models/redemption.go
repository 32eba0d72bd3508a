package models

import "time"

// RedeemableRewardType categorizes what a user gets for redeeming.
type RedeemableRewardType string

const (
	RedeemablePremiumAccess RedeemableRewardType = "premium_access"
	RedeemableGiftCard      RedeemableRewardType = "gift_card"
	RedeemableTutoring      RedeemableRewardType = "tutoring"
	RedeemableOther         RedeemableRewardType = "other"
)

// RedeemableReward is something users can spend earned currency on.
type RedeemableReward struct {
	ID             string               `gorm:"primaryKey;type:uuid;not null" json:"id"`
	Name           string               `gorm:"not null" json:"name"`
	Description    string               `gorm:"type:text" json:"description,omitempty"`
	Type           RedeemableRewardType `gorm:"type:varchar(20);not null;default:'other'" json:"type"`
	CurrencyID     string               `gorm:"type:uuid;not null" json:"currency_id"`
	AmountRequired int64                `gorm:"not null;default:0" json:"amount_required"`
	IsActive       bool                 `gorm:"default:true" json:"is_active"`

	Currency *Currency `gorm:"foreignKey:CurrencyID" json:"currency,omitempty"`

	Timestamps
}

// RedemptionStatus tracks the admin review lifecycle of a redemption.
type RedemptionStatus string

const (
	RedemptionPending  RedemptionStatus = "pending"
	RedemptionApproved RedemptionStatus = "approved"
	RedemptionRejected RedemptionStatus = "rejected"
)

// RewardRedemption is a user's request to redeem a reward. The balance is
// debited at approval time, not at request time.
type RewardRedemption struct {
	ID       string           `gorm:"primaryKey;type:uuid;not null" json:"id"`
	RewardID string           `gorm:"type:uuid;not null;index" json:"reward_id"`
	UserID   string           `gorm:"type:uuid;not null;index" json:"user_id"`
	Status   RedemptionStatus `gorm:"type:varchar(20);not null;default:'pending'" json:"status"`

	AdminNotes string     `gorm:"type:text" json:"admin_notes,omitempty"`
	ReviewedAt *time.Time `json:"reviewed_at,omitempty"`

	Reward *RedeemableReward `gorm:"foreignKey:RewardID" json:"reward,omitempty"`

	Timestamps
}
