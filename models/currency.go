package models

// Currency is a virtual currency (e.g. Gold, Diamond) managed by admins.
type Currency struct {
	ID          string `gorm:"primaryKey;type:uuid;not null" json:"id"`
	Name        string `gorm:"uniqueIndex;not null" json:"name"`
	Description string `gorm:"type:text" json:"description,omitempty"`

	Timestamps
}

// UserCurrency is one user's balance in one currency. The mission engine
// only ever credits it; debits happen through the redemption flow.
type UserCurrency struct {
	ID         string `gorm:"primaryKey;type:uuid;not null" json:"id"`
	UserID     string `gorm:"type:uuid;not null;uniqueIndex:idx_user_currency" json:"user_id"`
	CurrencyID string `gorm:"type:uuid;not null;uniqueIndex:idx_user_currency" json:"currency_id"`
	Balance    int64  `gorm:"not null;default:0" json:"balance"`

	Currency *Currency `gorm:"foreignKey:CurrencyID" json:"currency,omitempty"`

	Timestamps
}
