package models

// LearnerUser is a local snapshot of an accounts-service user, populated by
// the profile sync worker. The mission engine reads the stored IANA
// timezone from here to compute cycle dates.
type LearnerUser struct {
	ID             string `gorm:"primaryKey;type:uuid;not null" json:"id"`
	ExternalUserID string `gorm:"uniqueIndex;not null" json:"external_user_id"` // accounts service UUID
	Username       string `gorm:"index" json:"username"`
	Email          string `json:"email,omitempty"`

	// IANA zone name, e.g. "Asia/Ho_Chi_Minh". Unknown or empty falls back
	// to UTC when resolving cycle dates.
	Timezone string `gorm:"type:varchar(64);default:'UTC'" json:"timezone"`

	Timestamps
}
