package models

// Squad is a local snapshot of a study squad. Squad management lives in the
// squads service; this service only needs the roster for mission
// aggregation.
type Squad struct {
	ID         string `gorm:"primaryKey;type:uuid;not null" json:"id"`
	Name       string `gorm:"uniqueIndex;not null" json:"name"`
	MaxMembers int    `gorm:"default:5" json:"max_members"`
	MinMembers int    `gorm:"default:3" json:"min_members"`
	CreatedBy  string `gorm:"type:uuid" json:"created_by"`

	Timestamps
}

// SquadMember links a user to a squad. Roster membership is read at
// completeness-check time, never frozen at instance creation.
type SquadMember struct {
	ID      string `gorm:"primaryKey;type:uuid;not null" json:"id"`
	SquadID string `gorm:"type:uuid;not null;uniqueIndex:idx_squad_user" json:"squad_id"`
	UserID  string `gorm:"type:uuid;not null;uniqueIndex:idx_squad_user;index" json:"user_id"`
	Role    string `gorm:"type:varchar(20);default:'member'" json:"role"` // leader | member

	Timestamps
}
