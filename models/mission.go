package models

// MissionType is the user action a mission counts.
type MissionType string

const (
	MissionTypeLogin          MissionType = "login"
	MissionTypeAskQuestion    MissionType = "ask_question"
	MissionTypeAnswerQuestion MissionType = "answer_question"
	MissionTypeCompleteQuiz   MissionType = "complete_quiz"
	MissionTypeSaveQuestion   MissionType = "save_question"
	MissionTypeViewQuestion   MissionType = "view_question"
	MissionTypeRateQuiz       MissionType = "rate_quiz"
	MissionTypeVerifyAnswer   MissionType = "verify_answer"
	MissionTypeCreateQuiz     MissionType = "create_quiz"
	MissionTypeGetVerified    MissionType = "get_verified"
	MissionTypeOther          MissionType = "other"
)

// CycleType is the reset window of a mission.
type CycleType string

const (
	CycleDaily     CycleType = "daily"
	CycleWeekly    CycleType = "weekly"
	CyclePermanent CycleType = "permanent"
)

// AccessType distinguishes individual missions from squad-wide ones.
type AccessType string

const (
	AccessIndividual AccessType = "individual"
	AccessSquad      AccessType = "squad"
)

// MissionConditions are the declarative acceptance rules attached to a
// mission. Which fields apply depends on the mission type; zero values mean
// "no restriction".
type MissionConditions struct {
	MinScore            *int     `json:"min_score,omitempty"`
	MinRating           *float64 `json:"min_rating,omitempty"`
	ExcludeOwnQuestions bool     `json:"exclude_own_questions,omitempty"`
	OnlyPublicQuestions bool     `json:"only_public_questions,omitempty"`
	UniqueVerifiers     bool     `json:"unique_verifiers,omitempty"`
}

// Mission is an admin-authored catalog entry. Instances are generated from it
// per user and cycle; the definition itself is never mutated at runtime
// except for IsActive.
type Mission struct {
	ID          string      `gorm:"primaryKey;type:uuid;not null" json:"id"`
	Code        string      `gorm:"uniqueIndex;not null" json:"code"` // slug of the title, stable admin handle
	Title       string      `gorm:"not null" json:"title"`
	Description string      `gorm:"type:text" json:"description,omitempty"`
	Type        MissionType `gorm:"type:varchar(30);not null;index" json:"type"`
	Cycle       CycleType   `gorm:"type:varchar(20);not null;default:'daily'" json:"cycle"`
	AccessType  AccessType  `gorm:"type:varchar(20);not null;default:'individual'" json:"access_type"`

	// Number of accepted events required for completion. Must be >= 1: the
	// catalog rejects zero so a fresh instance can never be vacuously
	// complete.
	TargetCount int `gorm:"not null;default:1" json:"target_count"`

	Conditions MissionConditions `gorm:"type:jsonb;serializer:json" json:"conditions"`

	// Squad missions only: all current members must finish their own
	// individual missions before the squad reward fires.
	RequireAllMembers bool `gorm:"default:false" json:"require_all_members"`

	// Daily missions only: pool members are sampled per user per day instead
	// of being assigned unconditionally.
	IsRandomPool bool `gorm:"default:false" json:"is_random_pool"`
	PoolSize     int  `gorm:"default:3" json:"pool_size"`

	IsActive bool `gorm:"default:true;index" json:"is_active"`

	Rewards []MissionReward `gorm:"foreignKey:MissionID" json:"rewards,omitempty"`

	Timestamps
}

// MissionReward is one currency line of a mission's payout.
type MissionReward struct {
	ID         string `gorm:"primaryKey;type:uuid;not null" json:"id"`
	MissionID  string `gorm:"type:uuid;not null;index" json:"mission_id"`
	CurrencyID string `gorm:"type:uuid;not null" json:"currency_id"`
	Amount     int64  `gorm:"not null;default:0" json:"amount"`

	Currency *Currency `gorm:"foreignKey:CurrencyID" json:"currency,omitempty"`

	Timestamps
}
