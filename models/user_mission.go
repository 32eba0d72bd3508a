package models

import (
	"time"
)

// Metadata keys for per-instance dedup bookkeeping.
const (
	MetaCompletedQuizIDs  = "completed_quiz_ids"
	MetaCountedQuizIDs    = "counted_quiz_ids"
	MetaVerifierIDs       = "verifier_ids"
	MetaViewedQuestionIDs = "viewed_question_ids"
	MetaSavedQuestionIDs  = "saved_question_ids"
)

// MissionMetadata holds lists of already-counted entity IDs so the same
// qualifying event can never be counted twice. Owned exclusively by its
// UserMission and only mutated under that row's lock.
type MissionMetadata map[string][]string

// Contains reports whether id was already recorded under key.
func (m MissionMetadata) Contains(key, id string) bool {
	for _, v := range m[key] {
		if v == id {
			return true
		}
	}
	return false
}

// Add records id under key. Returns false if it was already present.
func (m MissionMetadata) Add(key, id string) bool {
	if m.Contains(key, id) {
		return false
	}
	m[key] = append(m[key], id)
	return true
}

// PermanentCycleDate is the fixed cycle key shared by all permanent mission
// instances, so the (mission, user, cycle_date) uniqueness constraint still
// yields exactly one instance ever.
var PermanentCycleDate = time.Date(1970, 1, 1, 0, 0, 0, 0, time.UTC)

// UserMission is one user's progress against one mission for one cycle
// occurrence. cycle_date is today (daily), the week's Monday (weekly), both
// in the user's timezone, or PermanentCycleDate.
type UserMission struct {
	ID        string    `gorm:"primaryKey;type:uuid;not null" json:"id"`
	MissionID string    `gorm:"type:uuid;not null;uniqueIndex:idx_mission_user_cycle" json:"mission_id"`
	UserID    string    `gorm:"type:uuid;not null;uniqueIndex:idx_mission_user_cycle;index:idx_user_cycle" json:"user_id"`
	CycleDate time.Time `gorm:"type:date;not null;uniqueIndex:idx_mission_user_cycle;index:idx_user_cycle;index:idx_cycle_completed" json:"cycle_date"`

	Progress    int        `gorm:"not null;default:0" json:"progress"`
	IsCompleted bool       `gorm:"not null;default:false;index:idx_cycle_completed" json:"is_completed"`
	CompletedAt *time.Time `json:"completed_at,omitempty"`

	Metadata MissionMetadata `gorm:"type:jsonb;serializer:json" json:"metadata,omitempty"`

	Mission *Mission `gorm:"foreignKey:MissionID" json:"mission,omitempty"`

	Timestamps
}

// SquadMissionProgress aggregates one squad's state for one squad-scoped
// mission and cycle. completed_members is the set of user IDs that have
// finished all of their own individual missions for the cycle.
type SquadMissionProgress struct {
	ID        string    `gorm:"primaryKey;type:uuid;not null" json:"id"`
	SquadID   string    `gorm:"type:uuid;not null;uniqueIndex:idx_squad_mission_cycle;index:idx_squad_cycle" json:"squad_id"`
	MissionID string    `gorm:"type:uuid;not null;uniqueIndex:idx_squad_mission_cycle" json:"mission_id"`
	CycleDate time.Time `gorm:"type:date;not null;uniqueIndex:idx_squad_mission_cycle;index:idx_squad_cycle" json:"cycle_date"`

	CompletedMembers []string `gorm:"type:jsonb;serializer:json" json:"completed_members"`

	IsCompleted bool       `gorm:"not null;default:false" json:"is_completed"`
	CompletedAt *time.Time `json:"completed_at,omitempty"`

	// Write-once guard against double payout. Invariant:
	// rewards_distributed implies is_completed.
	RewardsDistributed bool `gorm:"not null;default:false" json:"rewards_distributed"`

	Mission *Mission `gorm:"foreignKey:MissionID" json:"mission,omitempty"`

	Timestamps
}

// HasMember reports whether userID is already in the completed set.
func (p *SquadMissionProgress) HasMember(userID string) bool {
	for _, id := range p.CompletedMembers {
		if id == userID {
			return true
		}
	}
	return false
}

// CoversRoster reports whether every roster member is in the completed set.
// The roster is whatever the caller read at check time; an empty roster
// never counts as covered.
func (p *SquadMissionProgress) CoversRoster(roster []string) bool {
	if len(roster) == 0 {
		return false
	}
	for _, id := range roster {
		if !p.HasMember(id) {
			return false
		}
	}
	return true
}
