package services

import (
	"mission-service/models"
)

// EventContext carries the action payload feature services attach when
// reporting a qualifying user action. Fields are mission-type specific;
// missing values keep their zero default and simply fail the related
// condition (they are never an error).
type EventContext struct {
	QuizID          string   `json:"quiz_id,omitempty"`
	QuestionID      string   `json:"question_id,omitempty"`
	QuestionOwnerID string   `json:"question_owner_id,omitempty"`
	VerifierID      string   `json:"verifier_id,omitempty"`
	Score           float64  `json:"score,omitempty"`
	Rating          float64  `json:"rating,omitempty"`
	IsPublic        *bool    `json:"is_public,omitempty"` // nil means public
}

// conditionRule decides whether an event counts toward a mission instance.
// Rules are pure: they read conditions, the instance's dedup metadata and
// the event context, and never touch storage.
type conditionRule func(cond models.MissionConditions, meta models.MissionMetadata, userID string, ctx EventContext) bool

var conditionRules = map[models.MissionType]conditionRule{
	models.MissionTypeAnswerQuestion: questionInteractionRule,
	models.MissionTypeSaveQuestion:   questionInteractionRule,
	models.MissionTypeViewQuestion:   questionInteractionRule,
	models.MissionTypeCompleteQuiz:   completeQuizRule,
	models.MissionTypeGetVerified:    getVerifiedRule,
	models.MissionTypeCreateQuiz:     createQuizRule,
}

// EvaluateConditions reports whether the event is accepted for this
// instance. Mission types without a registered rule accept unconditionally.
func EvaluateConditions(mission *models.Mission, instance *models.UserMission, ctx EventContext) bool {
	rule, ok := conditionRules[mission.Type]
	if !ok {
		return true
	}
	meta := instance.Metadata
	if meta == nil {
		meta = models.MissionMetadata{}
	}
	return rule(mission.Conditions, meta, instance.UserID, ctx)
}

func questionInteractionRule(cond models.MissionConditions, _ models.MissionMetadata, userID string, ctx EventContext) bool {
	if cond.ExcludeOwnQuestions && ctx.QuestionOwnerID != "" && ctx.QuestionOwnerID == userID {
		return false
	}
	if cond.OnlyPublicQuestions && ctx.IsPublic != nil && !*ctx.IsPublic {
		return false
	}
	return true
}

func completeQuizRule(cond models.MissionConditions, meta models.MissionMetadata, _ string, ctx EventContext) bool {
	if cond.MinScore != nil && ctx.Score < float64(*cond.MinScore) {
		return false
	}
	// Same quiz never counts twice, condition or not.
	if ctx.QuizID != "" && meta.Contains(models.MetaCompletedQuizIDs, ctx.QuizID) {
		return false
	}
	return true
}

func getVerifiedRule(cond models.MissionConditions, meta models.MissionMetadata, _ string, ctx EventContext) bool {
	if cond.UniqueVerifiers && ctx.VerifierID != "" && meta.Contains(models.MetaVerifierIDs, ctx.VerifierID) {
		return false
	}
	return true
}

func createQuizRule(cond models.MissionConditions, meta models.MissionMetadata, _ string, ctx EventContext) bool {
	if cond.MinRating != nil && ctx.Rating < *cond.MinRating {
		return false
	}
	if ctx.QuizID != "" && meta.Contains(models.MetaCountedQuizIDs, ctx.QuizID) {
		return false
	}
	return true
}
