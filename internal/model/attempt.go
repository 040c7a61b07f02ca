package model

import (
	"encoding/json"
	"time"

	"github.com/shopspring/decimal"
	"gorm.io/gorm"
)

// Attempt lifecycle, shared by exam and section attempts.
const (
	StatusNotStarted = "not_started"
	StatusInProgress = "in_progress"
	StatusFinished   = "finished"
	StatusAborted    = "aborted"
)

// ExamAttempt is one user's run through one exam. There is at most one row
// per (user, exam); re-entry resumes it. Scores are sums of children and are
// never written directly by callers.
type ExamAttempt struct {
	ID              uint             `gorm:"primarykey" json:"id"`
	UserID          uint             `json:"user_id" gorm:"not null;index;uniqueIndex:idx_attempt_user_exam"`
	ExamID          uint             `json:"exam_id" gorm:"not null;index;uniqueIndex:idx_attempt_user_exam"`
	Exam            Exam             `json:"exam,omitempty" gorm:"foreignKey:ExamID"`
	Status          string           `json:"status" gorm:"default:'not_started'"`
	StartedAt       time.Time        `json:"started_at"`
	FinishedAt      *time.Time       `json:"finished_at,omitempty"`
	TotalScore      decimal.Decimal  `json:"total_score" gorm:"type:decimal(7,2);default:0"`
	MaxTotalScore   decimal.Decimal  `json:"max_total_score" gorm:"type:decimal(7,2);default:0"`
	SectionAttempts []SectionAttempt `json:"section_attempts,omitempty" gorm:"foreignKey:AttemptID;constraint:OnUpdate:CASCADE,OnDelete:CASCADE;"`
	CreatedAt       time.Time        `json:"created_at"`
	UpdatedAt       time.Time        `json:"updated_at"`
	DeletedAt       gorm.DeletedAt   `gorm:"index" json:"-"`
}

// SectionAttempt snapshots one section for one exam attempt.
type SectionAttempt struct {
	ID               uint              `gorm:"primarykey" json:"id"`
	AttemptID        uint              `json:"attempt_id" gorm:"not null;index;uniqueIndex:idx_section_attempt"`
	SectionID        uint              `json:"section_id" gorm:"not null;index;uniqueIndex:idx_section_attempt"`
	Section          Section           `json:"section,omitempty" gorm:"foreignKey:SectionID"`
	Status           string            `json:"status" gorm:"default:'not_started'"`
	StartedAt        *time.Time        `json:"started_at,omitempty"`
	FinishedAt       *time.Time        `json:"finished_at,omitempty"`
	Score            decimal.Decimal   `json:"score" gorm:"type:decimal(7,2);default:0"`
	MaxScore         decimal.Decimal   `json:"max_score" gorm:"type:decimal(7,2);default:0"`
	TimeSpentSeconds uint              `json:"time_spent_seconds" gorm:"default:0"`
	QuestionAttempts []QuestionAttempt `json:"question_attempts,omitempty" gorm:"foreignKey:SectionAttemptID;constraint:OnUpdate:CASCADE,OnDelete:CASCADE;"`
	CreatedAt        time.Time         `json:"created_at"`
	UpdatedAt        time.Time         `json:"updated_at"`
	DeletedAt        gorm.DeletedAt    `gorm:"index" json:"-"`
}

// QuestionAttempt snapshots one question for one attempt. OrderInAttempt is
// the per-attempt randomized sequence, decoupled from the question's authored
// order. OptionOrder is the frozen permutation of option ids captured once at
// creation; it is never regenerated.
type QuestionAttempt struct {
	ID                uint            `gorm:"primarykey" json:"id"`
	SectionAttemptID  uint            `json:"section_attempt_id" gorm:"not null;index"`
	SectionAttempt    SectionAttempt  `json:"-" gorm:"foreignKey:SectionAttemptID"`
	QuestionID        uint            `json:"question_id" gorm:"not null;index"`
	Question          Question        `json:"question,omitempty" gorm:"foreignKey:QuestionID"`
	SectionMaterialID *uint           `json:"section_material_id,omitempty" gorm:"index"`
	OrderInAttempt    uint            `json:"order_in_attempt" gorm:"not null;index"`
	AnswerJSON        json.RawMessage `json:"answer_json,omitempty" gorm:"type:jsonb"`
	Score             decimal.Decimal `json:"score" gorm:"type:decimal(7,2);default:0"`
	MaxScore          decimal.Decimal `json:"max_score" gorm:"type:decimal(7,2);default:0"`
	IsAnswered        bool            `json:"is_answered" gorm:"default:false"`
	IsGraded          bool            `json:"is_graded" gorm:"default:false"`
	OptionOrder       json.RawMessage `json:"option_order,omitempty" gorm:"type:jsonb"`
	CreatedAt         time.Time       `json:"created_at"`
	UpdatedAt         time.Time       `json:"updated_at"`
	DeletedAt         gorm.DeletedAt  `gorm:"index" json:"-"`
}

// OptionOrderIDs decodes the frozen option permutation.
func (qa *QuestionAttempt) OptionOrderIDs() []uint {
	if len(qa.OptionOrder) == 0 {
		return nil
	}
	var ids []uint
	if err := json.Unmarshal(qa.OptionOrder, &ids); err != nil {
		return nil
	}
	return ids
}
