package model

import (
	"encoding/json"
	"time"

	"gorm.io/gorm"
)

// MCQSelection is one chosen option of a question attempt. The set is always
// replaced wholesale on re-answer, never patched.
type MCQSelection struct {
	ID                uint      `gorm:"primarykey" json:"id"`
	QuestionAttemptID uint      `json:"question_attempt_id" gorm:"not null;index;uniqueIndex:idx_selection"`
	OptionID          uint      `json:"option_id" gorm:"not null;index;uniqueIndex:idx_selection"`
	CreatedAt         time.Time `json:"created_at"`
}

// Submission languages accepted for writing answers.
const (
	LangPython = "python"
	LangCpp    = "cpp"
	LangJava   = "java"
	LangJS     = "js"
)

// SpeakingAnswer holds the uploaded audio reference and, after grading, the
// transcript and matched keywords. One-to-one with its question attempt.
type SpeakingAnswer struct {
	ID                uint            `gorm:"primarykey" json:"id"`
	QuestionAttemptID uint            `json:"question_attempt_id" gorm:"not null;uniqueIndex"`
	AudioObjectKey    string          `json:"audio_object_key,omitempty"`
	AudioContentType  string          `json:"audio_content_type,omitempty"`
	Transcript        string          `json:"transcript,omitempty" gorm:"type:text"`
	MatchedCount      uint            `json:"matched_count" gorm:"default:0"`
	MatchedKeywords   json.RawMessage `json:"matched_keywords,omitempty" gorm:"type:jsonb"`
	CreatedAt         time.Time       `json:"created_at"`
	UpdatedAt         time.Time       `json:"updated_at"`
	DeletedAt         gorm.DeletedAt  `gorm:"index" json:"-"`
}

// MatchedKeywordList decodes the stored matched-keyword array.
func (a *SpeakingAnswer) MatchedKeywordList() []string {
	if len(a.MatchedKeywords) == 0 {
		return nil
	}
	var kws []string
	if err := json.Unmarshal(a.MatchedKeywords, &kws); err != nil {
		return nil
	}
	return kws
}

// WritingSubmission holds the submitted code and program output. One-to-one
// with its question attempt.
type WritingSubmission struct {
	ID                uint           `gorm:"primarykey" json:"id"`
	QuestionAttemptID uint           `json:"question_attempt_id" gorm:"not null;uniqueIndex"`
	Language          string         `json:"language" gorm:"default:'python'"`
	Code              string         `json:"code,omitempty" gorm:"type:text"`
	OutputText        string         `json:"output_text,omitempty" gorm:"type:text"`
	IsCorrect         bool           `json:"is_correct" gorm:"default:false"`
	CheckedAt         *time.Time     `json:"checked_at,omitempty"`
	CreatedAt         time.Time      `json:"created_at"`
	UpdatedAt         time.Time      `json:"updated_at"`
	DeletedAt         gorm.DeletedAt `gorm:"index" json:"-"`
}
