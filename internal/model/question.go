package model

import (
	"encoding/json"
	"strings"
	"time"

	"gorm.io/gorm"
)

// Question types, constrained by section type: listening/reading sections
// carry MCQ questions, speaking carries keyword questions, writing carries
// output-match questions.
const (
	QuestionMCQSingle        = "mcq_single"
	QuestionMCQMulti         = "mcq_multi"
	QuestionSpeakingKeywords = "speaking_keywords"
	QuestionWriting          = "writing"
)

// AllowedQuestionTypes maps a section type to the question types it may hold.
var AllowedQuestionTypes = map[string][]string{
	SectionListening: {QuestionMCQSingle, QuestionMCQMulti},
	SectionReading:   {QuestionMCQSingle, QuestionMCQMulti},
	SectionSpeaking:  {QuestionSpeakingKeywords},
	SectionWriting:   {QuestionWriting},
}

// QuestionTypeAllowed reports whether a question type may appear in a section
// of the given type.
func QuestionTypeAllowed(sectionType, questionType string) bool {
	for _, qt := range AllowedQuestionTypes[sectionType] {
		if qt == questionType {
			return true
		}
	}
	return false
}

type Question struct {
	ID                uint           `gorm:"primarykey" json:"id"`
	SectionID         uint           `json:"section_id" gorm:"not null;index"`
	SectionMaterialID *uint          `json:"section_material_id,omitempty" gorm:"index"`
	QuestionType      string         `json:"question_type" gorm:"not null"`
	Prompt            string         `json:"prompt" gorm:"type:text;not null"`
	Points            uint           `json:"points" gorm:"default:1"`
	OrderInSection    uint           `json:"order_in_section" gorm:"not null;default:1"`
	Options           []Option       `json:"options,omitempty" gorm:"foreignKey:QuestionID;constraint:OnUpdate:CASCADE,OnDelete:CASCADE;"`
	SpeakingRubric    *SpeakingRubric `json:"speaking_rubric,omitempty" gorm:"foreignKey:QuestionID;constraint:OnDelete:CASCADE;"`
	Writing           *Writing        `json:"writing,omitempty" gorm:"foreignKey:QuestionID;constraint:OnDelete:CASCADE;"`
	CreatedAt         time.Time      `json:"created_at"`
	UpdatedAt         time.Time      `json:"updated_at"`
	DeletedAt         gorm.DeletedAt `gorm:"index" json:"-"`
}

// IsMCQ reports whether the question is objective (machine-gradable).
func (q *Question) IsMCQ() bool {
	return q.QuestionType == QuestionMCQSingle || q.QuestionType == QuestionMCQMulti
}

type Option struct {
	ID         uint           `gorm:"primarykey" json:"id"`
	QuestionID uint           `json:"question_id" gorm:"not null;index"`
	Text       string         `json:"text" gorm:"type:text;not null"`
	IsCorrect  bool           `json:"-" gorm:"default:false"`
	CreatedAt  time.Time      `json:"created_at"`
	UpdatedAt  time.Time      `json:"updated_at"`
	DeletedAt  gorm.DeletedAt `gorm:"index" json:"-"`
}

// MaxRubricKeywords caps the keyword list of a speaking rubric.
const MaxRubricKeywords = 9

// SpeakingRubric holds the keyword list a speaking answer is scored against.
// Keywords are stored as a JSON array of strings.
type SpeakingRubric struct {
	ID              uint            `gorm:"primarykey" json:"id"`
	QuestionID      uint            `json:"question_id" gorm:"not null;uniqueIndex"`
	Keywords        json.RawMessage `json:"keywords" gorm:"type:jsonb"`
	PointPerKeyword uint            `json:"point_per_keyword" gorm:"default:3"`
	MaxPoints       uint            `json:"max_points" gorm:"default:25"`
	CreatedAt       time.Time       `json:"created_at"`
	UpdatedAt       time.Time       `json:"updated_at"`
	DeletedAt       gorm.DeletedAt  `gorm:"index" json:"-"`
}

// BeforeSave trims, deduplicates case-insensitively and caps the keyword
// list before it hits the database, so grading never sees a dirty rubric.
func (r *SpeakingRubric) BeforeSave(tx *gorm.DB) error {
	kws := r.KeywordList()
	if kws == nil {
		return nil
	}
	clean := make([]string, 0, len(kws))
	seen := make(map[string]bool, len(kws))
	for _, kw := range kws {
		kw = strings.TrimSpace(kw)
		key := strings.ToLower(kw)
		if kw == "" || seen[key] {
			continue
		}
		seen[key] = true
		clean = append(clean, kw)
		if len(clean) == MaxRubricKeywords {
			break
		}
	}
	raw, err := json.Marshal(clean)
	if err != nil {
		return err
	}
	r.Keywords = raw
	return nil
}

// KeywordList decodes the stored keyword array. A missing or malformed value
// decodes as an empty list.
func (r *SpeakingRubric) KeywordList() []string {
	if len(r.Keywords) == 0 {
		return nil
	}
	var kws []string
	if err := json.Unmarshal(r.Keywords, &kws); err != nil {
		return nil
	}
	return kws
}

// Writing is the answer key of an output-match question.
type Writing struct {
	ID               uint           `gorm:"primarykey" json:"id"`
	QuestionID       uint           `json:"question_id" gorm:"not null;uniqueIndex"`
	ExpectedOutput   string         `json:"expected_output" gorm:"type:text;not null"`
	IgnoreWhitespace bool           `json:"ignore_whitespace" gorm:"default:true"`
	CreatedAt        time.Time      `json:"created_at"`
	UpdatedAt        time.Time      `json:"updated_at"`
	DeletedAt        gorm.DeletedAt `gorm:"index" json:"-"`
}
