package dto

import (
	"time"

	"github.com/shopspring/decimal"
)

// AttemptDTO is the serialized state of one exam attempt.
type AttemptDTO struct {
	ID            uint                `json:"id"`
	ExamID        uint                `json:"exam_id"`
	ExamTitle     string              `json:"exam_title,omitempty"`
	Status        string              `json:"status"`
	StartedAt     time.Time           `json:"started_at"`
	FinishedAt    *time.Time          `json:"finished_at,omitempty"`
	TotalScore    decimal.Decimal     `json:"total_score"`
	MaxTotalScore decimal.Decimal     `json:"max_total_score"`
	Sections      []SectionAttemptDTO `json:"sections,omitempty"`
}

type SectionAttemptDTO struct {
	ID               uint            `json:"id"`
	SectionID        uint            `json:"section_id"`
	SectionType      string          `json:"section_type"`
	Status           string          `json:"status"`
	StartedAt        *time.Time      `json:"started_at,omitempty"`
	FinishedAt       *time.Time      `json:"finished_at,omitempty"`
	Score            decimal.Decimal `json:"score"`
	MaxScore         decimal.Decimal `json:"max_score"`
	TimeSpentSeconds uint            `json:"time_spent_seconds"`
	QuestionCount    int             `json:"question_count"`
	AnsweredCount    int             `json:"answered_count"`
}

// QuestionContextDTO is the navigator payload: where the user is in the
// attempt, prev/next hooks and the full ordered question id list for the
// progress indicator, plus the current question. It carries no answer keys.
type QuestionContextDTO struct {
	AttemptID          uint             `json:"attempt_id"`
	Status             string           `json:"status"`
	TotalQuestions     int              `json:"total_questions"`
	AnsweredCount      int              `json:"answered_count"`
	QuestionIDs        []uint           `json:"question_ids"`
	CurrentIndex       int              `json:"current_index"`
	Position           int              `json:"position"`
	IsLast             bool             `json:"is_last"`
	PreviousQuestionID *uint            `json:"previous_question_id,omitempty"`
	NextQuestionID     *uint            `json:"next_question_id,omitempty"`
	Finished           bool             `json:"finished"`
	Question           *QuestionViewDTO `json:"question,omitempty"`
}

// QuestionViewDTO is one question as the candidate sees it: prompt, section
// context, shared material and options in the attempt's frozen order.
type QuestionViewDTO struct {
	QuestionAttemptID uint             `json:"question_attempt_id"`
	QuestionID        uint             `json:"question_id"`
	SectionID         uint             `json:"section_id"`
	SectionType       string           `json:"section_type"`
	QuestionType      string           `json:"question_type"`
	Prompt            string           `json:"prompt"`
	Points            uint             `json:"points"`
	OrderInAttempt    uint             `json:"order_in_attempt"`
	IsAnswered        bool             `json:"is_answered"`
	Options           []OptionViewDTO  `json:"options,omitempty"`
	SelectedOptionIDs []uint           `json:"selected_option_ids,omitempty"`
	Material          *MaterialViewDTO `json:"material,omitempty"`
}

type OptionViewDTO struct {
	ID   uint   `json:"id"`
	Text string `json:"text"`
}

type MaterialViewDTO struct {
	ID             uint   `json:"id"`
	Text           string `json:"text,omitempty"`
	AudioObjectKey string `json:"audio_object_key,omitempty"`
}

// ReviewDTO is the read-only post-finish report of an attempt.
type ReviewDTO struct {
	Attempt  AttemptDTO         `json:"attempt"`
	Sections []SectionReviewDTO `json:"sections"`
}

type SectionReviewDTO struct {
	SectionAttemptDTO
	Questions []QuestionReviewDTO `json:"questions"`
}

// QuestionReviewDTO is one graded question in the review, keys included.
type QuestionReviewDTO struct {
	QuestionAttemptID uint            `json:"question_attempt_id"`
	QuestionID        uint            `json:"question_id"`
	QuestionType      string          `json:"question_type"`
	Prompt            string          `json:"prompt"`
	OrderInAttempt    uint            `json:"order_in_attempt"`
	Score             decimal.Decimal `json:"score"`
	MaxScore          decimal.Decimal `json:"max_score"`
	IsAnswered        bool            `json:"is_answered"`
	IsGraded          bool            `json:"is_graded"`
	Options           []OptionViewDTO `json:"options,omitempty"`
	SelectedOptionIDs []uint          `json:"selected_option_ids,omitempty"`
	CorrectOptionIDs  []uint          `json:"correct_option_ids,omitempty"`
	Transcript        string          `json:"transcript,omitempty"`
	MatchedKeywords   []string        `json:"matched_keywords,omitempty"`
	SubmittedOutput   string          `json:"submitted_output,omitempty"`
	ExpectedOutput    string          `json:"expected_output,omitempty"`
	OutputCorrect     *bool           `json:"output_correct,omitempty"`
}
