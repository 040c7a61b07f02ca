package dto

// MCQAnswerRequest records a selection set for an objective question. The set
// replaces any previous selection wholesale; an empty set clears the answer.
type MCQAnswerRequest struct {
	OptionIDs []uint `json:"option_ids"`
}

// WritingAnswerRequest submits code and its program output for checking.
type WritingAnswerRequest struct {
	Language   string `json:"language" binding:"omitempty,oneof=python cpp java js"`
	Code       string `json:"code"`
	OutputText string `json:"output_text" binding:"required"`
}

// AnswerResultDTO acknowledges a recorded answer.
type AnswerResultDTO struct {
	QuestionAttemptID uint `json:"question_attempt_id"`
	QuestionID        uint `json:"question_id"`
	IsAnswered        bool `json:"is_answered"`
}

// ErrorResponse is the uniform error envelope of the API.
type ErrorResponse struct {
	Message string   `json:"message"`
	Details []string `json:"details,omitempty"`
}
