package dto

// ExamSummaryDTO is one row of the exam catalogue.
type ExamSummaryDTO struct {
	ID            uint   `json:"id"`
	Title         string `json:"title"`
	Description   string `json:"description,omitempty"`
	SectionCount  int    `json:"section_count"`
	QuestionCount int    `json:"question_count"`
	HasAttempt    bool   `json:"has_attempt"`
}

// ExamDetailDTO describes one exam's structure without exposing questions or
// answer keys.
type ExamDetailDTO struct {
	ID             uint         `json:"id"`
	Title          string       `json:"title"`
	Description    string       `json:"description,omitempty"`
	TotalTimeLimit uint         `json:"total_time_limit"`
	TotalMaxScore  uint         `json:"total_max_score"`
	Sections       []SectionDTO `json:"sections"`
}

type SectionDTO struct {
	ID            uint   `json:"id"`
	SectionType   string `json:"section_type"`
	MaxScore      uint   `json:"max_score"`
	TimeLimit     uint   `json:"time_limit"`
	OrderInExam   uint   `json:"order_in_exam"`
	QuestionCount int    `json:"question_count"`
	MaterialCount int    `json:"material_count"`
}
