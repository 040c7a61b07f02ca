package service

import (
	"fmt"

	"github.com/aidyn-m/qazexam/internal/dto"
	"github.com/aidyn-m/qazexam/internal/model"
	"github.com/aidyn-m/qazexam/internal/repository"
)

// buildAttemptDTO assembles the serialized attempt state shared by the start,
// navigation and review flows.
func buildAttemptDTO(
	attempt *model.ExamAttempt,
	examTitle string,
	attemptRepo repository.AttemptRepository,
	qaRepo repository.QuestionAttemptRepository,
) (*dto.AttemptDTO, error) {
	sas, err := attemptRepo.SectionAttemptsByAttempt(attempt.ID)
	if err != nil {
		return nil, fmt.Errorf("failed to load sections of attempt %d: %w", attempt.ID, err)
	}
	qas, err := qaRepo.FindByAttempt(attempt.ID)
	if err != nil {
		return nil, fmt.Errorf("failed to load questions of attempt %d: %w", attempt.ID, err)
	}

	questionCount := make(map[uint]int, len(sas))
	answeredCount := make(map[uint]int, len(sas))
	for _, qa := range qas {
		questionCount[qa.SectionAttemptID]++
		if qa.IsAnswered {
			answeredCount[qa.SectionAttemptID]++
		}
	}

	view := dto.AttemptDTO{
		ID:            attempt.ID,
		ExamID:        attempt.ExamID,
		ExamTitle:     examTitle,
		Status:        attempt.Status,
		StartedAt:     attempt.StartedAt,
		FinishedAt:    attempt.FinishedAt,
		TotalScore:    attempt.TotalScore,
		MaxTotalScore: attempt.MaxTotalScore,
		Sections:      make([]dto.SectionAttemptDTO, 0, len(sas)),
	}
	for _, sa := range sas {
		view.Sections = append(view.Sections, sectionAttemptDTO(sa, questionCount[sa.ID], answeredCount[sa.ID]))
	}
	return &view, nil
}

func sectionAttemptDTO(sa model.SectionAttempt, questions, answered int) dto.SectionAttemptDTO {
	return dto.SectionAttemptDTO{
		ID:               sa.ID,
		SectionID:        sa.SectionID,
		SectionType:      sa.Section.SectionType,
		Status:           sa.Status,
		StartedAt:        sa.StartedAt,
		FinishedAt:       sa.FinishedAt,
		Score:            sa.Score,
		MaxScore:         sa.MaxScore,
		TimeSpentSeconds: sa.TimeSpentSeconds,
		QuestionCount:    questions,
		AnsweredCount:    answered,
	}
}
