package service

import (
	"fmt"
	"time"

	"github.com/jinzhu/copier"
	"github.com/rs/zerolog/log"

	"github.com/aidyn-m/qazexam/internal/dto"
	"github.com/aidyn-m/qazexam/internal/model"
	"github.com/aidyn-m/qazexam/internal/repository"
)

// ExamService serves the exam catalogue and owns the attempt entry point.
type ExamService interface {
	GetCatalogue(userID uint) ([]dto.ExamSummaryDTO, error)
	GetExamDetail(examID uint) (*dto.ExamDetailDTO, error)
	StartAttempt(userID, examID uint) (*dto.AttemptDTO, error)
}

type examService struct {
	examRepo    repository.ExamRepository
	attemptRepo repository.AttemptRepository
	qaRepo      repository.QuestionAttemptRepository
	initService AttemptInitService
}

func NewExamService(
	examRepo repository.ExamRepository,
	attemptRepo repository.AttemptRepository,
	qaRepo repository.QuestionAttemptRepository,
	initService AttemptInitService,
) ExamService {
	return &examService{
		examRepo:    examRepo,
		attemptRepo: attemptRepo,
		qaRepo:      qaRepo,
		initService: initService,
	}
}

func (s *examService) GetCatalogue(userID uint) ([]dto.ExamSummaryDTO, error) {
	listings, err := s.examRepo.FindPublishedWithCounts(userID)
	if err != nil {
		log.Error().Err(err).Msg("GetCatalogue: failed to list exams")
		return nil, fmt.Errorf("failed to list exams: %w", err)
	}

	summaries := make([]dto.ExamSummaryDTO, 0, len(listings))
	for _, l := range listings {
		summaries = append(summaries, dto.ExamSummaryDTO{
			ID:            l.ID,
			Title:         l.Title,
			Description:   l.Description,
			SectionCount:  l.SectionCount,
			QuestionCount: l.QuestionCount,
			HasAttempt:    l.HasAttempt,
		})
	}
	return summaries, nil
}

func (s *examService) GetExamDetail(examID uint) (*dto.ExamDetailDTO, error) {
	exam, err := s.examRepo.FindByIDWithContent(examID)
	if err != nil {
		return nil, fmt.Errorf("%w: exam %d", ErrNotFound, examID)
	}
	if !exam.IsPublished {
		return nil, fmt.Errorf("%w: exam %d", ErrNotFound, examID)
	}

	detail := dto.ExamDetailDTO{}
	if err := copier.Copy(&detail, exam); err != nil {
		return nil, fmt.Errorf("failed to map exam %d: %w", examID, err)
	}
	detail.Sections = make([]dto.SectionDTO, 0, len(exam.Sections))
	for _, sec := range exam.Sections {
		detail.TotalTimeLimit += sec.TimeLimit
		detail.TotalMaxScore += sec.MaxScore
		detail.Sections = append(detail.Sections, dto.SectionDTO{
			ID:            sec.ID,
			SectionType:   sec.SectionType,
			MaxScore:      sec.MaxScore,
			TimeLimit:     sec.TimeLimit,
			OrderInExam:   sec.OrderInExam,
			QuestionCount: len(sec.Questions),
			MaterialCount: len(sec.Materials),
		})
	}
	return &detail, nil
}

// StartAttempt gets or creates the user's attempt on the exam and ensures it
// is populated and in progress. A user may hold at most one in-progress
// attempt across all exams; a finished attempt is returned as is.
func (s *examService) StartAttempt(userID, examID uint) (*dto.AttemptDTO, error) {
	exam, err := s.examRepo.FindByID(examID)
	if err != nil {
		return nil, fmt.Errorf("%w: exam %d", ErrNotFound, examID)
	}
	if !exam.IsPublished {
		return nil, fmt.Errorf("%w: exam %d", ErrNotFound, examID)
	}

	hasQuestions, err := s.examRepo.HasQuestions(examID)
	if err != nil {
		return nil, fmt.Errorf("failed to check exam %d content: %w", examID, err)
	}
	if !hasQuestions {
		return nil, fmt.Errorf("%w: exam %d has no questions", ErrValidation, examID)
	}

	attempt, err := s.attemptRepo.FindByUserAndExam(userID, examID)
	if err != nil {
		return nil, fmt.Errorf("failed to look up attempt: %w", err)
	}

	if attempt == nil || attempt.Status == model.StatusNotStarted {
		other, err := s.attemptRepo.FindInProgressExcluding(userID, examID)
		if err != nil {
			return nil, fmt.Errorf("failed to check in-progress attempts: %w", err)
		}
		if other != nil {
			return nil, fmt.Errorf("%w: attempt %d on exam %d", ErrAttemptConflict, other.ID, other.ExamID)
		}
	}

	if attempt == nil {
		attempt = &model.ExamAttempt{
			UserID:    userID,
			ExamID:    examID,
			Status:    model.StatusInProgress,
			StartedAt: time.Now(),
		}
		if err := s.attemptRepo.Create(attempt); err != nil {
			return nil, fmt.Errorf("failed to create attempt: %w", err)
		}
		log.Info().Uint("userID", userID).Uint("examID", examID).Uint("attemptID", attempt.ID).
			Msg("Created exam attempt")
	} else if attempt.Status == model.StatusNotStarted {
		attempt.Status = model.StatusInProgress
		attempt.StartedAt = time.Now()
		if err := s.attemptRepo.Update(attempt); err != nil {
			return nil, fmt.Errorf("failed to activate attempt %d: %w", attempt.ID, err)
		}
	}

	if attempt.Status == model.StatusInProgress {
		if err := s.initService.EnsureInitialized(attempt); err != nil {
			return nil, err
		}
	}

	return buildAttemptDTO(attempt, exam.Title, s.attemptRepo, s.qaRepo)
}
