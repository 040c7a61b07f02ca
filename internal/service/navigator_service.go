package service

import (
	"fmt"
	"time"

	"github.com/aidyn-m/qazexam/internal/dto"
	"github.com/aidyn-m/qazexam/internal/model"
	"github.com/aidyn-m/qazexam/internal/repository"
)

// NavigatorService renders the candidate's position in an attempt and the
// read-only review after it finishes. Rendering never mutates attempt state;
// marking a section started is its own explicit operation.
type NavigatorService interface {
	BuildQuestionContext(userID, attemptID uint, index *int) (*dto.QuestionContextDTO, error)
	MarkSectionStarted(userID, attemptID, sectionID uint) error
	BuildReviewContext(userID, attemptID uint) (*dto.ReviewDTO, error)
}

type navigatorService struct {
	attemptRepo repository.AttemptRepository
	qaRepo      repository.QuestionAttemptRepository
	answerRepo  repository.AnswerRepository
	contentRepo repository.ContentRepository
}

func NewNavigatorService(
	attemptRepo repository.AttemptRepository,
	qaRepo repository.QuestionAttemptRepository,
	answerRepo repository.AnswerRepository,
	contentRepo repository.ContentRepository,
) NavigatorService {
	return &navigatorService{
		attemptRepo: attemptRepo,
		qaRepo:      qaRepo,
		answerRepo:  answerRepo,
		contentRepo: contentRepo,
	}
}

// BuildQuestionContext returns the attempt's progress and the question at the
// requested zero-based index, or at the first unanswered question when no
// index is given. An index outside the attempt falls back to the first
// question rather than erroring.
func (s *navigatorService) BuildQuestionContext(userID, attemptID uint, index *int) (*dto.QuestionContextDTO, error) {
	attempt, err := s.attemptRepo.FindByIDForUser(attemptID, userID)
	if err != nil {
		return nil, fmt.Errorf("%w: attempt %d", ErrNotFound, attemptID)
	}

	qas, err := s.qaRepo.FindByAttempt(attemptID)
	if err != nil {
		return nil, fmt.Errorf("failed to load questions of attempt %d: %w", attemptID, err)
	}

	answered := 0
	firstUnanswered := -1
	questionIDs := make([]uint, 0, len(qas))
	for i, qa := range qas {
		questionIDs = append(questionIDs, qa.QuestionID)
		if qa.IsAnswered {
			answered++
		} else if firstUnanswered == -1 {
			firstUnanswered = i
		}
	}

	ctxDTO := dto.QuestionContextDTO{
		AttemptID:      attempt.ID,
		Status:         attempt.Status,
		TotalQuestions: len(qas),
		AnsweredCount:  answered,
		QuestionIDs:    questionIDs,
		Finished:       attempt.Status == model.StatusFinished,
	}
	if attempt.Status != model.StatusInProgress || len(qas) == 0 {
		ctxDTO.CurrentIndex = -1
		return &ctxDTO, nil
	}

	current := firstUnanswered
	if current == -1 {
		current = len(qas) - 1
	}
	if index != nil {
		current = *index
		if current < 0 || current >= len(qas) {
			current = 0
		}
	}
	ctxDTO.CurrentIndex = current
	ctxDTO.Position = current + 1
	ctxDTO.IsLast = current == len(qas)-1
	if current > 0 {
		prev := qas[current-1].QuestionID
		ctxDTO.PreviousQuestionID = &prev
	}
	if current < len(qas)-1 {
		next := qas[current+1].QuestionID
		ctxDTO.NextQuestionID = &next
	}

	view, err := s.questionView(&qas[current])
	if err != nil {
		return nil, err
	}
	ctxDTO.Question = view
	return &ctxDTO, nil
}

// questionView renders one question attempt for the candidate: options in the
// frozen per-attempt order, current selections, and the shared material. No
// answer keys.
func (s *navigatorService) questionView(qa *model.QuestionAttempt) (*dto.QuestionViewDTO, error) {
	view := dto.QuestionViewDTO{
		QuestionAttemptID: qa.ID,
		QuestionID:        qa.QuestionID,
		SectionID:         qa.SectionAttempt.SectionID,
		SectionType:       qa.SectionAttempt.Section.SectionType,
		QuestionType:      qa.Question.QuestionType,
		Prompt:            qa.Question.Prompt,
		Points:            qa.Question.Points,
		OrderInAttempt:    qa.OrderInAttempt,
		IsAnswered:        qa.IsAnswered,
	}

	if qa.Question.IsMCQ() {
		view.Options = orderedOptions(qa.Question.Options, qa.OptionOrderIDs())
		selected, err := s.answerRepo.SelectedOptionIDs(qa.ID)
		if err != nil {
			return nil, fmt.Errorf("failed to load selections of question attempt %d: %w", qa.ID, err)
		}
		view.SelectedOptionIDs = selected
	}

	if qa.SectionMaterialID != nil {
		mat, err := s.contentRepo.FindMaterialByID(*qa.SectionMaterialID)
		if err != nil {
			return nil, fmt.Errorf("failed to load material %d: %w", *qa.SectionMaterialID, err)
		}
		view.Material = &dto.MaterialViewDTO{
			ID:             mat.ID,
			Text:           mat.Text,
			AudioObjectKey: mat.AudioObjectKey,
		}
	}
	return &view, nil
}

// orderedOptions lays options out in the frozen permutation. Options missing
// from the stored order (added after population) are appended at the end in
// authored order.
func orderedOptions(options []model.Option, frozen []uint) []dto.OptionViewDTO {
	byID := make(map[uint]model.Option, len(options))
	for _, opt := range options {
		byID[opt.ID] = opt
	}

	out := make([]dto.OptionViewDTO, 0, len(options))
	placed := make(map[uint]bool, len(frozen))
	for _, id := range frozen {
		if opt, ok := byID[id]; ok {
			out = append(out, dto.OptionViewDTO{ID: opt.ID, Text: opt.Text})
			placed[id] = true
		}
	}
	for _, opt := range options {
		if !placed[opt.ID] {
			out = append(out, dto.OptionViewDTO{ID: opt.ID, Text: opt.Text})
		}
	}
	return out
}

// MarkSectionStarted stamps the section attempt's start time. Idempotent: a
// section that already started keeps its original timestamp.
func (s *navigatorService) MarkSectionStarted(userID, attemptID, sectionID uint) error {
	attempt, err := s.attemptRepo.FindByIDForUser(attemptID, userID)
	if err != nil {
		return fmt.Errorf("%w: attempt %d", ErrNotFound, attemptID)
	}
	if attempt.Status != model.StatusInProgress {
		return fmt.Errorf("%w: attempt %d is %s", ErrAttemptNotActive, attemptID, attempt.Status)
	}

	sas, err := s.attemptRepo.SectionAttemptsByAttempt(attemptID)
	if err != nil {
		return fmt.Errorf("failed to load sections of attempt %d: %w", attemptID, err)
	}
	for i := range sas {
		sa := &sas[i]
		if sa.SectionID != sectionID {
			continue
		}
		if sa.StartedAt != nil {
			return nil
		}
		now := time.Now()
		sa.StartedAt = &now
		sa.Status = model.StatusInProgress
		if err := s.attemptRepo.UpdateSectionAttempt(sa); err != nil {
			return fmt.Errorf("failed to start section attempt %d: %w", sa.ID, err)
		}
		return nil
	}
	return fmt.Errorf("%w: section %d in attempt %d", ErrNotFound, sectionID, attemptID)
}

// BuildReviewContext assembles the post-finish report: every question with
// its result, keys included. Only closed attempts are reviewable.
func (s *navigatorService) BuildReviewContext(userID, attemptID uint) (*dto.ReviewDTO, error) {
	attempt, err := s.attemptRepo.FindByIDForUser(attemptID, userID)
	if err != nil {
		return nil, fmt.Errorf("%w: attempt %d", ErrNotFound, attemptID)
	}
	if attempt.Status != model.StatusFinished && attempt.Status != model.StatusAborted {
		return nil, fmt.Errorf("%w: attempt %d is not finished", ErrValidation, attemptID)
	}

	attemptView, err := buildAttemptDTO(attempt, attempt.Exam.Title, s.attemptRepo, s.qaRepo)
	if err != nil {
		return nil, err
	}
	qas, err := s.qaRepo.FindByAttempt(attemptID)
	if err != nil {
		return nil, fmt.Errorf("failed to load questions of attempt %d: %w", attemptID, err)
	}
	selections, err := s.answerRepo.SelectionsByAttempt(attemptID)
	if err != nil {
		return nil, fmt.Errorf("failed to load selections of attempt %d: %w", attemptID, err)
	}
	speaking, err := s.answerRepo.SpeakingByAttempt(attemptID)
	if err != nil {
		return nil, fmt.Errorf("failed to load speaking answers of attempt %d: %w", attemptID, err)
	}
	writing, err := s.answerRepo.WritingByAttempt(attemptID)
	if err != nil {
		return nil, fmt.Errorf("failed to load writing submissions of attempt %d: %w", attemptID, err)
	}

	questionsBySection := make(map[uint][]dto.QuestionReviewDTO)
	for i := range qas {
		qa := &qas[i]
		review := dto.QuestionReviewDTO{
			QuestionAttemptID: qa.ID,
			QuestionID:        qa.QuestionID,
			QuestionType:      qa.Question.QuestionType,
			Prompt:            qa.Question.Prompt,
			OrderInAttempt:    qa.OrderInAttempt,
			Score:             qa.Score,
			MaxScore:          qa.MaxScore,
			IsAnswered:        qa.IsAnswered,
			IsGraded:          qa.IsGraded,
		}

		if qa.Question.IsMCQ() {
			review.Options = orderedOptions(qa.Question.Options, qa.OptionOrderIDs())
			review.SelectedOptionIDs = selections[qa.ID]
			for _, opt := range qa.Question.Options {
				if opt.IsCorrect {
					review.CorrectOptionIDs = append(review.CorrectOptionIDs, opt.ID)
				}
			}
		}
		if ans, ok := speaking[qa.ID]; ok {
			review.Transcript = ans.Transcript
			review.MatchedKeywords = ans.MatchedKeywordList()
		}
		if sub, ok := writing[qa.ID]; ok {
			review.SubmittedOutput = sub.OutputText
			correct := sub.IsCorrect
			review.OutputCorrect = &correct
			if key, err := s.contentRepo.WritingKeyByQuestion(qa.QuestionID); err == nil {
				review.ExpectedOutput = key.ExpectedOutput
			}
		}

		questionsBySection[qa.SectionAttemptID] = append(questionsBySection[qa.SectionAttemptID], review)
	}

	out := dto.ReviewDTO{
		Attempt:  *attemptView,
		Sections: make([]dto.SectionReviewDTO, 0, len(attemptView.Sections)),
	}
	for _, sec := range attemptView.Sections {
		out.Sections = append(out.Sections, dto.SectionReviewDTO{
			SectionAttemptDTO: sec,
			Questions:         questionsBySection[sec.ID],
		})
	}
	out.Attempt.Sections = nil
	return &out, nil
}
