package service

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/rs/zerolog/log"
	"github.com/shopspring/decimal"
	"gorm.io/gorm"

	"github.com/aidyn-m/qazexam/internal/dto"
	"github.com/aidyn-m/qazexam/internal/model"
	"github.com/aidyn-m/qazexam/internal/repository"
	"github.com/aidyn-m/qazexam/internal/scoring"
)

// GradingService grades answers and closes attempts. Objective questions are
// graded from stored selections, speaking from transcribed audio, writing
// from output comparison. Submit composes all of it.
type GradingService interface {
	GradeMCQAnswers(attemptID uint) error
	GradePendingOpenQuestions(ctx context.Context, attemptID uint) error
	RecalcScores(attemptID uint) error
	SubmitAndFinish(ctx context.Context, userID, attemptID uint) (*dto.AttemptDTO, error)
}

type gradingService struct {
	attemptRepo repository.AttemptRepository
	qaRepo      repository.QuestionAttemptRepository
	answerRepo  repository.AnswerRepository
	contentRepo repository.ContentRepository
	storage     AudioStorage
	transcriber Transcriber
	db          *gorm.DB
}

func NewGradingService(
	attemptRepo repository.AttemptRepository,
	qaRepo repository.QuestionAttemptRepository,
	answerRepo repository.AnswerRepository,
	contentRepo repository.ContentRepository,
	storage AudioStorage,
	transcriber Transcriber,
	db *gorm.DB,
) GradingService {
	return &gradingService{
		attemptRepo: attemptRepo,
		qaRepo:      qaRepo,
		answerRepo:  answerRepo,
		contentRepo: contentRepo,
		storage:     storage,
		transcriber: transcriber,
		db:          db,
	}
}

// withTx rebinds the repositories onto one transaction so a composed write
// sequence commits or rolls back as a whole.
func (s *gradingService) withTx(tx *gorm.DB) *gradingService {
	scoped := *s
	scoped.attemptRepo = repository.NewAttemptRepository(tx)
	scoped.qaRepo = repository.NewQuestionAttemptRepository(tx)
	scoped.answerRepo = repository.NewAnswerRepository(tx)
	scoped.contentRepo = repository.NewContentRepository(tx)
	return &scoped
}

// GradeMCQAnswers scores every objective question of the attempt from its
// stored selection set. Unanswered questions score zero.
func (s *gradingService) GradeMCQAnswers(attemptID uint) error {
	qas, err := s.qaRepo.MCQByAttempt(attemptID)
	if err != nil {
		return fmt.Errorf("failed to load objective questions of attempt %d: %w", attemptID, err)
	}
	selections, err := s.answerRepo.SelectionsByAttempt(attemptID)
	if err != nil {
		return fmt.Errorf("failed to load selections of attempt %d: %w", attemptID, err)
	}

	for i := range qas {
		qa := &qas[i]
		var correct []uint
		for _, opt := range qa.Question.Options {
			if opt.IsCorrect {
				correct = append(correct, opt.ID)
			}
		}
		score := scoring.EvaluateMCQ(qa.Question.QuestionType, selections[qa.ID], correct, qa.Question.Points)
		if qa.IsGraded && qa.Score.Equal(score) {
			continue
		}
		qa.Score = score
		qa.IsGraded = true
		if err := s.qaRepo.Update(qa); err != nil {
			return fmt.Errorf("failed to grade question attempt %d: %w", qa.ID, err)
		}
	}
	return nil
}

// GradePendingOpenQuestions grades answered speaking and writing questions
// that have not been graded yet. A question whose grading dependency fails
// (for example transcription) is skipped and stays ungraded rather than
// failing the whole pass.
func (s *gradingService) GradePendingOpenQuestions(ctx context.Context, attemptID uint) error {
	pending, err := s.qaRepo.PendingOpenByAttempt(attemptID)
	if err != nil {
		return fmt.Errorf("failed to load pending questions of attempt %d: %w", attemptID, err)
	}

	for i := range pending {
		qa := &pending[i]
		switch qa.Question.QuestionType {
		case model.QuestionSpeakingKeywords:
			if err := s.gradeSpeaking(ctx, qa); err != nil {
				log.Warn().Err(err).Uint("questionAttemptID", qa.ID).
					Msg("Skipping ungradable speaking answer")
			}
		case model.QuestionWriting:
			if err := s.gradeWriting(qa); err != nil {
				log.Warn().Err(err).Uint("questionAttemptID", qa.ID).
					Msg("Skipping ungradable writing submission")
			}
		}
	}
	return nil
}

func (s *gradingService) gradeSpeaking(ctx context.Context, qa *model.QuestionAttempt) error {
	ans, err := s.answerRepo.FindSpeakingByQuestionAttempt(qa.ID)
	if err != nil {
		return fmt.Errorf("failed to load speaking answer: %w", err)
	}
	if ans == nil || ans.AudioObjectKey == "" {
		return fmt.Errorf("speaking answer has no stored audio")
	}
	rubric, err := s.contentRepo.RubricByQuestion(qa.QuestionID)
	if err != nil {
		return fmt.Errorf("question %d has no speaking rubric: %w", qa.QuestionID, err)
	}

	transcript := ans.Transcript
	if transcript == "" {
		audio, mimeType, err := s.storage.Fetch(ctx, ans.AudioObjectKey)
		if err != nil {
			return fmt.Errorf("failed to fetch audio %s: %w", ans.AudioObjectKey, err)
		}
		if mimeType == "" {
			mimeType = ans.AudioContentType
		}
		transcript, err = s.transcriber.Transcribe(ctx, audio, mimeType)
		if err != nil {
			return err
		}
	}

	matched := scoring.MatchKeywords(transcript, rubric.KeywordList())
	points := scoring.ScoreSpeaking(len(matched), rubric.PointPerKeyword, rubric.MaxPoints)

	matchedJSON, _ := json.Marshal(matched)
	ans.Transcript = transcript
	ans.MatchedCount = uint(len(matched))
	ans.MatchedKeywords = matchedJSON
	if err := s.answerRepo.UpdateSpeaking(ans); err != nil {
		return fmt.Errorf("failed to store grading result: %w", err)
	}

	qa.Score = decimal.NewFromInt(int64(points))
	qa.IsGraded = true
	if err := s.qaRepo.Update(qa); err != nil {
		return fmt.Errorf("failed to grade question attempt %d: %w", qa.ID, err)
	}
	log.Info().Uint("questionAttemptID", qa.ID).Int("matched", len(matched)).Uint("points", points).
		Msg("Graded speaking answer")
	return nil
}

func (s *gradingService) gradeWriting(qa *model.QuestionAttempt) error {
	sub, err := s.answerRepo.FindWritingByQuestionAttempt(qa.ID)
	if err != nil {
		return fmt.Errorf("failed to load writing submission: %w", err)
	}
	if sub == nil {
		return fmt.Errorf("writing submission is missing")
	}
	key, err := s.contentRepo.WritingKeyByQuestion(qa.QuestionID)
	if err != nil {
		return fmt.Errorf("question %d has no answer key: %w", qa.QuestionID, err)
	}

	correct := scoring.MatchOutput(key.ExpectedOutput, sub.OutputText)
	now := time.Now()
	sub.IsCorrect = correct
	sub.CheckedAt = &now
	if err := s.answerRepo.UpdateWriting(sub); err != nil {
		return fmt.Errorf("failed to store check result: %w", err)
	}

	if correct {
		qa.Score = qa.MaxScore
	} else {
		qa.Score = decimal.Zero
	}
	qa.IsGraded = true
	if err := s.qaRepo.Update(qa); err != nil {
		return fmt.Errorf("failed to grade question attempt %d: %w", qa.ID, err)
	}
	return nil
}

// RecalcScores re-derives section and attempt totals from question scores.
// Rows are written only when the derived value actually changed.
func (s *gradingService) RecalcScores(attemptID uint) error {
	attempt, err := s.attemptRepo.FindByID(attemptID)
	if err != nil {
		return fmt.Errorf("%w: attempt %d", ErrNotFound, attemptID)
	}
	return s.applyTotals(attempt)
}

// SubmitAndFinish grades everything gradable, recalculates totals and closes
// the attempt in one call. Submitting a finished attempt returns its current
// state without changing anything.
func (s *gradingService) SubmitAndFinish(ctx context.Context, userID, attemptID uint) (*dto.AttemptDTO, error) {
	attempt, err := s.attemptRepo.FindByIDForUser(attemptID, userID)
	if err != nil {
		return nil, fmt.Errorf("%w: attempt %d", ErrNotFound, attemptID)
	}
	if attempt.Status == model.StatusFinished {
		return buildAttemptDTO(attempt, attempt.Exam.Title, s.attemptRepo, s.qaRepo)
	}
	if attempt.Status != model.StatusInProgress {
		return nil, fmt.Errorf("%w: attempt %d is %s", ErrAttemptNotActive, attemptID, attempt.Status)
	}

	err = s.db.Transaction(func(tx *gorm.DB) error {
		g := s.withTx(tx)
		if err := g.GradeMCQAnswers(attemptID); err != nil {
			return err
		}
		if err := g.GradePendingOpenQuestions(ctx, attemptID); err != nil {
			return err
		}
		if err := g.finalizeUnanswered(attemptID); err != nil {
			return err
		}
		if err := g.applyTotals(attempt); err != nil {
			return err
		}
		return g.closeAttempt(attempt)
	})
	if err != nil {
		return nil, err
	}

	log.Info().Uint("attemptID", attemptID).Str("totalScore", attempt.TotalScore.String()).
		Msg("Finished attempt")
	return buildAttemptDTO(attempt, attempt.Exam.Title, s.attemptRepo, s.qaRepo)
}

// finalizeUnanswered zeroes questions that were never answered. Answered
// questions whose grading dependency failed stay pending for a later pass
// rather than being written off.
func (s *gradingService) finalizeUnanswered(attemptID uint) error {
	qas, err := s.qaRepo.FindByAttempt(attemptID)
	if err != nil {
		return fmt.Errorf("failed to load questions of attempt %d: %w", attemptID, err)
	}
	for i := range qas {
		qa := &qas[i]
		if qa.IsGraded || qa.IsAnswered {
			continue
		}
		qa.Score = decimal.Zero
		qa.IsGraded = true
		if err := s.qaRepo.Update(qa); err != nil {
			return fmt.Errorf("failed to finalize question attempt %d: %w", qa.ID, err)
		}
	}
	return nil
}

// applyTotals folds question scores into section and attempt totals, writing
// only rows whose value changed.
func (s *gradingService) applyTotals(attempt *model.ExamAttempt) error {
	sas, err := s.attemptRepo.SectionAttemptsByAttempt(attempt.ID)
	if err != nil {
		return fmt.Errorf("failed to load sections of attempt %d: %w", attempt.ID, err)
	}
	qas, err := s.qaRepo.FindByAttempt(attempt.ID)
	if err != nil {
		return fmt.Errorf("failed to load questions of attempt %d: %w", attempt.ID, err)
	}

	sectionTotals := make(map[uint]decimal.Decimal, len(sas))
	sectionMaxes := make(map[uint]decimal.Decimal, len(sas))
	for _, qa := range qas {
		sectionTotals[qa.SectionAttemptID] = sectionTotals[qa.SectionAttemptID].Add(qa.Score)
		sectionMaxes[qa.SectionAttemptID] = sectionMaxes[qa.SectionAttemptID].Add(qa.MaxScore)
	}

	total := decimal.Zero
	for i := range sas {
		sa := &sas[i]
		derived := sectionTotals[sa.ID]
		derivedMax := sectionMaxes[sa.ID]
		total = total.Add(derived)
		if !sa.Score.Equal(derived) || !sa.MaxScore.Equal(derivedMax) {
			sa.Score = derived
			sa.MaxScore = derivedMax
			if err := s.attemptRepo.UpdateSectionAttempt(sa); err != nil {
				return fmt.Errorf("failed to update section attempt %d: %w", sa.ID, err)
			}
		}
	}

	if !attempt.TotalScore.Equal(total) {
		attempt.TotalScore = total
		if err := s.attemptRepo.Update(attempt); err != nil {
			return fmt.Errorf("failed to update attempt %d total: %w", attempt.ID, err)
		}
	}
	return nil
}

// closeAttempt marks the attempt and all its sections finished.
func (s *gradingService) closeAttempt(attempt *model.ExamAttempt) error {
	now := time.Now()
	sas, err := s.attemptRepo.SectionAttemptsByAttempt(attempt.ID)
	if err != nil {
		return fmt.Errorf("failed to load sections of attempt %d: %w", attempt.ID, err)
	}
	for i := range sas {
		sa := &sas[i]
		if sa.Status == model.StatusFinished {
			continue
		}
		sa.Status = model.StatusFinished
		sa.FinishedAt = &now
		if sa.StartedAt == nil {
			// A section never opened gets the attempt's own start time.
			startedAt := attempt.StartedAt
			sa.StartedAt = &startedAt
		}
		sa.TimeSpentSeconds = uint(now.Sub(*sa.StartedAt).Seconds())
		if err := s.attemptRepo.UpdateSectionAttempt(sa); err != nil {
			return fmt.Errorf("failed to close section attempt %d: %w", sa.ID, err)
		}
	}

	attempt.Status = model.StatusFinished
	attempt.FinishedAt = &now
	if err := s.attemptRepo.Update(attempt); err != nil {
		return fmt.Errorf("failed to close attempt %d: %w", attempt.ID, err)
	}
	return nil
}
