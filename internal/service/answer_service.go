package service

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"path/filepath"

	"github.com/rs/zerolog/log"
	"github.com/shopspring/decimal"

	"github.com/aidyn-m/qazexam/internal/dto"
	"github.com/aidyn-m/qazexam/internal/model"
	"github.com/aidyn-m/qazexam/internal/repository"
)

// AnswerService records candidate answers. Objective answers are replaceable
// while the attempt is in progress; speaking and writing submissions are
// one-shot.
type AnswerService interface {
	RecordMCQAnswer(userID, attemptID, questionID uint, req dto.MCQAnswerRequest) (*dto.AnswerResultDTO, error)
	RecordSpeakingAnswer(ctx context.Context, userID, attemptID, questionID uint, audio io.Reader, size int64, contentType, filename string) (*dto.AnswerResultDTO, error)
	RecordWritingAnswer(userID, attemptID, questionID uint, req dto.WritingAnswerRequest) (*dto.AnswerResultDTO, error)
}

type answerService struct {
	attemptRepo repository.AttemptRepository
	qaRepo      repository.QuestionAttemptRepository
	answerRepo  repository.AnswerRepository
	storage     AudioStorage
}

func NewAnswerService(
	attemptRepo repository.AttemptRepository,
	qaRepo repository.QuestionAttemptRepository,
	answerRepo repository.AnswerRepository,
	storage AudioStorage,
) AnswerService {
	return &answerService{
		attemptRepo: attemptRepo,
		qaRepo:      qaRepo,
		answerRepo:  answerRepo,
		storage:     storage,
	}
}

// activeQuestionAttempt resolves the question attempt and verifies the
// attempt is owned by the user and still in progress. The status check lives
// here, inside the operation, not only at the route.
func (s *answerService) activeQuestionAttempt(userID, attemptID, questionID uint) (*model.QuestionAttempt, error) {
	attempt, err := s.attemptRepo.FindByIDForUser(attemptID, userID)
	if err != nil {
		return nil, fmt.Errorf("%w: attempt %d", ErrNotFound, attemptID)
	}
	if attempt.Status != model.StatusInProgress {
		return nil, fmt.Errorf("%w: attempt %d is %s", ErrAttemptNotActive, attemptID, attempt.Status)
	}
	qa, err := s.qaRepo.FindByAttemptAndQuestion(attemptID, questionID)
	if err != nil {
		return nil, fmt.Errorf("%w: question %d in attempt %d", ErrNotFound, questionID, attemptID)
	}
	return qa, nil
}

// RecordMCQAnswer replaces the selection set for an objective question. An
// empty set clears the answer. Every submitted option id must belong to the
// question; an out-of-set id rejects the whole request instead of being
// silently dropped.
func (s *answerService) RecordMCQAnswer(userID, attemptID, questionID uint, req dto.MCQAnswerRequest) (*dto.AnswerResultDTO, error) {
	qa, err := s.activeQuestionAttempt(userID, attemptID, questionID)
	if err != nil {
		return nil, err
	}
	if !qa.Question.IsMCQ() {
		return nil, fmt.Errorf("%w: question %d is not multiple choice", ErrValidation, questionID)
	}
	if qa.Question.QuestionType == model.QuestionMCQSingle && len(req.OptionIDs) > 1 {
		return nil, fmt.Errorf("%w: single-choice question %d takes at most one option", ErrValidation, questionID)
	}

	valid := make(map[uint]bool, len(qa.Question.Options))
	for _, opt := range qa.Question.Options {
		valid[opt.ID] = true
	}
	seen := make(map[uint]bool, len(req.OptionIDs))
	for _, id := range req.OptionIDs {
		if !valid[id] {
			return nil, fmt.Errorf("%w: option %d does not belong to question %d", ErrValidation, id, questionID)
		}
		if seen[id] {
			return nil, fmt.Errorf("%w: option %d submitted twice", ErrValidation, id)
		}
		seen[id] = true
	}

	if err := s.answerRepo.ReplaceSelections(qa.ID, req.OptionIDs); err != nil {
		return nil, fmt.Errorf("failed to store selections for question attempt %d: %w", qa.ID, err)
	}

	answered := len(req.OptionIDs) > 0
	answerJSON, _ := json.Marshal(map[string][]uint{"option_ids": req.OptionIDs})
	qa.AnswerJSON = answerJSON
	qa.IsAnswered = answered
	qa.IsGraded = false
	if qa.MaxScore.IsZero() && qa.Question.Points > 0 {
		qa.MaxScore = decimal.NewFromInt(int64(qa.Question.Points))
	}
	if err := s.qaRepo.Update(qa); err != nil {
		return nil, fmt.Errorf("failed to mark question attempt %d answered: %w", qa.ID, err)
	}

	return &dto.AnswerResultDTO{QuestionAttemptID: qa.ID, QuestionID: questionID, IsAnswered: answered}, nil
}

// RecordSpeakingAnswer stores the uploaded recording and marks the question
// answered, once. A second upload for the same question is rejected.
func (s *answerService) RecordSpeakingAnswer(ctx context.Context, userID, attemptID, questionID uint, audio io.Reader, size int64, contentType, filename string) (*dto.AnswerResultDTO, error) {
	qa, err := s.activeQuestionAttempt(userID, attemptID, questionID)
	if err != nil {
		return nil, err
	}
	if qa.Question.QuestionType != model.QuestionSpeakingKeywords {
		return nil, fmt.Errorf("%w: question %d is not a speaking question", ErrValidation, questionID)
	}
	if size <= 0 {
		return nil, fmt.Errorf("%w: audio upload is empty", ErrValidation)
	}
	if qa.IsAnswered {
		return nil, fmt.Errorf("%w: question %d", ErrAlreadyAnswered, questionID)
	}

	objectKey := NewAudioObjectKey(filepath.Ext(filename))
	if err := s.storage.Upload(ctx, objectKey, audio, size, contentType); err != nil {
		return nil, fmt.Errorf("failed to store audio for question attempt %d: %w", qa.ID, err)
	}

	answerJSON, _ := json.Marshal(map[string]string{"audio_object_key": objectKey})
	won, err := s.qaRepo.MarkAnsweredOnce(qa.ID, answerJSON)
	if err != nil {
		return nil, fmt.Errorf("failed to mark question attempt %d answered: %w", qa.ID, err)
	}
	if !won {
		return nil, fmt.Errorf("%w: question %d", ErrAlreadyAnswered, questionID)
	}

	ans := model.SpeakingAnswer{
		QuestionAttemptID: qa.ID,
		AudioObjectKey:    objectKey,
		AudioContentType:  contentType,
	}
	if err := s.answerRepo.CreateSpeaking(&ans); err != nil {
		return nil, fmt.Errorf("failed to store speaking answer for question attempt %d: %w", qa.ID, err)
	}

	log.Info().Uint("attemptID", attemptID).Uint("questionID", questionID).Str("objectKey", objectKey).
		Msg("Recorded speaking answer")
	return &dto.AnswerResultDTO{QuestionAttemptID: qa.ID, QuestionID: questionID, IsAnswered: true}, nil
}

// RecordWritingAnswer stores submitted code and output, once per question.
func (s *answerService) RecordWritingAnswer(userID, attemptID, questionID uint, req dto.WritingAnswerRequest) (*dto.AnswerResultDTO, error) {
	qa, err := s.activeQuestionAttempt(userID, attemptID, questionID)
	if err != nil {
		return nil, err
	}
	if qa.Question.QuestionType != model.QuestionWriting {
		return nil, fmt.Errorf("%w: question %d is not a writing question", ErrValidation, questionID)
	}
	if qa.IsAnswered {
		return nil, fmt.Errorf("%w: question %d", ErrAlreadyAnswered, questionID)
	}

	language := req.Language
	if language == "" {
		language = model.LangPython
	}

	answerJSON, _ := json.Marshal(map[string]string{
		"language":    language,
		"output_text": req.OutputText,
	})
	won, err := s.qaRepo.MarkAnsweredOnce(qa.ID, answerJSON)
	if err != nil {
		return nil, fmt.Errorf("failed to mark question attempt %d answered: %w", qa.ID, err)
	}
	if !won {
		return nil, fmt.Errorf("%w: question %d", ErrAlreadyAnswered, questionID)
	}

	sub := model.WritingSubmission{
		QuestionAttemptID: qa.ID,
		Language:          language,
		Code:              req.Code,
		OutputText:        req.OutputText,
	}
	if err := s.answerRepo.CreateWriting(&sub); err != nil {
		return nil, fmt.Errorf("failed to store writing submission for question attempt %d: %w", qa.ID, err)
	}

	return &dto.AnswerResultDTO{QuestionAttemptID: qa.ID, QuestionID: questionID, IsAnswered: true}, nil
}
