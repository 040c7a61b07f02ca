package repository

import (
	"errors"

	"gorm.io/gorm"

	"github.com/aidyn-m/qazexam/internal/model"
)

type AnswerRepository interface {
	ReplaceSelections(questionAttemptID uint, optionIDs []uint) error
	SelectedOptionIDs(questionAttemptID uint) ([]uint, error)
	SelectionsByAttempt(attemptID uint) (map[uint][]uint, error)
	CreateSpeaking(ans *model.SpeakingAnswer) error
	UpdateSpeaking(ans *model.SpeakingAnswer) error
	FindSpeakingByQuestionAttempt(questionAttemptID uint) (*model.SpeakingAnswer, error)
	SpeakingByAttempt(attemptID uint) (map[uint]model.SpeakingAnswer, error)
	CreateWriting(sub *model.WritingSubmission) error
	UpdateWriting(sub *model.WritingSubmission) error
	FindWritingByQuestionAttempt(questionAttemptID uint) (*model.WritingSubmission, error)
	WritingByAttempt(attemptID uint) (map[uint]model.WritingSubmission, error)
}

type answerRepository struct {
	db *gorm.DB
}

func NewAnswerRepository(db *gorm.DB) AnswerRepository {
	return &answerRepository{db: db}
}

// ReplaceSelections swaps the full selection set for a question attempt in
// one transaction, so a re-answer can never leave stale options behind.
func (r *answerRepository) ReplaceSelections(questionAttemptID uint, optionIDs []uint) error {
	return r.db.Transaction(func(tx *gorm.DB) error {
		if err := tx.Where("question_attempt_id = ?", questionAttemptID).
			Delete(&model.MCQSelection{}).Error; err != nil {
			return err
		}
		if len(optionIDs) == 0 {
			return nil
		}
		selections := make([]model.MCQSelection, 0, len(optionIDs))
		for _, id := range optionIDs {
			selections = append(selections, model.MCQSelection{
				QuestionAttemptID: questionAttemptID,
				OptionID:          id,
			})
		}
		return tx.Create(&selections).Error
	})
}

func (r *answerRepository) SelectedOptionIDs(questionAttemptID uint) ([]uint, error) {
	var ids []uint
	err := r.db.Model(&model.MCQSelection{}).
		Where("question_attempt_id = ?", questionAttemptID).
		Order("option_id ASC").
		Pluck("option_id", &ids).Error
	return ids, err
}

func (r *answerRepository) SelectionsByAttempt(attemptID uint) (map[uint][]uint, error) {
	var selections []model.MCQSelection
	err := r.db.Model(&model.MCQSelection{}).
		Joins("JOIN question_attempts ON question_attempts.id = mcq_selections.question_attempt_id").
		Joins("JOIN section_attempts ON section_attempts.id = question_attempts.section_attempt_id").
		Where("section_attempts.attempt_id = ?", attemptID).
		Order("mcq_selections.option_id ASC").
		Find(&selections).Error
	if err != nil {
		return nil, err
	}
	byAttempt := make(map[uint][]uint, len(selections))
	for _, s := range selections {
		byAttempt[s.QuestionAttemptID] = append(byAttempt[s.QuestionAttemptID], s.OptionID)
	}
	return byAttempt, nil
}

func (r *answerRepository) CreateSpeaking(ans *model.SpeakingAnswer) error {
	return r.db.Create(ans).Error
}

func (r *answerRepository) UpdateSpeaking(ans *model.SpeakingAnswer) error {
	return r.db.Save(ans).Error
}

func (r *answerRepository) FindSpeakingByQuestionAttempt(questionAttemptID uint) (*model.SpeakingAnswer, error) {
	var ans model.SpeakingAnswer
	err := r.db.Where("question_attempt_id = ?", questionAttemptID).First(&ans).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		return nil, err
	}
	return &ans, nil
}

func (r *answerRepository) SpeakingByAttempt(attemptID uint) (map[uint]model.SpeakingAnswer, error) {
	var answers []model.SpeakingAnswer
	err := r.db.Model(&model.SpeakingAnswer{}).
		Joins("JOIN question_attempts ON question_attempts.id = speaking_answers.question_attempt_id").
		Joins("JOIN section_attempts ON section_attempts.id = question_attempts.section_attempt_id").
		Where("section_attempts.attempt_id = ?", attemptID).
		Find(&answers).Error
	if err != nil {
		return nil, err
	}
	byAttempt := make(map[uint]model.SpeakingAnswer, len(answers))
	for _, a := range answers {
		byAttempt[a.QuestionAttemptID] = a
	}
	return byAttempt, nil
}

func (r *answerRepository) CreateWriting(sub *model.WritingSubmission) error {
	return r.db.Create(sub).Error
}

func (r *answerRepository) UpdateWriting(sub *model.WritingSubmission) error {
	return r.db.Save(sub).Error
}

func (r *answerRepository) FindWritingByQuestionAttempt(questionAttemptID uint) (*model.WritingSubmission, error) {
	var sub model.WritingSubmission
	err := r.db.Where("question_attempt_id = ?", questionAttemptID).First(&sub).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		return nil, err
	}
	return &sub, nil
}

func (r *answerRepository) WritingByAttempt(attemptID uint) (map[uint]model.WritingSubmission, error) {
	var subs []model.WritingSubmission
	err := r.db.Model(&model.WritingSubmission{}).
		Joins("JOIN question_attempts ON question_attempts.id = writing_submissions.question_attempt_id").
		Joins("JOIN section_attempts ON section_attempts.id = question_attempts.section_attempt_id").
		Where("section_attempts.attempt_id = ?", attemptID).
		Find(&subs).Error
	if err != nil {
		return nil, err
	}
	byAttempt := make(map[uint]model.WritingSubmission, len(subs))
	for _, s := range subs {
		byAttempt[s.QuestionAttemptID] = s
	}
	return byAttempt, nil
}
