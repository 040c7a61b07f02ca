package repository

import (
	"encoding/json"

	"github.com/shopspring/decimal"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"github.com/aidyn-m/qazexam/internal/model"
)

type QuestionAttemptRepository interface {
	FindByAttempt(attemptID uint) ([]model.QuestionAttempt, error)
	FindByAttemptAndQuestion(attemptID, questionID uint) (*model.QuestionAttempt, error)
	ExistsForAttempt(attemptID uint) (bool, error)
	Update(qa *model.QuestionAttempt) error
	MCQByAttempt(attemptID uint) ([]model.QuestionAttempt, error)
	PendingOpenByAttempt(attemptID uint) ([]model.QuestionAttempt, error)
	MarkAnsweredOnce(id uint, answerJSON json.RawMessage) (bool, error)
}

type questionAttemptRepository struct {
	db *gorm.DB
}

func NewQuestionAttemptRepository(db *gorm.DB) QuestionAttemptRepository {
	return &questionAttemptRepository{db: db}
}

func (r *questionAttemptRepository) attemptScope(attemptID uint) *gorm.DB {
	return r.db.
		Joins("JOIN section_attempts ON section_attempts.id = question_attempts.section_attempt_id").
		Where("section_attempts.attempt_id = ?", attemptID)
}

// FindByAttempt returns the attempt's question set in its randomized order,
// ties broken by id. This ordering, not the authored question order, drives
// navigation.
func (r *questionAttemptRepository) FindByAttempt(attemptID uint) ([]model.QuestionAttempt, error) {
	var qas []model.QuestionAttempt
	err := r.attemptScope(attemptID).
		Preload("Question").
		Preload("Question.Options").
		Preload("SectionAttempt").
		Preload("SectionAttempt.Section").
		Order("question_attempts.order_in_attempt ASC, question_attempts.id ASC").
		Find(&qas).Error
	return qas, err
}

func (r *questionAttemptRepository) FindByAttemptAndQuestion(attemptID, questionID uint) (*model.QuestionAttempt, error) {
	var qa model.QuestionAttempt
	err := r.attemptScope(attemptID).
		Preload("Question").
		Preload("Question.Options").
		Where("question_attempts.question_id = ?", questionID).
		First(&qa).Error
	if err != nil {
		return nil, err
	}
	return &qa, nil
}

func (r *questionAttemptRepository) ExistsForAttempt(attemptID uint) (bool, error) {
	var count int64
	err := r.db.Model(&model.QuestionAttempt{}).
		Joins("JOIN section_attempts ON section_attempts.id = question_attempts.section_attempt_id").
		Where("section_attempts.attempt_id = ?", attemptID).
		Count(&count).Error
	return count > 0, err
}

// Update persists the row itself; preloaded associations are never written
// back.
func (r *questionAttemptRepository) Update(qa *model.QuestionAttempt) error {
	return r.db.Omit(clause.Associations).Save(qa).Error
}

func (r *questionAttemptRepository) MCQByAttempt(attemptID uint) ([]model.QuestionAttempt, error) {
	var qas []model.QuestionAttempt
	err := r.attemptScope(attemptID).
		Preload("Question").
		Preload("Question.Options").
		Joins("JOIN questions ON questions.id = question_attempts.question_id").
		Where("questions.question_type IN ?", []string{model.QuestionMCQSingle, model.QuestionMCQMulti}).
		Find(&qas).Error
	return qas, err
}

// PendingOpenByAttempt selects answered-but-ungraded question attempts: the
// deferred grading work list.
func (r *questionAttemptRepository) PendingOpenByAttempt(attemptID uint) ([]model.QuestionAttempt, error) {
	var qas []model.QuestionAttempt
	err := r.attemptScope(attemptID).
		Preload("Question").
		Where("question_attempts.is_answered = ? AND question_attempts.is_graded = ?", true, false).
		Find(&qas).Error
	return qas, err
}

// MarkAnsweredOnce flips is_answered on the row only if it is still false,
// reporting whether this call won. The conditional update is what makes
// speaking/writing submission one-shot even under concurrent uploads.
func (r *questionAttemptRepository) MarkAnsweredOnce(id uint, answerJSON json.RawMessage) (bool, error) {
	res := r.db.Model(&model.QuestionAttempt{}).
		Where("id = ? AND is_answered = ?", id, false).
		Updates(map[string]interface{}{
			"is_answered": true,
			"is_graded":   false,
			"score":       decimal.Zero,
			"answer_json": answerJSON,
		})
	if res.Error != nil {
		return false, res.Error
	}
	return res.RowsAffected == 1, nil
}
