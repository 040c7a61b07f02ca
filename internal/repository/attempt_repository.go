package repository

import (
	"errors"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"github.com/aidyn-m/qazexam/internal/model"
)

type AttemptRepository interface {
	Create(attempt *model.ExamAttempt) error
	FindByID(id uint) (*model.ExamAttempt, error)
	FindByIDForUser(id, userID uint) (*model.ExamAttempt, error)
	FindByUserAndExam(userID, examID uint) (*model.ExamAttempt, error)
	FindInProgressExcluding(userID, examID uint) (*model.ExamAttempt, error)
	Update(attempt *model.ExamAttempt) error
	SectionAttemptsByAttempt(attemptID uint) ([]model.SectionAttempt, error)
	CreateSectionAttempts(attempts []model.SectionAttempt) error
	UpdateSectionAttempt(sa *model.SectionAttempt) error
}

type attemptRepository struct {
	db *gorm.DB
}

func NewAttemptRepository(db *gorm.DB) AttemptRepository {
	return &attemptRepository{db: db}
}

func (r *attemptRepository) Create(attempt *model.ExamAttempt) error {
	return r.db.Create(attempt).Error
}

func (r *attemptRepository) FindByID(id uint) (*model.ExamAttempt, error) {
	var attempt model.ExamAttempt
	err := r.db.Preload("Exam").First(&attempt, id).Error
	if err != nil {
		return nil, err
	}
	return &attempt, nil
}

// FindByIDForUser enforces ownership at lookup: an attempt id belonging to a
// different user reads as not found.
func (r *attemptRepository) FindByIDForUser(id, userID uint) (*model.ExamAttempt, error) {
	var attempt model.ExamAttempt
	err := r.db.Preload("Exam").
		Where("id = ? AND user_id = ?", id, userID).
		First(&attempt).Error
	if err != nil {
		return nil, err
	}
	return &attempt, nil
}

func (r *attemptRepository) FindByUserAndExam(userID, examID uint) (*model.ExamAttempt, error) {
	var attempt model.ExamAttempt
	err := r.db.
		Where("user_id = ? AND exam_id = ?", userID, examID).
		Order("id DESC").
		First(&attempt).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &attempt, nil
}

// FindInProgressExcluding returns the user's in-progress attempt on any other
// exam, or nil. Used for the single-in-progress lock on start.
func (r *attemptRepository) FindInProgressExcluding(userID, examID uint) (*model.ExamAttempt, error) {
	var attempt model.ExamAttempt
	err := r.db.Preload("Exam").
		Where("user_id = ? AND status = ? AND exam_id <> ?", userID, model.StatusInProgress, examID).
		First(&attempt).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &attempt, nil
}

func (r *attemptRepository) Update(attempt *model.ExamAttempt) error {
	return r.db.Omit(clause.Associations).Save(attempt).Error
}

func (r *attemptRepository) SectionAttemptsByAttempt(attemptID uint) ([]model.SectionAttempt, error) {
	var sas []model.SectionAttempt
	err := r.db.Preload("Section").
		Where("attempt_id = ?", attemptID).
		Order("id ASC").
		Find(&sas).Error
	return sas, err
}

func (r *attemptRepository) CreateSectionAttempts(attempts []model.SectionAttempt) error {
	if len(attempts) == 0 {
		return nil
	}
	return r.db.Create(&attempts).Error
}

func (r *attemptRepository) UpdateSectionAttempt(sa *model.SectionAttempt) error {
	return r.db.Omit(clause.Associations).Save(sa).Error
}
