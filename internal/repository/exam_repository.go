package repository

import (
	"gorm.io/gorm"

	"github.com/aidyn-m/qazexam/internal/model"
)

type ExamRepository interface {
	FindPublishedWithCounts(userID uint) ([]ExamListing, error)
	FindByIDWithContent(id uint) (*model.Exam, error)
	FindByID(id uint) (*model.Exam, error)
	HasQuestions(examID uint) (bool, error)
}

// ExamListing is an exam row annotated with catalogue counters.
type ExamListing struct {
	model.Exam
	SectionCount  int
	QuestionCount int
	HasAttempt    bool
}

type examRepository struct {
	db *gorm.DB
}

func NewExamRepository(db *gorm.DB) ExamRepository {
	return &examRepository{db: db}
}

func (r *examRepository) FindPublishedWithCounts(userID uint) ([]ExamListing, error) {
	var results []ExamListing
	err := r.db.Model(&model.Exam{}).
		Select(`exams.*,
			(SELECT COUNT(*) FROM sections WHERE sections.exam_id = exams.id AND sections.deleted_at IS NULL) AS section_count,
			(SELECT COUNT(*) FROM questions JOIN sections s ON s.id = questions.section_id WHERE s.exam_id = exams.id AND questions.deleted_at IS NULL) AS question_count,
			EXISTS(SELECT 1 FROM exam_attempts WHERE exam_attempts.exam_id = exams.id AND exam_attempts.user_id = ? AND exam_attempts.deleted_at IS NULL) AS has_attempt`, userID).
		Where("exams.is_published = ?", true).
		Where("exams.deleted_at IS NULL").
		Order("exams.id DESC").
		Scan(&results).Error
	return results, err
}

func (r *examRepository) FindByIDWithContent(id uint) (*model.Exam, error) {
	var exam model.Exam
	err := r.db.
		Preload("Sections", func(db *gorm.DB) *gorm.DB {
			return db.Order("sections.order_in_exam ASC")
		}).
		Preload("Sections.Questions", func(db *gorm.DB) *gorm.DB {
			return db.Order("questions.order_in_section ASC, questions.id ASC")
		}).
		Preload("Sections.Materials", func(db *gorm.DB) *gorm.DB {
			return db.Order("section_materials.order_in_section ASC, section_materials.id ASC")
		}).
		First(&exam, id).Error
	if err != nil {
		return nil, err
	}
	return &exam, nil
}

func (r *examRepository) FindByID(id uint) (*model.Exam, error) {
	var exam model.Exam
	err := r.db.First(&exam, id).Error
	if err != nil {
		return nil, err
	}
	return &exam, nil
}

func (r *examRepository) HasQuestions(examID uint) (bool, error) {
	var count int64
	err := r.db.Model(&model.Question{}).
		Joins("JOIN sections ON sections.id = questions.section_id").
		Where("sections.exam_id = ?", examID).
		Count(&count).Error
	return count > 0, err
}
