package repository

import (
	"gorm.io/gorm"

	"github.com/aidyn-m/qazexam/internal/model"
)

// ContentRepository is the read-only view of the authored content model:
// sections, materials, questions, options and answer keys. The attempt flow
// never mutates any of it.
type ContentRepository interface {
	ActiveMaterials(sectionID uint) ([]model.SectionMaterial, error)
	FindMaterialByID(id uint) (*model.SectionMaterial, error)
	QuestionsByMaterial(materialID uint, limit int) ([]model.Question, error)
	QuestionsBySection(sectionID uint) ([]model.Question, error)
	WritingQuestionsByPoints(sectionID uint, points uint) ([]model.Question, error)
	RubricByQuestion(questionID uint) (*model.SpeakingRubric, error)
	WritingKeyByQuestion(questionID uint) (*model.Writing, error)
}

type contentRepository struct {
	db *gorm.DB
}

func NewContentRepository(db *gorm.DB) ContentRepository {
	return &contentRepository{db: db}
}

func (r *contentRepository) ActiveMaterials(sectionID uint) ([]model.SectionMaterial, error) {
	var mats []model.SectionMaterial
	err := r.db.
		Where("section_id = ? AND is_active = ?", sectionID, true).
		Order("order_in_section ASC, id ASC").
		Find(&mats).Error
	return mats, err
}

func (r *contentRepository) FindMaterialByID(id uint) (*model.SectionMaterial, error) {
	var mat model.SectionMaterial
	err := r.db.First(&mat, id).Error
	if err != nil {
		return nil, err
	}
	return &mat, nil
}

func (r *contentRepository) QuestionsByMaterial(materialID uint, limit int) ([]model.Question, error) {
	var questions []model.Question
	q := r.db.
		Preload("Options").
		Where("section_material_id = ?", materialID).
		Order("order_in_section ASC, id ASC")
	if limit > 0 {
		q = q.Limit(limit)
	}
	err := q.Find(&questions).Error
	return questions, err
}

func (r *contentRepository) QuestionsBySection(sectionID uint) ([]model.Question, error) {
	var questions []model.Question
	err := r.db.
		Preload("Options").
		Where("section_id = ?", sectionID).
		Order("order_in_section ASC, id ASC").
		Find(&questions).Error
	return questions, err
}

func (r *contentRepository) WritingQuestionsByPoints(sectionID uint, points uint) ([]model.Question, error) {
	var questions []model.Question
	err := r.db.
		Where("section_id = ? AND question_type = ? AND points = ?", sectionID, model.QuestionWriting, points).
		Order("order_in_section ASC, id ASC").
		Find(&questions).Error
	return questions, err
}

func (r *contentRepository) RubricByQuestion(questionID uint) (*model.SpeakingRubric, error) {
	var rubric model.SpeakingRubric
	err := r.db.Where("question_id = ?", questionID).First(&rubric).Error
	if err != nil {
		return nil, err
	}
	return &rubric, nil
}

func (r *contentRepository) WritingKeyByQuestion(questionID uint) (*model.Writing, error) {
	var writing model.Writing
	err := r.db.Where("question_id = ?", questionID).First(&writing).Error
	if err != nil {
		return nil, err
	}
	return &writing, nil
}
