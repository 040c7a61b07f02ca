package model

import (
	"time"

	"gorm.io/gorm"
)

// Section types of a four-skill exam.
const (
	SectionListening = "listening"
	SectionReading   = "reading"
	SectionSpeaking  = "speaking"
	SectionWriting   = "writing"
)

type Exam struct {
	ID          uint           `gorm:"primarykey" json:"id"`
	Title       string         `json:"title" gorm:"not null"`
	Description string         `json:"description,omitempty"`
	IsPublished bool           `json:"is_published" gorm:"default:true"`
	Sections    []Section      `json:"sections,omitempty" gorm:"foreignKey:ExamID;constraint:OnUpdate:CASCADE,OnDelete:CASCADE;"`
	CreatedAt   time.Time      `json:"created_at"`
	UpdatedAt   time.Time      `json:"updated_at"`
	DeletedAt   gorm.DeletedAt `gorm:"index" json:"-"`
}

type Section struct {
	ID          uint              `gorm:"primarykey" json:"id"`
	ExamID      uint              `json:"exam_id" gorm:"not null;index"`
	SectionType string            `json:"section_type" gorm:"not null"` // "listening", "reading", "speaking", "writing"
	MaxScore    uint              `json:"max_score" gorm:"default:0"`
	TimeLimit   uint              `json:"time_limit" gorm:"default:0"` // minutes
	OrderInExam uint              `json:"order_in_exam" gorm:"not null;default:1"`
	Materials   []SectionMaterial `json:"materials,omitempty" gorm:"foreignKey:SectionID;constraint:OnUpdate:CASCADE,OnDelete:CASCADE;"`
	Questions   []Question        `json:"questions,omitempty" gorm:"foreignKey:SectionID;constraint:OnUpdate:CASCADE,OnDelete:CASCADE;"`
	CreatedAt   time.Time         `json:"created_at"`
	UpdatedAt   time.Time         `json:"updated_at"`
	DeletedAt   gorm.DeletedAt    `gorm:"index" json:"-"`
}

// SectionMaterial is a shared reading passage or listening recording. A
// section may carry several; population picks one active material at random.
type SectionMaterial struct {
	ID               uint           `gorm:"primarykey" json:"id"`
	SectionID        uint           `json:"section_id" gorm:"not null;index"`
	Text             string         `json:"text,omitempty" gorm:"type:text"`
	AudioObjectKey   string         `json:"audio_object_key,omitempty"`
	TimeLimitSeconds uint           `json:"time_limit_seconds" gorm:"default:0"`
	IsActive         bool           `json:"is_active" gorm:"default:true;index"`
	OrderInSection   uint           `json:"order_in_section" gorm:"not null;default:1"`
	CreatedAt        time.Time      `json:"created_at"`
	UpdatedAt        time.Time      `json:"updated_at"`
	DeletedAt        gorm.DeletedAt `gorm:"index" json:"-"`
}
