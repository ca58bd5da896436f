// internal/model/course.go
package model

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

// DefaultSection はセクション未指定のレッスンが属するセクション名
const DefaultSection = "Main Content"

// Course は講座を表します
type Course struct {
	CourseID    uuid.UUID      `gorm:"type:uuid;primaryKey" json:"course_id"`
	OwnerID     uuid.UUID      `gorm:"type:uuid;not null;index" json:"owner_id"` // 講師のUserID
	Title       string         `gorm:"not null" json:"title"`
	Description string         `json:"description"`
	Price       int64          `gorm:"not null;default:0" json:"price"` // 最小通貨単位（ペンス）。0なら無料講座
	Published   bool           `gorm:"not null;default:false" json:"published"`
	CreatedAt   time.Time      `json:"created_at"`
	UpdatedAt   time.Time      `json:"updated_at"`
	DeletedAt   gorm.DeletedAt `gorm:"index" json:"-"`

	// 関連 (Preload用)
	Lessons []Lesson `gorm:"foreignKey:CourseID;references:CourseID" json:"lessons,omitempty"`
}

func (Course) TableName() string {
	return "courses"
}

// Lesson は講座内のレッスンを表します
type Lesson struct {
	LessonID    uuid.UUID      `gorm:"type:uuid;primaryKey" json:"lesson_id"`
	CourseID    uuid.UUID      `gorm:"type:uuid;not null;index" json:"course_id"`
	Title       string         `gorm:"not null" json:"title"`
	Section     string         `gorm:"not null;default:'Main Content'" json:"section"`
	OrderIndex  int            `gorm:"not null;default:0" json:"order_index"` // セクション内の表示順
	DurationMin int            `gorm:"not null;default:0" json:"duration_min"` // 分。0は未設定
	IsPreview   bool           `gorm:"not null;default:false" json:"is_preview"`
	CreatedAt   time.Time      `json:"created_at"`
	UpdatedAt   time.Time      `json:"updated_at"`
	DeletedAt   gorm.DeletedAt `gorm:"index" json:"-"`
}

func (Lesson) TableName() string {
	return "lessons"
}

// SectionName はセクション名を返します（未指定ならデフォルト）
func (l *Lesson) SectionName() string {
	if l.Section == "" {
		return DefaultSection
	}
	return l.Section
}

// LessonViewResponse はレッスン閲覧APIのレスポンスDTO
type LessonViewResponse struct {
	LessonID    uuid.UUID `json:"lesson_id"`
	CourseID    uuid.UUID `json:"course_id"`
	Title       string    `json:"title"`
	Section     string    `json:"section"`
	DurationMin int       `json:"duration_min"`
	IsPreview   bool      `json:"is_preview"`
	Completed   bool      `json:"completed"`
}
