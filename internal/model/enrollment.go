// internal/model/enrollment.go
package model

import (
	"time"

	"github.com/google/uuid"
)

// PaymentStatus は受講登録の支払い状態を表します
type PaymentStatus string

const (
	PaymentPending   PaymentStatus = "pending"
	PaymentCompleted PaymentStatus = "completed"
	PaymentFailed    PaymentStatus = "failed"
)

// Enrollment はユーザーと講座を結ぶ受講登録を表します。
// (user_id, course_id) の複合ユニークインデックスで「1ユーザー1講座につき1レコード」を
// DB制約として保証します（冪等な作成のための冪等キー）。
type Enrollment struct {
	EnrollmentID    uuid.UUID     `gorm:"type:uuid;primaryKey" json:"enrollment_id"`
	UserID          uuid.UUID     `gorm:"type:uuid;not null;index:idx_user_course,unique" json:"user_id"`
	CourseID        uuid.UUID     `gorm:"type:uuid;not null;index:idx_user_course,unique" json:"course_id"`
	PaymentStatus   PaymentStatus `gorm:"not null;default:'pending'" json:"payment_status"`
	PaymentIntentID *string       `gorm:"index" json:"payment_intent_id,omitempty"` // 有料講座のみ。リトライ時の冪等キー
	PricePaid       int64         `gorm:"not null;default:0" json:"price_paid"`     // 登録時点の講座価格スナップショット
	Progress        int           `gorm:"not null;default:0" json:"progress"`       // 0-100。完了レッスン数から導出
	EnrolledAt      time.Time     `gorm:"not null" json:"enrolled_at"`
	CompletedAt     *time.Time    `json:"completed_at,omitempty"` // 進捗が初めて100に達した時刻。一度設定したら消さない
	CreatedAt       time.Time     `json:"created_at"`
	UpdatedAt       time.Time     `json:"updated_at"`

	// 関連 (Preload用)
	Completions []LessonCompletion `gorm:"foreignKey:EnrollmentID;references:EnrollmentID" json:"-"`
	Course      *Course            `gorm:"foreignKey:CourseID;references:CourseID" json:"course,omitempty"`
}

func (Enrollment) TableName() string {
	return "enrollments"
}

// CompletedSet は完了レッスンIDの集合を返します
func (e *Enrollment) CompletedSet() map[uuid.UUID]bool {
	set := make(map[uuid.UUID]bool, len(e.Completions))
	for _, c := range e.Completions {
		set[c.LessonID] = true
	}
	return set
}

// LessonCompletion はレッスン完了を表す集合の要素です。
// (enrollment_id, lesson_id) の複合ユニークインデックスにより、
// 同じレッスンを二度完了しても行は1つしか存在できません（構造的な集合セマンティクス）。
type LessonCompletion struct {
	CompletionID uuid.UUID `gorm:"type:uuid;primaryKey" json:"completion_id"`
	EnrollmentID uuid.UUID `gorm:"type:uuid;not null;index:idx_enrollment_lesson,unique" json:"enrollment_id"`
	LessonID     uuid.UUID `gorm:"type:uuid;not null;index:idx_enrollment_lesson,unique" json:"lesson_id"`
	CompletedAt  time.Time `gorm:"not null" json:"completed_at"`
}

func (LessonCompletion) TableName() string {
	return "lesson_completions"
}

// EnrollRequest は受講登録APIのリクエストボディ (DTO)
type EnrollRequest struct {
	PaymentIntentID *string `json:"payment_intent_id,omitempty" validate:"omitempty,min=1"`
}

// EnrollmentResponse はクライアントに返す受講登録情報
type EnrollmentResponse struct {
	EnrollmentID  uuid.UUID     `json:"enrollment_id"`
	UserID        uuid.UUID     `json:"user_id"`
	CourseID      uuid.UUID     `json:"course_id"`
	PaymentStatus PaymentStatus `json:"payment_status"`
	Progress      int           `json:"progress"`
	EnrolledAt    time.Time     `json:"enrolled_at"`
	CompletedAt   *time.Time    `json:"completed_at,omitempty"`
}

// NewEnrollmentResponse はEnrollmentからレスポンスDTOを組み立てます
func NewEnrollmentResponse(e *Enrollment) *EnrollmentResponse {
	return &EnrollmentResponse{
		EnrollmentID:  e.EnrollmentID,
		UserID:        e.UserID,
		CourseID:      e.CourseID,
		PaymentStatus: e.PaymentStatus,
		Progress:      e.Progress,
		EnrolledAt:    e.EnrolledAt,
		CompletedAt:   e.CompletedAt,
	}
}
