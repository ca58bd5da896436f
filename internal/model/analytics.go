// internal/model/analytics.go
package model

import "github.com/google/uuid"

// SectionProgress はセクション単位の進捗内訳
type SectionProgress struct {
	Section    string `json:"section"`
	Completed  int    `json:"completed"`
	Total      int    `json:"total"`
	Percentage int    `json:"percentage"`
}

// CourseProgressResponse は受講者向け進捗APIのレスポンスDTO
type CourseProgressResponse struct {
	CourseID            uuid.UUID           `json:"course_id"`
	Progress            int                 `json:"progress"`
	Sections            []SectionProgress   `json:"sections"`
	NextLesson          *LessonViewResponse `json:"next_lesson,omitempty"`
	EstimatedCompletion string              `json:"estimated_completion"`
}

// CourseStat は講師ダッシュボードの講座別集計
type CourseStat struct {
	CourseID         uuid.UUID `json:"course_id"`
	Title            string    `json:"title"`
	TotalEnrollments int       `json:"total_enrollments"`
	CompletionRate   int       `json:"completion_rate"`
	Revenue          int64     `json:"revenue"`
}

// MonthRevenue は月別売上（観測された月のみ。欠けた月は補完しない）
type MonthRevenue struct {
	Year    int    `json:"year"`
	Month   string `json:"month"` // 月名ラベル (January, February, ...)
	Revenue int64  `json:"revenue"`
}

// EngagementBucket は進捗レンジ別の受講者数
// レンジは [0,25) [25,50) [50,75) [75,100] の4区分
type EngagementBucket struct {
	Label string `json:"label"`
	Count int    `json:"count"`
}

// DateCount は日別の受講登録数
type DateCount struct {
	Date  string `json:"date"` // YYYY-MM-DD (UTC)
	Count int    `json:"count"`
}

// InstructorAnalyticsResponse は講師ダッシュボードAPIのレスポンスDTO
type InstructorAnalyticsResponse struct {
	TotalRevenue      int64              `json:"total_revenue"`
	CourseStats       []CourseStat       `json:"course_stats"`
	RevenueByMonth    []MonthRevenue     `json:"revenue_by_month"`
	EngagementBuckets []EngagementBucket `json:"engagement_buckets"`
}

// CourseAnalyticsResponse は講座ダッシュボードAPIのレスポンスDTO
type CourseAnalyticsResponse struct {
	CourseID             uuid.UUID          `json:"course_id"`
	TotalEnrollments     int                `json:"total_enrollments"`
	CompletionRate       int                `json:"completion_rate"`
	EnrollmentsByDate    []DateCount        `json:"enrollments_by_date"`
	ProgressDistribution []EngagementBucket `json:"progress_distribution"`
}
