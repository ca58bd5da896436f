package service

import (
	"context"
	"errors"
	"sort"
	"time"

	"go_5_course_market/internal/middleware"
	"go_5_course_market/internal/model"
	"go_5_course_market/internal/repository"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

// AnalyticsService は多数の受講登録を講師向けダッシュボードに集計します。
// すべての集計は空入力に対してゼロ値・空スライスを返し、決してエラーにしません。
// ダッシュボードは所有者本人と管理者のみ閲覧できます。Identityは
// グローバル状態からではなく、呼び出しごとに明示的に渡します。
type AnalyticsService interface {
	GetInstructorAnalytics(ctx context.Context, identity model.Identity, instructorID uuid.UUID) (*model.InstructorAnalyticsResponse, error)
	GetCourseAnalytics(ctx context.Context, identity model.Identity, courseID uuid.UUID) (*model.CourseAnalyticsResponse, error)
}

type analyticsService struct {
	db             *gorm.DB
	courseRepo     repository.CourseRepository
	enrollmentRepo repository.EnrollmentRepository
	cache          repository.AnalyticsCache
}

func NewAnalyticsService(db *gorm.DB, courseRepo repository.CourseRepository, enrollmentRepo repository.EnrollmentRepository, cache repository.AnalyticsCache) AnalyticsService {
	return &analyticsService{
		db:             db,
		courseRepo:     courseRepo,
		enrollmentRepo: enrollmentRepo,
		cache:          cache,
	}
}

func (s *analyticsService) GetInstructorAnalytics(ctx context.Context, identity model.Identity, instructorID uuid.UUID) (*model.InstructorAnalyticsResponse, error) {
	logger := middleware.GetLogger(ctx).With("instructor_id", instructorID)

	if identity.Role != model.RoleAdmin && identity.UserID != instructorID {
		return nil, model.NewAppError("FORBIDDEN", "このダッシュボードを閲覧する権限がありません。", "", model.ErrForbidden)
	}

	// キャッシュヒットなら再計算しない。キャッシュ障害は再計算で吸収する
	if cached, err := s.cache.GetInstructorAnalytics(ctx, instructorID); err == nil {
		logger.Debug("Instructor analytics served from cache")
		return cached, nil
	} else if !errors.Is(err, repository.ErrCacheMiss) {
		logger.Warn("Analytics cache read failed, recomputing", "error", err)
	}

	courses, err := s.courseRepo.FindByOwner(ctx, s.db, instructorID)
	if err != nil {
		return nil, model.NewAppError("INTERNAL_SERVER_ERROR", "講座の取得に失敗しました。", "", model.ErrInternalServer)
	}

	courseIDs := make([]uuid.UUID, 0, len(courses))
	titleByID := make(map[uuid.UUID]string, len(courses))
	for _, c := range courses {
		courseIDs = append(courseIDs, c.CourseID)
		titleByID[c.CourseID] = c.Title
	}

	enrollments, err := s.enrollmentRepo.FindByCourseIDs(ctx, s.db, courseIDs)
	if err != nil {
		return nil, model.NewAppError("INTERNAL_SERVER_ERROR", "受講登録の取得に失敗しました。", "", model.ErrInternalServer)
	}

	byCourse := make(map[uuid.UUID][]*model.Enrollment)
	for _, e := range enrollments {
		byCourse[e.CourseID] = append(byCourse[e.CourseID], e)
	}

	resp := &model.InstructorAnalyticsResponse{
		TotalRevenue:      totalRevenue(enrollments),
		CourseStats:       make([]model.CourseStat, 0, len(courses)),
		RevenueByMonth:    revenueByMonth(enrollments),
		EngagementBuckets: engagementBuckets(enrollments),
	}
	for _, c := range courses {
		es := byCourse[c.CourseID]
		resp.CourseStats = append(resp.CourseStats, model.CourseStat{
			CourseID:         c.CourseID,
			Title:            titleByID[c.CourseID],
			TotalEnrollments: len(es),
			CompletionRate:   completionRate(es),
			Revenue:          totalRevenue(es),
		})
	}

	if err := s.cache.SetInstructorAnalytics(ctx, instructorID, resp); err != nil {
		logger.Warn("Analytics cache write failed", "error", err)
	}
	return resp, nil
}

func (s *analyticsService) GetCourseAnalytics(ctx context.Context, identity model.Identity, courseID uuid.UUID) (*model.CourseAnalyticsResponse, error) {
	logger := middleware.GetLogger(ctx).With("course_id", courseID)

	course, err := s.courseRepo.FindByID(ctx, s.db, courseID)
	if err != nil {
		return nil, err // model.ErrNotFound など
	}
	if identity.Role != model.RoleAdmin && identity.UserID != course.OwnerID {
		return nil, model.NewAppError("FORBIDDEN", "このダッシュボードを閲覧する権限がありません。", "", model.ErrForbidden)
	}

	if cached, err := s.cache.GetCourseAnalytics(ctx, courseID); err == nil {
		logger.Debug("Course analytics served from cache")
		return cached, nil
	} else if !errors.Is(err, repository.ErrCacheMiss) {
		logger.Warn("Analytics cache read failed, recomputing", "error", err)
	}

	// スナップショットの読み取りのみ。ロックは不要
	enrollments, err := s.enrollmentRepo.FindByCourse(ctx, s.db, courseID)
	if err != nil {
		return nil, model.NewAppError("INTERNAL_SERVER_ERROR", "受講登録の取得に失敗しました。", "", model.ErrInternalServer)
	}

	resp := &model.CourseAnalyticsResponse{
		CourseID:             courseID,
		TotalEnrollments:     len(enrollments),
		CompletionRate:       completionRate(enrollments),
		EnrollmentsByDate:    enrollmentsByDate(enrollments),
		ProgressDistribution: engagementBuckets(enrollments),
	}

	if err := s.cache.SetCourseAnalytics(ctx, courseID, resp); err != nil {
		logger.Warn("Analytics cache write failed", "error", err)
	}
	return resp, nil
}

// totalRevenue は支払い完了済みの受講登録の登録時価格を合計します
func totalRevenue(enrollments []*model.Enrollment) int64 {
	var total int64
	for _, e := range enrollments {
		if e.PaymentStatus == model.PaymentCompleted {
			total += e.PricePaid
		}
	}
	return total
}

// completionRate は 100 × 完了者数 / 支払い完了者数 を返します。
// 分母が0の場合は0（ゼロ除算で落とさない）。
func completionRate(enrollments []*model.Enrollment) int {
	var paid, completed int64
	for _, e := range enrollments {
		if e.PaymentStatus != model.PaymentCompleted {
			continue
		}
		paid++
		if e.Progress >= 100 {
			completed++
		}
	}
	return calculateProgress(completed, paid)
}

// revenueByMonth は支払い完了済みの受講登録を登録月(UTC)でバケツ分けします。
// 観測された月のみ返し、欠けている月は補完しません。
func revenueByMonth(enrollments []*model.Enrollment) []model.MonthRevenue {
	type yearMonth struct {
		year  int
		month time.Month
	}
	totals := make(map[yearMonth]int64)
	for _, e := range enrollments {
		if e.PaymentStatus != model.PaymentCompleted {
			continue
		}
		t := e.EnrolledAt.UTC()
		totals[yearMonth{t.Year(), t.Month()}] += e.PricePaid
	}

	keys := make([]yearMonth, 0, len(totals))
	for k := range totals {
		keys = append(keys, k)
	}
	sort.Slice(keys, func(i, j int) bool {
		if keys[i].year != keys[j].year {
			return keys[i].year < keys[j].year
		}
		return keys[i].month < keys[j].month
	})

	result := make([]model.MonthRevenue, 0, len(keys))
	for _, k := range keys {
		result = append(result, model.MonthRevenue{
			Year:    k.year,
			Month:   k.month.String(),
			Revenue: totals[k],
		})
	}
	return result
}

// engagementBuckets は進捗レンジ [0,25) [25,50) [50,75) [75,100] の4区分で
// 受講登録数を数えます
func engagementBuckets(enrollments []*model.Enrollment) []model.EngagementBucket {
	buckets := []model.EngagementBucket{
		{Label: "0-25%"},
		{Label: "25-50%"},
		{Label: "50-75%"},
		{Label: "75-100%"},
	}
	for _, e := range enrollments {
		switch {
		case e.Progress < 25:
			buckets[0].Count++
		case e.Progress < 50:
			buckets[1].Count++
		case e.Progress < 75:
			buckets[2].Count++
		default:
			buckets[3].Count++
		}
	}
	return buckets
}

// enrollmentsByDate は登録日(UTC)別の件数を日付昇順で返します
func enrollmentsByDate(enrollments []*model.Enrollment) []model.DateCount {
	counts := make(map[string]int)
	for _, e := range enrollments {
		counts[e.EnrolledAt.UTC().Format("2006-01-02")]++
	}

	dates := make([]string, 0, len(counts))
	for d := range counts {
		dates = append(dates, d)
	}
	sort.Strings(dates)

	result := make([]model.DateCount, 0, len(dates))
	for _, d := range dates {
		result = append(result, model.DateCount{Date: d, Count: counts[d]})
	}
	return result
}
