package service

import (
	"context"
	"fmt"
	"sort"
	"strings"

	"go_5_course_market/internal/config"
	"go_5_course_market/internal/middleware"
	"go_5_course_market/internal/model"
	"go_5_course_market/internal/repository"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

// ProgressService は受講登録と講座のレッスンリストから進捗情報を導出します
type ProgressService interface {
	GetCourseProgress(ctx context.Context, userID, courseID uuid.UUID) (*model.CourseProgressResponse, error)
}

type progressService struct {
	db             *gorm.DB
	courseRepo     repository.CourseRepository
	enrollmentRepo repository.EnrollmentRepository
	cfg            *config.Config
}

func NewProgressService(db *gorm.DB, courseRepo repository.CourseRepository, enrollmentRepo repository.EnrollmentRepository, cfg *config.Config) ProgressService {
	return &progressService{
		db:             db,
		courseRepo:     courseRepo,
		enrollmentRepo: enrollmentRepo,
		cfg:            cfg,
	}
}

func (s *progressService) GetCourseProgress(ctx context.Context, userID, courseID uuid.UUID) (*model.CourseProgressResponse, error) {
	logger := middleware.GetLogger(ctx).With("user_id", userID, "course_id", courseID)

	course, err := s.courseRepo.FindByID(ctx, s.db, courseID)
	if err != nil {
		return nil, err
	}
	enrollment, err := s.enrollmentRepo.FindByUserAndCourse(ctx, s.db, userID, courseID)
	if err != nil {
		return nil, err // 未登録は model.ErrNotFound
	}

	resp := &model.CourseProgressResponse{
		CourseID:            courseID,
		Progress:            ComputeProgress(enrollment, course),
		Sections:            SectionBreakdown(enrollment, course),
		EstimatedCompletion: EstimatedCompletion(enrollment, course, s.cfg.App.DailyBudgetMinutes),
	}

	if next := NextLesson(enrollment, course); next != nil {
		completed := enrollment.CompletedSet()[next.LessonID]
		resp.NextLesson = &model.LessonViewResponse{
			LessonID:    next.LessonID,
			CourseID:    next.CourseID,
			Title:       next.Title,
			Section:     next.SectionName(),
			DurationMin: next.DurationMin,
			IsPreview:   next.IsPreview,
			Completed:   completed,
		}
	}

	logger.Debug("Course progress computed", "progress", resp.Progress)
	return resp, nil
}

// ComputeProgress は進捗率(0-100)を計算します。
// 講座のレッスンに属さない完了行は数えません（集合の包含不変条件）。
func ComputeProgress(enrollment *model.Enrollment, course *model.Course) int {
	if len(course.Lessons) == 0 {
		return 0
	}
	completedSet := enrollment.CompletedSet()
	completed := int64(0)
	for _, l := range course.Lessons {
		if completedSet[l.LessonID] {
			completed++
		}
	}
	return calculateProgress(completed, int64(len(course.Lessons)))
}

// SectionBreakdown はセクション別の進捗内訳を返します。
// セクションの順序は、レッスン順に最初に登場した順（first-seen order）。
func SectionBreakdown(enrollment *model.Enrollment, course *model.Course) []model.SectionProgress {
	completedSet := enrollment.CompletedSet()

	var order []string
	totals := make(map[string]int)
	completed := make(map[string]int)

	for _, l := range canonicalLessons(course) {
		name := l.SectionName()
		if _, seen := totals[name]; !seen {
			order = append(order, name)
		}
		totals[name]++
		if completedSet[l.LessonID] {
			completed[name]++
		}
	}

	sections := make([]model.SectionProgress, 0, len(order))
	for _, name := range order {
		sections = append(sections, model.SectionProgress{
			Section:    name,
			Completed:  completed[name],
			Total:      totals[name],
			Percentage: calculateProgress(int64(completed[name]), int64(totals[name])),
		})
	}
	return sections
}

// NextLesson は正準順で最初の未完了レッスンを返します。
// 全レッスン完了済みなら正準順の先頭（復習モード）、レッスンが無ければnil。
func NextLesson(enrollment *model.Enrollment, course *model.Course) *model.Lesson {
	lessons := canonicalLessons(course)
	if len(lessons) == 0 {
		return nil
	}
	completedSet := enrollment.CompletedSet()
	for _, l := range lessons {
		if !completedSet[l.LessonID] {
			return l
		}
	}
	return lessons[0] // 復習モード
}

// EstimatedCompletion は残りレッスンの所要時間から完了見込みのラベルを返します。
// durationが未設定(0)のレッスンはこの見積もりに限り30分として扱います（進捗率には影響しない）。
func EstimatedCompletion(enrollment *model.Enrollment, course *model.Course, dailyBudgetMinutes int) string {
	if dailyBudgetMinutes <= 0 {
		dailyBudgetMinutes = config.DefaultDailyBudgetMinutes
	}
	completedSet := enrollment.CompletedSet()

	remainingMinutes := 0
	for _, l := range course.Lessons {
		if completedSet[l.LessonID] {
			continue
		}
		if l.DurationMin > 0 {
			remainingMinutes += l.DurationMin
		} else {
			remainingMinutes += config.DefaultLessonDurationMin
		}
	}

	daysRemaining := ceilDiv(remainingMinutes, dailyBudgetMinutes)
	switch {
	case daysRemaining <= 1:
		return "Less than 1 day"
	case daysRemaining < 7:
		return fmt.Sprintf("About %d days", daysRemaining)
	case daysRemaining < 30:
		return fmt.Sprintf("About %d weeks", ceilDiv(daysRemaining, 7))
	default:
		return fmt.Sprintf("About %d months", ceilDiv(daysRemaining, 30))
	}
}

// canonicalLessons は正準レッスン順を返します:
// (セクションの初出順, order_index, lesson_id昇順) でソート。
func canonicalLessons(course *model.Course) []*model.Lesson {
	sectionRank := make(map[string]int)
	for _, l := range course.Lessons {
		name := l.SectionName()
		if _, ok := sectionRank[name]; !ok {
			sectionRank[name] = len(sectionRank)
		}
	}

	lessons := make([]*model.Lesson, len(course.Lessons))
	for i := range course.Lessons {
		lessons[i] = &course.Lessons[i]
	}
	sort.SliceStable(lessons, func(i, j int) bool {
		ri, rj := sectionRank[lessons[i].SectionName()], sectionRank[lessons[j].SectionName()]
		if ri != rj {
			return ri < rj
		}
		if lessons[i].OrderIndex != lessons[j].OrderIndex {
			return lessons[i].OrderIndex < lessons[j].OrderIndex
		}
		return strings.Compare(lessons[i].LessonID.String(), lessons[j].LessonID.String()) < 0
	})
	return lessons
}

func ceilDiv(a, b int) int {
	if b <= 0 {
		return 0
	}
	return (a + b - 1) / b
}
