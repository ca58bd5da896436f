package service

import (
	"context"
	"errors"

	"go_5_course_market/internal/middleware"
	"go_5_course_market/internal/model"
	"go_5_course_market/internal/repository"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

// EntitlementService はレッスン閲覧可否の判定を一元的に担います。
// レッスン閲覧・ダッシュボード閲覧など、アクセス制御が必要な経路は
// 必ずこのサービスを経由します（個別の重複チェックを書かないこと）。
type EntitlementService interface {
	CanAccess(ctx context.Context, identity model.Identity, courseID, lessonID uuid.UUID) (model.AccessDecision, error)
	ViewLesson(ctx context.Context, identity model.Identity, courseID, lessonID uuid.UUID) (*model.LessonViewResponse, error)
}

type entitlementService struct {
	db             *gorm.DB
	courseRepo     repository.CourseRepository
	enrollmentRepo repository.EnrollmentRepository
}

func NewEntitlementService(db *gorm.DB, courseRepo repository.CourseRepository, enrollmentRepo repository.EnrollmentRepository) EntitlementService {
	return &entitlementService{
		db:             db,
		courseRepo:     courseRepo,
		enrollmentRepo: enrollmentRepo,
	}
}

// DecideAccess は純粋な判定関数です。副作用を持たず、以下のルールを
// この優先順で評価します（最初に一致したものが勝ち）。
//  1. 管理者 → 許可
//  2. 講座の所有者（講師） → 許可
//  3. 未公開講座 → 拒否 (COURSE_NOT_PUBLISHED)
//  4. 支払い完了済みの受講登録あり → 許可（全レッスン）
//  5. プレビューレッスン → 許可
//  6. それ以外 → 拒否 (ENROLLMENT_REQUIRED)
//
// 匿名ユーザーは Identity のゼロ値（RoleNone）として渡します。
// 支払いがpendingの受講登録はルール4に一致せず、プレビューのみ閲覧できます。
func DecideAccess(identity model.Identity, course *model.Course, lesson *model.Lesson, enrollment *model.Enrollment) model.AccessDecision {
	if identity.Role == model.RoleAdmin {
		return model.Allow()
	}
	if !identity.IsAnonymous() && identity.UserID == course.OwnerID {
		return model.Allow()
	}
	if !course.Published {
		return model.Deny(model.DenyCourseNotPublished)
	}
	if enrollment != nil && enrollment.PaymentStatus == model.PaymentCompleted {
		return model.Allow()
	}
	if lesson.IsPreview {
		return model.Allow()
	}
	return model.Deny(model.DenyEnrollmentRequired)
}

// CanAccess は講座・レッスン・受講登録をロードして DecideAccess に委譲します。
func (s *entitlementService) CanAccess(ctx context.Context, identity model.Identity, courseID, lessonID uuid.UUID) (model.AccessDecision, error) {
	logger := middleware.GetLogger(ctx).With("course_id", courseID, "lesson_id", lessonID)

	course, lesson, enrollment, err := s.loadContext(ctx, identity, courseID, lessonID)
	if err != nil {
		return model.AccessDecision{}, err
	}

	decision := DecideAccess(identity, course, lesson, enrollment)
	logger.Debug("Entitlement decided", "allowed", decision.Allowed, "reason", decision.Reason)
	return decision, nil
}

// ViewLesson はアクセス判定を通過した場合のみレッスンの閲覧情報を返します。
// 拒否の場合は判定理由をエラーコードに載せた AppError (403) を返します。
func (s *entitlementService) ViewLesson(ctx context.Context, identity model.Identity, courseID, lessonID uuid.UUID) (*model.LessonViewResponse, error) {
	logger := middleware.GetLogger(ctx).With("course_id", courseID, "lesson_id", lessonID)

	course, lesson, enrollment, err := s.loadContext(ctx, identity, courseID, lessonID)
	if err != nil {
		return nil, err
	}

	decision := DecideAccess(identity, course, lesson, enrollment)
	if !decision.Allowed {
		logger.Info("Lesson access denied", "reason", decision.Reason)
		return nil, model.NewAppError(string(decision.Reason), denyMessage(decision.Reason), "", model.ErrForbidden)
	}

	completed := false
	if enrollment != nil {
		completed = enrollment.CompletedSet()[lesson.LessonID]
	}
	return &model.LessonViewResponse{
		LessonID:    lesson.LessonID,
		CourseID:    lesson.CourseID,
		Title:       lesson.Title,
		Section:     lesson.SectionName(),
		DurationMin: lesson.DurationMin,
		IsPreview:   lesson.IsPreview,
		Completed:   completed,
	}, nil
}

func (s *entitlementService) loadContext(ctx context.Context, identity model.Identity, courseID, lessonID uuid.UUID) (*model.Course, *model.Lesson, *model.Enrollment, error) {
	course, err := s.courseRepo.FindByID(ctx, s.db, courseID)
	if err != nil {
		return nil, nil, nil, err // model.ErrNotFound など
	}
	lesson, err := s.courseRepo.FindLesson(ctx, s.db, courseID, lessonID)
	if err != nil {
		return nil, nil, nil, err
	}

	// 匿名ユーザーに受講登録はない
	var enrollment *model.Enrollment
	if !identity.IsAnonymous() {
		enrollment, err = s.enrollmentRepo.FindByUserAndCourse(ctx, s.db, identity.UserID, courseID)
		if err != nil && !errors.Is(err, model.ErrNotFound) {
			middleware.GetLogger(ctx).Error("Failed to load enrollment for entitlement check", "error", err)
			return nil, nil, nil, model.NewAppError("INTERNAL_SERVER_ERROR", "アクセス判定中にエラーが発生しました。", "", model.ErrInternalServer)
		}
	}
	return course, lesson, enrollment, nil
}

func denyMessage(reason model.DenyReason) string {
	switch reason {
	case model.DenyCourseNotPublished:
		return "この講座は公開されていません。"
	case model.DenyEnrollmentRequired:
		return "このレッスンの閲覧には受講登録が必要です。"
	default:
		return "このレッスンを閲覧する権限がありません。"
	}
}
