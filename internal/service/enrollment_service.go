package service

import (
	"context"
	"errors"
	"math"
	"time"

	"go_5_course_market/internal/middleware"
	"go_5_course_market/internal/model"
	"go_5_course_market/internal/repository"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

// EnrollmentService は受講登録のライフサイクルを管理します。
// 状態遷移: NotEnrolled → (PendingPayment) → Enrolled → Completed
// NotEnrolled はレコード無しで表現されます。
type EnrollmentService interface {
	CreateFreeEnrollment(ctx context.Context, userID, courseID uuid.UUID) (*model.Enrollment, error)
	CreatePaidEnrollment(ctx context.Context, userID, courseID uuid.UUID, paymentIntentID string) (*model.Enrollment, error)
	MarkLessonComplete(ctx context.Context, identity model.Identity, enrollmentID, lessonID uuid.UUID) (*model.Enrollment, error)
	GetEnrollment(ctx context.Context, userID, courseID uuid.UUID) (*model.Enrollment, error)
}

type enrollmentService struct {
	db             *gorm.DB
	enrollmentRepo repository.EnrollmentRepository
	courseRepo     repository.CourseRepository
	userRepo       repository.UserRepository
	gateway        PaymentGateway
	notifier       Notifier
}

func NewEnrollmentService(
	db *gorm.DB,
	enrollmentRepo repository.EnrollmentRepository,
	courseRepo repository.CourseRepository,
	userRepo repository.UserRepository,
	gateway PaymentGateway,
	notifier Notifier,
) EnrollmentService {
	return &enrollmentService{
		db:             db,
		enrollmentRepo: enrollmentRepo,
		courseRepo:     courseRepo,
		userRepo:       userRepo,
		gateway:        gateway,
		notifier:       notifier,
	}
}

// CreateFreeEnrollment は無料講座の受講登録を作成します。
// (userID, courseID) を冪等キーとする get-or-create: 既に登録済みの場合は
// エラーにせず既存レコードをそのまま返します（クライアントの二重送信を許容）。
func (s *enrollmentService) CreateFreeEnrollment(ctx context.Context, userID, courseID uuid.UUID) (*model.Enrollment, error) {
	logger := middleware.GetLogger(ctx).With("user_id", userID, "course_id", courseID)

	course, err := s.courseRepo.FindByID(ctx, s.db, courseID)
	if err != nil {
		if errors.Is(err, model.ErrNotFound) {
			return nil, model.NewAppError("COURSE_NOT_FOUND", "講座が見つかりません。", "", model.ErrNotFound)
		}
		return nil, err
	}
	if course.Price != 0 {
		return nil, model.NewAppError("PAYMENT_REQUIRED", "有料講座には決済が必要です。", "", model.ErrPaymentNotConfirmed)
	}

	// 既存レコードがあれば冪等にそれを返す
	existing, err := s.enrollmentRepo.FindByUserAndCourse(ctx, s.db, userID, courseID)
	if err == nil {
		logger.Info("Enrollment already exists, returning existing record (idempotent)")
		return existing, nil
	}
	if !errors.Is(err, model.ErrNotFound) {
		return nil, err
	}

	enrollment := &model.Enrollment{
		EnrollmentID:  uuid.New(),
		UserID:        userID,
		CourseID:      courseID,
		PaymentStatus: model.PaymentCompleted, // 無料講座は支払い不要のため即completed
		PricePaid:     0,
		EnrolledAt:    time.Now().UTC(),
	}

	err = s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		return s.enrollmentRepo.Create(ctx, tx, enrollment)
	})
	if err != nil {
		// 同時リクエストとの競合。ユニーク制約が勝敗を決めるので、
		// 負けた側は勝った側のレコードを返せばよい
		if errors.Is(err, model.ErrConflict) {
			logger.Info("Concurrent enrollment creation detected, fetching existing record")
			return s.enrollmentRepo.FindByUserAndCourse(ctx, s.db, userID, courseID)
		}
		logger.Error("Failed to create free enrollment", "error", err)
		return nil, model.NewAppError("INTERNAL_SERVER_ERROR", "受講登録の作成に失敗しました。", "", model.ErrInternalServer)
	}

	logger.Info("Free enrollment created", "enrollment_id", enrollment.EnrollmentID)
	return enrollment, nil
}

// CreatePaidEnrollment は有料講座の受講登録を作成します。
// 登録作成は必ず決済確認の成功の後に行います。確認に失敗した場合に
// 成功レコードを偽造することは許されません（ErrUpstreamを返して呼び出し元にリトライさせる）。
// (userID, courseID) と paymentIntentID が冪等キーになるため、同じインテントでの
// リトライは既存レコードを返すだけで二重登録・二重課金になりません。
func (s *enrollmentService) CreatePaidEnrollment(ctx context.Context, userID, courseID uuid.UUID, paymentIntentID string) (*model.Enrollment, error) {
	logger := middleware.GetLogger(ctx).With("user_id", userID, "course_id", courseID, "intent_id", paymentIntentID)

	if paymentIntentID == "" {
		return nil, model.NewAppError("VALIDATION_ERROR", "決済インテントIDは必須です。", "payment_intent_id", model.ErrInvalidInput)
	}

	course, err := s.courseRepo.FindByID(ctx, s.db, courseID)
	if err != nil {
		if errors.Is(err, model.ErrNotFound) {
			return nil, model.NewAppError("COURSE_NOT_FOUND", "講座が見つかりません。", "", model.ErrNotFound)
		}
		return nil, err
	}

	// 冪等キーでの先行検索。リプレイは確認APIを呼び直さず既存をそのまま返す
	existing, err := s.enrollmentRepo.FindByUserAndCourse(ctx, s.db, userID, courseID)
	if err == nil {
		logger.Info("Enrollment already exists for payment intent replay, returning existing record")
		return existing, nil
	}
	if !errors.Is(err, model.ErrNotFound) {
		return nil, err
	}

	// 外部決済の確認。ここが成功して初めて登録を作成できる
	confirmation, err := s.gateway.Confirm(ctx, paymentIntentID)
	if err != nil {
		return nil, err // model.ErrUpstream (AppError) がそのまま伝播する
	}
	if confirmation.Status != IntentSucceeded {
		logger.Warn("Payment intent not succeeded", "status", confirmation.Status)
		return nil, model.NewAppError("PAYMENT_NOT_CONFIRMED", "決済が完了していません。", "", model.ErrPaymentNotConfirmed)
	}
	if confirmation.Amount < course.Price {
		logger.Warn("Payment amount insufficient", "paid", confirmation.Amount, "price", course.Price)
		return nil, model.NewAppError("PAYMENT_NOT_CONFIRMED", "決済金額が講座価格に達していません。", "", model.ErrPaymentNotConfirmed)
	}

	enrollment := &model.Enrollment{
		EnrollmentID:    uuid.New(),
		UserID:          userID,
		CourseID:        courseID,
		PaymentStatus:   model.PaymentCompleted,
		PaymentIntentID: &paymentIntentID,
		PricePaid:       course.Price, // 登録時点の価格をスナップショット
		EnrolledAt:      time.Now().UTC(),
	}

	err = s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		return s.enrollmentRepo.Create(ctx, tx, enrollment)
	})
	if err != nil {
		if errors.Is(err, model.ErrConflict) {
			logger.Info("Concurrent paid enrollment creation detected, fetching existing record")
			return s.enrollmentRepo.FindByUserAndCourse(ctx, s.db, userID, courseID)
		}
		logger.Error("Failed to create paid enrollment", "error", err)
		return nil, model.NewAppError("INTERNAL_SERVER_ERROR", "受講登録の作成に失敗しました。", "", model.ErrInternalServer)
	}

	logger.Info("Paid enrollment created", "enrollment_id", enrollment.EnrollmentID)
	return enrollment, nil
}

// MarkLessonComplete はレッスンを完了レッスン集合に追加し、進捗を再計算します。
// 集合への追加は和集合のセマンティクス（二度適用しても結果は同じ）。
// 冒頭で受講登録の行ロックを取得し (FindByIDForUpdate)、同じレコードへの
// read-modify-write をトランザクション単位で直列化します。ロックなしだと
// READ COMMITTED 下で同時実行された2つの完了が互いの完了行を数えられず、
// 全レッスン完了後も progress が100に達しないまま固定されることがあります。
func (s *enrollmentService) MarkLessonComplete(ctx context.Context, identity model.Identity, enrollmentID, lessonID uuid.UUID) (*model.Enrollment, error) {
	logger := middleware.GetLogger(ctx).With("enrollment_id", enrollmentID, "lesson_id", lessonID)

	var completedNow bool
	var updated *model.Enrollment

	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		enrollment, err := s.enrollmentRepo.FindByIDForUpdate(ctx, tx, enrollmentID)
		if err != nil {
			return err // model.ErrNotFound など
		}

		// 他人の受講登録は管理者以外触れない
		if identity.Role != model.RoleAdmin && enrollment.UserID != identity.UserID {
			return model.NewAppError("FORBIDDEN", "この受講登録を操作する権限がありません。", "", model.ErrForbidden)
		}

		// レッスンがこの受講登録の講座に属するか検証
		if _, err := s.courseRepo.FindLesson(ctx, tx, enrollment.CourseID, lessonID); err != nil {
			if errors.Is(err, model.ErrNotFound) {
				return model.NewAppError("LESSON_NOT_IN_COURSE", "指定されたレッスンはこの講座に含まれていません。", "lesson_id", model.ErrInvalidInput)
			}
			return err
		}

		completion := &model.LessonCompletion{
			CompletionID: uuid.New(),
			EnrollmentID: enrollmentID,
			LessonID:     lessonID,
			CompletedAt:  time.Now().UTC(),
		}
		if err := s.enrollmentRepo.AddCompletion(ctx, tx, completion); err != nil {
			return err
		}

		// 進捗は完了行の実数から導出する。加算ではなく再集計なので、
		// 同時実行でも最終的に同じ値に収束する
		totalLessons, err := s.courseRepo.CountLessons(ctx, tx, enrollment.CourseID)
		if err != nil {
			return err
		}
		completedCount, err := s.enrollmentRepo.CountCompletions(ctx, tx, enrollmentID)
		if err != nil {
			return err
		}

		enrollment.Progress = calculateProgress(completedCount, totalLessons)
		if enrollment.Progress >= 100 && enrollment.CompletedAt == nil {
			now := time.Now().UTC()
			enrollment.CompletedAt = &now
			completedNow = true
		}

		if err := s.enrollmentRepo.UpdateProgress(ctx, tx, enrollment); err != nil {
			return err
		}
		updated = enrollment
		return nil
	})
	if err != nil {
		var appErr *model.AppError
		if errors.Is(err, model.ErrNotFound) || errors.As(err, &appErr) {
			return nil, err
		}
		logger.Error("Failed to mark lesson complete", "error", err)
		return nil, model.NewAppError("INTERNAL_SERVER_ERROR", "レッスン完了の記録に失敗しました。", "", model.ErrInternalServer)
	}

	// 初めて進捗100に達した時だけ通知フックを呼ぶ。
	// 通知の失敗で完了記録自体を失敗させない（コミット後に実行）
	if completedNow {
		s.sendCompletionNotification(ctx, updated)
	}

	return updated, nil
}

// GetEnrollment は (userID, courseID) で受講登録を取得する正準の参照APIです
func (s *enrollmentService) GetEnrollment(ctx context.Context, userID, courseID uuid.UUID) (*model.Enrollment, error) {
	enrollment, err := s.enrollmentRepo.FindByUserAndCourse(ctx, s.db, userID, courseID)
	if err != nil {
		return nil, err // model.ErrNotFound or internal
	}
	return enrollment, nil
}

func (s *enrollmentService) sendCompletionNotification(ctx context.Context, enrollment *model.Enrollment) {
	logger := middleware.GetLogger(ctx)

	user, err := s.userRepo.FindByID(ctx, s.db, enrollment.UserID)
	if err != nil {
		logger.Warn("Could not load user for completion notification", "error", err, "user_id", enrollment.UserID)
		return
	}
	course, err := s.courseRepo.FindByID(ctx, s.db, enrollment.CourseID)
	if err != nil {
		logger.Warn("Could not load course for completion notification", "error", err, "course_id", enrollment.CourseID)
		return
	}
	if err := s.notifier.NotifyCourseCompleted(ctx, user, course); err != nil {
		logger.Warn("Course completed notification failed", "error", err)
	}
}

// calculateProgress は完了数と総レッスン数から進捗率(0-100)を計算します。
// レッスンが無い講座は常に0。
func calculateProgress(completed, total int64) int {
	if total <= 0 {
		return 0
	}
	return int(math.Round(100 * float64(completed) / float64(total)))
}
