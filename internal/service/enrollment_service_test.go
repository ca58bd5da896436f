// internal/service/enrollment_service_test.go
package service_test

import (
	"context"
	"fmt"
	"testing"
	"time"

	"go_5_course_market/internal/model"
	"go_5_course_market/internal/repository"
	repomocks "go_5_course_market/internal/repository/mocks"
	"go_5_course_market/internal/service"
	servicemocks "go_5_course_market/internal/service/mocks"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"
)

// --- テストヘルパー関数 (インメモリDBセットアップ) ---
// テストごとに独立したインメモリDBを使う（cache=sharedを同名で共有しない）
func setupTestDBEnrollment(t *testing.T) *gorm.DB {
	t.Helper()
	dsn := fmt.Sprintf("file:%s?mode=memory&cache=shared", uuid.New().String())
	db, err := gorm.Open(sqlite.Open(dsn), &gorm.Config{
		Logger:         logger.Default.LogMode(logger.Silent), // テスト中はログを抑制
		TranslateError: true,                                  // ユニーク制約違反を gorm.ErrDuplicatedKey に変換
	})
	require.NoError(t, err)

	err = db.AutoMigrate(
		&model.User{},
		&model.Course{},
		&model.Lesson{},
		&model.Enrollment{},
		&model.LessonCompletion{},
	)
	require.NoError(t, err)
	return db
}

func seedCourse(t *testing.T, db *gorm.DB, price int64, lessonCount int) *model.Course {
	t.Helper()
	course := &model.Course{
		CourseID:  uuid.New(),
		OwnerID:   uuid.New(),
		Title:     "テスト講座",
		Price:     price,
		Published: true,
	}
	require.NoError(t, db.Create(course).Error)

	for i := 0; i < lessonCount; i++ {
		lesson := &model.Lesson{
			LessonID:   uuid.New(),
			CourseID:   course.CourseID,
			Title:      fmt.Sprintf("レッスン%d", i+1),
			OrderIndex: i,
		}
		require.NoError(t, db.Create(lesson).Error)
		course.Lessons = append(course.Lessons, *lesson)
	}
	return course
}

func newEnrollmentServiceForTest(db *gorm.DB, gateway *servicemocks.PaymentGateway, notifier *servicemocks.Notifier, userRepo *repomocks.UserRepository) service.EnrollmentService {
	return service.NewEnrollmentService(
		db,
		repository.NewGormEnrollmentRepository(),
		repository.NewGormCourseRepository(),
		userRepo,
		gateway,
		notifier,
	)
}

// --- Test CreateFreeEnrollment ---
func Test_enrollmentService_CreateFreeEnrollment(t *testing.T) {
	ctx := context.Background()

	t.Run("正常系: 無料講座に新規登録できる", func(t *testing.T) {
		db := setupTestDBEnrollment(t)
		svc := newEnrollmentServiceForTest(db, servicemocks.NewPaymentGateway(t), servicemocks.NewNotifier(t), repomocks.NewUserRepository(t))
		course := seedCourse(t, db, 0, 2)
		userID := uuid.New()

		enrollment, err := svc.CreateFreeEnrollment(ctx, userID, course.CourseID)

		require.NoError(t, err)
		require.NotNil(t, enrollment)
		assert.Equal(t, model.PaymentCompleted, enrollment.PaymentStatus)
		assert.Equal(t, int64(0), enrollment.PricePaid)
		assert.Equal(t, 0, enrollment.Progress)
		assert.Nil(t, enrollment.CompletedAt)
	})

	t.Run("正常系: 二重送信しても同じ受講登録が返る（冪等）", func(t *testing.T) {
		db := setupTestDBEnrollment(t)
		svc := newEnrollmentServiceForTest(db, servicemocks.NewPaymentGateway(t), servicemocks.NewNotifier(t), repomocks.NewUserRepository(t))
		course := seedCourse(t, db, 0, 2)
		userID := uuid.New()

		first, err := svc.CreateFreeEnrollment(ctx, userID, course.CourseID)
		require.NoError(t, err)
		second, err := svc.CreateFreeEnrollment(ctx, userID, course.CourseID)
		require.NoError(t, err)

		assert.Equal(t, first.EnrollmentID, second.EnrollmentID)

		var count int64
		require.NoError(t, db.Model(&model.Enrollment{}).Where("user_id = ?", userID).Count(&count).Error)
		assert.Equal(t, int64(1), count)
	})

	t.Run("異常系: 有料講座は無料経路で登録できない", func(t *testing.T) {
		db := setupTestDBEnrollment(t)
		svc := newEnrollmentServiceForTest(db, servicemocks.NewPaymentGateway(t), servicemocks.NewNotifier(t), repomocks.NewUserRepository(t))
		course := seedCourse(t, db, 5000, 2)

		enrollment, err := svc.CreateFreeEnrollment(ctx, uuid.New(), course.CourseID)

		require.Error(t, err)
		assert.Nil(t, enrollment)
		assert.ErrorIs(t, err, model.ErrPaymentNotConfirmed)
	})

	t.Run("異常系: 存在しない講座はNotFound", func(t *testing.T) {
		db := setupTestDBEnrollment(t)
		svc := newEnrollmentServiceForTest(db, servicemocks.NewPaymentGateway(t), servicemocks.NewNotifier(t), repomocks.NewUserRepository(t))

		enrollment, err := svc.CreateFreeEnrollment(ctx, uuid.New(), uuid.New())

		require.Error(t, err)
		assert.Nil(t, enrollment)
		assert.ErrorIs(t, err, model.ErrNotFound)
	})
}

// --- Test CreatePaidEnrollment ---
func Test_enrollmentService_CreatePaidEnrollment(t *testing.T) {
	ctx := context.Background()

	t.Run("正常系: 決済確認に成功すると登録時価格をスナップショットして作成される", func(t *testing.T) {
		db := setupTestDBEnrollment(t)
		mockGateway := servicemocks.NewPaymentGateway(t)
		svc := newEnrollmentServiceForTest(db, mockGateway, servicemocks.NewNotifier(t), repomocks.NewUserRepository(t))
		course := seedCourse(t, db, 5000, 3)
		userID := uuid.New()

		mockGateway.On("Confirm", ctx, "pi_123").
			Return(&service.PaymentConfirmation{IntentID: "pi_123", Amount: 5000, Currency: "gbp", Status: service.IntentSucceeded}, nil).Once()

		enrollment, err := svc.CreatePaidEnrollment(ctx, userID, course.CourseID, "pi_123")

		require.NoError(t, err)
		require.NotNil(t, enrollment)
		assert.Equal(t, model.PaymentCompleted, enrollment.PaymentStatus)
		assert.Equal(t, int64(5000), enrollment.PricePaid)
		require.NotNil(t, enrollment.PaymentIntentID)
		assert.Equal(t, "pi_123", *enrollment.PaymentIntentID)
	})

	t.Run("正常系: 同じインテントでのリトライは確認APIを呼ばず既存レコードを返す", func(t *testing.T) {
		db := setupTestDBEnrollment(t)
		mockGateway := servicemocks.NewPaymentGateway(t)
		svc := newEnrollmentServiceForTest(db, mockGateway, servicemocks.NewNotifier(t), repomocks.NewUserRepository(t))
		course := seedCourse(t, db, 5000, 3)
		userID := uuid.New()

		mockGateway.On("Confirm", ctx, "pi_123").
			Return(&service.PaymentConfirmation{IntentID: "pi_123", Amount: 5000, Currency: "gbp", Status: service.IntentSucceeded}, nil).Once()

		first, err := svc.CreatePaidEnrollment(ctx, userID, course.CourseID, "pi_123")
		require.NoError(t, err)

		// 2回目はConfirmのモック期待を追加しない = 呼ばれたらテスト失敗
		second, err := svc.CreatePaidEnrollment(ctx, userID, course.CourseID, "pi_123")
		require.NoError(t, err)

		assert.Equal(t, first.EnrollmentID, second.EnrollmentID)
		mockGateway.AssertNumberOfCalls(t, "Confirm", 1)
	})

	t.Run("異常系: インテントが未成功なら登録は作成されない", func(t *testing.T) {
		db := setupTestDBEnrollment(t)
		mockGateway := servicemocks.NewPaymentGateway(t)
		svc := newEnrollmentServiceForTest(db, mockGateway, servicemocks.NewNotifier(t), repomocks.NewUserRepository(t))
		course := seedCourse(t, db, 5000, 3)
		userID := uuid.New()

		mockGateway.On("Confirm", ctx, "pi_pending").
			Return(&service.PaymentConfirmation{IntentID: "pi_pending", Amount: 5000, Currency: "gbp", Status: service.IntentPending}, nil).Once()

		enrollment, err := svc.CreatePaidEnrollment(ctx, userID, course.CourseID, "pi_pending")

		require.Error(t, err)
		assert.Nil(t, enrollment)
		assert.ErrorIs(t, err, model.ErrPaymentNotConfirmed)

		var count int64
		require.NoError(t, db.Model(&model.Enrollment{}).Where("user_id = ?", userID).Count(&count).Error)
		assert.Equal(t, int64(0), count)
	})

	t.Run("異常系: 決済金額が講座価格に満たない場合は拒否", func(t *testing.T) {
		db := setupTestDBEnrollment(t)
		mockGateway := servicemocks.NewPaymentGateway(t)
		svc := newEnrollmentServiceForTest(db, mockGateway, servicemocks.NewNotifier(t), repomocks.NewUserRepository(t))
		course := seedCourse(t, db, 5000, 3)

		mockGateway.On("Confirm", ctx, "pi_low").
			Return(&service.PaymentConfirmation{IntentID: "pi_low", Amount: 100, Currency: "gbp", Status: service.IntentSucceeded}, nil).Once()

		enrollment, err := svc.CreatePaidEnrollment(ctx, uuid.New(), course.CourseID, "pi_low")

		require.Error(t, err)
		assert.Nil(t, enrollment)
		assert.ErrorIs(t, err, model.ErrPaymentNotConfirmed)
	})

	t.Run("異常系: 決済サービスの障害時は成功レコードを偽造せずErrUpstreamを返す", func(t *testing.T) {
		db := setupTestDBEnrollment(t)
		mockGateway := servicemocks.NewPaymentGateway(t)
		svc := newEnrollmentServiceForTest(db, mockGateway, servicemocks.NewNotifier(t), repomocks.NewUserRepository(t))
		course := seedCourse(t, db, 5000, 3)
		userID := uuid.New()

		upstreamErr := model.NewAppError("UPSTREAM_ERROR", "決済の確認に失敗しました。", "", model.ErrUpstream)
		mockGateway.On("Confirm", ctx, "pi_down").Return(nil, upstreamErr).Once()

		enrollment, err := svc.CreatePaidEnrollment(ctx, userID, course.CourseID, "pi_down")

		require.Error(t, err)
		assert.Nil(t, enrollment)
		assert.ErrorIs(t, err, model.ErrUpstream)

		var count int64
		require.NoError(t, db.Model(&model.Enrollment{}).Where("user_id = ?", userID).Count(&count).Error)
		assert.Equal(t, int64(0), count)
	})

	t.Run("異常系: インテントID無しはバリデーションエラー", func(t *testing.T) {
		db := setupTestDBEnrollment(t)
		svc := newEnrollmentServiceForTest(db, servicemocks.NewPaymentGateway(t), servicemocks.NewNotifier(t), repomocks.NewUserRepository(t))

		enrollment, err := svc.CreatePaidEnrollment(ctx, uuid.New(), uuid.New(), "")

		require.Error(t, err)
		assert.Nil(t, enrollment)
		assert.ErrorIs(t, err, model.ErrInvalidInput)
	})
}

// --- Test MarkLessonComplete ---
func Test_enrollmentService_MarkLessonComplete(t *testing.T) {
	ctx := context.Background()

	enroll := func(t *testing.T, db *gorm.DB, svc service.EnrollmentService, userID uuid.UUID, courseID uuid.UUID) *model.Enrollment {
		t.Helper()
		enrollment, err := svc.CreateFreeEnrollment(ctx, userID, courseID)
		require.NoError(t, err)
		return enrollment
	}

	t.Run("正常系: 3レッスン中1レッスン完了で進捗33%", func(t *testing.T) {
		db := setupTestDBEnrollment(t)
		svc := newEnrollmentServiceForTest(db, servicemocks.NewPaymentGateway(t), servicemocks.NewNotifier(t), repomocks.NewUserRepository(t))
		course := seedCourse(t, db, 0, 3)
		userID := uuid.New()
		identity := model.Identity{UserID: userID, Role: model.RoleStudent}
		enrollment := enroll(t, db, svc, userID, course.CourseID)

		updated, err := svc.MarkLessonComplete(ctx, identity, enrollment.EnrollmentID, course.Lessons[0].LessonID)

		require.NoError(t, err)
		assert.Equal(t, 33, updated.Progress)
		assert.Nil(t, updated.CompletedAt)
	})

	t.Run("正常系: 同じレッスンを二度完了しても進捗は変わらない（冪等）", func(t *testing.T) {
		db := setupTestDBEnrollment(t)
		svc := newEnrollmentServiceForTest(db, servicemocks.NewPaymentGateway(t), servicemocks.NewNotifier(t), repomocks.NewUserRepository(t))
		course := seedCourse(t, db, 0, 3)
		userID := uuid.New()
		identity := model.Identity{UserID: userID, Role: model.RoleStudent}
		enrollment := enroll(t, db, svc, userID, course.CourseID)

		_, err := svc.MarkLessonComplete(ctx, identity, enrollment.EnrollmentID, course.Lessons[0].LessonID)
		require.NoError(t, err)
		updated, err := svc.MarkLessonComplete(ctx, identity, enrollment.EnrollmentID, course.Lessons[0].LessonID)
		require.NoError(t, err)

		assert.Equal(t, 33, updated.Progress)

		var count int64
		require.NoError(t, db.Model(&model.LessonCompletion{}).Where("enrollment_id = ?", enrollment.EnrollmentID).Count(&count).Error)
		assert.Equal(t, int64(1), count)
	})

	t.Run("正常系: 進捗の再計算は行ロック付きの読み取りから始まる", func(t *testing.T) {
		// 同時実行時の直列化はDBの行ロックに依存しているため、
		// 再計算の起点がロック付き読み取りであることをここで固定する。
		// ロックなしのFindByIDに戻すとこのテストは期待外の呼び出しで失敗する。
		db := setupTestDBEnrollment(t)
		mockEnrollmentRepo := repomocks.NewEnrollmentRepository(t)
		mockCourseRepo := repomocks.NewCourseRepository(t)
		svc := service.NewEnrollmentService(db, mockEnrollmentRepo, mockCourseRepo, repomocks.NewUserRepository(t), servicemocks.NewPaymentGateway(t), servicemocks.NewNotifier(t))

		userID := uuid.New()
		courseID := uuid.New()
		enrollmentID := uuid.New()
		lessonID := uuid.New()
		identity := model.Identity{UserID: userID, Role: model.RoleStudent}
		enrollment := &model.Enrollment{
			EnrollmentID:  enrollmentID,
			UserID:        userID,
			CourseID:      courseID,
			PaymentStatus: model.PaymentCompleted,
		}

		mockEnrollmentRepo.On("FindByIDForUpdate", ctx, mock.Anything, enrollmentID).Return(enrollment, nil).Once()
		mockCourseRepo.On("FindLesson", ctx, mock.Anything, courseID, lessonID).Return(&model.Lesson{LessonID: lessonID, CourseID: courseID}, nil).Once()
		mockEnrollmentRepo.On("AddCompletion", ctx, mock.Anything, mock.Anything).Return(nil).Once()
		mockCourseRepo.On("CountLessons", ctx, mock.Anything, courseID).Return(int64(3), nil).Once()
		mockEnrollmentRepo.On("CountCompletions", ctx, mock.Anything, enrollmentID).Return(int64(1), nil).Once()
		mockEnrollmentRepo.On("UpdateProgress", ctx, mock.Anything, mock.Anything).Return(nil).Once()

		updated, err := svc.MarkLessonComplete(ctx, identity, enrollmentID, lessonID)

		require.NoError(t, err)
		assert.Equal(t, 33, updated.Progress)
	})

	t.Run("正常系: 全レッスン完了で100%になり完了時刻が記録され通知される", func(t *testing.T) {
		db := setupTestDBEnrollment(t)
		mockNotifier := servicemocks.NewNotifier(t)
		mockUserRepo := repomocks.NewUserRepository(t)
		svc := newEnrollmentServiceForTest(db, servicemocks.NewPaymentGateway(t), mockNotifier, mockUserRepo)
		course := seedCourse(t, db, 0, 2)
		userID := uuid.New()
		identity := model.Identity{UserID: userID, Role: model.RoleStudent}
		enrollment := enroll(t, db, svc, userID, course.CourseID)

		user := &model.User{UserID: userID, Name: "テスト太郎", Email: "taro@example.com", Role: model.RoleStudent}
		mockUserRepo.On("FindByID", ctx, mock.Anything, userID).Return(user, nil).Once()
		mockNotifier.On("NotifyCourseCompleted", ctx, user, mock.Anything).Return(nil).Once()

		_, err := svc.MarkLessonComplete(ctx, identity, enrollment.EnrollmentID, course.Lessons[0].LessonID)
		require.NoError(t, err)
		updated, err := svc.MarkLessonComplete(ctx, identity, enrollment.EnrollmentID, course.Lessons[1].LessonID)
		require.NoError(t, err)

		assert.Equal(t, 100, updated.Progress)
		require.NotNil(t, updated.CompletedAt)
	})

	t.Run("正常系: 完了後の再完了では完了時刻が変わらず再通知もされない", func(t *testing.T) {
		db := setupTestDBEnrollment(t)
		mockNotifier := servicemocks.NewNotifier(t)
		mockUserRepo := repomocks.NewUserRepository(t)
		svc := newEnrollmentServiceForTest(db, servicemocks.NewPaymentGateway(t), mockNotifier, mockUserRepo)
		course := seedCourse(t, db, 0, 1)
		userID := uuid.New()
		identity := model.Identity{UserID: userID, Role: model.RoleStudent}
		enrollment := enroll(t, db, svc, userID, course.CourseID)

		user := &model.User{UserID: userID, Name: "テスト太郎", Email: "taro@example.com", Role: model.RoleStudent}
		mockUserRepo.On("FindByID", ctx, mock.Anything, userID).Return(user, nil).Once()
		mockNotifier.On("NotifyCourseCompleted", ctx, user, mock.Anything).Return(nil).Once()

		first, err := svc.MarkLessonComplete(ctx, identity, enrollment.EnrollmentID, course.Lessons[0].LessonID)
		require.NoError(t, err)
		require.NotNil(t, first.CompletedAt)
		firstCompletedAt := *first.CompletedAt

		time.Sleep(10 * time.Millisecond)
		second, err := svc.MarkLessonComplete(ctx, identity, enrollment.EnrollmentID, course.Lessons[0].LessonID)
		require.NoError(t, err)

		require.NotNil(t, second.CompletedAt)
		assert.WithinDuration(t, firstCompletedAt, *second.CompletedAt, time.Millisecond)
		mockNotifier.AssertNumberOfCalls(t, "NotifyCourseCompleted", 1)
	})

	t.Run("異常系: 講座に属さないレッスンは完了にできない", func(t *testing.T) {
		db := setupTestDBEnrollment(t)
		svc := newEnrollmentServiceForTest(db, servicemocks.NewPaymentGateway(t), servicemocks.NewNotifier(t), repomocks.NewUserRepository(t))
		course := seedCourse(t, db, 0, 2)
		otherCourse := seedCourse(t, db, 0, 1)
		userID := uuid.New()
		identity := model.Identity{UserID: userID, Role: model.RoleStudent}
		enrollment := enroll(t, db, svc, userID, course.CourseID)

		updated, err := svc.MarkLessonComplete(ctx, identity, enrollment.EnrollmentID, otherCourse.Lessons[0].LessonID)

		require.Error(t, err)
		assert.Nil(t, updated)
		assert.ErrorIs(t, err, model.ErrInvalidInput)

		// 進捗が動いていないこと
		var stored model.Enrollment
		require.NoError(t, db.Where("enrollment_id = ?", enrollment.EnrollmentID).First(&stored).Error)
		assert.Equal(t, 0, stored.Progress)
	})

	t.Run("異常系: 他人の受講登録は操作できない", func(t *testing.T) {
		db := setupTestDBEnrollment(t)
		svc := newEnrollmentServiceForTest(db, servicemocks.NewPaymentGateway(t), servicemocks.NewNotifier(t), repomocks.NewUserRepository(t))
		course := seedCourse(t, db, 0, 2)
		ownerUserID := uuid.New()
		enrollment := enroll(t, db, svc, ownerUserID, course.CourseID)

		intruder := model.Identity{UserID: uuid.New(), Role: model.RoleStudent}
		updated, err := svc.MarkLessonComplete(ctx, intruder, enrollment.EnrollmentID, course.Lessons[0].LessonID)

		require.Error(t, err)
		assert.Nil(t, updated)
		assert.ErrorIs(t, err, model.ErrForbidden)
	})

	t.Run("異常系: 存在しない受講登録はNotFound", func(t *testing.T) {
		db := setupTestDBEnrollment(t)
		svc := newEnrollmentServiceForTest(db, servicemocks.NewPaymentGateway(t), servicemocks.NewNotifier(t), repomocks.NewUserRepository(t))
		identity := model.Identity{UserID: uuid.New(), Role: model.RoleStudent}

		updated, err := svc.MarkLessonComplete(ctx, identity, uuid.New(), uuid.New())

		require.Error(t, err)
		assert.Nil(t, updated)
		assert.ErrorIs(t, err, model.ErrNotFound)
	})
}

// --- Test calculateProgress ---
func Test_calculateProgress(t *testing.T) {
	tests := []struct {
		name      string
		completed int64
		total     int64
		want      int
	}{
		{"0レッスンの講座は0", 0, 0, 0},
		{"未完了は0", 0, 10, 0},
		{"1/3は四捨五入で33", 1, 3, 33},
		{"2/3は四捨五入で67", 2, 3, 67},
		{"1/6は四捨五入で17", 1, 6, 17},
		{"全完了は100", 5, 5, 100},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, service.CalculateProgressForTest(tt.completed, tt.total))
		})
	}
}
