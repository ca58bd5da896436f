//go:generate mockery --name EnrollmentRepository --output ./mocks --outpkg mocks --case=underscore
package repository

import (
	"context"
	"errors"
	"fmt"

	"go_5_course_market/internal/middleware"
	"go_5_course_market/internal/model"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgconn"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// EnrollmentRepository は受講登録と完了レッスン集合の永続化を担います。
type EnrollmentRepository interface {
	Create(ctx context.Context, tx *gorm.DB, enrollment *model.Enrollment) error
	FindByID(ctx context.Context, db *gorm.DB, enrollmentID uuid.UUID) (*model.Enrollment, error)
	FindByIDForUpdate(ctx context.Context, tx *gorm.DB, enrollmentID uuid.UUID) (*model.Enrollment, error)
	FindByUserAndCourse(ctx context.Context, db *gorm.DB, userID, courseID uuid.UUID) (*model.Enrollment, error)
	AddCompletion(ctx context.Context, tx *gorm.DB, completion *model.LessonCompletion) error
	CountCompletions(ctx context.Context, tx *gorm.DB, enrollmentID uuid.UUID) (int64, error)
	UpdateProgress(ctx context.Context, tx *gorm.DB, enrollment *model.Enrollment) error
	FindByCourse(ctx context.Context, db *gorm.DB, courseID uuid.UUID) ([]*model.Enrollment, error)
	FindByCourseIDs(ctx context.Context, db *gorm.DB, courseIDs []uuid.UUID) ([]*model.Enrollment, error)
}

type gormEnrollmentRepository struct{}

func NewGormEnrollmentRepository() EnrollmentRepository {
	return &gormEnrollmentRepository{}
}

func (r *gormEnrollmentRepository) Create(ctx context.Context, tx *gorm.DB, enrollment *model.Enrollment) error {
	logger := middleware.GetLogger(ctx)

	result := tx.WithContext(ctx).Create(enrollment)
	if result.Error != nil {
		// (user_id, course_id) の複合ユニーク制約違反は呼び出し元で
		// 「既存レコードを返す」冪等処理に使うため ErrConflict に変換する
		var pgErr *pgconn.PgError
		if errors.As(result.Error, &pgErr) && pgErr.Code == "23505" {
			logger.Warn("Duplicate key error on create enrollment",
				"user_id", enrollment.UserID,
				"course_id", enrollment.CourseID,
			)
			return model.ErrConflict
		}
		if errors.Is(result.Error, gorm.ErrDuplicatedKey) {
			return model.ErrConflict
		}

		logger.Error("Error creating enrollment in DB",
			"error", result.Error,
			"user_id", enrollment.UserID,
			"course_id", enrollment.CourseID,
		)
		return fmt.Errorf("gormEnrollmentRepository.Create: %w", result.Error)
	}
	return nil
}

func (r *gormEnrollmentRepository) FindByID(ctx context.Context, db *gorm.DB, enrollmentID uuid.UUID) (*model.Enrollment, error) {
	var enrollment model.Enrollment
	result := db.WithContext(ctx).
		Preload("Completions").
		Where("enrollment_id = ?", enrollmentID).
		First(&enrollment)
	if result.Error != nil {
		if errors.Is(result.Error, gorm.ErrRecordNotFound) {
			return nil, model.ErrNotFound
		}
		return nil, fmt.Errorf("gormEnrollmentRepository.FindByID: %w", result.Error)
	}
	return &enrollment, nil
}

// FindByIDForUpdate は受講登録を行ロック付き (SELECT ... FOR UPDATE) で取得します。
// 同一レコードへの read-modify-write をトランザクション内で直列化するために使います。
// 進捗は完了行から再集計するため Completions の Preload はしません。
func (r *gormEnrollmentRepository) FindByIDForUpdate(ctx context.Context, tx *gorm.DB, enrollmentID uuid.UUID) (*model.Enrollment, error) {
	var enrollment model.Enrollment
	result := tx.WithContext(ctx).
		Clauses(clause.Locking{Strength: "UPDATE"}).
		Where("enrollment_id = ?", enrollmentID).
		First(&enrollment)
	if result.Error != nil {
		if errors.Is(result.Error, gorm.ErrRecordNotFound) {
			return nil, model.ErrNotFound
		}
		return nil, fmt.Errorf("gormEnrollmentRepository.FindByIDForUpdate: %w", result.Error)
	}
	return &enrollment, nil
}

func (r *gormEnrollmentRepository) FindByUserAndCourse(ctx context.Context, db *gorm.DB, userID, courseID uuid.UUID) (*model.Enrollment, error) {
	var enrollment model.Enrollment
	result := db.WithContext(ctx).
		Preload("Completions").
		Where("user_id = ? AND course_id = ?", userID, courseID).
		First(&enrollment)
	if result.Error != nil {
		if errors.Is(result.Error, gorm.ErrRecordNotFound) {
			return nil, model.ErrNotFound
		}
		return nil, fmt.Errorf("gormEnrollmentRepository.FindByUserAndCourse: %w", result.Error)
	}
	return &enrollment, nil
}

// AddCompletion は完了レッスンを集合に追加します。
// (enrollment_id, lesson_id) が既に存在する場合は何もしない（和集合のセマンティクス）。
func (r *gormEnrollmentRepository) AddCompletion(ctx context.Context, tx *gorm.DB, completion *model.LessonCompletion) error {
	result := tx.WithContext(ctx).
		Clauses(clause.OnConflict{
			Columns:   []clause.Column{{Name: "enrollment_id"}, {Name: "lesson_id"}},
			DoNothing: true,
		}).
		Create(completion)
	if result.Error != nil {
		return fmt.Errorf("gormEnrollmentRepository.AddCompletion: %w", result.Error)
	}
	return nil
}

func (r *gormEnrollmentRepository) CountCompletions(ctx context.Context, tx *gorm.DB, enrollmentID uuid.UUID) (int64, error) {
	var count int64
	result := tx.WithContext(ctx).
		Model(&model.LessonCompletion{}).
		Where("enrollment_id = ?", enrollmentID).
		Count(&count)
	if result.Error != nil {
		return 0, fmt.Errorf("gormEnrollmentRepository.CountCompletions: %w", result.Error)
	}
	return count, nil
}

func (r *gormEnrollmentRepository) UpdateProgress(ctx context.Context, tx *gorm.DB, enrollment *model.Enrollment) error {
	// progress と completed_at のみ更新する（他カラムの同時更新と衝突させない）
	updates := map[string]interface{}{
		"progress": enrollment.Progress,
	}
	if enrollment.CompletedAt != nil {
		updates["completed_at"] = enrollment.CompletedAt
	}
	result := tx.WithContext(ctx).
		Model(&model.Enrollment{}).
		Where("enrollment_id = ?", enrollment.EnrollmentID).
		Updates(updates)
	if result.Error != nil {
		return fmt.Errorf("gormEnrollmentRepository.UpdateProgress: %w", result.Error)
	}
	if result.RowsAffected == 0 {
		return model.ErrNotFound
	}
	return nil
}

func (r *gormEnrollmentRepository) FindByCourse(ctx context.Context, db *gorm.DB, courseID uuid.UUID) ([]*model.Enrollment, error) {
	var enrollments []*model.Enrollment
	result := db.WithContext(ctx).
		Where("course_id = ?", courseID).
		Order("enrolled_at ASC").
		Find(&enrollments)
	if result.Error != nil {
		return nil, fmt.Errorf("gormEnrollmentRepository.FindByCourse: %w", result.Error)
	}
	return enrollments, nil
}

func (r *gormEnrollmentRepository) FindByCourseIDs(ctx context.Context, db *gorm.DB, courseIDs []uuid.UUID) ([]*model.Enrollment, error) {
	if len(courseIDs) == 0 {
		return []*model.Enrollment{}, nil
	}
	var enrollments []*model.Enrollment
	result := db.WithContext(ctx).
		Where("course_id IN ?", courseIDs).
		Order("enrolled_at ASC").
		Find(&enrollments)
	if result.Error != nil {
		return nil, fmt.Errorf("gormEnrollmentRepository.FindByCourseIDs: %w", result.Error)
	}
	return enrollments, nil
}
