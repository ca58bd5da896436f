//go:generate mockery --name CourseRepository --output ./mocks --outpkg mocks --case=underscore
package repository

import (
	"context"
	"errors"
	"fmt"

	"go_5_course_market/internal/middleware"
	"go_5_course_market/internal/model"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

// CourseRepository は講座・レッスンの読み取りアクセサです。
// このコアでは講座データはリクエスト内で読み取り専用として扱います。
type CourseRepository interface {
	FindByID(ctx context.Context, db *gorm.DB, courseID uuid.UUID) (*model.Course, error)
	FindLesson(ctx context.Context, db *gorm.DB, courseID, lessonID uuid.UUID) (*model.Lesson, error)
	FindByOwner(ctx context.Context, db *gorm.DB, ownerID uuid.UUID) ([]*model.Course, error)
	CountLessons(ctx context.Context, db *gorm.DB, courseID uuid.UUID) (int64, error)
}

type gormCourseRepository struct{}

func NewGormCourseRepository() CourseRepository {
	return &gormCourseRepository{}
}

func (r *gormCourseRepository) FindByID(ctx context.Context, db *gorm.DB, courseID uuid.UUID) (*model.Course, error) {
	var course model.Course
	// レッスンは正規順（セクション出現順の元になる並び）でPreloadする
	result := db.WithContext(ctx).
		Preload("Lessons", func(db *gorm.DB) *gorm.DB {
			return db.Order("lessons.order_index ASC, lessons.lesson_id ASC")
		}).
		Where("course_id = ?", courseID).
		First(&course)
	if result.Error != nil {
		if errors.Is(result.Error, gorm.ErrRecordNotFound) {
			return nil, model.ErrNotFound
		}
		return nil, fmt.Errorf("gormCourseRepository.FindByID: %w", result.Error)
	}
	return &course, nil
}

func (r *gormCourseRepository) FindLesson(ctx context.Context, db *gorm.DB, courseID, lessonID uuid.UUID) (*model.Lesson, error) {
	var lesson model.Lesson
	result := db.WithContext(ctx).
		Where("course_id = ? AND lesson_id = ?", courseID, lessonID).
		First(&lesson)
	if result.Error != nil {
		if errors.Is(result.Error, gorm.ErrRecordNotFound) {
			return nil, model.ErrNotFound
		}
		return nil, fmt.Errorf("gormCourseRepository.FindLesson: %w", result.Error)
	}
	return &lesson, nil
}

func (r *gormCourseRepository) FindByOwner(ctx context.Context, db *gorm.DB, ownerID uuid.UUID) ([]*model.Course, error) {
	logger := middleware.GetLogger(ctx)

	var courses []*model.Course
	result := db.WithContext(ctx).
		Preload("Lessons").
		Where("owner_id = ?", ownerID).
		Order("created_at ASC").
		Find(&courses)
	if result.Error != nil {
		logger.Error("Error finding courses by owner", "error", result.Error, "owner_id", ownerID)
		return nil, fmt.Errorf("gormCourseRepository.FindByOwner: %w", result.Error)
	}
	return courses, nil
}

func (r *gormCourseRepository) CountLessons(ctx context.Context, db *gorm.DB, courseID uuid.UUID) (int64, error) {
	var count int64
	result := db.WithContext(ctx).
		Model(&model.Lesson{}).
		Where("course_id = ?", courseID).
		Count(&count)
	if result.Error != nil {
		return 0, fmt.Errorf("gormCourseRepository.CountLessons: %w", result.Error)
	}
	return count, nil
}
