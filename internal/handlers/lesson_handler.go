// internal/handlers/lesson_handler.go
package handlers

import (
	"errors"
	"log/slog"
	"net/http"

	"go_5_course_market/internal/middleware"
	"go_5_course_market/internal/model"
	"go_5_course_market/internal/service"
	"go_5_course_market/internal/webutil"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"
)

type LessonHandler struct {
	entitlementService service.EntitlementService
	progressService    service.ProgressService
	logger             *slog.Logger
}

func NewLessonHandler(es service.EntitlementService, ps service.ProgressService, logger *slog.Logger) *LessonHandler {
	if logger == nil {
		logger = slog.Default()
	}
	return &LessonHandler{
		entitlementService: es,
		progressService:    ps,
		logger:             logger,
	}
}

// GetLesson はレッスンを取得するためのハンドラ。
// 認証は任意で、匿名ユーザーはプレビューレッスンのみ閲覧できます。
func (h *LessonHandler) GetLesson(w http.ResponseWriter, r *http.Request) {
	logger := h.logger.With(slog.String("handler", "GetLesson"))

	// 匿名はIdentityゼロ値として扱う
	identity := middleware.GetIdentityFromContext(r.Context())
	if !identity.IsAnonymous() {
		logger = logger.With(slog.String("user_id", identity.UserID.String()))
	}

	courseIDStr := chi.URLParam(r, "course_id")
	courseID, err := uuid.Parse(courseIDStr)
	if err != nil {
		logger.Warn("Invalid course ID format in URL", slog.String("course_id_str", courseIDStr), slog.String("error", err.Error()))
		appErr := model.NewAppError("INVALID_URL_PARAM", "course_idの形式が正しくありません。", "course_id", model.ErrInvalidInput)
		webutil.HandleError(w, logger, appErr)
		return
	}
	lessonIDStr := chi.URLParam(r, "lesson_id")
	lessonID, err := uuid.Parse(lessonIDStr)
	if err != nil {
		logger.Warn("Invalid lesson ID format in URL", slog.String("lesson_id_str", lessonIDStr), slog.String("error", err.Error()))
		appErr := model.NewAppError("INVALID_URL_PARAM", "lesson_idの形式が正しくありません。", "lesson_id", model.ErrInvalidInput)
		webutil.HandleError(w, logger, appErr)
		return
	}
	logger = logger.With(slog.String("course_id", courseID.String()), slog.String("lesson_id", lessonID.String()))

	lesson, err := h.entitlementService.ViewLesson(r.Context(), identity, courseID, lessonID)
	if err != nil {
		if errors.Is(err, model.ErrForbidden) || errors.Is(err, model.ErrNotFound) {
			logger.Info("Lesson view rejected", slog.Any("error", err))
		} else {
			logger.Error("Error viewing lesson in service", slog.Any("error", err))
		}
		webutil.HandleError(w, logger, err)
		return
	}

	logger.Info("Lesson retrieved successfully")
	webutil.RespondWithJSON(w, http.StatusOK, lesson)
}

// GetCourseProgress は講座の進捗サマリーを取得するためのハンドラ
func (h *LessonHandler) GetCourseProgress(w http.ResponseWriter, r *http.Request) {
	logger := h.logger.With(slog.String("handler", "GetCourseProgress"))

	identity, err := middleware.RequireIdentityFromContext(r.Context())
	if err != nil {
		logger.Warn("Identity not found in context", slog.String("error", err.Error()))
		webutil.HandleError(w, logger, err)
		return
	}
	logger = logger.With(slog.String("user_id", identity.UserID.String()))

	courseIDStr := chi.URLParam(r, "course_id")
	courseID, err := uuid.Parse(courseIDStr)
	if err != nil {
		logger.Warn("Invalid course ID format in URL", slog.String("course_id_str", courseIDStr), slog.String("error", err.Error()))
		appErr := model.NewAppError("INVALID_URL_PARAM", "course_idの形式が正しくありません。", "course_id", model.ErrInvalidInput)
		webutil.HandleError(w, logger, appErr)
		return
	}
	logger = logger.With(slog.String("course_id", courseID.String()))

	progress, err := h.progressService.GetCourseProgress(r.Context(), identity.UserID, courseID)
	if err != nil {
		if errors.Is(err, model.ErrNotFound) {
			logger.Info("Progress not available", slog.Any("error", err))
		} else {
			logger.Error("Error getting course progress from service", slog.Any("error", err))
		}
		webutil.HandleError(w, logger, err)
		return
	}

	logger.Info("Course progress retrieved successfully", slog.Int("progress", progress.Progress))
	webutil.RespondWithJSON(w, http.StatusOK, progress)
}
