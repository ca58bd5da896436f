// internal/handlers/analytics_handler.go
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

type AnalyticsHandler struct {
	service service.AnalyticsService
	logger  *slog.Logger
}

func NewAnalyticsHandler(s service.AnalyticsService, logger *slog.Logger) *AnalyticsHandler {
	if logger == nil {
		logger = slog.Default()
	}
	return &AnalyticsHandler{
		service: s,
		logger:  logger,
	}
}

// GetInstructorAnalytics は講師ダッシュボードの集計を取得するためのハンドラ
func (h *AnalyticsHandler) GetInstructorAnalytics(w http.ResponseWriter, r *http.Request) {
	logger := h.logger.With(slog.String("handler", "GetInstructorAnalytics"))

	identity, err := middleware.RequireIdentityFromContext(r.Context())
	if err != nil {
		logger.Warn("Identity not found in context", slog.String("error", err.Error()))
		webutil.HandleError(w, logger, err)
		return
	}
	logger = logger.With(slog.String("user_id", identity.UserID.String()))

	instructorIDStr := chi.URLParam(r, "instructor_id")
	instructorID, err := uuid.Parse(instructorIDStr)
	if err != nil {
		logger.Warn("Invalid instructor ID format in URL", slog.String("instructor_id_str", instructorIDStr), slog.String("error", err.Error()))
		appErr := model.NewAppError("INVALID_URL_PARAM", "instructor_idの形式が正しくありません。", "instructor_id", model.ErrInvalidInput)
		webutil.HandleError(w, logger, appErr)
		return
	}
	logger = logger.With(slog.String("instructor_id", instructorID.String()))

	analytics, err := h.service.GetInstructorAnalytics(r.Context(), identity, instructorID)
	if err != nil {
		if errors.Is(err, model.ErrForbidden) {
			logger.Info("Instructor analytics access denied", slog.Any("error", err))
		} else {
			logger.Error("Error getting instructor analytics from service", slog.Any("error", err))
		}
		webutil.HandleError(w, logger, err)
		return
	}

	logger.Info("Instructor analytics retrieved successfully", slog.Int64("total_revenue", analytics.TotalRevenue))
	webutil.RespondWithJSON(w, http.StatusOK, analytics)
}

// GetCourseAnalytics は単一講座のダッシュボード集計を取得するためのハンドラ
func (h *AnalyticsHandler) GetCourseAnalytics(w http.ResponseWriter, r *http.Request) {
	logger := h.logger.With(slog.String("handler", "GetCourseAnalytics"))

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

	analytics, err := h.service.GetCourseAnalytics(r.Context(), identity, courseID)
	if err != nil {
		if errors.Is(err, model.ErrForbidden) || errors.Is(err, model.ErrNotFound) {
			logger.Info("Course analytics access rejected", slog.Any("error", err))
		} else {
			logger.Error("Error getting course analytics from service", slog.Any("error", err))
		}
		webutil.HandleError(w, logger, err)
		return
	}

	logger.Info("Course analytics retrieved successfully", slog.Int("total_enrollments", analytics.TotalEnrollments))
	webutil.RespondWithJSON(w, http.StatusOK, analytics)
}
