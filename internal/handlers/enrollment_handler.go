// internal/handlers/enrollment_handler.go
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

type EnrollmentHandler struct {
	service service.EnrollmentService
	logger  *slog.Logger
}

func NewEnrollmentHandler(s service.EnrollmentService, logger *slog.Logger) *EnrollmentHandler {
	if logger == nil {
		logger = slog.Default()
	}
	return &EnrollmentHandler{
		service: s,
		logger:  logger,
	}
}

// PostEnrollment は受講登録を作成するためのハンドラ。
// ボディの payment_intent_id の有無で無料/有料の経路を分けます。
func (h *EnrollmentHandler) PostEnrollment(w http.ResponseWriter, r *http.Request) {
	logger := h.logger.With(slog.String("handler", "PostEnrollment"))

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

	// ボディは任意（無料講座は空ボディでよい）
	var req model.EnrollRequest
	if err := webutil.DecodeJSONBody(r, &req); err != nil {
		logger.Warn("Failed to decode request body", slog.String("error", err.Error()))
		webutil.HandleError(w, logger, err)
		return
	}
	if err := webutil.ValidateStruct(&req); err != nil {
		logger.Warn("Validation failed for request body", slog.String("error", err.Error()))
		webutil.HandleError(w, logger, err)
		return
	}

	var enrollment *model.Enrollment
	if req.PaymentIntentID == nil {
		enrollment, err = h.service.CreateFreeEnrollment(r.Context(), identity.UserID, courseID)
	} else {
		enrollment, err = h.service.CreatePaidEnrollment(r.Context(), identity.UserID, courseID, *req.PaymentIntentID)
	}
	if err != nil {
		if errors.Is(err, model.ErrPaymentNotConfirmed) {
			logger.Info("Enrollment rejected: payment not confirmed", slog.Any("error", err))
		} else {
			logger.Error("Error creating enrollment in service", slog.Any("error", err))
		}
		webutil.HandleError(w, logger, err)
		return
	}

	logger.Info("Enrollment created successfully", slog.String("enrollment_id", enrollment.EnrollmentID.String()))
	webutil.RespondWithJSON(w, http.StatusCreated, model.NewEnrollmentResponse(enrollment))
}

// GetEnrollment は自分の受講登録を取得するためのハンドラ
func (h *EnrollmentHandler) GetEnrollment(w http.ResponseWriter, r *http.Request) {
	logger := h.logger.With(slog.String("handler", "GetEnrollment"))

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

	enrollment, err := h.service.GetEnrollment(r.Context(), identity.UserID, courseID)
	if err != nil {
		if errors.Is(err, model.ErrNotFound) {
			logger.Info("Enrollment not found", slog.Any("error", err))
		} else {
			logger.Error("Error getting enrollment from service", slog.Any("error", err))
		}
		webutil.HandleError(w, logger, err)
		return
	}

	logger.Info("Enrollment retrieved successfully")
	webutil.RespondWithJSON(w, http.StatusOK, model.NewEnrollmentResponse(enrollment))
}

// CompleteLesson はレッスン完了を記録するためのハンドラ
func (h *EnrollmentHandler) CompleteLesson(w http.ResponseWriter, r *http.Request) {
	logger := h.logger.With(slog.String("handler", "CompleteLesson"))

	identity, err := middleware.RequireIdentityFromContext(r.Context())
	if err != nil {
		logger.Warn("Identity not found in context", slog.String("error", err.Error()))
		webutil.HandleError(w, logger, err)
		return
	}
	logger = logger.With(slog.String("user_id", identity.UserID.String()))

	enrollmentIDStr := chi.URLParam(r, "enrollment_id")
	enrollmentID, err := uuid.Parse(enrollmentIDStr)
	if err != nil {
		logger.Warn("Invalid enrollment ID format in URL", slog.String("enrollment_id_str", enrollmentIDStr), slog.String("error", err.Error()))
		appErr := model.NewAppError("INVALID_URL_PARAM", "enrollment_idの形式が正しくありません。", "enrollment_id", model.ErrInvalidInput)
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
	logger = logger.With(slog.String("enrollment_id", enrollmentID.String()), slog.String("lesson_id", lessonID.String()))

	enrollment, err := h.service.MarkLessonComplete(r.Context(), identity, enrollmentID, lessonID)
	if err != nil {
		if errors.Is(err, model.ErrNotFound) || errors.Is(err, model.ErrInvalidInput) {
			logger.Info("Lesson completion rejected", slog.Any("error", err))
		} else {
			logger.Error("Error marking lesson complete in service", slog.Any("error", err))
		}
		webutil.HandleError(w, logger, err)
		return
	}

	logger.Info("Lesson marked complete", slog.Int("progress", enrollment.Progress))
	webutil.RespondWithJSON(w, http.StatusOK, model.NewEnrollmentResponse(enrollment))
}
