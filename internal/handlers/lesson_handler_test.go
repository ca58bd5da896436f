// internal/handlers/lesson_handler_test.go
package handlers_test

import (
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"

	"go_5_course_market/internal/handlers"
	"go_5_course_market/internal/middleware"
	"go_5_course_market/internal/model"
	"go_5_course_market/internal/service/mocks"
)

func setupLessonRouter(mockEntitlement *mocks.EntitlementService, mockProgress *mocks.ProgressService) chi.Router {
	cfg := testConfig()
	handler := handlers.NewLessonHandler(mockEntitlement, mockProgress, nil)

	r := chi.NewRouter()
	r.Group(func(r chi.Router) {
		r.Use(middleware.OptionalAuthMiddleware(cfg))
		r.Get("/api/v1/courses/{course_id}/lessons/{lesson_id}", handler.GetLesson)
	})
	r.Group(func(r chi.Router) {
		r.Use(middleware.JWTAuthMiddleware(cfg))
		r.Get("/api/v1/courses/{course_id}/progress", handler.GetCourseProgress)
	})
	return r
}

func TestLessonHandler_GetLesson(t *testing.T) {
	courseID := uuid.New()
	lessonID := uuid.New()

	t.Run("正常系: 匿名ユーザーがプレビューレッスンを閲覧できる", func(t *testing.T) {
		mockEntitlement := mocks.NewEntitlementService(t)
		mockProgress := mocks.NewProgressService(t)
		lesson := &model.LessonViewResponse{
			LessonID:  lessonID,
			CourseID:  courseID,
			Title:     "はじめに",
			Section:   "Introduction",
			IsPreview: true,
		}
		mockEntitlement.On("ViewLesson", mock.Anything, model.Identity{}, courseID, lessonID).
			Return(lesson, nil).Once()
		router := setupLessonRouter(mockEntitlement, mockProgress)

		path := fmt.Sprintf("/api/v1/courses/%s/lessons/%s", courseID, lessonID)
		req := createRequest(t, "GET", path, nil, "") // 認証ヘッダーなし
		rr := httptest.NewRecorder()
		router.ServeHTTP(rr, req)

		assert.Equal(t, http.StatusOK, rr.Code)

		var resp model.LessonViewResponse
		assert.NoError(t, json.Unmarshal(rr.Body.Bytes(), &resp))
		assert.Equal(t, lessonID, resp.LessonID)
		assert.True(t, resp.IsPreview)
	})

	t.Run("異常系: 未登録ユーザーの通常レッスン閲覧は403と理由コード", func(t *testing.T) {
		mockEntitlement := mocks.NewEntitlementService(t)
		mockProgress := mocks.NewProgressService(t)
		appErr := model.NewAppError(string(model.DenyEnrollmentRequired), "このレッスンの閲覧には受講登録が必要です。", "", model.ErrForbidden)
		mockEntitlement.On("ViewLesson", mock.Anything, model.Identity{}, courseID, lessonID).
			Return(nil, appErr).Once()
		router := setupLessonRouter(mockEntitlement, mockProgress)

		path := fmt.Sprintf("/api/v1/courses/%s/lessons/%s", courseID, lessonID)
		req := createRequest(t, "GET", path, nil, "")
		rr := httptest.NewRecorder()
		router.ServeHTTP(rr, req)

		assert.Equal(t, http.StatusForbidden, rr.Code)

		errResp := decodeErrorResponse(t, rr)
		assert.Equal(t, "ENROLLMENT_REQUIRED", errResp.Error.Code)
	})

	t.Run("正常系: 認証済みユーザーのIdentityがサービスに渡る", func(t *testing.T) {
		mockEntitlement := mocks.NewEntitlementService(t)
		mockProgress := mocks.NewProgressService(t)
		userID := uuid.New()
		identity := model.Identity{UserID: userID, Role: model.RoleStudent}
		lesson := &model.LessonViewResponse{LessonID: lessonID, CourseID: courseID, Title: "構造体", Completed: true}
		mockEntitlement.On("ViewLesson", mock.Anything, identity, courseID, lessonID).
			Return(lesson, nil).Once()
		router := setupLessonRouter(mockEntitlement, mockProgress)

		path := fmt.Sprintf("/api/v1/courses/%s/lessons/%s", courseID, lessonID)
		req := createRequest(t, "GET", path, nil, makeToken(t, userID, model.RoleStudent))
		rr := httptest.NewRecorder()
		router.ServeHTTP(rr, req)

		assert.Equal(t, http.StatusOK, rr.Code)

		var resp model.LessonViewResponse
		assert.NoError(t, json.Unmarshal(rr.Body.Bytes(), &resp))
		assert.True(t, resp.Completed)
	})

	t.Run("異常系: 不正なトークンは匿名扱いにせず401", func(t *testing.T) {
		mockEntitlement := mocks.NewEntitlementService(t)
		mockProgress := mocks.NewProgressService(t)
		router := setupLessonRouter(mockEntitlement, mockProgress)

		path := fmt.Sprintf("/api/v1/courses/%s/lessons/%s", courseID, lessonID)
		req := createRequest(t, "GET", path, nil, "broken-token")
		rr := httptest.NewRecorder()
		router.ServeHTTP(rr, req)

		assert.Equal(t, http.StatusUnauthorized, rr.Code)
	})
}

func TestLessonHandler_GetCourseProgress(t *testing.T) {
	courseID := uuid.New()
	userID := uuid.New()
	token := makeToken(t, userID, model.RoleStudent)

	t.Run("正常系: 進捗サマリーを取得できる", func(t *testing.T) {
		mockEntitlement := mocks.NewEntitlementService(t)
		mockProgress := mocks.NewProgressService(t)
		progress := &model.CourseProgressResponse{
			CourseID: courseID,
			Progress: 67,
			Sections: []model.SectionProgress{
				{Section: "Basics", Completed: 2, Total: 3, Percentage: 67},
			},
			EstimatedCompletion: "About 2 days",
		}
		mockProgress.On("GetCourseProgress", mock.Anything, userID, courseID).Return(progress, nil).Once()
		router := setupLessonRouter(mockEntitlement, mockProgress)

		path := fmt.Sprintf("/api/v1/courses/%s/progress", courseID)
		req := createRequest(t, "GET", path, nil, token)
		rr := httptest.NewRecorder()
		router.ServeHTTP(rr, req)

		assert.Equal(t, http.StatusOK, rr.Code)

		var resp model.CourseProgressResponse
		assert.NoError(t, json.Unmarshal(rr.Body.Bytes(), &resp))
		assert.Equal(t, 67, resp.Progress)
		assert.Equal(t, "About 2 days", resp.EstimatedCompletion)
	})

	t.Run("異常系: 認証ヘッダーなしは401", func(t *testing.T) {
		mockEntitlement := mocks.NewEntitlementService(t)
		mockProgress := mocks.NewProgressService(t)
		router := setupLessonRouter(mockEntitlement, mockProgress)

		path := fmt.Sprintf("/api/v1/courses/%s/progress", courseID)
		req := createRequest(t, "GET", path, nil, "")
		rr := httptest.NewRecorder()
		router.ServeHTTP(rr, req)

		assert.Equal(t, http.StatusUnauthorized, rr.Code)
	})

	t.Run("異常系: 未登録は404", func(t *testing.T) {
		mockEntitlement := mocks.NewEntitlementService(t)
		mockProgress := mocks.NewProgressService(t)
		mockProgress.On("GetCourseProgress", mock.Anything, userID, courseID).Return(nil, model.ErrNotFound).Once()
		router := setupLessonRouter(mockEntitlement, mockProgress)

		path := fmt.Sprintf("/api/v1/courses/%s/progress", courseID)
		req := createRequest(t, "GET", path, nil, token)
		rr := httptest.NewRecorder()
		router.ServeHTTP(rr, req)

		assert.Equal(t, http.StatusNotFound, rr.Code)
	})
}
