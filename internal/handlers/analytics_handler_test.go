// internal/handlers/analytics_handler_test.go
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

func setupAnalyticsRouter(mockService *mocks.AnalyticsService) chi.Router {
	cfg := testConfig()
	handler := handlers.NewAnalyticsHandler(mockService, nil)

	r := chi.NewRouter()
	r.Group(func(r chi.Router) {
		r.Use(middleware.JWTAuthMiddleware(cfg))
		r.Get("/api/v1/instructors/{instructor_id}/analytics", handler.GetInstructorAnalytics)
		r.Get("/api/v1/courses/{course_id}/analytics", handler.GetCourseAnalytics)
	})
	return r
}

func TestAnalyticsHandler_GetInstructorAnalytics(t *testing.T) {
	instructorID := uuid.New()
	token := makeToken(t, instructorID, model.RoleInstructor)
	identity := model.Identity{UserID: instructorID, Role: model.RoleInstructor}

	t.Run("正常系: 講師本人がダッシュボードを取得できる", func(t *testing.T) {
		mockService := mocks.NewAnalyticsService(t)
		analytics := &model.InstructorAnalyticsResponse{
			TotalRevenue: 3000,
			CourseStats: []model.CourseStat{
				{CourseID: uuid.New(), Title: "Go入門", TotalEnrollments: 5, CompletionRate: 33, Revenue: 3000},
			},
			EngagementBuckets: []model.EngagementBucket{
				{Label: "0-25%", Count: 2}, {Label: "25-50%", Count: 1},
				{Label: "50-75%", Count: 1}, {Label: "75-100%", Count: 1},
			},
		}
		mockService.On("GetInstructorAnalytics", mock.Anything, identity, instructorID).
			Return(analytics, nil).Once()
		router := setupAnalyticsRouter(mockService)

		path := fmt.Sprintf("/api/v1/instructors/%s/analytics", instructorID)
		req := createRequest(t, "GET", path, nil, token)
		rr := httptest.NewRecorder()
		router.ServeHTTP(rr, req)

		assert.Equal(t, http.StatusOK, rr.Code)

		var resp model.InstructorAnalyticsResponse
		assert.NoError(t, json.Unmarshal(rr.Body.Bytes(), &resp))
		assert.Equal(t, int64(3000), resp.TotalRevenue)
		assert.Len(t, resp.CourseStats, 1)
	})

	t.Run("異常系: 他人のダッシュボードは403", func(t *testing.T) {
		mockService := mocks.NewAnalyticsService(t)
		otherID := uuid.New()
		appErr := model.NewAppError("FORBIDDEN", "このダッシュボードを閲覧する権限がありません。", "", model.ErrForbidden)
		mockService.On("GetInstructorAnalytics", mock.Anything, identity, otherID).
			Return(nil, appErr).Once()
		router := setupAnalyticsRouter(mockService)

		path := fmt.Sprintf("/api/v1/instructors/%s/analytics", otherID)
		req := createRequest(t, "GET", path, nil, token)
		rr := httptest.NewRecorder()
		router.ServeHTTP(rr, req)

		assert.Equal(t, http.StatusForbidden, rr.Code)
	})

	t.Run("異常系: 認証ヘッダーなしは401", func(t *testing.T) {
		mockService := mocks.NewAnalyticsService(t)
		router := setupAnalyticsRouter(mockService)

		path := fmt.Sprintf("/api/v1/instructors/%s/analytics", instructorID)
		req := createRequest(t, "GET", path, nil, "")
		rr := httptest.NewRecorder()
		router.ServeHTTP(rr, req)

		assert.Equal(t, http.StatusUnauthorized, rr.Code)
	})
}

func TestAnalyticsHandler_GetCourseAnalytics(t *testing.T) {
	ownerID := uuid.New()
	courseID := uuid.New()
	token := makeToken(t, ownerID, model.RoleInstructor)
	identity := model.Identity{UserID: ownerID, Role: model.RoleInstructor}

	t.Run("正常系: 講座単位の集計を取得できる", func(t *testing.T) {
		mockService := mocks.NewAnalyticsService(t)
		analytics := &model.CourseAnalyticsResponse{
			CourseID:         courseID,
			TotalEnrollments: 3,
			CompletionRate:   33,
			EnrollmentsByDate: []model.DateCount{
				{Date: "2026-08-10", Count: 2},
				{Date: "2026-08-12", Count: 1},
			},
		}
		mockService.On("GetCourseAnalytics", mock.Anything, identity, courseID).
			Return(analytics, nil).Once()
		router := setupAnalyticsRouter(mockService)

		path := fmt.Sprintf("/api/v1/courses/%s/analytics", courseID)
		req := createRequest(t, "GET", path, nil, token)
		rr := httptest.NewRecorder()
		router.ServeHTTP(rr, req)

		assert.Equal(t, http.StatusOK, rr.Code)

		var resp model.CourseAnalyticsResponse
		assert.NoError(t, json.Unmarshal(rr.Body.Bytes(), &resp))
		assert.Equal(t, 3, resp.TotalEnrollments)
		assert.Len(t, resp.EnrollmentsByDate, 2)
	})

	t.Run("異常系: 存在しない講座は404", func(t *testing.T) {
		mockService := mocks.NewAnalyticsService(t)
		mockService.On("GetCourseAnalytics", mock.Anything, identity, courseID).
			Return(nil, model.ErrNotFound).Once()
		router := setupAnalyticsRouter(mockService)

		path := fmt.Sprintf("/api/v1/courses/%s/analytics", courseID)
		req := createRequest(t, "GET", path, nil, token)
		rr := httptest.NewRecorder()
		router.ServeHTTP(rr, req)

		assert.Equal(t, http.StatusNotFound, rr.Code)
	})
}
