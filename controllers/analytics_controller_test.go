package controllers

import (
	"bytes"
	"context"
	"errors"
	"net/http"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/gyanguru/gyanguru-backend/apperrors"
	"github.com/gyanguru/gyanguru-backend/models"
	"github.com/gyanguru/gyanguru-backend/repositories"
	"github.com/gyanguru/gyanguru-backend/services"
	"github.com/gyanguru/gyanguru-backend/ws"
)

type stubAnalytics struct {
	report *services.ClassReport
}

func (s *stubAnalytics) Dashboard(_ context.Context, studentID uuid.UUID) (*services.StudentDashboard, error) {
	return &services.StudentDashboard{StudentID: studentID}, nil
}

func (s *stubAnalytics) ChildProgress(context.Context, uuid.UUID, uuid.UUID) (*services.StudentDashboard, error) {
	return nil, apperrors.Forbidden("not authorized to view this student")
}

func (s *stubAnalytics) ClassAnalytics(context.Context, uuid.UUID) (*services.ClassReport, error) {
	return s.report, nil
}

func (s *stubAnalytics) Leaderboard(context.Context, uuid.UUID) ([]services.LeaderboardEntry, error) {
	return services.RankStudents(s.report.Students), nil
}

func (s *stubAnalytics) WeakConcepts(_ context.Context, actor services.Actor, studentID uuid.UUID) (*services.ConceptReport, error) {
	if actor.Role == models.RoleStudent && actor.ID != studentID {
		return nil, apperrors.Forbidden("not authorized to view this student")
	}
	return &services.ConceptReport{StudentID: studentID}, nil
}

func (s *stubAnalytics) Suggestions(context.Context, uuid.UUID) (services.Analysis, error) {
	return nil, apperrors.Dependency("ai analysis is not configured", nil)
}

func sampleReport(section uuid.UUID) *services.ClassReport {
	return &services.ClassReport{
		SectionID:    section,
		StudentCount: 2,
		ClassAverage: 70,
		Students: []services.StudentReport{
			{StudentRow: repositories.StudentRow{UserID: uuid.New(), FirstName: "Asha", RollNumber: "02"}, Attempts: 2, Average: 60},
			{StudentRow: repositories.StudentRow{UserID: uuid.New(), FirstName: "Ravi", RollNumber: "01"}, Attempts: 3, Average: 80},
		},
	}
}

func TestAnalyticsEndpoints(t *testing.T) {
	me := uuid.New()
	section := uuid.New()
	ac := NewAnalyticsController(&stubAnalytics{report: sampleReport(section)})

	r := gin.New()
	g := r.Group("/analytics", as(me, models.RoleStudent))
	g.GET("/student/dashboard", ac.StudentDashboard)
	g.GET("/student/suggestions", ac.Suggestions)
	g.GET("/export/:section_id", ac.ExportClassAnalytics)
	g.GET("/parent/:student_id", ac.ChildProgress)
	g.GET("/weak-concepts/:student_id", ac.WeakConcepts)
	g.GET("/leaderboard/:section_id", ac.Leaderboard)

	w := doJSON(r, http.MethodGet, "/analytics/student/dashboard", nil)
	assert.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, me.String(), decode(t, w)["student_id"])

	w = doJSON(r, http.MethodGet, "/analytics/student/suggestions", nil)
	assert.Equal(t, http.StatusInternalServerError, w.Code)

	w = doJSON(r, http.MethodGet, "/analytics/export/"+section.String(), nil)
	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, xlsxContentType, w.Header().Get("Content-Type"))
	assert.Contains(t, w.Header().Get("Content-Disposition"), "class_analytics_"+section.String()[:8])
	assert.True(t, bytes.HasPrefix(w.Body.Bytes(), []byte("PK")))

	w = doJSON(r, http.MethodGet, "/analytics/parent/"+uuid.NewString(), nil)
	assert.Equal(t, http.StatusForbidden, w.Code)

	w = doJSON(r, http.MethodGet, "/analytics/weak-concepts/"+uuid.NewString(), nil)
	assert.Equal(t, http.StatusForbidden, w.Code)
	w = doJSON(r, http.MethodGet, "/analytics/weak-concepts/"+me.String(), nil)
	assert.Equal(t, http.StatusOK, w.Code)

	w = doJSON(r, http.MethodGet, "/analytics/leaderboard/"+section.String(), nil)
	require.Equal(t, http.StatusOK, w.Code)
	board := decode(t, w)["leaderboard"].([]interface{})
	require.Len(t, board, 2)
	first := board[0].(map[string]interface{})
	assert.Equal(t, "Ravi", first["first_name"])
	assert.EqualValues(t, 1, first["rank"])
}

type stubAdmin struct {
	AdminAPI
	activeCalls int
}

func (s *stubAdmin) SetUserActive(_ context.Context, actor services.Actor, userID uuid.UUID, active bool) error {
	s.activeCalls++
	if actor.ID == userID && !active {
		return apperrors.Validation("is_active", "you cannot deactivate your own account")
	}
	return nil
}

func (s *stubAdmin) CreateDepartment(_ context.Context, institutionID uuid.UUID, req services.CreateDepartmentRequest) (*models.Department, error) {
	return nil, apperrors.Conflict("department code already exists in this institution")
}

func TestAdminEndpoints(t *testing.T) {
	me := uuid.New()
	admin := &stubAdmin{}
	ac := NewAdminController(admin)

	r := gin.New()
	g := r.Group("/admin", as(me, models.RoleAdmin))
	g.PUT("/users/:user_id/activate", ac.SetUserActive)
	g.POST("/departments/:institution_id", ac.CreateDepartment)

	w := doJSON(r, http.MethodPut, "/admin/users/"+uuid.NewString()+"/activate", map[string]interface{}{})
	assert.Equal(t, http.StatusBadRequest, w.Code)
	assert.Zero(t, admin.activeCalls)

	other := uuid.New()
	w = doJSON(r, http.MethodPut, "/admin/users/"+other.String()+"/activate", map[string]interface{}{"is_active": false})
	assert.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, false, decode(t, w)["is_active"])

	w = doJSON(r, http.MethodPut, "/admin/users/"+me.String()+"/activate", map[string]interface{}{"is_active": false})
	assert.Equal(t, http.StatusBadRequest, w.Code)

	w = doJSON(r, http.MethodPost, "/admin/departments/"+uuid.NewString(), map[string]string{"name": "Physics", "code": "phy"})
	assert.Equal(t, http.StatusConflict, w.Code)
}

type stubPinger struct{ err error }

func (p stubPinger) PingContext(context.Context) error { return p.err }

type stubHub struct{}

func (stubHub) GetStats() ws.Stats { return ws.Stats{Rooms: 1, RoomClients: 3} }

func TestHealthCheck(t *testing.T) {
	r := gin.New()
	r.GET("/ok", NewHealthController(stubPinger{}, stubHub{}).HealthCheck)
	r.GET("/down", NewHealthController(stubPinger{err: errors.New("refused")}, stubHub{}).HealthCheck)

	w := doJSON(r, http.MethodGet, "/ok", nil)
	assert.Equal(t, http.StatusOK, w.Code)
	stats := decode(t, w)["websocket"].(map[string]interface{})["stats"].(map[string]interface{})
	assert.EqualValues(t, 3, stats["room_clients"])

	w = doJSON(r, http.MethodGet, "/down", nil)
	assert.Equal(t, http.StatusServiceUnavailable, w.Code)
	assert.Equal(t, "degraded", decode(t, w)["status"])
}
