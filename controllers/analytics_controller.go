package controllers

import (
	"context"
	"fmt"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"

	"github.com/gyanguru/gyanguru-backend/services"
)

type AnalyticsAPI interface {
	Dashboard(ctx context.Context, studentID uuid.UUID) (*services.StudentDashboard, error)
	ChildProgress(ctx context.Context, parentID, studentID uuid.UUID) (*services.StudentDashboard, error)
	ClassAnalytics(ctx context.Context, sectionID uuid.UUID) (*services.ClassReport, error)
	Leaderboard(ctx context.Context, sectionID uuid.UUID) ([]services.LeaderboardEntry, error)
	WeakConcepts(ctx context.Context, actor services.Actor, studentID uuid.UUID) (*services.ConceptReport, error)
	Suggestions(ctx context.Context, studentID uuid.UUID) (services.Analysis, error)
}

type AnalyticsController struct {
	analytics AnalyticsAPI
}

func NewAnalyticsController(analytics AnalyticsAPI) *AnalyticsController {
	return &AnalyticsController{analytics: analytics}
}

const xlsxContentType = "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet"

func (ac *AnalyticsController) StudentDashboard(c *gin.Context) {
	me, ok := actor(c)
	if !ok {
		return
	}
	dashboard, err := ac.analytics.Dashboard(c.Request.Context(), me.ID)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, dashboard)
}

func (ac *AnalyticsController) Suggestions(c *gin.Context) {
	me, ok := actor(c)
	if !ok {
		return
	}
	suggestions, err := ac.analytics.Suggestions(c.Request.Context(), me.ID)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"suggestions": suggestions})
}

func (ac *AnalyticsController) ClassAnalytics(c *gin.Context) {
	sectionID, ok := uuidParam(c, "section_id")
	if !ok {
		return
	}
	report, err := ac.analytics.ClassAnalytics(c.Request.Context(), sectionID)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, report)
}

// ExportClassAnalytics serves the class report as an Excel download.
func (ac *AnalyticsController) ExportClassAnalytics(c *gin.Context) {
	sectionID, ok := uuidParam(c, "section_id")
	if !ok {
		return
	}
	report, err := ac.analytics.ClassAnalytics(c.Request.Context(), sectionID)
	if err != nil {
		respondError(c, err)
		return
	}
	data, err := services.ClassReportWorkbook(report)
	if err != nil {
		respondError(c, err)
		return
	}
	filename := fmt.Sprintf("class_analytics_%s_%s.xlsx", sectionID.String()[:8], time.Now().Format("20060102"))
	c.Header("Content-Disposition", fmt.Sprintf(`attachment; filename="%s"`, filename))
	c.Data(http.StatusOK, xlsxContentType, data)
}

func (ac *AnalyticsController) ChildProgress(c *gin.Context) {
	me, ok := actor(c)
	if !ok {
		return
	}
	studentID, ok := uuidParam(c, "student_id")
	if !ok {
		return
	}
	dashboard, err := ac.analytics.ChildProgress(c.Request.Context(), me.ID, studentID)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, dashboard)
}

func (ac *AnalyticsController) WeakConcepts(c *gin.Context) {
	me, ok := actor(c)
	if !ok {
		return
	}
	studentID, ok := uuidParam(c, "student_id")
	if !ok {
		return
	}
	report, err := ac.analytics.WeakConcepts(c.Request.Context(), me, studentID)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, report)
}

func (ac *AnalyticsController) Leaderboard(c *gin.Context) {
	sectionID, ok := uuidParam(c, "section_id")
	if !ok {
		return
	}
	entries, err := ac.analytics.Leaderboard(c.Request.Context(), sectionID)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"section_id": sectionID, "leaderboard": entries})
}
