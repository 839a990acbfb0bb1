package controllers

import (
	"context"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"

	"github.com/gyanguru/gyanguru-backend/models"
	"github.com/gyanguru/gyanguru-backend/services"
)

type AssignmentAPI interface {
	Create(ctx context.Context, teacherID uuid.UUID, req services.CreateAssignmentRequest) (*models.Assignment, error)
	Get(ctx context.Context, id uuid.UUID) (*models.Assignment, error)
	Grade(ctx context.Context, actor services.Actor, submissionID uuid.UUID, req services.GradeSubmissionRequest) (*models.Submission, error)
	ListSubmissions(ctx context.Context, actor services.Actor, assignmentID uuid.UUID) ([]models.Submission, error)
}

type AssignmentController struct {
	assignments AssignmentAPI
}

func NewAssignmentController(assignments AssignmentAPI) *AssignmentController {
	return &AssignmentController{assignments: assignments}
}

func (ac *AssignmentController) CreateAssignment(c *gin.Context) {
	me, ok := actor(c)
	if !ok {
		return
	}
	var req services.CreateAssignmentRequest
	if !bindJSON(c, &req) {
		return
	}
	assignment, err := ac.assignments.Create(c.Request.Context(), me.ID, req)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusCreated, assignment)
}

func (ac *AssignmentController) GetAssignment(c *gin.Context) {
	id, ok := uuidParam(c, "id")
	if !ok {
		return
	}
	assignment, err := ac.assignments.Get(c.Request.Context(), id)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, assignment)
}

func (ac *AssignmentController) ListSubmissions(c *gin.Context) {
	me, ok := actor(c)
	if !ok {
		return
	}
	id, ok := uuidParam(c, "id")
	if !ok {
		return
	}
	submissions, err := ac.assignments.ListSubmissions(c.Request.Context(), me, id)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"submissions": submissions, "total": len(submissions)})
}

// PUT /api/assignments/submissions/:id/grade {"grade": 87, "feedback": "..."}
func (ac *AssignmentController) GradeSubmission(c *gin.Context) {
	me, ok := actor(c)
	if !ok {
		return
	}
	id, ok := uuidParam(c, "id")
	if !ok {
		return
	}
	var req services.GradeSubmissionRequest
	if !bindJSON(c, &req) {
		return
	}
	submission, err := ac.assignments.Grade(c.Request.Context(), me, id, req)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, submission)
}
