package controllers

import (
	"context"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"

	"github.com/gyanguru/gyanguru-backend/apperrors"
	"github.com/gyanguru/gyanguru-backend/models"
	"github.com/gyanguru/gyanguru-backend/repositories"
	"github.com/gyanguru/gyanguru-backend/services"
)

type QuizAPI interface {
	CreateQuiz(ctx context.Context, teacherID uuid.UUID, req services.CreateQuizRequest) (*models.Quiz, error)
	SetPublished(ctx context.Context, actor services.Actor, quizID uuid.UUID, published bool) (*models.Quiz, error)
	GetQuiz(ctx context.Context, actor services.Actor, quizID uuid.UUID) (*models.Quiz, error)
	ListPublished(ctx context.Context, filters repositories.QuizFilters) ([]models.Quiz, int64, error)
	StartAttempt(ctx context.Context, studentID, quizID uuid.UUID) (*models.QuizAttempt, error)
	SubmitAttempt(ctx context.Context, studentID, attemptID uuid.UUID, answers []services.AnswerInput) (*services.SubmitResult, error)
	StudentAttempts(ctx context.Context, studentID uuid.UUID) ([]models.QuizAttempt, error)
	GetAttempt(ctx context.Context, actor services.Actor, attemptID uuid.UUID) (*models.QuizAttempt, error)
}

type QuizController struct {
	quizzes QuizAPI
}

func NewQuizController(quizzes QuizAPI) *QuizController {
	return &QuizController{quizzes: quizzes}
}

type publishInput struct {
	IsPublished *bool `json:"is_published" binding:"required"`
}

type submitAttemptInput struct {
	Answers []services.AnswerInput `json:"answers" binding:"dive"`
}

// GET /api/quiz?subject=&section_id=&page=&limit=
func (qc *QuizController) ListQuizzes(c *gin.Context) {
	page := queryInt(c, "page", 1)
	limit := queryInt(c, "limit", 20)
	if limit > 100 {
		limit = 100
	}
	filters := repositories.QuizFilters{
		Subject: c.Query("subject"),
		Limit:   limit,
		Offset:  (page - 1) * limit,
	}
	if raw := c.Query("section_id"); raw != "" {
		id, err := uuid.Parse(raw)
		if err != nil {
			respondError(c, apperrors.Validation("section_id", "must be a valid UUID"))
			return
		}
		filters.SectionID = &id
	}

	quizzes, total, err := qc.quizzes.ListPublished(c.Request.Context(), filters)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{
		"quizzes": quizzes,
		"total":   total,
		"page":    page,
		"limit":   limit,
	})
}

func (qc *QuizController) CreateQuiz(c *gin.Context) {
	me, ok := actor(c)
	if !ok {
		return
	}
	var req services.CreateQuizRequest
	if !bindJSON(c, &req) {
		return
	}
	quiz, err := qc.quizzes.CreateQuiz(c.Request.Context(), me.ID, req)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusCreated, quiz)
}

func (qc *QuizController) GetQuiz(c *gin.Context) {
	me, ok := actor(c)
	if !ok {
		return
	}
	id, ok := uuidParam(c, "id")
	if !ok {
		return
	}
	quiz, err := qc.quizzes.GetQuiz(c.Request.Context(), me, id)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, quiz)
}

func (qc *QuizController) SetPublished(c *gin.Context) {
	me, ok := actor(c)
	if !ok {
		return
	}
	id, ok := uuidParam(c, "id")
	if !ok {
		return
	}
	var in publishInput
	if !bindJSON(c, &in) {
		return
	}
	quiz, err := qc.quizzes.SetPublished(c.Request.Context(), me, id, *in.IsPublished)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, quiz)
}

// POST /api/quiz/:id/attempt
func (qc *QuizController) StartAttempt(c *gin.Context) {
	me, ok := actor(c)
	if !ok {
		return
	}
	id, ok := uuidParam(c, "id")
	if !ok {
		return
	}
	attempt, err := qc.quizzes.StartAttempt(c.Request.Context(), me.ID, id)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusCreated, attempt)
}

// POST /api/quiz/attempt/:attempt_id/submit
func (qc *QuizController) SubmitAttempt(c *gin.Context) {
	me, ok := actor(c)
	if !ok {
		return
	}
	id, ok := uuidParam(c, "attempt_id")
	if !ok {
		return
	}
	var in submitAttemptInput
	if !bindJSON(c, &in) {
		return
	}
	result, err := qc.quizzes.SubmitAttempt(c.Request.Context(), me.ID, id, in.Answers)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, result)
}

func (qc *QuizController) GetAttempt(c *gin.Context) {
	me, ok := actor(c)
	if !ok {
		return
	}
	id, ok := uuidParam(c, "attempt_id")
	if !ok {
		return
	}
	attempt, err := qc.quizzes.GetAttempt(c.Request.Context(), me, id)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, attempt)
}

// GET /api/quiz/attempts/:student_id (teacher, admin)
func (qc *QuizController) StudentAttempts(c *gin.Context) {
	id, ok := uuidParam(c, "student_id")
	if !ok {
		return
	}
	attempts, err := qc.quizzes.StudentAttempts(c.Request.Context(), id)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"attempts": attempts, "total": len(attempts)})
}

// GET /api/quiz/my-attempts
func (qc *QuizController) MyAttempts(c *gin.Context) {
	me, ok := actor(c)
	if !ok {
		return
	}
	attempts, err := qc.quizzes.StudentAttempts(c.Request.Context(), me.ID)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"attempts": attempts, "total": len(attempts)})
}
