package services

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/google/uuid"

	"github.com/gyanguru/gyanguru-backend/apperrors"
	"github.com/gyanguru/gyanguru-backend/events"
	"github.com/gyanguru/gyanguru-backend/models"
	"github.com/gyanguru/gyanguru-backend/repositories"
	"github.com/gyanguru/gyanguru-backend/utils"
)

type OptionInput struct {
	Text        string `json:"text" binding:"required"`
	IsCorrect   bool   `json:"is_correct"`
	Explanation string `json:"explanation"`
}

type QuestionInput struct {
	Text         string        `json:"text" binding:"required"`
	QuestionType string        `json:"question_type" binding:"required,question_type"`
	Points       *float64      `json:"points" binding:"omitempty,gte=0"`
	ImageURL     string        `json:"image_url" binding:"omitempty,max=255"`
	Options      []OptionInput `json:"options" binding:"dive"`
}

type CreateQuizRequest struct {
	Title            string          `json:"title" binding:"required,max=200"`
	Description      string          `json:"description"`
	Subject          string          `json:"subject" binding:"max=100"`
	SectionID        *uuid.UUID      `json:"section_id"`
	DifficultyLevel  string          `json:"difficulty_level" binding:"omitempty,oneof=easy medium hard"`
	DurationMinutes  int             `json:"duration_minutes" binding:"gte=0"`
	PassingScore     *float64        `json:"passing_score" binding:"omitempty,gte=0,lte=100"`
	AllowRetake      *bool           `json:"allow_retake"`
	MaxRetakes       *int            `json:"max_retakes" binding:"omitempty,gte=1"`
	ShowAnswersAfter *bool           `json:"show_answers_after"`
	Questions        []QuestionInput `json:"questions" binding:"required,min=1,dive"`
}

type SubmitResult struct {
	Attempt *models.QuizAttempt `json:"attempt"`
	GradeSummary
	Passed bool `json:"passed"`
}

// QuizService owns quizzes and the attempt lifecycle: a student starts an
// attempt within the retake limit and submits it exactly once.
type QuizService struct {
	quizzes   repositories.QuizRepository
	attempts  repositories.AttemptRepository
	publisher events.Publisher
	validate  *validator.Validate
	now       func() time.Time
	logger    *slog.Logger
}

func NewQuizService(quizzes repositories.QuizRepository, attempts repositories.AttemptRepository, publisher events.Publisher, logger *slog.Logger) *QuizService {
	return &QuizService{
		quizzes:   quizzes,
		attempts:  attempts,
		publisher: publisher,
		validate:  utils.NewValidator(),
		now:       time.Now,
		logger:    logger,
	}
}

func (s *QuizService) WithClock(now func() time.Time) *QuizService {
	s.now = now
	return s
}

func (s *QuizService) CreateQuiz(ctx context.Context, teacherID uuid.UUID, req CreateQuizRequest) (*models.Quiz, error) {
	if err := s.validate.Struct(req); err != nil {
		return nil, apperrors.FromBinding(err)
	}

	quiz := &models.Quiz{
		TeacherID:        teacherID,
		SectionID:        req.SectionID,
		Title:            strings.TrimSpace(req.Title),
		Description:      req.Description,
		Subject:          req.Subject,
		DifficultyLevel:  "medium",
		DurationMinutes:  30,
		PassingScore:     40,
		AllowRetake:      true,
		MaxRetakes:       3,
		ShowAnswersAfter: true,
	}
	if req.DifficultyLevel != "" {
		quiz.DifficultyLevel = req.DifficultyLevel
	}
	if req.DurationMinutes > 0 {
		quiz.DurationMinutes = req.DurationMinutes
	}
	if req.PassingScore != nil {
		quiz.PassingScore = *req.PassingScore
	}
	if req.AllowRetake != nil {
		quiz.AllowRetake = *req.AllowRetake
	}
	if req.MaxRetakes != nil {
		quiz.MaxRetakes = *req.MaxRetakes
	}
	if req.ShowAnswersAfter != nil {
		quiz.ShowAnswersAfter = *req.ShowAnswersAfter
	}

	for i, in := range req.Questions {
		qt := models.QuestionType(in.QuestionType)
		if err := checkOptions(i, qt, in.Options); err != nil {
			return nil, err
		}
		// Omitted points default to 1; an explicit 0 marks an ungraded question.
		points := 1.0
		if in.Points != nil {
			points = *in.Points
		}
		question := models.Question{
			QuestionType: qt,
			Text:         in.Text,
			ImageURL:     in.ImageURL,
			Points:       points,
			SortOrder:    i + 1,
		}
		for j, opt := range in.Options {
			question.Options = append(question.Options, models.QuestionOption{
				Text:        opt.Text,
				IsCorrect:   opt.IsCorrect,
				Explanation: opt.Explanation,
				SortOrder:   j + 1,
			})
		}
		quiz.Questions = append(quiz.Questions, question)
	}

	if err := s.quizzes.Create(ctx, quiz); err != nil {
		return nil, err
	}
	s.logger.Info("Quiz created", "quiz_id", quiz.ID, "teacher_id", teacherID, "questions", len(quiz.Questions))
	return quiz, nil
}

// checkOptions requires exactly one correct option on single choice questions
// and at least one on multiple select ones.
func checkOptions(index int, qt models.QuestionType, options []OptionInput) error {
	field := fmt.Sprintf("questions[%d].options", index)
	correct := 0
	for _, opt := range options {
		if opt.IsCorrect {
			correct++
		}
	}
	switch qt {
	case models.QuestionMCQ:
		if len(options) < 2 {
			return apperrors.Validation(field, "single choice questions need at least two options")
		}
		if correct != 1 {
			return apperrors.Validation(field, "single choice questions need exactly one correct option")
		}
	case models.QuestionMultipleSelect:
		if len(options) < 2 || correct == 0 {
			return apperrors.Validation(field, "multiple select questions need options and at least one correct answer")
		}
	}
	return nil
}

func (s *QuizService) SetPublished(ctx context.Context, actor Actor, quizID uuid.UUID, published bool) (*models.Quiz, error) {
	quiz, err := s.quizzes.GetWithQuestions(ctx, quizID)
	if err != nil {
		return nil, err
	}
	if quiz.TeacherID != actor.ID && !actor.Is(models.RoleAdmin) {
		return nil, apperrors.Forbidden("only the quiz owner can publish it")
	}
	if published && len(quiz.Questions) == 0 {
		return nil, apperrors.Validation("questions", "a quiz needs questions before it can be published")
	}
	if err := s.quizzes.SetPublished(ctx, quizID, published); err != nil {
		return nil, err
	}
	quiz.IsPublished = published
	return quiz, nil
}

// GetQuiz hides answer keys from students and keeps unpublished quizzes
// visible to staff only.
func (s *QuizService) GetQuiz(ctx context.Context, actor Actor, quizID uuid.UUID) (*models.Quiz, error) {
	quiz, err := s.quizzes.GetWithQuestions(ctx, quizID)
	if err != nil {
		return nil, err
	}
	if actor.Is(models.RoleTeacher, models.RoleAdmin) {
		return quiz, nil
	}
	if !quiz.IsPublished {
		return nil, apperrors.NotFound("quiz not found")
	}
	stripAnswerKeys(quiz)
	return quiz, nil
}

func stripAnswerKeys(quiz *models.Quiz) {
	for i := range quiz.Questions {
		q := &quiz.Questions[i]
		if q.QuestionType != models.QuestionMCQ && q.QuestionType != models.QuestionMultipleSelect {
			q.Options = nil
			continue
		}
		for j := range q.Options {
			q.Options[j].IsCorrect = false
			q.Options[j].Explanation = ""
		}
	}
}

func (s *QuizService) ListPublished(ctx context.Context, filters repositories.QuizFilters) ([]models.Quiz, int64, error) {
	return s.quizzes.ListPublished(ctx, filters)
}

// StartAttempt numbers attempts 1, 2, ... per (quiz, student) and refuses to
// go past the quiz attempt limit.
func (s *QuizService) StartAttempt(ctx context.Context, studentID, quizID uuid.UUID) (*models.QuizAttempt, error) {
	quiz, err := s.quizzes.GetWithQuestions(ctx, quizID)
	if err != nil {
		return nil, err
	}
	if !quiz.IsPublished {
		return nil, apperrors.Forbidden("quiz is not published")
	}

	count, err := s.attempts.CountForStudent(ctx, quizID, studentID)
	if err != nil {
		return nil, fmt.Errorf("count attempts: %w", err)
	}
	if limit := quiz.AttemptLimit(); count >= int64(limit) {
		return nil, apperrors.New(apperrors.ErrRetakeLimit, fmt.Sprintf("maximum attempts (%d) reached", limit))
	}

	attempt := &models.QuizAttempt{
		QuizID:        quizID,
		StudentID:     studentID,
		AttemptNumber: int(count) + 1,
		Status:        models.AttemptInProgress,
		StartedAt:     s.now(),
	}
	if err := s.attempts.Create(ctx, attempt); err != nil {
		// Another start for the same pair won the attempt number.
		if errors.Is(err, apperrors.ErrConflict) {
			return nil, apperrors.Conflict("an attempt was started concurrently, please retry")
		}
		return nil, err
	}
	s.logger.Info("Quiz attempt started", "attempt_id", attempt.ID, "quiz_id", quizID, "student_id", studentID, "attempt_number", attempt.AttemptNumber)
	return attempt, nil
}

// SubmitAttempt grades and completes an attempt in one transaction. Completed
// attempts are immutable: a second submit is a conflict.
func (s *QuizService) SubmitAttempt(ctx context.Context, studentID, attemptID uuid.UUID, submitted []AnswerInput) (*SubmitResult, error) {
	attempt, err := s.attempts.GetByID(ctx, attemptID)
	if err != nil {
		return nil, err
	}
	if attempt.StudentID != studentID {
		return nil, apperrors.Forbidden("attempt belongs to another student")
	}
	if attempt.Status == models.AttemptCompleted {
		return nil, apperrors.Conflict("attempt already submitted")
	}

	quiz, err := s.quizzes.GetWithQuestions(ctx, attempt.QuizID)
	if err != nil {
		return nil, err
	}
	answers, summary, err := GradeAnswers(quiz, attempt.ID, submitted)
	if err != nil {
		return nil, err
	}

	completedAt := s.now()
	attempt.Status = models.AttemptCompleted
	attempt.Score = summary.Score
	attempt.TotalPoints = summary.TotalPoints
	attempt.Percentage = summary.Percentage
	attempt.CompletedAt = &completedAt
	attempt.TimeTakenMinutes = int(completedAt.Sub(attempt.StartedAt).Minutes())
	if err := s.attempts.Complete(ctx, attempt, answers); err != nil {
		return nil, err
	}
	attempt.Answers = answers

	s.logger.Info("Quiz attempt completed", "attempt_id", attempt.ID, "score", summary.Score, "total_points", summary.TotalPoints, "percentage", summary.Percentage)
	publish(ctx, s.publisher, s.logger, events.NewEvent(events.AttemptCompleted, studentID, map[string]interface{}{
		"attempt_id": attempt.ID,
		"quiz_id":    attempt.QuizID,
		"percentage": summary.Percentage,
	}))

	return &SubmitResult{
		Attempt:      attempt,
		GradeSummary: summary,
		Passed:       summary.Percentage >= quiz.PassingScore,
	}, nil
}

func (s *QuizService) StudentAttempts(ctx context.Context, studentID uuid.UUID) ([]models.QuizAttempt, error) {
	return s.attempts.ListByStudent(ctx, studentID)
}

// GetAttempt lets students read their own attempts and teachers read attempts
// on quizzes they own.
func (s *QuizService) GetAttempt(ctx context.Context, actor Actor, attemptID uuid.UUID) (*models.QuizAttempt, error) {
	attempt, err := s.attempts.GetByID(ctx, attemptID)
	if err != nil {
		return nil, err
	}
	switch actor.Role {
	case models.RoleAdmin:
		return attempt, nil
	case models.RoleStudent:
		if attempt.StudentID == actor.ID {
			return attempt, nil
		}
	case models.RoleTeacher:
		quiz, err := s.quizzes.GetWithQuestions(ctx, attempt.QuizID)
		if err != nil {
			return nil, err
		}
		if quiz.TeacherID == actor.ID {
			return attempt, nil
		}
	case models.RoleParent:
		// Parents follow progress through analytics, not raw attempts.
	}
	return nil, apperrors.Forbidden("not allowed to view this attempt")
}
