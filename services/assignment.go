package services

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"path/filepath"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/google/uuid"
	"gorm.io/datatypes"

	"github.com/gyanguru/gyanguru-backend/apperrors"
	"github.com/gyanguru/gyanguru-backend/events"
	"github.com/gyanguru/gyanguru-backend/models"
	"github.com/gyanguru/gyanguru-backend/repositories"
	"github.com/gyanguru/gyanguru-backend/utils"
)

type CreateAssignmentRequest struct {
	Title          string                 `json:"title" binding:"required,max=200"`
	Description    string                 `json:"description"`
	Subject        string                 `json:"subject" binding:"max=100"`
	SectionID      *uuid.UUID             `json:"section_id"`
	AssignmentType string                 `json:"assignment_type" binding:"omitempty,oneof=essay code project presentation other"`
	MaxPoints      *float64               `json:"max_points" binding:"omitempty,gt=0"`
	DueDate        *time.Time             `json:"due_date"`
	Instructions   string                 `json:"instructions"`
	Rubric         map[string]interface{} `json:"rubric"`
}

// Upload is a file received in a multipart request.
type Upload struct {
	Filename    string
	ContentType string
	Data        []byte
}

type SubmitAssignmentRequest struct {
	Text string
	File *Upload
}

type GradeSubmissionRequest struct {
	Grade    *float64 `json:"grade" binding:"required,gte=0"`
	Feedback string   `json:"feedback"`
}

type SubmissionResult struct {
	Submission *models.Submission `json:"submission"`
	AIFeedback Analysis           `json:"ai_feedback,omitempty"`
}

// EssayAnalyzer produces written feedback for a piece of student work.
type EssayAnalyzer interface {
	AnalyzeEssay(ctx context.Context, text, author string, mode EssayMode) (Analysis, error)
}

type AssignmentService struct {
	assignments repositories.AssignmentRepository
	storage     utils.FileStorage
	analyzer    EssayAnalyzer
	publisher   events.Publisher
	validate    *validator.Validate
	now         func() time.Time
	logger      *slog.Logger
}

func NewAssignmentService(assignments repositories.AssignmentRepository, storage utils.FileStorage, analyzer EssayAnalyzer, publisher events.Publisher, logger *slog.Logger) *AssignmentService {
	return &AssignmentService{
		assignments: assignments,
		storage:     storage,
		analyzer:    analyzer,
		publisher:   publisher,
		validate:    utils.NewValidator(),
		now:         time.Now,
		logger:      logger,
	}
}

func (s *AssignmentService) WithClock(now func() time.Time) *AssignmentService {
	s.now = now
	return s
}

func (s *AssignmentService) Create(ctx context.Context, teacherID uuid.UUID, req CreateAssignmentRequest) (*models.Assignment, error) {
	if err := s.validate.Struct(req); err != nil {
		return nil, apperrors.FromBinding(err)
	}

	assignment := &models.Assignment{
		TeacherID:      teacherID,
		SectionID:      req.SectionID,
		Title:          strings.TrimSpace(req.Title),
		Description:    req.Description,
		Subject:        req.Subject,
		AssignmentType: "essay",
		MaxPoints:      100,
		DueDate:        req.DueDate,
		Instructions:   req.Instructions,
	}
	if req.AssignmentType != "" {
		assignment.AssignmentType = req.AssignmentType
	}
	if req.MaxPoints != nil {
		assignment.MaxPoints = *req.MaxPoints
	}
	if len(req.Rubric) > 0 {
		raw, err := json.Marshal(req.Rubric)
		if err != nil {
			return nil, apperrors.Validation("rubric", "rubric is not valid JSON")
		}
		assignment.Rubric = datatypes.JSON(raw)
	}

	if err := s.assignments.Create(ctx, assignment); err != nil {
		return nil, err
	}
	s.logger.Info("Assignment created", "assignment_id", assignment.ID, "teacher_id", teacherID)
	return assignment, nil
}

func (s *AssignmentService) Get(ctx context.Context, id uuid.UUID) (*models.Assignment, error) {
	return s.assignments.GetByID(ctx, id)
}

// Submit stores a student's work. A submission can be rewritten only while
// it is still a draft. AI feedback is attached afterwards; when the analysis
// is unavailable the submission still stands without feedback.
func (s *AssignmentService) Submit(ctx context.Context, studentID, assignmentID uuid.UUID, req SubmitAssignmentRequest) (*SubmissionResult, error) {
	assignment, err := s.assignments.GetByID(ctx, assignmentID)
	if err != nil {
		return nil, err
	}

	submission, err := s.assignments.FindSubmission(ctx, assignmentID, studentID)
	switch {
	case errors.Is(err, apperrors.ErrNotFound):
		submission = &models.Submission{AssignmentID: assignmentID, StudentID: studentID}
	case err != nil:
		return nil, err
	case submission.Status != models.SubmissionDraft:
		return nil, apperrors.Conflict("assignment already submitted")
	}

	text := strings.TrimSpace(req.Text)
	if req.File == nil && text == "" {
		return nil, apperrors.Validation("file", "no content provided")
	}

	content := text
	if req.File != nil {
		inputType, ok := InputTypeFromFilename(req.File.Filename)
		if !ok {
			return nil, apperrors.Validation("file", "file type not allowed")
		}
		location, err := s.storage.Save(ctx, "submissions/"+assignmentID.String(), storedName(studentID, req.File.Filename), req.File.Data, req.File.ContentType)
		if err != nil {
			return nil, fmt.Errorf("store submission file: %w", err)
		}
		submission.FilePath = location

		extracted, err := NormalizeInput(InputSource{Type: inputType, Filename: req.File.Filename, Data: req.File.Data})
		if err != nil {
			s.logger.Warn("Submission text extraction failed", "assignment_id", assignmentID, "error", err)
		} else if extracted != "" {
			content = extracted
		}
	}

	now := s.now().UTC()
	submission.SubmissionText = text
	submission.Status = models.SubmissionSubmitted
	submission.SubmittedAt = &now
	if err := s.assignments.SaveSubmission(ctx, submission); err != nil {
		return nil, err
	}
	s.logger.Info("Assignment submitted", "assignment_id", assignmentID, "student_id", studentID, "submission_id", submission.ID)

	result := &SubmissionResult{Submission: submission}
	if s.analyzer == nil || content == "" {
		return result, nil
	}
	feedback, err := s.analyzer.AnalyzeEssay(ctx, content, assignment.Title, EssayModeStudent)
	if err != nil {
		s.logger.Warn("Submission feedback unavailable", "submission_id", submission.ID, "error", err)
		return result, nil
	}
	raw, err := json.Marshal(feedback)
	if err != nil {
		return result, nil
	}
	submission.AIFeedback = datatypes.JSON(raw)
	if err := s.assignments.SaveSubmission(ctx, submission); err != nil {
		s.logger.Warn("Could not store submission feedback", "submission_id", submission.ID, "error", err)
	}
	result.AIFeedback = feedback
	return result, nil
}

// Grade records the teacher's mark. Only the teacher who set the assignment
// (or an admin) may grade it, and the grade must lie within 0..max_points.
func (s *AssignmentService) Grade(ctx context.Context, actor Actor, submissionID uuid.UUID, req GradeSubmissionRequest) (*models.Submission, error) {
	if err := s.validate.Struct(req); err != nil {
		return nil, apperrors.FromBinding(err)
	}
	submission, err := s.assignments.GetSubmission(ctx, submissionID)
	if err != nil {
		return nil, err
	}
	assignment, err := s.assignments.GetByID(ctx, submission.AssignmentID)
	if err != nil {
		return nil, err
	}
	if assignment.TeacherID != actor.ID && !actor.Is(models.RoleAdmin) {
		return nil, apperrors.Forbidden("only the assignment's teacher can grade it")
	}
	if submission.Status == models.SubmissionDraft {
		return nil, apperrors.Conflict("submission has not been submitted yet")
	}
	grade := *req.Grade
	if grade > assignment.MaxPoints {
		return nil, apperrors.Validation("grade", fmt.Sprintf("grade must be between 0 and %g", assignment.MaxPoints))
	}

	now := s.now().UTC()
	graderID := actor.ID
	submission.Grade = &grade
	submission.TeacherFeedback = req.Feedback
	submission.Status = models.SubmissionGraded
	submission.GradedBy = &graderID
	submission.GradedAt = &now
	if err := s.assignments.SaveSubmission(ctx, submission); err != nil {
		return nil, err
	}

	s.logger.Info("Submission graded", "submission_id", submission.ID, "grade", grade)
	publish(ctx, s.publisher, s.logger, events.NewEvent(events.SubmissionGraded, submission.StudentID, map[string]interface{}{
		"submission_id": submission.ID.String(),
		"assignment_id": assignment.ID.String(),
		"grade":         grade,
		"max_points":    assignment.MaxPoints,
	}))
	return submission, nil
}

func (s *AssignmentService) ListSubmissions(ctx context.Context, actor Actor, assignmentID uuid.UUID) ([]models.Submission, error) {
	assignment, err := s.assignments.GetByID(ctx, assignmentID)
	if err != nil {
		return nil, err
	}
	if assignment.TeacherID != actor.ID && !actor.Is(models.RoleAdmin) {
		return nil, apperrors.Forbidden("only the assignment's teacher can list submissions")
	}
	return s.assignments.ListSubmissions(ctx, assignmentID)
}

// storedName keeps the extension of the upload and prefixes the student id
// so two students never overwrite each other's files.
func storedName(studentID uuid.UUID, filename string) string {
	base := filepath.Base(filename)
	return studentID.String() + "_" + strings.ReplaceAll(base, " ", "_")
}
