// Package repositories is the persistence layer. Every method returns errors
// already classified with apperrors kinds (not found, conflict).
package repositories

import (
	"context"
	"time"

	"github.com/google/uuid"

	"github.com/gyanguru/gyanguru-backend/models"
)

type UserRepository interface {
	// CreateWithProfile inserts the user and its role profile in one transaction.
	CreateWithProfile(ctx context.Context, user *models.User, details ProfileDetails) error
	GetByID(ctx context.Context, id uuid.UUID) (*models.User, error)
	GetByEmail(ctx context.Context, email string) (*models.User, error)
	GetByPhone(ctx context.Context, phone string) (*models.User, error)
	// GetByLogin matches either email or username.
	GetByLogin(ctx context.Context, login string) (*models.User, error)
	ExistsByEmail(ctx context.Context, email string) (bool, error)
	ExistsByUsername(ctx context.Context, username string) (bool, error)
	UpdateProfile(ctx context.Context, id uuid.UUID, update ProfileUpdate) (*models.User, error)
	UpdatePassword(ctx context.Context, id uuid.UUID, hash string) error
	TouchLastLogin(ctx context.Context, id uuid.UUID, at time.Time) error
	SetActive(ctx context.Context, id uuid.UUID, active bool) error
	CountByRole(ctx context.Context) (map[models.UserRole]int64, error)
}

// ProfileDetails carries the role-specific fields captured at sign-up.
type ProfileDetails struct {
	InstitutionID *uuid.UUID `json:"institution_id,omitempty"`
	RollNumber    string     `json:"roll_number,omitempty"`
	DepartmentID  *uuid.UUID `json:"department_id,omitempty"`
	EmployeeID    string     `json:"employee_id,omitempty"`
	Relationship  string     `json:"relationship,omitempty"`
}

type ProfileUpdate struct {
	FirstName      *string
	LastName       *string
	Phone          *string
	ProfilePicture *string
}

type QuizFilters struct {
	Subject   string
	SectionID *uuid.UUID
	Limit     int
	Offset    int
}

type QuizRepository interface {
	Create(ctx context.Context, quiz *models.Quiz) error
	GetWithQuestions(ctx context.Context, id uuid.UUID) (*models.Quiz, error)
	ListPublished(ctx context.Context, filters QuizFilters) ([]models.Quiz, int64, error)
	SetPublished(ctx context.Context, id uuid.UUID, published bool) error
}

type AttemptRepository interface {
	CountForStudent(ctx context.Context, quizID, studentID uuid.UUID) (int64, error)
	Create(ctx context.Context, attempt *models.QuizAttempt) error
	GetByID(ctx context.Context, id uuid.UUID) (*models.QuizAttempt, error)
	ListByStudent(ctx context.Context, studentID uuid.UUID) ([]models.QuizAttempt, error)
	// Complete writes the answers and the attempt aggregates atomically. It
	// fails with a conflict if the attempt is no longer in progress.
	Complete(ctx context.Context, attempt *models.QuizAttempt, answers []models.StudentAnswer) error
}

type DoubtRoomRepository interface {
	Create(ctx context.Context, room *models.DoubtRoom) error
	GetByID(ctx context.Context, id uuid.UUID) (*models.DoubtRoom, error)
	ListByStatus(ctx context.Context, status models.RoomStatus) ([]models.DoubtRoom, error)
	// Save persists status, closed_at and teacher_id.
	Save(ctx context.Context, room *models.DoubtRoom) error
	AddMessage(ctx context.Context, msg *models.DoubtMessage) error
	GetMessage(ctx context.Context, id uuid.UUID) (*models.DoubtMessage, error)
	// ApplyVote adds delta to the vote count, never going below zero, and
	// returns the new count.
	ApplyVote(ctx context.Context, messageID uuid.UUID, delta int) (int, error)
	MarkBestAnswer(ctx context.Context, room *models.DoubtRoom, messageID uuid.UUID) error
}

type AssignmentRepository interface {
	Create(ctx context.Context, assignment *models.Assignment) error
	GetByID(ctx context.Context, id uuid.UUID) (*models.Assignment, error)
	FindSubmission(ctx context.Context, assignmentID, studentID uuid.UUID) (*models.Submission, error)
	GetSubmission(ctx context.Context, id uuid.UUID) (*models.Submission, error)
	SaveSubmission(ctx context.Context, submission *models.Submission) error
	ListSubmissions(ctx context.Context, assignmentID uuid.UUID) ([]models.Submission, error)
}

type InstitutionRepository interface {
	List(ctx context.Context) ([]models.Institution, error)
	GetByID(ctx context.Context, id uuid.UUID) (*models.Institution, error)
	Create(ctx context.Context, institution *models.Institution) error
	Delete(ctx context.Context, id uuid.UUID) error
	CreateDepartment(ctx context.Context, department *models.Department) error
	GetDepartment(ctx context.Context, id uuid.UUID) (*models.Department, error)
	CreateYear(ctx context.Context, year *models.Year) error
	GetYear(ctx context.Context, id uuid.UUID) (*models.Year, error)
	CreateSection(ctx context.Context, section *models.Section) error
}

type QuizSummary struct {
	Attempts          int64   `json:"attempts"`
	Completed         int64   `json:"completed"`
	AveragePercentage float64 `json:"average_percentage"`
	BestPercentage    float64 `json:"best_percentage"`
}

type AttemptRow struct {
	AttemptID   uuid.UUID  `json:"attempt_id"`
	QuizID      uuid.UUID  `json:"quiz_id"`
	QuizTitle   string     `json:"quiz_title"`
	Subject     string     `json:"subject"`
	Percentage  float64    `json:"percentage"`
	CompletedAt *time.Time `json:"completed_at"`
}

type AssignmentSummary struct {
	Submitted         int64   `json:"submitted"`
	Graded            int64   `json:"graded"`
	AveragePercentage float64 `json:"average_percentage"`
}

type StudentRow struct {
	UserID     uuid.UUID `json:"student_id"`
	FirstName  string    `json:"first_name"`
	LastName   string    `json:"last_name"`
	RollNumber string    `json:"roll_number"`
}

type StudentAverage struct {
	Attempts int64   `json:"attempts"`
	Average  float64 `json:"average"`
}

type SubjectAccuracy struct {
	Subject string `json:"subject"`
	Correct int64  `json:"correct"`
	Total   int64  `json:"total"`
}

type SystemCounts struct {
	Institutions int64 `json:"institutions"`
	Quizzes      int64 `json:"quizzes"`
	Attempts     int64 `json:"attempts"`
	Assignments  int64 `json:"assignments"`
	OpenRooms    int64 `json:"open_doubt_rooms"`
}

type AnalyticsRepository interface {
	QuizSummary(ctx context.Context, studentID uuid.UUID) (QuizSummary, error)
	RecentAttempts(ctx context.Context, studentID uuid.UUID, limit int) ([]AttemptRow, error)
	AssignmentSummary(ctx context.Context, studentID uuid.UUID) (AssignmentSummary, error)
	SectionStudents(ctx context.Context, sectionID uuid.UUID) ([]StudentRow, error)
	StudentAverages(ctx context.Context, studentIDs []uuid.UUID) (map[uuid.UUID]StudentAverage, error)
	SubjectAccuracy(ctx context.Context, studentID uuid.UUID) ([]SubjectAccuracy, error)
	IsParentOf(ctx context.Context, parentUserID, studentUserID uuid.UUID) (bool, error)
	GetPerformance(ctx context.Context, studentID uuid.UUID) (*models.Performance, error)
	UpsertPerformance(ctx context.Context, perf *models.Performance) error
	SystemCounts(ctx context.Context) (SystemCounts, error)
}
