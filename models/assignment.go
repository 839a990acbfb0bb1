package models

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/datatypes"
)

type SubmissionStatus string

const (
	SubmissionDraft     SubmissionStatus = "draft"
	SubmissionSubmitted SubmissionStatus = "submitted"
	SubmissionGraded    SubmissionStatus = "graded"
	SubmissionReturned  SubmissionStatus = "returned"
)

type Assignment struct {
	ID             uuid.UUID      `gorm:"type:uuid;default:gen_random_uuid();primaryKey" json:"id"`
	TeacherID      uuid.UUID      `gorm:"type:uuid;not null;index" json:"teacher_id"`
	Teacher        User           `gorm:"foreignKey:TeacherID;references:ID;constraint:OnDelete:CASCADE;" json:"-"`
	SectionID      *uuid.UUID     `gorm:"type:uuid;index" json:"section_id,omitempty"`
	Title          string         `gorm:"size:200;not null" json:"title"`
	Description    string         `gorm:"type:text" json:"description,omitempty"`
	Subject        string         `gorm:"size:100" json:"subject,omitempty"`
	AssignmentType string         `gorm:"size:30;default:'essay'" json:"assignment_type"`
	MaxPoints      float64        `gorm:"type:numeric(6,2);default:100" json:"max_points"`
	DueDate        *time.Time     `json:"due_date,omitempty"`
	Instructions   string         `gorm:"type:text" json:"instructions,omitempty"`
	Rubric         datatypes.JSON `json:"rubric,omitempty"`
	CreatedAt      time.Time      `gorm:"autoCreateTime" json:"created_at"`
	UpdatedAt      time.Time      `gorm:"autoUpdateTime" json:"updated_at"`
}

// One submission per (assignment, student); re-submission rewrites it while it is a draft.
type Submission struct {
	ID              uuid.UUID        `gorm:"type:uuid;default:gen_random_uuid();primaryKey" json:"id"`
	AssignmentID    uuid.UUID        `gorm:"type:uuid;not null;uniqueIndex:idx_submission_assignment_student" json:"assignment_id"`
	Assignment      Assignment       `gorm:"constraint:OnDelete:CASCADE;" json:"-"`
	StudentID       uuid.UUID        `gorm:"type:uuid;not null;uniqueIndex:idx_submission_assignment_student;index" json:"student_id"`
	FilePath        string           `gorm:"size:500" json:"file_path,omitempty"`
	SubmissionText  string           `gorm:"type:text" json:"submission_text,omitempty"`
	Status          SubmissionStatus `gorm:"type:varchar(20);not null;default:'draft'" json:"status"`
	Grade           *float64         `gorm:"type:numeric(6,2)" json:"grade,omitempty"`
	AIFeedback      datatypes.JSON   `json:"ai_feedback,omitempty"`
	TeacherFeedback string           `gorm:"type:text" json:"teacher_feedback,omitempty"`
	GradedBy        *uuid.UUID       `gorm:"type:uuid" json:"graded_by,omitempty"`
	GradedAt        *time.Time       `json:"graded_at,omitempty"`
	SubmittedAt     *time.Time       `json:"submitted_at,omitempty"`
	CreatedAt       time.Time        `gorm:"autoCreateTime" json:"created_at"`
	UpdatedAt       time.Time        `gorm:"autoUpdateTime" json:"updated_at"`
}
