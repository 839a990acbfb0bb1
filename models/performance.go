package models

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/datatypes"
)

// Performance is a projection rebuilt from attempts and graded submissions.
type Performance struct {
	ID                uuid.UUID      `gorm:"type:uuid;default:gen_random_uuid();primaryKey" json:"id"`
	StudentID         uuid.UUID      `gorm:"type:uuid;uniqueIndex;not null" json:"student_id"`
	QuizAverage       float64        `gorm:"type:numeric(5,2);default:0" json:"quiz_average"`
	AssignmentAverage float64        `gorm:"type:numeric(5,2);default:0" json:"assignment_average"`
	OverallScore      float64        `gorm:"type:numeric(5,2);default:0" json:"overall_score"`
	QuizzesCompleted  int            `gorm:"default:0" json:"quizzes_completed"`
	WeakConcepts      datatypes.JSON `json:"weak_concepts,omitempty"`
	StrongConcepts    datatypes.JSON `json:"strong_concepts,omitempty"`
	Suggestions       string         `gorm:"type:text" json:"suggestions,omitempty"`
	LastActivityAt    *time.Time     `json:"last_activity_at,omitempty"`
	UpdatedAt         time.Time      `gorm:"autoUpdateTime" json:"updated_at"`
}
