package models

import (
	"time"

	"github.com/google/uuid"
)

type QuestionType string

const (
	QuestionMCQ            QuestionType = "mcq"
	QuestionMultipleSelect QuestionType = "multiple_select"
	QuestionCoding         QuestionType = "coding"
	QuestionDescriptive    QuestionType = "descriptive"
)

func (t QuestionType) Valid() bool {
	switch t {
	case QuestionMCQ, QuestionMultipleSelect, QuestionCoding, QuestionDescriptive:
		return true
	}
	return false
}

// AutoGraded reports whether answers of this type are scored on submit.
func (t QuestionType) AutoGraded() bool {
	return t == QuestionMCQ
}

type Quiz struct {
	ID               uuid.UUID  `gorm:"type:uuid;default:gen_random_uuid();primaryKey" json:"id"`
	TeacherID        uuid.UUID  `gorm:"type:uuid;not null;index" json:"teacher_id"`
	Teacher          User       `gorm:"foreignKey:TeacherID;references:ID;constraint:OnDelete:CASCADE;" json:"-"`
	SectionID        *uuid.UUID `gorm:"type:uuid;index" json:"section_id,omitempty"`
	Title            string     `gorm:"size:200;not null" json:"title"`
	Description      string     `gorm:"type:text" json:"description,omitempty"`
	Subject          string     `gorm:"size:100" json:"subject,omitempty"`
	DifficultyLevel  string     `gorm:"size:20;default:'medium'" json:"difficulty_level"`
	DurationMinutes  int        `gorm:"default:30" json:"duration_minutes"`
	PassingScore     float64    `gorm:"type:numeric(5,2);default:40" json:"passing_score"`
	IsPublished      bool       `gorm:"default:false" json:"is_published"`
	AllowRetake      bool       `gorm:"default:true" json:"allow_retake"`
	MaxRetakes       int        `gorm:"default:3" json:"max_retakes"`
	ShowAnswersAfter bool       `gorm:"default:true" json:"show_answers_after"`
	CreatedAt        time.Time  `gorm:"autoCreateTime" json:"created_at"`
	UpdatedAt        time.Time  `gorm:"autoUpdateTime" json:"updated_at"`
	Questions        []Question `gorm:"foreignKey:QuizID;constraint:OnDelete:CASCADE;" json:"questions,omitempty"`
}

// AttemptLimit is the number of attempts a student may start.
func (q Quiz) AttemptLimit() int {
	if !q.AllowRetake {
		return 1
	}
	return q.MaxRetakes
}

func (q Quiz) TotalPoints() float64 {
	var total float64
	for _, question := range q.Questions {
		total += question.Points
	}
	return total
}

type Question struct {
	ID           uuid.UUID        `gorm:"type:uuid;default:gen_random_uuid();primaryKey" json:"id"`
	QuizID       uuid.UUID        `gorm:"type:uuid;not null;index" json:"quiz_id"`
	QuestionType QuestionType     `gorm:"type:varchar(20);not null;default:'mcq'" json:"question_type"`
	Text         string           `gorm:"type:text;not null" json:"text"`
	ImageURL     string           `gorm:"size:255" json:"image_url,omitempty"`
	Points       float64          `gorm:"type:numeric(6,2);not null" json:"points"`
	SortOrder    int              `gorm:"default:0" json:"order"`
	Options      []QuestionOption `gorm:"foreignKey:QuestionID;constraint:OnDelete:CASCADE;" json:"options,omitempty"`
}

type QuestionOption struct {
	ID          uuid.UUID `gorm:"type:uuid;default:gen_random_uuid();primaryKey" json:"id"`
	QuestionID  uuid.UUID `gorm:"type:uuid;not null;index" json:"question_id"`
	Text        string    `gorm:"type:text;not null" json:"text"`
	IsCorrect   bool      `gorm:"default:false" json:"is_correct"`
	SortOrder   int       `gorm:"default:0" json:"order"`
	Explanation string    `gorm:"type:text" json:"explanation,omitempty"`
}

type AttemptStatus string

const (
	AttemptInProgress AttemptStatus = "in_progress"
	AttemptCompleted  AttemptStatus = "completed"
)

// (quiz, student, attempt_number) is unique so concurrent starts cannot share a number.
type QuizAttempt struct {
	ID               uuid.UUID       `gorm:"type:uuid;default:gen_random_uuid();primaryKey" json:"id"`
	QuizID           uuid.UUID       `gorm:"type:uuid;not null;uniqueIndex:idx_attempt_quiz_student_number" json:"quiz_id"`
	Quiz             Quiz            `gorm:"constraint:OnDelete:CASCADE;" json:"-"`
	StudentID        uuid.UUID       `gorm:"type:uuid;not null;uniqueIndex:idx_attempt_quiz_student_number;index" json:"student_id"`
	Student          User            `gorm:"foreignKey:StudentID;references:ID;constraint:OnDelete:CASCADE;" json:"-"`
	AttemptNumber    int             `gorm:"not null;uniqueIndex:idx_attempt_quiz_student_number" json:"attempt_number"`
	Status           AttemptStatus   `gorm:"type:varchar(20);not null;default:'in_progress'" json:"status"`
	Score            float64         `gorm:"type:numeric(8,2);default:0" json:"score"`
	TotalPoints      float64         `gorm:"type:numeric(8,2);default:0" json:"total_points"`
	Percentage       float64         `gorm:"type:numeric(5,2);default:0" json:"percentage"`
	StartedAt        time.Time       `gorm:"not null" json:"started_at"`
	CompletedAt      *time.Time      `json:"completed_at,omitempty"`
	TimeTakenMinutes int             `gorm:"default:0" json:"time_taken_minutes"`
	Answers          []StudentAnswer `gorm:"foreignKey:AttemptID;constraint:OnDelete:CASCADE;" json:"answers,omitempty"`
}

type StudentAnswer struct {
	ID               uuid.UUID  `gorm:"type:uuid;default:gen_random_uuid();primaryKey" json:"id"`
	AttemptID        uuid.UUID  `gorm:"type:uuid;not null;uniqueIndex:idx_answer_attempt_question" json:"attempt_id"`
	QuestionID       uuid.UUID  `gorm:"type:uuid;not null;uniqueIndex:idx_answer_attempt_question" json:"question_id"`
	SelectedOptionID *uuid.UUID `gorm:"type:uuid" json:"selected_option_id,omitempty"`
	AnswerText       string     `gorm:"type:text" json:"answer_text,omitempty"`
	// IsCorrect stays nil for question types that are not auto graded.
	IsCorrect    *bool     `json:"is_correct"`
	PointsEarned float64   `gorm:"type:numeric(6,2);default:0" json:"points_earned"`
	AIFeedback   string    `gorm:"type:text" json:"ai_feedback,omitempty"`
	AnsweredAt   time.Time `gorm:"autoCreateTime" json:"answered_at"`
}
