package services

import (
	"fmt"
	"math"

	"github.com/google/uuid"

	"github.com/gyanguru/gyanguru-backend/apperrors"
	"github.com/gyanguru/gyanguru-backend/models"
)

type AnswerInput struct {
	QuestionID       uuid.UUID  `json:"question_id" binding:"required"`
	SelectedOptionID *uuid.UUID `json:"selected_option_id"`
	AnswerText       string     `json:"answer_text"`
}

type GradeSummary struct {
	Score       float64 `json:"score"`
	TotalPoints float64 `json:"total_points"`
	Percentage  float64 `json:"percentage"`
}

// GradeAnswers scores submitted answers against the quiz. Single choice
// answers earn the full question points or nothing; other question types are
// stored ungraded. Total points cover every question in the quiz, answered or not.
func GradeAnswers(quiz *models.Quiz, attemptID uuid.UUID, submitted []AnswerInput) ([]models.StudentAnswer, GradeSummary, error) {
	questions := make(map[uuid.UUID]*models.Question, len(quiz.Questions))
	for i := range quiz.Questions {
		questions[quiz.Questions[i].ID] = &quiz.Questions[i]
	}

	seen := make(map[uuid.UUID]bool, len(submitted))
	answers := make([]models.StudentAnswer, 0, len(submitted))
	var score float64
	for i, in := range submitted {
		question, ok := questions[in.QuestionID]
		if !ok {
			return nil, GradeSummary{}, apperrors.Validation(fmt.Sprintf("answers[%d].question_id", i), "question does not belong to this quiz")
		}
		if seen[in.QuestionID] {
			return nil, GradeSummary{}, apperrors.Validation(fmt.Sprintf("answers[%d].question_id", i), "question answered more than once")
		}
		seen[in.QuestionID] = true

		answer := models.StudentAnswer{
			AttemptID:        attemptID,
			QuestionID:       question.ID,
			SelectedOptionID: in.SelectedOptionID,
			AnswerText:       in.AnswerText,
		}
		if question.QuestionType.AutoGraded() {
			correct := selectedCorrectOption(question, in.SelectedOptionID)
			answer.IsCorrect = &correct
			if correct {
				answer.PointsEarned = question.Points
				score += question.Points
			}
		}
		answers = append(answers, answer)
	}

	total := quiz.TotalPoints()
	return answers, GradeSummary{
		Score:       score,
		TotalPoints: total,
		Percentage:  Percentage(score, total),
	}, nil
}

// selectedCorrectOption is false for a missing selection or an option that
// belongs to another question.
func selectedCorrectOption(question *models.Question, selected *uuid.UUID) bool {
	if selected == nil {
		return false
	}
	for _, option := range question.Options {
		if option.ID == *selected {
			return option.IsCorrect
		}
	}
	return false
}

// Percentage is score/total*100 rounded to two decimals, clamped to [0, 100],
// and 0 when the quiz is worth nothing.
func Percentage(score, total float64) float64 {
	if total <= 0 {
		return 0
	}
	p := score / total * 100
	p = math.Max(0, math.Min(100, p))
	return math.Round(p*100) / 100
}
