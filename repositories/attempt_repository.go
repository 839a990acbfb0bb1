package repositories

import (
	"context"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/gyanguru/gyanguru-backend/apperrors"
	"github.com/gyanguru/gyanguru-backend/models"
)

type GormAttemptRepository struct {
	db *gorm.DB
}

func NewAttemptRepository(db *gorm.DB) *GormAttemptRepository {
	return &GormAttemptRepository{db: db}
}

func (r *GormAttemptRepository) CountForStudent(ctx context.Context, quizID, studentID uuid.UUID) (int64, error) {
	var count int64
	err := r.db.WithContext(ctx).Model(&models.QuizAttempt{}).
		Where("quiz_id = ? AND student_id = ?", quizID, studentID).
		Count(&count).Error
	return count, err
}

func (r *GormAttemptRepository) Create(ctx context.Context, attempt *models.QuizAttempt) error {
	return classify(r.db.WithContext(ctx).Create(attempt).Error, "attempt")
}

func (r *GormAttemptRepository) GetByID(ctx context.Context, id uuid.UUID) (*models.QuizAttempt, error) {
	var attempt models.QuizAttempt
	err := r.db.WithContext(ctx).
		Preload("Answers", func(tx *gorm.DB) *gorm.DB {
			return tx.Order("answered_at ASC")
		}).
		First(&attempt, "id = ?", id).Error
	if err != nil {
		return nil, classify(err, "attempt")
	}
	return &attempt, nil
}

func (r *GormAttemptRepository) ListByStudent(ctx context.Context, studentID uuid.UUID) ([]models.QuizAttempt, error) {
	var attempts []models.QuizAttempt
	err := r.db.WithContext(ctx).
		Where("student_id = ?", studentID).
		Order("started_at DESC").
		Find(&attempts).Error
	return attempts, err
}

func (r *GormAttemptRepository) Complete(ctx context.Context, attempt *models.QuizAttempt, answers []models.StudentAnswer) error {
	return r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		res := tx.Model(&models.QuizAttempt{}).
			Where("id = ? AND status = ?", attempt.ID, models.AttemptInProgress).
			Updates(map[string]interface{}{
				"status":             attempt.Status,
				"score":              attempt.Score,
				"total_points":       attempt.TotalPoints,
				"percentage":         attempt.Percentage,
				"completed_at":       attempt.CompletedAt,
				"time_taken_minutes": attempt.TimeTakenMinutes,
			})
		if res.Error != nil {
			return res.Error
		}
		if res.RowsAffected == 0 {
			return apperrors.Conflict("attempt already submitted")
		}
		if len(answers) == 0 {
			return nil
		}
		return classify(tx.Create(&answers).Error, "answer")
	})
}
