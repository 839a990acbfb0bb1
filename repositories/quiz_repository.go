package repositories

import (
	"context"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/gyanguru/gyanguru-backend/models"
)

type GormQuizRepository struct {
	db *gorm.DB
}

func NewQuizRepository(db *gorm.DB) *GormQuizRepository {
	return &GormQuizRepository{db: db}
}

// Create inserts the quiz with its questions and options.
func (r *GormQuizRepository) Create(ctx context.Context, quiz *models.Quiz) error {
	return classify(r.db.WithContext(ctx).Create(quiz).Error, "quiz")
}

func (r *GormQuizRepository) GetWithQuestions(ctx context.Context, id uuid.UUID) (*models.Quiz, error) {
	var quiz models.Quiz
	err := r.db.WithContext(ctx).
		Preload("Questions", func(tx *gorm.DB) *gorm.DB {
			return tx.Order("sort_order ASC")
		}).
		Preload("Questions.Options", func(tx *gorm.DB) *gorm.DB {
			return tx.Order("sort_order ASC")
		}).
		First(&quiz, "id = ?", id).Error
	if err != nil {
		return nil, classify(err, "quiz")
	}
	return &quiz, nil
}

func (r *GormQuizRepository) ListPublished(ctx context.Context, filters QuizFilters) ([]models.Quiz, int64, error) {
	query := r.db.WithContext(ctx).Model(&models.Quiz{}).Where("is_published = ?", true)
	if filters.Subject != "" {
		query = query.Where("subject = ?", filters.Subject)
	}
	if filters.SectionID != nil {
		query = query.Where("section_id = ?", *filters.SectionID)
	}

	var total int64
	if err := query.Count(&total).Error; err != nil {
		return nil, 0, err
	}

	limit := filters.Limit
	if limit <= 0 || limit > 100 {
		limit = 20
	}
	var quizzes []models.Quiz
	err := query.Order("created_at DESC").Limit(limit).Offset(filters.Offset).Find(&quizzes).Error
	if err != nil {
		return nil, 0, err
	}
	return quizzes, total, nil
}

func (r *GormQuizRepository) SetPublished(ctx context.Context, id uuid.UUID, published bool) error {
	res := r.db.WithContext(ctx).Model(&models.Quiz{}).Where("id = ?", id).Update("is_published", published)
	if res.Error != nil {
		return res.Error
	}
	if res.RowsAffected == 0 {
		return classify(gorm.ErrRecordNotFound, "quiz")
	}
	return nil
}
