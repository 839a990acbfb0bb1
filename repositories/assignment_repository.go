package repositories

import (
	"context"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/gyanguru/gyanguru-backend/models"
)

type GormAssignmentRepository struct {
	db *gorm.DB
}

func NewAssignmentRepository(db *gorm.DB) *GormAssignmentRepository {
	return &GormAssignmentRepository{db: db}
}

func (r *GormAssignmentRepository) Create(ctx context.Context, assignment *models.Assignment) error {
	return classify(r.db.WithContext(ctx).Create(assignment).Error, "assignment")
}

func (r *GormAssignmentRepository) GetByID(ctx context.Context, id uuid.UUID) (*models.Assignment, error) {
	var assignment models.Assignment
	if err := r.db.WithContext(ctx).First(&assignment, "id = ?", id).Error; err != nil {
		return nil, classify(err, "assignment")
	}
	return &assignment, nil
}

func (r *GormAssignmentRepository) FindSubmission(ctx context.Context, assignmentID, studentID uuid.UUID) (*models.Submission, error) {
	var submission models.Submission
	err := r.db.WithContext(ctx).
		Where("assignment_id = ? AND student_id = ?", assignmentID, studentID).
		First(&submission).Error
	if err != nil {
		return nil, classify(err, "submission")
	}
	return &submission, nil
}

func (r *GormAssignmentRepository) GetSubmission(ctx context.Context, id uuid.UUID) (*models.Submission, error) {
	var submission models.Submission
	if err := r.db.WithContext(ctx).First(&submission, "id = ?", id).Error; err != nil {
		return nil, classify(err, "submission")
	}
	return &submission, nil
}

// SaveSubmission inserts a new submission or rewrites an existing one.
func (r *GormAssignmentRepository) SaveSubmission(ctx context.Context, submission *models.Submission) error {
	db := r.db.WithContext(ctx).Omit("Assignment")
	if submission.ID == uuid.Nil {
		return classify(db.Create(submission).Error, "submission")
	}
	return classify(db.Save(submission).Error, "submission")
}

func (r *GormAssignmentRepository) ListSubmissions(ctx context.Context, assignmentID uuid.UUID) ([]models.Submission, error) {
	var submissions []models.Submission
	err := r.db.WithContext(ctx).
		Where("assignment_id = ?", assignmentID).
		Order("submitted_at DESC").
		Find(&submissions).Error
	return submissions, err
}
