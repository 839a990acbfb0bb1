package repositories

import (
	"context"

	"github.com/google/uuid"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"github.com/gyanguru/gyanguru-backend/models"
)

type GormAnalyticsRepository struct {
	db *gorm.DB
}

func NewAnalyticsRepository(db *gorm.DB) *GormAnalyticsRepository {
	return &GormAnalyticsRepository{db: db}
}

func (r *GormAnalyticsRepository) QuizSummary(ctx context.Context, studentID uuid.UUID) (QuizSummary, error) {
	var summary QuizSummary
	err := r.db.WithContext(ctx).Model(&models.QuizAttempt{}).
		Select(`COUNT(*) AS attempts,
			COUNT(*) FILTER (WHERE status = ?) AS completed,
			COALESCE(AVG(percentage) FILTER (WHERE status = ?), 0) AS average_percentage,
			COALESCE(MAX(percentage) FILTER (WHERE status = ?), 0) AS best_percentage`,
			models.AttemptCompleted, models.AttemptCompleted, models.AttemptCompleted).
		Where("student_id = ?", studentID).
		Scan(&summary).Error
	return summary, err
}

func (r *GormAnalyticsRepository) RecentAttempts(ctx context.Context, studentID uuid.UUID, limit int) ([]AttemptRow, error) {
	var rows []AttemptRow
	err := r.db.WithContext(ctx).Table("quiz_attempts AS a").
		Select("a.id AS attempt_id, a.quiz_id, q.title AS quiz_title, q.subject, a.percentage, a.completed_at").
		Joins("JOIN quizzes q ON q.id = a.quiz_id").
		Where("a.student_id = ? AND a.status = ?", studentID, models.AttemptCompleted).
		Order("a.completed_at DESC").
		Limit(limit).
		Scan(&rows).Error
	return rows, err
}

func (r *GormAnalyticsRepository) AssignmentSummary(ctx context.Context, studentID uuid.UUID) (AssignmentSummary, error) {
	var summary AssignmentSummary
	err := r.db.WithContext(ctx).Table("submissions AS s").
		Select(`COUNT(*) FILTER (WHERE s.status <> ?) AS submitted,
			COUNT(*) FILTER (WHERE s.status = ?) AS graded,
			COALESCE(AVG(s.grade * 100.0 / NULLIF(a.max_points, 0)) FILTER (WHERE s.status = ?), 0) AS average_percentage`,
			models.SubmissionDraft, models.SubmissionGraded, models.SubmissionGraded).
		Joins("JOIN assignments a ON a.id = s.assignment_id").
		Where("s.student_id = ?", studentID).
		Scan(&summary).Error
	return summary, err
}

func (r *GormAnalyticsRepository) SectionStudents(ctx context.Context, sectionID uuid.UUID) ([]StudentRow, error) {
	var rows []StudentRow
	err := r.db.WithContext(ctx).Table("students AS s").
		Select("s.user_id, u.first_name, u.last_name, s.roll_number").
		Joins("JOIN users u ON u.id = s.user_id").
		Where("s.section_id = ? AND s.is_active = ?", sectionID, true).
		Order("s.roll_number ASC").
		Scan(&rows).Error
	return rows, err
}

func (r *GormAnalyticsRepository) StudentAverages(ctx context.Context, studentIDs []uuid.UUID) (map[uuid.UUID]StudentAverage, error) {
	out := make(map[uuid.UUID]StudentAverage, len(studentIDs))
	if len(studentIDs) == 0 {
		return out, nil
	}
	var rows []struct {
		StudentID uuid.UUID
		Attempts  int64
		Average   float64
	}
	err := r.db.WithContext(ctx).Model(&models.QuizAttempt{}).
		Select("student_id, COUNT(*) AS attempts, AVG(percentage) AS average").
		Where("student_id IN ? AND status = ?", studentIDs, models.AttemptCompleted).
		Group("student_id").
		Scan(&rows).Error
	if err != nil {
		return nil, err
	}
	for _, row := range rows {
		out[row.StudentID] = StudentAverage{Attempts: row.Attempts, Average: row.Average}
	}
	return out, nil
}

// SubjectAccuracy counts auto graded answers per quiz subject.
func (r *GormAnalyticsRepository) SubjectAccuracy(ctx context.Context, studentID uuid.UUID) ([]SubjectAccuracy, error) {
	var rows []SubjectAccuracy
	err := r.db.WithContext(ctx).Table("student_answers AS sa").
		Select(`COALESCE(NULLIF(q.subject, ''), 'General') AS subject,
			COUNT(*) FILTER (WHERE sa.is_correct) AS correct,
			COUNT(*) AS total`).
		Joins("JOIN quiz_attempts a ON a.id = sa.attempt_id").
		Joins("JOIN quizzes q ON q.id = a.quiz_id").
		Where("a.student_id = ? AND sa.is_correct IS NOT NULL", studentID).
		Group("1").
		Order("1").
		Scan(&rows).Error
	return rows, err
}

func (r *GormAnalyticsRepository) IsParentOf(ctx context.Context, parentUserID, studentUserID uuid.UUID) (bool, error) {
	var count int64
	err := r.db.WithContext(ctx).Table("students AS s").
		Joins("JOIN parents p ON p.id = s.parent_id").
		Where("s.user_id = ? AND p.user_id = ?", studentUserID, parentUserID).
		Count(&count).Error
	return count > 0, err
}

func (r *GormAnalyticsRepository) GetPerformance(ctx context.Context, studentID uuid.UUID) (*models.Performance, error) {
	var perf models.Performance
	if err := r.db.WithContext(ctx).First(&perf, "student_id = ?", studentID).Error; err != nil {
		return nil, classify(err, "performance")
	}
	return &perf, nil
}

func (r *GormAnalyticsRepository) UpsertPerformance(ctx context.Context, perf *models.Performance) error {
	return r.db.WithContext(ctx).Clauses(clause.OnConflict{
		Columns: []clause.Column{{Name: "student_id"}},
		DoUpdates: clause.AssignmentColumns([]string{
			"quiz_average", "assignment_average", "overall_score", "quizzes_completed",
			"weak_concepts", "strong_concepts", "last_activity_at", "updated_at",
		}),
	}).Create(perf).Error
}

func (r *GormAnalyticsRepository) SystemCounts(ctx context.Context) (SystemCounts, error) {
	var counts SystemCounts
	db := r.db.WithContext(ctx)
	steps := []struct {
		model interface{}
		where string
		args  []interface{}
		dest  *int64
	}{
		{&models.Institution{}, "", nil, &counts.Institutions},
		{&models.Quiz{}, "", nil, &counts.Quizzes},
		{&models.QuizAttempt{}, "", nil, &counts.Attempts},
		{&models.Assignment{}, "", nil, &counts.Assignments},
		{&models.DoubtRoom{}, "status = ?", []interface{}{models.RoomActive}, &counts.OpenRooms},
	}
	for _, step := range steps {
		q := db.Model(step.model)
		if step.where != "" {
			q = q.Where(step.where, step.args...)
		}
		if err := q.Count(step.dest).Error; err != nil {
			return counts, err
		}
	}
	return counts, nil
}
