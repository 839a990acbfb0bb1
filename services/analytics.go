package services

import (
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"math"
	"sort"
	"time"

	"github.com/google/uuid"
	"gorm.io/datatypes"

	"github.com/gyanguru/gyanguru-backend/apperrors"
	"github.com/gyanguru/gyanguru-backend/models"
	"github.com/gyanguru/gyanguru-backend/repositories"
)

// WeakConceptThreshold is the accuracy (percent) below which a subject is
// reported as weak.
const WeakConceptThreshold = 60.0

type StudentDashboard struct {
	StudentID      uuid.UUID                      `json:"student_id"`
	Quizzes        repositories.QuizSummary       `json:"quizzes"`
	RecentAttempts []repositories.AttemptRow      `json:"recent_attempts"`
	Assignments    repositories.AssignmentSummary `json:"assignments"`
	Performance    *models.Performance            `json:"performance,omitempty"`
}

type StudentReport struct {
	repositories.StudentRow
	Attempts int64   `json:"attempts"`
	Average  float64 `json:"average_percentage"`
}

type ClassReport struct {
	SectionID    uuid.UUID       `json:"section_id"`
	StudentCount int             `json:"student_count"`
	ClassAverage float64         `json:"class_average"`
	Students     []StudentReport `json:"students"`
}

type LeaderboardEntry struct {
	Rank int `json:"rank"`
	StudentReport
}

type ConceptAccuracy struct {
	Subject  string  `json:"subject"`
	Correct  int64   `json:"correct"`
	Total    int64   `json:"total"`
	Accuracy float64 `json:"accuracy"`
}

type ConceptReport struct {
	StudentID uuid.UUID         `json:"student_id"`
	Weak      []ConceptAccuracy `json:"weak_concepts"`
	Strong    []ConceptAccuracy `json:"strong_concepts"`
}

// ImprovementAdvisor writes a study plan from a student's concept profile.
type ImprovementAdvisor interface {
	SuggestImprovements(ctx context.Context, name string, weak, strong []string) (Analysis, error)
}

type AnalyticsService struct {
	analytics repositories.AnalyticsRepository
	users     repositories.UserRepository
	advisor   ImprovementAdvisor
	now       func() time.Time
	logger    *slog.Logger
}

func NewAnalyticsService(analytics repositories.AnalyticsRepository, users repositories.UserRepository, advisor ImprovementAdvisor, logger *slog.Logger) *AnalyticsService {
	return &AnalyticsService{
		analytics: analytics,
		users:     users,
		advisor:   advisor,
		now:       time.Now,
		logger:    logger,
	}
}

func (s *AnalyticsService) WithClock(now func() time.Time) *AnalyticsService {
	s.now = now
	return s
}

func (s *AnalyticsService) Dashboard(ctx context.Context, studentID uuid.UUID) (*StudentDashboard, error) {
	quizzes, err := s.analytics.QuizSummary(ctx, studentID)
	if err != nil {
		return nil, err
	}
	recent, err := s.analytics.RecentAttempts(ctx, studentID, 10)
	if err != nil {
		return nil, err
	}
	assignments, err := s.analytics.AssignmentSummary(ctx, studentID)
	if err != nil {
		return nil, err
	}
	dashboard := &StudentDashboard{
		StudentID:      studentID,
		Quizzes:        quizzes,
		RecentAttempts: recent,
		Assignments:    assignments,
	}
	perf, err := s.analytics.GetPerformance(ctx, studentID)
	switch {
	case err == nil:
		dashboard.Performance = perf
	case !errors.Is(err, apperrors.ErrNotFound):
		return nil, err
	}
	return dashboard, nil
}

// ChildProgress is the dashboard of a student, visible to their own parent only.
func (s *AnalyticsService) ChildProgress(ctx context.Context, parentID, studentID uuid.UUID) (*StudentDashboard, error) {
	ok, err := s.analytics.IsParentOf(ctx, parentID, studentID)
	if err != nil {
		return nil, err
	}
	if !ok {
		return nil, apperrors.Forbidden("not authorized to view this student")
	}
	return s.Dashboard(ctx, studentID)
}

func (s *AnalyticsService) ClassAnalytics(ctx context.Context, sectionID uuid.UUID) (*ClassReport, error) {
	reports, err := s.sectionReports(ctx, sectionID)
	if err != nil {
		return nil, err
	}
	report := &ClassReport{SectionID: sectionID, StudentCount: len(reports), Students: reports}

	var sum float64
	var counted int
	for _, r := range reports {
		if r.Attempts > 0 {
			sum += r.Average
			counted++
		}
	}
	if counted > 0 {
		report.ClassAverage = round2(sum / float64(counted))
	}
	return report, nil
}

func (s *AnalyticsService) Leaderboard(ctx context.Context, sectionID uuid.UUID) ([]LeaderboardEntry, error) {
	reports, err := s.sectionReports(ctx, sectionID)
	if err != nil {
		return nil, err
	}
	return RankStudents(reports), nil
}

func (s *AnalyticsService) sectionReports(ctx context.Context, sectionID uuid.UUID) ([]StudentReport, error) {
	students, err := s.analytics.SectionStudents(ctx, sectionID)
	if err != nil {
		return nil, err
	}
	ids := make([]uuid.UUID, 0, len(students))
	for _, st := range students {
		ids = append(ids, st.UserID)
	}
	averages, err := s.analytics.StudentAverages(ctx, ids)
	if err != nil {
		return nil, err
	}
	reports := make([]StudentReport, 0, len(students))
	for _, st := range students {
		avg := averages[st.UserID]
		reports = append(reports, StudentReport{StudentRow: st, Attempts: avg.Attempts, Average: round2(avg.Average)})
	}
	return reports, nil
}

// RankStudents orders students by mean percentage. Equal averages share a
// rank and the next rank skips accordingly (1, 2, 2, 4). Students without
// completed attempts are listed last.
func RankStudents(reports []StudentReport) []LeaderboardEntry {
	sorted := make([]StudentReport, len(reports))
	copy(sorted, reports)
	sort.SliceStable(sorted, func(i, j int) bool {
		a, b := sorted[i], sorted[j]
		if (a.Attempts > 0) != (b.Attempts > 0) {
			return a.Attempts > 0
		}
		if a.Average != b.Average {
			return a.Average > b.Average
		}
		return a.RollNumber < b.RollNumber
	})

	entries := make([]LeaderboardEntry, 0, len(sorted))
	for i, r := range sorted {
		rank := i + 1
		if i > 0 {
			prev := entries[i-1]
			if prev.Average == r.Average && (prev.Attempts > 0) == (r.Attempts > 0) {
				rank = prev.Rank
			}
		}
		entries = append(entries, LeaderboardEntry{Rank: rank, StudentReport: r})
	}
	return entries
}

// WeakConcepts splits a student's auto graded answers by quiz subject into
// weak (accuracy below the threshold) and strong subjects. Students see
// their own report, parents their children's, staff anyone's.
func (s *AnalyticsService) WeakConcepts(ctx context.Context, actor Actor, studentID uuid.UUID) (*ConceptReport, error) {
	if err := s.canView(ctx, actor, studentID); err != nil {
		return nil, err
	}
	rows, err := s.analytics.SubjectAccuracy(ctx, studentID)
	if err != nil {
		return nil, err
	}
	weak, strong := SplitConcepts(rows)
	return &ConceptReport{StudentID: studentID, Weak: weak, Strong: strong}, nil
}

func SplitConcepts(rows []repositories.SubjectAccuracy) (weak, strong []ConceptAccuracy) {
	weak, strong = []ConceptAccuracy{}, []ConceptAccuracy{}
	for _, row := range rows {
		if row.Total == 0 {
			continue
		}
		c := ConceptAccuracy{
			Subject:  row.Subject,
			Correct:  row.Correct,
			Total:    row.Total,
			Accuracy: Percentage(float64(row.Correct), float64(row.Total)),
		}
		if c.Accuracy < WeakConceptThreshold {
			weak = append(weak, c)
		} else {
			strong = append(strong, c)
		}
	}
	sort.SliceStable(weak, func(i, j int) bool { return weak[i].Accuracy < weak[j].Accuracy })
	sort.SliceStable(strong, func(i, j int) bool { return strong[i].Accuracy > strong[j].Accuracy })
	return weak, strong
}

func (s *AnalyticsService) canView(ctx context.Context, actor Actor, studentID uuid.UUID) error {
	switch actor.Role {
	case models.RoleTeacher, models.RoleAdmin:
		return nil
	case models.RoleStudent:
		if actor.ID == studentID {
			return nil
		}
	case models.RoleParent:
		ok, err := s.analytics.IsParentOf(ctx, actor.ID, studentID)
		if err != nil {
			return err
		}
		if ok {
			return nil
		}
	}
	return apperrors.Forbidden("not authorized to view this student")
}

// Suggestions asks the advisor for a study plan built from the student's
// weak and strong subjects.
func (s *AnalyticsService) Suggestions(ctx context.Context, studentID uuid.UUID) (Analysis, error) {
	user, err := s.users.GetByID(ctx, studentID)
	if err != nil {
		return nil, err
	}
	rows, err := s.analytics.SubjectAccuracy(ctx, studentID)
	if err != nil {
		return nil, err
	}
	weak, strong := SplitConcepts(rows)
	if s.advisor == nil {
		return nil, apperrors.Dependency("ai analysis is not configured", nil)
	}
	return s.advisor.SuggestImprovements(ctx, user.FirstName, subjects(weak), subjects(strong))
}

// RecomputePerformance rebuilds the student's performance row from their
// completed attempts and graded submissions.
func (s *AnalyticsService) RecomputePerformance(ctx context.Context, studentID uuid.UUID) error {
	quizzes, err := s.analytics.QuizSummary(ctx, studentID)
	if err != nil {
		return err
	}
	assignments, err := s.analytics.AssignmentSummary(ctx, studentID)
	if err != nil {
		return err
	}
	rows, err := s.analytics.SubjectAccuracy(ctx, studentID)
	if err != nil {
		return err
	}
	weak, strong := SplitConcepts(rows)
	weakJSON, _ := json.Marshal(subjects(weak))
	strongJSON, _ := json.Marshal(subjects(strong))

	now := s.now().UTC()
	perf := &models.Performance{
		StudentID:         studentID,
		QuizAverage:       round2(quizzes.AveragePercentage),
		AssignmentAverage: round2(assignments.AveragePercentage),
		OverallScore:      OverallScore(quizzes, assignments),
		QuizzesCompleted:  int(quizzes.Completed),
		WeakConcepts:      datatypes.JSON(weakJSON),
		StrongConcepts:    datatypes.JSON(strongJSON),
		LastActivityAt:    &now,
	}
	if err := s.analytics.UpsertPerformance(ctx, perf); err != nil {
		return err
	}
	s.logger.Info("Performance recomputed", "student_id", studentID, "overall_score", perf.OverallScore)
	return nil
}

// OverallScore averages the quiz and assignment means, counting only the
// sources the student has results in.
func OverallScore(quizzes repositories.QuizSummary, assignments repositories.AssignmentSummary) float64 {
	var sum float64
	var parts int
	if quizzes.Completed > 0 {
		sum += quizzes.AveragePercentage
		parts++
	}
	if assignments.Graded > 0 {
		sum += assignments.AveragePercentage
		parts++
	}
	if parts == 0 {
		return 0
	}
	return round2(sum / float64(parts))
}

func subjects(concepts []ConceptAccuracy) []string {
	out := make([]string, 0, len(concepts))
	for _, c := range concepts {
		out = append(out, c.Subject)
	}
	return out
}

func round2(v float64) float64 {
	return math.Round(v*100) / 100
}
