package services

import (
	"bytes"
	"context"
	"encoding/json"
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
	"github.com/xuri/excelize/v2"

	"github.com/gyanguru/gyanguru-backend/apperrors"
	"github.com/gyanguru/gyanguru-backend/models"
	"github.com/gyanguru/gyanguru-backend/repositories"
)

type fakeAdvisor struct {
	weak, strong []string
}

func (a *fakeAdvisor) SuggestImprovements(_ context.Context, _ string, weak, strong []string) (Analysis, error) {
	a.weak, a.strong = weak, strong
	return Analysis{"study_plan": "practice daily"}, nil
}

func report(roll string, attempts int64, avg float64) StudentReport {
	return StudentReport{
		StudentRow: repositories.StudentRow{UserID: uuid.New(), RollNumber: roll},
		Attempts:   attempts,
		Average:    avg,
	}
}

func TestRankStudents(t *testing.T) {
	entries := RankStudents([]StudentReport{
		report("04", 0, 0),
		report("02", 3, 72.5),
		report("01", 2, 90),
		report("03", 1, 72.5),
		report("05", 1, 10),
	})

	require.Len(t, entries, 5)
	var rolls []string
	var ranks []int
	for _, e := range entries {
		rolls = append(rolls, e.RollNumber)
		ranks = append(ranks, e.Rank)
	}
	assert.Equal(t, []string{"01", "02", "03", "05", "04"}, rolls)
	assert.Equal(t, []int{1, 2, 2, 4, 5}, ranks)
}

func TestRankStudentsEmpty(t *testing.T) {
	assert.Empty(t, RankStudents(nil))
}

func TestSplitConcepts(t *testing.T) {
	weak, strong := SplitConcepts([]repositories.SubjectAccuracy{
		{Subject: "Physics", Correct: 3, Total: 5},
		{Subject: "Algebra", Correct: 1, Total: 4},
		{Subject: "Biology", Correct: 9, Total: 10},
		{Subject: "Empty", Correct: 0, Total: 0},
	})

	require.Len(t, weak, 1)
	assert.Equal(t, "Algebra", weak[0].Subject)
	assert.Equal(t, 25.0, weak[0].Accuracy)
	require.Len(t, strong, 2)
	assert.Equal(t, "Biology", strong[0].Subject)
	assert.Equal(t, "Physics", strong[1].Subject, "exactly 60% is not weak")
}

func TestOverallScore(t *testing.T) {
	assert.Equal(t, 0.0, OverallScore(repositories.QuizSummary{}, repositories.AssignmentSummary{}))
	assert.Equal(t, 80.0, OverallScore(repositories.QuizSummary{Completed: 2, AveragePercentage: 80}, repositories.AssignmentSummary{}))
	assert.Equal(t, 70.0, OverallScore(
		repositories.QuizSummary{Completed: 2, AveragePercentage: 80},
		repositories.AssignmentSummary{Graded: 1, AveragePercentage: 60},
	))
}

func TestDashboardWithoutPerformance(t *testing.T) {
	repo := new(MockAnalyticsRepository)
	student := uuid.New()
	repo.On("QuizSummary", mock.Anything, student).Return(repositories.QuizSummary{Attempts: 2, Completed: 1, AveragePercentage: 50}, nil)
	repo.On("RecentAttempts", mock.Anything, student, 10).Return([]repositories.AttemptRow{{QuizTitle: "Cells"}}, nil)
	repo.On("AssignmentSummary", mock.Anything, student).Return(repositories.AssignmentSummary{}, nil)
	repo.On("GetPerformance", mock.Anything, student).Return(nil, apperrors.NotFound("performance not found"))

	svc := NewAnalyticsService(repo, newFakeUserRepo(), nil, testLogger())
	dashboard, err := svc.Dashboard(context.Background(), student)
	require.NoError(t, err)
	assert.Nil(t, dashboard.Performance)
	assert.Equal(t, int64(2), dashboard.Quizzes.Attempts)
	assert.Len(t, dashboard.RecentAttempts, 1)
	repo.AssertExpectations(t)
}

func TestChildProgressRequiresParentLink(t *testing.T) {
	repo := new(MockAnalyticsRepository)
	parent, child := uuid.New(), uuid.New()
	repo.On("IsParentOf", mock.Anything, parent, child).Return(false, nil)

	svc := NewAnalyticsService(repo, newFakeUserRepo(), nil, testLogger())
	_, err := svc.ChildProgress(context.Background(), parent, child)
	assert.ErrorIs(t, err, apperrors.ErrForbidden)
	repo.AssertNotCalled(t, "QuizSummary", mock.Anything, mock.Anything)
}

func TestWeakConceptsAccess(t *testing.T) {
	repo := new(MockAnalyticsRepository)
	student, other, parent := uuid.New(), uuid.New(), uuid.New()
	repo.On("SubjectAccuracy", mock.Anything, mock.Anything).Return([]repositories.SubjectAccuracy{
		{Subject: "Chemistry", Correct: 1, Total: 3},
	}, nil)
	repo.On("IsParentOf", mock.Anything, parent, student).Return(true, nil)
	svc := NewAnalyticsService(repo, newFakeUserRepo(), nil, testLogger())
	ctx := context.Background()

	got, err := svc.WeakConcepts(ctx, Actor{ID: student, Role: models.RoleStudent}, student)
	require.NoError(t, err)
	require.Len(t, got.Weak, 1)
	assert.Equal(t, "Chemistry", got.Weak[0].Subject)

	_, err = svc.WeakConcepts(ctx, Actor{ID: other, Role: models.RoleStudent}, student)
	assert.ErrorIs(t, err, apperrors.ErrForbidden)

	_, err = svc.WeakConcepts(ctx, Actor{ID: parent, Role: models.RoleParent}, student)
	assert.NoError(t, err)

	_, err = svc.WeakConcepts(ctx, Actor{ID: uuid.New(), Role: models.RoleTeacher}, student)
	assert.NoError(t, err)
}

func TestClassAnalyticsAveragesActiveStudents(t *testing.T) {
	repo := new(MockAnalyticsRepository)
	section := uuid.New()
	a, b, c := uuid.New(), uuid.New(), uuid.New()
	repo.On("SectionStudents", mock.Anything, section).Return([]repositories.StudentRow{
		{UserID: a, RollNumber: "01"}, {UserID: b, RollNumber: "02"}, {UserID: c, RollNumber: "03"},
	}, nil)
	repo.On("StudentAverages", mock.Anything, []uuid.UUID{a, b, c}).Return(map[uuid.UUID]repositories.StudentAverage{
		a: {Attempts: 2, Average: 80},
		b: {Attempts: 1, Average: 55.555},
	}, nil)

	svc := NewAnalyticsService(repo, newFakeUserRepo(), nil, testLogger())
	got, err := svc.ClassAnalytics(context.Background(), section)
	require.NoError(t, err)
	assert.Equal(t, 3, got.StudentCount)
	assert.Equal(t, 55.56, got.Students[1].Average)
	assert.Equal(t, 67.78, got.ClassAverage)

	board, err := svc.Leaderboard(context.Background(), section)
	require.NoError(t, err)
	assert.Equal(t, a, board[0].UserID)
	assert.Equal(t, c, board[2].UserID)
}

func TestRecomputePerformance(t *testing.T) {
	repo := new(MockAnalyticsRepository)
	student := uuid.New()
	clock := newFakeClock()
	repo.On("QuizSummary", mock.Anything, student).Return(repositories.QuizSummary{Completed: 4, AveragePercentage: 75.126}, nil)
	repo.On("AssignmentSummary", mock.Anything, student).Return(repositories.AssignmentSummary{Graded: 1, AveragePercentage: 85}, nil)
	repo.On("SubjectAccuracy", mock.Anything, student).Return([]repositories.SubjectAccuracy{
		{Subject: "Algebra", Correct: 1, Total: 4},
		{Subject: "Biology", Correct: 4, Total: 4},
	}, nil)
	repo.On("UpsertPerformance", mock.Anything, mock.MatchedBy(func(p *models.Performance) bool {
		var weak []string
		_ = json.Unmarshal(p.WeakConcepts, &weak)
		return p.StudentID == student &&
			p.QuizAverage == 75.13 &&
			p.OverallScore == 80.06 &&
			p.QuizzesCompleted == 4 &&
			len(weak) == 1 && weak[0] == "Algebra" &&
			p.LastActivityAt != nil && p.LastActivityAt.Equal(clock.Now())
	})).Return(nil)

	svc := NewAnalyticsService(repo, newFakeUserRepo(), nil, testLogger()).WithClock(clock.Now)
	require.NoError(t, svc.RecomputePerformance(context.Background(), student))
	repo.AssertExpectations(t)
}

func TestSuggestionsUsesConceptProfile(t *testing.T) {
	repo := new(MockAnalyticsRepository)
	users := newFakeUserRepo()
	student := users.add(models.User{FirstName: "Asha", Role: models.RoleStudent})
	repo.On("SubjectAccuracy", mock.Anything, student.ID).Return([]repositories.SubjectAccuracy{
		{Subject: "Algebra", Correct: 1, Total: 4},
		{Subject: "Biology", Correct: 4, Total: 4},
	}, nil)
	advisor := &fakeAdvisor{}

	got, err := NewAnalyticsService(repo, users, advisor, testLogger()).Suggestions(context.Background(), student.ID)
	require.NoError(t, err)
	assert.Equal(t, "practice daily", got["study_plan"])
	assert.Equal(t, []string{"Algebra"}, advisor.weak)
	assert.Equal(t, []string{"Biology"}, advisor.strong)
}

func TestClassReportWorkbook(t *testing.T) {
	rep := &ClassReport{
		ClassAverage: 72.5,
		Students: []StudentReport{
			{StudentRow: repositories.StudentRow{UserID: uuid.New(), FirstName: "Asha", LastName: "Rao", RollNumber: "01"}, Attempts: 2, Average: 72.5},
		},
	}

	data, err := ClassReportWorkbook(rep)
	require.NoError(t, err)

	f, err := excelize.OpenReader(bytes.NewReader(data))
	require.NoError(t, err)
	defer f.Close()

	assert.Equal(t, []string{classSheet}, f.GetSheetList())
	header, err := f.GetCellValue(classSheet, "A1")
	require.NoError(t, err)
	assert.Equal(t, "Roll Number", header)
	name, err := f.GetCellValue(classSheet, "B2")
	require.NoError(t, err)
	assert.Equal(t, "Asha", name)
	avg, err := f.GetCellValue(classSheet, "F4")
	require.NoError(t, err)
	assert.Equal(t, "72.5", avg)
}
