package services

import (
	"context"

	"github.com/google/uuid"
	"github.com/stretchr/testify/mock"

	"github.com/gyanguru/gyanguru-backend/models"
	"github.com/gyanguru/gyanguru-backend/repositories"
)

// MockAnalyticsRepository is a mock implementation of AnalyticsRepository
type MockAnalyticsRepository struct {
	mock.Mock
}

func (m *MockAnalyticsRepository) QuizSummary(ctx context.Context, studentID uuid.UUID) (repositories.QuizSummary, error) {
	args := m.Called(ctx, studentID)
	return args.Get(0).(repositories.QuizSummary), args.Error(1)
}

func (m *MockAnalyticsRepository) RecentAttempts(ctx context.Context, studentID uuid.UUID, limit int) ([]repositories.AttemptRow, error) {
	args := m.Called(ctx, studentID, limit)
	return args.Get(0).([]repositories.AttemptRow), args.Error(1)
}

func (m *MockAnalyticsRepository) AssignmentSummary(ctx context.Context, studentID uuid.UUID) (repositories.AssignmentSummary, error) {
	args := m.Called(ctx, studentID)
	return args.Get(0).(repositories.AssignmentSummary), args.Error(1)
}

func (m *MockAnalyticsRepository) SectionStudents(ctx context.Context, sectionID uuid.UUID) ([]repositories.StudentRow, error) {
	args := m.Called(ctx, sectionID)
	return args.Get(0).([]repositories.StudentRow), args.Error(1)
}

func (m *MockAnalyticsRepository) StudentAverages(ctx context.Context, studentIDs []uuid.UUID) (map[uuid.UUID]repositories.StudentAverage, error) {
	args := m.Called(ctx, studentIDs)
	return args.Get(0).(map[uuid.UUID]repositories.StudentAverage), args.Error(1)
}

func (m *MockAnalyticsRepository) SubjectAccuracy(ctx context.Context, studentID uuid.UUID) ([]repositories.SubjectAccuracy, error) {
	args := m.Called(ctx, studentID)
	return args.Get(0).([]repositories.SubjectAccuracy), args.Error(1)
}

func (m *MockAnalyticsRepository) IsParentOf(ctx context.Context, parentUserID, studentUserID uuid.UUID) (bool, error) {
	args := m.Called(ctx, parentUserID, studentUserID)
	return args.Bool(0), args.Error(1)
}

func (m *MockAnalyticsRepository) GetPerformance(ctx context.Context, studentID uuid.UUID) (*models.Performance, error) {
	args := m.Called(ctx, studentID)
	perf, _ := args.Get(0).(*models.Performance)
	return perf, args.Error(1)
}

func (m *MockAnalyticsRepository) UpsertPerformance(ctx context.Context, perf *models.Performance) error {
	args := m.Called(ctx, perf)
	return args.Error(0)
}

func (m *MockAnalyticsRepository) SystemCounts(ctx context.Context) (repositories.SystemCounts, error) {
	args := m.Called(ctx)
	return args.Get(0).(repositories.SystemCounts), args.Error(1)
}

// MockInstitutionRepository is a mock implementation of InstitutionRepository
type MockInstitutionRepository struct {
	mock.Mock
}

func (m *MockInstitutionRepository) List(ctx context.Context) ([]models.Institution, error) {
	args := m.Called(ctx)
	return args.Get(0).([]models.Institution), args.Error(1)
}

func (m *MockInstitutionRepository) GetByID(ctx context.Context, id uuid.UUID) (*models.Institution, error) {
	args := m.Called(ctx, id)
	institution, _ := args.Get(0).(*models.Institution)
	return institution, args.Error(1)
}

func (m *MockInstitutionRepository) Create(ctx context.Context, institution *models.Institution) error {
	args := m.Called(ctx, institution)
	return args.Error(0)
}

func (m *MockInstitutionRepository) Delete(ctx context.Context, id uuid.UUID) error {
	args := m.Called(ctx, id)
	return args.Error(0)
}

func (m *MockInstitutionRepository) CreateDepartment(ctx context.Context, department *models.Department) error {
	args := m.Called(ctx, department)
	return args.Error(0)
}

func (m *MockInstitutionRepository) GetDepartment(ctx context.Context, id uuid.UUID) (*models.Department, error) {
	args := m.Called(ctx, id)
	department, _ := args.Get(0).(*models.Department)
	return department, args.Error(1)
}

func (m *MockInstitutionRepository) CreateYear(ctx context.Context, year *models.Year) error {
	args := m.Called(ctx, year)
	return args.Error(0)
}

func (m *MockInstitutionRepository) GetYear(ctx context.Context, id uuid.UUID) (*models.Year, error) {
	args := m.Called(ctx, id)
	year, _ := args.Get(0).(*models.Year)
	return year, args.Error(1)
}

func (m *MockInstitutionRepository) CreateSection(ctx context.Context, section *models.Section) error {
	args := m.Called(ctx, section)
	return args.Error(0)
}
