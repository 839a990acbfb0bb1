package services

import (
	"context"
	"log/slog"
	"strings"

	"github.com/go-playground/validator/v10"
	"github.com/google/uuid"
	"github.com/gosimple/slug"

	"github.com/gyanguru/gyanguru-backend/apperrors"
	"github.com/gyanguru/gyanguru-backend/models"
	"github.com/gyanguru/gyanguru-backend/repositories"
	"github.com/gyanguru/gyanguru-backend/utils"
)

type CreateInstitutionRequest struct {
	Name    string `json:"name" binding:"required,max=200"`
	Code    string `json:"code" binding:"required,max=20"`
	Address string `json:"address"`
	Phone   string `json:"phone" binding:"max=20"`
	Email   string `json:"email" binding:"omitempty,email"`
	Website string `json:"website" binding:"omitempty,url"`
}

type CreateDepartmentRequest struct {
	Name string `json:"name" binding:"required,max=150"`
	Code string `json:"code" binding:"required,max=20"`
}

type CreateYearRequest struct {
	YearNumber   int    `json:"year_number" binding:"required,min=1,max=10"`
	AcademicYear string `json:"academic_year" binding:"max=20"`
}

type CreateSectionRequest struct {
	Name     string `json:"name" binding:"required,max=20"`
	Capacity int    `json:"capacity" binding:"omitempty,min=1"`
}

type SystemStats struct {
	Users map[models.UserRole]int64 `json:"users_by_role"`
	Total int64                     `json:"total_users"`
	repositories.SystemCounts
}

type AdminService struct {
	institutions repositories.InstitutionRepository
	users        repositories.UserRepository
	analytics    repositories.AnalyticsRepository
	validate     *validator.Validate
	logger       *slog.Logger
}

func NewAdminService(institutions repositories.InstitutionRepository, users repositories.UserRepository, analytics repositories.AnalyticsRepository, logger *slog.Logger) *AdminService {
	return &AdminService{
		institutions: institutions,
		users:        users,
		analytics:    analytics,
		validate:     utils.NewValidator(),
		logger:       logger,
	}
}

func (s *AdminService) ListInstitutions(ctx context.Context) ([]models.Institution, error) {
	return s.institutions.List(ctx)
}

// CreateInstitution stores the code upper-cased and derives the slug from
// the name. Duplicate names or codes are a conflict.
func (s *AdminService) CreateInstitution(ctx context.Context, req CreateInstitutionRequest) (*models.Institution, error) {
	if err := s.validate.Struct(req); err != nil {
		return nil, apperrors.FromBinding(err)
	}
	name := strings.TrimSpace(req.Name)
	institution := &models.Institution{
		Name:    name,
		Code:    strings.ToUpper(strings.TrimSpace(req.Code)),
		Slug:    slug.Make(name),
		Address: req.Address,
		Phone:   req.Phone,
		Email:   strings.ToLower(req.Email),
		Website: req.Website,
	}
	if err := s.institutions.Create(ctx, institution); err != nil {
		return nil, err
	}
	s.logger.Info("Institution created", "institution_id", institution.ID, "code", institution.Code)
	return institution, nil
}

// DeleteInstitution cascades to departments, years, sections and student profiles.
func (s *AdminService) DeleteInstitution(ctx context.Context, id uuid.UUID) error {
	if err := s.institutions.Delete(ctx, id); err != nil {
		return err
	}
	s.logger.Info("Institution deleted", "institution_id", id)
	return nil
}

func (s *AdminService) CreateDepartment(ctx context.Context, institutionID uuid.UUID, req CreateDepartmentRequest) (*models.Department, error) {
	if err := s.validate.Struct(req); err != nil {
		return nil, apperrors.FromBinding(err)
	}
	if _, err := s.institutions.GetByID(ctx, institutionID); err != nil {
		return nil, err
	}
	department := &models.Department{
		InstitutionID: institutionID,
		Name:          strings.TrimSpace(req.Name),
		Code:          strings.ToUpper(strings.TrimSpace(req.Code)),
	}
	if err := s.institutions.CreateDepartment(ctx, department); err != nil {
		return nil, err
	}
	return department, nil
}

func (s *AdminService) CreateYear(ctx context.Context, departmentID uuid.UUID, req CreateYearRequest) (*models.Year, error) {
	if err := s.validate.Struct(req); err != nil {
		return nil, apperrors.FromBinding(err)
	}
	if _, err := s.institutions.GetDepartment(ctx, departmentID); err != nil {
		return nil, err
	}
	year := &models.Year{DepartmentID: departmentID, YearNumber: req.YearNumber, AcademicYear: req.AcademicYear}
	if err := s.institutions.CreateYear(ctx, year); err != nil {
		return nil, err
	}
	return year, nil
}

func (s *AdminService) CreateSection(ctx context.Context, yearID uuid.UUID, req CreateSectionRequest) (*models.Section, error) {
	if err := s.validate.Struct(req); err != nil {
		return nil, apperrors.FromBinding(err)
	}
	if _, err := s.institutions.GetYear(ctx, yearID); err != nil {
		return nil, err
	}
	section := &models.Section{YearID: yearID, Name: strings.ToUpper(strings.TrimSpace(req.Name)), Capacity: 60}
	if req.Capacity > 0 {
		section.Capacity = req.Capacity
	}
	if err := s.institutions.CreateSection(ctx, section); err != nil {
		return nil, err
	}
	return section, nil
}

// SetUserActive enables or disables an account. Admins cannot disable
// themselves.
func (s *AdminService) SetUserActive(ctx context.Context, actor Actor, userID uuid.UUID, active bool) error {
	if actor.ID == userID && !active {
		return apperrors.Validation("is_active", "you cannot deactivate your own account")
	}
	if err := s.users.SetActive(ctx, userID, active); err != nil {
		return err
	}
	s.logger.Info("User status updated", "user_id", userID, "is_active", active, "by", actor.ID)
	return nil
}

func (s *AdminService) Stats(ctx context.Context) (*SystemStats, error) {
	byRole, err := s.users.CountByRole(ctx)
	if err != nil {
		return nil, err
	}
	counts, err := s.analytics.SystemCounts(ctx)
	if err != nil {
		return nil, err
	}
	stats := &SystemStats{Users: byRole, SystemCounts: counts}
	for _, n := range byRole {
		stats.Total += n
	}
	return stats, nil
}
