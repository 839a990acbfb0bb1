package controllers

import (
	"context"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"

	"github.com/gyanguru/gyanguru-backend/models"
	"github.com/gyanguru/gyanguru-backend/services"
)

type AdminAPI interface {
	ListInstitutions(ctx context.Context) ([]models.Institution, error)
	CreateInstitution(ctx context.Context, req services.CreateInstitutionRequest) (*models.Institution, error)
	DeleteInstitution(ctx context.Context, id uuid.UUID) error
	CreateDepartment(ctx context.Context, institutionID uuid.UUID, req services.CreateDepartmentRequest) (*models.Department, error)
	CreateYear(ctx context.Context, departmentID uuid.UUID, req services.CreateYearRequest) (*models.Year, error)
	CreateSection(ctx context.Context, yearID uuid.UUID, req services.CreateSectionRequest) (*models.Section, error)
	SetUserActive(ctx context.Context, actor services.Actor, userID uuid.UUID, active bool) error
	Stats(ctx context.Context) (*services.SystemStats, error)
}

type AdminController struct {
	admin AdminAPI
}

func NewAdminController(admin AdminAPI) *AdminController {
	return &AdminController{admin: admin}
}

type activateInput struct {
	IsActive *bool `json:"is_active" binding:"required"`
}

func (ac *AdminController) ListInstitutions(c *gin.Context) {
	institutions, err := ac.admin.ListInstitutions(c.Request.Context())
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"institutions": institutions, "total": len(institutions)})
}

func (ac *AdminController) CreateInstitution(c *gin.Context) {
	var req services.CreateInstitutionRequest
	if !bindJSON(c, &req) {
		return
	}
	institution, err := ac.admin.CreateInstitution(c.Request.Context(), req)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusCreated, institution)
}

func (ac *AdminController) DeleteInstitution(c *gin.Context) {
	id, ok := uuidParam(c, "id")
	if !ok {
		return
	}
	if err := ac.admin.DeleteInstitution(c.Request.Context(), id); err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"message": "Institution deleted successfully"})
}

func (ac *AdminController) CreateDepartment(c *gin.Context) {
	institutionID, ok := uuidParam(c, "institution_id")
	if !ok {
		return
	}
	var req services.CreateDepartmentRequest
	if !bindJSON(c, &req) {
		return
	}
	department, err := ac.admin.CreateDepartment(c.Request.Context(), institutionID, req)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusCreated, department)
}

func (ac *AdminController) CreateYear(c *gin.Context) {
	departmentID, ok := uuidParam(c, "department_id")
	if !ok {
		return
	}
	var req services.CreateYearRequest
	if !bindJSON(c, &req) {
		return
	}
	year, err := ac.admin.CreateYear(c.Request.Context(), departmentID, req)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusCreated, year)
}

func (ac *AdminController) CreateSection(c *gin.Context) {
	yearID, ok := uuidParam(c, "year_id")
	if !ok {
		return
	}
	var req services.CreateSectionRequest
	if !bindJSON(c, &req) {
		return
	}
	section, err := ac.admin.CreateSection(c.Request.Context(), yearID, req)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusCreated, section)
}

// PUT /api/admin/users/:user_id/activate {"is_active": false}
func (ac *AdminController) SetUserActive(c *gin.Context) {
	me, ok := actor(c)
	if !ok {
		return
	}
	userID, ok := uuidParam(c, "user_id")
	if !ok {
		return
	}
	var in activateInput
	if !bindJSON(c, &in) {
		return
	}
	if err := ac.admin.SetUserActive(c.Request.Context(), me, userID, *in.IsActive); err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"user_id": userID, "is_active": *in.IsActive})
}

func (ac *AdminController) Stats(c *gin.Context) {
	stats, err := ac.admin.Stats(c.Request.Context())
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, stats)
}
