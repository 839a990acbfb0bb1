package repositories

import (
	"context"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/gyanguru/gyanguru-backend/models"
)

type GormInstitutionRepository struct {
	db *gorm.DB
}

func NewInstitutionRepository(db *gorm.DB) *GormInstitutionRepository {
	return &GormInstitutionRepository{db: db}
}

func (r *GormInstitutionRepository) List(ctx context.Context) ([]models.Institution, error) {
	var institutions []models.Institution
	err := r.db.WithContext(ctx).
		Preload("Departments").
		Order("name ASC").
		Find(&institutions).Error
	return institutions, err
}

func (r *GormInstitutionRepository) GetByID(ctx context.Context, id uuid.UUID) (*models.Institution, error) {
	var institution models.Institution
	if err := r.db.WithContext(ctx).First(&institution, "id = ?", id).Error; err != nil {
		return nil, classify(err, "institution")
	}
	return &institution, nil
}

func (r *GormInstitutionRepository) Create(ctx context.Context, institution *models.Institution) error {
	return classify(r.db.WithContext(ctx).Create(institution).Error, "institution")
}

// Delete relies on ON DELETE CASCADE to remove departments, years, sections
// and student profiles.
func (r *GormInstitutionRepository) Delete(ctx context.Context, id uuid.UUID) error {
	res := r.db.WithContext(ctx).Delete(&models.Institution{}, "id = ?", id)
	if res.Error != nil {
		return res.Error
	}
	if res.RowsAffected == 0 {
		return classify(gorm.ErrRecordNotFound, "institution")
	}
	return nil
}

func (r *GormInstitutionRepository) CreateDepartment(ctx context.Context, department *models.Department) error {
	return classify(r.db.WithContext(ctx).Create(department).Error, "department")
}

func (r *GormInstitutionRepository) GetDepartment(ctx context.Context, id uuid.UUID) (*models.Department, error) {
	var department models.Department
	if err := r.db.WithContext(ctx).First(&department, "id = ?", id).Error; err != nil {
		return nil, classify(err, "department")
	}
	return &department, nil
}

func (r *GormInstitutionRepository) CreateYear(ctx context.Context, year *models.Year) error {
	return classify(r.db.WithContext(ctx).Create(year).Error, "year")
}

func (r *GormInstitutionRepository) GetYear(ctx context.Context, id uuid.UUID) (*models.Year, error) {
	var year models.Year
	if err := r.db.WithContext(ctx).First(&year, "id = ?", id).Error; err != nil {
		return nil, classify(err, "year")
	}
	return &year, nil
}

func (r *GormInstitutionRepository) CreateSection(ctx context.Context, section *models.Section) error {
	return classify(r.db.WithContext(ctx).Create(section).Error, "section")
}
