package models

import (
	"time"

	"github.com/google/uuid"
)

type Institution struct {
	ID          uuid.UUID    `gorm:"type:uuid;default:gen_random_uuid();primaryKey" json:"id"`
	Name        string       `gorm:"size:200;uniqueIndex;not null" json:"name"`
	Code        string       `gorm:"size:20;uniqueIndex;not null" json:"code"`
	Slug        string       `gorm:"size:220;uniqueIndex" json:"slug"`
	Address     string       `gorm:"type:text" json:"address,omitempty"`
	Phone       string       `gorm:"size:20" json:"phone,omitempty"`
	Email       string       `gorm:"size:150" json:"email,omitempty"`
	Website     string       `gorm:"size:200" json:"website,omitempty"`
	CreatedAt   time.Time    `gorm:"autoCreateTime" json:"created_at"`
	UpdatedAt   time.Time    `gorm:"autoUpdateTime" json:"updated_at"`
	Departments []Department `gorm:"foreignKey:InstitutionID;constraint:OnDelete:CASCADE;" json:"departments,omitempty"`
	Students    []Student    `gorm:"foreignKey:InstitutionID;constraint:OnDelete:CASCADE;" json:"-"`
}

type Department struct {
	ID            uuid.UUID `gorm:"type:uuid;default:gen_random_uuid();primaryKey" json:"id"`
	InstitutionID uuid.UUID `gorm:"type:uuid;not null;uniqueIndex:idx_department_institution_code" json:"institution_id"`
	Name          string    `gorm:"size:150;not null" json:"name"`
	Code          string    `gorm:"size:20;not null;uniqueIndex:idx_department_institution_code" json:"code"`
	CreatedAt     time.Time `gorm:"autoCreateTime" json:"created_at"`
	Years         []Year    `gorm:"foreignKey:DepartmentID;constraint:OnDelete:CASCADE;" json:"years,omitempty"`
}

type Year struct {
	ID           uuid.UUID `gorm:"type:uuid;default:gen_random_uuid();primaryKey" json:"id"`
	DepartmentID uuid.UUID `gorm:"type:uuid;not null;index" json:"department_id"`
	YearNumber   int       `gorm:"not null" json:"year_number"`
	AcademicYear string    `gorm:"size:20" json:"academic_year"`
	CreatedAt    time.Time `gorm:"autoCreateTime" json:"created_at"`
	Sections     []Section `gorm:"foreignKey:YearID;constraint:OnDelete:CASCADE;" json:"sections,omitempty"`
}

type Section struct {
	ID        uuid.UUID `gorm:"type:uuid;default:gen_random_uuid();primaryKey" json:"id"`
	YearID    uuid.UUID `gorm:"type:uuid;not null;index" json:"year_id"`
	Name      string    `gorm:"size:20;not null" json:"name"`
	Capacity  int       `gorm:"default:60" json:"capacity"`
	CreatedAt time.Time `gorm:"autoCreateTime" json:"created_at"`
}
