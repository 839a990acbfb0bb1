package models

import (
	"strings"
	"time"

	"github.com/google/uuid"
)

type UserRole string

const (
	RoleStudent UserRole = "student"
	RoleTeacher UserRole = "teacher"
	RoleParent  UserRole = "parent"
	RoleAdmin   UserRole = "admin"
)

// Roles lists every access class in a stable order.
var Roles = []UserRole{RoleStudent, RoleTeacher, RoleParent, RoleAdmin}

// ParseRole maps a raw role string onto the closed role set.
func ParseRole(raw string) (UserRole, bool) {
	switch UserRole(strings.ToLower(strings.TrimSpace(raw))) {
	case RoleStudent:
		return RoleStudent, true
	case RoleTeacher:
		return RoleTeacher, true
	case RoleParent:
		return RoleParent, true
	case RoleAdmin:
		return RoleAdmin, true
	}
	return "", false
}

func (r UserRole) Valid() bool {
	_, ok := ParseRole(string(r))
	return ok
}

// Role is set at creation and never updated afterwards.
type User struct {
	ID             uuid.UUID  `gorm:"type:uuid;default:gen_random_uuid();primaryKey" json:"id"`
	Email          string     `gorm:"size:150;uniqueIndex;not null" json:"email"`
	Username       string     `gorm:"size:80;uniqueIndex;not null" json:"username"`
	Password       string     `gorm:"type:text" json:"-"`
	FirstName      string     `gorm:"size:80" json:"first_name"`
	LastName       string     `gorm:"size:80" json:"last_name"`
	Phone          *string    `gorm:"size:20;uniqueIndex" json:"phone,omitempty"`
	Role           UserRole   `gorm:"type:varchar(20);not null;default:'student';<-:create" json:"role"`
	ProfilePicture string     `gorm:"size:255" json:"profile_picture,omitempty"`
	IsActive       bool       `gorm:"default:true" json:"is_active"`
	LastLogin      *time.Time `json:"last_login,omitempty"`
	CreatedAt      time.Time  `gorm:"autoCreateTime" json:"created_at"`
	UpdatedAt      time.Time  `gorm:"autoUpdateTime" json:"updated_at"`
}

func (u User) FullName() string {
	return strings.TrimSpace(u.FirstName + " " + u.LastName)
}

// Student, Teacher and Parent reference a User, they never own it.
type Student struct {
	ID                 uuid.UUID  `gorm:"type:uuid;default:gen_random_uuid();primaryKey" json:"id"`
	UserID             uuid.UUID  `gorm:"type:uuid;uniqueIndex;not null" json:"user_id"`
	User               User       `gorm:"constraint:OnDelete:CASCADE;" json:"user"`
	InstitutionID      *uuid.UUID `gorm:"type:uuid;index" json:"institution_id,omitempty"`
	SectionID          *uuid.UUID `gorm:"type:uuid;index" json:"section_id,omitempty"`
	ParentID           *uuid.UUID `gorm:"type:uuid;index" json:"parent_id,omitempty"`
	RollNumber         string     `gorm:"size:30" json:"roll_number,omitempty"`
	RegistrationNumber string     `gorm:"size:50" json:"registration_number,omitempty"`
	IsActive           bool       `gorm:"default:true" json:"is_active"`
	CreatedAt          time.Time  `gorm:"autoCreateTime" json:"created_at"`
}

type Teacher struct {
	ID              uuid.UUID  `gorm:"type:uuid;default:gen_random_uuid();primaryKey" json:"id"`
	UserID          uuid.UUID  `gorm:"type:uuid;uniqueIndex;not null" json:"user_id"`
	User            User       `gorm:"constraint:OnDelete:CASCADE;" json:"user"`
	DepartmentID    *uuid.UUID `gorm:"type:uuid;index" json:"department_id,omitempty"`
	EmployeeID      string     `gorm:"size:50" json:"employee_id,omitempty"`
	Qualification   string     `gorm:"size:150" json:"qualification,omitempty"`
	Specialization  string     `gorm:"size:150" json:"specialization,omitempty"`
	ExperienceYears int        `gorm:"default:0" json:"experience_years"`
	OfficeHours     string     `gorm:"size:150" json:"office_hours,omitempty"`
	CreatedAt       time.Time  `gorm:"autoCreateTime" json:"created_at"`
}

type Parent struct {
	ID                    uuid.UUID `gorm:"type:uuid;default:gen_random_uuid();primaryKey" json:"id"`
	UserID                uuid.UUID `gorm:"type:uuid;uniqueIndex;not null" json:"user_id"`
	User                  User      `gorm:"constraint:OnDelete:CASCADE;" json:"user"`
	Phone                 string    `gorm:"size:20" json:"phone,omitempty"`
	Occupation            string    `gorm:"size:100" json:"occupation,omitempty"`
	RelationshipToStudent string    `gorm:"size:50" json:"relationship_to_student,omitempty"`
	CreatedAt             time.Time `gorm:"autoCreateTime" json:"created_at"`
}
