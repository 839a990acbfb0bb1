package models

import (
	"time"

	"github.com/google/uuid"
)

type RoomStatus string

const (
	RoomActive   RoomStatus = "active"
	RoomResolved RoomStatus = "resolved"
	RoomClosed   RoomStatus = "closed"
)

type DoubtRoom struct {
	ID          uuid.UUID      `gorm:"type:uuid;default:gen_random_uuid();primaryKey" json:"id"`
	CreatorID   uuid.UUID      `gorm:"type:uuid;not null;index" json:"creator_id"`
	Creator     User           `gorm:"foreignKey:CreatorID;references:ID;constraint:OnDelete:CASCADE;" json:"-"`
	TeacherID   *uuid.UUID     `gorm:"type:uuid;index" json:"teacher_id,omitempty"`
	Topic       string         `gorm:"size:200;not null" json:"topic"`
	Description string         `gorm:"type:text" json:"description,omitempty"`
	Status      RoomStatus     `gorm:"type:varchar(20);not null;default:'active';index" json:"status"`
	ExpiryTime  time.Time      `gorm:"not null" json:"expiry_time"`
	ClosedAt    *time.Time     `json:"closed_at,omitempty"`
	CreatedAt   time.Time      `json:"created_at"`
	Members     []User         `gorm:"many2many:doubt_room_members;" json:"-"`
	Messages    []DoubtMessage `gorm:"foreignKey:RoomID;constraint:OnDelete:CASCADE;" json:"messages,omitempty"`
}

type DoubtMessage struct {
	ID           uuid.UUID `gorm:"type:uuid;default:gen_random_uuid();primaryKey" json:"id"`
	RoomID       uuid.UUID `gorm:"type:uuid;not null;index" json:"room_id"`
	UserID       uuid.UUID `gorm:"type:uuid;not null" json:"user_id"`
	MessageType  string    `gorm:"size:20;default:'text'" json:"message_type"`
	Text         string    `gorm:"type:text;not null" json:"text"`
	IsBestAnswer bool      `gorm:"default:false" json:"is_best_answer"`
	Votes        int       `gorm:"default:0;check:votes >= 0" json:"votes"`
	CreatedAt    time.Time `gorm:"autoCreateTime" json:"created_at"`
}
