package repositories

import (
	"context"

	"github.com/google/uuid"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"github.com/gyanguru/gyanguru-backend/models"
)

type GormDoubtRoomRepository struct {
	db *gorm.DB
}

func NewDoubtRoomRepository(db *gorm.DB) *GormDoubtRoomRepository {
	return &GormDoubtRoomRepository{db: db}
}

func (r *GormDoubtRoomRepository) Create(ctx context.Context, room *models.DoubtRoom) error {
	err := r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.Omit("Members", "Messages").Create(room).Error; err != nil {
			return err
		}
		return addMember(tx, room.ID, room.CreatorID)
	})
	return classify(err, "doubt room")
}

func addMember(tx *gorm.DB, roomID, userID uuid.UUID) error {
	return tx.Clauses(clause.OnConflict{DoNothing: true}).
		Table("doubt_room_members").
		Create(map[string]interface{}{"doubt_room_id": roomID, "user_id": userID}).Error
}

func (r *GormDoubtRoomRepository) GetByID(ctx context.Context, id uuid.UUID) (*models.DoubtRoom, error) {
	var room models.DoubtRoom
	err := r.db.WithContext(ctx).
		Preload("Messages", func(tx *gorm.DB) *gorm.DB {
			return tx.Order("created_at ASC")
		}).
		First(&room, "id = ?", id).Error
	if err != nil {
		return nil, classify(err, "doubt room")
	}
	return &room, nil
}

func (r *GormDoubtRoomRepository) ListByStatus(ctx context.Context, status models.RoomStatus) ([]models.DoubtRoom, error) {
	var rooms []models.DoubtRoom
	err := r.db.WithContext(ctx).
		Preload("Messages").
		Where("status = ?", status).
		Order("created_at DESC").
		Find(&rooms).Error
	return rooms, err
}

func (r *GormDoubtRoomRepository) Save(ctx context.Context, room *models.DoubtRoom) error {
	return r.db.WithContext(ctx).Model(&models.DoubtRoom{}).
		Where("id = ?", room.ID).
		Updates(map[string]interface{}{
			"status":     room.Status,
			"closed_at":  room.ClosedAt,
			"teacher_id": room.TeacherID,
		}).Error
}

// AddMessage stores the message and makes its author a room member.
func (r *GormDoubtRoomRepository) AddMessage(ctx context.Context, msg *models.DoubtMessage) error {
	err := r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.Create(msg).Error; err != nil {
			return err
		}
		return addMember(tx, msg.RoomID, msg.UserID)
	})
	return classify(err, "message")
}

func (r *GormDoubtRoomRepository) GetMessage(ctx context.Context, id uuid.UUID) (*models.DoubtMessage, error) {
	var msg models.DoubtMessage
	if err := r.db.WithContext(ctx).First(&msg, "id = ?", id).Error; err != nil {
		return nil, classify(err, "message")
	}
	return &msg, nil
}

func (r *GormDoubtRoomRepository) ApplyVote(ctx context.Context, messageID uuid.UUID, delta int) (int, error) {
	var votes int
	err := r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		res := tx.Model(&models.DoubtMessage{}).
			Where("id = ?", messageID).
			Update("votes", gorm.Expr("GREATEST(votes + ?, 0)", delta))
		if res.Error != nil {
			return res.Error
		}
		if res.RowsAffected == 0 {
			return gorm.ErrRecordNotFound
		}
		return tx.Model(&models.DoubtMessage{}).Where("id = ?", messageID).Pluck("votes", &votes).Error
	})
	return votes, classify(err, "message")
}

func (r *GormDoubtRoomRepository) MarkBestAnswer(ctx context.Context, room *models.DoubtRoom, messageID uuid.UUID) error {
	return r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.Model(&models.DoubtMessage{}).
			Where("room_id = ?", room.ID).
			Update("is_best_answer", false).Error; err != nil {
			return err
		}
		if err := tx.Model(&models.DoubtMessage{}).
			Where("id = ? AND room_id = ?", messageID, room.ID).
			Update("is_best_answer", true).Error; err != nil {
			return err
		}
		return tx.Model(&models.DoubtRoom{}).
			Where("id = ?", room.ID).
			Update("status", room.Status).Error
	})
}
