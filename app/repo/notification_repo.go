package repo

import (
	"errors"

	"klik-guard/app/models"

	"gorm.io/gorm"
)

type NotificationRepository struct{ db *gorm.DB }

func NewNotificationRepository(db *gorm.DB) *NotificationRepository {
	return &NotificationRepository{db: db}
}

func (r *NotificationRepository) Create(n *models.Notification) error { return r.db.Create(n).Error }

func (r *NotificationRepository) FindByID(id uint) (*models.Notification, error) {
	var n models.Notification
	err := r.db.Where("id = ?", id).First(&n).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &n, nil
}

func (r *NotificationRepository) FindByUser(userID uint) ([]models.Notification, error) {
	var ns []models.Notification
	err := r.db.Where("user_id = ?", userID).Order("timestamp DESC").Find(&ns).Error
	return ns, err
}

func (r *NotificationRepository) FindUnseenByUser(userID uint) ([]models.Notification, error) {
	var ns []models.Notification
	err := r.db.Where("user_id = ? AND is_seen = ?", userID, false).Order("timestamp DESC").Find(&ns).Error
	return ns, err
}

func (r *NotificationRepository) CountUnseenByUser(userID uint) (int64, error) {
	var n int64
	err := r.db.Model(&models.Notification{}).Where("user_id = ? AND is_seen = ?", userID, false).Count(&n).Error
	return n, err
}

func (r *NotificationRepository) FindByIDs(ids []uint) ([]models.Notification, error) {
	var ns []models.Notification
	err := r.db.Where("id IN ?", ids).Find(&ns).Error
	return ns, err
}

func (r *NotificationRepository) MarkSeen(ids []uint) error {
	if len(ids) == 0 {
		return nil
	}
	return r.db.Model(&models.Notification{}).Where("id IN ?", ids).Update("is_seen", true).Error
}

func (r *NotificationRepository) ExistsUnseenForDevice(deviceID string) (bool, error) {
	var n int64
	err := r.db.Model(&models.Notification{}).Where("device_id = ? AND is_seen = ?", deviceID, false).Count(&n).Error
	return n > 0, err
}

func (r *NotificationRepository) Delete(n *models.Notification) error { return r.db.Delete(n).Error }
