package dto

import "klik-guard/app/models"

type NotificationResponse struct {
	ID        uint   `json:"id"`
	Message   string `json:"message"`
	IsSeen    bool   `json:"is_seen"`
	Type      string `json:"type"`
	DeviceID  string `json:"device_id,omitempty"`
	Timestamp int64  `json:"timestamp"`
}

type MarkSeenRequest struct {
	IDs []uint `json:"ids"`
}

func NotificationToDTO(n *models.Notification) *NotificationResponse {
	return &NotificationResponse{
		ID:        n.ID,
		Message:   n.Message,
		IsSeen:    n.IsSeen,
		Type:      string(n.Type),
		DeviceID:  n.DeviceID,
		Timestamp: n.Timestamp.Unix(),
	}
}
