package dto

import "klik-guard/app/models"

type UserResponse struct {
	ID        uint   `json:"id"`
	Email     string `json:"email"`
	Role      string `json:"role"`
	IsSetUp   bool   `json:"is_set_up"`
	Enabled   bool   `json:"enabled"`
	Locked    bool   `json:"locked"`
	AccountID string `json:"account_id,omitempty"`
	CreatedAt int64  `json:"created_at"`
}

func UserToDTO(u *models.User) *UserResponse {
	return &UserResponse{
		ID:        u.ID,
		Email:     u.Email,
		Role:      u.Role,
		IsSetUp:   u.IsSetUp,
		Enabled:   u.Enabled,
		Locked:    u.Locked,
		AccountID: u.AccountID,
		CreatedAt: u.CreatedAt.Unix(),
	}
}
