package dto

import "klik-guard/app/models"

type AccountRequest struct {
	AccountID          string `json:"account_id"`
	Email              string `json:"email"`
	AuthorizationToken string `json:"authorization_token"`
}

type AccountResponse struct {
	AccountID               string `json:"account_id"`
	Email                   string `json:"email"`
	EnrollmentApplicationID string `json:"enrollment_application_id"`
	EnrollmentPolicyID      string `json:"enrollment_policy_id"`
	UserNum                 int    `json:"user_num"`
	Capacity                int    `json:"capacity"`
}

func AccountToDTO(a *models.Account) *AccountResponse {
	return &AccountResponse{
		AccountID:               a.AccountID,
		Email:                   a.Email,
		EnrollmentApplicationID: a.EnrollmentApplicationID,
		EnrollmentPolicyID:      a.EnrollmentPolicyID,
		UserNum:                 a.UserNum,
		Capacity:                models.Capacity,
	}
}
