package dto

import "klik-guard/app/models"

type PolicyRequest struct {
	Action   string           `json:"action"`
	Traffic  string           `json:"traffic"`
	Schedule *models.Schedule `json:"schedule,omitempty"`
}

type PolicyResponse struct {
	ID         string           `json:"id"`
	Name       string           `json:"name"`
	Action     string           `json:"action"`
	Traffic    string           `json:"traffic"`
	IsAllowAll bool             `json:"is_allow_all"`
	Schedule   *models.Schedule `json:"schedule,omitempty"`
	CreatedAt  int64            `json:"created_at"`
	UpdatedAt  int64            `json:"updated_at"`
}

func PolicyToDTO(p *models.Policy) *PolicyResponse {
	resp := &PolicyResponse{
		ID:         p.ID,
		Name:       p.Name,
		Action:     p.Action,
		Traffic:    p.Traffic,
		IsAllowAll: p.IsAllowAll,
		CreatedAt:  p.CreatedAt.Unix(),
		UpdatedAt:  p.UpdatedAt.Unix(),
	}
	if !p.Schedule.IsZero() {
		sched := p.Schedule
		resp.Schedule = &sched
	}
	return resp
}
