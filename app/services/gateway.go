package services

import (
	"context"

	"klik-guard/app/cloudflare"
)

// Gateway is the remote policy gateway surface the services consume. The
// production implementation is *cloudflare.Client; tests substitute fakes.
// Account identity and authorization are passed per call because one service
// instance operates across the whole account pool.
type Gateway interface {
	ListApplications(ctx context.Context, accountID, token string) ([]cloudflare.Application, error)
	CreateEnrollmentApplication(ctx context.Context, accountID, token, name string) (string, error)
	CreateEnrollmentPolicy(ctx context.Context, accountID, token, appID, email string) (string, error)
	GetEnrollmentPolicy(ctx context.Context, accountID, token, appID, policyID string) (*cloudflare.AccessPolicy, error)
	UpdateEnrollmentPolicy(ctx context.Context, accountID, token, appID, policyID string, emails []string) error

	CreateRule(ctx context.Context, accountID, token string, rule cloudflare.RuleRequest) (string, error)
	UpdateRule(ctx context.Context, accountID, token, ruleID string, rule cloudflare.RuleRequest) error
	DeleteRule(ctx context.Context, accountID, token, ruleID string) error
	ListRules(ctx context.Context, accountID, token string) ([]cloudflare.Rule, error)

	ListDevices(ctx context.Context, accountID, token, email string) ([]cloudflare.Device, error)
	DeleteDevice(ctx context.Context, accountID, token, deviceID string) error

	QueryLogs(ctx context.Context, accountID, token string, q cloudflare.LogQuery) ([]cloudflare.LogEntry, error)
}
