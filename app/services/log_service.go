package services

import (
	"context"

	"klik-guard/app/cloudflare"
	"klik-guard/app/models"
	"klik-guard/app/repo"
)

// LogService fetches resolver-query logs from the gateway's GraphQL API.
type LogService struct {
	gw       Gateway
	policies *repo.PolicyRepository
	accounts *repo.AccountRepository
}

func NewLogService(gw Gateway, policies *repo.PolicyRepository, accounts *repo.AccountRepository) *LogService {
	return &LogService{gw: gw, policies: policies, accounts: accounts}
}

// LogsForUser returns log entries scoped to the user's own policies.
func (s *LogService) LogsForUser(ctx context.Context, user *models.User, q cloudflare.LogQuery) ([]cloudflare.LogEntry, error) {
	policies, err := s.policies.FindByUser(user.ID)
	if err != nil {
		return nil, err
	}
	ids := make([]string, 0, len(policies))
	for _, p := range policies {
		ids = append(ids, p.ID)
	}
	q.PolicyIDs = ids
	return s.gw.QueryLogs(ctx, user.Account.AccountID, user.Account.AuthorizationToken, q)
}

// LogsForAccount returns log entries for a whole pool account, unscoped.
func (s *LogService) LogsForAccount(ctx context.Context, accountID string, q cloudflare.LogQuery) ([]cloudflare.LogEntry, error) {
	acc, err := s.accounts.FindByID(accountID)
	if err != nil {
		return nil, err
	}
	if acc == nil {
		return nil, ErrNotFound
	}
	q.PolicyIDs = nil
	return s.gw.QueryLogs(ctx, acc.AccountID, acc.AuthorizationToken, q)
}
