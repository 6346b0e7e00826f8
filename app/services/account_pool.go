package services

import (
	"context"
	"fmt"

	"klik-guard/app/models"
	"klik-guard/app/repo"
	"klik-guard/global"
)

// AccountPool allocates slots on the shared gateway accounts and owns the
// idempotent bootstrap of each account's enrollment gate.
type AccountPool struct {
	accounts *repo.AccountRepository
	gw       Gateway
}

func NewAccountPool(accounts *repo.AccountRepository, gw Gateway) *AccountPool {
	return &AccountPool{accounts: accounts, gw: gw}
}

// ClaimSlot reserves one slot for a new user. Eligibility and increment are
// one atomic UPDATE per candidate, so concurrent registrations cannot push
// an account past capacity. Returns ErrExhausted when the whole pool is
// full.
func (p *AccountPool) ClaimSlot(ctx context.Context) (*models.Account, error) {
	candidates, err := p.accounts.Candidates()
	if err != nil {
		return nil, fmt.Errorf("list candidate accounts: %w", err)
	}
	for i := range candidates {
		acc := &candidates[i]
		ok, err := p.accounts.TryClaim(acc.AccountID)
		if err != nil {
			return nil, fmt.Errorf("claim slot on %s: %w", acc.AccountID, err)
		}
		if ok {
			acc.UserNum++
			return acc, nil
		}
	}
	return nil, ErrExhausted
}

// ReleaseSlot returns a slot when a user is removed from the account.
func (p *AccountPool) ReleaseSlot(accountID string) error {
	return p.accounts.Release(accountID)
}

// Bootstrap resolves the account's enrollment application and precedence-1
// policy, creating them remotely only when a prior run did not already.
// Discovery before creation keeps the operation idempotent across partial
// failures: a retry after a crash between remote create and local save finds
// the existing object instead of duplicating it.
func (p *AccountPool) Bootstrap(ctx context.Context, acc *models.Account) error {
	if acc.EnrollmentApplicationID == "" {
		appID, err := p.findEnrollmentApplication(ctx, acc)
		if err != nil {
			return err
		}
		if appID == "" {
			appID, err = p.gw.CreateEnrollmentApplication(ctx, acc.AccountID, acc.AuthorizationToken, acc.Email)
			if err != nil {
				return fmt.Errorf("create enrollment application: %w", err)
			}
			global.Logger.Info().Str("account", acc.AccountID).Str("app", appID).Msg("created enrollment application")
		}
		acc.EnrollmentApplicationID = appID
	}

	if acc.EnrollmentPolicyID == "" {
		policyID, err := p.findEnrollmentPolicy(ctx, acc)
		if err != nil {
			return err
		}
		if policyID == "" {
			policyID, err = p.gw.CreateEnrollmentPolicy(ctx, acc.AccountID, acc.AuthorizationToken, acc.EnrollmentApplicationID, acc.Email)
			if err != nil {
				return fmt.Errorf("create enrollment policy: %w", err)
			}
			global.Logger.Info().Str("account", acc.AccountID).Str("policy", policyID).Msg("created enrollment policy")
		}
		acc.EnrollmentPolicyID = policyID
	}

	return p.accounts.Save(acc)
}

func (p *AccountPool) findEnrollmentApplication(ctx context.Context, acc *models.Account) (string, error) {
	apps, err := p.gw.ListApplications(ctx, acc.AccountID, acc.AuthorizationToken)
	if err != nil {
		return "", fmt.Errorf("list applications: %w", err)
	}
	for _, app := range apps {
		if app.Type == "warp" {
			return app.ID, nil
		}
	}
	return "", nil
}

func (p *AccountPool) findEnrollmentPolicy(ctx context.Context, acc *models.Account) (string, error) {
	apps, err := p.gw.ListApplications(ctx, acc.AccountID, acc.AuthorizationToken)
	if err != nil {
		return "", fmt.Errorf("list applications: %w", err)
	}
	for _, app := range apps {
		if app.Type != "warp" {
			continue
		}
		for _, pol := range app.Policies {
			if pol.Precedence == 1 {
				return pol.ID, nil
			}
		}
	}
	return "", nil
}

// AddEmailToEnrollment re-reads the enrollment policy's include list and
// writes it back with the new email appended. The remote API overwrites the
// whole list on update; writing without the re-read would drop every
// previously enrolled user. A returned error leaves the remote state
// indeterminate; callers must reconcile before retrying, not treat it as a
// no-op.
func (p *AccountPool) AddEmailToEnrollment(ctx context.Context, acc *models.Account, email string) error {
	pol, err := p.gw.GetEnrollmentPolicy(ctx, acc.AccountID, acc.AuthorizationToken, acc.EnrollmentApplicationID, acc.EnrollmentPolicyID)
	if err != nil {
		return fmt.Errorf("fetch enrollment policy: %w", err)
	}
	emails := make([]string, 0, len(pol.Include)+1)
	for _, inc := range pol.Include {
		if inc.Email != nil {
			emails = append(emails, inc.Email.Email)
		}
	}
	emails = append(emails, email)
	if err := p.gw.UpdateEnrollmentPolicy(ctx, acc.AccountID, acc.AuthorizationToken, acc.EnrollmentApplicationID, acc.EnrollmentPolicyID, emails); err != nil {
		return fmt.Errorf("update enrollment policy: %w", err)
	}
	return nil
}

// RegisterAccount adds a gateway account to the pool (administrative).
// Idempotent on accountId: a known account is re-bootstrapped only if a
// prior run left its enrollment ids unset.
func (p *AccountPool) RegisterAccount(ctx context.Context, acc *models.Account) (*models.Account, error) {
	existing, err := p.accounts.FindByID(acc.AccountID)
	if err != nil {
		return nil, err
	}
	if existing != nil {
		if existing.EnrollmentApplicationID == "" || existing.EnrollmentPolicyID == "" {
			if err := p.Bootstrap(ctx, existing); err != nil {
				return nil, err
			}
		}
		return existing, nil
	}
	acc.UserNum = 0
	if err := p.accounts.Create(acc); err != nil {
		return nil, err
	}
	if err := p.Bootstrap(ctx, acc); err != nil {
		return nil, err
	}
	return acc, nil
}

func (p *AccountPool) ListAccounts() ([]models.Account, error) {
	return p.accounts.ListAll()
}
