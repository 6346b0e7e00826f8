package services

import (
	"context"
	"fmt"
	"sync"

	"klik-guard/app/cloudflare"
	"klik-guard/app/models"
	"klik-guard/app/repo"
	"klik-guard/app/traffic"
	"klik-guard/global"

	"github.com/google/uuid"
)

// maxPoliciesPerUser caps the number of block policies a user may own. The
// derived allow-all policy does not count against it.
const maxPoliciesPerUser = 10

// defaultBlockTraffic blocks adult themes and gambling categories for every
// newly registered user.
const defaultBlockTraffic = "any(dns.content_category[*] in {2 8 67 99 125 133})"

// PolicyService keeps each user's gateway rules and their local mirror in
// lockstep: a local row only ever exists for a rule the gateway has
// acknowledged, and every block-rule mutation re-derives the user's
// aggregate allow-all rule.
type PolicyService struct {
	policies *repo.PolicyRepository
	gw       Gateway

	// Recomposition reads the full rule set and writes a derived value, so
	// runs for the same user must not interleave. One mutex per user;
	// different users proceed in parallel.
	mu    sync.Mutex
	locks map[uint]*sync.Mutex
}

func NewPolicyService(policies *repo.PolicyRepository, gw Gateway) *PolicyService {
	return &PolicyService{policies: policies, gw: gw, locks: make(map[uint]*sync.Mutex)}
}

func (s *PolicyService) userLock(userID uint) *sync.Mutex {
	s.mu.Lock()
	defer s.mu.Unlock()
	l, ok := s.locks[userID]
	if !ok {
		l = &sync.Mutex{}
		s.locks[userID] = l
	}
	return l
}

// PolicyInput carries the user-editable fields of a block policy.
type PolicyInput struct {
	Action   string
	Traffic  string
	Schedule models.Schedule
}

// Create registers a new block rule with the gateway and mirrors it locally.
// Nothing is persisted when the remote call fails. A *RecomposeError return
// means the rule itself was created and only the aggregate refresh needs to
// be retried.
func (s *PolicyService) Create(ctx context.Context, user *models.User, in PolicyInput) (*models.Policy, error) {
	n, err := s.policies.CountBlocking(user.ID)
	if err != nil {
		return nil, err
	}
	if n >= maxPoliciesPerUser {
		return nil, ErrLimitReached
	}

	pol := &models.Policy{
		Name:      policyName(user.Email),
		Action:    in.Action,
		Traffic:   in.Traffic,
		AccountID: user.Account.AccountID,
		UserID:    user.ID,
		Schedule:  in.Schedule,
	}
	id, err := s.gw.CreateRule(ctx, user.Account.AccountID, user.Account.AuthorizationToken, ruleRequest(user.Email, pol))
	if err != nil {
		return nil, err
	}
	pol.ID = id
	if err := s.policies.Create(pol); err != nil {
		return nil, err
	}
	if err := s.RecomposeAllowAll(ctx, user); err != nil {
		return pol, &RecomposeError{Err: err}
	}
	return pol, nil
}

// CreateDefault installs the initial block rule for a new user.
func (s *PolicyService) CreateDefault(ctx context.Context, user *models.User) (*models.Policy, error) {
	return s.Create(ctx, user, PolicyInput{Action: "block", Traffic: defaultBlockTraffic})
}

// Update pushes new rule fields to the gateway and only then applies them to
// the mirror. The aggregate allow-all policy cannot be edited directly.
func (s *PolicyService) Update(ctx context.Context, user *models.User, policyID string, in PolicyInput) (*models.Policy, error) {
	pol, err := s.ownedPolicy(user, policyID)
	if err != nil {
		return nil, err
	}

	updated := *pol
	updated.Action = in.Action
	updated.Traffic = in.Traffic
	updated.Schedule = in.Schedule

	if err := s.gw.UpdateRule(ctx, user.Account.AccountID, user.Account.AuthorizationToken, pol.ID, ruleRequest(user.Email, &updated)); err != nil {
		return nil, err
	}
	if err := s.policies.Save(&updated); err != nil {
		return nil, err
	}
	if err := s.RecomposeAllowAll(ctx, user); err != nil {
		return &updated, &RecomposeError{Err: err}
	}
	return &updated, nil
}

// Delete removes the rule from the gateway first; the mirror row is deleted
// only once the gateway reports success.
func (s *PolicyService) Delete(ctx context.Context, user *models.User, policyID string) error {
	pol, err := s.ownedPolicy(user, policyID)
	if err != nil {
		return err
	}
	if err := s.gw.DeleteRule(ctx, user.Account.AccountID, user.Account.AuthorizationToken, pol.ID); err != nil {
		return err
	}
	if err := s.policies.Delete(pol); err != nil {
		return err
	}
	if err := s.RecomposeAllowAll(ctx, user); err != nil {
		return &RecomposeError{Err: err}
	}
	return nil
}

func (s *PolicyService) ListByUser(user *models.User) ([]models.Policy, error) {
	return s.policies.FindByUser(user.ID)
}

func (s *PolicyService) ownedPolicy(user *models.User, policyID string) (*models.Policy, error) {
	pol, err := s.policies.FindByID(policyID)
	if err != nil {
		return nil, err
	}
	if pol == nil {
		return nil, ErrNotFound
	}
	if pol.UserID != user.ID {
		return nil, ErrUnauthorized
	}
	if pol.IsAllowAll {
		return nil, ErrUnauthorized
	}
	return pol, nil
}

// RecomposeAllowAll re-derives the user's aggregate policy from the live
// block rule set and pushes it to the gateway before refreshing the mirror.
// Serialized per user: interleaved runs could publish an aggregate missing a
// just-added rule.
func (s *PolicyService) RecomposeAllowAll(ctx context.Context, user *models.User) error {
	l := s.userLock(user.ID)
	l.Lock()
	defer l.Unlock()

	allowAll, err := s.ensureAllowAll(ctx, user)
	if err != nil {
		return err
	}

	all, err := s.policies.FindByUser(user.ID)
	if err != nil {
		return err
	}
	filters := make([]string, 0, len(all))
	for _, p := range all {
		if !p.IsAllowAll {
			filters = append(filters, p.Traffic)
		}
	}
	allowAll.Traffic = traffic.Compose(filters)

	if err := s.gw.UpdateRule(ctx, user.Account.AccountID, user.Account.AuthorizationToken, allowAll.ID, ruleRequest(user.Email, allowAll)); err != nil {
		return err
	}
	return s.policies.Save(allowAll)
}

// ensureAllowAll finds or creates the user's aggregate policy. Three tiers:
// local mirror, then the remote rule list matched on the reserved name (the
// bare email), then a fresh remote create. The middle tier adopts rules left
// behind by a partial prior run.
func (s *PolicyService) ensureAllowAll(ctx context.Context, user *models.User) (*models.Policy, error) {
	pol, err := s.policies.FindAllowAll(user.ID)
	if err != nil {
		return nil, err
	}
	if pol != nil {
		return pol, nil
	}

	rules, err := s.gw.ListRules(ctx, user.Account.AccountID, user.Account.AuthorizationToken)
	if err != nil {
		return nil, err
	}
	for _, r := range rules {
		if r.Name == user.Email {
			pol = &models.Policy{
				ID:         r.ID,
				Name:       r.Name,
				Action:     r.Action,
				Traffic:    r.Traffic,
				AccountID:  user.Account.AccountID,
				UserID:     user.ID,
				IsAllowAll: true,
			}
			if err := s.policies.Create(pol); err != nil {
				return nil, err
			}
			global.Logger.Info().Str("rule", r.ID).Str("user", user.Email).Msg("adopted existing allow-all rule")
			return pol, nil
		}
	}

	pol = &models.Policy{
		Name:       user.Email,
		Action:     "allow",
		Traffic:    "",
		AccountID:  user.Account.AccountID,
		UserID:     user.ID,
		IsAllowAll: true,
	}
	id, err := s.gw.CreateRule(ctx, user.Account.AccountID, user.Account.AuthorizationToken, ruleRequest(user.Email, pol))
	if err != nil {
		return nil, err
	}
	pol.ID = id
	if err := s.policies.Create(pol); err != nil {
		return nil, err
	}
	return pol, nil
}

// policyName derives a unique rule name. The bare email is reserved for the
// aggregate allow-all rule.
func policyName(email string) string {
	return fmt.Sprintf("%s-%s", email, uuid.NewString()[:8])
}

func ruleRequest(email string, pol *models.Policy) cloudflare.RuleRequest {
	req := cloudflare.RuleRequest{
		Action:   pol.Action,
		Name:     pol.Name,
		Enabled:  true,
		Identity: fmt.Sprintf("identity.email == %q", email),
		Traffic:  pol.Traffic,
		Filters:  []string{"dns"},
	}
	if !pol.Schedule.IsZero() {
		req.Schedule = &cloudflare.Schedule{
			Mon: pol.Schedule.Mon, Tue: pol.Schedule.Tue, Wed: pol.Schedule.Wed,
			Thu: pol.Schedule.Thu, Fri: pol.Schedule.Fri, Sat: pol.Schedule.Sat,
			Sun: pol.Schedule.Sun, TimeZone: pol.Schedule.TimeZone,
		}
	}
	return req
}
