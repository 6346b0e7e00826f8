package services

import (
	"context"
	"fmt"
	"sync"
	"testing"

	"klik-guard/app/cloudflare"
	"klik-guard/app/models"

	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"
)

func testDB(t *testing.T) *gorm.DB {
	t.Helper()
	db, err := gorm.Open(sqlite.Open("file::memory:"), &gorm.Config{Logger: logger.Default.LogMode(logger.Silent)})
	if err != nil {
		t.Fatalf("open sqlite: %v", err)
	}
	// A single connection keeps the in-memory database alive and serializes
	// writes, which sqlite requires anyway.
	sqlDB, err := db.DB()
	if err != nil {
		t.Fatalf("sql db: %v", err)
	}
	sqlDB.SetMaxOpenConns(1)
	if err := db.AutoMigrate(&models.Account{}, &models.User{}, &models.Policy{}, &models.Notification{}); err != nil {
		t.Fatalf("migrate: %v", err)
	}
	return db
}

// fakeGateway is an in-memory Gateway. Per-method error hooks let tests
// inject remote failures.
type fakeGateway struct {
	mu sync.Mutex

	apps        []cloudflare.Application
	enrollEmail map[string][]string // policyID -> include emails
	rules       map[string]cloudflare.RuleRequest
	ruleOrder   []string
	devices     []cloudflare.Device
	deleted     []string // deleted device ids
	logs        []cloudflare.LogEntry

	nextID int

	createRuleErr   error
	updateRuleErr   error
	deleteRuleErr   error
	listRulesErr    error
	updateEnrollErr error

	createAppCalls    int
	createPolicyCalls int
	updateRuleCalls   int
}

func newFakeGateway() *fakeGateway {
	return &fakeGateway{
		enrollEmail: make(map[string][]string),
		rules:       make(map[string]cloudflare.RuleRequest),
	}
}

func (g *fakeGateway) genID(prefix string) string {
	g.nextID++
	return fmt.Sprintf("%s-%d", prefix, g.nextID)
}

func (g *fakeGateway) ListApplications(ctx context.Context, accountID, token string) ([]cloudflare.Application, error) {
	g.mu.Lock()
	defer g.mu.Unlock()
	out := make([]cloudflare.Application, len(g.apps))
	copy(out, g.apps)
	return out, nil
}

func (g *fakeGateway) CreateEnrollmentApplication(ctx context.Context, accountID, token, name string) (string, error) {
	g.mu.Lock()
	defer g.mu.Unlock()
	g.createAppCalls++
	id := g.genID("app")
	g.apps = append(g.apps, cloudflare.Application{ID: id, Type: "warp"})
	return id, nil
}

func (g *fakeGateway) CreateEnrollmentPolicy(ctx context.Context, accountID, token, appID, email string) (string, error) {
	g.mu.Lock()
	defer g.mu.Unlock()
	g.createPolicyCalls++
	id := g.genID("enroll")
	for i := range g.apps {
		if g.apps[i].ID == appID {
			g.apps[i].Policies = append(g.apps[i].Policies, cloudflare.AccessPolicy{ID: id, Precedence: 1})
		}
	}
	g.enrollEmail[id] = nil
	return id, nil
}

func (g *fakeGateway) GetEnrollmentPolicy(ctx context.Context, accountID, token, appID, policyID string) (*cloudflare.AccessPolicy, error) {
	g.mu.Lock()
	defer g.mu.Unlock()
	emails := g.enrollEmail[policyID]
	pol := &cloudflare.AccessPolicy{ID: policyID, Precedence: 1}
	for _, e := range emails {
		pol.Include = append(pol.Include, cloudflare.IncludeRule{Email: &cloudflare.EmailRule{Email: e}})
	}
	return pol, nil
}

func (g *fakeGateway) UpdateEnrollmentPolicy(ctx context.Context, accountID, token, appID, policyID string, emails []string) error {
	g.mu.Lock()
	defer g.mu.Unlock()
	if g.updateEnrollErr != nil {
		return g.updateEnrollErr
	}
	g.enrollEmail[policyID] = append([]string(nil), emails...)
	return nil
}

func (g *fakeGateway) CreateRule(ctx context.Context, accountID, token string, rule cloudflare.RuleRequest) (string, error) {
	g.mu.Lock()
	defer g.mu.Unlock()
	if g.createRuleErr != nil {
		return "", g.createRuleErr
	}
	id := g.genID("rule")
	g.rules[id] = rule
	g.ruleOrder = append(g.ruleOrder, id)
	return id, nil
}

func (g *fakeGateway) UpdateRule(ctx context.Context, accountID, token, ruleID string, rule cloudflare.RuleRequest) error {
	g.mu.Lock()
	defer g.mu.Unlock()
	g.updateRuleCalls++
	if g.updateRuleErr != nil {
		return g.updateRuleErr
	}
	if _, ok := g.rules[ruleID]; !ok {
		return &cloudflare.APIError{Status: 404, Message: "rule not found"}
	}
	g.rules[ruleID] = rule
	return nil
}

func (g *fakeGateway) DeleteRule(ctx context.Context, accountID, token, ruleID string) error {
	g.mu.Lock()
	defer g.mu.Unlock()
	if g.deleteRuleErr != nil {
		return g.deleteRuleErr
	}
	delete(g.rules, ruleID)
	return nil
}

func (g *fakeGateway) ListRules(ctx context.Context, accountID, token string) ([]cloudflare.Rule, error) {
	g.mu.Lock()
	defer g.mu.Unlock()
	if g.listRulesErr != nil {
		return nil, g.listRulesErr
	}
	var out []cloudflare.Rule
	for _, id := range g.ruleOrder {
		req, ok := g.rules[id]
		if !ok {
			continue
		}
		out = append(out, cloudflare.Rule{ID: id, Name: req.Name, Action: req.Action, Traffic: req.Traffic})
	}
	return out, nil
}

func (g *fakeGateway) ListDevices(ctx context.Context, accountID, token, email string) ([]cloudflare.Device, error) {
	g.mu.Lock()
	defer g.mu.Unlock()
	out := make([]cloudflare.Device, len(g.devices))
	copy(out, g.devices)
	return out, nil
}

func (g *fakeGateway) DeleteDevice(ctx context.Context, accountID, token, deviceID string) error {
	g.mu.Lock()
	defer g.mu.Unlock()
	g.deleted = append(g.deleted, deviceID)
	return nil
}

func (g *fakeGateway) QueryLogs(ctx context.Context, accountID, token string, q cloudflare.LogQuery) ([]cloudflare.LogEntry, error) {
	g.mu.Lock()
	defer g.mu.Unlock()
	out := make([]cloudflare.LogEntry, len(g.logs))
	copy(out, g.logs)
	return out, nil
}

func (g *fakeGateway) rule(id string) (cloudflare.RuleRequest, bool) {
	g.mu.Lock()
	defer g.mu.Unlock()
	r, ok := g.rules[id]
	return r, ok
}

func (g *fakeGateway) ruleCount() int {
	g.mu.Lock()
	defer g.mu.Unlock()
	return len(g.rules)
}
