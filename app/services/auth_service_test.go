package services

import (
	"context"
	"errors"
	"testing"

	jwtutil "klik-guard/app/jwt"
	"klik-guard/app/models"
	"klik-guard/app/repo"
)

type authFixture struct {
	svc      *AuthService
	users    *repo.UserRepository
	accounts *repo.AccountRepository
	policies *repo.PolicyRepository
	gw       *fakeGateway
}

func newAuthFixture(t *testing.T) *authFixture {
	t.Helper()
	db := testDB(t)
	users := repo.NewUserRepository(db)
	accounts := repo.NewAccountRepository(db)
	policies := repo.NewPolicyRepository(db)
	gw := newFakeGateway()

	pool := NewAccountPool(accounts, gw)
	policySvc := NewPolicyService(policies, gw)
	signer := &jwtutil.Signer{Secret: []byte("test-secret"), Issuer: "klik-guard", ExpMin: 5}
	svc := NewAuthService(users, pool, policySvc, signer, nil, &LogSender{}, "http://test")
	return &authFixture{svc: svc, users: users, accounts: accounts, policies: policies, gw: gw}
}

func (f *authFixture) seedAccount(t *testing.T) {
	t.Helper()
	if err := f.accounts.Create(&models.Account{AccountID: "acc-1", AuthorizationToken: "tok"}); err != nil {
		t.Fatal(err)
	}
}

func TestRegisterFullFlow(t *testing.T) {
	f := newAuthFixture(t)
	f.seedAccount(t)

	if err := f.svc.Register(context.Background(), "kid@x.test", "hunter22"); err != nil {
		t.Fatal(err)
	}

	user, err := f.users.FindByEmail("kid@x.test")
	if err != nil || user == nil {
		t.Fatalf("user not created: %v", err)
	}
	if user.AccountID != "acc-1" {
		t.Errorf("account id = %s, want acc-1", user.AccountID)
	}
	if !user.Enabled {
		t.Error("user should be enabled when no token store is configured")
	}

	acc, _ := f.accounts.FindByID("acc-1")
	if acc.UserNum != 1 {
		t.Errorf("user_num = %d, want 1", acc.UserNum)
	}
	if acc.EnrollmentApplicationID == "" || acc.EnrollmentPolicyID == "" {
		t.Error("account not bootstrapped during registration")
	}

	emails := f.gw.enrollEmail[acc.EnrollmentPolicyID]
	if len(emails) != 1 || emails[0] != "kid@x.test" {
		t.Errorf("enrolled = %v, want [kid@x.test]", emails)
	}

	all, _ := f.policies.FindByUser(user.ID)
	var block, allow int
	for _, p := range all {
		if p.IsAllowAll {
			allow++
		} else {
			block++
		}
	}
	if block != 1 || allow != 1 {
		t.Errorf("policies = %d block / %d allow, want 1/1", block, allow)
	}
}

func TestRegisterInvalidEmail(t *testing.T) {
	f := newAuthFixture(t)
	if err := f.svc.Register(context.Background(), "not-an-email", "pw"); !errors.Is(err, ErrInvalidEmail) {
		t.Errorf("err = %v, want ErrInvalidEmail", err)
	}
}

func TestRegisterDuplicateEmail(t *testing.T) {
	f := newAuthFixture(t)
	f.seedAccount(t)
	if err := f.svc.Register(context.Background(), "kid@x.test", "pw"); err != nil {
		t.Fatal(err)
	}
	if err := f.svc.Register(context.Background(), "kid@x.test", "pw"); !errors.Is(err, ErrEmailTaken) {
		t.Errorf("err = %v, want ErrEmailTaken", err)
	}
}

func TestRegisterPoolExhausted(t *testing.T) {
	f := newAuthFixture(t)
	if err := f.accounts.Create(&models.Account{AccountID: "full", AuthorizationToken: "tok", UserNum: models.Capacity}); err != nil {
		t.Fatal(err)
	}
	if err := f.svc.Register(context.Background(), "kid@x.test", "pw"); !errors.Is(err, ErrExhausted) {
		t.Errorf("err = %v, want ErrExhausted", err)
	}
}

func TestRegisterReleasesSlotOnEnrollmentFailure(t *testing.T) {
	f := newAuthFixture(t)
	f.seedAccount(t)
	f.gw.updateEnrollErr = errors.New("gateway down")

	if err := f.svc.Register(context.Background(), "kid@x.test", "pw"); err == nil {
		t.Fatal("want error when enrollment update fails")
	}

	user, err := f.users.FindByEmail("kid@x.test")
	if err != nil {
		t.Fatal(err)
	}
	if user != nil {
		t.Error("no user row should exist after a failed registration")
	}
	acc, _ := f.accounts.FindByID("acc-1")
	if acc.UserNum != 0 {
		t.Errorf("user_num = %d after failed registration, want 0", acc.UserNum)
	}

	// The returned slot is usable by the next registration.
	f.gw.updateEnrollErr = nil
	if err := f.svc.Register(context.Background(), "kid@x.test", "pw"); err != nil {
		t.Fatalf("retry after failure: %v", err)
	}
	acc, _ = f.accounts.FindByID("acc-1")
	if acc.UserNum != 1 {
		t.Errorf("user_num = %d after retry, want 1", acc.UserNum)
	}
}

func TestRegisterKeepsSlotOnceUserExists(t *testing.T) {
	f := newAuthFixture(t)
	f.seedAccount(t)
	f.gw.createRuleErr = errors.New("gateway down")

	// The default-policy step fails, but the user row is already committed,
	// so the slot stays claimed.
	if err := f.svc.Register(context.Background(), "kid@x.test", "pw"); err == nil {
		t.Fatal("want error when default policy creation fails")
	}
	user, _ := f.users.FindByEmail("kid@x.test")
	if user == nil {
		t.Fatal("user row should survive a default-policy failure")
	}
	acc, _ := f.accounts.FindByID("acc-1")
	if acc.UserNum != 1 {
		t.Errorf("user_num = %d, want 1", acc.UserNum)
	}
}

func TestLoginFlow(t *testing.T) {
	f := newAuthFixture(t)
	f.seedAccount(t)
	if err := f.svc.Register(context.Background(), "kid@x.test", "hunter22"); err != nil {
		t.Fatal(err)
	}

	token, err := f.svc.Login(context.Background(), "kid@x.test", "hunter22")
	if err != nil {
		t.Fatal(err)
	}
	if token == "" {
		t.Fatal("empty token")
	}

	if _, err := f.svc.Login(context.Background(), "kid@x.test", "wrong"); !errors.Is(err, ErrLoginFailed) {
		t.Errorf("wrong password err = %v, want ErrLoginFailed", err)
	}
	if _, err := f.svc.Login(context.Background(), "nobody@x.test", "pw"); !errors.Is(err, ErrLoginFailed) {
		t.Errorf("unknown user err = %v, want ErrLoginFailed", err)
	}
}

func TestLoginLockedUser(t *testing.T) {
	f := newAuthFixture(t)
	f.seedAccount(t)
	if err := f.svc.Register(context.Background(), "kid@x.test", "hunter22"); err != nil {
		t.Fatal(err)
	}
	user, _ := f.users.FindByEmail("kid@x.test")
	user.Locked = true
	if err := f.users.Save(user); err != nil {
		t.Fatal(err)
	}

	if _, err := f.svc.Login(context.Background(), "kid@x.test", "hunter22"); !errors.Is(err, ErrLoginFailed) {
		t.Errorf("locked user err = %v, want ErrLoginFailed", err)
	}
}

func TestForgotPasswordUnknownEmailIsSilent(t *testing.T) {
	f := newAuthFixture(t)
	if err := f.svc.ForgotPassword(context.Background(), "nobody@x.test"); err != nil {
		t.Errorf("unknown email err = %v, want nil", err)
	}
}
