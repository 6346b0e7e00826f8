package services

import (
	"context"
	"errors"
	"testing"
	"time"

	"klik-guard/app/cloudflare"
	"klik-guard/app/models"
	"klik-guard/app/repo"
)

type notifFixture struct {
	svc           *NotificationService
	notifications *repo.NotificationRepository
	policies      *repo.PolicyRepository
	accounts      *repo.AccountRepository
	gw            *fakeGateway
}

func newNotifFixture(t *testing.T) *notifFixture {
	t.Helper()
	db := testDB(t)
	notifications := repo.NewNotificationRepository(db)
	policies := repo.NewPolicyRepository(db)
	accounts := repo.NewAccountRepository(db)
	gw := newFakeGateway()
	logSvc := NewLogService(gw, policies, accounts)
	return &notifFixture{
		svc:           NewNotificationService(notifications, policies, accounts, logSvc, nil, 5*time.Minute, 100),
		notifications: notifications,
		policies:      policies,
		accounts:      accounts,
		gw:            gw,
	}
}

func TestSweepRecordsBlockedContent(t *testing.T) {
	f := newNotifFixture(t)
	if err := f.accounts.Create(&models.Account{AccountID: "acc-1", AuthorizationToken: "tok"}); err != nil {
		t.Fatal(err)
	}
	if err := f.policies.Create(&models.Policy{ID: "pol-1", Name: "kid@x.test-abc", Action: "block", AccountID: "acc-1", UserID: 7}); err != nil {
		t.Fatal(err)
	}

	now := time.Now().UTC().Format(time.RFC3339)
	f.gw.logs = []cloudflare.LogEntry{
		{PolicyID: "pol-1", QueryName: "casino.example", ResolverDecision: 9, Datetime: now},
		{PolicyID: "pol-1", QueryName: "fine.example", ResolverDecision: 1, Datetime: now},
		{PolicyID: "unknown", QueryName: "other.example", ResolverDecision: 9, Datetime: now},
	}

	f.svc.SweepBlockedContent(context.Background())

	ns, err := f.notifications.FindByUser(7)
	if err != nil {
		t.Fatal(err)
	}
	if len(ns) != 1 {
		t.Fatalf("got %d notifications, want 1", len(ns))
	}
	if ns[0].Type != models.NotificationLog {
		t.Errorf("type = %s, want log", ns[0].Type)
	}
}

func TestSweepNoAccountsIsNoop(t *testing.T) {
	f := newNotifFixture(t)
	f.svc.SweepBlockedContent(context.Background())
	ns, err := f.notifications.FindByUser(1)
	if err != nil {
		t.Fatal(err)
	}
	if len(ns) != 0 {
		t.Errorf("got %d notifications, want 0", len(ns))
	}
}

func TestUnseenReturnsAndMarksSeen(t *testing.T) {
	f := newNotifFixture(t)
	user := &models.User{ID: 1}
	for i := 0; i < 3; i++ {
		if err := f.notifications.Create(&models.Notification{UserID: 1, Message: "m", Type: models.NotificationLog, Timestamp: time.Now()}); err != nil {
			t.Fatal(err)
		}
	}

	ns, err := f.svc.Unseen(user)
	if err != nil {
		t.Fatal(err)
	}
	if len(ns) != 3 {
		t.Fatalf("got %d unseen, want 3", len(ns))
	}

	n, err := f.svc.UnseenCount(user)
	if err != nil {
		t.Fatal(err)
	}
	if n != 0 {
		t.Errorf("unseen count after read = %d, want 0", n)
	}
}

func TestMarkSeenRejectsForeignNotifications(t *testing.T) {
	f := newNotifFixture(t)
	if err := f.notifications.Create(&models.Notification{UserID: 1, Message: "mine", Type: models.NotificationLog, Timestamp: time.Now()}); err != nil {
		t.Fatal(err)
	}
	if err := f.notifications.Create(&models.Notification{UserID: 2, Message: "theirs", Type: models.NotificationLog, Timestamp: time.Now()}); err != nil {
		t.Fatal(err)
	}

	ns, _ := f.notifications.FindByUser(2)
	err := f.svc.MarkSeen(&models.User{ID: 1}, []uint{ns[0].ID})
	if !errors.Is(err, ErrUnauthorized) {
		t.Errorf("err = %v, want ErrUnauthorized", err)
	}
}

func TestDeleteNotificationOwnership(t *testing.T) {
	f := newNotifFixture(t)
	if err := f.notifications.Create(&models.Notification{UserID: 2, Message: "theirs", Type: models.NotificationLog, Timestamp: time.Now()}); err != nil {
		t.Fatal(err)
	}
	ns, _ := f.notifications.FindByUser(2)

	if err := f.svc.Delete(&models.User{ID: 1}, ns[0].ID); !errors.Is(err, ErrUnauthorized) {
		t.Errorf("foreign delete err = %v, want ErrUnauthorized", err)
	}
	if err := f.svc.Delete(&models.User{ID: 2}, ns[0].ID); err != nil {
		t.Errorf("owner delete failed: %v", err)
	}
	if err := f.svc.Delete(&models.User{ID: 2}, ns[0].ID); !errors.Is(err, ErrNotFound) {
		t.Errorf("double delete err = %v, want ErrNotFound", err)
	}
}
