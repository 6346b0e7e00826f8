package services

import (
	"context"
	"fmt"
	"sync"
	"time"

	"klik-guard/app/cloudflare"
	"klik-guard/app/models"
	"klik-guard/app/repo"
	"klik-guard/global"

	"github.com/redis/go-redis/v9"
)

// resolverDecisionBlocked is the gateway's decision code for a query denied
// by a block rule.
const resolverDecisionBlocked = 9

// staleDeviceAfter is how long a device may go unseen before the owner gets
// a notification.
const staleDeviceAfter = 5 * 24 * time.Hour

// NotificationService stores per-user notifications and runs the periodic
// sweep that turns blocked-content log entries into them.
type NotificationService struct {
	notifications *repo.NotificationRepository
	policies      *repo.PolicyRepository
	accounts      *repo.AccountRepository
	logs          *LogService
	rdb           *redis.Client // optional; nil disables the cross-replica sweep guard

	window   time.Duration
	pageSize int
}

func NewNotificationService(notifications *repo.NotificationRepository, policies *repo.PolicyRepository, accounts *repo.AccountRepository, logs *LogService, rdb *redis.Client, window time.Duration, pageSize int) *NotificationService {
	if window <= 0 {
		window = 5 * time.Minute
	}
	if pageSize <= 0 {
		pageSize = 1000
	}
	return &NotificationService{
		notifications: notifications,
		policies:      policies,
		accounts:      accounts,
		logs:          logs,
		rdb:           rdb,
		window:        window,
		pageSize:      pageSize,
	}
}

// Run sweeps on the given interval until the context is cancelled.
func (s *NotificationService) Run(ctx context.Context, interval time.Duration) {
	ticker := time.NewTicker(interval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			s.SweepBlockedContent(ctx)
		}
	}
}

// SweepBlockedContent fetches each account's blocked-query log entries for
// the last window and records a notification for the owner of every matched
// policy. Accounts are independent and swept in parallel.
func (s *NotificationService) SweepBlockedContent(ctx context.Context) {
	accounts, err := s.accounts.ListAll()
	if err != nil {
		global.Logger.Error().Err(err).Msg("sweep: list accounts")
		return
	}

	end := time.Now().UTC()
	start := end.Add(-s.window)

	var wg sync.WaitGroup
	for _, acc := range accounts {
		wg.Add(1)
		go func(acc models.Account) {
			defer wg.Done()
			s.sweepAccount(ctx, acc, start, end)
		}(acc)
	}
	wg.Wait()
}

func (s *NotificationService) sweepAccount(ctx context.Context, acc models.Account, start, end time.Time) {
	// With several replicas sweeping the same pool, only the first one to
	// take the guard processes this account in this window.
	if s.rdb != nil {
		ok, err := s.rdb.SetNX(ctx, "sweep:"+acc.AccountID, 1, s.window).Result()
		if err == nil && !ok {
			return
		}
	}

	logs, err := s.logs.LogsForAccount(ctx, acc.AccountID, cloudflare.LogQuery{
		Start:            start.Format(time.RFC3339),
		End:              end.Format(time.RFC3339),
		OrderBy:          []string{"datetime_DESC"},
		Limit:            s.pageSize,
		ResolverDecision: resolverDecisionBlocked,
	})
	if err != nil {
		global.Logger.Error().Err(err).Str("account", acc.AccountID).Msg("sweep: fetch logs")
		return
	}

	for _, entry := range logs {
		if entry.ResolverDecision != resolverDecisionBlocked {
			continue
		}
		pol, err := s.policies.FindByID(entry.PolicyID)
		if err != nil || pol == nil {
			continue
		}
		ts, err := time.Parse(time.RFC3339, entry.Datetime)
		if err != nil {
			ts = time.Now().UTC()
		}
		n := &models.Notification{
			UserID:    pol.UserID,
			Message:   fmt.Sprintf("Blocked content attempt (rule %s: %s)", pol.Name, entry.QueryName),
			Type:      models.NotificationLog,
			Timestamp: ts,
		}
		if err := s.notifications.Create(n); err != nil {
			global.Logger.Error().Err(err).Uint("user", pol.UserID).Msg("sweep: save notification")
		}
	}
}

// NotifyStaleDevices records a notification for each device not seen within
// staleDeviceAfter, at most one unseen notification per device.
func (s *NotificationService) NotifyStaleDevices(devices []cloudflare.Device, user *models.User) {
	cutoff := time.Now().Add(-staleDeviceAfter)
	for _, dev := range devices {
		lastSeen := parseLastSeen(dev.LastSeen)
		if lastSeen.IsZero() || !lastSeen.Before(cutoff) {
			continue
		}
		exists, err := s.notifications.ExistsUnseenForDevice(dev.ID)
		if err != nil || exists {
			continue
		}
		n := &models.Notification{
			UserID:    user.ID,
			Message:   fmt.Sprintf("Device %s %s last seen more than 5 days ago. Check the Cloudflare One app on your devices.", dev.Manufacturer, dev.Model),
			Type:      models.NotificationDevice,
			DeviceID:  dev.ID,
			Timestamp: time.Now(),
		}
		if err := s.notifications.Create(n); err != nil {
			global.Logger.Error().Err(err).Str("device", dev.ID).Msg("save stale device notification")
		}
	}
}

func (s *NotificationService) ListByUser(user *models.User) ([]models.Notification, error) {
	return s.notifications.FindByUser(user.ID)
}

// Unseen returns the user's unseen notifications and marks them seen.
func (s *NotificationService) Unseen(user *models.User) ([]models.Notification, error) {
	ns, err := s.notifications.FindUnseenByUser(user.ID)
	if err != nil {
		return nil, err
	}
	ids := make([]uint, 0, len(ns))
	for _, n := range ns {
		ids = append(ids, n.ID)
	}
	if err := s.notifications.MarkSeen(ids); err != nil {
		return nil, err
	}
	return ns, nil
}

func (s *NotificationService) UnseenCount(user *models.User) (int64, error) {
	return s.notifications.CountUnseenByUser(user.ID)
}

// MarkSeen marks the given notifications seen after verifying every one
// belongs to the user.
func (s *NotificationService) MarkSeen(user *models.User, ids []uint) error {
	ns, err := s.notifications.FindByIDs(ids)
	if err != nil {
		return err
	}
	for _, n := range ns {
		if n.UserID != user.ID {
			return ErrUnauthorized
		}
	}
	return s.notifications.MarkSeen(ids)
}

func (s *NotificationService) Delete(user *models.User, id uint) error {
	n, err := s.notifications.FindByID(id)
	if err != nil {
		return err
	}
	if n == nil {
		return ErrNotFound
	}
	if n.UserID != user.ID {
		return ErrUnauthorized
	}
	return s.notifications.Delete(n)
}
