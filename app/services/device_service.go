package services

import (
	"context"
	"time"

	"klik-guard/app/cloudflare"
	"klik-guard/app/models"
	"klik-guard/app/repo"
	"klik-guard/global"
)

// DeviceService reconciles the gateway's device records for a user. The
// gateway accumulates one record per enrollment, so re-enrolling the same
// physical device leaves stale duplicates behind; listing devices is the
// moment they get cleaned up. Callers must expect this read to mutate remote
// state.
type DeviceService struct {
	gw            Gateway
	users         *repo.UserRepository
	policies      *repo.PolicyRepository
	notifications *NotificationService
}

func NewDeviceService(gw Gateway, users *repo.UserRepository, policies *repo.PolicyRepository, notifications *NotificationService) *DeviceService {
	return &DeviceService{gw: gw, users: users, policies: policies, notifications: notifications}
}

// ReconcileDevices lists the user's devices, deletes superseded duplicates
// remotely and returns the surviving set. Duplicates are grouped by serial
// number; within a group the record with the latest last-seen time wins.
// Devices without a serial number have no dedup key and pass through.
func (s *DeviceService) ReconcileDevices(ctx context.Context, user *models.User) ([]cloudflare.Device, error) {
	acc := user.Account
	devices, err := s.gw.ListDevices(ctx, acc.AccountID, acc.AuthorizationToken, user.Email)
	if err != nil {
		return nil, err
	}

	kept := s.dedupe(ctx, &acc, devices)

	if !user.IsSetUp && len(kept) > 0 {
		if n, err := s.policies.CountBlocking(user.ID); err == nil && n > 0 {
			user.IsSetUp = true
			if err := s.users.Save(user); err != nil {
				global.Logger.Error().Err(err).Str("user", user.Email).Msg("failed to mark user set up")
			}
		}
	}

	s.notifications.NotifyStaleDevices(kept, user)

	return kept, nil
}

func (s *DeviceService) dedupe(ctx context.Context, acc *models.Account, devices []cloudflare.Device) []cloudflare.Device {
	var kept []cloudflare.Device
	bySerial := make(map[string]int) // serial -> index into kept

	for _, dev := range devices {
		if dev.SerialNumber == "" {
			kept = append(kept, dev)
			continue
		}
		i, seen := bySerial[dev.SerialNumber]
		if !seen {
			bySerial[dev.SerialNumber] = len(kept)
			kept = append(kept, dev)
			continue
		}
		existing := kept[i]
		if parseLastSeen(dev.LastSeen).After(parseLastSeen(existing.LastSeen)) {
			s.deleteDevice(ctx, acc, existing.ID)
			kept[i] = dev
		} else {
			s.deleteDevice(ctx, acc, dev.ID)
		}
	}
	return kept
}

// deleteDevice is best effort: a failed cleanup leaves a duplicate that the
// next listing will retry.
func (s *DeviceService) deleteDevice(ctx context.Context, acc *models.Account, deviceID string) {
	if err := s.gw.DeleteDevice(ctx, acc.AccountID, acc.AuthorizationToken, deviceID); err != nil {
		global.Logger.Error().Err(err).Str("device", deviceID).Msg("failed to delete superseded device")
		return
	}
	global.Logger.Info().Str("device", deviceID).Msg("deleted superseded device record")
}

// parseLastSeen sorts unparseable or missing timestamps as the earliest
// possible instant so a record with a valid timestamp always wins.
func parseLastSeen(v string) time.Time {
	if v == "" {
		return time.Time{}
	}
	t, err := time.Parse(time.RFC3339, v)
	if err != nil {
		return time.Time{}
	}
	return t
}
