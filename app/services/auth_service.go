package services

import (
	"context"
	"fmt"
	"net/mail"
	"time"

	jwtutil "klik-guard/app/jwt"
	"klik-guard/app/models"
	"klik-guard/app/repo"
	"klik-guard/global"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
	"golang.org/x/crypto/bcrypt"
)

const (
	confirmTokenTTL = 30 * time.Minute
	resetTokenTTL   = 15 * time.Minute
)

// AuthService handles registration and credential flows. Registration is
// where the pool allocation happens: claim a slot, bootstrap the account's
// enrollment gate, enroll the email and install the default block policy.
type AuthService struct {
	users    *repo.UserRepository
	pool     *AccountPool
	policies *PolicyService
	signer   *jwtutil.Signer
	rdb      *redis.Client
	sender   Sender
	baseURL  string
}

func NewAuthService(users *repo.UserRepository, pool *AccountPool, policies *PolicyService, signer *jwtutil.Signer, rdb *redis.Client, sender Sender, baseURL string) *AuthService {
	return &AuthService{users: users, pool: pool, policies: policies, signer: signer, rdb: rdb, sender: sender, baseURL: baseURL}
}

// Register creates a user on a claimed account slot. Until the user row
// lands, the claim is only a local counter; any failure before that point
// returns the slot so a failed registration does not bleed pool capacity.
// Remote state may still be indeterminate after such a failure; the error
// is surfaced and nothing is hidden behind a retry here. The default-policy
// step reports recompose failures separately via *RecomposeError so the
// caller knows the registration itself held.
func (s *AuthService) Register(ctx context.Context, email, password string) error {
	if _, err := mail.ParseAddress(email); err != nil {
		return ErrInvalidEmail
	}
	exists, err := s.users.ExistsByEmail(email)
	if err != nil {
		return err
	}
	if exists {
		return ErrEmailTaken
	}

	acc, err := s.pool.ClaimSlot(ctx)
	if err != nil {
		return err
	}
	release := func(err error) error {
		if rerr := s.pool.ReleaseSlot(acc.AccountID); rerr != nil {
			global.Logger.Error().Err(rerr).Str("account", acc.AccountID).Msg("release slot after failed registration")
		}
		return err
	}
	if err := s.pool.Bootstrap(ctx, acc); err != nil {
		return release(err)
	}
	if err := s.pool.AddEmailToEnrollment(ctx, acc, email); err != nil {
		return release(err)
	}

	hash, err := bcrypt.GenerateFromPassword([]byte(password), bcrypt.DefaultCost)
	if err != nil {
		return release(err)
	}
	user := &models.User{
		Email:        email,
		PasswordHash: string(hash),
		Role:         "user",
		AccountID:    acc.AccountID,
		Account:      *acc,
		// Without a token store there is no confirmation round-trip.
		Enabled: s.rdb == nil,
	}
	if err := s.users.Create(user); err != nil {
		return release(err)
	}

	s.sendConfirmation(ctx, user)

	if _, err := s.policies.CreateDefault(ctx, user); err != nil {
		return err
	}
	return nil
}

func (s *AuthService) sendConfirmation(ctx context.Context, user *models.User) {
	if s.rdb == nil {
		return
	}
	token := uuid.NewString()
	if err := s.rdb.Set(ctx, "confirm:"+token, user.ID, confirmTokenTTL).Err(); err != nil {
		global.Logger.Error().Err(err).Str("user", user.Email).Msg("store confirmation token")
		return
	}
	link := fmt.Sprintf("%s/auth/verify?token=%s", s.baseURL, token)
	if err := s.sender.Send(user.Email, "Verify your account", "Confirm your registration: "+link); err != nil {
		global.Logger.Error().Err(err).Str("user", user.Email).Msg("send confirmation email")
	}
}

// Verify enables the user identified by a confirmation token.
func (s *AuthService) Verify(ctx context.Context, token string) error {
	if s.rdb == nil {
		return ErrInvalidToken
	}
	key := "confirm:" + token
	id, err := s.rdb.Get(ctx, key).Uint64()
	if err != nil {
		return ErrInvalidToken
	}
	user, err := s.users.FindByID(uint(id))
	if err != nil {
		return err
	}
	if user == nil {
		return ErrInvalidToken
	}
	user.Enabled = true
	if err := s.users.Save(user); err != nil {
		return err
	}
	s.rdb.Del(ctx, key)
	return nil
}

// Login checks credentials and returns a signed API token.
func (s *AuthService) Login(ctx context.Context, email, password string) (string, error) {
	user, err := s.users.FindByEmail(email)
	if err != nil {
		return "", err
	}
	if user == nil || user.Locked || !user.Enabled {
		return "", ErrLoginFailed
	}
	if bcrypt.CompareHashAndPassword([]byte(user.PasswordHash), []byte(password)) != nil {
		return "", ErrLoginFailed
	}
	return s.signer.Sign(user.ID, user.Email, user.Role)
}

// ForgotPassword issues a reset token for a known email; unknown emails are
// a silent no-op so the endpoint does not leak which addresses exist.
func (s *AuthService) ForgotPassword(ctx context.Context, email string) error {
	if s.rdb == nil {
		return nil
	}
	user, err := s.users.FindByEmail(email)
	if err != nil || user == nil {
		return nil
	}
	token := uuid.NewString()
	if err := s.rdb.Set(ctx, "reset:"+token, user.ID, resetTokenTTL).Err(); err != nil {
		return err
	}
	link := fmt.Sprintf("%s/reset-password?token=%s", s.baseURL, token)
	return s.sender.Send(user.Email, "Password reset", "Reset your password: "+link)
}

func (s *AuthService) ResetPassword(ctx context.Context, token, newPassword string) error {
	if s.rdb == nil {
		return ErrInvalidToken
	}
	key := "reset:" + token
	id, err := s.rdb.Get(ctx, key).Uint64()
	if err != nil {
		return ErrInvalidToken
	}
	user, err := s.users.FindByID(uint(id))
	if err != nil {
		return err
	}
	if user == nil {
		return ErrInvalidToken
	}
	hash, err := bcrypt.GenerateFromPassword([]byte(newPassword), bcrypt.DefaultCost)
	if err != nil {
		return err
	}
	user.PasswordHash = string(hash)
	if err := s.users.Save(user); err != nil {
		return err
	}
	s.rdb.Del(ctx, key)
	return nil
}
