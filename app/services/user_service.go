package services

import (
	"klik-guard/app/models"
	"klik-guard/app/repo"

	"golang.org/x/crypto/bcrypt"
)

type UserService struct{ users *repo.UserRepository }

func NewUserService(users *repo.UserRepository) *UserService { return &UserService{users: users} }

func (s *UserService) GetByID(id uint) (*models.User, error) {
	u, err := s.users.FindByID(id)
	if err != nil {
		return nil, err
	}
	if u == nil {
		return nil, ErrNotFound
	}
	return u, nil
}

func (s *UserService) GetByEmail(email string) (*models.User, error) {
	u, err := s.users.FindByEmail(email)
	if err != nil {
		return nil, err
	}
	if u == nil {
		return nil, ErrNotFound
	}
	return u, nil
}

func (s *UserService) ListAll() ([]models.User, error) { return s.users.ListAll() }

// SwitchLocked toggles the user's lock flag (administrative).
func (s *UserService) SwitchLocked(id uint) (*models.User, error) {
	u, err := s.GetByID(id)
	if err != nil {
		return nil, err
	}
	u.Locked = !u.Locked
	if err := s.users.Save(u); err != nil {
		return nil, err
	}
	return u, nil
}

// EnsureAdmin creates the administrative user if it does not exist. Admins
// have no gateway account; they manage the pool, they are not enrolled in
// it.
func (s *UserService) EnsureAdmin(email, password string) error {
	if email == "" || password == "" {
		return nil
	}
	exists, err := s.users.ExistsByEmail(email)
	if err != nil {
		return err
	}
	if exists {
		return nil
	}
	hash, err := bcrypt.GenerateFromPassword([]byte(password), bcrypt.DefaultCost)
	if err != nil {
		return err
	}
	return s.users.Create(&models.User{
		Email:        email,
		PasswordHash: string(hash),
		Role:         "admin",
		Enabled:      true,
	})
}
