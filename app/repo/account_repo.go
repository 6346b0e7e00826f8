package repo

import (
	"errors"

	"klik-guard/app/models"

	"gorm.io/gorm"
)

type AccountRepository struct{ db *gorm.DB }

func NewAccountRepository(db *gorm.DB) *AccountRepository { return &AccountRepository{db: db} }

func (r *AccountRepository) FindByID(accountID string) (*models.Account, error) {
	var a models.Account
	err := r.db.Where("account_id = ?", accountID).First(&a).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &a, nil
}

func (r *AccountRepository) ListAll() ([]models.Account, error) {
	var accounts []models.Account
	err := r.db.Find(&accounts).Error
	return accounts, err
}

// Candidates returns accounts with at least one free slot, fullest first so
// one account fills up before the pool spreads users onto the next.
func (r *AccountRepository) Candidates() ([]models.Account, error) {
	var accounts []models.Account
	err := r.db.Where("user_num < ?", models.Capacity).Order("user_num DESC").Find(&accounts).Error
	return accounts, err
}

// TryClaim consumes one slot. The eligibility check and the increment are a
// single UPDATE so two concurrent claims can never overbook the account.
func (r *AccountRepository) TryClaim(accountID string) (bool, error) {
	res := r.db.Model(&models.Account{}).
		Where("account_id = ? AND user_num < ?", accountID, models.Capacity).
		UpdateColumn("user_num", gorm.Expr("user_num + 1"))
	return res.RowsAffected > 0, res.Error
}

// Release returns a slot to the account, flooring at zero.
func (r *AccountRepository) Release(accountID string) error {
	return r.db.Model(&models.Account{}).
		Where("account_id = ? AND user_num > 0", accountID).
		UpdateColumn("user_num", gorm.Expr("user_num - 1")).Error
}

func (r *AccountRepository) Create(a *models.Account) error { return r.db.Create(a).Error }

func (r *AccountRepository) Save(a *models.Account) error { return r.db.Save(a).Error }
