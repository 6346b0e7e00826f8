package repo

import (
	"errors"

	"klik-guard/app/models"

	"gorm.io/gorm"
)

type PolicyRepository struct{ db *gorm.DB }

func NewPolicyRepository(db *gorm.DB) *PolicyRepository { return &PolicyRepository{db: db} }

func (r *PolicyRepository) FindByID(id string) (*models.Policy, error) {
	var p models.Policy
	err := r.db.Where("id = ?", id).First(&p).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &p, nil
}

func (r *PolicyRepository) FindByUser(userID uint) ([]models.Policy, error) {
	var policies []models.Policy
	err := r.db.Where("user_id = ?", userID).Order("created_at ASC").Find(&policies).Error
	return policies, err
}

// FindAllowAll returns the user's derived aggregate policy, or nil if it has
// not been created yet.
func (r *PolicyRepository) FindAllowAll(userID uint) (*models.Policy, error) {
	var p models.Policy
	err := r.db.Where("user_id = ? AND is_allow_all = ?", userID, true).First(&p).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &p, nil
}

// CountBlocking counts the user's policies excluding the aggregate; the
// per-user cap applies to this number.
func (r *PolicyRepository) CountBlocking(userID uint) (int64, error) {
	var n int64
	err := r.db.Model(&models.Policy{}).Where("user_id = ? AND is_allow_all = ?", userID, false).Count(&n).Error
	return n, err
}

func (r *PolicyRepository) Create(p *models.Policy) error { return r.db.Create(p).Error }

func (r *PolicyRepository) Save(p *models.Policy) error { return r.db.Save(p).Error }

func (r *PolicyRepository) Delete(p *models.Policy) error { return r.db.Delete(p).Error }
