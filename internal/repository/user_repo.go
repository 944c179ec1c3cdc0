package repository

import (
	"context"
	"strings"

	"gorm.io/gorm"

	"crmnice/internal/domain"
)

type UserRepository struct {
	db *gorm.DB
}

func NewUserRepository(db *gorm.DB) *UserRepository {
	return &UserRepository{db: db}
}

func normalizeEmail(email string) string {
	return strings.TrimSpace(strings.ToLower(email))
}

// CreateWithProfile inserts the account and its profile in one transaction.
func (r *UserRepository) CreateWithProfile(ctx context.Context, u *domain.User, p *domain.UserProfile) error {
	u.Email = normalizeEmail(u.Email)
	return r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.Omit("Profile").Create(u).Error; err != nil {
			return mapErr(err)
		}
		p.UserID = u.ID
		if err := tx.Omit("Country").Create(p).Error; err != nil {
			return mapErr(err)
		}
		u.Profile = p
		return nil
	})
}

func (r *UserRepository) GetByID(ctx context.Context, id int64) (*domain.User, error) {
	var u domain.User
	err := r.db.WithContext(ctx).Preload("Profile.Country").First(&u, id).Error
	if err != nil {
		return nil, mapErr(err)
	}
	return &u, nil
}

func (r *UserRepository) GetByUsername(ctx context.Context, username string) (*domain.User, error) {
	var u domain.User
	err := r.db.WithContext(ctx).Preload("Profile").
		Where("username = ?", strings.TrimSpace(username)).
		First(&u).Error
	if err != nil {
		return nil, mapErr(err)
	}
	return &u, nil
}

func (r *UserRepository) List(ctx context.Context) ([]domain.User, error) {
	var users []domain.User
	err := r.db.WithContext(ctx).Preload("Profile.Country").Order("username").Find(&users).Error
	return users, err
}

func (r *UserRepository) ExistsByUsername(ctx context.Context, username string, excludeID int64) (bool, error) {
	var n int64
	q := r.db.WithContext(ctx).Model(&domain.User{}).Where("username = ?", strings.TrimSpace(username))
	if excludeID > 0 {
		q = q.Where("id <> ?", excludeID)
	}
	err := q.Count(&n).Error
	return n > 0, err
}

func (r *UserRepository) ExistsByEmail(ctx context.Context, email string, excludeID int64) (bool, error) {
	var n int64
	q := r.db.WithContext(ctx).Model(&domain.User{}).Where("LOWER(email) = ?", normalizeEmail(email))
	if excludeID > 0 {
		q = q.Where("id <> ?", excludeID)
	}
	err := q.Count(&n).Error
	return n > 0, err
}

// UpdateWithProfile writes the account fields and the profile together.
// A missing profile is created.
func (r *UserRepository) UpdateWithProfile(ctx context.Context, u *domain.User, p *domain.UserProfile) error {
	u.Email = normalizeEmail(u.Email)
	return r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		res := tx.Model(&domain.User{ID: u.ID}).
			Select("username", "email", "first_name", "last_name", "is_active").
			Updates(u)
		if res.Error != nil {
			return mapErr(res.Error)
		}
		if res.RowsAffected == 0 {
			return ErrNotFound
		}
		p.UserID = u.ID
		if p.ID == 0 {
			var existing domain.UserProfile
			if err := tx.Where("user_id = ?", u.ID).Limit(1).Find(&existing).Error; err != nil {
				return err
			}
			p.ID = existing.ID
			if existing.ID != 0 && p.RegisteredAt.IsZero() {
				p.RegisteredAt = existing.RegisteredAt
			}
		}
		if err := tx.Omit("Country").Save(p).Error; err != nil {
			return mapErr(err)
		}
		u.Profile = p
		return nil
	})
}

func (r *UserRepository) UpdatePassword(ctx context.Context, userID int64, hash string) error {
	res := r.db.WithContext(ctx).Model(&domain.User{ID: userID}).Update("password_hash", hash)
	if res.Error != nil {
		return res.Error
	}
	if res.RowsAffected == 0 {
		return ErrNotFound
	}
	return nil
}

// Delete removes the account, its profile and its favorites.
func (r *UserRepository) Delete(ctx context.Context, id int64) error {
	return r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.Where("user_id = ?", id).Delete(&domain.UserFavoriteCompany{}).Error; err != nil {
			return err
		}
		if err := tx.Where("user_id = ?", id).Delete(&domain.UserProfile{}).Error; err != nil {
			return err
		}
		return deleteByID(tx, &domain.User{}, id)
	})
}

// CountByRole is used by bootstrap to tell whether a super-admin exists.
func (r *UserRepository) CountByRole(ctx context.Context, role domain.Role) (int64, error) {
	var n int64
	err := r.db.WithContext(ctx).Model(&domain.UserProfile{}).Where("role = ?", role).Count(&n).Error
	return n, err
}
