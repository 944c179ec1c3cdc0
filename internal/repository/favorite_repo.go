package repository

import (
	"context"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"crmnice/internal/domain"
)

// FavoriteRepository хранит закладки пользователей на компании.
type FavoriteRepository struct {
	db *gorm.DB
}

// NewFavoriteRepository создаёт новый экземпляр репозитория
func NewFavoriteRepository(db *gorm.DB) *FavoriteRepository {
	return &FavoriteRepository{db: db}
}

// Toggle добавляет компанию в избранное, если её там нет, иначе удаляет.
// Всё в одной транзакции; повторный вызов возвращает исходное состояние.
func (r *FavoriteRepository) Toggle(ctx context.Context, userID, companyID int64) (domain.ToggleResult, error) {
	var result domain.ToggleResult
	err := r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		res := tx.Where("user_id = ? AND company_id = ?", userID, companyID).
			Delete(&domain.UserFavoriteCompany{})
		if res.Error != nil {
			return res.Error
		}
		if res.RowsAffected > 0 {
			result = domain.FavoriteRemoved
			return nil
		}

		// a concurrent toggle may have added it already
		fav := &domain.UserFavoriteCompany{UserID: userID, CompanyID: companyID}
		if err := tx.Clauses(clause.OnConflict{DoNothing: true}).Create(fav).Error; err != nil {
			return err
		}
		result = domain.FavoriteAdded
		return nil
	})
	return result, err
}

// CompanyIDs возвращает id избранных компаний пользователя.
func (r *FavoriteRepository) CompanyIDs(ctx context.Context, userID int64) ([]int64, error) {
	var ids []int64
	err := r.db.WithContext(ctx).Model(&domain.UserFavoriteCompany{}).
		Where("user_id = ?", userID).
		Pluck("company_id", &ids).Error
	return ids, err
}

// Exists проверяет, есть ли компания в избранном у пользователя.
func (r *FavoriteRepository) Exists(ctx context.Context, userID, companyID int64) (bool, error) {
	var count int64
	err := r.db.WithContext(ctx).Model(&domain.UserFavoriteCompany{}).
		Where("user_id = ? AND company_id = ?", userID, companyID).
		Count(&count).Error
	return count > 0, err
}

// ListByUser возвращает избранное пользователя, новые сверху.
// countryID, если задан, оставляет только компании из городов этой страны.
func (r *FavoriteRepository) ListByUser(ctx context.Context, userID int64, countryID *int64) ([]domain.UserFavoriteCompany, error) {
	q := r.db.WithContext(ctx).
		Select("user_favorite_companies.*").
		Where("user_favorite_companies.user_id = ?", userID).
		Preload("Company.City").
		Preload("Company.Category").
		Preload("Company.Status").
		Preload("Company.Phones", func(db *gorm.DB) *gorm.DB {
			return db.Order("is_favorite DESC, id")
		}).
		Order("user_favorite_companies.created_at DESC, user_favorite_companies.id DESC")

	if countryID != nil {
		q = q.Joins("JOIN companies ON companies.id = user_favorite_companies.company_id").
			Joins("JOIN cities ON cities.id = companies.city_id").
			Where("cities.country_id = ?", *countryID)
	}

	var favorites []domain.UserFavoriteCompany
	if err := q.Find(&favorites).Error; err != nil {
		return nil, err
	}
	return favorites, nil
}
