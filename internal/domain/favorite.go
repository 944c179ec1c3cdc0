package domain

import (
	"time"
)

// UserFavoriteCompany - закладка пользователя на компанию.
// Избранные компании всегда показываются первыми в списке этого пользователя.
type UserFavoriteCompany struct {
	ID        int64     `json:"id" gorm:"primaryKey"`
	UserID    int64     `json:"user_id" gorm:"not null;index;uniqueIndex:idx_user_company"`
	CompanyID int64     `json:"company_id" gorm:"not null;index;uniqueIndex:idx_user_company"`
	CreatedAt time.Time `json:"created_at" gorm:"autoCreateTime"`

	Company *Company `json:"company,omitempty" gorm:"foreignKey:CompanyID;constraint:OnDelete:CASCADE"`
}

// TableName возвращает имя таблицы в БД
func (UserFavoriteCompany) TableName() string {
	return "user_favorite_companies"
}

// ToggleResult is what the favorite toggle reports.
type ToggleResult string

const (
	FavoriteAdded   ToggleResult = "added"
	FavoriteRemoved ToggleResult = "removed"
)
