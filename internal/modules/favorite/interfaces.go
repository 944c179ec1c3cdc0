package favorite

import (
	"context"

	"crmnice/internal/domain"
)

// FavoriteRepository - хранилище закладок, которое нужно модулю.
type FavoriteRepository interface {
	Toggle(ctx context.Context, userID, companyID int64) (domain.ToggleResult, error)
	ListByUser(ctx context.Context, userID int64, countryID *int64) ([]domain.UserFavoriteCompany, error)
}

// CompanyLookup проверяет существование компании перед переключением.
type CompanyLookup interface {
	GetPlain(ctx context.Context, id int64) (*domain.Company, error)
}
