package settings

import (
	"context"

	"crmnice/internal/domain"
)

// ReferenceStore is the reference data persistence the settings pages need.
type ReferenceStore interface {
	ListCountries(ctx context.Context) ([]domain.CountryWithCount, error)
	AllCountries(ctx context.Context) ([]domain.Country, error)
	GetCountry(ctx context.Context, id int64) (*domain.Country, error)
	SaveCountry(ctx context.Context, c *domain.Country) error
	DeleteCountry(ctx context.Context, id int64) error
	CountryUsage(ctx context.Context, id int64) (int64, error)

	ListCities(ctx context.Context, countryID *int64) ([]domain.CityWithCount, error)
	CitiesByCountry(ctx context.Context, countryID int64) ([]domain.City, error)
	GetCity(ctx context.Context, id int64) (*domain.City, error)
	SaveCity(ctx context.Context, c *domain.City) error
	DeleteCity(ctx context.Context, id int64) error
	CityUsage(ctx context.Context, id int64) (int64, error)

	ListCategories(ctx context.Context) ([]domain.CategoryWithCount, error)
	GetCategory(ctx context.Context, id int64) (*domain.Category, error)
	SaveCategory(ctx context.Context, c *domain.Category) error
	DeleteCategory(ctx context.Context, id int64) error
	CategoryUsage(ctx context.Context, id int64) (int64, error)

	ListStatuses(ctx context.Context) ([]domain.StatusWithCount, error)
	GetStatus(ctx context.Context, id int64) (*domain.Status, error)
	SaveStatus(ctx context.Context, s *domain.Status) error
	DeleteStatus(ctx context.Context, id int64) error
	StatusUsage(ctx context.Context, id int64) (int64, error)
}
