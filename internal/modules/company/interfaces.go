package company

import (
	"context"
	"mime/multipart"
	"time"

	"crmnice/internal/domain"
	"crmnice/internal/repository"
)

// CompanyRepository lists only the methods the company service uses.
type CompanyRepository interface {
	Transaction(ctx context.Context, fn func(tx *repository.CompanyRepository) error) error
	GetByID(ctx context.Context, id int64) (*domain.Company, error)
	GetPlain(ctx context.Context, id int64) (*domain.Company, error)
	List(ctx context.Context, f repository.CompanyFilter) (*repository.CompanyPage, error)
	CountCreatedSince(ctx context.Context, t time.Time) (int64, error)
	Delete(ctx context.Context, id int64) error
	SetShortComment(ctx context.Context, companyID int64, text string) error
	SetCallDate(ctx context.Context, companyID int64, date *time.Time) error
	AddComment(ctx context.Context, comment *domain.CompanyComment) error
	ListComments(ctx context.Context, companyID int64) ([]domain.CompanyComment, error)
	DeleteComment(ctx context.Context, companyID, commentID int64) error
	FindByPhone(ctx context.Context, number string, excludeID int64) (*domain.Company, error)
	FindByField(ctx context.Context, field repository.DuplicateField, value string, excludeID int64) (*domain.Company, error)
}

// ReferenceReader resolves the lookups a company form points at.
type ReferenceReader interface {
	GetCity(ctx context.Context, id int64) (*domain.City, error)
	GetCategory(ctx context.Context, id int64) (*domain.Category, error)
	GetStatus(ctx context.Context, id int64) (*domain.Status, error)
	AllCities(ctx context.Context) ([]domain.City, error)
	CitiesByCountry(ctx context.Context, countryID int64) ([]domain.City, error)
	AllCategories(ctx context.Context) ([]domain.Category, error)
	AllStatuses(ctx context.Context) ([]domain.Status, error)
	AllCountries(ctx context.Context) ([]domain.Country, error)
	DefaultStatus(ctx context.Context) (*domain.Status, error)
}

type FavoriteReader interface {
	CompanyIDs(ctx context.Context, userID int64) ([]int64, error)
	Exists(ctx context.Context, userID, companyID int64) (bool, error)
}

// FileStore keeps uploaded media.
type FileStore interface {
	Save(name string, fh *multipart.FileHeader) (string, error)
	Delete(url string) error
}
