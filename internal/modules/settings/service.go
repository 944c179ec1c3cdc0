package settings

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"strings"

	"crmnice/internal/domain"
	"crmnice/internal/pkg/validator"
	"crmnice/internal/repository"
)

const invalidForm = "Please correct the errors in the form."

type Service struct {
	refs ReferenceStore
}

func NewService(refs ReferenceStore) *Service {
	return &Service{refs: refs}
}

func (s *Service) Dashboard(ctx context.Context) (Dashboard, error) {
	countries, err := s.refs.ListCountries(ctx)
	if err != nil {
		return Dashboard{}, err
	}
	cities, err := s.refs.ListCities(ctx, nil)
	if err != nil {
		return Dashboard{}, err
	}
	categories, err := s.refs.ListCategories(ctx)
	if err != nil {
		return Dashboard{}, err
	}
	statuses, err := s.refs.ListStatuses(ctx)
	if err != nil {
		return Dashboard{}, err
	}
	return Dashboard{
		Countries:  len(countries),
		Cities:     len(cities),
		Categories: len(categories),
		Statuses:   len(statuses),
	}, nil
}

func validate(form interface{}) error {
	if fields := validator.Validate(form); fields != nil {
		return &ValidationError{Message: invalidForm, Fields: fields}
	}
	return nil
}

// saved maps repository write errors; a uniqueness violation is the
// user's mistake and lands on the named field.
func saved(err error, field, what string) error {
	switch {
	case err == nil:
		return nil
	case errors.Is(err, repository.ErrDuplicate):
		return fieldError(field, what+" already exists.")
	case errors.Is(err, repository.ErrNotFound):
		return ErrNotFound
	default:
		return err
	}
}

func notFound(err error) error {
	if errors.Is(err, repository.ErrNotFound) {
		return ErrNotFound
	}
	return err
}

/* ---------- COUNTRIES ---------- */

func (s *Service) Countries(ctx context.Context) ([]domain.CountryWithCount, error) {
	return s.refs.ListCountries(ctx)
}

func (s *Service) Country(ctx context.Context, id int64) (*domain.Country, error) {
	c, err := s.refs.GetCountry(ctx, id)
	return c, notFound(err)
}

func (s *Service) CreateCountry(ctx context.Context, f *CountryForm) (*domain.Country, error) {
	return s.saveCountry(ctx, &domain.Country{}, f)
}

func (s *Service) UpdateCountry(ctx context.Context, id int64, f *CountryForm) (*domain.Country, error) {
	c, err := s.Country(ctx, id)
	if err != nil {
		return nil, err
	}
	return s.saveCountry(ctx, c, f)
}

func (s *Service) saveCountry(ctx context.Context, c *domain.Country, f *CountryForm) (*domain.Country, error) {
	f.normalize()
	if err := validate(f); err != nil {
		return nil, err
	}
	c.Name, c.Code, c.FlagEmoji = f.Name, f.Code, f.FlagEmoji
	if err := saved(s.refs.SaveCountry(ctx, c), "name", "A country with this name or code"); err != nil {
		return nil, err
	}
	return c, nil
}

func (s *Service) ConfirmDeleteCountry(ctx context.Context, id int64) (DeleteConfirm, error) {
	c, err := s.Country(ctx, id)
	if err != nil {
		return DeleteConfirm{}, err
	}
	n, err := s.refs.CountryUsage(ctx, id)
	return DeleteConfirm{ID: id, Name: c.Name, UsageCount: n}, err
}

// DeleteCountry returns the removed country; a country still used by cities
// or users is left intact and *repository.InUseError comes back.
func (s *Service) DeleteCountry(ctx context.Context, id int64) (*domain.Country, error) {
	c, err := s.Country(ctx, id)
	if err != nil {
		return nil, err
	}
	if err := s.refs.DeleteCountry(ctx, id); err != nil {
		return c, notFound(err)
	}
	return c, nil
}

/* ---------- CITIES ---------- */

// Cities lists cities, optionally of one country. A filter that is not a
// number is ignored.
func (s *Service) Cities(ctx context.Context, countryFilter string) (CitiesPage, error) {
	var countryID *int64
	if id, err := strconv.ParseInt(strings.TrimSpace(countryFilter), 10, 64); err == nil {
		countryID = &id
	} else {
		countryFilter = ""
	}
	cities, err := s.refs.ListCities(ctx, countryID)
	if err != nil {
		return CitiesPage{}, err
	}
	countries, err := s.refs.AllCountries(ctx)
	if err != nil {
		return CitiesPage{}, err
	}
	return CitiesPage{Cities: cities, Countries: countries, SelectedCountry: countryFilter}, nil
}

func (s *Service) AllCountries(ctx context.Context) ([]domain.Country, error) {
	return s.refs.AllCountries(ctx)
}

func (s *Service) City(ctx context.Context, id int64) (*domain.City, error) {
	c, err := s.refs.GetCity(ctx, id)
	return c, notFound(err)
}

func (s *Service) CreateCity(ctx context.Context, f *CityForm) (*domain.City, error) {
	return s.saveCity(ctx, &domain.City{}, f)
}

func (s *Service) UpdateCity(ctx context.Context, id int64, f *CityForm) (*domain.City, error) {
	c, err := s.City(ctx, id)
	if err != nil {
		return nil, err
	}
	return s.saveCity(ctx, c, f)
}

func (s *Service) saveCity(ctx context.Context, c *domain.City, f *CityForm) (*domain.City, error) {
	f.Name = strings.TrimSpace(f.Name)
	f.Country = strings.TrimSpace(f.Country)
	if err := validate(f); err != nil {
		return nil, err
	}
	countryID, _ := strconv.ParseInt(f.Country, 10, 64)
	if _, err := s.refs.GetCountry(ctx, countryID); err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return nil, fieldError("country", "Select a valid choice.")
		}
		return nil, err
	}
	c.Name, c.CountryID, c.Country = f.Name, countryID, nil
	if err := saved(s.refs.SaveCity(ctx, c), "name", "A city with this name in this country"); err != nil {
		return nil, err
	}
	return c, nil
}

func (s *Service) ConfirmDeleteCity(ctx context.Context, id int64) (DeleteConfirm, error) {
	c, err := s.City(ctx, id)
	if err != nil {
		return DeleteConfirm{}, err
	}
	n, err := s.refs.CityUsage(ctx, id)
	return DeleteConfirm{ID: id, Name: c.Name, UsageCount: n}, err
}

func (s *Service) DeleteCity(ctx context.Context, id int64) (*domain.City, error) {
	c, err := s.City(ctx, id)
	if err != nil {
		return nil, err
	}
	if err := s.refs.DeleteCity(ctx, id); err != nil {
		return c, notFound(err)
	}
	return c, nil
}

// CityOptions feeds the dependent city select. Anything but a valid id
// yields an empty list.
func (s *Service) CityOptions(ctx context.Context, rawCountryID string) ([]CityOption, error) {
	out := []CityOption{}
	id, err := strconv.ParseInt(strings.TrimSpace(rawCountryID), 10, 64)
	if err != nil {
		return out, nil
	}
	cities, err := s.refs.CitiesByCountry(ctx, id)
	if err != nil {
		return nil, fmt.Errorf("cities by country: %w", err)
	}
	for _, c := range cities {
		out = append(out, CityOption{ID: c.ID, Name: c.Name})
	}
	return out, nil
}

/* ---------- CATEGORIES ---------- */

func (s *Service) Categories(ctx context.Context) ([]domain.CategoryWithCount, error) {
	return s.refs.ListCategories(ctx)
}

func (s *Service) Category(ctx context.Context, id int64) (*domain.Category, error) {
	c, err := s.refs.GetCategory(ctx, id)
	return c, notFound(err)
}

func (s *Service) CreateCategory(ctx context.Context, f *CategoryForm) (*domain.Category, error) {
	return s.saveCategory(ctx, &domain.Category{}, f)
}

func (s *Service) UpdateCategory(ctx context.Context, id int64, f *CategoryForm) (*domain.Category, error) {
	c, err := s.Category(ctx, id)
	if err != nil {
		return nil, err
	}
	return s.saveCategory(ctx, c, f)
}

func (s *Service) saveCategory(ctx context.Context, c *domain.Category, f *CategoryForm) (*domain.Category, error) {
	f.Name = strings.TrimSpace(f.Name)
	f.BadgeColorBg = strings.TrimSpace(f.BadgeColorBg)
	f.BadgeColorFg = strings.TrimSpace(f.BadgeColorFg)
	f.BadgeClass = strings.TrimSpace(f.BadgeClass)
	if err := validate(f); err != nil {
		return nil, err
	}
	c.Name = f.Name
	c.BadgeColorBg = orDefault(f.BadgeColorBg, domain.DefaultCategoryBg)
	c.BadgeColorFg = orDefault(f.BadgeColorFg, domain.DefaultCategoryFg)
	c.BadgeClass = orDefault(f.BadgeClass, domain.DefaultCategoryBadge)
	if err := saved(s.refs.SaveCategory(ctx, c), "name", "A category with this name"); err != nil {
		return nil, err
	}
	return c, nil
}

func (s *Service) ConfirmDeleteCategory(ctx context.Context, id int64) (DeleteConfirm, error) {
	c, err := s.Category(ctx, id)
	if err != nil {
		return DeleteConfirm{}, err
	}
	n, err := s.refs.CategoryUsage(ctx, id)
	return DeleteConfirm{ID: id, Name: c.Name, UsageCount: n}, err
}

func (s *Service) DeleteCategory(ctx context.Context, id int64) (*domain.Category, error) {
	c, err := s.Category(ctx, id)
	if err != nil {
		return nil, err
	}
	if err := s.refs.DeleteCategory(ctx, id); err != nil {
		return c, notFound(err)
	}
	return c, nil
}

/* ---------- STATUSES ---------- */

func (s *Service) Statuses(ctx context.Context) ([]domain.StatusWithCount, error) {
	return s.refs.ListStatuses(ctx)
}

func (s *Service) Status(ctx context.Context, id int64) (*domain.Status, error) {
	st, err := s.refs.GetStatus(ctx, id)
	return st, notFound(err)
}

func (s *Service) CreateStatus(ctx context.Context, f *StatusForm) (*domain.Status, error) {
	return s.saveStatus(ctx, &domain.Status{}, f)
}

func (s *Service) UpdateStatus(ctx context.Context, id int64, f *StatusForm) (*domain.Status, error) {
	st, err := s.Status(ctx, id)
	if err != nil {
		return nil, err
	}
	return s.saveStatus(ctx, st, f)
}

// saveStatus relies on the repository to keep a single default.
func (s *Service) saveStatus(ctx context.Context, st *domain.Status, f *StatusForm) (*domain.Status, error) {
	f.Name = strings.TrimSpace(f.Name)
	f.BadgeClass = strings.TrimSpace(f.BadgeClass)
	if err := validate(f); err != nil {
		return nil, err
	}
	st.Name = f.Name
	st.IsDefault = f.isDefault()
	st.BadgeClass = orDefault(f.BadgeClass, domain.DefaultStatusBadge)
	if err := saved(s.refs.SaveStatus(ctx, st), "name", "A status with this name"); err != nil {
		return nil, err
	}
	return st, nil
}

func (s *Service) ConfirmDeleteStatus(ctx context.Context, id int64) (DeleteConfirm, error) {
	st, err := s.Status(ctx, id)
	if err != nil {
		return DeleteConfirm{}, err
	}
	n, err := s.refs.StatusUsage(ctx, id)
	return DeleteConfirm{ID: id, Name: st.Name, UsageCount: n}, err
}

func (s *Service) DeleteStatus(ctx context.Context, id int64) (*domain.Status, error) {
	st, err := s.Status(ctx, id)
	if err != nil {
		return nil, err
	}
	if err := s.refs.DeleteStatus(ctx, id); err != nil {
		return st, notFound(err)
	}
	return st, nil
}

func orDefault(v, def string) string {
	if v == "" {
		return def
	}
	return v
}
