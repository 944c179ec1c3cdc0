package repository

import (
	"context"

	"gorm.io/gorm"

	"crmnice/internal/domain"
)

// ReferenceRepository stores countries, cities, categories and statuses.
type ReferenceRepository struct {
	db *gorm.DB
}

func NewReferenceRepository(db *gorm.DB) *ReferenceRepository {
	return &ReferenceRepository{db: db}
}

type countRow struct {
	RefID int64
	N     int64
}

// countBy returns COUNT(*) grouped by a foreign key column.
func (r *ReferenceRepository) countBy(ctx context.Context, model interface{}, column string) (map[int64]int64, error) {
	var rows []countRow
	err := r.db.WithContext(ctx).Model(model).
		Select(column + " AS ref_id, COUNT(*) AS n").
		Where(column + " IS NOT NULL").
		Group(column).
		Scan(&rows).Error
	if err != nil {
		return nil, err
	}
	out := make(map[int64]int64, len(rows))
	for _, row := range rows {
		out[row.RefID] = row.N
	}
	return out, nil
}

// usage counts the rows of model whose column points at id.
func (r *ReferenceRepository) usage(ctx context.Context, model interface{}, column string, id int64) (int64, error) {
	var n int64
	err := r.db.WithContext(ctx).Model(model).Where(column+" = ?", id).Count(&n).Error
	return n, err
}

// CountryUsage reports how many cities belong to the country.
func (r *ReferenceRepository) CountryUsage(ctx context.Context, id int64) (int64, error) {
	return r.usage(ctx, &domain.City{}, "country_id", id)
}

func (r *ReferenceRepository) CityUsage(ctx context.Context, id int64) (int64, error) {
	return r.usage(ctx, &domain.Company{}, "city_id", id)
}

func (r *ReferenceRepository) CategoryUsage(ctx context.Context, id int64) (int64, error) {
	return r.usage(ctx, &domain.Company{}, "category_id", id)
}

func (r *ReferenceRepository) StatusUsage(ctx context.Context, id int64) (int64, error) {
	return r.usage(ctx, &domain.Company{}, "status_id", id)
}

/* ---------- COUNTRIES ---------- */

func (r *ReferenceRepository) ListCountries(ctx context.Context) ([]domain.CountryWithCount, error) {
	var countries []domain.Country
	if err := r.db.WithContext(ctx).Order("name").Find(&countries).Error; err != nil {
		return nil, err
	}
	counts, err := r.countBy(ctx, &domain.City{}, "country_id")
	if err != nil {
		return nil, err
	}
	out := make([]domain.CountryWithCount, len(countries))
	for i, c := range countries {
		out[i] = domain.CountryWithCount{Country: c, CityCount: counts[c.ID]}
	}
	return out, nil
}

func (r *ReferenceRepository) AllCountries(ctx context.Context) ([]domain.Country, error) {
	var countries []domain.Country
	err := r.db.WithContext(ctx).Order("name").Find(&countries).Error
	return countries, err
}

func (r *ReferenceRepository) GetCountry(ctx context.Context, id int64) (*domain.Country, error) {
	var c domain.Country
	if err := r.db.WithContext(ctx).First(&c, id).Error; err != nil {
		return nil, mapErr(err)
	}
	return &c, nil
}

func (r *ReferenceRepository) SaveCountry(ctx context.Context, c *domain.Country) error {
	return mapErr(r.db.WithContext(ctx).Save(c).Error)
}

// DeleteCountry refuses while cities or user profiles point at the country.
func (r *ReferenceRepository) DeleteCountry(ctx context.Context, id int64) error {
	return r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var cities, profiles int64
		if err := tx.Model(&domain.City{}).Where("country_id = ?", id).Count(&cities).Error; err != nil {
			return err
		}
		if cities > 0 {
			return &InUseError{Count: cities, Dependents: "cities"}
		}
		if err := tx.Model(&domain.UserProfile{}).Where("country_id = ?", id).Count(&profiles).Error; err != nil {
			return err
		}
		if profiles > 0 {
			return &InUseError{Count: profiles, Dependents: "users"}
		}
		return deleteByID(tx, &domain.Country{}, id)
	})
}

/* ---------- CITIES ---------- */

// ListCities returns cities with their company counts, optionally for one country.
func (r *ReferenceRepository) ListCities(ctx context.Context, countryID *int64) ([]domain.CityWithCount, error) {
	q := r.db.WithContext(ctx).Preload("Country").Order("name")
	if countryID != nil {
		q = q.Where("country_id = ?", *countryID)
	}
	var cities []domain.City
	if err := q.Find(&cities).Error; err != nil {
		return nil, err
	}
	counts, err := r.countBy(ctx, &domain.Company{}, "city_id")
	if err != nil {
		return nil, err
	}
	out := make([]domain.CityWithCount, len(cities))
	for i, c := range cities {
		out[i] = domain.CityWithCount{City: c, CompanyCount: counts[c.ID]}
	}
	return out, nil
}

func (r *ReferenceRepository) AllCities(ctx context.Context) ([]domain.City, error) {
	var cities []domain.City
	err := r.db.WithContext(ctx).Order("name").Find(&cities).Error
	return cities, err
}

func (r *ReferenceRepository) CitiesByCountry(ctx context.Context, countryID int64) ([]domain.City, error) {
	var cities []domain.City
	err := r.db.WithContext(ctx).Where("country_id = ?", countryID).Order("name").Find(&cities).Error
	return cities, err
}

func (r *ReferenceRepository) GetCity(ctx context.Context, id int64) (*domain.City, error) {
	var c domain.City
	if err := r.db.WithContext(ctx).Preload("Country").First(&c, id).Error; err != nil {
		return nil, mapErr(err)
	}
	return &c, nil
}

func (r *ReferenceRepository) SaveCity(ctx context.Context, c *domain.City) error {
	return mapErr(r.db.WithContext(ctx).Omit("Country").Save(c).Error)
}

func (r *ReferenceRepository) DeleteCity(ctx context.Context, id int64) error {
	return r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var n int64
		if err := tx.Model(&domain.Company{}).Where("city_id = ?", id).Count(&n).Error; err != nil {
			return err
		}
		if n > 0 {
			return &InUseError{Count: n, Dependents: "companies"}
		}
		return deleteByID(tx, &domain.City{}, id)
	})
}

/* ---------- CATEGORIES ---------- */

func (r *ReferenceRepository) ListCategories(ctx context.Context) ([]domain.CategoryWithCount, error) {
	var categories []domain.Category
	if err := r.db.WithContext(ctx).Order("name").Find(&categories).Error; err != nil {
		return nil, err
	}
	counts, err := r.countBy(ctx, &domain.Company{}, "category_id")
	if err != nil {
		return nil, err
	}
	out := make([]domain.CategoryWithCount, len(categories))
	for i, c := range categories {
		out[i] = domain.CategoryWithCount{Category: c, CompanyCount: counts[c.ID]}
	}
	return out, nil
}

func (r *ReferenceRepository) AllCategories(ctx context.Context) ([]domain.Category, error) {
	var categories []domain.Category
	err := r.db.WithContext(ctx).Order("name").Find(&categories).Error
	return categories, err
}

func (r *ReferenceRepository) GetCategory(ctx context.Context, id int64) (*domain.Category, error) {
	var c domain.Category
	if err := r.db.WithContext(ctx).First(&c, id).Error; err != nil {
		return nil, mapErr(err)
	}
	return &c, nil
}

func (r *ReferenceRepository) SaveCategory(ctx context.Context, c *domain.Category) error {
	return mapErr(r.db.WithContext(ctx).Save(c).Error)
}

func (r *ReferenceRepository) DeleteCategory(ctx context.Context, id int64) error {
	return r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var n int64
		if err := tx.Model(&domain.Company{}).Where("category_id = ?", id).Count(&n).Error; err != nil {
			return err
		}
		if n > 0 {
			return &InUseError{Count: n, Dependents: "companies"}
		}
		return deleteByID(tx, &domain.Category{}, id)
	})
}

/* ---------- STATUSES ---------- */

// ListStatuses orders the default status first, then by name.
func (r *ReferenceRepository) ListStatuses(ctx context.Context) ([]domain.StatusWithCount, error) {
	var statuses []domain.Status
	if err := r.db.WithContext(ctx).Order("is_default DESC, name").Find(&statuses).Error; err != nil {
		return nil, err
	}
	counts, err := r.countBy(ctx, &domain.Company{}, "status_id")
	if err != nil {
		return nil, err
	}
	out := make([]domain.StatusWithCount, len(statuses))
	for i, s := range statuses {
		out[i] = domain.StatusWithCount{Status: s, CompanyCount: counts[s.ID]}
	}
	return out, nil
}

func (r *ReferenceRepository) AllStatuses(ctx context.Context) ([]domain.Status, error) {
	var statuses []domain.Status
	err := r.db.WithContext(ctx).Order("name").Find(&statuses).Error
	return statuses, err
}

func (r *ReferenceRepository) GetStatus(ctx context.Context, id int64) (*domain.Status, error) {
	var s domain.Status
	if err := r.db.WithContext(ctx).First(&s, id).Error; err != nil {
		return nil, mapErr(err)
	}
	return &s, nil
}

// DefaultStatus returns the status new companies start in, nil if none is marked.
func (r *ReferenceRepository) DefaultStatus(ctx context.Context) (*domain.Status, error) {
	var s domain.Status
	err := r.db.WithContext(ctx).Where("is_default = ?", true).Order("id").Limit(1).Find(&s).Error
	if err != nil {
		return nil, err
	}
	if s.ID == 0 {
		return nil, nil
	}
	return &s, nil
}

// SaveStatus writes the status; marking it default clears every other
// default in the same transaction.
func (r *ReferenceRepository) SaveStatus(ctx context.Context, s *domain.Status) error {
	return r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if s.IsDefault {
			q := tx.Model(&domain.Status{}).Where("is_default = ?", true)
			if s.ID != 0 {
				q = q.Where("id <> ?", s.ID)
			}
			if err := q.Update("is_default", false).Error; err != nil {
				return err
			}
		}
		return mapErr(tx.Save(s).Error)
	})
}

func (r *ReferenceRepository) DeleteStatus(ctx context.Context, id int64) error {
	return r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var n int64
		if err := tx.Model(&domain.Company{}).Where("status_id = ?", id).Count(&n).Error; err != nil {
			return err
		}
		if n > 0 {
			return &InUseError{Count: n, Dependents: "companies"}
		}
		return deleteByID(tx, &domain.Status{}, id)
	})
}

func deleteByID(tx *gorm.DB, model interface{}, id int64) error {
	res := tx.Delete(model, id)
	if res.Error != nil {
		return res.Error
	}
	if res.RowsAffected == 0 {
		return ErrNotFound
	}
	return nil
}
