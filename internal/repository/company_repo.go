package repository

import (
	"context"
	"errors"
	"fmt"
	"time"

	"gorm.io/datatypes"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"crmnice/internal/domain"
)

const maxClientIDAttempts = 20

var ErrClientIDExhausted = errors.New("could not allocate a free client id")

// scalarColumns are the company columns a form save writes.
var scalarColumns = []string{
	"name", "city_id", "category_id", "status_id",
	"telegram", "website", "instagram",
	"short_comment", "full_description", "keywords", "call_date",
}

type CompanyRepository struct {
	db *gorm.DB
}

func NewCompanyRepository(db *gorm.DB) *CompanyRepository {
	return &CompanyRepository{db: db}
}

// Transaction runs fn with a repository bound to one database transaction.
func (r *CompanyRepository) Transaction(ctx context.Context, fn func(tx *CompanyRepository) error) error {
	return r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		return fn(&CompanyRepository{db: tx})
	})
}

// GetByID loads the company with its references and child collections.
// Comments come newest first; the favorite phone and address lead their lists.
func (r *CompanyRepository) GetByID(ctx context.Context, id int64) (*domain.Company, error) {
	var c domain.Company
	err := r.db.WithContext(ctx).
		Preload("City.Country").
		Preload("Category").
		Preload("Status").
		Preload("Phones", func(db *gorm.DB) *gorm.DB {
			return db.Order("is_favorite DESC, id")
		}).
		Preload("Addresses", func(db *gorm.DB) *gorm.DB {
			return db.Order("is_favorite DESC, id")
		}).
		Preload("Comments", func(db *gorm.DB) *gorm.DB {
			return db.Order("created_at DESC, id DESC")
		}).
		First(&c, id).Error
	if err != nil {
		return nil, mapErr(err)
	}
	return &c, nil
}

// GetPlain loads only the company row.
func (r *CompanyRepository) GetPlain(ctx context.Context, id int64) (*domain.Company, error) {
	var c domain.Company
	if err := r.db.WithContext(ctx).First(&c, id).Error; err != nil {
		return nil, mapErr(err)
	}
	return &c, nil
}

// LockMedia reads the logo and photo list of the company for a following
// write in the same transaction. On postgres the row is locked FOR UPDATE;
// sqlite serializes writers on its own.
func (r *CompanyRepository) LockMedia(ctx context.Context, id int64) (*domain.Company, error) {
	q := r.db.WithContext(ctx).Select("id", "logo", "photos")
	if r.db.Dialector.Name() == "postgres" {
		q = q.Clauses(clause.Locking{Strength: clause.LockingStrengthUpdate})
	}
	var c domain.Company
	if err := q.First(&c, id).Error; err != nil {
		return nil, mapErr(err)
	}
	return &c, nil
}

// Create inserts the row and assigns the next client id from the counter.
// The counter row is locked by the increment, so concurrent creators are
// serialized; ids already taken by imported rows are skipped.
func (r *CompanyRepository) Create(ctx context.Context, c *domain.Company) error {
	return r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		c.ClientID = nil
		if err := tx.Omit(clause.Associations).Create(c).Error; err != nil {
			return mapErr(err)
		}

		for attempt := 0; attempt < maxClientIDAttempts; attempt++ {
			n, err := nextCounterValue(tx, domain.ClientIDCounter)
			if err != nil {
				return fmt.Errorf("draw client id: %w", err)
			}
			clientID := domain.FormatClientID(n)

			var taken int64
			if err := tx.Model(&domain.Company{}).Where("client_id = ?", clientID).Count(&taken).Error; err != nil {
				return err
			}
			if taken > 0 {
				continue
			}

			if err := tx.Model(&domain.Company{}).Where("id = ?", c.ID).
				UpdateColumn("client_id", clientID).Error; err != nil {
				return mapErr(err)
			}
			c.ClientID = &clientID
			return nil
		}
		return ErrClientIDExhausted
	})
}

func nextCounterValue(tx *gorm.DB, name string) (int64, error) {
	res := tx.Model(&domain.Counter{}).Where("name = ?", name).
		UpdateColumn("value", gorm.Expr("value + 1"))
	if res.Error != nil {
		return 0, res.Error
	}
	if res.RowsAffected == 0 {
		if err := tx.Create(&domain.Counter{Name: name, Value: 1}).Error; err != nil {
			return 0, err
		}
		return 1, nil
	}
	var c domain.Counter
	if err := tx.Where("name = ?", name).First(&c).Error; err != nil {
		return 0, err
	}
	return c.Value, nil
}

// UpdateScalars writes the form fields and refreshes updated_at.
func (r *CompanyRepository) UpdateScalars(ctx context.Context, c *domain.Company) error {
	res := r.db.WithContext(ctx).Model(c).Select(scalarColumns).Updates(c)
	if res.Error != nil {
		return mapErr(res.Error)
	}
	if res.RowsAffected == 0 {
		return ErrNotFound
	}
	return nil
}

// ReplacePhones deletes every phone of the company and inserts the given ones.
func (r *CompanyRepository) ReplacePhones(ctx context.Context, companyID int64, phones []domain.CompanyPhone) error {
	db := r.db.WithContext(ctx)
	if err := db.Where("company_id = ?", companyID).Delete(&domain.CompanyPhone{}).Error; err != nil {
		return err
	}
	if len(phones) == 0 {
		return nil
	}
	for i := range phones {
		phones[i].ID = 0
		phones[i].CompanyID = companyID
	}
	return db.Create(&phones).Error
}

// ReplaceAddresses deletes every address of the company and inserts the given ones.
func (r *CompanyRepository) ReplaceAddresses(ctx context.Context, companyID int64, addresses []domain.CompanyAddress) error {
	db := r.db.WithContext(ctx)
	if err := db.Where("company_id = ?", companyID).Delete(&domain.CompanyAddress{}).Error; err != nil {
		return err
	}
	if len(addresses) == 0 {
		return nil
	}
	for i := range addresses {
		addresses[i].ID = 0
		addresses[i].CompanyID = companyID
	}
	return db.Create(&addresses).Error
}

func (r *CompanyRepository) SetPhotos(ctx context.Context, companyID int64, photos []string) error {
	if photos == nil {
		photos = []string{}
	}
	return r.db.WithContext(ctx).Model(&domain.Company{ID: companyID}).
		Update("photos", datatypes.JSONSlice[string](photos)).Error
}

func (r *CompanyRepository) SetLogo(ctx context.Context, companyID int64, logo string) error {
	return r.db.WithContext(ctx).Model(&domain.Company{ID: companyID}).
		Update("logo", logo).Error
}

func (r *CompanyRepository) SetShortComment(ctx context.Context, companyID int64, text string) error {
	return r.db.WithContext(ctx).Model(&domain.Company{ID: companyID}).
		Update("short_comment", text).Error
}

// SetCallDate stores the date, nil clears it.
func (r *CompanyRepository) SetCallDate(ctx context.Context, companyID int64, date *time.Time) error {
	var value interface{}
	if date != nil {
		d := datatypes.Date(*date)
		value = d
	}
	return r.db.WithContext(ctx).Model(&domain.Company{ID: companyID}).
		Update("call_date", value).Error
}

// Delete removes the company with its phones, addresses, comments and
// favorite marks in one transaction.
func (r *CompanyRepository) Delete(ctx context.Context, id int64) error {
	return r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		for _, child := range []interface{}{
			&domain.UserFavoriteCompany{},
			&domain.CompanyComment{},
			&domain.CompanyAddress{},
			&domain.CompanyPhone{},
		} {
			if err := tx.Where("company_id = ?", id).Delete(child).Error; err != nil {
				return err
			}
		}
		return deleteByID(tx, &domain.Company{}, id)
	})
}

/* ---------- COMMENTS ---------- */

func (r *CompanyRepository) AddComment(ctx context.Context, comment *domain.CompanyComment) error {
	return r.db.WithContext(ctx).Create(comment).Error
}

func (r *CompanyRepository) ListComments(ctx context.Context, companyID int64) ([]domain.CompanyComment, error) {
	var comments []domain.CompanyComment
	err := r.db.WithContext(ctx).
		Where("company_id = ?", companyID).
		Order("created_at DESC, id DESC").
		Find(&comments).Error
	return comments, err
}

// DeleteComment removes a comment only if it belongs to the company.
func (r *CompanyRepository) DeleteComment(ctx context.Context, companyID, commentID int64) error {
	res := r.db.WithContext(ctx).
		Where("id = ? AND company_id = ?", commentID, companyID).
		Delete(&domain.CompanyComment{})
	if res.Error != nil {
		return res.Error
	}
	if res.RowsAffected == 0 {
		return ErrNotFound
	}
	return nil
}

/* ---------- DUPLICATES ---------- */

// DuplicateField is a company column that can be checked for duplicates.
type DuplicateField string

const (
	DupWebsite   DuplicateField = "website"
	DupInstagram DuplicateField = "instagram"
	DupTelegram  DuplicateField = "telegram"
)

// FindByPhone returns the first company owning the exact phone number.
func (r *CompanyRepository) FindByPhone(ctx context.Context, number string, excludeID int64) (*domain.Company, error) {
	q := r.db.WithContext(ctx).Model(&domain.Company{}).
		Where("companies.id IN (?)", r.db.Model(&domain.CompanyPhone{}).Select("company_id").Where("number = ?", number))
	if excludeID > 0 {
		q = q.Where("companies.id <> ?", excludeID)
	}
	return firstOrNil(q)
}

// FindByField returns the first company with the exact field value.
func (r *CompanyRepository) FindByField(ctx context.Context, field DuplicateField, value string, excludeID int64) (*domain.Company, error) {
	switch field {
	case DupWebsite, DupInstagram, DupTelegram:
	default:
		return nil, fmt.Errorf("unsupported duplicate field %q", field)
	}
	q := r.db.WithContext(ctx).Model(&domain.Company{}).Where(string(field)+" = ?", value)
	if excludeID > 0 {
		q = q.Where("id <> ?", excludeID)
	}
	return firstOrNil(q)
}

func firstOrNil(q *gorm.DB) (*domain.Company, error) {
	var c domain.Company
	if err := q.Order("id").Limit(1).Find(&c).Error; err != nil {
		return nil, err
	}
	if c.ID == 0 {
		return nil, nil
	}
	return &c, nil
}

/* ---------- MEDIA ---------- */

// AllMedia returns every logo and photo URL referenced by some company.
func (r *CompanyRepository) AllMedia(ctx context.Context) (map[string]struct{}, error) {
	refs := make(map[string]struct{})
	var batch []domain.Company
	err := r.db.WithContext(ctx).Select("id", "logo", "photos").
		FindInBatches(&batch, 500, func(tx *gorm.DB, _ int) error {
			for _, c := range batch {
				if c.Logo != "" {
					refs[c.Logo] = struct{}{}
				}
				for _, p := range c.Photos {
					refs[p] = struct{}{}
				}
			}
			return nil
		}).Error
	if err != nil {
		return nil, err
	}
	return refs, nil
}
