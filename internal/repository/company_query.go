package repository

import (
	"context"
	"database/sql"
	"strconv"
	"strings"
	"time"

	"gorm.io/datatypes"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"crmnice/internal/domain"
)

// Date bucket selectors accepted by the list filter.
const (
	UpdatedToday     = "today"
	UpdatedYesterday = "yesterday"
	UpdatedThisWeek  = "this_week"
	UpdatedThisMonth = "this_month"

	CallOverdue  = "overdue"
	CallToday    = "today"
	CallThisWeek = "this_week"
)

const DefaultPageSize = 100

// CompanyFilter describes one list request.
type CompanyFilter struct {
	Search      string
	Statuses    []string
	Cities      []string
	Category    string
	DateUpdated string
	CallDate    string

	// CountryID scopes the list to companies in that country's cities.
	CountryID *int64
	// FavoriteIDs float to the top and get IsFavorite set.
	FavoriteIDs []int64

	Page     int
	PageSize int

	Now      time.Time
	Location *time.Location
}

type CompanyPage struct {
	Companies []domain.Company `json:"companies"`
	Total     int64            `json:"total_count"`
	Page      int              `json:"page"`
	PageSize  int              `json:"page_size"`
	NumPages  int              `json:"num_pages"`
	HasPrev   bool             `json:"has_previous"`
	HasNext   bool             `json:"has_next"`
}

// likeEscaper escapes LIKE wildcards so user input matches literally.
var likeEscaper = strings.NewReplacer(`\`, `\\`, `%`, `\%`, `_`, `\_`)

const searchSQL = `(LOWER(companies.name) LIKE @p ESCAPE '\'
 OR LOWER(companies.short_comment) LIKE @p ESCAPE '\'
 OR LOWER(companies.client_id) LIKE @p ESCAPE '\'
 OR LOWER(cities.name) LIKE @p ESCAPE '\'
 OR LOWER(categories.name) LIKE @p ESCAPE '\'
 OR LOWER(companies.keywords) LIKE @p ESCAPE '\'
 OR LOWER(companies.website) LIKE @p ESCAPE '\'
 OR LOWER(companies.telegram) LIKE @p ESCAPE '\'
 OR LOWER(companies.instagram) LIKE @p ESCAPE '\'
 OR EXISTS (SELECT 1 FROM company_phones ph WHERE ph.company_id = companies.id
   AND (LOWER(ph.number) LIKE @p ESCAPE '\' OR LOWER(ph.contact_name) LIKE @p ESCAPE '\'))
 OR EXISTS (SELECT 1 FROM company_addresses ad WHERE ad.company_id = companies.id
   AND LOWER(ad.address) LIKE @p ESCAPE '\'))`

// List returns one page of companies matching the filter. Favorites of the
// viewer come first, then the most recently updated.
func (r *CompanyRepository) List(ctx context.Context, f CompanyFilter) (*CompanyPage, error) {
	if f.PageSize <= 0 {
		f.PageSize = DefaultPageSize
	}

	var total int64
	if err := r.filtered(ctx, f).Count(&total).Error; err != nil {
		return nil, err
	}

	page := &CompanyPage{Total: total, PageSize: f.PageSize}
	page.NumPages = int((total + int64(f.PageSize) - 1) / int64(f.PageSize))
	if page.NumPages < 1 {
		page.NumPages = 1
	}
	page.Page = f.Page
	if page.Page < 1 {
		page.Page = 1
	}
	if page.Page > page.NumPages {
		page.Page = page.NumPages
	}
	page.HasPrev = page.Page > 1
	page.HasNext = page.Page < page.NumPages

	q := r.filtered(ctx, f).
		Select("companies.*").
		Preload("City").
		Preload("Category").
		Preload("Status").
		Preload("Phones", func(db *gorm.DB) *gorm.DB {
			return db.Order("is_favorite DESC, id")
		}).
		Preload("Addresses", func(db *gorm.DB) *gorm.DB {
			return db.Order("is_favorite DESC, id")
		})

	if len(f.FavoriteIDs) > 0 {
		q = q.Clauses(clause.OrderBy{Expression: clause.Expr{
			SQL:  "CASE WHEN companies.id IN ? THEN 1 ELSE 0 END DESC, companies.updated_at DESC, companies.id DESC",
			Vars: []interface{}{f.FavoriteIDs},
		}})
	} else {
		q = q.Order("companies.updated_at DESC, companies.id DESC")
	}

	var companies []domain.Company
	err := q.Limit(f.PageSize).Offset((page.Page - 1) * f.PageSize).Find(&companies).Error
	if err != nil {
		return nil, err
	}

	favorites := make(map[int64]struct{}, len(f.FavoriteIDs))
	for _, id := range f.FavoriteIDs {
		favorites[id] = struct{}{}
	}
	for i := range companies {
		_, companies[i].IsFavorite = favorites[companies[i].ID]
	}
	page.Companies = companies
	return page, nil
}

// filtered builds the joined and filtered base query shared by the count
// and the page select. Child matches use EXISTS so a company is never
// repeated.
func (r *CompanyRepository) filtered(ctx context.Context, f CompanyFilter) *gorm.DB {
	q := r.db.WithContext(ctx).Model(&domain.Company{}).
		Joins("LEFT JOIN cities ON cities.id = companies.city_id").
		Joins("LEFT JOIN categories ON categories.id = companies.category_id").
		Joins("LEFT JOIN statuses ON statuses.id = companies.status_id")

	if f.CountryID != nil {
		q = q.Where("cities.country_id = ?", *f.CountryID)
	}

	if s := strings.TrimSpace(f.Search); s != "" {
		pattern := "%" + likeEscaper.Replace(strings.ToLower(s)) + "%"
		q = q.Where(searchSQL, sql.Named("p", pattern))
	}

	if len(f.Statuses) > 0 {
		q = q.Where("statuses.name IN ?", f.Statuses)
	}
	if len(f.Cities) > 0 {
		q = q.Where("cities.name IN ?", f.Cities)
	}
	if c := strings.TrimSpace(f.Category); c != "" {
		if id, err := strconv.ParseInt(c, 10, 64); err == nil {
			q = q.Where("companies.category_id = ?", id)
		} else {
			q = q.Where("categories.name = ?", c)
		}
	}

	now := f.Now
	if now.IsZero() {
		now = time.Now()
	}
	loc := f.Location
	if loc == nil {
		loc = time.UTC
	}
	b := bucketsFor(now, loc)

	switch f.DateUpdated {
	case UpdatedToday:
		q = q.Where("companies.updated_at >= ? AND companies.updated_at < ?", b.todayStart, b.tomorrowStart)
	case UpdatedYesterday:
		q = q.Where("companies.updated_at >= ? AND companies.updated_at < ?", b.yesterdayStart, b.todayStart)
	case UpdatedThisWeek:
		q = q.Where("companies.updated_at >= ?", b.weekStart)
	case UpdatedThisMonth:
		q = q.Where("companies.updated_at >= ? AND companies.updated_at < ?", b.monthStart, b.nextMonthStart)
	}

	switch f.CallDate {
	case CallOverdue:
		q = q.Where("companies.call_date < ?", b.today)
	case CallToday:
		q = q.Where("companies.call_date = ?", b.today)
	case CallThisWeek:
		q = q.Where("companies.call_date >= ? AND companies.call_date <= ?", b.today, b.weekEnd)
	}

	return q
}

// buckets holds the date boundaries of one request. Timestamps are UTC
// instants of local midnights; dates are calendar days.
type buckets struct {
	todayStart     time.Time
	tomorrowStart  time.Time
	yesterdayStart time.Time
	weekStart      time.Time
	monthStart     time.Time
	nextMonthStart time.Time

	today   datatypes.Date
	weekEnd datatypes.Date
}

// bucketsFor computes the boundaries relative to "today" in loc. Weeks
// start on Monday.
func bucketsFor(now time.Time, loc *time.Location) buckets {
	local := now.In(loc)
	y, m, d := local.Date()
	start := time.Date(y, m, d, 0, 0, 0, 0, loc)
	sinceMonday := (int(start.Weekday()) + 6) % 7
	first := time.Date(y, m, 1, 0, 0, 0, 0, loc)

	return buckets{
		todayStart:     start.UTC(),
		tomorrowStart:  start.AddDate(0, 0, 1).UTC(),
		yesterdayStart: start.AddDate(0, 0, -1).UTC(),
		weekStart:      start.AddDate(0, 0, -sinceMonday).UTC(),
		monthStart:     first.UTC(),
		nextMonthStart: first.AddDate(0, 1, 0).UTC(),

		today:   datatypes.Date(time.Date(y, m, d, 0, 0, 0, 0, time.UTC)),
		weekEnd: datatypes.Date(time.Date(y, m, d+6-sinceMonday, 0, 0, 0, 0, time.UTC)),
	}
}

// CountCreatedSince counts every company created at or after t, ignoring filters.
func (r *CompanyRepository) CountCreatedSince(ctx context.Context, t time.Time) (int64, error) {
	var n int64
	err := r.db.WithContext(ctx).Model(&domain.Company{}).
		Where("created_at >= ?", t.UTC()).
		Count(&n).Error
	return n, err
}
