package company

import (
	"context"
	"errors"
	"fmt"
	"mime/multipart"
	"strconv"
	"strings"
	"time"
	"unicode/utf8"

	"go.uber.org/zap"
	"gorm.io/datatypes"

	"crmnice/internal/domain"
	"crmnice/internal/pkg/logger"
	"crmnice/internal/pkg/sanitize"
	"crmnice/internal/pkg/storage"
	"crmnice/internal/pkg/validator"
	"crmnice/internal/repository"
)

const (
	dateLayout = "2006-01-02"

	maxPhoneLen        = 32
	maxAddressLen      = 500
	maxShortComment    = 500
	newCompaniesWindow = 30 * 24 * time.Hour
)

type Service struct {
	companies CompanyRepository
	refs      ReferenceReader
	favorites FavoriteReader
	files     FileStore

	loc      *time.Location
	pageSize int
	now      func() time.Time
}

func NewService(
	companies CompanyRepository,
	refs ReferenceReader,
	favorites FavoriteReader,
	files FileStore,
	loc *time.Location,
	pageSize int,
) *Service {
	if loc == nil {
		loc = time.UTC
	}
	if pageSize <= 0 {
		pageSize = repository.DefaultPageSize
	}
	return &Service{
		companies: companies,
		refs:      refs,
		favorites: favorites,
		files:     files,
		loc:       loc,
		pageSize:  pageSize,
		now:       time.Now,
	}
}

func (s *Service) Location() *time.Location { return s.loc }

/* ---------- READ ---------- */

func (s *Service) List(ctx context.Context, viewer *domain.Identity, q ListQuery) (*ListView, error) {
	var favIDs []int64
	if viewer != nil {
		ids, err := s.favorites.CompanyIDs(ctx, viewer.UserID)
		if err != nil {
			return nil, fmt.Errorf("load favorites: %w", err)
		}
		favIDs = ids
	}

	now := s.now()
	page, err := s.companies.List(ctx, repository.CompanyFilter{
		Search:      q.Search,
		Statuses:    nonEmpty(q.Statuses),
		Cities:      nonEmpty(q.Cities),
		Category:    q.Category,
		DateUpdated: q.DateUpdated,
		CallDate:    q.CallDate,
		CountryID:   countryOf(viewer),
		FavoriteIDs: favIDs,
		Page:        q.Page,
		PageSize:    s.pageSize,
		Now:         now,
		Location:    s.loc,
	})
	if err != nil {
		return nil, fmt.Errorf("list companies: %w", err)
	}

	newCount, err := s.companies.CountCreatedSince(ctx, now.Add(-newCompaniesWindow))
	if err != nil {
		return nil, err
	}
	statuses, err := s.refs.AllStatuses(ctx)
	if err != nil {
		return nil, err
	}
	cities, err := s.refs.AllCities(ctx)
	if err != nil {
		return nil, err
	}
	categories, err := s.refs.AllCategories(ctx)
	if err != nil {
		return nil, err
	}

	if favIDs == nil {
		favIDs = []int64{}
	}
	return &ListView{
		CompanyPage:    page,
		NewCount:       newCount,
		AllStatuses:    statuses,
		AllCities:      cities,
		AllCategories:  categories,
		FavoriteIDs:    favIDs,
		Search:         strings.TrimSpace(q.Search),
		SelStatuses:    q.Statuses,
		SelCities:      q.Cities,
		SelCategory:    q.Category,
		SelDateUpdated: q.DateUpdated,
		SelCallDate:    q.CallDate,
	}, nil
}

func (s *Service) Get(ctx context.Context, id int64) (*domain.Company, error) {
	c, err := s.companies.GetByID(ctx, id)
	if errors.Is(err, repository.ErrNotFound) {
		return nil, ErrNotFound
	}
	return c, err
}

func (s *Service) Detail(ctx context.Context, viewer *domain.Identity, id int64) (*DetailView, error) {
	c, err := s.Get(ctx, id)
	if err != nil {
		return nil, err
	}
	if viewer != nil {
		if c.IsFavorite, err = s.favorites.Exists(ctx, viewer.UserID, c.ID); err != nil {
			return nil, err
		}
	}
	return &DetailView{Company: c, DescriptionHTML: sanitize.HTML(c.FullDescription)}, nil
}

// FormOptions lists the choices of the company form. A viewer bound to a
// country only sees that country's cities.
func (s *Service) FormOptions(ctx context.Context, viewer *domain.Identity) (*FormOptions, error) {
	var (
		cities []domain.City
		err    error
	)
	if cid := countryOf(viewer); cid != nil {
		cities, err = s.refs.CitiesByCountry(ctx, *cid)
	} else {
		cities, err = s.refs.AllCities(ctx)
	}
	if err != nil {
		return nil, err
	}
	categories, err := s.refs.AllCategories(ctx)
	if err != nil {
		return nil, err
	}
	statuses, err := s.refs.AllStatuses(ctx)
	if err != nil {
		return nil, err
	}
	countries, err := s.refs.AllCountries(ctx)
	if err != nil {
		return nil, err
	}
	return &FormOptions{
		Cities:      cities,
		Categories:  categories,
		Statuses:    statuses,
		Countries:   countries,
		UserCountry: countryOf(viewer),
	}, nil
}

// NewForm is the empty create form with the default status preselected.
func (s *Service) NewForm(ctx context.Context) (CompanyForm, error) {
	var f CompanyForm
	def, err := s.refs.DefaultStatus(ctx)
	if err != nil {
		return f, err
	}
	if def != nil {
		f.Status = strconv.FormatInt(def.ID, 10)
	}
	return f, nil
}

/* ---------- WRITE ---------- */

// prepared is a fully validated form, ready to be written.
type prepared struct {
	company          domain.Company
	phones           []domain.CompanyPhone
	addresses        []domain.CompanyAddress
	replaceAddresses bool
}

// prepare validates the whole form before anything is written.
func (s *Service) prepare(ctx context.Context, viewer *domain.Identity, f *CompanyForm) (*prepared, error) {
	f.trim()
	if fields := validator.Validate(f); fields != nil {
		return nil, &ValidationError{Message: "Please correct the errors in the form.", Fields: fields}
	}

	p := &prepared{company: domain.Company{
		Name:            f.Name,
		Telegram:        f.Telegram,
		Website:         f.Website,
		Instagram:       f.Instagram,
		ShortComment:    f.ShortComment,
		FullDescription: f.FullDescription,
		Keywords:        f.Keywords,
	}}

	if f.CallDate != "" {
		d, err := time.ParseInLocation(dateLayout, f.CallDate, time.UTC)
		if err != nil {
			return nil, fieldError("call_date", "Enter a valid date.")
		}
		date := datatypes.Date(d)
		p.company.CallDate = &date
	}

	if f.City != "" {
		id, err := strconv.ParseInt(f.City, 10, 64)
		if err != nil {
			return nil, fieldError("city", "Select a valid choice.")
		}
		city, err := s.refs.GetCity(ctx, id)
		if errors.Is(err, repository.ErrNotFound) {
			return nil, fieldError("city", "Select a valid choice.")
		}
		if err != nil {
			return nil, err
		}
		if cid := countryOf(viewer); cid != nil && city.CountryID != *cid {
			return nil, &ValidationError{
				Message: ErrCityOutOfScope.Error(),
				Fields:  map[string]string{"city": ErrCityOutOfScope.Error()},
			}
		}
		p.company.CityID = &city.ID
	}

	if f.Category != "" {
		id, err := strconv.ParseInt(f.Category, 10, 64)
		if err != nil {
			return nil, fieldError("category", "Select a valid choice.")
		}
		cat, err := s.refs.GetCategory(ctx, id)
		if errors.Is(err, repository.ErrNotFound) {
			return nil, fieldError("category", "Select a valid choice.")
		}
		if err != nil {
			return nil, err
		}
		p.company.CategoryID = &cat.ID
	}

	if f.Status != "" {
		id, err := strconv.ParseInt(f.Status, 10, 64)
		if err != nil {
			return nil, fieldError("status", "Select a valid choice.")
		}
		st, err := s.refs.GetStatus(ctx, id)
		if errors.Is(err, repository.ErrNotFound) {
			return nil, fieldError("status", "Select a valid choice.")
		}
		if err != nil {
			return nil, err
		}
		p.company.StatusID = &st.ID
	}

	p.phones = buildPhones(f.Phones, f.ContactNames, f.FavoritePhone)
	if len(p.phones) == 0 {
		return nil, ErrNoPhones
	}
	for _, ph := range p.phones {
		if utf8.RuneCountInString(ph.Number) > maxPhoneLen {
			return nil, fieldError("phones", fmt.Sprintf("Phone %q is longer than %d characters.", ph.Number, maxPhoneLen))
		}
	}

	if f.AddressesSubmitted {
		p.replaceAddresses = true
		p.addresses = buildAddresses(f.Addresses, f.FavoriteAddress)
		for _, a := range p.addresses {
			if utf8.RuneCountInString(a.Address) > maxAddressLen {
				return nil, fieldError("addresses", fmt.Sprintf("An address is longer than %d characters.", maxAddressLen))
			}
		}
	}

	for _, fh := range f.Photos {
		if err := storage.ValidateImage(fh); err != nil {
			return nil, err
		}
	}
	if err := storage.ValidateImage(f.Logo); err != nil {
		return nil, err
	}
	return p, nil
}

func fieldError(field, msg string) error {
	return &ValidationError{Message: msg, Fields: map[string]string{field: msg}}
}

// buildPhones keeps the non-blank numbers, pairs each with the contact name
// submitted in the same row and marks exactly one favorite: the chosen row
// if it survived, otherwise the first.
func buildPhones(numbers, names []string, favorite string) []domain.CompanyPhone {
	fav := rowIndex(favorite)
	var out []domain.CompanyPhone
	marked := false
	for i, raw := range numbers {
		n := strings.TrimSpace(raw)
		if n == "" {
			continue
		}
		p := domain.CompanyPhone{Number: n}
		if i < len(names) {
			p.ContactName = strings.TrimSpace(names[i])
		}
		if i == fav {
			p.IsFavorite = true
			marked = true
		}
		out = append(out, p)
	}
	if !marked && len(out) > 0 {
		out[0].IsFavorite = true
	}
	return out
}

func buildAddresses(values []string, favorite string) []domain.CompanyAddress {
	fav := rowIndex(favorite)
	var out []domain.CompanyAddress
	marked := false
	for i, raw := range values {
		a := strings.TrimSpace(raw)
		if a == "" {
			continue
		}
		out = append(out, domain.CompanyAddress{Address: a, IsFavorite: i == fav})
		if i == fav {
			marked = true
		}
	}
	if !marked && len(out) > 0 {
		out[0].IsFavorite = true
	}
	return out
}

func rowIndex(s string) int {
	i, err := strconv.Atoi(strings.TrimSpace(s))
	if err != nil || i < 0 {
		return -1
	}
	return i
}

// Create validates the form, then writes the company, its children and its
// files in one transaction. Files written before a failed commit are removed.
func (s *Service) Create(ctx context.Context, viewer *domain.Identity, f *CompanyForm) (*domain.Company, error) {
	p, err := s.prepare(ctx, viewer, f)
	if err != nil {
		return nil, err
	}

	c := &p.company
	var written []string
	err = s.companies.Transaction(ctx, func(tx *repository.CompanyRepository) error {
		if err := tx.Create(ctx, c); err != nil {
			return err
		}
		if err := s.writeChildren(ctx, tx, c.ID, p); err != nil {
			return err
		}
		return s.writeFiles(ctx, tx, c, f, &written)
	})
	if err != nil {
		s.discard(written)
		return nil, err
	}
	return c, nil
}

// Update rewrites the company from the form. New photos are appended; a new
// logo replaces the old one, whose file is removed after commit.
func (s *Service) Update(ctx context.Context, viewer *domain.Identity, id int64, f *CompanyForm) (*domain.Company, error) {
	existing, err := s.companies.GetPlain(ctx, id)
	if errors.Is(err, repository.ErrNotFound) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, err
	}

	p, err := s.prepare(ctx, viewer, f)
	if err != nil {
		return nil, err
	}

	c := &p.company
	c.ID = existing.ID
	c.ClientID = existing.ClientID
	c.CreatedAt = existing.CreatedAt

	var (
		written []string
		oldLogo string
	)
	err = s.companies.Transaction(ctx, func(tx *repository.CompanyRepository) error {
		// photos and logo are re-read under the lock so concurrent uploads append
		media, err := tx.LockMedia(ctx, c.ID)
		if err != nil {
			return err
		}
		c.Logo, c.Photos = media.Logo, media.Photos
		oldLogo = media.Logo

		if err := tx.UpdateScalars(ctx, c); err != nil {
			return err
		}
		if err := s.writeChildren(ctx, tx, c.ID, p); err != nil {
			return err
		}
		return s.writeFiles(ctx, tx, c, f, &written)
	})
	if err != nil {
		s.discard(written)
		if errors.Is(err, repository.ErrNotFound) {
			return nil, ErrNotFound
		}
		return nil, err
	}

	if f.Logo != nil && oldLogo != "" && oldLogo != c.Logo {
		s.removeFile(oldLogo)
	}
	return c, nil
}

func (s *Service) writeChildren(ctx context.Context, tx *repository.CompanyRepository, companyID int64, p *prepared) error {
	if err := tx.ReplacePhones(ctx, companyID, p.phones); err != nil {
		return fmt.Errorf("save phones: %w", err)
	}
	if p.replaceAddresses {
		if err := tx.ReplaceAddresses(ctx, companyID, p.addresses); err != nil {
			return fmt.Errorf("save addresses: %w", err)
		}
	}
	return nil
}

// writeFiles stores the uploads and records their URLs on the company.
// Every written URL is appended to written so the caller can undo them.
func (s *Service) writeFiles(ctx context.Context, tx *repository.CompanyRepository, c *domain.Company, f *CompanyForm, written *[]string) error {
	stamp := s.now().Unix()

	if len(f.Photos) > 0 {
		photos := append([]string{}, c.Photos...)
		for _, fh := range f.Photos {
			name := fmt.Sprintf("companies/photos/%d_%d_%d%s", c.ID, stamp, len(photos), storage.Ext(fh.Filename))
			url, err := s.saveFile(name, fh)
			if err != nil {
				return err
			}
			*written = append(*written, url)
			photos = append(photos, url)
		}
		if err := tx.SetPhotos(ctx, c.ID, photos); err != nil {
			return err
		}
		c.Photos = photos
	}

	if f.Logo != nil {
		name := fmt.Sprintf("companies/logos/%d_%d%s", c.ID, stamp, storage.Ext(f.Logo.Filename))
		url, err := s.saveFile(name, f.Logo)
		if err != nil {
			return err
		}
		*written = append(*written, url)
		if err := tx.SetLogo(ctx, c.ID, url); err != nil {
			return err
		}
		c.Logo = url
	}
	return nil
}

func (s *Service) saveFile(name string, fh *multipart.FileHeader) (string, error) {
	url, err := s.files.Save(name, fh)
	if err != nil {
		return "", &storage.FileError{Name: fh.Filename, Err: err}
	}
	return url, nil
}

func (s *Service) discard(urls []string) {
	for _, u := range urls {
		s.removeFile(u)
	}
}

// removeFile deletes a stored file. Failures leave an orphan, which is
// logged and otherwise ignored.
func (s *Service) removeFile(url string) {
	if url == "" {
		return
	}
	if err := s.files.Delete(url); err != nil {
		logger.Warn("failed to remove stored file", zap.String("url", url), zap.Error(err))
	}
}

// Delete removes the company and everything attached to it, then its files.
func (s *Service) Delete(ctx context.Context, id int64) (*domain.Company, error) {
	c, err := s.companies.GetPlain(ctx, id)
	if errors.Is(err, repository.ErrNotFound) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, err
	}
	if err := s.companies.Delete(ctx, id); err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return nil, ErrNotFound
		}
		return nil, err
	}
	s.discard(c.Photos)
	s.removeFile(c.Logo)
	return c, nil
}

/* ---------- PHOTOS / LOGO ---------- */

// RemovePhoto drops the URL from the photo list if present.
func (s *Service) RemovePhoto(ctx context.Context, id int64, url string) error {
	url = strings.TrimSpace(url)
	removed := false
	err := s.companies.Transaction(ctx, func(tx *repository.CompanyRepository) error {
		c, err := tx.LockMedia(ctx, id)
		if err != nil {
			return err
		}
		if url == "" {
			return nil
		}
		kept := make([]string, 0, len(c.Photos))
		for _, p := range c.Photos {
			if p == url && !removed {
				removed = true
				continue
			}
			kept = append(kept, p)
		}
		if !removed {
			return nil
		}
		return tx.SetPhotos(ctx, id, kept)
	})
	if errors.Is(err, repository.ErrNotFound) {
		return ErrNotFound
	}
	if err != nil {
		return err
	}
	if removed {
		s.removeFile(url)
	}
	return nil
}

func (s *Service) RemoveLogo(ctx context.Context, id int64) error {
	var logo string
	err := s.companies.Transaction(ctx, func(tx *repository.CompanyRepository) error {
		c, err := tx.LockMedia(ctx, id)
		if err != nil {
			return err
		}
		if c.Logo == "" {
			return nil
		}
		logo = c.Logo
		return tx.SetLogo(ctx, id, "")
	})
	if errors.Is(err, repository.ErrNotFound) {
		return ErrNotFound
	}
	if err != nil {
		return err
	}
	s.removeFile(logo)
	return nil
}

/* ---------- INLINE ---------- */

func (s *Service) UpdateShortComment(ctx context.Context, id int64, text string) error {
	text = strings.TrimSpace(text)
	if utf8.RuneCountInString(text) > maxShortComment {
		return ErrCommentTooLong
	}
	if _, err := s.companies.GetPlain(ctx, id); err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return ErrNotFound
		}
		return err
	}
	return s.companies.SetShortComment(ctx, id, text)
}

// UpdateCallDate sets the call date from YYYY-MM-DD; an empty value clears it.
func (s *Service) UpdateCallDate(ctx context.Context, id int64, raw string) (*domain.Company, error) {
	if _, err := s.companies.GetPlain(ctx, id); err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return nil, ErrNotFound
		}
		return nil, err
	}

	var date *time.Time
	if raw = strings.TrimSpace(raw); raw != "" {
		d, err := time.ParseInLocation(dateLayout, raw, time.UTC)
		if err != nil {
			return nil, ErrBadDate
		}
		date = &d
	}
	if err := s.companies.SetCallDate(ctx, id, date); err != nil {
		return nil, err
	}
	return s.companies.GetPlain(ctx, id)
}

/* ---------- COMMENTS ---------- */

// AddComment stores the comment under the viewer's display name and returns
// the company's comments, newest first.
func (s *Service) AddComment(ctx context.Context, viewer *domain.Identity, id int64, text string) ([]domain.CompanyComment, error) {
	text = strings.TrimSpace(text)
	if text == "" {
		return nil, ErrEmptyComment
	}
	if _, err := s.companies.GetPlain(ctx, id); err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return nil, ErrNotFound
		}
		return nil, err
	}

	author := ""
	if viewer != nil {
		author = viewer.DisplayName
		if author == "" {
			author = viewer.Username
		}
	}
	if err := s.companies.AddComment(ctx, &domain.CompanyComment{
		CompanyID:  id,
		AuthorName: author,
		Text:       text,
	}); err != nil {
		return nil, err
	}
	return s.companies.ListComments(ctx, id)
}

func (s *Service) DeleteComment(ctx context.Context, id, commentID int64) error {
	if _, err := s.companies.GetPlain(ctx, id); err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return ErrNotFound
		}
		return err
	}
	err := s.companies.DeleteComment(ctx, id, commentID)
	if errors.Is(err, repository.ErrNotFound) {
		return ErrCommentNotFound
	}
	return err
}

/* ---------- DUPLICATES ---------- */

// CheckDuplicates reports, for every non-empty field of q, whether another
// company already uses the value.
func (s *Service) CheckDuplicates(ctx context.Context, q DuplicateQuery) (map[string]Duplicate, error) {
	out := make(map[string]Duplicate)

	if phone := strings.TrimSpace(q.Phone); phone != "" {
		c, err := s.companies.FindByPhone(ctx, phone, q.ExcludeID)
		if err != nil {
			return nil, err
		}
		out["phone"] = duplicateOf(c)
	}

	fields := []struct {
		key   string
		field repository.DuplicateField
		value string
	}{
		{"website", repository.DupWebsite, q.Website},
		{"instagram", repository.DupInstagram, q.Instagram},
		{"telegram", repository.DupTelegram, q.Telegram},
	}
	for _, f := range fields {
		v := strings.TrimSpace(f.value)
		if v == "" {
			continue
		}
		c, err := s.companies.FindByField(ctx, f.field, v, q.ExcludeID)
		if err != nil {
			return nil, err
		}
		out[f.key] = duplicateOf(c)
	}
	return out, nil
}

func duplicateOf(c *domain.Company) Duplicate {
	if c == nil {
		return Duplicate{}
	}
	return Duplicate{Exists: true, Company: c.Name}
}

func countryOf(viewer *domain.Identity) *int64 {
	if viewer == nil {
		return nil
	}
	return viewer.CountryID
}

func nonEmpty(values []string) []string {
	var out []string
	for _, v := range values {
		if v = strings.TrimSpace(v); v != "" {
			out = append(out, v)
		}
	}
	return out
}
