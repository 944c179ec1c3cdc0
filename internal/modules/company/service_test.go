package company

import (
	"bytes"
	"context"
	"errors"
	"mime/multipart"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strconv"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"

	"crmnice/internal/database/dbtest"
	"crmnice/internal/domain"
	"crmnice/internal/pkg/storage"
	"crmnice/internal/repository"
)

type env struct {
	db      *gorm.DB
	svc     *Service
	repo    *repository.CompanyRepository
	media   *storage.Local
	dir     string
	ua, pl  domain.Country
	kyiv    domain.City
	warsaw  domain.City
	active  domain.Status
	manager *domain.Identity
}

func newEnv(t *testing.T) *env {
	t.Helper()
	db := dbtest.New(t)
	dir := t.TempDir()
	e := &env{
		db:    db,
		repo:  repository.NewCompanyRepository(db),
		media: storage.NewLocal(dir, "/media/"),
		dir:   dir,
		ua:    domain.Country{Name: "Ukraine", Code: "UA"},
		pl:    domain.Country{Name: "Poland", Code: "PL"},
	}
	require.NoError(t, db.Create(&e.ua).Error)
	require.NoError(t, db.Create(&e.pl).Error)
	e.kyiv = domain.City{Name: "Kyiv", CountryID: e.ua.ID}
	e.warsaw = domain.City{Name: "Warsaw", CountryID: e.pl.ID}
	e.active = domain.Status{Name: "Active", IsDefault: true}
	for _, v := range []interface{}{&e.kyiv, &e.warsaw, &e.active} {
		require.NoError(t, db.Create(v).Error)
	}

	user := &domain.User{Username: "anna", FirstName: "Anna", LastName: "K", PasswordHash: "x", IsActive: true}
	require.NoError(t, db.Create(user).Error)
	e.manager = &domain.Identity{UserID: user.ID, Username: "anna", DisplayName: "Anna K", Role: domain.RoleManager}

	e.svc = NewService(e.repo, repository.NewReferenceRepository(db), repository.NewFavoriteRepository(db), e.media, time.UTC, 0)
	return e
}

func (e *env) count(t *testing.T, model interface{}) int64 {
	t.Helper()
	var n int64
	require.NoError(t, e.db.Model(model).Count(&n).Error)
	return n
}

// upload builds a multipart file header the way a request parser would.
func upload(t *testing.T, field, name string, content []byte) *multipart.FileHeader {
	t.Helper()
	var buf bytes.Buffer
	w := multipart.NewWriter(&buf)
	part, err := w.CreateFormFile(field, name)
	require.NoError(t, err)
	_, err = part.Write(content)
	require.NoError(t, err)
	require.NoError(t, w.Close())

	req := httptest.NewRequest("POST", "/", &buf)
	req.Header.Set("Content-Type", w.FormDataContentType())
	require.NoError(t, req.ParseMultipartForm(32<<20))
	return req.MultipartForm.File[field][0]
}

func validForm() *CompanyForm {
	return &CompanyForm{
		Name:          "  Acme  ",
		Phones:        []string{" ", "+380501112233", "+380671112233"},
		ContactNames:  []string{"nobody", "Olga", "Ivan"},
		FavoritePhone: "2",
	}
}

func TestCreate_PhonesAndClientID(t *testing.T) {
	e := newEnv(t)
	ctx := context.Background()

	c, err := e.svc.Create(ctx, e.manager, validForm())
	require.NoError(t, err)
	assert.Equal(t, "#00001", c.ClientIDValue())
	assert.Equal(t, "Acme", c.Name)

	got, err := e.svc.Get(ctx, c.ID)
	require.NoError(t, err)
	require.Len(t, got.Phones, 2)
	assert.Equal(t, "+380671112233", got.Phones[0].Number)
	assert.Equal(t, "Ivan", got.Phones[0].ContactName)
	assert.True(t, got.Phones[0].IsFavorite)
	assert.Equal(t, "Olga", got.Phones[1].ContactName)
	assert.False(t, got.Phones[1].IsFavorite)
	assert.Empty(t, got.Addresses)
}

func TestBuildPhones_FavoriteFallsBackToFirst(t *testing.T) {
	tests := []struct {
		name     string
		favorite string
		want     int
	}{
		{"no choice", "", 0},
		{"blank row chosen", "0", 0},
		{"out of range", "9", 0},
		{"garbage", "x", 0},
		{"valid row", "2", 1},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			phones := buildPhones([]string{"", "111", "222"}, []string{"a"}, tt.favorite)
			require.Len(t, phones, 2)
			favorites := 0
			for i, p := range phones {
				if p.IsFavorite {
					favorites++
					assert.Equal(t, tt.want, i)
				}
				assert.Empty(t, p.ContactName, "names pair with the submitted row")
			}
			assert.Equal(t, 1, favorites)
		})
	}
}

func TestCreate_RejectsWithoutPhones(t *testing.T) {
	e := newEnv(t)
	f := validForm()
	f.Phones = []string{"", "   "}

	_, err := e.svc.Create(context.Background(), e.manager, f)
	assert.ErrorIs(t, err, ErrNoPhones)
	assert.Zero(t, e.count(t, &domain.Company{}))
	assert.Zero(t, e.count(t, &domain.CompanyPhone{}))
}

func TestCreate_ValidationErrors(t *testing.T) {
	e := newEnv(t)
	scoped := &domain.Identity{UserID: e.manager.UserID, Role: domain.RoleManager, CountryID: &e.ua.ID}

	tests := []struct {
		name   string
		viewer *domain.Identity
		mutate func(f *CompanyForm)
		field  string
	}{
		{"missing name", e.manager, func(f *CompanyForm) { f.Name = " " }, "name"},
		{"bad website", e.manager, func(f *CompanyForm) { f.Website = "not a url" }, "website"},
		{"bad call date", e.manager, func(f *CompanyForm) { f.CallDate = "31.12.2026" }, "call_date"},
		{"unknown city", e.manager, func(f *CompanyForm) { f.City = "999" }, "city"},
		{"foreign city", scoped, func(f *CompanyForm) { f.City = strconv.FormatInt(e.warsaw.ID, 10) }, "city"},
		{"unknown status", e.manager, func(f *CompanyForm) { f.Status = "abc" }, "status"},
		{"long phone", e.manager, func(f *CompanyForm) { f.Phones = []string{"+3805011122334455667788990011223344"} }, "phones"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			f := validForm()
			tt.mutate(f)
			_, err := e.svc.Create(context.Background(), tt.viewer, f)
			require.ErrorIs(t, err, ErrValidation)
			var verr *ValidationError
			require.ErrorAs(t, err, &verr)
			assert.Contains(t, verr.Fields, tt.field)
		})
	}
	assert.Zero(t, e.count(t, &domain.Company{}))
}

func TestCreate_ScopedViewerOwnCity(t *testing.T) {
	e := newEnv(t)
	scoped := &domain.Identity{UserID: e.manager.UserID, Role: domain.RoleManager, CountryID: &e.ua.ID}
	f := validForm()
	f.City = strconv.FormatInt(e.kyiv.ID, 10)
	f.CallDate = "2026-11-02"

	c, err := e.svc.Create(context.Background(), scoped, f)
	require.NoError(t, err)
	require.NotNil(t, c.CityID)
	assert.Equal(t, e.kyiv.ID, *c.CityID)
	require.NotNil(t, c.CallDateValue())
	assert.Equal(t, "2026-11-02", c.CallDateValue().Format(dateLayout))
}

func TestCreate_StoresPhotosAndLogo(t *testing.T) {
	e := newEnv(t)
	f := validForm()
	f.Photos = []*multipart.FileHeader{
		upload(t, "photos", "a.JPG", []byte("one")),
		upload(t, "photos", "b.png", []byte("two")),
	}
	f.Logo = upload(t, "logo", "logo.webp", []byte("logo"))

	c, err := e.svc.Create(context.Background(), e.manager, f)
	require.NoError(t, err)
	require.Len(t, c.Photos, 2)
	assert.Regexp(t, `^/media/companies/photos/\d+_\d+_0\.jpg$`, c.Photos[0])
	assert.Regexp(t, `^/media/companies/photos/\d+_\d+_1\.png$`, c.Photos[1])
	assert.Regexp(t, `^/media/companies/logos/\d+_\d+\.webp$`, c.Logo)

	stored, err := e.repo.GetPlain(context.Background(), c.ID)
	require.NoError(t, err)
	assert.Equal(t, []string(c.Photos), []string(stored.Photos))
	assert.Equal(t, c.Logo, stored.Logo)

	for _, u := range append([]string{c.Logo}, c.Photos...) {
		p, err := e.media.PathFor(u)
		require.NoError(t, err)
		assert.FileExists(t, p)
	}
}

func TestCreate_RejectsBadUploadBeforeWriting(t *testing.T) {
	e := newEnv(t)
	f := validForm()
	f.Photos = []*multipart.FileHeader{
		upload(t, "photos", "ok.jpg", []byte("one")),
		upload(t, "photos", "virus.exe", []byte("two")),
	}

	_, err := e.svc.Create(context.Background(), e.manager, f)
	var ferr *storage.FileError
	require.ErrorAs(t, err, &ferr)
	assert.Equal(t, "virus.exe", ferr.Name)
	assert.ErrorIs(t, err, storage.ErrInvalidExtension)

	assert.Zero(t, e.count(t, &domain.Company{}))
	_, statErr := os.Stat(filepath.Join(e.dir, "companies"))
	assert.True(t, os.IsNotExist(statErr), "nothing written to disk")
}

type mockFiles struct {
	mock.Mock
}

func (m *mockFiles) Save(name string, fh *multipart.FileHeader) (string, error) {
	args := m.Called(name, fh)
	return args.String(0), args.Error(1)
}

func (m *mockFiles) Delete(url string) error {
	args := m.Called(url)
	return args.Error(0)
}

func TestCreate_RollsBackAndRemovesWrittenFiles(t *testing.T) {
	e := newEnv(t)
	files := &mockFiles{}
	files.On("Save", mock.MatchedBy(func(name string) bool { return filepath.Ext(name) == ".jpg" }), mock.Anything).
		Return("/media/companies/photos/first.jpg", nil).Once()
	files.On("Save", mock.Anything, mock.Anything).Return("", errors.New("disk full")).Once()
	files.On("Delete", "/media/companies/photos/first.jpg").Return(errors.New("already gone")).Once()

	svc := NewService(e.repo, repository.NewReferenceRepository(e.db), repository.NewFavoriteRepository(e.db), files, time.UTC, 0)
	f := validForm()
	f.Photos = []*multipart.FileHeader{
		upload(t, "photos", "a.jpg", []byte("one")),
		upload(t, "photos", "b.png", []byte("two")),
	}

	_, err := svc.Create(context.Background(), e.manager, f)
	var ferr *storage.FileError
	require.ErrorAs(t, err, &ferr)
	assert.Equal(t, "b.png", ferr.Name)

	files.AssertExpectations(t)
	assert.Zero(t, e.count(t, &domain.Company{}))
	assert.Zero(t, e.count(t, &domain.CompanyPhone{}))
}

func TestUpdate_ReplacesLogoKeepsAddresses(t *testing.T) {
	e := newEnv(t)
	ctx := context.Background()

	f := validForm()
	f.AddressesSubmitted = true
	f.Addresses = []string{"Main st 1", "Side st 2"}
	f.FavoriteAddress = "1"
	f.Logo = upload(t, "logo", "old.png", []byte("old"))
	c, err := e.svc.Create(ctx, e.manager, f)
	require.NoError(t, err)
	oldLogo, err := e.media.PathFor(c.Logo)
	require.NoError(t, err)

	upd := validForm()
	upd.Name = "Acme 2"
	upd.Phones = []string{"+1"}
	upd.Logo = upload(t, "logo", "new.png", []byte("new"))
	upd.Photos = []*multipart.FileHeader{upload(t, "photos", "p.gif", []byte("p"))}
	updated, err := e.svc.Update(ctx, e.manager, c.ID, upd)
	require.NoError(t, err)
	assert.Equal(t, c.ClientIDValue(), updated.ClientIDValue())
	assert.NotEqual(t, c.Logo, updated.Logo)
	assert.NoFileExists(t, oldLogo)

	got, err := e.svc.Get(ctx, c.ID)
	require.NoError(t, err)
	assert.Equal(t, "Acme 2", got.Name)
	require.Len(t, got.Phones, 1)
	assert.True(t, got.Phones[0].IsFavorite)
	require.Len(t, got.Addresses, 2, "addresses untouched when not submitted")
	assert.Equal(t, "Side st 2", got.Addresses[0].Address)
	assert.True(t, got.Addresses[0].IsFavorite)
	require.Len(t, got.Photos, 1)

	// submitting an empty address list clears them
	cleared := validForm()
	cleared.AddressesSubmitted = true
	_, err = e.svc.Update(ctx, e.manager, c.ID, cleared)
	require.NoError(t, err)
	got, err = e.svc.Get(ctx, c.ID)
	require.NoError(t, err)
	assert.Empty(t, got.Addresses)
	assert.Len(t, got.Photos, 1, "photos are only appended")

	_, err = e.svc.Update(ctx, e.manager, 9999, validForm())
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestRemovePhotoAndLogo(t *testing.T) {
	e := newEnv(t)
	ctx := context.Background()
	f := validForm()
	f.Photos = []*multipart.FileHeader{
		upload(t, "photos", "a.jpg", []byte("a")),
		upload(t, "photos", "b.jpg", []byte("b")),
	}
	f.Logo = upload(t, "logo", "l.png", []byte("l"))
	c, err := e.svc.Create(ctx, e.manager, f)
	require.NoError(t, err)
	first, _ := e.media.PathFor(c.Photos[0])
	logo, _ := e.media.PathFor(c.Logo)

	require.NoError(t, e.svc.RemovePhoto(ctx, c.ID, c.Photos[0]))
	require.NoError(t, e.svc.RemovePhoto(ctx, c.ID, "/media/not-there.jpg"))
	got, err := e.repo.GetPlain(ctx, c.ID)
	require.NoError(t, err)
	assert.Equal(t, []string{c.Photos[1]}, []string(got.Photos))
	assert.NoFileExists(t, first)

	require.NoError(t, e.svc.RemoveLogo(ctx, c.ID))
	got, err = e.repo.GetPlain(ctx, c.ID)
	require.NoError(t, err)
	assert.Empty(t, got.Logo)
	assert.NoFileExists(t, logo)

	assert.ErrorIs(t, e.svc.RemoveLogo(ctx, 9999), ErrNotFound)
}

func TestUpdate_ConcurrentUploadsKeepEveryPhoto(t *testing.T) {
	e := newEnv(t)
	ctx := context.Background()
	c, err := e.svc.Create(ctx, e.manager, validForm())
	require.NoError(t, err)

	const uploads = 4
	var wg sync.WaitGroup
	errs := make([]error, uploads)
	for i := 0; i < uploads; i++ {
		f := validForm()
		f.Photos = []*multipart.FileHeader{upload(t, "photos", "p.jpg", []byte{byte(i)})}
		wg.Add(1)
		go func(i int, f *CompanyForm) {
			defer wg.Done()
			_, errs[i] = e.svc.Update(ctx, e.manager, c.ID, f)
		}(i, f)
	}
	wg.Wait()
	for _, err := range errs {
		require.NoError(t, err)
	}

	got, err := e.repo.GetPlain(ctx, c.ID)
	require.NoError(t, err)
	require.Len(t, got.Photos, uploads)
	for _, url := range got.Photos {
		p, err := e.media.PathFor(url)
		require.NoError(t, err)
		assert.FileExists(t, p)
	}
	assert.ErrorIs(t, e.svc.RemovePhoto(ctx, 9999, got.Photos[0]), ErrNotFound)
}

func TestDelete_RemovesFiles(t *testing.T) {
	e := newEnv(t)
	ctx := context.Background()
	f := validForm()
	f.Photos = []*multipart.FileHeader{upload(t, "photos", "a.jpg", []byte("a"))}
	c, err := e.svc.Create(ctx, e.manager, f)
	require.NoError(t, err)
	photo, _ := e.media.PathFor(c.Photos[0])

	deleted, err := e.svc.Delete(ctx, c.ID)
	require.NoError(t, err)
	assert.Equal(t, "Acme", deleted.Name)
	assert.NoFileExists(t, photo)
	assert.Zero(t, e.count(t, &domain.CompanyPhone{}))

	_, err = e.svc.Delete(ctx, c.ID)
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestInlineUpdates(t *testing.T) {
	e := newEnv(t)
	ctx := context.Background()
	c, err := e.svc.Create(ctx, e.manager, validForm())
	require.NoError(t, err)

	long := make([]rune, 501)
	for i := range long {
		long[i] = 'я'
	}
	assert.ErrorIs(t, e.svc.UpdateShortComment(ctx, c.ID, string(long)), ErrCommentTooLong)
	require.NoError(t, e.svc.UpdateShortComment(ctx, c.ID, string(long[:500])))
	assert.ErrorIs(t, e.svc.UpdateShortComment(ctx, 9999, "x"), ErrNotFound)

	got, err := e.svc.UpdateCallDate(ctx, c.ID, "2026-12-01")
	require.NoError(t, err)
	require.NotNil(t, got.CallDateValue())
	assert.Equal(t, "2026-12-01", got.CallDateValue().Format(dateLayout))

	_, err = e.svc.UpdateCallDate(ctx, c.ID, "01/12/2026")
	assert.ErrorIs(t, err, ErrBadDate)

	got, err = e.svc.UpdateCallDate(ctx, c.ID, "")
	require.NoError(t, err)
	assert.Nil(t, got.CallDate)
}

func TestComments(t *testing.T) {
	e := newEnv(t)
	ctx := context.Background()
	c, err := e.svc.Create(ctx, e.manager, validForm())
	require.NoError(t, err)

	_, err = e.svc.AddComment(ctx, e.manager, c.ID, "   ")
	assert.ErrorIs(t, err, ErrEmptyComment)

	comments, err := e.svc.AddComment(ctx, e.manager, c.ID, " first ")
	require.NoError(t, err)
	require.Len(t, comments, 1)
	assert.Equal(t, "Anna K", comments[0].AuthorName)
	assert.Equal(t, "first", comments[0].Text)

	assert.ErrorIs(t, e.svc.DeleteComment(ctx, c.ID, comments[0].ID+1), ErrCommentNotFound)
	require.NoError(t, e.svc.DeleteComment(ctx, c.ID, comments[0].ID))
}

func TestCheckDuplicates(t *testing.T) {
	e := newEnv(t)
	ctx := context.Background()
	f := validForm()
	f.Website = "https://acme.example"
	c, err := e.svc.Create(ctx, e.manager, f)
	require.NoError(t, err)

	dups, err := e.svc.CheckDuplicates(ctx, DuplicateQuery{
		Phone:    "+380501112233",
		Website:  "https://acme.example",
		Telegram: "@nobody",
	})
	require.NoError(t, err)
	assert.Equal(t, Duplicate{Exists: true, Company: "Acme"}, dups["phone"])
	assert.Equal(t, Duplicate{Exists: true, Company: "Acme"}, dups["website"])
	assert.Equal(t, Duplicate{}, dups["telegram"])
	assert.NotContains(t, dups, "instagram")

	dups, err = e.svc.CheckDuplicates(ctx, DuplicateQuery{Phone: "+380501112233", ExcludeID: c.ID})
	require.NoError(t, err)
	assert.False(t, dups["phone"].Exists)
}

func TestList_ViewerFavoritesAndNewCount(t *testing.T) {
	e := newEnv(t)
	ctx := context.Background()
	a, err := e.svc.Create(ctx, e.manager, validForm())
	require.NoError(t, err)
	bForm := validForm()
	bForm.Name = "Beta"
	_, err = e.svc.Create(ctx, e.manager, bForm)
	require.NoError(t, err)
	_, err = repository.NewFavoriteRepository(e.db).Toggle(ctx, e.manager.UserID, a.ID)
	require.NoError(t, err)

	view, err := e.svc.List(ctx, e.manager, ListQuery{})
	require.NoError(t, err)
	assert.Equal(t, int64(2), view.Total)
	assert.Equal(t, int64(2), view.NewCount)
	assert.Equal(t, []int64{a.ID}, view.FavoriteIDs)
	require.Len(t, view.Companies, 2)
	assert.Equal(t, "Acme", view.Companies[0].Name)
	assert.True(t, view.Companies[0].IsFavorite)
	assert.Len(t, view.AllStatuses, 1)
	assert.Len(t, view.AllCities, 2)
}

func TestNewForm_PreselectsDefaultStatus(t *testing.T) {
	e := newEnv(t)
	f, err := e.svc.NewForm(context.Background())
	require.NoError(t, err)
	assert.Equal(t, strconv.FormatInt(e.active.ID, 10), f.Status)
}

func TestDetail_SanitizesDescription(t *testing.T) {
	e := newEnv(t)
	f := validForm()
	f.FullDescription = `<p>Hello</p><script>alert(1)</script>`
	c, err := e.svc.Create(context.Background(), e.manager, f)
	require.NoError(t, err)

	view, err := e.svc.Detail(context.Background(), e.manager, c.ID)
	require.NoError(t, err)
	assert.Contains(t, view.DescriptionHTML, "<p>Hello</p>")
	assert.NotContains(t, view.DescriptionHTML, "script")
	assert.False(t, view.Company.IsFavorite)

	_, err = repository.NewFavoriteRepository(e.db).Toggle(context.Background(), e.manager.UserID, c.ID)
	require.NoError(t, err)
	view, err = e.svc.Detail(context.Background(), e.manager, c.ID)
	require.NoError(t, err)
	assert.True(t, view.Company.IsFavorite)

	_, err = e.svc.Detail(context.Background(), nil, 9999)
	assert.ErrorIs(t, err, ErrNotFound)
}
