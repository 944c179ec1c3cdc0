package repository_test

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"crmnice/internal/database/dbtest"
	"crmnice/internal/domain"
	"crmnice/internal/repository"
)

func TestUserRepository_CreateAndUpdate(t *testing.T) {
	db := dbtest.New(t)
	repo := repository.NewUserRepository(db)
	ctx := context.Background()

	u := &domain.User{Username: "anna", Email: "  Anna@Example.COM ", PasswordHash: "h", IsActive: true}
	require.NoError(t, repo.CreateWithProfile(ctx, u, &domain.UserProfile{Role: domain.RoleObserver, Language: "en"}))
	assert.Equal(t, "anna@example.com", u.Email)

	got, err := repo.GetByUsername(ctx, "anna")
	require.NoError(t, err)
	require.NotNil(t, got.Profile)
	assert.Equal(t, domain.RoleObserver, got.Profile.Role)
	registered := got.Profile.RegisteredAt
	assert.False(t, registered.IsZero())

	exists, err := repo.ExistsByEmail(ctx, "ANNA@example.com", 0)
	require.NoError(t, err)
	assert.True(t, exists)
	exists, err = repo.ExistsByEmail(ctx, "anna@example.com", u.ID)
	require.NoError(t, err)
	assert.False(t, exists, "own email is not a conflict")

	u.FirstName = "Anna"
	u.IsActive = false
	require.NoError(t, repo.UpdateWithProfile(ctx, u, &domain.UserProfile{Role: domain.RoleSuperAdmin, Language: "ru"}))

	got, err = repo.GetByID(ctx, u.ID)
	require.NoError(t, err)
	assert.Equal(t, "Anna", got.FirstName)
	assert.False(t, got.IsActive)
	assert.Equal(t, domain.RoleSuperAdmin, got.Profile.Role)
	assert.True(t, registered.Equal(got.Profile.RegisteredAt), "registration date is kept")

	var profiles int64
	require.NoError(t, db.Model(&domain.UserProfile{}).Where("user_id = ?", u.ID).Count(&profiles).Error)
	assert.Equal(t, int64(1), profiles)

	n, err := repo.CountByRole(ctx, domain.RoleSuperAdmin)
	require.NoError(t, err)
	assert.Equal(t, int64(1), n)
}

func TestUserRepository_DuplicateUsername(t *testing.T) {
	db := dbtest.New(t)
	repo := repository.NewUserRepository(db)
	ctx := context.Background()

	require.NoError(t, repo.CreateWithProfile(ctx, &domain.User{Username: "anna", PasswordHash: "h"}, &domain.UserProfile{Role: domain.RoleManager}))
	err := repo.CreateWithProfile(ctx, &domain.User{Username: "anna", PasswordHash: "h"}, &domain.UserProfile{Role: domain.RoleManager})
	assert.ErrorIs(t, err, repository.ErrDuplicate)

	var users int64
	require.NoError(t, db.Model(&domain.User{}).Count(&users).Error)
	assert.Equal(t, int64(1), users)
}

func TestUserRepository_Delete(t *testing.T) {
	f := newFixture(t)
	repo := repository.NewUserRepository(f.db)
	ctx := context.Background()

	u := &domain.User{Username: "anna", PasswordHash: "h", IsActive: true}
	require.NoError(t, repo.CreateWithProfile(ctx, u, &domain.UserProfile{Role: domain.RoleManager}))
	c := f.company(t, "Acme", nil, nil, "1")
	_, err := f.favorites.Toggle(ctx, u.ID, c.ID)
	require.NoError(t, err)

	require.NoError(t, repo.UpdatePassword(ctx, u.ID, "new-hash"))
	require.NoError(t, repo.Delete(ctx, u.ID))

	_, err = repo.GetByID(ctx, u.ID)
	assert.ErrorIs(t, err, repository.ErrNotFound)
	ids, err := f.favorites.CompanyIDs(ctx, u.ID)
	require.NoError(t, err)
	assert.Empty(t, ids)
	assert.ErrorIs(t, repo.UpdatePassword(ctx, u.ID, "x"), repository.ErrNotFound)

	// the company itself is untouched
	_, err = f.companies.GetPlain(ctx, c.ID)
	assert.NoError(t, err)
}
