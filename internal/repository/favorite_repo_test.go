package repository_test

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"crmnice/internal/domain"
)

func TestFavoriteToggle_RoundTrip(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	c := f.company(t, "Acme", &f.kyiv, nil, "1")
	user := &domain.User{Username: "anna", PasswordHash: "x", IsActive: true}
	require.NoError(t, f.db.Create(user).Error)

	res, err := f.favorites.Toggle(ctx, user.ID, c.ID)
	require.NoError(t, err)
	assert.Equal(t, domain.FavoriteAdded, res)

	ok, err := f.favorites.Exists(ctx, user.ID, c.ID)
	require.NoError(t, err)
	assert.True(t, ok)

	ids, err := f.favorites.CompanyIDs(ctx, user.ID)
	require.NoError(t, err)
	assert.Equal(t, []int64{c.ID}, ids)

	res, err = f.favorites.Toggle(ctx, user.ID, c.ID)
	require.NoError(t, err)
	assert.Equal(t, domain.FavoriteRemoved, res)

	ok, err = f.favorites.Exists(ctx, user.ID, c.ID)
	require.NoError(t, err)
	assert.False(t, ok)
}

func TestFavoriteListByUser_CountryScope(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	kyiv := f.company(t, "Kyiv Co", &f.kyiv, nil, "1")
	warsaw := f.company(t, "Warsaw Co", &f.warsaw, nil, "2")
	user := &domain.User{Username: "anna", PasswordHash: "x", IsActive: true}
	require.NoError(t, f.db.Create(user).Error)

	for _, c := range []*domain.Company{kyiv, warsaw} {
		_, err := f.favorites.Toggle(ctx, user.ID, c.ID)
		require.NoError(t, err)
	}

	all, err := f.favorites.ListByUser(ctx, user.ID, nil)
	require.NoError(t, err)
	require.Len(t, all, 2)
	for _, fav := range all {
		require.NotNil(t, fav.Company)
		require.NotEmpty(t, fav.Company.Phones)
	}

	scoped, err := f.favorites.ListByUser(ctx, user.ID, &f.pl.ID)
	require.NoError(t, err)
	require.Len(t, scoped, 1)
	assert.Equal(t, "Warsaw Co", scoped[0].Company.Name)
	require.NotNil(t, scoped[0].Company.City)
	assert.Equal(t, "Warsaw", scoped[0].Company.City.Name)

	other, err := f.favorites.ListByUser(ctx, user.ID+100, nil)
	require.NoError(t, err)
	assert.Empty(t, other)
}
