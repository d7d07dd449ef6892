package shops

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/angelmondragon/distribridge/pkg/db"
	"github.com/angelmondragon/distribridge/pkg/db/dbtest"
	"github.com/angelmondragon/distribridge/pkg/db/models"
)

func TestRepositoryUpsertRefreshesExistingShop(t *testing.T) {
	ctx := context.Background()
	repo := NewRepository(dbtest.Open(t))

	require.NoError(t, repo.Upsert(ctx, &models.Shop{Domain: "demo.myshopify.com", AccessToken: "one", City: "Wien"}))
	require.NoError(t, repo.Upsert(ctx, &models.Shop{Domain: "demo.myshopify.com", AccessToken: "two", City: "Graz"}))

	shop, err := repo.FindByDomain(ctx, "demo.myshopify.com")
	require.NoError(t, err)
	assert.Equal(t, "two", shop.AccessToken)
	assert.Equal(t, "Graz", shop.City)

	all, err := repo.ListActive(ctx)
	require.NoError(t, err)
	assert.Len(t, all, 1)
}

func TestRepositoryListActiveSkipsUninstalled(t *testing.T) {
	ctx := context.Background()
	repo := NewRepository(dbtest.Open(t))

	require.NoError(t, repo.Upsert(ctx, &models.Shop{Domain: "b.myshopify.com", AccessToken: "b"}))
	require.NoError(t, repo.Upsert(ctx, &models.Shop{Domain: "a.myshopify.com", AccessToken: "a"}))
	require.NoError(t, repo.Upsert(ctx, &models.Shop{Domain: "c.myshopify.com", AccessToken: "c"}))
	require.NoError(t, repo.MarkUninstalled(ctx, "c.myshopify.com", time.Now().UTC()))

	all, err := repo.ListActive(ctx)
	require.NoError(t, err)
	require.Len(t, all, 2)
	assert.Equal(t, "a.myshopify.com", all[0].Domain)
	assert.Equal(t, "b.myshopify.com", all[1].Domain)
}

func TestRepositorySetDefaultLocation(t *testing.T) {
	ctx := context.Background()
	repo := NewRepository(dbtest.Open(t))
	require.NoError(t, repo.Upsert(ctx, &models.Shop{Domain: "demo.myshopify.com", AccessToken: "tok"}))

	require.NoError(t, repo.SetDefaultLocation(ctx, "demo.myshopify.com", "gid://shopify/Location/7"))

	shop, err := repo.FindByDomain(ctx, "demo.myshopify.com")
	require.NoError(t, err)
	require.NotNil(t, shop.DefaultLocationID)
	assert.Equal(t, "gid://shopify/Location/7", *shop.DefaultLocationID)
}

func TestRepositoryFindByDomainNotFound(t *testing.T) {
	repo := NewRepository(dbtest.Open(t))
	_, err := repo.FindByDomain(context.Background(), "missing.myshopify.com")
	assert.True(t, db.IsNotFound(err))
}
