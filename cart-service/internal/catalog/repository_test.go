package catalog

import (
	"context"
	"path/filepath"
	"testing"

	"github.com/Arish613/go-technician-sub001/cart-service/internal/domain"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func setupTestDB(t *testing.T) *Repository {
	repo, err := NewRepository(filepath.Join(t.TempDir(), "catalog.db"))
	require.NoError(t, err)
	t.Cleanup(func() { _ = repo.Close() })

	require.NoError(t, repo.RunMigrations())
	return repo
}

func TestRunMigrations_Idempotent(t *testing.T) {
	repo := setupTestDB(t)
	assert.NoError(t, repo.RunMigrations())
}

func TestListServices_Seeded(t *testing.T) {
	repo := setupTestDB(t)

	services, err := repo.ListServices(context.Background())
	require.NoError(t, err)
	require.Len(t, services, 6)

	assert.Equal(t, "ac-repair", services[0].ID)
	assert.Equal(t, "AC Repair", services[0].Name)
	assert.Equal(t, "499", services[0].UnitPrice.String())
	assert.Nil(t, services[0].DiscountedPrice)
	assert.Empty(t, services[0].ParentID)
}

func TestGetService_WithDiscount(t *testing.T) {
	repo := setupTestDB(t)

	s, err := repo.GetService(context.Background(), "ac-gas-refill")
	require.NoError(t, err)
	assert.Equal(t, "ac-repair", s.ParentID)
	assert.Equal(t, "2499", s.UnitPrice.String())
	require.NotNil(t, s.DiscountedPrice)
	assert.Equal(t, "1999", s.DiscountedPrice.String())
	assert.Equal(t, "1999", s.EffectivePrice().String())
}

func TestGetService_NotFound(t *testing.T) {
	repo := setupTestDB(t)

	s, err := repo.GetService(context.Background(), "nope")
	assert.ErrorIs(t, err, ErrServiceNotFound)
	assert.Nil(t, s)
}

func TestListSubServices(t *testing.T) {
	repo := setupTestDB(t)

	subs, err := repo.ListSubServices(context.Background(), "ac-repair")
	require.NoError(t, err)
	require.Len(t, subs, 2)
	assert.Equal(t, "ac-gas-refill", subs[0].ID)
	assert.Equal(t, "ac-service", subs[1].ID)

	none, err := repo.ListSubServices(context.Background(), "electrician-visit")
	require.NoError(t, err)
	assert.Empty(t, none)
}

func TestGetService_RejectsNegativePrice(t *testing.T) {
	repo := setupTestDB(t)
	ctx := context.Background()

	_, err := repo.db.ExecContext(ctx,
		`INSERT INTO services (id, name, unit_price) VALUES ('broken', 'Broken', '-10')`)
	require.NoError(t, err)

	_, err = repo.GetService(ctx, "broken")
	assert.ErrorIs(t, err, domain.ErrInvalidLineItem)
}

func TestContextCancellation(t *testing.T) {
	repo := setupTestDB(t)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err := repo.ListServices(ctx)
	assert.Error(t, err)
}
