package seed

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/example/storefront/pkg/auth"
	"github.com/example/storefront/pkg/models"
	"github.com/example/storefront/pkg/service"
	"github.com/example/storefront/pkg/testutil"
)

func newSeeder(t *testing.T) *Seeder {
	t.Helper()
	db := testutil.NewDB(t)
	logger := zap.NewNop()
	tokens := auth.NewTokenIssuer("secret", "1h")
	return NewSeeder(db,
		auth.NewSessionService(db, tokens, "bot", nil, logger),
		service.NewAdminService(db, nil, nil, logger),
		logger)
}

func TestSampleProductsAreValid(t *testing.T) {
	for _, in := range SampleProducts() {
		in := in
		assert.NoError(t, in.Validate(), in.DisplayName)
	}
}

func TestRun(t *testing.T) {
	s := newSeeder(t)
	ctx := context.Background()

	res, err := s.Run(ctx, []int64{10, 11}, false)
	require.NoError(t, err)
	assert.Equal(t, 2, res.Admins)
	assert.Equal(t, len(SampleProducts()), res.Products)

	var admins int64
	require.NoError(t, s.db.Model(&models.User{}).Where("role = ?", models.RoleAdmin).Count(&admins).Error)
	assert.Equal(t, int64(2), admins)

	// A second run keeps the existing catalog.
	res, err = s.Run(ctx, []int64{10}, false)
	require.NoError(t, err)
	assert.Zero(t, res.Products)

	res, err = s.Run(ctx, nil, true)
	require.NoError(t, err)
	assert.Equal(t, len(SampleProducts()), res.Products)

	var products int64
	require.NoError(t, s.db.Model(&models.Product{}).Count(&products).Error)
	assert.Equal(t, int64(2*len(SampleProducts())), products)
}
