package coupons

import (
	"context"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/angelmondragon/storefront-backend/pkg/db/dbtest"
	pkgerrors "github.com/angelmondragon/storefront-backend/pkg/errors"
)

func newService(t *testing.T) (Service, *Repository) {
	t.Helper()
	repo := NewRepository(dbtest.Open(t))
	svc, err := NewService(repo)
	require.NoError(t, err)
	return svc, repo
}

func TestCreateCouponNormalizesCode(t *testing.T) {
	svc, repo := newService(t)
	ctx := context.Background()

	created, err := svc.Create(ctx, CreateCouponInput{Code: " save20 ", DiscountPercent: 20, ExpiresAt: time.Now().Add(time.Hour)})
	require.NoError(t, err)
	assert.Equal(t, "SAVE20", created.Code)
	assert.True(t, created.Active)

	found, err := repo.FindByCode(ctx, "Save20")
	require.NoError(t, err)
	assert.Equal(t, created.ID, found.ID)

	_, err = svc.Create(ctx, CreateCouponInput{Code: "SAVE20", DiscountPercent: 5, ExpiresAt: time.Now().Add(time.Hour)})
	assert.True(t, pkgerrors.HasCode(err, pkgerrors.CodeConflict))
}

func TestCreateCouponValidation(t *testing.T) {
	svc, _ := newService(t)
	future := time.Now().Add(time.Hour)
	cases := []CreateCouponInput{
		{Code: "", DiscountPercent: 10, ExpiresAt: future},
		{Code: "A", DiscountPercent: 0, ExpiresAt: future},
		{Code: "A", DiscountPercent: 101, ExpiresAt: future},
		{Code: "A", DiscountPercent: 10, ExpiresAt: time.Now().Add(-time.Hour)},
	}
	for _, in := range cases {
		_, err := svc.Create(context.Background(), in)
		assert.True(t, pkgerrors.HasCode(err, pkgerrors.CodeValidation), "input %+v", in)
	}
}

func TestDeleteCoupon(t *testing.T) {
	svc, _ := newService(t)
	ctx := context.Background()
	created, err := svc.Create(ctx, CreateCouponInput{Code: "bye", DiscountPercent: 10, ExpiresAt: time.Now().Add(time.Hour)})
	require.NoError(t, err)

	require.NoError(t, svc.Delete(ctx, created.ID))
	assert.True(t, pkgerrors.HasCode(svc.Delete(ctx, created.ID), pkgerrors.CodeNotFound))
	_, err = svc.Get(ctx, created.ID)
	assert.True(t, pkgerrors.HasCode(err, pkgerrors.CodeNotFound))
	_, err = svc.Get(ctx, uuid.New())
	assert.True(t, pkgerrors.HasCode(err, pkgerrors.CodeNotFound))

	list, err := svc.List(ctx)
	require.NoError(t, err)
	assert.Empty(t, list)
}
