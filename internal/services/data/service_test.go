package data

import (
	"context"
	"testing"
	"time"

	"krostyshop/internal/domain/order"
	"krostyshop/internal/domain/user"
	"krostyshop/internal/services/svcerr"
	"krostyshop/internal/store/memory"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestListRequestValidate(t *testing.T) {
	cases := []struct {
		in, want ListRequest
	}{
		{ListRequest{}, ListRequest{Limit: 50}},
		{ListRequest{Limit: 500, Offset: -3}, ListRequest{Limit: 200}},
		{ListRequest{Limit: 10, Offset: 20}, ListRequest{Limit: 10, Offset: 20}},
	}
	for _, tc := range cases {
		got := tc.in
		got.Validate()
		if got != tc.want {
			t.Fatalf("Validate(%+v) = %+v, want %+v", tc.in, got, tc.want)
		}
	}
}

func TestListOrdersByStatus(t *testing.T) {
	store := memory.New()
	svc := NewService(store.Orders(), store.Events())
	ctx := context.Background()
	admin := user.Actor{ID: uuid.New(), Role: user.RoleAdmin}

	base := time.Date(2025, 1, 1, 0, 0, 0, 0, time.UTC)
	for i, st := range []order.Status{order.StatusPending, order.StatusApproved, order.StatusPending} {
		o := &order.Order{
			ID: uuid.New(), UserID: uuid.New(), Status: st, Method: order.MethodManual,
			Total: decimal.NewFromInt(1), CreatedAt: base.Add(time.Duration(i) * time.Hour),
		}
		require.NoError(t, store.Orders().Create(ctx, o))
	}

	all, err := svc.ListOrders(ctx, admin, "", ListRequest{})
	require.NoError(t, err)
	assert.Len(t, all.Orders, 3)
	assert.Equal(t, 50, all.Limit)
	assert.True(t, all.Orders[0].CreatedAt.After(all.Orders[1].CreatedAt))

	pending, err := svc.ListOrders(ctx, admin, order.StatusPending, ListRequest{Limit: 1})
	require.NoError(t, err)
	assert.Len(t, pending.Orders, 1)

	_, err = svc.ListOrders(ctx, user.Actor{ID: uuid.New(), Role: user.RoleCustomer}, "", ListRequest{})
	assert.ErrorIs(t, err, svcerr.ErrForbidden)
}

func TestListEventsEmpty(t *testing.T) {
	store := memory.New()
	svc := NewService(store.Orders(), store.Events())

	resp, err := svc.ListEvents(context.Background(), user.Actor{ID: uuid.New(), Role: user.RoleAdmin}, ListRequest{})
	require.NoError(t, err)
	assert.NotNil(t, resp.Events)
	assert.Empty(t, resp.Events)
}
