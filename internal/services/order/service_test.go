package order

import (
	"bytes"
	"context"
	"errors"
	"io"
	"strings"
	"testing"
	"time"

	"krostyshop/internal/clock"
	"krostyshop/internal/domain/order"
	"krostyshop/internal/domain/user"
	"krostyshop/internal/realtime"
	catalogsvc "krostyshop/internal/services/catalog"
	"krostyshop/internal/services/data"
	"krostyshop/internal/services/svcerr"
	"krostyshop/internal/storage"
	"krostyshop/internal/store/memory"
	"krostyshop/internal/store/repositories"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fixedRate struct {
	rate decimal.Decimal
	err  error
}

func (f fixedRate) Rate(context.Context) (decimal.Decimal, error) { return f.rate, f.err }

type fakeProofs struct {
	err  error
	puts int
}

func (f *fakeProofs) Put(_ context.Context, userID uuid.UUID, filename string, r io.Reader) (storage.Object, error) {
	if f.err != nil {
		return storage.Object{}, f.err
	}
	f.puts++
	_, _ = io.Copy(io.Discard, r)
	key := storage.Key(userID, time.UnixMilli(1700000000000), "png")
	return storage.Object{Key: key, URL: "http://localhost:8080/proofs/" + key}, nil
}

type fixture struct {
	svc     *Service
	store   *memory.Store
	hub     *realtime.Hub
	proofs  *fakeProofs
	variant string
}

var now = time.Date(2025, 3, 1, 12, 0, 0, 0, time.UTC)

func newFixture(t *testing.T, rate fixedRate) *fixture {
	t.Helper()
	store := memory.New()
	catalog := catalogsvc.NewService(store.Products())
	ctx := context.Background()

	p, err := catalog.CreateProduct(ctx, catalogsvc.ProductInput{Name: "Free Fire", Category: "games"})
	require.NoError(t, err)
	v, err := catalog.AddVariant(ctx, p.ID, "100 diamonds", decimal.RequireFromString("1.99"))
	require.NoError(t, err)

	hub := realtime.NewHub(nil)
	proofs := &fakeProofs{}
	return &fixture{
		svc:     NewService(store.Orders(), catalog, rate, proofs, hub, clock.NewFixed(now)),
		store:   store,
		hub:     hub,
		proofs:  proofs,
		variant: v.ID.String(),
	}
}

func proof() *Proof {
	return &Proof{Filename: "pago.png", Body: bytes.NewReader([]byte("png"))}
}

func TestManualCheckout(t *testing.T) {
	f := newFixture(t, fixedRate{rate: decimal.RequireFromString("36.505")})
	feed := f.hub.Subscribe(realtime.TopicAdminOrders, 4)
	buyer := user.Actor{ID: uuid.New(), Role: user.RoleCustomer}

	o, err := f.svc.ManualCheckout(context.Background(), buyer,
		[]catalogsvc.CartLine{{VariantID: f.variant, Quantity: 3}}, proof())
	require.NoError(t, err)

	assert.Equal(t, order.StatusPending, o.Status)
	assert.Equal(t, order.MethodManual, o.Method)
	assert.Equal(t, buyer.ID, o.UserID)
	assert.Equal(t, "5.97", o.Total.String())
	assert.Equal(t, "217.93", o.TotalVES.String())
	assert.True(t, strings.HasPrefix(o.ProofURL, "http://localhost:8080/proofs/"+buyer.ID.String()+"/"))
	assert.Equal(t, int64(1), o.DisplayID)
	require.Len(t, o.Items, 1)
	assert.Equal(t, "Free Fire - 100 diamonds", o.Items[0].Name)

	select {
	case evt := <-feed.C():
		assert.Equal(t, realtime.EventOrderCreated, evt.Type)
	default:
		t.Fatal("expected order.created on admin feed")
	}
}

func TestManualCheckoutRejects(t *testing.T) {
	f := newFixture(t, fixedRate{rate: decimal.NewFromInt(36)})
	ctx := context.Background()
	buyer := user.Actor{ID: uuid.New()}
	lines := []catalogsvc.CartLine{{VariantID: f.variant, Quantity: 1}}

	_, err := f.svc.ManualCheckout(ctx, user.Actor{}, lines, proof())
	assert.ErrorIs(t, err, svcerr.ErrUnauthorized)

	var ve *svcerr.ValidationError
	_, err = f.svc.ManualCheckout(ctx, buyer, nil, proof())
	require.True(t, errors.As(err, &ve))
	assert.Equal(t, "items", ve.Field)

	_, err = f.svc.ManualCheckout(ctx, buyer, lines, nil)
	require.True(t, errors.As(err, &ve))
	assert.Equal(t, "proof", ve.Field)

	f.proofs.err = storage.ErrNotImage
	_, err = f.svc.ManualCheckout(ctx, buyer, lines, proof())
	require.True(t, errors.As(err, &ve))
	assert.Equal(t, "proof", ve.Field)

	list, err := f.store.Orders().List(ctx, "", 10, 0)
	require.NoError(t, err)
	assert.Empty(t, list, "nothing may be persisted on failure")
}

func TestManualCheckoutRateUnavailable(t *testing.T) {
	f := newFixture(t, fixedRate{err: errors.New("criptoya down")})
	_, err := f.svc.ManualCheckout(context.Background(), user.Actor{ID: uuid.New()},
		[]catalogsvc.CartLine{{VariantID: f.variant, Quantity: 1}}, proof())

	var se *svcerr.ServiceError
	require.True(t, errors.As(err, &se))
	assert.Equal(t, "fetch_rate", se.Op)
	assert.Equal(t, 0, f.proofs.puts, "proof must not be uploaded without a rate")
}

func TestGetAndListMine(t *testing.T) {
	f := newFixture(t, fixedRate{rate: decimal.NewFromInt(40)})
	ctx := context.Background()
	buyer := user.Actor{ID: uuid.New(), Role: user.RoleCustomer}
	other := user.Actor{ID: uuid.New(), Role: user.RoleCustomer}
	admin := user.Actor{ID: uuid.New(), Role: user.RoleAdmin}

	o, err := f.svc.ManualCheckout(ctx, buyer, []catalogsvc.CartLine{{VariantID: f.variant, Quantity: 1}}, proof())
	require.NoError(t, err)

	got, err := f.svc.Get(ctx, buyer, o.ID)
	require.NoError(t, err)
	assert.Equal(t, o.ID, got.ID)

	_, err = f.svc.Get(ctx, admin, o.ID)
	assert.NoError(t, err)

	_, err = f.svc.Get(ctx, other, o.ID)
	assert.ErrorIs(t, err, order.ErrNotFound)

	mine, err := f.svc.ListMine(ctx, buyer, data.ListRequest{})
	require.NoError(t, err)
	assert.Len(t, mine.Orders, 1)

	theirs, err := f.svc.ListMine(ctx, other, data.ListRequest{})
	require.NoError(t, err)
	assert.Empty(t, theirs.Orders)
}

func TestReview(t *testing.T) {
	f := newFixture(t, fixedRate{rate: decimal.NewFromInt(40)})
	ctx := context.Background()
	buyer := user.Actor{ID: uuid.New(), Role: user.RoleCustomer}
	admin := user.Actor{ID: uuid.New(), Role: user.RoleAdmin}

	o, err := f.svc.ManualCheckout(ctx, buyer, []catalogsvc.CartLine{{VariantID: f.variant, Quantity: 1}}, proof())
	require.NoError(t, err)
	chat := f.hub.Subscribe(realtime.OrderTopic(o.ID), 4)

	_, err = f.svc.Review(ctx, buyer, o.ID, order.StatusApproved)
	assert.ErrorIs(t, err, svcerr.ErrForbidden)

	_, err = f.svc.Review(ctx, admin, o.ID, order.StatusPaid)
	assert.ErrorIs(t, err, order.ErrInvalidTransition)

	approved, err := f.svc.Review(ctx, admin, o.ID, order.StatusApproved)
	require.NoError(t, err)
	assert.Equal(t, order.StatusApproved, approved.Status)

	select {
	case evt := <-chat.C():
		assert.Equal(t, realtime.EventOrderUpdated, evt.Type)
	default:
		t.Fatal("buyer should be notified")
	}

	// no-op review
	_, err = f.svc.Review(ctx, admin, o.ID, order.StatusApproved)
	assert.ErrorIs(t, err, order.ErrInvalidTransition)

	// admins may still change their mind
	rejected, err := f.svc.Review(ctx, admin, o.ID, order.StatusRejected)
	require.NoError(t, err)
	assert.Equal(t, order.StatusRejected, rejected.Status)

	_, err = f.svc.Review(ctx, admin, uuid.New(), order.StatusApproved)
	assert.ErrorIs(t, err, order.ErrNotFound)
}

// raceRepo lets another admin review the order between read and write
type raceRepo struct {
	repositories.OrderRepository
}

func (r *raceRepo) FindByID(ctx context.Context, id uuid.UUID) (*order.Order, error) {
	o, err := r.OrderRepository.FindByID(ctx, id)
	if err != nil {
		return nil, err
	}
	if _, err := r.OrderRepository.UpdateStatus(ctx, id, o.Status, order.StatusRejected); err != nil {
		return nil, err
	}
	return o, nil
}

func TestReviewLosesRace(t *testing.T) {
	store := memory.New()
	ctx := context.Background()
	o := &order.Order{ID: uuid.New(), UserID: uuid.New(), Status: order.StatusPending, Method: order.MethodManual}
	require.NoError(t, store.Orders().Create(ctx, o))

	repo := &raceRepo{OrderRepository: store.Orders()}
	svc := NewService(repo, nil, nil, nil, nil, clock.NewFixed(now))

	_, err := svc.Review(ctx, user.Actor{ID: uuid.New(), Role: user.RoleAdmin}, o.ID, order.StatusApproved)
	assert.ErrorIs(t, err, order.ErrStatusChanged)
}
