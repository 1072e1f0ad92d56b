package service

import (
	"context"
	"testing"
	"time"

	"github.com/bwmarrin/snowflake"
	"github.com/glebarez/sqlite"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"gorm.io/gorm"

	"github.com/tarumnet/mikrobill/internal/clock"
	saledomain "github.com/tarumnet/mikrobill/internal/sale/domain"
	salerepo "github.com/tarumnet/mikrobill/internal/sale/repository"
)

type fixture struct {
	db    *gorm.DB
	clock *clock.FakeClock
	svc   saledomain.Service
}

func newFixture(t *testing.T) *fixture {
	t.Helper()

	db, err := gorm.Open(sqlite.Open("file:"+t.Name()+"?mode=memory&cache=shared"), &gorm.Config{})
	require.NoError(t, err)
	require.NoError(t, db.AutoMigrate(&saledomain.Sale{}))

	node, err := snowflake.NewNode(1)
	require.NoError(t, err)

	fake := clock.NewFakeClock(time.Date(2026, 8, 1, 12, 0, 0, 0, time.UTC))

	svc := New(Params{
		DB:    db,
		Log:   zap.NewNop(),
		GenID: node,
		Clock: fake,
		Repo:  salerepo.Provide(),
	})

	return &fixture{db: db, clock: fake, svc: svc}
}

func (f *fixture) record(t *testing.T, name string, total float64) *saledomain.Response {
	t.Helper()
	resp, err := f.svc.Create(context.Background(), saledomain.CreateRequest{
		ClientName: name,
		PlanName:   "Home 10M",
		PlanPrice:  total,
		Total:      total,
		Currency:   "USD",
	})
	require.NoError(t, err)
	f.clock.Advance(time.Hour)
	return resp
}

func TestCreate_StampsSoldAtFromClock(t *testing.T) {
	f := newFixture(t)

	resp, err := f.svc.Create(context.Background(), saledomain.CreateRequest{
		ClientName: " Alice ",
		Contact:    " 555-0199 ",
		PlanName:   "Home 10M",
		PlanPrice:  1000,
		Discount:   166.67,
		Total:      833.33,
		Currency:   "usd",
	})
	require.NoError(t, err)

	assert.Equal(t, "Alice", resp.ClientName)
	assert.Equal(t, "555-0199", resp.Contact)
	assert.Equal(t, "USD", resp.Currency)
	assert.Equal(t, f.clock.Now(), resp.SoldAt)
	assert.Nil(t, resp.ClientID)
}

func TestCreate_ZeroTotalIsValid(t *testing.T) {
	f := newFixture(t)

	resp, err := f.svc.Create(context.Background(), saledomain.CreateRequest{
		ClientName: "Alice",
		PlanName:   "Home 10M",
		PlanPrice:  1000,
		Discount:   1000,
		Total:      0,
		Currency:   "USD",
	})
	require.NoError(t, err)
	assert.Equal(t, 0.0, resp.Total)
}

func TestCreate_Rejections(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	cases := map[string]struct {
		req  saledomain.CreateRequest
		want error
	}{
		"blank client":   {saledomain.CreateRequest{PlanName: "P", Currency: "USD"}, saledomain.ErrInvalidClientName},
		"blank plan":     {saledomain.CreateRequest{ClientName: "A", Currency: "USD"}, saledomain.ErrInvalidPlanName},
		"negative total": {saledomain.CreateRequest{ClientName: "A", PlanName: "P", Total: -1, Currency: "USD"}, saledomain.ErrInvalidTotal},
		"bad currency":   {saledomain.CreateRequest{ClientName: "A", PlanName: "P", Currency: "DOLLARS"}, saledomain.ErrInvalidCurrency},
		"bad client id":  {saledomain.CreateRequest{ClientName: "A", PlanName: "P", Currency: "USD", ClientID: "abc"}, saledomain.ErrInvalidID},
	}
	for name, tc := range cases {
		t.Run(name, func(t *testing.T) {
			_, err := f.svc.Create(ctx, tc.req)
			assert.ErrorIs(t, err, tc.want)
		})
	}
}

func TestList_NewestFirst(t *testing.T) {
	f := newFixture(t)

	first := f.record(t, "Alice", 100)
	second := f.record(t, "Bob", 200)

	items, err := f.svc.List(context.Background(), saledomain.ListRequest{})
	require.NoError(t, err)
	require.Len(t, items, 2)
	assert.Equal(t, second.ID, items[0].ID)
	assert.Equal(t, first.ID, items[1].ID)
}

func TestList_DateRangeInclusiveOfToDay(t *testing.T) {
	f := newFixture(t)

	// 2026-08-01 12:00, 13:00, 14:00.
	f.record(t, "Alice", 100)
	f.record(t, "Bob", 200)
	f.record(t, "Carol", 300)

	items, err := f.svc.List(context.Background(), saledomain.ListRequest{
		From: "2026-08-01",
		To:   "2026-08-01",
	})
	require.NoError(t, err)
	// Sales stamped during the "to" day itself are included.
	assert.Len(t, items, 3)

	items, err = f.svc.List(context.Background(), saledomain.ListRequest{
		From: "2026-08-02",
		To:   "2026-08-03",
	})
	require.NoError(t, err)
	assert.Empty(t, items)
}

func TestList_InvalidRange(t *testing.T) {
	f := newFixture(t)

	_, err := f.svc.List(context.Background(), saledomain.ListRequest{From: "01-08-2026"})
	assert.ErrorIs(t, err, saledomain.ErrInvalidDateRange)

	_, err = f.svc.List(context.Background(), saledomain.ListRequest{From: "2026-08-10", To: "2026-08-01"})
	assert.ErrorIs(t, err, saledomain.ErrInvalidDateRange)
}

func TestList_FilterByClient(t *testing.T) {
	f := newFixture(t)

	node, err := snowflake.NewNode(2)
	require.NoError(t, err)
	clientID := node.Generate()

	_, err = f.svc.Create(context.Background(), saledomain.CreateRequest{
		ClientID:   clientID.String(),
		ClientName: "Alice",
		PlanName:   "Home 10M",
		Total:      100,
		Currency:   "USD",
	})
	require.NoError(t, err)
	f.record(t, "Bob", 200)

	items, err := f.svc.List(context.Background(), saledomain.ListRequest{ClientID: clientID.String()})
	require.NoError(t, err)
	require.Len(t, items, 1)
	assert.Equal(t, "Alice", items[0].ClientName)
}

func TestDelete_HardRemovesRow(t *testing.T) {
	f := newFixture(t)

	sale := f.record(t, "Alice", 100)

	require.NoError(t, f.svc.Delete(context.Background(), sale.ID.String()))

	_, err := f.svc.Get(context.Background(), sale.ID.String())
	assert.ErrorIs(t, err, saledomain.ErrNotFound)

	var count int64
	require.NoError(t, f.db.Model(&saledomain.Sale{}).Count(&count).Error)
	assert.Zero(t, count)
}

func TestGet_InvalidID(t *testing.T) {
	f := newFixture(t)

	_, err := f.svc.Get(context.Background(), "nope")
	assert.ErrorIs(t, err, saledomain.ErrInvalidID)
}
