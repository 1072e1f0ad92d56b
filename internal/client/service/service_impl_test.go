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

	"github.com/tarumnet/mikrobill/internal/billing"
	clientdomain "github.com/tarumnet/mikrobill/internal/client/domain"
	clientrepo "github.com/tarumnet/mikrobill/internal/client/repository"
	"github.com/tarumnet/mikrobill/internal/clock"
	plandomain "github.com/tarumnet/mikrobill/internal/plan/domain"
	planrepo "github.com/tarumnet/mikrobill/internal/plan/repository"
	"github.com/tarumnet/mikrobill/internal/router"
	saledomain "github.com/tarumnet/mikrobill/internal/sale/domain"
	salerepo "github.com/tarumnet/mikrobill/internal/sale/repository"
	salesvc "github.com/tarumnet/mikrobill/internal/sale/service"
)

type leaseUpdate struct {
	Ref    string
	Params router.UpdateLeaseParams
}

// routerStub records calls and can be primed to fail, standing in for the
// RouterOS endpoint.
type routerStub struct {
	Leases  []router.Lease
	Updates []leaseUpdate
	Deletes []string
	Err     error
}

func (r *routerStub) ListLeases(ctx context.Context) ([]router.Lease, error) {
	if r.Err != nil {
		return nil, r.Err
	}
	return r.Leases, nil
}

func (r *routerStub) UpdateLease(ctx context.Context, ref string, params router.UpdateLeaseParams) error {
	if r.Err != nil {
		return r.Err
	}
	r.Updates = append(r.Updates, leaseUpdate{Ref: ref, Params: params})
	return nil
}

func (r *routerStub) DeleteLease(ctx context.Context, ref string) error {
	if r.Err != nil {
		return r.Err
	}
	r.Deletes = append(r.Deletes, ref)
	return nil
}

type fixture struct {
	db     *gorm.DB
	node   *snowflake.Node
	clock  *clock.FakeClock
	router *routerStub
	svc    clientdomain.Service
}

func newFixture(t *testing.T) *fixture {
	t.Helper()

	db, err := gorm.Open(sqlite.Open("file:"+t.Name()+"?mode=memory&cache=shared"), &gorm.Config{})
	require.NoError(t, err)

	err = db.AutoMigrate(
		&clientdomain.Client{},
		&plandomain.Plan{},
		&saledomain.Sale{},
	)
	require.NoError(t, err)

	node, err := snowflake.NewNode(1)
	require.NoError(t, err)

	fake := clock.NewFakeClock(time.Date(2026, 8, 1, 12, 0, 0, 0, time.UTC))
	log := zap.NewNop()

	sales := salesvc.New(salesvc.Params{
		DB:    db,
		Log:   log,
		GenID: node,
		Clock: fake,
		Repo:  salerepo.Provide(),
	})

	stub := &routerStub{}
	svc := New(Params{
		DB:       db,
		Log:      log,
		GenID:    node,
		Clock:    fake,
		Repo:     clientrepo.Provide(),
		PlanRepo: planrepo.Provide(),
		Sales:    sales,
		Router:   stub,
	})

	return &fixture{db: db, node: node, clock: fake, router: stub, svc: svc}
}

func (f *fixture) seedPlan(t *testing.T, name string, price float64, cycleDays int, speedLimit string) plandomain.Plan {
	t.Helper()
	plan := plandomain.Plan{
		ID:        f.node.Generate(),
		Name:      name,
		Price:     price,
		CycleDays: cycleDays,
		Currency:  "USD",
		Active:    true,
		CreatedAt: f.clock.Now(),
		UpdatedAt: f.clock.Now(),
	}
	if speedLimit != "" {
		plan.SpeedLimit = &speedLimit
	}
	require.NoError(t, f.db.Create(&plan).Error)
	f.clock.Advance(time.Millisecond)
	return plan
}

func (f *fixture) seedClient(t *testing.T, name, comment, routerRef string) clientdomain.Client {
	t.Helper()
	client := clientdomain.Client{
		ID:         f.node.Generate(),
		Name:       name,
		Address:    "10.0.0.15",
		MACAddress: "AA:BB:CC:DD:EE:FF",
		Contact:    "+62 811 000 111",
		Comment:    comment,
		RouterRef:  routerRef,
		CreatedAt:  f.clock.Now(),
		UpdatedAt:  f.clock.Now(),
	}
	require.NoError(t, f.db.Create(&client).Error)
	return client
}

func TestActivate_RewritesAnnotationAndRecordsSale(t *testing.T) {
	f := newFixture(t)
	plan := f.seedPlan(t, "Fiber 50M", 1000, 30, "50M/50M")
	client := f.seedClient(t, "Warung Sari", "paid last month, thanks", "*1A")

	resp, err := f.svc.Activate(context.Background(), client.ID.String(), clientdomain.ActivateRequest{
		PlanID:       plan.ID.String(),
		DowntimeDays: 5,
		BillingType:  "postpaid",
		DueDate:      "2026-09-30",
	})
	require.NoError(t, err)

	assert.InDelta(t, 1000, resp.Charge.Price, 0.0001)
	assert.InDelta(t, 33.3333, resp.Charge.PricePerDay, 0.0001)
	assert.InDelta(t, 166.6666, resp.Charge.Discount, 0.0001)
	assert.InDelta(t, 833.3333, resp.Charge.Total, 0.0001)

	// The stored comment is a whole-object replacement of the legacy text.
	var stored clientdomain.Client
	require.NoError(t, f.db.First(&stored, "id = ?", client.ID).Error)
	state := billing.DecodeState(stored.Comment)
	assert.Equal(t, "2026-09-30", state.DueDate)
	assert.Equal(t, billing.Postpaid, state.BillingType)
	assert.Equal(t, "Fiber 50M", state.PlanName)
	assert.NotContains(t, stored.Comment, "thanks")

	require.Len(t, f.router.Updates, 1)
	update := f.router.Updates[0]
	assert.Equal(t, "*1A", update.Ref)
	require.NotNil(t, update.Params.Comment)
	assert.Equal(t, stored.Comment, *update.Params.Comment)
	require.NotNil(t, update.Params.RateLimit)
	assert.Equal(t, "50M/50M", *update.Params.RateLimit)
	require.NotNil(t, update.Params.ExpiresAt)
	assert.Equal(t, time.Date(2026, 9, 30, 23, 59, 59, 0, time.UTC), *update.Params.ExpiresAt)

	var sales []saledomain.Sale
	require.NoError(t, f.db.Find(&sales).Error)
	require.Len(t, sales, 1)
	assert.Equal(t, "Warung Sari", sales[0].ClientName)
	assert.Equal(t, "Fiber 50M", sales[0].PlanName)
	assert.InDelta(t, 833.3333, sales[0].Total, 0.0001)
	assert.Equal(t, sales[0].ID.String(), resp.SaleID)
}

func TestActivate_NoDueDateLeavesExpiryToRouter(t *testing.T) {
	f := newFixture(t)
	plan := f.seedPlan(t, "Basic", 300, 30, "")
	client := f.seedClient(t, "Pak Budi", "", "*2B")

	_, err := f.svc.Activate(context.Background(), client.ID.String(), clientdomain.ActivateRequest{
		PlanID: plan.ID.String(),
	})
	require.NoError(t, err)

	require.Len(t, f.router.Updates, 1)
	assert.Nil(t, f.router.Updates[0].Params.ExpiresAt)
	assert.Nil(t, f.router.Updates[0].Params.RateLimit)

	var stored clientdomain.Client
	require.NoError(t, f.db.First(&stored, "id = ?", client.ID).Error)
	state := billing.DecodeState(stored.Comment)
	assert.Empty(t, state.DueDate)
	assert.Equal(t, billing.Prepaid, state.BillingType)
}

func TestActivate_ZeroTotalStillRecordsSale(t *testing.T) {
	f := newFixture(t)
	plan := f.seedPlan(t, "Sponsored", 0, 30, "")
	client := f.seedClient(t, "Posyandu", "", "*3C")

	resp, err := f.svc.Activate(context.Background(), client.ID.String(), clientdomain.ActivateRequest{
		PlanID: plan.ID.String(),
	})
	require.NoError(t, err)
	assert.Zero(t, resp.Charge.Total)

	var count int64
	require.NoError(t, f.db.Model(&saledomain.Sale{}).Count(&count).Error)
	assert.EqualValues(t, 1, count)
}

func TestActivate_RouterErrorAbortsEverything(t *testing.T) {
	f := newFixture(t)
	plan := f.seedPlan(t, "Fiber 50M", 1000, 30, "")
	client := f.seedClient(t, "Warung Sari", "legacy note", "*1A")

	f.router.Err = &router.Error{Op: "update_lease", Status: 404, Message: "no such item"}

	_, err := f.svc.Activate(context.Background(), client.ID.String(), clientdomain.ActivateRequest{
		PlanID: plan.ID.String(),
	})
	require.Error(t, err)
	assert.Equal(t, "no such item", err.Error())

	var stored clientdomain.Client
	require.NoError(t, f.db.First(&stored, "id = ?", client.ID).Error)
	assert.Equal(t, "legacy note", stored.Comment)

	var count int64
	require.NoError(t, f.db.Model(&saledomain.Sale{}).Count(&count).Error)
	assert.Zero(t, count)
}

func TestActivate_InvalidDueDate(t *testing.T) {
	f := newFixture(t)
	plan := f.seedPlan(t, "Basic", 300, 30, "")
	client := f.seedClient(t, "Pak Budi", "", "*2B")

	_, err := f.svc.Activate(context.Background(), client.ID.String(), clientdomain.ActivateRequest{
		PlanID:  plan.ID.String(),
		DueDate: "30-09-2026",
	})
	assert.ErrorIs(t, err, clientdomain.ErrInvalidDueDate)
}

func TestQuote_PreselectsFromAnnotation(t *testing.T) {
	f := newFixture(t)
	f.seedPlan(t, "Silver", 200, 30, "")
	f.seedPlan(t, "Gold", 500, 30, "")
	client := f.seedClient(t, "Ibu Ratna", `{"billingType":"postpaid","planName":"Gold"}`, "*4D")

	resp, err := f.svc.Quote(context.Background(), client.ID.String(), clientdomain.QuoteRequest{})
	require.NoError(t, err)
	assert.Equal(t, "Gold", resp.Plan.Name)
	assert.InDelta(t, 500, resp.Charge.Total, 0.0001)
}

func TestQuote_UnknownHintFallsBackToFirstPlan(t *testing.T) {
	f := newFixture(t)
	f.seedPlan(t, "Silver", 200, 30, "")
	f.seedPlan(t, "Gold", 500, 30, "")
	client := f.seedClient(t, "Ibu Ratna", `{"planName":"Retired Plan"}`, "*4D")

	resp, err := f.svc.Quote(context.Background(), client.ID.String(), clientdomain.QuoteRequest{})
	require.NoError(t, err)
	assert.Equal(t, "Silver", resp.Plan.Name)
}

func TestQuote_EmptyCatalog(t *testing.T) {
	f := newFixture(t)
	client := f.seedClient(t, "Ibu Ratna", "", "*4D")

	_, err := f.svc.Quote(context.Background(), client.ID.String(), clientdomain.QuoteRequest{})
	assert.ErrorIs(t, err, clientdomain.ErrNoPlanSelected)
}

func TestSubscription_MalformedCommentFallsBackToDefault(t *testing.T) {
	f := newFixture(t)
	f.seedPlan(t, "Silver", 200, 30, "")
	client := f.seedClient(t, "Warung Sari", "paid june, thanks", "*1A")

	view, err := f.svc.Subscription(context.Background(), client.ID.String())
	require.NoError(t, err)
	assert.Equal(t, billing.Prepaid, view.State.BillingType)
	assert.Empty(t, view.State.DueDate)
	require.NotNil(t, view.Plan)
	assert.Equal(t, "Silver", view.Plan.Name)
}

func TestDelete_RemovesRouterLeaseFirst(t *testing.T) {
	f := newFixture(t)
	client := f.seedClient(t, "Pak Budi", "", "*2B")

	require.NoError(t, f.svc.Delete(context.Background(), client.ID.String()))
	assert.Equal(t, []string{"*2B"}, f.router.Deletes)

	var count int64
	require.NoError(t, f.db.Model(&clientdomain.Client{}).Count(&count).Error)
	assert.Zero(t, count)
}

func TestDelete_RouterErrorKeepsRow(t *testing.T) {
	f := newFixture(t)
	client := f.seedClient(t, "Pak Budi", "", "*2B")
	f.router.Err = &router.Error{Op: "delete_lease", Status: 500, Message: "router busy"}

	err := f.svc.Delete(context.Background(), client.ID.String())
	require.Error(t, err)
	assert.Equal(t, "router busy", err.Error())

	var count int64
	require.NoError(t, f.db.Model(&clientdomain.Client{}).Count(&count).Error)
	assert.EqualValues(t, 1, count)
}

func TestSyncLeases_CreatesAndUpdates(t *testing.T) {
	f := newFixture(t)
	existing := f.seedClient(t, "Warung Sari", "old", "*1A")

	result, err := f.svc.SyncLeases(context.Background(), []router.Lease{
		{Ref: "*1A", Address: "10.0.0.99", MACAddress: "AA:BB:CC:DD:EE:FF", Comment: `{"billingType":"prepaid"}`},
		{Ref: "*9Z", Address: "10.0.0.42", MACAddress: "11:22:33:44:55:66", HostName: "tplink-router"},
		{Ref: "", Address: "ignored"},
	})
	require.NoError(t, err)
	assert.Equal(t, 1, result.Created)
	assert.Equal(t, 1, result.Updated)

	var updated clientdomain.Client
	require.NoError(t, f.db.First(&updated, "id = ?", existing.ID).Error)
	assert.Equal(t, "10.0.0.99", updated.Address)
	assert.Equal(t, `{"billingType":"prepaid"}`, updated.Comment)
	assert.Equal(t, "Warung Sari", updated.Name)

	var created clientdomain.Client
	require.NoError(t, f.db.First(&created, "router_ref = ?", "*9Z").Error)
	assert.Equal(t, "tplink-router", created.Name)
}

func TestGet_NotFound(t *testing.T) {
	f := newFixture(t)

	_, err := f.svc.Get(context.Background(), f.node.Generate().String())
	assert.ErrorIs(t, err, clientdomain.ErrNotFound)

	_, err = f.svc.Get(context.Background(), "not-a-number")
	assert.ErrorIs(t, err, clientdomain.ErrInvalidID)
}
