package server

import (
	"bytes"
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/bwmarrin/snowflake"
	"github.com/gin-gonic/gin"
	"github.com/glebarez/sqlite"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"gorm.io/gorm"

	clientdomain "github.com/tarumnet/mikrobill/internal/client/domain"
	clientrepo "github.com/tarumnet/mikrobill/internal/client/repository"
	clientsvc "github.com/tarumnet/mikrobill/internal/client/service"
	"github.com/tarumnet/mikrobill/internal/clock"
	"github.com/tarumnet/mikrobill/internal/config"
	plandomain "github.com/tarumnet/mikrobill/internal/plan/domain"
	planrepo "github.com/tarumnet/mikrobill/internal/plan/repository"
	plansvc "github.com/tarumnet/mikrobill/internal/plan/service"
	"github.com/tarumnet/mikrobill/internal/providers/pdf"
	"github.com/tarumnet/mikrobill/internal/router"
	saledomain "github.com/tarumnet/mikrobill/internal/sale/domain"
	salerepo "github.com/tarumnet/mikrobill/internal/sale/repository"
	salesvc "github.com/tarumnet/mikrobill/internal/sale/service"
)

type routerStub struct {
	err     error
	updates []string
}

func (r *routerStub) ListLeases(ctx context.Context) ([]router.Lease, error) {
	return nil, r.err
}

func (r *routerStub) UpdateLease(ctx context.Context, ref string, params router.UpdateLeaseParams) error {
	if r.err != nil {
		return r.err
	}
	r.updates = append(r.updates, ref)
	return nil
}

func (r *routerStub) DeleteLease(ctx context.Context, ref string) error {
	return r.err
}

type receiptStub struct{}

func (receiptStub) GenerateReceipt(ctx context.Context, data pdf.ReceiptData) (io.Reader, error) {
	return strings.NewReader("%PDF-1.7 " + data.ReceiptNumber), nil
}

type testEnv struct {
	srv    *Server
	db     *gorm.DB
	node   *snowflake.Node
	router *routerStub
}

func newTestServer(t *testing.T) *testEnv {
	t.Helper()
	gin.SetMode(gin.TestMode)

	db, err := gorm.Open(sqlite.Open("file:"+t.Name()+"?mode=memory&cache=shared"), &gorm.Config{})
	require.NoError(t, err)
	require.NoError(t, db.AutoMigrate(
		&plandomain.Plan{},
		&clientdomain.Client{},
		&saledomain.Sale{},
	))

	node, err := snowflake.NewNode(1)
	require.NoError(t, err)
	fake := clock.NewFakeClock(time.Date(2026, 8, 1, 9, 0, 0, 0, time.UTC))
	log := zap.NewNop()

	plans := plansvc.New(plansvc.Params{
		DB:    db,
		Log:   log,
		GenID: node,
		Repo:  planrepo.Provide(),
	})
	sales := salesvc.New(salesvc.Params{
		DB:    db,
		Log:   log,
		GenID: node,
		Clock: fake,
		Repo:  salerepo.Provide(),
	})
	stub := &routerStub{}
	clients := clientsvc.New(clientsvc.Params{
		DB:       db,
		Log:      log,
		GenID:    node,
		Clock:    fake,
		Repo:     clientrepo.Provide(),
		PlanRepo: planrepo.Provide(),
		Sales:    sales,
		Router:   stub,
	})

	engine := gin.New()
	engine.Use(ErrorHandlingMiddleware())

	srv := NewServer(ServerParams{
		Gin:       engine,
		Cfg:       config.Config{HTTPAddr: ":0"},
		DB:        db,
		GenID:     node,
		PlanSvc:   plans,
		ClientSvc: clients,
		SaleSvc:   sales,
		Receipts:  receiptStub{},
		Portal:    config.NewStaticPortalConfigHolder(config.DefaultPortalConfig()),
	})

	return &testEnv{srv: srv, db: db, node: node, router: stub}
}

func (e *testEnv) do(t *testing.T, method, path string, body any) *httptest.ResponseRecorder {
	t.Helper()
	var reader io.Reader
	if body != nil {
		raw, err := json.Marshal(body)
		require.NoError(t, err)
		reader = bytes.NewReader(raw)
	}
	req := httptest.NewRequest(method, path, reader)
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	rec := httptest.NewRecorder()
	e.srv.Engine().ServeHTTP(rec, req)
	return rec
}

func decodeData(t *testing.T, rec *httptest.ResponseRecorder) map[string]any {
	t.Helper()
	var payload struct {
		Data map[string]any `json:"data"`
	}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &payload))
	return payload.Data
}

func TestPlanCRUD(t *testing.T) {
	e := newTestServer(t)

	rec := e.do(t, http.MethodPost, "/admin/plans", map[string]any{
		"name":       "Fiber 50M",
		"price":      1000,
		"cycle_days": 30,
		"currency":   "usd",
	})
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	created := decodeData(t, rec)
	assert.Equal(t, "USD", created["currency"])

	rec = e.do(t, http.MethodGet, "/admin/plans", nil)
	require.Equal(t, http.StatusOK, rec.Code)

	rec = e.do(t, http.MethodPost, "/admin/plans", map[string]any{
		"name":       "",
		"price":      10,
		"cycle_days": 30,
		"currency":   "USD",
	})
	assert.Equal(t, http.StatusBadRequest, rec.Code)
	assert.Contains(t, rec.Body.String(), "validation_error")
}

func TestSubscriptionFlow(t *testing.T) {
	e := newTestServer(t)

	rec := e.do(t, http.MethodPost, "/admin/plans", map[string]any{
		"name":       "Fiber 50M",
		"price":      1000,
		"cycle_days": 30,
		"currency":   "USD",
	})
	require.Equal(t, http.StatusOK, rec.Code)
	planID := decodeData(t, rec)["id"].(string)

	rec = e.do(t, http.MethodPost, "/admin/clients", map[string]any{
		"name":       "Warung Sari",
		"router_ref": "*1A",
		"comment":    "paid june, thanks",
	})
	require.Equal(t, http.StatusOK, rec.Code)
	clientID := decodeData(t, rec)["id"].(string)

	// Free-text comments decode to the prepaid default.
	rec = e.do(t, http.MethodGet, "/admin/clients/"+clientID+"/subscription", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	sub := decodeData(t, rec)
	state := sub["state"].(map[string]any)
	assert.Equal(t, "prepaid", state["billingType"])
	assert.Nil(t, state["dueDate"])

	rec = e.do(t, http.MethodPost, "/admin/clients/"+clientID+"/quote", map[string]any{
		"plan_id":       planID,
		"downtime_days": 5,
	})
	require.Equal(t, http.StatusOK, rec.Code)
	quote := decodeData(t, rec)
	charge := quote["charge"].(map[string]any)
	assert.InDelta(t, 833.3333, charge["total"].(float64), 0.0001)

	rec = e.do(t, http.MethodPost, "/admin/clients/"+clientID+"/activate", map[string]any{
		"plan_id":       planID,
		"downtime_days": 5,
		"billing_type":  "postpaid",
		"due_date":      "2026-09-30",
	})
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	activated := decodeData(t, rec)
	assert.NotEmpty(t, activated["sale_id"])
	assert.Equal(t, []string{"*1A"}, e.router.updates)

	rec = e.do(t, http.MethodGet, "/admin/sales", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	var list struct {
		Data []map[string]any `json:"data"`
	}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &list))
	require.Len(t, list.Data, 1)
	assert.Equal(t, "Warung Sari", list.Data[0]["client_name"])

	saleID := activated["sale_id"].(string)
	rec = e.do(t, http.MethodGet, "/admin/sales/"+saleID+"/receipt", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "application/pdf", rec.Header().Get("Content-Type"))
	assert.Contains(t, rec.Body.String(), saleID)
}

func TestActivateRouterErrorSurfacesVerbatim(t *testing.T) {
	e := newTestServer(t)

	rec := e.do(t, http.MethodPost, "/admin/plans", map[string]any{
		"name":       "Basic",
		"price":      300,
		"cycle_days": 30,
		"currency":   "USD",
	})
	require.Equal(t, http.StatusOK, rec.Code)
	planID := decodeData(t, rec)["id"].(string)

	rec = e.do(t, http.MethodPost, "/admin/clients", map[string]any{
		"name":       "Pak Budi",
		"router_ref": "*2B",
	})
	require.Equal(t, http.StatusOK, rec.Code)
	clientID := decodeData(t, rec)["id"].(string)

	e.router.err = &router.Error{Op: "update_lease", Status: 404, Message: "no such item"}

	rec = e.do(t, http.MethodPost, "/admin/clients/"+clientID+"/activate", map[string]any{
		"plan_id": planID,
	})
	assert.Equal(t, http.StatusBadGateway, rec.Code)
	assert.Contains(t, rec.Body.String(), "no such item")
	assert.Contains(t, rec.Body.String(), "router_error")
}

func TestActivateWithEmptyCatalog(t *testing.T) {
	e := newTestServer(t)

	rec := e.do(t, http.MethodPost, "/admin/clients", map[string]any{
		"name": "Ibu Ratna",
	})
	require.Equal(t, http.StatusOK, rec.Code)
	clientID := decodeData(t, rec)["id"].(string)

	rec = e.do(t, http.MethodPost, "/admin/clients/"+clientID+"/activate", map[string]any{})
	assert.Equal(t, http.StatusBadRequest, rec.Code)
	assert.Contains(t, rec.Body.String(), "no_plan_selected")
}

func TestGetUnknownClient(t *testing.T) {
	e := newTestServer(t)

	rec := e.do(t, http.MethodGet, "/admin/clients/"+e.node.Generate().String(), nil)
	assert.Equal(t, http.StatusNotFound, rec.Code)
}

func TestManualSaleEntry(t *testing.T) {
	e := newTestServer(t)

	rec := e.do(t, http.MethodPost, "/admin/sales", map[string]any{
		"client_name": "Walk-in",
		"plan_name":   "Voucher 1 Day",
		"plan_price":  5000,
		"total":       5000,
		"currency":    "idr",
	})
	require.Equal(t, http.StatusOK, rec.Code)

	data := decodeData(t, rec)
	assert.Equal(t, "Walk-in", data["client_name"])
	assert.Equal(t, "IDR", data["currency"])

	rec = e.do(t, http.MethodPost, "/admin/sales", map[string]any{
		"client_name": "Walk-in",
		"plan_name":   "Voucher 1 Day",
		"total":       -5,
		"currency":    "IDR",
	})
	assert.Equal(t, http.StatusBadRequest, rec.Code)
	assert.Contains(t, rec.Body.String(), "invalid_total")
}
