package httpapi

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"sync"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/kmehta/nivesh-backend/internal/adapter/auth"
	"github.com/kmehta/nivesh-backend/internal/domain"
	"github.com/kmehta/nivesh-backend/internal/usecase/buckets"
	"github.com/kmehta/nivesh-backend/internal/usecase/holdings"
	"github.com/kmehta/nivesh-backend/internal/usecase/portfolio"
	"github.com/kmehta/nivesh-backend/internal/usecase/pricing"
)

// memTradeRepo is an in-memory trade store keyed by user.
type memTradeRepo struct {
	mu     sync.Mutex
	trades map[string][]*domain.Trade
}

func newMemTradeRepo() *memTradeRepo {
	return &memTradeRepo{trades: make(map[string][]*domain.Trade)}
}

func (r *memTradeRepo) List(_ context.Context, userID string) ([]*domain.Trade, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := make([]*domain.Trade, len(r.trades[userID]))
	copy(out, r.trades[userID])
	return out, nil
}

func (r *memTradeRepo) Add(_ context.Context, userID string, trade *domain.Trade) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.trades[userID] = append(r.trades[userID], trade)
	return nil
}

func (r *memTradeRepo) Update(_ context.Context, userID string, trade *domain.Trade) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	for i, t := range r.trades[userID] {
		if t.ID == trade.ID {
			r.trades[userID][i] = trade
			return nil
		}
	}
	return domain.ErrTradeNotFound
}

func (r *memTradeRepo) Delete(_ context.Context, userID string, id uuid.UUID) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	for i, t := range r.trades[userID] {
		if t.ID == id {
			r.trades[userID] = append(r.trades[userID][:i], r.trades[userID][i+1:]...)
			return nil
		}
	}
	return domain.ErrTradeNotFound
}

func (r *memTradeRepo) Subscribe(context.Context, string, func([]*domain.Trade)) (func(), error) {
	return func() {}, nil
}

// memBucketRepo is an in-memory bucket store keyed by user.
type memBucketRepo struct {
	mu      sync.Mutex
	buckets map[string]map[string]*domain.Bucket
}

func newMemBucketRepo() *memBucketRepo {
	return &memBucketRepo{buckets: make(map[string]map[string]*domain.Bucket)}
}

func (r *memBucketRepo) List(_ context.Context, userID string) ([]*domain.Bucket, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	var out []*domain.Bucket
	for _, b := range r.buckets[userID] {
		out = append(out, b)
	}
	return out, nil
}

func (r *memBucketRepo) Upsert(_ context.Context, userID string, bucket *domain.Bucket) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.buckets[userID] == nil {
		r.buckets[userID] = make(map[string]*domain.Bucket)
	}
	r.buckets[userID][bucket.Name] = bucket
	return nil
}

// staticSource serves one fixed price for everything.
type staticSource struct {
	price decimal.Decimal
}

func (s staticSource) Resolve(context.Context, string, domain.InvestmentType) (decimal.Decimal, error) {
	return s.price, nil
}

type testEnv struct {
	server *Server
	auth   *auth.Service
	trades *memTradeRepo
}

func newTestEnv(t *testing.T) *testEnv {
	t.Helper()
	log := zerolog.Nop()

	trades := newMemTradeRepo()
	bucketRepo := newMemBucketRepo()
	cache := pricing.NewCache(pricing.Config{}, []domain.PriceSource{staticSource{price: decimal.NewFromInt(3000)}}, log)
	scheduler := pricing.NewScheduler(cache, pricing.SchedulerConfig{BatchSize: 3}, log)
	holdingsAgg := holdings.NewAggregator(cache, log)
	bucketsAgg := buckets.NewAggregator(log)

	authSvc := auth.NewService(5*time.Minute, log)

	factory := func(userID string) *portfolio.Service {
		return portfolio.NewService(userID, trades, bucketRepo, nil,
			cache, scheduler, holdingsAgg, bucketsAgg, portfolio.Config{}, log)
	}
	sessions := NewSessionRegistry(factory, log)
	t.Cleanup(sessions.Close)

	server := New(Config{Addr: ":0", Log: log, Auth: authSvc, Sessions: sessions})
	return &testEnv{server: server, auth: authSvc, trades: trades}
}

// login provisions a verified session directly through the auth service.
func (e *testEnv) login(t *testing.T, phone string) string {
	t.Helper()
	body, _ := json.Marshal(otpRequestBody{Phone: phone})
	rec := e.do(t, http.MethodPost, "/api/v1/auth/otp/request", "", body)
	require.Equal(t, http.StatusOK, rec.Code)

	var reqResp otpRequestResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &reqResp))

	code, ok := e.auth.PendingCode(reqResp.RequestID)
	require.True(t, ok)

	verifyBody, _ := json.Marshal(otpVerifyBody{RequestID: reqResp.RequestID, Code: code})
	rec = e.do(t, http.MethodPost, "/api/v1/auth/otp/verify", "", verifyBody)
	require.Equal(t, http.StatusOK, rec.Code)

	var verResp otpVerifyResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &verResp))
	return verResp.Token
}

func (e *testEnv) do(t *testing.T, method, path, token string, body []byte) *httptest.ResponseRecorder {
	t.Helper()
	req := httptest.NewRequest(method, path, bytes.NewReader(body))
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	rec := httptest.NewRecorder()
	e.server.Handler().ServeHTTP(rec, req)
	return rec
}

func TestHealth(t *testing.T) {
	env := newTestEnv(t)
	rec := env.do(t, http.MethodGet, "/health", "", nil)
	assert.Equal(t, http.StatusOK, rec.Code)
}

func TestAuthRequired(t *testing.T) {
	env := newTestEnv(t)

	rec := env.do(t, http.MethodGet, "/api/v1/holdings", "", nil)
	assert.Equal(t, http.StatusUnauthorized, rec.Code)

	rec = env.do(t, http.MethodGet, "/api/v1/holdings", "bogus-token", nil)
	assert.Equal(t, http.StatusUnauthorized, rec.Code)
}

func TestOTPFlow(t *testing.T) {
	env := newTestEnv(t)

	token := env.login(t, "+919876543210")
	require.NotEmpty(t, token)

	rec := env.do(t, http.MethodGet, "/api/v1/trades", token, nil)
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.JSONEq(t, "[]", rec.Body.String())
}

func TestOTPRequest_InvalidPhone(t *testing.T) {
	env := newTestEnv(t)

	body, _ := json.Marshal(otpRequestBody{Phone: "nope"})
	rec := env.do(t, http.MethodPost, "/api/v1/auth/otp/request", "", body)
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestTradeLifecycle(t *testing.T) {
	env := newTestEnv(t)
	token := env.login(t, "+919876543210")

	body, _ := json.Marshal(tradeRequest{
		Date:             "2024-01-15",
		InvestmentType:   "stock",
		Name:             "RELIANCE",
		TransactionType:  "buy",
		Quantity:         "10",
		BuyRate:          "2500",
		BucketAllocation: "bucket2",
	})
	rec := env.do(t, http.MethodPost, "/api/v1/trades/", token, body)
	require.Equal(t, http.StatusCreated, rec.Code)

	var created tradeResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &created))
	assert.Equal(t, "25000", created.BuyAmount)
	require.NotEmpty(t, created.ID)

	// Holdings derive from the new trade
	rec = env.do(t, http.MethodGet, "/api/v1/holdings", token, nil)
	require.Equal(t, http.StatusOK, rec.Code)
	var hs []holdingResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &hs))
	require.Len(t, hs, 1)
	assert.Equal(t, "RELIANCE", hs[0].Name)
	assert.Equal(t, "25000", hs[0].InvestedAmount)

	// Partial update rederives the buy amount
	upd, _ := json.Marshal(map[string]string{"quantity": "12"})
	rec = env.do(t, http.MethodPatch, "/api/v1/trades/"+created.ID, token, upd)
	require.Equal(t, http.StatusOK, rec.Code)
	var updated tradeResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &updated))
	assert.Equal(t, "30000", updated.BuyAmount)

	rec = env.do(t, http.MethodDelete, "/api/v1/trades/"+created.ID, token, nil)
	assert.Equal(t, http.StatusNoContent, rec.Code)

	rec = env.do(t, http.MethodGet, "/api/v1/trades", token, nil)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.JSONEq(t, "[]", rec.Body.String())
}

func TestAddTrade_ValidationError(t *testing.T) {
	env := newTestEnv(t)
	token := env.login(t, "+919876543210")

	body, _ := json.Marshal(tradeRequest{
		Date:            "2024-01-15",
		InvestmentType:  "stock",
		Name:            "",
		TransactionType: "buy",
		Quantity:        "10",
		BuyRate:         "2500",
	})
	rec := env.do(t, http.MethodPost, "/api/v1/trades/", token, body)
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestDeleteTrade_NotFound(t *testing.T) {
	env := newTestEnv(t)
	token := env.login(t, "+919876543210")

	rec := env.do(t, http.MethodDelete, "/api/v1/trades/"+uuid.NewString(), token, nil)
	assert.Equal(t, http.StatusNotFound, rec.Code)
}

func TestBuckets_ListAndOverride(t *testing.T) {
	env := newTestEnv(t)
	token := env.login(t, "+919876543210")

	rec := env.do(t, http.MethodGet, "/api/v1/buckets/", token, nil)
	require.Equal(t, http.StatusOK, rec.Code)
	var bs []bucketSummaryResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &bs))
	assert.Len(t, bs, 7)

	upd, _ := json.Marshal(bucketUpdateRequest{TargetAmount: "750000", Purpose: "Bigger emergency fund"})
	rec = env.do(t, http.MethodPut, "/api/v1/buckets/bucket1a", token, upd)
	require.Equal(t, http.StatusNoContent, rec.Code)

	rec = env.do(t, http.MethodGet, "/api/v1/buckets/", token, nil)
	require.Equal(t, http.StatusOK, rec.Code)
	bs = nil
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &bs))
	for _, b := range bs {
		if b.Name == "bucket1a" {
			assert.Equal(t, "750000", b.TargetAmount)
			assert.Equal(t, "Bigger emergency fund", b.Purpose)
		}
	}
}

func TestUpsertBucket_UnknownLabel(t *testing.T) {
	env := newTestEnv(t)
	token := env.login(t, "+919876543210")

	upd, _ := json.Marshal(bucketUpdateRequest{TargetAmount: "1000"})
	rec := env.do(t, http.MethodPut, "/api/v1/buckets/bucket9z", token, upd)
	assert.Equal(t, http.StatusNotFound, rec.Code)
}

func TestRefreshPrices(t *testing.T) {
	env := newTestEnv(t)
	token := env.login(t, "+919876543210")

	rec := env.do(t, http.MethodPost, "/api/v1/prices/refresh", token, nil)
	require.Equal(t, http.StatusOK, rec.Code)
	var resp refreshResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	assert.True(t, resp.Refreshed)

	// Immediate second refresh is inside the cooldown
	rec = env.do(t, http.MethodPost, "/api/v1/prices/refresh", token, nil)
	require.Equal(t, http.StatusOK, rec.Code)
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	assert.False(t, resp.Refreshed)
}

func TestDashboard(t *testing.T) {
	env := newTestEnv(t)
	token := env.login(t, "+919876543210")

	body, _ := json.Marshal(tradeRequest{
		Date:             "2024-01-15",
		InvestmentType:   "stock",
		Name:             "RELIANCE",
		TransactionType:  "buy",
		Quantity:         "10",
		BuyRate:          "2500",
		BucketAllocation: "bucket2",
	})
	rec := env.do(t, http.MethodPost, "/api/v1/trades/", token, body)
	require.Equal(t, http.StatusCreated, rec.Code)

	// Warm the price cache so valuation uses the static 3000 quote
	rec = env.do(t, http.MethodPost, "/api/v1/prices/refresh", token, nil)
	require.Equal(t, http.StatusOK, rec.Code)

	rec = env.do(t, http.MethodGet, "/api/v1/dashboard", token, nil)
	require.Equal(t, http.StatusOK, rec.Code)
	var dash dashboardResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &dash))
	assert.Equal(t, "30000", dash.NetWorth)
	assert.Equal(t, "25000", dash.TotalInvested)
	assert.Equal(t, 1, dash.HoldingsCount)
	assert.Len(t, dash.BucketProgress, 7)
}

func TestSessionsIsolatedPerUser(t *testing.T) {
	env := newTestEnv(t)
	tokenA := env.login(t, "+919876543210")
	tokenB := env.login(t, "+919123456780")

	body, _ := json.Marshal(tradeRequest{
		Date:            "2024-01-15",
		InvestmentType:  "stock",
		Name:            "TCS",
		TransactionType: "buy",
		Quantity:        "5",
		BuyRate:         "3900",
	})
	rec := env.do(t, http.MethodPost, "/api/v1/trades/", tokenA, body)
	require.Equal(t, http.StatusCreated, rec.Code)

	rec = env.do(t, http.MethodGet, "/api/v1/trades", tokenB, nil)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.JSONEq(t, "[]", rec.Body.String())
}
