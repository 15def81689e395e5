package client

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"sync"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/trogers1052/stock-sniper-dashboard/internal/models"
)

type recordedRequest struct {
	Method string
	Path   string
	Query  string
	Body   string
}

type fakeService struct {
	mu       sync.Mutex
	requests []recordedRequest
	routes   map[string]func(w http.ResponseWriter)
}

func newFakeService(t *testing.T) (*fakeService, *httptest.Server) {
	t.Helper()
	fs := &fakeService{routes: map[string]func(w http.ResponseWriter){}}
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		body, _ := io.ReadAll(r.Body)
		fs.mu.Lock()
		fs.requests = append(fs.requests, recordedRequest{
			Method: r.Method,
			Path:   r.URL.Path,
			Query:  r.URL.Query().Get("tickers"),
			Body:   string(body),
		})
		handler, ok := fs.routes[r.Method+" "+r.URL.Path]
		fs.mu.Unlock()

		if !ok {
			http.NotFound(w, r)
			return
		}
		handler(w)
	}))
	t.Cleanup(srv.Close)
	return fs, srv
}

func (fs *fakeService) handle(route, body string, status int) {
	fs.mu.Lock()
	defer fs.mu.Unlock()
	fs.routes[route] = func(w http.ResponseWriter) {
		w.WriteHeader(status)
		io.WriteString(w, body)
	}
}

func (fs *fakeService) last() recordedRequest {
	fs.mu.Lock()
	defer fs.mu.Unlock()
	return fs.requests[len(fs.requests)-1]
}

func TestClient_Picks(t *testing.T) {
	fs, srv := newFakeService(t)
	fs.handle("GET /picks", `[
		{"id":1,"ticker":"NVDA","source":"AI","date":"2025-01-02","mention_count":7,"twitter_users":["a","b"]},
		{"id":2,"ticker":"TSLA","source":"Manual","date":"2025-01-02","position_type":"short","current_price":251.3,"daily_change":-1.5}
	]`, http.StatusOK)

	c := New(Config{BaseURL: srv.URL})
	picks, err := c.Picks(context.Background())
	require.NoError(t, err)
	require.Len(t, picks, 2)

	assert.Equal(t, "NVDA", picks[0].Ticker)
	assert.Equal(t, 7, picks[0].Mentions())
	assert.Equal(t, []string{"a", "b"}, picks[0].TwitterUsers)
	assert.False(t, picks[0].CurrentPrice.Valid)

	assert.Equal(t, models.DirectionShort, picks[1].PositionType)
	assert.Equal(t, 0, picks[1].Mentions())
	require.True(t, picks[1].DailyChange.Valid)
	assert.True(t, decimal.RequireFromString("-1.5").Equal(picks[1].DailyChange.Decimal))
}

func TestClient_Positions(t *testing.T) {
	fs, srv := newFakeService(t)
	fs.handle("GET /positions", `[
		{"id":1,"ticker":"AAPL","entry_price":150,"exit_price":null,"status":"long","performance":null,"current_price":165},
		{"id":2,"ticker":"SLV","entry_price":67.10,"exit_price":68.93,"status":"closed","performance":2.73}
	]`, http.StatusOK)

	c := New(Config{BaseURL: srv.URL})
	positions, err := c.Positions(context.Background())
	require.NoError(t, err)
	require.Len(t, positions, 2)

	assert.True(t, positions[0].IsOpen())
	assert.False(t, positions[0].ExitPrice.Valid)
	assert.True(t, positions[0].CurrentPrice.Valid)
	assert.False(t, positions[1].IsOpen())
	assert.True(t, decimal.RequireFromString("68.93").Equal(positions[1].ExitPrice.Decimal))
}

func TestClient_Trades(t *testing.T) {
	fs, srv := newFakeService(t)
	fs.handle("GET /trades", `[{"id":3,"ticker":"IAU","entry_price":84.27,"exit_price":84.705,"performance":0.52,"date_closed":"2026-01-09"}]`, http.StatusOK)

	c := New(Config{BaseURL: srv.URL})
	trades, err := c.Trades(context.Background())
	require.NoError(t, err)
	require.Len(t, trades, 1)
	assert.Equal(t, "2026-01-09", trades[0].DateClosed)
}

func TestClient_EmptyAndNullBodiesAreEmptyCollections(t *testing.T) {
	fs, srv := newFakeService(t)
	fs.handle("GET /picks", "", http.StatusOK)
	fs.handle("GET /positions", "null", http.StatusOK)
	fs.handle("GET /trades", "[]", http.StatusOK)

	c := New(Config{BaseURL: srv.URL})
	ctx := context.Background()

	picks, err := c.Picks(ctx)
	require.NoError(t, err)
	assert.Empty(t, picks)

	positions, err := c.Positions(ctx)
	require.NoError(t, err)
	assert.Empty(t, positions)

	trades, err := c.Trades(ctx)
	require.NoError(t, err)
	assert.Empty(t, trades)
}

func TestClient_MalformedPayload(t *testing.T) {
	fs, srv := newFakeService(t)
	fs.handle("GET /positions", `{"not":"a list"`, http.StatusOK)

	c := New(Config{BaseURL: srv.URL})
	_, err := c.Positions(context.Background())
	require.Error(t, err)
	assert.ErrorIs(t, err, ErrMalformedPayload)
}

func TestClient_StatusError(t *testing.T) {
	fs, srv := newFakeService(t)
	fs.handle("GET /picks", "boom", http.StatusInternalServerError)

	c := New(Config{BaseURL: srv.URL})
	_, err := c.Picks(context.Background())
	require.Error(t, err)

	var statusErr *StatusError
	require.True(t, errors.As(err, &statusErr))
	assert.Equal(t, http.StatusInternalServerError, statusErr.Code)
	assert.Equal(t, "boom", statusErr.Body)
}

func TestClient_SectorsUsesSeparateBaseURL(t *testing.T) {
	_, picksSrv := newFakeService(t)
	sectors, sectorsSrv := newFakeService(t)
	sectors.handle("GET /sectors", `{"XLK":{"daily_change":1.25},"XLE":{"daily_change":null}}`, http.StatusOK)

	c := New(Config{BaseURL: picksSrv.URL, SectorsURL: sectorsSrv.URL})
	quotes, err := c.Sectors(context.Background(), []string{"XLK", "XLE", "XLU"})
	require.NoError(t, err)

	assert.Equal(t, "XLK,XLE,XLU", sectors.last().Query)
	require.Contains(t, quotes, "XLK")
	assert.True(t, decimal.RequireFromString("1.25").Equal(quotes["XLK"].DailyChange.Decimal))
	assert.False(t, quotes["XLE"].DailyChange.Valid)
	assert.NotContains(t, quotes, "XLU")
}

func TestClient_Mutations(t *testing.T) {
	fs, srv := newFakeService(t)
	fs.handle("POST /picks", `{"message":"ok"}`, http.StatusCreated)
	fs.handle("DELETE /picks/4", "", http.StatusNoContent)
	fs.handle("POST /positions", `{"message":"ok"}`, http.StatusCreated)
	fs.handle("PUT /positions/9", "{}", http.StatusOK)
	fs.handle("DELETE /positions/9", "", http.StatusNoContent)

	c := New(Config{BaseURL: srv.URL})
	ctx := context.Background()

	require.NoError(t, c.CreatePick(ctx, models.NewPick{Ticker: "AMD", Source: models.SourceManual}))
	var pick map[string]any
	require.NoError(t, json.Unmarshal([]byte(fs.last().Body), &pick))
	assert.Equal(t, "AMD", pick["ticker"])
	assert.Equal(t, "Manual", pick["source"])

	require.NoError(t, c.DeletePick(ctx, 4))
	assert.Equal(t, "/picks/4", fs.last().Path)

	require.NoError(t, c.CreatePosition(ctx, models.NewPosition{
		Ticker:     "AMD",
		EntryPrice: decimal.RequireFromString("120.5"),
		Status:     models.StatusLong,
	}))
	assert.Equal(t, http.MethodPost, fs.last().Method)

	exit := decimal.RequireFromString("130")
	require.NoError(t, c.UpdatePosition(ctx, 9, models.PositionUpdate{ExitPrice: &exit}))
	var update map[string]any
	require.NoError(t, json.Unmarshal([]byte(fs.last().Body), &update))
	assert.Contains(t, update, "exit_price")
	assert.NotContains(t, update, "status", "partial update must omit untouched fields")

	require.NoError(t, c.DeletePosition(ctx, 9))
	assert.Equal(t, http.MethodDelete, fs.last().Method)

	err := c.DeletePosition(ctx, 10)
	require.Error(t, err)
}

func TestDo(t *testing.T) {
	at := time.Date(2026, 1, 2, 15, 0, 0, 0, time.UTC)
	now := func() time.Time { return at }

	ok := Do(context.Background(), now, func(context.Context) ([]int, error) { return []int{1, 2}, nil })
	assert.True(t, ok.OK())
	assert.Equal(t, []int{1, 2}, ok.Value)
	assert.Equal(t, at, ok.FetchedAt)
	assert.Equal(t, "", ok.Reason())

	failed := Do(context.Background(), now, func(context.Context) ([]int, error) { return nil, errors.New("timeout") })
	assert.False(t, failed.OK())
	assert.Nil(t, failed.Value)
	assert.Equal(t, "timeout", failed.Reason())
}
