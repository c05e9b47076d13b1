package handlers

import (
	"bufio"
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync/atomic"
	"testing"
	"time"

	"github.com/gin-gonic/gin"

	apperrors "goldfolio/internal/errors"
	"goldfolio/internal/holdings"
	"goldfolio/internal/services"
)

type mockPortfolioService struct {
	holdingsFn   func(userID string) ([]holdings.Position, error)
	summaryFn    func(userID string) (*services.PortfolioSummary, error)
	projectionFn func(userID, symbol string, quantity, price float64) (*services.ProjectionResult, error)
	snapshotFn   func(userID string) (*services.Snapshot, error)

	updates   chan struct{}
	cancelled chan struct{}
}

func newMockPortfolioService() *mockPortfolioService {
	return &mockPortfolioService{
		updates:   make(chan struct{}, 1),
		cancelled: make(chan struct{}),
	}
}

func (m *mockPortfolioService) Holdings(_ context.Context, userID string) ([]holdings.Position, error) {
	if m.holdingsFn != nil {
		return m.holdingsFn(userID)
	}
	return []holdings.Position{}, nil
}

func (m *mockPortfolioService) Summary(_ context.Context, userID string) (*services.PortfolioSummary, error) {
	if m.summaryFn != nil {
		return m.summaryFn(userID)
	}
	return &services.PortfolioSummary{}, nil
}

func (m *mockPortfolioService) Projection(_ context.Context, userID, symbol string, quantity, price float64) (*services.ProjectionResult, error) {
	if m.projectionFn != nil {
		return m.projectionFn(userID, symbol, quantity, price)
	}
	return &services.ProjectionResult{}, nil
}

func (m *mockPortfolioService) Snapshot(_ context.Context, userID string) (*services.Snapshot, error) {
	if m.snapshotFn != nil {
		return m.snapshotFn(userID)
	}
	return &services.Snapshot{}, nil
}

func (m *mockPortfolioService) Subscribe(_ string) (<-chan struct{}, func()) {
	var once atomic.Bool
	return m.updates, func() {
		if once.CompareAndSwap(false, true) {
			close(m.cancelled)
		}
	}
}

func setupPortfolioRouter(handler *PortfolioHandler) *gin.Engine {
	r := gin.New()
	auth := r.Group("/portfolio", injectUserID(testUserID))
	auth.GET("/holdings", handler.GetHoldings)
	auth.GET("/summary", handler.GetSummary)
	auth.POST("/projection", handler.Project)
	auth.GET("/stream", handler.Stream)
	return r
}

func TestPortfolioHandler_GetHoldings(t *testing.T) {
	svc := newMockPortfolioService()
	svc.holdingsFn = func(userID string) ([]holdings.Position, error) {
		if userID != testUserID {
			t.Errorf("unexpected user %s", userID)
		}
		return []holdings.Position{{Symbol: "GOLDBEES", Quantity: 15, TotalInvested: 900, AvgPrice: 60, RealizedPnL: 100}}, nil
	}
	r := setupPortfolioRouter(NewPortfolioHandler(svc, time.Second))

	rec := doRequest(r, "GET", "/portfolio/holdings", "")
	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", rec.Code)
	}
	list := parseJSON(t, rec)["holdings"].([]interface{})
	pos := list[0].(map[string]interface{})
	if pos["symbol"] != "GOLDBEES" || pos["avg_price"].(float64) != 60 || pos["realized_pnl"].(float64) != 100 {
		t.Errorf("unexpected position: %v", pos)
	}

	svc.holdingsFn = func(string) ([]holdings.Position, error) {
		return nil, apperrors.Wrap(apperrors.ErrInternalServer, errors.New("db down"))
	}
	rec = doRequest(r, "GET", "/portfolio/holdings", "")
	if rec.Code != http.StatusInternalServerError {
		t.Fatalf("expected 500, got %d", rec.Code)
	}
	if strings.Contains(rec.Body.String(), "db down") {
		t.Error("internal error details must not leak")
	}
}

func TestPortfolioHandler_GetSummary(t *testing.T) {
	svc := newMockPortfolioService()
	svc.summaryFn = func(string) (*services.PortfolioSummary, error) {
		return &services.PortfolioSummary{
			Summary:  holdings.Summary{TotalInvested: 1200, TotalUnits: 17, TopAsset: "GOLDBEES", OpenPositions: 2},
			Currency: "INR",
			Display:  services.SummaryDisplay{TotalInvested: "₹1,200.00", RealizedPnL: "+₹100.00"},
		}, nil
	}
	r := setupPortfolioRouter(NewPortfolioHandler(svc, time.Second))

	rec := doRequest(r, "GET", "/portfolio/summary", "")
	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", rec.Code)
	}
	result := parseJSON(t, rec)
	if result["total_invested"].(float64) != 1200 || result["top_asset"] != "GOLDBEES" {
		t.Errorf("expected flattened summary fields, got %v", result)
	}
	display := result["display"].(map[string]interface{})
	if display["total_invested"] != "₹1,200.00" {
		t.Errorf("unexpected display: %v", display)
	}
}

func TestPortfolioHandler_Project(t *testing.T) {
	t.Run("returns 200", func(t *testing.T) {
		svc := newMockPortfolioService()
		svc.projectionFn = func(_, symbol string, quantity, price float64) (*services.ProjectionResult, error) {
			return &services.ProjectionResult{
				Projection: holdings.Projection{Symbol: symbol, Quantity: quantity, Price: price, Cost: 300, Revenue: 400, Profit: 100, ROIPct: 33.33},
			}, nil
		}
		r := setupPortfolioRouter(NewPortfolioHandler(svc, time.Second))

		rec := doRequest(r, "POST", "/portfolio/projection", `{"symbol":"GOLDBEES","quantity":5,"price":80}`)
		if rec.Code != http.StatusOK {
			t.Fatalf("expected 200, got %d: %s", rec.Code, rec.Body.String())
		}
		result := parseJSON(t, rec)
		if result["profit"].(float64) != 100 || result["symbol"] != "GOLDBEES" {
			t.Errorf("unexpected projection: %v", result)
		}
	})

	t.Run("maps service errors", func(t *testing.T) {
		for _, tc := range []struct {
			err    error
			status int
			code   string
		}{
			{apperrors.Wrap(apperrors.ErrExceedsHolding, holdings.ErrExceedsHolding), http.StatusBadRequest, "EXCEEDS_HOLDING"},
			{apperrors.ErrPositionNotFound, http.StatusNotFound, "POSITION_NOT_FOUND"},
		} {
			svc := newMockPortfolioService()
			svc.projectionFn = func(string, string, float64, float64) (*services.ProjectionResult, error) {
				return nil, tc.err
			}
			r := setupPortfolioRouter(NewPortfolioHandler(svc, time.Second))
			rec := doRequest(r, "POST", "/portfolio/projection", `{"symbol":"GOLDBEES","quantity":50,"price":80}`)
			if rec.Code != tc.status {
				t.Fatalf("expected %d, got %d", tc.status, rec.Code)
			}
			assertErrorCode(t, parseJSON(t, rec), tc.code)
		}
	})

	t.Run("returns 400 on invalid body", func(t *testing.T) {
		r := setupPortfolioRouter(NewPortfolioHandler(newMockPortfolioService(), time.Second))
		for _, body := range []string{
			`{"quantity":5,"price":80}`,
			`{"symbol":"GOLDBEES","quantity":0,"price":80}`,
			`{"symbol":"GOLDBEES","quantity":5,"price":-1}`,
		} {
			rec := doRequest(r, "POST", "/portfolio/projection", body)
			if rec.Code != http.StatusBadRequest {
				t.Errorf("%s: expected 400, got %d", body, rec.Code)
			}
		}
	})
}

// readEvent reads one SSE frame and returns its event name and data. Comment
// frames are returned with the event name ":".
func readEvent(t *testing.T, r *bufio.Reader) (string, string) {
	t.Helper()
	var event, data string
	for {
		line, err := r.ReadString('\n')
		if err != nil {
			t.Fatalf("read stream: %v", err)
		}
		line = strings.TrimRight(line, "\n")
		switch {
		case line == "":
			if event != "" || data != "" {
				return event, data
			}
		case strings.HasPrefix(line, ":"):
			event = ":"
		case strings.HasPrefix(line, "event:"):
			event = strings.TrimSpace(strings.TrimPrefix(line, "event:"))
		case strings.HasPrefix(line, "data:"):
			data += strings.TrimSpace(strings.TrimPrefix(line, "data:"))
		}
	}
}

func TestPortfolioHandler_Stream(t *testing.T) {
	svc := newMockPortfolioService()
	var calls atomic.Int32
	svc.snapshotFn = func(string) (*services.Snapshot, error) {
		n := calls.Add(1)
		return &services.Snapshot{
			Holdings: []holdings.Position{{Symbol: "GOLDBEES", Quantity: float64(n)}},
		}, nil
	}
	server := httptest.NewServer(setupPortfolioRouter(NewPortfolioHandler(svc, time.Hour)))
	defer server.Close()

	resp, err := http.Get(server.URL + "/portfolio/stream")
	if err != nil {
		t.Fatalf("connect: %v", err)
	}
	if ct := resp.Header.Get("Content-Type"); !strings.HasPrefix(ct, "text/event-stream") {
		t.Errorf("expected event stream, got %q", ct)
	}
	reader := bufio.NewReader(resp.Body)

	event, data := readEvent(t, reader)
	if event != "snapshot" {
		t.Fatalf("expected initial snapshot, got %q", event)
	}
	var snap services.Snapshot
	if err := json.Unmarshal([]byte(data), &snap); err != nil {
		t.Fatalf("decode snapshot: %v", err)
	}
	if len(snap.Holdings) != 1 || snap.Holdings[0].Quantity != 1 {
		t.Errorf("unexpected initial snapshot: %+v", snap)
	}

	svc.updates <- struct{}{}
	event, data = readEvent(t, reader)
	if event != "snapshot" {
		t.Fatalf("expected snapshot after change, got %q", event)
	}
	if err := json.Unmarshal([]byte(data), &snap); err != nil {
		t.Fatalf("decode snapshot: %v", err)
	}
	if snap.Holdings[0].Quantity != 2 {
		t.Errorf("expected refreshed snapshot, got %+v", snap)
	}

	resp.Body.Close()
	select {
	case <-svc.cancelled:
	case <-time.After(2 * time.Second):
		t.Fatal("expected subscription to be cancelled after disconnect")
	}
}

func TestPortfolioHandler_StreamKeepaliveAndErrors(t *testing.T) {
	svc := newMockPortfolioService()
	svc.snapshotFn = func(string) (*services.Snapshot, error) {
		return nil, apperrors.Wrap(apperrors.ErrInternalServer, errors.New("db down"))
	}
	server := httptest.NewServer(setupPortfolioRouter(NewPortfolioHandler(svc, 20*time.Millisecond)))
	defer server.Close()

	resp, err := http.Get(server.URL + "/portfolio/stream")
	if err != nil {
		t.Fatalf("connect: %v", err)
	}
	defer resp.Body.Close()
	reader := bufio.NewReader(resp.Body)

	event, data := readEvent(t, reader)
	if event != "error" || !strings.Contains(data, "INTERNAL_ERROR") {
		t.Fatalf("expected error event, got %q %q", event, data)
	}
	if strings.Contains(data, "db down") {
		t.Error("internal error details must not leak")
	}

	event, _ = readEvent(t, reader)
	if event != ":" {
		t.Fatalf("expected keepalive comment, got %q", event)
	}
}

func TestPortfolioHandler_StreamRequiresAuth(t *testing.T) {
	r := gin.New()
	r.GET("/portfolio/stream", NewPortfolioHandler(newMockPortfolioService(), time.Second).Stream)
	rec := doRequest(r, "GET", "/portfolio/stream", "")
	if rec.Code != http.StatusUnauthorized {
		t.Fatalf("expected 401, got %d", rec.Code)
	}
}
