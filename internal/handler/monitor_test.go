package handler

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/gin-gonic/gin"

	"polyedge/internal/refresh"
)

type stubRefresher struct {
	snap *refresh.Snapshot
	err  error
}

func (s *stubRefresher) Refresh(context.Context, string) (*refresh.Snapshot, error) {
	if s.err != nil {
		return nil, s.err
	}
	return s.snap, nil
}

func (s *stubRefresher) Current() *refresh.Snapshot {
	return s.snap
}

func testSnapshot() *refresh.Snapshot {
	roi := 0.25
	return &refresh.Snapshot{
		RunID:       7,
		GeneratedAt: time.Date(2026, 1, 15, 12, 0, 0, 0, time.UTC),
		TriggeredBy: "cron",
		Instruments: []refresh.InstrumentView{{
			Ticker:    "NVDA",
			Name:      "NVIDIA",
			SpotPrice: 182.5,
			Contracts: []refresh.ContractView{{Question: "Will NVDA be above $150 in January 2026?"}},
		}},
		Opportunities: []refresh.OpportunityView{{
			Rank:        1,
			Ticker:      "NVDA",
			StrikePrice: 150,
			Side:        "YES",
			ROI:         &roi,
		}},
	}
}

func setupRouter(ref RefreshService) *gin.Engine {
	gin.SetMode(gin.TestMode)
	r := gin.New()
	h := &MonitorHandler{Refresher: ref}
	h.Register(r)
	return r
}

func doRequest(t *testing.T, r *gin.Engine, method, path string) (*httptest.ResponseRecorder, apiResponse) {
	t.Helper()
	req := httptest.NewRequest(method, path, nil)
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)
	var resp apiResponse
	if err := json.Unmarshal(w.Body.Bytes(), &resp); err != nil {
		t.Fatalf("decode response: %v (%s)", err, w.Body.String())
	}
	return w, resp
}

func TestListOpportunities(t *testing.T) {
	r := setupRouter(&stubRefresher{snap: testSnapshot()})
	w, resp := doRequest(t, r, http.MethodGet, "/api/v1/opportunities")
	if w.Code != http.StatusOK {
		t.Fatalf("status = %d, want 200", w.Code)
	}
	if resp.Meta["runId"] == nil || resp.Meta["triggeredBy"] != "cron" {
		t.Fatalf("meta = %v, want run metadata", resp.Meta)
	}
	rows, ok := resp.Data.([]any)
	if !ok || len(rows) != 1 {
		t.Fatalf("data = %v, want one opportunity", resp.Data)
	}
}

func TestOpportunitiesBeforeFirstCycle(t *testing.T) {
	r := setupRouter(&stubRefresher{snap: nil})
	w, _ := doRequest(t, r, http.MethodGet, "/api/v1/opportunities")
	if w.Code != http.StatusServiceUnavailable {
		t.Fatalf("status = %d, want 503", w.Code)
	}
}

func TestTriggerRefreshBusy(t *testing.T) {
	r := setupRouter(&stubRefresher{err: refresh.ErrBusy})
	w, resp := doRequest(t, r, http.MethodPost, "/api/v1/refresh")
	if w.Code != http.StatusConflict {
		t.Fatalf("status = %d, want 409", w.Code)
	}
	if resp.Message != "refresh already in progress" {
		t.Fatalf("message = %q", resp.Message)
	}
}

func TestTriggerRefresh(t *testing.T) {
	r := setupRouter(&stubRefresher{snap: testSnapshot()})
	w, resp := doRequest(t, r, http.MethodPost, "/api/v1/refresh")
	if w.Code != http.StatusOK {
		t.Fatalf("status = %d, want 200", w.Code)
	}
	data, ok := resp.Data.(map[string]any)
	if !ok {
		t.Fatalf("data = %v", resp.Data)
	}
	if data["opportunities"] != float64(1) || data["instruments"] != float64(1) {
		t.Fatalf("summary = %v", data)
	}
}

func TestGetInstrument(t *testing.T) {
	r := setupRouter(&stubRefresher{snap: testSnapshot()})
	w, resp := doRequest(t, r, http.MethodGet, "/api/v1/instruments/nvda")
	if w.Code != http.StatusOK {
		t.Fatalf("status = %d, want 200", w.Code)
	}
	data, ok := resp.Data.(map[string]any)
	if !ok || data["ticker"] != "NVDA" {
		t.Fatalf("data = %v, want NVDA view", resp.Data)
	}
	contracts, ok := data["contracts"].([]any)
	if !ok || len(contracts) != 1 {
		t.Fatalf("contracts = %v, want 1", data["contracts"])
	}

	w, _ = doRequest(t, r, http.MethodGet, "/api/v1/instruments/ZZZZ")
	if w.Code != http.StatusNotFound {
		t.Fatalf("status = %d, want 404 for untracked ticker", w.Code)
	}
}

func TestListInstrumentsOmitsContracts(t *testing.T) {
	r := setupRouter(&stubRefresher{snap: testSnapshot()})
	w, resp := doRequest(t, r, http.MethodGet, "/api/v1/instruments")
	if w.Code != http.StatusOK {
		t.Fatalf("status = %d, want 200", w.Code)
	}
	rows, ok := resp.Data.([]any)
	if !ok || len(rows) != 1 {
		t.Fatalf("data = %v", resp.Data)
	}
	row := rows[0].(map[string]any)
	if row["contracts"] != float64(1) {
		t.Fatalf("contracts = %v, want count 1", row["contracts"])
	}
}

func TestListRunsWithoutRepo(t *testing.T) {
	r := setupRouter(&stubRefresher{snap: testSnapshot()})
	w, _ := doRequest(t, r, http.MethodGet, "/api/v1/runs")
	if w.Code != http.StatusServiceUnavailable {
		t.Fatalf("status = %d, want 503 without a repository", w.Code)
	}
}
