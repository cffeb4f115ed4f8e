package marketdata

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"fundwatch/internal/models"
)

const lsjzBody = `{
  "Data": {
    "LSJZList": [
      {"FSRQ": "2024-01-26", "DWJZ": "1.2345", "LJJZ": "3.4567", "JZZZL": "0.52"},
      {"FSRQ": "2024-01-25", "DWJZ": "1.2281", "LJJZ": "3.4503", "JZZZL": "-0.13"}
    ],
    "TotalCount": 2
  },
  "ErrCode": 0,
  "ErrMsg": null
}`

func newTestClient(t *testing.T, handler http.HandlerFunc) (*EastMoneyClient, *httptest.Server) {
	t.Helper()
	srv := httptest.NewServer(handler)
	t.Cleanup(srv.Close)

	c := NewEastMoneyClient(5*time.Second, nil)
	c.HistoryURL = srv.URL
	c.EstimateURL = srv.URL
	c.Now = func() time.Time { return time.Date(2024, 1, 27, 0, 0, 0, 0, time.UTC) }
	return c, srv
}

func TestFetchNAVHistoryAscending(t *testing.T) {
	c, _ := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Query().Get("fundCode") != "110011" {
			t.Errorf("fundCode = %q", r.URL.Query().Get("fundCode"))
		}
		w.Header().Set("Content-Type", "application/json")
		w.Write([]byte(lsjzBody))
	})

	rows, err := c.FetchNAVHistory(context.Background(), "110011", time.Time{}, time.Time{})
	if err != nil {
		t.Fatalf("fetch: %v", err)
	}
	if len(rows) != 2 {
		t.Fatalf("got %d rows, want 2", len(rows))
	}
	if !rows[0].NavDate.Before(rows[1].NavDate) {
		t.Fatalf("history not ascending: %v then %v", rows[0].NavDate, rows[1].NavDate)
	}
	if rows[1].Nav.String() != "1.2345" {
		t.Fatalf("nav = %s, want 1.2345", rows[1].Nav)
	}
	if rows[1].DailyPct == nil || *rows[1].DailyPct != 0.52 {
		t.Fatalf("daily pct not parsed")
	}
	if rows[0].Source != models.DataSourceEastMoney {
		t.Fatalf("source = %s", rows[0].Source)
	}
}

func TestFetchLatestNAV(t *testing.T) {
	c, _ := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(lsjzBody))
	})

	nav, err := c.FetchLatestNAV(context.Background(), "110011")
	if err != nil {
		t.Fatalf("fetch: %v", err)
	}
	if nav.NavDate.Format("2006-01-02") != "2024-01-26" {
		t.Fatalf("latest nav date = %v", nav.NavDate)
	}
}

func TestFetchLatestNAVEmpty(t *testing.T) {
	c, _ := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(`{"Data": {"LSJZList": [], "TotalCount": 0}, "ErrCode": 0}`))
	})

	_, err := c.FetchLatestNAV(context.Background(), "110011")
	if err == nil {
		t.Fatalf("expected error for empty history")
	}
	adapterErr, ok := err.(*AdapterError)
	if !ok {
		t.Fatalf("expected *AdapterError, got %T", err)
	}
	if !adapterErr.CanFallback {
		t.Fatalf("empty data should allow fallback")
	}
}

func TestFetchFundInfoJSONP(t *testing.T) {
	c, _ := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(`jsonpgz({"fundcode":"110011","name":"Test Fund","jzrq":"2024-01-26","dwjz":"1.2345"});`))
	})

	info, err := c.FetchFundInfo(context.Background(), "110011")
	if err != nil {
		t.Fatalf("fetch: %v", err)
	}
	if info.Name != "Test Fund" {
		t.Fatalf("name = %q", info.Name)
	}
	if info.Currency != "CNY" {
		t.Fatalf("currency = %q", info.Currency)
	}
}

func TestQualityFlagsStale(t *testing.T) {
	c, _ := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(`{"Data": {"LSJZList": [{"FSRQ": "2023-06-01", "DWJZ": "1.0", "LJJZ": "1.0", "JZZZL": "0"}], "TotalCount": 1}, "ErrCode": 0}`))
	})

	nav, err := c.FetchLatestNAV(context.Background(), "110011")
	if err != nil {
		t.Fatalf("fetch: %v", err)
	}
	found := false
	for _, flag := range nav.QualityFlags {
		if flag == models.QualityStale {
			found = true
		}
	}
	if !found {
		t.Fatalf("months-old nav not flagged stale: %v", nav.QualityFlags)
	}
}
