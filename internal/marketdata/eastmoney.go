package marketdata

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/shopspring/decimal"
	"go.uber.org/zap"

	"fundwatch/internal/models"
)

const (
	defaultHistoryURL  = "https://api.fund.eastmoney.com/f10/lsjz"
	defaultEstimateURL = "https://fundgz.1234567.com.cn/js"
	defaultReferer     = "https://fundf10.eastmoney.com/"

	// Open-end fund NAVs publish between 16:00 and 23:00 on trading days;
	// anything older than this is flagged stale.
	staleAfter = 7 * 24 * time.Hour
)

// EastMoneyClient reads fund NAVs from the eastmoney.com fund endpoints.
// Responses are JSON for history and a jsonp-wrapped blob for the intraday
// estimate feed.
type EastMoneyClient struct {
	HTTP   *http.Client
	Logger *zap.Logger

	HistoryURL  string
	EstimateURL string

	Now func() time.Time
}

func NewEastMoneyClient(timeout time.Duration, logger *zap.Logger) *EastMoneyClient {
	if timeout <= 0 {
		timeout = 30 * time.Second
	}
	return &EastMoneyClient{
		HTTP:        &http.Client{Timeout: timeout},
		Logger:      logger,
		HistoryURL:  defaultHistoryURL,
		EstimateURL: defaultEstimateURL,
		Now:         func() time.Time { return time.Now().UTC() },
	}
}

var _ Provider = (*EastMoneyClient)(nil)

func (c *EastMoneyClient) Source() models.DataSource { return models.DataSourceEastMoney }

type lsjzResponse struct {
	Data struct {
		LSJZList []struct {
			FSRQ  string `json:"FSRQ"`  // nav date
			DWJZ  string `json:"DWJZ"`  // unit nav
			LJJZ  string `json:"LJJZ"`  // accumulated nav
			JZZZL string `json:"JZZZL"` // daily change pct
		} `json:"LSJZList"`
		TotalCount int `json:"TotalCount"`
	} `json:"Data"`
	ErrCode int    `json:"ErrCode"`
	ErrMsg  string `json:"ErrMsg"`
}

type estimatePayload struct {
	FundCode string `json:"fundcode"`
	Name     string `json:"name"`
	NavDate  string `json:"jzrq"`
	UnitNav  string `json:"dwjz"`
}

func (c *EastMoneyClient) FetchFundInfo(ctx context.Context, fundCode string) (*FundInfo, error) {
	est, err := c.fetchEstimate(ctx, fundCode)
	if err != nil {
		return nil, err
	}
	name := strings.TrimSpace(est.Name)
	if name == "" {
		name = "fund " + fundCode
	}
	return &FundInfo{
		FundCode: fundCode,
		Name:     name,
		FundType: models.FundTypeMutual,
		Currency: "CNY",
	}, nil
}

// FetchLatestNAV returns the most recent published end-of-day NAV. The
// intraday estimate feed is deliberately not used as a NAV source; only
// the history endpoint carries settled values.
func (c *EastMoneyClient) FetchLatestNAV(ctx context.Context, fundCode string) (*NAV, error) {
	rows, err := c.fetchHistoryPage(ctx, fundCode, time.Time{}, time.Time{}, 1)
	if err != nil {
		return nil, err
	}
	if len(rows) == 0 {
		return nil, &AdapterError{
			Message:     fmt.Sprintf("no nav data for fund %s", fundCode),
			CanFallback: true,
		}
	}
	return &rows[0], nil
}

func (c *EastMoneyClient) FetchNAVHistory(ctx context.Context, fundCode string, start, end time.Time) ([]NAV, error) {
	rows, err := c.fetchHistoryPage(ctx, fundCode, start, end, 0)
	if err != nil {
		return nil, err
	}
	// The endpoint serves newest-first; callers want ascending.
	for i, j := 0, len(rows)-1; i < j; i, j = i+1, j-1 {
		rows[i], rows[j] = rows[j], rows[i]
	}
	return rows, nil
}

func (c *EastMoneyClient) HealthCheck(ctx context.Context) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.HistoryURL, nil)
	if err != nil {
		return err
	}
	req.Header.Set("Referer", defaultReferer)
	resp, err := c.HTTP.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()
	if resp.StatusCode >= http.StatusInternalServerError {
		return fmt.Errorf("eastmoney unhealthy: status %d", resp.StatusCode)
	}
	return nil
}

func (c *EastMoneyClient) fetchHistoryPage(ctx context.Context, fundCode string, start, end time.Time, pageSize int) ([]NAV, error) {
	fundCode = strings.TrimSpace(fundCode)
	if fundCode == "" {
		return nil, &AdapterError{Message: "fund code is empty", CanFallback: false}
	}
	if pageSize <= 0 {
		pageSize = 100
	}

	q := url.Values{}
	q.Set("fundCode", fundCode)
	q.Set("pageIndex", "1")
	q.Set("pageSize", strconv.Itoa(pageSize))
	if !start.IsZero() {
		q.Set("startDate", start.Format("2006-01-02"))
	}
	if !end.IsZero() {
		q.Set("endDate", end.Format("2006-01-02"))
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.HistoryURL+"?"+q.Encode(), nil)
	if err != nil {
		return nil, err
	}
	req.Header.Set("Referer", defaultReferer)

	resp, err := c.HTTP.Do(req)
	if err != nil {
		return nil, &AdapterError{
			Message:     fmt.Sprintf("fetch nav history for %s", fundCode),
			CanFallback: true,
			Err:         err,
		}
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		return nil, &AdapterError{
			Message:     fmt.Sprintf("fetch nav history for %s: status %d", fundCode, resp.StatusCode),
			CanFallback: true,
		}
	}

	var body lsjzResponse
	if err := json.NewDecoder(resp.Body).Decode(&body); err != nil {
		return nil, &AdapterError{
			Message:     fmt.Sprintf("decode nav history for %s", fundCode),
			CanFallback: true,
			Err:         err,
		}
	}
	if body.ErrCode != 0 {
		return nil, &AdapterError{
			Message:     fmt.Sprintf("nav history for %s: %s", fundCode, body.ErrMsg),
			CanFallback: true,
		}
	}

	now := c.Now()
	out := make([]NAV, 0, len(body.Data.LSJZList))
	for _, row := range body.Data.LSJZList {
		navDate, err := time.Parse("2006-01-02", row.FSRQ)
		if err != nil {
			if c.Logger != nil {
				c.Logger.Warn("skipping nav row with bad date",
					zap.String("fund_code", fundCode),
					zap.String("nav_date", row.FSRQ),
				)
			}
			continue
		}
		nav, err := decimal.NewFromString(strings.TrimSpace(row.DWJZ))
		if err != nil {
			continue
		}

		flags := []models.QualityFlag{models.QualityOK}
		if !nav.IsPositive() {
			flags = append(flags, models.QualityMissingFields)
		}
		if now.Sub(navDate) > staleAfter {
			flags = append(flags, models.QualityStale)
		}

		item := NAV{
			FundCode:      fundCode,
			NavDate:       navDate,
			Nav:           nav,
			Source:        models.DataSourceEastMoney,
			LastUpdatedAt: now,
			QualityFlags:  flags,
		}
		if acc, err := decimal.NewFromString(strings.TrimSpace(row.LJJZ)); err == nil {
			item.AccNav = &acc
		}
		if pct, err := strconv.ParseFloat(strings.TrimSpace(row.JZZZL), 64); err == nil {
			item.DailyPct = &pct
		}
		out = append(out, item)
	}
	return out, nil
}

// fetchEstimate reads the jsonp estimate feed, used only for fund metadata.
func (c *EastMoneyClient) fetchEstimate(ctx context.Context, fundCode string) (*estimatePayload, error) {
	fundCode = strings.TrimSpace(fundCode)
	if fundCode == "" {
		return nil, &AdapterError{Message: "fund code is empty", CanFallback: false}
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, fmt.Sprintf("%s/%s.js", c.EstimateURL, fundCode), nil)
	if err != nil {
		return nil, err
	}
	req.Header.Set("Referer", defaultReferer)

	resp, err := c.HTTP.Do(req)
	if err != nil {
		return nil, &AdapterError{
			Message:     fmt.Sprintf("fetch fund info for %s", fundCode),
			CanFallback: true,
			Err:         err,
		}
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		return nil, &AdapterError{
			Message:     fmt.Sprintf("fetch fund info for %s: status %d", fundCode, resp.StatusCode),
			CanFallback: true,
		}
	}

	buf, err := io.ReadAll(io.LimitReader(resp.Body, 1<<16))
	if err != nil {
		return nil, &AdapterError{
			Message:     fmt.Sprintf("read fund info for %s", fundCode),
			CanFallback: true,
			Err:         err,
		}
	}

	// Payload looks like jsonpgz({...});
	raw := string(buf)
	lparen := strings.Index(raw, "(")
	rparen := strings.LastIndex(raw, ")")
	if lparen < 0 || rparen <= lparen {
		return nil, &AdapterError{
			Message:     fmt.Sprintf("fund info for %s: unexpected payload", fundCode),
			CanFallback: true,
		}
	}

	var payload estimatePayload
	if err := json.Unmarshal([]byte(raw[lparen+1:rparen]), &payload); err != nil {
		return nil, &AdapterError{
			Message:     fmt.Sprintf("decode fund info for %s", fundCode),
			CanFallback: true,
			Err:         err,
		}
	}
	return &payload, nil
}
