package quote

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"time"

	"github.com/rustyeddy/paperstock/market"
)

// DefaultPollingURL is the realtime quote endpoint of the Naver finance
// polling API. Symbols are six-digit KRX item codes.
const DefaultPollingURL = "https://polling.finance.naver.com/api/realtime"

const userAgent = "Mozilla/5.0 (Windows NT 10.0; Win64; x64) AppleWebKit/537.36 (KHTML, like Gecko) Chrome/126.0.0.0 Safari/537.36"

// NaverClient fetches realtime quotes from the Naver finance polling API.
// The endpoint is unofficial: responses are treated as untrusted and
// normalized into market.Quote at this boundary.
type NaverClient struct {
	baseURL    string
	httpClient *http.Client
}

// NewNaverClient creates a client with the given request timeout. An empty
// baseURL selects DefaultPollingURL.
func NewNaverClient(baseURL string, timeout time.Duration) *NaverClient {
	if baseURL == "" {
		baseURL = DefaultPollingURL
	}
	return &NaverClient{
		baseURL: baseURL,
		httpClient: &http.Client{
			Timeout: timeout,
		},
	}
}

// naverItem is one entry of the polling response. Field names are the
// provider's abbreviations: nv = now value, cv = change value, cr = change
// rate, nm = item name, pc = previous close.
type naverItem struct {
	Code      string  `json:"cd"`
	Name      string  `json:"nm"`
	Now       int64   `json:"nv"`
	PrevClose int64   `json:"pc"`
	Change    int64   `json:"cv"`
	Rate      float64 `json:"cr"`
}

type naverResponse struct {
	ResultCode string `json:"resultCode"`
	Result     struct {
		Areas []struct {
			Datas []naverItem `json:"datas"`
		} `json:"areas"`
	} `json:"result"`
}

// Fetch retrieves the current quote for a six-digit KRX item code.
func (c *NaverClient) Fetch(ctx context.Context, symbol string) (market.Quote, error) {
	apiURL := fmt.Sprintf("%s?query=SERVICE_ITEM:%s", c.baseURL, symbol)

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, apiURL, nil)
	if err != nil {
		return market.Quote{}, fmt.Errorf("create request: %w", err)
	}
	req.Header.Set("User-Agent", userAgent)
	req.Header.Set("Referer", "https://m.stock.naver.com")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return market.Quote{}, fmt.Errorf("execute request: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return market.Quote{}, fmt.Errorf("quote API status %d", resp.StatusCode)
	}

	var apiResp naverResponse
	if err := json.NewDecoder(resp.Body).Decode(&apiResp); err != nil {
		return market.Quote{}, fmt.Errorf("decode response: %w", err)
	}

	var item *naverItem
	for _, area := range apiResp.Result.Areas {
		if len(area.Datas) > 0 {
			item = &area.Datas[0]
			break
		}
	}
	if item == nil || item.Now <= 0 {
		return market.Quote{}, fmt.Errorf("no quote data for %s", symbol)
	}

	change := item.Change
	if change == 0 && item.PrevClose > 0 {
		change = item.Now - item.PrevClose
	}

	return market.Quote{
		Symbol:    symbol,
		Name:      item.Name,
		Price:     item.Now,
		Change:    change,
		ChangePct: item.Rate,
		AsOf:      time.Now(),
	}, nil
}
