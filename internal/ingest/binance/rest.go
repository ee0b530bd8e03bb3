package binance

import (
	"context"
	"net/http"
	"strings"
	"time"

	"github.com/bytedance/sonic"
	"github.com/yanun0323/errors"
	"github.com/yanun0323/logs"

	"cryptoflow/internal/model"
	"cryptoflow/pkg/exception"
)

const _restTimeout = 15 * time.Second

// Client reads public REST market statistics.
type Client struct {
	client  *http.Client
	baseURL string
}

func NewClient(client *http.Client, baseURL string) *Client {
	if client == nil {
		client = http.DefaultClient
	}
	if baseURL == "" {
		baseURL = DefaultRestURL
	}
	return &Client{
		client:  client,
		baseURL: strings.TrimRight(baseURL, "/"),
	}
}

// Tickers24h returns the 24h rolling statistics of every symbol.
// Rows that fail to normalize are skipped.
func (c *Client) Tickers24h(ctx context.Context) ([]model.TickerSummary, error) {
	ctx, cancel := context.WithTimeout(ctx, _restTimeout)
	defer cancel()

	r, err := http.NewRequestWithContext(ctx, http.MethodGet, c.baseURL+"/api/v3/ticker/24hr", nil)
	if err != nil {
		return nil, errors.Wrap(err, "new request")
	}

	resp, err := c.client.Do(r)
	if err != nil {
		return nil, errors.Wrap(exception.ErrSourceUnavailable, err.Error())
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, errors.Wrap(exception.ErrSourceUnavailable, "ticker 24hr").With("status", resp.StatusCode)
	}

	var raws []Ticker24h
	if err := sonic.ConfigFastest.NewDecoder(resp.Body).Decode(&raws); err != nil {
		return nil, decodeErr(err)
	}

	result := make([]model.TickerSummary, 0, len(raws))
	skipped := 0
	for _, raw := range raws {
		t, err := NormalizeTicker24h(raw)
		if err != nil {
			skipped++
			continue
		}
		result = append(result, t)
	}
	if skipped > 0 {
		logs.Warnf("binance rest: skipped %d malformed 24h ticker rows", skipped)
	}

	return result, nil
}
