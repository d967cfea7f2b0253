// Package rest is an HTTP client for the brokerage execution gateway. The
// gateway bridges to the actual trading venue; this client only speaks its
// small JSON API.
package rest

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/rustyeddy/turtle/broker"
	"github.com/rustyeddy/turtle/market"
)

type Client struct {
	BaseURL string // e.g. http://127.0.0.1:8787
	Token   string
	HTTP    *http.Client

	// Aliases maps canonical symbols to the venue's names, e.g.
	// "XAUUSD" -> "GOLD". Responses are mapped back.
	Aliases map[string]string
}

func New(baseURL, token string) *Client {
	return &Client{
		BaseURL: strings.TrimRight(baseURL, "/"),
		Token:   token,
		HTTP:    &http.Client{Timeout: 15 * time.Second},
	}
}

func (c *Client) Connect(ctx context.Context) error {
	var out struct {
		Connected bool `json:"connected"`
	}
	if err := c.get(ctx, "/v1/ping", nil, &out); err != nil {
		return fmt.Errorf("gateway connect: %w", err)
	}
	if !out.Connected {
		return fmt.Errorf("gateway connect: venue not connected")
	}
	return nil
}

type wireBar struct {
	Time   time.Time `json:"time"`
	Open   float64   `json:"open"`
	High   float64   `json:"high"`
	Low    float64   `json:"low"`
	Close  float64   `json:"close"`
	Volume float64   `json:"volume"`
}

func (c *Client) GetHistoricalData(ctx context.Context, symbol string, tf market.Timeframe, barCount int) ([]market.Bar, error) {
	var out struct {
		Bars []wireBar `json:"bars"`
	}
	err := c.get(ctx, "/v1/bars", map[string]string{
		"symbol":    c.alias(symbol),
		"timeframe": string(tf),
		"count":     strconv.Itoa(barCount),
	}, &out)
	if err != nil {
		return nil, err
	}

	bars := make([]market.Bar, len(out.Bars))
	for i, b := range out.Bars {
		bars[i] = market.Bar(b)
	}
	return bars, nil
}

func (c *Client) GetQuote(ctx context.Context, symbol string) (market.Quote, error) {
	var out struct {
		Bid  float64   `json:"bid"`
		Ask  float64   `json:"ask"`
		Time time.Time `json:"time"`
	}
	err := c.get(ctx, "/v1/quote", map[string]string{"symbol": c.alias(symbol)}, &out)
	if err != nil {
		return market.Quote{}, err
	}
	return market.Quote{Symbol: symbol, Bid: out.Bid, Ask: out.Ask, Time: out.Time}, nil
}

func (c *Client) GetAccountSnapshot(ctx context.Context) (broker.Account, error) {
	var out broker.Account
	if err := c.get(ctx, "/v1/account", nil, &out); err != nil {
		return broker.Account{}, err
	}
	return out, nil
}

type wirePosition struct {
	Ticket     int64     `json:"ticket"`
	Symbol     string    `json:"symbol"`
	Direction  string    `json:"direction"`
	Volume     float64   `json:"volume"`
	EntryPrice float64   `json:"entry_price"`
	StopLoss   float64   `json:"stop_loss"`
	OpenTime   time.Time `json:"open_time"`
}

func (c *Client) GetOpenPositions(ctx context.Context, symbol string) ([]broker.PositionInfo, error) {
	opts := map[string]string{}
	if symbol != "" {
		opts["symbol"] = c.alias(symbol)
	}
	var out struct {
		Positions []wirePosition `json:"positions"`
	}
	if err := c.get(ctx, "/v1/positions", opts, &out); err != nil {
		return nil, err
	}

	infos := make([]broker.PositionInfo, len(out.Positions))
	for i, p := range out.Positions {
		infos[i] = broker.PositionInfo{
			Ticket:     strconv.FormatInt(p.Ticket, 10),
			Symbol:     c.unalias(p.Symbol),
			Direction:  p.Direction,
			Volume:     p.Volume,
			EntryPrice: p.EntryPrice,
			StopLoss:   p.StopLoss,
			OpenTime:   p.OpenTime,
		}
	}
	return infos, nil
}

func (c *Client) PlaceOrder(ctx context.Context, req broker.OrderRequest) (broker.Fill, error) {
	body := map[string]any{
		"symbol":      c.alias(req.Symbol),
		"direction":   req.Direction,
		"volume":      req.Volume,
		"stop_loss":   req.StopLoss,
		"take_profit": req.TakeProfit,
		"comment":     req.Comment,
	}
	var out struct {
		Ticket int64     `json:"ticket"`
		Price  float64   `json:"price"`
		Time   time.Time `json:"time"`
	}
	if err := c.post(ctx, "/v1/orders", body, &out); err != nil {
		return broker.Fill{}, err
	}
	if out.Ticket == 0 {
		return broker.Fill{}, fmt.Errorf("order rejected by gateway")
	}
	return broker.Fill{
		Ticket: strconv.FormatInt(out.Ticket, 10),
		Symbol: req.Symbol,
		Volume: req.Volume,
		Price:  out.Price,
		Time:   out.Time,
	}, nil
}

func (c *Client) ModifyPosition(ctx context.Context, ticket string, stopLoss, takeProfit float64) error {
	body := map[string]any{
		"stop_loss":   stopLoss,
		"take_profit": takeProfit,
	}
	return c.post(ctx, "/v1/positions/"+ticket+"/modify", body, nil)
}

func (c *Client) ClosePosition(ctx context.Context, ticket string, volume float64, comment string) error {
	body := map[string]any{
		"volume":  volume,
		"comment": comment,
	}
	return c.post(ctx, "/v1/positions/"+ticket+"/close", body, nil)
}

func (c *Client) alias(symbol string) string {
	if a, ok := c.Aliases[symbol]; ok {
		return a
	}
	return symbol
}

func (c *Client) unalias(venue string) string {
	for sym, a := range c.Aliases {
		if a == venue {
			return sym
		}
	}
	return venue
}

func (c *Client) get(ctx context.Context, path string, opts map[string]string, out any) error {
	u, err := url.Parse(c.BaseURL)
	if err != nil {
		return err
	}
	u.Path = path

	q := u.Query()
	for k, v := range opts {
		q.Set(k, v)
	}
	u.RawQuery = q.Encode()

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, u.String(), nil)
	if err != nil {
		return err
	}
	return c.do(req, out)
}

func (c *Client) post(ctx context.Context, path string, body any, out any) error {
	buf, err := json.Marshal(body)
	if err != nil {
		return err
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.BaseURL+path, bytes.NewReader(buf))
	if err != nil {
		return err
	}
	req.Header.Set("Content-Type", "application/json")
	return c.do(req, out)
}

func (c *Client) do(req *http.Request, out any) error {
	if c.Token != "" {
		req.Header.Set("Authorization", "Bearer "+c.Token)
	}

	httpClient := c.HTTP
	if httpClient == nil {
		httpClient = http.DefaultClient
	}

	resp, err := httpClient.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		b, _ := io.ReadAll(io.LimitReader(resp.Body, 64*1024))
		return fmt.Errorf("gateway http %d: %s", resp.StatusCode, strings.TrimSpace(string(b)))
	}
	if out == nil {
		return nil
	}
	return json.NewDecoder(resp.Body).Decode(out)
}
