package bingx

import (
	"bytes"
	"context"
	"crypto/hmac"
	"crypto/sha256"
	"encoding/hex"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"sort"
	"strconv"
	"strings"
	"time"

	"github.com/goccy/go-json"
	"github.com/peter-kozarec/botplatform/pkg/common"
	"github.com/peter-kozarec/botplatform/pkg/exchange"
	"github.com/peter-kozarec/botplatform/pkg/utility/fixed"
	"go.uber.org/zap"
)

const (
	clientComponentName = "exchange.bingx.client"

	pricePath = "/openApi/swap/v2/quote/price"
	orderPath = "/openApi/swap/v2/trade/order"

	defaultRequestTimeout = 5 * time.Second
)

var ErrHTTPStatus = errors.New("unexpected http status")

// APIError is returned when the exchange answers with a non-zero code.
type APIError struct {
	Code int
	Msg  string
}

func (e *APIError) Error() string {
	return fmt.Sprintf("bingx api error %d: %s", e.Code, e.Msg)
}

type ClientOption func(*Client)

func WithHTTPClient(httpClient *http.Client) ClientOption {
	return func(c *Client) {
		c.httpClient = httpClient
	}
}

func WithRequestTimeout(timeout time.Duration) ClientOption {
	return func(c *Client) {
		c.timeout = timeout
	}
}

func WithClientClock(clock func() time.Time) ClientOption {
	return func(c *Client) {
		c.clock = clock
	}
}

// Client is a minimal signed REST client for the perpetual swap API.
type Client struct {
	logger     *zap.Logger
	httpClient *http.Client
	baseURL    string
	apiKey     string
	secret     []byte
	timeout    time.Duration
	clock      func() time.Time
}

func NewClient(logger *zap.Logger, apiKey, apiSecret, baseURL string, options ...ClientOption) *Client {
	c := &Client{
		logger:     logger.Named(clientComponentName),
		httpClient: http.DefaultClient,
		baseURL:    strings.TrimRight(baseURL, "/"),
		apiKey:     apiKey,
		secret:     []byte(apiSecret),
		timeout:    defaultRequestTimeout,
		clock:      time.Now,
	}

	for _, option := range options {
		option(c)
	}

	return c
}

// GetPrice returns the latest price of symbol.
func (c *Client) GetPrice(ctx context.Context, symbol string) (fixed.Point, error) {
	resp, err := c.request(ctx, http.MethodGet, pricePath, map[string]string{"symbol": symbol}, false)
	if err != nil {
		return fixed.Zero, fmt.Errorf("unable to get %s price: %w", symbol, err)
	}

	raw, ok := lookup(resp, "data", "price")
	if !ok || raw == nil {
		raw, ok = resp["price"]
	}
	if !ok || raw == nil {
		return fixed.Zero, &exchange.ResponseError{Op: "get price", Field: "price", Payload: resp}
	}

	price, ok := pointFromAny(raw)
	if !ok {
		return fixed.Zero, &exchange.ResponseError{Op: "get price", Field: "price", Payload: resp}
	}
	return price, nil
}

// PlaceOrder submits an order and returns the decoded response body.
func (c *Client) PlaceOrder(ctx context.Context, intent common.OrderIntent) (map[string]any, error) {
	orderType := intent.Type
	if orderType == "" {
		orderType = common.OrderTypeMarket
	}

	params := map[string]string{
		"symbol":   intent.Symbol,
		"side":     string(intent.Side),
		"quantity": intent.Size.String(),
		"type":     string(orderType),
	}
	if intent.ClientID != "" {
		params["clientOrderID"] = intent.ClientID
	}
	if intent.Price != nil && orderType == common.OrderTypeLimit {
		params["price"] = intent.Price.String()
	}

	resp, err := c.request(ctx, http.MethodPost, orderPath, params, true)
	if err != nil {
		return nil, fmt.Errorf("unable to place order %s: %w", intent.ClientID, err)
	}
	return resp, nil
}

// Sign returns the hex HMAC-SHA256 of the params joined as k=v pairs in key order.
func (c *Client) Sign(params map[string]string) string {
	mac := hmac.New(sha256.New, c.secret)
	mac.Write([]byte(canonicalQuery(params)))
	return hex.EncodeToString(mac.Sum(nil))
}

func (c *Client) request(ctx context.Context, method, path string, params map[string]string, signed bool) (map[string]any, error) {
	ctx, cancel := context.WithTimeout(ctx, c.timeout)
	defer cancel()

	values := make(map[string]string, len(params)+2)
	for k, v := range params {
		values[k] = v
	}
	if signed {
		values["timestamp"] = strconv.FormatInt(c.clock().UnixMilli(), 10)
		values["signature"] = c.Sign(values)
	}

	form := url.Values{}
	for k, v := range values {
		form.Set(k, v)
	}

	var (
		req *http.Request
		err error
	)
	if method == http.MethodGet {
		req, err = http.NewRequestWithContext(ctx, method, c.baseURL+path+"?"+form.Encode(), nil)
	} else {
		req, err = http.NewRequestWithContext(ctx, method, c.baseURL+path, strings.NewReader(form.Encode()))
	}
	if err != nil {
		return nil, err
	}
	req.Header.Set("X-BX-APIKEY", c.apiKey)
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")

	res, err := c.httpClient.Do(req)
	if err != nil {
		return nil, err
	}
	defer func() { _ = res.Body.Close() }()

	body, err := io.ReadAll(res.Body)
	if err != nil {
		return nil, err
	}

	if res.StatusCode >= http.StatusBadRequest {
		return nil, fmt.Errorf("%w: %s %s: %d %s", ErrHTTPStatus, method, path, res.StatusCode, strings.TrimSpace(string(body)))
	}

	var out map[string]any
	if err := decode(body, &out); err != nil {
		return nil, &exchange.ResponseError{Op: path, Field: "body", Payload: string(body)}
	}

	if code, ok := out["code"]; ok {
		if n, ok := int64FromAny(code); ok && n != 0 {
			msg, _ := out["msg"].(string)
			return nil, &APIError{Code: int(n), Msg: msg}
		}
	}

	c.logger.Debug("response", zap.String("method", method), zap.String("path", path), zap.Int("status", res.StatusCode))
	return out, nil
}

func canonicalQuery(params map[string]string) string {
	keys := make([]string, 0, len(params))
	for k := range params {
		keys = append(keys, k)
	}
	sort.Strings(keys)

	var sb strings.Builder
	for i, k := range keys {
		if i > 0 {
			sb.WriteByte('&')
		}
		sb.WriteString(k)
		sb.WriteByte('=')
		sb.WriteString(params[k])
	}
	return sb.String()
}

func lookup(m map[string]any, path ...string) (any, bool) {
	var cur any = m
	for _, key := range path {
		obj, ok := cur.(map[string]any)
		if !ok {
			return nil, false
		}
		cur, ok = obj[key]
		if !ok {
			return nil, false
		}
	}
	return cur, true
}

// decode keeps numbers as json.Number. Order ids exceed the float64 mantissa.
func decode(data []byte, v any) error {
	dec := json.NewDecoder(bytes.NewReader(data))
	dec.UseNumber()
	return dec.Decode(v)
}

func pointFromAny(v any) (fixed.Point, bool) {
	switch t := v.(type) {
	case string:
		p, err := fixed.Parse(t)
		return p, err == nil
	case json.Number:
		p, err := fixed.Parse(t.String())
		return p, err == nil
	default:
		return fixed.Zero, false
	}
}

func stringFromAny(v any) (string, bool) {
	switch t := v.(type) {
	case string:
		return t, t != ""
	case json.Number:
		return t.String(), t != ""
	default:
		return "", false
	}
}

func int64FromAny(v any) (int64, bool) {
	switch t := v.(type) {
	case json.Number:
		n, err := t.Int64()
		return n, err == nil
	case string:
		n, err := strconv.ParseInt(t, 10, 64)
		return n, err == nil
	default:
		return 0, false
	}
}
