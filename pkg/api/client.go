// Package api is the typed client for the OrderFood backend. The backend's
// contract is REST-ish JSON; this layer never interprets responses beyond
// decoding declared fields. A call succeeds only when the HTTP status is
// 2xx AND the body carries no application error field; both layers are
// checked before success is declared.
package api

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/url"
	"strings"
	"time"
)

// RequestError is a failed backend call: a transport error, a non-2xx
// status, or a 2xx body carrying an error field.
type RequestError struct {
	Status  int // 0 for transport-level failures
	Message string
}

func (e *RequestError) Error() string {
	if e.Status != 0 {
		return fmt.Sprintf("api: HTTP %d: %s", e.Status, e.Message)
	}
	return "api: " + e.Message
}

// Client talks to the OrderFood backend.
type Client struct {
	base   *url.URL
	http   *http.Client
	logger *slog.Logger
}

// New creates a client for the backend at baseURL.
func New(baseURL string, logger *slog.Logger) (*Client, error) {
	u, err := url.Parse(baseURL)
	if err != nil {
		return nil, fmt.Errorf("api: parse base url: %w", err)
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &Client{
		base:   u,
		http:   &http.Client{Timeout: 15 * time.Second},
		logger: logger,
	}, nil
}

// WithHTTPClient replaces the underlying http.Client (tests, custom
// transports).
func (c *Client) WithHTTPClient(hc *http.Client) *Client {
	c.http = hc
	return c
}

// do performs one backend call. out may be nil for endpoints where a 2xx
// status is the whole success signal.
func (c *Client) do(ctx context.Context, method, path string, body, out any) error {
	// The path may carry a query string. url.URL escapes a "?" left inside
	// Path, so the query has to travel in RawQuery.
	path, rawQuery, _ := strings.Cut(path, "?")
	u := *c.base
	u.Path = strings.TrimRight(u.Path, "/") + path
	u.RawQuery = rawQuery

	var reader io.Reader
	if body != nil {
		buf, err := json.Marshal(body)
		if err != nil {
			return fmt.Errorf("api: encode body: %w", err)
		}
		reader = bytes.NewReader(buf)
	}

	req, err := http.NewRequestWithContext(ctx, method, u.String(), reader)
	if err != nil {
		return fmt.Errorf("api: build request: %w", err)
	}
	req.Header.Set("Accept", "application/json")
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}

	resp, err := c.http.Do(req)
	if err != nil {
		return &RequestError{Message: err.Error()}
	}
	defer resp.Body.Close()

	raw, err := io.ReadAll(io.LimitReader(resp.Body, 1<<20))
	if err != nil {
		return &RequestError{Status: resp.StatusCode, Message: err.Error()}
	}

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return &RequestError{Status: resp.StatusCode, Message: errorMessage(raw)}
	}

	if out != nil && len(raw) > 0 {
		if err := json.Unmarshal(raw, out); err != nil {
			return &RequestError{Status: resp.StatusCode, Message: "malformed response: " + err.Error()}
		}
	}

	// Second layer: a 2xx body may still declare failure.
	if carrier, ok := out.(errorCarrier); ok {
		if msg := carrier.apiError(); msg != "" {
			return &RequestError{Status: resp.StatusCode, Message: msg}
		}
	}
	return nil
}

// errorMessage extracts the error field from a failure body, falling back
// to the raw text.
func errorMessage(raw []byte) string {
	var env struct {
		Err string `json:"error"`
	}
	if json.Unmarshal(raw, &env) == nil && env.Err != "" {
		return env.Err
	}
	msg := strings.TrimSpace(string(raw))
	if msg == "" {
		return "request failed"
	}
	return msg
}

// ---- Admin moderation ----

// ApproveRestaurant approves a pending restaurant.
func (c *Client) ApproveRestaurant(ctx context.Context, id string) (*StatusResult, error) {
	out := &StatusResult{}
	if err := c.do(ctx, http.MethodPatch, "/admin/restaurants/"+id+"/approve", nil, out); err != nil {
		return nil, err
	}
	return out, nil
}

// RejectRestaurant rejects a pending restaurant with the given reason.
func (c *Client) RejectRestaurant(ctx context.Context, id, reason string) (*StatusResult, error) {
	out := &StatusResult{}
	body := map[string]string{"reason": reason}
	if err := c.do(ctx, http.MethodPatch, "/admin/restaurants/"+id+"/reject", body, out); err != nil {
		return nil, err
	}
	return out, nil
}

// DeleteCustomer removes a customer account. A 2xx status is the success
// signal; the body is empty.
func (c *Client) DeleteCustomer(ctx context.Context, id string) error {
	return c.do(ctx, http.MethodDelete, "/admin/"+id+"/delete_customer", nil, nil)
}

// DeleteOwner removes a restaurant-owner account.
func (c *Client) DeleteOwner(ctx context.Context, id string) error {
	return c.do(ctx, http.MethodDelete, "/admin/"+id+"/delete_owner", nil, nil)
}

// ---- Cart ----

// AddCartItem adds a dish to the cart and returns the authoritative cart
// aggregate.
func (c *Client) AddCartItem(ctx context.Context, item CartItemInput) (*CartSummary, error) {
	out := &CartSummary{}
	if err := c.do(ctx, http.MethodPost, "/api/cart", item, out); err != nil {
		return nil, err
	}
	return out, nil
}

// UpdateCartItem changes the quantity of a cart line.
func (c *Client) UpdateCartItem(ctx context.Context, id string, quantity int) (*CartSummary, error) {
	out := &CartSummary{}
	body := map[string]int{"quantity": quantity}
	if err := c.do(ctx, http.MethodPut, "/api/cart/"+id, body, out); err != nil {
		return nil, err
	}
	return out, nil
}

// RemoveCartItem deletes a cart line.
func (c *Client) RemoveCartItem(ctx context.Context, id string) (*CartSummary, error) {
	out := &CartSummary{}
	if err := c.do(ctx, http.MethodDelete, "/api/cart/"+id, nil, out); err != nil {
		return nil, err
	}
	return out, nil
}

// ---- Owner orders ----

// ApproveOrder accepts a pending order.
func (c *Client) ApproveOrder(ctx context.Context, id string) (*OrderResult, error) {
	out := &OrderResult{}
	if err := c.do(ctx, http.MethodPost, "/owner/orders/"+id+"/approve", nil, out); err != nil {
		return nil, err
	}
	return out, nil
}

// CancelOrder cancels a pending order with the given reason.
func (c *Client) CancelOrder(ctx context.Context, id, reason string) (*OrderResult, error) {
	out := &OrderResult{}
	body := map[string]string{"reason": reason}
	if err := c.do(ctx, http.MethodPost, "/owner/orders/"+id+"/cancel", body, out); err != nil {
		return nil, err
	}
	return out, nil
}

// ---- Notifications ----

// NotificationFeed fetches the feed and the authoritative unread count.
func (c *Client) NotificationFeed(ctx context.Context) (*Feed, error) {
	out := &Feed{}
	if err := c.do(ctx, http.MethodGet, "/notifications/feed", nil, out); err != nil {
		return nil, err
	}
	return out, nil
}

// MarkRead marks one notification as read.
func (c *Client) MarkRead(ctx context.Context, id string) error {
	return c.do(ctx, http.MethodPost, "/notifications/mark-read/"+id, nil, nil)
}

// MarkAllRead marks every notification as read.
func (c *Client) MarkAllRead(ctx context.Context) error {
	return c.do(ctx, http.MethodPost, "/notifications/mark-all-read", nil, nil)
}

// ---- Charts ----

// AdminTransactions fetches the monthly successful-transaction counts.
func (c *Client) AdminTransactions(ctx context.Context) (*TransactionStats, error) {
	out := &TransactionStats{}
	if err := c.do(ctx, http.MethodGet, "/admin/api/stats/transactions", nil, out); err != nil {
		return nil, err
	}
	return out, nil
}

// OwnerRevenue fetches the owner's revenue headline figures.
func (c *Client) OwnerRevenue(ctx context.Context, restaurantID string) (*RevenueSummary, error) {
	out := &RevenueSummary{}
	path := "/api/owner/" + restaurantID + "/stats/revenue"
	if err := c.do(ctx, http.MethodGet, path, nil, out); err != nil {
		return nil, err
	}
	return out, nil
}

// OwnerDishStats fetches the dish donut data for the selected range.
func (c *Client) OwnerDishStats(ctx context.Context, restaurantID string, r StatsRange) ([]DishStat, error) {
	var out []DishStat
	path := "/api/owner/" + restaurantID + "/stats/dishes" + r.query()
	if err := c.do(ctx, http.MethodGet, path, nil, &out); err != nil {
		return nil, err
	}
	return out, nil
}

// OwnerRevenueLine fetches the revenue line data for the selected range.
func (c *Client) OwnerRevenueLine(ctx context.Context, restaurantID string, r StatsRange) ([]RevenuePoint, error) {
	var out []RevenuePoint
	path := "/api/owner/" + restaurantID + "/stats/revenue_line" + r.query()
	if err := c.do(ctx, http.MethodGet, path, nil, &out); err != nil {
		return nil, err
	}
	return out, nil
}

func (r StatsRange) query() string {
	q := url.Values{}
	mode := r.Mode
	if mode == "" {
		mode = "day"
	}
	q.Set("mode", mode)
	if mode == "custom_month" && r.Month != "" {
		q.Set("month", r.Month)
	}
	if mode == "quarter" && r.Quarter != "" {
		q.Set("quarter", r.Quarter)
	}
	return "?" + q.Encode()
}

// ---- Owner menu and restaurant ----

// AddDish creates a menu entry.
func (c *Client) AddDish(ctx context.Context, in DishInput) (*DishResult, error) {
	out := &DishResult{}
	if err := c.do(ctx, http.MethodPost, "/owner/add_dish", in, out); err != nil {
		return nil, err
	}
	return out, nil
}

// UpdateDish updates a menu entry.
func (c *Client) UpdateDish(ctx context.Context, id string, in DishInput) (*DishResult, error) {
	out := &DishResult{}
	if err := c.do(ctx, http.MethodPost, "/owner/menu/"+id, in, out); err != nil {
		return nil, err
	}
	return out, nil
}

// DeleteDish removes a menu entry.
func (c *Client) DeleteDish(ctx context.Context, id string) (*DishResult, error) {
	out := &DishResult{}
	if err := c.do(ctx, http.MethodDelete, "/owner/menu/"+id, nil, out); err != nil {
		return nil, err
	}
	return out, nil
}

// UpdateRestaurant saves the owner's restaurant settings.
func (c *Client) UpdateRestaurant(ctx context.Context, s RestaurantSettings) error {
	out := &SuccessResult{}
	return c.do(ctx, http.MethodPost, "/owner/restaurant/update", s, out)
}

// RegisterRestaurant submits a new restaurant registration; the created
// entry starts in PENDING moderation state.
func (c *Client) RegisterRestaurant(ctx context.Context, in RegisterInput) error {
	out := &SuccessResult{}
	return c.do(ctx, http.MethodPost, "/owner/res_register", in, out)
}
