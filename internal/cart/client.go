package cart

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"time"

	"github.com/shopspring/decimal"

	"github.com/otonielcp/eagles-fc-website-sub000/internal/domain"
	apperrors "github.com/otonielcp/eagles-fc-website-sub000/pkg/errors"
	"github.com/otonielcp/eagles-fc-website-sub000/pkg/httpclient"
)

// doer is the subset of the HTTP client used by the cart client. Both
// httpclient.Client and httpclient.CircuitBreakerClient satisfy it.
type doer interface {
	Do(ctx context.Context, req *http.Request) (*http.Response, error)
}

// Client is an HTTP implementation of Store against the cart service.
type Client struct {
	http    doer
	baseURL string
}

// NewClient creates a cart client. baseURL is the cart service root, e.g.
// "http://cart:8080".
func NewClient(httpClient doer, baseURL string) *Client {
	return &Client{http: httpClient, baseURL: baseURL}
}

type cartItemDTO struct {
	ProductID string          `json:"product_id"`
	Title     string          `json:"title"`
	ImageURL  string          `json:"image_url"`
	UnitPrice decimal.Decimal `json:"unit_price"`
	Quantity  int             `json:"quantity"`
}

type cartResponse struct {
	Data struct {
		Items []cartItemDTO `json:"items"`
	} `json:"data"`
}

// Get fetches the user's cart and returns it as an immutable snapshot.
func (c *Client) Get(ctx context.Context, userID string) (*domain.CartSnapshot, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.baseURL+"/api/v1/cart", http.NoBody)
	if err != nil {
		return nil, fmt.Errorf("create cart request: %w", err)
	}
	req.Header.Set("X-User-ID", userID)

	resp, err := c.http.Do(ctx, req)
	if err != nil {
		if errors.Is(err, httpclient.ErrCircuitOpen) {
			return nil, apperrors.ServiceUnavailable("cart service is unavailable")
		}
		return nil, fmt.Errorf("fetch cart: %w", err)
	}
	defer func() { _ = resp.Body.Close() }()

	if resp.StatusCode != http.StatusOK {
		return nil, httpclient.ParseResponseError(resp, "cart service")
	}

	var body cartResponse
	if err := json.NewDecoder(resp.Body).Decode(&body); err != nil {
		return nil, fmt.Errorf("decode cart response: %w", err)
	}

	items := make([]domain.CartLineItem, 0, len(body.Data.Items))
	for _, item := range body.Data.Items {
		items = append(items, domain.CartLineItem{
			ID:        item.ProductID,
			Title:     item.Title,
			ImageURL:  item.ImageURL,
			UnitPrice: item.UnitPrice,
			Quantity:  item.Quantity,
		})
	}

	return &domain.CartSnapshot{
		Items:      items,
		CapturedAt: time.Now().UTC(),
	}, nil
}

// Clear empties the user's cart.
func (c *Client) Clear(ctx context.Context, userID string) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodDelete, c.baseURL+"/api/v1/cart", http.NoBody)
	if err != nil {
		return fmt.Errorf("create clear cart request: %w", err)
	}
	req.Header.Set("X-User-ID", userID)

	resp, err := c.http.Do(ctx, req)
	if err != nil {
		if errors.Is(err, httpclient.ErrCircuitOpen) {
			return apperrors.ServiceUnavailable("cart service is unavailable")
		}
		return fmt.Errorf("clear cart: %w", err)
	}
	defer func() { _ = resp.Body.Close() }()

	if resp.StatusCode != http.StatusOK && resp.StatusCode != http.StatusNoContent {
		return httpclient.ParseResponseError(resp, "cart service")
	}

	return nil
}
