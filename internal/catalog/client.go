// Package catalog reads product snapshots and their stored predictions from the catalog API.
package catalog

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/rewired-gh/merchscore/internal/logger"
	"github.com/rewired-gh/merchscore/internal/models"
	"github.com/shopspring/decimal"
)

// ErrClientStatus is returned for 4xx responses, which are not retried.
var ErrClientStatus = errors.New("catalog rejected request")

// Client provides access to the catalog API
type Client struct {
	baseURL        string
	pageSize       int
	maxRetries     int
	retryDelayBase time.Duration
	httpClient     *http.Client
}

// productPage is one page of GET /api/analytics/products.
type productPage struct {
	Content []productRow `json:"content"`
	Last    bool         `json:"last"`
}

// productRow is the wire form of a product. Decimal fields accept JSON numbers or strings.
type productRow struct {
	ASIN         string          `json:"asin"`
	Name         string          `json:"productName"`
	Category     string          `json:"category"`
	ImageURL     string          `json:"imageUrl"`
	SellerID     int64           `json:"sellerId"`
	SellerName   string          `json:"sellerName"`
	Price        decimal.Decimal `json:"price"`
	Rating       decimal.Decimal `json:"rating"`
	ReviewsCount int             `json:"reviewsCount"`
	SalesCount   int             `json:"salesCount"`
	CurrentRank  int             `json:"currentRank"`

	BestsellerProbability decimal.NullDecimal `json:"bestsellerProbability"`
	ConfidenceLevel       string              `json:"confidenceLevel"`
	PredictedTrend        string              `json:"predictedTrend"`
	TrendConfidence       decimal.NullDecimal `json:"trendConfidence"`

	UpdatedAt string `json:"updatedAt"`
}

// NewClient creates a new catalog client
func NewClient(baseURL string, pageSize int, timeout time.Duration, maxRetries int, retryDelayBase time.Duration) *Client {
	return &Client{
		baseURL:        strings.TrimRight(baseURL, "/"),
		pageSize:       pageSize,
		maxRetries:     maxRetries,
		retryDelayBase: retryDelayBase,
		httpClient: &http.Client{
			Timeout: timeout,
		},
	}
}

// FetchProducts pages through the whole catalog. Rows that fail validation are logged and
// dropped so one bad row does not block the refresh.
func (c *Client) FetchProducts(ctx context.Context) ([]models.Product, error) {
	var products []models.Product

	for page := 0; ; page++ {
		u, err := url.Parse(c.baseURL + "/api/analytics/products")
		if err != nil {
			return nil, fmt.Errorf("failed to parse URL: %w", err)
		}
		q := u.Query()
		q.Set("page", strconv.Itoa(page))
		q.Set("size", strconv.Itoa(c.pageSize))
		u.RawQuery = q.Encode()

		var p productPage
		if err := c.getJSON(ctx, u.String(), &p); err != nil {
			return nil, fmt.Errorf("failed to fetch products page %d: %w", page, err)
		}

		for _, row := range p.Content {
			product := row.toProduct()
			if err := product.Validate(); err != nil {
				logger.Warn("Dropping catalog product %q: %v", row.ASIN, err)
				continue
			}
			products = append(products, product)
		}

		if p.Last || len(p.Content) == 0 {
			break
		}
	}

	logger.Debug("Fetched %d products from catalog", len(products))
	return products, nil
}

func (r productRow) toProduct() models.Product {
	p := models.Product{
		ASIN:                  r.ASIN,
		Name:                  r.Name,
		Category:              r.Category,
		ImageURL:              r.ImageURL,
		SellerID:              r.SellerID,
		SellerName:            r.SellerName,
		Price:                 r.Price,
		Rating:                r.Rating,
		ReviewsCount:          r.ReviewsCount,
		SalesCount:            r.SalesCount,
		CurrentRank:           r.CurrentRank,
		BestsellerProbability: r.BestsellerProbability,
		BestsellerConfidence:  strings.ToUpper(r.ConfidenceLevel),
		PredictedTrend:        strings.ToUpper(r.PredictedTrend),
		TrendConfidence:       r.TrendConfidence,
	}
	if t, ok := parseTimestamp(r.UpdatedAt); ok {
		p.UpdatedAt = t
	}
	return p
}

// parseTimestamp accepts RFC 3339 and the zone-less ISO form emitted by the catalog.
func parseTimestamp(s string) (time.Time, bool) {
	for _, layout := range []string{time.RFC3339Nano, "2006-01-02T15:04:05.999999999"} {
		if t, err := time.Parse(layout, s); err == nil {
			return t, true
		}
	}
	return time.Time{}, false
}

func (c *Client) getJSON(ctx context.Context, urlStr string, out any) error {
	resp, err := c.doRequest(ctx, urlStr)
	if err != nil {
		return err
	}
	defer resp.Body.Close()

	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return fmt.Errorf("failed to decode response: %w", err)
	}
	return nil
}

// doRequest performs HTTP request with retry logic
func (c *Client) doRequest(ctx context.Context, urlStr string) (*http.Response, error) {
	var lastErr error

	for i := 0; i < c.maxRetries; i++ {
		if i > 0 {
			if err := c.backoff(ctx, i); err != nil {
				return nil, err
			}
		}

		req, err := http.NewRequestWithContext(ctx, http.MethodGet, urlStr, nil)
		if err != nil {
			return nil, err
		}
		req.Header.Set("Accept", "application/json")

		resp, err := c.httpClient.Do(req)
		if err != nil {
			if ctx.Err() != nil {
				return nil, ctx.Err()
			}
			lastErr = err
			continue
		}

		if resp.StatusCode >= 500 {
			resp.Body.Close()
			lastErr = fmt.Errorf("server error: %d", resp.StatusCode)
			continue
		}
		if resp.StatusCode >= 400 {
			body, _ := io.ReadAll(io.LimitReader(resp.Body, 512))
			resp.Body.Close()
			return nil, fmt.Errorf("%w: status %d: %s", ErrClientStatus, resp.StatusCode, strings.TrimSpace(string(body)))
		}

		return resp, nil
	}

	return nil, fmt.Errorf("max retries exceeded: %w", lastErr)
}

func (c *Client) backoff(ctx context.Context, attempt int) error {
	timer := time.NewTimer(time.Duration(attempt) * c.retryDelayBase)
	defer timer.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-timer.C:
		return nil
	}
}
