package yelp

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"menuharvest-backend/lib/telemetry"

	"dario.cat/mergo"
	"github.com/go-resty/resty/v2"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/codes"
	"golang.org/x/time/rate"
)

var tracer = otel.Tracer("scrapers/yelp")

// the search endpoint caps page size at 50
const maxPageSize = 50

type Category struct {
	Alias string `json:"alias"`
	Title string `json:"title"`
}

type Location struct {
	DisplayAddress []string `json:"display_address"`
}

// Business is a single listing from the directory API. rating,
// review_count and price are not guaranteed to be present, so they
// stay behind pointers instead of collapsing to zero values.
type Business struct {
	ID          string     `json:"id"`
	Name        string     `json:"name"`
	Rating      *float64   `json:"rating"`
	ReviewCount *int64     `json:"review_count"`
	Price       *string    `json:"price"`
	Categories  []Category `json:"categories"`
	Location    Location   `json:"location"`
	Phone       string     `json:"phone"`
	URL         string     `json:"url"`
}

type searchResponse struct {
	Businesses []Business `json:"businesses"`
}

type ClientOptions struct {
	// BaseUrl defaults to the public API host.
	BaseUrl string
	ApiKey  string
	// PageSize is clamped to the API maximum of 50.
	PageSize int
	// PageInterval spaces out successive search page requests.
	PageInterval time.Duration
}

type Client struct {
	http     *resty.Client
	pageSize int
	limiter  *rate.Limiter
}

func NewClient(opts ClientOptions) *Client {
	if opts.BaseUrl == "" {
		opts.BaseUrl = "https://api.yelp.com"
	}
	if opts.PageSize <= 0 || opts.PageSize > maxPageSize {
		opts.PageSize = maxPageSize
	}
	if opts.PageInterval <= 0 {
		opts.PageInterval = time.Second
	}

	client := resty.New()
	client.SetBaseURL(opts.BaseUrl)
	client.SetHeader("Authorization", fmt.Sprintf("Bearer %s", opts.ApiKey))
	client.SetHeader("Accept", "application/json")
	client.SetTimeout(time.Second * 30)

	telemetry.InstrumentResty(client, "scrapers/yelp/http")

	return &Client{
		http:     client,
		pageSize: opts.PageSize,
		limiter:  rate.NewLimiter(rate.Every(opts.PageInterval), 1),
	}
}

// SearchBatch pages through the search endpoint until totalLimit
// businesses were collected or a page comes back empty. A failed page
// is logged and treated as empty for that offset, the next offset is
// still attempted. The result may hold fewer than totalLimit entries.
func (c *Client) SearchBatch(ctx context.Context, location string, totalLimit int) []Business {
	ctx, span := tracer.Start(ctx, "client:SearchBatch")
	defer span.End()

	numPages := (totalLimit + c.pageSize - 1) / c.pageSize
	slog.InfoContext(
		ctx, "starting batch search",
		"location", location,
		"total_limit", totalLimit,
		"pages", numPages,
	)

	var all []Business
	for page := 0; page < numPages; page++ {
		limit := c.pageSize
		if remaining := totalLimit - len(all); remaining < limit {
			limit = remaining
		}
		if limit <= 0 {
			break
		}
		offset := page * c.pageSize

		err := c.limiter.Wait(ctx)
		if err != nil {
			span.SetStatus(codes.Error, "cancelled while waiting between pages")
			return all
		}

		slog.InfoContext(
			ctx, "fetching page",
			"page", page+1,
			"pages", numPages,
			"offset", offset,
			"limit", limit,
		)
		businesses, err := c.searchPage(ctx, location, limit, offset)
		if err != nil {
			slog.WarnContext(ctx, "failed to fetch page", "offset", offset, "err", err)
			continue
		}
		if len(businesses) == 0 {
			slog.InfoContext(ctx, "page came back empty, stopping", "offset", offset)
			break
		}

		all = append(all, businesses...)
		slog.InfoContext(ctx, "page fetched", "count", len(businesses), "total", len(all))
	}

	slog.InfoContext(ctx, "batch search complete", "total", len(all))
	return all
}

func (c *Client) searchPage(ctx context.Context, location string, limit, offset int) ([]Business, error) {
	var out searchResponse
	res, err := c.http.R().
		SetContext(ctx).
		SetQueryParams(map[string]string{
			"term":       "restaurants",
			"location":   location,
			"limit":      fmt.Sprint(limit),
			"offset":     fmt.Sprint(offset),
			"categories": "restaurants",
		}).
		SetResult(&out).
		Get("/v3/businesses/search")
	if err != nil {
		return nil, err
	}
	if res.IsError() {
		return nil, fmt.Errorf("search returned status %d", res.StatusCode())
	}
	return out.Businesses, nil
}

// Details fetches the full record for a single business. Callers treat
// a failure as "no extra detail" and keep going with the summary.
func (c *Client) Details(ctx context.Context, id string) (Business, error) {
	ctx, span := tracer.Start(ctx, "client:Details")
	defer span.End()

	var out Business
	res, err := c.http.R().
		SetContext(ctx).
		SetResult(&out).
		Get(fmt.Sprintf("/v3/businesses/%s", id))
	if err != nil {
		span.SetStatus(codes.Error, "failed to fetch details")
		return Business{}, err
	}
	if res.IsError() {
		span.SetStatus(codes.Error, "details returned an error status")
		return Business{}, fmt.Errorf("details returned status %d", res.StatusCode())
	}
	return out, nil
}

// Merge lays the detail record over the search summary field by field,
// detail values win wherever they are set.
func Merge(summary, detail Business) Business {
	merged := summary
	err := mergo.Merge(&merged, detail, mergo.WithOverride)
	if err != nil {
		slog.Warn("failed to merge detail record", "id", summary.ID, "err", err)
		return summary
	}
	return merged
}
