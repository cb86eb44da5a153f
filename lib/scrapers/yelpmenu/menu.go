package yelpmenu

import (
	"bytes"
	"context"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"menuharvest-backend/lib/telemetry"
	"menuharvest-backend/lib/textutil"

	"github.com/PuerkitoBio/goquery"
	"github.com/go-resty/resty/v2"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
)

var tracer = otel.Tracer("scrapers/yelpmenu")

// Item is one dish pulled off a menu page. PriceText stays raw here,
// normalization to a number happens at persistence time.
type Item struct {
	Name        string
	Description string
	PriceText   string
}

type ScraperOptions struct {
	// BaseUrl defaults to the public site.
	BaseUrl string
	// Localities are scanned in order against a restaurant's address
	// to pick the location slug of the menu page URL.
	Localities []string
	// DefaultLocality is used when no configured locality appears in
	// the address.
	DefaultLocality string
}

type Scraper struct {
	http            *resty.Client
	baseUrl         string
	localities      []string
	defaultLocality string
}

func NewScraper(opts ScraperOptions) *Scraper {
	if opts.BaseUrl == "" {
		opts.BaseUrl = "https://www.yelp.com"
	}

	client := resty.New()
	client.SetHeaders(map[string]string{
		"User-Agent":      "Mozilla/5.0 (Windows NT 10.0; Win64; x64) AppleWebKit/537.36 (KHTML, like Gecko) Chrome/91.0.4472.124 Safari/537.36",
		"Accept":          "text/html,application/xhtml+xml,application/xml;q=0.9,image/webp,*/*;q=0.8",
		"Accept-Language": "en-US,en;q=0.5",
	})
	client.SetTimeout(time.Second * 30)

	telemetry.InstrumentResty(client, "scrapers/yelpmenu/http")

	return &Scraper{
		http:            client,
		baseUrl:         opts.BaseUrl,
		localities:      opts.Localities,
		defaultLocality: opts.DefaultLocality,
	}
}

// ResolveMenuURL guesses the menu page URL for a restaurant from its
// name and address. The guess is not guaranteed to resolve, extraction
// has to tolerate a page that isn't there or doesn't match.
func (s *Scraper) ResolveMenuURL(name, address string) string {
	locality := s.defaultLocality
	lowered := strings.ToLower(address)
	for _, l := range s.localities {
		if strings.Contains(lowered, strings.ToLower(l)) {
			locality = l
			break
		}
	}

	return fmt.Sprintf(
		"%s/menu/%s-%s",
		s.baseUrl,
		textutil.Slugify(name),
		textutil.Slugify(locality),
	)
}

// Extract fetches the page and pulls out dish records. Every failure
// mode (fetch error, unknown structure, malformed item) degrades to a
// shorter or empty result, never an error: the caller reads an empty
// slice as "this restaurant has no menu we can see".
func (s *Scraper) Extract(ctx context.Context, url string) []Item {
	ctx, span := tracer.Start(ctx, "scraper:Extract")
	defer span.End()
	span.SetAttributes(attribute.String("url", url))

	slog.InfoContext(ctx, "attempting to scrape menu", "url", url)

	res, err := s.http.R().
		SetContext(ctx).
		Get(url)
	if err != nil {
		slog.WarnContext(ctx, "failed to fetch menu page", "url", url, "err", err)
		span.SetStatus(codes.Error, "failed to fetch menu page")
		return nil
	}
	if res.IsError() {
		slog.WarnContext(ctx, "menu page returned an error status", "url", url, "status", res.StatusCode())
		return nil
	}

	doc, err := goquery.NewDocumentFromReader(bytes.NewReader(res.Body()))
	if err != nil {
		slog.WarnContext(ctx, "failed to parse menu page", "url", url, "err", err)
		span.SetStatus(codes.Error, "failed to parse menu page")
		return nil
	}

	items, selector := findItems(doc)
	if items == nil {
		slog.WarnContext(ctx, "no menu items found with any selector", "url", url)
		return nil
	}
	slog.DebugContext(ctx, "matched item containers", "selector", selector, "count", items.Length())

	var dishes []Item
	items.Each(func(_ int, item *goquery.Selection) {
		name := nameRule.extract(item)
		description := descriptionRule.extract(item)

		price := ""
		if raw := priceRule.extract(item); raw != "" {
			price = priceAmount.FindString(raw)
		}

		// a bare name with neither description nor price is more
		// likely navigation debris than a dish
		if name == "" || (description == "" && price == "") {
			return
		}

		dishes = append(dishes, Item{
			Name:        name,
			Description: description,
			PriceText:   price,
		})
	})

	slog.InfoContext(ctx, "scraped menu items", "url", url, "count", len(dishes))
	return dishes
}
