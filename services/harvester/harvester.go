package harvester

import (
	"context"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"menuharvest-backend/lib/scrapers/yelp"
	"menuharvest-backend/lib/scrapers/yelpmenu"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"golang.org/x/time/rate"
)

var tracer = otel.Tracer("services/harvester")

type Options struct {
	// BusinessInterval spaces out full per-business cycles (detail
	// fetch, menu fetch, persistence) to stay polite.
	BusinessInterval time.Duration
	// ProgressEvery overrides the progress log cadence. zero picks a
	// cadence based on the batch size.
	ProgressEvery int
}

type Ingestor struct {
	directory     *yelp.Client
	menus         *yelpmenu.Scraper
	store         Store
	limiter       *rate.Limiter
	progressEvery int
}

func NewIngestor(directory *yelp.Client, menus *yelpmenu.Scraper, store Store, opts Options) *Ingestor {
	if opts.BusinessInterval <= 0 {
		opts.BusinessInterval = time.Second * 2
	}
	return &Ingestor{
		directory:     directory,
		menus:         menus,
		store:         store,
		limiter:       rate.NewLimiter(rate.Every(opts.BusinessInterval), 1),
		progressEvery: opts.ProgressEvery,
	}
}

type Summary struct {
	// Checked counts every business the batch search returned.
	Checked int
	// Processed counts businesses persisted with menu content.
	Processed int
	// Skipped counts businesses dropped for lack of menu content.
	Skipped int
}

// Run drives the whole pipeline for one target area: batch search,
// per-business enrichment, menu extraction and persistence. A single
// business failing never aborts the batch, it is counted as skipped.
func (ig *Ingestor) Run(ctx context.Context, location string, totalLimit int) (Summary, error) {
	ctx, span := tracer.Start(ctx, "ingestor:Run")
	defer span.End()
	span.SetAttributes(
		attribute.String("location", location),
		attribute.Int("total_limit", totalLimit),
	)

	slog.InfoContext(
		ctx, "starting restaurant collection",
		"location", location,
		"total_limit", totalLimit,
		"estimated_minutes", totalLimit*4/60,
	)

	businesses := ig.directory.SearchBatch(ctx, location, totalLimit)
	if len(businesses) == 0 {
		return Summary{}, fmt.Errorf("no businesses found for %q", location)
	}

	progressEvery := ig.progressEvery
	if progressEvery <= 0 {
		progressEvery = 10
		if totalLimit >= 500 {
			progressEvery = 25
		}
	}

	summary := Summary{Checked: len(businesses)}
	for i, business := range businesses {
		slog.InfoContext(
			ctx, "processing restaurant",
			"index", i+1,
			"total", len(businesses),
			"name", business.Name,
		)

		if ig.processBusiness(ctx, business) {
			summary.Processed++
		} else {
			summary.Skipped++
		}

		err := ig.limiter.Wait(ctx)
		if err != nil {
			slog.WarnContext(ctx, "collection cancelled", "err", err)
			return summary, err
		}

		if (i+1)%progressEvery == 0 {
			slog.InfoContext(
				ctx, "progress",
				"checked", i+1,
				"total", len(businesses),
				"percent", fmt.Sprintf("%.1f", float64(i+1)/float64(len(businesses))*100),
				"processed", summary.Processed,
				"skipped", summary.Skipped,
			)
		}
	}

	slog.InfoContext(
		ctx, "collection complete",
		"checked", summary.Checked,
		"processed", summary.Processed,
		"skipped", summary.Skipped,
	)
	return summary, nil
}

// processBusiness runs one business through detail merge, menu
// extraction and persistence. It reports whether the restaurant was
// persisted; every failure path degrades to a skip.
func (ig *Ingestor) processBusiness(ctx context.Context, business yelp.Business) bool {
	ctx, span := tracer.Start(ctx, "ingestor:processBusiness")
	defer span.End()
	span.SetAttributes(attribute.String("id", business.ID))

	detail, err := ig.directory.Details(ctx, business.ID)
	if err != nil {
		slog.WarnContext(
			ctx, "failed to fetch details, continuing with summary",
			"id", business.ID,
			"err", err,
		)
	} else {
		business = yelp.Merge(business, detail)
	}

	restaurant := toRestaurant(business)

	menuUrl := ig.menus.ResolveMenuURL(restaurant.Name, restaurant.Address)
	items := ig.menus.Extract(ctx, menuUrl)
	if len(items) == 0 {
		slog.InfoContext(ctx, "no menu data found, skipping", "name", restaurant.Name)
		return false
	}

	menu := Menu{
		Name:        fmt.Sprintf("%s Menu", restaurant.Name),
		Description: fmt.Sprintf("Main menu for %s", restaurant.Name),
		MenuType:    "main",
	}
	err = ig.store.Save(ctx, restaurant, menu, items)
	if err != nil {
		slog.WarnContext(ctx, "failed to save restaurant", "name", restaurant.Name, "err", err)
		return false
	}

	slog.InfoContext(ctx, "saved restaurant with menu", "name", restaurant.Name, "dishes", len(items))
	return true
}

func toRestaurant(business yelp.Business) Restaurant {
	titles := make([]string, len(business.Categories))
	for i, c := range business.Categories {
		titles[i] = c.Title
	}

	return Restaurant{
		Name:        business.Name,
		Rating:      business.Rating,
		ReviewCount: business.ReviewCount,
		PriceRange:  business.Price,
		ExternalID:  business.ID,
		Website:     business.URL,
		Address:     strings.Join(business.Location.DisplayAddress, ", "),
		Phone:       business.Phone,
		CuisineType: strings.Join(titles, ", "),
	}
}
