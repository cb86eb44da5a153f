package yelpmenu

import (
	"context"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

var testLocalities = []string{
	"San Ramon",
	"Dublin",
	"Pleasanton",
	"Livermore",
	"Castro Valley",
	"Hayward",
}

func newTestScraper(baseUrl string) *Scraper {
	return NewScraper(ScraperOptions{
		BaseUrl:         baseUrl,
		Localities:      testLocalities,
		DefaultLocality: "San Ramon",
	})
}

func TestResolveMenuURL(t *testing.T) {
	s := newTestScraper("https://www.yelp.com")

	require.Equal(
		t,
		"https://www.yelp.com/menu/joe-s-caf-dublin",
		s.ResolveMenuURL("Joe's Café!", "500 Main St, Dublin, CA 94568"),
	)
	require.Equal(
		t,
		"https://www.yelp.com/menu/test-diner-san-ramon",
		s.ResolveMenuURL("Test Diner", "1 Main St, San Ramon, CA"),
	)
	// unknown locality falls back to the default
	require.Equal(
		t,
		"https://www.yelp.com/menu/burger-barn-san-ramon",
		s.ResolveMenuURL("Burger Barn", "99 Nowhere Rd, Fresno, CA"),
	)
	require.Equal(
		t,
		"https://www.yelp.com/menu/taqueria-uno-castro-valley",
		s.ResolveMenuURL("Taqueria Uno", "2 Oak Ave, Castro Valley, CA"),
	)
}

const primaryMarkup = `<html><body>
<div class="menu-item">
	<h4>Burger</h4>
	<p>A classic with cheese</p>
	<div class="menu-item-price">only $9.99!</div>
</div>
<div class="menu-item">
	<h4>Soup of the Day</h4>
	<div class="menu-item-price">Market Price</div>
</div>
<div class="menu-item">
	<h4>House Salad</h4>
	<p>Greens and vinaigrette</p>
</div>
</body></html>`

const fallbackMarkup = `<html><body>
<div class="biz-menu-item">
	<strong>Chow Mein</strong>
	<span class="price">$12.50</span>
</div>
</body></html>`

func menuTestServer() *httptest.Server {
	mux := http.NewServeMux()
	mux.HandleFunc("/menu/primary-san-ramon", func(w http.ResponseWriter, r *http.Request) {
		fmt.Fprint(w, primaryMarkup)
	})
	mux.HandleFunc("/menu/fallback-dublin", func(w http.ResponseWriter, r *http.Request) {
		fmt.Fprint(w, fallbackMarkup)
	})
	mux.HandleFunc("/menu/restructured-san-ramon", func(w http.ResponseWriter, r *http.Request) {
		fmt.Fprint(w, `<html><body><div class="totally-new-layout">Burger $9.99</div></body></html>`)
	})
	return httptest.NewServer(mux)
}

func TestExtract(t *testing.T) {
	server := menuTestServer()
	defer server.Close()

	s := newTestScraper(server.URL)

	ctx, cancel := context.WithTimeout(context.Background(), time.Second*10)
	defer cancel()

	items := s.Extract(ctx, server.URL+"/menu/primary-san-ramon")
	require.Len(t, items, 2)

	require.Equal(t, "Burger", items[0].Name)
	require.Equal(t, "A classic with cheese", items[0].Description)
	// price text is trimmed down to the currency amount
	require.Equal(t, "$9.99", items[0].PriceText)

	// "Soup of the Day" has a name but neither description nor a
	// parseable currency amount, so it gets dropped
	require.Equal(t, "House Salad", items[1].Name)
	require.Equal(t, "", items[1].PriceText)
}

func TestExtractFallbackSelectors(t *testing.T) {
	server := menuTestServer()
	defer server.Close()

	s := newTestScraper(server.URL)

	ctx, cancel := context.WithTimeout(context.Background(), time.Second*10)
	defer cancel()

	items := s.Extract(ctx, server.URL+"/menu/fallback-dublin")
	require.Len(t, items, 1)
	require.Equal(t, "Chow Mein", items[0].Name)
	require.Equal(t, "$12.50", items[0].PriceText)
}

func TestExtractUnknownStructure(t *testing.T) {
	server := menuTestServer()
	defer server.Close()

	s := newTestScraper(server.URL)

	ctx, cancel := context.WithTimeout(context.Background(), time.Second*10)
	defer cancel()

	require.Empty(t, s.Extract(ctx, server.URL+"/menu/restructured-san-ramon"))
	require.Empty(t, s.Extract(ctx, server.URL+"/menu/not-a-page-san-ramon"))
}

func TestExtractFetchError(t *testing.T) {
	server := menuTestServer()
	server.Close()

	s := newTestScraper(server.URL)

	ctx, cancel := context.WithTimeout(context.Background(), time.Second*10)
	defer cancel()

	require.Empty(t, s.Extract(ctx, server.URL+"/menu/primary-san-ramon"))
}
