package yelpmenu

import (
	"regexp"

	"menuharvest-backend/lib/htmlutil"

	"github.com/PuerkitoBio/goquery"
)

// the menu pages carry no versioned structure, so selection happens
// through ordered rule chains: earlier selectors encode higher
// confidence in the markup still looking that way.
var containerSelectors = []string{
	"div.menu-item",
	`[data-testid="menu-item"]`,
	".menu-item-details",
	".menuItem",
	".biz-menu-item",
}

type fieldRule struct {
	field     string
	selectors []string
}

var nameRule = fieldRule{
	field:     "name",
	selectors: []string{"h4", ".menu-item-name", ".item-name", "h3", "strong"},
}

var descriptionRule = fieldRule{
	field: "description",
	selectors: []string{
		".menu-item-details-description",
		".menu-item-description",
		".item-description",
		"p",
	},
}

var priceRule = fieldRule{
	field: "price",
	selectors: []string{
		".menu-item-price-amount",
		".menu-item-price",
		".item-price",
		".price",
	},
}

// extract returns the cleaned text of the first selector with a
// non-empty match inside the item container, or "".
func (r fieldRule) extract(item *goquery.Selection) string {
	for _, selector := range r.selectors {
		text := htmlutil.CleanText(item.Find(selector).First().Text())
		if text != "" {
			return text
		}
	}
	return ""
}

// findItems runs the container chain against the document, stopping at
// the first selector that matches anything.
func findItems(doc *goquery.Document) (*goquery.Selection, string) {
	for _, selector := range containerSelectors {
		items := doc.Find(selector)
		if items.Length() > 0 {
			return items, selector
		}
	}
	return nil, ""
}

var priceAmount = regexp.MustCompile(`\$[\d,]+\.?\d*`)
