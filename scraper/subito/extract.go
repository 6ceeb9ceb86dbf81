package subito

import (
	"net/url"
	"strings"
	"time"

	"github.com/PuerkitoBio/goquery"

	"moto-scraper/models"
)

// listingPathToken and listingSuffix identify detail-page hrefs among all
// anchors on a list page.
const (
	listingPathToken = "/moto-e-scooter/"
	listingSuffix    = ".htm"
)

// linkStrategies are tried in order; the first selector yielding at least one
// link wins. The broad anchor scan at the end survives markup changes in the
// card components.
var linkStrategies = []struct {
	name     string
	selector string
}{
	{"card", `article[class*="index-module_card"] a[class*="index-module_link"]`},
	{"small-card", `a[class*="SmallCard-module_link"]`},
	{"anchor-scan", `a[href*="` + listingPathToken + `"]`},
}

// ExtractListingLinks returns the deduplicated detail-page URLs found on a
// list page, resolved against baseURL. It never fails; an empty result means
// the page has no listings, which the run loop treats as end of pagination.
func ExtractListingLinks(doc *goquery.Document, baseURL string) []string {
	base, err := url.Parse(baseURL)
	if err != nil {
		base = nil
	}

	for _, strategy := range linkStrategies {
		links := collectLinks(doc.Find(strategy.selector), base)
		if len(links) > 0 {
			return links
		}
	}
	return nil
}

func collectLinks(sel *goquery.Selection, base *url.URL) []string {
	seen := make(map[string]struct{})
	var links []string

	sel.Each(func(_ int, s *goquery.Selection) {
		href, ok := s.Attr("href")
		if !ok {
			return
		}
		full := resolveHref(base, strings.TrimSpace(href))
		if full == "" ||
			!strings.Contains(full, listingPathToken) ||
			!strings.HasSuffix(full, listingSuffix) {
			return
		}
		if _, dup := seen[full]; dup {
			return
		}
		seen[full] = struct{}{}
		links = append(links, full)
	})

	return links
}

func resolveHref(base *url.URL, href string) string {
	if href == "" {
		return ""
	}
	if strings.HasPrefix(href, "http://") || strings.HasPrefix(href, "https://") {
		return href
	}
	if base == nil {
		return ""
	}
	ref, err := url.Parse(href)
	if err != nil {
		return ""
	}
	return base.ResolveReference(ref).String()
}

// Ordered fallback selectors per labeled field. Subito ships both the newer
// index-module markup and the older Ad* component names depending on the
// page variant.
var (
	titleSelectors = []string{
		`h1[class*="index-module_title"]`,
		`h1[class*="AdInfo_title"]`,
		`h1`,
	}
	priceSelectors = []string{
		`p[class*="index-module_price"]`,
		`p[class*="AdInfo_price"]`,
	}
	citySelectors = []string{
		`span[class*="index-module_location"]`,
		`p[class*="AdInfo_locationText"]`,
	}
	descriptionSelectors = []string{
		`p[class*="AdDescription_description"]`,
		`section[class*="description"] p`,
	}
	dateSelectors = []string{
		`span[class*="index-module_insertion-date"]`,
		`span[class*="insertion-date"]`,
	}
	likesSelectors = []string{
		`span[class*="Heart_counter-wrapper__number"]`,
		`span[class*="Heart_counter"]`,
	}
	sellerSelectors = []string{
		`[class*="PrivateUserProfileBadge"] a`,
		`[class*="UserProfileBadge"] a`,
	}
)

// featureTableStrategies locate the label→value rows of the main-data table
// across the two markup generations.
var featureTableStrategies = []struct {
	item  string
	label string
	value string
}{
	{
		item:  `li[class*="feature-list_feature"]`,
		label: `span:first-child`,
		value: `span[class*="feature-list_value"]`,
	},
	{
		item:  `[class*="index-module_feature-item"]`,
		label: `[class*="index-module_label"]`,
		value: `[class*="index-module_value"]`,
	},
}

// ExtractListingDetail reads the labeled fields of a detail page. Missing
// elements become empty strings; only a page with neither title nor price is
// discarded (nil result).
func ExtractListingDetail(doc *goquery.Document, pageURL string) *models.RawListing {
	raw := &models.RawListing{
		URL:       pageURL,
		ScrapedAt: time.Now(),
	}

	raw.Title = firstText(doc, titleSelectors)
	raw.RawPrice = firstText(doc, priceSelectors)
	if raw.Title == "" && raw.RawPrice == "" {
		return nil
	}

	raw.City = firstText(doc, citySelectors)
	raw.Description = firstText(doc, descriptionSelectors)
	raw.RawDate = firstText(doc, dateSelectors)
	raw.RawLikes = firstText(doc, likesSelectors)
	raw.Seller = firstText(doc, sellerSelectors)

	applyFeatureTable(doc, raw)
	return raw
}

func firstText(doc *goquery.Document, selectors []string) string {
	for _, sel := range selectors {
		if text := strings.TrimSpace(doc.Find(sel).First().Text()); text != "" {
			return text
		}
	}
	return ""
}

// applyFeatureTable walks the main-data rows and routes each labeled value to
// its raw field. Labels are matched case-insensitively against a synonym map:
// "immatricolazione" and "anno" both mean the registration year,
// "chilometraggio" and "km" both mean mileage.
func applyFeatureTable(doc *goquery.Document, raw *models.RawListing) {
	for _, strategy := range featureTableStrategies {
		matched := 0
		doc.Find(strategy.item).Each(func(_ int, item *goquery.Selection) {
			label := strings.TrimSpace(item.Find(strategy.label).First().Text())
			value := strings.TrimSpace(item.Find(strategy.value).First().Text())
			if label == "" || value == "" || label == value {
				return
			}
			if assignFeature(raw, label, value) {
				matched++
			}
		})
		if matched > 0 {
			return
		}
	}
}

func assignFeature(raw *models.RawListing, label, value string) bool {
	key := strings.ReplaceAll(strings.ToLower(label), " ", "")

	switch {
	case strings.Contains(key, "marca"):
		raw.Brand = value
	case strings.Contains(key, "modello"):
		raw.Model = value
	case strings.Contains(key, "immatricolazione") || strings.Contains(key, "anno"):
		raw.RawYear = value
	case strings.Contains(key, "chilometraggio") || strings.Contains(key, "km"):
		raw.RawKm = value
	case strings.Contains(key, "cilindrata"):
		raw.RawDisplacement = value
	case strings.Contains(key, "versione"):
		raw.Version = value
	case strings.Contains(key, "tipologia") || strings.Contains(key, "tipo"):
		raw.VehicleType = value
	default:
		return false
	}
	return true
}
