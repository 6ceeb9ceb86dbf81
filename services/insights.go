package services

import (
	"fmt"
	"sort"
	"time"

	"moto-scraper/models"
	"moto-scraper/utils"
)

// InsightReport holds the aggregates the dashboard shows over the stored
// listings: totals, average price, today's arrivals and the city breakdown.
type InsightReport struct {
	TotalListings int
	PricedCount   int
	AveragePrice  float64
	MinPrice      float64
	MaxPrice      float64
	NewToday      int
	TopCities     []CityCount
	Newest        []*models.Listing
}

// CityCount pairs a city with its listing count.
type CityCount struct {
	City  string
	Count int
}

// InsightService computes aggregate statistics over stored listings.
type InsightService struct {
	logger *utils.Logger
}

// NewInsightService creates an InsightService with the given logger.
func NewInsightService(logger *utils.Logger) *InsightService {
	return &InsightService{logger: logger}
}

// Generate computes the report over the given listings, using now to decide
// what counts as published today.
func (s *InsightService) Generate(listings []*models.Listing, now time.Time) *InsightReport {
	report := &InsightReport{TotalListings: len(listings)}
	if len(listings) == 0 {
		return report
	}

	cities := make(map[string]int)
	var priceSum float64
	year, month, day := now.Date()

	for _, l := range listings {
		if l.Price != nil {
			p := *l.Price
			priceSum += p
			if report.PricedCount == 0 || p < report.MinPrice {
				report.MinPrice = p
			}
			if p > report.MaxPrice {
				report.MaxPrice = p
			}
			report.PricedCount++
		}

		py, pm, pd := l.PublishedAt.In(now.Location()).Date()
		if py == year && pm == month && pd == day {
			report.NewToday++
		}

		if l.City != nil {
			cities[*l.City]++
		}
	}

	if report.PricedCount > 0 {
		report.AveragePrice = priceSum / float64(report.PricedCount)
	}

	for city, count := range cities {
		report.TopCities = append(report.TopCities, CityCount{City: city, Count: count})
	}
	sort.Slice(report.TopCities, func(i, j int) bool {
		if report.TopCities[i].Count != report.TopCities[j].Count {
			return report.TopCities[i].Count > report.TopCities[j].Count
		}
		return report.TopCities[i].City < report.TopCities[j].City
	})
	if len(report.TopCities) > 5 {
		report.TopCities = report.TopCities[:5]
	}

	sorted := make([]*models.Listing, len(listings))
	copy(sorted, listings)
	sort.Slice(sorted, func(i, j int) bool {
		return sorted[i].PublishedAt.After(sorted[j].PublishedAt)
	})
	limit := 5
	if len(sorted) < limit {
		limit = len(sorted)
	}
	report.Newest = sorted[:limit]

	return report
}

// Print writes a human-readable report to stdout.
func (s *InsightService) Print(report *InsightReport) {
	fmt.Println()
	fmt.Println("========== MOTO LISTINGS REPORT ==========")
	fmt.Printf("  Total listings:     %d\n", report.TotalListings)
	fmt.Printf("  Published today:    %d\n", report.NewToday)
	if report.PricedCount > 0 {
		fmt.Printf("  Average price:      € %.2f\n", report.AveragePrice)
		fmt.Printf("  Price range:        € %.2f — € %.2f\n", report.MinPrice, report.MaxPrice)
	}

	if len(report.TopCities) > 0 {
		fmt.Println("  Top cities:")
		for _, cc := range report.TopCities {
			fmt.Printf("    %-24s %d\n", cc.City, cc.Count)
		}
	}

	if len(report.Newest) > 0 {
		fmt.Println("  Newest listings:")
		for _, l := range report.Newest {
			fmt.Printf("    [%s] %s %s\n",
				l.PublishedAt.Format("2006-01-02 15:04"), strOrDash(l.Brand), strOrDash(l.Model))
		}
	}
	fmt.Println("==========================================")
	fmt.Println()
}

func strOrDash(s *string) string {
	if s == nil {
		return "-"
	}
	return *s
}
