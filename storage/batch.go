package storage

import (
	"moto-scraper/models"
	"moto-scraper/utils"
)

// UpsertBatch applies UpsertOne to each listing independently and returns the
// aggregate tally. A failing row is logged and counted; it never aborts the
// remaining rows.
func UpsertBatch(store ListingStore, listings []*models.Listing, logger *utils.Logger) models.BatchResult {
	var result models.BatchResult

	for _, l := range listings {
		action, err := store.UpsertOne(l)
		if err != nil {
			logger.Error("[storage] Upsert failed for %s: %v", l.URL, err)
			result.Errors++
			continue
		}

		switch action {
		case models.ActionInserted:
			result.Inserted++
		case models.ActionUpdated:
			result.Updated++
		case models.ActionSkipped:
			result.Skipped++
		}
	}

	return result
}
