package storage

import "moto-scraper/models"

// ListingStore is the persistence contract the pipeline writes through.
type ListingStore interface {
	// UpsertOne inserts the listing if its URL is unseen, updates the full
	// record when price, mileage or likes changed, and otherwise skips.
	UpsertOne(l *models.Listing) (models.UpsertAction, error)

	// BulkUpsert is the optional fast path: one conflict-resolving write per
	// chunk, no pre-read comparison. Every row counts as an insertion.
	BulkUpsert(listings []*models.Listing) error

	// FetchAll returns all stored listings ordered by recency.
	FetchAll() ([]*models.Listing, error)

	Close() error
}

// RawListingWriter persists unprocessed scraped data.
type RawListingWriter interface {
	WriteRaw(listings []*models.RawListing) error
	Close() error
}
