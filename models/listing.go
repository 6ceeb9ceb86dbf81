package models

import "time"

// RawListing holds as-extracted text from a detail page, before any parsing
// or normalization. Feature-table values arrive as the raw strings shown on
// the page ("12.345 km", "650 cc", ...).
type RawListing struct {
	URL             string
	Title           string
	RawPrice        string
	City            string
	Description     string
	RawDate         string
	RawLikes        string
	Seller          string
	Brand           string
	Model           string
	RawYear         string
	RawKm           string
	RawDisplacement string
	VehicleType     string
	Version         string
	ScrapedAt       time.Time
}

// Listing is the canonical record stored in the moto_listings table.
// Pointer fields map to nullable columns; a nil pointer is stored as NULL so
// the schema stays fully populated downstream.
type Listing struct {
	ID           int64
	Brand        *string   // marca
	Model        *string   // modello
	Year         *int      // anno
	Km           *int      // km
	Price        *float64  // prezzo
	City         *string   // citta
	Likes        int       // likes
	Displacement *int      // cilindrata
	VehicleType  *string   // tipo_veicolo
	Version      *string   // versione
	Description  *string   // descrizione
	Seller       *string   // venditore
	PublishedAt  time.Time // data_pubblicazione
	URL          string    // link_annuncio (unique identity)
	CreatedAt    time.Time
	UpdatedAt    time.Time
}

// UpsertAction reports what a single upsert actually did.
type UpsertAction string

const (
	ActionInserted UpsertAction = "inserted"
	ActionUpdated  UpsertAction = "updated"
	ActionSkipped  UpsertAction = "skipped"
)

// BatchResult is the aggregate tally of a batch upsert. Individual row
// failures are counted, never propagated.
type BatchResult struct {
	Inserted int
	Updated  int
	Skipped  int
	Errors   int
}

// Add folds another tally into this one.
func (b *BatchResult) Add(other BatchResult) {
	b.Inserted += other.Inserted
	b.Updated += other.Updated
	b.Skipped += other.Skipped
	b.Errors += other.Errors
}

// RunStats accumulates counters over a whole scrape run.
type RunStats struct {
	PagesScraped      int
	ListingsFound     int
	ListingsProcessed int
	Inserted          int
	Updated           int
	Skipped           int
	Errors            int
}
