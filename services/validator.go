package services

import (
	"strings"
	"time"
	"unicode"

	"moto-scraper/models"
	"moto-scraper/parser"
	"moto-scraper/utils"
)

// Validator normalizes raw extracted listings into canonical records. Every
// field of the result is populated: empty strings become nil pointers, likes
// default to zero and a missing publish date defaults to the current time, so
// the storage schema stays stable regardless of how sparse the page was.
type Validator struct {
	logger *utils.Logger
}

// NewValidator creates a Validator with the given logger.
func NewValidator(logger *utils.Logger) *Validator {
	return &Validator{logger: logger}
}

// Validate converts a RawListing into a canonical Listing.
func (v *Validator) Validate(raw *models.RawListing) *models.Listing {
	now := time.Now()

	l := &models.Listing{
		URL:         strings.TrimSpace(raw.URL),
		Brand:       textPtr(raw.Brand),
		Model:       textPtr(raw.Model),
		City:        textPtr(raw.City),
		VehicleType: textPtr(raw.VehicleType),
		Version:     textPtr(raw.Version),
		Description: textPtr(raw.Description),
		Seller:      textPtr(raw.Seller),
		CreatedAt:   now,
		UpdatedAt:   now,
	}

	if year, ok := parser.ParseInteger(raw.RawYear); ok {
		l.Year = &year
	}
	if km, ok := parser.ParseInteger(raw.RawKm); ok {
		l.Km = &km
	}
	if cc, ok := parser.ParseInteger(raw.RawDisplacement); ok {
		l.Displacement = &cc
	}
	if price, ok := parser.ParseCurrency(raw.RawPrice); ok {
		l.Price = &price
	}
	if likes, ok := parser.ParseInteger(raw.RawLikes); ok {
		l.Likes = likes
	}

	if ts := parser.ParsePublishDate(raw.RawDate, now); ts != nil {
		l.PublishedAt = *ts
	} else {
		if raw.RawDate != "" {
			v.logger.Debug("[validator] Unparseable publish date %q — defaulting to now", raw.RawDate)
		}
		l.PublishedAt = now
	}

	return l
}

// textPtr trims and collapses whitespace, returning nil for empty results.
func textPtr(s string) *string {
	fields := strings.FieldsFunc(strings.TrimSpace(s), func(r rune) bool {
		return unicode.IsSpace(r)
	})
	t := strings.Join(fields, " ")
	if t == "" {
		return nil
	}
	return &t
}
