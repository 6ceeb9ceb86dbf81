package services

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"moto-scraper/models"
	"moto-scraper/utils"
)

func newTestLogger() *utils.Logger { return utils.NewLogger() }

func TestValidateFullRecord(t *testing.T) {
	v := NewValidator(newTestLogger())

	raw := &models.RawListing{
		URL:             " https://www.subito.it/moto-e-scooter/ducati-monster-821.htm ",
		Title:           "Ducati Monster 821",
		RawPrice:        "€ 7.500",
		City:            "  Milano (MI) ",
		Description:     "Moto in ottime   condizioni",
		RawDate:         "Oggi alle 10:30",
		RawLikes:        "12",
		Seller:          "Mario",
		Brand:           "Ducati",
		Model:           "Monster 821",
		RawYear:         "2019",
		RawKm:           "12.345 km",
		RawDisplacement: "821 cc",
		VehicleType:     "Naked",
		Version:         "Dark",
	}

	l := v.Validate(raw)

	assert.Equal(t, "https://www.subito.it/moto-e-scooter/ducati-monster-821.htm", l.URL)
	require.NotNil(t, l.Brand)
	assert.Equal(t, "Ducati", *l.Brand)
	require.NotNil(t, l.Price)
	assert.InDelta(t, 7500, *l.Price, 0.001)
	require.NotNil(t, l.Year)
	assert.Equal(t, 2019, *l.Year)
	require.NotNil(t, l.Km)
	assert.Equal(t, 12345, *l.Km)
	require.NotNil(t, l.Displacement)
	assert.Equal(t, 821, *l.Displacement)
	require.NotNil(t, l.Description)
	assert.Equal(t, "Moto in ottime condizioni", *l.Description, "internal whitespace collapsed")
	require.NotNil(t, l.City)
	assert.Equal(t, "Milano (MI)", *l.City)
	assert.Equal(t, 12, l.Likes)

	// "Oggi alle 10:30" resolves to today's date at that time.
	assert.Equal(t, 10, l.PublishedAt.Hour())
	assert.Equal(t, 30, l.PublishedAt.Minute())
	assert.Equal(t, time.Now().Day(), l.PublishedAt.Day())
}

func TestValidateNullsEmptyFields(t *testing.T) {
	v := NewValidator(newTestLogger())

	l := v.Validate(&models.RawListing{
		URL:      "https://www.subito.it/moto-e-scooter/sconosciuta.htm",
		Title:    "Moto",
		RawPrice: "1.000",
	})

	assert.Nil(t, l.Brand)
	assert.Nil(t, l.Model)
	assert.Nil(t, l.Year)
	assert.Nil(t, l.Km)
	assert.Nil(t, l.City)
	assert.Nil(t, l.Description)
	assert.Nil(t, l.Seller)
	assert.Equal(t, 0, l.Likes, "likes default to zero")
	require.NotNil(t, l.Price)
	assert.InDelta(t, 1000, *l.Price, 0.001)
}

func TestValidateDefaultsPublishDateToNow(t *testing.T) {
	v := NewValidator(newTestLogger())
	before := time.Now()

	l := v.Validate(&models.RawListing{
		URL:     "https://www.subito.it/moto-e-scooter/x.htm",
		RawDate: "qualche giorno fa",
	})

	assert.False(t, l.PublishedAt.Before(before), "unparseable date falls back to now")
	assert.False(t, l.PublishedAt.After(time.Now()))
}
