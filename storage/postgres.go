package storage

import (
	"database/sql"
	"errors"
	"fmt"
	"strings"
	"time"

	_ "github.com/lib/pq"

	"moto-scraper/models"
)

// PostgresStore persists listings in the moto_listings table.
type PostgresStore struct {
	db *sql.DB
}

// NewPostgresStore opens a connection to PostgreSQL, verifies it is reachable
// and runs schema migrations. An unreachable database is a startup failure.
func NewPostgresStore(dsn string) (*PostgresStore, error) {
	db, err := sql.Open("postgres", dsn)
	if err != nil {
		return nil, fmt.Errorf("postgres: open: %w", err)
	}

	for i := 0; i < 10; i++ {
		if err = db.Ping(); err == nil {
			break
		}
		time.Sleep(2 * time.Second)
	}
	if err != nil {
		return nil, fmt.Errorf("postgres: ping failed after retries: %w", err)
	}

	s := &PostgresStore{db: db}
	if err := s.migrate(); err != nil {
		return nil, fmt.Errorf("postgres: migrate: %w", err)
	}

	return s, nil
}

func (s *PostgresStore) migrate() error {
	_, err := s.db.Exec(`
		CREATE TABLE IF NOT EXISTS moto_listings (
			id                 SERIAL PRIMARY KEY,
			marca              TEXT,
			modello            TEXT,
			anno               INTEGER,
			km                 INTEGER,
			prezzo             NUMERIC(12,2),
			citta              TEXT,
			likes              INTEGER      NOT NULL DEFAULT 0,
			cilindrata         INTEGER,
			tipo_veicolo       TEXT,
			versione           TEXT,
			descrizione        TEXT,
			venditore          TEXT,
			data_pubblicazione TIMESTAMPTZ,
			link_annuncio      TEXT         UNIQUE NOT NULL,
			created_at         TIMESTAMPTZ  NOT NULL DEFAULT NOW(),
			updated_at         TIMESTAMPTZ  NOT NULL DEFAULT NOW()
		);

		CREATE INDEX IF NOT EXISTS idx_moto_listings_data_pubblicazione
			ON moto_listings(data_pubblicazione DESC);
		CREATE INDEX IF NOT EXISTS idx_moto_listings_marca  ON moto_listings(marca);
		CREATE INDEX IF NOT EXISTS idx_moto_listings_prezzo ON moto_listings(prezzo);
	`)
	return err
}

// UpsertOne looks the listing up by URL and inserts, updates or skips.
// Only a change in price, mileage or likes triggers an update; the update
// then rewrites the full record.
func (s *PostgresStore) UpsertOne(l *models.Listing) (models.UpsertAction, error) {
	var (
		id     int64
		prezzo sql.NullFloat64
		km     sql.NullInt64
		likes  int
	)

	err := s.db.QueryRow(
		`SELECT id, prezzo, km, likes FROM moto_listings WHERE link_annuncio = $1`,
		l.URL,
	).Scan(&id, &prezzo, &km, &likes)

	switch {
	case errors.Is(err, sql.ErrNoRows):
		if err := s.insert(l); err != nil {
			return "", err
		}
		return models.ActionInserted, nil
	case err != nil:
		return "", fmt.Errorf("postgres: lookup %s: %w", l.URL, err)
	}

	if !volatileChanged(l, nullFloatPtr(prezzo), nullIntPtr(km), likes) {
		return models.ActionSkipped, nil
	}

	if err := s.update(id, l); err != nil {
		return "", err
	}
	return models.ActionUpdated, nil
}

// volatileChanged reports whether any of the three volatile fields differs
// from the stored values.
func volatileChanged(l *models.Listing, storedPrice *float64, storedKm *int, storedLikes int) bool {
	return !floatPtrEqual(l.Price, storedPrice) ||
		!intPtrEqual(l.Km, storedKm) ||
		l.Likes != storedLikes
}

func floatPtrEqual(a, b *float64) bool {
	if a == nil || b == nil {
		return a == nil && b == nil
	}
	return *a == *b
}

func intPtrEqual(a, b *int) bool {
	if a == nil || b == nil {
		return a == nil && b == nil
	}
	return *a == *b
}

func (s *PostgresStore) insert(l *models.Listing) error {
	_, err := s.db.Exec(`
		INSERT INTO moto_listings
			(marca, modello, anno, km, prezzo, citta, likes, cilindrata,
			 tipo_veicolo, versione, descrizione, venditore, data_pubblicazione, link_annuncio)
		VALUES ($1,$2,$3,$4,$5,$6,$7,$8,$9,$10,$11,$12,$13,$14)
	`,
		l.Brand, l.Model, l.Year, l.Km, l.Price, l.City, l.Likes, l.Displacement,
		l.VehicleType, l.Version, l.Description, l.Seller, l.PublishedAt, l.URL,
	)
	if err != nil {
		return fmt.Errorf("postgres: insert %s: %w", l.URL, err)
	}
	return nil
}

func (s *PostgresStore) update(id int64, l *models.Listing) error {
	_, err := s.db.Exec(`
		UPDATE moto_listings SET
			marca = $1, modello = $2, anno = $3, km = $4, prezzo = $5, citta = $6,
			likes = $7, cilindrata = $8, tipo_veicolo = $9, versione = $10,
			descrizione = $11, venditore = $12, data_pubblicazione = $13,
			updated_at = NOW()
		WHERE id = $14
	`,
		l.Brand, l.Model, l.Year, l.Km, l.Price, l.City, l.Likes, l.Displacement,
		l.VehicleType, l.Version, l.Description, l.Seller, l.PublishedAt, id,
	)
	if err != nil {
		return fmt.Errorf("postgres: update %s: %w", l.URL, err)
	}
	return nil
}

// BulkUpsert writes every listing unconditionally with a single
// conflict-resolving statement per chunk. No pre-read comparison: existing
// rows are overwritten whether or not anything changed.
func (s *PostgresStore) BulkUpsert(listings []*models.Listing) error {
	const chunkSize = 50
	for i := 0; i < len(listings); i += chunkSize {
		end := i + chunkSize
		if end > len(listings) {
			end = len(listings)
		}
		if err := s.bulkUpsertChunk(listings[i:end]); err != nil {
			return err
		}
	}
	return nil
}

func (s *PostgresStore) bulkUpsertChunk(chunk []*models.Listing) error {
	const cols = 14
	valueStrings := make([]string, 0, len(chunk))
	valueArgs := make([]interface{}, 0, len(chunk)*cols)

	for idx, l := range chunk {
		base := idx * cols
		placeholders := make([]string, cols)
		for j := range placeholders {
			placeholders[j] = fmt.Sprintf("$%d", base+j+1)
		}
		valueStrings = append(valueStrings, "("+strings.Join(placeholders, ",")+")")
		valueArgs = append(valueArgs,
			l.Brand, l.Model, l.Year, l.Km, l.Price, l.City, l.Likes, l.Displacement,
			l.VehicleType, l.Version, l.Description, l.Seller, l.PublishedAt, l.URL)
	}

	query := fmt.Sprintf(`
		INSERT INTO moto_listings
			(marca, modello, anno, km, prezzo, citta, likes, cilindrata,
			 tipo_veicolo, versione, descrizione, venditore, data_pubblicazione, link_annuncio)
		VALUES %s
		ON CONFLICT (link_annuncio) DO UPDATE SET
			marca = EXCLUDED.marca,
			modello = EXCLUDED.modello,
			anno = EXCLUDED.anno,
			km = EXCLUDED.km,
			prezzo = EXCLUDED.prezzo,
			citta = EXCLUDED.citta,
			likes = EXCLUDED.likes,
			cilindrata = EXCLUDED.cilindrata,
			tipo_veicolo = EXCLUDED.tipo_veicolo,
			versione = EXCLUDED.versione,
			descrizione = EXCLUDED.descrizione,
			venditore = EXCLUDED.venditore,
			data_pubblicazione = EXCLUDED.data_pubblicazione,
			updated_at = NOW()
	`, strings.Join(valueStrings, ","))

	if _, err := s.db.Exec(query, valueArgs...); err != nil {
		return fmt.Errorf("postgres: bulk upsert: %w", err)
	}
	return nil
}

// FetchAll retrieves all stored listings ordered by recency. The dashboard
// and the insight service read through this.
func (s *PostgresStore) FetchAll() ([]*models.Listing, error) {
	rows, err := s.db.Query(`
		SELECT id, marca, modello, anno, km, prezzo, citta, likes, cilindrata,
		       tipo_veicolo, versione, descrizione, venditore, data_pubblicazione,
		       link_annuncio, created_at, updated_at
		FROM moto_listings
		ORDER BY data_pubblicazione DESC NULLS LAST, id DESC
	`)
	if err != nil {
		return nil, fmt.Errorf("postgres: fetch all: %w", err)
	}
	defer rows.Close()

	var listings []*models.Listing
	for rows.Next() {
		l := &models.Listing{}
		var (
			marca, modello, citta, tipo, versione, descrizione, venditore sql.NullString
			anno, km, cilindrata                                          sql.NullInt64
			prezzo                                                        sql.NullFloat64
			pubblicazione                                                 sql.NullTime
		)

		if err := rows.Scan(
			&l.ID, &marca, &modello, &anno, &km, &prezzo, &citta, &l.Likes, &cilindrata,
			&tipo, &versione, &descrizione, &venditore, &pubblicazione,
			&l.URL, &l.CreatedAt, &l.UpdatedAt,
		); err != nil {
			return nil, fmt.Errorf("postgres: scan row: %w", err)
		}

		l.Brand = nullStringPtr(marca)
		l.Model = nullStringPtr(modello)
		l.Year = nullIntPtr(anno)
		l.Km = nullIntPtr(km)
		l.Price = nullFloatPtr(prezzo)
		l.City = nullStringPtr(citta)
		l.Displacement = nullIntPtr(cilindrata)
		l.VehicleType = nullStringPtr(tipo)
		l.Version = nullStringPtr(versione)
		l.Description = nullStringPtr(descrizione)
		l.Seller = nullStringPtr(venditore)
		if pubblicazione.Valid {
			l.PublishedAt = pubblicazione.Time
		}

		listings = append(listings, l)
	}
	return listings, rows.Err()
}

func (s *PostgresStore) Close() error {
	return s.db.Close()
}

func nullStringPtr(v sql.NullString) *string {
	if !v.Valid {
		return nil
	}
	return &v.String
}

func nullIntPtr(v sql.NullInt64) *int {
	if !v.Valid {
		return nil
	}
	n := int(v.Int64)
	return &n
}

func nullFloatPtr(v sql.NullFloat64) *float64 {
	if !v.Valid {
		return nil
	}
	return &v.Float64
}
