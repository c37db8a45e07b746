package store

import (
	"context"
	"fmt"

	"github.com/engagic/pipeline/pkg/models"
)

// UpsertCity inserts or updates a city row, keyed by banana (spec.md §4.5).
func (s *Store) UpsertCity(ctx context.Context, city models.City) error {
	if err := models.ValidateBanana(city.Banana); err != nil {
		return err
	}

	_, err := s.db.ExecContext(ctx, `
		INSERT INTO cities (banana, display_name, state, vendor, slug, status)
		VALUES (?, ?, ?, ?, ?, ?)
		ON CONFLICT (banana) DO UPDATE SET
			display_name = excluded.display_name,
			state         = excluded.state,
			vendor        = excluded.vendor,
			slug          = excluded.slug,
			status        = excluded.status
	`, city.Banana, city.DisplayName, city.State, city.Vendor, city.Slug, city.Status)
	if err != nil {
		return fmt.Errorf("upserting city %s: %w", city.Banana, err)
	}
	return nil
}

// CityFilter narrows ListCities. A zero-value filter lists every city.
type CityFilter struct {
	Status models.CityStatus
	Vendor models.Vendor
}

// ListCities returns cities matching filter, ordered by banana.
func (s *Store) ListCities(ctx context.Context, filter CityFilter) ([]models.City, error) {
	query := "SELECT banana, display_name, state, vendor, slug, status FROM cities WHERE 1=1"
	var args []any

	if filter.Status != "" {
		query += " AND status = ?"
		args = append(args, filter.Status)
	}
	if filter.Vendor != "" {
		query += " AND vendor = ?"
		args = append(args, filter.Vendor)
	}
	query += " ORDER BY banana"

	var cities []models.City
	if err := s.db.SelectContext(ctx, &cities, query, args...); err != nil {
		return nil, fmt.Errorf("listing cities: %w", err)
	}
	return cities, nil
}

// DeactivateCity flips a city's status to inactive so the Conductor stops
// polling it.
func (s *Store) DeactivateCity(ctx context.Context, banana string) error {
	res, err := s.db.ExecContext(ctx, `UPDATE cities SET status = ? WHERE banana = ?`, models.CityStatusInactive, banana)
	if err != nil {
		return fmt.Errorf("deactivating city %s: %w", banana, err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("checking deactivate result for %s: %w", banana, err)
	}
	if n == 0 {
		return fmt.Errorf("city %s not found", banana)
	}
	return nil
}
