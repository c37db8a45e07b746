package store

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/engagic/pipeline/pkg/models"
	"github.com/google/uuid"
)

// UpsertMatter idempotently writes a recurring legislative matter, keyed by
// (banana, matter_number) (spec.md §3). Returns the matter's ID.
func (s *Store) UpsertMatter(ctx context.Context, banana, matterNumber, normalizedTitle string) (string, error) {
	var id string
	err := s.db.GetContext(ctx, &id, `
		SELECT id FROM city_matters WHERE banana = ? AND matter_number = ?
	`, banana, matterNumber)
	switch {
	case err == nil:
		if _, updErr := s.db.ExecContext(ctx, `
			UPDATE city_matters SET title = ? WHERE id = ?
		`, normalizedTitle, id); updErr != nil {
			return "", fmt.Errorf("updating matter %s: %w", id, updErr)
		}
		return id, nil
	case err != sql.ErrNoRows:
		return "", fmt.Errorf("looking up matter %s/%s: %w", banana, matterNumber, err)
	}

	id = "matter:" + uuid.NewString()
	if _, err := s.db.ExecContext(ctx, `
		INSERT INTO city_matters (id, banana, matter_number, title)
		VALUES (?, ?, ?, ?)
	`, id, banana, matterNumber, normalizedTitle); err != nil {
		return "", fmt.Errorf("inserting matter %s/%s: %w", banana, matterNumber, err)
	}
	return id, nil
}

// RecordMatterAppearance links a matter to an item within a meeting
// (spec.md §3 MatterAppearance), ignoring duplicates of the same
// (matter, meeting, item) triple.
func (s *Store) RecordMatterAppearance(ctx context.Context, matterID, meetingID, itemID string) error {
	var existing string
	err := s.db.GetContext(ctx, &existing, `
		SELECT id FROM matter_appearances WHERE matter_id = ? AND meeting_id = ? AND item_id = ?
	`, matterID, meetingID, itemID)
	if err == nil {
		return nil
	}
	if err != sql.ErrNoRows {
		return fmt.Errorf("checking matter appearance: %w", err)
	}

	_, err = s.db.ExecContext(ctx, `
		INSERT INTO matter_appearances (id, matter_id, meeting_id, item_id)
		VALUES (?, ?, ?, ?)
	`, uuid.NewString(), matterID, meetingID, itemID)
	if err != nil {
		return fmt.Errorf("recording matter appearance: %w", err)
	}
	return nil
}

// RecordMatterSummary writes the matter-level rollup summary produced by a
// matter job (spec.md §4.6 MatterPayload).
func (s *Store) RecordMatterSummary(ctx context.Context, matterID, summary string) error {
	res, err := s.db.ExecContext(ctx, `UPDATE city_matters SET summary = ? WHERE id = ?`, summary, matterID)
	if err != nil {
		return fmt.Errorf("recording matter summary for %s: %w", matterID, err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("checking matter summary update for %s: %w", matterID, err)
	}
	if n == 0 {
		return fmt.Errorf("matter %s not found", matterID)
	}
	return nil
}

// GetMatter loads a single matter by ID.
func (s *Store) GetMatter(ctx context.Context, matterID string) (models.CityMatter, error) {
	var m models.CityMatter
	if err := s.db.GetContext(ctx, &m, `
		SELECT id, banana, matter_number, title, COALESCE(summary, '') AS summary
		FROM city_matters WHERE id = ?
	`, matterID); err != nil {
		return models.CityMatter{}, fmt.Errorf("loading matter %s: %w", matterID, err)
	}
	return m, nil
}

// ItemTitlesByIDs loads item titles for the ids listed in a MatterPayload,
// used to build the matter-job rollup prompt.
func (s *Store) ItemTitlesByIDs(ctx context.Context, itemIDs []string) (map[string]string, error) {
	titles := make(map[string]string, len(itemIDs))
	if len(itemIDs) == 0 {
		return titles, nil
	}
	for _, id := range itemIDs {
		var title string
		if err := s.db.GetContext(ctx, &title, `SELECT title FROM items WHERE id = ?`, id); err != nil {
			if err == sql.ErrNoRows {
				continue
			}
			return nil, fmt.Errorf("loading item %s: %w", id, err)
		}
		titles[id] = title
	}
	return titles, nil
}
