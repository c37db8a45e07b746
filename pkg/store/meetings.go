package store

import (
	"context"
	"fmt"
	"time"

	"github.com/engagic/pipeline/pkg/models"
	"github.com/google/uuid"
)

// meetingID builds the vendor-scoped composite ID spec.md §3 calls for.
func meetingID(banana, vendorMeetingID string) string {
	return fmt.Sprintf("meeting:%s:%s", banana, vendorMeetingID)
}

// itemID builds a composite ID scoped to its parent meeting.
func itemID(meetingID, vendorItemID string) string {
	return fmt.Sprintf("item:%s:%s", meetingID, vendorItemID)
}

// UpsertMeetings idempotently writes city's upcoming meetings, keyed by
// (banana, vendor_meeting_id) (spec.md §4.5). Returns the meetings that were
// newly inserted or whose title, start time, or URLs changed (meetings
// already present and unchanged are left out), so the caller can decide
// which ones need a fresh queue entry.
func (s *Store) UpsertMeetings(ctx context.Context, banana string, meetings []models.NormalizedMeeting) ([]models.Meeting, error) {
	tx, err := s.db.BeginTxx(ctx, nil)
	if err != nil {
		return nil, fmt.Errorf("upserting meetings for %s: %w", banana, err)
	}
	defer func() { _ = tx.Rollback() }()

	now := time.Now().UTC()
	var changed []models.Meeting

	for _, nm := range meetings {
		if err := nm.Validate(); err != nil {
			return nil, fmt.Errorf("meeting %s/%s: %w", banana, nm.VendorMeetingID, err)
		}

		id := meetingID(banana, nm.VendorMeetingID)
		row := models.Meeting{
			ID:               id,
			Banana:           banana,
			Title:            nm.Title,
			ScheduledStart:   nm.Start,
			VendorMeetingID:  nm.VendorMeetingID,
			PacketURL:        nm.PacketURL,
			AgendaURL:        nm.AgendaURL,
			ProcessingStatus: models.ProcessingPending,
			CreatedAt:        now,
			UpdatedAt:        now,
		}

		res, err := tx.ExecContext(ctx, `
			INSERT INTO meetings (id, banana, title, scheduled_start, vendor_meeting_id, packet_url, agenda_url, processing_status, created_at, updated_at)
			VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
			ON CONFLICT (banana, vendor_meeting_id) DO UPDATE SET
				title           = excluded.title,
				scheduled_start = excluded.scheduled_start,
				packet_url      = excluded.packet_url,
				agenda_url      = excluded.agenda_url,
				updated_at      = excluded.updated_at
			WHERE meetings.title != excluded.title
			   OR meetings.scheduled_start != excluded.scheduled_start
			   OR meetings.packet_url IS NOT excluded.packet_url
			   OR meetings.agenda_url IS NOT excluded.agenda_url
		`, row.ID, row.Banana, row.Title, row.ScheduledStart, row.VendorMeetingID, nullable(row.PacketURL), nullable(row.AgendaURL), row.ProcessingStatus, row.CreatedAt, row.UpdatedAt)
		if err != nil {
			return nil, fmt.Errorf("upserting meeting %s: %w", id, err)
		}

		n, err := res.RowsAffected()
		if err != nil {
			return nil, fmt.Errorf("checking upsert result for %s: %w", id, err)
		}
		if n > 0 {
			changed = append(changed, row)
		}
	}

	if err := tx.Commit(); err != nil {
		return nil, fmt.Errorf("committing meeting upsert for %s: %w", banana, err)
	}
	return changed, nil
}

func nullable(s string) any {
	if s == "" {
		return nil
	}
	return s
}

// UpsertItemsAndAttachments atomically replaces the item/attachment set for
// a meeting (spec.md §4.5): readers never see a half-loaded item set.
func (s *Store) UpsertItemsAndAttachments(ctx context.Context, meetingID string, items []models.Item, attachmentsByItem map[string][]models.Attachment) error {
	tx, err := s.db.BeginTxx(ctx, nil)
	if err != nil {
		return fmt.Errorf("replacing items for meeting %s: %w", meetingID, err)
	}
	defer func() { _ = tx.Rollback() }()

	if _, err := tx.ExecContext(ctx, `
		DELETE FROM attachments WHERE item_id IN (SELECT id FROM items WHERE meeting_id = ?)
	`, meetingID); err != nil {
		return fmt.Errorf("clearing attachments for meeting %s: %w", meetingID, err)
	}
	if _, err := tx.ExecContext(ctx, `DELETE FROM items WHERE meeting_id = ?`, meetingID); err != nil {
		return fmt.Errorf("clearing items for meeting %s: %w", meetingID, err)
	}

	for _, item := range items {
		id := itemID(meetingID, item.ID)
		if _, err := tx.ExecContext(ctx, `
			INSERT INTO items (id, meeting_id, sequence, title, matter_number, summary)
			VALUES (?, ?, ?, ?, ?, ?)
		`, id, meetingID, item.Sequence, item.Title, nullable(item.MatterNumber), nullable(item.Summary)); err != nil {
			return fmt.Errorf("inserting item %s: %w", id, err)
		}

		for _, att := range attachmentsByItem[item.ID] {
			attID := uuid.NewString()
			if _, err := tx.ExecContext(ctx, `
				INSERT INTO attachments (id, item_id, display_name, url, vendor_meta)
				VALUES (?, ?, ?, ?, ?)
			`, attID, id, att.DisplayName, att.URL, nullable(att.VendorMeta)); err != nil {
				return fmt.Errorf("inserting attachment for item %s: %w", id, err)
			}
		}
	}

	return tx.Commit()
}

// RecordSummary writes the outcome of a successful extraction+summarization
// pass and marks the meeting completed (spec.md §4.5).
func (s *Store) RecordSummary(ctx context.Context, meetingID, summary, topics string) error {
	res, err := s.db.ExecContext(ctx, `
		UPDATE meetings SET summary = ?, topics = ?, processing_status = ?, updated_at = ?
		WHERE id = ?
	`, summary, nullable(topics), models.ProcessingCompleted, time.Now().UTC(), meetingID)
	if err != nil {
		return fmt.Errorf("recording summary for %s: %w", meetingID, err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("checking summary update for %s: %w", meetingID, err)
	}
	if n == 0 {
		return fmt.Errorf("meeting %s not found", meetingID)
	}
	return nil
}

// SetProcessingStatus transitions a meeting's processing_status (e.g. to
// running or failed) without touching its summary/topics.
func (s *Store) SetProcessingStatus(ctx context.Context, meetingID string, status models.ProcessingStatus) error {
	_, err := s.db.ExecContext(ctx, `
		UPDATE meetings SET processing_status = ?, updated_at = ? WHERE id = ?
	`, status, time.Now().UTC(), meetingID)
	if err != nil {
		return fmt.Errorf("setting processing status for %s: %w", meetingID, err)
	}
	return nil
}

// GetMeeting loads a single meeting by ID.
func (s *Store) GetMeeting(ctx context.Context, meetingID string) (models.Meeting, error) {
	var m models.Meeting
	err := s.db.GetContext(ctx, &m, `
		SELECT id, banana, title, scheduled_start, vendor_meeting_id,
		       COALESCE(packet_url, '') AS packet_url, COALESCE(agenda_url, '') AS agenda_url,
		       processing_status, COALESCE(summary, '') AS summary, COALESCE(topics, '') AS topics,
		       created_at, updated_at
		FROM meetings WHERE id = ?
	`, meetingID)
	if err != nil {
		return models.Meeting{}, fmt.Errorf("loading meeting %s: %w", meetingID, err)
	}
	return m, nil
}

// ItemsForMeeting loads every item (and its attachments) for a meeting, used
// by the Processor's items:// source_url path (spec.md §4.9).
func (s *Store) ItemsForMeeting(ctx context.Context, meetingID string) ([]models.Item, map[string][]models.Attachment, error) {
	var items []models.Item
	if err := s.db.SelectContext(ctx, &items, `
		SELECT id, meeting_id, sequence, title,
		       COALESCE(matter_number, '') AS matter_number, COALESCE(summary, '') AS summary
		FROM items WHERE meeting_id = ? ORDER BY sequence
	`, meetingID); err != nil {
		return nil, nil, fmt.Errorf("loading items for %s: %w", meetingID, err)
	}

	attachmentsByItem := make(map[string][]models.Attachment, len(items))
	for _, item := range items {
		var atts []models.Attachment
		if err := s.db.SelectContext(ctx, &atts, `
			SELECT id, item_id, display_name, url, COALESCE(vendor_meta, '') AS vendor_meta
			FROM attachments WHERE item_id = ?
		`, item.ID); err != nil {
			return nil, nil, fmt.Errorf("loading attachments for item %s: %w", item.ID, err)
		}
		attachmentsByItem[item.ID] = atts
	}

	return items, attachmentsByItem, nil
}
