package store

import (
	"context"
	"fmt"
	"strings"
	"time"

	"mdm/internal/models"
)

const historyColumns = "seq, object_id, event, details, at, actor"

// AppendHistory records one lifecycle event and sets ev.Seq.
func (s *Store) AppendHistory(ctx context.Context, ev *models.HistoryEvent) error {
	if ev == nil {
		return fmt.Errorf("history event is required")
	}
	if strings.TrimSpace(ev.ObjectID) == "" {
		return fmt.Errorf("object_id is required")
	}
	kind, err := models.ParseEventKind(string(ev.Kind))
	if err != nil {
		return err
	}
	ev.Kind = kind
	if ev.At.IsZero() {
		ev.At = time.Now().UTC()
	}

	detailsJSON, err := mapToJSON(ev.Details)
	if err != nil {
		return fmt.Errorf("marshal history details: %w", err)
	}

	res, err := s.db.ExecContext(ctx, `
		INSERT INTO object_history (object_id, event, details, at, actor)
		VALUES (?, ?, ?, ?, ?)
	`, ev.ObjectID, string(ev.Kind), detailsJSON, formatTime(ev.At), ev.Actor)
	if err != nil {
		return err
	}
	if seq, err := res.LastInsertId(); err == nil {
		ev.Seq = seq
	}
	return nil
}

// ListHistory returns the events recorded for an object in append order.
func (s *Store) ListHistory(ctx context.Context, objectID string) ([]models.HistoryEvent, error) {
	rows, err := s.db.QueryContext(ctx, `SELECT `+historyColumns+` FROM object_history WHERE object_id = ? ORDER BY seq ASC`, objectID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	events := []models.HistoryEvent{}
	for rows.Next() {
		var ev models.HistoryEvent
		var kind, detailsJSON, at string
		if err := rows.Scan(&ev.Seq, &ev.ObjectID, &kind, &detailsJSON, &at, &ev.Actor); err != nil {
			return nil, err
		}
		ev.Kind = models.EventKind(kind)
		if ev.At, err = parseTime(at); err != nil {
			return nil, err
		}
		if ev.Details, err = mapFromJSON(detailsJSON); err != nil {
			return nil, fmt.Errorf("parse history details: %w", err)
		}
		events = append(events, ev)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return events, nil
}
