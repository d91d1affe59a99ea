package store

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"

	"mdm/internal/digest"
	"mdm/internal/models"
)

// ErrDuplicateObject is returned by InsertObject when the id is taken.
var ErrDuplicateObject = errors.New("object id already exists")

const objectColumns = "id, logical_name, mission_id, sensor, platform, classification, tags, byte_size, content_digest, storage_tier, storage_location, created_at, updated_at, object_type, content_type, capture_time, pipeline_run_id"

// InsertObject persists one object row. Uniqueness of id is enforced by the
// primary key inside the single INSERT; there is no separate existence check.
func (s *Store) InsertObject(ctx context.Context, rec *models.ObjectRecord) error {
	if rec == nil {
		return fmt.Errorf("object record is required")
	}
	if err := validateObjectRecord(rec); err != nil {
		return err
	}

	if rec.CreatedAt.IsZero() {
		rec.CreatedAt = time.Now().UTC()
	}
	if rec.UpdatedAt.IsZero() || rec.UpdatedAt.Before(rec.CreatedAt) {
		rec.UpdatedAt = rec.CreatedAt
	}

	tagsJSON, err := mapToJSON(rec.Tags)
	if err != nil {
		return fmt.Errorf("marshal object tags: %w", err)
	}

	_, err = s.db.ExecContext(ctx, `
		INSERT INTO objects (`+objectColumns+`)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
	`,
		rec.ID,
		rec.LogicalName,
		rec.MissionID,
		nullIfEmpty(rec.Sensor),
		nullIfEmpty(rec.Platform),
		rec.Classification,
		tagsJSON,
		rec.ByteSize,
		rec.ContentDigest,
		string(rec.StorageTier),
		rec.StorageLocation,
		formatTime(rec.CreatedAt),
		formatTime(rec.UpdatedAt),
		nullIfEmpty(rec.ObjectType),
		nullIfEmpty(rec.ContentType),
		nullTime(rec.CaptureTime),
		nullIfEmpty(rec.PipelineRunID),
	)
	if err != nil {
		if isDuplicateObject(err) {
			return fmt.Errorf("%w: %s", ErrDuplicateObject, rec.ID)
		}
		return err
	}
	return nil
}

// GetObject returns one object by id, or nil when absent.
func (s *Store) GetObject(ctx context.Context, id string) (*models.ObjectRecord, error) {
	row := s.db.QueryRowContext(ctx, `SELECT `+objectColumns+` FROM objects WHERE id = ?`, id)
	return scanObject(row)
}

// CountObjects returns the number of object rows, optionally scoped to a mission.
func (s *Store) CountObjects(ctx context.Context, missionID string) (int, error) {
	query := "SELECT COUNT(*) FROM objects"
	args := []any{}
	if missionID = strings.TrimSpace(missionID); missionID != "" {
		query += " WHERE mission_id = ?"
		args = append(args, missionID)
	}
	var count int
	if err := s.db.QueryRowContext(ctx, query, args...).Scan(&count); err != nil {
		return 0, err
	}
	return count, nil
}

func validateObjectRecord(rec *models.ObjectRecord) error {
	switch {
	case strings.TrimSpace(rec.ID) == "":
		return fmt.Errorf("object id is required")
	case strings.TrimSpace(rec.MissionID) == "":
		return fmt.Errorf("mission_id is required")
	case rec.ContentDigest == "":
		return fmt.Errorf("content_digest is required")
	case !digest.Valid(rec.ContentDigest):
		return fmt.Errorf("content_digest must be %d lowercase hex characters", digest.HexLen)
	case rec.ByteSize < 0:
		return fmt.Errorf("byte_size must be >= 0")
	case !models.IsValidStorageTier(rec.StorageTier):
		return fmt.Errorf("invalid storage tier: %s", rec.StorageTier)
	case rec.StorageLocation == "":
		return fmt.Errorf("storage_location is required")
	}
	return nil
}

func isDuplicateObject(err error) bool {
	if err == nil {
		return false
	}
	return strings.Contains(err.Error(), "UNIQUE constraint failed: objects.id")
}

func scanObject(scanner interface {
	Scan(dest ...any) error
}) (*models.ObjectRecord, error) {
	rec := models.ObjectRecord{}

	var sensor, platform, objectType, contentType, captureTime, pipelineRunID sql.NullString
	var tagsJSON, tier, createdAt, updatedAt string

	err := scanner.Scan(
		&rec.ID,
		&rec.LogicalName,
		&rec.MissionID,
		&sensor,
		&platform,
		&rec.Classification,
		&tagsJSON,
		&rec.ByteSize,
		&rec.ContentDigest,
		&tier,
		&rec.StorageLocation,
		&createdAt,
		&updatedAt,
		&objectType,
		&contentType,
		&captureTime,
		&pipelineRunID,
	)
	if err != nil {
		if err == sql.ErrNoRows {
			return nil, nil
		}
		return nil, err
	}

	rec.Sensor = sensor.String
	rec.Platform = platform.String
	rec.ObjectType = objectType.String
	rec.ContentType = contentType.String
	rec.PipelineRunID = pipelineRunID.String
	if rec.StorageTier, err = models.ParseStorageTier(tier); err != nil {
		return nil, fmt.Errorf("object %s: %w", rec.ID, err)
	}

	if rec.CreatedAt, err = parseTime(createdAt); err != nil {
		return nil, err
	}
	if rec.UpdatedAt, err = parseTime(updatedAt); err != nil {
		return nil, err
	}
	if captureTime.Valid && captureTime.String != "" {
		parsed, err := parseTime(captureTime.String)
		if err != nil {
			return nil, err
		}
		rec.CaptureTime = &parsed
	}
	if rec.Tags, err = mapFromJSON(tagsJSON); err != nil {
		return nil, fmt.Errorf("parse object tags: %w", err)
	}

	return &rec, nil
}

func mapToJSON(value map[string]any) (string, error) {
	if len(value) == 0 {
		return "{}", nil
	}
	data, err := json.Marshal(value)
	if err != nil {
		return "", err
	}
	return string(data), nil
}

func mapFromJSON(raw string) (map[string]any, error) {
	if raw == "" || raw == "{}" {
		return nil, nil
	}
	out := map[string]any{}
	if err := json.Unmarshal([]byte(raw), &out); err != nil {
		return nil, err
	}
	return out, nil
}
