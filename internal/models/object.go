package models

import "time"

// ObjectRecord is the metadata row for one ingested artifact.
//
// Only StorageTier, StorageLocation and UpdatedAt may change after insert,
// and only through tier migration.
type ObjectRecord struct {
	ID              string         `json:"id"`
	LogicalName     string         `json:"logical_name"`
	MissionID       string         `json:"mission_id"`
	Sensor          string         `json:"sensor,omitempty"`
	Platform        string         `json:"platform,omitempty"`
	Classification  string         `json:"classification"`
	Tags            map[string]any `json:"tags,omitempty"`
	ByteSize        int64          `json:"byte_size"`
	ContentDigest   string         `json:"content_digest"`
	StorageTier     StorageTier    `json:"storage_tier"`
	StorageLocation string         `json:"storage_location"`
	CreatedAt       time.Time      `json:"created_at"`
	UpdatedAt       time.Time      `json:"updated_at"`
	ObjectType      string         `json:"object_type,omitempty"`
	ContentType     string         `json:"content_type,omitempty"`
	CaptureTime     *time.Time     `json:"capture_time,omitempty"`
	PipelineRunID   string         `json:"pipeline_run_id,omitempty"`
}
