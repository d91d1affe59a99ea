package models

import "time"

// HistoryEvent is one append-only audit entry for an object.
type HistoryEvent struct {
	Seq      int64          `json:"seq,omitempty"`
	ObjectID string         `json:"object_id"`
	Kind     EventKind      `json:"event"`
	Details  map[string]any `json:"details,omitempty"`
	At       time.Time      `json:"at"`
	Actor    string         `json:"actor"`
}
