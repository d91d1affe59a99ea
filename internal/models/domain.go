package models

import (
	"fmt"
	"strings"
)

// StorageTier names the storage class an object's bytes live in.
type StorageTier string

const (
	TierHot  StorageTier = "HOT"
	TierCold StorageTier = "COLD"
)

// EventKind names a lifecycle event in an object's history. The set is open:
// later processes may record kinds this package does not declare.
type EventKind string

const (
	EventCreated  EventKind = "CREATED"
	EventMigrated EventKind = "MIGRATED"
)

const (
	DefaultClassification = "UNCLASS"
	DefaultLogicalName    = "upload.bin"
	DefaultContentType    = "application/octet-stream"
)

var validStorageTiers = map[StorageTier]struct{}{
	TierHot:  {},
	TierCold: {},
}

func IsValidStorageTier(tier StorageTier) bool {
	_, ok := validStorageTiers[tier]
	return ok
}

func ParseStorageTier(raw string) (StorageTier, error) {
	value := StorageTier(strings.ToUpper(strings.TrimSpace(raw)))
	if value == "" {
		return "", fmt.Errorf("storage tier is required")
	}
	if !IsValidStorageTier(value) {
		return "", fmt.Errorf("invalid storage tier: %s", raw)
	}
	return value, nil
}

// ParseEventKind normalizes an event kind. Any non-empty token without
// whitespace is accepted.
func ParseEventKind(raw string) (EventKind, error) {
	value := strings.ToUpper(strings.TrimSpace(raw))
	if value == "" {
		return "", fmt.Errorf("event kind is required")
	}
	if strings.ContainsAny(value, " \t\r\n") {
		return "", fmt.Errorf("invalid event kind: %s", raw)
	}
	return EventKind(value), nil
}
