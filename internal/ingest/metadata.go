package ingest

import (
	"bytes"
	_ "embed"
	"encoding/json"
	"fmt"
	"strconv"
	"strings"
	"sync"
	"time"

	jsonschema "github.com/santhosh-tekuri/jsonschema/v5"
)

//go:embed metadata.schema.json
var metadataSchemaJSON []byte

const metadataSchemaID = "inmemory://mdm/ingest-metadata.json"

var compiledMetadataSchema = sync.OnceValues(func() (*jsonschema.Schema, error) {
	compiler := jsonschema.NewCompiler()
	if err := compiler.AddResource(metadataSchemaID, bytes.NewReader(metadataSchemaJSON)); err != nil {
		return nil, fmt.Errorf("add schema resource: %w", err)
	}
	return compiler.Compile(metadataSchemaID)
})

// Metadata is the descriptive payload that accompanies artifact bytes.
type Metadata struct {
	ID             string          `json:"id,omitempty"`
	MissionID      string          `json:"mission_id"`
	LogicalName    string          `json:"logical_name,omitempty"`
	Sensor         string          `json:"sensor,omitempty"`
	Platform       string          `json:"platform,omitempty"`
	Classification string          `json:"classification,omitempty"`
	ObjectType     string          `json:"object_type,omitempty"`
	ContentType    string          `json:"content_type,omitempty"`
	CaptureTime    json.RawMessage `json:"capture_time,omitempty"`
	PipelineRunID  string          `json:"pipeline_run_id,omitempty"`
	Tags           map[string]any  `json:"tags,omitempty"`
}

// DecodeMetadata parses and schema-validates a metadata JSON document.
// Empty input yields zero Metadata.
func DecodeMetadata(raw []byte) (Metadata, error) {
	if len(bytes.TrimSpace(raw)) == 0 {
		return Metadata{}, nil
	}

	var doc any
	dec := json.NewDecoder(bytes.NewReader(raw))
	dec.UseNumber()
	if err := dec.Decode(&doc); err != nil {
		return Metadata{}, Wrap(KindValidation, "", ErrInvalidMetadata)
	}
	if _, ok := doc.(map[string]any); !ok {
		return Metadata{}, Wrap(KindValidation, "", ErrInvalidMetadata)
	}

	if err := validateMetadataDoc(doc); err != nil {
		return Metadata{}, err
	}

	var meta Metadata
	if err := json.Unmarshal(raw, &meta); err != nil {
		return Metadata{}, Wrap(KindValidation, "", ErrInvalidMetadata)
	}
	return meta, nil
}

// MetadataFromFields builds metadata from flat string fields such as query
// parameters. Only known scalar fields are read.
func MetadataFromFields(get func(string) string) Metadata {
	meta := Metadata{
		ID:             get("id"),
		MissionID:      get("mission_id"),
		LogicalName:    get("logical_name"),
		Sensor:         get("sensor"),
		Platform:       get("platform"),
		Classification: get("classification"),
		ObjectType:     get("object_type"),
		ContentType:    get("content_type"),
		PipelineRunID:  get("pipeline_run_id"),
	}
	if ct := strings.TrimSpace(get("capture_time")); ct != "" {
		if raw, err := json.Marshal(ct); err == nil {
			meta.CaptureTime = raw
		}
	}
	return meta
}

// Merge fills empty fields of m from fallback.
func (m Metadata) Merge(fallback Metadata) Metadata {
	pick := func(a, b string) string {
		if a != "" {
			return a
		}
		return b
	}
	m.ID = pick(m.ID, fallback.ID)
	m.MissionID = pick(m.MissionID, fallback.MissionID)
	m.LogicalName = pick(m.LogicalName, fallback.LogicalName)
	m.Sensor = pick(m.Sensor, fallback.Sensor)
	m.Platform = pick(m.Platform, fallback.Platform)
	m.Classification = pick(m.Classification, fallback.Classification)
	m.ObjectType = pick(m.ObjectType, fallback.ObjectType)
	m.ContentType = pick(m.ContentType, fallback.ContentType)
	m.PipelineRunID = pick(m.PipelineRunID, fallback.PipelineRunID)
	if len(m.CaptureTime) == 0 {
		m.CaptureTime = fallback.CaptureTime
	}
	if m.Tags == nil {
		m.Tags = fallback.Tags
	}
	return m
}

// Request converts metadata plus payload into an orchestrator request. The
// merged fields are checked against the metadata schema again, since query
// and form fallbacks never passed through DecodeMetadata.
func (m Metadata) Request(data []byte) (Request, error) {
	if err := m.validate(); err != nil {
		return Request{}, err
	}
	captureTime, err := parseCaptureTime(m.CaptureTime)
	if err != nil {
		return Request{}, err
	}
	return Request{
		ID:             strings.TrimSpace(m.ID),
		MissionID:      strings.TrimSpace(m.MissionID),
		LogicalName:    m.LogicalName,
		Sensor:         m.Sensor,
		Platform:       m.Platform,
		Classification: m.Classification,
		ObjectType:     m.ObjectType,
		ContentType:    m.ContentType,
		CaptureTime:    captureTime,
		PipelineRunID:  m.PipelineRunID,
		Tags:           m.Tags,
		Data:           data,
	}, nil
}

func (m Metadata) validate() error {
	raw, err := json.Marshal(m)
	if err != nil {
		return Wrap(KindValidation, "", ErrInvalidMetadata)
	}
	var doc any
	dec := json.NewDecoder(bytes.NewReader(raw))
	dec.UseNumber()
	if err := dec.Decode(&doc); err != nil {
		return Wrap(KindValidation, "", ErrInvalidMetadata)
	}
	return validateMetadataDoc(doc)
}

func validateMetadataDoc(doc any) error {
	schema, err := compiledMetadataSchema()
	if err != nil {
		return fmt.Errorf("compile metadata schema: %w", err)
	}
	if err := schema.Validate(doc); err != nil {
		return Validationf("invalid metadata: %s", schemaMessage(err))
	}
	return nil
}

// parseCaptureTime accepts unix seconds (number or digit string) or RFC3339.
func parseCaptureTime(raw json.RawMessage) (*time.Time, error) {
	trimmed := bytes.TrimSpace(raw)
	if len(trimmed) == 0 || string(trimmed) == "null" {
		return nil, nil
	}

	var value string
	if trimmed[0] == '"' {
		if err := json.Unmarshal(trimmed, &value); err != nil {
			return nil, Validationf("invalid capture_time")
		}
		value = strings.TrimSpace(value)
		if value == "" {
			return nil, nil
		}
	} else {
		value = string(trimmed)
	}

	if secs, err := strconv.ParseInt(value, 10, 64); err == nil {
		t := time.Unix(secs, 0).UTC()
		return &t, nil
	}
	t, err := time.Parse(time.RFC3339, value)
	if err != nil {
		return nil, Validationf("invalid capture_time %q: use unix seconds or RFC3339", value)
	}
	t = t.UTC()
	return &t, nil
}

func schemaMessage(err error) string {
	if ve, ok := err.(*jsonschema.ValidationError); ok {
		leaf := ve
		for len(leaf.Causes) > 0 {
			leaf = leaf.Causes[0]
		}
		location := strings.TrimPrefix(leaf.InstanceLocation, "/")
		if location == "" {
			return leaf.Message
		}
		return location + ": " + leaf.Message
	}
	return err.Error()
}
