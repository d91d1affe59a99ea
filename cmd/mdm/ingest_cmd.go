package main

import (
	"context"
	"fmt"
	"mime"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/spf13/cobra"
	"gopkg.in/yaml.v3"

	"mdm/internal/api"
	"mdm/internal/config"
)

type ingestOptions struct {
	missionID      string
	id             string
	metaPath       string
	logicalName    string
	contentType    string
	classification string
	sensor         string
	platform       string
	objectType     string
	apiKey         string
}

func newIngestCmd(cfg *config.Config) *cobra.Command {
	opts := ingestOptions{}

	cmd := &cobra.Command{
		Use:   "ingest <file>",
		Short: "Upload a file to an mdm server",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			path := args[0]
			meta, err := buildIngestMeta(path, opts)
			if err != nil {
				return err
			}

			f, err := os.Open(path)
			if err != nil {
				return err
			}
			defer f.Close()

			contentType := opts.contentType
			if contentType == "" {
				contentType = mime.TypeByExtension(filepath.Ext(path))
			}

			key := opts.apiKey
			if key == "" {
				key = cfg.APIKey
			}
			client := api.NewClient(cfg.APIURL, key)

			ctx := cmd.Context()
			if ctx == nil {
				ctx = context.Background()
			}
			resp, err := client.Ingest(ctx, f, contentType, meta)
			if err != nil {
				return err
			}
			return writeOutput(resp)
		},
	}

	cmd.Flags().StringVar(&opts.missionID, "mission", "", "mission id (required unless set in --meta)")
	cmd.Flags().StringVar(&opts.id, "id", "", "object id to use instead of a generated one")
	cmd.Flags().StringVar(&opts.metaPath, "meta", "", "YAML or JSON sidecar file with metadata fields")
	cmd.Flags().StringVar(&opts.logicalName, "name", "", "logical name (defaults to the file name)")
	cmd.Flags().StringVar(&opts.contentType, "content-type", "", "payload content type")
	cmd.Flags().StringVar(&opts.classification, "classification", "", "classification label")
	cmd.Flags().StringVar(&opts.sensor, "sensor", "", "sensor name")
	cmd.Flags().StringVar(&opts.platform, "platform", "", "platform name")
	cmd.Flags().StringVar(&opts.objectType, "object-type", "", "object type")
	cmd.Flags().StringVar(&opts.apiKey, "api-key", "", "API key (defaults to MDM_API_KEY)")

	return cmd
}

// buildIngestMeta merges the sidecar file with flag values. Flags win.
func buildIngestMeta(path string, opts ingestOptions) (map[string]any, error) {
	meta := map[string]any{}
	if opts.metaPath != "" {
		data, err := os.ReadFile(opts.metaPath)
		if err != nil {
			return nil, fmt.Errorf("read metadata file: %w", err)
		}
		meta, err = parseSidecar(data)
		if err != nil {
			return nil, fmt.Errorf("parse metadata file %s: %w", opts.metaPath, err)
		}
	}

	setIfNotEmpty(meta, "mission_id", opts.missionID)
	setIfNotEmpty(meta, "id", opts.id)
	setIfNotEmpty(meta, "logical_name", opts.logicalName)
	setIfNotEmpty(meta, "classification", opts.classification)
	setIfNotEmpty(meta, "sensor", opts.sensor)
	setIfNotEmpty(meta, "platform", opts.platform)
	setIfNotEmpty(meta, "object_type", opts.objectType)
	setIfNotEmpty(meta, "content_type", opts.contentType)
	if _, ok := meta["logical_name"]; !ok {
		meta["logical_name"] = filepath.Base(path)
	}

	if mission, _ := meta["mission_id"].(string); strings.TrimSpace(mission) == "" {
		return nil, fmt.Errorf("mission id is required (use --mission or set mission_id in --meta)")
	}
	return meta, nil
}

// parseSidecar decodes a YAML or JSON metadata document into a JSON-encodable map.
func parseSidecar(data []byte) (map[string]any, error) {
	meta := map[string]any{}
	if err := yaml.Unmarshal(data, &meta); err != nil {
		return nil, err
	}
	if meta == nil {
		meta = map[string]any{}
	}
	for key, value := range meta {
		meta[key] = normalizeSidecarValue(value)
	}
	return meta, nil
}

func normalizeSidecarValue(value any) any {
	switch v := value.(type) {
	case time.Time:
		return v.UTC().Format(time.RFC3339)
	case map[string]any:
		for key, inner := range v {
			v[key] = normalizeSidecarValue(inner)
		}
		return v
	case []any:
		for i, inner := range v {
			v[i] = normalizeSidecarValue(inner)
		}
		return v
	default:
		return value
	}
}

func setIfNotEmpty(meta map[string]any, key, value string) {
	if value = strings.TrimSpace(value); value != "" {
		meta[key] = value
	}
}
