package main

import (
	"context"
	"errors"
	"fmt"

	"github.com/spf13/cobra"

	"mdm/internal/config"
	"mdm/internal/digest"
	"mdm/internal/models"
	"mdm/internal/storage"
	"mdm/internal/store"
)

var errVerifyMismatch = errors.New("stored bytes do not match recorded metadata")

type verifyReport struct {
	ID             string                `json:"id"`
	StorageTier    models.StorageTier    `json:"storage_tier"`
	Location       string                `json:"storage_location"`
	RecordedDigest string                `json:"recorded_digest"`
	ActualDigest   string                `json:"actual_digest"`
	RecordedBytes  int64                 `json:"recorded_bytes"`
	ActualBytes    int64                 `json:"actual_bytes"`
	OK             bool                  `json:"ok"`
	History        []models.HistoryEvent `json:"history"`
}

func newVerifyCmd(cfg *config.Config) *cobra.Command {
	return &cobra.Command{
		Use:   "verify <id>",
		Short: "Recompute an object's digest and compare it with its metadata",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			st, err := store.Open(cfg.DBPath)
			if err != nil {
				return err
			}
			defer st.Close()

			backend, err := storage.NewLocalFS(cfg.HotRoot, cfg.ColdRoot)
			if err != nil {
				return err
			}

			report, verr := verifyObject(cmd.Context(), st, backend, args[0])
			if report != nil {
				if err := writeOutput(report); err != nil {
					return err
				}
			}
			return verr
		},
	}
}

func verifyObject(ctx context.Context, objects store.ObjectStore, backend storage.Backend, id string) (*verifyReport, error) {
	if ctx == nil {
		ctx = context.Background()
	}
	rec, err := objects.GetObject(ctx, id)
	if err != nil {
		return nil, fmt.Errorf("load object %s: %w", id, err)
	}
	if rec == nil {
		return nil, fmt.Errorf("object not found: %s", id)
	}

	report := &verifyReport{
		ID:             rec.ID,
		StorageTier:    rec.StorageTier,
		Location:       rec.StorageLocation,
		RecordedDigest: rec.ContentDigest,
		RecordedBytes:  rec.ByteSize,
	}

	r, err := backend.Open(ctx, rec.StorageTier, rec.StorageLocation)
	if err != nil {
		return report, fmt.Errorf("open stored bytes: %w", err)
	}
	defer r.Close()

	sum, n, err := digest.SumReader(r)
	if err != nil {
		return report, fmt.Errorf("read stored bytes: %w", err)
	}
	report.ActualDigest = sum
	report.ActualBytes = n

	history, err := objects.ListHistory(ctx, rec.ID)
	if err != nil {
		return report, fmt.Errorf("list history: %w", err)
	}
	report.History = history

	report.OK = sum == rec.ContentDigest && n == rec.ByteSize
	if !report.OK {
		return report, fmt.Errorf("%w: %s", errVerifyMismatch, rec.ID)
	}
	return report, nil
}
