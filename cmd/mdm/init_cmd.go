package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"mdm/internal/config"
	"mdm/internal/models"
	"mdm/internal/storage"
	"mdm/internal/store"
)

type initResult struct {
	DBPath        string `json:"db_path"`
	SchemaVersion int    `json:"schema_version"`
	HotRoot       string `json:"hot_root"`
	ColdRoot      string `json:"cold_root"`
}

func newInitCmd(cfg *config.Config) *cobra.Command {
	return &cobra.Command{
		Use:   "init",
		Short: "Create the metadata schema and storage roots, then exit",
		Long:  "Create the metadata schema and storage roots, then exit. Safe to run repeatedly.",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			result, err := initialize(cfg)
			if err != nil {
				return err
			}
			return writeOutput(result)
		},
	}
}

func initialize(cfg *config.Config) (initResult, error) {
	st, err := store.Open(cfg.DBPath)
	if err != nil {
		return initResult{}, fmt.Errorf("initialize metadata store: %w", err)
	}
	if err := st.Ping(); err != nil {
		_ = st.Close()
		return initResult{}, fmt.Errorf("ping metadata store: %w", err)
	}
	if err := st.Close(); err != nil {
		return initResult{}, fmt.Errorf("close metadata store: %w", err)
	}

	backend, err := storage.NewLocalFS(cfg.HotRoot, cfg.ColdRoot)
	if err != nil {
		return initResult{}, fmt.Errorf("initialize storage: %w", err)
	}
	hotRoot, _ := backend.Root(models.TierHot)
	coldRoot, _ := backend.Root(models.TierCold)

	db, err := store.OpenRaw(cfg.DBPath)
	if err != nil {
		return initResult{}, err
	}
	defer db.Close()
	plan, err := store.MigrationPlan(db)
	if err != nil {
		return initResult{}, err
	}

	return initResult{
		DBPath:        cfg.DBPath,
		SchemaVersion: plan.CurrentVersion,
		HotRoot:       hotRoot,
		ColdRoot:      coldRoot,
	}, nil
}
