// Package main provides the terio entry point: the network map web app and
// a few CLI commands over the same patient database.
package main

import (
	"context"
	"fmt"
	"os"
	"strings"

	"github.com/spf13/cobra"
	"github.com/vcanio/Terio-sub000/pkg/board"
	"github.com/vcanio/Terio-sub000/pkg/config"
	"github.com/vcanio/Terio-sub000/pkg/logging"
	"github.com/vcanio/Terio-sub000/pkg/model"
	"github.com/vcanio/Terio-sub000/pkg/output"
	"github.com/vcanio/Terio-sub000/pkg/patient"
	"github.com/vcanio/Terio-sub000/pkg/storage"
)

// Version is set at build time via ldflags
var Version = "dev"

func main() {
	if err := rootCmd.Execute(); err != nil {
		output.PrintError(os.Stderr, err)
		os.Exit(1)
	}
}

var rootCmd = &cobra.Command{
	Use:   "terio",
	Short: "Social support network maps for therapy sessions",
	Long: `terio serves an interactive map of a patient's social support network:
people placed in family, friends, work and community quadrants at three
levels of closeness, linked to each other and to the patient.

Without a subcommand it starts the web server.`,
	SilenceUsage:  true,
	SilenceErrors: true,
	RunE:          runServe,
}

func init() {
	config.RegisterFlags(rootCmd.PersistentFlags())
	rootCmd.Version = Version
}

// loadConfig reads the layered configuration and applies the log settings
func loadConfig(cmd *cobra.Command) (*config.Config, error) {
	cfg, err := config.Load(cmd.Flags())
	if err != nil {
		return nil, err
	}
	if err := applyLogging(cfg); err != nil {
		return nil, err
	}
	if cfg.File != "" {
		logging.Debug("config file loaded", "path", cfg.File)
	}
	return cfg, nil
}

func applyLogging(cfg *config.Config) error {
	level, err := logging.ParseLevel(cfg.Verbosity, cfg.VerboseCnt)
	if err != nil {
		return err
	}
	logging.SetLevel(level)
	logging.SetJSONOutput(cfg.JSONLogs)
	return nil
}

func openStorage(cfg *config.Config) (storage.KV, error) {
	if cfg.InMemory() {
		logging.Warn("using in-memory storage, nothing will be kept")
		return storage.NewMemory(), nil
	}
	return storage.OpenSQLite(cfg.Data)
}

// cliSetup prepares the commands that print to stdout: logs go to stderr
func cliSetup(cmd *cobra.Command) (*config.Config, storage.KV, error) {
	logging.SetOutput(os.Stderr)
	cfg, err := loadConfig(cmd)
	if err != nil {
		return nil, nil, err
	}
	kv, err := openStorage(cfg)
	if err != nil {
		return nil, nil, err
	}
	return cfg, kv, nil
}

// findPatient resolves ref as a patient ID or, failing that, a name. An empty
// ref means the active patient.
func findPatient(ctx context.Context, reg *patient.KVRegistry, ref string) (patient.Patient, error) {
	if ref == "" {
		p, ok, err := reg.Active(ctx)
		if err != nil {
			return patient.Patient{}, err
		}
		if !ok {
			return patient.Patient{}, fmt.Errorf("no active patient; name one explicitly")
		}
		return p, nil
	}
	if p, err := reg.Get(ctx, ref); err == nil {
		return p, nil
	}
	list, err := reg.List(ctx)
	if err != nil {
		return patient.Patient{}, err
	}
	var match []patient.Patient
	for _, p := range list {
		if strings.EqualFold(p.Name, ref) {
			match = append(match, p)
		}
	}
	switch len(match) {
	case 0:
		return patient.Patient{}, fmt.Errorf("%w: %s", patient.ErrUnknownPatient, ref)
	case 1:
		return match[0], nil
	}
	return patient.Patient{}, fmt.Errorf("%d patients are named %q; use the ID", len(match), ref)
}

// loadBoard reads a patient's board without making them active
func loadBoard(ctx context.Context, kv storage.KV, p patient.Patient) (model.Board, error) {
	store, err := board.Open(ctx, board.Options{Key: storage.BoardKey(p.ID), KV: kv})
	if err != nil {
		return model.Board{}, err
	}
	return store.Snapshot(), nil
}
