package main

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"

	"github.com/spf13/cobra"
	"github.com/vcanio/Terio-sub000/pkg/export"
	"github.com/vcanio/Terio-sub000/pkg/output"
	"github.com/vcanio/Terio-sub000/pkg/patient"
)

var (
	exportPatient   string
	exportNodeScale float64
)

var exportCmd = &cobra.Command{
	Use:   "export [map|table|report|csv ...]",
	Short: "Write a patient's network map as PNG images or CSV",
	Long: `Export renders the stored board of a patient into the export directory.
With no kinds given every kind is written. Without --patient the active
patient is used.`,
	ValidArgs: []string{"map", "table", "report", "csv"},
	RunE:      runExport,
}

func init() {
	exportCmd.Flags().StringVar(&exportPatient, "patient", "", "Patient ID or name (default: the active patient)")
	exportCmd.Flags().Float64Var(&exportNodeScale, "node-scale", 1, "Size of the node markers on the map")
	rootCmd.AddCommand(exportCmd)
}

func runExport(cmd *cobra.Command, args []string) error {
	kinds := export.Kinds
	if len(args) > 0 {
		kinds = nil
		for _, a := range args {
			k, err := export.ParseKind(a)
			if err != nil {
				return fmt.Errorf("%w: %s", err, a)
			}
			kinds = append(kinds, k)
		}
	}

	cfg, kv, err := cliSetup(cmd)
	if err != nil {
		return err
	}
	defer kv.Close()

	ctx := cmd.Context()
	p, err := findPatient(ctx, patient.NewKVRegistry(kv), exportPatient)
	if err != nil {
		return err
	}
	b, err := loadBoard(ctx, kv, p)
	if err != nil {
		return err
	}

	exporter := export.NewExporter(export.NewPNGRasterizer(export.DefaultPixelRatio), nil)
	delivery := export.DirDelivery{Dir: cfg.ExportDir}
	out := cmd.OutOrStdout()

	var failed int
	for _, kind := range kinds {
		a, err := exporter.Export(ctx, export.Request{
			Kind:        kind,
			PatientName: p.Name,
			Board:       b,
			NodeScale:   exportNodeScale,
		})
		if errors.Is(err, export.ErrNothingToExport) {
			fmt.Fprintf(out, "%s: nothing to export, the map is empty\n", kind)
			continue
		}
		if err == nil {
			err = delivery.Deliver(ctx, a)
		}
		if err != nil {
			output.PrintError(os.Stderr, err)
			failed++
			continue
		}
		output.PrintExport(out, a, filepath.Join(cfg.ExportDir, a.Filename))
	}
	if failed > 0 {
		return fmt.Errorf("%d export(s) failed", failed)
	}
	return nil
}
