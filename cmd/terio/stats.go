package main

import (
	"encoding/json"

	"github.com/spf13/cobra"
	"github.com/vcanio/Terio-sub000/pkg/graph"
	"github.com/vcanio/Terio-sub000/pkg/output"
	"github.com/vcanio/Terio-sub000/pkg/patient"
)

var statsJSON bool

var statsCmd = &cobra.Command{
	Use:   "stats [id|name]",
	Short: "Summarize a patient's support network",
	Args:  cobra.MaximumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		_, kv, err := cliSetup(cmd)
		if err != nil {
			return err
		}
		defer kv.Close()

		ref := ""
		if len(args) == 1 {
			ref = args[0]
		}
		p, err := findPatient(cmd.Context(), patient.NewKVRegistry(kv), ref)
		if err != nil {
			return err
		}
		b, err := loadBoard(cmd.Context(), kv, p)
		if err != nil {
			return err
		}

		m := graph.Compute(b)
		if statsJSON {
			enc := json.NewEncoder(cmd.OutOrStdout())
			enc.SetIndent("", "  ")
			return enc.Encode(m)
		}
		output.PrintMetrics(cmd.OutOrStdout(), p.Name, b, m)
		return nil
	},
}

func init() {
	statsCmd.Flags().BoolVar(&statsJSON, "json", false, "Print the metrics as JSON")
	rootCmd.AddCommand(statsCmd)
}
