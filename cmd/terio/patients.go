package main

import (
	"fmt"

	"github.com/spf13/cobra"
	"github.com/vcanio/Terio-sub000/pkg/output"
	"github.com/vcanio/Terio-sub000/pkg/patient"
)

var patientsCmd = &cobra.Command{
	Use:     "patients",
	Aliases: []string{"ls"},
	Short:   "List patients",
	Args:    cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		_, kv, err := cliSetup(cmd)
		if err != nil {
			return err
		}
		defer kv.Close()

		reg := patient.NewKVRegistry(kv)
		list, err := reg.List(cmd.Context())
		if err != nil {
			return err
		}
		active, _, err := reg.Active(cmd.Context())
		if err != nil {
			return err
		}
		output.PrintPatients(cmd.OutOrStdout(), list, active.ID)
		return nil
	},
}

var patientsAddCmd = &cobra.Command{
	Use:   "add <name>",
	Short: "Register a patient",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		_, kv, err := cliSetup(cmd)
		if err != nil {
			return err
		}
		defer kv.Close()

		p, err := patient.NewKVRegistry(kv).Create(cmd.Context(), args[0])
		if err != nil {
			return err
		}
		fmt.Fprintf(cmd.OutOrStdout(), "%s %s\n", p.ID, p.Name)
		return nil
	},
}

var patientsUseCmd = &cobra.Command{
	Use:   "use <id|name>",
	Short: "Make a patient the one the web app opens",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		_, kv, err := cliSetup(cmd)
		if err != nil {
			return err
		}
		defer kv.Close()

		reg := patient.NewKVRegistry(kv)
		p, err := findPatient(cmd.Context(), reg, args[0])
		if err != nil {
			return err
		}
		if _, err := reg.SetActive(cmd.Context(), p.ID); err != nil {
			return err
		}
		fmt.Fprintf(cmd.OutOrStdout(), "active patient: %s\n", p.Name)
		return nil
	},
}

var patientsRmCmd = &cobra.Command{
	Use:   "rm <id|name>",
	Short: "Delete a patient and their network map",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		_, kv, err := cliSetup(cmd)
		if err != nil {
			return err
		}
		defer kv.Close()

		reg := patient.NewKVRegistry(kv)
		p, err := findPatient(cmd.Context(), reg, args[0])
		if err != nil {
			return err
		}
		if err := reg.Delete(cmd.Context(), p.ID); err != nil {
			return err
		}
		fmt.Fprintf(cmd.OutOrStdout(), "deleted %s\n", p.Name)
		return nil
	},
}

var patientsPruneCmd = &cobra.Command{
	Use:   "prune",
	Short: "Delete stored maps that belong to no registered patient",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		_, kv, err := cliSetup(cmd)
		if err != nil {
			return err
		}
		defer kv.Close()

		pruned, err := patient.NewKVRegistry(kv).Prune(cmd.Context())
		if err != nil {
			return err
		}
		fmt.Fprintf(cmd.OutOrStdout(), "removed %d orphaned map(s)\n", len(pruned))
		return nil
	},
}

func init() {
	patientsCmd.AddCommand(patientsAddCmd, patientsUseCmd, patientsRmCmd, patientsPruneCmd)
	rootCmd.AddCommand(patientsCmd)
}
