package main

import (
	"encoding/json"
	"fmt"
	"io"

	"github.com/spf13/cobra"

	"github.com/KevinKickass/AlarmConfigurator/internal/catalog"
	"github.com/KevinKickass/AlarmConfigurator/internal/types"
)

type normalizeOutput struct {
	Version  string                  `json:"version"`
	Addons   []types.AddonDefinition `json:"addons"`
	Warnings []string                `json:"warnings"`
}

var normalizeCmd = &cobra.Command{
	Use:   "normalize [files or directories...]",
	Short: "Print the normalized addon catalog with its data warnings",
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, err := loadConfig()
		if err != nil {
			return err
		}
		if len(args) > 0 {
			cfg.Catalog.SearchPaths = args
		}

		provider, err := loadProvider(cfg.Catalog, newLogger())
		if err != nil {
			return err
		}

		out := newNormalizeOutput(provider.Current())
		if err := writeNormalized(cmd.OutOrStdout(), out); err != nil {
			return err
		}

		strict, _ := cmd.Flags().GetBool("strict")
		if strict && len(out.Warnings) > 0 {
			return fmt.Errorf("catalog has %d data warnings", len(out.Warnings))
		}
		return nil
	},
}

func init() {
	normalizeCmd.Flags().Bool("strict", false, "exit non-zero when the catalog raised data warnings")
	rootCmd.AddCommand(normalizeCmd)
}

func newNormalizeOutput(snap *catalog.Snapshot) normalizeOutput {
	out := normalizeOutput{
		Version:  snap.Version(),
		Addons:   snap.All(),
		Warnings: snap.Warnings(),
	}
	if out.Warnings == nil {
		out.Warnings = []string{}
	}
	return out
}

func writeNormalized(w io.Writer, out normalizeOutput) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(out)
}
