package cmd

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/gdi-labs/importkit/internal/presets"
)

var presetsCmd = &cobra.Command{
	Use:   "presets",
	Short: "List available extraction context presets",
	RunE: func(cmd *cobra.Command, args []string) error {
		sets := [][]presets.Preset{presets.Builtin()}
		if importPresetsFile != "" {
			extra, err := presets.LoadFile(importPresetsFile)
			if err != nil {
				return err
			}
			sets = append(sets, extra)
		}
		for _, set := range sets {
			for _, p := range set {
				fmt.Printf("%-12s %s\n", p.ID, p.Name)
				for _, f := range p.Context.Fields {
					req := ""
					if f.Required {
						req = " (required)"
					}
					fmt.Printf("    %-12s %s%s\n", f.Field, f.Description, req)
				}
			}
		}
		return nil
	},
}

func init() {
	presetsCmd.Flags().StringVar(&importPresetsFile, "presets-file", "", "JSON file with additional presets")
}
