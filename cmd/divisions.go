package main

import (
	"fmt"
	"os"
	"strings"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/dris-project/impact-engine/internal/geo"
)

var divisionMapping geo.FieldMapping

var divisionsCmd = &cobra.Command{
	Use:   "divisions",
	Short: "Geographic division helpers",
}

var divisionsLoadCmd = &cobra.Command{
	Use:   "load <shapefile>",
	Short: "Load administrative boundaries from a shapefile",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx := cmd.Context()

		path := args[0]
		if strings.HasPrefix(path, "http://") || strings.HasPrefix(path, "https://") {
			fetched, err := geo.FetchShapefile(ctx, nil, path, cmd.Flag("temp-dir").Value.String())
			if err != nil {
				return err
			}
			path = fetched
		}

		rows, skipped, err := geo.ParseShapefile(path, divisionMapping)
		if err != nil {
			return err
		}
		if skipped > 0 {
			zap.L().Warn("skipped shapefile records", zap.Int("count", skipped))
		}

		env, err := initEnv(ctx)
		if err != nil {
			return err
		}
		defer env.Close()

		loader := geo.NewLoader(env.Pool, cfg.Divisions.RatePerSecond, env.Log)
		loaded, err := loader.Load(ctx, rows)
		if err != nil {
			return err
		}

		fmt.Fprintf(cmd.OutOrStdout(), "loaded %d divisions (%d skipped)\n", loaded, skipped)
		return nil
	},
}

func init() {
	divisionsLoadCmd.Flags().StringVar(&divisionMapping.CodeField, "code-field", "GID", "attribute holding the division code")
	divisionsLoadCmd.Flags().StringVar(&divisionMapping.NameField, "name-field", "NAME", "attribute holding the division name")
	divisionsLoadCmd.Flags().IntVar(&divisionMapping.Level, "level", 1, "administrative level to stamp on loaded rows")
	divisionsLoadCmd.Flags().String("temp-dir", os.TempDir(), "working directory for downloaded archives")
	divisionsCmd.AddCommand(divisionsLoadCmd)
	rootCmd.AddCommand(divisionsCmd)
}
