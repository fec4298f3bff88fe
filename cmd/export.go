package main

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/google/uuid"
	"github.com/rotisserie/eris"
	"github.com/spf13/cobra"

	"github.com/dris-project/impact-engine/internal/export"
)

var exportFlags struct {
	out    string
	format string
}

var exportCmd = &cobra.Command{
	Use:   "export",
	Short: "Export report output to xlsx or CSV",
}

var exportHazardCmd = &cobra.Command{
	Use:   "hazard-impact",
	Short: "Export the hazard impact report",
	RunE: func(cmd *cobra.Command, args []string) error {
		env, err := initEnv(cmd.Context())
		if err != nil {
			return err
		}
		defer env.Close()

		rep, err := env.Reports.HazardImpact(cmd.Context(), filterRequest(), reportOptions(reportFilter.assessedBy))
		if err != nil {
			return err
		}

		names, err := export.NewNameStore(env.Pool).Resolve(cmd.Context())
		if err != nil {
			return err
		}

		return writeExport("hazard-impact", cmd, func(f *os.File, format string) error {
			if format == "csv" {
				return export.HazardImpactCSV(rep, names, f)
			}
			return export.HazardImpactXLSX(rep, names, f)
		})
	},
}

var exportMostDamagingCmd = &cobra.Command{
	Use:   "most-damaging",
	Short: "Export the most-damaging events report",
	RunE: func(cmd *cobra.Command, args []string) error {
		env, err := initEnv(cmd.Context())
		if err != nil {
			return err
		}
		defer env.Close()

		rep := env.Reports.MostDamagingEvents(cmd.Context(), filterRequest(), pageRequest(),
			reportOptions(reportFilter.assessedBy))

		return writeExport("most-damaging", cmd, func(f *os.File, format string) error {
			if format == "csv" {
				return export.MostDamagingCSV(rep, f)
			}
			return export.MostDamagingXLSX(rep, f)
		})
	},
}

func writeExport(kind string, cmd *cobra.Command, render func(*os.File, string) error) error {
	format := exportFlags.format
	if format == "" {
		format = cfg.Export.Format
	}
	if format != "xlsx" && format != "csv" {
		return eris.Errorf("unsupported export format: %s", format)
	}

	path := exportFlags.out
	if path == "" {
		name := fmt.Sprintf("%s-%s.%s", kind, uuid.NewString(), format)
		path = filepath.Join(cfg.Export.OutputDir, name)
	}

	f, err := os.Create(path)
	if err != nil {
		return eris.Wrap(err, "create export file")
	}
	defer f.Close()

	if err := render(f, format); err != nil {
		return err
	}

	fmt.Fprintf(cmd.OutOrStdout(), "wrote %s\n", path)
	return nil
}

func init() {
	addFilterFlags(exportCmd)
	addPageFlags(exportMostDamagingCmd)
	exportCmd.PersistentFlags().StringVar(&exportFlags.out, "out", "", "output path (default: generated name in export dir)")
	exportCmd.PersistentFlags().StringVar(&exportFlags.format, "format", "", "xlsx | csv (default from config)")
	exportCmd.AddCommand(exportHazardCmd, exportMostDamagingCmd)
	rootCmd.AddCommand(exportCmd)
}
