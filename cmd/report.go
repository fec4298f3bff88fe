package main

import (
	"encoding/json"
	"os"

	"github.com/rotisserie/eris"
	"github.com/spf13/cobra"

	"github.com/dris-project/impact-engine/internal/filter"
	"github.com/dris-project/impact-engine/internal/report"
)

var reportFilter struct {
	tenant          int64
	approvalStatus  string
	sectorID        string
	subSectorID     string
	hazardType      int64
	hazardCluster   int64
	specificHazard  int64
	geographicLevel int64
	fromDate        string
	toDate          string
	eventID         int64
	assessedBy      string
}

var reportPage struct {
	page     int
	pageSize int
	sortBy   string
	sortDir  string
}

func filterRequest() filter.Request {
	return filter.Request{
		TenantID:          reportFilter.tenant,
		ApprovalStatus:    reportFilter.approvalStatus,
		SectorID:          reportFilter.sectorID,
		SubSectorID:       reportFilter.subSectorID,
		HazardTypeID:      reportFilter.hazardType,
		HazardClusterID:   reportFilter.hazardCluster,
		SpecificHazardID:  reportFilter.specificHazard,
		GeographicLevelID: reportFilter.geographicLevel,
		FromDate:          reportFilter.fromDate,
		ToDate:            reportFilter.toDate,
		DisasterEventID:   reportFilter.eventID,
	}
}

func pageRequest() report.PageRequest {
	size := reportPage.pageSize
	if size == 0 {
		size = cfg.Report.PageSize
	}
	return report.PageRequest{
		Page:          reportPage.page,
		PageSize:      size,
		SortBy:        report.SortBy(reportPage.sortBy),
		SortDirection: report.SortDirection(reportPage.sortDir),
	}
}

var reportCmd = &cobra.Command{
	Use:   "report",
	Short: "Run impact reports",
}

var hazardImpactCmd = &cobra.Command{
	Use:   "hazard-impact",
	Short: "Rank hazard classifications by event count, damages, and losses",
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
		return printJSON(rep)
	},
}

var mostDamagingCmd = &cobra.Command{
	Use:   "most-damaging",
	Short: "Rank disaster events by summed damages or losses",
	RunE: func(cmd *cobra.Command, args []string) error {
		env, err := initEnv(cmd.Context())
		if err != nil {
			return err
		}
		defer env.Close()

		rep := env.Reports.MostDamagingEvents(cmd.Context(), filterRequest(), pageRequest(),
			reportOptions(reportFilter.assessedBy))
		return printJSON(rep)
	},
}

var effectsCmd = &cobra.Command{
	Use:   "effects",
	Short: "List damages, losses, and disruptions with computed costs",
	RunE: func(cmd *cobra.Command, args []string) error {
		env, err := initEnv(cmd.Context())
		if err != nil {
			return err
		}
		defer env.Close()

		rep, err := env.Reports.EffectDetails(cmd.Context(), filterRequest(), reportOptions(reportFilter.assessedBy))
		if err != nil {
			return err
		}
		return printJSON(rep)
	},
}

var disaggregationCmd = &cobra.Command{
	Use:   "disaggregation",
	Short: "Aggregate human-effect disaggregations for one disaster event",
	RunE: func(cmd *cobra.Command, args []string) error {
		if reportFilter.eventID == 0 {
			return eris.New("--event is required")
		}
		env, err := initEnv(cmd.Context())
		if err != nil {
			return err
		}
		defer env.Close()

		summary, err := env.Disagg.Aggregate(cmd.Context(), reportFilter.eventID)
		if err != nil {
			return err
		}
		return printJSON(summary)
	},
}

func printJSON(v any) error {
	enc := json.NewEncoder(os.Stdout)
	enc.SetIndent("", "  ")
	return eris.Wrap(enc.Encode(v), "encode report")
}

func addFilterFlags(cmd *cobra.Command) {
	pf := cmd.PersistentFlags()
	pf.Int64Var(&reportFilter.tenant, "tenant", 0, "country account id (required)")
	pf.StringVar(&reportFilter.approvalStatus, "approval-status", "", "record approval status filter")
	pf.StringVar(&reportFilter.sectorID, "sector", "", "sector id (expanded to its subtree)")
	pf.StringVar(&reportFilter.subSectorID, "subsector", "", "subsector id (replaces --sector)")
	pf.Int64Var(&reportFilter.hazardType, "hazard-type", 0, "hazard type id")
	pf.Int64Var(&reportFilter.hazardCluster, "hazard-cluster", 0, "hazard cluster id")
	pf.Int64Var(&reportFilter.specificHazard, "specific-hazard", 0, "specific hazard id")
	pf.Int64Var(&reportFilter.geographicLevel, "division", 0, "geographic division id")
	pf.StringVar(&reportFilter.fromDate, "from", "", "start date (YYYY, YYYY-MM, or YYYY-MM-DD)")
	pf.StringVar(&reportFilter.toDate, "to", "", "end date (YYYY, YYYY-MM, or YYYY-MM-DD)")
	pf.Int64Var(&reportFilter.eventID, "event", 0, "disaster event id")
	pf.StringVar(&reportFilter.assessedBy, "assessed-by", "", "assessor stamped into metadata")
}

func addPageFlags(cmd *cobra.Command) {
	fl := cmd.Flags()
	fl.IntVar(&reportPage.page, "page", 1, "page number")
	fl.IntVar(&reportPage.pageSize, "page-size", 0, "page size (default from config)")
	fl.StringVar(&reportPage.sortBy, "sort-by", "damages", "damages | losses | eventName | createdAt")
	fl.StringVar(&reportPage.sortDir, "sort-dir", "desc", "asc | desc")
}

func init() {
	addFilterFlags(reportCmd)
	addPageFlags(mostDamagingCmd)

	reportCmd.AddCommand(hazardImpactCmd, mostDamagingCmd, effectsCmd, disaggregationCmd)
	rootCmd.AddCommand(reportCmd)
}
