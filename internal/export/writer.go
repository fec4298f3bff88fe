package export

import (
	"encoding/csv"
	"io"
	"strconv"
	"time"

	"github.com/rotisserie/eris"
	"github.com/tealeg/xlsx/v2"

	"github.com/dris-project/impact-engine/internal/model"
	"github.com/dris-project/impact-engine/internal/report"
)

var hazardColumns = []string{
	"Hazard Type", "Hazard Cluster", "Specific Hazard",
	"Event Count", "Damages", "Losses", "% of Total",
}

var eventColumns = []string{
	"Event ID", "Event Name", "Created At", "Total Damages", "Total Losses",
}

// HazardImpactXLSX writes the hazard impact report as a workbook with
// one sheet per ranking axis plus a metadata sheet.
func HazardImpactXLSX(rep *report.HazardImpactReport, names *Names, w io.Writer) error {
	f := xlsx.NewFile()
	for _, section := range []struct {
		sheet string
		rows  []report.HazardImpactRow
	}{
		{"By Event Count", rep.ByEventCount},
		{"By Damages", rep.ByDamages},
		{"By Losses", rep.ByLosses},
	} {
		sheet, err := f.AddSheet(section.sheet)
		if err != nil {
			return eris.Wrapf(err, "export: add sheet %s", section.sheet)
		}
		writeRow(sheet, hazardColumns)
		for _, r := range section.rows {
			writeRow(sheet, hazardRow(r, names))
		}
	}
	if err := addMetadataSheet(f, rep.Metadata); err != nil {
		return err
	}
	return eris.Wrap(f.Write(w), "export: write hazard workbook")
}

// HazardImpactCSV flattens all three axes into one CSV with a leading
// axis column.
func HazardImpactCSV(rep *report.HazardImpactReport, names *Names, w io.Writer) error {
	cw := csv.NewWriter(w)
	if err := cw.Write(append([]string{"Axis"}, hazardColumns...)); err != nil {
		return eris.Wrap(err, "export: write hazard csv header")
	}
	for _, section := range []struct {
		axis string
		rows []report.HazardImpactRow
	}{
		{"eventCount", rep.ByEventCount},
		{"damages", rep.ByDamages},
		{"losses", rep.ByLosses},
	} {
		for _, r := range section.rows {
			if err := cw.Write(append([]string{section.axis}, hazardRow(r, names)...)); err != nil {
				return eris.Wrap(err, "export: write hazard csv row")
			}
		}
	}
	cw.Flush()
	return eris.Wrap(cw.Error(), "export: flush hazard csv")
}

// MostDamagingXLSX writes the ranked event list plus a metadata sheet.
func MostDamagingXLSX(rep *report.MostDamagingReport, w io.Writer) error {
	f := xlsx.NewFile()
	sheet, err := f.AddSheet("Events")
	if err != nil {
		return eris.Wrap(err, "export: add events sheet")
	}
	writeRow(sheet, eventColumns)
	for _, ev := range rep.Events {
		writeRow(sheet, eventRow(ev))
	}
	if err := addMetadataSheet(f, rep.Metadata); err != nil {
		return err
	}
	return eris.Wrap(f.Write(w), "export: write events workbook")
}

// MostDamagingCSV writes the ranked event list as CSV.
func MostDamagingCSV(rep *report.MostDamagingReport, w io.Writer) error {
	cw := csv.NewWriter(w)
	if err := cw.Write(eventColumns); err != nil {
		return eris.Wrap(err, "export: write events csv header")
	}
	for _, ev := range rep.Events {
		if err := cw.Write(eventRow(ev)); err != nil {
			return eris.Wrap(err, "export: write events csv row")
		}
	}
	cw.Flush()
	return eris.Wrap(cw.Error(), "export: flush events csv")
}

func hazardRow(r report.HazardImpactRow, names *Names) []string {
	return []string{
		names.HazardType(r.HazardTypeID),
		names.HazardCluster(r.HazardClusterID),
		names.SpecificHazard(r.SpecificHazardID),
		strconv.FormatInt(r.EventCount, 10),
		formatAmount(r.Damages),
		formatAmount(r.Losses),
		formatAmount(r.PercentOfTotal),
	}
}

func eventRow(ev report.EventImpact) []string {
	return []string{
		strconv.FormatInt(ev.EventID, 10),
		ev.EventName,
		ev.CreatedAt.Format(time.RFC3339),
		formatAmount(ev.TotalDamages),
		formatAmount(ev.TotalLosses),
	}
}

func formatAmount(v float64) string {
	return strconv.FormatFloat(v, 'f', 2, 64)
}

func writeRow(sheet *xlsx.Sheet, cells []string) {
	row := sheet.AddRow()
	for _, c := range cells {
		row.AddCell().SetString(c)
	}
}

func addMetadataSheet(f *xlsx.File, md model.Metadata) error {
	sheet, err := f.AddSheet("Metadata")
	if err != nil {
		return eris.Wrap(err, "export: add metadata sheet")
	}
	for _, kv := range [][2]string{
		{"Assessment Type", md.AssessmentType},
		{"Confidence Level", md.ConfidenceLevel},
		{"Currency", md.Currency},
		{"Assessment Date", md.AssessmentDate.Format(time.RFC3339)},
		{"Assessed By", md.AssessedBy},
		{"Notes", md.Notes},
	} {
		writeRow(sheet, kv[:])
	}
	return nil
}
