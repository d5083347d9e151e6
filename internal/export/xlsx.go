// Package export writes report visuals to analyst-friendly workbooks.
package export

import (
	"github.com/rotisserie/eris"
	"github.com/tealeg/xlsx/v2"

	"github.com/insightforge/market-intel/internal/model"
)

// WriteWorkbook saves the report's tabular payloads as one XLSX workbook:
// a sheet per breakdown plus the forecast and back-series.
func WriteWorkbook(path string, report *model.Report, doc *model.ReportDocument) error {
	f := xlsx.NewFile()

	if err := addSummarySheet(f, report, doc); err != nil {
		return err
	}
	if err := addSeriesSheet(f, "Forecast", doc.Visuals.ForecastTable); err != nil {
		return err
	}
	if err := addSeriesSheet(f, "Historical", doc.Visuals.HistoricalSeries); err != nil {
		return err
	}

	shareSheets := []struct {
		name string
		rows []model.ShareRow
	}{
		{"Segment Shares", doc.Visuals.SegmentShares},
		{"Type Shares", doc.Visuals.TypeShares},
		{"Regional Shares", doc.Visuals.RegionalShares},
		{"Player Shares", doc.Visuals.PlayerShares},
	}
	for _, ss := range shareSheets {
		if err := addShareSheet(f, ss.name, ss.rows); err != nil {
			return err
		}
	}

	if err := addProfileSheet(f, doc.Visuals.CompanyProfiles); err != nil {
		return err
	}

	if err := f.Save(path); err != nil {
		return eris.Wrapf(err, "export: save workbook %s", path)
	}
	return nil
}

func addSummarySheet(f *xlsx.File, report *model.Report, doc *model.ReportDocument) error {
	sheet, err := f.AddSheet("Summary")
	if err != nil {
		return eris.Wrap(err, "export: add sheet Summary")
	}

	pairs := [][2]string{
		{"Report ID", report.ID},
		{"Industry", report.Input.Industry},
		{"Geography", report.Input.Geography},
		{"Time Horizon", report.Input.TimeHorizon},
		{"Depth", string(report.Input.Depth)},
		{"Status", string(report.Status)},
	}
	for _, p := range pairs {
		r := sheet.AddRow()
		r.AddCell().SetString(p[0])
		r.AddCell().SetString(p[1])
	}

	r := sheet.AddRow()
	r.AddCell().SetString("Average Confidence")
	r.AddCell().SetFloat(doc.Visuals.AvgConfidence)
	return nil
}

func addSeriesSheet(f *xlsx.File, name string, rows []model.ForecastRow) error {
	sheet, err := f.AddSheet(name)
	if err != nil {
		return eris.Wrapf(err, "export: add sheet %s", name)
	}

	header := sheet.AddRow()
	header.AddCell().SetString("Year")
	header.AddCell().SetString("Market Size (USD Billion)")

	for _, row := range rows {
		r := sheet.AddRow()
		r.AddCell().SetInt(row.Year)
		r.AddCell().SetFloat(row.MarketSizeUSDBillion)
	}
	return nil
}

func addShareSheet(f *xlsx.File, name string, rows []model.ShareRow) error {
	sheet, err := f.AddSheet(name)
	if err != nil {
		return eris.Wrapf(err, "export: add sheet %s", name)
	}

	header := sheet.AddRow()
	header.AddCell().SetString("Label")
	header.AddCell().SetString("Share (%)")

	for _, row := range rows {
		r := sheet.AddRow()
		r.AddCell().SetString(row.Label)
		r.AddCell().SetFloat(row.SharePercent)
	}
	return nil
}

func addProfileSheet(f *xlsx.File, profiles []model.CompanyProfile) error {
	sheet, err := f.AddSheet("Company Profiles")
	if err != nil {
		return eris.Wrap(err, "export: add sheet Company Profiles")
	}

	header := sheet.AddRow()
	header.AddCell().SetString("Company")
	header.AddCell().SetString("Positioning")
	header.AddCell().SetString("Citation")

	for _, p := range profiles {
		r := sheet.AddRow()
		r.AddCell().SetString(p.Name)
		r.AddCell().SetString(p.Positioning)
		r.AddCell().SetInt(p.CitationIndex)
	}
	return nil
}
