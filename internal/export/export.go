// Package export renders document listings as CSV or XLSX.
package export

import (
	"encoding/csv"
	"fmt"
	"io"
	"strconv"
	"strings"
	"time"

	"github.com/xuri/excelize/v2"

	"dmsapi/internal/model"
	"dmsapi/internal/naming"
)

type Format string

const (
	CSV  Format = "csv"
	XLSX Format = "xlsx"
)

const sheetName = "Documents"

// Headers is the column order shared by both formats.
var Headers = []string{
	"Type",
	"Company",
	"Document ID",
	"Date",
	"Filename",
	"Version",
	"Size (bytes)",
	"Created At",
}

// ParseFormat accepts "csv" or "xlsx" in any case; empty means CSV.
func ParseFormat(s string) (Format, error) {
	switch Format(strings.ToLower(strings.TrimSpace(s))) {
	case "", CSV:
		return CSV, nil
	case XLSX:
		return XLSX, nil
	default:
		return "", fmt.Errorf("unsupported export format %q", s)
	}
}

func (f Format) ContentType() string {
	if f == XLSX {
		return "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet"
	}
	return "text/csv"
}

// Filename is the attachment name for an export produced at now.
func (f Format) Filename(now time.Time) string {
	return "dms-export-" + now.UTC().Format("2006-01-02") + "." + string(f)
}

// Row renders one document in Headers order.
func Row(d model.Document) []string {
	version := d.Version
	if version <= 0 {
		version = 1
	}
	size := ""
	if d.Size > 0 {
		size = strconv.FormatInt(d.Size, 10)
	}
	return []string{
		d.DocType,
		d.CompanyName,
		d.DocSerial,
		d.DocDate.String(),
		d.Filename,
		strconv.Itoa(version),
		size,
		d.CreatedAt.UTC().Format(time.RFC3339),
	}
}

// Write encodes docs to w in format f.
func Write(w io.Writer, f Format, docs []model.Document) error {
	switch f {
	case CSV:
		return writeCSV(w, docs)
	case XLSX:
		return writeXLSX(w, docs)
	default:
		return fmt.Errorf("unsupported export format %q", f)
	}
}

func writeCSV(w io.Writer, docs []model.Document) error {
	cw := csv.NewWriter(w)
	if err := cw.Write(Headers); err != nil {
		return err
	}
	for _, d := range docs {
		if err := cw.Write(Row(d)); err != nil {
			return err
		}
	}
	cw.Flush()
	return cw.Error()
}

func writeXLSX(w io.Writer, docs []model.Document) error {
	f := excelize.NewFile()
	defer f.Close()

	if err := f.SetSheetName("Sheet1", sheetName); err != nil {
		return fmt.Errorf("rename sheet: %w", err)
	}

	header := make([]any, 0, len(Headers)+1)
	for _, h := range Headers {
		header = append(header, h)
	}
	header = append(header, "Size")
	if err := f.SetSheetRow(sheetName, "A1", &header); err != nil {
		return fmt.Errorf("write header: %w", err)
	}
	bold, err := f.NewStyle(&excelize.Style{Font: &excelize.Font{Bold: true}})
	if err != nil {
		return fmt.Errorf("header style: %w", err)
	}
	last, _ := excelize.CoordinatesToCellName(len(header), 1)
	if err := f.SetCellStyle(sheetName, "A1", last, bold); err != nil {
		return fmt.Errorf("apply header style: %w", err)
	}

	for i, d := range docs {
		cells := Row(d)
		row := make([]any, 0, len(cells)+1)
		for j, c := range cells {
			// keep numbers numeric so spreadsheets can sum them
			if (j == 5 || j == 6) && c != "" {
				n, _ := strconv.ParseInt(c, 10, 64)
				row = append(row, n)
				continue
			}
			row = append(row, c)
		}
		row = append(row, naming.FormatFileSize(d.Size))
		cell, _ := excelize.CoordinatesToCellName(1, i+2)
		if err := f.SetSheetRow(sheetName, cell, &row); err != nil {
			return fmt.Errorf("write row %d: %w", i+2, err)
		}
	}
	if err := f.SetColWidth(sheetName, "A", "I", 18); err != nil {
		return fmt.Errorf("set column width: %w", err)
	}
	return f.Write(w)
}
