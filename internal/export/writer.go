package export

import (
	"encoding/csv"
	"errors"
	"fmt"
	"io"

	"github.com/xuri/excelize/v2"
)

// ErrNoSheets is returned when asked to write an empty workbook
var ErrNoSheets = errors.New("no sheets to export")

const columnWidth = 18

// WriteXLSX writes the sheets as one workbook, with a bold grey header row
func WriteXLSX(w io.Writer, sheets ...Sheet) error {
	if len(sheets) == 0 {
		return ErrNoSheets
	}

	f := excelize.NewFile()
	defer f.Close()

	headerStyle, err := f.NewStyle(&excelize.Style{
		Font: &excelize.Font{Bold: true},
		Fill: excelize.Fill{Type: "pattern", Color: []string{"#E0E0E0"}, Pattern: 1},
	})
	if err != nil {
		return fmt.Errorf("create header style: %w", err)
	}

	for i, sheet := range sheets {
		if i == 0 {
			if err := f.SetSheetName("Sheet1", sheet.Name); err != nil {
				return fmt.Errorf("rename sheet: %w", err)
			}
		} else if _, err := f.NewSheet(sheet.Name); err != nil {
			return fmt.Errorf("create sheet %s: %w", sheet.Name, err)
		}

		if err := writeSheet(f, sheet, headerStyle); err != nil {
			return err
		}
	}

	if err := f.Write(w); err != nil {
		return fmt.Errorf("write xlsx: %w", err)
	}
	return nil
}

func writeSheet(f *excelize.File, sheet Sheet, headerStyle int) error {
	if len(sheet.Header) == 0 {
		return nil
	}

	header := make([]any, len(sheet.Header))
	for i, h := range sheet.Header {
		header[i] = h
	}
	if err := f.SetSheetRow(sheet.Name, "A1", &header); err != nil {
		return fmt.Errorf("write header of %s: %w", sheet.Name, err)
	}

	lastCol, _ := excelize.CoordinatesToCellName(len(sheet.Header), 1)
	if err := f.SetCellStyle(sheet.Name, "A1", lastCol, headerStyle); err != nil {
		return fmt.Errorf("style header of %s: %w", sheet.Name, err)
	}

	for r, row := range sheet.Rows {
		values := make([]any, len(row))
		for i, v := range row {
			values[i] = v
		}
		cell, _ := excelize.CoordinatesToCellName(1, r+2)
		if err := f.SetSheetRow(sheet.Name, cell, &values); err != nil {
			return fmt.Errorf("write row %d of %s: %w", r+2, sheet.Name, err)
		}
	}

	first, _ := excelize.ColumnNumberToName(1)
	last, _ := excelize.ColumnNumberToName(len(sheet.Header))
	return f.SetColWidth(sheet.Name, first, last, columnWidth)
}

// WriteCSV writes one sheet as CSV with a UTF-8 byte order mark so
// spreadsheet tools detect the encoding of accented headers
func WriteCSV(w io.Writer, sheet Sheet) error {
	if _, err := io.WriteString(w, "\ufeff"); err != nil {
		return fmt.Errorf("write csv: %w", err)
	}

	writer := csv.NewWriter(w)
	if err := writer.Write(sheet.Header); err != nil {
		return fmt.Errorf("write csv header: %w", err)
	}
	if err := writer.WriteAll(sheet.Rows); err != nil {
		return fmt.Errorf("write csv rows: %w", err)
	}
	return nil
}

// Write writes sheets in the given format. CSV holds only the first sheet.
func Write(w io.Writer, format Format, sheets ...Sheet) error {
	switch format {
	case FormatXLSX:
		return WriteXLSX(w, sheets...)
	case FormatCSV:
		if len(sheets) == 0 {
			return ErrNoSheets
		}
		return WriteCSV(w, sheets[0])
	default:
		return fmt.Errorf("%w: %s", ErrUnknownFormat, format)
	}
}
