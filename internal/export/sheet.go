// Package export flattens observations and dashboard lists into tables and
// writes them as XLSX workbooks or CSV files.
package export

import (
	"errors"
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/sadewadee/safety-observer/internal/catalog"
	"github.com/sadewadee/safety-observer/internal/domain"
)

// ErrUnknownFormat is returned for unsupported export formats
var ErrUnknownFormat = errors.New("unknown export format")

// Format is an export file format
type Format string

const (
	FormatXLSX Format = "xlsx"
	FormatCSV  Format = "csv"
)

// ParseFormat reads a format query value, defaulting to xlsx
func ParseFormat(s string) (Format, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "", "xlsx":
		return FormatXLSX, nil
	case "csv":
		return FormatCSV, nil
	default:
		return "", fmt.Errorf("%w: %s", ErrUnknownFormat, s)
	}
}

// ContentType returns the MIME type of the format
func (f Format) ContentType() string {
	if f == FormatCSV {
		return "text/csv; charset=utf-8"
	}
	return "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet"
}

// FileName builds "<base>_<YYYY-MM-DD>.<ext>"
func FileName(base string, date time.Time, f Format) string {
	return fmt.Sprintf("%s_%s.%s", base, date.Format(domain.DateLayout), f)
}

// NoRecordsLabel fills the operator column of observations without records
const NoRecordsLabel = "SIN REGISTROS"

// Sheet is one named table
type Sheet struct {
	Name   string
	Header []string
	Rows   [][]string
}

// Sheet names
const (
	SheetObservations = "Observaciones"
	SheetOperators    = "Operadores"
	SheetDeviations   = "Desviaciones"
)

var observationLeadColumns = []string{
	"ID Observación", "Fecha", "Hora Creación", "Turno", "Observador",
	"Sede", "Grupo", "Tipo Observación", "Operador",
}

// ObservationSheet flattens observations into one row per record, with one
// column per catalog question. Observations without records get a single
// row marked SIN REGISTROS.
func ObservationSheet(observations []*domain.Observation, questions []catalog.Question, loc *time.Location) Sheet {
	if loc == nil {
		loc = time.Local
	}

	header := make([]string, 0, len(observationLeadColumns)+len(questions)+1)
	header = append(header, observationLeadColumns...)
	for _, q := range questions {
		header = append(header, q.Label)
	}
	header = append(header, "Comentarios")

	sheet := Sheet{Name: SheetObservations, Header: header, Rows: make([][]string, 0, len(observations))}

	for _, obs := range observations {
		lead := []string{
			obs.ID.String(),
			obs.Date,
			obs.CreatedAt.In(loc).Format("15:04:05"),
			obs.Shift,
			obs.SupervisorName,
			obs.Site,
			obs.Group,
			obs.ObservationType,
		}

		if len(obs.Records) == 0 {
			row := append(append([]string(nil), lead...), NoRecordsLabel)
			row = append(row, make([]string, len(questions)+1)...)
			sheet.Rows = append(sheet.Rows, row)
			continue
		}

		for _, rec := range obs.Records {
			answers := make(map[string]string, len(rec.Checklist))
			for k, v := range rec.Checklist {
				answers[catalog.NormalizeKey(k)] = v
			}

			row := make([]string, 0, len(header))
			row = append(row, lead...)
			row = append(row, rec.OperatorName)
			for _, q := range questions {
				row = append(row, answers[catalog.NormalizeKey(q.ID)])
			}
			row = append(row, rec.Comments)
			sheet.Rows = append(sheet.Rows, row)
		}
	}

	return sheet
}

// OperatorSheet lists the operators of a statistics bundle
func OperatorSheet(entries []domain.OperatorEntry) Sheet {
	sheet := Sheet{
		Name:   SheetOperators,
		Header: []string{"Operador", "Sede", "Grupo", "Observaciones"},
		Rows:   make([][]string, 0, len(entries)),
	}
	for _, e := range entries {
		sheet.Rows = append(sheet.Rows, []string{e.Operator, e.Site, e.Group, strconv.Itoa(e.Count)})
	}
	return sheet
}

// DeviationSheet lists the deviations of a statistics bundle
func DeviationSheet(entries []domain.DeviationEntry) Sheet {
	sheet := Sheet{
		Name:   SheetDeviations,
		Header: []string{"Fecha", "Operador", "Sede", "Grupo", "Ítem", "Observador", "Comentarios"},
		Rows:   make([][]string, 0, len(entries)),
	}
	for _, e := range entries {
		sheet.Rows = append(sheet.Rows, []string{e.Date, e.Operator, e.Site, e.Group, e.Item, e.Observer, e.Comments})
	}
	return sheet
}
