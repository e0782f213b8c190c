package export

import (
	"bytes"
	"encoding/csv"
	"strings"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/xuri/excelize/v2"

	"github.com/sadewadee/safety-observer/internal/catalog"
	"github.com/sadewadee/safety-observer/internal/domain"
)

func sampleObservations() []*domain.Observation {
	created := time.Date(2024, 3, 10, 14, 5, 9, 0, time.UTC)
	return []*domain.Observation{
		{
			ID:              uuid.MustParse("11111111-1111-1111-1111-111111111111"),
			SupervisorName:  "Ana",
			Date:            "2024-03-10",
			Shift:           "Diurno",
			Site:            domain.SiteElDescanso,
			Group:           "1",
			ObservationType: domain.TypeRoads,
			CreatedAt:       created,
			Records: []domain.ObservationRecord{
				{OperatorName: "Juan", Checklist: map[string]string{"Q1": "No", "q2": "Si"}, Comments: "sin casco"},
				{OperatorName: "Pedro", Checklist: map[string]string{"q1": "Si"}},
			},
		},
		{
			ID:              uuid.MustParse("22222222-2222-2222-2222-222222222222"),
			SupervisorName:  "Luis",
			Date:            "2024-03-11",
			Shift:           "Nocturno",
			Site:            domain.SitePribbenow,
			Group:           "3",
			ObservationType: domain.TypeIsland,
			CreatedAt:       created,
		},
	}
}

var sampleQuestions = []catalog.Question{
	{ID: "q1", Label: "Pregunta uno"},
	{ID: "q2", Label: "Pregunta dos"},
}

func TestObservationSheet(t *testing.T) {
	sheet := ObservationSheet(sampleObservations(), sampleQuestions, time.UTC)

	assert.Equal(t, SheetObservations, sheet.Name)
	assert.Equal(t, []string{
		"ID Observación", "Fecha", "Hora Creación", "Turno", "Observador",
		"Sede", "Grupo", "Tipo Observación", "Operador",
		"Pregunta uno", "Pregunta dos", "Comentarios",
	}, sheet.Header)

	require.Len(t, sheet.Rows, 3)

	assert.Equal(t, "14:05:09", sheet.Rows[0][2])
	assert.Equal(t, "Juan", sheet.Rows[0][8])
	assert.Equal(t, "No", sheet.Rows[0][9])
	assert.Equal(t, "Si", sheet.Rows[0][10])
	assert.Equal(t, "sin casco", sheet.Rows[0][11])

	assert.Equal(t, "Pedro", sheet.Rows[1][8])
	assert.Equal(t, "", sheet.Rows[1][10])

	assert.Equal(t, NoRecordsLabel, sheet.Rows[2][8])
	for _, row := range sheet.Rows {
		assert.Len(t, row, len(sheet.Header))
	}
}

func TestWriteXLSX(t *testing.T) {
	stats := []domain.OperatorEntry{{Operator: "Juan", Site: domain.SiteElDescanso, Group: "1", Count: 2}}

	var buf bytes.Buffer
	err := WriteXLSX(&buf,
		ObservationSheet(sampleObservations(), sampleQuestions, time.UTC),
		OperatorSheet(stats),
	)
	require.NoError(t, err)

	f, err := excelize.OpenReader(&buf)
	require.NoError(t, err)
	defer f.Close()

	assert.Equal(t, []string{SheetObservations, SheetOperators}, f.GetSheetList())

	v, err := f.GetCellValue(SheetObservations, "I4")
	require.NoError(t, err)
	assert.Equal(t, NoRecordsLabel, v)

	v, err = f.GetCellValue(SheetOperators, "D2")
	require.NoError(t, err)
	assert.Equal(t, "2", v)
}

func TestWriteCSV(t *testing.T) {
	var buf bytes.Buffer
	entries := []domain.DeviationEntry{{Date: "2024-03-10", Operator: "Juan", Item: "¿Usa casco?", Comments: "a, b"}}

	require.NoError(t, Write(&buf, FormatCSV, DeviationSheet(entries)))

	out := buf.String()
	require.True(t, strings.HasPrefix(out, "\ufeff"))

	records, err := csv.NewReader(strings.NewReader(strings.TrimPrefix(out, "\ufeff"))).ReadAll()
	require.NoError(t, err)
	require.Len(t, records, 2)
	assert.Equal(t, "Ítem", records[0][4])
	assert.Equal(t, "a, b", records[1][6])
}

func TestParseFormat(t *testing.T) {
	f, err := ParseFormat("")
	require.NoError(t, err)
	assert.Equal(t, FormatXLSX, f)

	f, err = ParseFormat("CSV")
	require.NoError(t, err)
	assert.Equal(t, FormatCSV, f)

	_, err = ParseFormat("pdf")
	assert.ErrorIs(t, err, ErrUnknownFormat)

	assert.Equal(t, "Observaciones_2024-03-10.xlsx",
		FileName("Observaciones", time.Date(2024, 3, 10, 0, 0, 0, 0, time.UTC), FormatXLSX))
}

func TestWriteWithoutSheets(t *testing.T) {
	assert.ErrorIs(t, WriteXLSX(&bytes.Buffer{}), ErrNoSheets)
}
