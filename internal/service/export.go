package service

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"log"
	"time"

	"github.com/sadewadee/safety-observer/internal/archive"
	"github.com/sadewadee/safety-observer/internal/catalog"
	"github.com/sadewadee/safety-observer/internal/domain"
	"github.com/sadewadee/safety-observer/internal/export"
	"github.com/sadewadee/safety-observer/tlmt"
	"github.com/sadewadee/safety-observer/tlmt/gonoop"
)

// Dashboard list names accepted by DashboardLists
const (
	ListOperators  = "operators"
	ListDeviations = "deviations"
)

// ErrUnknownList is returned for an unsupported dashboard list name
var ErrUnknownList = errors.New("unknown list, expected operators or deviations")

// ExportSource is the read side the observation export needs
type ExportSource interface {
	ListAllWithRecords(ctx context.Context) ([]*domain.Observation, error)
}

// File is a generated download
type File struct {
	Name        string
	ContentType string
	Data        []byte
	Rows        int
}

// ExportService builds spreadsheet exports
type ExportService struct {
	source    ExportSource
	questions []catalog.Question
	archiver  archive.Archiver
	telemetry tlmt.Telemetry
	loc       *time.Location
	now       func() time.Time
}

// NewExportService creates a new ExportService. archiver and telemetry may be nil.
func NewExportService(source ExportSource, cat *catalog.Catalog, archiver archive.Archiver, telemetry tlmt.Telemetry, loc *time.Location) *ExportService {
	if archiver == nil {
		archiver = archive.Disabled{}
	}
	if telemetry == nil {
		telemetry = gonoop.New()
	}
	if loc == nil {
		loc = time.Local
	}

	return &ExportService{
		source:    source,
		questions: cat.All(),
		archiver:  archiver,
		telemetry: telemetry,
		loc:       loc,
		now:       time.Now,
	}
}

// Observations exports every observation, one row per record
func (s *ExportService) Observations(ctx context.Context, format export.Format) (*File, error) {
	list, err := s.source.ListAllWithRecords(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to load observations: %w", err)
	}

	sheet := export.ObservationSheet(list, s.questions, s.loc)
	return s.build(ctx, "Observaciones", format, sheet)
}

// DashboardLists exports the operator and deviation lists of a bundle.
// XLSX holds both lists; CSV holds the one named by list.
func (s *ExportService) DashboardLists(ctx context.Context, bundle *domain.Stats, format export.Format, list string) (*File, error) {
	operators := export.OperatorSheet(bundle.OperatorList)
	deviations := export.DeviationSheet(bundle.DeviationList)

	if format == export.FormatXLSX && list == "" {
		return s.build(ctx, "Dashboard", format, operators, deviations)
	}

	switch list {
	case ListOperators, "":
		return s.build(ctx, "Operadores", format, operators)
	case ListDeviations:
		return s.build(ctx, "Desviaciones", format, deviations)
	default:
		return nil, ErrUnknownList
	}
}

// Archive stores the observation workbook in S3 and returns its key
func (s *ExportService) Archive(ctx context.Context) (string, error) {
	file, err := s.Observations(ctx, export.FormatXLSX)
	if err != nil {
		return "", err
	}

	key, err := s.archiver.Store(ctx, file.Name, file.ContentType, file.Data)
	if err != nil {
		return "", err
	}

	log.Printf("[ExportService] Archived %s (%d rows, %d bytes)", key, file.Rows, len(file.Data))
	return key, nil
}

func (s *ExportService) build(ctx context.Context, base string, format export.Format, sheets ...export.Sheet) (*File, error) {
	var buf bytes.Buffer
	if err := export.Write(&buf, format, sheets...); err != nil {
		return nil, fmt.Errorf("failed to write export: %w", err)
	}

	rows := 0
	for i, sh := range sheets {
		if format == export.FormatCSV && i > 0 {
			break
		}
		rows += len(sh.Rows)
	}

	file := &File{
		Name:        export.FileName(base, s.now().In(s.loc), format),
		ContentType: format.ContentType(),
		Data:        buf.Bytes(),
		Rows:        rows,
	}

	_ = s.telemetry.Send(ctx, tlmt.NewEvent("export_generated", map[string]any{
		"format": string(format),
		"rows":   rows,
		"kind":   base,
	}))

	return file, nil
}
