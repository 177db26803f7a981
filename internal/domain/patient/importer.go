package patient

import (
	"context"
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"strings"
	"time"

	"github.com/rs/zerolog"

	"github.com/consultamed/consultamed/internal/platform/apperr"
	"github.com/consultamed/consultamed/internal/validators"
	"github.com/consultamed/consultamed/pkg/civil"
)

// Columns of the legacy CRM export.
const (
	colDocument  = "DNI_NIE"
	colGiven     = "Nombre"
	colFamily    = "Apellidos"
	colBirthDate = "Fecha_Nacimiento"
)

var importDateLayouts = []string{"02/01/2006", "2006-01-02"}

// ImportStats summarizes an import run.
type ImportStats struct {
	Total   int `json:"total"`
	Created int `json:"created"`
	Skipped int `json:"skipped"`
	Errors  int `json:"errors"`
}

// Processed counts rows that were created or already on file.
func (s ImportStats) Processed() int {
	return s.Created + s.Skipped
}

// Importer loads patients from a CSV export through the Service, so every
// row goes through the same validation as the API.
type Importer struct {
	svc    *Service
	logger zerolog.Logger
}

func NewImporter(svc *Service, logger zerolog.Logger) *Importer {
	return &Importer{svc: svc, logger: logger}
}

// Import reads every row of r. Row level failures are counted and logged;
// only an unreadable file or a missing column aborts the run.
func (im *Importer) Import(ctx context.Context, r io.Reader) (*ImportStats, error) {
	reader := csv.NewReader(r)
	reader.TrimLeadingSpace = true

	records, err := reader.ReadAll()
	if err != nil {
		return nil, fmt.Errorf("read csv: %w", err)
	}
	if len(records) == 0 {
		return nil, errors.New("read csv: empty file")
	}

	cols, err := columnIndex(records[0])
	if err != nil {
		return nil, err
	}

	rows := records[1:]
	stats := &ImportStats{Total: len(rows)}
	for i, row := range rows {
		if err := ctx.Err(); err != nil {
			return stats, err
		}
		im.importRow(ctx, row, cols, i+1, stats)
	}

	im.logger.Info().
		Int("total", stats.Total).
		Int("created", stats.Created).
		Int("skipped", stats.Skipped).
		Int("errors", stats.Errors).
		Msg("patient import finished")
	return stats, nil
}

func (im *Importer) importRow(ctx context.Context, row []string, cols map[string]int, n int, stats *ImportStats) {
	field := func(name string) string {
		if i := cols[name]; i < len(row) {
			return strings.TrimSpace(row[i])
		}
		return ""
	}

	document := validators.FormatDocument(field(colDocument))
	masked := validators.MaskDocument(document)
	log := im.logger.With().Int("row", n).Int("total", stats.Total).Str("document", masked).Logger()

	ok, docType := validators.ValidateDocument(document)
	if !ok {
		log.Warn().Msg("invalid document")
		stats.Errors++
		return
	}

	if _, err := im.svc.GetByDocument(ctx, document); err == nil {
		log.Info().Str("document_type", string(docType)).Msg("already on file")
		stats.Skipped++
		return
	} else if !apperr.IsNotFound(err) {
		log.Error().Str("error", truncate(err.Error(), 80)).Msg("lookup failed")
		stats.Errors++
		return
	}

	birth, err := parseImportDate(field(colBirthDate))
	if err != nil {
		log.Warn().Str("error", err.Error()).Msg("invalid birth date")
		stats.Errors++
		return
	}

	p, err := im.svc.Create(ctx, &CreateRequest{
		IdentifierValue: document,
		NameGiven:       field(colGiven),
		NameFamily:      field(colFamily),
		BirthDate:       &birth,
	})
	switch {
	case apperr.IsDuplicate(err):
		log.Info().Msg("already on file")
		stats.Skipped++
	case err != nil:
		log.Warn().Str("error", truncate(err.Error(), 80)).Msg("create failed")
		stats.Errors++
	default:
		log.Info().
			Str("document_type", string(docType)).
			Int("age", p.AgeOn(im.svc.today())).
			Msg("created")
		stats.Created++
	}
}

func columnIndex(header []string) (map[string]int, error) {
	cols := make(map[string]int, len(header))
	for i, h := range header {
		cols[strings.TrimSpace(strings.TrimPrefix(h, "\uFEFF"))] = i
	}
	for _, required := range []string{colDocument, colGiven, colFamily, colBirthDate} {
		if _, ok := cols[required]; !ok {
			return nil, fmt.Errorf("read csv: missing column %q", required)
		}
	}
	return cols, nil
}

func parseImportDate(s string) (civil.Date, error) {
	if s == "" {
		return civil.Date{}, errors.New("fecha de nacimiento vacía")
	}
	for _, layout := range importDateLayouts {
		if t, err := time.Parse(layout, s); err == nil {
			return civil.Of(t), nil
		}
	}
	return civil.Date{}, fmt.Errorf("formato de fecha inválido: %s", s)
}

func truncate(s string, n int) string {
	r := []rune(s)
	if len(r) <= n {
		return s
	}
	return string(r[:n])
}
