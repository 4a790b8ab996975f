package standard

import (
	"context"
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"strings"

	dErrors "certregistry/pkg/domain-errors"
	"certregistry/pkg/platform/sentinel"
)

// ImportResult summarizes one catalog import.
type ImportResult struct {
	Created int `json:"created"`
	Updated int `json:"updated"`
	Skipped int `json:"skipped"`
}

// ImportCSV loads catalog rows from CSV: name, certificate_name, prefix.
// A header row is detected and skipped. Rows are upserted by name; the first
// fully blank row ends the import, matching how exported sheets pad trailing
// rows. Malformed rows are counted as skipped, never fatal.
func (s *Service) ImportCSV(ctx context.Context, r io.Reader) (*ImportResult, error) {
	reader := csv.NewReader(r)
	reader.FieldsPerRecord = -1
	reader.TrimLeadingSpace = true

	result := &ImportResult{}
	rowNum := 0
	for {
		record, err := reader.Read()
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			return nil, dErrors.Wrap(err, dErrors.CodeBadRequest, fmt.Sprintf("malformed CSV at row %d", rowNum+1))
		}
		rowNum++

		if isBlankRow(record) {
			break
		}
		if rowNum == 1 && isHeaderRow(record) {
			continue
		}
		if len(record) < 3 {
			result.Skipped++
			continue
		}

		st := &Standard{
			Name:            strings.TrimSpace(record[0]),
			CertificateName: strings.TrimSpace(record[1]),
			Prefix:          strings.TrimSpace(record[2]),
		}
		if st.Validate() != nil {
			result.Skipped++
			continue
		}

		created, err := s.upsert(ctx, st)
		if err != nil {
			return nil, err
		}
		if created {
			result.Created++
		} else {
			result.Updated++
		}
	}

	s.logger.InfoContext(ctx, "standard catalog imported",
		"created", result.Created,
		"updated", result.Updated,
		"skipped", result.Skipped,
	)
	return result, nil
}

// upsert creates the standard or, when the name is already cataloged,
// overwrites that entry's fields in place.
func (s *Service) upsert(ctx context.Context, st *Standard) (created bool, err error) {
	existing, err := s.store.FindByName(ctx, st.Name)
	switch {
	case err == nil:
		st.ID = existing.ID
		if err := s.store.Update(ctx, st); err != nil {
			return false, dErrors.Wrap(err, dErrors.CodeInternal, "failed to update standard during import")
		}
		return false, nil
	case errors.Is(err, sentinel.ErrNotFound):
		if err := s.store.Create(ctx, st); err != nil {
			return false, dErrors.Wrap(err, dErrors.CodeInternal, "failed to create standard during import")
		}
		return true, nil
	default:
		return false, dErrors.Wrap(err, dErrors.CodeInternal, "failed to look up standard during import")
	}
}

func isBlankRow(record []string) bool {
	for _, field := range record {
		if strings.TrimSpace(field) != "" {
			return false
		}
	}
	return true
}

func isHeaderRow(record []string) bool {
	return len(record) > 0 && strings.EqualFold(strings.TrimSpace(record[0]), "name")
}
