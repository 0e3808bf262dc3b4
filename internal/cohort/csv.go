package cohort

import (
	"encoding/csv"
	"fmt"
	"io"
	"os"
	"strconv"
	"strings"

	apperrors "github.com/clinscore/trs/internal/errors"
	"github.com/clinscore/trs/internal/trs"
)

// Expected column names. The id column is optional; everything else is
// required. Matching is case-insensitive.
const (
	colID       = "id"
	colMELD     = "meld"
	colSAPSII   = "saps_ii"
	colAge      = "age"
	colPlatelet = "platelets"
	colHCC      = "hcc"
	colCVVHD    = "cvvhd"
	colVHF      = "vhf"
	colOutcome  = "death_90d"
	colTime     = "survival_time"
)

var requiredColumns = []string{
	colMELD, colSAPSII, colAge, colPlatelet,
	colHCC, colCVVHD, colVHF, colOutcome, colTime,
}

// FromCSVFile loads a cohort from a CSV file with one header row.
func FromCSVFile(path string) (*Cohort, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("failed to open cohort file: %w", err)
	}
	defer f.Close()

	return FromCSV(f)
}

// FromCSV reads a cohort from CSV data. Empty cells and the markers NA,
// NaN and null mean the value is absent.
func FromCSV(r io.Reader) (*Cohort, error) {
	reader := csv.NewReader(r)
	reader.TrimLeadingSpace = true

	header, err := reader.Read()
	if err != nil {
		return nil, apperrors.NewValidationError("cohort CSV has no header row", err)
	}

	cols := make(map[string]int, len(header))
	for i, name := range header {
		cols[strings.ToLower(strings.TrimSpace(name))] = i
	}
	for _, name := range requiredColumns {
		if _, ok := cols[name]; !ok {
			return nil, apperrors.NewValidationError(fmt.Sprintf("cohort CSV missing column %q", name))
		}
	}

	var records []trs.Record
	row := 0
	for {
		fields, err := reader.Read()
		if err == io.EOF {
			break
		}
		if err != nil {
			return nil, apperrors.NewValidationError(fmt.Sprintf("cohort CSV row %d unreadable", row+1), err)
		}
		row++

		rec := trs.Record{}
		if idx, ok := cols[colID]; ok && idx < len(fields) {
			rec.ID = strings.TrimSpace(fields[idx])
		}

		if rec.MELD, err = parseOptionalFloat(fields, cols[colMELD]); err != nil {
			return nil, rowError(row, colMELD, err)
		}
		if rec.SAPSII, err = parseOptionalFloat(fields, cols[colSAPSII]); err != nil {
			return nil, rowError(row, colSAPSII, err)
		}
		if rec.Age, err = parseOptionalFloat(fields, cols[colAge]); err != nil {
			return nil, rowError(row, colAge, err)
		}
		if rec.Platelets, err = parseOptionalFloat(fields, cols[colPlatelet]); err != nil {
			return nil, rowError(row, colPlatelet, err)
		}
		if rec.HCC, err = parseOptionalBool(fields, cols[colHCC]); err != nil {
			return nil, rowError(row, colHCC, err)
		}
		if rec.CVVHD, err = parseOptionalBool(fields, cols[colCVVHD]); err != nil {
			return nil, rowError(row, colCVVHD, err)
		}
		if rec.VHF, err = parseOptionalBool(fields, cols[colVHF]); err != nil {
			return nil, rowError(row, colVHF, err)
		}

		outcome, err := parseOptionalFloat(fields, cols[colOutcome])
		if err != nil || outcome == nil {
			return nil, rowError(row, colOutcome, fmt.Errorf("outcome is required"))
		}
		rec.Outcome = int(*outcome)

		t, err := parseOptionalFloat(fields, cols[colTime])
		if err != nil || t == nil {
			return nil, rowError(row, colTime, fmt.Errorf("survival time is required"))
		}
		rec.Time = *t

		records = append(records, rec)
	}

	return New(records)
}

func rowError(row int, column string, err error) error {
	return apperrors.NewValidationError(fmt.Sprintf("cohort CSV row %d column %s: %v", row, column, err))
}

func isAbsent(s string) bool {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "", "na", "nan", "null":
		return true
	}
	return false
}

func parseOptionalFloat(fields []string, idx int) (*float64, error) {
	if idx >= len(fields) || isAbsent(fields[idx]) {
		return nil, nil
	}
	v, err := strconv.ParseFloat(strings.TrimSpace(fields[idx]), 64)
	if err != nil {
		return nil, fmt.Errorf("not a number: %q", fields[idx])
	}
	return &v, nil
}

func parseOptionalBool(fields []string, idx int) (*bool, error) {
	if idx >= len(fields) || isAbsent(fields[idx]) {
		return nil, nil
	}
	switch strings.ToLower(strings.TrimSpace(fields[idx])) {
	case "1", "true", "t", "yes", "y":
		v := true
		return &v, nil
	case "0", "false", "f", "no", "n":
		v := false
		return &v, nil
	}
	return nil, fmt.Errorf("not a boolean: %q", fields[idx])
}
